// Package keyword finds occurrences of registered keywords inside a line of
// text.
//
// Keywords are scanned leftmost first. When several keywords can match at the
// same position, the one that sorts first in descending lexicographic order
// wins. Occurrences only count when a separator bounds them on both sides.
package keyword

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrInvalidKeyword is returned by Add for strings that are not identifiers.
var ErrInvalidKeyword = errors.New("invalid string for a keyword")

var reKeyword = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// Range is an inclusive range of characters inside the searched text.
type Range struct {
	First int
	Last  int
}

// Len returns the number of characters covered by r.
func (r Range) Len() int { return r.Last - r.First + 1 }

// charRange converts the byte span [start, end) of text to a Range.
func charRange(text string, start, end int) Range {
	first := utf8.RuneCountInString(text[:start])
	return Range{First: first, Last: first + utf8.RuneCountInString(text[start:end]) - 1}
}

// Searcher maps keywords to values and locates them inside text.
type Searcher[V any] struct {
	sep  Separator
	m    map[string]V
	keys []string // descending order
}

// New returns an empty searcher. A nil separator accepts any position.
func New[V any](sep Separator) *Searcher[V] {
	if sep == nil {
		sep = None{}
	}
	return &Searcher[V]{sep: sep, m: map[string]V{}}
}

// Add associates value with keyword, replacing any previous value.
func (s *Searcher[V]) Add(keyword string, value V) error {
	if !reKeyword.MatchString(keyword) {
		return errors.Wrapf(ErrInvalidKeyword, "%q", keyword)
	}
	if _, ok := s.m[keyword]; !ok {
		s.keys = append(s.keys, keyword)
		sort.Sort(sort.Reverse(sort.StringSlice(s.keys)))
	}
	s.m[keyword] = value
	return nil
}

// Get returns the value registered for keyword.
func (s *Searcher[V]) Get(keyword string) (V, bool) {
	v, ok := s.m[keyword]
	return v, ok
}

// Keywords returns the registered keywords in scan order.
func (s *Searcher[V]) Keywords() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of registered keywords.
func (s *Searcher[V]) Len() int { return len(s.keys) }

// Find returns the first bounded occurrence of a registered keyword in text,
// ignoring the keywords listed in skip.
func (s *Searcher[V]) Find(text string, skip ...string) (V, Range, bool) {
	v, loc, ok := s.FindIndex(text, skip...)
	if !ok {
		return v, Range{}, false
	}
	return v, charRange(text, loc[0], loc[1]), true
}

// FindIndex is like Find but returns the byte offsets of the occurrence, the
// keyword being text[loc[0]:loc[1]].
func (s *Searcher[V]) FindIndex(text string, skip ...string) (V, [2]int, bool) {
	var zero V
	if len(s.keys) == 0 {
		return zero, [2]int{}, false
	}
	keys := s.keys
	if len(skip) > 0 {
		keys = make([]string, 0, len(s.keys))
		for _, k := range s.keys {
			if !contains(skip, k) {
				keys = append(keys, k)
			}
		}
	}

	// A match starts where its leading separator starts, so the scan walks
	// separator positions and tries every keyword there before moving on.
	for i := 0; i <= len(text); {
		for _, k := range keys {
			for _, start := range s.sep.Open(text, i) {
				end := start + len(k)
				if strings.HasPrefix(text[start:], k) && s.sep.Closes(text, end) {
					return s.m[k], [2]int{start, end}, true
				}
			}
		}
		if i == len(text) {
			break
		}
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
	}
	return zero, [2]int{}, false
}

// Scan returns an iterator over all the occurrences in text. Each match is
// blanked out before looking for the next one, so keywords nested inside an
// already matched span are never reported.
func (s *Searcher[V]) Scan(text string) *Scanner[V] {
	return &Scanner[V]{s: s, text: []byte(text)}
}

// Scanner iterates over keyword occurrences, bufio.Scanner style.
type Scanner[V any] struct {
	s     *Searcher[V]
	text  []byte
	value V
	rng   Range
	done  bool
}

// Next advances to the next occurrence and reports whether there was one.
func (sc *Scanner[V]) Next() bool {
	if sc.done {
		return false
	}
	text := string(sc.text)
	v, loc, ok := sc.s.FindIndex(text)
	if !ok {
		sc.done = true
		return false
	}
	for i := loc[0]; i < loc[1]; i++ {
		sc.text[i] = ' '
	}
	sc.value, sc.rng = v, charRange(text, loc[0], loc[1])
	return true
}

// Value returns the value of the current occurrence.
func (sc *Scanner[V]) Value() V { return sc.value }

// Range returns the range of the current occurrence.
func (sc *Scanner[V]) Range() Range { return sc.rng }

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
