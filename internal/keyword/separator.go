package keyword

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// DefaultPattern matches a single separator character.
const DefaultPattern = `[^\w]`

// Separator decides where keyword occurrences may begin and end.
type Separator interface {
	// Open returns, in order of preference, the offsets at which a keyword
	// may start when a separator begins at offset i of text.
	Open(text string, i int) []int
	// Closes reports whether a separator begins at offset i of text. The end
	// of the text always closes.
	Closes(text string, i int) bool
}

// None lets keywords start and end anywhere.
type None struct{}

func (None) Open(text string, i int) []int  { return []int{i} }
func (None) Closes(text string, i int) bool { return true }

// Boundary bounds keywords with the start or end of text, a character matching
// a class, or a glue string.
type Boundary struct {
	class *regexp.Regexp
	glue  string
}

// NewBoundary compiles pattern as a single character class. An empty pattern
// only leaves the start and end of text (and glue) as separators.
func NewBoundary(pattern, glue string) (*Boundary, error) {
	b := &Boundary{glue: glue}
	if pattern != "" {
		re, err := regexp.Compile(`^(?:` + pattern + `)$`)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid separator %q", pattern)
		}
		b.class = re
	}
	return b, nil
}

func (b *Boundary) Open(text string, i int) []int {
	var starts []int
	if i == 0 {
		starts = append(starts, 0)
	}
	if i < len(text) && b.isSep(text[i:]) {
		_, w := utf8.DecodeRuneInString(text[i:])
		starts = append(starts, i+w)
	}
	if b.glue != "" && strings.HasPrefix(text[i:], b.glue) {
		starts = append(starts, i+len(b.glue))
	}
	return starts
}

func (b *Boundary) Closes(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	if b.isSep(text[i:]) {
		return true
	}
	return b.glue != "" && strings.HasPrefix(text[i:], b.glue)
}

func (b *Boundary) isSep(s string) bool {
	if b.class == nil {
		return false
	}
	_, w := utf8.DecodeRuneInString(s)
	return b.class.MatchString(s[:w])
}
