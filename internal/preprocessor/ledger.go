package preprocessor

import (
	"sort"
	"sync"
)

// Ledger records the files loaded by require macros. Paths are added and
// never removed.
type Ledger struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{paths: map[string]struct{}{}}
}

var shared = NewLedger()

// SharedLedger returns the ledger used by every Preprocessor not given one
// with WithLedger.
func SharedLedger() *Ledger { return shared }

// Claim adds path and reports whether it was not there yet.
func (l *Ledger) Claim(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.paths[path]; ok {
		return false
	}
	l.paths[path] = struct{}{}
	return true
}

// Contains reports whether path has been claimed.
func (l *Ledger) Contains(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.paths[path]
	return ok
}

// Paths returns the claimed paths in sorted order.
func (l *Ledger) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	paths := make([]string, 0, len(l.paths))
	for p := range l.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
