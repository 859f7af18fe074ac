// Package script defines how macro bodies are turned into executable code and
// evaluated.
package script

import (
	"context"
	"fmt"
)

// Params gives a script read and write access to the preprocessor's
// parameter store.
type Params interface {
	Get(name string) (string, bool)
	Set(name, value string)
}

// Dialect renders the statements a generated macro script is made of. Every
// rendered statement fits on a single line.
type Dialect interface {
	// Declare creates the accumulator variable acc.
	Declare(acc string) string
	// Bind assigns the literal value to the variable name.
	Bind(name, value string) string
	// Append is the prefix that appends the expression following it to acc.
	Append(acc string) string
	// Result yields the text accumulated in acc.
	Result(acc string) string
}

// Reserver is implemented by dialects that reserve identifiers a macro
// parameter must not use.
type Reserver interface {
	Reserved(name string) bool
}

// Evaluator runs a generated script and returns the text it produced.
// Failures inside the script are reported as *Failure.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, params Params) (string, error)
}

// Engine is a Dialect together with the Evaluator able to run it.
type Engine interface {
	Dialect
	Evaluator
}

// Failure is a script that failed to compile or run. Line is the 1-based line
// of the script where it failed, or 0 when it could not be determined.
type Failure struct {
	Message string
	Line    int
	Err     error
}

func (f *Failure) Error() string {
	if f.Line > 0 {
		return fmt.Sprintf("line %d: %s", f.Line, f.Message)
	}
	return f.Message
}

func (f *Failure) Unwrap() error { return f.Err }

// MapParams is a Params backed by a plain map.
type MapParams map[string]string

func (m MapParams) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func (m MapParams) Set(name, value string) { m[name] = value }
