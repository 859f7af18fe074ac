package preprocessor

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error kinds. Test for them with errors.Is.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrSyntax         = errors.New("syntax error")
	ErrArity          = errors.New("arity error")
	ErrFileNotFound   = errors.New("file not found")
	ErrEvaluation     = errors.New("evaluation error")
	ErrRecursionLimit = errors.New("recursion limit exceeded")
)

// Error is the single error type returned by the preprocessor.
//
// Macro is the name of the macro involved (empty for anonymous macros and
// directives), At the document line where it was invoked and Line, when not
// zero, the document line the failure points at.
type Error struct {
	Kind  error
	Macro string
	At    int
	Line  int
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Kind == ErrConfiguration {
		return e.Msg
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Ppr error (%s:%d)", e.Macro, e.At)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d: ", e.Line)
	} else {
		b.WriteByte(' ')
	}
	b.WriteString(e.Msg)
	return b.String()
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func configError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func syntaxError(macro string, at int, msg string) *Error {
	return &Error{Kind: ErrSyntax, Macro: macro, At: at, Msg: msg}
}
