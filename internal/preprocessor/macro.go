package preprocessor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fwessels/ppr/internal/logging/logfields"
	"github.com/fwessels/ppr/internal/script"
)

const accumulator = "result_"

// Macro is a parsed macro definition.
type Macro interface {
	// Name is empty for anonymous macros.
	Name() string
	Params() []string
	// Final macros have their result inserted as is. The result of other
	// macros is expanded again.
	Final() bool
	// Apply evaluates the macro invoked at document line at.
	Apply(ctx context.Context, at int, args ...string) (string, error)

	definition() *macro
}

type macro struct {
	p      *Preprocessor
	name   string
	params []string
	lines  []string
	final  bool
	start  int  // document line of the header
	inline bool // the first body line sits on the header line
	role   role
}

func (m *macro) Name() string       { return m.name }
func (m *macro) Params() []string   { return append([]string(nil), m.params...) }
func (m *macro) Final() bool        { return m.final }
func (m *macro) definition() *macro { return m }

func (m *macro) add(line string) { m.lines = append(m.lines, line) }

func (m *macro) empty() bool { return len(m.lines) == 0 }

// firstLine is the document line holding the first body line.
func (m *macro) firstLine() int {
	if m.inline {
		return m.start
	}
	return m.start + 1
}

// generate renders the script of the macro called with values. It also
// returns the script line holding the first body line.
func (m *macro) generate(at int, values []string) (string, int, error) {
	if len(values) != len(m.params) {
		return "", 0, &Error{
			Kind:  ErrArity,
			Macro: m.name,
			At:    at,
			Line:  m.start,
			Msg:   fmt.Sprintf("invalid number of argument: got %d, but expecting %d.", len(values), len(m.params)),
		}
	}

	n := 0
	for m.mentions(accumulator + strconv.Itoa(n)) {
		n++
	}
	acc := accumulator + strconv.Itoa(n)

	d := m.p.engine
	code := make([]string, 0, len(m.params)+len(m.lines)+2)
	code = append(code, d.Declare(acc))
	for i, name := range m.params {
		code = append(code, d.Bind(name, values[i]))
	}
	codeStart := len(code) + 1
	appendTo := d.Append(acc)
	for _, line := range m.lines {
		code = append(code, strings.ReplaceAll(line, m.p.cfg.Expand, appendTo))
	}
	code = append(code, d.Result(acc))
	return strings.Join(code, "\n"), codeStart, nil
}

func (m *macro) mentions(s string) bool {
	for _, name := range m.params {
		if name == s {
			return true
		}
	}
	for _, line := range m.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

func (m *macro) Apply(ctx context.Context, at int, args ...string) (string, error) {
	code, codeStart, err := m.generate(at, args)
	if err != nil {
		return "", err
	}
	out, err := m.p.engine.Evaluate(ctx, code, m.p.params)
	if err != nil {
		return "", m.evaluationError(at, codeStart, err)
	}
	return out, nil
}

// evaluationError positions a failure of the generated script against the
// macro definition in the document.
func (m *macro) evaluationError(at, codeStart int, err error) *Error {
	e := &Error{Kind: ErrEvaluation, Macro: m.name, At: at, Line: m.start, Msg: err.Error(), Err: err}
	var f *script.Failure
	if !errors.As(err, &f) {
		return e
	}
	e.Msg = f.Message
	if f.Line > 0 {
		if line := f.Line - codeStart + m.firstLine(); line >= m.start {
			e.Line = line
		}
	}
	return e
}

// assignMacro stores its result in the parameter of the same name.
type assignMacro struct {
	*macro
}

func (m *assignMacro) Apply(ctx context.Context, at int, args ...string) (string, error) {
	v, err := m.macro.Apply(ctx, at, args...)
	if err != nil {
		return "", err
	}
	m.p.params.Set(m.name, v)
	return "", nil
}

// loadMacro preprocesses the file its result names. With once set, a file
// already in the ledger is skipped.
type loadMacro struct {
	*macro
	once bool
}

func (m *loadMacro) Apply(ctx context.Context, at int, args ...string) (string, error) {
	name, err := m.macro.Apply(ctx, at, args...)
	if err != nil {
		return "", err
	}
	path, err := m.p.resolve(strings.TrimSpace(name), at)
	if err != nil {
		return "", err
	}
	log := m.p.log.WithFields(logrus.Fields{
		logfields.Kind: m.role.String(),
		logfields.Path: path,
		logfields.Line: at,
	})
	if m.once && !m.p.ledger.Claim(path) {
		log.Debug("Skipping already required file")
		return "", nil
	}
	log.Debug("Loading file")
	return m.p.include(ctx, path)
}

// ifMacro yields a condition. Its result is interpreted by the caller.
type ifMacro struct {
	*macro
}

func truth(s string) bool {
	return s != "" && s != "false" && s != "nil"
}
