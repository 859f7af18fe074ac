// Package preprocessor expands the macros of line oriented text documents.
//
// Macro bodies are scripts run by a script.Engine. A body line containing the
// expand token appends the value of the expression following the token to the
// macro result. Named macros are registered and expanded wherever their name
// appears in the text, anonymous ones are applied where they are defined.
package preprocessor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nickwells/location.mod/location"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fwessels/ppr/internal/keyword"
	"github.com/fwessels/ppr/internal/logging"
	"github.com/fwessels/ppr/internal/logging/logfields"
	"github.com/fwessels/ppr/internal/script"
)

const subsystem = "preprocessor"

// Preprocessor holds the macros, parameters and open conditionals shared by
// the documents it processes. It is not safe for concurrent use.
type Preprocessor struct {
	cfg      Config
	begin    []directive
	registry *keyword.Searcher[Macro]
	params   script.MapParams
	cond     condStack
	engine   script.Engine
	ledger   *Ledger
	log      logrus.FieldLogger
	depth    int
}

// New validates cfg and returns a Preprocessor.
func New(cfg Config, opts ...Option) (*Preprocessor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sep, err := keyword.NewBoundary(cfg.Separator, cfg.Glue)
	if err != nil {
		return nil, &Error{Kind: ErrConfiguration, Msg: err.Error(), Err: err}
	}
	cfg.IncludeDirs = append([]string(nil), cfg.IncludeDirs...)

	p := &Preprocessor{
		cfg:      cfg,
		begin:    cfg.Keywords.beginDirectives(),
		registry: keyword.New[Macro](sep),
		params:   script.MapParams{},
		ledger:   SharedLedger(),
		log:      logging.DefaultLogger.WithField(logfields.LogSubsys, subsystem),
	}
	for k, v := range cfg.Params {
		p.params[k] = v
	}
	for _, o := range opts {
		if err := o(p); err != nil {
			return nil, err
		}
	}
	if p.engine == nil {
		p.engine = script.NewLua()
	}
	return p, nil
}

// Parameter returns the value of the parameter name.
func (p *Preprocessor) Parameter(name string) (string, bool) {
	return p.params.Get(name)
}

// SetParameter sets the parameter name to value.
func (p *Preprocessor) SetParameter(name, value string) {
	p.params.Set(name, value)
}

// Macro returns the registered macro called name.
func (p *Preprocessor) Macro(name string) (Macro, bool) {
	return p.registry.Get(name)
}

// Macros returns the names of the registered macros.
func (p *Preprocessor) Macros() []string {
	return p.registry.Keywords()
}

// Process preprocesses the document read from r and writes the result to w.
// Nothing is written if processing fails.
func (p *Preprocessor) Process(ctx context.Context, name string, r io.Reader, w io.Writer) error {
	out, err := p.process(ctx, name, r)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return errors.Wrapf(err, "writing %s", name)
}

// ProcessString preprocesses text.
func (p *Preprocessor) ProcessString(ctx context.Context, text string) (string, error) {
	return p.process(ctx, "", strings.NewReader(text))
}

// document is the state of one document being processed.
type document struct {
	loc  *location.L
	open Macro // macro whose body is being read
	out  strings.Builder
}

func (p *Preprocessor) process(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := p.enter(0); err != nil {
		return "", err
	}
	defer p.leave()

	d := &document{loc: location.New(name)}
	lr := newLineReader(r)
	for {
		line, hasNL, ok, err := lr.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", errors.Wrapf(err, "reading %s", d.loc)
		}
		if !ok {
			break
		}
		d.loc.Incr()
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := p.processLine(ctx, d, line, hasNL); err != nil {
			return "", err
		}
	}

	if d.open != nil {
		m := d.open.definition()
		p.log.WithFields(logrus.Fields{
			logfields.Document: name,
			logfields.Macro:    m.name,
			logfields.Line:     m.start,
		}).Debug("Dropping macro definition left open at end of document")
	}
	return d.out.String(), nil
}

func (p *Preprocessor) processLine(ctx context.Context, d *document, line string, hasNL bool) error {
	at := int(d.loc.Idx())
	if p.conditional(line) {
		return nil
	}
	switch {
	case p.is(line, roleElse):
		return syntaxError("", at, fmt.Sprintf("invalid %s keyword.", p.cfg.Keywords.Else))
	case p.is(line, roleEndif):
		return syntaxError("", at, fmt.Sprintf("invalid %s keyword.", p.cfg.Keywords.Endif))
	}

	if d.open != nil {
		m, err := p.parseHeader(line, at)
		if err != nil {
			return err
		}
		if m != nil {
			return syntaxError(d.open.Name(), at, "cannot define a new macro within another macro.")
		}
		if p.is(line, roleEnd) {
			text, err := p.closeMacro(ctx, d.open, at)
			if err != nil {
				return err
			}
			d.out.WriteString(text)
			d.open = nil
			return nil
		}
		d.open.definition().add(line)
		return nil
	}

	m, err := p.parseHeader(line, at)
	if err != nil {
		return err
	}
	if m != nil {
		if m.definition().empty() {
			d.open = m
			return nil
		}
		text, err := p.closeMacro(ctx, m, at)
		if err != nil {
			return err
		}
		d.out.WriteString(text)
		return nil
	}
	if p.is(line, roleEnd) {
		return syntaxError("", at, fmt.Sprintf("%s outside a macro definition.", p.cfg.Keywords.End))
	}

	expanded, err := p.expandLine(ctx, line, at)
	if err != nil {
		return err
	}
	d.out.WriteString(expanded)
	if hasNL {
		d.out.WriteByte('\n')
	}
	return nil
}

// conditional applies the innermost if macro to line and reports whether
// the line was consumed. Open if macros carry over to the next document.
func (p *Preprocessor) conditional(line string) bool {
	mode, ok := p.cond.Top()
	if !ok {
		return false
	}
	switch mode {
	case skipToElse:
		if p.is(line, roleElse) {
			p.cond.Set(keepToEndif)
		}
		return true
	case keepToElse:
		if p.is(line, roleElse) {
			p.cond.Set(skipToEndif)
			return true
		}
		if p.is(line, roleEndif) {
			p.cond.Pop()
			return true
		}
	case skipToEndif:
		if p.is(line, roleEndif) {
			p.cond.Pop()
		}
		return true
	case keepToEndif:
		if p.is(line, roleEndif) {
			p.cond.Pop()
			return true
		}
	}
	return false
}

// is reports whether line consists of the keyword of role r.
func (p *Preprocessor) is(line string, r role) bool {
	var kw string
	switch r {
	case roleElse:
		kw = p.cfg.Keywords.Else
	case roleEndif:
		kw = p.cfg.Keywords.Endif
	case roleEnd:
		kw = p.cfg.Keywords.End
	}
	return strings.TrimSpace(line) == kw
}

// closeMacro registers a named macro or applies an anonymous one at line at.
func (p *Preprocessor) closeMacro(ctx context.Context, m Macro, at int) (string, error) {
	r := m.definition().role
	log := p.log.WithFields(logrus.Fields{
		logfields.Macro:   m.Name(),
		logfields.Kind:    r.String(),
		logfields.Keyword: p.cfg.Keywords.keyword(r),
		logfields.Line:    at,
	})
	if _, assign := m.(*assignMacro); m.Name() != "" && !assign {
		if _, ok := p.registry.Get(m.Name()); ok {
			log.Debug("Redefining macro")
		}
		if err := p.registry.Add(m.Name(), m); err != nil {
			return "", syntaxError(m.Name(), at, err.Error())
		}
		log.Debug("Registered macro")
		return "", nil
	}

	log.Debug("Applying macro")
	text, err := m.Apply(ctx, at)
	if err != nil {
		return "", err
	}
	if !m.Final() {
		if text, err = p.expandLine(ctx, text, at); err != nil {
			return "", err
		}
	}
	if _, ok := m.(*ifMacro); ok {
		mode := keepToElse
		if !truth(text) {
			mode = skipToElse
		}
		p.cond.Push(mode)
		log.WithFields(logrus.Fields{
			"condition":     truth(text),
			logfields.Depth: p.cond.Depth(),
		}).Debug("Entering conditional")
		return "", nil
	}
	return text, nil
}

// expandLine replaces every macro invocation in line by its result.
func (p *Preprocessor) expandLine(ctx context.Context, line string, at int) (string, error) {
	if err := p.enter(at); err != nil {
		return "", err
	}
	defer p.leave()

	var out strings.Builder
	for {
		m, loc, ok := p.registry.FindIndex(line)
		if !ok {
			break
		}
		prefix, rest := line[:loc[0]], line[loc[1]:]

		var args []string
		if strings.HasPrefix(rest, "(") {
			raw, n, ok := p.splitArguments(rest[1:])
			if !ok {
				return "", syntaxError(m.Name(), at, "incomplete arguments in macro call.")
			}
			rest = rest[1+n:]
			for _, a := range raw {
				expanded, err := p.expandLine(ctx, a, at)
				if err != nil {
					return "", err
				}
				args = append(args, p.unescape(expanded))
			}
			if len(m.Params()) == 0 && len(args) == 1 && args[0] == "" {
				args = nil
			}
		}

		result, err := m.Apply(ctx, at, args...)
		if err != nil {
			return "", err
		}
		if !m.Final() {
			if result, err = p.expandLine(ctx, result, at); err != nil {
				return "", err
			}
		}
		out.WriteString(p.unglueBack(prefix))
		out.WriteString(result)
		line = p.unglueFront(rest)
	}
	out.WriteString(line)
	return out.String(), nil
}

// splitArguments splits the argument list s, which starts after the opening
// parenthesis, at its top level commas. It returns the raw arguments and the
// length of s consumed including the closing parenthesis, or false if the
// list is not closed.
func (p *Preprocessor) splitArguments(s string) ([]string, int, bool) {
	esc := p.cfg.Escape
	var (
		args  []string
		cur   strings.Builder
		depth int
	)
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], esc) && i+len(esc) < len(s) {
			switch s[i+len(esc)] {
			case ',', '(', ')':
				cur.WriteString(s[i : i+len(esc)+1])
				i += len(esc) + 1
				continue
			}
		}
		switch c := s[i]; {
		case c == '(':
			depth++
		case c == ')' && depth == 0:
			return append(args, cur.String()), i + 1, true
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, cur.String())
			cur.Reset()
			i++
			continue
		}
		cur.WriteByte(s[i])
		i++
	}
	return nil, 0, false
}

func (p *Preprocessor) unescape(s string) string {
	esc := p.cfg.Escape
	if !strings.Contains(s, esc) {
		return s
	}
	return strings.NewReplacer(esc+",", ",", esc+"(", "(", esc+")", ")").Replace(s)
}

// unglueBack strips a glue string or escape character ending s.
func (p *Preprocessor) unglueBack(s string) string {
	if g := p.cfg.Glue; g != "" && strings.HasSuffix(s, g) {
		return s[:len(s)-len(g)]
	}
	return strings.TrimSuffix(s, p.cfg.Escape)
}

// unglueFront strips a glue string or escape character starting s.
func (p *Preprocessor) unglueFront(s string) string {
	if g := p.cfg.Glue; g != "" && strings.HasPrefix(s, g) {
		return s[len(g):]
	}
	return strings.TrimPrefix(s, p.cfg.Escape)
}

func (p *Preprocessor) enter(at int) error {
	p.depth++
	if max := p.cfg.MaxDepth; max > 0 && p.depth > max {
		p.depth--
		return &Error{
			Kind: ErrRecursionLimit,
			At:   at,
			Msg:  fmt.Sprintf("maximum nesting depth of %d exceeded.", max),
		}
	}
	if p.depth > 1 {
		p.log.WithField(logfields.Depth, p.depth).Debug("Nested expansion")
	}
	return nil
}

func (p *Preprocessor) leave() { p.depth-- }

type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// next returns the next line without its terminator and whether it had one.
func (lr *lineReader) next() (line string, hasNL bool, ok bool, err error) {
	s, err := lr.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, false, err
	}
	if len(s) == 0 && err == io.EOF {
		return "", false, false, io.EOF
	}
	hasNL = strings.HasSuffix(s, "\n")
	if hasNL {
		s = s[:len(s)-1]
	}
	return s, hasNL, true, nil
}

// ParseDefine splits a name=value parameter definition. A missing value
// defaults to "1".
func ParseDefine(s string) (name, value string) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, "1"
}
