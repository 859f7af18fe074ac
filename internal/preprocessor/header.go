package preprocessor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fwessels/ppr/internal/script"
)

var (
	reWordStart = regexp.MustCompile(`^\w`)
	reName      = regexp.MustCompile(`^[a-zA-Z_]\w*`)
	reParamList = regexp.MustCompile(`^\(\s*[a-zA-Z_]\w*\s*(,\s*[a-zA-Z_]\w*\s*)*\)`)
	reIdent     = regexp.MustCompile(`[a-zA-Z_]\w*`)
	reParam     = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// parseHeader returns the macro whose definition starts on line, or nil when
// line is not a macro header.
func (p *Preprocessor) parseHeader(line string, at int) (Macro, error) {
	line = strings.TrimSpace(line)
	var (
		r     role
		found bool
	)
	for _, d := range p.begin {
		if strings.HasPrefix(line, d.keyword) {
			r, found = d.role, true
			line = line[len(d.keyword):]
			break
		}
	}
	if !found || reWordStart.MatchString(line) {
		return nil, nil
	}
	line = strings.TrimSpace(line)

	m := &macro{
		p:     p,
		final: r != roleDefineR && r != roleApplyR,
		start: at,
		role:  r,
	}
	if r == roleDefine || r == roleDefineR || r == roleAssign {
		m.name = reName.FindString(line)
		if m.name == "" {
			return nil, syntaxError("", at, "macro definition without name.")
		}
		line = strings.TrimSpace(line[len(m.name):])
		if list := reParamList.FindString(line); list != "" {
			if r == roleAssign {
				return nil, syntaxError(m.name, at, "assignment with argument.")
			}
			params, err := parseParams(list, p.reserved)
			if err != nil {
				return nil, syntaxError(m.name, at, err.Error())
			}
			m.params = params
			line = strings.TrimSpace(line[len(list):])
		} else if strings.HasPrefix(line, "(") {
			return nil, syntaxError(m.name, at, "invalid arguments for macro definition.")
		}
	}

	if line != "" {
		m.add(line)
		m.inline = true
	}

	switch r {
	case roleAssign:
		return &assignMacro{m}, nil
	case roleLoad:
		return &loadMacro{macro: m}, nil
	case roleRequire:
		return &loadMacro{macro: m, once: true}, nil
	case roleIf:
		return &ifMacro{m}, nil
	}
	return m, nil
}

func parseParams(list string, reserved func(string) bool) ([]string, error) {
	params := reIdent.FindAllString(list, -1)
	seen := make(map[string]bool, len(params))
	for _, name := range params {
		if !reParam.MatchString(name) {
			return nil, fmt.Errorf("invalid string for a macro parameter: %s.", name)
		}
		if reserved(name) {
			return nil, fmt.Errorf("reserved word used as a macro parameter: %s.", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate macro parameter: %s.", name)
		}
		seen[name] = true
	}
	return params, nil
}

func (p *Preprocessor) reserved(name string) bool {
	r, ok := p.engine.(script.Reserver)
	return ok && r.Reserved(name)
}
