package script

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

const (
	// chunkName prefixes the positions the interpreter reports.
	chunkName = "macro"
	// ParamTable is the global giving scripts access to the parameters.
	ParamTable = "param"
	joinFunc   = "__join"
)

// allowed lists the globals a script may use. Everything else opened by the
// base library (dofile, loadfile, load, require, print, ...) is removed.
var allowed = map[string]bool{
	"_G":           true,
	"_VERSION":     true,
	"assert":       true,
	"error":        true,
	"getmetatable": true,
	"ipairs":       true,
	"next":         true,
	"pairs":        true,
	"pcall":        true,
	"rawequal":     true,
	"rawget":       true,
	"rawset":       true,
	"select":       true,
	"setmetatable": true,
	"tonumber":     true,
	"tostring":     true,
	"type":         true,
	"unpack":       true,
	"xpcall":       true,
	"math":         true,
	"string":       true,
	"table":        true,
	ParamTable:     true,
	joinFunc:       true,
}

var keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true, "or": true,
	"repeat": true, "return": true, "then": true, "true": true, "until": true,
	"while": true,
}

var (
	reRuntimeLine = regexp.MustCompile(`^` + chunkName + `:(\d+):\s*`)
	reSyntaxLine  = regexp.MustCompile(`^` + chunkName + ` line:(\d+)\(column:\d+\)\s*`)
	reCompileLine = regexp.MustCompile(`line\((\d+)\)`)
)

// Lua evaluates macro scripts written in Lua. Every evaluation runs in a
// fresh interpreter that can only reach the parameter store.
type Lua struct {
	timeout time.Duration
}

// LuaOption configures a Lua engine.
type LuaOption func(*Lua)

// Timeout bounds the running time of a single evaluation.
func Timeout(d time.Duration) LuaOption {
	return func(l *Lua) { l.timeout = d }
}

// NewLua returns a Lua engine.
func NewLua(opts ...LuaOption) *Lua {
	l := &Lua{}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Reserved reports whether name is a Lua keyword or a global the generated
// code relies on.
func (l *Lua) Reserved(name string) bool {
	return keywords[name] || name == joinFunc
}

func (l *Lua) Declare(acc string) string { return "local " + acc + " = {}" }

func (l *Lua) Bind(name, value string) string { return "local " + name + " = " + Quote(value) }

func (l *Lua) Append(acc string) string { return acc + "[#" + acc + "+1] = " }

func (l *Lua) Result(acc string) string { return "return " + joinFunc + "(" + acc + ")" }

// Evaluate runs code and returns the string it yields.
func (l *Lua) Evaluate(ctx context.Context, code string, params Params) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)
	if err := sandbox(L, params); err != nil {
		return "", errors.Wrap(err, "preparing interpreter")
	}

	fn, err := L.Load(strings.NewReader(code), chunkName)
	if err != nil {
		return "", newFailure(err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return "", newFailure(err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	if ret == lua.LNil {
		return "", nil
	}
	return ret.String(), nil
}

func sandbox(L *lua.LState, params Params) error {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return errors.Wrapf(err, "opening %q library", lib.name)
		}
	}

	L.SetGlobal(joinFunc, L.NewFunction(join))
	L.SetGlobal(ParamTable, paramTable(L, params))

	var denied []string
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		if name, ok := k.(lua.LString); ok && !allowed[string(name)] {
			denied = append(denied, string(name))
		}
	})
	for _, name := range denied {
		L.SetGlobal(name, lua.LNil)
	}
	return nil
}

func paramTable(L *lua.LState, params Params) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		v, ok := params.Get(L.CheckString(2))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(v))
		return 1
	}))
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(2)
		v := L.Get(3)
		if v == lua.LNil {
			params.Set(name, "")
			return 0
		}
		params.Set(name, v.String())
		return 0
	}))
	t := L.NewTable()
	L.SetMetatable(t, mt)
	return t
}

// join concatenates the values of an accumulator table the way tostring
// would render them. Holes are skipped.
func join(L *lua.LState) int {
	acc := L.CheckTable(1)
	var b strings.Builder
	for i := 1; i <= acc.Len(); i++ {
		v := acc.RawGetInt(i)
		if v == lua.LNil {
			continue
		}
		b.WriteString(v.String())
	}
	L.Push(lua.LString(b.String()))
	return 1
}

func newFailure(err error) *Failure {
	msg := err.Error()
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		msg = apiErr.Object.String()
	}
	msg = strings.TrimSpace(msg)

	f := &Failure{Message: msg, Err: err}
	for _, re := range []*regexp.Regexp{reRuntimeLine, reSyntaxLine} {
		if m := re.FindStringSubmatchIndex(msg); m != nil {
			f.Line, _ = strconv.Atoi(msg[m[2]:m[3]])
			f.Message = strings.Join(strings.Fields(msg[m[1]:]), " ")
			return f
		}
	}
	if m := reCompileLine.FindStringSubmatch(msg); m != nil {
		f.Line, _ = strconv.Atoi(m[1])
	}
	return f
}

// Quote renders s as a Lua string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03d`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
