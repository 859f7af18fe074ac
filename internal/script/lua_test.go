package script

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func program(d Dialect, params map[string]string, body ...string) string {
	acc := "result_1"
	lines := []string{d.Declare(acc)}
	for name, value := range params {
		lines = append(lines, d.Bind(name, value))
	}
	for _, l := range body {
		lines = append(lines, strings.ReplaceAll(l, ":<", d.Append(acc)))
	}
	lines = append(lines, d.Result(acc))
	return strings.Join(lines, "\n")
}

func TestLuaEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		body   []string
		want   string
	}{
		{"empty body", nil, nil, ""},
		{"literal", nil, []string{`:< "hello"`}, "hello"},
		{"several appends", nil, []string{`:< "a"`, `:< 1`, `:< "b"`}, "a1b"},
		{"boolean", nil, []string{`:< true`}, "true"},
		{"parameter", map[string]string{"x": "foo"}, []string{`:< x .. "!"`}, "foo!"},
		{"quoted parameter", map[string]string{"x": "a \"b\"\\c\nd"}, []string{`:< x`}, "a \"b\"\\c\nd"},
		{"loop", nil, []string{`for i = 1, 3 do`, `  :< i`, `end`}, "123"},
		{"string library", nil, []string{`:< string.upper("abc")`}, "ABC"},
		{"nil is skipped", nil, []string{`:< nil`, `:< "x"`}, "x"},
	}
	l := NewLua()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Evaluate(context.Background(), program(l, tt.params, tt.body...), MapParams{})
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLuaParams(t *testing.T) {
	l := NewLua()
	params := MapParams{"he": "HE"}
	code := program(l, nil,
		`:< param.he`,
		`param.she = "SHE"`,
		`param.he = nil`,
		`if param.missing == nil then :< "-" end`,
	)
	got, err := l.Evaluate(context.Background(), code, params)
	if err != nil {
		t.Fatal(err)
	}
	if got != "HE-" {
		t.Errorf("got %q, want %q", got, "HE-")
	}
	want := MapParams{"he": "", "she": "SHE"}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestLuaSandbox(t *testing.T) {
	l := NewLua()
	for _, name := range []string{"io", "os", "dofile", "loadfile", "require", "print", "load", "loadstring", "module"} {
		t.Run(name, func(t *testing.T) {
			code := program(l, nil, `:< type(`+name+`)`)
			got, err := l.Evaluate(context.Background(), code, MapParams{})
			if err != nil {
				t.Fatal(err)
			}
			if got != "nil" {
				t.Errorf("%s is reachable: type is %q", name, got)
			}
		})
	}
}

func TestLuaFailureLine(t *testing.T) {
	tests := []struct {
		name string
		body []string
		line int
		msg  string
	}{
		{"runtime error", []string{`:< "a"`, `error("boom")`}, 3, "boom"},
		{"arithmetic on nil", []string{`local x = nil`, `:< x + 1`}, 3, "attempt to perform arithmetic"},
		{"syntax error", []string{`:< "a"`, `if then`}, 3, ""},
	}
	l := NewLua()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Evaluate(context.Background(), program(l, nil, tt.body...), MapParams{})
			var f *Failure
			if !errors.As(err, &f) {
				t.Fatalf("got %v, want a *Failure", err)
			}
			if f.Line != tt.line {
				t.Errorf("line = %d, want %d (%s)", f.Line, tt.line, f.Message)
			}
			if !strings.Contains(f.Message, tt.msg) {
				t.Errorf("message %q does not contain %q", f.Message, tt.msg)
			}
			if strings.HasPrefix(f.Message, chunkName) {
				t.Errorf("message %q still carries the chunk position", f.Message)
			}
		})
	}
}

func TestLuaTimeout(t *testing.T) {
	l := NewLua(Timeout(50 * time.Millisecond))
	code := program(l, nil, `while true do end`)
	done := make(chan error, 1)
	go func() {
		_, err := l.Evaluate(context.Background(), code, MapParams{})
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("infinite loop returned without error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout was not enforced")
	}
}

func TestLuaReserved(t *testing.T) {
	l := NewLua()
	for name, want := range map[string]bool{
		"end":    true,
		"local":  true,
		"goto":   true,
		"__join": true,
		"param":  false,
		"ending": false,
		"x":      false,
	} {
		if got := l.Reserved(name); got != want {
			t.Errorf("Reserved(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", `""`},
		{"abc", `"abc"`},
		{`a"b`, `"a\"b"`},
		{`a\b`, `"a\\b"`},
		{"a\nb\tc\r", `"a\nb\tc\r"`},
		{"\x00\x1b", `"\000\027"`},
		{"é", `"é"`},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
