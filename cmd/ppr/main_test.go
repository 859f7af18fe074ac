package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStdin(t *testing.T) {
	input := strings.Join([]string{
		`.def greet(who) :< param.greeting .. " " .. who`,
		"greet(world)",
		"",
	}, "\n")
	got, err := execute(t, input, "-D", "greeting=hello", "-")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("hello world\n", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFileInOut(t *testing.T) {
	dir := t.TempDir()
	inc := filepath.Join(dir, "inc")
	if err := os.Mkdir(inc, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inc, "part.txt"), []byte("included\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(in, []byte("first\n.load :< \"part.txt\"\nlast\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "doc.out")

	stdout, err := execute(t, "", "-I", inc, "-o", out, in)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("first\nincluded\nlast\n", string(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "ppr.yaml")
	cfg := strings.Join([]string{
		"keywords:",
		"  define: MACRO",
		"  end: ENDM",
		"expand: '~>'",
		"params:",
		"  who: config",
		"",
	}, "\n")
	if err := os.WriteFile(cfgFile, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	input := "MACRO hi ~> \"hi \" .. param.who\nhi\n"
	got, err := execute(t, input, "--config", cfgFile)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("hi config\n", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "never.out")
	_, err := execute(t, "\n.def HE(name)\n :< name\n.end\nHE(A,B)\n", "-o", out)
	if err == nil || err.Error() != "Ppr error (HE:5):2: invalid number of argument: got 2, but expecting 1." {
		t.Errorf("got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output written on failure: %v", statErr)
	}

	if _, err := execute(t, "", filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected an error for a missing input")
	}
	if _, err := execute(t, "", "--log-format", "xml"); err == nil {
		t.Error("expected an error for an invalid log format")
	}
	if _, err := execute(t, "", "--max-depth", "-1"); err == nil {
		t.Error("expected an error for a negative depth")
	}
}
