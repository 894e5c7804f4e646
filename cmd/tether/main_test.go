package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/feather-lang/tether/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{LogMode: "dev", LogLevel: "error", HistorySize: 3}
}

func TestRunPiped(t *testing.T) {
	s, err := newSession(testConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}
	defer s.Close()

	in := strings.NewReader("1 + 2\nfor i = 1, 2 do\n  x = i\nend\nx\nrocket.make_rocket_v1().name\n")
	var out bytes.Buffer
	if err := runPiped(s.host, in, &out); err != nil {
		t.Fatalf("runPiped failed: %v", err)
	}
	want := "3\n2\nRocket v1\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestDeclCommand(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "fleet.h")
	src := "struct Rocket {\n    const int engines;\n};\nRocket* flagship();\n"
	if err := os.WriteFile(header, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) string {
		t.Helper()
		cmd := newRootCmd(testConfig())
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("tether %v failed: %v\n%s", args, err, out.String())
		}
		return out.String()
	}

	plan := run("decl", header)
	if !strings.Contains(plan, "module: fleet") || !strings.Contains(plan, "return: alias") {
		t.Errorf("unexpected plan:\n%s", plan)
	}

	planPath := filepath.Join(dir, "fleet.yaml")
	if err := os.WriteFile(planPath, []byte(plan), 0o644); err != nil {
		t.Fatal(err)
	}
	code := run("decl", "--go", "--package", "bindings", planPath)
	for _, want := range []string{"package bindings", `tether:"engines,readonly"`, `Def("flagship", Flagship, tether.ReturnAlias())`} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q:\n%s", want, code)
		}
	}
}

func TestLineEditorHistory(t *testing.T) {
	e := NewLineEditor(nil, 3)
	for _, entry := range []string{"a", "b", "b", "c", "d"} {
		e.AddHistory(entry)
	}
	if got := strings.Join(e.history, ","); got != "b,c,d" {
		t.Errorf("expected history b,c,d, got %s", got)
	}

	e.histPos = len(e.history)
	e.line = []rune("draft")
	e.recall(-1)
	e.recall(-1)
	if string(e.line) != "c" {
		t.Errorf("expected 'c', got %q", string(e.line))
	}
	e.recall(1)
	e.recall(1)
	if string(e.line) != "draft" || e.cursor != 5 {
		t.Errorf("expected draft restored, got %q at %d", string(e.line), e.cursor)
	}
}
