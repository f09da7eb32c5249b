package compilecheck

import (
	"context"
	"testing"

	"astpatch.dev/astpatch/internal/hl"
)

func TestCheckFallsBackToFrontEndWhenCommandEmpty(t *testing.T) {
	c := New("")
	ok, msg := c.Check(context.Background(), "/tmp/does-not-matter.py", hl.NewPythonFront(), []byte("def fn():\n    return 1\n"))
	if !ok {
		t.Fatalf("expected ok, got message %q", msg)
	}
}

func TestCheckFallsBackAndReportsSyntaxError(t *testing.T) {
	c := New("")
	ok, msg := c.Check(context.Background(), "/tmp/does-not-matter.py", hl.NewPythonFront(), []byte("def fn(:\n    return 1\n"))
	if ok {
		t.Fatal("expected a failure for malformed source")
	}
	if msg == "" {
		t.Fatal("expected a non-empty message")
	}
}

func TestCommandAvailableRejectsMissingInterpreter(t *testing.T) {
	if commandAvailable("definitely-not-a-real-interpreter-binary {path}") {
		t.Fatal("expected a nonexistent binary to report unavailable")
	}
}

func TestCheckFallsBackWhenInterpreterMissing(t *testing.T) {
	c := New("definitely-not-a-real-interpreter-binary {path}")
	ok, _ := c.Check(context.Background(), "/tmp/does-not-matter.py", hl.NewPythonFront(), []byte("def fn():\n    return 1\n"))
	if !ok {
		t.Fatal("expected fallback to the front-end parse check to succeed on valid source")
	}
}
