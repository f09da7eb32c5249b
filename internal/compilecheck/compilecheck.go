// Package compilecheck runs the run manager's "does this file still
// compile as HL source" verification step (spec.md §4.4). It executes
// a configurable shell command template through mvdan.cc/sh/v3's
// parser and interpreter — the same module the teacher already pulls
// in for claudetool/bashkit's sandboxed script inspection — rather than
// shelling out via os/exec, so the command runs in-process without
// depending on a host /bin/sh. When no interpreter for HL is available
// on the host (the command itself is empty, or its first word is not
// on PATH), it falls back to the HL front-end's own parse-error flag.
package compilecheck

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"astpatch.dev/astpatch/internal/hl"
	"astpatch.dev/astpatch/skribe"
)

// Checker runs one compile-verification command, expanding "{path}" in
// Command to the file under test.
type Checker struct {
	// Command is a shell command template, e.g. "python3 -m py_compile {path}".
	// Empty disables external checking entirely.
	Command string
}

// New returns a Checker for the given command template.
func New(command string) Checker {
	return Checker{Command: command}
}

// Check reports whether path (already written to disk with src's
// content) compiles. front/src back the HasError fallback used when no
// external interpreter is available.
func (c Checker) Check(ctx context.Context, path string, front hl.Front, src []byte) (ok bool, message string) {
	if c.Command == "" || !commandAvailable(c.Command) {
		return c.checkViaFrontEnd(front, src)
	}

	script := strings.ReplaceAll(c.Command, "{path}", path)
	slog.InfoContext(ctx, "compilecheck: running",
		"path", path, "argv", strings.Join(skribe.Redact(strings.Fields(script)), " "))

	file, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		slog.ErrorContext(ctx, "compilecheck: malformed command", "path", path, "error", err)
		return false, fmt.Sprintf("compilecheck: malformed command %q: %v", script, err)
	}

	var out bytes.Buffer
	runner, err := interp.New(interp.StdIO(nil, &out, &out))
	if err != nil {
		slog.ErrorContext(ctx, "compilecheck: interpreter setup failed", "path", path, "error", err)
		return false, fmt.Sprintf("compilecheck: %v", err)
	}
	if err := runner.Run(ctx, file); err != nil {
		if status, isExit := interp.IsExitStatus(err); isExit {
			if status == 0 {
				slog.InfoContext(ctx, "compilecheck: ok", "path", path)
				return true, ""
			}
			slog.InfoContext(ctx, "compilecheck: failed", "path", path, "exit_status", status)
			return false, strings.TrimSpace(out.String())
		}
		slog.ErrorContext(ctx, "compilecheck: runner error", "path", path, "error", err)
		return false, fmt.Sprintf("compilecheck: %v: %s", err, strings.TrimSpace(out.String()))
	}
	slog.InfoContext(ctx, "compilecheck: ok", "path", path)
	return true, ""
}

// checkViaFrontEnd falls back to the HL front-end's own parse-error
// signal when no external compiler is reachable, per spec.md §6's note
// that the Tree.HasError flag backs compile verification in that case.
func (c Checker) checkViaFrontEnd(front hl.Front, src []byte) (bool, string) {
	tree, err := front.Parse(src)
	if err != nil {
		return false, err.Error()
	}
	if tree.HasError {
		return false, "HL front-end reported a syntax error and no external compiler is configured"
	}
	return true, ""
}

// commandAvailable reports whether the template's first word resolves
// to something runnable, so a missing interpreter degrades to the
// front-end fallback instead of a hard compile failure.
func commandAvailable(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	_, err := exec.LookPath(fields[0])
	return err == nil
}

