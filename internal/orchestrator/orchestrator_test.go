package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"astpatch.dev/astpatch/internal/compilecheck"
	"astpatch.dev/astpatch/internal/config"
	"astpatch.dev/astpatch/internal/hl"
)

// fakeHost is a minimal Host double: no current file by default, Alert
// always returns button 1, and Pick always cancels.
type fakeHost struct {
	filePath string
	hasFile  bool
	bufText  string
	hasBuf   bool
	toasts   []string
}

func (h *fakeHost) CurrentFilePath() (string, bool)     { return h.filePath, h.hasFile }
func (h *fakeHost) CurrentBufferText() (string, bool)   { return h.bufText, h.hasBuf }
func (h *fakeHost) ReplaceCurrentBuffer(string) error    { return nil }
func (h *fakeHost) Alert(string, string, []string) (int, error) { return 1, nil }
func (h *fakeHost) Toast(msg string)                     { h.toasts = append(h.toasts, msg) }
func (h *fakeHost) Pick(string, []string) (int, bool, error) { return 0, false, nil }

type fakeClipboard struct {
	written string
}

func (c *fakeClipboard) ReadText() (string, error) { return "", nil }
func (c *fakeClipboard) WriteText(text string) error {
	c.written = text
	return nil
}

// memFS mirrors internal/runmanager's test double; orchestrator has no
// access to runmanager's unexported memFS, so it keeps its own copy
// backed by a real temp directory for path resolution.
type memFS struct{ root string }

func newMemFS(t *testing.T) (*memFS, string) {
	t.Helper()
	root := t.TempDir()
	return &memFS{root: root}, root
}

func (f *memFS) ReadFile(path string) ([]byte, error)                   { return os.ReadFile(path) }
func (f *memFS) WriteFile(path string, data []byte, perm os.FileMode) error { return os.WriteFile(path, data, perm) }
func (f *memFS) Stat(path string) (os.FileInfo, error)                  { return os.Stat(path) }
func (f *memFS) MkdirAll(path string, perm os.FileMode) error           { return os.MkdirAll(path, perm) }
func (f *memFS) RemoveAll(path string) error                            { return os.RemoveAll(path) }
func (f *memFS) ReadDir(path string) ([]os.DirEntry, error)             { return os.ReadDir(path) }

func newTestOrchestrator(t *testing.T, host *fakeHost, clip *fakeClipboard) (*Orchestrator, *memFS, string) {
	t.Helper()
	fs, root := newMemFS(t)
	cfg := config.Default()
	o := New(host, clip, fs, hl.NewPythonFront(), compilecheck.New(""), cfg, filepath.Join(root, "astpatch"))
	return o, fs, root
}

func TestApplyRunsFullPipelineAndWritesPacket(t *testing.T) {
	host := &fakeHost{}
	clip := &fakeClipboard{}
	o, fs, root := newTestOrchestrator(t, host, clip)

	src := "def f():\n    x = 1\n    return x\n"
	if err := fs.WriteFile(filepath.Join(root, "pkg.py"), []byte(src), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	bundle := "DEFAULT_FILE pkg.py\nREPLACE_LINE f\nANCHOR: x = 1\nx = 2\n"
	summary, err := o.Apply(context.Background(), bundle)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Status.String() != "APPLIED" {
		t.Fatalf("results = %+v", summary.Results)
	}
	got, err := fs.ReadFile(filepath.Join(root, "pkg.py"))
	if err != nil || string(got) != "def f():\n    x = 2\n    return x\n" {
		t.Fatalf("on-disk content = %q, %v", got, err)
	}
	if clip.written == "" {
		t.Fatalf("expected a run packet written to the clipboard")
	}
	if len(host.toasts) != 1 {
		t.Fatalf("toasts = %v, want exactly one", host.toasts)
	}

	runDir := filepath.Join(root, "patch_runs", summary.Stamp)
	if _, err := fs.Stat(filepath.Join(runDir, "manifest.json")); err != nil {
		t.Fatalf("manifest.json not persisted: %v", err)
	}
}

func TestDryRunNeverWritesToDisk(t *testing.T) {
	host := &fakeHost{}
	clip := &fakeClipboard{}
	o, fs, root := newTestOrchestrator(t, host, clip)

	src := "def f():\n    x = 1\n    return x\n"
	if err := fs.WriteFile(filepath.Join(root, "pkg.py"), []byte(src), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	bundle := "DEFAULT_FILE pkg.py\nREPLACE_LINE f\nANCHOR: x = 1\nx = 2\n"
	summary, err := o.DryRun(context.Background(), bundle)
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if !summary.DryRun || summary.RunDir != "" {
		t.Fatalf("summary = %+v", summary)
	}
	got, err := fs.ReadFile(filepath.Join(root, "pkg.py"))
	if err != nil || string(got) != src {
		t.Fatalf("dry run must not touch disk; got %q, %v", got, err)
	}
	if clip.written != "" {
		t.Fatalf("dry run must not write to the clipboard")
	}
	if _, err := fs.Stat(filepath.Join(root, "patch_runs")); err == nil {
		t.Fatalf("dry run must not create a run directory")
	}
}

func TestPreflightRefusesWhenEditorBufferDivergesFromDisk(t *testing.T) {
	host := &fakeHost{}
	clip := &fakeClipboard{}
	o, fs, root := newTestOrchestrator(t, host, clip)

	path := filepath.Join(root, "pkg.py")
	src := "def f():\n    x = 1\n    return x\n"
	if err := fs.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	host.filePath, host.hasFile = path, true
	host.bufText, host.hasBuf = "def f():\n    x = 999\n    return x\n", true

	bundle := "DEFAULT_FILE pkg.py\nREPLACE_LINE f\nANCHOR: x = 1\nx = 2\n"
	if _, err := o.Apply(context.Background(), bundle); err == nil {
		t.Fatalf("expected Apply to refuse when the editor buffer diverges from disk")
	}
	got, _ := fs.ReadFile(path)
	if string(got) != src {
		t.Fatalf("file must be untouched after a refused run, got %q", got)
	}
}

func TestRevertRestoresAfterApply(t *testing.T) {
	host := &fakeHost{}
	clip := &fakeClipboard{}
	o, fs, root := newTestOrchestrator(t, host, clip)

	path := filepath.Join(root, "pkg.py")
	original := "def f():\n    x = 1\n    return x\n"
	if err := fs.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	bundle := "DEFAULT_FILE pkg.py\nREPLACE_LINE f\nANCHOR: x = 1\nx = 2\n"
	summary, err := o.Apply(context.Background(), bundle)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	report, err := o.Revert(context.Background(), summary.Stamp)
	if err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if report.Restored != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	got, err := fs.ReadFile(path)
	if err != nil || string(got) != original {
		t.Fatalf("post-revert content = %q, %v, want original", got, err)
	}
}
