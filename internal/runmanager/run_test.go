package runmanager

import (
	"context"
	"path/filepath"
	"testing"

	"astpatch.dev/astpatch/internal/applier"
	"astpatch.dev/astpatch/internal/bundleparser"
	"astpatch.dev/astpatch/internal/hl"
)

// newRootedFS returns a memFS plus a real empty directory to root it
// at, so ResolvePath's symlink canonicalization of the root succeeds.
func newRootedFS(t *testing.T) (*memFS, string) {
	t.Helper()
	root := t.TempDir()
	fs := newMemFS()
	fs.dirs[filepath.Clean(root)] = true
	return fs, root
}

func TestExecuteReplaceAppliesAgainstCache(t *testing.T) {
	fs, root := newRootedFS(t)
	src := "class C:\n    def a(self):\n        return 1\n"
	fs.files[filepath.Join(root, "pkg.py")] = []byte(src)

	r := New("20260101_000000", root, "", "pkg.py", fs, hl.NewPythonFront(), 25)
	ops := []bundleparser.Operation{
		{Kind: bundleparser.KindReplace, Target: "C.a", Code: "    def a(self):\n        return 2\n", Sig: "    def a(self):"},
	}
	if err := r.Execute(context.Background(), ops); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(r.Results) != 1 || r.Results[0].Status != applier.StatusApplied {
		t.Fatalf("results = %+v", r.Results)
	}
	tf := r.TouchedFiles()
	if len(tf) != 1 || !tf[0].Mutated {
		t.Fatalf("touched = %+v", tf)
	}
	want := "class C:\n    def a(self):\n        return 2\n"
	if string(tf[0].After) != want {
		t.Fatalf("after = %q, want %q", tf[0].After, want)
	}
	// Disk is untouched until WriteAndVerify runs.
	if string(fs.files[filepath.Join(root, "pkg.py")]) != src {
		t.Fatalf("Execute must not write to disk")
	}
}

func TestExecuteListTargetsDoesNotMutate(t *testing.T) {
	fs, root := newRootedFS(t)
	src := "class C:\n    def a(self):\n        return 1\n"
	fs.files[filepath.Join(root, "pkg.py")] = []byte(src)

	r := New("20260101_000000", root, "", "pkg.py", fs, hl.NewPythonFront(), 25)
	ops := []bundleparser.Operation{{Kind: bundleparser.KindListTargets, Target: "pkg.py"}}
	if err := r.Execute(context.Background(), ops); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Results[0].Status != applier.StatusApplied {
		t.Fatalf("status = %v", r.Results[0].Status)
	}
	if r.Results[0].Message == "" {
		t.Fatalf("expected a non-empty target listing")
	}
	if r.TouchedFiles()[0].Mutated {
		t.Fatalf("LIST_TARGETS must not mark the file mutated")
	}
}

func TestExecuteRejectsPathEscapingRoot(t *testing.T) {
	fs, root := newRootedFS(t)
	r := New("20260101_000000", root, "", "", fs, hl.NewPythonFront(), 25)
	ops := []bundleparser.Operation{
		{Kind: bundleparser.KindReplace, Target: "../outside.py::C.a", Code: "x = 1\n", Sig: "x = 1"},
	}
	if err := r.Execute(context.Background(), ops); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Results[0].Status != applier.StatusFailedInvalidPath {
		t.Fatalf("status = %v, want FAILED_INVALID_PATH", r.Results[0].Status)
	}
}

func TestExecuteMissingFileIsFailedIO(t *testing.T) {
	fs, root := newRootedFS(t)
	r := New("20260101_000000", root, "", "missing.py", fs, hl.NewPythonFront(), 25)
	ops := []bundleparser.Operation{
		{Kind: bundleparser.KindReplace, Target: "C.a", Code: "x = 1\n", Sig: "x = 1"},
	}
	if err := r.Execute(context.Background(), ops); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r.Results[0].Status != applier.StatusFailedIO {
		t.Fatalf("status = %v, want FAILED_IO", r.Results[0].Status)
	}
}
