package runmanager

import (
	"context"
	"path/filepath"
	"testing"

	"astpatch.dev/astpatch/internal/applier"
	"astpatch.dev/astpatch/internal/bundleparser"
	"astpatch.dev/astpatch/internal/compilecheck"
	"astpatch.dev/astpatch/internal/hl"
)

func TestWriteAndVerifyWritesMutatedFileAndMarksCompileOK(t *testing.T) {
	fs, root := newRootedFS(t)
	path := filepath.Join(root, "pkg.py")
	fs.files[path] = []byte("def f():\n    x = 1\n    return x\n")

	r := New("20260101_000000", root, "", "pkg.py", fs, hl.NewPythonFront(), 25)
	ops := []bundleparser.Operation{
		{Kind: bundleparser.KindReplaceLine, Target: "f", Anchor: "x = 1", Code: "x = 2", Sig: "x = 2"},
	}
	if err := r.Execute(context.Background(), ops); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	r.WriteAndVerify(context.Background(), compilecheck.New(""), true)

	tf := r.TouchedFiles()[0]
	if !tf.CompileOK {
		t.Fatalf("CompileOK = false, err = %q", tf.CompileError)
	}
	want := "def f():\n    x = 2\n    return x\n"
	if string(fs.files[path]) != want {
		t.Fatalf("disk content = %q, want %q", fs.files[path], want)
	}
	if r.Results[0].Status != applier.StatusApplied || !r.Results[0].CompileOK {
		t.Fatalf("result = %+v", r.Results[0])
	}
}

func TestWriteAndVerifyDemotesResultOnCompileFailure(t *testing.T) {
	fs, root := newRootedFS(t)
	path := filepath.Join(root, "pkg.py")
	original := "def f():\n    x = 1\n    return x\n"
	fs.files[path] = []byte(original)

	r := New("20260101_000000", root, "", "pkg.py", fs, hl.NewPythonFront(), 25)
	ops := []bundleparser.Operation{
		{Kind: bundleparser.KindReplaceLine, Target: "f", Anchor: "x = 1", Code: "x = (", Sig: "x = ("},
	}
	if err := r.Execute(context.Background(), ops); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// No CompileCheckCommand configured: falls back to the front-end's
	// own error-node check, which the unbalanced paren should trip.
	r.WriteAndVerify(context.Background(), compilecheck.New(""), true)

	tf := r.TouchedFiles()[0]
	if tf.CompileOK {
		t.Fatalf("expected CompileOK = false for unparseable content")
	}
	if r.Results[0].Status != applier.StatusFailedCompile {
		t.Fatalf("status = %v, want FAILED_COMPILE", r.Results[0].Status)
	}
	// rollbackOnFail restores the original content on disk.
	if string(fs.files[path]) != original {
		t.Fatalf("disk content after rollback = %q, want original", fs.files[path])
	}
}

func TestWriteAndVerifySkipsUnmutatedFiles(t *testing.T) {
	fs, root := newRootedFS(t)
	path := filepath.Join(root, "pkg.py")
	src := "x = 1\n"
	fs.files[path] = []byte(src)

	r := New("20260101_000000", root, "", "pkg.py", fs, hl.NewPythonFront(), 25)
	ops := []bundleparser.Operation{{Kind: bundleparser.KindListTargets, Target: "pkg.py"}}
	if err := r.Execute(context.Background(), ops); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	r.WriteAndVerify(context.Background(), compilecheck.New(""), true)

	tf := r.TouchedFiles()[0]
	if !tf.CompileOK {
		t.Fatalf("unmutated file should be trivially CompileOK")
	}
	if string(fs.files[path]) != src {
		t.Fatalf("unmutated file must not be rewritten")
	}
}
