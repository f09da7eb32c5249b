package runmanager

import (
	"bytes"
	"context"
	"os"

	"astpatch.dev/astpatch/internal/applier"
	"astpatch.dev/astpatch/internal/compilecheck"
)

// WriteAndVerify implements spec.md §4.4's write-then-verify-per-file
// step: write the new content, re-read it back, compare hashes, then
// compile-check the re-read content. Any failure marks compile_ok
// false and, if rollbackOnFail, restores the pre-run content on disk.
// Unmutated touched files (read but never edited, e.g. LIST_TARGETS or
// an all-skipped file) are never written.
func (r *Run) WriteAndVerify(ctx context.Context, checker compilecheck.Checker, rollbackOnFail bool) {
	for _, tf := range r.TouchedFiles() {
		if !tf.Mutated {
			tf.CompileOK = true
			continue
		}
		r.writeVerifyOne(ctx, tf, checker, rollbackOnFail)
	}
	r.propagateCompileFailures()
}

func (r *Run) writeVerifyOne(ctx context.Context, tf *TouchedFile, checker compilecheck.Checker, rollbackOnFail bool) {
	perm := filePerm(r.fs, tf.Path)

	if err := r.fs.WriteFile(tf.Path, tf.After, perm); err != nil {
		tf.CompileOK = false
		tf.CompileError = err.Error()
		return
	}

	reread, err := r.fs.ReadFile(tf.Path)
	if err != nil || !bytes.Equal(reread, tf.After) {
		tf.CompileOK = false
		tf.CompileError = "writeback mismatch: on-disk content does not match what was written"
		if rollbackOnFail {
			_ = r.fs.WriteFile(tf.Path, tf.Before, perm)
		}
		return
	}

	ok, msg := checker.Check(ctx, tf.Path, r.front, reread)
	tf.CompileOK = ok
	tf.CompileError = msg
	if !ok && rollbackOnFail {
		_ = r.fs.WriteFile(tf.Path, tf.Before, perm)
	}
}

func filePerm(fs FS, path string) os.FileMode {
	if info, err := fs.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}

// propagateCompileFailures demotes APPLIED results on a non-compiling
// file to FAILED_COMPILE, per spec.md §4.4's result propagation rule.
func (r *Run) propagateCompileFailures() {
	byRel := map[string]*TouchedFile{}
	for _, tf := range r.TouchedFiles() {
		byRel[tf.Rel] = tf
	}
	for i := range r.Results {
		res := &r.Results[i]
		tf, ok := byRel[res.File]
		if !ok {
			continue
		}
		res.CompileOK = tf.CompileOK
		if !tf.CompileOK && res.Status == applier.StatusApplied {
			res.Status = applier.StatusFailedCompile
			if res.Message == "" {
				res.Message = tf.CompileError
			}
		}
	}
}
