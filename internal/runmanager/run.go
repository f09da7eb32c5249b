package runmanager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"astpatch.dev/astpatch/internal/applier"
	"astpatch.dev/astpatch/internal/bundleparser"
	"astpatch.dev/astpatch/internal/hl"
	"astpatch.dev/astpatch/internal/locator"
)

func applierSha(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Run holds everything scoped to one invocation: the in-memory file
// cache (spec.md §3's "sole source of truth across operations in the
// same run"), the touched-file set, and the accumulating results list.
// Dropped at run end — no process-wide globals, per spec.md §9.
type Run struct {
	Stamp        string
	Root         string
	BundleText   string
	DefaultFile  string // orchestrator-supplied fallback default file
	ContextLines int    // config.Config.DefaultContextLines, threaded into applier.Apply

	fs    FS
	front hl.Front

	cache   map[string][]byte    // canonical path -> current buffer
	touched map[string]*TouchedFile
	order   []string // canonical paths, first-touch order
	Results []applier.Result
}

// New creates a Run scoped to one bundle application. contextLines is
// config.Config.DefaultContextLines, the number of source lines an
// anchor-mismatch message may quote.
func New(stamp, root, bundleText, defaultFile string, fs FS, front hl.Front, contextLines int) *Run {
	return &Run{
		Stamp:        stamp,
		Root:         root,
		BundleText:   bundleText,
		DefaultFile:  defaultFile,
		ContextLines: contextLines,
		fs:           fs,
		front:        front,
		cache:        map[string][]byte{},
		touched:      map[string]*TouchedFile{},
	}
}

// Execute runs every operation against the in-memory cache, in bundle
// order. It never writes to disk — WriteAndVerify does that — so a
// fatal hl.ErrNoEndLine here aborts before anything is persisted,
// matching spec.md §4.1's "the orchestrator refuses to run".
func (r *Run) Execute(ctx context.Context, ops []bundleparser.Operation) error {
	slog.InfoContext(ctx, "runmanager: executing bundle", "stamp", r.Stamp, "operations", len(ops))
	for _, op := range ops {
		res, err := r.executeOne(op)
		if err != nil {
			slog.ErrorContext(ctx, "runmanager: run aborted", "stamp", r.Stamp, "error", err)
			return err
		}
		r.Results = append(r.Results, res)
	}
	slog.InfoContext(ctx, "runmanager: bundle executed", "stamp", r.Stamp, "results", len(r.Results))
	return nil
}

func (r *Run) executeOne(op bundleparser.Operation) (applier.Result, error) {
	res := applier.Result{Kind: op.Kind, Target: op.Target}

	fileRef, target, listFile, perr := resolveTargetFile(op, r.DefaultFile)
	if perr != nil {
		res.Status = applier.StatusFailedParse
		res.Message = perr.Error()
		return res, nil
	}

	path, perr := ResolvePath(r.Root, fileRef)
	if perr != nil {
		res.Status = applier.StatusFailedInvalidPath
		res.Message = perr.Error()
		return res, nil
	}
	res.File = RelPath(r.Root, path)

	src, err := r.load(path)
	if err != nil {
		res.Status = applier.StatusFailedIO
		res.Message = err.Error()
		return res, nil
	}

	if op.Kind == bundleparser.KindListTargets {
		return r.executeListTargets(path, src, res, listFile), nil
	}

	tree, err := r.front.Parse(src)
	if err != nil {
		res.Status = applier.StatusFailedParse
		res.Message = err.Error()
		return res, nil
	}

	newSrc, res, aerr := applier.Apply(tree, src, target, op, r.ContextLines)
	if aerr != nil {
		// The only error Apply ever returns is hl.ErrNoEndLine (spec.md
		// §4.1's hard requirement); it aborts the whole run rather than
		// becoming a per-operation status.
		return res, fmt.Errorf("%s: %w", res.File, aerr)
	}
	res.File = RelPath(r.Root, path)

	if res.Status == applier.StatusApplied {
		r.cache[path] = newSrc
		r.touched[path].After = newSrc
		r.touched[path].Mutated = true
	}
	return res, nil
}

func (r *Run) executeListTargets(path string, src []byte, res applier.Result, _ bool) applier.Result {
	tree, err := r.front.Parse(src)
	if err != nil {
		res.Status = applier.StatusFailedParse
		res.Message = err.Error()
		return res
	}
	targets := applier.ListTargets(tree)
	res.Status = applier.StatusApplied
	res.Message = strings.Join(targets, "\n")
	res.HashBefore = applierSha(src)
	res.HashAfter = res.HashBefore
	return res
}

// load fetches path's buffer from the in-memory cache, reading through
// to disk on first reference and recording a TouchedFile entry.
func (r *Run) load(path string) ([]byte, error) {
	if buf, ok := r.cache[path]; ok {
		return buf, nil
	}
	data, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r.cache[path] = data
	r.touched[path] = &TouchedFile{Path: path, Rel: RelPath(r.Root, path), Before: data, After: data}
	r.order = append(r.order, path)
	return data, nil
}

// TouchedFiles returns every touched file, in first-reference order.
func (r *Run) TouchedFiles() []*TouchedFile {
	out := make([]*TouchedFile, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.touched[p])
	}
	return out
}

// resolveTargetFile extracts the file reference an operation targets,
// per spec.md §3's Target grammar and inherited default_file rules.
// listFile is true when op is LIST_TARGETS, whose target is a bare
// file path rather than a symbol.
func resolveTargetFile(op bundleparser.Operation, orchestratorDefault string) (fileRef string, target locator.Target, listFile bool, err error) {
	if op.Kind == bundleparser.KindListTargets {
		ref := strings.TrimSpace(op.Target)
		if ref == "" {
			ref = firstNonEmpty(op.DefaultFile, orchestratorDefault)
		}
		if ref == "" {
			return "", locator.Target{}, true, fmt.Errorf("LIST_TARGETS has no file: no target, DEFAULT_FILE, or default file")
		}
		return ref, locator.Target{}, true, nil
	}

	t, terr := locator.ParseTarget(op.Target)
	if terr != nil {
		return "", locator.Target{}, false, terr
	}
	ref := firstNonEmpty(t.FileRef, op.DefaultFile, orchestratorDefault)
	if ref == "" {
		return "", locator.Target{}, false, fmt.Errorf("target %q has no file: no file_ref, DEFAULT_FILE, or default file", op.Target)
	}
	return ref, t, false, nil
}

// OpFileRef resolves the file reference an operation targets, without
// touching disk or the locator — the orchestrator's preflight check
// uses this to ask "does any op touch the currently open editor file?"
// before a run starts.
func OpFileRef(op bundleparser.Operation, orchestratorDefault string) (string, error) {
	ref, _, _, err := resolveTargetFile(op, orchestratorDefault)
	return ref, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// sortedPaths returns a Run's touched paths in a stable, deterministic
// order distinct from first-touch order, for callers that want
// lexicographic output (e.g. a directory listing).
func sortedPaths(m map[string]*TouchedFile) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
