package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"astpatch.dev/astpatch/internal/bundleparser"
	"astpatch.dev/astpatch/internal/compilecheck"
	"astpatch.dev/astpatch/internal/config"
	"astpatch.dev/astpatch/internal/hl"
	"astpatch.dev/astpatch/internal/runmanager"
	"astpatch.dev/astpatch/skribe"
)

// Orchestrator wires the host and clipboard contracts to the engine.
// It holds no run-scoped state of its own; every call to Apply,
// DryRun, or Revert builds and discards its own runmanager.Run.
type Orchestrator struct {
	Host      Host
	Clipboard Clipboard
	FS        runmanager.FS
	Front     hl.Front
	Checker   compilecheck.Checker
	Config    config.Config

	// BinaryPath is the fallback root and default file when no editor
	// file is open, per spec.md §4.5.
	BinaryPath string
}

// New builds an Orchestrator from its collaborators.
func New(host Host, clipboard Clipboard, fs runmanager.FS, front hl.Front, checker compilecheck.Checker, cfg config.Config, binaryPath string) *Orchestrator {
	return &Orchestrator{
		Host:       host,
		Clipboard:  clipboard,
		FS:         fs,
		Front:      front,
		Checker:    checker,
		Config:     cfg,
		BinaryPath: binaryPath,
	}
}

// Root resolves spec.md §4.5's root: the canonical directory of the
// currently open editor file, else the directory of the patcher
// binary.
func (o *Orchestrator) Root() (string, error) {
	if path, ok := o.Host.CurrentFilePath(); ok && path != "" {
		return canonicalDir(path)
	}
	return canonicalDir(o.BinaryPath)
}

// DefaultFile resolves spec.md §4.5's default file for bare targets:
// the currently open editor file, else the patcher binary itself.
func (o *Orchestrator) DefaultFile() string {
	if path, ok := o.Host.CurrentFilePath(); ok && path != "" {
		return path
	}
	return o.BinaryPath
}

func canonicalDir(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("orchestrator: resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil // directory may not exist yet; fall back to the lexical form
	}
	return resolved, nil
}

// preflight implements spec.md §4.5: if any op targets the currently
// open editor file and that file's editor buffer differs from what is
// on disk, refuse the entire run.
func (o *Orchestrator) preflight(ops []bundleparser.Operation, root, defaultFile string) error {
	curPath, ok := o.Host.CurrentFilePath()
	if !ok || curPath == "" {
		return nil
	}
	curCanon, err := runmanager.ResolvePath(root, curPath)
	if err != nil {
		return nil // current file isn't under root; no preflight conflict is possible
	}

	targetsCurrent := false
	for _, op := range ops {
		ref, err := runmanager.OpFileRef(op, defaultFile)
		if err != nil {
			continue // surfaces later as a per-op FAILED_PARSE
		}
		path, err := runmanager.ResolvePath(root, ref)
		if err != nil {
			continue
		}
		if path == curCanon {
			targetsCurrent = true
			break
		}
	}
	if !targetsCurrent {
		return nil
	}

	bufText, ok := o.Host.CurrentBufferText()
	if !ok {
		return nil
	}
	diskBytes, err := o.FS.ReadFile(curCanon)
	if err != nil {
		return nil // nothing on disk to diverge from yet
	}
	if bufText != string(diskBytes) {
		return fmt.Errorf("orchestrator: refusing to run: the open editor buffer for %q differs from its on-disk content", runmanager.RelPath(root, curCanon))
	}
	return nil
}

// Apply runs the full pipeline: parse, preflight, execute, write and
// verify, persist, prune, then report. On success it writes the run
// packet to the clipboard and toasts a summary.
func (o *Orchestrator) Apply(ctx context.Context, bundleText string) (*Summary, error) {
	ops, err := bundleparser.Parse(bundleText)
	if err != nil {
		o.alertErr("astpatch: bundle parse error", err)
		return nil, err
	}

	root, err := o.Root()
	if err != nil {
		o.alertErr("astpatch: could not resolve project root", err)
		return nil, err
	}
	defaultFile := o.DefaultFile()

	if err := o.preflight(ops, root, defaultFile); err != nil {
		o.alertErr("astpatch: preflight check failed", err)
		return nil, err
	}

	stamp := runmanager.Stamp(time.Now())
	ctx = skribe.ContextWithAttr(ctx, slog.String("run_stamp", stamp))
	slog.InfoContext(ctx, "orchestrator: apply starting", "root", root, "operations", len(ops))

	run := runmanager.New(stamp, root, bundleText, defaultFile, o.FS, o.Front, o.Config.DefaultContextLines)
	if err := run.Execute(ctx, ops); err != nil {
		o.alertErr("astpatch: fatal error, run aborted", err)
		return nil, err
	}

	run.WriteAndVerify(ctx, o.Checker, o.Config.RollbackOnCompileFail)

	runDir, err := run.Persist(ctx, o.Config)
	if err != nil {
		o.alertErr("astpatch: failed to persist run", err)
		return nil, err
	}
	if err := runmanager.Prune(ctx, o.FS, root, o.Config); err != nil {
		o.Host.Toast(fmt.Sprintf("astpatch: pruning old runs failed: %v", err))
	}

	summary := BuildSummary(run, root, runDir, false)
	if err := o.Clipboard.WriteText(summary.RunPacket()); err != nil {
		return summary, fmt.Errorf("orchestrator: clipboard unavailable, run packet not copied: %w", err)
	}
	o.Host.Toast(summary.Headline())
	slog.InfoContext(ctx, "orchestrator: apply complete", "stamp", stamp)
	return summary, nil
}

// DryRun executes the full pipeline against the in-memory cache only:
// no disk writes, no snapshot creation, no run persistence, no
// pruning, and no compile verification (every mutated file is
// reported tentatively compile_ok — the point of a dry run is to
// preview edits, not to prove they compile). Nothing is copied to the
// clipboard.
func (o *Orchestrator) DryRun(ctx context.Context, bundleText string) (*Summary, error) {
	ops, err := bundleparser.Parse(bundleText)
	if err != nil {
		o.alertErr("astpatch: bundle parse error", err)
		return nil, err
	}

	root, err := o.Root()
	if err != nil {
		o.alertErr("astpatch: could not resolve project root", err)
		return nil, err
	}
	defaultFile := o.DefaultFile()

	if err := o.preflight(ops, root, defaultFile); err != nil {
		o.alertErr("astpatch: preflight check failed", err)
		return nil, err
	}

	stamp := runmanager.Stamp(time.Now())
	ctx = skribe.ContextWithAttr(ctx, slog.String("run_stamp", stamp))
	slog.InfoContext(ctx, "orchestrator: dry run starting", "root", root, "operations", len(ops))

	run := runmanager.New(stamp, root, bundleText, defaultFile, o.FS, o.Front, o.Config.DefaultContextLines)
	if err := run.Execute(ctx, ops); err != nil {
		o.alertErr("astpatch: fatal error, dry run aborted", err)
		return nil, err
	}
	for _, tf := range run.TouchedFiles() {
		tf.CompileOK = true
	}

	summary := BuildSummary(run, root, "", true)
	o.Host.Toast(summary.Headline())
	slog.InfoContext(ctx, "orchestrator: dry run complete", "stamp", stamp)
	return summary, nil
}

// Revert restores every file touched by the named run to its pre-run
// snapshot content.
func (o *Orchestrator) Revert(ctx context.Context, stamp string) (*RevertReport, error) {
	ctx = skribe.ContextWithAttr(ctx, slog.String("run_stamp", stamp))
	root, err := o.Root()
	if err != nil {
		o.alertErr("astpatch: could not resolve project root", err)
		return nil, err
	}

	results, err := runmanager.Revert(ctx, o.FS, root, stamp, o.Config)
	if err != nil {
		o.alertErr("astpatch: revert failed", err)
		return nil, err
	}
	restored, failed, errs := runmanager.RevertSummary(results)
	report := &RevertReport{Stamp: stamp, Restored: restored, Failed: failed, FirstErrors: errs}
	o.Host.Toast(report.Headline())
	return report, nil
}

// ListRuns returns every persisted run stamp under root, newest first,
// for the host's run picker.
func (o *Orchestrator) ListRuns() ([]string, error) {
	root, err := o.Root()
	if err != nil {
		return nil, err
	}
	entries, err := o.FS.ReadDir(filepath.Join(root, o.Config.RunsDirName))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list runs: %w", err)
	}
	var stamps []string
	for _, e := range entries {
		if e.IsDir() {
			stamps = append(stamps, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(stamps)))
	return stamps, nil
}

func (o *Orchestrator) alertErr(title string, err error) {
	o.Host.Alert(title, err.Error(), []string{"OK"})
}
