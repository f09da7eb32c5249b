package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"astpatch.dev/astpatch/internal/compilecheck"
	"astpatch.dev/astpatch/internal/config"
	"astpatch.dev/astpatch/internal/hl"
	"astpatch.dev/astpatch/internal/host"
	"astpatch.dev/astpatch/internal/mcpserver"
	"astpatch.dev/astpatch/internal/orchestrator"
	"astpatch.dev/astpatch/internal/runmanager"
	"astpatch.dev/astpatch/skribe"
	"astpatch.dev/astpatch/update"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", os.Args[0], err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: %s <apply|dry-run|revert|list-runs|serve-mcp|update> [flags]", os.Args[0])
	}
	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "apply":
		return runApply(args)
	case "dry-run":
		return runDryRun(args)
	case "revert":
		return runRevert(args)
	case "list-runs":
		return runListRuns(args)
	case "serve-mcp":
		return runServeMCP(args)
	case "update":
		return runUpdate(args)
	default:
		return fmt.Errorf("unknown subcommand %q", sub)
	}
}

// configFlags exposes every config.Config field as a flag, so a CLI
// invocation can override the same knobs an MCP tool call can.
type configFlags struct {
	compileCmd     *string
	keepRuns       *int
	runsDirName    *string
	contextLines   *int
	rollbackOnFail *bool
}

func addConfigFlags(fs *flag.FlagSet) *configFlags {
	d := config.Default()
	return &configFlags{
		compileCmd:     fs.String("compile-check", d.CompileCheckCommand, "shell command template run to verify a file still compiles; {path} is replaced with the file's path, empty disables"),
		keepRuns:       fs.Int("keep-runs", d.KeepRuns, "number of most recent run directories to keep after a successful apply"),
		runsDirName:    fs.String("runs-dir-name", d.RunsDirName, "directory under the project root where runs are persisted"),
		contextLines:   fs.Int("context-lines", d.DefaultContextLines, "lines of surrounding source quoted in anchor-mismatch messages"),
		rollbackOnFail: fs.Bool("rollback-on-compile-fail", d.RollbackOnCompileFail, "restore a touched file's pre-edit content when it fails the compile check"),
	}
}

func (c *configFlags) apply(cfg *config.Config) {
	cfg.CompileCheckCommand = *c.compileCmd
	cfg.KeepRuns = *c.keepRuns
	cfg.RunsDirName = *c.runsDirName
	cfg.DefaultContextLines = *c.contextLines
	cfg.RollbackOnCompileFail = *c.rollbackOnFail
}

// sharedFlags are the flags every bundle-consuming subcommand takes in
// common.
type sharedFlags struct {
	fs      *flag.FlagSet
	file    *string
	bundle  *string
	verbose *bool
	cfg     *configFlags
}

func newSharedFlags(name string) *sharedFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &sharedFlags{
		fs:      fs,
		file:    fs.String("file", "", "path to the currently open file, for root and default-file resolution; empty means no editor file is open"),
		bundle:  fs.String("bundle", "", "path to a bundle file; if empty, the bundle is read from stdin"),
		verbose: fs.Bool("verbose", false, "log to stdout instead of a temp file"),
		cfg:     addConfigFlags(fs),
	}
}

func setupLogging(verbose bool) (*os.File, error) {
	var handler slog.Handler
	var logFile *os.File
	if verbose {
		handler = skribe.AttrsWrap(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	} else {
		f, err := os.CreateTemp("", "astpatch-log-*")
		if err != nil {
			return nil, fmt.Errorf("cannot create log file: %w", err)
		}
		logFile = f
		handler = skribe.AttrsWrap(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	slog.SetDefault(slog.New(handler))
	return logFile, nil
}

func buildOrchestrator(sf *sharedFlags, binaryPath string) *orchestrator.Orchestrator {
	cfg := config.Default()
	sf.cfg.apply(&cfg)

	h := host.NewTTY()
	h.FilePath = *sf.file

	return orchestrator.New(h, host.SystemClipboard{}, runmanager.OSFS{}, hl.NewPythonFront(), compilecheck.New(cfg.CompileCheckCommand), cfg, binaryPath)
}

func readBundle(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read bundle from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read bundle %s: %w", path, err)
	}
	return string(data), nil
}

func runApply(args []string) error {
	sf := newSharedFlags("apply")
	sf.fs.Parse(args)

	runID := uuid.NewString()
	logFile, err := setupLogging(*sf.verbose)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
		fmt.Printf("structured logs: %s\n", logFile.Name())
	}
	ctx := skribe.ContextWithAttr(context.Background(), slog.String("run_id", runID))

	bundleText, err := readBundle(*sf.bundle)
	if err != nil {
		return err
	}
	exe, _ := os.Executable()
	orch := buildOrchestrator(sf, exe)

	summary, err := orch.Apply(ctx, bundleText)
	if err != nil {
		return err
	}
	fmt.Print(summary.RunPacket())
	for path, diffText := range summary.Diffs {
		fmt.Printf("\n--- %s ---\n%s", path, diffText)
	}
	return nil
}

func runDryRun(args []string) error {
	sf := newSharedFlags("dry-run")
	sf.fs.Parse(args)

	runID := uuid.NewString()
	logFile, err := setupLogging(*sf.verbose)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
		fmt.Printf("structured logs: %s\n", logFile.Name())
	}
	ctx := skribe.ContextWithAttr(context.Background(), slog.String("run_id", runID))

	bundleText, err := readBundle(*sf.bundle)
	if err != nil {
		return err
	}
	exe, _ := os.Executable()
	orch := buildOrchestrator(sf, exe)

	summary, err := orch.DryRun(ctx, bundleText)
	if err != nil {
		return err
	}
	fmt.Print(summary.RunPacket())
	for path, diffText := range summary.Diffs {
		fmt.Printf("\n--- %s ---\n%s", path, diffText)
	}
	return nil
}

func runRevert(args []string) error {
	fs := flag.NewFlagSet("revert", flag.ExitOnError)
	file := fs.String("file", "", "path to the currently open file, for root resolution")
	stamp := fs.String("stamp", "", "run stamp to revert; if empty, an interactive picker is shown")
	cfgFlags := addConfigFlags(fs)
	fs.Parse(args)

	exe, _ := os.Executable()
	cfg := config.Default()
	cfgFlags.apply(&cfg)
	h := host.NewTTY()
	h.FilePath = *file
	orch := orchestrator.New(h, host.SystemClipboard{}, runmanager.OSFS{}, hl.NewPythonFront(), compilecheck.New(cfg.CompileCheckCommand), cfg, exe)

	ctx := context.Background()
	target := *stamp
	if target == "" {
		stamps, err := orch.ListRuns()
		if err != nil {
			return err
		}
		idx, ok, err := h.Pick("revert which run?", stamps)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("revert cancelled")
		}
		target = stamps[idx]
	}

	report, err := orch.Revert(ctx, target)
	if err != nil {
		return err
	}
	fmt.Println(report.Headline())
	for _, e := range report.FirstErrors {
		fmt.Println("  " + e)
	}
	return nil
}

func runListRuns(args []string) error {
	fs := flag.NewFlagSet("list-runs", flag.ExitOnError)
	file := fs.String("file", "", "path to the currently open file, for root resolution")
	cfgFlags := addConfigFlags(fs)
	fs.Parse(args)

	exe, _ := os.Executable()
	cfg := config.Default()
	cfgFlags.apply(&cfg)
	h := host.NewTTY()
	h.FilePath = *file
	orch := orchestrator.New(h, host.SystemClipboard{}, runmanager.OSFS{}, hl.NewPythonFront(), compilecheck.New(cfg.CompileCheckCommand), cfg, exe)

	stamps, err := orch.ListRuns()
	if err != nil {
		return err
	}
	for _, s := range stamps {
		fmt.Println(s)
	}
	return nil
}

func runServeMCP(args []string) error {
	fs := flag.NewFlagSet("serve-mcp", flag.ExitOnError)
	file := fs.String("file", "", "path to the currently open file, for root and default-file resolution")
	cfgFlags := addConfigFlags(fs)
	fs.Parse(args)

	exe, _ := os.Executable()
	cfg := config.Default()
	cfgFlags.apply(&cfg)
	h := host.NewTTY()
	h.FilePath = *file
	orch := orchestrator.New(h, host.SystemClipboard{}, runmanager.OSFS{}, hl.NewPythonFront(), compilecheck.New(cfg.CompileCheckCommand), cfg, exe)

	srv := mcpserver.New(orch, version())
	return srv.ServeStdio(context.Background())
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	fs.Parse(args)

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate running binary: %w", err)
	}
	return update.Do(context.Background(), version(), exe)
}

func version() string {
	return "dev"
}
