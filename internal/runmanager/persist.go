package runmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"astpatch.dev/astpatch/internal/config"
)

// Persist writes the run directory spec.md §6 lays out:
//
//	<root>/<RunsDirName>/<stamp>/
//	    bundle.txt
//	    snapshots/<rel path>
//	    logs/run_summary.txt
//	    logs/run_log.jsonl
//	    manifest.json
//
// It returns the run directory's absolute path. If a prior run already
// claimed r.Stamp's directory — two invocations within the same
// wall-clock second — r.Stamp is disambiguated with a short suffix
// (spec.md §3's "stamp is unique per invocation" invariant) before
// anything is written.
func (r *Run) Persist(ctx context.Context, cfg config.Config) (string, error) {
	runDir, err := r.reserveRunDir(cfg)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "runmanager: persisting run", "stamp", r.Stamp, "run_dir", runDir, "touched_files", len(r.TouchedFiles()))
	snapshotsDir := filepath.Join(runDir, "snapshots")
	logsDir := filepath.Join(runDir, "logs")

	if err := r.fs.MkdirAll(snapshotsDir, 0755); err != nil {
		return "", fmt.Errorf("runmanager: create snapshots dir: %w", err)
	}
	if err := r.fs.MkdirAll(logsDir, 0755); err != nil {
		return "", fmt.Errorf("runmanager: create logs dir: %w", err)
	}

	if err := r.fs.WriteFile(filepath.Join(runDir, "bundle.txt"), []byte(r.BundleText), 0644); err != nil {
		return "", fmt.Errorf("runmanager: write bundle.txt: %w", err)
	}

	manifest := Manifest{
		Stamp:     r.Stamp,
		Root:      r.Root,
		BundleSHA: applierSha([]byte(r.BundleText)),
	}

	for _, tf := range r.TouchedFiles() {
		snapshotRel := filepath.ToSlash(tf.Rel)
		snapshotPath := filepath.Join(snapshotsDir, tf.Rel)
		if err := r.fs.MkdirAll(filepath.Dir(snapshotPath), 0755); err != nil {
			return "", fmt.Errorf("runmanager: create snapshot dir for %s: %w", tf.Rel, err)
		}
		if err := r.fs.WriteFile(snapshotPath, tf.Before, 0644); err != nil {
			return "", fmt.Errorf("runmanager: write snapshot for %s: %w", tf.Rel, err)
		}
		manifest.Touched = append(manifest.Touched, ManifestEntry{
			Rel:          tf.Rel,
			SnapshotRel:  snapshotRel,
			BeforeSHA:    applierSha(tf.Before),
			AfterSHA:     applierSha(tf.After),
			CompileOK:    tf.CompileOK,
			CompileError: tf.CompileError,
		})
	}

	for _, res := range r.Results {
		manifest.Results = append(manifest.Results, toResultRecord(res))
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("runmanager: marshal manifest: %w", err)
	}
	if err := r.fs.WriteFile(filepath.Join(runDir, "manifest.json"), manifestJSON, 0644); err != nil {
		return "", fmt.Errorf("runmanager: write manifest.json: %w", err)
	}

	if err := r.fs.WriteFile(filepath.Join(logsDir, "run_summary.txt"), []byte(r.summaryText()), 0644); err != nil {
		return "", fmt.Errorf("runmanager: write run_summary.txt: %w", err)
	}
	if err := r.fs.WriteFile(filepath.Join(logsDir, "run_log.jsonl"), r.jsonlLog(), 0644); err != nil {
		return "", fmt.Errorf("runmanager: write run_log.jsonl: %w", err)
	}

	slog.InfoContext(ctx, "runmanager: run persisted", "stamp", r.Stamp, "run_dir", runDir)
	return runDir, nil
}

// reserveRunDir picks a run directory under cfg.RunsDirName that does
// not already exist. Most runs get r.Stamp's directory on the first
// try; a same-second collision is broken by appending a short
// Disambiguate suffix to r.Stamp and retrying.
func (r *Run) reserveRunDir(cfg config.Config) (string, error) {
	base := r.Stamp
	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		dir := filepath.Join(r.Root, cfg.RunsDirName, candidate)
		_, err := r.fs.Stat(dir)
		if errors.Is(err, os.ErrNotExist) {
			r.Stamp = candidate
			return dir, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("runmanager: checking run dir %s: %w", dir, err)
		}
		candidate = Disambiguate(base)
	}
	return "", fmt.Errorf("runmanager: could not find a free run directory for stamp %s", base)
}

// summaryText renders the human-readable run summary: one line per
// operation result, plus a closing tally.
func (r *Run) summaryText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.Stamp)
	counts := map[string]int{}
	for _, res := range r.Results {
		status := res.Status.String()
		counts[status]++
		fmt.Fprintf(&b, "%-28s %-20s %s", res.Target, status, res.File)
		if res.Message != "" {
			fmt.Fprintf(&b, " — %s", res.Message)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, status := range orderedStatuses(counts) {
		fmt.Fprintf(&b, "%s: %d\n", status, counts[status])
	}
	return b.String()
}

// jsonlLog renders one JSON object per result, one per line, per
// spec.md §6's run_log.jsonl.
func (r *Run) jsonlLog() []byte {
	var b bytes.Buffer
	for _, res := range r.Results {
		line, err := json.Marshal(toResultRecord(res))
		if err != nil {
			continue
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

func orderedStatuses(counts map[string]int) []string {
	order := []string{
		"APPLIED", "SKIPPED_ALREADY_APPLIED", "SKIPPED_ALREADY_PRESENT", "SKIPPED_ANCHOR_MISMATCH",
		"FAILED_NOT_FOUND", "FAILED_AMBIGUOUS", "FAILED_PARSE", "FAILED_INVALID_PATH", "FAILED_IO", "FAILED_COMPILE",
	}
	var out []string
	for _, s := range order {
		if counts[s] > 0 {
			out = append(out, s)
		}
	}
	return out
}
