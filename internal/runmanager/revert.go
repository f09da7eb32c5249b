package runmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"astpatch.dev/astpatch/internal/config"
)

// RevertResult reports what a revert actually did, per touched file.
type RevertResult struct {
	Rel     string
	Applied bool
	Err     string
}

// Revert restores every file touched by the run named stamp to its
// pre-run snapshot content, per spec.md §4.4: "revert reads the
// manifest for a given run and, for every touched file, writes the
// snapshot content back to the file's original path." It never
// snapshots its own effect — a revert is not itself a run.
func Revert(ctx context.Context, fs FS, root, stamp string, cfg config.Config) ([]RevertResult, error) {
	slog.InfoContext(ctx, "runmanager: reverting run", "stamp", stamp)
	runDir := filepath.Join(root, cfg.RunsDirName, stamp)
	manifestPath := filepath.Join(runDir, "manifest.json")

	raw, err := fs.ReadFile(manifestPath)
	if err != nil {
		slog.ErrorContext(ctx, "runmanager: revert failed, no manifest", "stamp", stamp, "error", err)
		return nil, fmt.Errorf("runmanager: read manifest for run %s: %w", stamp, err)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("runmanager: parse manifest for run %s: %w", stamp, err)
	}

	results := make([]RevertResult, 0, len(manifest.Touched))
	for _, entry := range manifest.Touched {
		res := RevertResult{Rel: entry.Rel}

		target, err := ResolvePath(root, entry.Rel)
		if err != nil {
			res.Err = err.Error()
			results = append(results, res)
			continue
		}

		snapshotPath := filepath.Join(runDir, "snapshots", entry.Rel)
		snapshot, err := fs.ReadFile(snapshotPath)
		if err != nil {
			res.Err = fmt.Sprintf("read snapshot: %v", err)
			results = append(results, res)
			continue
		}

		perm := filePerm(fs, target)
		if err := fs.WriteFile(target, snapshot, perm); err != nil {
			res.Err = fmt.Sprintf("write: %v", err)
			results = append(results, res)
			continue
		}

		res.Applied = true
		results = append(results, res)
	}
	restored, failed, _ := RevertSummary(results)
	slog.InfoContext(ctx, "runmanager: revert complete", "stamp", stamp, "restored", restored, "failed", failed)
	return results, nil
}

// RevertSummary counts outcomes for a human-readable report.
func RevertSummary(results []RevertResult) (restored, failed int, firstErrors []string) {
	for _, r := range results {
		if r.Applied {
			restored++
			continue
		}
		failed++
		if len(firstErrors) < 5 {
			firstErrors = append(firstErrors, fmt.Sprintf("%s: %s", r.Rel, r.Err))
		}
	}
	return restored, failed, firstErrors
}
