package runmanager

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"astpatch.dev/astpatch/internal/config"
)

// Prune implements spec.md §4.4's retention rule: after persisting,
// keep the newest cfg.KeepRuns run directories under root and delete
// the rest, contents included. Deletion is housekeeping, not part of
// the single-threaded op-execution engine spec.md §5 describes, so it
// fans out across an errgroup the way the rest of the corpus uses one
// for independent, order-insensitive I/O.
func Prune(ctx context.Context, fs FS, root string, cfg config.Config) error {
	runsDir := filepath.Join(root, cfg.RunsDirName)
	entries, err := fs.ReadDir(runsDir)
	if err != nil {
		return fmt.Errorf("runmanager: list run directories: %w", err)
	}

	var stamps []string
	for _, e := range entries {
		if e.IsDir() {
			stamps = append(stamps, e.Name())
		}
	}
	if len(stamps) <= cfg.KeepRuns {
		return nil
	}

	sort.Strings(stamps) // YYYYMMDD_HHMMSS[-suffix] sorts lexicographically by age
	stale := stamps[:len(stamps)-cfg.KeepRuns]
	slog.InfoContext(ctx, "runmanager: pruning stale runs", "count", len(stale), "keep_runs", cfg.KeepRuns)

	var g errgroup.Group
	for _, stamp := range stale {
		dir := filepath.Join(runsDir, stamp)
		g.Go(func() error {
			if err := fs.RemoveAll(dir); err != nil {
				return fmt.Errorf("runmanager: prune %s: %w", stamp, err)
			}
			return nil
		})
	}
	return g.Wait()
}
