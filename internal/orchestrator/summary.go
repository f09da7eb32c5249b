package orchestrator

import (
	"fmt"
	"strings"

	"github.com/pkg/diff"

	"astpatch.dev/astpatch/internal/applier"
	"astpatch.dev/astpatch/internal/runmanager"
)

// Summary is the user-visible result of one Apply or DryRun, spec.md
// §4.5's "summary dialog" and, for a real run, the basis of the run
// packet copied to the clipboard.
type Summary struct {
	Stamp   string
	Root    string
	RunDir  string // empty for a dry run
	DryRun  bool
	Results []applier.Result
	Diffs   map[string]string // relative path -> unified diff, mutated files only
}

// BuildSummary collects run's results and per-file diffs into a
// Summary.
func BuildSummary(run *runmanager.Run, root, runDir string, dryRun bool) *Summary {
	s := &Summary{
		Stamp:   run.Stamp,
		Root:    root,
		RunDir:  runDir,
		DryRun:  dryRun,
		Results: run.Results,
		Diffs:   map[string]string{},
	}
	for _, tf := range run.TouchedFiles() {
		if !tf.Mutated {
			continue
		}
		s.Diffs[tf.Rel] = unifiedDiff(tf.Rel, string(tf.Before), string(tf.After))
	}
	return s
}

func unifiedDiff(path, before, after string) string {
	var buf strings.Builder
	if err := diff.Text(path, path, before, after, &buf); err != nil {
		return fmt.Sprintf("(diff generation failed: %v)\n", err)
	}
	return buf.String()
}

// Counts tallies results by status name.
func (s *Summary) Counts() map[string]int {
	counts := map[string]int{}
	for _, r := range s.Results {
		counts[r.Status.String()]++
	}
	return counts
}

// Headline is a single line fit for a toast.
func (s *Summary) Headline() string {
	counts := s.Counts()
	applied := counts["APPLIED"]
	failed := 0
	for status, n := range counts {
		if strings.HasPrefix(status, "FAILED") {
			failed += n
		}
	}
	verb := "run"
	if s.DryRun {
		verb = "dry run"
	}
	if failed > 0 {
		return fmt.Sprintf("astpatch %s %s: %d applied, %d failed (of %d ops)", verb, s.Stamp, applied, failed, len(s.Results))
	}
	return fmt.Sprintf("astpatch %s %s: %d applied (of %d ops)", verb, s.Stamp, applied, len(s.Results))
}

// RunPacket is the compact multi-line textual summary spec.md §4.5 and
// §6's GLOSSARY describe, copied to the clipboard on every real run.
func (s *Summary) RunPacket() string {
	var b strings.Builder
	fmt.Fprintf(&b, "astpatch run %s\n", s.Stamp)
	if s.RunDir != "" {
		fmt.Fprintf(&b, "run dir: %s\n", s.RunDir)
	}
	fmt.Fprintf(&b, "root: %s\n", s.Root)
	if s.DryRun {
		b.WriteString("(dry run: no files were written)\n")
	}
	b.WriteString("\n")
	for _, r := range s.Results {
		fmt.Fprintf(&b, "%-10s %-24s %-20s %s", r.Kind, r.Target, r.Status, r.File)
		if r.Message != "" {
			fmt.Fprintf(&b, " -- %s", r.Message)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	counts := s.Counts()
	for status, n := range counts {
		fmt.Fprintf(&b, "%s: %d\n", status, n)
	}
	return b.String()
}

// RevertReport is the user-visible result of a Revert call.
type RevertReport struct {
	Stamp       string
	Restored    int
	Failed      int
	FirstErrors []string
}

// Headline is a single line fit for a toast.
func (r *RevertReport) Headline() string {
	if r.Failed == 0 {
		return fmt.Sprintf("astpatch revert %s: restored %d file(s)", r.Stamp, r.Restored)
	}
	return fmt.Sprintf("astpatch revert %s: restored %d, failed %d", r.Stamp, r.Restored, r.Failed)
}
