package applier

import (
	"fmt"
	"regexp"
	"strings"

	"astpatch.dev/astpatch/internal/bundleparser"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// collapseWhitespace collapses every run of whitespace (including a
// leading run, which is reduced to a single space rather than removed)
// to one space, per spec.md §9's note that fuzzy matching "does not
// trim leading whitespace on the candidate line".
func collapseWhitespace(s string) string {
	return whitespaceRun.ReplaceAllString(s, " ")
}

func anchorMatches(line, anchor string, mode bundleparser.MatchMode) bool {
	if mode == bundleparser.MatchFuzzy {
		return strings.Contains(collapseWhitespace(line), collapseWhitespace(anchor))
	}
	return strings.Contains(line, anchor)
}

// resolveAnchor implements the anchor-resolution algorithm of spec.md
// §4.2: collect every line in [rangeStart, rangeEnd] containing anchor,
// require the count to equal expect, then select the occurrence-th hit.
// A zero expect or occurrence is an unset Operation field and means 1.
func resolveAnchor(li LineIndex, src []byte, rangeStart, rangeEnd int, anchor string, mode bundleparser.MatchMode, expect, occurrence, contextLines int) (line int, status Status, message string) {
	if expect == 0 {
		expect = 1
	}
	if occurrence == 0 {
		occurrence = 1
	}
	var hits []int
	for n := rangeStart; n <= rangeEnd; n++ {
		if anchorMatches(li.LineText(src, n), anchor, mode) {
			hits = append(hits, n)
		}
	}
	if len(hits) != expect {
		return 0, StatusSkippedAnchorMismatch, fmt.Sprintf(
			"anchor %q matched %d line(s), expected %d; block: %s",
			anchor, len(hits), expect, previewLines(li, src, rangeStart, rangeEnd, contextLines))
	}
	if occurrence < 1 || occurrence > len(hits) {
		return 0, StatusFailedParse, fmt.Sprintf(
			"occurrence %d out of range (%d matches for anchor %q)", occurrence, len(hits), anchor)
	}
	return hits[occurrence-1], StatusApplied, ""
}

// previewLines renders up to max lines of a block for a diagnostic
// message, per spec.md §4.2's "message reports the count and the first
// few lines of the block". max is the run's configured
// DEFAULT_CONTEXT_LINES (spec.md §6/§7.4), threaded down from
// config.Config through Apply.
func previewLines(li LineIndex, src []byte, start, end, max int) string {
	if max < 1 {
		max = 1
	}
	var lines []string
	for n := start; n <= end && len(lines) < max; n++ {
		lines = append(lines, strings.TrimSpace(li.LineText(src, n)))
	}
	joined := strings.Join(lines, " / ")
	if end-start+1 > max {
		joined += " ..."
	}
	return joined
}
