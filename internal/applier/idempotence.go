package applier

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var defNameRe = regexp.MustCompile(`^\s*def\s+([A-Za-z_]\w*)\s*\(`)

var dmp = diffmatchpatch.New()

// fuzzyIdempotenceThreshold is the similarity ratio above which a
// signature line is treated as already present when an insert op set
// MATCH: fuzzy. It only backs the fuzzy path: exact mode always relies
// on literal substring containment, as spec.md §4.2 describes.
const fuzzyIdempotenceThreshold = 0.92

// insertIdempotent implements spec.md §4.2's two insert-op idempotence
// guards: a def-name check for code that begins with a function
// definition, and a substring check for everything else. sig is the
// operation's first non-blank code line (bundleparser.Operation.Sig).
func insertIdempotent(src []byte, sig string, fuzzy bool) (skip bool, message string) {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return false, ""
	}
	if m := defNameRe.FindStringSubmatch(sig); m != nil {
		name := m[1]
		needle := "def " + name + "("
		if bytes.Contains(src, []byte(needle)) {
			return true, "function " + name + " already defined in file"
		}
		return false, ""
	}
	if bytes.Contains(src, []byte(sig)) {
		return true, "signature line already present in file"
	}
	if fuzzy && fuzzySigPresent(src, sig) {
		return true, "signature line closely matches an existing line in file"
	}
	return false, ""
}

// fuzzySigPresent reports whether sig closely matches some existing
// line in src by Levenshtein-distance ratio rather than exact
// containment — a supplement to spec.md §4.2's literal substring guard,
// for bundles re-applied after a reindent pass has nudged whitespace.
func fuzzySigPresent(src []byte, sig string) bool {
	collapsedSig := collapseWhitespace(strings.TrimSpace(sig))
	for _, line := range strings.Split(string(src), "\n") {
		line = collapseWhitespace(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if similarity(collapsedSig, line) >= fuzzyIdempotenceThreshold {
			return true
		}
	}
	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	diffs := dmp.DiffMain(a, b, false)
	dist := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}
