package applier

import (
	"crypto/sha256"
	"encoding/hex"

	"astpatch.dev/astpatch/internal/bundleparser"
	"astpatch.dev/astpatch/internal/locator"
)

// Result is one operation's outcome, spec.md §3's "Operation result".
// File is filled in by the caller (internal/runmanager), which is the
// only layer that knows an operation's resolved file path; applier
// only ever sees one file's buffer at a time.
type Result struct {
	Kind       bundleparser.Kind
	Target     string
	File       string
	Range      locator.Range
	Status     Status
	HashBefore string
	HashAfter  string
	CompileOK  bool
	Message    string
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
