package runmanager

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/richardlehane/crock32"
)

// Stamp formats t as the run directory name spec.md §4's data model and
// §6's run directory layout both require: "YYYYMMDD_HHMMSS".
func Stamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// Disambiguate appends a short, sortable suffix to base, for the rare
// case two runs are started within the same second and would otherwise
// collide on disk. The suffix is the last four crock32 digits of a fresh
// ULID's millisecond timestamp (oklog/ulid/v2), encoded the way cmd/sketch/main.go's
// newSessionID encodes session identifiers — kept short since it only
// has to break a same-second tie, not stand alone as an identifier.
func Disambiguate(base string) string {
	id := ulid.Make()
	suffix := crock32.Encode(id.Time())
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return base + "-" + strings.ToLower(suffix)
}
