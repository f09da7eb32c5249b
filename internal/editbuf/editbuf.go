// Package editbuf provides a small in-memory buffer that accumulates
// byte-offset edits and resolves them against a stable base text, so
// that multiple edits computed against the same original offsets can
// be applied together without each one invalidating the offsets of the
// next. Its API (NewBuffer, Insert, Replace, Bytes) is grounded in how
// claudetool/patch.go and claudetool/patchkit/patchkit.go in the
// teacher repo use a sibling "sketch.dev/claudetool/editbuf" package
// (present in the teacher's import graph but not itself retrieved into
// this pack); astpatch implements that contract directly.
package editbuf

import "sort"

// edit is one pending change, expressed in terms of offsets into the
// original base text.
type edit struct {
	start, end int // [start, end) in base text; end == start for a pure insert
	text       string
}

// Buffer accumulates edits against a fixed base text and renders them
// in one pass.
type Buffer struct {
	base  []byte
	edits []edit
}

// NewBuffer creates a Buffer over base. base is never mutated.
func NewBuffer(base []byte) *Buffer {
	return &Buffer{base: base}
}

// Insert schedules text to be inserted at offset off (0 <= off <=
// len(base)).
func (b *Buffer) Insert(off int, text string) {
	b.edits = append(b.edits, edit{start: off, end: off, text: text})
}

// Replace schedules the byte range [start, end) of the base text to be
// replaced with text.
func (b *Buffer) Replace(start, end int, text string) {
	b.edits = append(b.edits, edit{start: start, end: end, text: text})
}

// Bytes renders base with all scheduled edits applied, in base-offset
// order. Overlapping replace edits are a caller bug; inserts at the
// same offset apply in the order they were scheduled.
func (b *Buffer) Bytes() ([]byte, error) {
	edits := make([]edit, len(b.edits))
	copy(edits, b.edits)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		// Pure inserts (start==end) at a position sort before a replace
		// that starts there, so "insert before X" and "replace X" both
		// behave as expected when scheduled at the same offset.
		return edits[i].end < edits[j].end
	})

	out := make([]byte, 0, len(b.base))
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			return nil, &OverlapError{Start: e.start, End: e.end, Pos: pos}
		}
		out = append(out, b.base[pos:e.start]...)
		out = append(out, e.text...)
		pos = e.end
	}
	out = append(out, b.base[pos:]...)
	return out, nil
}

// OverlapError reports two scheduled edits whose ranges overlap.
type OverlapError struct {
	Start, End, Pos int
}

func (e *OverlapError) Error() string {
	return "editbuf: overlapping edits"
}
