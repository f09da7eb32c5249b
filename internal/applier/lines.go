package applier

// LineIndex maps 1-based line numbers to byte offsets in a fixed source
// buffer, the way claudetool/patch.go's line-range helpers do for Go
// source in the teacher repo, generalized here to any newline-delimited
// text.
type LineIndex struct {
	starts []int // starts[i] = byte offset of line i+1; last element is len(src)
}

// NewLineIndex scans src once and records every line start.
func NewLineIndex(src []byte) LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	if starts[len(starts)-1] != len(src) {
		starts = append(starts, len(src))
	}
	return LineIndex{starts: starts}
}

// NumLines reports how many real lines src has.
func (li LineIndex) NumLines() int {
	return len(li.starts) - 1
}

// LineStart returns the byte offset where line n (1-based) begins.
func (li LineIndex) LineStart(n int) int {
	return li.starts[n-1]
}

// ContentEnd returns the byte offset just past line n's content, not
// including its trailing newline.
func (li LineIndex) ContentEnd(src []byte, n int) int {
	end := li.starts[n]
	if end > li.starts[n-1] && src[end-1] == '\n' {
		end--
	}
	return end
}

// LineText returns line n's content, without its trailing newline.
func (li LineIndex) LineText(src []byte, n int) string {
	return string(src[li.LineStart(n):li.ContentEnd(src, n)])
}

// InsertAfterOffset returns the byte offset immediately after line n's
// own newline (or end of file, if n is the last line and has none).
func (li LineIndex) InsertAfterOffset(n int) int {
	return li.starts[n]
}

// RangeWithTrailingNewline returns the [start, end) byte range spanning
// lines a..b inclusive, including line b's own trailing newline if it
// has one — the natural span to replace with a newline-terminated block.
func (li LineIndex) RangeWithTrailingNewline(a, b int) (int, int) {
	return li.LineStart(a), li.starts[b]
}

func (li LineIndex) lineExists(n int) bool {
	return n >= 1 && n <= li.NumLines()
}

func (li LineIndex) isBlankLine(src []byte, n int) bool {
	if !li.lineExists(n) {
		return true
	}
	return isBlank(li.LineText(src, n))
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}
