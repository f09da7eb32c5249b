package host

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// TTY implements orchestrator.Host against a terminal: astpatch's
// three-button modal becomes a numbered prompt, the run picker becomes
// a numbered list, and toasts are one-line colored stderr writes. It
// has no real editor behind it, so CurrentFilePath/CurrentBufferText
// answer from FilePath, which cmd/astpatch sets from a flag rather
// than from a live editor buffer.
type TTY struct {
	FilePath string

	stdin  *os.File
	stdout *os.File
	reader *bufio.Reader
}

// NewTTY builds a TTY host bound to the process's stdin/stdout.
func NewTTY() *TTY {
	return &TTY{stdin: os.Stdin, stdout: os.Stdout, reader: bufio.NewReader(os.Stdin)}
}

func (t *TTY) CurrentFilePath() (string, bool) {
	if t.FilePath == "" {
		return "", false
	}
	return t.FilePath, true
}

func (t *TTY) CurrentBufferText() (string, bool) {
	if t.FilePath == "" {
		return "", false
	}
	data, err := os.ReadFile(t.FilePath)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (t *TTY) ReplaceCurrentBuffer(text string) error {
	if t.FilePath == "" {
		return fmt.Errorf("host: no current file set")
	}
	return os.WriteFile(t.FilePath, []byte(text), 0644)
}

// Alert renders title/message and a numbered list of buttons, then
// reads one line. A bare Enter, or any input when stdin isn't a
// terminal, selects button 1 — spec.md §6's "a neutral 1 if
// unavailable".
func (t *TTY) Alert(title, message string, buttons []string) (int, error) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(t.stdout, "\n%s\n%s\n", bold(title), message)
	if !term.IsTerminal(int(t.stdin.Fd())) || len(buttons) == 0 {
		return 1, nil
	}
	for i, b := range buttons {
		fmt.Fprintf(t.stdout, "  %d) %s\n", i+1, b)
	}
	fmt.Fprint(t.stdout, "> ")
	line, _ := t.reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(buttons) {
		return 1, fmt.Errorf("host: invalid selection %q", line)
	}
	return n, nil
}

// Toast writes a transient one-line colored status to stderr.
func (t *TTY) Toast(message string) {
	color.New(color.FgCyan).Fprintln(os.Stderr, message)
}

// Pick renders a numbered list (newest-first for a run picker) and
// reads one line; a bare Enter cancels.
func (t *TTY) Pick(title string, items []string) (int, bool, error) {
	if len(items) == 0 {
		return 0, false, nil
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(t.stdout, "\n%s\n", bold(title))
	for i, item := range items {
		fmt.Fprintf(t.stdout, "  %d) %s%s\n", i+1, item, ageSuffix(item))
	}
	fmt.Fprint(t.stdout, "> ")
	line, _ := t.reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(items) {
		return 0, false, fmt.Errorf("host: invalid selection %q", line)
	}
	return n - 1, true, nil
}

// ageSuffix renders " (3 hours ago)" for a run stamp shaped like
// runmanager.Stamp's "YYYYMMDD_HHMMSS", or "" if item isn't one.
func ageSuffix(stamp string) string {
	t, err := time.ParseInLocation("20060102_150405", stamp, time.Local)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", humanize.Time(t))
}
