// Package host implements astpatch's interactive host and clipboard
// contracts (internal/orchestrator's Host and Clipboard interfaces)
// against a real terminal, the system clipboard, and a pager.
package host

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// SystemClipboard implements orchestrator.Clipboard against the OS
// clipboard. Per spec.md §6, an unavailable clipboard is a fatal
// condition for Apply; callers get that for free since both methods
// return the underlying error.
type SystemClipboard struct{}

func (SystemClipboard) ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("host: read clipboard: %w", err)
	}
	return text, nil
}

func (SystemClipboard) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("host: write clipboard: %w", err)
	}
	return nil
}
