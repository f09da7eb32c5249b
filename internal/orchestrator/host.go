// Package orchestrator resolves the project root and default file,
// runs the preflight safety check, drives the bundle-parser -> locator
// -> applier -> run-manager pipeline, and renders the user-visible
// summary and run packet. It is the thinnest of the five components
// (spec.md §2's 10% share) and the only one that talks to the
// interactive host.
package orchestrator

// Host is the interactive editor host spec.md §1 and §6 describe as an
// external collaborator: a code editor offering modal alerts, a
// read-only clipboard source of bundle text, and "current file"
// introspection. Every method degrades gracefully — its second return
// value is false (or its error is non-nil) when the underlying host
// cannot answer, per spec.md §6 ("the patcher gracefully degrades to
// stdout prints when any of these is unavailable").
type Host interface {
	// CurrentFilePath returns the absolute path of the file currently
	// open in the editor, if any.
	CurrentFilePath() (path string, ok bool)

	// CurrentBufferText returns the editor's in-memory buffer for the
	// current file, which may differ from what is on disk.
	CurrentBufferText() (text string, ok bool)

	// ReplaceCurrentBuffer overwrites the editor's in-memory buffer.
	// Unused by astpatch's own pipeline (the run manager writes
	// directly to disk) but part of the contract spec.md §6 names.
	ReplaceCurrentBuffer(text string) error

	// Alert shows a modal with the given buttons and returns the
	// 1-based index of the button pressed, or 1 if no host is
	// attached (spec.md §6: "a neutral 1 if unavailable").
	Alert(title, message string, buttons []string) (buttonIndex int, err error)

	// Toast shows a transient, non-blocking heads-up message.
	Toast(message string)

	// Pick presents a list and returns the chosen index, or ok=false
	// if the user canceled or no picker is available.
	Pick(title string, items []string) (index int, ok bool, err error)
}

// Clipboard is the bundle-text source and run-packet sink spec.md §6
// names. An unavailable clipboard is a fatal condition for Apply (but
// not for DryRun or Revert, neither of which reads or writes it).
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}
