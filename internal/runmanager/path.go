package runmanager

import (
	"fmt"
	"path/filepath"
	"strings"
)

// InvalidPathError reports a resolved target outside the project root,
// spec.md §3's invariant: "Every resolved target path must be identical
// to root or strictly beneath it."
type InvalidPathError struct {
	Root, Resolved string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("%q is not root (%q) or strictly beneath it", e.Resolved, e.Root)
}

// ResolvePath canonicalizes rel against root (symlinks resolved, per
// spec.md §3) and checks containment. rel may be absolute or relative;
// relative paths are resolved against root.
func ResolvePath(root, rel string) (string, error) {
	canonicalRoot, err := canonicalize(root)
	if err != nil {
		return "", err
	}

	candidate := rel
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	canonicalCandidate, err := canonicalize(candidate)
	if err != nil {
		// The file may not exist yet as a symlink target; fall back to a
		// lexical join so a brand-new file under root still resolves.
		canonicalCandidate = filepath.Clean(candidate)
	}

	if canonicalCandidate != canonicalRoot &&
		!strings.HasPrefix(canonicalCandidate, canonicalRoot+string(filepath.Separator)) {
		return "", &InvalidPathError{Root: canonicalRoot, Resolved: canonicalCandidate}
	}
	return canonicalCandidate, nil
}

// RelPath returns path relative to root, for manifest/result display.
func RelPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
