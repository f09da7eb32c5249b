// Package runmanager owns everything spec.md §4.4 assigns the run
// manager: staging writes in an in-memory file cache, write-then-verify
// per file, compile verification with rollback, persisting a run
// directory (bundle, snapshots, manifest, logs), pruning old runs, and
// reverting a prior run from its manifest.
package runmanager

import "os"

// FS is the filesystem interface the run manager depends on. spec.md
// §1 names "filesystem primitives" as an out-of-scope external
// collaborator; this is that boundary. OSFS is the only implementation
// astpatch ships.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Stat(path string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	RemoveAll(path string) error
	ReadDir(path string) ([]os.DirEntry, error)
}

// OSFS implements FS directly against the local filesystem.
type OSFS struct{}

func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (OSFS) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }

func (OSFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OSFS) RemoveAll(path string) error { return os.RemoveAll(path) }

func (OSFS) ReadDir(path string) ([]os.DirEntry, error) { return os.ReadDir(path) }
