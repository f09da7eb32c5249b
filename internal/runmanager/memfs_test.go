package runmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// memFS is an in-memory FS double, keyed by cleaned absolute path.
// Good enough for runmanager's tests: no symlinks, so ResolvePath's
// EvalSymlinks call degrades to its lexical-Clean fallback for any
// path that doesn't already exist on the real filesystem — which is
// why tests root themselves under a real, empty t.TempDir() rather
// than a synthetic path.
type memFS struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newMemFS() *memFS {
	return &memFS{files: map[string][]byte{}, dirs: map[string]bool{}}
}

func (f *memFS) clean(path string) string { return filepath.Clean(path) }

func (f *memFS) ReadFile(path string) ([]byte, error) {
	data, ok := f.files[f.clean(path)]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (f *memFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	path = f.clean(path)
	out := make([]byte, len(data))
	copy(out, data)
	f.files[path] = out
	f.dirs[filepath.Dir(path)] = true
	return nil
}

type memFileInfo struct {
	name  string
	isDir bool
	size  int64
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() os.FileMode  { return 0644 }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return i.isDir }
func (i memFileInfo) Sys() any           { return nil }

func (f *memFS) Stat(path string) (os.FileInfo, error) {
	path = f.clean(path)
	if data, ok := f.files[path]; ok {
		return memFileInfo{name: filepath.Base(path), size: int64(len(data))}, nil
	}
	if f.dirs[path] {
		return memFileInfo{name: filepath.Base(path), isDir: true}, nil
	}
	return nil, &os.PathError{Op: "stat", Path: path, Err: os.ErrNotExist}
}

func (f *memFS) MkdirAll(path string, perm os.FileMode) error {
	path = f.clean(path)
	for p := path; p != "." && p != string(filepath.Separator) && p != ""; p = filepath.Dir(p) {
		f.dirs[p] = true
	}
	return nil
}

func (f *memFS) RemoveAll(path string) error {
	path = f.clean(path)
	prefix := path + string(filepath.Separator)
	for p := range f.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(f.files, p)
		}
	}
	for d := range f.dirs {
		if d == path || strings.HasPrefix(d, prefix) {
			delete(f.dirs, d)
		}
	}
	delete(f.dirs, path)
	return nil
}

type memDirEntry struct {
	name  string
	isDir bool
}

func (e memDirEntry) Name() string               { return e.name }
func (e memDirEntry) IsDir() bool                 { return e.isDir }
func (e memDirEntry) Type() os.FileMode           { return 0 }
func (e memDirEntry) Info() (os.FileInfo, error)  { return memFileInfo{name: e.name, isDir: e.isDir}, nil }

func (f *memFS) ReadDir(path string) ([]os.DirEntry, error) {
	path = f.clean(path)
	seen := map[string]bool{}
	var out []os.DirEntry
	prefix := path + string(filepath.Separator)

	add := func(name string, isDir bool) {
		if !seen[name] {
			seen[name] = true
			out = append(out, memDirEntry{name: name, isDir: isDir})
		}
	}

	for p := range f.dirs {
		if strings.HasPrefix(p, prefix) {
			rest := strings.TrimPrefix(p, prefix)
			if !strings.Contains(rest, string(filepath.Separator)) {
				add(rest, true)
			}
		}
	}
	for p := range f.files {
		if strings.HasPrefix(p, prefix) {
			rest := strings.TrimPrefix(p, prefix)
			if !strings.Contains(rest, string(filepath.Separator)) {
				add(rest, false)
			}
		}
	}
	if len(out) == 0 && !f.dirs[path] {
		return nil, fmt.Errorf("readdir %s: not found", path)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}
