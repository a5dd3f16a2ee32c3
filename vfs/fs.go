// Package vfs provides the file-system abstraction the resource manager
// operates on. It wraps a hackpadfs filesystem so the same code runs
// against the real OS tree and against an in-memory tree in tests.
package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync/atomic"

	"github.com/hack-pad/hackpadfs"
	memfs "github.com/hack-pad/hackpadfs/mem"
	osfs "github.com/hack-pad/hackpadfs/os"
)

// ErrDisposed is returned for any operation on a disposed filesystem.
var ErrDisposed = errors.New("vfs: filesystem disposed")

// ErrReadOnly is returned for write operations on a read-only filesystem.
var ErrReadOnly = errors.New("vfs: filesystem is read-only")

// FS is a rooted filesystem. Names passed to its methods are absolute
// slash paths ("/meshes/cube.omsh"); the leading slash addresses the
// root the FS was created with.
type FS struct {
	fsys     hackpadfs.FS
	prefix   string
	writable bool
	disposed atomic.Bool
}

// NewOS returns a filesystem rooted at the OS directory root.
func NewOS(root string) (*FS, error) {
	ofs := osfs.NewFS()
	prefix, err := ofs.FromOSPath(root)
	if err != nil {
		return nil, fmt.Errorf("vfs: bad root %q: %w", root, err)
	}
	return &FS{fsys: ofs, prefix: prefix, writable: true}, nil
}

// NewMem returns an empty in-memory filesystem.
func NewMem() (*FS, error) {
	mfs, err := memfs.NewFS()
	if err != nil {
		return nil, fmt.Errorf("vfs: %w", err)
	}
	return &FS{fsys: mfs, writable: true}, nil
}

// New wraps an arbitrary hackpadfs filesystem. writable declares whether
// write operations should be attempted on it.
func New(fsys hackpadfs.FS, writable bool) *FS {
	return &FS{fsys: fsys, writable: writable}
}

// Writable reports whether the filesystem accepts write operations.
func (f *FS) Writable() bool { return f.writable && !f.disposed.Load() }

// Dispose marks the filesystem unusable. Operations after Dispose fail
// with ErrDisposed.
func (f *FS) Dispose() { f.disposed.Store(true) }

func (f *FS) resolve(name string) string {
	name = strings.TrimPrefix(path.Clean(name), "/")
	if name == "" || name == "." {
		name = "."
	}
	if f.prefix == "" {
		return name
	}
	if name == "." {
		return f.prefix
	}
	return path.Join(f.prefix, name)
}

func (f *FS) check() error {
	if f.disposed.Load() {
		return ErrDisposed
	}
	return nil
}

// Open opens the named file for reading.
func (f *FS) Open(name string) (fs.File, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.fsys.Open(f.resolve(name))
}

// Create opens the named file for writing, creating or truncating it.
// The returned file implements io.Writer.
func (f *FS) Create(name string) (io.WriteCloser, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	if !f.writable {
		return nil, ErrReadOnly
	}
	file, err := hackpadfs.OpenFile(f.fsys, f.resolve(name),
		hackpadfs.FlagWriteOnly|hackpadfs.FlagCreate|hackpadfs.FlagTruncate, 0o666)
	if err != nil {
		return nil, err
	}
	w, ok := file.(io.WriteCloser)
	if !ok {
		file.Close()
		return nil, fmt.Errorf("vfs: %q does not support writing", name)
	}
	return w, nil
}

// Exists reports whether the named file or directory exists.
func (f *FS) Exists(name string) bool {
	if f.check() != nil {
		return false
	}
	_, err := fs.Stat(f.fsys, f.resolve(name))
	return err == nil
}

// Stat returns file info for the named file.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return fs.Stat(f.fsys, f.resolve(name))
}

// List returns the directory entries under the named directory.
func (f *FS) List(name string) ([]fs.DirEntry, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return fs.ReadDir(f.fsys, f.resolve(name))
}

// Remove deletes the named file.
func (f *FS) Remove(name string) error {
	if err := f.check(); err != nil {
		return err
	}
	if !f.writable {
		return ErrReadOnly
	}
	return hackpadfs.Remove(f.fsys, f.resolve(name))
}

// MkdirAll creates the named directory and any missing parents.
func (f *FS) MkdirAll(name string) error {
	if err := f.check(); err != nil {
		return err
	}
	if !f.writable {
		return ErrReadOnly
	}
	return hackpadfs.MkdirAll(f.fsys, f.resolve(name), 0o777)
}

// ReadFile reads the whole named file.
func (f *FS) ReadFile(name string) ([]byte, error) {
	file, err := f.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// WriteFile writes data to the named file, creating its directory first.
func (f *FS) WriteFile(name string, data []byte) error {
	if dir := path.Dir(strings.TrimPrefix(name, "/")); dir != "." {
		if err := f.MkdirAll("/" + dir); err != nil {
			return err
		}
	}
	file, err := f.Create(name)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
