package vfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemReadWrite(t *testing.T) {
	f, err := NewMem()
	require.NoError(t, err)
	assert.True(t, f.Writable())

	require.NoError(t, f.MkdirAll("/models/ships"))
	require.NoError(t, f.WriteFile("/models/ships/a.omsh", []byte("payload")))

	assert.True(t, f.Exists("/models/ships/a.omsh"))
	assert.False(t, f.Exists("/models/ships/b.omsh"))

	data, err := f.ReadFile("/models/ships/a.omsh")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	info, err := f.Stat("/models/ships/a.omsh")
	require.NoError(t, err)
	assert.EqualValues(t, 7, info.Size())

	entries, err := f.List("/models/ships")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.omsh", entries[0].Name())

	require.NoError(t, f.Remove("/models/ships/a.omsh"))
	assert.False(t, f.Exists("/models/ships/a.omsh"))
}

func TestOpenMissing(t *testing.T) {
	f, err := NewMem()
	require.NoError(t, err)

	_, err = f.Open("/missing.omsh")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestCreateStream(t *testing.T) {
	f, err := NewMem()
	require.NoError(t, err)

	w, err := f.Create("/out.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("ab"))
	require.NoError(t, err)
	_, err = w.Write([]byte("cd"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := f.ReadFile("/out.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), data)

	// Create truncates.
	w, err = f.Create("/out.bin")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	data, err = f.ReadFile("/out.bin")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadOnly(t *testing.T) {
	mem, err := NewMem()
	require.NoError(t, err)
	require.NoError(t, mem.WriteFile("/a.txt", []byte("x")))

	ro := New(mem.fsys, false)
	assert.False(t, ro.Writable())

	data, err := ro.ReadFile("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	err = ro.WriteFile("/b.txt", []byte("y"))
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = ro.Create("/b.txt")
	assert.ErrorIs(t, err, ErrReadOnly)

	err = ro.Remove("/a.txt")
	assert.ErrorIs(t, err, ErrReadOnly)

	err = ro.MkdirAll("/dir")
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestDispose(t *testing.T) {
	f, err := NewMem()
	require.NoError(t, err)
	require.NoError(t, f.WriteFile("/a.txt", []byte("x")))

	f.Dispose()
	assert.False(t, f.Writable())

	_, err = f.Open("/a.txt")
	assert.ErrorIs(t, err, ErrDisposed)

	err = f.WriteFile("/b.txt", []byte("y"))
	assert.ErrorIs(t, err, ErrDisposed)

	assert.False(t, f.Exists("/a.txt"))
}

func TestOSRooted(t *testing.T) {
	root := t.TempDir()
	f, err := NewOS(root)
	require.NoError(t, err)

	require.NoError(t, f.WriteFile("/nested/dir/file.txt", []byte("hello")))

	data, err := f.ReadFile("/nested/dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}
