package options

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	o := Default()
	assert.Equal(t, 1280, o.Width)
	assert.Equal(t, 720, o.Height)
	assert.Equal(t, 4*time.Millisecond, o.FrameBudget())
	assert.True(t, o.Audio)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oriel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
title = "test window"
width = 640
frame_budget_ms = 8
audio = false
asset_root = "/srv/assets"
`), 0o644))

	o, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test window", o.Title)
	assert.Equal(t, 640, o.Width)
	// Unset keys keep their defaults.
	assert.Equal(t, 720, o.Height)
	assert.Equal(t, 8*time.Millisecond, o.FrameBudget())
	assert.False(t, o.Audio)
	assert.Equal(t, "/srv/assets", o.AssetRoot)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = }"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
