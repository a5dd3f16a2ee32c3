// Package options holds the demo viewer's configuration: defaults,
// overridden by an optional TOML config file, overridden by flags.
package options

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Options configures the viewer and the resource pipeline.
type Options struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`

	// AssetRoot is the OS directory the resource filesystem is rooted
	// at.
	AssetRoot string `toml:"asset_root"`

	// FrameBudgetMS bounds the time one scheduler pass may spend
	// buffering resources each frame. Zero means unlimited.
	FrameBudgetMS int `toml:"frame_budget_ms"`

	// Audio enables the PortAudio backend; when false sounds load into
	// a null engine.
	Audio bool `toml:"audio"`
}

// Default returns the baseline configuration.
func Default() *Options {
	return &Options{
		Title:         "oriel",
		Width:         1280,
		Height:        720,
		AssetRoot:     ".",
		FrameBudgetMS: 4,
		Audio:         true,
	}
}

// Load reads a TOML config file over the defaults.
func Load(path string) (*Options, error) {
	o := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, o); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return o, nil
}

// FrameBudget returns the per-frame scheduler budget as a duration.
func (o *Options) FrameBudget() time.Duration {
	return time.Duration(o.FrameBudgetMS) * time.Millisecond
}
