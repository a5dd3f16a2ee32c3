// Package audio provides the sound backend: playable sources created
// from decoded PCM data.
package audio

// We'll be using portaudio for audio output handling.
// macos:	brew install portaudio
// debian:	sudo apt-get install portaudio19-dev
// windows:	pacman -S mingw-w64-x86_64-portaudio

import (
	"sync"

	"github.com/tmaxted/oriel/content"
)

// Source is a playable instance of a decoded sound.
type Source interface {
	// Play starts or restarts playback from the beginning.
	Play() error
	// Stop halts playback. The source can be played again.
	Stop() error
	// Playing reports whether the source is currently audible.
	Playing() bool
	// Tap copies the most recently played sample frames into out and
	// returns the number of samples written. Used for visualization.
	Tap(out []float32) int
	// Close releases the source's stream resources.
	Close() error
}

// Engine creates sound sources. Sources must be created from the
// scheduling goroutine; playback itself runs on the backend's own
// threads.
type Engine interface {
	CreateSource(snd *content.Sound) (Source, error)
	Close() error
}

// NullEngine discards all audio. It stands in for the real backend in
// headless runs and tests.
type NullEngine struct{}

func NewNullEngine() *NullEngine { return &NullEngine{} }

func (*NullEngine) CreateSource(snd *content.Sound) (Source, error) {
	return &nullSource{snd: snd}, nil
}

func (*NullEngine) Close() error { return nil }

type nullSource struct {
	mu      sync.Mutex
	snd     *content.Sound
	playing bool
}

func (s *nullSource) Play() error {
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
	return nil
}

func (s *nullSource) Stop() error {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	return nil
}

func (s *nullSource) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *nullSource) Tap(out []float32) int {
	n := copy(out, s.snd.Samples)
	return n
}

func (s *nullSource) Close() error { return s.Stop() }
