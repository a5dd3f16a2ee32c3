package audio

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/tmaxted/oriel/content"
)

// PortAudioEngine plays sources through the default output device.
type PortAudioEngine struct {
	mu      sync.Mutex
	sources []*paSource
}

// NewPortAudioEngine initializes portaudio. Callers own the returned
// engine and must Close it to terminate portaudio.
func NewPortAudioEngine() (*PortAudioEngine, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return &PortAudioEngine{}, nil
}

// CreateSource opens an output stream for the decoded sound. The stream
// stays stopped until Play.
func (e *PortAudioEngine) CreateSource(snd *content.Sound) (Source, error) {
	if snd == nil || len(snd.Samples) == 0 {
		return nil, fmt.Errorf("sound has no samples")
	}
	if snd.Channels <= 0 || snd.SampleRate <= 0 {
		return nil, fmt.Errorf("sound has no format (%d channels at %d Hz)", snd.Channels, snd.SampleRate)
	}
	s := &paSource{snd: snd}
	stream, err := portaudio.OpenDefaultStream(0, snd.Channels, float64(snd.SampleRate),
		portaudio.FramesPerBufferUnspecified, s.fill)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	s.stream = stream

	e.mu.Lock()
	e.sources = append(e.sources, s)
	e.mu.Unlock()
	return s, nil
}

// Close stops all live sources and terminates portaudio.
func (e *PortAudioEngine) Close() error {
	e.mu.Lock()
	sources := e.sources
	e.sources = nil
	e.mu.Unlock()
	for _, s := range sources {
		if err := s.Close(); err != nil {
			log.Printf("audio: closing source: %v", err)
		}
	}
	return portaudio.Terminate()
}

// paSource plays one decoded sound. The portaudio callback reads the
// cursor under the same mutex Play/Stop use; each callback fill is small
// so contention is negligible.
type paSource struct {
	snd    *content.Sound
	stream *portaudio.Stream

	mu      sync.Mutex
	cursor  int
	playing bool
	started bool
	closed  bool
}

// fill is the portaudio output callback.
func (s *paSource) fill(out []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(out, s.snd.Samples[s.cursor:])
	s.cursor += n
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if s.cursor >= len(s.snd.Samples) {
		s.playing = false
	}
}

func (s *paSource) Play() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("source is closed")
	}
	wasStarted := s.started
	s.cursor = 0
	s.playing = true
	s.started = true
	s.mu.Unlock()
	// The stream keeps running after the samples run out, zero filling;
	// a restart only rewinds the cursor.
	if wasStarted {
		return nil
	}
	return s.stream.Start()
}

func (s *paSource) Stop() error {
	s.mu.Lock()
	if !s.playing && s.cursor == 0 {
		s.mu.Unlock()
		return nil
	}
	wasStarted := s.started
	s.playing = false
	s.started = false
	s.cursor = 0
	s.mu.Unlock()
	if !wasStarted {
		return nil
	}
	return s.stream.Stop()
}

func (s *paSource) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Tap copies the most recently played samples into out, newest last.
func (s *paSource) Tap(out []float32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.cursor
	start := end - len(out)
	if start < 0 {
		start = 0
	}
	return copy(out, s.snd.Samples[start:end])
}

func (s *paSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.playing = false
	s.mu.Unlock()
	return s.stream.Close()
}
