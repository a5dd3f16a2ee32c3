package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/tmaxted/oriel/content"
	"github.com/tmaxted/oriel/resource"
)

// AudioHandler decodes compressed audio (mp3/ogg/flac) to PCM through
// an ffmpeg pipe: the resource stream goes in on stdin, interleaved
// f32le samples come back on stdout. Requires an ffmpeg binary on PATH.
type AudioHandler struct {
	// SampleRate and Channels of the decoded output; zero values mean
	// 44100 Hz stereo.
	SampleRate int
	Channels   int
}

var audioExts = map[string]bool{"mp3": true, "ogg": true, "flac": true}

func (AudioHandler) SupportsImport(ext string) bool { return audioExts[ext] }
func (AudioHandler) SupportsExport(ext string) bool { return false }

func (h AudioHandler) format() (rate, channels int) {
	rate, channels = h.SampleRate, h.Channels
	if rate <= 0 {
		rate = 44100
	}
	if channels <= 0 {
		channels = 2
	}
	return rate, channels
}

func (h AudioHandler) Import(m *resource.Manager, p resource.Path) (any, error) {
	f, err := m.OpenResource(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rate, channels := h.format()
	var out bytes.Buffer
	err = ffmpeg.Input("pipe:").
		Output("pipe:", ffmpeg.KwArgs{
			"f":      "f32le",
			"acodec": "pcm_f32le",
			"ac":     channels,
			"ar":     rate,
		}).
		WithInput(f).
		WithOutput(&out).
		Run()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg decode of %q: %v", resource.ErrInvalidFormat, p.File(), err)
	}

	raw := out.Bytes()
	snd := &content.Sound{
		SampleRate: rate,
		Channels:   channels,
		Samples:    make([]float32, len(raw)/4),
	}
	for i := range snd.Samples {
		snd.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	if len(snd.Samples) == 0 {
		return nil, fmt.Errorf("%w: %q decoded to no samples", resource.ErrInvalidFormat, p.File())
	}
	return snd, nil
}

func (AudioHandler) Export(res any, m *resource.Manager, p resource.Path) error {
	return fmt.Errorf("%w: compressed audio export", resource.ErrNotSupported)
}
