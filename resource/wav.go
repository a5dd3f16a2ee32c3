package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/tmaxted/oriel/content"
)

// wavHandler is the second built-in handler: RIFF/WAVE decode into
// content.Sound, PCM16 encode on export. PCM16 and IEEE float32 sources
// are accepted.
type wavHandler struct{}

func (wavHandler) SupportsImport(ext string) bool { return ext == "wav" }
func (wavHandler) SupportsExport(ext string) bool { return ext == "wav" }

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3

	// Cap on the data chunk size decoded from the header; it guards the
	// sample buffer allocation against corrupt files.
	maxWavData = 1 << 28
)

type wavFmt struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

func (wavHandler) Import(m *Manager, p Path) (any, error) {
	f, err := m.OpenResource(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var riff struct {
		ChunkID [4]byte
		Size    uint32
		Format  [4]byte
	}
	if err := binary.Read(f, binary.LittleEndian, &riff); err != nil {
		return nil, fmt.Errorf("%w: short RIFF header: %v", ErrInvalidFormat, err)
	}
	if string(riff.ChunkID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("%w: %q is not a RIFF/WAVE file", ErrInvalidFormat, p.File())
	}

	var format wavFmt
	var haveFmt bool
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(f, binary.LittleEndian, &chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("%w: no data chunk in %q", ErrInvalidFormat, p.File())
			}
			return nil, fmt.Errorf("%w: wav chunk header: %v", ErrInvalidFormat, err)
		}
		switch string(chunk.ID[:]) {
		case "fmt ":
			if err := binary.Read(f, binary.LittleEndian, &format); err != nil {
				return nil, fmt.Errorf("%w: fmt chunk: %v", ErrInvalidFormat, err)
			}
			haveFmt = true
			if extra := int64(chunk.Size) - 16; extra > 0 {
				if _, err := io.CopyN(io.Discard, f, extra); err != nil {
					return nil, fmt.Errorf("%w: fmt chunk padding: %v", ErrInvalidFormat, err)
				}
			}
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidFormat)
			}
			if chunk.Size > maxWavData {
				return nil, fmt.Errorf("%w: unreasonable data chunk size %d", ErrInvalidFormat, chunk.Size)
			}
			raw := make([]byte, chunk.Size)
			if _, err := io.ReadFull(f, raw); err != nil {
				return nil, fmt.Errorf("%w: truncated data chunk: %v", ErrInvalidFormat, err)
			}
			return decodeWavData(&format, raw)
		default:
			// Skip LIST, fact, cue and friends. Chunks are word aligned.
			skip := int64(chunk.Size)
			if chunk.Size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, f, skip); err != nil {
				return nil, fmt.Errorf("%w: wav chunk %q: %v", ErrInvalidFormat, chunk.ID[:], err)
			}
		}
	}
}

func decodeWavData(format *wavFmt, raw []byte) (*content.Sound, error) {
	if format.Channels == 0 {
		return nil, fmt.Errorf("%w: wav declares zero channels", ErrInvalidFormat)
	}
	snd := &content.Sound{
		SampleRate: int(format.SampleRate),
		Channels:   int(format.Channels),
	}
	switch {
	case format.AudioFormat == wavFormatPCM && format.BitsPerSample == 16:
		snd.Samples = make([]float32, len(raw)/2)
		for i := range snd.Samples {
			s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			snd.Samples[i] = float32(s) / 32768
		}
	case format.AudioFormat == wavFormatFloat && format.BitsPerSample == 32:
		snd.Samples = make([]float32, len(raw)/4)
		for i := range snd.Samples {
			snd.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	default:
		return nil, fmt.Errorf("%w: unsupported wav encoding (format %d, %d bits)",
			ErrInvalidFormat, format.AudioFormat, format.BitsPerSample)
	}
	return snd, nil
}

func (wavHandler) Export(res any, m *Manager, p Path) error {
	snd, ok := res.(*content.Sound)
	if !ok {
		return fmt.Errorf("%w: cannot export %T as wav", ErrInvalidArgument, res)
	}
	if snd.Channels <= 0 || snd.SampleRate <= 0 {
		return fmt.Errorf("%w: sound has no format", ErrInvalidArgument)
	}

	data := make([]byte, len(snd.Samples)*2)
	for i, s := range snd.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(s*32767)))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+16+8+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, &wavFmt{
		AudioFormat:   wavFormatPCM,
		Channels:      uint16(snd.Channels),
		SampleRate:    uint32(snd.SampleRate),
		ByteRate:      uint32(snd.SampleRate * snd.Channels * 2),
		BlockAlign:    uint16(snd.Channels * 2),
		BitsPerSample: 16,
	})
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	w, err := m.CreateResource(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		return fmt.Errorf("%w: write %q: %v", ErrIO, p.File(), err)
	}
	return w.Close()
}
