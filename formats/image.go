// Package formats holds the optional format handlers registered on top
// of the resource manager's built-ins: still images (including the
// engine's DXT-compressed texture container) and ffmpeg-decoded
// compressed audio.
package formats

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/h2non/filetype"
	"github.com/mauserzjeh/dxt"
	"github.com/pierrec/lz4/v4"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/tmaxted/oriel/content"
	"github.com/tmaxted/oriel/resource"
)

// ImageHandler imports png/jpeg/bmp/tiff images and the engine's .ctex
// compressed texture container; it exports png.
type ImageHandler struct{}

var imageExts = map[string]bool{
	"png": true, "jpg": true, "jpeg": true,
	"bmp": true, "tif": true, "tiff": true,
	"ctex": true,
}

func (ImageHandler) SupportsImport(ext string) bool { return imageExts[ext] }
func (ImageHandler) SupportsExport(ext string) bool { return ext == "png" }

func (ImageHandler) Import(m *resource.Manager, p resource.Path) (any, error) {
	f, err := m.OpenResource(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if p.Ext() == "ctex" {
		return decodeCTex(f)
	}

	// Sniff the real content type; extensions lie often enough.
	br := bufio.NewReader(f)
	head, _ := br.Peek(262)
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown && !filetype.IsImage(head) {
		return nil, fmt.Errorf("%w: %q contains %s, not an image", resource.ErrInvalidFormat, p.File(), kind.MIME.Value)
	}

	src, _, err := image.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", resource.ErrInvalidFormat, p.File(), err)
	}
	return toContentImage(src), nil
}

func (ImageHandler) Export(res any, m *resource.Manager, p resource.Path) error {
	img, ok := res.(*content.Image)
	if !ok {
		return fmt.Errorf("%w: cannot export %T as an image", resource.ErrInvalidArgument, res)
	}
	if err := img.Validate(); err != nil {
		return fmt.Errorf("%w: %v", resource.ErrInvalidArgument, err)
	}
	rgba := &image.RGBA{
		Pix:    img.Pix,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	w, err := m.CreateResource(p)
	if err != nil {
		return err
	}
	if err := png.Encode(w, rgba); err != nil {
		w.Close()
		return fmt.Errorf("%w: encode %q: %v", resource.ErrIO, p.File(), err)
	}
	return w.Close()
}

func toContentImage(src image.Image) *content.Image {
	bounds := src.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	return &content.Image{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    rgba.Pix,
	}
}

// The .ctex container:
//
//	magic "CTEX" | version u16 | pixFormat u8 | flags u8 |
//	width u32 | height u32 | rawSize u32 | storedSize u32 | data
//
// pixFormat selects raw RGBA or a DXT block compression; flag bit 0
// marks an lz4 block compressed payload.
const (
	ctexVersion = 1

	ctexRGBA = 1
	ctexDXT1 = 2
	ctexDXT5 = 3

	ctexFlagLZ4 = 1 << 0

	// Caps on header-declared sizes, so corrupt files fail with
	// ErrInvalidFormat instead of a giant allocation.
	ctexMaxPayload = 1 << 28
	ctexMaxDim     = 1 << 14
)

var ctexMagic = [4]byte{'C', 'T', 'E', 'X'}

type ctexHeader struct {
	Magic      [4]byte
	Version    uint16
	PixFormat  uint8
	Flags      uint8
	Width      uint32
	Height     uint32
	RawSize    uint32
	StoredSize uint32
}

func decodeCTex(f io.Reader) (*content.Image, error) {
	var hdr ctexHeader
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: short ctex header: %v", resource.ErrInvalidFormat, err)
	}
	if hdr.Magic != ctexMagic {
		return nil, fmt.Errorf("%w: bad ctex magic %q", resource.ErrInvalidFormat, hdr.Magic[:])
	}
	if hdr.Version != ctexVersion {
		return nil, fmt.Errorf("%w: unsupported ctex version %d", resource.ErrInvalidFormat, hdr.Version)
	}
	if hdr.StoredSize > ctexMaxPayload || hdr.RawSize > ctexMaxPayload {
		return nil, fmt.Errorf("%w: ctex payload size %d/%d exceeds limit", resource.ErrInvalidFormat, hdr.StoredSize, hdr.RawSize)
	}
	if hdr.Width == 0 || hdr.Height == 0 || hdr.Width > ctexMaxDim || hdr.Height > ctexMaxDim {
		return nil, fmt.Errorf("%w: unreasonable ctex dimensions %dx%d", resource.ErrInvalidFormat, hdr.Width, hdr.Height)
	}
	stored := make([]byte, hdr.StoredSize)
	if _, err := io.ReadFull(f, stored); err != nil {
		return nil, fmt.Errorf("%w: truncated ctex payload: %v", resource.ErrInvalidFormat, err)
	}

	data := stored
	if hdr.Flags&ctexFlagLZ4 != 0 {
		raw := make([]byte, hdr.RawSize)
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: ctex lz4: %v", resource.ErrInvalidFormat, err)
		}
		data = raw[:n]
	}

	w, h := int(hdr.Width), int(hdr.Height)
	var pix []byte
	var err error
	switch hdr.PixFormat {
	case ctexRGBA:
		if len(data) != w*h*4 {
			return nil, fmt.Errorf("%w: ctex rgba payload is %d bytes, want %d", resource.ErrInvalidFormat, len(data), w*h*4)
		}
		pix = data
	case ctexDXT1:
		pix, err = dxt.DecodeDXT1(data, uint(w), uint(h))
	case ctexDXT5:
		pix, err = dxt.DecodeDXT5(data, uint(w), uint(h))
	default:
		return nil, fmt.Errorf("%w: unknown ctex pixel format %d", resource.ErrInvalidFormat, hdr.PixFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: ctex dxt decode: %v", resource.ErrInvalidFormat, err)
	}
	img := &content.Image{Width: w, Height: h, Pix: pix}
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", resource.ErrInvalidFormat, err)
	}
	return img, nil
}

// EncodeCTex writes img as a raw-RGBA ctex container, lz4 compressed
// when that shrinks the payload. Used by asset build tooling and tests.
func EncodeCTex(w io.Writer, img *content.Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	hdr := ctexHeader{
		Magic:     ctexMagic,
		Version:   ctexVersion,
		PixFormat: ctexRGBA,
		Width:     uint32(img.Width),
		Height:    uint32(img.Height),
		RawSize:   uint32(len(img.Pix)),
	}
	stored := img.Pix
	comp := make([]byte, lz4.CompressBlockBound(len(img.Pix)))
	if n, err := lz4.CompressBlock(img.Pix, comp, nil); err == nil && n > 0 && n < len(img.Pix) {
		hdr.Flags |= ctexFlagLZ4
		stored = comp[:n]
	}
	hdr.StoredSize = uint32(len(stored))
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err := w.Write(stored)
	return err
}
