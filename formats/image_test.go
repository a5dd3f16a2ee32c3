package formats

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmaxted/oriel/audio"
	"github.com/tmaxted/oriel/content"
	"github.com/tmaxted/oriel/resource"
	"github.com/tmaxted/oriel/testgfx"
	"github.com/tmaxted/oriel/vfs"
)

func newImageManager(t *testing.T) *resource.Manager {
	t.Helper()
	fsys, err := vfs.NewMem()
	require.NoError(t, err)
	m := resource.NewManager(fsys, testgfx.New(), audio.NewNullEngine())
	require.NoError(t, m.Register(ImageHandler{}))
	return m
}

func checkerImage(w, h int) *content.Image {
	img := content.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			if (x+y)%2 == 0 {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 255, 0, 0
			} else {
				img.Pix[i+1] = 255
			}
			img.Pix[i+3] = 255
		}
	}
	return img
}

func TestPNGRoundTrip(t *testing.T) {
	m := newImageManager(t)
	img := checkerImage(16, 12)
	p := resource.NewPath("/textures/check.png", "")

	require.NoError(t, m.Export(img, p, false))

	got, err := resource.Import[*content.Image](m, p)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestImportPNGFile(t *testing.T) {
	m := newImageManager(t)

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	require.NoError(t, m.FS().WriteFile("/a.png", buf.Bytes()))

	got, err := resource.Import[*content.Image](m, resource.NewPath("/a.png", ""))
	require.NoError(t, err)
	assert.Equal(t, 4, got.Width)
	assert.Equal(t, 4, got.Height)
	assert.Equal(t, src.Pix, got.Pix)
}

func TestImportRejectsNonImage(t *testing.T) {
	m := newImageManager(t)

	// A WAV header behind an image extension.
	data := append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 256)...)
	require.NoError(t, m.FS().WriteFile("/fake.png", data))

	_, err := resource.Import[*content.Image](m, resource.NewPath("/fake.png", ""))
	assert.ErrorIs(t, err, resource.ErrInvalidFormat)
}

func TestImportGarbage(t *testing.T) {
	m := newImageManager(t)
	require.NoError(t, m.FS().WriteFile("/noise.png", []byte("not an image at all")))

	_, err := resource.Import[*content.Image](m, resource.NewPath("/noise.png", ""))
	assert.ErrorIs(t, err, resource.ErrInvalidFormat)
}

func TestCTexRoundTrip(t *testing.T) {
	m := newImageManager(t)
	img := checkerImage(32, 32)

	var buf bytes.Buffer
	require.NoError(t, EncodeCTex(&buf, img))
	require.NoError(t, m.FS().WriteFile("/t.ctex", buf.Bytes()))

	got, err := resource.Import[*content.Image](m, resource.NewPath("/t.ctex", ""))
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestCTexBadMagic(t *testing.T) {
	m := newImageManager(t)
	require.NoError(t, m.FS().WriteFile("/bad.ctex", make([]byte, 64)))

	_, err := resource.Import[*content.Image](m, resource.NewPath("/bad.ctex", ""))
	assert.ErrorIs(t, err, resource.ErrInvalidFormat)
}

func TestCTexOversizedHeader(t *testing.T) {
	m := newImageManager(t)

	// Header-declared sizes beyond the sanity caps fail before any
	// payload allocation.
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &ctexHeader{
		Magic: ctexMagic, Version: ctexVersion, PixFormat: ctexRGBA,
		Width: 2, Height: 2, RawSize: 0xFFFFFFF0, StoredSize: 0xFFFFFFF0,
	}))
	require.NoError(t, m.FS().WriteFile("/huge.ctex", buf.Bytes()))
	_, err := resource.Import[*content.Image](m, resource.NewPath("/huge.ctex", ""))
	assert.ErrorIs(t, err, resource.ErrInvalidFormat)

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &ctexHeader{
		Magic: ctexMagic, Version: ctexVersion, PixFormat: ctexRGBA,
		Width: 1 << 20, Height: 2, RawSize: 16, StoredSize: 16,
	}))
	require.NoError(t, m.FS().WriteFile("/wide.ctex", buf.Bytes()))
	_, err = resource.Import[*content.Image](m, resource.NewPath("/wide.ctex", ""))
	assert.ErrorIs(t, err, resource.ErrInvalidFormat)
}

func TestExportWrongType(t *testing.T) {
	m := newImageManager(t)
	err := m.Export(&content.Sound{}, resource.NewPath("/x.png", ""), false)
	assert.ErrorIs(t, err, resource.ErrInvalidArgument)
}
