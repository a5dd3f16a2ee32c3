// Package content holds the CPU-side data objects produced by the import
// phase of resource loading, before they are turned into GPU or audio
// buffers.
package content

import "fmt"

// Image is a decoded RGBA image, tightly packed at 4 bytes per pixel.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// NewImage allocates a zeroed image of the given size.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// Validate checks the pixel buffer matches the declared dimensions.
func (img *Image) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("image: bad dimensions %dx%d", img.Width, img.Height)
	}
	if len(img.Pix) != img.Width*img.Height*4 {
		return fmt.Errorf("image: pixel buffer is %d bytes, want %d", len(img.Pix), img.Width*img.Height*4)
	}
	return nil
}

// Rows returns the pixels of maxRows rows starting at row. The returned
// slice aliases Pix.
func (img *Image) Rows(row, maxRows int) []byte {
	if row >= img.Height {
		return nil
	}
	n := maxRows
	if row+n > img.Height {
		n = img.Height - row
	}
	stride := img.Width * 4
	return img.Pix[row*stride : (row+n)*stride]
}
