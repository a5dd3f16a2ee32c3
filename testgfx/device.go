// Package testgfx implements graphics.Device in memory. It records every
// upload so tests can assert on chunk sizes and coverage, and it lets
// the resource pipeline run headless.
package testgfx

import (
	"fmt"

	"github.com/tmaxted/oriel/geometry"
	"github.com/tmaxted/oriel/graphics"
)

// Device is an in-memory graphics.Device.
type Device struct {
	Meshes   []*MeshBuffer
	Textures []*TextureBuffer

	// FailCreate makes the next buffer creation fail, for error-path
	// tests.
	FailCreate bool
}

func New() *Device { return &Device{} }

func (d *Device) CreateMeshBuffer(vertexCount, faceCount int, format geometry.VertexFormat) (graphics.MeshBuffer, error) {
	if d.FailCreate {
		return nil, fmt.Errorf("testgfx: mesh buffer creation refused")
	}
	b := &MeshBuffer{
		Format:   format,
		Vertices: make([]geometry.Vertex, vertexCount),
		Faces:    make([]geometry.Face, faceCount),
	}
	d.Meshes = append(d.Meshes, b)
	return b, nil
}

func (d *Device) CreateTextureBuffer(width, height int, filter graphics.TextureFilter) (graphics.TextureBuffer, error) {
	if d.FailCreate {
		return nil, fmt.Errorf("testgfx: texture buffer creation refused")
	}
	b := &TextureBuffer{W: width, H: height, Filter: filter, Pix: make([]byte, width*height*4)}
	d.Textures = append(d.Textures, b)
	return b, nil
}

// MeshBuffer stores uploaded data and the size of every upload chunk.
type MeshBuffer struct {
	Format   geometry.VertexFormat
	Vertices []geometry.Vertex
	Faces    []geometry.Face

	VertexChunks []int
	FaceChunks   []int
	Draws        int
	Destroyed    bool
}

func (b *MeshBuffer) UploadVertices(verts []geometry.Vertex, offset *int, maxCount int) error {
	n := len(verts) - *offset
	if n > maxCount {
		n = maxCount
	}
	if n < 0 {
		return fmt.Errorf("testgfx: vertex offset %d past end %d", *offset, len(verts))
	}
	if *offset+n > len(b.Vertices) {
		return fmt.Errorf("testgfx: vertex upload overruns buffer (%d+%d > %d)", *offset, n, len(b.Vertices))
	}
	copy(b.Vertices[*offset:], verts[*offset:*offset+n])
	b.VertexChunks = append(b.VertexChunks, n)
	*offset += n
	return nil
}

func (b *MeshBuffer) UploadFaces(faces []geometry.Face, offset *int, maxCount int) error {
	n := len(faces) - *offset
	if n > maxCount {
		n = maxCount
	}
	if n < 0 {
		return fmt.Errorf("testgfx: face offset %d past end %d", *offset, len(faces))
	}
	if *offset+n > len(b.Faces) {
		return fmt.Errorf("testgfx: face upload overruns buffer (%d+%d > %d)", *offset, n, len(b.Faces))
	}
	copy(b.Faces[*offset:], faces[*offset:*offset+n])
	b.FaceChunks = append(b.FaceChunks, n)
	*offset += n
	return nil
}

func (b *MeshBuffer) VertexCount() int { return len(b.Vertices) }
func (b *MeshBuffer) FaceCount() int   { return len(b.Faces) }
func (b *MeshBuffer) Draw()            { b.Draws++ }
func (b *MeshBuffer) Destroy()         { b.Destroyed = true }

// TextureBuffer stores uploaded rows and the row count of every band.
type TextureBuffer struct {
	W, H   int
	Filter graphics.TextureFilter
	Pix    []byte

	RowChunks []int
	Destroyed bool
}

func (b *TextureBuffer) UploadRows(rows []byte, rowOffset *int, maxRows int) error {
	stride := b.W * 4
	n := len(rows) / stride
	if n > maxRows {
		n = maxRows
	}
	if *rowOffset+n > b.H {
		return fmt.Errorf("testgfx: row upload overruns texture (%d+%d > %d)", *rowOffset, n, b.H)
	}
	copy(b.Pix[*rowOffset*stride:], rows[:n*stride])
	b.RowChunks = append(b.RowChunks, n)
	*rowOffset += n
	return nil
}

func (b *TextureBuffer) Width() int    { return b.W }
func (b *TextureBuffer) Height() int   { return b.H }
func (b *TextureBuffer) Bind(unit int) {}
func (b *TextureBuffer) Destroy()      { b.Destroyed = true }
