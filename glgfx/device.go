// Package glgfx implements graphics.Device on OpenGL 4.1 core. All calls
// must come from the goroutine that owns the GL context.
package glgfx

import (
	"fmt"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/tmaxted/oriel/geometry"
	"github.com/tmaxted/oriel/graphics"
)

var glInitOnce sync.Once

// Device creates GL-backed mesh and texture buffers. The calling goroutine
// must already hold a current GL context.
type Device struct{}

func NewDevice() (*Device, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	return &Device{}, nil
}

func (d *Device) CreateMeshBuffer(vertexCount, faceCount int, format geometry.VertexFormat) (graphics.MeshBuffer, error) {
	if vertexCount <= 0 {
		return nil, fmt.Errorf("mesh buffer needs at least one vertex, got %d", vertexCount)
	}
	b := &MeshBuffer{
		format:      format,
		vertexCount: vertexCount,
		faceCount:   faceCount,
		stride:      format.Stride(),
	}

	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, vertexCount*b.stride*4, nil, gl.STATIC_DRAW)

	strideBytes := int32(b.stride * 4)
	var index uint32
	offset := 0
	attr := func(size int32) {
		gl.EnableVertexAttribArray(index)
		gl.VertexAttribPointer(index, size, gl.FLOAT, false, strideBytes, gl.PtrOffset(offset))
		index++
		offset += int(size) * 4
	}
	attr(3)
	if format&geometry.VertexNormal != 0 {
		attr(3)
	}
	if format&geometry.VertexTexcoord != 0 {
		attr(2)
	}
	if format&geometry.VertexColor != 0 {
		attr(4)
	}

	if faceCount > 0 {
		gl.GenBuffers(1, &b.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, faceCount*3*4, nil, gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	return b, nil
}

// MeshBuffer is a VAO with preallocated vertex and index storage filled
// by incremental BufferSubData slices.
type MeshBuffer struct {
	vao, vbo, ebo uint32
	format        geometry.VertexFormat
	stride        int
	vertexCount   int
	faceCount     int
}

func (b *MeshBuffer) UploadVertices(verts []geometry.Vertex, offset *int, maxCount int) error {
	n := len(verts) - *offset
	if n > maxCount {
		n = maxCount
	}
	if n <= 0 {
		return nil
	}
	if *offset+n > b.vertexCount {
		return fmt.Errorf("vertex upload overruns buffer (%d+%d > %d)", *offset, n, b.vertexCount)
	}
	data := make([]float32, 0, n*b.stride)
	for _, v := range verts[*offset : *offset+n] {
		data = geometry.Interleave(data, v, b.format)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, *offset*b.stride*4, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	*offset += n
	return nil
}

func (b *MeshBuffer) UploadFaces(faces []geometry.Face, offset *int, maxCount int) error {
	n := len(faces) - *offset
	if n > maxCount {
		n = maxCount
	}
	if n <= 0 {
		return nil
	}
	if *offset+n > b.faceCount {
		return fmt.Errorf("face upload overruns buffer (%d+%d > %d)", *offset, n, b.faceCount)
	}
	data := make([]uint32, 0, n*3)
	for _, f := range faces[*offset : *offset+n] {
		data = append(data, f[0], f[1], f[2])
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
	gl.BufferSubData(gl.ELEMENT_ARRAY_BUFFER, *offset*3*4, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	*offset += n
	return nil
}

func (b *MeshBuffer) VertexCount() int { return b.vertexCount }
func (b *MeshBuffer) FaceCount() int   { return b.faceCount }

func (b *MeshBuffer) Draw() {
	gl.BindVertexArray(b.vao)
	if b.faceCount > 0 {
		gl.DrawElements(gl.TRIANGLES, int32(b.faceCount*3), gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, int32(b.vertexCount))
	}
	gl.BindVertexArray(0)
}

func (b *MeshBuffer) Destroy() {
	gl.DeleteBuffers(1, &b.vbo)
	if b.ebo != 0 {
		gl.DeleteBuffers(1, &b.ebo)
	}
	gl.DeleteVertexArrays(1, &b.vao)
}

func (d *Device) CreateTextureBuffer(width, height int, filter graphics.TextureFilter) (graphics.TextureBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture buffer needs positive dimensions, got %dx%d", width, height)
	}
	b := &TextureBuffer{width: width, height: height, filter: filter}
	gl.GenTextures(1, &b.id)
	gl.BindTexture(gl.TEXTURE_2D, b.id)

	minFilter, magFilter := glFilterMode(filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return b, nil
}

// TextureBuffer is a GL texture filled by incremental TexSubImage2D row
// bands.
type TextureBuffer struct {
	id            uint32
	width, height int
	filter        graphics.TextureFilter
}

func (b *TextureBuffer) UploadRows(rows []byte, rowOffset *int, maxRows int) error {
	stride := b.width * 4
	n := len(rows) / stride
	if n > maxRows {
		n = maxRows
	}
	if n <= 0 {
		return nil
	}
	if *rowOffset+n > b.height {
		return fmt.Errorf("row upload overruns texture (%d+%d > %d)", *rowOffset, n, b.height)
	}
	gl.BindTexture(gl.TEXTURE_2D, b.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, int32(*rowOffset), int32(b.width), int32(n),
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rows[:n*stride]))
	*rowOffset += n
	if *rowOffset >= b.height && b.filter == graphics.FilterMipmap {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (b *TextureBuffer) Width() int  { return b.width }
func (b *TextureBuffer) Height() int { return b.height }

func (b *TextureBuffer) Bind(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, b.id)
}

func (b *TextureBuffer) Destroy() {
	gl.DeleteTextures(1, &b.id)
}

func glFilterMode(filter graphics.TextureFilter) (minFilter, magFilter int32) {
	switch filter {
	case graphics.FilterMipmap:
		return gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR
	case graphics.FilterNearest:
		return gl.NEAREST, gl.NEAREST
	default:
		return gl.LINEAR, gl.LINEAR
	}
}
