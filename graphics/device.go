package graphics

import (
	"github.com/tmaxted/oriel/geometry"
)

// TextureFilter selects the sampling mode for a texture buffer.
type TextureFilter int

const (
	FilterNearest TextureFilter = iota
	FilterLinear
	FilterMipmap
)

func (f TextureFilter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterLinear:
		return "linear"
	case FilterMipmap:
		return "mipmap"
	default:
		return "unknown"
	}
}

// Device creates GPU buffer objects. Buffers must only be created and
// touched from the goroutine that owns the graphics context.
type Device interface {
	// CreateMeshBuffer allocates an empty mesh buffer sized for
	// vertexCount vertices and faceCount triangles of the given format.
	CreateMeshBuffer(vertexCount, faceCount int, format geometry.VertexFormat) (MeshBuffer, error)

	// CreateTextureBuffer allocates an empty RGBA texture buffer.
	CreateTextureBuffer(width, height int, filter TextureFilter) (TextureBuffer, error)
}

// MeshBuffer is a GPU-side mesh populated incrementally. Upload methods
// advance *offset by the number of elements actually written, never more
// than maxCount per call.
type MeshBuffer interface {
	UploadVertices(verts []geometry.Vertex, offset *int, maxCount int) error
	UploadFaces(faces []geometry.Face, offset *int, maxCount int) error
	VertexCount() int
	FaceCount() int
	Draw()
	Destroy()
}

// TextureBuffer is a GPU-side texture populated row band by row band.
// rows holds tightly packed RGBA pixels for the band starting at *rowOffset.
type TextureBuffer interface {
	UploadRows(rows []byte, rowOffset *int, maxRows int) error
	Width() int
	Height() int
	Bind(unit int)
	Destroy()
}
