package geometry

import (
	"github.com/chewxy/math32"
)

// VertexFormat describes which attributes a mesh's vertices carry.
// Position is always present; the remaining attributes are optional flags.
type VertexFormat uint32

const (
	VertexPosition VertexFormat = 1 << iota
	VertexNormal
	VertexTexcoord
	VertexColor
)

// Stride returns the per-vertex size in float32 elements for the format.
func (f VertexFormat) Stride() int {
	n := 3
	if f&VertexNormal != 0 {
		n += 3
	}
	if f&VertexTexcoord != 0 {
		n += 2
	}
	if f&VertexColor != 0 {
		n += 4
	}
	return n
}

// Vertex is a full interleaved vertex. Attributes not selected by the
// owning mesh's format are ignored on upload.
type Vertex struct {
	Pos      [3]float32
	Normal   [3]float32
	Texcoord [2]float32
	Color    [4]float32
}

// Face is a triangle as three vertex indices.
type Face [3]uint32

// Mesh is a fully decoded, CPU-side mesh: the intermediate data object
// produced by the import phase of a mesh load.
type Mesh struct {
	Name     string
	Format   VertexFormat
	Vertices []Vertex
	Faces    []Face
}

// Extents is an axis-aligned bounding box in local coordinates.
type Extents struct {
	Min [3]float32
	Max [3]float32
}

// Center returns the midpoint of the extents.
func (e Extents) Center() [3]float32 {
	return [3]float32{
		(e.Min[0] + e.Max[0]) * 0.5,
		(e.Min[1] + e.Max[1]) * 0.5,
		(e.Min[2] + e.Max[2]) * 0.5,
	}
}

// Radius returns the distance from the center to the farthest corner.
func (e Extents) Radius() float32 {
	dx := (e.Max[0] - e.Min[0]) * 0.5
	dy := (e.Max[1] - e.Min[1]) * 0.5
	dz := (e.Max[2] - e.Min[2]) * 0.5
	return math32.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Bounds computes the mesh's extents over all vertex positions.
func (m *Mesh) Bounds() Extents {
	if len(m.Vertices) == 0 {
		return Extents{}
	}
	e := Extents{Min: m.Vertices[0].Pos, Max: m.Vertices[0].Pos}
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			e.Min[i] = math32.Min(e.Min[i], v.Pos[i])
			e.Max[i] = math32.Max(e.Max[i], v.Pos[i])
		}
	}
	return e
}

// Interleave appends the format-selected attributes of v to dst and
// returns the extended slice. The element count appended equals
// Format.Stride().
func Interleave(dst []float32, v Vertex, f VertexFormat) []float32 {
	dst = append(dst, v.Pos[0], v.Pos[1], v.Pos[2])
	if f&VertexNormal != 0 {
		dst = append(dst, v.Normal[0], v.Normal[1], v.Normal[2])
	}
	if f&VertexTexcoord != 0 {
		dst = append(dst, v.Texcoord[0], v.Texcoord[1])
	}
	if f&VertexColor != 0 {
		dst = append(dst, v.Color[0], v.Color[1], v.Color[2], v.Color[3])
	}
	return dst
}
