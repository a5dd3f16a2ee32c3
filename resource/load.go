package resource

import (
	"fmt"

	"github.com/tmaxted/oriel/audio"
	"github.com/tmaxted/oriel/content"
	"github.com/tmaxted/oriel/geometry"
	"github.com/tmaxted/oriel/graphics"
	"github.com/tmaxted/oriel/task"
)

// Upload chunk bounds. They cap the per-step cost of a scheduler pass;
// tuning knobs, not correctness.
const (
	maxVerticesPerStep = 1024
	maxFacesPerStep    = 1024
	maxRowsPerStep     = 16
)

// Typed task handles returned by the Load entry points.
type (
	MeshTask    = task.Task[*geometry.Mesh, graphics.MeshBuffer]
	TextureTask = task.Task[*content.Image, graphics.TextureBuffer]
	SoundTask   = task.Task[*content.Sound, audio.Source]
	SceneTask   = task.Task[*content.Scene, *content.Scene]
	FontTask    = task.Task[*content.FontData, *content.SpriteFont]
)

// produceFrom wraps a user-supplied producer so that a nil data object
// counts as a failure rather than reaching the generation phase.
func produceFrom[D any](fn func() (*D, error)) func() (*D, error) {
	return func() (*D, error) {
		d, err := fn()
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("%w: producer returned no data", ErrInvalidArgument)
		}
		return d, nil
	}
}

// meshGenerator is the resumable cursor that fills a mesh buffer in
// bounded slices: allocation first, then vertices, then faces.
type meshGenerator struct {
	dev          graphics.Device
	buf          graphics.MeshBuffer
	vertexOffset int
	faceOffset   int
}

func (g *meshGenerator) step(data *geometry.Mesh) (graphics.MeshBuffer, bool, error) {
	if g.buf == nil {
		buf, err := g.dev.CreateMeshBuffer(len(data.Vertices), len(data.Faces), data.Format)
		if err != nil {
			return nil, false, err
		}
		g.buf = buf
		return nil, false, nil
	}
	if g.vertexOffset < len(data.Vertices) {
		if err := g.buf.UploadVertices(data.Vertices, &g.vertexOffset, maxVerticesPerStep); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	if g.faceOffset < len(data.Faces) {
		if err := g.buf.UploadFaces(data.Faces, &g.faceOffset, maxFacesPerStep); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return g.buf, true, nil
}

// textureGenerator fills a texture buffer a bounded band of rows at a
// time.
type textureGenerator struct {
	dev       graphics.Device
	filter    graphics.TextureFilter
	buf       graphics.TextureBuffer
	rowOffset int
}

func (g *textureGenerator) step(data *content.Image) (graphics.TextureBuffer, bool, error) {
	if g.buf == nil {
		if err := data.Validate(); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		buf, err := g.dev.CreateTextureBuffer(data.Width, data.Height, g.filter)
		if err != nil {
			return nil, false, err
		}
		g.buf = buf
		return nil, false, nil
	}
	if g.rowOffset < data.Height {
		rows := data.Rows(g.rowOffset, maxRowsPerStep)
		if err := g.buf.UploadRows(rows, &g.rowOffset, maxRowsPerStep); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return g.buf, true, nil
}

// LoadMesh imports the mesh at p on a background goroutine and buffers
// it incrementally. Work begins on the next scheduling pass.
func (m *Manager) LoadMesh(p Path) *MeshTask {
	if err := m.check(); err != nil {
		return task.Failed[*geometry.Mesh, graphics.MeshBuffer]("mesh "+p.String(), err)
	}
	gen := &meshGenerator{dev: m.dev}
	t := task.New("mesh "+p.String(),
		produceFrom(func() (*geometry.Mesh, error) { return Import[*geometry.Mesh](m, p) }),
		gen.step)
	m.sched.Enqueue(t)
	return t
}

// LoadMeshData buffers an already-decoded mesh; the import phase is a
// no-op.
func (m *Manager) LoadMeshData(data *geometry.Mesh) *MeshTask {
	if err := m.check(); err != nil {
		return task.Failed[*geometry.Mesh, graphics.MeshBuffer]("mesh "+data.Name, err)
	}
	gen := &meshGenerator{dev: m.dev}
	t := task.FromData("mesh "+data.Name, data, gen.step)
	m.sched.Enqueue(t)
	return t
}

// LoadMeshFunc runs fn on a background goroutine to produce the mesh,
// enabling programmatic generation without a file.
func (m *Manager) LoadMeshFunc(label string, fn func() (*geometry.Mesh, error)) *MeshTask {
	if err := m.check(); err != nil {
		return task.Failed[*geometry.Mesh, graphics.MeshBuffer]("mesh "+label, err)
	}
	gen := &meshGenerator{dev: m.dev}
	t := task.New("mesh "+label, produceFrom(fn), gen.step)
	m.sched.Enqueue(t)
	return t
}

// LoadTexture imports the image at p and buffers it row band by row
// band.
func (m *Manager) LoadTexture(p Path, filter graphics.TextureFilter) *TextureTask {
	if err := m.check(); err != nil {
		return task.Failed[*content.Image, graphics.TextureBuffer]("texture "+p.String(), err)
	}
	gen := &textureGenerator{dev: m.dev, filter: filter}
	t := task.New("texture "+p.String(),
		produceFrom(func() (*content.Image, error) { return Import[*content.Image](m, p) }),
		gen.step)
	m.sched.Enqueue(t)
	return t
}

// LoadTextureData buffers an already-decoded image.
func (m *Manager) LoadTextureData(label string, data *content.Image, filter graphics.TextureFilter) *TextureTask {
	if err := m.check(); err != nil {
		return task.Failed[*content.Image, graphics.TextureBuffer]("texture "+label, err)
	}
	gen := &textureGenerator{dev: m.dev, filter: filter}
	t := task.FromData("texture "+label, data, gen.step)
	m.sched.Enqueue(t)
	return t
}

// LoadSound imports the sound at p and creates a playable source from
// it. Source creation is a single generation step.
func (m *Manager) LoadSound(p Path) *SoundTask {
	if err := m.check(); err != nil {
		return task.Failed[*content.Sound, audio.Source]("sound "+p.String(), err)
	}
	t := task.New("sound "+p.String(),
		produceFrom(func() (*content.Sound, error) { return Import[*content.Sound](m, p) }),
		func(data *content.Sound) (audio.Source, bool, error) {
			src, err := m.aud.CreateSource(data)
			if err != nil {
				return nil, false, err
			}
			return src, true, nil
		})
	m.sched.Enqueue(t)
	return t
}

// LoadScene imports the scene description at p. The scene carries no GPU
// state of its own, so generation completes in one step; referenced
// meshes and textures are loaded by the caller.
func (m *Manager) LoadScene(p Path) *SceneTask {
	if err := m.check(); err != nil {
		return task.Failed[*content.Scene, *content.Scene]("scene "+p.String(), err)
	}
	t := task.New("scene "+p.String(),
		produceFrom(func() (*content.Scene, error) { return Import[*content.Scene](m, p) }),
		func(data *content.Scene) (*content.Scene, bool, error) {
			return data, true, nil
		})
	m.sched.Enqueue(t)
	return t
}

// LoadSpriteFont imports the font data at p and assembles the final
// sprite font across sequential sub-stages: unit-quad mesh buffering,
// glyph atlas buffering, then assembly. Exactly one sub-step runs per
// scheduler pass.
func (m *Manager) LoadSpriteFont(p Path) *FontTask {
	if err := m.check(); err != nil {
		return task.Failed[*content.FontData, *content.SpriteFont]("sprite font "+p.String(), err)
	}
	asm := &fontAssembler{
		quad:    unitQuad(),
		meshGen: &meshGenerator{dev: m.dev},
		texGen:  &textureGenerator{dev: m.dev, filter: graphics.FilterLinear},
	}
	t := task.New("sprite font "+p.String(),
		produceFrom(func() (*content.FontData, error) { return Import[*content.FontData](m, p) }),
		asm.step)
	m.sched.Enqueue(t)
	return t
}

// fontAssembler chains the mesh and texture generators behind a single
// staged-task interface, preserving the bounded-cost invariant of the
// outer task.
type fontAssembler struct {
	quad    *geometry.Mesh
	meshGen *meshGenerator
	texGen  *textureGenerator

	meshBuf graphics.MeshBuffer
	texBuf  graphics.TextureBuffer
}

func (a *fontAssembler) step(data *content.FontData) (*content.SpriteFont, bool, error) {
	if data.Atlas == nil && a.texBuf == nil {
		return nil, false, fmt.Errorf("%w: font data has no glyph atlas", ErrInvalidFormat)
	}
	if a.meshBuf == nil {
		buf, done, err := a.meshGen.step(a.quad)
		if err != nil {
			return nil, false, err
		}
		if done {
			a.meshBuf = buf
		}
		return nil, false, nil
	}
	if a.texBuf == nil {
		buf, done, err := a.texGen.step(data.Atlas)
		if err != nil {
			return nil, false, err
		}
		if done {
			a.texBuf = buf
		}
		return nil, false, nil
	}
	font := &content.SpriteFont{
		Quad:       a.meshBuf,
		Atlas:      a.texBuf,
		Glyphs:     data.Glyphs,
		LineHeight: data.LineHeight,
		Baseline:   data.Baseline,
	}
	// The atlas pixels live on in the texture buffer; drop the CPU copy.
	data.Atlas = nil
	return font, true, nil
}

// unitQuad is the constant glyph quad every sprite font instances.
func unitQuad() *geometry.Mesh {
	return &geometry.Mesh{
		Name:   "font unit quad",
		Format: geometry.VertexPosition | geometry.VertexTexcoord,
		Vertices: []geometry.Vertex{
			{Pos: [3]float32{0, 0, 0}, Texcoord: [2]float32{0, 0}},
			{Pos: [3]float32{1, 0, 0}, Texcoord: [2]float32{1, 0}},
			{Pos: [3]float32{1, 1, 0}, Texcoord: [2]float32{1, 1}},
			{Pos: [3]float32{0, 1, 0}, Texcoord: [2]float32{0, 1}},
		},
		Faces: []geometry.Face{{0, 1, 2}, {0, 2, 3}},
	}
}
