package resource

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	memfs "github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmaxted/oriel/audio"
	"github.com/tmaxted/oriel/content"
	"github.com/tmaxted/oriel/geometry"
	"github.com/tmaxted/oriel/testgfx"
	"github.com/tmaxted/oriel/vfs"
)

func newTestManager(t *testing.T) (*Manager, *testgfx.Device) {
	t.Helper()
	fsys, err := vfs.NewMem()
	require.NoError(t, err)
	dev := testgfx.New()
	return NewManager(fsys, dev, audio.NewNullEngine()), dev
}

// makeMesh builds a fan of n vertices with n-2 faces.
func makeMesh(name string, n int) *geometry.Mesh {
	m := &geometry.Mesh{
		Name:     name,
		Format:   geometry.VertexPosition | geometry.VertexNormal,
		Vertices: make([]geometry.Vertex, n),
	}
	for i := range m.Vertices {
		m.Vertices[i].Pos = [3]float32{float32(i), float32(i % 7), 0}
		m.Vertices[i].Normal = [3]float32{0, 0, 1}
	}
	for i := 2; i < n; i++ {
		m.Faces = append(m.Faces, geometry.Face{0, uint32(i - 1), uint32(i)})
	}
	return m
}

type stubHandler struct {
	ext    string
	val    any
	panics bool
}

func (h *stubHandler) SupportsImport(ext string) bool { return ext == h.ext }
func (h *stubHandler) SupportsExport(ext string) bool { return false }

func (h *stubHandler) Import(m *Manager, p Path) (any, error) {
	if h.panics {
		panic("stub handler exploded")
	}
	return h.val, nil
}

func (h *stubHandler) Export(res any, m *Manager, p Path) error {
	return fmt.Errorf("stub cannot export")
}

func TestBuiltinHandlers(t *testing.T) {
	m, _ := newTestManager(t)
	for _, ext := range []string{"omsh", "oscn", "ofnt", "wav"} {
		assert.True(t, m.SupportsImport(ext), ext)
		assert.True(t, m.SupportsExport(ext), ext)
	}
	assert.False(t, m.SupportsImport("xyz"))
}

func TestRegister(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.Register(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	h := &stubHandler{ext: "stub"}
	require.NoError(t, m.Register(h))
	assert.True(t, m.SupportsImport("stub"))

	err = m.Register(h)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// A second instance of the same type is a distinct handler.
	require.NoError(t, m.Register(&stubHandler{ext: "stub2"}))
}

func TestBuiltinPrecedence(t *testing.T) {
	m, _ := newTestManager(t)
	shadow := &stubHandler{ext: "wav", val: &content.Sound{}}
	require.NoError(t, m.Register(shadow))

	_, ok := m.importerFor("wav").(*wavHandler)
	assert.True(t, ok, "built-in handler must keep claiming wav")
}

func TestImportErrors(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := Import[*geometry.Mesh](m, NewPath("relative.omsh", ""))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Import[*geometry.Mesh](m, NewPath("/thing.xyz", ""))
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = Import[*geometry.Mesh](m, NewPath("/missing.omsh", ""))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportWrongType(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Export(makeMesh("m", 8), NewPath("/m.omsh", ""), false))

	_, err := Import[*content.Image](m, NewPath("/m.omsh", ""))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHandlerFaultIsolation(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Register(&stubHandler{ext: "bad", panics: true}))
	require.NoError(t, m.Register(&stubHandler{ext: "empty", val: nil}))

	_, err := Import[*geometry.Mesh](m, NewPath("/x.bad", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandlerFault)
	var he *HandlerError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "/x.bad", he.Path.File())

	_, err = Import[*geometry.Mesh](m, NewPath("/x.empty", ""))
	assert.ErrorIs(t, err, ErrHandlerFault)
}

func TestHandlerErrorKeepsCause(t *testing.T) {
	cause := errors.New("decoder exploded")
	var err error = &HandlerError{Path: NewPath("/x.bad", ""), Err: cause}

	// Both the fault sentinel and the underlying cause stay reachable
	// through the unwrap chain.
	assert.ErrorIs(t, err, ErrHandlerFault)
	assert.ErrorIs(t, err, cause)
	assert.True(t, classified(err))
}

func TestExportOverwritePolicy(t *testing.T) {
	m, _ := newTestManager(t)
	p := NewPath("/models/fan.omsh", "")
	mesh := makeMesh("fan", 16)

	require.NoError(t, m.Export(mesh, p, false))

	err := m.Export(mesh, p, false)
	assert.ErrorIs(t, err, ErrIO)

	require.NoError(t, m.Export(mesh, p, true))

	err = m.Export(nil, p, true)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = m.Export(mesh, NewPath("models/fan.omsh", ""), true)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = m.Export(mesh, NewPath("/fan.xyz", ""), true)
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestExportReadOnlyFS(t *testing.T) {
	mfs, err := memfs.NewFS()
	require.NoError(t, err)
	m := NewManager(vfs.New(mfs, false), testgfx.New(), audio.NewNullEngine())

	err = m.Export(makeMesh("m", 4), NewPath("/m.omsh", ""), false)
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestMeshRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	mesh := makeMesh("fan", 100)
	p := NewPath("/models/fan.omsh", "")
	require.NoError(t, m.Export(mesh, p, false))

	got, err := Import[*geometry.Mesh](m, p)
	require.NoError(t, err)
	assert.Equal(t, mesh, got)
}

func TestSceneRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	scene := &content.Scene{
		Name: "hangar",
		Nodes: []content.SceneNode{
			{
				Name:     "ship",
				Mesh:     "/models/ship.omsh",
				Texture:  "/textures/hull.png",
				Position: [3]float32{1, 2, 3},
				Rotation: [3]float32{0, 90, 0},
				Scale:    [3]float32{1, 1, 1},
			},
			{Name: "floor", Mesh: "/models/floor.omsh", Scale: [3]float32{10, 1, 10}},
		},
	}
	p := NewPath("/scenes/hangar.oscn", "")
	require.NoError(t, m.Export(scene, p, false))

	got, err := Import[*content.Scene](m, p)
	require.NoError(t, err)
	assert.Equal(t, scene, got)
}

func TestSoundRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	snd := &content.Sound{
		SampleRate: 8000,
		Channels:   1,
		Samples:    []float32{0, 0.25, -0.25, 0.5, -0.5, 1, -1, 0},
	}
	p := NewPath("/sounds/blip.wav", "")
	require.NoError(t, m.Export(snd, p, false))

	got, err := Import[*content.Sound](m, p)
	require.NoError(t, err)
	assert.Equal(t, snd.SampleRate, got.SampleRate)
	assert.Equal(t, snd.Channels, got.Channels)
	require.Len(t, got.Samples, len(snd.Samples))
	for i := range snd.Samples {
		// PCM16 quantization.
		assert.InDelta(t, snd.Samples[i], got.Samples[i], 1.0/16384)
	}
}

func TestKindExtensionMismatch(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Export(makeMesh("m", 4), NewPath("/m.omsh", ""), false))

	// Copy the mesh container under a scene extension.
	data, err := m.FS().ReadFile("/m.omsh")
	require.NoError(t, err)
	require.NoError(t, m.FS().WriteFile("/m.oscn", data))

	_, err = Import[*content.Scene](m, NewPath("/m.oscn", ""))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestOversizedHeadersRejected(t *testing.T) {
	m, _ := newTestManager(t)

	// A container header declaring a multi-gigabyte payload fails fast
	// without attempting the allocation.
	var file bytes.Buffer
	require.NoError(t, binary.Write(&file, binary.LittleEndian, &struct {
		Magic      [4]byte
		Version    uint16
		Kind       uint8
		Flags      uint8
		RawSize    uint32
		StoredSize uint32
	}{nativeMagic, nativeVersion, kindMesh, 0, 0xFFFFFFF0, 0xFFFFFFF0}))
	require.NoError(t, m.FS().WriteFile("/huge.omsh", file.Bytes()))
	_, err := Import[*geometry.Mesh](m, NewPath("/huge.omsh", ""))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	// A well-formed container whose mesh payload claims billions of
	// vertices.
	var payload bytes.Buffer
	require.NoError(t, writeString(&payload, "m"))
	require.NoError(t, binary.Write(&payload, binary.LittleEndian, []uint32{0, 0xFFFFFFF0, 0}))
	file.Reset()
	require.NoError(t, writeNative(&file, kindMesh, payload.Bytes()))
	require.NoError(t, m.FS().WriteFile("/verts.omsh", file.Bytes()))
	_, err = Import[*geometry.Mesh](m, NewPath("/verts.omsh", ""))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	// Same for the scene node count.
	payload.Reset()
	require.NoError(t, writeString(&payload, "s"))
	require.NoError(t, binary.Write(&payload, binary.LittleEndian, uint32(0xFFFFFFF0)))
	file.Reset()
	require.NoError(t, writeNative(&file, kindScene, payload.Bytes()))
	require.NoError(t, m.FS().WriteFile("/nodes.oscn", file.Bytes()))
	_, err = Import[*content.Scene](m, NewPath("/nodes.oscn", ""))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	// And for a wav data chunk.
	var wav bytes.Buffer
	wav.WriteString("RIFF")
	require.NoError(t, binary.Write(&wav, binary.LittleEndian, uint32(36)))
	wav.WriteString("WAVE")
	wav.WriteString("fmt ")
	require.NoError(t, binary.Write(&wav, binary.LittleEndian, uint32(16)))
	require.NoError(t, binary.Write(&wav, binary.LittleEndian, &wavFmt{
		AudioFormat: wavFormatPCM, Channels: 1, SampleRate: 8000,
		ByteRate: 16000, BlockAlign: 2, BitsPerSample: 16,
	}))
	wav.WriteString("data")
	require.NoError(t, binary.Write(&wav, binary.LittleEndian, uint32(0xFFFFFFF0)))
	require.NoError(t, m.FS().WriteFile("/huge.wav", wav.Bytes()))
	_, err = Import[*content.Sound](m, NewPath("/huge.wav", ""))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDispose(t *testing.T) {
	m, _ := newTestManager(t)
	m.Dispose()

	_, err := Import[*geometry.Mesh](m, NewPath("/m.omsh", ""))
	assert.ErrorIs(t, err, ErrDisposed)

	err = m.Export(makeMesh("m", 4), NewPath("/m.omsh", ""), false)
	assert.ErrorIs(t, err, ErrDisposed)

	err = m.Register(&stubHandler{ext: "late"})
	assert.ErrorIs(t, err, ErrDisposed)
}
