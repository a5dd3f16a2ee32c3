package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/tmaxted/oriel/content"
	"github.com/tmaxted/oriel/geometry"
)

// The native container wraps the framework's own binary resources:
//
//	magic "ORES" | version u16 | kind u8 | flags u8 |
//	rawSize u32 | storedSize u32 | payload
//
// The payload is lz4 block compressed when flag bit 0 is set; payloads
// that do not shrink are stored raw. All integers are little-endian.
const (
	nativeVersion = 1

	kindMesh  = 1
	kindScene = 2
	kindFont  = 3

	flagLZ4 = 1 << 0
)

// Sanity caps on counts and sizes decoded from untrusted headers, so a
// corrupt file fails with ErrInvalidFormat instead of a giant
// allocation.
const (
	maxNativePayload = 1 << 28 // 256 MiB
	maxMeshElements  = 1 << 22
	maxSceneNodes    = 1 << 20
	maxGlyphs        = 1 << 20
	maxAtlasDim      = 1 << 14
)

var nativeMagic = [4]byte{'O', 'R', 'E', 'S'}

var nativeKinds = map[string]uint8{
	"omsh": kindMesh,
	"oscn": kindScene,
	"ofnt": kindFont,
}

// nativeHandler is one of the two built-in handlers; it is always first
// in the registry.
type nativeHandler struct{}

func (nativeHandler) SupportsImport(ext string) bool { _, ok := nativeKinds[ext]; return ok }
func (nativeHandler) SupportsExport(ext string) bool { _, ok := nativeKinds[ext]; return ok }

func (nativeHandler) Import(m *Manager, p Path) (any, error) {
	f, err := m.OpenResource(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	payload, kind, err := readNative(f)
	if err != nil {
		return nil, err
	}
	if want := nativeKinds[p.Ext()]; kind != want {
		return nil, fmt.Errorf("%w: %q holds kind %d, extension implies %d", ErrInvalidFormat, p, kind, want)
	}
	r := bytes.NewReader(payload)
	switch kind {
	case kindMesh:
		return decodeMesh(r)
	case kindScene:
		return decodeScene(r)
	case kindFont:
		return decodeFont(r)
	default:
		return nil, fmt.Errorf("%w: unknown native kind %d", ErrInvalidFormat, kind)
	}
}

func (nativeHandler) Export(res any, m *Manager, p Path) error {
	var payload bytes.Buffer
	var kind uint8
	var err error
	switch v := res.(type) {
	case *geometry.Mesh:
		kind, err = kindMesh, encodeMesh(&payload, v)
	case *content.Scene:
		kind, err = kindScene, encodeScene(&payload, v)
	case *content.FontData:
		kind, err = kindFont, encodeFont(&payload, v)
	default:
		return fmt.Errorf("%w: cannot export %T to a native container", ErrInvalidArgument, res)
	}
	if err != nil {
		return err
	}
	if want := nativeKinds[p.Ext()]; kind != want {
		return fmt.Errorf("%w: %T does not match extension %q", ErrInvalidArgument, res, p.Ext())
	}

	w, err := m.CreateResource(p)
	if err != nil {
		return err
	}
	if err := writeNative(w, kind, payload.Bytes()); err != nil {
		w.Close()
		return fmt.Errorf("%w: write %q: %v", ErrIO, p.File(), err)
	}
	return w.Close()
}

func readNative(f io.Reader) (payload []byte, kind uint8, err error) {
	var hdr struct {
		Magic      [4]byte
		Version    uint16
		Kind       uint8
		Flags      uint8
		RawSize    uint32
		StoredSize uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		return nil, 0, fmt.Errorf("%w: short native header: %v", ErrInvalidFormat, err)
	}
	if hdr.Magic != nativeMagic {
		return nil, 0, fmt.Errorf("%w: bad magic %q", ErrInvalidFormat, hdr.Magic[:])
	}
	if hdr.Version != nativeVersion {
		return nil, 0, fmt.Errorf("%w: unsupported native version %d", ErrInvalidFormat, hdr.Version)
	}
	if hdr.StoredSize > maxNativePayload || hdr.RawSize > maxNativePayload {
		return nil, 0, fmt.Errorf("%w: payload size %d/%d exceeds limit", ErrInvalidFormat, hdr.StoredSize, hdr.RawSize)
	}
	stored := make([]byte, hdr.StoredSize)
	if _, err := io.ReadFull(f, stored); err != nil {
		return nil, 0, fmt.Errorf("%w: truncated payload: %v", ErrInvalidFormat, err)
	}
	if hdr.Flags&flagLZ4 == 0 {
		return stored, hdr.Kind, nil
	}
	raw := make([]byte, hdr.RawSize)
	n, err := lz4.UncompressBlock(stored, raw)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: lz4: %v", ErrInvalidFormat, err)
	}
	return raw[:n], hdr.Kind, nil
}

func writeNative(w io.Writer, kind uint8, payload []byte) error {
	flags := uint8(0)
	stored := payload
	comp := make([]byte, lz4.CompressBlockBound(len(payload)))
	if n, err := lz4.CompressBlock(payload, comp, nil); err == nil && n > 0 && n < len(payload) {
		flags |= flagLZ4
		stored = comp[:n]
	}
	hdr := struct {
		Magic      [4]byte
		Version    uint16
		Kind       uint8
		Flags      uint8
		RawSize    uint32
		StoredSize uint32
	}{nativeMagic, nativeVersion, kind, flags, uint32(len(payload)), uint32(len(stored))}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err := w.Write(stored)
	return err
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > 1<<20 {
		return "", fmt.Errorf("unreasonable string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func encodeMesh(w io.Writer, m *geometry.Mesh) error {
	if err := writeString(w, m.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.Format)); err != nil {
		return err
	}
	counts := []uint32{uint32(len(m.Vertices)), uint32(len(m.Faces))}
	if err := binary.Write(w, binary.LittleEndian, counts); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.Vertices); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, m.Faces)
}

func decodeMesh(r io.Reader) (*geometry.Mesh, error) {
	name, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mesh name: %v", ErrInvalidFormat, err)
	}
	var format, vcount, fcount uint32
	for _, v := range []*uint32{&format, &vcount, &fcount} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: mesh header: %v", ErrInvalidFormat, err)
		}
	}
	if vcount > maxMeshElements || fcount > maxMeshElements {
		return nil, fmt.Errorf("%w: unreasonable mesh size %d/%d", ErrInvalidFormat, vcount, fcount)
	}
	m := &geometry.Mesh{
		Name:     name,
		Format:   geometry.VertexFormat(format),
		Vertices: make([]geometry.Vertex, vcount),
		Faces:    make([]geometry.Face, fcount),
	}
	if err := binary.Read(r, binary.LittleEndian, m.Vertices); err != nil {
		return nil, fmt.Errorf("%w: mesh vertices: %v", ErrInvalidFormat, err)
	}
	if err := binary.Read(r, binary.LittleEndian, m.Faces); err != nil {
		return nil, fmt.Errorf("%w: mesh faces: %v", ErrInvalidFormat, err)
	}
	return m, nil
}

func encodeScene(w io.Writer, s *content.Scene) error {
	if err := writeString(w, s.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.Nodes))); err != nil {
		return err
	}
	for _, n := range s.Nodes {
		for _, str := range []string{n.Name, n.Mesh, n.Texture} {
			if err := writeString(w, str); err != nil {
				return err
			}
		}
		if err := binary.Write(w, binary.LittleEndian, [][3]float32{n.Position, n.Rotation, n.Scale}); err != nil {
			return err
		}
	}
	return nil
}

func decodeScene(r io.Reader) (*content.Scene, error) {
	name, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: scene name: %v", ErrInvalidFormat, err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: scene header: %v", ErrInvalidFormat, err)
	}
	if count > maxSceneNodes {
		return nil, fmt.Errorf("%w: unreasonable node count %d", ErrInvalidFormat, count)
	}
	s := &content.Scene{Name: name, Nodes: make([]content.SceneNode, count)}
	for i := range s.Nodes {
		n := &s.Nodes[i]
		for _, dst := range []*string{&n.Name, &n.Mesh, &n.Texture} {
			if *dst, err = readString(r); err != nil {
				return nil, fmt.Errorf("%w: scene node %d: %v", ErrInvalidFormat, i, err)
			}
		}
		vecs := make([][3]float32, 3)
		if err := binary.Read(r, binary.LittleEndian, vecs); err != nil {
			return nil, fmt.Errorf("%w: scene node %d: %v", ErrInvalidFormat, i, err)
		}
		n.Position, n.Rotation, n.Scale = vecs[0], vecs[1], vecs[2]
	}
	return s, nil
}

func encodeFont(w io.Writer, f *content.FontData) error {
	if f.Atlas == nil {
		return fmt.Errorf("%w: font data has no atlas", ErrInvalidArgument)
	}
	if err := f.Atlas.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := binary.Write(w, binary.LittleEndian, []float32{f.LineHeight, f.Baseline}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.Glyphs))); err != nil {
		return err
	}
	for r, g := range f.Glyphs {
		rec := glyphRecord{
			Rune: uint32(r),
			X:    uint32(g.X), Y: uint32(g.Y),
			Width: uint32(g.Width), Height: uint32(g.Height),
			Advance: g.Advance, BearingX: g.BearingX, BearingY: g.BearingY,
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	dims := []uint32{uint32(f.Atlas.Width), uint32(f.Atlas.Height)}
	if err := binary.Write(w, binary.LittleEndian, dims); err != nil {
		return err
	}
	_, err := w.Write(f.Atlas.Pix)
	return err
}

type glyphRecord struct {
	Rune                uint32
	X, Y, Width, Height uint32
	Advance             float32
	BearingX, BearingY  float32
}

func decodeFont(r io.Reader) (*content.FontData, error) {
	var metrics [2]float32
	if err := binary.Read(r, binary.LittleEndian, &metrics); err != nil {
		return nil, fmt.Errorf("%w: font metrics: %v", ErrInvalidFormat, err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: glyph count: %v", ErrInvalidFormat, err)
	}
	if count > maxGlyphs {
		return nil, fmt.Errorf("%w: unreasonable glyph count %d", ErrInvalidFormat, count)
	}
	f := &content.FontData{
		LineHeight: metrics[0],
		Baseline:   metrics[1],
		Glyphs:     make(map[rune]content.Glyph, count),
	}
	for i := uint32(0); i < count; i++ {
		var rec glyphRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: glyph %d: %v", ErrInvalidFormat, i, err)
		}
		f.Glyphs[rune(rec.Rune)] = content.Glyph{
			X: int(rec.X), Y: int(rec.Y),
			Width: int(rec.Width), Height: int(rec.Height),
			Advance: rec.Advance, BearingX: rec.BearingX, BearingY: rec.BearingY,
		}
	}
	var dims [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("%w: atlas dimensions: %v", ErrInvalidFormat, err)
	}
	if dims[0] == 0 || dims[1] == 0 || dims[0] > maxAtlasDim || dims[1] > maxAtlasDim {
		return nil, fmt.Errorf("%w: unreasonable atlas dimensions %dx%d", ErrInvalidFormat, dims[0], dims[1])
	}
	atlas := content.NewImage(int(dims[0]), int(dims[1]))
	if _, err := io.ReadFull(r, atlas.Pix); err != nil {
		return nil, fmt.Errorf("%w: atlas pixels: %v", ErrInvalidFormat, err)
	}
	f.Atlas = atlas
	return f, nil
}
