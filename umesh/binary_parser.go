package umesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/binzume/umeshconv/geom"
)

// binaryParser is a bounds checked forward cursor. The first error sticks.
type binaryParser struct {
	data []byte
	off  int
	err  error
}

func (p *binaryParser) take(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || p.off+n > len(p.data) || p.off+n < p.off {
		p.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, p.off, len(p.data)-p.off)
		p.off = len(p.data)
		return nil
	}
	b := p.data[p.off : p.off+n]
	p.off += n
	return b
}

func (p *binaryParser) errorf(format string, args ...interface{}) {
	if p.err == nil {
		p.err = &FormatError{Offset: p.off, Msg: fmt.Sprintf(format, args...)}
	}
}

func (p *binaryParser) readU16() uint16 {
	if b := p.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (p *binaryParser) readI16() int16 {
	return int16(p.readU16())
}

func (p *binaryParser) readU32() uint32 {
	if b := p.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (p *binaryParser) readF32() float32 {
	return math.Float32frombits(p.readU32())
}

func (p *binaryParser) readF32s(dst []float32) {
	b := p.take(len(dst) * 4)
	if b == nil {
		return
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
}

func (p *binaryParser) readString() string {
	n := p.readU16()
	return string(p.take(int(n)))
}

// readCount32 reads a uint32 count of elements of elemSize bytes and checks
// that they fit in the remaining input before anything is allocated.
func (p *binaryParser) readCount32(elemSize int) int {
	n := int64(p.readU32())
	if p.err == nil && n*int64(elemSize) > int64(len(p.data)-p.off) {
		p.err = fmt.Errorf("%w: count %d at offset %d exceeds input", ErrTruncated, n, p.off-4)
		return 0
	}
	return int(n)
}

func (p *binaryParser) header(kind Kind) {
	magic := binaryMagic[kind]
	b := p.take(4)
	if b == nil {
		return
	}
	if string(b) != string(magic[:]) {
		p.off = 0
		p.errorf("bad magic %q, want %q", b, magic[:])
		return
	}
	if v := p.readU16(); p.err == nil && (v == 0 || v > Version) {
		p.errorf("unsupported version %d", v)
	}
}

func (p *binaryParser) readGeometry(format VertexFormat, skinned bool) *Geometry {
	stride := format.FloatsPerVertex() * 4
	if skinned {
		stride += 32
	}
	if stride == 0 {
		stride = 1
	}
	n := p.readCount32(stride)
	g := &Geometry{}
	g.allocate(format, n)
	if skinned {
		g.Weights = make([]BoneWeight, n)
	}
	buf := make([]float32, format.FloatsPerVertex())
	for i := 0; i < n && p.err == nil; i++ {
		p.readF32s(buf)
		g.setVertexFloats(format, i, buf)
		if skinned {
			w := &g.Weights[i]
			for j := range w.Indices {
				w.Indices[j] = p.readU32()
			}
			p.readF32s(w.Weights[:])
		}
	}
	ni := p.readCount32(4)
	g.Indices = make([]uint32, ni)
	for i := range g.Indices {
		g.Indices[i] = p.readU32()
	}
	return g
}

func (p *binaryParser) readMaterial() *Material {
	m := &Material{Name: p.readString()}
	nc := int(p.readU16())
	for i := 0; i < nc && p.err == nil; i++ {
		c := ColorProperty{Name: p.readString()}
		var v [4]float32
		p.readF32s(v[:])
		c.Value = *geom.NewVector4FromArray(v)
		m.Colors = append(m.Colors, c)
	}
	nt := int(p.readU16())
	for i := 0; i < nt && p.err == nil; i++ {
		m.Textures = append(m.Textures, TextureProperty{Name: p.readString(), File: p.readString()})
	}
	return m
}

func (p *binaryParser) readMatrix() geom.Matrix4 {
	var a [16]float32
	p.readF32s(a[:])
	return *geom.NewMatrix4FromRowMajor(a)
}

// readNode reads a node record and its children up to the closing sentinel.
func (p *binaryParser) readNode(h *Hierarchy, parent int) {
	l := p.readI16()
	if p.err != nil {
		return
	}
	if l < 0 {
		p.errorf("unexpected end of child list")
		return
	}
	node := HierarchyNode{Name: string(p.take(int(l)))}
	var trs [10]float32
	p.readF32s(trs[:])
	node.Position = geom.Vector3{X: trs[0], Y: trs[1], Z: trs[2]}
	node.Rotation = geom.Quaternion{X: trs[3], Y: trs[4], Z: trs[5], W: trs[6]}
	node.Scale = geom.Vector3{X: trs[7], Y: trs[8], Z: trs[9]}

	var id int
	if parent < 0 {
		*h = *NewHierarchy(node)
	} else {
		id = h.AddNode(parent, node)
	}
	for p.err == nil {
		// peek for the sentinel
		if p.off+2 <= len(p.data) && int16(binary.LittleEndian.Uint16(p.data[p.off:])) == -1 {
			p.off += 2
			return
		}
		if p.off+2 > len(p.data) {
			p.take(2)
			return
		}
		p.readNode(h, id)
	}
}

// ParseStaticBinary parses a .umb file.
func ParseStaticBinary(data []byte) (*StaticModel, error) {
	p := &binaryParser{data: data}
	p.header(KindStaticBinary)
	doc := &StaticModel{Format: DecodeVertexFormat(p.readU16())}
	n := int(p.readU16())
	for i := 0; i < n && p.err == nil; i++ {
		m := &Mesh{Geometry: p.readGeometry(doc.Format, false)}
		m.Material = p.readMaterial()
		doc.Meshes = append(doc.Meshes, m)
	}
	if p.err != nil {
		return nil, p.err
	}
	return doc, nil
}

// ParseSkinnedBinary parses a .usb file.
func ParseSkinnedBinary(data []byte) (*SkinnedModel, error) {
	p := &binaryParser{data: data}
	p.header(KindSkinnedBinary)
	doc := &SkinnedModel{Hierarchy: &Hierarchy{}}
	p.readNode(doc.Hierarchy, -1)
	doc.Format = DecodeVertexFormat(p.readU16())
	n := int(p.readU16())
	for i := 0; i < n && p.err == nil; i++ {
		m := &Mesh{Geometry: p.readGeometry(doc.Format, true)}
		nb := int(p.readU16())
		for j := 0; j < nb && p.err == nil; j++ {
			m.BindPoses = append(m.BindPoses, BindPose{Name: p.readString(), Matrix: p.readMatrix()})
		}
		m.Material = p.readMaterial()
		doc.Meshes = append(doc.Meshes, m)
	}
	if p.err != nil {
		return nil, p.err
	}
	return doc, nil
}

// ParseClipBinary parses a .usab file.
func ParseClipBinary(data []byte) (*Clip, error) {
	p := &binaryParser{data: data}
	p.header(KindClipBinary)
	// smallest track: empty name and 10 empty curves
	n := p.readCount32(2 + CurveCount*4)
	clip := &Clip{}
	for i := 0; i < n && p.err == nil; i++ {
		tr := &Track{Name: p.readString()}
		for c := range tr.Curves {
			nk := p.readCount32(8)
			tr.Curves[c].Times = make([]float32, nk)
			tr.Curves[c].Values = make([]float32, nk)
			p.readF32s(tr.Curves[c].Times)
			p.readF32s(tr.Curves[c].Values)
		}
		clip.Tracks = append(clip.Tracks, tr)
	}
	if p.err != nil {
		return nil, p.err
	}
	return clip, nil
}
