package umesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/binzume/umeshconv/geom"
)

const maxTextCount = 1 << 28

// textParser reads names line-wise and numbers token-wise. Errors stick.
type textParser struct {
	s    *bufio.Scanner
	line int
	err  error

	peeked  bool
	peekStr string
}

func newTextParser(r io.Reader) *textParser {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &textParser{s: s}
}

func (p *textParser) errorf(format string, args ...interface{}) {
	if p.err == nil {
		p.err = &FormatError{Offset: p.line, Msg: fmt.Sprintf(format, args...)}
	}
}

func (p *textParser) next() (string, bool) {
	if p.err != nil {
		return "", false
	}
	if p.peeked {
		p.peeked = false
		return p.peekStr, true
	}
	if !p.s.Scan() {
		if err := p.s.Err(); err != nil {
			p.err = err
		} else {
			p.err = fmt.Errorf("%w: unexpected end of text at line %d", ErrTruncated, p.line)
		}
		return "", false
	}
	p.line++
	return strings.TrimRight(p.s.Text(), "\r"), true
}

func (p *textParser) peek() (string, bool) {
	if p.peeked {
		return p.peekStr, true
	}
	s, ok := p.next()
	if ok {
		p.peeked = true
		p.peekStr = s
	}
	return s, ok
}

func (p *textParser) readLine() string {
	s, _ := p.next()
	return s
}

// fields returns the tokens of the next non-blank line.
func (p *textParser) fields() []string {
	for {
		s, ok := p.next()
		if !ok {
			return nil
		}
		if f := strings.Fields(s); len(f) > 0 {
			return f
		}
	}
}

func (p *textParser) readInt() int {
	f := p.fields()
	if p.err != nil {
		return 0
	}
	if len(f) != 1 {
		p.errorf("expected one number, got %q", strings.Join(f, " "))
		return 0
	}
	n, err := strconv.Atoi(f[0])
	if err != nil || n < 0 || n > maxTextCount {
		p.errorf("invalid count %q", f[0])
		return 0
	}
	return n
}

func (p *textParser) parseFloats(f []string, dst []float32) {
	if len(f) != len(dst) {
		p.errorf("expected %d values, got %d", len(dst), len(f))
		return
	}
	for i, s := range f {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			p.errorf("invalid number %q", s)
			return
		}
		dst[i] = float32(v)
	}
}

func (p *textParser) readFloats(dst []float32) {
	f := p.fields()
	if p.err == nil {
		p.parseFloats(f, dst)
	}
}

func (p *textParser) header(kind Kind) {
	f := p.fields()
	if p.err != nil {
		return
	}
	if len(f) != 2 || f[0] != textMagic[kind] {
		p.errorf("bad header %q, want %q", strings.Join(f, " "), textMagic[kind])
		return
	}
	if v, err := strconv.Atoi(f[1]); err != nil || v < 1 || v > Version {
		p.errorf("unsupported version %s", f[1])
	}
}

func (p *textParser) readFormat() VertexFormat {
	return DecodeVertexFormat(uint16(p.readInt()))
}

const textPreallocVertices = 4096

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (p *textParser) readGeometry(format VertexFormat, skinned bool) *Geometry {
	n := p.readInt()
	g := &Geometry{}
	if p.err != nil {
		return g
	}
	// n comes from the input; channels are allocated once n vertices are read
	stride := format.FloatsPerVertex()
	values := make([]float32, 0, minInt(n, textPreallocVertices)*stride)
	var weights []BoneWeight
	widths := format.attributeWidths()
	buf := make([]float32, stride)
	for i := 0; i < n && p.err == nil; i++ {
		v := buf
		for _, w := range widths {
			p.readFloats(v[:w])
			v = v[w:]
		}
		values = append(values, buf...)
		if skinned {
			var bw BoneWeight
			f := p.fields()
			if p.err == nil && len(f) != 4 {
				p.errorf("expected 4 bone indices, got %d", len(f))
			}
			for j := 0; j < len(f) && j < 4 && p.err == nil; j++ {
				bi, err := strconv.ParseUint(f[j], 10, 32)
				if err != nil {
					p.errorf("invalid bone index %q", f[j])
				}
				bw.Indices[j] = uint32(bi)
			}
			p.readFloats(bw.Weights[:])
			weights = append(weights, bw)
		}
	}
	if p.err != nil {
		return g
	}
	g.allocate(format, n)
	for i := 0; i < n; i++ {
		g.setVertexFloats(format, i, values[i*stride:(i+1)*stride])
	}
	g.Weights = weights
	ni := p.readInt()
	if p.err != nil {
		return g
	}
	// the index line is always present, empty when there are no indices
	f := strings.Fields(p.readLine())
	if p.err == nil && len(f) != ni {
		p.errorf("expected %d indices, got %d", ni, len(f))
	}
	g.Indices = make([]uint32, 0, len(f))
	for _, s := range f {
		if p.err != nil {
			break
		}
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			p.errorf("invalid index %q", s)
		}
		g.Indices = append(g.Indices, uint32(v))
	}
	return g
}

func (p *textParser) readMaterial() *Material {
	m := &Material{Name: p.readLine()}
	nc := p.readInt()
	for i := 0; i < nc && p.err == nil; i++ {
		c := ColorProperty{Name: p.readLine()}
		var v [4]float32
		p.readFloats(v[:])
		c.Value = *geom.NewVector4FromArray(v)
		m.Colors = append(m.Colors, c)
	}
	nt := p.readInt()
	for i := 0; i < nt && p.err == nil; i++ {
		t := TextureProperty{Name: p.readLine(), File: p.readLine()}
		if t.File == textNullTexture {
			t.File = ""
		}
		m.Textures = append(m.Textures, t)
	}
	return m
}

func (p *textParser) readNode(h *Hierarchy, parent int) {
	node := HierarchyNode{Name: p.readLine()}
	var trs [10]float32
	p.readFloats(trs[:])
	node.Position = geom.Vector3{X: trs[0], Y: trs[1], Z: trs[2]}
	node.Rotation = geom.Quaternion{X: trs[3], Y: trs[4], Z: trs[5], W: trs[6]}
	node.Scale = geom.Vector3{X: trs[7], Y: trs[8], Z: trs[9]}
	if p.err != nil {
		return
	}
	id := 0
	if parent < 0 {
		*h = *NewHierarchy(node)
	} else {
		id = h.AddNode(parent, node)
	}
	for p.err == nil {
		s, ok := p.peek()
		if !ok {
			return
		}
		if s == HierarchyEnd {
			p.next()
			return
		}
		p.readNode(h, id)
	}
}

// ParseStaticText parses a .uma file.
func ParseStaticText(r io.Reader) (*StaticModel, error) {
	p := newTextParser(r)
	p.header(KindStaticText)
	doc := &StaticModel{Format: p.readFormat()}
	n := p.readInt()
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

// ParseSkinnedText parses a .usa file.
func ParseSkinnedText(r io.Reader) (*SkinnedModel, error) {
	p := newTextParser(r)
	p.header(KindSkinnedText)
	doc := &SkinnedModel{Hierarchy: &Hierarchy{}}
	p.readNode(doc.Hierarchy, -1)
	doc.Format = p.readFormat()
	n := p.readInt()
	for i := 0; i < n && p.err == nil; i++ {
		m := &Mesh{Geometry: p.readGeometry(doc.Format, true)}
		nb := p.readInt()
		for j := 0; j < nb && p.err == nil; j++ {
			bp := BindPose{Name: p.readLine()}
			var a [16]float32
			p.readFloats(a[:])
			bp.Matrix = *geom.NewMatrix4FromRowMajor(a)
			m.BindPoses = append(m.BindPoses, bp)
		}
		m.Material = p.readMaterial()
		doc.Meshes = append(doc.Meshes, m)
	}
	if p.err != nil {
		return nil, p.err
	}
	return doc, nil
}

// ParseClipText parses a .usaa file.
func ParseClipText(r io.Reader) (*Clip, error) {
	p := newTextParser(r)
	p.header(KindClipText)
	n := p.readInt()
	clip := &Clip{}
	for i := 0; i < n && p.err == nil; i++ {
		tr := &Track{Name: p.readLine()}
		for c := range tr.Curves {
			nk := p.readInt()
			if p.err != nil {
				break
			}
			var v [1]float32
			for k := 0; k < nk && p.err == nil; k++ {
				p.readFloats(v[:])
				tr.Curves[c].Times = append(tr.Curves[c].Times, v[0])
			}
			for k := 0; k < nk && p.err == nil; k++ {
				p.readFloats(v[:])
				tr.Curves[c].Values = append(tr.Curves[c].Values, v[0])
			}
		}
		clip.Tracks = append(clip.Tracks, tr)
	}
	if p.err != nil {
		return nil, p.err
	}
	return clip, nil
}
