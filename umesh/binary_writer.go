package umesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

type binaryWriter struct {
	w   *bufio.Writer
	err error
	buf []float32
}

func newBinaryWriter(w io.Writer) *binaryWriter {
	return &binaryWriter{w: bufio.NewWriter(w)}
}

func (w *binaryWriter) write(v interface{}) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.LittleEndian, v)
}

func (w *binaryWriter) header(kind Kind) {
	magic := binaryMagic[kind]
	w.write(magic[:])
	w.write(uint16(Version))
}

func (w *binaryWriter) writeCount16(n int, what string) {
	if n > math.MaxUint16 {
		w.fail(fmt.Errorf("umesh: too many %s: %d", what, n))
	}
	w.write(uint16(n))
}

func (w *binaryWriter) writeString(s string) {
	if len(s) > math.MaxUint16 {
		w.fail(fmt.Errorf("%w: %.32s...", ErrNameTooLong, s))
		return
	}
	w.write(uint16(len(s)))
	w.write([]byte(s))
}

// writeNodeName uses a signed prefix so that -1 can close a child list.
func (w *binaryWriter) writeNodeName(s string) {
	if len(s) > math.MaxInt16 {
		w.fail(fmt.Errorf("%w: %.32s...", ErrNameTooLong, s))
		return
	}
	w.write(int16(len(s)))
	w.write([]byte(s))
}

func (w *binaryWriter) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *binaryWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *binaryWriter) writeGeometry(format VertexFormat, g *Geometry, skinned bool) {
	w.write(uint32(g.VertexCount))
	for i := 0; i < g.VertexCount; i++ {
		w.buf = g.vertexFloats(format, i, w.buf)
		w.write(w.buf)
		if skinned {
			w.write(g.Weights[i].Indices[:])
			w.write(g.Weights[i].Weights[:])
		}
	}
	w.write(uint32(len(g.Indices)))
	w.write(g.Indices)
}

func (w *binaryWriter) writeMaterial(m *Material) {
	if m == nil {
		m = &Material{}
	}
	w.writeString(m.Name)
	w.writeCount16(len(m.Colors), "color properties")
	for _, c := range m.Colors {
		w.writeString(c.Name)
		w.write(c.Value.ToArray())
	}
	w.writeCount16(len(m.Textures), "texture properties")
	for _, t := range m.Textures {
		w.writeString(t.Name)
		w.writeString(t.File)
	}
}

// WriteStaticBinary writes a .umb file.
func WriteStaticBinary(w io.Writer, doc *StaticModel) error {
	bw := newBinaryWriter(w)
	bw.header(KindStaticBinary)
	bw.write(uint16(doc.Format))
	bw.writeCount16(len(doc.Meshes), "meshes")
	for _, m := range doc.Meshes {
		bw.writeGeometry(doc.Format, m.Geometry, false)
		bw.writeMaterial(m.Material)
	}
	return bw.flush()
}

// WriteSkinnedBinary writes a .usb file.
func WriteSkinnedBinary(w io.Writer, doc *SkinnedModel) error {
	bw := newBinaryWriter(w)
	bw.header(KindSkinnedBinary)
	if doc.Hierarchy == nil || doc.Hierarchy.Len() == 0 {
		return fmt.Errorf("umesh: skinned model without hierarchy")
	}
	doc.Hierarchy.Walk(func(id, depth int) {
		n := &doc.Hierarchy.Nodes[id]
		bw.writeNodeName(n.Name)
		bw.write([10]float32{
			n.Position.X, n.Position.Y, n.Position.Z,
			n.Rotation.X, n.Rotation.Y, n.Rotation.Z, n.Rotation.W,
			n.Scale.X, n.Scale.Y, n.Scale.Z,
		})
	}, func(id, depth int) {
		bw.write(int16(-1))
	})
	bw.write(uint16(doc.Format))
	bw.writeCount16(len(doc.Meshes), "meshes")
	for _, m := range doc.Meshes {
		bw.writeGeometry(doc.Format, m.Geometry, true)
		bw.writeCount16(len(m.BindPoses), "bind poses")
		for _, bp := range m.BindPoses {
			bw.writeString(bp.Name)
			bw.write(bp.Matrix.RowMajor())
		}
		bw.writeMaterial(m.Material)
	}
	return bw.flush()
}

// WriteClipBinary writes a .usab file.
func WriteClipBinary(w io.Writer, clip *Clip) error {
	bw := newBinaryWriter(w)
	bw.header(KindClipBinary)
	bw.write(uint32(len(clip.Tracks)))
	for _, tr := range clip.Tracks {
		bw.writeString(tr.Name)
		for _, c := range tr.Curves {
			if len(c.Times) != len(c.Values) {
				bw.fail(fmt.Errorf("umesh: track %s has %d times and %d values", tr.Name, len(c.Times), len(c.Values)))
			}
			bw.write(uint32(len(c.Times)))
			bw.write(c.Times)
			bw.write(c.Values)
		}
	}
	return bw.flush()
}
