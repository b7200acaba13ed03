package umesh

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// HierarchyEnd closes the child list of a node in text files.
const HierarchyEnd = "ChildEndTransform"

type textWriter struct {
	w   *bufio.Writer
	buf []float32
}

func newTextWriter(w io.Writer, kind Kind) *textWriter {
	tw := &textWriter{w: bufio.NewWriter(w)}
	fmt.Fprintf(tw.w, "%s %d\n", textMagic[kind], Version)
	return tw
}

func (w *textWriter) floats(v ...float32) {
	for i, f := range v {
		if i > 0 {
			w.w.WriteByte(' ')
		}
		fmt.Fprintf(w.w, "%.8f", f)
	}
	w.w.WriteByte('\n')
}

func (w *textWriter) line(v interface{}) {
	fmt.Fprintln(w.w, v)
}

func (w *textWriter) name(s string) error {
	if strings.ContainsAny(s, "\r\n") {
		return fmt.Errorf("umesh: name contains a line break: %q", s)
	}
	w.w.WriteString(s)
	w.w.WriteByte('\n')
	return nil
}

func (w *textWriter) writeGeometry(format VertexFormat, g *Geometry, skinned bool) {
	w.line(g.VertexCount)
	widths := format.attributeWidths()
	for i := 0; i < g.VertexCount; i++ {
		w.buf = g.vertexFloats(format, i, w.buf)
		v := w.buf
		for _, n := range widths {
			w.floats(v[:n]...)
			v = v[n:]
		}
		if skinned {
			bi := g.Weights[i].Indices
			fmt.Fprintf(w.w, "%d %d %d %d\n", bi[0], bi[1], bi[2], bi[3])
			w.floats(g.Weights[i].Weights[:]...)
		}
	}
	w.w.WriteByte('\n')
	w.line(len(g.Indices))
	for i, idx := range g.Indices {
		if i > 0 {
			w.w.WriteByte(' ')
		}
		fmt.Fprint(w.w, idx)
	}
	w.w.WriteByte('\n')
}

func (w *textWriter) writeMaterial(m *Material) error {
	if m == nil {
		m = &Material{}
	}
	if err := w.name(m.Name); err != nil {
		return err
	}
	w.line(len(m.Colors))
	for _, c := range m.Colors {
		if err := w.name(c.Name); err != nil {
			return err
		}
		w.floats(c.Value.X, c.Value.Y, c.Value.Z, c.Value.W)
	}
	w.line(len(m.Textures))
	for _, t := range m.Textures {
		if err := w.name(t.Name); err != nil {
			return err
		}
		file := t.File
		if file == "" {
			file = textNullTexture
		}
		if err := w.name(file); err != nil {
			return err
		}
	}
	return nil
}

// WriteStaticText writes a .uma file.
func WriteStaticText(w io.Writer, doc *StaticModel) error {
	tw := newTextWriter(w, KindStaticText)
	tw.line(uint16(doc.Format))
	tw.line(len(doc.Meshes))
	for _, m := range doc.Meshes {
		tw.writeGeometry(doc.Format, m.Geometry, false)
		if err := tw.writeMaterial(m.Material); err != nil {
			return err
		}
	}
	return tw.w.Flush()
}

// WriteSkinnedText writes a .usa file.
func WriteSkinnedText(w io.Writer, doc *SkinnedModel) error {
	if doc.Hierarchy == nil || doc.Hierarchy.Len() == 0 {
		return fmt.Errorf("umesh: skinned model without hierarchy")
	}
	tw := newTextWriter(w, KindSkinnedText)
	var err error
	doc.Hierarchy.Walk(func(id, depth int) {
		n := &doc.Hierarchy.Nodes[id]
		if err == nil {
			err = tw.name(n.Name)
		}
		tw.floats(n.Position.X, n.Position.Y, n.Position.Z,
			n.Rotation.X, n.Rotation.Y, n.Rotation.Z, n.Rotation.W,
			n.Scale.X, n.Scale.Y, n.Scale.Z)
	}, func(id, depth int) {
		tw.line(HierarchyEnd)
	})
	if err != nil {
		return err
	}
	tw.line(uint16(doc.Format))
	tw.line(len(doc.Meshes))
	for _, m := range doc.Meshes {
		tw.writeGeometry(doc.Format, m.Geometry, true)
		tw.line(len(m.BindPoses))
		for _, bp := range m.BindPoses {
			if err := tw.name(bp.Name); err != nil {
				return err
			}
			rm := bp.Matrix.RowMajor()
			tw.floats(rm[:]...)
		}
		if err := tw.writeMaterial(m.Material); err != nil {
			return err
		}
	}
	return tw.w.Flush()
}

// WriteClipText writes a .usaa file.
func WriteClipText(w io.Writer, clip *Clip) error {
	tw := newTextWriter(w, KindClipText)
	tw.line(len(clip.Tracks))
	for _, tr := range clip.Tracks {
		if err := tw.name(tr.Name); err != nil {
			return err
		}
		for _, c := range tr.Curves {
			if len(c.Times) != len(c.Values) {
				return fmt.Errorf("umesh: track %s has %d times and %d values", tr.Name, len(c.Times), len(c.Values))
			}
			tw.line(len(c.Times))
			for _, t := range c.Times {
				tw.floats(t)
			}
			for _, v := range c.Values {
				tw.floats(v)
			}
		}
	}
	return tw.w.Flush()
}
