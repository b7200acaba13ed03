package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/binzume/umeshconv/umesh"
)

func printInfo(w io.Writer, path string) error {
	doc, err := umesh.Load(path)
	if err != nil {
		return err
	}
	switch doc := doc.(type) {
	case *umesh.StaticModel:
		fmt.Fprintf(w, "static model: %s\n", path)
		fmt.Fprintf(w, "format: %s\n", doc.Format)
		printMeshes(w, doc.Meshes)
	case *umesh.SkinnedModel:
		fmt.Fprintf(w, "skinned model: %s\n", path)
		fmt.Fprintf(w, "hierarchy: %d nodes\n", doc.Hierarchy.Len())
		doc.Hierarchy.Walk(func(id, depth int) {
			n := &doc.Hierarchy.Nodes[id]
			r := n.EulerDegrees()
			fmt.Fprintf(w, "%s%s pos=(%g, %g, %g) rot=(%g, %g, %g) scale=(%g, %g, %g)\n",
				strings.Repeat("  ", depth+1), n.Name,
				n.Position.X, n.Position.Y, n.Position.Z, r.X, r.Y, r.Z, n.Scale.X, n.Scale.Y, n.Scale.Z)
		}, nil)
		fmt.Fprintf(w, "format: %s\n", doc.Format)
		printMeshes(w, doc.Meshes)
	case *umesh.Clip:
		fmt.Fprintf(w, "clip: %s\n", path)
		fmt.Fprintf(w, "duration: %g\n", doc.Duration())
		for _, tr := range doc.Tracks {
			keys := 0
			for _, c := range tr.Curves {
				keys += c.Len()
			}
			fmt.Fprintf(w, "  track %s: %d keys\n", tr.Name, keys)
		}
	}
	return nil
}

func printMeshes(w io.Writer, meshes []*umesh.Mesh) {
	fmt.Fprintf(w, "meshes: %d\n", len(meshes))
	for i, m := range meshes {
		fmt.Fprintf(w, "  mesh %d: vertices=%d triangles=%d", i, m.Geometry.VertexCount, len(m.Geometry.Indices)/3)
		if len(m.BindPoses) > 0 {
			fmt.Fprintf(w, " bones=%d", len(m.BindPoses))
		}
		fmt.Fprintln(w)
		if m.Material == nil {
			continue
		}
		fmt.Fprintf(w, "    material %s\n", m.Material.Name)
		for _, c := range m.Material.Colors {
			fmt.Fprintf(w, "      %s: %g %g %g %g\n", c.Name, c.Value.X, c.Value.Y, c.Value.Z, c.Value.W)
		}
		for _, t := range m.Material.Textures {
			file := t.File
			if file == "" {
				file = "-"
			}
			fmt.Fprintf(w, "      %s: %s\n", t.Name, file)
		}
	}
}
