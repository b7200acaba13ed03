package umesh

import "github.com/binzume/umeshconv/geom"

type ColorProperty struct {
	Name  string
	Value geom.Vector4
}

// TextureProperty refers to a side file next to the model. An empty File means no texture.
type TextureProperty struct {
	Name string
	File string
}

type Material struct {
	Name     string
	Colors   []ColorProperty
	Textures []TextureProperty
}

const textNullTexture = "null"

// TextureFileName returns the side file name for a texture bound to property.
func TextureFileName(textureName, property string) string {
	return textureName + property + ".png"
}

func (m *Material) Color(name string) (geom.Vector4, bool) {
	for _, c := range m.Colors {
		if c.Name == name {
			return c.Value, true
		}
	}
	return geom.Vector4{}, false
}

func (m *Material) Texture(name string) (string, bool) {
	for _, t := range m.Textures {
		if t.Name == name {
			return t.File, t.File != ""
		}
	}
	return "", false
}

// DedupMaterials returns unique materials by name and the material index of
// each mesh. The first occurrence of a name wins.
func DedupMaterials(meshes []*Mesh) ([]*Material, []int) {
	var materials []*Material
	byName := map[string]int{}
	index := make([]int, len(meshes))
	for i, m := range meshes {
		mat := m.Material
		if mat == nil {
			mat = &Material{}
		}
		if id, ok := byName[mat.Name]; ok {
			index[i] = id
			continue
		}
		byName[mat.Name] = len(materials)
		index[i] = len(materials)
		materials = append(materials, mat)
	}
	return materials, index
}
