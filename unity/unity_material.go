package unity

import (
	"fmt"

	"github.com/binzume/umeshconv/geom"
)

type Material struct {
	Name   string `yaml:"m_Name"`
	Shader *Ref   `yaml:"m_Shader"`

	SavedProperties struct {
		TexEnvs []map[string]*TextureEnv `yaml:"m_TexEnvs"`
		Floats  []map[string]float32     `yaml:"m_Floats"`
		Colors  []map[string]*Color      `yaml:"m_Colors"`
	} `yaml:"m_SavedProperties"`
}

type Color struct {
	R float32 `yaml:"r"`
	G float32 `yaml:"g"`
	B float32 `yaml:"b"`
	A float32 `yaml:"a"`
}

func (c *Color) Vector4() geom.Vector4 {
	return geom.Vector4{X: c.R, Y: c.G, Z: c.B, W: c.A}
}

type TextureEnv struct {
	Texture *Ref         `yaml:"m_Texture"`
	Scale   geom.Vector2 `yaml:"m_Scale"`
	Offset  geom.Vector2 `yaml:"m_Offset"`
}

func (m *Material) GetTextureProperty(name string) *TextureEnv {
	for _, t := range m.SavedProperties.TexEnvs {
		if tex, ok := t[name]; ok {
			return tex
		}
	}
	return nil
}

func (m *Material) GetColorProperty(name string) *Color {
	for _, t := range m.SavedProperties.Colors {
		if col, ok := t[name]; ok {
			return col
		}
	}
	return nil
}

func (m *Material) GetFloatProperty(name string) (float32, bool) {
	for _, t := range m.SavedProperties.Floats {
		if v, ok := t[name]; ok {
			return v, true
		}
	}
	return 0, false
}

func LoadMaterial(assets Assets, guid string) (*Material, error) {
	asset := assets.GetAsset(guid)
	if asset == nil {
		return nil, fmt.Errorf("unity: material not found: %s", guid)
	}
	r, err := assets.Open(asset.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var mat struct {
		Material Material `yaml:"Material"`
	}
	// .mat files start with the YAML header and a document marker
	docs := ParseYamlDocumentsFrom(r)
	for _, d := range docs {
		if d.ClassID() == 21 || len(docs) == 1 {
			if err := d.Decode(&mat); err != nil {
				return nil, fmt.Errorf("unity: %s: %w", asset.Path, err)
			}
			break
		}
	}
	if mat.Material.Name == "" {
		mat.Material.Name = baseName(asset.Path)
	}
	return &mat.Material, nil
}
