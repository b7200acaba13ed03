package converter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/umeshconv/umesh"
	"gopkg.in/yaml.v2"
)

// ExportOptions controls what the exporters write. It is passed by value.
type ExportOptions struct {
	Vertex            umesh.VertexLayout `json:"vertex" yaml:"vertex"`
	ColorProperties   []string           `json:"colorProperties" yaml:"colorProperties"`
	TextureProperties []string           `json:"textureProperties" yaml:"textureProperties"`

	// MaxTextureSize limits the larger side of texture side files. 0: unlimited
	MaxTextureSize int `json:"maxTextureSize" yaml:"maxTextureSize"`

	StrictNames             bool `json:"strictNames" yaml:"strictNames"`
	AllowUnreadableTextures bool `json:"allowUnreadableTextures" yaml:"allowUnreadableTextures"`
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Vertex:            umesh.DefaultVertexFormat.Layout(),
		ColorProperties:   []string{"_Color"},
		TextureProperties: []string{"_MainTex"},
	}
}

func (o *ExportOptions) Format() umesh.VertexFormat {
	return o.Vertex.Encode()
}

// LoadExportOptions reads a .yaml/.yml or JSON file. Fields not set in the
// file keep their default values.
func LoadExportOptions(path string) (ExportOptions, error) {
	opts := DefaultExportOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("config: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(data, &opts)
	default:
		err = json.Unmarshal(data, &opts)
	}
	if err != nil {
		return DefaultExportOptions(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	if opts.MaxTextureSize < 0 {
		return DefaultExportOptions(), fmt.Errorf("config: %s: negative maxTextureSize", path)
	}
	return opts, nil
}
