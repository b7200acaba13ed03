package unity

import "fmt"

type MetaFile struct {
	FileFormatVersion int              `yaml:"fileFormatVersion"`
	GUID              string           `yaml:"guid"`
	ModelImporter     *ModelImporter   `yaml:"ModelImporter"`
	TextureImporter   *TextureImporter `yaml:"TextureImporter"`
}

const AnimationTypeHuman = 3

type ModelImporter struct {
	AnimationType int `yaml:"animationType"`
}

type TextureImporter struct {
	IsReadable    int `yaml:"isReadable"`
	TextureFormat int `yaml:"textureFormat"`

	PlatformSettings []struct {
		BuildTarget   string `yaml:"buildTarget"`
		TextureFormat int    `yaml:"textureFormat"`
		Overridden    int    `yaml:"overridden"`
	} `yaml:"platformSettings"`
}

// Block compressed TextureFormat values (DXT, BC, PVRTC, ETC, EAC, ASTC and crunched).
var compressedTextureFormats = map[int]bool{
	10: true, 12: true,
	24: true, 25: true, 26: true, 27: true, 28: true, 29: true,
	30: true, 31: true, 32: true, 33: true, 34: true,
	64: true, 65: true,
}

func init() {
	for f := 41; f <= 61; f++ {
		compressedTextureFormats[f] = true
	}
	for f := 66; f <= 71; f++ {
		compressedTextureFormats[f] = true
	}
}

func (t *TextureImporter) Readable() bool {
	return t.IsReadable != 0
}

// Compressed reports whether the default format or an overridden platform
// format is block compressed.
func (t *TextureImporter) Compressed() bool {
	if compressedTextureFormats[t.TextureFormat] {
		return true
	}
	for _, p := range t.PlatformSettings {
		if (p.Overridden != 0 || p.BuildTarget == "DefaultTexturePlatform") && compressedTextureFormats[p.TextureFormat] {
			return true
		}
	}
	return false
}

func LoadMeta(assets Assets, assetPath string) (*MetaFile, error) {
	r, err := assets.OpenMeta(assetPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	meta, err := decodeMeta(r)
	if err != nil {
		return nil, fmt.Errorf("unity: %s.meta: %w", assetPath, err)
	}
	return meta, nil
}

// IsHumanoidAvatar reports whether the avatar reference points into a model
// imported with the humanoid animation type.
func IsHumanoidAvatar(assets Assets, avatar *Ref) bool {
	if !avatar.IsValid() || avatar.GUID == "" {
		return false
	}
	asset := assets.GetAsset(avatar.GUID)
	if asset == nil {
		return false
	}
	meta, err := LoadMeta(assets, asset.Path)
	if err != nil || meta.ModelImporter == nil {
		return false
	}
	return meta.ModelImporter.AnimationType == AnimationTypeHuman
}
