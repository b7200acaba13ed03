package unity

import (
	"fmt"
	"log"

	"github.com/binzume/umeshconv/geom"
)

type FloatKey struct {
	Time  float32 `yaml:"time"`
	Value float32 `yaml:"value"`
}

type VectorKey struct {
	Time  float32      `yaml:"time"`
	Value geom.Vector4 `yaml:"value"`
}

type FloatCurve struct {
	Curve struct {
		Keys []FloatKey `yaml:"m_Curve"`
	} `yaml:"curve"`
	Attribute string `yaml:"attribute"`
	Path      string `yaml:"path"`
	ClassID   int    `yaml:"classID"`
}

type VectorCurve struct {
	Curve struct {
		Keys []VectorKey `yaml:"m_Curve"`
	} `yaml:"curve"`
	Path string `yaml:"path"`
}

type AnimationClip struct {
	Name           string        `yaml:"m_Name"`
	RotationCurves []VectorCurve `yaml:"m_RotationCurves"`
	PositionCurves []VectorCurve `yaml:"m_PositionCurves"`
	ScaleCurves    []VectorCurve `yaml:"m_ScaleCurves"`
	FloatCurves    []FloatCurve  `yaml:"m_FloatCurves"`
	EditorCurves   []FloatCurve  `yaml:"m_EditorCurves"`
}

// CurveBindings returns one float curve per animated property. Editor curves
// are used when present since they already cover the vector curves.
func (c *AnimationClip) CurveBindings() []FloatCurve {
	if len(c.EditorCurves) > 0 {
		return c.EditorCurves
	}
	curves := append([]FloatCurve(nil), c.FloatCurves...)
	expand := func(vc []VectorCurve, attr string, comps string) {
		for _, v := range vc {
			for i, comp := range comps {
				fc := FloatCurve{Attribute: attr + "." + string(comp), Path: v.Path, ClassID: ClassTransform}
				for _, k := range v.Curve.Keys {
					fc.Curve.Keys = append(fc.Curve.Keys, FloatKey{Time: k.Time, Value: k.Value.ToArray()[i]})
				}
				curves = append(curves, fc)
			}
		}
	}
	expand(c.PositionCurves, "m_LocalPosition", "xyz")
	expand(c.RotationCurves, "m_LocalRotation", "xyzw")
	expand(c.ScaleCurves, "m_LocalScale", "xyz")
	return curves
}

func LoadAnimationClip(assets Assets, assetPath string) (*AnimationClip, error) {
	r, err := assets.Open(assetPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, d := range ParseYamlDocumentsFrom(r) {
		if d.ClassID() != ClassAnimationClip && d.Tag != "" {
			continue
		}
		var doc struct {
			AnimationClip *AnimationClip `yaml:"AnimationClip"`
		}
		if err := d.Decode(&doc); err != nil {
			return nil, fmt.Errorf("unity: %s: %w", assetPath, err)
		}
		if doc.AnimationClip != nil {
			if doc.AnimationClip.Name == "" {
				doc.AnimationClip.Name = baseName(assetPath)
			}
			return doc.AnimationClip, nil
		}
	}
	return nil, fmt.Errorf("unity: %s: no AnimationClip", assetPath)
}

type animatorState struct {
	Name   string `yaml:"m_Name"`
	Motion *Ref   `yaml:"m_Motion"`
}

// LoadControllerClips loads the clips used by the states of an animator controller.
func LoadControllerClips(assets Assets, controller *Ref) ([]*AnimationClip, error) {
	if !controller.IsValid() {
		return nil, nil
	}
	asset := assets.GetAsset(controller.GUID)
	if asset == nil {
		return nil, fmt.Errorf("unity: animator controller not found: %s", controller.GUID)
	}
	r, err := assets.Open(asset.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var clips []*AnimationClip
	seen := map[string]bool{}
	for _, d := range ParseYamlDocumentsFrom(r) {
		if d.ClassID() != ClassAnimatorState {
			continue
		}
		var doc struct {
			State animatorState `yaml:"AnimatorState"`
		}
		if err := d.Decode(&doc); err != nil {
			return nil, err
		}
		m := doc.State.Motion
		if !m.IsValid() || m.GUID == "" || seen[m.GUID] {
			continue
		}
		seen[m.GUID] = true
		clipAsset := assets.GetAsset(m.GUID)
		if clipAsset == nil {
			log.Printf("WARNING: state %s: clip %s not found", doc.State.Name, m.GUID)
			continue
		}
		clip, err := LoadAnimationClip(assets, clipAsset.Path)
		if err != nil {
			log.Printf("WARNING: state %s: %v", doc.State.Name, err)
			continue
		}
		clips = append(clips, clip)
	}
	return clips, nil
}
