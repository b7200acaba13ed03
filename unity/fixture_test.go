package unity

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	sceneGUID      = "11111111111111111111111111111111"
	materialGUID   = "22222222222222222222222222222222"
	textureGUID    = "33333333333333333333333333333333"
	clipGUID       = "44444444444444444444444444444444"
	controllerGUID = "55555555555555555555555555555555"
	modelGUID      = "66666666666666666666666666666666"
)

const testScene = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!29 &1
OcclusionCullingSettings:
  m_ObjectHideFlags: 0
--- !u!1 &100
GameObject:
  m_Name: Robot
  m_IsActive: 1
  m_Component:
  - component: {fileID: 101}
  - component: {fileID: 102}
--- !u!4 &101
Transform:
  m_GameObject: {fileID: 100}
  m_LocalRotation: {x: 0, y: 0, z: 0, w: 1}
  m_LocalPosition: {x: 1, y: 2, z: 3}
  m_LocalScale: {x: 1, y: 1, z: 1}
  m_Children:
  - {fileID: 201}
  m_Father: {fileID: 0}
  m_RootOrder: 1
--- !u!95 &102
Animator:
  m_GameObject: {fileID: 100}
  m_Enabled: 1
  m_Avatar: {fileID: 9000000, guid: ` + modelGUID + `, type: 3}
  m_Controller: {fileID: 9100000, guid: ` + controllerGUID + `, type: 2}
--- !u!1 &200
GameObject:
  m_Name: Body
  m_IsActive: 1
  m_Component:
  - component: {fileID: 201}
  - component: {fileID: 202}
  - component: {fileID: 203}
--- !u!4 &201
Transform:
  m_GameObject: {fileID: 200}
  m_LocalRotation: {x: 0, y: 0.7071068, z: 0, w: 0.7071068}
  m_LocalPosition: {x: 0, y: 1, z: 0}
  m_LocalScale: {x: 2, y: 2, z: 2}
  m_Children: []
  m_Father: {fileID: 101}
  m_RootOrder: 0
--- !u!33 &202
MeshFilter:
  m_GameObject: {fileID: 200}
  m_Mesh: {fileID: 10202, guid: 0000000000000000e000000000000000, type: 0}
--- !u!23 &203
MeshRenderer:
  m_GameObject: {fileID: 200}
  m_Enabled: 1
  m_Materials:
  - {fileID: 2100000, guid: ` + materialGUID + `, type: 2}
--- !u!1 &300
GameObject:
  m_Name: Ground
  m_IsActive: 0
  m_Component:
  - component: {fileID: 301}
--- !u!4 &301
Transform:
  m_GameObject: {fileID: 300}
  m_LocalRotation: {x: 0, y: 0, z: 0, w: 1}
  m_LocalPosition: {x: 0, y: 0, z: 0}
  m_LocalScale: {x: 1, y: 1, z: 1}
  m_Children: []
  m_Father: {fileID: 0}
  m_RootOrder: 0
`

const testMaterial = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!21 &2100000
Material:
  serializedVersion: 6
  m_Name: RobotSkin
  m_Shader: {fileID: 46, guid: 0000000000000000f000000000000000, type: 0}
  m_SavedProperties:
    serializedVersion: 3
    m_TexEnvs:
    - _BumpMap:
        m_Texture: {fileID: 0}
        m_Scale: {x: 1, y: 1}
        m_Offset: {x: 0, y: 0}
    - _MainTex:
        m_Texture: {fileID: 2800000, guid: ` + textureGUID + `, type: 3}
        m_Scale: {x: 1, y: 1}
        m_Offset: {x: 0, y: 0}
    m_Floats:
    - _Glossiness: 0.5
    m_Colors:
    - _Color: {r: 1, g: 0.5, b: 0.25, a: 1}
    - _EmissionColor: {r: 0, g: 0, b: 0, a: 1}
`

const testClip = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!74 &7400000
AnimationClip:
  m_Name: Wave
  m_RotationCurves:
  - curve:
      serializedVersion: 2
      m_Curve:
      - serializedVersion: 3
        time: 0
        value: {x: 0, y: 0, z: 0, w: 1}
      - serializedVersion: 3
        time: 1
        value: {x: 0, y: 0.7071068, z: 0, w: 0.7071068}
    path: Body
  m_PositionCurves:
  - curve:
      m_Curve:
      - time: 0.5
        value: {x: 0, y: 1, z: 0}
    path: Body
  m_ScaleCurves: []
  m_FloatCurves:
  - curve:
      m_Curve:
      - time: 0
        value: 1
    attribute: m_IsActive
    path: Body
    classID: 1
  m_EditorCurves: []
`

const testController = `%YAML 1.1
%TAG !u! tag:unity3d.com,2011:
--- !u!91 &9100000
AnimatorController:
  m_Name: Robot
--- !u!1102 &110200000
AnimatorState:
  m_Name: Wave
  m_Motion: {fileID: 7400000, guid: ` + clipGUID + `, type: 2}
--- !u!1102 &110200001
AnimatorState:
  m_Name: WaveAgain
  m_Motion: {fileID: 7400000, guid: ` + clipGUID + `, type: 2}
`

func meta(guid, body string) string {
	return "fileFormatVersion: 2\nguid: " + guid + "\n" + body
}

const textureMeta = `TextureImporter:
  serializedVersion: 11
  isReadable: 1
  textureFormat: 1
  platformSettings:
  - serializedVersion: 3
    buildTarget: DefaultTexturePlatform
    textureFormat: -1
    overridden: 0
  - serializedVersion: 3
    buildTarget: Android
    textureFormat: 47
    overridden: 0
`

const modelMeta = `ModelImporter:
  serializedVersion: 19301
  animationType: 3
`

// writeProject creates <dir>/Assets with a scene, material, texture, clip,
// controller and model meta. It returns the Assets directory.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Assets")
	files := map[string]string{
		"Scenes/main.unity":           testScene,
		"Scenes/main.unity.meta":      meta(sceneGUID, ""),
		"Materials/Skin.mat":          testMaterial,
		"Materials/Skin.mat.meta":     meta(materialGUID, "NativeFormatImporter:\n  mainObjectFileID: 2100000\n"),
		"Textures/skin.png.meta":      meta(textureGUID, textureMeta),
		"Anim/Wave.anim":              testClip,
		"Anim/Wave.anim.meta":         meta(clipGUID, ""),
		"Anim/Robot.controller":       testController,
		"Anim/Robot.controller.meta":  meta(controllerGUID, ""),
		"Models/robot.fbx.meta":       meta(modelGUID, modelMeta),
		"Models/robot.fbx":            "",
		"Textures/skin.png":           "",
		"Textures/no_guid.png.meta":   "fileFormatVersion: 2\n",
		"Textures/broken.png.meta":    "guid: [\n",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
