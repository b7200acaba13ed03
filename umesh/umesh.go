// Package umesh reads and writes the umesh model, skinned model and animation
// clip files in their text and binary encodings.
package umesh

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Version is the newest file version this package reads and the one it writes.
const Version = 1

var (
	ErrTruncated        = errors.New("umesh: truncated input")
	ErrBindPoseMismatch = errors.New("umesh: bone count does not match bind pose count")
	ErrNameTooLong      = errors.New("umesh: name too long")
)

// FormatError reports structurally invalid input. Offset is a byte offset for
// binary input and a line number for text input.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("umesh: invalid format at %d: %s", e.Offset, e.Msg)
}

type Mesh struct {
	Name      string
	Geometry  *Geometry
	BindPoses []BindPose // skinned only
	Material  *Material
}

// StaticModel is the content of .uma/.umb files. Geometry is in world space.
type StaticModel struct {
	Format VertexFormat
	Meshes []*Mesh
}

// SkinnedModel is the content of .usa/.usb files.
type SkinnedModel struct {
	Hierarchy *Hierarchy
	Format    VertexFormat
	Meshes    []*Mesh
}

type Kind int

const (
	KindUnknown Kind = iota
	KindStaticText
	KindStaticBinary
	KindSkinnedText
	KindSkinnedBinary
	KindClipText
	KindClipBinary
)

var kindExtensions = map[Kind]string{
	KindStaticText:    ".uma",
	KindStaticBinary:  ".umb",
	KindSkinnedText:   ".usa",
	KindSkinnedBinary: ".usb",
	KindClipText:      ".usaa",
	KindClipBinary:    ".usab",
}

var textMagic = map[Kind]string{
	KindStaticText:  "UMA",
	KindSkinnedText: "USA",
	KindClipText:    "USAA",
}

var binaryMagic = map[Kind][4]byte{
	KindStaticBinary:  {'U', 'M', 'B', 0},
	KindSkinnedBinary: {'U', 'S', 'B', 0},
	KindClipBinary:    {'U', 'S', 'A', 'B'},
}

func KindFromPath(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	for k, e := range kindExtensions {
		if e == ext {
			return k
		}
	}
	return KindUnknown
}

func (k Kind) Extension() string {
	return kindExtensions[k]
}

func (k Kind) IsBinary() bool {
	return k == KindStaticBinary || k == KindSkinnedBinary || k == KindClipBinary
}

func (k Kind) IsSkinned() bool {
	return k == KindSkinnedText || k == KindSkinnedBinary
}

func (k Kind) IsClip() bool {
	return k == KindClipText || k == KindClipBinary
}

// Binary returns the binary kind of the same content.
func (k Kind) Binary() Kind {
	switch k {
	case KindStaticText:
		return KindStaticBinary
	case KindSkinnedText:
		return KindSkinnedBinary
	case KindClipText:
		return KindClipBinary
	}
	return k
}

// Text returns the text kind of the same content.
func (k Kind) Text() Kind {
	switch k {
	case KindStaticBinary:
		return KindStaticText
	case KindSkinnedBinary:
		return KindSkinnedText
	case KindClipBinary:
		return KindClipText
	}
	return k
}

func (k Kind) String() string {
	if e, ok := kindExtensions[k]; ok {
		return e[1:]
	}
	return "unknown"
}

// Load reads a file and returns *StaticModel, *SkinnedModel or *Clip.
func Load(path string) (interface{}, error) {
	kind := KindFromPath(path)
	if kind == KindUnknown {
		return nil, fmt.Errorf("umesh: unknown file type: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	switch kind {
	case KindStaticText:
		doc, err = ParseStaticText(bytes.NewReader(data))
	case KindStaticBinary:
		doc, err = ParseStaticBinary(data)
	case KindSkinnedText:
		doc, err = ParseSkinnedText(bytes.NewReader(data))
	case KindSkinnedBinary:
		doc, err = ParseSkinnedBinary(data)
	case KindClipText:
		doc, err = ParseClipText(bytes.NewReader(data))
	case KindClipBinary:
		doc, err = ParseClipBinary(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Write encodes doc as kind. doc must match the content of kind.
func Write(w io.Writer, kind Kind, doc interface{}) error {
	switch d := doc.(type) {
	case *StaticModel:
		switch kind {
		case KindStaticText:
			return WriteStaticText(w, d)
		case KindStaticBinary:
			return WriteStaticBinary(w, d)
		}
	case *SkinnedModel:
		switch kind {
		case KindSkinnedText:
			return WriteSkinnedText(w, d)
		case KindSkinnedBinary:
			return WriteSkinnedBinary(w, d)
		}
	case *Clip:
		switch kind {
		case KindClipText:
			return WriteClipText(w, d)
		case KindClipBinary:
			return WriteClipBinary(w, d)
		}
	}
	return fmt.Errorf("umesh: cannot write %T as %s", doc, kind)
}
