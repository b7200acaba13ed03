package unity

import (
	"bytes"
	"io"
	"path"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// YAMLDoc is one document of a Unity YAML file ("--- !u!4 &12345").
type YAMLDoc struct {
	Tag      string // tag:unity3d.com,2011:4
	Anchor   string // file ID
	Stripped bool
	Body     []byte
}

func (d *YAMLDoc) Decode(dst interface{}) error {
	return yaml.Unmarshal(d.Body, dst)
}

// ClassID returns the numeric class of the document, or 0. Unresolved
// shorthands ("!u!4") are accepted too.
func (d *YAMLDoc) ClassID() int {
	i := strings.LastIndexAny(d.Tag, ":!")
	id, _ := strconv.Atoi(d.Tag[i+1:])
	return id
}

func (d *YAMLDoc) FileID() int64 {
	id, _ := strconv.ParseInt(d.Anchor, 10, 64)
	return id
}

// ParseYamlDocuments splits a Unity YAML stream. Unity's tag shorthands are
// resolved with the %TAG directives of the stream.
func ParseYamlDocuments(data []byte) []*YAMLDoc {
	tags := map[string]string{}
	var docs []*YAMLDoc
	var cur *YAMLDoc
	start := 0
	pos := 0
	for pos < len(data) {
		end := bytes.IndexByte(data[pos:], '\n')
		if end < 0 {
			end = len(data)
		} else {
			end += pos + 1
		}
		line := strings.TrimRight(string(data[pos:end]), "\r\n")
		switch {
		case strings.HasPrefix(line, "%TAG "):
			f := strings.Fields(line[5:])
			if len(f) == 2 {
				tags[strings.Trim(f[0], "!")] = f[1]
			}
		case strings.HasPrefix(line, "---"):
			if cur != nil {
				cur.Body = data[start:pos]
				docs = append(docs, cur)
			}
			cur = &YAMLDoc{}
			for _, f := range strings.Fields(line[3:]) {
				switch {
				case f[0] == '&':
					cur.Anchor = f[1:]
				case f[0] == '!':
					cur.Tag = resolveTag(f, tags)
				case f == "stripped":
					cur.Stripped = true
				}
			}
			start = end
		}
		pos = end
	}
	if cur != nil {
		cur.Body = data[start:]
		docs = append(docs, cur)
	}
	return docs
}

// resolveTag expands "!u!4" with the handle registered for "u".
func resolveTag(tag string, tags map[string]string) string {
	t := strings.SplitN(tag[1:], "!", 2)
	if len(t) == 2 {
		if prefix, ok := tags[t[0]]; ok {
			return prefix + t[1]
		}
	}
	return tag
}

// ParseYamlDocumentsFrom reads r fully. A stream without document markers
// becomes a single document.
func ParseYamlDocumentsFrom(r io.Reader) []*YAMLDoc {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	docs := ParseYamlDocuments(data)
	if len(docs) == 0 {
		docs = []*YAMLDoc{{Body: data}}
	}
	return docs
}

func baseName(assetPath string) string {
	name := path.Base(assetPath)
	return strings.TrimSuffix(name, path.Ext(name))
}
