package capability

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

var fmDelimiter = []byte("---")

// yamlFrontMatter is the real front-matter codec.
type yamlFrontMatter struct{}

func (yamlFrontMatter) Split(data []byte) (map[string]any, []byte, error) {
	trimmed := bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !bytes.HasPrefix(trimmed, fmDelimiter) {
		return nil, data, nil
	}

	rest := trimmed[len(fmDelimiter):]
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] != '\n' {
		// "---" followed by text on the same line is a thematic break, not
		// front matter.
		return nil, data, nil
	}
	rest = rest[1:]

	end := bytes.Index(rest, append([]byte("\n"), fmDelimiter...))
	if end < 0 {
		return nil, data, nil
	}

	header := rest[:end]
	body := rest[end+1+len(fmDelimiter):]
	// swallow the delimiter's own line ending
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))

	meta := map[string]any{}
	if err := yaml.Unmarshal(header, &meta); err != nil {
		return nil, data, fmt.Errorf("capability: couldn't parse front matter: %w", err)
	}

	return meta, body, nil
}

func (yamlFrontMatter) Render(meta map[string]any) ([]byte, error) {
	if len(meta) == 0 {
		return nil, nil
	}

	encoded, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("capability: couldn't marshal front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimSpace(encoded))
	buf.WriteString("\n---\n")
	return buf.Bytes(), nil
}

// noFrontMatter is the graceful fallback: documents simply have no header.
type noFrontMatter struct{}

func (noFrontMatter) Split(data []byte) (map[string]any, []byte, error) {
	return nil, data, nil
}

func (noFrontMatter) Render(meta map[string]any) ([]byte, error) {
	return nil, nil
}

// NoFrontMatter returns the fallback codec directly; exported for tests and
// for callers that explicitly want front matter ignored.
func NoFrontMatter() FrontMatter { return noFrontMatter{} }
