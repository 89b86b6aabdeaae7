package pagearchive

import (
	"encoding/csv"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/noteport/noteport/capability"
	"github.com/noteport/noteport/content"
)

var pageExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".csv":      true,
	".tsv":      true,
}

// classifyEntry reports whether an archive entry is a page, an attachment,
// or neither.
func classifyEntry(entryPath string, dir bool) (kind string) {
	if dir {
		return ""
	}
	base := path.Base(entryPath)
	if strings.HasPrefix(base, ".") {
		return ""
	}
	if pageExts[strings.ToLower(path.Ext(base))] {
		return "page"
	}
	return "attachment"
}

// ParsePage turns one extracted archive file into a Page.  The entry path
// keeps archive (forward-slash) form; data is the file's contents.
func ParsePage(entryPath string, data []byte, fm capability.FrontMatter) (*Page, error) {
	ext := strings.ToLower(path.Ext(entryPath))
	p := &Page{
		ID:    extractID(entryPath),
		Title: cleanTitle(entryPath),
		Path:  entryPath,
		Dir:   strings.TrimSuffix(entryPath, path.Ext(entryPath)),
	}

	switch ext {
	case ".csv", ".tsv":
		rows, err := parseTable(data, ext)
		if err != nil {
			return nil, fmt.Errorf("pagearchive: parsing table %q: %w", entryPath, err)
		}
		p.IsTable = true
		p.Blocks = []Block{{Type: BlockTable, Rows: rows}}
		p.Raw = content.RenderTable(rows)
		return p, nil

	case ".html", ".htm":
		info, err := content.NewChain(fm).Parse(data, path.Base(entryPath))
		if err != nil {
			return nil, fmt.Errorf("pagearchive: parsing page %q: %w", entryPath, err)
		}
		if info.Title != "" {
			p.Title = info.Title
		}
		p.Raw = info.Body
		p.Blocks = ParseBlocks(info.Body)
		return p, nil

	default:
		meta, body, err := fm.Split(data)
		if err != nil {
			meta, body = nil, data
		}
		if len(meta) > 0 {
			p.Props = map[string]string{}
			for k, v := range meta {
				p.Props[k] = fmt.Sprint(v)
			}
			if t, ok := p.Props["title"]; ok && t != "" {
				p.Title = t
			}
		}
		p.Raw = string(body)
		p.Blocks = ParseBlocks(p.Raw)
		return p, nil
	}
}

func parseTable(data []byte, ext string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	if ext == ".tsv" {
		r.Comma = '\t'
	}
	return r.ReadAll()
}

// sortedProps returns property keys in stable order for rendering.
func sortedProps(props map[string]string) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
