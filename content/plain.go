package content

import (
	"path/filepath"
	"strings"
)

// PlainParser is the fallback: it always matches, guaranteeing every file
// produces some ContentInfo.
type PlainParser struct{}

func NewPlainParser() *PlainParser { return &PlainParser{} }

func (p *PlainParser) CanHandle(name string) bool { return true }

func (p *PlainParser) Parse(data []byte, name string) (*ContentInfo, error) {
	base := filepath.Base(name)
	return &ContentInfo{
		Type:     TypePlain,
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Body:     string(data),
		Metadata: map[string]string{},
	}, nil
}
