package content

import (
	"fmt"

	"github.com/noteport/noteport/capability"
)

// Chain is the ordered parser/formatter selection: markdown → html → tabular
// → plain.  First match wins; plain always matches.
type Chain struct {
	parsers    []Parser
	formatters []Formatter
}

// NewChain wires the standard chain.  The front-matter codec comes from the
// capability loader so its absence degrades instead of failing.
func NewChain(fm capability.FrontMatter) *Chain {
	return &Chain{
		parsers: []Parser{
			NewMarkdownParser(fm),
			NewHTMLParser(),
			NewCSVParser(),
			NewPlainParser(),
		},
		formatters: []Formatter{
			NewMarkdownFormatter(fm),
			NewHTMLFormatter(),
			NewCSVFormatter(),
		},
	}
}

// Parse dispatches to the first parser that claims the file name.
func (c *Chain) Parse(data []byte, name string) (*ContentInfo, error) {
	for _, p := range c.parsers {
		if p.CanHandle(name) {
			info, err := p.Parse(data, name)
			if err != nil {
				return nil, fmt.Errorf("content: parse of %s failed: %w", name, err)
			}
			return info, nil
		}
	}

	// unreachable while PlainParser terminates the chain
	return nil, fmt.Errorf("content: no parser claimed %s", name)
}

// Format dispatches to the first formatter that accepts (info, format).
func (c *Chain) Format(info *ContentInfo, format string) (string, error) {
	for _, f := range c.formatters {
		if f.CanFormat(info, format) {
			return f.Format(info, format)
		}
	}
	return "", fmt.Errorf("content: no formatter for type %s into %s", info.Type, format)
}
