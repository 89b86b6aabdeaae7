// Package pagearchive imports and exports zipped page-export archives: a
// tree of block-structured pages (with optional tabular pages) whose
// hierarchy is encoded by directory containment and whose page files carry
// an embedded stable id.
package pagearchive

import (
	"fmt"
	"regexp"
	"strings"
)

type BlockType int

const (
	BlockParagraph BlockType = iota
	BlockHeading
	BlockQuote
	BlockCode
	BlockListItem
	BlockTable
)

func (t BlockType) String() string {
	switch t {
	case BlockHeading:
		return "heading"
	case BlockQuote:
		return "quote"
	case BlockCode:
		return "code"
	case BlockListItem:
		return "list-item"
	case BlockTable:
		return "table"
	default:
		return "paragraph"
	}
}

// Block is one parsed unit of a page body.
type Block struct {
	Type BlockType

	// Level is the heading depth or list nesting indicator.
	Level int

	// Lang is the fence language for code blocks.
	Lang string

	// Ordered is set for numbered list items.
	Ordered bool

	Text string

	// Rows is populated for table blocks only.
	Rows [][]string
}

var (
	headingMarker = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listMarker    = regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+(.*)$`)
)

// ParseBlocks splits a body into ordered blocks.  Line-oriented with
// explicit precedence: heading > quote > fenced code > list item > blank
// skip > paragraph.  A fence consumes until the matching fence or end of
// input.
func ParseBlocks(body string) []Block {
	lines := strings.Split(body, "\n")
	blocks := []Block{}

	var paragraph []string
	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		blocks = append(blocks, Block{
			Type: BlockParagraph,
			Text: strings.Join(paragraph, "\n"),
		})
		paragraph = nil
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := headingMarker.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			blocks = append(blocks, Block{
				Type:  BlockHeading,
				Level: len(m[1]),
				Text:  strings.TrimSpace(m[2]),
			})
			continue
		}

		if strings.HasPrefix(trimmed, ">") {
			flushParagraph()
			blocks = append(blocks, Block{
				Type: BlockQuote,
				Text: strings.TrimSpace(strings.TrimPrefix(trimmed, ">")),
			})
			continue
		}

		if strings.HasPrefix(trimmed, "```") {
			flushParagraph()
			lang := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			var code []string
			i++
			for ; i < len(lines); i++ {
				if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
					break
				}
				code = append(code, lines[i])
			}
			blocks = append(blocks, Block{
				Type: BlockCode,
				Lang: lang,
				Text: strings.Join(code, "\n"),
			})
			continue
		}

		if m := listMarker.FindStringSubmatch(line); m != nil {
			flushParagraph()
			ordered := m[2] != "-" && m[2] != "*" && m[2] != "+"
			blocks = append(blocks, Block{
				Type:    BlockListItem,
				Level:   len(m[1]) / 2,
				Ordered: ordered,
				Text:    strings.TrimSpace(m[3]),
			})
			continue
		}

		if trimmed == "" {
			flushParagraph()
			continue
		}

		paragraph = append(paragraph, trimmed)
	}
	flushParagraph()

	return blocks
}

// RenderBlocks writes blocks back into the archive's structured-text
// syntax.
func RenderBlocks(blocks []Block) string {
	var out strings.Builder

	for _, b := range blocks {
		switch b.Type {
		case BlockHeading:
			out.WriteString(strings.Repeat("#", b.Level))
			out.WriteString(" ")
			out.WriteString(b.Text)
			out.WriteString("\n\n")
		case BlockQuote:
			out.WriteString("> ")
			out.WriteString(b.Text)
			out.WriteString("\n\n")
		case BlockCode:
			out.WriteString("```")
			out.WriteString(b.Lang)
			out.WriteString("\n")
			out.WriteString(b.Text)
			out.WriteString("\n```\n\n")
		case BlockListItem:
			out.WriteString(strings.Repeat("  ", b.Level))
			if b.Ordered {
				out.WriteString("1. ")
			} else {
				out.WriteString("- ")
			}
			out.WriteString(b.Text)
			out.WriteString("\n")
		case BlockTable:
			out.WriteString(b.Text)
			out.WriteString("\n")
		default:
			out.WriteString(b.Text)
			out.WriteString("\n\n")
		}
	}

	return strings.TrimRight(out.String(), "\n") + "\n"
}

// BlocksToMarkdown is RenderBlocks for the repository direction; the block
// syntax is Markdown-shaped, so the two match, but table blocks keep their
// pre-rendered form.
func BlocksToMarkdown(blocks []Block) string {
	return RenderBlocks(blocks)
}

var (
	emphasisStrong = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	emphasisEm     = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
	inlineCode     = regexp.MustCompile("`([^`]+)`")
	imageRef       = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	linkRef        = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
)

// StripUnknownInline reduces markup the block syntax doesn't model down to
// plain text rather than failing the page.  Used in strict block mode.
func StripUnknownInline(text string) string {
	text = imageRef.ReplaceAllString(text, "$1")
	text = linkRef.ReplaceAllString(text, "$1")
	text = emphasisStrong.ReplaceAllString(text, "$1$2")
	text = emphasisEm.ReplaceAllString(text, "$1$2")
	text = inlineCode.ReplaceAllString(text, "$1")
	return text
}

// describe is a debugging aid for tests and logs.
func (b Block) describe() string {
	return fmt.Sprintf("%s(level=%d): %.40s", b.Type, b.Level, b.Text)
}
