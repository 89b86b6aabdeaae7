package content

import (
	"fmt"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdplugin "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

// HTMLParser handles markup documents by converting them into the common
// Markdown body.  The title is taken from <title> or the first <h1>.
type HTMLParser struct{}

func NewHTMLParser() *HTMLParser { return &HTMLParser{} }

func (p *HTMLParser) CanHandle(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

func (p *HTMLParser) Parse(data []byte, name string) (*ContentInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("content: couldn't parse HTML %s: %w", name, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		base := filepath.Base(name)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	converter := md.NewConverter("", true, nil)
	// GitHub flavoured Markdown knows about tables 👍
	converter.Use(mdplugin.GitHubFlavored())

	body, err := converter.ConvertString(string(data))
	if err != nil {
		return nil, fmt.Errorf("content: failed to convert %s to Markdown: %w", name, err)
	}

	info := &ContentInfo{
		Type:     TypeHTML,
		Title:    title,
		Body:     body,
		Metadata: map[string]string{},
	}
	info.Links, info.Attachments = extractLinks(body)

	return info, nil
}

// HTMLFormatter renders a ContentInfo body as minimal HTML, for note servers
// whose text notes store markup.  Known markdown constructs are rewritten;
// anything unrecognized passes through as paragraph text.
type HTMLFormatter struct{}

func NewHTMLFormatter() *HTMLFormatter { return &HTMLFormatter{} }

func (f *HTMLFormatter) CanFormat(info *ContentInfo, format string) bool {
	return format == string(TypeHTML)
}

func (f *HTMLFormatter) Format(info *ContentInfo, format string) (string, error) {
	return MarkdownToHTML(info.Body), nil
}

// MarkdownToHTML performs a line-oriented rendering of the markdown subset
// the pipeline produces: headings, lists, quotes, fenced code, emphasis and
// links.  It is deliberately conservative; unknown constructs become plain
// paragraphs.
func MarkdownToHTML(body string) string {
	var out strings.Builder
	lines := strings.Split(body, "\n")

	inFence := false
	var fenceBuf []string

	flushFence := func() {
		out.WriteString("<pre><code>")
		out.WriteString(escapeHTML(strings.Join(fenceBuf, "\n")))
		out.WriteString("</code></pre>\n")
		fenceBuf = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				flushFence()
			}
			inFence = !inFence
			continue
		}
		if inFence {
			fenceBuf = append(fenceBuf, line)
			continue
		}

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "#"):
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' && level < 6 {
				level++
			}
			text := strings.TrimSpace(trimmed[level:])
			fmt.Fprintf(&out, "<h%d>%s</h%d>\n", level, inlineHTML(text), level)
		case strings.HasPrefix(trimmed, "> "):
			fmt.Fprintf(&out, "<blockquote>%s</blockquote>\n", inlineHTML(strings.TrimPrefix(trimmed, "> ")))
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ "):
			fmt.Fprintf(&out, "<ul><li>%s</li></ul>\n", inlineHTML(trimmed[2:]))
		default:
			fmt.Fprintf(&out, "<p>%s</p>\n", inlineHTML(trimmed))
		}
	}
	if inFence {
		flushFence()
	}

	return out.String()
}

var escapeRepl = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return escapeRepl.Replace(s) }

func inlineHTML(s string) string {
	s = escapeHTML(s)
	s = mdLinkPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := mdLinkPattern.FindStringSubmatch(match)
		if m[1] == "!" {
			return fmt.Sprintf(`<img src="%s" alt="%s">`, m[3], m[2])
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, m[3], m[2])
	})
	return s
}
