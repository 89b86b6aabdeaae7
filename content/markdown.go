package content

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/noteport/noteport/capability"
)

var (
	mdLinkPattern   = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	wikiLinkPattern = regexp.MustCompile(`(!?)\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	inlineTag       = regexp.MustCompile(`(?:^|\s)#([\p{L}\d][\p{L}\d_/-]*)`)
	headingPattern  = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// MarkdownParser handles structured-text documents: front matter, markdown
// and wiki links, embedded images, and inline tags.
type MarkdownParser struct {
	fm capability.FrontMatter
}

func NewMarkdownParser(fm capability.FrontMatter) *MarkdownParser {
	if fm == nil {
		fm = capability.NoFrontMatter()
	}
	return &MarkdownParser{fm: fm}
}

func (p *MarkdownParser) CanHandle(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".mdown":
		return true
	}
	return false
}

func (p *MarkdownParser) Parse(data []byte, name string) (*ContentInfo, error) {
	meta, body, err := p.fm.Split(data)
	if err != nil {
		// Front matter is a best-effort feature; a broken header degrades
		// to "no front matter" rather than failing the file.
		meta, body = nil, data
	}

	info := &ContentInfo{
		Type:        TypeMarkdown,
		Body:        string(body),
		FrontMatter: meta,
		Metadata:    map[string]string{},
	}

	info.Title = extractTitle(meta, info.Body, name)
	info.Links, info.Attachments = extractLinks(info.Body)
	info.Tags = extractTags(meta, info.Body)

	return info, nil
}

func extractTitle(meta map[string]any, body string, name string) string {
	if meta != nil {
		if t, ok := meta["title"].(string); ok && t != "" {
			return t
		}
	}

	if m := headingPattern.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}

	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// extractLinks pulls outgoing link targets and embedded attachment
// references out of a markdown body.  Wiki links count as links; image-style
// embeds count as attachments.
func extractLinks(body string) (links []string, attachments []string) {
	seenLink := map[string]bool{}
	seenAttachment := map[string]bool{}

	for _, m := range mdLinkPattern.FindAllStringSubmatch(body, -1) {
		target := m[3]
		if m[1] == "!" {
			if !seenAttachment[target] {
				seenAttachment[target] = true
				attachments = append(attachments, target)
			}
			continue
		}
		if !seenLink[target] {
			seenLink[target] = true
			links = append(links, target)
		}
	}

	for _, m := range wikiLinkPattern.FindAllStringSubmatch(body, -1) {
		target := strings.TrimSpace(m[2])
		if m[1] == "!" {
			if !seenAttachment[target] {
				seenAttachment[target] = true
				attachments = append(attachments, target)
			}
			continue
		}
		if !seenLink[target] {
			seenLink[target] = true
			links = append(links, target)
		}
	}

	return links, attachments
}

// extractTags unions front-matter tags with inline #tags, duplicates removed.
func extractTags(meta map[string]any, body string) []string {
	set := map[string]bool{}

	if meta != nil {
		switch v := meta["tags"].(type) {
		case string:
			for _, t := range strings.Split(v, ",") {
				if t = strings.TrimSpace(t); t != "" {
					set[t] = true
				}
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					set[strings.TrimSpace(s)] = true
				}
			}
		}
	}

	// keep fenced code out of tag extraction; #include is not a tag
	for _, line := range strings.Split(stripFences(body), "\n") {
		for _, m := range inlineTag.FindAllStringSubmatch(line, -1) {
			set[m[1]] = true
		}
	}

	if len(set) == 0 {
		return nil
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func stripFences(body string) string {
	var out strings.Builder
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return out.String()
}

// ConvertWikiLinks rewrites [[Target]] and [[Target|Label]] into standard
// markdown links.  Embeds become image links.
func ConvertWikiLinks(body string) string {
	return wikiLinkPattern.ReplaceAllStringFunc(body, func(match string) string {
		m := wikiLinkPattern.FindStringSubmatch(match)
		target := strings.TrimSpace(m[2])
		label := target
		if m[3] != "" {
			label = strings.TrimSpace(m[3])
		}
		href := strings.ReplaceAll(target, " ", "%20")
		if !strings.Contains(target, ".") {
			href += ".md"
		}
		return fmt.Sprintf("%s[%s](%s)", m[1], label, href)
	})
}

// MarkdownFormatter reconstructs a structured-text file: front matter first,
// then a title heading unless the body already starts with one, then the
// body.
type MarkdownFormatter struct {
	fm capability.FrontMatter
}

func NewMarkdownFormatter(fm capability.FrontMatter) *MarkdownFormatter {
	if fm == nil {
		fm = capability.NoFrontMatter()
	}
	return &MarkdownFormatter{fm: fm}
}

func (f *MarkdownFormatter) CanFormat(info *ContentInfo, format string) bool {
	return format == string(TypeMarkdown) && (info.Type == TypeMarkdown || info.Type == TypeHTML || info.Type == TypePlain)
}

func (f *MarkdownFormatter) Format(info *ContentInfo, format string) (string, error) {
	var out strings.Builder

	meta := info.FrontMatter
	if len(info.Tags) > 0 {
		if meta == nil {
			meta = map[string]any{}
		}
		if _, ok := meta["tags"]; !ok {
			tags := make([]any, len(info.Tags))
			for i, t := range info.Tags {
				tags[i] = t
			}
			meta["tags"] = tags
		}
	}

	if len(meta) > 0 {
		header, err := f.fm.Render(meta)
		if err != nil {
			return "", fmt.Errorf("content: couldn't render front matter: %w", err)
		}
		out.Write(header)
	}

	body := strings.TrimLeft(info.Body, "\n")
	if info.Title != "" && !strings.HasPrefix(body, "# ") {
		out.WriteString("# ")
		out.WriteString(info.Title)
		out.WriteString("\n\n")
	}

	out.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		out.WriteString("\n")
	}

	return out.String(), nil
}
