// Package content normalises heterogeneous file content (Markdown, HTML,
// tabular, plain text) into one representation and back.
package content

// Type tags which sub-parser produced a ContentInfo.  The tag determines
// which fields are populated: tabular content, for instance, never carries
// links.
type Type string

const (
	TypeMarkdown Type = "markdown"
	TypeHTML     Type = "html"
	TypeTable    Type = "table"
	TypePlain    Type = "plain"
)

// ContentInfo is the parsed, format-agnostic representation of one file.
type ContentInfo struct {
	Type  Type
	Title string

	// Body is the primary textual content, always Markdown-flavoured
	// except for TypePlain.
	Body string

	// FrontMatter holds the structured header, when the source had one.
	FrontMatter map[string]any

	// Links are outgoing link targets found in the body.
	Links []string

	// Attachments are embedded file references (images etc).
	Attachments []string

	// Tags is the union of front-matter and inline tags, deduplicated.
	Tags []string

	Metadata map[string]string
}

// Parser turns raw bytes into a ContentInfo.  Selection is first-match over
// an ordered list; the plain parser always matches.
type Parser interface {
	CanHandle(name string) bool
	Parse(data []byte, name string) (*ContentInfo, error)
}

// Formatter is the dual: reconstruct a file body from a ContentInfo.
type Formatter interface {
	CanFormat(info *ContentInfo, format string) bool
	Format(info *ContentInfo, format string) (string, error)
}
