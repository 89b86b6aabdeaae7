package pipeline

import "time"

// FileInfo is one discovered (scan) or planned (export) unit of work.  It is
// built once and treated as immutable afterwards; it only lives for the
// duration of a single operation.
type FileInfo struct {
	// Path as the handler first saw it, e.g. an archive entry name or a
	// repository note id.
	Path string

	// Resolved absolute path on disk, when the unit corresponds to a real
	// file.  Empty for planned exports that haven't been written yet.
	AbsPath string

	// Path relative to the operation root.
	RelPath string

	Name string
	Ext  string
	Size int64

	ModTime time.Time

	// Number of path components between the operation root and this file.
	Depth int

	// Free-form carrier for handler-specific facts, e.g. kind=attachment,
	// parent=<page id>, sha256=<hex>.
	Metadata map[string]string
}

// Meta is a nil-safe metadata lookup.
func (f FileInfo) Meta(key string) string {
	if f.Metadata == nil {
		return ""
	}
	return f.Metadata[key]
}

// IsAttachment reports whether the scan classified this unit as an
// attachment rather than a page.
func (f FileInfo) IsAttachment() bool {
	return f.Meta("kind") == "attachment"
}
