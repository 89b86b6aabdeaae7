// Package capability gates the optional format libraries (archive
// reader/writer, front-matter codec) behind narrow interfaces.  Call sites
// receive an implementation at construction and never branch on
// presence/absence: when the real library can't be loaded, an optional
// capability degrades to a fallback satisfying the same interface.
package capability

import (
	"time"

	"github.com/noteport/noteport/safepath"
)

// ArchiveEntry describes one member of an archive without extracting it.
type ArchiveEntry struct {
	Name     string
	Size     int64
	Modified time.Time
	Dir      bool
}

// ArchiveReader lists and extracts archives.  Extraction routes every entry
// name through the destination resolver, so a crafted entry can't escape the
// working directory.
type ArchiveReader interface {
	List(archivePath string) ([]ArchiveEntry, error)
	Extract(archivePath string, dest *safepath.Resolver) ([]string, error)
}

// ArchiveWriter packs a directory tree into an archive.
type ArchiveWriter interface {
	Create(archivePath string, srcDir string) error
}

// FrontMatter splits and renders the structured header of a document.
type FrontMatter interface {
	// Split returns the parsed header (nil when absent) and the remaining
	// body.
	Split(data []byte) (map[string]any, []byte, error)
	// Render marshals a header including its delimiters.
	Render(meta map[string]any) ([]byte, error)
}
