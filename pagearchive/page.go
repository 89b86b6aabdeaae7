package pagearchive

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Page is one node of the parsed archive.  Parent is stored as an id
// (lookup-only); Children is the owning list.  Both resolve through the
// tree's arena.
type Page struct {
	ID    string
	Title string

	// Path is the archive entry this page came from.
	Path string

	// Dir is the page's directory key: its entry path without extension.
	// Children live in the directory of that name.
	Dir string

	Raw    string
	Blocks []Block

	// Props is the page's front-matter/property map, when present.
	Props map[string]string

	ParentID string
	Children []string

	Attachments []string

	// Depth equals the number of ancestors.
	Depth int

	// Table pages carry their rows separately from the rendered block.
	IsTable bool
}

// Tree is the arena of pages indexed by stable id.
type Tree struct {
	Pages map[string]*Page

	// Order preserves source traversal order for deterministic output.
	Order []string

	Roots []string
}

// Page returns the arena entry, nil when absent.
func (t *Tree) Page(id string) *Page {
	if t == nil {
		return nil
	}
	return t.Pages[id]
}

// Walk visits pages depth-first in child order, parents before children.
func (t *Tree) Walk(visit func(*Page) error) error {
	var rec func(id string) error
	rec = func(id string) error {
		p := t.Pages[id]
		if p == nil {
			return nil
		}
		if err := visit(p); err != nil {
			return err
		}
		for _, child := range p.Children {
			if err := rec(child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range t.Roots {
		if err := rec(root); err != nil {
			return err
		}
	}
	return nil
}

var (
	embeddedID     = regexp.MustCompile(`[ _-]([0-9a-fA-F]{32})$`)
	leadingOrdinal = regexp.MustCompile(`^\d+[-_. ]+`)
)

// pageIDNamespace keys the deterministic id derivation for entries without
// an embedded id.
var pageIDNamespace = uuid.MustParse("8f8bd9a6-3a51-4f44-9b6e-2f4de9f7c0a1")

// extractID pulls the UUID-like token embedded in the file name, falling
// back to a deterministic hash of the name so re-importing the same archive
// derives the same ids.
func extractID(entryPath string) string {
	base := strings.TrimSuffix(path.Base(entryPath), path.Ext(entryPath))
	if m := embeddedID.FindStringSubmatch(base); m != nil {
		return strings.ToLower(m[1])
	}
	return strings.ReplaceAll(uuid.NewSHA1(pageIDNamespace, []byte(entryPath)).String(), "-", "")
}

// cleanTitle strips the embedded id and any leading ordinal from a file
// name.
func cleanTitle(entryPath string) string {
	base := strings.TrimSuffix(path.Base(entryPath), path.Ext(entryPath))
	base = embeddedID.ReplaceAllString(base, "")
	base = leadingOrdinal.ReplaceAllString(base, "")
	base = strings.TrimSpace(base)
	if base == "" {
		base = path.Base(entryPath)
	}
	return base
}

// BuildTree links parsed pages into a hierarchy by directory containment: a
// page is the child of the page whose directory key equals its own parent
// directory.  Attachment paths are then associated by directory
// co-location.
func BuildTree(pages []*Page, attachments []string) *Tree {
	tree := &Tree{Pages: map[string]*Page{}}

	byDir := map[string]*Page{}
	for _, p := range pages {
		tree.Pages[p.ID] = p
		tree.Order = append(tree.Order, p.ID)
		byDir[p.Dir] = p
	}

	for _, p := range pages {
		parentDir := path.Dir(p.Path)
		if parent, ok := byDir[parentDir]; ok && parent.ID != p.ID {
			p.ParentID = parent.ID
			parent.Children = append(parent.Children, p.ID)
		} else {
			tree.Roots = append(tree.Roots, p.ID)
		}
	}

	// children keep source traversal order
	for _, p := range pages {
		sort.SliceStable(p.Children, func(i, j int) bool {
			return indexOf(tree.Order, p.Children[i]) < indexOf(tree.Order, p.Children[j])
		})
	}

	for _, att := range attachments {
		dir := path.Dir(att)
		if owner, ok := byDir[dir]; ok {
			owner.Attachments = append(owner.Attachments, att)
		}
	}

	// depth equals the number of ancestors
	var setDepth func(id string, depth int)
	setDepth = func(id string, depth int) {
		p := tree.Pages[id]
		if p == nil {
			return
		}
		p.Depth = depth
		for _, child := range p.Children {
			setDepth(child, depth+1)
		}
	}
	for _, root := range tree.Roots {
		setDepth(root, 0)
	}

	return tree
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return len(order)
}
