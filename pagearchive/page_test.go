package pagearchive

import (
	"errors"
	"regexp"
	"testing"
)

func TestExtractIDEmbedded(t *testing.T) {
	cases := []struct{ path, want string }{
		{"Home 0123456789abcdef0123456789abcdef.md", "0123456789abcdef0123456789abcdef"},
		{"docs/Page_ABCDEF0123456789ABCDEF0123456789.md", "abcdef0123456789abcdef0123456789"},
		{"notes/Thing-00000000000000000000000000000000.html", "00000000000000000000000000000000"},
	}
	for _, tc := range cases {
		if got := extractID(tc.path); got != tc.want {
			t.Errorf("extractID(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestExtractIDDerivedIsStable(t *testing.T) {
	a := extractID("docs/No Embedded Id.md")
	b := extractID("docs/No Embedded Id.md")
	c := extractID("docs/Another Page.md")

	if a != b {
		t.Errorf("same path derived different ids: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different paths derived the same id")
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(a) {
		t.Errorf("derived id %q is not 32 hex chars", a)
	}
}

func TestCleanTitle(t *testing.T) {
	cases := []struct{ path, want string }{
		{"Home 0123456789abcdef0123456789abcdef.md", "Home"},
		{"03-Getting Started.md", "Getting Started"},
		{"12_Setup_0123456789abcdef0123456789abcdef.md", "Setup"},
		{"plain.md", "plain"},
	}
	for _, tc := range cases {
		if got := cleanTitle(tc.path); got != tc.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func makePage(entryPath string) *Page {
	return &Page{
		ID:   extractID(entryPath),
		Path: entryPath,
		Dir:  trimExt(entryPath),
	}
}

func trimExt(p string) string {
	for i := len(p) - 1; i >= 0 && p[i] != '/'; i-- {
		if p[i] == '.' {
			return p[:i]
		}
	}
	return p
}

func TestBuildTreeHierarchy(t *testing.T) {
	root := makePage("Home.md")
	child := makePage("Home/Topics.md")
	grandchild := makePage("Home/Topics/Detail.md")
	orphanRoot := makePage("Standalone.md")

	tree := BuildTree([]*Page{root, child, grandchild, orphanRoot}, nil)

	if len(tree.Roots) != 2 {
		t.Fatalf("roots = %v, want 2", tree.Roots)
	}
	if child.ParentID != root.ID {
		t.Errorf("child parent = %q, want %q", child.ParentID, root.ID)
	}
	if grandchild.ParentID != child.ID {
		t.Errorf("grandchild parent = %q, want %q", grandchild.ParentID, child.ID)
	}
	if grandchild.Depth != 2 {
		t.Errorf("grandchild depth = %d, want 2", grandchild.Depth)
	}
	if orphanRoot.Depth != 0 {
		t.Errorf("standalone depth = %d, want 0", orphanRoot.Depth)
	}
	if len(root.Children) != 1 || root.Children[0] != child.ID {
		t.Errorf("root children = %v", root.Children)
	}
}

func TestBuildTreeAttachmentsByColocation(t *testing.T) {
	owner := makePage("Home.md")
	nested := makePage("Home/Sub.md")
	attachments := []string{
		"Home/diagram.png",
		"Home/Sub/photo.jpg",
		"unowned/loose.bin",
	}

	tree := BuildTree([]*Page{owner, nested}, attachments)

	if len(owner.Attachments) != 1 || owner.Attachments[0] != "Home/diagram.png" {
		t.Errorf("owner attachments = %v", owner.Attachments)
	}
	if len(nested.Attachments) != 1 || nested.Attachments[0] != "Home/Sub/photo.jpg" {
		t.Errorf("nested attachments = %v", nested.Attachments)
	}
	_ = tree
}

func TestWalkVisitsParentsFirst(t *testing.T) {
	root := makePage("A.md")
	mid := makePage("A/B.md")
	leaf := makePage("A/B/C.md")
	tree := BuildTree([]*Page{leaf, mid, root}, nil)

	var visited []string
	err := tree.Walk(func(p *Page) error {
		visited = append(visited, p.Path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	want := []string{"A.md", "A/B.md", "A/B/C.md"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}
}

func TestWalkStopsOnError(t *testing.T) {
	root := makePage("A.md")
	leaf := makePage("A/B.md")
	tree := BuildTree([]*Page{root, leaf}, nil)

	boom := errors.New("boom")
	var count int
	err := tree.Walk(func(p *Page) error {
		count++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Walk error = %v, want boom", err)
	}
	if count != 1 {
		t.Errorf("visit count = %d, want 1", count)
	}
}

func TestClassifyEntry(t *testing.T) {
	cases := []struct {
		path string
		dir  bool
		want string
	}{
		{"Home.md", false, "page"},
		{"Home/page.HTML", false, "page"},
		{"data.csv", false, "page"},
		{"assets/pic.png", false, "attachment"},
		{"archive.bin", false, "attachment"},
		{".DS_Store", false, ""},
		{"Home", true, ""},
	}
	for _, tc := range cases {
		if got := classifyEntry(tc.path, tc.dir); got != tc.want {
			t.Errorf("classifyEntry(%q, %v) = %q, want %q", tc.path, tc.dir, got, tc.want)
		}
	}
}
