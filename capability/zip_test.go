package capability

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/noteport/noteport/safepath"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0640); err != nil {
			t.Fatal(err)
		}
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"index.md":          "# Index\n",
		"sub/nested.md":     "nested\n",
		"sub/assets/p.png":  "binary",
		"another/deep/x.md": "deep\n",
	})

	archivePath := filepath.Join(t.TempDir(), "out.zip")
	if err := (zipArchive{}).Create(archivePath, src); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entries, err := zipArchive{}.List(archivePath)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Dir {
			continue
		}
		names = append(names, e.Name)
	}
	sort.Strings(names)
	want := []string{"another/deep/x.md", "index.md", "sub/assets/p.png", "sub/nested.md"}
	if len(names) != len(want) {
		t.Fatalf("List = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List = %v, want %v", names, want)
		}
	}

	dest := t.TempDir()
	resolver, err := safepath.NewResolver(dest)
	if err != nil {
		t.Fatal(err)
	}
	extracted, err := zipArchive{}.Extract(archivePath, resolver)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(extracted) != 4 {
		t.Fatalf("extracted %d files, want 4", len(extracted))
	}

	got, err := os.ReadFile(filepath.Join(dest, "sub", "nested.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "nested\n" {
		t.Errorf("extracted content = %q", got)
	}
}

func TestExtractRefusesTraversal(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "evil.zip")
	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(out)
	f, err := w.Create("../escape.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("gotcha")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	parent := t.TempDir()
	dest := filepath.Join(parent, "inner")
	if err := os.MkdirAll(dest, 0750); err != nil {
		t.Fatal(err)
	}
	resolver, err := safepath.NewResolver(dest)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := (zipArchive{}).Extract(archivePath, resolver); err == nil {
		t.Fatal("Extract of traversal entry succeeded")
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.txt")); !os.IsNotExist(err) {
		t.Error("traversal entry landed outside the destination")
	}
}

func TestListMissingArchive(t *testing.T) {
	if _, err := (zipArchive{}).List(filepath.Join(t.TempDir(), "nope.zip")); err == nil {
		t.Error("List of missing archive succeeded")
	}
}
