package capability

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadRejectsUnknownNames(t *testing.T) {
	l := NewLoader()

	for _, name := range []string{"shell-exec", "plugin.so", "", "archive-reader/../evil"} {
		if _, err := l.Load(name, LoadOptions{}); err == nil {
			t.Errorf("Load(%q) succeeded, want allow-list rejection", name)
		} else if !strings.Contains(err.Error(), "allow-list") {
			t.Errorf("Load(%q) error = %v, want allow-list mention", name, err)
		}
	}
}

func TestLoadCachesSuccessfulLoads(t *testing.T) {
	l := NewLoader()

	first, err := l.Load(NameFrontMatter, LoadOptions{})
	if err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	second, err := l.Load(NameFrontMatter, LoadOptions{})
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if first != second {
		t.Error("second load did not come from the cache")
	}
}

func TestOptionalUnknownNameStillErrors(t *testing.T) {
	// The allow-list applies before Optional is considered.
	l := NewLoader()
	if _, err := l.Load("not-a-thing", LoadOptions{Optional: true}); err == nil {
		t.Error("optional load of unknown name succeeded")
	}
}

func TestArchiveReturnsUsablePair(t *testing.T) {
	reader, writer := NewLoader().Archive()
	if reader == nil || writer == nil {
		t.Fatal("Archive returned nil reader or writer")
	}
}

func TestFrontMatterCodecLoads(t *testing.T) {
	fm := NewLoader().FrontMatterCodec()

	meta, body, err := fm.Split([]byte("---\ntitle: x\n---\nbody\n"))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if meta["title"] != "x" {
		t.Errorf("meta = %v, want title x", meta)
	}
	if string(body) != "body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestUnavailableArchiveReportsInsteadOfPanicking(t *testing.T) {
	u := unavailableArchive{reason: errors.New("zip support disabled")}

	if _, err := u.List("x.zip"); err == nil {
		t.Error("List on unavailable archive succeeded")
	}
	if _, err := u.Extract("x.zip", nil); err == nil {
		t.Error("Extract on unavailable archive succeeded")
	}
	if err := u.Create("x.zip", "dir"); err == nil {
		t.Error("Create on unavailable archive succeeded")
	}
}
