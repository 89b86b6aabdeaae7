package capability

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitExtractsHeader(t *testing.T) {
	doc := "---\ntitle: Hello\ntags:\n  - a\n  - b\n---\n# Body\n"

	meta, body, err := yamlFrontMatter{}.Split([]byte(doc))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if meta["title"] != "Hello" {
		t.Errorf("title = %v", meta["title"])
	}
	tags, ok := meta["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("tags = %v", meta["tags"])
	}
	if string(body) != "# Body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSplitWithoutHeaderPassesThrough(t *testing.T) {
	cases := []string{
		"# Just Markdown\n",
		"",
		"--- a thematic break on one line\n",
		"---\nnot closed, no second delimiter",
	}

	for _, doc := range cases {
		meta, body, err := yamlFrontMatter{}.Split([]byte(doc))
		if err != nil {
			t.Errorf("Split(%q) failed: %v", doc, err)
			continue
		}
		if meta != nil {
			t.Errorf("Split(%q) produced meta %v", doc, meta)
		}
		if string(body) != doc {
			t.Errorf("Split(%q) altered the body: %q", doc, body)
		}
	}
}

func TestSplitHandlesByteOrderMark(t *testing.T) {
	doc := append([]byte{0xEF, 0xBB, 0xBF}, "---\ntitle: Marked\n---\nbody\n"...)

	meta, body, err := yamlFrontMatter{}.Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if meta["title"] != "Marked" {
		t.Errorf("title = %v", meta["title"])
	}
	if string(body) != "body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSplitHandlesCRLF(t *testing.T) {
	doc := "---\r\ntitle: Windows\r\n---\r\nbody\r\n"

	meta, body, err := yamlFrontMatter{}.Split([]byte(doc))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if meta["title"] != "Windows" {
		t.Errorf("title = %v", meta["title"])
	}
	if !strings.HasPrefix(string(body), "body") {
		t.Errorf("body = %q", body)
	}
}

func TestSplitBadYAMLReturnsError(t *testing.T) {
	doc := "---\ntitle: [unclosed\n---\nbody\n"

	_, body, err := yamlFrontMatter{}.Split([]byte(doc))
	if err == nil {
		t.Fatal("Split of invalid YAML succeeded")
	}
	// On error the caller still gets the original bytes back.
	if string(body) != doc {
		t.Errorf("body = %q, want original document", body)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	meta := map[string]any{"title": "Round Trip", "noteId": "abc123"}

	rendered, err := yamlFrontMatter{}.Render(meta)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(string(rendered), "---\n") || !strings.HasSuffix(string(rendered), "\n---\n") {
		t.Fatalf("rendered header not delimited: %q", rendered)
	}

	got, body, err := yamlFrontMatter{}.Split(append(rendered, []byte("body\n")...))
	if err != nil {
		t.Fatalf("Split of rendered header failed: %v", err)
	}
	if !reflect.DeepEqual(got, meta) {
		t.Errorf("round trip meta = %v, want %v", got, meta)
	}
	if string(body) != "body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestRenderEmptyMetaIsEmpty(t *testing.T) {
	out, err := yamlFrontMatter{}.Render(nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Render(nil) = %q, want empty", out)
	}
}

func TestNoFrontMatterFallback(t *testing.T) {
	fm := NoFrontMatter()

	meta, body, err := fm.Split([]byte("---\ntitle: ignored\n---\nbody"))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if meta != nil {
		t.Errorf("fallback produced meta %v", meta)
	}
	if !strings.Contains(string(body), "title: ignored") {
		t.Error("fallback altered the document")
	}

	out, err := fm.Render(map[string]any{"title": "x"})
	if err != nil || out != nil {
		t.Errorf("fallback Render = %q, %v", out, err)
	}
}
