package pagearchive

import (
	"strings"
	"testing"

	"github.com/noteport/noteport/capability"
)

func TestParsePageMarkdown(t *testing.T) {
	data := []byte("---\ntitle: Overridden\ncolor: blue\n---\n# Heading\n\nbody text\n")

	p, err := ParsePage("docs/Some Page.md", data, capability.NewLoader().FrontMatterCodec())
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}

	if p.Title != "Overridden" {
		t.Errorf("title = %q, want front-matter override", p.Title)
	}
	if p.Props["color"] != "blue" {
		t.Errorf("props = %v", p.Props)
	}
	if p.Dir != "docs/Some Page" {
		t.Errorf("dir key = %q", p.Dir)
	}
	if len(p.Blocks) != 2 || p.Blocks[0].Type != BlockHeading {
		t.Errorf("blocks = %v", p.Blocks)
	}
}

func TestParsePageTable(t *testing.T) {
	p, err := ParsePage("sheets/People.csv", []byte("name,age\nana,3\n"), capability.NoFrontMatter())
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}

	if !p.IsTable {
		t.Error("csv page not flagged as table")
	}
	if len(p.Blocks) != 1 || p.Blocks[0].Type != BlockTable {
		t.Fatalf("blocks = %v", p.Blocks)
	}
	if len(p.Blocks[0].Rows) != 2 || p.Blocks[0].Rows[1][0] != "ana" {
		t.Errorf("rows = %v", p.Blocks[0].Rows)
	}
	if !strings.Contains(p.Raw, "| name | age |") {
		t.Errorf("raw table = %q", p.Raw)
	}
}

func TestParsePageTSVUsesTabs(t *testing.T) {
	p, err := ParsePage("sheets/Data.tsv", []byte("a\tb\n1\t2\n"), capability.NoFrontMatter())
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if p.Blocks[0].Rows[0][1] != "b" {
		t.Errorf("rows = %v", p.Blocks[0].Rows)
	}
}

func TestParsePageHTML(t *testing.T) {
	data := []byte("<html><head><title>From Markup</title></head><body><h1>From Markup</h1><p>hello</p></body></html>")

	p, err := ParsePage("pages/Export.html", data, capability.NewLoader().FrontMatterCodec())
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if p.Title != "From Markup" {
		t.Errorf("title = %q", p.Title)
	}
	if len(p.Blocks) == 0 {
		t.Error("html page produced no blocks")
	}
}

func TestParsePageBrokenFrontMatterDegrades(t *testing.T) {
	data := []byte("---\ntitle: [unclosed\n---\n# Still Here\n")

	p, err := ParsePage("docs/Broken.md", data, capability.NewLoader().FrontMatterCodec())
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if p.Title != "Broken" {
		t.Errorf("title = %q, want file name fallback", p.Title)
	}
	if p.Props != nil {
		t.Errorf("props = %v, want none", p.Props)
	}
	if !strings.Contains(p.Raw, "# Still Here") {
		t.Errorf("raw = %q", p.Raw)
	}
}
