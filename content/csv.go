package content

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// CSVParser handles tabular files.  The body is a pre-rendered markdown
// table; the raw rows travel as JSON in the metadata so exporters can
// reconstruct the original table.  Tabular content never carries links.
type CSVParser struct{}

func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) CanHandle(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv":
		return true
	}
	return false
}

func (p *CSVParser) Parse(data []byte, name string) (*ContentInfo, error) {
	r := csv.NewReader(bytes.NewReader(data))
	if strings.EqualFold(filepath.Ext(name), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("content: couldn't parse tabular file %s: %w", name, err)
	}

	base := filepath.Base(name)
	info := &ContentInfo{
		Type:     TypeTable,
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Body:     RenderTable(rows),
		Metadata: map[string]string{},
	}

	encoded, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("content: couldn't encode table rows: %w", err)
	}
	info.Metadata["rows"] = string(encoded)
	if len(rows) > 0 {
		info.Metadata["columns"] = fmt.Sprintf("%d", len(rows[0]))
	}

	return info, nil
}

// RenderTable draws a GitHub-flavoured markdown table with the first row as
// header.
func RenderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var out strings.Builder

	writeRow := func(cells []string) {
		out.WriteString("|")
		for _, c := range cells {
			out.WriteString(" ")
			out.WriteString(strings.ReplaceAll(c, "|", "\\|"))
			out.WriteString(" |")
		}
		out.WriteString("\n")
	}

	writeRow(rows[0])
	out.WriteString("|")
	for range rows[0] {
		out.WriteString(" --- |")
	}
	out.WriteString("\n")

	for _, row := range rows[1:] {
		writeRow(row)
	}

	return out.String()
}

// CSVFormatter writes a table ContentInfo back out as CSV.
type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter { return &CSVFormatter{} }

func (f *CSVFormatter) CanFormat(info *ContentInfo, format string) bool {
	return format == string(TypeTable) && info.Type == TypeTable
}

func (f *CSVFormatter) Format(info *ContentInfo, format string) (string, error) {
	raw := ""
	if info.Metadata != nil {
		raw = info.Metadata["rows"]
	}
	if raw == "" {
		return info.Body, nil
	}

	var rows [][]string
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return "", fmt.Errorf("content: couldn't decode table rows: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("content: couldn't render csv: %w", err)
	}
	w.Flush()

	return buf.String(), nil
}
