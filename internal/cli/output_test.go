package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("ID", "USERNAME", "ACTIVE").SetWriter(&buf)
	tbl.AddRow("1", "admin", "true")
	tbl.AddRow("42", "jane.long-name", "false")
	tbl.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	// Last column starts at the same offset on every line.
	want := strings.Index(lines[0], "ACTIVE")
	if got := strings.Index(lines[1], "true"); got != want {
		t.Errorf("row 1 misaligned: col at %d, want %d", got, want)
	}
	if got := strings.Index(lines[2], "false"); got != want {
		t.Errorf("row 2 misaligned: col at %d, want %d", got, want)
	}
	for i, line := range lines {
		if strings.HasSuffix(line, " ") {
			t.Errorf("line %d has trailing spaces: %q", i, line)
		}
	}
}

func TestTableShortRowPadsMissingCells(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("A", "B", "C").SetWriter(&buf)
	tbl.AddRow("only")
	tbl.Render()

	if tbl.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", tbl.Len())
	}
	if !strings.Contains(buf.String(), "only") {
		t.Fatalf("missing cell content: %q", buf.String())
	}
}

func TestRenderTreeGuides(t *testing.T) {
	var buf bytes.Buffer
	RenderTree(&buf, []TreeNode{
		{Label: "root", Children: []TreeNode{
			{Label: "first"},
			{Label: "last", Children: []TreeNode{{Label: "leaf"}}},
		}},
	})

	out := buf.String()
	for _, want := range []string{"└── root", "├── first", "└── last", "    └── leaf"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"500ms", "< 1s"},
		{"30s", "30s"},
		{"90s", "1m30s"},
		{"3h5m", "3h5m"},
	}
	for _, tc := range cases {
		d, err := time.ParseDuration(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := FormatDuration(d); got != tc.want {
			t.Errorf("FormatDuration(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
