package attachments

import (
	"strings"
	"testing"
)

func TestTextViewRender(t *testing.T) {
	v := NewTextView()
	v.SetVisible(true)
	v.SetAddEnabled(false)
	v.SetHasAttachments(true)
	v.AddRow(Row{ID: "fl-1", Label: "report.pdf", URL: "/files/report.pdf", Size: 2048, CanDelete: true})
	v.AddRow(Row{ID: "fl-2", Label: "secret.txt", URL: "/private/files/secret.txt", IsPrivate: true})

	var out strings.Builder
	if err := v.Render(&out); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "[x] fl-1") || !strings.Contains(lines[0], "2.0 kB") || !strings.HasSuffix(lines[0], "/files/report.pdf") {
		t.Fatalf("unexpected first row %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[ ] fl-2") || !strings.Contains(lines[1], "private") {
		t.Fatalf("unexpected second row %q", lines[1])
	}
	if lines[2] != "attachment limit reached" {
		t.Fatalf("unexpected footer %q", lines[2])
	}

	v.ClearRows()
	v.SetHasAttachments(false)
	v.SetAddEnabled(true)
	out.Reset()
	if err := v.Render(&out); err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.String() != "no attachments\n" {
		t.Fatalf("unexpected empty render %q", out.String())
	}
}
