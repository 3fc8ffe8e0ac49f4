package main

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDoctypeFile(t *testing.T) {
	input := `
doctypes:
  - name: ToDo
    max_attachments: 3
  - name: " Note "
`
	got, err := parseDoctypeFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse doctype file: %v", err)
	}
	want := []doctypeDefinition{
		{Name: "ToDo", MaxAttachments: 3},
		{Name: "Note", MaxAttachments: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("doctypes mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDoctypeFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty", input: "", wantErr: "empty"},
		{name: "no doctypes", input: "doctypes: []\n", wantErr: "defines no doctypes"},
		{name: "unknown field", input: "doctypes:\n  - name: ToDo\n    limit: 2\n", wantErr: "parse doctype file"},
		{name: "invalid name", input: "doctypes:\n  - name: 1bad\n", wantErr: "invalid name"},
		{name: "negative limit", input: "doctypes:\n  - name: ToDo\n    max_attachments: -1\n", wantErr: "max_attachments"},
		{name: "duplicate", input: "doctypes:\n  - name: ToDo\n  - name: ToDo\n", wantErr: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDoctypeFile(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseFieldAssignments(t *testing.T) {
	got, err := parseFieldAssignments([]string{"image=/files/a.png", "notes=", "title=a=b"})
	if err != nil {
		t.Fatalf("parse fields: %v", err)
	}
	want := map[string]string{"image": "/files/a.png", "notes": "", "title": "a=b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range [][]string{{"novalue"}, {"=x"}, {"a=1", "a=2"}} {
		if _, err := parseFieldAssignments(bad); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}
