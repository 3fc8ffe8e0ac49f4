package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"docattach/internal/format"
	"docattach/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeDocumentDetail(doc models.Document) error {
	lines := []string{
		fmt.Sprintf("doctype: %s", doc.Doctype),
		fmt.Sprintf("name: %s", doc.Name),
	}
	if doc.Owner != "" {
		lines = append(lines, fmt.Sprintf("owner: %s", doc.Owner))
	}
	lines = append(lines,
		fmt.Sprintf("created_at: %s", formatTime(doc.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(doc.UpdatedAt)),
	)
	if len(doc.Fields) > 0 {
		keys := make([]string, 0, len(doc.Fields))
		for key := range doc.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		lines = append(lines, "fields:")
		for _, key := range keys {
			lines = append(lines, fmt.Sprintf("  %s: %s", key, doc.Fields[key]))
		}
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatMaxAttachments(max int) string {
	if max <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", max)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
