package main

import (
	"context"
	"errors"
	"net"

	"docattach/internal/api"
	"docattach/internal/attachments"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var limitErr *attachments.LimitError
	if errors.As(err, &limitErr) {
		lines = append(lines, "hint: remove an attachment with: docattach attach rm <doctype> <name> <id>")
		return uniqueLines(lines)
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: set DOCATTACH_API_TOKEN, or DOCATTACH_USER and DOCATTACH_PASSWORD.")
		case "forbidden":
			lines = append(lines, "hint: the current user lacks write permission on this document.")
		case "limit_reached":
			lines = append(lines, "hint: remove an attachment or raise max_attachments with: docattach doctype add")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly or lower attachments.upload_concurrency.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify DOCATTACH_API_URL points to a docattach server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase DOCATTACH_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a docattach server is running at DOCATTACH_API_URL.",
			"hint: start local server manually with: docattach srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
