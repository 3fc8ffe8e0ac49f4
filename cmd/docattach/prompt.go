package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// lineConfirmer asks yes/no questions on out and reads the answer from in.
type lineConfirmer struct {
	in     *bufio.Reader
	out    io.Writer
	assume bool
}

func newLineConfirmer(in io.Reader, out io.Writer, assumeYes bool) *lineConfirmer {
	return &lineConfirmer{in: bufio.NewReader(in), out: out, assume: assumeYes}
}

func (c *lineConfirmer) Confirm(ctx context.Context, message string) bool {
	if c.assume {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(c.out, "%s [y/N]: ", message)
	answer, err := c.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

type streamNotifier struct {
	out io.Writer
}

func (n streamNotifier) Error(message string) {
	fmt.Fprintf(n.out, "error: %s\n", message)
}
