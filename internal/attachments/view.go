package attachments

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
)

// Row is one rendered attachment.
type Row struct {
	ID        string
	Label     string
	URL       string
	Size      int64
	IsPrivate bool
	// CanDelete is set only when the acting user may write the document.
	CanDelete bool
}

// View is the surface the manager renders into.
type View interface {
	SetVisible(visible bool)
	ClearRows()
	AddRow(row Row)
	SetAddEnabled(enabled bool)
	SetHasAttachments(has bool)
}

// TextView keeps the last rendered state and writes it as plain text.
type TextView struct {
	mu             sync.Mutex
	visible        bool
	addEnabled     bool
	hasAttachments bool
	rows           []Row
}

func NewTextView() *TextView {
	return &TextView{}
}

func (v *TextView) SetVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible = visible
}

func (v *TextView) ClearRows() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = nil
}

func (v *TextView) AddRow(row Row) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = append(v.rows, row)
}

func (v *TextView) SetAddEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.addEnabled = enabled
}

func (v *TextView) SetHasAttachments(has bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hasAttachments = has
}

// Rows returns a copy of the rendered rows.
func (v *TextView) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Row{}, v.rows...)
}

func (v *TextView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *TextView) AddEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.addEnabled
}

// Render writes the section to w. A hidden section writes nothing.
func (v *TextView) Render(w io.Writer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.visible {
		return nil
	}

	if !v.hasAttachments {
		if _, err := fmt.Fprintln(w, "no attachments"); err != nil {
			return err
		}
	}
	for _, row := range v.rows {
		access := "public"
		if row.IsPrivate {
			access = "private"
		}
		marker := " "
		if row.CanDelete {
			marker = "x"
		}
		if _, err := fmt.Fprintf(w, "[%s] %-14s %-32s %-8s %9s  %s\n", marker, row.ID, row.Label, access, humanize.Bytes(uint64(max(row.Size, 0))), row.URL); err != nil {
			return err
		}
	}
	if !v.addEnabled {
		if _, err := fmt.Fprintln(w, "attachment limit reached"); err != nil {
			return err
		}
	}
	return nil
}
