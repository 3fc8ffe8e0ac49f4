package attachments

import (
	"sync"

	"docattach/internal/models"
)

// DocInfo holds the attachment list of one document. The owning form replaces
// it wholesale on reload; the manager adds and removes single entries.
type DocInfo struct {
	mu          sync.RWMutex
	attachments []models.Attachment
}

func NewDocInfo(attachments []models.Attachment) *DocInfo {
	d := &DocInfo{}
	d.Replace(attachments)
	return d
}

// Replace swaps the whole list.
func (d *DocInfo) Replace(attachments []models.Attachment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachments = append([]models.Attachment(nil), attachments...)
}

// List returns a copy of the current list in insertion order.
func (d *DocInfo) List() []models.Attachment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Attachment{}, d.attachments...)
}

// Add appends attachment unless an entry with the same id is already present.
func (d *DocInfo) Add(attachment models.Attachment) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.attachments {
		if existing.ID == attachment.ID {
			return false
		}
	}
	d.attachments = append(d.attachments, attachment)
	return true
}

// Remove drops the entry with id and reports whether one was found.
func (d *DocInfo) Remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.attachments {
		if existing.ID == id {
			d.attachments = append(d.attachments[:i], d.attachments[i+1:]...)
			return true
		}
	}
	return false
}

func (d *DocInfo) Find(id string) (models.Attachment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, existing := range d.attachments {
		if existing.ID == id {
			return existing, true
		}
	}
	return models.Attachment{}, false
}

// Unique returns the first entry of every distinct file name, in list order.
func (d *DocInfo) Unique() []models.Attachment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[string]struct{}, len(d.attachments))
	unique := make([]models.Attachment, 0, len(d.attachments))
	for _, attachment := range d.attachments {
		if _, ok := seen[attachment.FileName]; ok {
			continue
		}
		seen[attachment.FileName] = struct{}{}
		unique = append(unique, attachment)
	}
	return unique
}
