package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultAttachmentFolder is the folder uploads land in unless the caller picks one.
	DefaultAttachmentFolder = "Home/Attachments"

	PublicFilesPrefix  = "/files/"
	PrivateFilesPrefix = "/private/files/"
)

// Attachment is one uploaded file linked to a document.
type Attachment struct {
	ID                string    `json:"id"`
	FileName          string    `json:"file_name"`
	FileURL           string    `json:"file_url,omitempty"`
	IsPrivate         bool      `json:"is_private"`
	FileSize          int64     `json:"file_size,omitempty"`
	ContentHash       string    `json:"content_hash,omitempty"`
	Folder            string    `json:"folder,omitempty"`
	AttachedToDoctype string    `json:"attached_to_doctype,omitempty"`
	AttachedToName    string    `json:"attached_to_name,omitempty"`
	AttachedToField   string    `json:"attached_to_field,omitempty"`
	BlobKey           string    `json:"-"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
}

// Validate checks the fields every attachment record must carry.
func (a Attachment) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("attachment id is required")
	}
	if strings.TrimSpace(a.FileName) == "" && strings.TrimSpace(a.FileURL) == "" {
		return fmt.Errorf("attachment %s has neither file_name nor file_url", a.ID)
	}
	return nil
}

// DisplayName is the label shown for an attachment row.
func (a Attachment) DisplayName() string {
	if a.FileName != "" {
		return a.FileName
	}
	return a.FileURL
}

// FileURLFor returns the canonical url a stored file is served from.
func FileURLFor(fileName string, isPrivate bool) string {
	if isPrivate {
		return PrivateFilesPrefix + fileName
	}
	return PublicFilesPrefix + fileName
}
