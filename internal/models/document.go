package models

import "time"

// DocType is the metadata shared by every document of one type.
type DocType struct {
	Name           string    `json:"name" yaml:"name"`
	MaxAttachments int       `json:"max_attachments" yaml:"max_attachments"`
	CreatedAt      time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Unlimited reports whether the doctype has no attachment cap.
func (d DocType) Unlimited() bool {
	return d.MaxAttachments <= 0
}

// Document is one saved record of a doctype.
type Document struct {
	Doctype   string            `json:"doctype"`
	Name      string            `json:"name"`
	Owner     string            `json:"owner,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Permissions describes what the acting user may do with one document.
type Permissions struct {
	CanRead  bool `json:"can_read"`
	CanWrite bool `json:"can_write"`
}
