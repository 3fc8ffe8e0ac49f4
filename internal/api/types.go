package api

import (
	"time"

	"docattach/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int    `json:"schema_version,omitempty"`
}

// DoctypeRequest upserts one doctype.
type DoctypeRequest struct {
	MaxAttachments int `json:"max_attachments"`
}

// DocumentCreateRequest saves a new document. An empty name is generated server-side.
type DocumentCreateRequest struct {
	Name   string            `json:"name,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// DocumentFieldsRequest sets field values on a saved document. Empty values clear a field.
type DocumentFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// DocInfo is the per-document info bundle the attachment manager works from.
type DocInfo struct {
	Doctype        string              `json:"doctype"`
	Name           string              `json:"name"`
	Attachments    []models.Attachment `json:"attachments"`
	Permissions    models.Permissions  `json:"permissions"`
	MaxAttachments int                 `json:"max_attachments"`
}

// AttachmentDeleteResponse is returned after an attachment is removed.
type AttachmentDeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// AdminUserCreateRequest provisions one user.
type AdminUserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AdminUserSetDisabledRequest enables or disables one user.
type AdminUserSetDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// AdminUser is the public view of a provisioned user.
type AdminUser struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	Disabled  bool        `json:"disabled"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
