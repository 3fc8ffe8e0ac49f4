package store

import (
	"context"
	"time"

	"docattach/internal/models"
)

// DocumentStore persists doctypes and documents.
type DocumentStore interface {
	UpsertDoctype(ctx context.Context, doctype *models.DocType) error
	GetDoctype(ctx context.Context, name string) (*models.DocType, error)
	ListDoctypes(ctx context.Context) ([]models.DocType, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, doctype, name string) (*models.Document, error)
	DocumentExists(ctx context.Context, doctype, name string) (bool, error)
	UpdateDocumentFields(ctx context.Context, doctype, name string, fields map[string]string, now time.Time) (*models.Document, error)
}

// CreateFileOptions controls the checks CreateFile runs inside its transaction.
type CreateFileOptions struct {
	// MaxFiles caps distinct file names per document. Zero means unlimited.
	MaxFiles int
	// ReplaceField removes rows bound to the same document field before inserting.
	ReplaceField bool
}

// FileStore is the metadata surface for attachments. Bytes live in a filestore.Store.
type FileStore interface {
	CreateFile(ctx context.Context, file *models.Attachment, opts CreateFileOptions) ([]models.Attachment, error)
	GetFile(ctx context.Context, id string) (*models.Attachment, error)
	GetFileByURL(ctx context.Context, fileURL string) (*models.Attachment, error)
	ListFilesByDocument(ctx context.Context, doctype, name string) ([]models.Attachment, error)
	ListFilesByField(ctx context.Context, doctype, name, field string) ([]models.Attachment, error)
	CountDistinctFileNames(ctx context.Context, doctype, name string) (int, error)
	CountFilesByBlobKey(ctx context.Context, blobKey string) (int, error)
	DeleteFile(ctx context.Context, id string) (bool, error)
}

// AuthStore persists users.
type AuthStore interface {
	CountEnabledUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, username, passwordHash string, role models.Role, now time.Time) (*AuthUser, error)
	GetUserByUsername(ctx context.Context, username string) (*AuthUser, error)
	ListUsers(ctx context.Context) ([]AuthUser, error)
	SetUserDisabled(ctx context.Context, username string, disabled bool, now time.Time) (*AuthUser, error)
}

var (
	_ DocumentStore = (*Store)(nil)
	_ FileStore     = (*Store)(nil)
	_ AuthStore     = (*Store)(nil)
)
