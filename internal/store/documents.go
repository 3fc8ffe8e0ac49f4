package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docattach/internal/models"
)

const doctypeColumns = "name, max_attachments, created_at, updated_at"
const documentColumns = "doctype, name, owner, fields_json, created_at, updated_at"

// UpsertDoctype inserts or updates one doctype definition.
func (s *Store) UpsertDoctype(ctx context.Context, doctype *models.DocType) error {
	if doctype == nil {
		return fmt.Errorf("doctype is required")
	}
	doctype.Name = strings.TrimSpace(doctype.Name)
	if doctype.Name == "" {
		return fmt.Errorf("doctype name is required")
	}
	if doctype.MaxAttachments < 0 {
		return fmt.Errorf("max_attachments must be >= 0")
	}

	now := time.Now().UTC()
	if doctype.CreatedAt.IsZero() {
		doctype.CreatedAt = now
	}
	doctype.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO doctypes (name, max_attachments, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			max_attachments = excluded.max_attachments,
			updated_at = excluded.updated_at
	`, doctype.Name, doctype.MaxAttachments, dbFormatTime(doctype.CreatedAt), dbFormatTime(doctype.UpdatedAt))
	return err
}

// GetDoctype returns one doctype, or nil when it does not exist.
func (s *Store) GetDoctype(ctx context.Context, name string) (*models.DocType, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+doctypeColumns+` FROM doctypes WHERE name = ?`, name)
	return scanDoctype(row)
}

// ListDoctypes lists doctypes ordered by name.
func (s *Store) ListDoctypes(ctx context.Context) ([]models.DocType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+doctypeColumns+` FROM doctypes ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doctypes := []models.DocType{}
	for rows.Next() {
		doctype, err := scanDoctype(rows)
		if err != nil {
			return nil, err
		}
		if doctype != nil {
			doctypes = append(doctypes, *doctype)
		}
	}
	return doctypes, rows.Err()
}

// CreateDocument inserts one document. It returns ErrConflict when the name is taken.
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}

	fieldsJSON, err := fieldsToJSON(doc.Fields)
	if err != nil {
		return err
	}

	exists, err := s.DocumentExists(ctx, doc.Doctype, doc.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("document %s/%s: %w", doc.Doctype, doc.Name, ErrConflict)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (doctype, name, owner, fields_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.Doctype, doc.Name, nullIfEmpty(doc.Owner), fieldsJSON, dbFormatTime(doc.CreatedAt), dbFormatTime(doc.UpdatedAt))
	return err
}

// GetDocument returns one document, or nil when it does not exist.
func (s *Store) GetDocument(ctx context.Context, doctype, name string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE doctype = ? AND name = ?`, doctype, name)
	return scanDocument(row)
}

// DocumentExists reports whether a document is saved.
func (s *Store) DocumentExists(ctx context.Context, doctype, name string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE doctype = ? AND name = ? LIMIT 1", doctype, name).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateDocumentFields merges field values into a document. An empty value clears the field.
func (s *Store) UpdateDocumentFields(ctx context.Context, doctype, name string, fields map[string]string, now time.Time) (_ *models.Document, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	doc, err := scanDocument(tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE doctype = ? AND name = ?`, doctype, name))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		err = tx.Rollback()
		return nil, err
	}

	if doc.Fields == nil {
		doc.Fields = map[string]string{}
	}
	for key, value := range fields {
		if value == "" {
			delete(doc.Fields, key)
			continue
		}
		doc.Fields[key] = value
	}
	doc.UpdatedAt = now.UTC()

	fieldsJSON, err := fieldsToJSON(doc.Fields)
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE documents SET fields_json = ?, updated_at = ? WHERE doctype = ? AND name = ?
	`, fieldsJSON, dbFormatTime(doc.UpdatedAt), doctype, name); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return doc, nil
}

func scanDoctype(scanner interface {
	Scan(dest ...any) error
}) (*models.DocType, error) {
	var doctype models.DocType
	var createdAt, updatedAt string
	if err := scanner.Scan(&doctype.Name, &doctype.MaxAttachments, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var err error
	if doctype.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if doctype.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &doctype, nil
}

func scanDocument(scanner interface {
	Scan(dest ...any) error
}) (*models.Document, error) {
	var doc models.Document
	var owner, fieldsJSON sql.NullString
	var createdAt, updatedAt string
	if err := scanner.Scan(&doc.Doctype, &doc.Name, &owner, &fieldsJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	doc.Owner = owner.String

	if fieldsJSON.Valid && fieldsJSON.String != "" {
		if err := json.Unmarshal([]byte(fieldsJSON.String), &doc.Fields); err != nil {
			return nil, fmt.Errorf("parse document fields_json: %w", err)
		}
	}

	var err error
	if doc.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func fieldsToJSON(fields map[string]string) (any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal document fields_json: %w", err)
	}
	return string(data), nil
}
