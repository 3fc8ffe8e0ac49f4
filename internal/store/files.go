package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docattach/internal/models"
)

const fileColumns = `id, file_name, file_url, is_private, file_size, content_hash, blob_key, folder,
	attached_to_doctype, attached_to_name, attached_to_field, created_at`

// CreateFile inserts one attachment row. With ReplaceField set, rows bound to the
// same field are deleted first and returned so the caller can release their blobs.
// The attachment limit counts distinct file names, so a name already present does
// not consume quota.
func (s *Store) CreateFile(ctx context.Context, file *models.Attachment, opts CreateFileOptions) (_ []models.Attachment, err error) {
	if file == nil {
		return nil, fmt.Errorf("file is required")
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	if file.AttachedToDoctype == "" || file.AttachedToName == "" {
		return nil, fmt.Errorf("attached document is required")
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	replaced := []models.Attachment{}
	if opts.ReplaceField && file.AttachedToField != "" {
		replaced, err = listFiles(ctx, tx, `
			SELECT `+fileColumns+` FROM files
			WHERE attached_to_doctype = ? AND attached_to_name = ? AND attached_to_field = ?
			ORDER BY created_at ASC, id ASC
		`, file.AttachedToDoctype, file.AttachedToName, file.AttachedToField)
		if err != nil {
			return nil, err
		}
		for _, old := range replaced {
			if _, err = tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", old.ID); err != nil {
				return nil, err
			}
		}
	}

	if opts.MaxFiles > 0 {
		var distinct, sameName int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(DISTINCT file_name), COALESCE(SUM(CASE WHEN file_name = ? THEN 1 ELSE 0 END), 0)
			FROM files
			WHERE attached_to_doctype = ? AND attached_to_name = ?
		`, file.FileName, file.AttachedToDoctype, file.AttachedToName).Scan(&distinct, &sameName)
		if err != nil {
			return nil, err
		}
		if sameName == 0 && distinct >= opts.MaxFiles {
			err = ErrAttachmentLimit
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		file.ID,
		file.FileName,
		file.FileURL,
		boolToInt(file.IsPrivate),
		file.FileSize,
		file.ContentHash,
		file.BlobKey,
		nullIfEmpty(file.Folder),
		file.AttachedToDoctype,
		file.AttachedToName,
		nullIfEmpty(file.AttachedToField),
		dbFormatTime(file.CreatedAt),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			err = fmt.Errorf("file %s: %w", file.ID, ErrConflict)
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return replaced, nil
}

// GetFile returns one attachment row, or nil when it does not exist.
func (s *Store) GetFile(ctx context.Context, id string) (*models.Attachment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	return scanFile(row)
}

// GetFileByURL returns the oldest row served at fileURL, or nil.
func (s *Store) GetFileByURL(ctx context.Context, fileURL string) (*models.Attachment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE file_url = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, fileURL)
	return scanFile(row)
}

// ListFilesByDocument lists a document's attachments in upload order.
func (s *Store) ListFilesByDocument(ctx context.Context, doctype, name string) ([]models.Attachment, error) {
	return listFiles(ctx, s.db, `
		SELECT `+fileColumns+` FROM files
		WHERE attached_to_doctype = ? AND attached_to_name = ?
		ORDER BY created_at ASC, id ASC
	`, doctype, name)
}

// ListFilesByField lists a document's attachments bound to one field.
func (s *Store) ListFilesByField(ctx context.Context, doctype, name, field string) ([]models.Attachment, error) {
	return listFiles(ctx, s.db, `
		SELECT `+fileColumns+` FROM files
		WHERE attached_to_doctype = ? AND attached_to_name = ? AND attached_to_field = ?
		ORDER BY created_at ASC, id ASC
	`, doctype, name, field)
}

// CountDistinctFileNames counts the attachments of a document the way the client renders them.
func (s *Store) CountDistinctFileNames(ctx context.Context, doctype, name string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT file_name) FROM files
		WHERE attached_to_doctype = ? AND attached_to_name = ?
	`, doctype, name).Scan(&count)
	return count, err
}

// CountFilesByBlobKey counts rows still referencing stored bytes.
func (s *Store) CountFilesByBlobKey(ctx context.Context, blobKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE blob_key = ?", blobKey).Scan(&count)
	return count, err
}

// DeleteFile deletes one row and reports whether it existed.
func (s *Store) DeleteFile(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listFiles(ctx context.Context, q queryer, query string, args ...any) ([]models.Attachment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.Attachment{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if file != nil {
			files = append(files, *file)
		}
	}
	return files, rows.Err()
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*models.Attachment, error) {
	var file models.Attachment
	var isPrivate int
	var folder, field sql.NullString
	var createdAt string
	if err := scanner.Scan(
		&file.ID,
		&file.FileName,
		&file.FileURL,
		&isPrivate,
		&file.FileSize,
		&file.ContentHash,
		&file.BlobKey,
		&folder,
		&file.AttachedToDoctype,
		&file.AttachedToName,
		&field,
		&createdAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	file.IsPrivate = isPrivate != 0
	file.Folder = folder.String
	file.AttachedToField = field.String

	var err error
	if file.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	return &file, nil
}
