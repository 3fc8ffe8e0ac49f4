package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	internalauth "docattach/internal/auth"
	"docattach/internal/filestore"
	"docattach/internal/models"
	"docattach/internal/store"
)

const (
	maxFileNameLength                  = 255
	urlHashSuffixLength                = 6
	fallbackAttachmentContentMediaType = "application/octet-stream"
)

// AttachmentService orchestrates uploads, deletes and file serving.
type AttachmentService struct {
	documents *DocumentService
	files     store.FileStore
	blobs     filestore.Store
	maxBytes  int64
	logger    *slog.Logger
	names     *bluemonday.Policy
}

// AttachmentUploadInput describes one uploaded file.
type AttachmentUploadInput struct {
	FileName  string
	IsPrivate bool
	Folder    string
	Fieldname string
}

// AttachmentContent is an open file body plus the metadata needed to serve it.
type AttachmentContent struct {
	Reader    io.ReadCloser
	SizeBytes int64
	MediaType string
	Filename  string
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(documents *DocumentService, files store.FileStore, blobs filestore.Store, maxBytes int64, logger *slog.Logger) *AttachmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentService{
		documents: documents,
		files:     files,
		blobs:     blobs,
		maxBytes:  maxBytes,
		logger:    logger,
		names:     bluemonday.StrictPolicy(),
	}
}

// Upload stores content and links it to a saved document.
func (s *AttachmentService) Upload(ctx context.Context, principal internalauth.Principal, doctypeName, docname string, in AttachmentUploadInput, content io.Reader) (models.Attachment, error) {
	var zero models.Attachment
	if s == nil || s.files == nil || s.blobs == nil {
		return zero, internalError(fmt.Errorf("attachment service is not configured"))
	}
	if content == nil {
		return zero, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired)
	}

	doc, err := s.documents.writableDocument(ctx, principal, doctypeName, docname)
	if err != nil {
		return zero, err
	}
	doctype, err := s.documents.GetDoctype(ctx, doc.Doctype)
	if err != nil {
		return zero, err
	}

	fileName, err := s.sanitizeFileName(in.FileName)
	if err != nil {
		return zero, err
	}
	fieldname := strings.TrimSpace(in.Fieldname)
	if fieldname != "" && !models.IsValidFieldName(fieldname) {
		return zero, badRequestCode(fmt.Errorf("invalid fieldname: %s", fieldname), ErrCodeInvalidFieldName)
	}
	folder := strings.TrimSpace(in.Folder)
	if folder == "" {
		folder = models.DefaultAttachmentFolder
	}

	// CreateFile repeats this check inside its transaction.
	if !doctype.Unlimited() && fieldname == "" {
		if err := s.checkLimit(ctx, doc, doctype.MaxAttachments, fileName); err != nil {
			return zero, err
		}
	}

	stored, err := s.blobs.Put(ctx, content, s.maxBytes)
	if err != nil {
		if errors.Is(err, filestore.ErrTooLarge) {
			return zero, badRequestCode(fmt.Errorf("file exceeds upload limit of %d bytes", s.maxBytes), ErrCodeRequestTooLarge)
		}
		return zero, makeAPIError(http.StatusInternalServerError, "internal", ErrCodeFileStore, err)
	}

	fileURL, err := s.resolveFileURL(ctx, fileName, in.IsPrivate, stored.Digest)
	if err != nil {
		s.releaseBlob(ctx, stored.Key)
		return zero, err
	}

	id, err := store.GenerateFileID(func(candidate string) (bool, error) {
		existing, err := s.files.GetFile(ctx, candidate)
		return existing != nil, err
	})
	if err != nil {
		s.releaseBlob(ctx, stored.Key)
		return zero, internalError(err)
	}

	attachment := &models.Attachment{
		ID:                id,
		FileName:          fileName,
		FileURL:           fileURL,
		IsPrivate:         in.IsPrivate,
		FileSize:          stored.Size,
		ContentHash:       stored.Digest,
		Folder:            folder,
		AttachedToDoctype: doc.Doctype,
		AttachedToName:    doc.Name,
		AttachedToField:   fieldname,
		BlobKey:           stored.Key,
		CreatedAt:         time.Now().UTC(),
	}
	replaced, err := s.files.CreateFile(ctx, attachment, store.CreateFileOptions{
		MaxFiles:     doctype.MaxAttachments,
		ReplaceField: fieldname != "",
	})
	if err != nil {
		s.releaseBlob(ctx, stored.Key)
		switch {
		case errors.Is(err, store.ErrAttachmentLimit):
			return zero, limitReached(fmt.Errorf("maximum attachment limit of %d has been reached", doctype.MaxAttachments))
		case errors.Is(err, store.ErrConflict):
			return zero, conflictCode(fmt.Errorf("attachment already exists"), ErrCodeConflict)
		default:
			return zero, storeFailure(err)
		}
	}
	for _, old := range replaced {
		s.releaseBlob(ctx, old.BlobKey)
	}

	s.logger.Info("attachment uploaded",
		"id", attachment.ID,
		"doctype", doc.Doctype,
		"name", doc.Name,
		"file_url", attachment.FileURL,
		"size", attachment.FileSize,
		"replaced", len(replaced),
	)
	return *attachment, nil
}

// Delete removes one attachment of a document and releases its bytes once unreferenced.
func (s *AttachmentService) Delete(ctx context.Context, principal internalauth.Principal, doctypeName, docname, id string) error {
	if s == nil || s.files == nil {
		return internalError(fmt.Errorf("attachment service is not configured"))
	}
	doc, err := s.documents.writableDocument(ctx, principal, doctypeName, docname)
	if err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return badRequestCode(fmt.Errorf("attachment id is required"), ErrCodeMissingRequired)
	}
	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		return storeFailure(err)
	}
	if file == nil || file.AttachedToDoctype != doc.Doctype || file.AttachedToName != doc.Name {
		return notFoundCode(fmt.Errorf("attachment not found: %s", id), ErrCodeAttachmentNotFound)
	}

	if err := s.removeFile(ctx, *file); err != nil {
		return err
	}

	if file.AttachedToField != "" && doc.Fields[file.AttachedToField] == file.FileURL {
		served, err := s.documentServesURL(ctx, doc, file.FileURL)
		if err != nil {
			return storeFailure(err)
		}
		if !served {
			_, err := s.documents.docs.UpdateDocumentFields(ctx, doc.Doctype, doc.Name, map[string]string{file.AttachedToField: ""}, time.Now().UTC())
			if err != nil {
				return storeFailure(err)
			}
		}
	}

	s.logger.Info("attachment deleted", "id", id, "doctype", doc.Doctype, "name", doc.Name)
	return nil
}

// SetFields merges field values into a saved document. Empty values clear a
// field; a field cleared from a file url also removes the attachment bound to
// that field and served from that url.
func (s *AttachmentService) SetFields(ctx context.Context, principal internalauth.Principal, doctypeName, docname string, fields map[string]string) (*models.Document, error) {
	previous, updated, err := s.documents.setFields(ctx, principal, doctypeName, docname, fields)
	if err != nil {
		return nil, err
	}
	for field, value := range fields {
		oldURL := previous.Fields[field]
		if value != "" || oldURL == "" {
			continue
		}
		bound, err := s.files.ListFilesByField(ctx, updated.Doctype, updated.Name, field)
		if err != nil {
			return nil, storeFailure(err)
		}
		for _, file := range bound {
			if file.FileURL != oldURL {
				continue
			}
			if err := s.removeFile(ctx, file); err != nil {
				return nil, err
			}
			s.logger.Info("attachment removed with cleared field", "id", file.ID, "field", field, "doctype", updated.Doctype, "name", updated.Name)
		}
	}
	return updated, nil
}

// Open resolves a served url to its bytes. Private files are only found under
// the private prefix, so a public url never leaks them.
func (s *AttachmentService) Open(ctx context.Context, fileURL string) (*AttachmentContent, error) {
	if s == nil || s.files == nil || s.blobs == nil {
		return nil, internalError(fmt.Errorf("attachment service is not configured"))
	}
	file, err := s.files.GetFileByURL(ctx, fileURL)
	if err != nil {
		return nil, storeFailure(err)
	}
	if file == nil || file.IsPrivate != strings.HasPrefix(fileURL, models.PrivateFilesPrefix) {
		return nil, notFoundCode(fmt.Errorf("file not found"), ErrCodeFileNotFound)
	}

	rc, err := s.blobs.Open(ctx, file.BlobKey)
	if err != nil {
		s.logger.Warn("file bytes missing", "file_url", fileURL, "blob_key", file.BlobKey, "error", err)
		return nil, notFoundCode(fmt.Errorf("file not found"), ErrCodeFileNotFound)
	}

	mediaType := mime.TypeByExtension(path.Ext(file.FileName))
	if mediaType == "" {
		mediaType = fallbackAttachmentContentMediaType
	}
	return &AttachmentContent{Reader: rc, SizeBytes: file.FileSize, MediaType: mediaType, Filename: file.FileName}, nil
}

func (s *AttachmentService) checkLimit(ctx context.Context, doc *models.Document, maxAttachments int, fileName string) error {
	count, err := s.files.CountDistinctFileNames(ctx, doc.Doctype, doc.Name)
	if err != nil {
		return storeFailure(err)
	}
	if count < maxAttachments {
		return nil
	}
	existing, err := s.files.ListFilesByDocument(ctx, doc.Doctype, doc.Name)
	if err != nil {
		return storeFailure(err)
	}
	for _, file := range existing {
		if file.FileName == fileName {
			return nil
		}
	}
	return limitReached(fmt.Errorf("maximum attachment limit of %d has been reached", maxAttachments))
}

// resolveFileURL picks the served url for a new file. A url already taken by
// different content gets a short content-hash suffix before the extension.
func (s *AttachmentService) resolveFileURL(ctx context.Context, fileName string, isPrivate bool, digest string) (string, error) {
	candidate := models.FileURLFor(fileName, isPrivate)
	existing, err := s.files.GetFileByURL(ctx, candidate)
	if err != nil {
		return "", storeFailure(err)
	}
	if existing == nil || existing.ContentHash == digest {
		return candidate, nil
	}

	ext := path.Ext(fileName)
	suffix := digest
	if len(suffix) > urlHashSuffixLength {
		suffix = suffix[:urlHashSuffixLength]
	}
	candidate = models.FileURLFor(strings.TrimSuffix(fileName, ext)+"-"+suffix+ext, isPrivate)
	existing, err = s.files.GetFileByURL(ctx, candidate)
	if err != nil {
		return "", storeFailure(err)
	}
	if existing != nil && existing.ContentHash != digest {
		return "", conflictCode(fmt.Errorf("file url already taken: %s", candidate), ErrCodeConflict)
	}
	return candidate, nil
}

func (s *AttachmentService) sanitizeFileName(raw string) (string, error) {
	name := html.UnescapeString(s.names.Sanitize(raw))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "", badRequestCode(fmt.Errorf("file_name is required"), ErrCodeInvalidFileName)
	}
	if len(name) > maxFileNameLength {
		return "", badRequestCode(fmt.Errorf("file_name exceeds %d bytes", maxFileNameLength), ErrCodeInvalidFileName)
	}
	return name, nil
}

// removeFile deletes one attachment row and releases its bytes once unreferenced.
func (s *AttachmentService) removeFile(ctx context.Context, file models.Attachment) error {
	deleted, err := s.files.DeleteFile(ctx, file.ID)
	if err != nil {
		return storeFailure(err)
	}
	if !deleted {
		return notFoundCode(fmt.Errorf("attachment not found: %s", file.ID), ErrCodeAttachmentNotFound)
	}
	s.releaseBlob(ctx, file.BlobKey)
	return nil
}

// documentServesURL reports whether any remaining attachment of doc is served from fileURL.
func (s *AttachmentService) documentServesURL(ctx context.Context, doc *models.Document, fileURL string) (bool, error) {
	remaining, err := s.files.ListFilesByDocument(ctx, doc.Doctype, doc.Name)
	if err != nil {
		return false, err
	}
	for _, file := range remaining {
		if file.FileURL == fileURL {
			return true, nil
		}
	}
	return false, nil
}

// releaseBlob deletes stored bytes once no attachment row references them.
func (s *AttachmentService) releaseBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	refs, err := s.files.CountFilesByBlobKey(ctx, key)
	if err != nil {
		s.logger.Warn("count blob references", "blob_key", key, "error", err)
		return
	}
	if refs > 0 {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("delete blob", "blob_key", key, "error", err)
	}
}
