package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docattach/internal/api"
	internalauth "docattach/internal/auth"
	"docattach/internal/models"
	"docattach/internal/store"
)

// DocumentService owns doctype and document rules shared by the handlers and
// the attachment workflow.
type DocumentService struct {
	docs  store.DocumentStore
	files store.FileStore
}

func NewDocumentService(docs store.DocumentStore, files store.FileStore) *DocumentService {
	return &DocumentService{docs: docs, files: files}
}

func (s *DocumentService) ListDoctypes(ctx context.Context) ([]models.DocType, error) {
	doctypes, err := s.docs.ListDoctypes(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doctypes == nil {
		doctypes = []models.DocType{}
	}
	return doctypes, nil
}

func (s *DocumentService) GetDoctype(ctx context.Context, name string) (*models.DocType, error) {
	name, err := normalizeDoctypeName(name)
	if err != nil {
		return nil, err
	}
	doctype, err := s.docs.GetDoctype(ctx, name)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doctype == nil {
		return nil, notFoundCode(fmt.Errorf("doctype not found: %s", name), ErrCodeDoctypeNotFound)
	}
	return doctype, nil
}

// PutDoctype creates or updates a doctype. Only admins may change metadata.
func (s *DocumentService) PutDoctype(ctx context.Context, principal internalauth.Principal, name string, maxAttachments int) (*models.DocType, error) {
	if !principal.IsAdmin() {
		return nil, forbidden(fmt.Errorf("admin role required"))
	}
	name, err := normalizeDoctypeName(name)
	if err != nil {
		return nil, err
	}
	if maxAttachments < 0 {
		return nil, badRequestCode(fmt.Errorf("max_attachments must be >= 0"), ErrCodeInvalidArgument)
	}
	doctype := &models.DocType{Name: name, MaxAttachments: maxAttachments}
	if err := s.docs.UpsertDoctype(ctx, doctype); err != nil {
		return nil, storeFailure(err)
	}
	return s.GetDoctype(ctx, name)
}

// CreateDocument saves a new document owned by the caller.
func (s *DocumentService) CreateDocument(ctx context.Context, principal internalauth.Principal, doctypeName string, req api.DocumentCreateRequest) (*models.Document, error) {
	doctype, err := s.GetDoctype(ctx, doctypeName)
	if err != nil {
		return nil, err
	}
	if principal.Role == models.RoleReader {
		return nil, forbidden(fmt.Errorf("reader role cannot create documents"))
	}
	if err := validateFields(req.Fields); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name, err = store.GenerateDocumentName(func(candidate string) (bool, error) {
			return s.docs.DocumentExists(ctx, doctype.Name, candidate)
		})
		if err != nil {
			return nil, internalError(err)
		}
	} else if !models.IsValidDocumentName(name) {
		return nil, badRequestCode(fmt.Errorf("invalid document name: %s", name), ErrCodeInvalidName)
	}

	doc := &models.Document{
		Doctype: doctype.Name,
		Name:    name,
		Owner:   principal.Username,
		Fields:  req.Fields,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, conflictCode(fmt.Errorf("document already exists: %s/%s", doctype.Name, name), ErrCodeDocumentExists)
		}
		return nil, storeFailure(err)
	}
	return doc, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, doctypeName, name string) (*models.Document, error) {
	doctypeName, err := normalizeDoctypeName(doctypeName)
	if err != nil {
		return nil, err
	}
	name, err = normalizeDocumentName(name)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.GetDocument(ctx, doctypeName, name)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil {
		return nil, notFoundCode(fmt.Errorf("document not found: %s/%s", doctypeName, name), ErrCodeDocumentNotFound)
	}
	return doc, nil
}

// writableDocument loads a document and checks the caller may modify it.
func (s *DocumentService) writableDocument(ctx context.Context, principal internalauth.Principal, doctypeName, name string) (*models.Document, error) {
	doc, err := s.GetDocument(ctx, doctypeName, name)
	if err != nil {
		return nil, err
	}
	if !principal.CanWriteDocument(doc.Owner) {
		return nil, forbidden(fmt.Errorf("no write permission on %s/%s", doc.Doctype, doc.Name))
	}
	return doc, nil
}

// setFields merges field values into a saved document and returns the document
// before and after the update. Empty values clear a field.
func (s *DocumentService) setFields(ctx context.Context, principal internalauth.Principal, doctypeName, name string, fields map[string]string) (*models.Document, *models.Document, error) {
	doc, err := s.writableDocument(ctx, principal, doctypeName, name)
	if err != nil {
		return nil, nil, err
	}
	if len(fields) == 0 {
		return nil, nil, badRequestCode(fmt.Errorf("fields are required"), ErrCodeMissingRequired)
	}
	if err := validateFields(fields); err != nil {
		return nil, nil, err
	}
	updated, err := s.docs.UpdateDocumentFields(ctx, doc.Doctype, doc.Name, fields, time.Now().UTC())
	if err != nil {
		return nil, nil, storeFailure(err)
	}
	if updated == nil {
		return nil, nil, notFoundCode(fmt.Errorf("document not found: %s/%s", doc.Doctype, doc.Name), ErrCodeDocumentNotFound)
	}
	return doc, updated, nil
}

// DocInfo bundles attachments, permissions and the doctype limit for one document.
func (s *DocumentService) DocInfo(ctx context.Context, principal internalauth.Principal, doctypeName, name string) (api.DocInfo, error) {
	doc, err := s.GetDocument(ctx, doctypeName, name)
	if err != nil {
		return api.DocInfo{}, err
	}
	doctype, err := s.GetDoctype(ctx, doc.Doctype)
	if err != nil {
		return api.DocInfo{}, err
	}
	attachments, err := s.files.ListFilesByDocument(ctx, doc.Doctype, doc.Name)
	if err != nil {
		return api.DocInfo{}, storeFailure(err)
	}
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	return api.DocInfo{
		Doctype:     doc.Doctype,
		Name:        doc.Name,
		Attachments: attachments,
		Permissions: models.Permissions{
			CanRead:  true,
			CanWrite: principal.CanWriteDocument(doc.Owner),
		},
		MaxAttachments: doctype.MaxAttachments,
	}, nil
}

func normalizeDoctypeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", badRequestCode(fmt.Errorf("doctype is required"), ErrCodeMissingRequired)
	}
	if !models.IsValidDoctypeName(name) {
		return "", badRequestCode(fmt.Errorf("invalid doctype: %s", name), ErrCodeInvalidDoctype)
	}
	return name, nil
}

func normalizeDocumentName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", badRequestCode(fmt.Errorf("document name is required"), ErrCodeMissingRequired)
	}
	if !models.IsValidDocumentName(name) {
		return "", badRequestCode(fmt.Errorf("invalid document name: %s", name), ErrCodeInvalidName)
	}
	return name, nil
}

func validateFields(fields map[string]string) error {
	for field := range fields {
		if !models.IsValidFieldName(field) {
			return badRequestCode(fmt.Errorf("invalid field name: %s", field), ErrCodeInvalidFieldName)
		}
	}
	return nil
}
