// Package form is the client-side controller for one document: it holds the
// doctype meta, the document and its document info, and owns the attachment
// manager.
package form

import (
	"context"
	"fmt"
	"sync"

	"docattach/internal/api"
	"docattach/internal/attachments"
	"docattach/internal/models"
)

// Backend is the remote document service.
type Backend interface {
	GetDoctype(ctx context.Context, doctype string) (models.DocType, error)
	CreateDocument(ctx context.Context, doctype string, req api.DocumentCreateRequest) (models.Document, error)
	GetDocument(ctx context.Context, doctype, name string) (models.Document, error)
	SetDocumentFields(ctx context.Context, doctype, name string, fields map[string]string) (models.Document, error)
	GetDocInfo(ctx context.Context, doctype, name string) (api.DocInfo, error)
}

// Form is one open document.
type Form struct {
	backend Backend
	docinfo *attachments.DocInfo

	mu          sync.RWMutex
	meta        models.DocType
	doc         models.Document
	local       bool
	permissions models.Permissions
	manager     *attachments.Manager
}

// New returns a form for doctype/name. An empty name opens a new, unsaved document.
func New(backend Backend, doctype, name string) *Form {
	return &Form{
		backend: backend,
		docinfo: attachments.NewDocInfo(nil),
		meta:    models.DocType{Name: doctype},
		doc:     models.Document{Doctype: doctype, Name: name},
		local:   name == "",
	}
}

// Load fetches the doctype meta and, for a saved document, the document and its info.
func (f *Form) Load(ctx context.Context) error {
	meta, err := f.backend.GetDoctype(ctx, f.Doctype())
	if err != nil {
		return fmt.Errorf("load doctype %s: %w", f.Doctype(), err)
	}
	f.mu.Lock()
	f.meta = meta
	local := f.local
	f.mu.Unlock()
	if local {
		return nil
	}

	doc, err := f.backend.GetDocument(ctx, f.Doctype(), f.Docname())
	if err != nil {
		return fmt.Errorf("load document %s/%s: %w", f.Doctype(), f.Docname(), err)
	}
	f.mu.Lock()
	f.doc = doc
	f.mu.Unlock()
	return f.ReloadDocInfo(ctx)
}

// Save creates the document server-side. It is a no-op for saved documents.
func (f *Form) Save(ctx context.Context, name string, fields map[string]string) error {
	if !f.IsLocal() {
		return nil
	}
	doc, err := f.backend.CreateDocument(ctx, f.Doctype(), api.DocumentCreateRequest{Name: name, Fields: fields})
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.doc = doc
	f.local = false
	f.mu.Unlock()
	return f.ReloadDocInfo(ctx)
}

// Attachments builds the attachment manager for this form. The form refreshes
// it after every docinfo reload.
func (f *Form) Attachments(opts attachments.Options) *attachments.Manager {
	manager := attachments.NewManager(f, f.docinfo, opts)
	f.mu.Lock()
	f.manager = manager
	f.mu.Unlock()
	manager.Refresh()
	return manager
}

// ReloadDocInfo replaces the document info wholesale and refreshes the attachment section.
func (f *Form) ReloadDocInfo(ctx context.Context) error {
	if f.IsLocal() {
		return nil
	}
	info, err := f.backend.GetDocInfo(ctx, f.Doctype(), f.Docname())
	if err != nil {
		return fmt.Errorf("reload docinfo %s/%s: %w", f.Doctype(), f.Docname(), err)
	}
	f.docinfo.Replace(info.Attachments)

	f.mu.Lock()
	f.permissions = info.Permissions
	f.meta.MaxAttachments = info.MaxAttachments
	manager := f.manager
	f.mu.Unlock()

	if manager != nil {
		manager.Refresh()
	}
	return nil
}

// SetValue writes one field of the saved document. An empty value clears it.
func (f *Form) SetValue(ctx context.Context, field, value string) error {
	if f.IsLocal() {
		return attachments.ErrNotSaved
	}
	doc, err := f.backend.SetDocumentFields(ctx, f.Doctype(), f.Docname(), map[string]string{field: value})
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.doc = doc
	f.mu.Unlock()
	return nil
}

func (f *Form) Doctype() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.meta.Name
}

func (f *Form) Docname() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doc.Name
}

func (f *Form) IsLocal() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.local
}

func (f *Form) MaxAttachments() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.meta.MaxAttachments
}

func (f *Form) CanWrite() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.permissions.CanWrite
}

// Document returns a copy of the loaded document.
func (f *Form) Document() models.Document {
	f.mu.RLock()
	defer f.mu.RUnlock()
	doc := f.doc
	doc.Fields = make(map[string]string, len(f.doc.Fields))
	for k, v := range f.doc.Fields {
		doc.Fields[k] = v
	}
	return doc
}

var _ attachments.Owner = (*Form)(nil)
