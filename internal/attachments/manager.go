// Package attachments manages the attachment section of one document: what
// is rendered, how many more files may be added, uploads and deletes.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"docattach/internal/api"
	"docattach/internal/models"
)

const (
	deleteConfirmMessage = "Are you sure you want to delete the attachment?"
	genericDeleteError   = "There were errors"
)

// Owner is the form controller the manager works for.
type Owner interface {
	Doctype() string
	Docname() string
	// IsLocal reports whether the document has not been saved yet.
	IsLocal() bool
	MaxAttachments() int
	CanWrite() bool
	// ReloadDocInfo refetches document info, replaces the DocInfo contents and
	// calls Refresh on the manager.
	ReloadDocInfo(ctx context.Context) error
	SetValue(ctx context.Context, field, value string) error
}

// DocumentService deletes attachments server-side.
type DocumentService interface {
	DeleteAttachment(ctx context.Context, doctype, name, attachmentID string) error
}

// Uploader runs one upload flow and reports each file on the returned channel.
type Uploader interface {
	Upload(ctx context.Context, spec api.UploadSpec) (<-chan api.UploadResult, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// Notifier shows a message to the user.
type Notifier interface {
	Error(message string)
}

// Options wires the manager's collaborators. Nil View, Confirmer and Notifier
// fall back to no-op implementations that render nothing and confirm nothing.
type Options struct {
	Service   DocumentService
	Uploader  Uploader
	View      View
	Confirmer Confirmer
	Notifier  Notifier
	Folder    string
	Logger    *slog.Logger
}

// Manager is the attachment section of one document.
type Manager struct {
	owner     Owner
	docinfo   *DocInfo
	service   DocumentService
	uploader  Uploader
	view      View
	confirmer Confirmer
	notifier  Notifier
	folder    string
	logger    *slog.Logger
}

func NewManager(owner Owner, docinfo *DocInfo, opts Options) *Manager {
	if docinfo == nil {
		docinfo = NewDocInfo(nil)
	}
	m := &Manager{
		owner:     owner,
		docinfo:   docinfo,
		service:   opts.Service,
		uploader:  opts.Uploader,
		view:      opts.View,
		confirmer: opts.Confirmer,
		notifier:  opts.Notifier,
		folder:    opts.Folder,
		logger:    opts.Logger,
	}
	if m.view == nil {
		m.view = nopView{}
	}
	if m.confirmer == nil {
		m.confirmer = declineConfirmer{}
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.folder == "" {
		m.folder = models.DefaultAttachmentFolder
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Refresh re-renders every row from the current list, one per distinct file
// name. An unsaved document hides the section.
func (m *Manager) Refresh() {
	if m.owner.IsLocal() {
		m.view.SetVisible(false)
		return
	}
	m.view.SetVisible(true)
	m.view.ClearRows()
	m.view.SetAddEnabled(!m.IsAtLimit())

	unique := m.docinfo.Unique()
	canDelete := m.owner.CanWrite()
	for _, attachment := range unique {
		m.view.AddRow(Row{
			ID:        attachment.ID,
			Label:     attachment.DisplayName(),
			URL:       ResolveURL(attachment),
			Size:      attachment.FileSize,
			IsPrivate: attachment.IsPrivate,
			CanDelete: canDelete,
		})
	}
	m.view.SetHasAttachments(len(unique) > 0)
}

// IsAtLimit reports whether the distinct file names reach the doctype maximum.
// A maximum of zero never limits.
func (m *Manager) IsAtLimit() bool {
	limit := m.owner.MaxAttachments()
	return limit > 0 && len(m.docinfo.Unique()) >= limit
}

// CheckLimit is IsAtLimit returning a *LimitError for the user.
func (m *Manager) CheckLimit() error {
	if m.IsAtLimit() {
		return &LimitError{Max: m.owner.MaxAttachments()}
	}
	return nil
}

// GetAttachments returns the current list, duplicates included.
func (m *Manager) GetAttachments() []models.Attachment {
	return m.docinfo.List()
}

// FindIDByURL returns the id of the first attachment served from fileURL, or "".
func (m *Manager) FindIDByURL(fileURL string) string {
	if fileURL == "" {
		return ""
	}
	for _, attachment := range m.docinfo.List() {
		if attachment.FileURL == fileURL || ResolveURL(attachment) == fileURL {
			return attachment.ID
		}
	}
	return ""
}

// BeginNewAttachment uploads files to the document, restricted to the remaining
// quota. Every successful upload goes through OnUploadSuccess before the results
// are returned. Limit and selection errors abort before any network call.
func (m *Manager) BeginNewAttachment(ctx context.Context, files []api.UploadFile, fieldname string, isPrivate bool) ([]api.UploadResult, error) {
	if m.owner.IsLocal() {
		return nil, ErrNotSaved
	}
	if !m.owner.CanWrite() {
		return nil, ErrPermissionDenied
	}
	if err := m.CheckLimit(); err != nil {
		m.notifier.Error(err.Error())
		return nil, err
	}
	if m.uploader == nil {
		return nil, fmt.Errorf("uploader is not configured")
	}

	quota := 0
	if limit := m.owner.MaxAttachments(); limit > 0 {
		quota = limit - len(m.docinfo.Unique())
	}
	results, err := m.uploader.Upload(ctx, api.UploadSpec{
		Doctype:    m.owner.Doctype(),
		Docname:    m.owner.Docname(),
		Folder:     m.folder,
		Fieldname:  fieldname,
		IsPrivate:  isPrivate,
		MaxUploads: quota,
		Files:      files,
	})
	if err != nil {
		return nil, err
	}

	collected := []api.UploadResult{}
	for result := range results {
		if result.Err == nil {
			if err := m.OnUploadSuccess(ctx, result.Attachment, fieldname); err != nil {
				result.Err = err
			}
		}
		collected = append(collected, result)
	}
	return collected, nil
}

// OnUploadSuccess records a finished upload, reloads document info and, for a
// field-bound upload, writes the file url into that field. Repeated calls with
// the same attachment id insert it once.
func (m *Manager) OnUploadSuccess(ctx context.Context, attachment models.Attachment, fieldname string) error {
	if attachment.ID != "" && m.docinfo.Add(attachment) {
		m.Refresh()
	}
	if err := m.owner.ReloadDocInfo(ctx); err != nil {
		m.logger.Warn("reload document info after upload", "doctype", m.owner.Doctype(), "name", m.owner.Docname(), "error", err)
	}
	if fieldname != "" {
		if err := m.owner.SetValue(ctx, fieldname, attachment.FileURL); err != nil {
			return fmt.Errorf("set %s: %w", fieldname, err)
		}
	}
	return nil
}

// Remove asks for confirmation and deletes every attachment sharing the file
// name of id, one server call each. Each successful delete drops the entry and
// reloads document info; failed deletes leave their entry in place and are
// returned joined.
func (m *Manager) Remove(ctx context.Context, id string) error {
	if !m.owner.CanWrite() {
		return ErrPermissionDenied
	}
	target, ok := m.docinfo.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !m.confirmer.Confirm(ctx, deleteConfirmMessage) {
		return ErrCancelled
	}

	var errs []error
	for _, attachment := range m.docinfo.List() {
		if attachment.FileName != target.FileName {
			continue
		}
		if err := m.removeAttachment(ctx, attachment.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RemoveAttachmentByFilename deletes the attachment served from fileURL without
// asking. An unknown url is a no-op.
func (m *Manager) RemoveAttachmentByFilename(ctx context.Context, fileURL string) error {
	id := m.FindIDByURL(fileURL)
	if id == "" {
		return nil
	}
	if !m.owner.CanWrite() {
		return ErrPermissionDenied
	}
	return m.removeAttachment(ctx, id)
}

func (m *Manager) removeAttachment(ctx context.Context, id string) error {
	if m.service == nil {
		return fmt.Errorf("document service is not configured")
	}
	if err := m.service.DeleteAttachment(ctx, m.owner.Doctype(), m.owner.Docname(), id); err != nil {
		message := genericDeleteError
		if apiErr, ok := api.AsAPIError(err); ok && apiErr.Code != "" && apiErr.Message != "" {
			message = apiErr.Message
		}
		m.notifier.Error(message)
		m.logger.Warn("delete attachment", "id", id, "doctype", m.owner.Doctype(), "name", m.owner.Docname(), "error", err)
		return fmt.Errorf("%w: %s: %w", ErrDeleteFailed, id, err)
	}
	m.docinfo.Remove(id)
	m.Refresh()
	if err := m.owner.ReloadDocInfo(ctx); err != nil {
		m.logger.Warn("reload document info after delete", "doctype", m.owner.Doctype(), "name", m.owner.Docname(), "error", err)
	}
	return nil
}

type nopView struct{}

func (nopView) SetVisible(bool)        {}
func (nopView) ClearRows()             {}
func (nopView) AddRow(Row)             {}
func (nopView) SetAddEnabled(bool)     {}
func (nopView) SetHasAttachments(bool) {}

type declineConfirmer struct{}

func (declineConfirmer) Confirm(context.Context, string) bool { return false }

type nopNotifier struct{}

func (nopNotifier) Error(string) {}
