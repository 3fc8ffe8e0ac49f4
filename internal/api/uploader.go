package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"docattach/internal/models"
)

const defaultUploadConcurrency = 4

var (
	// ErrNoFiles is returned when an upload is started without any selected file.
	ErrNoFiles = errors.New("no files selected")
	// ErrTooManyFiles is returned when a selection exceeds the remaining quota.
	ErrTooManyFiles = errors.New("too many files selected")
)

// UploadFile is one file picked for upload.
type UploadFile struct {
	FileName string
	Open     func() (io.ReadCloser, error)
}

// FileFromPath returns an UploadFile that reads path lazily.
func FileFromPath(path string) UploadFile {
	return UploadFile{
		FileName: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// UploadSpec scopes one upload flow to a document.
type UploadSpec struct {
	Doctype   string
	Docname   string
	Folder    string
	Fieldname string
	IsPrivate bool
	// MaxUploads caps the number of files accepted. Zero means no restriction.
	MaxUploads int
	Files      []UploadFile
}

// UploadResult reports the outcome of one file.
type UploadResult struct {
	Index      int
	FileName   string
	Attachment models.Attachment
	Err        error
}

type attachmentUploader interface {
	UploadAttachment(ctx context.Context, doctype, name string, in AttachmentUpload) (models.Attachment, error)
}

// FileUploader uploads a selection of files concurrently.
type FileUploader struct {
	client      attachmentUploader
	concurrency int
}

// NewFileUploader creates an uploader that runs at most concurrency uploads at once.
func NewFileUploader(client *Client, concurrency int) *FileUploader {
	return newFileUploader(client, concurrency)
}

func newFileUploader(client attachmentUploader, concurrency int) *FileUploader {
	if concurrency <= 0 {
		concurrency = defaultUploadConcurrency
	}
	return &FileUploader{client: client, concurrency: concurrency}
}

// Upload validates the selection and starts the uploads. Exactly one result per
// file is delivered on the returned channel, which is closed once all are done.
// Selection errors are returned before any network call.
func (u *FileUploader) Upload(ctx context.Context, spec UploadSpec) (<-chan UploadResult, error) {
	if u == nil || u.client == nil {
		return nil, fmt.Errorf("uploader is not configured")
	}
	if spec.Doctype == "" || spec.Docname == "" {
		return nil, fmt.Errorf("doctype and document name are required")
	}
	if len(spec.Files) == 0 {
		return nil, ErrNoFiles
	}
	if spec.MaxUploads > 0 && len(spec.Files) > spec.MaxUploads {
		return nil, fmt.Errorf("%w: %d selected, %d allowed", ErrTooManyFiles, len(spec.Files), spec.MaxUploads)
	}

	results := make(chan UploadResult, len(spec.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	go func() {
		defer close(results)
		for i, file := range spec.Files {
			g.Go(func() error {
				results <- u.uploadOne(gctx, spec, i, file)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return results, nil
}

func (u *FileUploader) uploadOne(ctx context.Context, spec UploadSpec, index int, file UploadFile) UploadResult {
	result := UploadResult{Index: index, FileName: file.FileName}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	if file.Open == nil {
		result.Err = fmt.Errorf("%s: no content", file.FileName)
		return result
	}

	content, err := file.Open()
	if err != nil {
		result.Err = err
		return result
	}
	defer content.Close()

	attachment, err := u.client.UploadAttachment(ctx, spec.Doctype, spec.Docname, AttachmentUpload{
		FileName:  file.FileName,
		IsPrivate: spec.IsPrivate,
		Folder:    spec.Folder,
		Fieldname: spec.Fieldname,
		Content:   content,
	})
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", file.FileName, err)
		return result
	}
	result.Attachment = attachment
	return result
}
