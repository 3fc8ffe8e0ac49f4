package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"docattach/internal/api"
	"docattach/internal/attachments"
	"docattach/internal/config"
	"docattach/internal/form"
)

// attachSession is one opened document together with its attachment section.
type attachSession struct {
	form    *form.Form
	manager *attachments.Manager
	view    *attachments.TextView
}

func openAttachSession(ctx context.Context, cfg *config.Config, client *api.Client, doctype, name string, confirmer attachments.Confirmer) (*attachSession, error) {
	f := form.New(client, doctype, name)
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	view := attachments.NewTextView()
	manager := f.Attachments(attachments.Options{
		Service:   client,
		Uploader:  api.NewFileUploader(client, cfg.Attachments.UploadConcurrency),
		View:      view,
		Confirmer: confirmer,
		Notifier:  streamNotifier{out: os.Stderr},
		Folder:    cfg.Attachments.DefaultFolder,
	})
	return &attachSession{form: f, manager: manager, view: view}, nil
}

func newAttachCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "attach", Short: "Manage document attachments"}
	cmd.AddCommand(
		newAttachListCmd(cfg, jsonOutput),
		newAttachAddCmd(cfg, jsonOutput),
		newAttachRemoveCmd(cfg, jsonOutput),
		newAttachRemoveURLCmd(cfg, jsonOutput),
		newAttachGetCmd(cfg),
	)
	return cmd
}

func newAttachListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list <doctype> <name>",
		Short: "List the attachments of a document",
		Args:  requireDocumentArgs(0, "doctype and name are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				session, err := openAttachSession(cmd.Context(), cfg, client, args[0], args[1], nil)
				if err != nil {
					return err
				}
				if *jsonOutput {
					list := session.manager.GetAttachments()
					return writeJSON(map[string]any{
						"count":           len(list),
						"max_attachments": session.form.MaxAttachments(),
						"at_limit":        session.manager.IsAtLimit(),
						"attachments":     list,
					})
				}
				return session.view.Render(os.Stdout)
			})
		},
	}
}

func newAttachAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		fieldname string
		isPrivate bool
	)

	cmd := &cobra.Command{
		Use:   "add <doctype> <name> <path>...",
		Short: "Upload files and attach them to a document",
		Args:  requireAtLeastArgs(3, "doctype, name and at least one path are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]api.UploadFile, 0, len(args)-2)
			for _, path := range args[2:] {
				files = append(files, api.FileFromPath(path))
			}

			return withClient(cfg, func(client *api.Client) error {
				session, err := openAttachSession(cmd.Context(), cfg, client, args[0], args[1], nil)
				if err != nil {
					return err
				}
				results, err := session.manager.BeginNewAttachment(cmd.Context(), files, fieldname, isPrivate)
				if err != nil {
					return err
				}

				var errs []error
				for _, result := range results {
					if result.Err != nil {
						errs = append(errs, fmt.Errorf("%s: %w", result.FileName, result.Err))
					}
				}
				if *jsonOutput {
					if err := writeJSON(uploadResultsPayload(results)); err != nil {
						return err
					}
					return errors.Join(errs...)
				}
				for _, result := range results {
					if result.Err != nil {
						continue
					}
					a := result.Attachment
					if err := writePlain("attached %s (%s, %s) as %s\n", a.FileName, a.ID, humanize.Bytes(uint64(a.FileSize)), a.FileURL); err != nil {
						return err
					}
				}
				return errors.Join(errs...)
			})
		},
	}

	cmd.Flags().StringVar(&fieldname, "field", "", "document field that receives the file url")
	cmd.Flags().BoolVar(&isPrivate, "private", false, "store the files as private")
	return cmd
}

func uploadResultsPayload(results []api.UploadResult) map[string]any {
	items := make([]map[string]any, 0, len(results))
	for _, result := range results {
		item := map[string]any{"file_name": result.FileName}
		if result.Err != nil {
			item["error"] = result.Err.Error()
		} else {
			item["attachment"] = result.Attachment
		}
		items = append(items, item)
	}
	return map[string]any{"count": len(items), "results": items}
}

func newAttachRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:     "rm <doctype> <name> <attachment-id>",
		Aliases: []string{"remove"},
		Short:   "Delete an attachment and every attachment sharing its file name",
		Args:    requireDocumentArgs(1, "doctype, name and attachment id are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmer := newLineConfirmer(os.Stdin, os.Stderr, assumeYes)
			return withClient(cfg, func(client *api.Client) error {
				session, err := openAttachSession(cmd.Context(), cfg, client, args[0], args[1], confirmer)
				if err != nil {
					return err
				}
				if err := session.manager.Remove(cmd.Context(), args[2]); err != nil {
					if errors.Is(err, attachments.ErrCancelled) {
						return writePlain("cancelled\n")
					}
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"id": args[2], "deleted": true, "remaining": len(session.manager.GetAttachments())})
				}
				return writePlain("deleted %s\n", args[2])
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newAttachRemoveURLCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-url <doctype> <name> <file-url>",
		Short: "Delete the attachment served from a file url, without confirmation",
		Args:  requireDocumentArgs(1, "doctype, name and file url are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				session, err := openAttachSession(cmd.Context(), cfg, client, args[0], args[1], nil)
				if err != nil {
					return err
				}
				id := session.manager.FindIDByURL(args[2])
				if err := session.manager.RemoveAttachmentByFilename(cmd.Context(), args[2]); err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"file_url": args[2], "id": id, "deleted": id != ""})
				}
				if id == "" {
					return writePlain("no attachment served from %s\n", args[2])
				}
				return writePlain("deleted %s\n", id)
			})
		},
	}
}

func newAttachGetCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <file-url>",
		Short: "Download an attached file",
		Args:  requireExactlyArgs(1, "file url is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if output == "" || output == "-" {
					_, err := downloadAttachment(cmd.Context(), client, args[0], os.Stdout)
					return err
				}
				n, err := downloadToFile(cmd.Context(), client, args[0], output)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "wrote %s to %s\n", humanize.Bytes(uint64(n)), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "write to file instead of stdout")
	return cmd
}

// downloadAttachment fetches a stored file_url. A url that is not found is
// retried unescaped, so the escaped form shown by attach list works too.
func downloadAttachment(ctx context.Context, client *api.Client, fileURL string, w io.Writer) (int64, error) {
	n, err := client.DownloadFile(ctx, fileURL, w)
	if apiErr, ok := api.AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
		if raw, uerr := url.PathUnescape(fileURL); uerr == nil && raw != fileURL {
			return client.DownloadFile(ctx, raw, w)
		}
	}
	return n, err
}

// downloadToFile writes into a temp file next to path and renames it into
// place only after a complete download.
func downloadToFile(ctx context.Context, client *api.Client, fileURL, path string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docattach-get-*")
	if err != nil {
		return 0, err
	}
	n, err := downloadAttachment(ctx, client, fileURL, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
