package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"docattach/internal/models"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "DOCATTACH_HTTP_TIMEOUT"
	apiTokenEnvKey     = "DOCATTACH_API_TOKEN"
	userEnvKey         = "DOCATTACH_USER"
	passwordEnvKey     = "DOCATTACH_PASSWORD"
)

// Client is a simple HTTP client for the docattach API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
	username  string
	password  string
	logger    *slog.Logger
}

// NewClient creates a new API client. Credentials come from the environment.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		username:  strings.TrimSpace(os.Getenv(userEnvKey)),
		password:  os.Getenv(passwordEnvKey),
	}
}

// WithBasicAuth returns a copy of the client that authenticates as username.
func (c *Client) WithBasicAuth(username, password string) *Client {
	clone := *c
	clone.authToken = ""
	clone.username = strings.TrimSpace(username)
	clone.password = password
	return &clone
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) ListDoctypes(ctx context.Context) ([]models.DocType, error) {
	var resp []models.DocType
	err := c.do(ctx, http.MethodGet, "/v1/doctypes", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetDoctype(ctx context.Context, doctype string) (models.DocType, error) {
	var resp models.DocType
	err := c.do(ctx, http.MethodGet, doctypePath(doctype), nil, nil, &resp)
	return resp, err
}

func (c *Client) PutDoctype(ctx context.Context, doctype string, req DoctypeRequest) (models.DocType, error) {
	var resp models.DocType
	err := c.do(ctx, http.MethodPut, doctypePath(doctype), nil, req, &resp)
	return resp, err
}

func (c *Client) CreateDocument(ctx context.Context, doctype string, req DocumentCreateRequest) (models.Document, error) {
	var resp models.Document
	err := c.do(ctx, http.MethodPost, "/v1/documents/"+url.PathEscape(doctype), nil, req, &resp)
	return resp, err
}

func (c *Client) GetDocument(ctx context.Context, doctype, name string) (models.Document, error) {
	var resp models.Document
	err := c.do(ctx, http.MethodGet, documentPath(doctype, name), nil, nil, &resp)
	return resp, err
}

// SetDocumentFields writes field values on a saved document.
func (c *Client) SetDocumentFields(ctx context.Context, doctype, name string, fields map[string]string) (models.Document, error) {
	var resp models.Document
	err := c.do(ctx, http.MethodPatch, documentPath(doctype, name), nil, DocumentFieldsRequest{Fields: fields}, &resp)
	return resp, err
}

// GetDocInfo reloads the document info bundle. Attachment rows that fail
// validation are dropped so callers only see well-formed records.
func (c *Client) GetDocInfo(ctx context.Context, doctype, name string) (DocInfo, error) {
	var resp DocInfo
	if err := c.do(ctx, http.MethodGet, documentPath(doctype, name)+"/docinfo", nil, nil, &resp); err != nil {
		return resp, err
	}
	valid := make([]models.Attachment, 0, len(resp.Attachments))
	for _, attachment := range resp.Attachments {
		if err := attachment.Validate(); err != nil {
			c.log().Warn("dropping invalid attachment row", "doctype", doctype, "name", name, "error", err)
			continue
		}
		valid = append(valid, attachment)
	}
	resp.Attachments = valid
	return resp, nil
}

// DeleteAttachment removes one attachment from a document.
func (c *Client) DeleteAttachment(ctx context.Context, doctype, name, attachmentID string) error {
	var resp AttachmentDeleteResponse
	return c.do(ctx, http.MethodDelete, documentPath(doctype, name)+"/attachments/"+url.PathEscape(attachmentID), nil, nil, &resp)
}

// AttachmentUpload describes one multipart upload.
type AttachmentUpload struct {
	FileName  string
	IsPrivate bool
	Folder    string
	Fieldname string
	Content   io.Reader
}

// UploadAttachment sends one file as multipart form data.
func (c *Client) UploadAttachment(ctx context.Context, doctype, name string, in AttachmentUpload) (models.Attachment, error) {
	var resp models.Attachment
	if in.Content == nil {
		return resp, fmt.Errorf("content is required")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"file_name":  in.FileName,
		"is_private": strconv.FormatBool(in.IsPrivate),
		"folder":     in.Folder,
		"fieldname":  in.Fieldname,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(key, value); err != nil {
			return resp, err
		}
	}
	part, err := mw.CreateFormFile("content", in.FileName)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, in.Content); err != nil {
		return resp, err
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+documentPath(doctype, name)+"/attachments", &body)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// DownloadFile copies the bytes served at fileURL into w. A relative fileURL is
// the stored, unescaped file_url of an attachment; absolute http(s) urls are
// used as given.
func (c *Client) DownloadFile(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	endpoint := fileURL
	if !strings.HasPrefix(fileURL, "http://") && !strings.HasPrefix(fileURL, "https://") {
		endpoint = c.baseURL + fileEndpointPath(fileURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	c.setAuthHeader(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *Client) AdminUserAdd(ctx context.Context, req AdminUserCreateRequest) (AdminUser, error) {
	var resp AdminUser
	err := c.do(ctx, http.MethodPost, "/v1/admin/users", nil, req, &resp)
	return resp, err
}

func (c *Client) AdminUserList(ctx context.Context) ([]AdminUser, error) {
	var resp []AdminUser
	err := c.do(ctx, http.MethodGet, "/v1/admin/users", nil, nil, &resp)
	return resp, err
}

func (c *Client) AdminUserSetDisabled(ctx context.Context, username string, disabled bool) (AdminUser, error) {
	var resp AdminUser
	err := c.do(ctx, http.MethodPatch, "/v1/admin/users/"+url.PathEscape(username), nil, AdminUserSetDisabledRequest{Disabled: disabled}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = "api error: " + resp.Status
	return apiErr
}

func (c *Client) setAuthHeader(req *http.Request) {
	if req == nil {
		return
	}
	switch {
	case c.authToken != "":
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
}

func (c *Client) log() *slog.Logger {
	if c != nil && c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

func doctypePath(doctype string) string {
	return "/v1/doctypes/" + url.PathEscape(doctype)
}

func documentPath(doctype, name string) string {
	return "/v1/documents/" + url.PathEscape(doctype) + "/" + url.PathEscape(name)
}

// fileEndpointPath escapes a stored file_url for use as a request path.
func fileEndpointPath(fileURL string) string {
	return (&url.URL{Path: "/" + strings.TrimLeft(fileURL, "/")}).EscapedPath()
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
