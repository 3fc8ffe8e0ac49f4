package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"docattach/internal/api"
	"docattach/internal/models"
)

func uploadOK(t *testing.T, h http.Handler, target, fileName, content string, fields map[string]string) models.Attachment {
	t.Helper()
	w := serve(t, h, uploadRequest(t, target, fileName, content, fields))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload %s: expected 201, got %d (%s)", fileName, w.Code, w.Body.String())
	}
	return decodeBody[models.Attachment](t, w)
}

func TestUploadServeAndDeleteAttachment(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 1 << 20})
	h := srv.Handler()
	seedDocument(t, h, "Note", "N-1", 0)

	created := uploadOK(t, h, "/v1/documents/Note/N-1/attachments", "report.txt", "hello attachment world", nil)
	if created.ID == "" || created.FileURL != "/files/report.txt" {
		t.Fatalf("unexpected attachment: %+v", created)
	}
	if created.Folder != models.DefaultAttachmentFolder {
		t.Fatalf("expected default folder, got %q", created.Folder)
	}
	if created.FileSize != int64(len("hello attachment world")) || created.ContentHash == "" {
		t.Fatalf("expected size and hash, got %+v", created)
	}

	w := serve(t, h, httptest.NewRequest(http.MethodGet, "/files/report.txt", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 serving file, got %d (%s)", w.Code, w.Body.String())
	}
	if w.Body.String() != "hello attachment world" {
		t.Fatalf("unexpected file body %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}

	w = serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/Note/N-1/docinfo", nil))
	info := decodeBody[api.DocInfo](t, w)
	if diff := cmp.Diff([]string{created.ID}, attachmentIDs(info.Attachments)); diff != "" {
		t.Fatalf("docinfo attachments mismatch (-want +got):\n%s", diff)
	}

	w = serve(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/Note/N-1/attachments/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d (%s)", w.Code, w.Body.String())
	}
	if resp := decodeBody[api.AttachmentDeleteResponse](t, w); !resp.Deleted || resp.ID != created.ID {
		t.Fatalf("unexpected delete response: %+v", resp)
	}

	if w := serve(t, h, httptest.NewRequest(http.MethodGet, "/files/report.txt", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
	digest := created.ContentHash
	if _, err := srv.attachments.blobs.Open(context.Background(), "sha256/"+digest[:2]+"/"+digest[2:4]+"/"+digest); err == nil {
		t.Fatal("expected stored bytes to be released")
	}

	w = serve(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/Note/N-1/attachments/"+created.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", w.Code)
	}
	if errResp := decodeBody[api.ErrorResponse](t, w); errResp.ErrorCode != ErrCodeAttachmentNotFound {
		t.Fatalf("expected error_code %d, got %d", ErrCodeAttachmentNotFound, errResp.ErrorCode)
	}
}

func TestUploadEnforcesDistinctNameLimit(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()
	seedDocument(t, h, "Note", "N-1", 2)
	target := "/v1/documents/Note/N-1/attachments"

	uploadOK(t, h, target, "a.txt", "one", nil)
	uploadOK(t, h, target, "b.txt", "two", nil)
	// Same name again does not consume quota.
	uploadOK(t, h, target, "a.txt", "one", nil)

	w := serve(t, h, uploadRequest(t, target, "c.txt", "three", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 at limit, got %d (%s)", w.Code, w.Body.String())
	}
	errResp := decodeBody[api.ErrorResponse](t, w)
	if errResp.Code != "limit_reached" || errResp.ErrorCode != ErrCodeLimitReached {
		t.Fatalf("unexpected error response: %+v", errResp)
	}
}

func TestUploadURLCollisionAddsHashSuffix(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()
	seedDocument(t, h, "Note", "N-1", 0)
	seedDocument(t, h, "Note", "N-2", 0)

	first := uploadOK(t, h, "/v1/documents/Note/N-1/attachments", "logo.png", "first", nil)
	same := uploadOK(t, h, "/v1/documents/Note/N-2/attachments", "logo.png", "first", nil)
	other := uploadOK(t, h, "/v1/documents/Note/N-2/attachments", "logo.png", "second", nil)

	if first.FileURL != "/files/logo.png" || same.FileURL != first.FileURL {
		t.Fatalf("expected same content to share url, got %q and %q", first.FileURL, same.FileURL)
	}
	want := "/files/logo-" + other.ContentHash[:urlHashSuffixLength] + ".png"
	if other.FileURL != want {
		t.Fatalf("expected suffixed url %q, got %q", want, other.FileURL)
	}
	if other.FileName != "logo.png" {
		t.Fatalf("expected file_name to stay as uploaded, got %q", other.FileName)
	}

	w := serve(t, h, httptest.NewRequest(http.MethodGet, other.FileURL, nil))
	if w.Code != http.StatusOK || w.Body.String() != "second" {
		t.Fatalf("unexpected suffixed file response %d %q", w.Code, w.Body.String())
	}

	// Shared bytes stay until the last row referencing them is gone.
	if w := serve(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/Note/N-1/attachments/"+first.ID, nil)); w.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d", w.Code)
	}
	w = serve(t, h, httptest.NewRequest(http.MethodGet, "/files/logo.png", nil))
	if w.Code != http.StatusOK || w.Body.String() != "first" {
		t.Fatalf("expected shared blob to survive, got %d %q", w.Code, w.Body.String())
	}
}

func TestDeleteAttachmentOfOtherDocumentIsNotFound(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()
	seedDocument(t, h, "Note", "N-1", 0)
	seedDocument(t, h, "Note", "N-2", 0)

	created := uploadOK(t, h, "/v1/documents/Note/N-1/attachments", "a.txt", "one", nil)
	w := serve(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/Note/N-2/attachments/"+created.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestUploadWithFieldnameReplacesPreviousBinding(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()
	seedDocument(t, h, "Note", "N-1", 1)
	target := "/v1/documents/Note/N-1/attachments"

	first := uploadOK(t, h, target, "old.png", "old", map[string]string{"fieldname": "image"})
	second := uploadOK(t, h, target, "new.png", "new", map[string]string{"fieldname": "image"})
	if second.AttachedToField != "image" {
		t.Fatalf("expected field binding, got %+v", second)
	}

	w := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/Note/N-1/docinfo", nil))
	info := decodeBody[api.DocInfo](t, w)
	if diff := cmp.Diff([]string{second.ID}, attachmentIDs(info.Attachments)); diff != "" {
		t.Fatalf("expected %s replaced (-want +got):\n%s", first.ID, diff)
	}

	w = serve(t, h, jsonRequest(t, http.MethodPatch, "/v1/documents/Note/N-1", api.DocumentFieldsRequest{Fields: map[string]string{"image": second.FileURL}}))
	if w.Code != http.StatusOK {
		t.Fatalf("set field: expected 200, got %d", w.Code)
	}
	if w := serve(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/Note/N-1/attachments/"+second.ID, nil)); w.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d", w.Code)
	}
	w = serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/Note/N-1", nil))
	doc := decodeBody[models.Document](t, w)
	if _, ok := doc.Fields["image"]; ok {
		t.Fatalf("expected image field cleared, got %+v", doc.Fields)
	}
}

func TestPrivateFilesRequireAuthentication(t *testing.T) {
	srv := newTestServer(t, Options{})
	srv.apiToken = "token"
	h := srv.Handler()

	authed := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer token")
		return req
	}
	for _, req := range []*http.Request{
		jsonRequest(t, http.MethodPut, "/v1/doctypes/Note", api.DoctypeRequest{}),
		jsonRequest(t, http.MethodPost, "/v1/documents/Note", api.DocumentCreateRequest{Name: "N-1"}),
	} {
		if w := serve(t, h, authed(req)); w.Code >= 300 {
			t.Fatalf("seed %s %s: got %d (%s)", req.Method, req.URL.Path, w.Code, w.Body.String())
		}
	}

	w := serve(t, h, authed(uploadRequest(t, "/v1/documents/Note/N-1/attachments", "secret.txt", "classified", map[string]string{"is_private": "true"})))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	created := decodeBody[models.Attachment](t, w)
	if created.FileURL != "/private/files/secret.txt" || !created.IsPrivate {
		t.Fatalf("unexpected private attachment: %+v", created)
	}

	if w := serve(t, h, httptest.NewRequest(http.MethodGet, "/private/files/secret.txt", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}
	if w := serve(t, h, httptest.NewRequest(http.MethodGet, "/files/secret.txt", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected private file hidden from public path, got %d", w.Code)
	}
	w = serve(t, h, authed(httptest.NewRequest(http.MethodGet, "/private/files/secret.txt", nil)))
	if w.Code != http.StatusOK || w.Body.String() != "classified" {
		t.Fatalf("unexpected private file response %d %q", w.Code, w.Body.String())
	}
}

func TestUploadRejectsOversizedAndInvalidInput(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 4})
	h := srv.Handler()
	seedDocument(t, h, "Note", "N-1", 0)
	target := "/v1/documents/Note/N-1/attachments"

	w := serve(t, h, uploadRequest(t, target, "big.txt", "too large", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized upload, got %d (%s)", w.Code, w.Body.String())
	}
	if errResp := decodeBody[api.ErrorResponse](t, w); errResp.ErrorCode != ErrCodeRequestTooLarge {
		t.Fatalf("expected error_code %d, got %d", ErrCodeRequestTooLarge, errResp.ErrorCode)
	}

	w = serve(t, h, uploadRequest(t, target, "ok.txt", "tiny", map[string]string{"file_name": "<b></b>"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty sanitised name, got %d (%s)", w.Code, w.Body.String())
	}

	w = serve(t, h, uploadRequest(t, target, "ok.txt", "tiny", map[string]string{"fieldname": "Not Valid"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid fieldname, got %d", w.Code)
	}

	w = serve(t, h, uploadRequest(t, "/v1/documents/Note/missing/attachments", "ok.txt", "tiny", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unsaved document, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	if w := serve(t, h, req); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", w.Code)
	}
}

func TestSanitizeFileName(t *testing.T) {
	svc := NewAttachmentService(nil, nil, nil, 0, nil)
	cases := map[string]string{
		"report.pdf":                    "report.pdf",
		"  spaced name.txt ":            "spaced name.txt",
		"../../etc/passwd":              ".._.._etc_passwd",
		`dir\file.txt`:                  "dir_file.txt",
		"<script>alert(1)</script>a.js": "a.js",
		"Tom & Jerry.png":               "Tom & Jerry.png",
	}
	for raw, want := range cases {
		got, err := svc.sanitizeFileName(raw)
		if err != nil {
			t.Fatalf("sanitize %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("sanitize %q: expected %q, got %q", raw, want, got)
		}
	}
	for _, raw := range []string{"", "  ", ".", "..", "<i></i>"} {
		if _, err := svc.sanitizeFileName(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func attachmentIDs(attachments []models.Attachment) []string {
	ids := make([]string, 0, len(attachments))
	for _, a := range attachments {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestClearingFieldRemovesBoundAttachment(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()
	seedDocument(t, h, "Note", "N-1", 0)
	target := "/v1/documents/Note/N-1/attachments"

	logo := uploadOK(t, h, target, "logo.png", "logo bytes", map[string]string{"fieldname": "image"})
	loose := uploadOK(t, h, target, "notes.txt", "notes", nil)

	w := serve(t, h, jsonRequest(t, http.MethodPatch, "/v1/documents/Note/N-1", api.DocumentFieldsRequest{Fields: map[string]string{"image": logo.FileURL, "notes": loose.FileURL}}))
	if w.Code != http.StatusOK {
		t.Fatalf("set fields: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = serve(t, h, jsonRequest(t, http.MethodPatch, "/v1/documents/Note/N-1", api.DocumentFieldsRequest{Fields: map[string]string{"image": "", "notes": ""}}))
	if w.Code != http.StatusOK {
		t.Fatalf("clear fields: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	doc := decodeBody[models.Document](t, w)
	if len(doc.Fields) != 0 {
		t.Fatalf("expected fields cleared, got %+v", doc.Fields)
	}

	w = serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/Note/N-1/docinfo", nil))
	info := decodeBody[api.DocInfo](t, w)
	// notes.txt was never bound to the field, so it stays.
	if diff := cmp.Diff([]string{loose.ID}, attachmentIDs(info.Attachments)); diff != "" {
		t.Fatalf("docinfo attachments mismatch (-want +got):\n%s", diff)
	}
	if w := serve(t, h, httptest.NewRequest(http.MethodGet, logo.FileURL, nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for removed file, got %d", w.Code)
	}
}

func TestDeleteKeepsFieldWhileURLIsStillServed(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()
	seedDocument(t, h, "Note", "N-1", 0)
	target := "/v1/documents/Note/N-1/attachments"

	bound := uploadOK(t, h, target, "logo.png", "same", map[string]string{"fieldname": "image"})
	again := uploadOK(t, h, target, "logo.png", "same", nil)
	if again.FileURL != bound.FileURL {
		t.Fatalf("expected re-upload to share url, got %q and %q", bound.FileURL, again.FileURL)
	}
	w := serve(t, h, jsonRequest(t, http.MethodPatch, "/v1/documents/Note/N-1", api.DocumentFieldsRequest{Fields: map[string]string{"image": bound.FileURL}}))
	if w.Code != http.StatusOK {
		t.Fatalf("set field: expected 200, got %d", w.Code)
	}

	if w := serve(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/Note/N-1/attachments/"+bound.ID, nil)); w.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d", w.Code)
	}
	w = serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/Note/N-1", nil))
	doc := decodeBody[models.Document](t, w)
	if doc.Fields["image"] != bound.FileURL {
		t.Fatalf("expected image field kept while %s is served, got %+v", bound.FileURL, doc.Fields)
	}

	if w := serve(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/Note/N-1/attachments/"+again.ID, nil)); w.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d", w.Code)
	}
	if w := serve(t, h, httptest.NewRequest(http.MethodGet, bound.FileURL, nil)); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 once every row is gone, got %d", w.Code)
	}
}
