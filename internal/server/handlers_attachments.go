package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"docattach/internal/api"
)

const multipartEnvelopeAllowance = 1 << 20 // 1 MiB

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.uploadLimiter, w, r, "upload") {
		return
	}
	defer s.releaseLimiter(s.uploadLimiter)

	if s.attachments.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.attachments.maxBytes+multipartEnvelopeAllowance)
	}
	if err := r.ParseMultipartForm(s.multipartMem); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("content")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	isPrivate, err := parseFormBool(r.FormValue("is_private"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid is_private: %w", err), ErrCodeInvalidArgument))
		return
	}

	attachment, err := s.attachments.Upload(r.Context(), principalFor(r), r.PathValue("doctype"), r.PathValue("name"), AttachmentUploadInput{
		FileName:  firstNonEmpty(r.FormValue("file_name"), header.Filename),
		IsPrivate: isPrivate,
		Folder:    r.FormValue("folder"),
		Fieldname: r.FormValue("fieldname"),
	}, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, attachment)
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("attachment_id"))
	if err := s.attachments.Delete(r.Context(), principalFor(r), r.PathValue("doctype"), r.PathValue("name"), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AttachmentDeleteResponse{ID: id, Deleted: true})
}

func parseFormBool(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidMultipart)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
