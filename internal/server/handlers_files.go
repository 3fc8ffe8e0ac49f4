package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"docattach/internal/models"
)

func (s *Server) handleServePublicFile(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, models.PublicFilesPrefix+r.PathValue("path"))
}

// Private files sit behind withAuth, so reaching here means the caller may read.
func (s *Server) handleServePrivateFile(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, models.PrivateFilesPrefix+r.PathValue("path"))
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, fileURL string) {
	content, err := s.attachments.Open(r.Context(), fileURL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", content.MediaType)
	if content.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.SizeBytes, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": content.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Reader); err != nil {
		s.log().Warn("write file response", "file_url", fileURL, "error", err)
	}
}
