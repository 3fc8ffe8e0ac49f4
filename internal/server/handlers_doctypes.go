package server

import (
	"net/http"

	"docattach/internal/api"
)

func (s *Server) handleListDoctypes(w http.ResponseWriter, r *http.Request) {
	doctypes, err := s.documents.ListDoctypes(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doctypes)
}

func (s *Server) handleGetDoctype(w http.ResponseWriter, r *http.Request) {
	doctype, err := s.documents.GetDoctype(r.Context(), r.PathValue("doctype"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doctype)
}

func (s *Server) handlePutDoctype(w http.ResponseWriter, r *http.Request) {
	var req api.DoctypeRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	doctype, err := s.documents.PutDoctype(r.Context(), principalFor(r), r.PathValue("doctype"), req.MaxAttachments)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doctype)
}
