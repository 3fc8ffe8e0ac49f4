package server

import (
	"net/http"

	"docattach/internal/api"
)

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req api.DocumentCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	doc, err := s.documents.CreateDocument(r.Context(), principalFor(r), r.PathValue("doctype"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.GetDocument(r.Context(), r.PathValue("doctype"), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSetDocumentFields(w http.ResponseWriter, r *http.Request) {
	var req api.DocumentFieldsRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	doc, err := s.attachments.SetFields(r.Context(), principalFor(r), r.PathValue("doctype"), r.PathValue("name"), req.Fields)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetDocInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.documents.DocInfo(r.Context(), principalFor(r), r.PathValue("doctype"), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}
