package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /health", s.handleHealth)

	// Doctypes.
	mux.HandleFunc("GET /v1/doctypes", s.handleListDoctypes)
	mux.HandleFunc("GET /v1/doctypes/{doctype}", s.handleGetDoctype)
	mux.HandleFunc("PUT /v1/doctypes/{doctype}", s.handlePutDoctype)

	// Documents.
	mux.HandleFunc("POST /v1/documents/{doctype}", s.handleCreateDocument)
	mux.HandleFunc("GET /v1/documents/{doctype}/{name}", s.handleGetDocument)
	mux.HandleFunc("PATCH /v1/documents/{doctype}/{name}", s.handleSetDocumentFields)
	mux.HandleFunc("GET /v1/documents/{doctype}/{name}/docinfo", s.handleGetDocInfo)

	// Attachments.
	mux.HandleFunc("POST /v1/documents/{doctype}/{name}/attachments", s.handleUploadAttachment)
	mux.HandleFunc("DELETE /v1/documents/{doctype}/{name}/attachments/{attachment_id}", s.handleDeleteAttachment)

	// File bytes.
	mux.HandleFunc("GET /files/{path...}", s.handleServePublicFile)
	mux.HandleFunc("GET /private/files/{path...}", s.handleServePrivateFile)

	// Admin.
	mux.HandleFunc("GET /v1/admin/users", s.handleAdminListUsers)
	mux.HandleFunc("POST /v1/admin/users", s.handleAdminCreateUser)
	mux.HandleFunc("PATCH /v1/admin/users/{username}", s.handleAdminSetUserDisabled)

	return s.withCORS(s.withRequestID(s.withRequestLogging(s.withAuth(mux))))
}
