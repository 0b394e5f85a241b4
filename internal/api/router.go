package api

import (
	"net/http"

	"docsync/internal/auth"
	"docsync/internal/middleware"

	"github.com/gorilla/mux"
)

// SetupRoutes wires the HTTP surface: public auth + health, token-protected
// document snapshot endpoints, and the collaboration WebSocket.
func SetupRoutes(h *Handler, issuer *auth.TokenIssuer) *mux.Router {
	r := mux.NewRouter()

	// Middleware order: tracing first, then recovery, then CORS.
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Document snapshot endpoints
	docs := api.PathPrefix("/documents").Subrouter()
	docs.Use(issuer.Middleware)
	docs.HandleFunc("", h.CreateDocument).Methods("POST")
	docs.HandleFunc("", h.ListDocuments).Methods("GET")
	docs.HandleFunc("/{id}", h.GetDocument).Methods("GET")
	docs.HandleFunc("/{id}/title", h.UpdateDocumentTitle).Methods("PUT")
	docs.HandleFunc("/{id}/content", h.UpdateDocumentContent).Methods("PUT")
	docs.HandleFunc("/{id}", h.DeleteDocument).Methods("DELETE")

	// WebSocket route; the token travels as a query parameter since browsers
	// cannot set headers on WebSocket dials.
	r.HandleFunc("/ws", h.HandleCollabWebSocket)

	return r
}
