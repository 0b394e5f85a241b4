package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"docsync/internal/auth"
	"docsync/internal/collab"
	"docsync/internal/models"
	"docsync/internal/repository"

	"github.com/gorilla/mux"
)

// Handler serves the document snapshot API and hands WebSocket upgrades to
// the collaboration gateway.
type Handler struct {
	docs     DocumentRepository
	users    UserRepository
	tokens   TokenIssuer
	collabWS *collab.Handler
}

func NewHandler(docs DocumentRepository, users UserRepository, tokens TokenIssuer, collabWS *collab.Handler) *Handler {
	return &Handler{
		docs:     docs,
		users:    users,
		tokens:   tokens,
		collabWS: collabWS,
	}
}

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login resolves the username to a stable user identifier and returns an
// opaque signed token for it.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	user, err := h.users.FindOrCreate(r.Context(), req.Username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var doc models.DocumentCreate
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if doc.Title == "" {
		doc.Title = "Untitled"
	}

	created, err := h.docs.Create(r.Context(), auth.UserID(r.Context()), &doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	documents, err := h.docs.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) UpdateDocumentTitle(w http.ResponseWriter, r *http.Request) {
	var req models.DocumentTitleUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	doc, err := h.docs.UpdateTitle(r.Context(), mux.Vars(r)["id"], req.Title)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocumentContent saves a snapshot of the client's buffer. This is the
// only path by which collaborative edits reach the database.
func (h *Handler) UpdateDocumentContent(w http.ResponseWriter, r *http.Request) {
	var req models.DocumentContentUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.docs.UpdateContent(r.Context(), mux.Vars(r)["id"], req.Content)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCollabWebSocket upgrades the connection and attaches it to the
// session gateway.
func (h *Handler) HandleCollabWebSocket(w http.ResponseWriter, r *http.Request) {
	h.collabWS.HandleConnection(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
