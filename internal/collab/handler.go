package collab

import (
	"log"
	"net/http"

	"docsync/internal/middleware"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: validate origin against the configured frontend host.
		return true
	},
}

// TokenVerifier is what the handler needs from the auth layer: turn an opaque
// signed token into a stable user identifier.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// Handler upgrades HTTP requests into gateway connections.
type Handler struct {
	gateway  *Gateway
	verifier TokenVerifier
}

func NewHandler(gateway *Gateway, verifier TokenVerifier) *Handler {
	return &Handler{gateway: gateway, verifier: verifier}
}

// HandleConnection upgrades the request and starts the connection pumps. The
// connection is not associated with any document until it sends a
// join-document envelope.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ctx, span := middleware.StartSpan(r.Context(), "Collab.Connect")
	defer span.End()

	userID, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		middleware.AddSpanError(ctx, err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("collab: websocket upgrade failed: %v", err)
		middleware.AddSpanError(ctx, err)
		return
	}

	conn := newConn(h.gateway, ws)

	// Separate reader and writer goroutines so neither can block the other.
	go conn.writePump()
	go conn.readPump()

	log.Printf("collab: connection established for user %s", userID)
}
