package models

import (
	"time"

	"github.com/segmentio/ksuid"
)

// Session represents an active WebSocket connection to a document room.
type Session struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	UserID       string    `json:"user_id"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func NewSession(documentID, userID string) *Session {
	return &Session{
		ID:           ksuid.New().String(),
		DocumentID:   documentID,
		UserID:       userID,
		ConnectedAt:  time.Now(),
		LastActiveAt: time.Now(),
	}
}

// MessageType discriminates the collaboration protocol envelopes. Every
// message, inbound or outbound, is dispatched on this tag through a single
// handler per connection.
type MessageType string

const (
	// Client → server.
	MsgJoinDocument  MessageType = "join-document"
	MsgLeaveDocument MessageType = "leave-document"

	// Relayed both directions.
	MsgDocumentOperation MessageType = "document-operation"
	MsgCursorPosition    MessageType = "cursor-position"

	// Server → clients.
	MsgActiveUsers MessageType = "active-users"
	MsgUserJoined  MessageType = "user-joined"
	MsgUserLeft    MessageType = "user-left"
)

// Message is the JSON envelope exchanged over a collaboration connection.
// Fields are populated per Type; unused fields are omitted on the wire.
type Message struct {
	Type       MessageType `json:"type"`
	DocumentID string      `json:"documentId,omitempty"`
	UserID     string      `json:"userId,omitempty"`
	Position   int         `json:"position,omitempty"`
	Users      []string    `json:"users,omitempty"`
	Operation  *Operation  `json:"operation,omitempty"`
}
