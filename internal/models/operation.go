package models

import (
	"time"

	"github.com/google/uuid"
)

// OperationKind tags an edit intent as an insertion or a deletion.
type OperationKind string

const (
	OpInsert OperationKind = "insert"
	OpDelete OperationKind = "delete"
)

// Operation is a single edit intent against a document buffer. Operations are
// ephemeral: created on a client, relayed through the gateway, applied by the
// receiving replicas and discarded. They are never persisted.
//
// Exactly one of Text (for insert) or Length (for delete) is populated,
// matching Kind.
type Operation struct {
	ID         string        `json:"id"`
	Kind       OperationKind `json:"type"`
	Position   int           `json:"position"`
	Text       string        `json:"text,omitempty"`
	Length     int           `json:"length,omitempty"`
	UserID     string        `json:"userId"`
	DocumentID string        `json:"documentId"`
	// IssuedAt is a logical timestamp assigned at creation. It is only used
	// for relative ordering between operations, never as a wall-clock
	// authority.
	IssuedAt int64 `json:"timestamp"`
}

// NewInsert builds an insert operation with a fresh ID and logical timestamp.
func NewInsert(documentID, userID string, position int, text string) Operation {
	return Operation{
		ID:         uuid.NewString(),
		Kind:       OpInsert,
		Position:   position,
		Text:       text,
		UserID:     userID,
		DocumentID: documentID,
		IssuedAt:   time.Now().UnixNano(),
	}
}

// NewDelete builds a delete operation with a fresh ID and logical timestamp.
func NewDelete(documentID, userID string, position, length int) Operation {
	return Operation{
		ID:         uuid.NewString(),
		Kind:       OpDelete,
		Position:   position,
		Length:     length,
		UserID:     userID,
		DocumentID: documentID,
		IssuedAt:   time.Now().UnixNano(),
	}
}
