// Package client implements the session store a connecting editor keeps per
// document: the local buffer replica, the active-user list and the cursor
// map. It feeds local edits to the gateway and folds incoming envelopes back
// into local state.
//
// Replicas are expected, not guaranteed, to converge. Local edits are applied
// optimistically and a dropped or reordered relay simply leaves the buffer
// stale; no error surfaces.
package client

import (
	"fmt"
	"sync"

	"docsync/internal/models"
	"docsync/internal/ot"
)

// Sender transmits envelopes toward the gateway. Implementations are expected
// to be safe for concurrent use.
type Sender interface {
	Send(msg models.Message) error
}

// Options tunes store behavior.
type Options struct {
	// ReconcileInFlight transforms incoming remote operations against this
	// client's own unacknowledged operations before applying them. Off by
	// default: the stock behavior applies remote operations as-is, which is a
	// known source of local/remote divergence.
	ReconcileInFlight bool

	// HistoryLimit bounds how many recently applied remote operations are
	// kept for transforming fresh local edits. Zero means the default.
	HistoryLimit int
}

const defaultHistoryLimit = 64

// Store is the per-client session state for one document at a time.
type Store struct {
	mu sync.Mutex

	userID     string
	documentID string
	buffer     string
	members    []string
	cursors    map[string]int

	// Recently applied remote operations; fresh local edits are transformed
	// against these so they target the post-edit buffer.
	applied []models.Operation

	// Own operations sent but not yet seen by everyone. Only consulted when
	// ReconcileInFlight is set.
	inflight []models.Operation

	sender Sender
	opts   Options
}

func NewStore(userID string, sender Sender, opts Options) *Store {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return &Store{
		userID:  userID,
		sender:  sender,
		opts:    opts,
		cursors: make(map[string]int),
	}
}

// Join sends the join intent and seeds the local buffer from the externally
// fetched snapshot.
func (s *Store) Join(documentID, snapshot string) error {
	s.mu.Lock()
	s.documentID = documentID
	s.buffer = snapshot
	s.members = nil
	s.cursors = make(map[string]int)
	s.applied = nil
	s.inflight = nil
	s.mu.Unlock()

	return s.sender.Send(models.Message{
		Type:       models.MsgJoinDocument,
		DocumentID: documentID,
		UserID:     s.userID,
	})
}

// Leave sends the leave intent and clears membership, cursor and buffer
// state.
func (s *Store) Leave() error {
	s.mu.Lock()
	documentID := s.documentID
	s.documentID = ""
	s.buffer = ""
	s.members = nil
	s.cursors = make(map[string]int)
	s.applied = nil
	s.inflight = nil
	s.mu.Unlock()

	if documentID == "" {
		return nil
	}
	return s.sender.Send(models.Message{
		Type:       models.MsgLeaveDocument,
		DocumentID: documentID,
		UserID:     s.userID,
	})
}

// Insert submits a local insertion: the fresh operation is transformed
// against remote operations already folded into the buffer, applied
// optimistically, and transmitted.
func (s *Store) Insert(position int, text string) (models.Operation, error) {
	s.mu.Lock()
	op := models.NewInsert(s.documentID, s.userID, position, text)
	op, err := s.submitLocked(op)
	s.mu.Unlock()
	if err != nil {
		return op, err
	}
	return op, s.send(op)
}

// Delete submits a local deletion, following the same path as Insert.
func (s *Store) Delete(position, length int) (models.Operation, error) {
	s.mu.Lock()
	op := models.NewDelete(s.documentID, s.userID, position, length)
	op, err := s.submitLocked(op)
	s.mu.Unlock()
	if err != nil {
		return op, err
	}
	return op, s.send(op)
}

func (s *Store) submitLocked(op models.Operation) (models.Operation, error) {
	for _, prior := range s.applied {
		op = ot.Transform(op, prior)
	}

	next, err := ot.Apply(s.buffer, op)
	if err != nil {
		return op, fmt.Errorf("local apply: %w", err)
	}
	s.buffer = next

	s.inflight = append(s.inflight, op)
	if len(s.inflight) > s.opts.HistoryLimit {
		s.inflight = s.inflight[1:]
	}
	return op, nil
}

func (s *Store) send(op models.Operation) error {
	return s.sender.Send(models.Message{
		Type:      models.MsgDocumentOperation,
		Operation: &op,
	})
}

// MoveCursor records the local cursor offset and announces it.
func (s *Store) MoveCursor(position int) error {
	s.mu.Lock()
	documentID := s.documentID
	s.cursors[s.userID] = position
	s.mu.Unlock()

	return s.sender.Send(models.Message{
		Type:       models.MsgCursorPosition,
		DocumentID: documentID,
		UserID:     s.userID,
		Position:   position,
	})
}

// HandleMessage folds one incoming envelope into local state.
func (s *Store) HandleMessage(msg models.Message) error {
	switch msg.Type {
	case models.MsgDocumentOperation:
		if msg.Operation == nil {
			return nil
		}
		return s.applyRemote(*msg.Operation)
	case models.MsgCursorPosition:
		s.mu.Lock()
		s.cursors[msg.UserID] = msg.Position
		s.mu.Unlock()
	case models.MsgActiveUsers, models.MsgUserJoined:
		s.mu.Lock()
		s.members = msg.Users
		s.mu.Unlock()
	case models.MsgUserLeft:
		s.mu.Lock()
		s.members = msg.Users
		// A departed user's cursor is stale by definition.
		delete(s.cursors, msg.UserID)
		s.mu.Unlock()
	}
	return nil
}

// applyRemote applies a relayed operation to the local buffer. Echoes of this
// client's own operations are discarded: they were already applied
// optimistically on submit.
func (s *Store) applyRemote(op models.Operation) error {
	if op.UserID == s.userID {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.ReconcileInFlight {
		for _, own := range s.inflight {
			op = ot.Transform(op, own)
		}
	}

	next, err := ot.Apply(s.buffer, op)
	if err != nil {
		return fmt.Errorf("remote apply: %w", err)
	}
	s.buffer = next

	s.applied = append(s.applied, op)
	if len(s.applied) > s.opts.HistoryLimit {
		s.applied = s.applied[1:]
	}
	return nil
}

// Buffer returns the current local replica content.
func (s *Store) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Members returns the last known active-user list.
func (s *Store) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.members))
	copy(out, s.members)
	return out
}

// Cursors returns a copy of the last known cursor offsets by user.
func (s *Store) Cursors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.cursors))
	for userID, pos := range s.cursors {
		out[userID] = pos
	}
	return out
}
