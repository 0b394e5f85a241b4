package client

import (
	"sync"
	"testing"
	"time"

	"docsync/internal/models"

	"github.com/go-playground/assert/v2"
)

// recorder captures outbound envelopes in order.
type recorder struct {
	mu   sync.Mutex
	sent []models.Message
}

func (r *recorder) Send(msg models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recorder) last(t *testing.T) models.Message {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		t.Fatal("no message sent")
	}
	return r.sent[len(r.sent)-1]
}

func TestJoinSeedsBufferAndSendsIntent(t *testing.T) {
	rec := &recorder{}
	s := NewStore("alice", rec, Options{})

	err := s.Join("doc-1", "hello")
	assert.Equal(t, err, nil)
	assert.Equal(t, s.Buffer(), "hello")

	msg := rec.last(t)
	assert.Equal(t, msg.Type, models.MsgJoinDocument)
	assert.Equal(t, msg.DocumentID, "doc-1")
	assert.Equal(t, msg.UserID, "alice")
}

func TestLocalEditAppliesOptimisticallyAndTransmits(t *testing.T) {
	rec := &recorder{}
	s := NewStore("alice", rec, Options{})
	s.Join("doc-1", "hello")

	op, err := s.Insert(5, "!")
	assert.Equal(t, err, nil)
	assert.Equal(t, s.Buffer(), "hello!")

	msg := rec.last(t)
	assert.Equal(t, msg.Type, models.MsgDocumentOperation)
	assert.Equal(t, *msg.Operation, op)

	_, err = s.Delete(0, 5)
	assert.Equal(t, err, nil)
	assert.Equal(t, s.Buffer(), "!")
}

func TestRemoteOperationApplied(t *testing.T) {
	rec := &recorder{}
	s := NewStore("bob", rec, Options{})
	s.Join("doc-1", "hello")

	op := models.Operation{
		Kind:       models.OpInsert,
		Position:   5,
		Text:       " world",
		UserID:     "alice",
		DocumentID: "doc-1",
		IssuedAt:   1,
	}
	err := s.HandleMessage(models.Message{Type: models.MsgDocumentOperation, Operation: &op})
	assert.Equal(t, err, nil)
	assert.Equal(t, s.Buffer(), "hello world")
}

func TestOwnEchoDiscarded(t *testing.T) {
	rec := &recorder{}
	s := NewStore("alice", rec, Options{})
	s.Join("doc-1", "")

	op, _ := s.Insert(0, "X")
	assert.Equal(t, s.Buffer(), "X")

	// The gateway never echoes, but a store must tolerate one anyway.
	s.HandleMessage(models.Message{Type: models.MsgDocumentOperation, Operation: &op})
	assert.Equal(t, s.Buffer(), "X")
}

// Two users insert at position 0; the later local edit is transformed against
// the already-applied remote one, so both replicas settle on the same order.
func TestConcurrentInsertsConverge(t *testing.T) {
	aliceRec, bobRec := &recorder{}, &recorder{}
	alice := NewStore("alice", aliceRec, Options{})
	bob := NewStore("bob", bobRec, Options{})
	alice.Join("doc-1", "")
	bob.Join("doc-1", "")

	opA, _ := alice.Insert(0, "X")
	assert.Equal(t, alice.Buffer(), "X")

	// Bob receives Alice's operation, then types at position 0 himself.
	bob.HandleMessage(models.Message{Type: models.MsgDocumentOperation, Operation: &opA})
	assert.Equal(t, bob.Buffer(), "X")

	opB, _ := bob.Insert(0, "Y")
	assert.Equal(t, opB.Position, 1)
	assert.Equal(t, bob.Buffer(), "XY")

	// Alice receives Bob's already-transformed operation.
	alice.HandleMessage(models.Message{Type: models.MsgDocumentOperation, Operation: &opB})
	assert.Equal(t, alice.Buffer(), "XY")
}

func TestReconcileInFlightOption(t *testing.T) {
	remote := models.Operation{
		Kind:       models.OpInsert,
		Position:   0,
		Text:       "X",
		UserID:     "alice",
		DocumentID: "doc-1",
		IssuedAt:   time.Now().Add(time.Hour).UnixNano(),
	}

	// Stock behavior: the remote operation is applied as-is, jumping ahead
	// of the local unacknowledged insert.
	plain := NewStore("bob", &recorder{}, Options{})
	plain.Join("doc-1", "")
	plain.Insert(0, "Y")
	plain.HandleMessage(models.Message{Type: models.MsgDocumentOperation, Operation: &remote})
	assert.Equal(t, plain.Buffer(), "XY")

	// Reconciling store shifts the remote operation past its own in-flight
	// insert instead.
	reconciling := NewStore("bob", &recorder{}, Options{ReconcileInFlight: true})
	reconciling.Join("doc-1", "")
	reconciling.Insert(0, "Y")
	reconciling.HandleMessage(models.Message{Type: models.MsgDocumentOperation, Operation: &remote})
	assert.Equal(t, reconciling.Buffer(), "YX")
}

func TestMembershipAndCursorState(t *testing.T) {
	rec := &recorder{}
	s := NewStore("alice", rec, Options{})
	s.Join("doc-1", "")

	s.HandleMessage(models.Message{Type: models.MsgActiveUsers, Users: []string{"alice", "bob"}})
	assert.Equal(t, s.Members(), []string{"alice", "bob"})

	s.HandleMessage(models.Message{Type: models.MsgCursorPosition, UserID: "bob", Position: 7})
	assert.Equal(t, s.Cursors()["bob"], 7)

	// A leaving user takes their cursor entry with them.
	s.HandleMessage(models.Message{Type: models.MsgUserLeft, UserID: "bob", Users: []string{"alice"}})
	assert.Equal(t, s.Members(), []string{"alice"})
	if _, ok := s.Cursors()["bob"]; ok {
		t.Fatal("cursor entry for departed user should be removed")
	}
}

func TestLeaveClearsState(t *testing.T) {
	rec := &recorder{}
	s := NewStore("alice", rec, Options{})
	s.Join("doc-1", "hello")
	s.HandleMessage(models.Message{Type: models.MsgActiveUsers, Users: []string{"alice"}})

	err := s.Leave()
	assert.Equal(t, err, nil)
	assert.Equal(t, s.Buffer(), "")
	assert.Equal(t, len(s.Members()), 0)
	assert.Equal(t, len(s.Cursors()), 0)

	msg := rec.last(t)
	assert.Equal(t, msg.Type, models.MsgLeaveDocument)
	assert.Equal(t, msg.DocumentID, "doc-1")
}

func TestMoveCursorAnnounces(t *testing.T) {
	rec := &recorder{}
	s := NewStore("alice", rec, Options{})
	s.Join("doc-1", "hello")

	err := s.MoveCursor(3)
	assert.Equal(t, err, nil)

	msg := rec.last(t)
	assert.Equal(t, msg.Type, models.MsgCursorPosition)
	assert.Equal(t, msg.DocumentID, "doc-1")
	assert.Equal(t, msg.UserID, "alice")
	assert.Equal(t, msg.Position, 3)
}
