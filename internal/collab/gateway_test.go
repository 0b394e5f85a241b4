package collab

import (
	"context"
	"testing"

	"docsync/internal/models"
	"docsync/internal/presence"

	"github.com/go-playground/assert/v2"
)

// Tests drive the command processor directly: commands are handled on the
// caller's goroutine exactly as the Run loop would, which keeps everything
// deterministic without sockets.

func newTestGateway(cfg Config) *Gateway {
	return NewGateway(presence.NewMemoryRegistry(), cfg)
}

func joinConn(t *testing.T, g *Gateway, documentID, userID string) *Conn {
	t.Helper()
	c := newConn(g, nil)
	g.process(context.Background(), command{kind: cmdJoin, conn: c, msg: models.Message{
		Type:       models.MsgJoinDocument,
		DocumentID: documentID,
		UserID:     userID,
	}})
	return c
}

func drain(c *Conn) []models.Message {
	var out []models.Message
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestJoinRepliesAndBroadcasts(t *testing.T) {
	g := newTestGateway(Config{})

	alice := joinConn(t, g, "doc-1", "alice")
	got := drain(alice)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Type, models.MsgActiveUsers)
	assert.Equal(t, got[0].Users, []string{"alice"})

	bob := joinConn(t, g, "doc-1", "bob")

	// Bob gets the full member list.
	got = drain(bob)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Type, models.MsgActiveUsers)
	assert.Equal(t, got[0].Users, []string{"alice", "bob"})

	// Alice is told about Bob, with both listed once.
	got = drain(alice)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Type, models.MsgUserJoined)
	assert.Equal(t, got[0].UserID, "bob")
	assert.Equal(t, got[0].Users, []string{"alice", "bob"})
}

func TestRepeatedJoinProducesNoDuplicates(t *testing.T) {
	g := newTestGateway(Config{})
	ctx := context.Background()

	alice := joinConn(t, g, "doc-1", "alice")
	bob := joinConn(t, g, "doc-1", "bob")
	drain(alice)
	drain(bob)

	for i := 0; i < 3; i++ {
		g.process(ctx, command{kind: cmdJoin, conn: alice, msg: models.Message{
			Type:       models.MsgJoinDocument,
			DocumentID: "doc-1",
			UserID:     "alice",
		}})
	}

	for _, msg := range drain(bob) {
		assert.Equal(t, msg.Type, models.MsgUserJoined)
		assert.Equal(t, msg.Users, []string{"alice", "bob"})
	}

	members, _ := g.registry.Members(ctx, "doc-1")
	assert.Equal(t, members, []string{"alice", "bob"})
}

func TestLeaveBroadcastsAndClearsRegistry(t *testing.T) {
	g := newTestGateway(Config{})
	ctx := context.Background()

	alice := joinConn(t, g, "doc-1", "alice")
	bob := joinConn(t, g, "doc-1", "bob")
	drain(alice)
	drain(bob)

	g.process(ctx, command{kind: cmdLeave, conn: alice})

	got := drain(bob)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Type, models.MsgUserLeft)
	assert.Equal(t, got[0].UserID, "alice")
	assert.Equal(t, got[0].Users, []string{"bob"})

	// Join then leave by the last member removes the document key entirely.
	g.process(ctx, command{kind: cmdLeave, conn: bob})
	members, _ := g.registry.Members(ctx, "doc-1")
	assert.Equal(t, len(members), 0)
}

func TestOperationRelayedToOthersOnly(t *testing.T) {
	g := newTestGateway(Config{})

	alice := joinConn(t, g, "doc-1", "alice")
	bob := joinConn(t, g, "doc-1", "bob")
	other := joinConn(t, g, "doc-2", "carol")
	drain(alice)
	drain(bob)
	drain(other)

	op := models.NewInsert("doc-1", "alice", 0, "hi")
	g.process(context.Background(), command{kind: cmdOperation, conn: alice, msg: models.Message{
		Type:      models.MsgDocumentOperation,
		Operation: &op,
	}})

	// Relayed verbatim to Bob.
	got := drain(bob)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Type, models.MsgDocumentOperation)
	assert.Equal(t, *got[0].Operation, op)

	// Never echoed to the sender, never leaked across documents.
	assert.Equal(t, len(drain(alice)), 0)
	assert.Equal(t, len(drain(other)), 0)
}

func TestCursorRelay(t *testing.T) {
	g := newTestGateway(Config{})

	alice := joinConn(t, g, "doc-1", "alice")
	bob := joinConn(t, g, "doc-1", "bob")
	drain(alice)
	drain(bob)

	g.process(context.Background(), command{kind: cmdCursor, conn: alice, msg: models.Message{
		Type:       models.MsgCursorPosition,
		DocumentID: "doc-1",
		UserID:     "alice",
		Position:   12,
	}})

	got := drain(bob)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Type, models.MsgCursorPosition)
	assert.Equal(t, got[0].UserID, "alice")
	assert.Equal(t, got[0].Position, 12)
	assert.Equal(t, len(drain(alice)), 0)
}

func TestDisconnectCorrectedModeCleansPresence(t *testing.T) {
	g := newTestGateway(Config{})
	ctx := context.Background()

	alice := joinConn(t, g, "doc-1", "alice")
	bob := joinConn(t, g, "doc-1", "bob")
	drain(alice)
	drain(bob)

	g.process(ctx, command{kind: cmdDisconnect, conn: alice})

	members, _ := g.registry.Members(ctx, "doc-1")
	assert.Equal(t, members, []string{"bob"})

	got := drain(bob)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Type, models.MsgUserLeft)
	assert.Equal(t, got[0].UserID, "alice")
}

func TestDisconnectLeakCompatibleKeepsPresence(t *testing.T) {
	g := newTestGateway(Config{LeakCompatible: true})
	ctx := context.Background()

	alice := joinConn(t, g, "doc-1", "alice")
	bob := joinConn(t, g, "doc-1", "bob")
	drain(alice)
	drain(bob)

	g.process(ctx, command{kind: cmdDisconnect, conn: alice})

	// Parity mode: the registry entry is left behind on ungraceful
	// disconnect, but the dead connection no longer receives relays.
	members, _ := g.registry.Members(ctx, "doc-1")
	assert.Equal(t, members, []string{"alice", "bob"})
	assert.Equal(t, len(drain(bob)), 0)

	op := models.NewInsert("doc-1", "bob", 0, "x")
	g.process(ctx, command{kind: cmdOperation, conn: bob, msg: models.Message{
		Type:      models.MsgDocumentOperation,
		Operation: &op,
	}})
	assert.Equal(t, len(drain(alice)), 0)
}

func TestJoiningSecondDocumentLeavesFirst(t *testing.T) {
	g := newTestGateway(Config{})
	ctx := context.Background()

	alice := joinConn(t, g, "doc-1", "alice")
	bob := joinConn(t, g, "doc-1", "bob")
	drain(alice)
	drain(bob)

	g.process(ctx, command{kind: cmdJoin, conn: alice, msg: models.Message{
		Type:       models.MsgJoinDocument,
		DocumentID: "doc-2",
		UserID:     "alice",
	}})

	got := drain(bob)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Type, models.MsgUserLeft)

	members, _ := g.registry.Members(ctx, "doc-1")
	assert.Equal(t, members, []string{"bob"})
	members, _ = g.registry.Members(ctx, "doc-2")
	assert.Equal(t, members, []string{"alice"})
}
