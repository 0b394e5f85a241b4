// Package collab implements the collaboration session gateway: it bridges
// per-connection WebSocket events into presence registry mutations and
// fans operation/cursor messages out to the other participants of the same
// document. The gateway persists nothing; it is a best-effort relay.
package collab

import (
	"context"
	"log"
	"time"

	"docsync/internal/models"
	"docsync/internal/presence"
)

// Config controls gateway behavior.
type Config struct {
	// LeakCompatible skips presence cleanup on ungraceful disconnect,
	// reproducing the behavior of deployments that rely on clients always
	// sending an explicit leave. The corrected default tracks the
	// connection→document association and auto-leaves on disconnect.
	LeakCompatible bool

	// SendBuffer is the per-connection outbound queue size. A connection
	// whose queue overflows is dropped.
	SendBuffer int

	// IdleTimeout drops connections that have not read or ponged within the
	// window. Zero disables the sweep.
	IdleTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	return c
}

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdOperation
	cmdCursor
	cmdDisconnect
)

// command is one unit of work for the gateway loop. Every transport event
// maps to exactly one command; the loop is the only goroutine that touches
// room state, so no locking is needed beyond the command channel itself.
type command struct {
	kind commandKind
	conn *Conn
	msg  models.Message
}

// Gateway owns the per-process connection rooms and mutates the injected
// presence registry on join/leave. All state transitions run on a single
// event loop; handlers run to completion before the next command is taken.
type Gateway struct {
	registry presence.Registry
	cfg      Config

	commands chan command
	rooms    map[string]map[*Conn]struct{}
	done     chan struct{}
}

func NewGateway(registry presence.Registry, cfg Config) *Gateway {
	return &Gateway{
		registry: registry,
		cfg:      cfg.withDefaults(),
		commands: make(chan command, 256),
		rooms:    make(map[string]map[*Conn]struct{}),
		done:     make(chan struct{}),
	}
}

// Run consumes commands until ctx is cancelled. It must be running before
// connections are accepted.
func (g *Gateway) Run(ctx context.Context) {
	log.Println("collab: session gateway started")

	var sweep <-chan time.Time
	if g.cfg.IdleTimeout > 0 {
		ticker := time.NewTicker(g.cfg.IdleTimeout / 2)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			g.shutdown()
			return
		case <-sweep:
			g.dropIdle()
		case cmd := <-g.commands:
			g.process(ctx, cmd)
		}
	}
}

func (g *Gateway) enqueue(cmd command) {
	select {
	case g.commands <- cmd:
	case <-g.done:
	}
}

func (g *Gateway) process(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdJoin:
		g.handleJoin(ctx, cmd.conn, cmd.msg)
	case cmdLeave:
		g.handleLeave(ctx, cmd.conn)
	case cmdOperation:
		g.handleOperation(cmd.conn, cmd.msg)
	case cmdCursor:
		g.handleCursor(cmd.conn, cmd.msg)
	case cmdDisconnect:
		g.handleDisconnect(ctx, cmd.conn)
	}
}

// handleJoin registers membership, replies to the joiner with the full member
// list and broadcasts the updated list to everyone else in the room.
func (g *Gateway) handleJoin(ctx context.Context, c *Conn, msg models.Message) {
	if c.detached || msg.DocumentID == "" || msg.UserID == "" {
		return
	}

	// A connection participates in at most one room. Joining a second
	// document implies leaving the first.
	if c.joined() && c.documentID != msg.DocumentID {
		g.handleLeave(ctx, c)
	}

	c.documentID = msg.DocumentID
	c.userID = msg.UserID
	c.session = models.NewSession(msg.DocumentID, msg.UserID)

	room := g.rooms[c.documentID]
	if room == nil {
		room = make(map[*Conn]struct{})
		g.rooms[c.documentID] = room
	}
	room[c] = struct{}{}

	members, err := g.registry.Join(ctx, c.documentID, c.userID)
	if err != nil {
		log.Printf("collab: presence join failed for %s: %v", c.documentID, err)
	}

	c.trySend(models.Message{Type: models.MsgActiveUsers, Users: members})
	g.broadcast(c.documentID, models.Message{
		Type:   models.MsgUserJoined,
		UserID: c.userID,
		Users:  members,
	}, c)

	log.Printf("collab: user %s joined document %s (%d present)", c.userID, c.documentID, len(members))
}

// handleLeave removes membership and broadcasts the updated member list to
// the remaining participants. Emptying the set deletes the registry entry as
// a consequence of the registry contract.
func (g *Gateway) handleLeave(ctx context.Context, c *Conn) {
	if !c.joined() {
		return
	}

	documentID, userID := c.documentID, c.userID
	g.detach(c)

	members, err := g.registry.Leave(ctx, documentID, userID)
	if err != nil {
		log.Printf("collab: presence leave failed for %s: %v", documentID, err)
	}

	g.broadcast(documentID, models.Message{
		Type:   models.MsgUserLeft,
		UserID: userID,
		Users:  members,
	}, nil)

	log.Printf("collab: user %s left document %s (%d remaining)", userID, documentID, len(members))
}

// handleOperation relays the operation unmodified to every other connection
// in the origin document's room. No acknowledgement, retry or deduplication;
// a peer that cannot keep up is dropped.
func (g *Gateway) handleOperation(c *Conn, msg models.Message) {
	if msg.Operation == nil || msg.Operation.DocumentID == "" {
		return
	}
	g.broadcast(msg.Operation.DocumentID, models.Message{
		Type:      models.MsgDocumentOperation,
		Operation: msg.Operation,
	}, c)
}

// handleCursor relays {userId, position} to the other members of the
// document.
func (g *Gateway) handleCursor(c *Conn, msg models.Message) {
	if msg.DocumentID == "" {
		return
	}
	g.broadcast(msg.DocumentID, models.Message{
		Type:     models.MsgCursorPosition,
		UserID:   msg.UserID,
		Position: msg.Position,
	}, c)
}

// handleDisconnect tears down connection bookkeeping. In the corrected mode
// it also performs the equivalent of an explicit leave so presence does not
// leak; in leak-compatible mode the registry entry is left behind.
func (g *Gateway) handleDisconnect(ctx context.Context, c *Conn) {
	if g.cfg.LeakCompatible {
		g.detach(c)
	} else {
		g.handleLeave(ctx, c)
	}
	g.closeSend(c)
}

// detach removes the connection from its room and clears its document
// association. It does not touch the presence registry and leaves the send
// queue open so the connection can join another document.
func (g *Gateway) detach(c *Conn) {
	if room, ok := g.rooms[c.documentID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(g.rooms, c.documentID)
		}
	}
	c.documentID = ""
	c.userID = ""
	c.session = nil
}

func (g *Gateway) closeSend(c *Conn) {
	if !c.detached {
		c.detached = true
		close(c.send)
	}
}

// broadcast queues msg on every connection in the document's room except
// skip. A full send queue means the peer is slow or gone; the connection is
// dropped rather than blocking the loop.
func (g *Gateway) broadcast(documentID string, msg models.Message, skip *Conn) {
	room := g.rooms[documentID]
	var stalled []*Conn
	for conn := range room {
		if conn == skip {
			continue
		}
		if !conn.trySend(msg) {
			stalled = append(stalled, conn)
		}
	}
	for _, conn := range stalled {
		log.Printf("collab: send queue full, dropping connection for user %s", conn.userID)
		g.handleDisconnect(context.Background(), conn)
		conn.close()
	}
}

// dropIdle disconnects sessions that have been silent past the idle window.
func (g *Gateway) dropIdle() {
	cutoff := time.Now().Add(-g.cfg.IdleTimeout)
	for _, room := range g.rooms {
		for conn := range room {
			if conn.lastActive().Before(cutoff) {
				log.Printf("collab: dropping idle connection for user %s", conn.userID)
				g.handleDisconnect(context.Background(), conn)
				conn.close()
			}
		}
	}
}

func (g *Gateway) shutdown() {
	close(g.done)
	for documentID, room := range g.rooms {
		for conn := range room {
			g.closeSend(conn)
			conn.close()
		}
		delete(g.rooms, documentID)
	}
	log.Println("collab: session gateway stopped")
}
