package collab

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"docsync/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Conn is one WebSocket connection attached to the gateway. The fields below
// the ws handle are owned by the gateway loop: documentID, userID and session
// are only read or written while processing commands, never from the pumps.
type Conn struct {
	gw *Gateway
	ws *websocket.Conn

	send chan models.Message

	// Gateway-loop state.
	documentID string
	userID     string
	session    *models.Session
	detached   bool

	active    atomic.Int64
	closeOnce sync.Once
}

func newConn(gw *Gateway, ws *websocket.Conn) *Conn {
	c := &Conn{
		gw:   gw,
		ws:   ws,
		send: make(chan models.Message, gw.cfg.SendBuffer),
	}
	c.touch()
	return c
}

func (c *Conn) joined() bool {
	return c.documentID != ""
}

func (c *Conn) touch() {
	c.active.Store(time.Now().UnixNano())
}

func (c *Conn) lastActive() time.Time {
	return time.Unix(0, c.active.Load())
}

// trySend queues msg without blocking the gateway loop. It reports false when
// the connection is gone or its queue is full.
func (c *Conn) trySend(msg models.Message) bool {
	if c.detached {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// readPump reads envelopes off the socket and turns them into gateway
// commands. It exits on the first read error; the deferred disconnect command
// is what keeps presence from leaking in the corrected cleanup mode.
func (c *Conn) readPump() {
	defer func() {
		c.gw.enqueue(command{kind: cmdDisconnect, conn: c})
		c.close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		var msg models.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("collab: read error: %v", err)
			}
			return
		}
		c.touch()

		switch msg.Type {
		case models.MsgJoinDocument:
			c.gw.enqueue(command{kind: cmdJoin, conn: c, msg: msg})
		case models.MsgLeaveDocument:
			c.gw.enqueue(command{kind: cmdLeave, conn: c, msg: msg})
		case models.MsgDocumentOperation:
			c.gw.enqueue(command{kind: cmdOperation, conn: c, msg: msg})
		case models.MsgCursorPosition:
			c.gw.enqueue(command{kind: cmdCursor, conn: c, msg: msg})
		default:
			// Unknown envelopes are tolerated, not fatal.
			log.Printf("collab: ignoring message type %q", msg.Type)
		}
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings. A separate writer goroutine prevents a slow reader from
// blocking the gateway loop.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
