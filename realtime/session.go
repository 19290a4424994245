package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lifeline-response/lifeline-api/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound messages buffered per session before it is considered stuck.
	sendBuffer = 32
)

type role int

const (
	roleUnclassified role = iota
	roleUser
	roleRescuer
)

// Session is one live websocket connection. Role fields are guarded by the
// hub's mutex; the send channel has its own small lock so enqueue and
// shutdown cannot race.
type Session struct {
	hub  *Hub
	conn *websocket.Conn

	// guarded by hub.mu
	role        role
	trackedCode string
	rescuer     *models.Claimant

	connectedAt time.Time

	sendMu sync.Mutex
	send   chan models.EventMessage
	closed bool
}

// enqueue hands a message to the write pump without blocking. It reports
// false when the session is closed or its buffer is full, in which case the
// caller evicts the session.
func (s *Session) enqueue(msg models.EventMessage) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once, which lets the write pump
// drain and close the socket.
func (s *Session) shutdown() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// readPump consumes client messages until the connection dies, then drops
// the session from the hub. Pongs refresh the read deadline so dead sockets
// are noticed even when the client never sends events.
func (s *Session) readPump(ctx context.Context) {
	defer s.hub.drop(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.S().Debugw("websocket read failed", "error", err)
			}
			return
		}
		var evt models.InboundEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			zap.S().Debugw("unreadable websocket message", "error", err)
			continue
		}
		s.hub.handleEvent(ctx, s, evt)
	}
}

// writePump is the only goroutine allowed to write to the socket. It exits
// when the send channel is closed or a write fails, closing the socket
// either way.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func unmarshalPayload(evt models.InboundEvent, dst interface{}) error {
	if err := json.Unmarshal(evt.Data, dst); err != nil {
		zap.S().Debugw("bad websocket payload", "event", evt.Event, "error", err)
		return err
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
