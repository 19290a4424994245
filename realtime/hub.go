package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lifeline-response/lifeline-api/models"
)

// Source is what the hub needs from the dispatch engine: the full sanitized
// report list for freshly identified rescuers, and a sink for rescuer
// location fixes arriving over the socket.
type Source interface {
	SyncReports(ctx context.Context) ([]models.SanitizedReport, error)
	SaveRescuerLocation(ctx context.Context, id string, lat, lng float64) error
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust CORS as needed, e.g., check r.Header.Get("Origin")
	},
}

// Hub tracks live websocket sessions and fans report and rescuer events out
// to them. Delivery is fire and forget: a session whose socket errors or
// whose send buffer fills is evicted rather than waited on, so a slow client
// can never stall a mutation or another client's delivery.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}

	source Source
}

// New returns an empty hub. Wire the engine in with SetSource before the
// server starts accepting connections.
func New() *Hub {
	return &Hub{sessions: make(map[*Session]struct{})}
}

// SetSource wires the engine in after construction. The hub and the engine
// reference each other, so one of the two links has to be set late; this is
// the late one.
func (h *Hub) SetSource(src Source) {
	h.source = src
}

// ServeWS upgrades the request and runs the session's read loop on the
// handler goroutine until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().With(err).Error("failed to upgrade websocket")
		return
	}

	s := &Session{
		hub:         h,
		conn:        conn,
		send:        make(chan models.EventMessage, sendBuffer),
		connectedAt: time.Now().UTC(),
	}
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	zap.S().Debugw("websocket connected", "remote", conn.RemoteAddr().String())

	go s.writePump()
	s.readPump(r.Context())
}

// BroadcastNewReport pushes a report:new event to every rescuer session.
func (h *Hub) BroadcastNewReport(report models.SanitizedReport) {
	h.broadcast(models.EventMessage{Event: models.EventReportNew, Data: report}, func(s *Session) bool {
		return s.role == roleRescuer
	})
}

// BroadcastReportUpdate pushes a report:update event to every rescuer
// session and to every user session tracking that report's short code.
func (h *Hub) BroadcastReportUpdate(report models.SanitizedReport) {
	h.broadcast(models.EventMessage{Event: models.EventReportUpdate, Data: report}, func(s *Session) bool {
		return s.role == roleRescuer || (s.role == roleUser && s.trackedCode == report.ShortCode)
	})
}

// Counts reports how many sessions are connected and how many of those have
// identified as rescuers.
func (h *Hub) Counts() (total, rescuers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total = len(h.sessions)
	for s := range h.sessions {
		if s.role == roleRescuer {
			rescuers++
		}
	}
	return total, rescuers
}

// Shutdown evicts every session. In-flight write pumps drain and close their
// sockets on their own.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[*Session]struct{})
	h.mu.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}
}

// broadcast enqueues msg on every session matching the predicate. Sessions
// that cannot accept the message are evicted after the sweep.
func (h *Hub) broadcast(msg models.EventMessage, match func(*Session) bool) {
	var dead []*Session

	h.mu.RLock()
	for s := range h.sessions {
		if !match(s) {
			continue
		}
		if !s.enqueue(msg) {
			dead = append(dead, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range dead {
		zap.S().Debugw("evicting unresponsive websocket session",
			"remote", s.conn.RemoteAddr().String(),
			"connectedFor", time.Since(s.connectedAt).Round(time.Second),
		)
		h.drop(s)
	}
}

// drop removes the session from the registry and shuts its pipeline down.
// Safe to call more than once per session.
func (h *Hub) drop(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	s.shutdown()
}

// handleEvent dispatches one decoded client message. Unknown events and bad
// payloads are logged and skipped; they never cost the client its
// connection.
func (h *Hub) handleEvent(ctx context.Context, s *Session, evt models.InboundEvent) {
	switch evt.Event {
	case models.EventIdentifyRescuer:
		var payload models.IdentifyRescuer
		if err := unmarshalPayload(evt, &payload); err != nil {
			return
		}
		h.identifyRescuer(ctx, s, payload)

	case models.EventTrackReport:
		var payload models.TrackReport
		if err := unmarshalPayload(evt, &payload); err != nil {
			return
		}
		h.trackReport(s, payload)

	case models.EventUpdateRescuerLocation:
		var payload models.RescuerLocationUpdate
		if err := unmarshalPayload(evt, &payload); err != nil {
			return
		}
		h.updateRescuerLocation(ctx, s, payload)

	default:
		zap.S().Debugw("unknown websocket event", "event", evt.Event)
	}
}

// identifyRescuer marks the session as a rescuer and replies with the full
// board so the client starts from current state.
func (h *Hub) identifyRescuer(ctx context.Context, s *Session, payload models.IdentifyRescuer) {
	h.mu.Lock()
	s.role = roleRescuer
	s.trackedCode = ""
	s.rescuer = &models.Claimant{ID: payload.ID, Name: payload.Name}
	h.mu.Unlock()
	zap.S().Infow("session identified as rescuer", "rescuer", payload.ID, "name", payload.Name)

	if h.source == nil {
		return
	}
	reports, err := h.source.SyncReports(ctx)
	if err != nil {
		zap.S().With(err).Error("failed to load reports for sync")
		return
	}
	if !s.enqueue(models.EventMessage{Event: models.EventReportsSync, Data: reports}) {
		h.drop(s)
	}
}

// trackReport binds a user session to one report's short code. Codes are
// matched case-insensitively everywhere, so the stored form is uppercased.
func (h *Hub) trackReport(s *Session, payload models.TrackReport) {
	code := normalizeCode(payload.ShortCode)
	if code == "" {
		return
	}
	h.mu.Lock()
	s.role = roleUser
	s.rescuer = nil
	s.trackedCode = code
	h.mu.Unlock()
	zap.S().Debugw("session tracking report", "shortCode", code)
}

// updateRescuerLocation persists the fix (which doubles as a heartbeat) and
// fans it out to the other rescuer sessions. Persistence is best effort: an
// unregistered rescuer still shows up on colleagues' maps.
func (h *Hub) updateRescuerLocation(ctx context.Context, s *Session, payload models.RescuerLocationUpdate) {
	loc := models.Location{Lat: payload.Lat, Lng: payload.Lng}
	if payload.RescuerID == "" || !loc.Valid() {
		zap.S().Debugw("ignoring rescuer location with bad coordinates",
			"rescuer", payload.RescuerID, "lat", payload.Lat, "lng", payload.Lng)
		return
	}

	if h.source != nil {
		if err := h.source.SaveRescuerLocation(ctx, payload.RescuerID, payload.Lat, payload.Lng); err != nil {
			zap.S().Debugw("rescuer location not persisted", "rescuer", payload.RescuerID, "error", err)
		}
	}

	event := models.RescuerLocationEvent{
		RescuerID: payload.RescuerID,
		Lat:       payload.Lat,
		Lng:       payload.Lng,
		Timestamp: time.Now().UTC(),
	}
	h.mu.RLock()
	if s.rescuer != nil {
		event.Name = s.rescuer.Name
	}
	h.mu.RUnlock()

	h.broadcast(models.EventMessage{Event: models.EventRescuerLocation, Data: event}, func(other *Session) bool {
		return other.role == roleRescuer && other != s
	})
}
