// Package spectate streams formation lifecycle events to websocket
// subscribers, so a browser overlay (or just websocat) can watch a running
// arena without touching the simulation loop.
package spectate

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/arena"
)

// ProtocolVersion is bumped whenever the wire shape of events changes.
const ProtocolVersion = 1

// SubscribeMsg is the handshake a client must send first.
type SubscribeMsg struct {
	Type            string `json:"type"` // must be "SUBSCRIBE"
	ProtocolVersion int    `json:"protocol_version"`
}

// wireEvent is the envelope every broadcast uses.
type wireEvent struct {
	Kind  string `json:"kind"` // "formed" or "broken"
	Event any    `json:"event"`
}

// Server broadcasts events to all connected subscribers. It implements
// arena.EventSink; the simulation thread only ever enqueues into per-client
// buffered channels and never blocks on a slow client; those get dropped.
type Server struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	nextID  uint64
}

type client struct {
	id  uint64
	out chan []byte
}

// NewServer creates a spectate server.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the websocket endpoint.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: the first frame must be a SUBSCRIBE.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != ProtocolVersion {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
				time.Now().Add(time.Second))
			return
		}

		c := &client{out: make(chan []byte, 256)}
		s.mu.Lock()
		s.nextID++
		c.id = s.nextID
		s.clients[c] = struct{}{}
		s.mu.Unlock()
		s.log.Info("spectator joined", "id", c.id, "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			s.log.Info("spectator left", "id", c.id)
		}()

		// Discard further client frames; detect disconnect. The out channel is
		// never closed (broadcast may race a departing client), so shutdown
		// is signalled separately.
		done := make(chan struct{})
		go func() {
			_ = conn.SetReadDeadline(time.Time{})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					close(done)
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case b := <-c.out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

// broadcast fans a payload out to every subscriber, dropping frames for any
// client whose buffer is full.
func (s *Server) broadcast(v wireEvent) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
		}
	}
}

// SubscriberCount returns how many spectators are connected.
func (s *Server) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// FormationFormed implements arena.EventSink.
func (s *Server) FormationFormed(ev arena.FormationFormedEvent) {
	s.broadcast(wireEvent{Kind: "formed", Event: ev})
}

// FormationBroken implements arena.EventSink.
func (s *Server) FormationBroken(ev arena.FormationBrokenEvent) {
	s.broadcast(wireEvent{Kind: "broken", Event: ev})
}
