package spectate

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/arena"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitSubscribers(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.SubscriberCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count = %d, want %d", s.SubscriberCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeAndReceiveBroadcast(t *testing.T) {
	s := NewServer(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, wsURL(srv))
	sub, _ := json.Marshal(SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: ProtocolVersion})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitSubscribers(t, s, 1)

	fid := uuid.New()
	s.FormationFormed(arena.FormationFormedEvent{
		FormationID: fid, PatternID: "spiral", Tick: 42, MemberIDs: []int{1, 2},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var frame struct {
		Kind  string                     `json:"kind"`
		Event arena.FormationFormedEvent `json:"event"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Kind != "formed" || frame.Event.PatternID != "spiral" || frame.Event.FormationID != fid {
		t.Fatalf("frame = %+v", frame)
	}
}

func TestHandshake_RejectsWrongFirstFrame(t *testing.T) {
	s := NewServer(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, wsURL(srv))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"HELLO"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("server must close the connection on a bad handshake")
	}
	if s.SubscriberCount() != 0 {
		t.Fatal("rejected client must not be registered")
	}
}

func TestHandshake_RejectsWrongProtocolVersion(t *testing.T) {
	s := NewServer(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, wsURL(srv))
	sub, _ := json.Marshal(SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: ProtocolVersion + 1})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("server must reject a mismatched protocol version")
	}
}

func TestDisconnect_Unregisters(t *testing.T) {
	s := NewServer(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, wsURL(srv))
	sub, _ := json.Marshal(SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: ProtocolVersion})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitSubscribers(t, s, 1)

	_ = conn.Close()
	waitSubscribers(t, s, 0)
}
