package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := h.ClientCount(); got != want {
		t.Fatalf("expected %d clients, got %d", want, got)
	}
}

func TestHubBroadcastDeliversEvent(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	defer conn.Close()
	waitForClients(t, h, 1)

	h.Broadcast(Event{Type: "ticket", Data: map[string]string{"id": "TKT-WS0001"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.Type != "ticket" {
		t.Errorf("expected ticket event, got %q", evt.Type)
	}
	if evt.At.IsZero() {
		t.Error("expected broadcast to stamp the event time")
	}
}

// A disconnect is noticed by the reader goroutine and the write loop;
// both funnel into remove, and the later one must find the client
// already gone. Broadcasting afterwards must not touch the dead client.
func TestHubClientDisconnectUnregistersOnce(t *testing.T) {
	h := NewHub(nil)
	conn := dialHub(t, h)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)

	h.Broadcast(Event{Type: "chat", Data: "after disconnect"})
	if got := h.ClientCount(); got != 0 {
		t.Errorf("expected no clients after disconnect, got %d", got)
	}
}
