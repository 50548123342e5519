package notify

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d", want)
}

func TestHubDeliversEvents(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Stop(context.Background())

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	hub.Publish(Event{
		Kind:       EventOperationCreated,
		TrackingID: "EXP-1001",
		Payload:    map[string]any{"status": "Pending"},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Kind != EventOperationCreated || got.TrackingID != "EXP-1001" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestHubFansOut(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Stop(context.Background())

	first := dial(t, server)
	second := dial(t, server)
	waitForClients(t, hub, 2)

	hub.Publish(Event{Kind: EventDashboardRefresh})

	for i, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got Event
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if got.Kind != EventDashboardRefresh {
			t.Fatalf("client %d got %+v", i, got)
		}
	}
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Stop(context.Background())

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// publishing to an empty hub must not block or panic
	hub.Publish(Event{Kind: EventOperationUpdated})
}
