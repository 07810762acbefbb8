package bridge

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebsocketReceivesSaleEvent(t *testing.T) {
	_, srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	var hello Event
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "connected" {
		t.Fatalf("first event = %q, want connected", hello.Type)
	}

	_, resp := post(t, srv, "/sale", `{"items": [{"name": "Cafe", "price": 2.50, "qty": 1}]}`)
	if resp["success"] != true {
		t.Fatalf("sale failed: %v", resp["error"])
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	for {
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("read sale event: %v", err)
		}
		if event.Type == "sale" {
			break
		}
	}
	data, _ := event.Data.(map[string]interface{})
	if data["total"] != 2.50 {
		t.Errorf("event total = %v, want 2.5", data["total"])
	}
}

func TestWelcomePrecedesBroadcasts(t *testing.T) {
	_, srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				srv.hub.Broadcast("tick", nil)
			}
		}
	}()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	for i := 0; i < 10; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial websocket: %v", err)
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var first Event
		if err := conn.ReadJSON(&first); err != nil {
			conn.Close()
			t.Fatalf("read first event: %v", err)
		}
		conn.Close()

		if first.Type != "connected" {
			t.Fatalf("first event = %q, want connected", first.Type)
		}
	}
}
