package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

type fakeConn struct {
	written chan []byte
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{written: make(chan []byte, 16)}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType == 1 { // websocket.TextMessage
		buf := append([]byte(nil), data...)
		f.written <- buf
	}
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {}
}

func (f *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(h func(string) error) {}
func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestHub_BroadcastOnlyReachesSubscribedClients(t *testing.T) {
	hub := NewHub(nil)

	conn := newFakeConn()
	client := NewClient("c1", conn, nil)
	client.subscribe([]string{"queries"})
	hub.Register(client)
	go client.WritePump()

	hub.Broadcast("confidence", map[string]int{"x": 1})
	select {
	case <-conn.written:
		t.Fatal("client received a broadcast for a metric type it did not subscribe to")
	case <-time.After(50 * time.Millisecond):
	}

	hub.Broadcast("queries", map[string]int{"x": 1})
	select {
	case raw := <-conn.written:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("failed to decode broadcast: %v", err)
		}
		if msg.Type != "queries" {
			t.Errorf("msg.Type = %q, want queries", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("subscribed client never received the broadcast")
	}
}

func TestHub_StatsTracksConnectedAndSent(t *testing.T) {
	hub := NewHub(nil)
	conn := newFakeConn()
	client := NewClient("c1", conn, nil)
	client.subscribe([]string{"queries"})
	hub.Register(client)
	go client.WritePump()

	hub.Broadcast("queries", 1)
	<-conn.written

	stats := hub.Stats()
	if stats.ConnectedClients != 1 {
		t.Errorf("ConnectedClients = %d, want 1", stats.ConnectedClients)
	}
	if stats.MessagesSent != 1 {
		t.Errorf("MessagesSent = %d, want 1", stats.MessagesSent)
	}
}

func TestHub_UnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient("c1", newFakeConn(), nil)
	hub.Register(client)
	hub.Unregister(client)

	_, ok := <-client.send
	if ok {
		t.Error("expected send channel to be closed after Unregister")
	}
}

func TestClient_SubscribeUnsubscribe(t *testing.T) {
	client := NewClient("c1", newFakeConn(), nil)
	client.subscribe([]string{"a", "b"})
	if !client.subscribedTo("a") || !client.subscribedTo("b") {
		t.Fatal("expected subscriptions to a and b")
	}
	client.unsubscribe([]string{"a"})
	if client.subscribedTo("a") {
		t.Error("expected a to be unsubscribed")
	}
	if !client.subscribedTo("b") {
		t.Error("expected b to remain subscribed")
	}
}
