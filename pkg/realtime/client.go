// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 54 * time.Second
	maxMessageSize = 8192
)

// Conn is the subset of *websocket.Conn the client pumps use, kept
// narrow so tests can supply a fake without a real socket.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// clientMessage is what a connected client sends to manage its
// subscriptions.
type clientMessage struct {
	Action      string   `json:"action"` // "subscribe" | "unsubscribe"
	MetricTypes []string `json:"metric_types"`
}

// Client is one connected WebSocket subscriber with a dedicated writer
// goroutine and an outbound buffered channel.
type Client struct {
	id     string
	conn   Conn
	send   chan []byte
	logger *slog.Logger

	mu            sync.Mutex
	subscriptions map[string]struct{}
}

// NewClient wraps conn as a hub-addressable Client.
func NewClient(id string, conn Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		id:            id,
		conn:          conn,
		send:          make(chan []byte, clientSendBuffer),
		logger:        logger,
		subscriptions: make(map[string]struct{}),
	}
}

func (c *Client) subscribedTo(metricType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscriptions[metricType]
	return ok
}

func (c *Client) subscribe(metricTypes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range metricTypes {
		c.subscriptions[t] = struct{}{}
	}
}

func (c *Client) unsubscribe(metricTypes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range metricTypes {
		delete(c.subscriptions, t)
	}
}

// WritePump drains c.send to the socket and pings on an interval,
// returning when the channel is closed or a write fails. Run it in its
// own goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump reads subscribe/unsubscribe control messages until the
// connection closes, then unregisters the client from hub.
func (c *Client) ReadPump(hub *Hub) {
	defer hub.Unregister(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("realtime: dropping malformed client message", "client", c.id, "error", err)
			continue
		}

		switch msg.Action {
		case "subscribe":
			c.subscribe(msg.MetricTypes)
		case "unsubscribe":
			c.unsubscribe(msg.MetricTypes)
		}
	}
}
