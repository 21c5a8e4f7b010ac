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

// Package realtime is an in-process pub/sub bus with a WebSocket
// adapter: publishers call Broadcast, connected clients subscribe to a
// set of metric types and receive each matching update as JSON.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const clientSendBuffer = 256

// Message is the wire shape broadcast to subscribed clients.
type Message struct {
	Timestamp time.Time   `json:"timestamp"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
}

// Hub owns the client set and fans out broadcasts to every client
// subscribed to a given metric type. It does not persist anything.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	logger  *slog.Logger

	connectedCount int64
	messagesSent   int64
}

// NewHub builds an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{clients: make(map[*Client]struct{}), logger: logger}
}

// Register adds a client to the hub's broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.connectedCount++
}

// Unregister removes a client, closing its outbound channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast publishes payload under metricType to every subscribed
// client. A client whose outbound buffer is full is disconnected
// instead of blocking the publisher.
func (h *Hub) Broadcast(metricType string, payload interface{}) {
	msg := Message{Timestamp: time.Now(), Type: metricType, Data: payload}
	encoded, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("realtime: failed to encode broadcast", "type", metricType, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.subscribedTo(metricType) {
			continue
		}
		select {
		case c.send <- encoded:
			h.messagesSent++
		default:
			h.logger.Warn("realtime: disconnecting slow client", "client", c.id)
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Stats is the hub's point-in-time counters.
type Stats struct {
	ConnectedClients int
	TotalConnected    int64
	MessagesSent      int64
}

// Stats reports the hub's current client count and cumulative
// counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		ConnectedClients: len(h.clients),
		TotalConnected:   h.connectedCount,
		MessagesSent:     h.messagesSent,
	}
}
