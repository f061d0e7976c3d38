package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

const (
	hubSendBuffer = 64
	pingInterval  = 30 * time.Second
	writeTimeout  = 10 * time.Second
	readLimit     = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamMessage is the JSON frame pushed to websocket clients for every
// classified point.
type StreamMessage struct {
	Type      string      `json:"type"`
	TimeStamp time.Time   `json:"ts"`
	Value     fixed.Point `json:"value"`
	ZScore    fixed.Point `json:"z"`
	Anomalous bool        `json:"anomalous"`
	Mean      fixed.Point `json:"mean"`
	StdDev    fixed.Point `json:"std_dev"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans classified points out to the websocket clients of one session.
// Broadcast never blocks the pipeline; clients that cannot keep up are
// dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*hubClient]struct{}),
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast pushes one classification to every connected client.
func (h *Hub) Broadcast(c common.Classification) {
	msg, err := json.Marshal(StreamMessage{
		Type:      "classification",
		TimeStamp: c.Point.TimeStamp,
		Value:     c.Point.Value,
		ZScore:    c.ZScore,
		Anomalous: c.Anomalous,
		Mean:      c.Mean,
		StdDev:    c.StdDev,
	})
	if err != nil {
		slog.Warn("unable to marshal stream message", "error", err)
		return
	}

	var slow []*hubClient

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		slog.Warn("dropping slow stream client")
		h.unregister(client)
	}
}

// HandleWS upgrades the request and serves the connection until the
// client disconnects or the hub closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &hubClient{
		conn: conn,
		send: make(chan []byte, hubSendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writePump(client)
	h.readPump(client)
}

// Close drops every client. Further connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*hubClient]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, client := range clients {
		close(client.send)
		_ = client.conn.Close()
	}
}

func (h *Hub) unregister(client *hubClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	if ok {
		close(client.send)
		_ = client.conn.Close()
	}
}

// readPump discards inbound frames; it exists to notice disconnects.
func (h *Hub) readPump(client *hubClient) {
	client.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.unregister(client)
			return
		}
	}
}

func (h *Hub) writePump(client *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(client)
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(client)
				return
			}
		}
	}
}
