package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	conn := dialHub(t, hub)

	waitFor(t, 5*time.Second, func() bool {
		return hub.ClientCount() == 1
	})

	classification := common.Classification{
		Point: common.DataPoint{
			Value:     fixed.FromFloat64(50),
			TimeStamp: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		},
		ZScore:    fixed.FromFloat64(34.4),
		Anomalous: true,
		Mean:      fixed.FromFloat64(11.5),
		StdDev:    fixed.FromFloat64(1.118),
	}
	hub.Broadcast(classification)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame struct {
		Type      string  `json:"type"`
		Value     float64 `json:"value"`
		ZScore    float64 `json:"z"`
		Anomalous bool    `json:"anomalous"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Type != "classification" {
		t.Errorf("type: got %q, want classification", frame.Type)
	}
	if frame.Value != 50 {
		t.Errorf("value: got %v, want 50", frame.Value)
	}
	if !frame.Anomalous {
		t.Error("anomalous flag lost in transit")
	}
}

func TestHub_CloseDropsClients(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	waitFor(t, 5*time.Second, func() bool {
		return hub.ClientCount() == 1
	})

	hub.Close()

	if hub.ClientCount() != 0 {
		t.Errorf("client count after close: got %d, want 0", hub.ClientCount())
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
