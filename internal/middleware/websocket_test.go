package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sysscope/internal/broadcast"
	"sysscope/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func startStreamServer(t *testing.T, reg *broadcast.Registry) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws/metrics", NewStreamHub(reg, nil).HandleWebSocket())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/metrics"
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamPushesSamplesAsJSON(t *testing.T) {
	reg := broadcast.NewRegistry(4, nil, nil)
	url := startStreamServer(t, reg)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return reg.Len() == 1 }, "subscriber attach")

	reg.Broadcast(models.Sample{
		Timestamp:      time.Unix(1700000000, 250_000_000),
		CPUUsage:       10,
		MemoryUsage:    50,
		DiskIO:         1,
		NetworkLatency: 999,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.CPUUsage != 10 || msg.MemoryUsage != 50 || msg.DiskIO != 1 || msg.NetworkLatency != 999 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Timestamp != 1700000000.25 {
		t.Fatalf("expected epoch timestamp, got %f", msg.Timestamp)
	}
}

func TestStreamDetachesOnClientDisconnect(t *testing.T) {
	reg := broadcast.NewRegistry(4, nil, nil)
	url := startStreamServer(t, reg)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return reg.Len() == 1 }, "subscriber attach")

	conn.Close()
	waitFor(t, func() bool { return reg.Len() == 0 }, "subscriber detach")
}

func TestStreamClosesWhenRegistryDetaches(t *testing.T) {
	reg := broadcast.NewRegistry(4, nil, nil)
	url := startStreamServer(t, reg)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return reg.Len() == 1 }, "subscriber attach")

	reg.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close frame, got %v", err)
	}
}

func TestStreamRefusedAfterRegistryClose(t *testing.T) {
	reg := broadcast.NewRegistry(4, nil, nil)
	url := startStreamServer(t, reg)
	reg.Close()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close frame, got %v", err)
	}
}
