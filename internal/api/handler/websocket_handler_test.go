package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
	"parkease/internal/logging"
)

func startFeed(t *testing.T) (*WebSocketManager, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mgr := NewWebSocketManager([]string{"http://localhost:5173"}, logging.Discard())
	done := make(chan struct{})
	go mgr.Start(done)

	r := gin.New()
	r.GET("/ws", NewWebSocketHandler(mgr).HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		close(done)
	})
	return mgr, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestOccupancyFeedDeliversEvents(t *testing.T) {
	mgr, url := startFeed(t)

	header := http.Header{"Origin": []string{"http://localhost:5173"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return mgr.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	sent := domain.OccupancyEvent{
		Type: domain.EventSpotOccupied, LotID: 1, LotName: "Central",
		SpotID: 3, SpotNumber: 3,
		Timestamp: time.Date(2024, 3, 15, 4, 30, 0, 0, time.UTC),
	}
	mgr.BroadcastOccupancy(sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got domain.OccupancyEvent
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, sent, got)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "license_plate")
	assert.NotContains(t, fields, "vehicle_id")
	assert.NotContains(t, fields, "user_id")
}

func TestStoppedHubDoesNotBlockConnections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := NewWebSocketManager([]string{"http://localhost:5173"}, logging.Discard())
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		mgr.Start(done)
		close(stopped)
	}()
	close(done)
	<-stopped

	returned := make(chan struct{}, 1)
	h := NewWebSocketHandler(mgr)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		h.HandleWebSocket(c)
		returned <- struct{}{}
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://localhost:5173"}})
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("handler blocked registering with a stopped hub")
	}
	assert.Equal(t, 0, mgr.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	removed := make(chan struct{})
	go func() {
		mgr.remove(conn)
		close(removed)
	}()
	select {
	case <-removed:
	case <-time.After(2 * time.Second):
		t.Fatal("unregister blocked on a stopped hub")
	}
}

func TestOccupancyFeedRejectsForeignOrigin(t *testing.T) {
	_, url := startFeed(t)

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
