package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"micromes/internal/config"
	"micromes/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024, PingPeriod: time.Second, PongWait: 2 * time.Second}
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

type received struct {
	Type events.MessageType `json:"type"`
	Data json.RawMessage    `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg received
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubDeliversProgress(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(NewHandler(hub, testWSConfig(), nil, testLogger()))
	defer server.Close()

	conn := dial(t, server)
	hello := readMessage(t, conn)
	assert.Equal(t, events.TypeConnection, hello.Type)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Publish(events.New(events.TypeIngestionFile, events.FileProgress{RunID: "r1", File: "a.xlsx", Records: 5}, "trace-1"))

	msg := readMessage(t, conn)
	assert.Equal(t, events.TypeIngestionFile, msg.Type)
	var progress events.FileProgress
	require.NoError(t, json.Unmarshal(msg.Data, &progress))
	assert.Equal(t, "a.xlsx", progress.File)
	assert.Equal(t, 5, progress.Records)

	assert.Eventually(t, func() bool {
		sent, _ := hub.Stats()
		return sent == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHubClientDisconnect(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(NewHandler(hub, testWSConfig(), nil, testLogger()))
	defer server.Close()

	conn := dial(t, server)
	readMessage(t, conn)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()

	server := httptest.NewServer(NewHandler(hub, testWSConfig(), nil, testLogger()))
	defer server.Close()

	conn := dial(t, server)
	readMessage(t, conn)

	hub.Stop()
	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(testLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(events.New(events.TypeIngestionFile, events.FileProgress{Index: i}, ""))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stopped hub")
	}

	_, dropped := hub.Stats()
	assert.Equal(t, int64(100-cap(hub.broadcast)), dropped)
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "any origin when unset", origin: "http://evil.example", want: true},
		{name: "allowed origin", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:8080", want: true},
		{name: "rejected origin", allowed: []string{"http://localhost:8080"}, origin: "http://evil.example", want: false},
		{name: "no origin header", allowed: []string{"http://localhost:8080"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(r))
		})
	}
}

func TestNewClientClampsPingPeriod(t *testing.T) {
	conn := &fakeConn{}
	c := NewClient(NewHub(testLogger()), conn, config.WebSocketConfig{PingPeriod: time.Minute, PongWait: 10 * time.Second}, "", testLogger())
	assert.Equal(t, 9*time.Second, c.pingPeriod)
	assert.NotEmpty(t, c.ID())

	c = NewClient(NewHub(testLogger()), conn, config.WebSocketConfig{}, "", testLogger())
	assert.Equal(t, 60*time.Second, c.pongWait)
	assert.Equal(t, 54*time.Second, c.pingPeriod)
}

type fakeConn struct{}

func (*fakeConn) WriteMessage(int, []byte) error { return nil }
func (*fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, io.EOF }
func (*fakeConn) Close() error { return nil }
func (*fakeConn) SetReadDeadline(time.Time) error { return nil }
func (*fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (*fakeConn) SetReadLimit(int64) {}
func (*fakeConn) SetPongHandler(func(string) error) {}
func (*fakeConn) RemoteAddr() string { return "127.0.0.1:1" }
