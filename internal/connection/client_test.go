package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig() ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.WriteTimeout = 5 * time.Second
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.MessageBufferSize = 100
	return cfg
}

func TestClient_ConnectAndClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cli := newClient(wsURL(server), testClientConfig(), testLogger())

	if err := cli.connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if !cli.isConnected() {
		t.Error("expected isConnected to return true")
	}

	if err := cli.close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if cli.isConnected() {
		t.Error("expected isConnected to return false after close")
	}

	// Second close is a no-op.
	if err := cli.close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestClient_Send(t *testing.T) {
	var mu sync.Mutex
	var received []byte

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	cli := newClient(wsURL(server), testClientConfig(), testLogger())
	if err := cli.connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer cli.close()

	testMsg := []byte(`{"action":"ping"}`)
	if err := cli.send(testMsg); err != nil {
		t.Errorf("send failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if string(received) != string(testMsg) {
		t.Errorf("received %q, want %q", received, testMsg)
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	cli := newClient("ws://localhost:12345", testClientConfig(), testLogger())

	if err := cli.send([]byte("test")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("send = %v, want ErrNotConnected", err)
	}
}

func TestClient_Messages(t *testing.T) {
	frames := []string{
		`{"type":"state"}`,
		`{"type":"round"}`,
		`{"type":"pong"}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	cli := newClient(wsURL(server), testClientConfig(), testLogger())
	if err := cli.connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer cli.close()

	timeout := time.After(500 * time.Millisecond)
	var received []string
	for range frames {
		select {
		case msg := <-cli.messages:
			received = append(received, string(msg.Data))
			if msg.ReceivedAt.IsZero() {
				t.Error("ReceivedAt should not be zero")
			}
		case <-timeout:
			t.Fatalf("timeout, received %d of %d frames", len(received), len(frames))
		}
	}

	for i, want := range frames {
		if received[i] != want {
			t.Errorf("frame %d: got %q, want %q", i, received[i], want)
		}
	}
}

func TestIsNormalClose(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"normal closure", &websocket.CloseError{Code: websocket.CloseNormalClosure}, true},
		{"going away", &websocket.CloseError{Code: websocket.CloseGoingAway}, true},
		{"abnormal closure", &websocket.CloseError{Code: websocket.CloseAbnormalClosure}, false},
		{"plain error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNormalClose(tt.err); got != tt.want {
				t.Errorf("isNormalClose(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
