package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestHubBroadcastsToSubscribedClients(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	go hub.Run()

	router := gin.New()
	router.GET("/stream", hub.Subscribe)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give Subscribe's goroutine a moment to register the client before
	// broadcasting, since registration happens asynchronously relative to
	// the dial completing.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast([]byte(`{"event":"progress","nodes":3}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(msg) != `{"event":"progress","nodes":3}` {
		t.Fatalf("got %s", msg)
	}
}

func TestHubDropsClientOnReadError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	go hub.Run()

	router := gin.New()
	router.GET("/stream", hub.Subscribe)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	conn.Close()

	// Give Subscribe's read-loop goroutine a moment to observe the close
	// and deregister the client.
	time.Sleep(50 * time.Millisecond)

	hub.mu.Lock()
	count := len(hub.clients)
	hub.mu.Unlock()
	if count != 0 {
		t.Fatalf("clients = %d, want 0 after disconnect", count)
	}
}
