package websocket_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/VamshiS123/visionv/pkg/narration"
	"github.com/VamshiS123/visionv/pkg/provider/vision"
	wsclient "github.com/VamshiS123/visionv/pkg/provider/vision/websocket"
)

// wsURL converts an httptest server HTTP URL to a WebSocket URL.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startVisionServer launches a test WebSocket server. The handler function
// receives the accepted *websocket.Conn. The server is automatically closed
// when the test finishes.
func startVisionServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeFrame marshals v and sends it as a text frame.
func writeFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, _ := json.Marshal(v)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Logf("writeFrame: %v (may be expected on close)", err)
	}
}

func TestStreamDeliversDescriptions(t *testing.T) {
	t.Parallel()

	srv := startVisionServer(t, func(conn *websocket.Conn, _ *http.Request) {
		writeFrame(t, conn, map[string]string{"text": "a person at the door", "priority": "high"})
		writeFrame(t, conn, map[string]string{"text": "a quiet street", "priority": "low"})
		// Hold the connection open until the client hangs up.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn.Read(ctx)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []vision.Description
	done := make(chan struct{})

	c := wsclient.New(wsURL(srv))
	go func() {
		defer close(done)
		c.Stream(ctx, func(d vision.Description) {
			mu.Lock()
			got = append(got, d)
			if len(got) == 2 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not deliver both descriptions in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("received %d descriptions, want 2", len(got))
	}
	if got[0].Text != "a person at the door" || got[0].Priority != narration.PriorityHigh {
		t.Errorf("first description = %+v", got[0])
	}
	if got[1].Text != "a quiet street" || got[1].Priority != narration.PriorityLow {
		t.Errorf("second description = %+v", got[1])
	}
	if got[0].ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestStreamSkipsMalformedFrames(t *testing.T) {
	t.Parallel()

	srv := startVisionServer(t, func(conn *websocket.Conn, _ *http.Request) {
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		conn.Write(wctx, websocket.MessageText, []byte("{not json"))
		writeFrame(t, conn, map[string]string{"priority": "high"}) // no text
		writeFrame(t, conn, map[string]string{"text": "a cyclist", "priority": "medium"})
		conn.Read(wctx)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []vision.Description
	done := make(chan struct{})

	c := wsclient.New(wsURL(srv))
	go func() {
		defer close(done)
		c.Stream(ctx, func(d vision.Description) {
			mu.Lock()
			got = append(got, d)
			mu.Unlock()
			cancel()
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not deliver the valid frame in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Text != "a cyclist" {
		t.Errorf("descriptions = %+v, want only the valid frame", got)
	}
}

func TestStreamReconnects(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	connects := 0

	srv := startVisionServer(t, func(conn *websocket.Conn, _ *http.Request) {
		mu.Lock()
		connects++
		n := connects
		mu.Unlock()

		if n == 1 {
			// Drop the first connection immediately.
			conn.Close(websocket.StatusInternalError, "simulated drop")
			return
		}
		writeFrame(t, conn, map[string]string{"text": "back online", "priority": "low"})
		wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn.Read(wctx)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	var got vision.Description

	c := wsclient.New(wsURL(srv), wsclient.WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	go func() {
		defer close(done)
		c.Stream(ctx, func(d vision.Description) {
			mu.Lock()
			got = d
			mu.Unlock()
			cancel()
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not recover from the dropped connection")
	}

	mu.Lock()
	defer mu.Unlock()
	if connects < 2 {
		t.Errorf("connects = %d, want at least 2", connects)
	}
	if got.Text != "back online" {
		t.Errorf("description after reconnect = %+v", got)
	}
}

func TestStreamGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	// A server that is already closed rejects every dial.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := wsURL(srv)
	srv.Close()

	c := wsclient.New(url,
		wsclient.WithBackoff(time.Millisecond, 2*time.Millisecond),
		wsclient.WithMaxRetries(3),
	)

	err := c.Stream(context.Background(), func(vision.Description) {})
	if !errors.Is(err, wsclient.ErrMaxRetries) {
		t.Fatalf("Stream = %v, want ErrMaxRetries", err)
	}
}
