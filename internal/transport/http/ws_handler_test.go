package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/driftchat/driftchat-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	handler, _, _, _ := createTestServer(t)

	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketStreamDeliversLiveEvents(t *testing.T) {
	handler, hub, authService, _ := createTestServer(t)

	ts := httptest.NewServer(handler)
	defer ts.Close()

	token := registerTestUser(t, authService, "alice@example.com", "Alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/api/ws?token=" + token

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	waitFor(t, func() bool { return hub.Len() == 1 })

	resp := doJSON(t, handler, http.MethodPost, "/api/messages", token, `{"text":"over websocket"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("post failed with %d", resp.Code)
	}

	// Keep-alive frames may arrive first; skip them.
	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Type == proto.FrameTypeKeepAlive {
			continue
		}
		if frame.Event != "create" || frame.Data == nil || frame.Data.Text != "over websocket" {
			t.Fatalf("unexpected frame %+v", frame)
		}
		return
	}
}

func TestWebSocketStreamChannelFilter(t *testing.T) {
	handler, hub, authService, _ := createTestServer(t)

	ts := httptest.NewServer(handler)
	defer ts.Close()

	token := registerTestUser(t, authService, "alice@example.com", "Alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/api/ws?channel=sports&token=" + token

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	waitFor(t, func() bool { return hub.Len() == 1 })

	// A message tagged for another channel must not arrive; one for
	// sports must.
	if resp := doJSON(t, handler, http.MethodPost, "/api/messages", token, `{"text":"news","channel":"news"}`); resp.Code != http.StatusCreated {
		t.Fatalf("post failed with %d", resp.Code)
	}
	if resp := doJSON(t, handler, http.MethodPost, "/api/messages", token, `{"text":"goal","channel":"sports"}`); resp.Code != http.StatusCreated {
		t.Fatalf("post failed with %d", resp.Code)
	}

	var frame proto.Frame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.Data == nil || frame.Data.Text != "goal" || frame.Data.Channel != "sports" {
		t.Fatalf("expected only the sports event, got %+v", frame)
	}
}
