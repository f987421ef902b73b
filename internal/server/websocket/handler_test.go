package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/hub"
	"github.com/brianly1003/lobo/internal/security"
	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

func TestHandler_StreamsHubEvents(t *testing.T) {
	h := hub.New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	handler := NewHandler(h, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dial(t, srv, "")
	waitFor(t, func() bool { return h.SubscriberCount() == 1 && handler.ClientCount() == 1 })

	h.Publish(events.NewStatusEvent("Compiled: /srv/site/main.css"))

	got := readEvent(t, conn)
	if got["event"] != "status" {
		t.Errorf("event = %v, want status", got["event"])
	}
}

func TestHandler_TypeFilter(t *testing.T) {
	h := hub.New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	srv := httptest.NewServer(NewHandler(h, nil))
	defer srv.Close()

	conn := dial(t, srv, "?types=compile_failed")
	waitFor(t, func() bool { return h.SubscriberCount() == 1 })

	h.Publish(events.NewStatusEvent("ignored"))
	h.Publish(events.NewCompileFinishedEvent("/a.less", "/a.css", 3, errTest))

	got := readEvent(t, conn)
	if got["event"] != "compile_failed" {
		t.Errorf("event = %v, want compile_failed", got["event"])
	}
}

func TestHandler_CommandsReachHandler(t *testing.T) {
	h := hub.New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	handler := NewHandler(h, func(c *Client, message []byte) {
		c.Send([]byte(`{"event":"command_result","payload":{"echo":` + string(message) + `}}`))
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dial(t, srv, "")
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"get_status"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := readEvent(t, conn)
	if got["event"] != "command_result" {
		t.Errorf("event = %v, want command_result", got["event"])
	}
}

func TestHandler_DisconnectUnsubscribes(t *testing.T) {
	h := hub.New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	handler := NewHandler(h, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn := dial(t, srv, "")
	waitFor(t, func() bool { return h.SubscriberCount() == 1 })

	_ = conn.Close()

	waitFor(t, func() bool { return h.SubscriberCount() == 0 && handler.ClientCount() == 0 })
}

func TestHandler_OriginPolicy(t *testing.T) {
	handler := NewHandler(nil, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://dash.example.org"}}

	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("foreign origin should be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	handler.SetOriginChecker(security.NewOriginChecker([]string{"https://dash.example.org"}))
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	_ = conn.Close()
}

func TestParseTypes(t *testing.T) {
	got := parseTypes(" status, ,compile_failed ")
	if len(got) != 2 || got[0] != events.EventTypeStatus || got[1] != events.EventTypeCompileFailed {
		t.Errorf("parseTypes() = %v", got)
	}
	if parseTypes("") != nil {
		t.Error("parseTypes(\"\") should be empty")
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("exit status 1")
