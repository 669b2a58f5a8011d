package server

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

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/engine"
	"github.com/ayusman/mindfultouch/internal/notify"
	"github.com/ayusman/mindfultouch/internal/region"
)

type toggleRecorder struct {
	mu      sync.Mutex
	toggles []config.Toggle
	err     error
}

func (r *toggleRecorder) ToggleRegion(t config.Toggle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.toggles = append(r.toggles, t)
	return nil
}

func (r *toggleRecorder) got() []config.Toggle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]config.Toggle(nil), r.toggles...)
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_Protocol(t *testing.T) {
	sink := &toggleRecorder{}
	hub := NewHub(sink)
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()
	defer hub.Close()

	hub.BroadcastDetection(engine.DetectionResult{
		Timestamp:     time.Unix(100, 0),
		FaceDetected:  true,
		ActiveRegions: []region.Name{region.Scalp},
	})

	conn := dial(t, ts)
	defer conn.Close()

	t.Run("latest result on connect", func(t *testing.T) {
		msg := read(t, conn)
		if msg["type"] != TypeDetectionData || msg["timestamp"] != 100.0 {
			t.Fatalf("first message = %v", msg)
		}
		data := msg["data"].(map[string]any)
		if data["face_detected"] != true {
			t.Errorf("data = %v", data)
		}
	})

	t.Run("ping", func(t *testing.T) {
		conn.WriteJSON(map[string]any{"type": "ping"})
		if msg := read(t, conn); msg["type"] != TypePong {
			t.Errorf("reply = %v", msg)
		}
	})

	t.Run("toggle region", func(t *testing.T) {
		conn.WriteJSON(map[string]any{"type": "toggle_region", "region": "scalp", "enabled": false})
		msg := read(t, conn)
		if msg["type"] != TypeToggleResponse || msg["region"] != "scalp" || msg["enabled"] != false || msg["status"] != "success" {
			t.Errorf("reply = %v", msg)
		}
		if got := sink.got(); len(got) != 1 || got[0] != (config.Toggle{Region: region.Scalp}) {
			t.Errorf("toggles = %v", got)
		}
	})

	t.Run("unknown region", func(t *testing.T) {
		conn.WriteJSON(map[string]any{"type": "toggle_region", "region": "nose", "enabled": true})
		msg := read(t, conn)
		if msg["status"] != "error" || !strings.Contains(msg["error"].(string), "nose") {
			t.Errorf("reply = %v", msg)
		}
	})

	t.Run("sink failure", func(t *testing.T) {
		sink.mu.Lock()
		sink.err = errors.New("queue full")
		sink.mu.Unlock()
		defer func() {
			sink.mu.Lock()
			sink.err = nil
			sink.mu.Unlock()
		}()

		conn.WriteJSON(map[string]any{"type": "toggle_region", "region": "mouth", "enabled": true})
		if msg := read(t, conn); msg["status"] != "error" || msg["error"] != "queue full" {
			t.Errorf("reply = %v", msg)
		}
	})

	t.Run("bad messages", func(t *testing.T) {
		conn.WriteMessage(websocket.TextMessage, []byte("{"))
		if msg := read(t, conn); msg["type"] != TypeError {
			t.Errorf("reply = %v", msg)
		}
		conn.WriteJSON(map[string]any{"type": "dance"})
		if msg := read(t, conn); msg["type"] != TypeError {
			t.Errorf("reply = %v", msg)
		}
	})

	t.Run("broadcasts", func(t *testing.T) {
		hub.BroadcastDetection(engine.DetectionResult{Timestamp: time.Unix(101, 0), HandsDetected: 2})
		msg := read(t, conn)
		if msg["type"] != TypeDetectionData || msg["data"].(map[string]any)["hand_count"] != 2.0 {
			t.Errorf("detection = %v", msg)
		}

		hub.BroadcastAlert(notify.Alert{ID: "a1", Event: "scalp_pinch", Timestamp: time.Unix(102, 0)})
		msg = read(t, conn)
		if msg["type"] != TypeNotification || msg["data"].(map[string]any)["id"] != "a1" {
			t.Errorf("alert = %v", msg)
		}
	})

	t.Run("disconnect", func(t *testing.T) {
		if hub.ClientCount() != 1 {
			t.Fatalf("ClientCount() = %d", hub.ClientCount())
		}
		conn.Close()
		waitFor(t, "client removal", func() bool { return hub.ClientCount() == 0 })
	})
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(&toggleRecorder{})
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()
	waitFor(t, "client registration", func() bool { return hub.ClientCount() == 1 })

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
	waitFor(t, "client removal", func() bool { return hub.ClientCount() == 0 })
}

type staticFrames struct {
	jpeg []byte
	seq  uint64
}

func (f staticFrames) LatestJPEG() ([]byte, uint64) { return f.jpeg, f.seq }

func TestStreamHandler(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	s := New(Config{Frames: staticFrames{jpeg: jpeg, seq: 1}})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if n := strings.Count(body, "--frame\r\n"); n != 1 {
		t.Errorf("frame parts = %d, want 1 for an unchanged frame", n)
	}
	if !strings.Contains(body, "Content-Length: 4\r\n\r\n"+string(jpeg)) {
		t.Errorf("body = %q", body)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", rec.Code)
	}
}

func TestServer_Run(t *testing.T) {
	s := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(7 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
