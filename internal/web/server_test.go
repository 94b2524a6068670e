package web

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

	"github.com/gorilla/websocket"

	"show-service/internal/logger"
	"show-service/internal/types"
)

type mockController struct {
	mu sync.Mutex

	snapshot types.Snapshot
	startErr error

	startDelays []int
	stops       int
	pauses      int
	restarts    int
}

func (m *mockController) Snapshot() types.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *mockController) RequestStart(delayMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startDelays = append(m.startDelays, delayMs)
	return m.startErr
}

func (m *mockController) RequestStop()    { m.mu.Lock(); m.stops++; m.mu.Unlock() }
func (m *mockController) RequestPause()   { m.mu.Lock(); m.pauses++; m.mu.Unlock() }
func (m *mockController) RequestRestart() { m.mu.Lock(); m.restarts++; m.mu.Unlock() }

func (m *mockController) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Enabled = enabled
}

func (m *mockController) SetTesting(testing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Testing = testing
}

func (m *mockController) SetTrajectoryOffset(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.TakeoffTime = seconds
}

func (m *mockController) SetLandingHeight(meters float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.LandingHeight = meters
}

func newTestServer() (*Server, *mockController) {
	c := &mockController{snapshot: types.Snapshot{
		State:   types.StateIdle,
		Message: types.StateIdle.Message(),
		Ready:   true,
		Enabled: true,
	}}
	return NewServer(c, "127.0.0.1:0", 10*time.Millisecond, logger.NewLogger(nil, logger.LogLevelNone)), c
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStateReturnsSnapshot(t *testing.T) {
	s, _ := newTestServer()

	rec := do(s, "GET", "/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap["enabled"] != true {
		t.Errorf("enabled = %v", snap["enabled"])
	}
	if _, ok := snap["seconds_since_start"]; ok {
		t.Error("seconds_since_start should be omitted without a schedule")
	}
}

func TestStartParsesDelay(t *testing.T) {
	s, c := newTestServer()

	if rec := do(s, "POST", "/start", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := do(s, "POST", "/start?delay=-1500", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := do(s, "POST", "/start?delay=soon", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	if len(c.startDelays) != 2 || c.startDelays[0] != 0 || c.startDelays[1] != -1500 {
		t.Errorf("delays = %v", c.startDelays)
	}
}

func TestStartRejected(t *testing.T) {
	s, c := newTestServer()
	c.startErr = errors.New("too late")

	rec := do(s, "POST", "/start?delay=-90000", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCommandRoutes(t *testing.T) {
	s, c := newTestServer()

	for _, path := range []string{"/stop", "/pause", "/restart"} {
		if rec := do(s, "POST", path, ""); rec.Code != http.StatusAccepted {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
	if rec := do(s, "GET", "/stop", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /stop: status = %d", rec.Code)
	}
	if c.stops != 1 || c.pauses != 1 || c.restarts != 1 {
		t.Errorf("stops=%d pauses=%d restarts=%d", c.stops, c.pauses, c.restarts)
	}
}

func TestConfigUpdate(t *testing.T) {
	s, c := newTestServer()

	rec := do(s, "POST", "/config", `{"enabled":false,"takeoff_time":12.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if c.snapshot.Enabled || c.snapshot.TakeoffTime != 12.5 {
		t.Errorf("snapshot = %+v", c.snapshot)
	}
	if c.snapshot.LandingHeight != 0 {
		t.Errorf("landing height changed: %v", c.snapshot.LandingHeight)
	}

	var params ShowParams
	if err := json.Unmarshal(rec.Body.Bytes(), &params); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if params.TakeoffTime == nil || *params.TakeoffTime != 12.5 {
		t.Errorf("takeoff_time = %v", params.TakeoffTime)
	}

	if rec := do(s, "POST", "/config", `{"enabled":`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestWebsocketStreamsSnapshots(t *testing.T) {
	s, _ := newTestServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/websocket?poll=5ms"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		var snap types.Snapshot
		conn.SetReadDeadline(time.Now().Add(time.Second))
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if snap.State != types.StateIdle {
			t.Errorf("state = %v", snap.State)
		}
	}
}

func TestShutdownClosesWebsockets(t *testing.T) {
	s, _ := newTestServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/websocket?poll=5ms"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var snap types.Snapshot
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	// drain queued snapshots until the close frame arrives
	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if err := conn.ReadJSON(&snap); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Errorf("expected going away close, got %v", err)
			}
			return
		}
	}
}
