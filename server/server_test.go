package server

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/telemetry"
)

func testFrame(tick int64) *Frame {
	return &Frame{
		Tick:         tick,
		Width:        400,
		Height:       200,
		Polarization: 0.5,
		Agents: []components.AgentView{
			{Handle: 0, X: 10, Y: 10, VX: 1},
			{Handle: 1, X: 50, Y: 60, VY: 1, Predated: true},
			{Handle: 2, X: 200, Y: 100, VX: 7, IsPredator: true},
		},
		Window: &telemetry.WindowStats{WindowEndTick: 600, Strikes: 3},
	}
}

func newTestRouter(pub *Publisher, m *telemetry.Metrics) http.Handler {
	return NewRouter(RouterConfig{
		Source:         pub,
		Metrics:        m,
		FrameWidth:     200,
		DisableLogging: true,
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	pub := &Publisher{}
	router := newTestRouter(pub, nil)

	var body struct {
		Status string `json:"status"`
		Ready  bool   `json:"ready"`
		Tick   int64  `json:"tick"`
	}

	rec := get(t, router, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Status != "ok" || body.Ready {
		t.Errorf("before publish: %+v", body)
	}

	pub.Publish(testFrame(42))
	rec = get(t, router, "/health")
	json.NewDecoder(rec.Body).Decode(&body)
	if !body.Ready || body.Tick != 42 {
		t.Errorf("after publish: %+v", body)
	}
}

func TestEndpointsBeforePublish(t *testing.T) {
	router := newTestRouter(&Publisher{}, nil)

	for _, path := range []string{"/api/state", "/api/stats", "/api/frame.png"} {
		t.Run(path, func(t *testing.T) {
			if rec := get(t, router, path); rec.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", rec.Code)
			}
		})
	}
}

func TestState(t *testing.T) {
	pub := &Publisher{}
	pub.Publish(testFrame(7))
	rec := get(t, newTestRouter(pub, nil), "/api/state")

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var f Frame
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if f.Tick != 7 || len(f.Agents) != 3 || f.Width != 400 {
		t.Errorf("state = tick %d, %d agents, width %v", f.Tick, len(f.Agents), f.Width)
	}
	if !f.Agents[2].IsPredator || !f.Agents[1].Predated {
		t.Errorf("agent flags lost in encoding: %+v", f.Agents)
	}
}

func TestStats(t *testing.T) {
	pub := &Publisher{}
	pub.Publish(testFrame(7))
	rec := get(t, newTestRouter(pub, nil), "/api/stats")

	var s statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if s.Agents != 2 || s.Predated != 1 {
		t.Errorf("agents/predated = %d/%d, want 2/1", s.Agents, s.Predated)
	}
	if s.Window == nil || s.Window.Strikes != 3 {
		t.Errorf("window = %+v, want strikes 3", s.Window)
	}
}

func TestFramePNG(t *testing.T) {
	pub := &Publisher{}
	pub.Publish(testFrame(1))
	router := newTestRouter(pub, nil)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantWidth int
	}{
		{"default width", "", http.StatusOK, 200},
		{"explicit width", "?width=100", http.StatusOK, 100},
		{"invalid width", "?width=abc", http.StatusBadRequest, 0},
		{"negative width", "?width=-5", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, "/api/frame.png"+tt.query)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			img, err := png.Decode(rec.Body)
			if err != nil {
				t.Fatalf("decoding PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantWidth || b.Dy() != tt.wantWidth/2 {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantWidth, tt.wantWidth/2)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	pub := &Publisher{}
	pub.Publish(testFrame(1))
	router := newTestRouter(pub, telemetry.NewMetrics())

	get(t, router, "/api/stats")
	rec := get(t, router, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `boids_http_requests_total{method="GET",route="/api/stats",status="200"} 1`) {
		t.Errorf("request counter missing from /metrics:\n%s", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}, nil)
	defer limiter.Stop()

	router := NewRouter(RouterConfig{
		Source:         &Publisher{},
		RateLimiter:    limiter,
		DisableLogging: true,
	})

	for i := 0; i < 2; i++ {
		if rec := get(t, router, "/health"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}
	rec := get(t, router, "/health")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// A different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d, want 200", rec.Code)
	}

	if allowed, rejected := limiter.Stats(); allowed != 3 || rejected != 1 {
		t.Errorf("stats = %d allowed, %d rejected; want 3, 1", allowed, rejected)
	}
}

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"http://localhost:*", "https://example.com"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://localhost:", true},
		{"https://example.com", true},
		{"https://example.com.evil.net", false},
		{"http://127.0.0.1:3000", false},
	}

	for _, tt := range tests {
		if got := originAllowed(patterns, tt.origin); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func newStreamServer(t *testing.T, maxClients int) (*Publisher, *Server, string) {
	t.Helper()

	cfg := config.Default().Server
	cfg.BroadcastMS = 5
	cfg.MaxClients = maxClients
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 1000

	pub := &Publisher{}
	s := New(cfg, pub, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.StartWorkers(ctx)

	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		s.Close()
	})
	return pub, s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestWebSocketStream(t *testing.T) {
	pub, _, url := newStreamServer(t, 4)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	pub.Publish(testFrame(99))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Event string `json:"event"`
		Data  Frame  `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decoding message: %v", err)
	}
	if msg.Event != EventState || msg.Data.Tick != 99 || len(msg.Data.Agents) != 3 {
		t.Errorf("message = %s tick %d with %d agents", msg.Event, msg.Data.Tick, len(msg.Data.Agents))
	}
}

func TestWebSocketClientLimit(t *testing.T) {
	_, s, url := newStreamServer(t, 1)

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second dial succeeded past the client limit")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("second dial response = %v, want 503", resp)
	}

	// Closing the first client frees its slot
	first.Close()
	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slot not released after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
