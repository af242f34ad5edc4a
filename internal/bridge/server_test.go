package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glucopilot/glucopilot-agent/internal/agent"
	"github.com/glucopilot/glucopilot-agent/internal/config"
	"github.com/glucopilot/glucopilot-agent/internal/domain"
	"github.com/glucopilot/glucopilot-agent/internal/status"
)

func newTestBridge(store status.Store) (*Server, *Hub) {
	hub := NewHub([]string{"*"})
	cfg := config.BridgeConfig{Host: "127.0.0.1", Port: 8787, AllowedOrigins: []string{"*"}}
	return NewServer(cfg, store, hub), hub
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	store := status.NewManager()
	store.SetPermissionState(domain.PermissionAuthorized)
	res := domain.SyncResult{RecordCount: 2, StepCount: 8000, SleepHours: 7.5}
	store.SetLastSync(res, time.Now().UTC())

	server, _ := newTestBridge(store)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	var snap status.Snapshot
	resp := getJSON(t, srv.URL+"/api/status", &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if snap.PermissionState != domain.PermissionAuthorized {
		t.Errorf("PermissionState = %s", snap.PermissionState)
	}
	if snap.LastSync == nil || snap.LastSync.StepCount != 8000 {
		t.Errorf("LastSync = %+v", snap.LastSync)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
}

func TestLatestGlucoseEndpoint(t *testing.T) {
	t.Parallel()

	store := status.NewManager()
	server, _ := newTestBridge(store)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	var errBody map[string]string
	resp := getJSON(t, srv.URL+"/api/glucose/latest", &errBody)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before any reading", resp.StatusCode)
	}
	if errBody["detail"] == "" {
		t.Error("404 body should carry a detail message")
	}

	store.SetLatestReading(domain.GlucoseReading{
		Value:     112,
		Trend:     domain.TrendSteady,
		Timestamp: time.Date(2025, 3, 1, 20, 55, 0, 0, time.UTC),
		Unit:      domain.UnitMgdL,
	})

	var reading domain.GlucoseReading
	resp = getJSON(t, srv.URL+"/api/glucose/latest", &reading)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d after reading recorded", resp.StatusCode)
	}
	if reading.Value != 112 || reading.Trend != domain.TrendSteady {
		t.Errorf("reading = %+v", reading)
	}
}

func TestInsightsEndpointAlwaysReturnsArray(t *testing.T) {
	t.Parallel()

	store := status.NewManager()
	server, _ := newTestBridge(store)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	var body struct {
		Insights []domain.Insight `json:"insights"`
	}
	resp := getJSON(t, srv.URL+"/api/insights", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Insights == nil || len(body.Insights) != 0 {
		t.Errorf("insights = %#v, want empty array", body.Insights)
	}

	store.SetInsights([]domain.Insight{{
		Title:       "Keep your data fresh",
		Description: "Regular syncing improves insight quality.",
		Category:    "General",
		Priority:    domain.PriorityLow,
		ActionItems: []string{"Sync your data"},
		Timestamp:   time.Now().UTC(),
	}})

	resp = getJSON(t, srv.URL+"/api/insights", &body)
	if resp.StatusCode != http.StatusOK || len(body.Insights) != 1 {
		t.Errorf("status = %d, insights = %d, want one insight", resp.StatusCode, len(body.Insights))
	}
}

func TestRootListsEndpoints(t *testing.T) {
	t.Parallel()

	server, _ := newTestBridge(status.NewManager())
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	var body struct {
		Service   string   `json:"service"`
		Endpoints []string `json:"endpoints"`
	}
	getJSON(t, srv.URL+"/", &body)
	if body.Service != "glucopilot-agent-bridge" {
		t.Errorf("service = %q", body.Service)
	}
	if len(body.Endpoints) == 0 {
		t.Error("root should list endpoints")
	}
}

func TestCORSHeaderOnAPIRoutes(t *testing.T) {
	t.Parallel()

	server, _ := newTestBridge(status.NewManager())
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	server, _ := newTestBridge(status.NewManager())
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestWebSocketFeed(t *testing.T) {
	t.Parallel()

	server, hub := newTestBridge(status.NewManager())
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer func() { _ = conn.Close() }()

	waitForClients(t, hub, 1)

	sent := agent.Event{
		ID:   "evt-1",
		Type: agent.EventSyncCompleted,
		At:   time.Now().UTC(),
		Data: map[string]interface{}{"record_count": 2},
	}
	if err := hub.Broadcast(sent); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got agent.Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if got.Type != agent.EventSyncCompleted || got.ID != "evt-1" {
		t.Errorf("event = %+v", got)
	}
}

func TestHubCloseAllDisconnectsClients(t *testing.T) {
	t.Parallel()

	server, hub := newTestBridge(status.NewManager())
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	waitForClients(t, hub, 1)
	hub.CloseAll()
	waitForClients(t, hub, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("read should fail after the hub closed the connection")
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
