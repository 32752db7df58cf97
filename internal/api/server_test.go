package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"SignalDesk/internal/analyzer"
	"SignalDesk/internal/collector"
	"SignalDesk/internal/crossover"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/scheduler"
	"SignalDesk/internal/strategy"
)

type fakeGroups struct {
	latest map[string]*model.GroupAnalysisResult
	runs   int
}

func (f *fakeGroups) Groups() []model.Group {
	return []model.Group{
		{ID: "tech", Name: "Tech", Enabled: true, Symbols: []model.SymbolConfig{
			{Symbol: "AAPL", Enabled: true}, {Symbol: "MSFT", Enabled: false},
		}},
		{ID: "off", Name: "Off", Enabled: false},
	}
}

func (f *fakeGroups) RunNow(_ context.Context, id string) (*model.GroupAnalysisResult, error) {
	switch id {
	case "tech":
		f.runs++
		return &model.GroupAnalysisResult{RunID: fmt.Sprintf("run-%d", f.runs), GroupID: id}, nil
	case "off":
		return nil, fmt.Errorf("%w: off", scheduler.ErrGroupDisabled)
	}
	return nil, fmt.Errorf("%w: %s", scheduler.ErrUnknownGroup, id)
}

func (f *fakeGroups) Latest(_ context.Context, id string) (*model.GroupAnalysisResult, error) {
	if res, ok := f.latest[id]; ok {
		return res, nil
	}
	if id == "tech" {
		return nil, fmt.Errorf("group tech: %w", recorder.ErrNotFound)
	}
	return nil, errors.New("database is locked")
}

func newTestServer(t *testing.T, secret string) (*Server, *httptest.Server) {
	t.Helper()
	an := analyzer.New(&collector.MockFetcher{}, strategy.NewRegistry(), analyzer.Options{
		Crossover: crossover.DefaultSettings(),
	})
	s := NewServer(&fakeGroups{}, an, metrics.NewMetrics(prometheus.NewRegistry()), secret)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func do(t *testing.T, method, url, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, _ := http.NewRequest(method, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestRoutes(t *testing.T) {
	_, srv := newTestServer(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"groups", http.MethodGet, "/api/groups", http.StatusOK},
		{"analyze", http.MethodPost, "/api/groups/tech/analyze", http.StatusOK},
		{"analyze disabled", http.MethodPost, "/api/groups/off/analyze", http.StatusConflict},
		{"analyze unknown", http.MethodPost, "/api/groups/nope/analyze", http.StatusNotFound},
		{"analyze wrong method", http.MethodGet, "/api/groups/tech/analyze", http.StatusMethodNotAllowed},
		{"latest missing", http.MethodGet, "/api/groups/tech/latest", http.StatusNotFound},
		{"latest backend error", http.MethodGet, "/api/groups/other/latest", http.StatusInternalServerError},
		{"symbol", http.MethodGet, "/api/symbols/AAPL?timeframe=1d&period=1y", http.StatusOK},
		{"symbol bad timeframe", http.MethodGet, "/api/symbols/AAPL?timeframe=7m", http.StatusBadRequest},
		{"symbol bad period", http.MethodGet, "/api/symbols/AAPL?period=forever", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, tt.method, srv.URL+tt.path, "")
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestGroupsView(t *testing.T) {
	_, srv := newTestServer(t, "")
	resp, err := http.Get(srv.URL + "/api/groups")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var groups []groupView
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(groups) != 2 || groups[0].Symbols != 2 || groups[0].Active != 1 || groups[1].Enabled {
		t.Errorf("groups = %+v", groups)
	}
}

func TestSymbolAnalysis(t *testing.T) {
	_, srv := newTestServer(t, "")
	_, body := do(t, http.MethodGet, srv.URL+"/api/symbols/btc?strategy=dual-supertrend&asset_type=crypto", "")
	if body["success"] != true {
		t.Fatalf("body = %v", body)
	}
	if body["strategy"] != strategy.DualSupertrendName || body["key"] != "BTC_1d" {
		t.Errorf("strategy = %v key = %v", body["strategy"], body["key"])
	}
	if _, ok := body["tally"].(map[string]interface{}); !ok {
		t.Errorf("tally missing: %v", body)
	}
}

func TestAuth(t *testing.T) {
	s, srv := newTestServer(t, "s3cret")
	token, err := s.JWT().GenerateToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	expired, _ := s.JWT().GenerateToken("ops", -time.Minute)
	foreign, _ := NewJWTManager("other").GenerateToken("ops", time.Hour)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"no token", "/api/groups", "", http.StatusUnauthorized},
		{"valid", "/api/groups", token, http.StatusOK},
		{"expired", "/api/groups", expired, http.StatusUnauthorized},
		{"wrong key", "/api/groups", foreign, http.StatusUnauthorized},
		{"health stays open", "/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, http.MethodGet, srv.URL+tt.path, tt.token)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/groups", nil)
	req.Header.Set("Authorization", "Token "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("non-bearer scheme status = %d", resp.StatusCode)
	}
}

func TestValidateTokenRejectsNone(t *testing.T) {
	jm := NewJWTManager("k")
	// alg "none" token for {"sub":"x"}
	none := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ4In0."
	if _, err := jm.ValidateToken(none); err == nil {
		t.Error("unsigned token accepted")
	}
	tok, _ := jm.GenerateToken("x", time.Hour)
	claims, err := jm.ValidateToken(tok)
	if err != nil || claims.Subject != "x" || claims.Issuer != "signaldesk" {
		t.Errorf("claims = %+v, err %v", claims, err)
	}
}

func TestWebsocketBroadcast(t *testing.T) {
	s, srv := newTestServer(t, "")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Hub().Broadcast(&model.GroupAnalysisResult{RunID: "r1", GroupID: "tech", Sentiment: model.Bearish})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != "group_result" || env.Data == nil || env.Data.RunID != "r1" || env.Data.Sentiment != model.Bearish {
		t.Errorf("envelope = %+v", env)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for s.Hub().Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := s.Hub().Len(); n != 0 {
		t.Errorf("clients after close = %d", n)
	}
}

func TestWebsocketRequiresToken(t *testing.T) {
	s, srv := newTestServer(t, "s3cret")
	token, err := s.JWT().GenerateToken("dashboard", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	tests := []struct {
		name   string
		url    string
		header http.Header
		ok     bool
	}{
		{"no token", base, nil, false},
		{"bad query token", base + "?token=garbage", nil, false},
		{"query token", base + "?token=" + token, nil, true},
		{"bearer header", base, http.Header{"Authorization": {"Bearer " + token}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(tt.url, tt.header)
			if !tt.ok {
				if err == nil {
					conn.Close()
					t.Fatal("unauthenticated dial was accepted")
				}
				if resp == nil || resp.StatusCode != http.StatusUnauthorized {
					t.Errorf("handshake response = %v, want 401", resp)
				}
				return
			}
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			conn.Close()
		})
	}

	// the query token is only honoured on websocket handshakes
	resp, _ := do(t, http.MethodGet, srv.URL+"/api/groups?token="+token, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("query token on /api/groups: status = %d", resp.StatusCode)
	}
}
