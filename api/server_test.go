package api

import (
	"bytes"
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
	"github.com/rs/zerolog"

	"github.com/seenimoa/energybot/internal/backtest"
	"github.com/seenimoa/energybot/internal/chat"
	"github.com/seenimoa/energybot/internal/config"
	"github.com/seenimoa/energybot/internal/forecast"
	"github.com/seenimoa/energybot/internal/infra"
	"github.com/seenimoa/energybot/internal/metrics"
	"github.com/seenimoa/energybot/internal/store"
	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func testServer(t *testing.T, weeks int) *Server {
	t.Helper()
	g := store.Generator{Weeks: weeks, MinPrice: 50, MaxPrice: 100, Start: utils.DefaultEpoch, Seed: 11}
	st, err := g.Build(context.Background(), []models.Commodity{models.Diesel, models.Petroleum, models.LNG})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	reg := prometheus.NewRegistry()
	d := chat.NewDispatcher(st, forecast.NewDefault(), chat.WithMetrics(metrics.New(reg)))

	srv, err := NewServer(Options{
		Config:     &config.Config{Forecast: config.ForecastConfig{HistoryWindow: 10}},
		Dispatcher: d,
		Gatherer:   reg,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// remarshal decodes resp.Data into v.
func remarshal(t *testing.T, data interface{}, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatal(err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Construction
// ════════════════════════════════════════════════════════════════════

func TestNewServerRequiresDispatcher(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Error("NewServer without dispatcher should fail")
	}
}

// ════════════════════════════════════════════════════════════════════
// Health & metrics
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t, 52)
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		resp := decodeResponse(t, rec)
		data, _ := resp.Data.(map[string]interface{})
		if !resp.Success || data["status"] != "ok" || data["version"] != "test" {
			t.Errorf("%s: unexpected body %+v", path, resp)
		}
		if data["commodities"] != float64(3) {
			t.Errorf("%s: commodities = %v", path, data["commodities"])
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, 52)
	do(t, srv, http.MethodPost, "/chat", `{"message":"price of diesel"}`)

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `energybot_utterances_total{intent="current_price"} 1`) {
		t.Errorf("utterance counter missing:\n%s", rec.Body.String())
	}
}

// ════════════════════════════════════════════════════════════════════
// Chat
// ════════════════════════════════════════════════════════════════════

func TestChatPlainEndpoint(t *testing.T) {
	srv := testServer(t, 52)
	rec := do(t, srv, http.MethodPost, "/chat", `{"message":"What is the current price of Diesel?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	resp, _ := body["response"].(string)
	if !strings.HasPrefix(resp, "The current price of Diesel is $") {
		t.Errorf("response = %q", resp)
	}
	if body["intent"] != "current_price" || body["commodity"] != "Diesel" {
		t.Errorf("intent/commodity = %v/%v", body["intent"], body["commodity"])
	}
}

func TestChatV1Endpoint(t *testing.T) {
	srv := testServer(t, 52)
	rec := do(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"help"}`)
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("unexpected failure: %s", resp.Error)
	}
	var reply chat.Reply
	remarshal(t, resp.Data, &reply)
	if !strings.Contains(reply.Text, "Exit or Quit") {
		t.Errorf("help table missing:\n%s", reply.Text)
	}
}

func TestChatExitOverHTTP(t *testing.T) {
	srv := testServer(t, 52)
	rec := do(t, srv, http.MethodPost, "/chat", `{"message":"quit"}`)
	var reply chat.Reply
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Text != "Goodbye!" || !reply.Terminated {
		t.Errorf("reply = %+v", reply)
	}
}

func TestChatBadRequests(t *testing.T) {
	srv := testServer(t, 52)
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"message":`},
		{"empty message", `{"message":""}`},
		{"missing message", `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/v1/chat", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if resp := decodeResponse(t, rec); resp.Success || resp.Error == "" {
				t.Errorf("unexpected body %+v", resp)
			}
		})
	}
}

func TestChatApologyIsOK(t *testing.T) {
	srv := testServer(t, 6)
	rec := do(t, srv, http.MethodPost, "/chat", `{"message":"predict lng"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var reply chat.Reply
	_ = json.NewDecoder(rec.Body).Decode(&reply)
	if !strings.HasPrefix(reply.Text, "Sorry") {
		t.Errorf("expected apology, got %q", reply.Text)
	}
}

// ════════════════════════════════════════════════════════════════════
// Commodities, history & forecast
// ════════════════════════════════════════════════════════════════════

func TestCommodities(t *testing.T) {
	srv := testServer(t, 52)
	resp := decodeResponse(t, do(t, srv, http.MethodGet, "/api/v1/commodities", ""))
	var got []CommodityInfo
	remarshal(t, resp.Data, &got)
	if len(got) != 3 {
		t.Fatalf("got %d commodities, want 3", len(got))
	}
	if got[0].Name != models.Diesel || got[0].Latest < 50 || got[0].Latest > 100 {
		t.Errorf("first = %+v", got[0])
	}
	if got[0].Week != "2024-12-29" {
		t.Errorf("latest week = %q, want 2024-12-29", got[0].Week)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv := testServer(t, 52)

	resp := decodeResponse(t, do(t, srv, http.MethodGet, "/api/v1/commodities/lng/history", ""))
	var body struct {
		Commodity string       `json:"commodity"`
		Points    []PricePoint `json:"points"`
	}
	remarshal(t, resp.Data, &body)
	if body.Commodity != "LNG" || len(body.Points) != 10 {
		t.Errorf("got %s with %d points", body.Commodity, len(body.Points))
	}

	resp = decodeResponse(t, do(t, srv, http.MethodGet, "/api/v1/commodities/LNG/history?weeks=3", ""))
	remarshal(t, resp.Data, &body)
	if len(body.Points) != 3 {
		t.Errorf("weeks=3: got %d points", len(body.Points))
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/commodities/lng/history?weeks=zero", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad weeks: status %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/commodities/coal/history", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown commodity: status %d", rec.Code)
	}
}

func TestForecastEndpoint(t *testing.T) {
	srv := testServer(t, 52)
	rec := do(t, srv, http.MethodGet, "/api/v1/forecast/diesel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var got ForecastResponse
	remarshal(t, decodeResponse(t, rec).Data, &got)
	if len(got.Points) != chat.DefaultHorizon {
		t.Errorf("points = %d, want %d", len(got.Points), chat.DefaultHorizon)
	}
	if got.Points[0].Week != "2025-01-05" {
		t.Errorf("first forecast week = %q, want 2025-01-05", got.Points[0].Week)
	}
	if got.Advice != got.Verdict.Advice() {
		t.Errorf("advice %q does not match verdict %q", got.Advice, got.Verdict)
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	srv := testServer(t, 6)
	rec := do(t, srv, http.MethodGet, "/api/v1/forecast/diesel", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestForecastReport(t *testing.T) {
	srv := testServer(t, 52)

	tests := []struct {
		path        string
		contentType string
		want        string
	}{
		{"/api/v1/forecast/lng/report", "image/svg+xml", "Predicted Prices for LNG"},
		{"/api/v1/forecast/lng/report?format=html&weeks=4", "text/html; charset=utf-8", "<title>LNG price outlook</title>"},
		{"/api/v1/forecast/lng/report?format=text", "text/plain; charset=utf-8", "2025-01-05"},
	}
	for _, tc := range tests {
		rec := do(t, srv, http.MethodGet, tc.path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", tc.path, rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != tc.contentType {
			t.Errorf("%s: Content-Type = %q, want %q", tc.path, ct, tc.contentType)
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Errorf("%s: body missing %q", tc.path, tc.want)
		}
	}
}

func TestForecastReportErrors(t *testing.T) {
	srv := testServer(t, 52)
	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/forecast/coal/report", http.StatusNotFound},
		{"/api/v1/forecast/lng/report?format=pdf", http.StatusBadRequest},
		{"/api/v1/forecast/lng/report?weeks=0", http.StatusBadRequest},
	}
	for _, tc := range tests {
		if rec := do(t, srv, http.MethodGet, tc.path, ""); rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}

	short := testServer(t, 6)
	if rec := do(t, short, http.MethodGet, "/api/v1/forecast/lng/report", ""); rec.Code != http.StatusConflict {
		t.Errorf("short history: status = %d, want 409", rec.Code)
	}
}

func TestIndicatorsEndpoint(t *testing.T) {
	srv := testServer(t, 52)
	rec := do(t, srv, http.MethodGet, "/api/v1/commodities/diesel/indicators", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]interface{}
	remarshal(t, decodeResponse(t, rec).Data, &got)
	for _, key := range []string{"price", "sma_4", "sma_13", "ema_13", "rsi_14", "bollinger_20", "trend"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing %q in %v", key, got)
		}
	}
	if got["commodity"] != "Diesel" {
		t.Errorf("commodity = %v", got["commodity"])
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/commodities/coal/indicators", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown commodity: status = %d, want 404", rec.Code)
	}
}

func TestBacktestEndpoint(t *testing.T) {
	srv := testServer(t, 52)
	rec := do(t, srv, http.MethodGet, "/api/v1/backtest/petroleum?folds=4&horizon=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var got backtest.Result
	remarshal(t, decodeResponse(t, rec).Data, &got)
	if got.Commodity != models.Petroleum {
		t.Errorf("commodity = %q", got.Commodity)
	}
	if len(got.Folds)+got.Skipped != 4 {
		t.Errorf("folds %d + skipped %d, want 4", len(got.Folds), got.Skipped)
	}
	if got.Config.Horizon != 5 {
		t.Errorf("horizon = %d, want 5", got.Config.Horizon)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/backtest/coal", http.StatusNotFound},
		{"/api/v1/backtest/lng?folds=x", http.StatusBadRequest},
		{"/api/v1/backtest/lng?folds=500", http.StatusBadRequest},
		{"/api/v1/backtest/lng?horizon=60", http.StatusConflict},
	}
	for _, tc := range tests {
		if rec := do(t, srv, http.MethodGet, tc.path, ""); rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	srv := testServer(t, 52)
	srv.limiter = infra.NewRateLimiter(2, time.Hour)

	for i := 0; i < 2; i++ {
		if rec := do(t, srv, http.MethodPost, "/chat", `{"message":"hi"}`); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
	rec := do(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health should not be limited, got %d", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// Config
// ════════════════════════════════════════════════════════════════════

func TestConfigSources(t *testing.T) {
	srv := testServer(t, 52)
	resp := decodeResponse(t, do(t, srv, http.MethodGet, "/api/v1/config/sources", ""))
	var got []config.SettingStatus
	remarshal(t, resp.Data, &got)
	if len(got) == 0 || got[0].Name != "data.file" {
		t.Errorf("unexpected sources %+v", got)
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct{ header http.Header }

func (b *brokenWriter) Header() http.Header       { return b.header }
func (b *brokenWriter) WriteHeader(int)           {}
func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteJSONLogsThroughServerLogger(t *testing.T) {
	var buf bytes.Buffer
	srv := &Server{log: zerolog.New(&buf)}

	srv.writeJSON(&brokenWriter{header: http.Header{}}, http.StatusOK, APIResponse{Success: true})

	out := buf.String()
	for _, want := range []string{"failed to write JSON response", "connection reset", `"status":200`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}

	buf.Reset()
	quiet := &Server{log: zerolog.New(&buf).Level(zerolog.ErrorLevel)}
	quiet.writeError(&brokenWriter{header: http.Header{}}, http.StatusBadRequest, "bad")
	if buf.Len() != 0 {
		t.Errorf("warning should respect the configured level, got %s", buf.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrUnknownCommodity, http.StatusNotFound},
		{store.ErrEmptySeries, http.StatusConflict},
		{&forecast.FitError{Err: forecast.ErrInsufficientHistory}, http.StatusConflict},
		{&forecast.FitError{Err: forecast.ErrModelFit}, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", backtest.ErrNoFolds), http.StatusConflict},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) (string, chat.Reply) {
	t.Helper()
	var msg struct {
		Type    string     `json:"type"`
		Message string     `json:"message"`
		Data    chat.Reply `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Data
}

func TestWebSocketSession(t *testing.T) {
	srv := testServer(t, 52)
	conn := dialWS(t, srv)

	send := func(v WSMessage) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(WSMessage{Type: "ping"})
	if typ, _ := readReply(t, conn); typ != "pong" {
		t.Errorf("type = %q, want pong", typ)
	}

	send(WSMessage{Type: "chat", Message: "hello"})
	typ, reply := readReply(t, conn)
	if typ != "reply" || reply.Text != "Hello! How can I assist you with energy prices today?" {
		t.Errorf("greeting = %q %+v", typ, reply)
	}

	send(WSMessage{Type: "chat", Message: "exit"})
	_, reply = readReply(t, conn)
	if !reply.Terminated || reply.Text != "Goodbye!" {
		t.Errorf("exit reply = %+v", reply)
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close after exit, got %v", err)
	}
}

func TestWebSocketRejectsUnknownType(t *testing.T) {
	srv := testServer(t, 52)
	conn := dialWS(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" {
		t.Errorf("type = %q, want error", msg.Type)
	}

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(WSMessage{Type: "subscribe"})
	if err := conn.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || !strings.Contains(msg.Message, "subscribe") {
		t.Errorf("unexpected %+v", msg)
	}
}
