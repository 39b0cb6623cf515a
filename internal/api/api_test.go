package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"indodax-market-sentry/internal/scanner"
	"indodax-market-sentry/internal/scheduler"
	"indodax-market-sentry/internal/storage"
	"indodax-market-sentry/pkg/types"
)

type stubGateway struct {
	candles []types.Candle
	summary *types.Summary
	trades  []types.Trade
	tickers map[string]types.Ticker
	err     error
}

func (g *stubGateway) ListPairs(context.Context) ([]string, error) { return []string{"btc_idr"}, g.err }

func (g *stubGateway) GetSummary(context.Context, string) (*types.Summary, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.summary, nil
}

func (g *stubGateway) GetTrades(context.Context, string) ([]types.Trade, error) { return g.trades, g.err }

func (g *stubGateway) GetCandles(context.Context, string, string, int) ([]types.Candle, error) {
	return g.candles, g.err
}

func (g *stubGateway) GetTickers(context.Context) (map[string]types.Ticker, error) {
	if g.err != nil {
		return map[string]types.Ticker{}, g.err
	}
	return g.tickers, nil
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *stubNotifier) SendText(_ context.Context, m string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return true
}

func (n *stubNotifier) SendPhoto(context.Context, string, string) bool { return true }

type stubJobs struct{}

func (stubJobs) Jobs() []scheduler.JobStatus {
	return []scheduler.JobStatus{{Name: "auto-scan", Interval: time.Hour}}
}

func spikeCandles() []types.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Candle, 40)
	for i := range out {
		out[i] = types.Candle{Timestamp: start.Add(time.Duration(i) * time.Hour), Volume: 100}
	}
	out[39].Volume = 250
	return out
}

func newTestServer(gw *stubGateway) (*Server, *stubNotifier, *Hub) {
	n := &stubNotifier{}
	state := storage.NewSessionState()
	hub := NewHub(time.Second)
	interactive := scanner.NewInteractive(gw, n, state, nil, 100).WithPublisher(hub)
	return NewServer(gw, interactive, state, stubJobs{}, hub, []string{"btc_idr", "eth_idr"}), n, hub
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.SetupRoutes().ServeHTTP(w, req)

	var body map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealthAndPairs(t *testing.T) {
	s, _, _ := newTestServer(&stubGateway{})

	w, body := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeaderKey))

	w, body = do(t, s, http.MethodGet, "/api/pairs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["pairs"], 2)
}

func TestHealthReportsCacheStats(t *testing.T) {
	s, _, _ := newTestServer(&stubGateway{})
	cache := storage.NewCandleCache(types.RedisConfig{}, time.Minute)
	cache.Set(context.Background(), storage.Key("btc_idr", "1h", 100), []types.Candle{{Close: 1}})
	s.WithCache(cache)

	w, body := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	stats, ok := body["cache"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, stats["redis_enabled"])
	assert.Equal(t, float64(1), stats["memory_keys"])
	assert.Equal(t, "1m0s", stats["ttl"])
}

func TestUnknownPairAndInterval(t *testing.T) {
	s, _, _ := newTestServer(&stubGateway{})

	w, _ := do(t, s, http.MethodGet, "/api/pairs/doge_idr/signals")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/pairs/btc_idr/signals?interval=7h")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanDedupAndReset(t *testing.T) {
	gw := &stubGateway{candles: spikeCandles(), summary: &types.Summary{Last: 1000}}
	s, n, _ := newTestServer(gw)

	_, body := do(t, s, http.MethodPost, "/api/pairs/btc_idr/scan?interval=1H")
	assert.Equal(t, "sent", body["outcome"])

	_, body = do(t, s, http.MethodPost, "/api/pairs/btc_idr/scan?interval=1H")
	assert.Equal(t, "already_sent", body["outcome"])
	assert.Len(t, n.sent, 1)

	_, body = do(t, s, http.MethodGet, "/api/signals/sent")
	assert.Len(t, body["signals"], 1)

	_, body = do(t, s, http.MethodPost, "/api/signals/reset")
	assert.Equal(t, float64(1), body["cleared"])

	_, body = do(t, s, http.MethodPost, "/api/pairs/btc_idr/scan")
	assert.Equal(t, "sent", body["outcome"])
}

func TestSignalsTail(t *testing.T) {
	s, _, _ := newTestServer(&stubGateway{candles: spikeCandles()})
	w, body := do(t, s, http.MethodGet, "/api/pairs/btc_idr/signals?interval=4h")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["rows"], 5)
	assert.Nil(t, body["warning"])
}

func TestGatewayFailureIsInlineWarning(t *testing.T) {
	gw := &stubGateway{err: types.Errorf(types.Transient, "test", "exchange down")}
	s, _, _ := newTestServer(gw)

	w, body := do(t, s, http.MethodGet, "/api/pairs/btc_idr/summary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["warnings"], 2)

	w, body = do(t, s, http.MethodGet, "/api/market/overview")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["warning"], "exchange down")

	_, body = do(t, s, http.MethodPost, "/api/pairs/btc_idr/scan")
	assert.Equal(t, "no_data", body["outcome"])
}

func TestSummaryMarketSignal(t *testing.T) {
	gw := &stubGateway{
		summary: &types.Summary{Pair: "btc_idr", Last: 110, Low: 100},
		trades:  []types.Trade{{Side: "buy", Amount: 30}, {Side: "sell", Amount: 10}},
	}
	s, _, _ := newTestServer(gw)

	_, body := do(t, s, http.MethodGet, "/api/pairs/btc_idr/summary")
	assert.Equal(t, "STRONG BUY", body["market_signal"])
	assert.Equal(t, "Consider LONG", body["suggestion"])
	assert.InDelta(t, 10.0, body["roi_percent"], 1e-9)
	assert.Equal(t, "100", body["open_24h"])
}

func TestJobsAndResults(t *testing.T) {
	s, _, _ := newTestServer(&stubGateway{})
	s.state.AppendScanResults(types.AlertLogEntry{Pair: "btc_idr", Signals: []string{"RSI Oversold (20.00)"}})

	_, body := do(t, s, http.MethodGet, "/api/jobs")
	assert.Len(t, body["jobs"], 1)

	_, body = do(t, s, http.MethodGet, "/api/autoscan/results")
	assert.Len(t, body["results"], 1)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(&stubGateway{})
	w, _ := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scan_runs_total")
}

func TestWebSocketReceivesInteractiveSend(t *testing.T) {
	gw := &stubGateway{candles: spikeCandles(), summary: &types.Summary{Last: 1000}}
	s, _, hub := newTestServer(gw)
	srv := httptest.NewServer(s.SetupRoutes())
	defer srv.Close()
	defer hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/alerts", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/pairs/btc_idr/scan?interval=1H", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event types.AlertEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "interactive", event.Type)
	assert.Equal(t, "btc_idr", event.Pair)
	assert.Contains(t, event.Message, "📢 Signal detected on BTC_IDR (1 Hour)")
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	// 客户端不读取，发送队列和底层缓冲写满后被断开
	big := strings.Repeat("x", 64*1024)
	require.Eventually(t, func() bool {
		hub.Publish(types.AlertEvent{Pair: "btc_idr", Message: big})
		return hub.Count() == 0
	}, 10*time.Second, time.Millisecond)
}
