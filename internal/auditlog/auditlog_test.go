package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"indodax-market-sentry/pkg/types"
)

var ts = time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestCSVHeaderWrittenOnceForEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "auto_scan_log.csv")
	log := NewCSVLog(path)

	require.NoError(t, log.Append([]types.AlertLogEntry{
		{Timestamp: ts, Pair: "btc_idr", Signals: []string{"RSI Overbought (75.00)"}},
	}))
	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "Timestamp,Pair,Detected Signals", lines[0])
	assert.Equal(t, "2024-06-01 13:00:00,btc_idr,RSI Overbought (75.00)", lines[1])

	require.NoError(t, log.Append([]types.AlertLogEntry{
		{Timestamp: ts, Pair: "eth_idr", Signals: []string{"RSI Oversold (20.00)", "MACD Bullish Crossover"}},
	}))
	lines = readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, `2024-06-01 13:00:00,eth_idr,"RSI Oversold (20.00), MACD Bullish Crossover"`, lines[2])
}

func TestCSVExistingEmptyFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auto_scan_log.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, NewCSVLog(path).Append([]types.AlertLogEntry{{Timestamp: ts, Pair: "x", Signals: []string{"a"}}}))
	lines := readLines(t, path)
	assert.Len(t, lines, 2)
	assert.Equal(t, "Timestamp,Pair,Detected Signals", lines[0])
}

func TestCSVConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auto_scan_log.csv")
	log := NewCSVLog(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = log.Append([]types.AlertLogEntry{{Timestamp: ts, Pair: "p", Signals: []string{"s"}}})
		}()
	}
	wg.Wait()
	assert.Len(t, readLines(t, path), 21)
}

func TestSignalLogLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signal_logs.txt")
	log := NewSignalLog(path)

	require.NoError(t, log.Append(ts, "btc_idr", "📢 Signal detected on BTC_IDR (1 Hour)\n- MACD: Bullish Cross\n- Price: 1,000"))
	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "2024-06-01 13:00:00 - btc_idr - 📢 Signal detected on BTC_IDR (1 Hour) | - MACD: Bullish Cross | - Price: 1,000", lines[0])
}
