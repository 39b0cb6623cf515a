package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"indodax-market-sentry/pkg/types"
)

func TestToAlertRecords(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := toAlertRecords([]types.AlertLogEntry{
		{Timestamp: ts, Pair: "btc_idr", Signals: []string{"RSI Overbought (75.00)", "MACD Bullish Crossover"}, RunID: "run-1"},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "btc_idr", records[0].Pair)
	assert.Equal(t, ts, records[0].DetectedAt)
	assert.Equal(t, "RSI Overbought (75.00), MACD Bullish Crossover", records[0].Signals)
	assert.Equal(t, "run-1", records[0].RunID)
}
