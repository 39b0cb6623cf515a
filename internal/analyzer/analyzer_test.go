package analyzer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"indodax-market-sentry/pkg/types"
)

func TestMarketSignal(t *testing.T) {
	assert.Equal(t, StrongBuy, MarketSignal(130, 100))
	assert.Equal(t, Buy, MarketSignal(110, 100))
	assert.Equal(t, Hold, MarketSignal(100, 100))
	assert.Equal(t, StrongSell, MarketSignal(100, 130))
	assert.Equal(t, Sell, MarketSignal(100, 110))
}

func TestPositionSuggestion(t *testing.T) {
	assert.Equal(t, "Consider LONG", PositionSuggestion(StrongBuy))
	assert.Equal(t, "Consider SHORT", PositionSuggestion(Sell))
	assert.Equal(t, "-", PositionSuggestion(Hold))
}

func TestBuySellRatio(t *testing.T) {
	assert.Equal(t, "Balanced (1.00)", BuySellRatio(0, 0))
	assert.Equal(t, "Demand > Supply (2.00)", BuySellRatio(200, 100))
	assert.Equal(t, "Supply > Demand (0.50)", BuySellRatio(50, 100))
	assert.Equal(t, "Balanced (1.00)", BuySellRatio(100, 100))
}

func TestTopMovers(t *testing.T) {
	tickers := map[string]types.Ticker{}
	for i := 0; i < 15; i++ {
		pair := fmt.Sprintf("c%02d_idr", i)
		tickers[pair] = types.Ticker{Last: float64(1000 + i), High: 110, Low: 100, Change: float64(i), VolIDR: float64(100 - i)}
	}

	ov := TopMovers(tickers, 10)
	require.Len(t, ov.Gainers, 10)
	require.Len(t, ov.Losers, 10)
	require.Len(t, ov.Volume, 10)

	assert.Equal(t, "c14_idr", ov.Gainers[0].Pair)
	assert.Equal(t, "c00_idr", ov.Losers[0].Pair)
	assert.Equal(t, "c00_idr", ov.Volume[0].Pair)
	assert.Equal(t, "10.00%", ov.Gainers[0].SpikePercent)
	assert.Equal(t, "1,014", ov.Gainers[0].Price)
}

func TestTopMoversTieBreak(t *testing.T) {
	tickers := map[string]types.Ticker{
		"b_idr": {Change: 5},
		"a_idr": {Change: 5},
	}
	ov := TopMovers(tickers, 10)
	assert.Equal(t, "a_idr", ov.Gainers[0].Pair)
	assert.Equal(t, "a_idr", ov.Losers[0].Pair)
}
