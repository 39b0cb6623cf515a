package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"indodax-market-sentry/pkg/types"
)

func makeCandles(closes []float64, volumes []float64) []types.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		v := 100.0
		if volumes != nil {
			v = volumes[i]
		}
		out[i] = types.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: v,
		}
	}
	return out
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i)*0.5
	}
	return out
}

func TestApplyWindowsAreNullNotErrors(t *testing.T) {
	frame, err := Apply(makeCandles(wave(40), nil))
	require.NoError(t, err)
	require.True(t, frame.Computed)
	require.Len(t, frame.Rows, 40)

	for i, row := range frame.Rows {
		assert.Equal(t, i >= 25, row.MACD != nil, "macd row %d", i)
		assert.Equal(t, i >= 33, row.MACDSignal != nil, "signal row %d", i)
		assert.Equal(t, i >= 33, row.MACDHistogram != nil, "hist row %d", i)
		assert.Equal(t, i >= 13, row.RSI != nil, "rsi row %d", i)
		assert.Equal(t, i >= 19, row.BBUpper != nil, "bb row %d", i)
		assert.Equal(t, i >= 19, row.VolumeSMA != nil, "vol sma row %d", i)
	}

	last, _ := frame.Last()
	assert.InDelta(t, *last.MACD-*last.MACDSignal, *last.MACDHistogram, 1e-9)
}

func TestApplyShortSeriesHasNoMACD(t *testing.T) {
	frame, err := Apply(makeCandles(wave(20), nil))
	require.NoError(t, err)
	for _, row := range frame.Rows {
		assert.Nil(t, row.MACD)
		assert.Nil(t, row.MACDSignal)
	}
}

func TestVolumeSpike(t *testing.T) {
	closes := make([]float64, 21)
	volumes := make([]float64, 21)
	for i := range closes {
		closes[i] = 1000
		volumes[i] = 100
	}
	volumes[20] = 250

	frame, err := Apply(makeCandles(closes, volumes))
	require.NoError(t, err)

	assert.False(t, frame.Rows[19].VolumeSpike)
	assert.InDelta(t, 100, *frame.Rows[19].VolumeSMA, 1e-9)
	assert.True(t, frame.Rows[20].VolumeSpike)
	// 窗口不足时不视为放量
	assert.False(t, frame.Rows[0].VolumeSpike)
}

func TestApplyFlatSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 50
	}
	frame, err := Apply(makeCandles(closes, nil))
	require.NoError(t, err)

	last, _ := frame.Last()
	assert.InDelta(t, 0, *last.MACD, 1e-12)
	assert.InDelta(t, 50, *last.BBUpper, 1e-9)
	assert.InDelta(t, 50, *last.BBLower, 1e-9)
	assert.Equal(t, 100.0, *last.RSI)
}

func TestApplyRejectsBadData(t *testing.T) {
	frame, err := Apply(nil)
	require.Error(t, err)
	assert.True(t, types.IsDataShape(err))
	assert.False(t, frame.Computed)

	candles := makeCandles(wave(30), nil)
	candles[5].Close = math.NaN()
	frame, err = Apply(candles)
	require.Error(t, err)
	assert.True(t, types.IsDataShape(err))
	assert.False(t, frame.Computed)
	assert.Len(t, frame.Rows, 30)
	assert.Nil(t, frame.Rows[29].RSI)

	candles = makeCandles(wave(30), nil)
	candles[10].Timestamp = candles[9].Timestamp
	_, err = Apply(candles)
	assert.True(t, types.IsDataShape(err))
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{1, 2, 3}, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 5.0/3, got[1], 1e-9)
	assert.InDelta(t, 2.0/3*3+1.0/3*5.0/3, got[2], 1e-9)
}

func TestRSISmallWindow(t *testing.T) {
	got := RSI([]float64{1, 2, 1}, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 100.0, got[1])
	assert.InDelta(t, 100-100/1.5, got[2], 1e-9)
}

func TestBollingerPopulationStd(t *testing.T) {
	upper, lower := Bollinger([]float64{1, 3}, 2, 2)
	assert.True(t, math.IsNaN(upper[0]))
	// 均值2，总体标准差1
	assert.InDelta(t, 4, upper[1], 1e-9)
	assert.InDelta(t, 0, lower[1], 1e-9)
}
