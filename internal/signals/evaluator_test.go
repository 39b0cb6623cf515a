package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"indodax-market-sentry/pkg/types"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func row(i int, close float64) types.IndicatorRow {
	return types.IndicatorRow{Candle: types.Candle{
		Timestamp: t0.Add(time.Duration(i) * time.Hour),
		Open:      close, High: close, Low: close, Close: close, Volume: 10,
	}}
}

func withMACD(r types.IndicatorRow, macd, signal float64) types.IndicatorRow {
	r.MACD = types.Float(macd)
	r.MACDSignal = types.Float(signal)
	r.MACDHistogram = types.Float(macd - signal)
	return r
}

func computed(rows ...types.IndicatorRow) *types.IndicatorFrame {
	return &types.IndicatorFrame{Rows: rows, Computed: true}
}

func TestEvaluateLabels(t *testing.T) {
	r0 := withMACD(row(0, 100), -1, 0)
	r0.RSI = types.Float(25)
	r1 := withMACD(row(1, 105), 1, 0)
	r1.RSI = types.Float(75)
	r1.VolumeSpike = true
	r1.BBUpper = types.Float(104)
	r1.BBLower = types.Float(90)
	r2 := withMACD(row(2, 80), -1, 0)
	r2.RSI = types.Float(50)
	r2.BBLower = types.Float(85)

	rows, err := Evaluate("btc_idr", computed(r0, r1, r2))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "", rows[0].MACDLabel)
	assert.Equal(t, types.LabelOversold, rows[0].RSISignal)

	assert.Equal(t, types.LabelBullishCross, rows[1].MACDLabel)
	assert.Equal(t, types.LabelVolumeSpike, rows[1].VolumeSpikeLabel)
	assert.Equal(t, types.LabelOverbought, rows[1].RSISignal)
	assert.Equal(t, types.LabelBreakout, rows[1].BBBreakout)
	assert.Equal(t, types.LabelComboSpike, rows[1].ComboSpike)
	assert.Equal(t, "btc_idr", rows[1].Pair)

	assert.Equal(t, "", rows[2].MACDLabel)
	assert.True(t, rows[2].BearishCross)
	assert.Equal(t, "", rows[2].RSISignal)
	assert.Equal(t, types.LabelBreakdown, rows[2].BBBreakdown)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	frame := computed(withMACD(row(0, 100), -1, 0), withMACD(row(1, 101), 1, 0))
	a, err := Evaluate("eth_idr", frame)
	require.NoError(t, err)
	b, err := Evaluate("eth_idr", frame)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEvaluateMissingIndicators(t *testing.T) {
	rows, err := Evaluate("btc_idr", &types.IndicatorFrame{Rows: []types.IndicatorRow{row(0, 1)}})
	assert.Empty(t, rows)
	assert.True(t, types.IsDataShape(err))
}

func TestRSIThresholds(t *testing.T) {
	cases := map[float64]string{75: types.LabelOverbought, 25: types.LabelOversold, 50: ""}
	for rsi, want := range cases {
		r := row(0, 1)
		r.RSI = types.Float(rsi)
		rows, err := Evaluate("x", computed(r))
		require.NoError(t, err)
		assert.Equal(t, want, rows[0].RSISignal, "rsi %v", rsi)
	}
}

func TestAutoScanRSI(t *testing.T) {
	r := row(0, 1)
	r.RSI = types.Float(75)
	alerts := AutoScanAlerts("btc_idr", computed(r))
	require.Len(t, alerts, 1)
	assert.Equal(t, "RSI Overbought (75.00)", alerts[0].Label)

	r.RSI = types.Float(25)
	alerts = AutoScanAlerts("btc_idr", computed(r))
	require.Len(t, alerts, 1)
	assert.Equal(t, "RSI Oversold (25.00)", alerts[0].Label)
	assert.Equal(t, types.RSIOversold, alerts[0].Kind)

	r.RSI = types.Float(50)
	assert.Empty(t, AutoScanAlerts("btc_idr", computed(r)))
}

func TestAutoScanMACDHistogramFlip(t *testing.T) {
	prev := row(0, 100)
	prev.MACD, prev.MACDSignal, prev.MACDHistogram = types.Float(1.0), types.Float(1.5), types.Float(-0.5)
	cur := row(1, 101)
	cur.MACD, cur.MACDSignal, cur.MACDHistogram = types.Float(1.8), types.Float(1.5), types.Float(0.3)

	alerts := AutoScanAlerts("btc_idr", computed(prev, cur))
	require.Len(t, alerts, 1)
	assert.Equal(t, types.MACDBullishCross, alerts[0].Kind)
	assert.Equal(t, "MACD Bullish Crossover", alerts[0].Label)

	// 柱状图已在零轴上方，不再触发
	next := row(2, 102)
	next.MACD, next.MACDSignal, next.MACDHistogram = types.Float(2.0), types.Float(1.6), types.Float(0.4)
	assert.Empty(t, AutoScanAlerts("btc_idr", computed(prev, cur, next)))
}

func TestAutoScanBearishAndSingleRow(t *testing.T) {
	only := withMACD(row(0, 1), -0.2, 0.1)
	alerts := AutoScanAlerts("x", computed(only))
	require.Len(t, alerts, 1)
	assert.Equal(t, "MACD Bearish Crossover", alerts[0].Label)

	// 上一根柱状图为空时不判断交叉
	prev := row(0, 1)
	cur := withMACD(row(1, 1), 0.5, 0.1)
	assert.Empty(t, AutoScanAlerts("x", computed(prev, cur)))
}

func TestCompositeSignal(t *testing.T) {
	parts, text := CompositeSignal(types.SignalRow{MACDLabel: types.LabelBullishCross, VolumeSpikeLabel: types.LabelVolumeSpike})
	assert.Equal(t, []string{"- MACD: Bullish Cross", "- Volume Spike: Volume Spike"}, parts)
	assert.Equal(t, "- MACD: Bullish Cross; - Volume Spike: Volume Spike", text)

	parts, text = CompositeSignal(types.SignalRow{})
	assert.Empty(t, parts)
	assert.Equal(t, "", text)
}

func TestTail(t *testing.T) {
	rows := make([]types.SignalRow, 8)
	for i := range rows {
		rows[i].Close = float64(i)
	}
	tail := Tail(rows, 5)
	require.Len(t, tail, 5)
	assert.Equal(t, 3.0, tail[0].Close)
	assert.Len(t, Tail(rows[:2], 5), 2)
}
