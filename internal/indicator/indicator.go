package indicator

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"indodax-market-sentry/pkg/types"
)

// 指标参数
const (
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	RSIWindow       = 14
	BollingerWindow = 20
	BollingerDev    = 2.0
	VolumeWindow    = 20
	VolumeSpikeMult = 2.0
)

// Apply 在K线序列上计算全部指标
//
// 数据异常（空序列、非有限数值、时间戳不递增）时返回未计算的frame和DataShape错误，
// 调用方记录日志后按无指标处理。
func Apply(candles []types.Candle) (frame *types.IndicatorFrame, err error) {
	frame = &types.IndicatorFrame{Rows: make([]types.IndicatorRow, len(candles))}
	for i, c := range candles {
		frame.Rows[i].Candle = c
	}

	if err := validate(candles); err != nil {
		return frame, err
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("❌ 指标计算panic", zap.Any("error", r))
			for i := range frame.Rows {
				frame.Rows[i] = types.IndicatorRow{Candle: candles[i]}
			}
			frame.Computed = false
			err = types.Errorf(types.DataShape, "indicator.apply", "panic: %v", r)
		}
	}()

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	macd, signal, hist := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	rsi := RSI(closes, RSIWindow)
	upper, lower := Bollinger(closes, BollingerWindow, BollingerDev)
	volSMA := SMA(volumes, VolumeWindow)

	for i := range frame.Rows {
		row := &frame.Rows[i]
		row.MACD = ptr(macd[i])
		row.MACDSignal = ptr(signal[i])
		row.MACDHistogram = ptr(hist[i])
		row.RSI = ptr(rsi[i])
		row.BBUpper = ptr(upper[i])
		row.BBLower = ptr(lower[i])
		row.VolumeSMA = ptr(volSMA[i])
		// SMA为空时不视为放量
		row.VolumeSpike = !math.IsNaN(volSMA[i]) && volumes[i] > VolumeSpikeMult*volSMA[i]
	}
	frame.Computed = true
	return frame, nil
}

func validate(candles []types.Candle) error {
	if len(candles) == 0 {
		return types.Errorf(types.DataShape, "indicator.apply", "empty candle series")
	}
	for i, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return types.Errorf(types.DataShape, "indicator.apply", "non-finite value at row %d", i)
			}
		}
		if i > 0 && !c.Timestamp.After(candles[i-1].Timestamp) {
			return types.NewError(types.DataShape, "indicator.apply",
				fmt.Errorf("timestamps not strictly increasing at row %d", i))
		}
	}
	return nil
}

// EMA 递推指数移动平均，α=2/(period+1)，以首个有效值为种子，
// 有效样本数不足period时为NaN。输入开头的NaN会被跳过。
func EMA(values []float64, period int) []float64 {
	return ewm(values, 2.0/float64(period+1), period)
}

// ewm 非调整的指数加权均值
func ewm(values []float64, alpha float64, minPeriods int) []float64 {
	out := make([]float64, len(values))
	prev := math.NaN()
	seen := 0
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		if seen == 0 {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		seen++
		if seen < minPeriods {
			out[i] = math.NaN()
		} else {
			out[i] = prev
		}
	}
	return out
}

// MACD 返回MACD线、信号线和柱状图
func MACD(closes []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signal = EMA(macd, signalPeriod)
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

// RSI Wilder平滑的相对强弱指数，首个差值按0处理
func RSI(closes []float64, window int) []float64 {
	up := make([]float64, len(closes))
	down := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			up[i] = diff
		} else if diff < 0 {
			down[i] = -diff
		}
	}

	alpha := 1.0 / float64(window)
	avgUp := ewm(up, alpha, window)
	avgDown := ewm(down, alpha, window)

	out := make([]float64, len(closes))
	for i := range closes {
		switch {
		case math.IsNaN(avgDown[i]):
			out[i] = math.NaN()
		case avgDown[i] == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+avgUp[i]/avgDown[i])
		}
	}
	return out
}

// SMA 简单移动平均，窗口不足时为NaN
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// Bollinger 布林带上下轨，标准差为总体标准差
func Bollinger(closes []float64, window int, dev float64) (upper, lower []float64) {
	mid := SMA(closes, window)
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))
	for i := range closes {
		if math.IsNaN(mid[i]) {
			upper[i], lower[i] = math.NaN(), math.NaN()
			continue
		}
		variance := 0.0
		for _, v := range closes[i-window+1 : i+1] {
			variance += (v - mid[i]) * (v - mid[i])
		}
		std := math.Sqrt(variance / float64(window))
		upper[i] = mid[i] + dev*std
		lower[i] = mid[i] - dev*std
	}
	return upper, lower
}

func ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
