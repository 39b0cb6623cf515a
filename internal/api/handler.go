package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"indodax-market-sentry/internal/analyzer"
	"indodax-market-sentry/internal/fetcher"
	"indodax-market-sentry/internal/format"
	"indodax-market-sentry/pkg/types"
)

// HealthCheck handles GET /healthz
func (s *Server) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"pairs":     len(s.pairs),
		"ws_conns":  s.hub.Count(),
	}
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cacheStatsTimeout)
		defer cancel()
		resp["cache"] = s.cache.Stats(ctx)
	}
	c.JSON(http.StatusOK, resp)
}

// ListPairs handles GET /api/pairs
func (s *Server) ListPairs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pairs": s.pairs})
}

// GetSummary handles GET /api/pairs/:pair/summary
func (s *Server) GetSummary(c *gin.Context) {
	pair, ok := s.pairParam(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	resp := gin.H{"pair": pair}
	var warnings []string

	summary, err := s.gateway.GetSummary(ctx, pair)
	if err != nil {
		warnings = append(warnings, err.Error())
	} else {
		// 没有open时依次退回到最低价、最新价
		base := summary.Open
		if base <= 0 {
			base = summary.Low
		}
		if base <= 0 {
			base = summary.Last
		}
		resp["summary"] = summary
		resp["open_24h"] = format.IDRInt(base)
		resp["roi_percent"] = types.ChangePercent(summary.Last, base)
		resp["price"] = format.Price(summary.Last, pair)
		resp["volume"] = format.Volume(summary.VolIDR)
	}

	trades, err := s.gateway.GetTrades(ctx, pair)
	if err != nil {
		warnings = append(warnings, err.Error())
	} else {
		vol := fetcher.SumTradeVolume(trades)
		signal := analyzer.MarketSignal(vol.Buy, vol.Sell)
		resp["buy_volume"] = format.TokenAmount(vol.Buy)
		resp["sell_volume"] = format.TokenAmount(vol.Sell)
		resp["buy_sell_ratio"] = analyzer.BuySellRatio(vol.Buy, vol.Sell)
		resp["market_signal"] = signal
		resp["suggestion"] = analyzer.PositionSuggestion(signal)
	}

	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

// GetSignals handles GET /api/pairs/:pair/signals?interval=1H
func (s *Server) GetSignals(c *gin.Context) {
	pair, ok := s.pairParam(c)
	if !ok {
		return
	}
	interval, ok := intervalParam(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	rows, err := s.interactive.Inspect(ctx, pair, interval)
	if rows == nil {
		rows = []types.SignalRow{}
	}
	resp := gin.H{"pair": pair, "interval": interval, "rows": rows}
	if err != nil {
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// ScanPair handles POST /api/pairs/:pair/scan?interval=1H
func (s *Server) ScanPair(c *gin.Context) {
	pair, ok := s.pairParam(c)
	if !ok {
		return
	}
	interval, ok := intervalParam(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	res, err := s.interactive.Scan(ctx, pair, interval)
	if err != nil {
		s.handleError(c, err, http.StatusInternalServerError, "scan failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

// SentSignals handles GET /api/signals/sent
func (s *Server) SentSignals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"signals": s.state.SentSignals()})
}

// ResetSignals handles POST /api/signals/reset
func (s *Server) ResetSignals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cleared": s.interactive.Reset()})
}

// AutoScanResults handles GET /api/autoscan/results
func (s *Server) AutoScanResults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": s.state.ScanResults()})
}

// Jobs handles GET /api/jobs
func (s *Server) Jobs(c *gin.Context) {
	if s.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []interface{}{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": s.jobs.Jobs()})
}

// MarketOverview handles GET /api/market/overview
func (s *Server) MarketOverview(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultTimeout)
	defer cancel()

	tickers, err := s.gateway.GetTickers(ctx)
	resp := gin.H{"overview": analyzer.TopMovers(tickers, overviewSize)}
	if err != nil {
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// pairParam 校验交易对是否在启动时获取的列表中
func (s *Server) pairParam(c *gin.Context) (string, bool) {
	pair := c.Param("pair")
	if len(s.pairs) == 0 {
		return pair, true
	}
	for _, p := range s.pairs {
		if p == pair {
			return pair, true
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown pair: " + pair})
	return "", false
}

func intervalParam(c *gin.Context) (string, bool) {
	interval := c.DefaultQuery("interval", DefaultInterval)
	if _, ok := fetcher.ParseInterval(interval); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported interval: " + interval})
		return "", false
	}
	return interval, true
}

// handleError logs the error and sends appropriate HTTP response
func (s *Server) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	requestID := c.GetString(RequestIDContextKey)
	zap.L().Error("API error",
		zap.String("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
		zap.Int("status_code", statusCode))

	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": requestID,
	})
}
