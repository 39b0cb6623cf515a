package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"indodax-market-sentry/pkg/types"
)

const sampleYAML = `
exchange:
  name: indodax
  api_key: key
  api_secret: secret
telegram:
  chat_id: "12345"
scan:
  interval: 30m
  candle_limit: 120
screenshot:
  interval: 15m
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	return dir
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := writeConfig(t, "config.yaml", sampleYAML)
	t.Setenv("TELEGRAM_TOKEN", "bot-token")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "bot-token", cfg.Telegram.Token)
	assert.Equal(t, "12345", cfg.Telegram.ChatID)
	assert.Equal(t, 30*time.Minute, cfg.Scan.Interval)
	assert.Equal(t, 120, cfg.Scan.CandleLimit)
	assert.Equal(t, 15*time.Minute, cfg.Screenshot.Interval)
	// 未配置的项使用默认值
	assert.Equal(t, "1h", cfg.Scan.CandleInterval)
	assert.Equal(t, time.Second, cfg.Scan.PairBackoff)
	assert.Equal(t, "logs/auto_scan_log.csv", cfg.Audit.CSVPath)
	assert.Equal(t, ":8080", cfg.API.Listen)
}

func TestLocalConfigTakesPrecedence(t *testing.T) {
	dir := writeConfig(t, "config.yaml", sampleYAML)
	local := sampleYAML + "\napi:\n  listen: \":9999\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.yaml"), []byte(local), 0o644))
	t.Setenv("TELEGRAM_TOKEN", "bot-token")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.API.Listen)
}

func TestMissingSecretsIsFatal(t *testing.T) {
	dir := writeConfig(t, "config.yaml", "exchange:\n  name: indodax\n")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("EXCHANGE_API_KEY", "")
	t.Setenv("EXCHANGE_API_SECRET", "")

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.True(t, types.IsFatal(err))
	assert.Contains(t, err.Error(), "telegram.token")
	assert.Contains(t, err.Error(), "exchange.api_key")
}

func TestValidateRejectsUnknownExchange(t *testing.T) {
	cfg := &types.Config{
		Exchange: types.ExchangeConfig{Name: "binance", APIKey: "k", APISecret: "s"},
		Telegram: types.TelegramConfig{Token: "t", ChatID: "c"},
		Scan:     types.ScanConfig{CandleLimit: 100},
	}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binance")

	cfg.Exchange.Name = "okx"
	assert.NoError(t, Validate(cfg))
}
