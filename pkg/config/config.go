package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"indodax-market-sentry/pkg/types"
)

// 密钥文件，存在时加载到环境变量（不覆盖已有环境变量）
var secretFiles = []string{".env", "secrets.env"}

// Load 加载配置
func Load() (*types.Config, error) {
	return LoadFrom("./configs", ".")
}

// LoadFrom 从指定目录加载配置
func LoadFrom(paths ...string) (*types.Config, error) {
	if err := loadSecrets(secretFiles...); err != nil {
		return nil, types.NewError(types.Fatal, "config.secrets", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 设置默认值
	setDefaults(v)

	// 读取环境变量，TELEGRAM_TOKEN -> telegram.token
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 优先尝试读取本地配置文件
	v.SetConfigName("config.local")
	if err := v.ReadInConfig(); err != nil {
		// 如果本地配置文件不存在，尝试读取默认配置文件
		v.SetConfigName("config")
		if err := v.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, types.NewError(types.Fatal, "config.read", err)
			}
		}
	}

	var config types.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, types.NewError(types.Fatal, "config.unmarshal", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 校验必填项，缺失任一项都无法启动
func Validate(cfg *types.Config) error {
	var missing []string
	switch strings.ToLower(cfg.Exchange.Name) {
	case "indodax", "okx":
	case "":
		missing = append(missing, "exchange.name")
	default:
		return types.Errorf(types.Fatal, "config.validate", "unsupported exchange %q", cfg.Exchange.Name)
	}
	if cfg.Exchange.APIKey == "" {
		missing = append(missing, "exchange.api_key")
	}
	if cfg.Exchange.APISecret == "" {
		missing = append(missing, "exchange.api_secret")
	}
	if cfg.Telegram.Token == "" {
		missing = append(missing, "telegram.token")
	}
	if cfg.Telegram.ChatID == "" {
		missing = append(missing, "telegram.chat_id")
	}
	if len(missing) > 0 {
		return types.Errorf(types.Fatal, "config.validate", "missing required settings: %s", strings.Join(missing, ", "))
	}
	if cfg.Scan.CandleLimit <= 0 {
		return types.Errorf(types.Fatal, "config.validate", "scan.candle_limit must be positive")
	}
	if cfg.Screenshot.Interval < 0 {
		return types.Errorf(types.Fatal, "config.validate", "screenshot.interval must not be negative")
	}
	return nil
}

func loadSecrets(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "logs")
	v.SetDefault("log.max_size", 200)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.compress", false)
	v.SetDefault("exchange.name", "indodax")
	v.SetDefault("exchange.base_url", "")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("dingtalk.webhook_url", "")
	v.SetDefault("dingtalk.secret", "")
	v.SetDefault("pushplus.user_token", "")
	v.SetDefault("pushplus.to", "")
	v.SetDefault("notify.startup", true)
	v.SetDefault("notify.console", false)
	v.SetDefault("scan.interval", time.Hour)
	v.SetDefault("scan.candle_interval", "1h")
	v.SetDefault("scan.candle_limit", 100)
	v.SetDefault("scan.pair_backoff", time.Second)
	v.SetDefault("scan.align_to_interval", false)
	v.SetDefault("screenshot.interval", 0)
	v.SetDefault("screenshot.command", "")
	v.SetDefault("screenshot.dir", os.TempDir())
	v.SetDefault("scheduler.tick", time.Second)
	v.SetDefault("audit.csv_path", "logs/auto_scan_log.csv")
	v.SetDefault("audit.signal_log_path", "logs/signal_logs.txt")
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.mysql.host", "")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "")
	v.SetDefault("database.mysql.max_idle_conns", 5)
	v.SetDefault("database.mysql.max_open_conns", 10)
	v.SetDefault("network.proxy", "")
	v.SetDefault("network.timeout", 10*time.Second)
	v.SetDefault("api.listen", ":8080")
	v.SetDefault("api.ping_interval", 20*time.Second)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "indodax-market-sentry")
}
