package types

import "time"

// Config 主配置结构
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Exchange   ExchangeConfig   `mapstructure:"exchange"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	DingTalk   DingTalkConfig   `mapstructure:"dingtalk"`
	PushPlus   PushPlusConfig   `mapstructure:"pushplus"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Network    NetworkConfig    `mapstructure:"network"`
	API        APIConfig        `mapstructure:"api"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	FilePath   string `mapstructure:"file_path"`   // 日志输出目录
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件大小 单位：MB，超限后会自动切割
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件存放时间 单位：天
	MaxBackups int    `mapstructure:"max_backups"` // 日志文件备份数量
	Compress   bool   `mapstructure:"compress"`    // 日志文件压缩
}

// ExchangeConfig 交易所配置
type ExchangeConfig struct {
	Name      string `mapstructure:"name"`     // indodax | okx
	BaseURL   string `mapstructure:"base_url"` // 为空时使用交易所默认地址
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// TelegramConfig Telegram机器人配置
type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	ChatID  string `mapstructure:"chat_id"`
	BaseURL string `mapstructure:"base_url"`
}

// DingTalkConfig 钉钉配置
type DingTalkConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Secret     string `mapstructure:"secret"`
}

// PushPlusConfig PushPlus配置
type PushPlusConfig struct {
	UserToken string `mapstructure:"user_token"`
	To        string `mapstructure:"to"` // 好友令牌，多人用逗号分隔
}

// NotifyConfig 通知行为配置
type NotifyConfig struct {
	Startup bool `mapstructure:"startup"` // 启动时发送上线消息和初始截图
	Console bool `mapstructure:"console"` // 额外输出到控制台
}

// ScanConfig 自动扫描配置
type ScanConfig struct {
	Interval        time.Duration `mapstructure:"interval"`          // 扫描周期
	CandleInterval  string        `mapstructure:"candle_interval"`   // K线周期
	CandleLimit     int           `mapstructure:"candle_limit"`      // 每次获取的K线数量
	PairBackoff     time.Duration `mapstructure:"pair_backoff"`      // 单个交易对失败后的等待时间
	AlignToInterval bool          `mapstructure:"align_to_interval"` // 对齐到K线时间点
}

// ScreenshotConfig 定时截图配置
type ScreenshotConfig struct {
	Interval time.Duration `mapstructure:"interval"` // 0 表示关闭
	Command  string        `mapstructure:"command"`  // 截图命令，{file} 会被替换为输出路径
	Dir      string        `mapstructure:"dir"`
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	Tick time.Duration `mapstructure:"tick"` // 任务检查间隔
}

// AuditConfig 审计日志配置
type AuditConfig struct {
	CSVPath       string `mapstructure:"csv_path"`
	SignalLogPath string `mapstructure:"signal_log_path"`
}

// CacheConfig K线缓存配置
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"` // 0 表示不缓存
}

// RedisConfig Redis配置
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NetworkConfig 网络配置
type NetworkConfig struct {
	Proxy   string        `mapstructure:"proxy"`   // HTTP代理地址，如 http://127.0.0.1:7890
	Timeout time.Duration `mapstructure:"timeout"` // 网络超时时间
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
}

// MySQLConfig MySQL配置，Host为空时不启用
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// APIConfig 面板API配置
type APIConfig struct {
	Listen       string        `mapstructure:"listen"`
	PingInterval time.Duration `mapstructure:"ping_interval"` // WebSocket心跳间隔
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}
