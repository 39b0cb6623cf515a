package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"indodax-market-sentry/pkg/types"
)

// Manager 审计日志的MySQL镜像，只追加不修改
type Manager struct {
	db     *gorm.DB
	config types.MySQLConfig
}

// AlertRecord 自动扫描告警
type AlertRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"type:varchar(36);index" json:"run_id"`
	Pair       string    `gorm:"type:varchar(32);not null;index:idx_pair_time" json:"pair"`
	DetectedAt time.Time `gorm:"not null;index:idx_pair_time" json:"detected_at"`
	Signals    string    `gorm:"type:varchar(512);not null" json:"signals"`
	CreatedAt  time.Time `json:"created_at"`
}

// SignalRecord 交互扫描发送的信号
type SignalRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Pair       string    `gorm:"type:varchar(32);not null;index:idx_pair_time" json:"pair"`
	SentAt     time.Time `gorm:"not null;index:idx_pair_time" json:"sent_at"`
	SignalText string    `gorm:"type:varchar(512);not null" json:"signal_text"`
	Message    string    `gorm:"type:text" json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewManager 创建数据库管理器
func NewManager(config types.MySQLConfig) (*Manager, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	manager := &Manager{db: db, config: config}
	if err := manager.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	zap.L().Info("✅ MySQL数据库连接成功",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("database", config.Database))

	return manager, nil
}

// AutoMigrate 自动迁移表结构
func (m *Manager) AutoMigrate() error {
	return m.db.AutoMigrate(&AlertRecord{}, &SignalRecord{})
}

// toAlertRecords 转换为数据库模型
func toAlertRecords(entries []types.AlertLogEntry) []AlertRecord {
	records := make([]AlertRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, AlertRecord{
			RunID:      e.RunID,
			Pair:       e.Pair,
			DetectedAt: e.Timestamp,
			Signals:    strings.Join(e.Signals, ", "),
		})
	}
	return records
}

// SaveAlerts 批量写入自动扫描结果
func (m *Manager) SaveAlerts(ctx context.Context, entries []types.AlertLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	records := toAlertRecords(entries)
	return m.db.WithContext(ctx).CreateInBatches(records, 100).Error
}

// SaveSentSignal 写入交互扫描发送记录
func (m *Manager) SaveSentSignal(ctx context.Context, rec types.SentSignalRecord, message string) error {
	return m.db.WithContext(ctx).Create(&SignalRecord{
		Pair:       rec.Pair,
		SentAt:     rec.Time,
		SignalText: rec.SignalText,
		Message:    message,
	}).Error
}

// RecentAlerts 查询最近的告警
func (m *Manager) RecentAlerts(ctx context.Context, pair string, limit int) ([]AlertRecord, error) {
	var records []AlertRecord
	q := m.db.WithContext(ctx).Order("detected_at DESC").Limit(limit)
	if pair != "" {
		q = q.Where("pair = ?", pair)
	}
	err := q.Find(&records).Error
	return records, err
}

// Close 关闭数据库连接
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查连接
func (m *Manager) Health() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
