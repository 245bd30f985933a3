package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	QR        QRConfig        `mapstructure:"qr"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"` // debug / release
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	IdleTimeout    int      `mapstructure:"idle_timeout_seconds"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsRelease 是否为生产模式
func (c ServerConfig) IsRelease() bool {
	return strings.EqualFold(strings.TrimSpace(c.Mode), "release")
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 后台 JWT 配置，仅用于校验员工令牌
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"` // 仅用于限流等辅助键，会话键不加前缀
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// QRConfig 扫码入座配置
type QRConfig struct {
	TokenLength       int    `mapstructure:"token_length"`
	TokenTTLSeconds   int    `mapstructure:"token_ttl_seconds"`
	SessionTTLSeconds int    `mapstructure:"session_ttl_seconds"`
	BindToIP          bool   `mapstructure:"bind_to_ip"`
	ClientURL         string `mapstructure:"client_url"` // 可配置多个，逗号分隔，深链取第一个
	TableCacheSeconds int    `mapstructure:"table_cache_seconds"`
}

// TokenTTL 一次性令牌有效期
func (c QRConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

// SessionTTL 桌台会话有效期
func (c QRConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// PrimaryClientURL 返回深链使用的前端地址
func (c QRConfig) PrimaryClientURL() string {
	first := strings.Split(c.ClientURL, ",")[0]
	return strings.TrimRight(strings.TrimSpace(first), "/")
}

// RateLimitConfig 接口限流配置
type RateLimitConfig struct {
	Issue   RateLimitRuleConfig `mapstructure:"issue"`
	Consume RateLimitRuleConfig `mapstructure:"consume"`
}

// RateLimitRuleConfig 单条限流规则
type RateLimitRuleConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// RealtimeConfig 实时推送配置
type RealtimeConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	WriteWaitSeconds int      `mapstructure:"write_wait_seconds"`
	PongWaitSeconds  int      `mapstructure:"pong_wait_seconds"`
	MaxMessageBytes  int64    `mapstructure:"max_message_bytes"`
	SendBuffer       int      `mapstructure:"send_buffer"`
	EventsPerSecond  float64  `mapstructure:"events_per_second"`
	Burst            int      `mapstructure:"burst"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")         // 从当前目录查找
	v.AddConfigPath("../")       // 如果从 cmd/server 运行
	v.AddConfigPath("./configs") // configs 文件夹

	setDefaults(v)

	// 环境变量支持，例如 qr.bind_to_ip -> QR_BIND_TO_IP
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorw("config_invalid", "error", err)
		panic(fmt.Errorf("配置校验失败: %w", err))
	}

	return &cfg
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if c.QR.TokenLength < 8 || c.QR.TokenLength > 128 {
		return fmt.Errorf("qr.token_length must be within [8,128], got %d", c.QR.TokenLength)
	}
	if c.QR.TokenTTLSeconds <= 0 {
		return fmt.Errorf("qr.token_ttl_seconds must be positive, got %d", c.QR.TokenTTLSeconds)
	}
	if c.QR.SessionTTLSeconds <= 0 {
		return fmt.Errorf("qr.session_ttl_seconds must be positive, got %d", c.QR.SessionTTLSeconds)
	}
	if c.QR.PrimaryClientURL() == "" {
		return fmt.Errorf("qr.client_url is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.trusted_proxies", []string{"127.0.0.1", "::1"})
	v.SetDefault("server.idle_timeout_seconds", 120)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "tableside.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.stdout", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/tableside.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "ts")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.queues", map[string]int{
		"default": 10,
		"audit":   3,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Table-Session",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("qr.token_length", 24)
	v.SetDefault("qr.token_ttl_seconds", 300)
	v.SetDefault("qr.session_ttl_seconds", 7200)
	v.SetDefault("qr.bind_to_ip", false)
	v.SetDefault("qr.client_url", "http://localhost:3000")
	v.SetDefault("qr.table_cache_seconds", 300)
	v.SetDefault("rate_limit.issue.window_seconds", 60)
	v.SetDefault("rate_limit.issue.max_requests", 5)
	v.SetDefault("rate_limit.issue.block_seconds", 60)
	v.SetDefault("rate_limit.consume.window_seconds", 60)
	v.SetDefault("rate_limit.consume.max_requests", 30)
	v.SetDefault("rate_limit.consume.block_seconds", 60)
	v.SetDefault("realtime.allowed_origins", []string{"*"})
	v.SetDefault("realtime.write_wait_seconds", 10)
	v.SetDefault("realtime.pong_wait_seconds", 60)
	v.SetDefault("realtime.max_message_bytes", 4096)
	v.SetDefault("realtime.send_buffer", 32)
	v.SetDefault("realtime.events_per_second", 10)
	v.SetDefault("realtime.burst", 20)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
