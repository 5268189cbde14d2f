package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"marketchat/pkg/constant"
)

// Config holds all configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Secure    SecureConfig    `mapstructure:"secure"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN returns the MySQL data source name
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds JWT configuration. Tokens are issued by the identity
// service; only the shared secret is needed here.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	MaxConnNum      int64 `mapstructure:"max_conn_num"`
	MaxMessageSize  int64 `mapstructure:"max_message_size"`
	PushChannelSize int   `mapstructure:"push_channel_size"`
	PushWorkerNum   int   `mapstructure:"push_worker_num"`
}

// CacheConfig holds cache layer TTLs
type CacheConfig struct {
	FirstPageTTL time.Duration `mapstructure:"first_page_ttl"`
	PageTTL      time.Duration `mapstructure:"page_ttl"`
	UnreadTTL    time.Duration `mapstructure:"unread_ttl"`
}

// ArchiveConfig holds archiver settings
type ArchiveConfig struct {
	RetentionDays int           `mapstructure:"retention_days"`
	BatchSize     int           `mapstructure:"batch_size"`
	Interval      time.Duration `mapstructure:"interval"`
}

// CatalogConfig holds catalog service client settings
type CatalogConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SecureConfig holds the optional payload obfuscation settings
type SecureConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SharedSecret string `mapstructure:"shared_secret"`
}

// RateLimitConfig holds per-user send rate limiting settings
type RateLimitConfig struct {
	SendPerSecond float64 `mapstructure:"send_per_second"`
	SendBurst     int     `mapstructure:"send_burst"`
}

// MetricsConfig holds metrics reporting settings
type MetricsConfig struct {
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// Global config instance
var GlobalConfig *Config

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set defaults
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.MySQL.Charset == "" {
		cfg.MySQL.Charset = "utf8mb4"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "marketchat:"
	}
	if cfg.WebSocket.MaxConnNum == 0 {
		cfg.WebSocket.MaxConnNum = 10000
	}
	if cfg.WebSocket.MaxMessageSize == 0 {
		cfg.WebSocket.MaxMessageSize = 51200
	}
	if cfg.WebSocket.PushChannelSize == 0 {
		cfg.WebSocket.PushChannelSize = 1000
	}
	if cfg.WebSocket.PushWorkerNum == 0 {
		cfg.WebSocket.PushWorkerNum = 10
	}
	if cfg.Cache.FirstPageTTL == 0 {
		cfg.Cache.FirstPageTTL = 2 * time.Minute
	}
	if cfg.Cache.PageTTL == 0 {
		cfg.Cache.PageTTL = 5 * time.Minute
	}
	if cfg.Cache.UnreadTTL == 0 {
		cfg.Cache.UnreadTTL = time.Hour
	}
	if cfg.Archive.RetentionDays == 0 {
		cfg.Archive.RetentionDays = constant.DefaultRetentionDays
	}
	if cfg.Archive.BatchSize == 0 {
		cfg.Archive.BatchSize = constant.DefaultArchiveBatch
	}
	if cfg.Archive.Interval == 0 {
		cfg.Archive.Interval = 24 * time.Hour
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 3 * time.Second
	}
	if cfg.RateLimit.SendPerSecond == 0 {
		cfg.RateLimit.SendPerSecond = 2
	}
	if cfg.RateLimit.SendBurst == 0 {
		cfg.RateLimit.SendBurst = 10
	}
	if cfg.Metrics.ReportInterval == 0 {
		cfg.Metrics.ReportInterval = time.Minute
	}

	GlobalConfig = &cfg
	return &cfg, nil
}
