package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ExchangeConfig 交易所地址
type ExchangeConfig struct {
	WSURL   string `yaml:"ws_url" json:"ws_url"`
	RESTURL string `yaml:"rest_url" json:"rest_url"`
}

// AuthConfig 认证响应等待方式
type AuthConfig struct {
	Correlation    string `yaml:"correlation" json:"correlation"`           // id | poll
	PollIntervalMs int    `yaml:"poll_interval_ms" json:"poll_interval_ms"` // 轮询间隔，默认 100
	TimeoutMs      int    `yaml:"timeout_ms" json:"timeout_ms"`             // 等待超时，默认 5000
}

// CredentialsConfig 凭证来源
type CredentialsConfig struct {
	File     string `yaml:"file" json:"file"`           // api_key.json 路径
	SecretDB string `yaml:"secret_db" json:"secret_db"` // badger 目录（可选，优先于 File）
}

// RateLimitConfig 限流配置，capacity 为 0 表示该类别不限流
type RateLimitConfig struct {
	MatchingCapacity    int     `yaml:"matching_capacity" json:"matching_capacity"`
	MatchingRefill      float64 `yaml:"matching_refill_per_sec" json:"matching_refill_per_sec"`
	NonMatchingCapacity int     `yaml:"non_matching_capacity" json:"non_matching_capacity"`
	NonMatchingRefill   float64 `yaml:"non_matching_refill_per_sec" json:"non_matching_refill_per_sec"`
}

// TransportConfig WebSocket 参数
type TransportConfig struct {
	HandshakeTimeoutMs int `yaml:"handshake_timeout_ms" json:"handshake_timeout_ms"`
	PingIntervalMs     int `yaml:"ping_interval_ms" json:"ping_interval_ms"`
	History            int `yaml:"history" json:"history"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
	Quiet      bool   `yaml:"quiet" json:"quiet"`
}

// Config 应用配置
type Config struct {
	Exchange    ExchangeConfig    `yaml:"exchange" json:"exchange"`
	Auth        AuthConfig        `yaml:"auth" json:"auth"`
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" json:"rate_limit"`
	Transport   TransportConfig   `yaml:"transport" json:"transport"`
	Log         LogConfig         `yaml:"log" json:"log"`
	// JournalPath 请求日志 SQLite 路径，为空则不记录
	JournalPath string `yaml:"journal_path" json:"journal_path"`
	// MetricsListen expvar/pprof 监听地址，为空则不启动
	MetricsListen string `yaml:"metrics_listen" json:"metrics_listen"`
	// DedupeWindowMs 相同新订单去重窗口，0 表示关闭
	DedupeWindowMs int `yaml:"dedupe_window_ms" json:"dedupe_window_ms"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			WSURL:   "wss://test.deribit.com/ws/api/v2",
			RESTURL: "https://test.deribit.com/api/v2",
		},
		Auth: AuthConfig{
			Correlation:    "id",
			PollIntervalMs: 100,
			TimeoutMs:      5000,
		},
		Credentials: CredentialsConfig{
			File: "api_key.json",
		},
		RateLimit: RateLimitConfig{
			MatchingCapacity:    20,
			MatchingRefill:      5,
			NonMatchingCapacity: 100,
			NonMatchingRefill:   20,
		},
		Transport: TransportConfig{
			HandshakeTimeoutMs: 10000,
			PingIntervalMs:     15000,
			History:            50,
		},
		Log: LogConfig{
			Level:      "info",
			File:       "logs/deribit-cli.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
			Quiet:      true,
		},
		DedupeWindowMs: 1000,
	}
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）。
// filePath 为空时只使用默认值与环境变量；当前目录存在 .env 时先加载。
func Load(filePath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("加载 .env 失败: %w", err)
		}
	}

	cfg := Default()
	if filePath != "" {
		if err := loadConfigFile(filePath, cfg); err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON），文件中缺省的字段保留默认值
func loadConfigFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Exchange.WSURL = getEnv("DERIBIT_URL", cfg.Exchange.WSURL)
	cfg.Exchange.RESTURL = getEnv("DERIBIT_REST_URL", cfg.Exchange.RESTURL)
	cfg.Auth.Correlation = getEnv("DERIBIT_CORRELATION", cfg.Auth.Correlation)
	cfg.Auth.TimeoutMs = parseIntEnv("DERIBIT_AUTH_TIMEOUT_MS", cfg.Auth.TimeoutMs)
	cfg.Credentials.File = getEnv("DERIBIT_KEY_FILE", cfg.Credentials.File)
	cfg.Credentials.SecretDB = getEnv("DBT_SECRET_DB", cfg.Credentials.SecretDB)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Quiet = parseBoolEnv("LOG_QUIET", cfg.Log.Quiet)
	cfg.JournalPath = getEnv("DBT_JOURNAL", cfg.JournalPath)
	cfg.MetricsListen = getEnv("METRICS_LISTEN", cfg.MetricsListen)
	cfg.DedupeWindowMs = parseIntEnv("DBT_DEDUPE_WINDOW_MS", cfg.DedupeWindowMs)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := validateURL("exchange.ws_url", c.Exchange.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.Exchange.RESTURL != "" {
		if err := validateURL("exchange.rest_url", c.Exchange.RESTURL, "http", "https"); err != nil {
			return err
		}
	}
	switch c.Auth.Correlation {
	case "id", "poll":
	default:
		return fmt.Errorf("auth.correlation 必须是 id 或 poll，当前为 %q", c.Auth.Correlation)
	}
	if c.Auth.PollIntervalMs <= 0 {
		return fmt.Errorf("auth.poll_interval_ms 必须大于 0")
	}
	if c.Auth.TimeoutMs < c.Auth.PollIntervalMs {
		return fmt.Errorf("auth.timeout_ms (%d) 不能小于 poll_interval_ms (%d)", c.Auth.TimeoutMs, c.Auth.PollIntervalMs)
	}
	if c.RateLimit.MatchingCapacity < 0 || c.RateLimit.NonMatchingCapacity < 0 {
		return fmt.Errorf("rate_limit 容量不能为负数")
	}
	if c.DedupeWindowMs < 0 {
		return fmt.Errorf("dedupe_window_ms 不能为负数")
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s 不能为空", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s 无效: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s 协议必须是 %s，当前为 %q", field, strings.Join(schemes, "/"), u.Scheme)
}

// PollInterval 轮询间隔
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Auth.PollIntervalMs) * time.Millisecond
}

// AuthTimeout 等待超时
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.Auth.TimeoutMs) * time.Millisecond
}

// DedupeWindow 去重窗口
func (c *Config) DedupeWindow() time.Duration {
	return time.Duration(c.DedupeWindowMs) * time.Millisecond
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
