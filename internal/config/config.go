// Package config 提供日志查看器服务的配置管理功能。
// 该包负责从 YAML 配置文件加载配置，并支持通过环境变量覆盖敏感配置项
// （如存储密码和 API Key 哈希）。
// 配置包含服务器、存储、事件转发、认证、日志、指标、遥测和保留策略等设置。
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/oriys/cirrus/internal/storage"
	"gopkg.in/yaml.v3"
)

// Config 是查看器服务的主配置结构体，包含所有子系统的配置。
// 该结构体通过 YAML 标签与配置文件进行映射。
type Config struct {
	// Server 服务器配置，包括监听地址与超时
	Server ServerConfig `yaml:"server"`
	// Storage 记录存储配置，包括后端选择与连接信息
	Storage StorageConfig `yaml:"storage"`
	// Events 失败事件转发配置（NATS）
	Events EventsConfig `yaml:"events"`
	// Auth API 访问控制配置
	Auth AuthConfig `yaml:"auth"`
	// Logging 日志配置
	Logging LoggingConfig `yaml:"logging"`
	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics"`
	// Telemetry 查看器自身的遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Retention 记录保留策略配置
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig 服务器配置。
type ServerConfig struct {
	// Host 监听地址，默认 0.0.0.0
	Host string `yaml:"host"`
	// Port HTTP 端口，默认 8000
	Port int `yaml:"port"`
	// RequestTimeoutSec 单个请求的超时时间（秒），默认 60
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
}

// StorageConfig 记录存储配置。
type StorageConfig struct {
	// Backend 存储后端，可选 memory（默认）、redis、postgres
	Backend string `yaml:"backend"`
	// Capacity 内存后端的容量上限（条数），默认 1000
	Capacity int `yaml:"capacity"`
	// Redis Redis 后端连接配置
	Redis storage.RedisConfig `yaml:"redis"`
	// Postgres PostgreSQL 后端连接配置
	Postgres storage.PostgresConfig `yaml:"postgres"`
}

// EventsConfig 失败事件转发配置。
type EventsConfig struct {
	// Enabled 是否启用事件转发，默认 false
	Enabled bool `yaml:"enabled"`
	// URL NATS 服务器地址，如 nats://localhost:4222
	URL string `yaml:"url"`
}

// AuthConfig API 访问控制配置。
type AuthConfig struct {
	// Enabled 是否启用认证，默认 false（内部部署）
	Enabled bool `yaml:"enabled"`
	// Header 携带 API Key 的 HTTP 头名称，默认 X-API-Key
	Header string `yaml:"header"`
	// APIKeyHash API Key 的 SHA-256 哈希，可通过环境变量覆盖
	APIKeyHash string `yaml:"api_key_hash"`
}

// LoggingConfig 日志配置。
type LoggingConfig struct {
	// Level 日志级别（debug/info/warn/error），默认 info
	Level string `yaml:"level"`
	// Format 日志输出格式（json/text），默认 json
	Format string `yaml:"format"`
}

// MetricsConfig Prometheus 指标配置。
type MetricsConfig struct {
	// Enabled 是否启用指标采集，默认 true
	Enabled bool `yaml:"enabled"`
	// Namespace 指标命名空间前缀，默认 cirrus
	Namespace string `yaml:"namespace"`
}

// TelemetryConfig 查看器自身的遥测配置。
// 查看器作为 funclog 的宿主进程，同样通过 OTLP 导出自身的请求追踪。
type TelemetryConfig struct {
	// Enabled 是否启用遥测，默认 false
	Enabled bool `yaml:"enabled"`
	// Endpoint OTLP gRPC 端点地址，默认 localhost:4317
	Endpoint string `yaml:"endpoint"`
	// ServiceName 服务名称，默认 cirrus-viewer
	ServiceName string `yaml:"service_name"`
	// Environment 运行环境标识
	Environment string `yaml:"environment"`
	// SampleRate Span 采样率，默认 1.0
	SampleRate float64 `yaml:"sample_rate"`
	// Format 日志消息模板，为空时使用默认模板
	Format string `yaml:"format"`
}

// RetentionConfig 记录保留策略配置。
type RetentionConfig struct {
	// Enabled 是否启用定时清理，默认 false
	Enabled bool `yaml:"enabled"`
	// Schedule cron 表达式（支持秒级），默认每小时执行一次
	Schedule string `yaml:"schedule"`
	// MaxAgeHours 记录的最长保留时间（小时），默认 24
	MaxAgeHours int `yaml:"max_age_hours"`
}

// Load 从指定路径加载 YAML 配置文件。
// 文件不存在时返回全默认配置；加载后依次应用默认值和环境变量覆盖。
//
// 参数：
//   - path: 配置文件路径
//
// 返回：
//   - *Config: 加载完成的配置
//   - error: 文件读取或解析失败时的错误
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyDefaults 为未设置的配置项填充合理的默认值。
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.RequestTimeoutSec == 0 {
		c.Server.RequestTimeoutSec = 60
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.Capacity == 0 {
		c.Storage.Capacity = storage.DefaultCapacity
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "localhost:6379"
	}
	if c.Storage.Postgres.Host == "" {
		c.Storage.Postgres.Host = "localhost"
	}
	if c.Storage.Postgres.Port == 0 {
		c.Storage.Postgres.Port = 5432
	}
	if c.Storage.Postgres.SSLMode == "" {
		c.Storage.Postgres.SSLMode = "disable"
	}
	if c.Events.URL == "" {
		c.Events.URL = "nats://localhost:4222"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "cirrus"
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4317"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "cirrus-viewer"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = "0 0 * * * *"
	}
	if c.Retention.MaxAgeHours == 0 {
		c.Retention.MaxAgeHours = 24
	}
}

// applyEnvOverrides 应用环境变量覆盖。
// 该方法允许通过环境变量覆盖敏感配置项，支持两种方式：
// 1. 直接设置环境变量（如 CIRRUS_REDIS_PASSWORD）
// 2. 通过 _FILE 后缀指定包含密钥的文件路径（如 CIRRUS_REDIS_PASSWORD_FILE）
// _FILE 方式优先级更高，适用于 Docker Secrets 等场景。
func (c *Config) applyEnvOverrides() {
	if v := readEnvOrFile("CIRRUS_REDIS_PASSWORD", "CIRRUS_REDIS_PASSWORD_FILE"); v != "" {
		c.Storage.Redis.Password = v
	}
	if v := readEnvOrFile("CIRRUS_POSTGRES_PASSWORD", "CIRRUS_POSTGRES_PASSWORD_FILE"); v != "" {
		c.Storage.Postgres.Password = v
	}
	if v := readEnvOrFile("CIRRUS_AUTH_API_KEY_HASH", "CIRRUS_AUTH_API_KEY_HASH_FILE"); v != "" {
		c.Auth.APIKeyHash = v
	}
	if v := strings.TrimSpace(os.Getenv("CIRRUS_OTLP_ENDPOINT")); v != "" {
		c.Telemetry.Endpoint = v
	}
}

// readEnvOrFile 从环境变量或文件读取配置值。
// 优先从 fileKey 指定的文件路径读取，文件不存在或读取失败时
// 回退到 envKey 指定的环境变量。
func readEnvOrFile(envKey, fileKey string) string {
	if filePath := strings.TrimSpace(os.Getenv(fileKey)); filePath != "" {
		if b, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return strings.TrimSpace(os.Getenv(envKey))
}
