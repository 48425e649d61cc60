package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/sirupsen/logrus"
)

// 存储驱动
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `ini:"server"`
	Cache     CacheConfig     `ini:"cache"`
	Etcd      EtcdConfig      `ini:"etcd"`
	Database  DatabaseConfig  `ini:"database"`
	RateLimit RateLimitConfig `ini:"ratelimit"`
	Breaker   BreakerConfig   `ini:"circuitbreaker"`
	Log       LogConfig       `ini:"log"`
	Gateway   GatewayConfig   `ini:"gateway"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        string `ini:"port"`         // 服务端口
	ServiceName string `ini:"service_name"` // 服务名称
	ServiceAddr string `ini:"service_addr"` // 注册到etcd的地址
}

// CacheConfig 缓存配置
type CacheConfig struct {
	MaxBytes         int64  `ini:"max_bytes"`         // 热缓存最大字节数
	TTL              int    `ini:"ttl"`               // 缓存条目存活时间（秒），0表示不过期
	SnapshotPath     string `ini:"snapshot_path"`     // 快照文件路径
	SnapshotInterval int    `ini:"snapshot_interval"` // 快照间隔（分钟）
}

// EtcdConfig etcd配置
type EtcdConfig struct {
	Endpoints string `ini:"endpoints"` // etcd地址列表，逗号分隔，为空则不注册
	TTL       int64  `ini:"ttl"`       // 租约TTL（秒）
}

// DatabaseConfig 存储配置
type DatabaseConfig struct {
	Driver string `ini:"driver"` // memory/sqlite
	Path   string `ini:"path"`   // sqlite文件路径
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	ReadQPS    int `ini:"read_qps"`
	ReadBurst  int `ini:"read_burst"`
	WriteQPS   int `ini:"write_qps"`
	WriteBurst int `ini:"write_burst"`
}

// BreakerConfig 熔断配置，按路由分类各用一份
type BreakerConfig struct {
	Window           time.Duration `ini:"window"`             // 失败率统计窗口
	OpenTimeout      time.Duration `ini:"open_timeout"`       // 熔断后多久进入半开
	FailureRatio     float64       `ini:"failure_ratio"`      // 触发熔断的失败率
	MinRequests      int           `ini:"min_requests"`       // 窗口内请求数低于此值不熔断
	HalfOpenRequests int           `ini:"half_open_requests"` // 半开时同时放行的探测请求数
	RecoverAfter     int           `ini:"recover_after"`      // 半开时连续成功多少次恢复
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	Replicas int    `ini:"replicas"` // 一致性哈希虚拟节点倍数
	Nodes    string `ini:"nodes"`    // 静态节点列表，逗号分隔，与etcd发现的节点合并
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `ini:"level"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			ServiceName: "bytearray",
		},
		Cache: CacheConfig{
			MaxBytes:         64 * 1024 * 1024,
			TTL:              3600,
			SnapshotPath:     "./data/buffers.snapshot",
			SnapshotInterval: 5,
		},
		Etcd: EtcdConfig{
			TTL: 10,
		},
		Database: DatabaseConfig{
			Driver: DriverMemory,
			Path:   "./data/buffers.db",
		},
		RateLimit: RateLimitConfig{
			ReadQPS:    1000,
			ReadBurst:  1500,
			WriteQPS:   300,
			WriteBurst: 500,
		},
		Breaker: BreakerConfig{
			Window:           10 * time.Second,
			OpenTimeout:      30 * time.Second,
			FailureRatio:     0.5,
			MinRequests:      10,
			HalfOpenRequests: 10,
			RecoverAfter:     5,
		},
		Log: LogConfig{
			Level: "info",
		},
		Gateway: GatewayConfig{
			Replicas: 150,
		},
	}
}

// LoadConfig 加载配置文件，未出现的项保留默认值
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()

	err := ini.MapTo(cfg, filePath)
	if err != nil {
		logrus.Errorf("Failed to load config file: %v", err)
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Infof("Config loaded successfully from: %s", filePath)
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Cache.MaxBytes < 0 {
		return fmt.Errorf("cache.max_bytes must not be negative: %d", c.Cache.MaxBytes)
	}
	if err := c.Breaker.Validate(); err != nil {
		return err
	}
	if c.Gateway.Replicas <= 0 {
		return fmt.Errorf("gateway.replicas must be positive: %d", c.Gateway.Replicas)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database.driver: %q", c.Database.Driver)
	}
	return nil
}

// Validate 校验熔断配置
func (b *BreakerConfig) Validate() error {
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("circuitbreaker.failure_ratio must be in (0, 1]: %v", b.FailureRatio)
	}
	if b.HalfOpenRequests <= 0 || b.RecoverAfter <= 0 {
		return fmt.Errorf("circuitbreaker.half_open_requests and recover_after must be positive")
	}
	return nil
}

// CacheTTL 缓存存活时间
func (c *CacheConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Interval 快照间隔
func (c *CacheConfig) Interval() time.Duration {
	return time.Duration(c.SnapshotInterval) * time.Minute
}

// EndpointList etcd地址列表
func (e *EtcdConfig) EndpointList() []string {
	return splitList(e.Endpoints)
}

// NodeList 静态服务节点列表
func (g *GatewayConfig) NodeList() []string {
	return splitList(g.Nodes)
}

// splitList 解析逗号分隔的列表，忽略空项
func splitList(s string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// LogLevel 解析日志级别，非法值退回info
func (l *LogConfig) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
