package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	commoncfg "github.com/Vintage-The-Gemini/space/internal/common/config"
)

// 存储驱动
const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
	StoreDriverMemory   = "memory"
)

// 事件驱动
const (
	EventsDriverNone  = "none"
	EventsDriverMQTT  = "mqtt"
	EventsDriverRedis = "redis"
)

// Config space-data（HTTP API + 遥测流）配置
type Config struct {
	HTTP struct {
		Addr            string
		ReadTimeout     time.Duration
		IdleTimeout     time.Duration
		ShutdownTimeout time.Duration
	}
	Store struct {
		Driver   string
		BoltPath string
	}
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	NASA      NASAConfig
	Telemetry struct {
		Interval     time.Duration
		WriteTimeout time.Duration
		Mode         string
	}
	Events struct {
		Driver      string
		TopicPrefix string
		Stream      string
	}
	MQTT commoncfg.MQTTConfig
	Log  struct {
		Level  string
		Format string
	}
}

// NASAConfig 外部 NASA API 配置
type NASAConfig struct {
	APIKey           string
	BaseURL          string
	Timeout          time.Duration
	RetryCount       int
	RateLimit        float64
	RateBurst        int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	CacheTTL         time.Duration
}

func Load() *Config {
	cfg := &Config{}

	// PORT 兼容常见 PaaS 约定；HTTP_ADDR 优先
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", "")
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":" + getEnv("PORT", "5000")
	}
	cfg.HTTP.ReadTimeout = parseDuration(getEnv("HTTP_READ_TIMEOUT", "30s"), 30*time.Second)
	cfg.HTTP.IdleTimeout = parseDuration(getEnv("HTTP_IDLE_TIMEOUT", "120s"), 120*time.Second)
	cfg.HTTP.ShutdownTimeout = parseDuration(getEnv("HTTP_SHUTDOWN_TIMEOUT", "10s"), 10*time.Second)

	cfg.Store.Driver = getEnv("STORE_DRIVER", StoreDriverPostgres)
	cfg.Store.BoltPath = getEnv("BOLT_PATH", "")

	cfg.Database.URL = getEnv("DATABASE_URL", os.Getenv("MONGO_URI"))
	cfg.Database.Port = 5432
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.LoadFromEnv("REDIS")

	cfg.NASA.APIKey = getEnv("NASA_API_KEY", "")
	cfg.NASA.BaseURL = getEnv("NASA_BASE_URL", "https://api.nasa.gov")
	cfg.NASA.Timeout = parseDuration(getEnv("NASA_TIMEOUT", "10s"), 10*time.Second)
	cfg.NASA.RetryCount = parseInt(getEnv("NASA_RETRY", "1"), 1)
	cfg.NASA.RateLimit = parseFloat(getEnv("NASA_RATE", "5"), 5)
	cfg.NASA.RateBurst = parseInt(getEnv("NASA_RATE_BURST", "5"), 5)
	cfg.NASA.BreakerThreshold = parseInt(getEnv("NASA_BREAKER_THRESHOLD", "5"), 5)
	cfg.NASA.BreakerCooldown = parseDuration(getEnv("NASA_BREAKER_COOLDOWN", "30s"), 30*time.Second)
	cfg.NASA.CacheTTL = parseDuration(getEnv("NASA_CACHE_TTL", "0s"), 0)

	cfg.Telemetry.Interval = parseDuration(getEnv("TELEMETRY_INTERVAL", "1s"), time.Second)
	cfg.Telemetry.WriteTimeout = parseDuration(getEnv("TELEMETRY_WRITE_TIMEOUT", "5s"), 5*time.Second)
	cfg.Telemetry.Mode = getEnv("TELEMETRY_MODE", "walk")

	cfg.Events.Driver = getEnv("EVENTS_DRIVER", EventsDriverNone)
	cfg.Events.TopicPrefix = getEnv("EVENTS_TOPIC_PREFIX", "space")
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "space:events")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "space-data"
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

// Validate 启动前检查必填项；返回所有问题而不是第一个
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if !c.Database.Configured() {
			errs = append(errs, errors.New("DATABASE_URL (or MONGO_URI / DB_HOST) is required for the postgres store"))
		}
	case StoreDriverBolt:
		if c.Store.BoltPath == "" {
			errs = append(errs, errors.New("BOLT_PATH is required for the bolt store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	if c.NASA.APIKey == "" {
		errs = append(errs, errors.New("NASA_API_KEY is required"))
	}
	if c.Telemetry.Interval <= 0 {
		errs = append(errs, errors.New("TELEMETRY_INTERVAL must be positive"))
	}

	switch c.Events.Driver {
	case EventsDriverNone, "":
	case EventsDriverMQTT:
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("MQTT_BROKER is required for the mqtt events driver"))
		}
	case EventsDriverRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis events driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_DRIVER %q", c.Events.Driver))
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// parseDuration 接受 "1500ms" 形式，也接受纯数字（毫秒）
func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
