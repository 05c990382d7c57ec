package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/onairlive/onair/pkg/config"
	"github.com/onairlive/onair/pkg/database"
	"github.com/onairlive/onair/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Auth      AuthConfig
	RTC       RTCConfig
	Reaper    ReaperConfig
	PubSub    pubsub.Config
	Database  database.Config
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// RTCConfig configures access-token issuance for the external media
// transport provider.
type RTCConfig struct {
	AppID  string        `mapstructure:"app_id"`
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// ReaperConfig controls the sweep of idle broadcast sessions.
type ReaperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxIdle  time.Duration `mapstructure:"max_idle"`
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("auth.secret", "dev-secret-change-me")
	v.SetDefault("auth.issuer", "onair")
	v.SetDefault("rtc.app_id", "onair-dev")
	v.SetDefault("rtc.secret", "dev-rtc-secret")
	v.SetDefault("rtc.ttl", "1h")
	v.SetDefault("reaper.interval", "1m")
	v.SetDefault("reaper.max_idle", "30m")
	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.password", "")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "onair")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "onair.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("auth.secret", "AUTH_SECRET")
	v.BindEnv("rtc.app_id", "RTC_APP_ID")
	v.BindEnv("rtc.secret", "RTC_SECRET")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("pubsub.kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.RTC.TTL = parseDuration(v, "rtc.ttl", time.Hour)
	cfg.Reaper.Interval = parseDuration(v, "reaper.interval", time.Minute)
	cfg.Reaper.MaxIdle = parseDuration(v, "reaper.max_idle", 30*time.Minute)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
