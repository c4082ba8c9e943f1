package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.)
// - default: Values common across all environments (intervals, timeouts, etc.)
// -----------------------------------------------------------------------------

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	CORS   CORSConfig
	Log    LogConfig
	Sync   SyncConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

type RedisConfig struct {
	Addr          string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	ChannelPrefix string `envconfig:"REDIS_CHANNEL_PREFIX" default:"cafesync.events"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic string   `envconfig:"KAFKA_ORDERS_TOPIC" default:"pos.orders.incoming"`
	GroupID     string   `envconfig:"KAFKA_GROUP_ID" default:"cafesync-server"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// SyncConfig tunes the session synchronization core. The poll interval is the
// worst-case staleness bound when the event channel is down.
type SyncConfig struct {
	PollInterval      time.Duration `envconfig:"SYNC_POLL_INTERVAL" default:"15s"`
	GuardTimeout      time.Duration `envconfig:"SYNC_GUARD_TIMEOUT" default:"10s"`
	HeartbeatInterval time.Duration `envconfig:"SYNC_HEARTBEAT_INTERVAL" default:"30s"`
	RequestTimeout    time.Duration `envconfig:"SYNC_REQUEST_TIMEOUT" default:"5s"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433",
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Addr:          "localhost:16380",
			ChannelPrefix: "cafesync.test.events",
		},
		Log: LogConfig{
			Level: "error", // Error level only for tests
		},
		Sync: SyncConfig{
			PollInterval:      50 * time.Millisecond,
			GuardTimeout:      100 * time.Millisecond,
			HeartbeatInterval: time.Second,
			RequestTimeout:    time.Second,
		},
	}
}
