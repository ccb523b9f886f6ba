package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	API      APIConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Session  SessionConfig
	UI       UIConfig
	Logging  LoggingConfig
	Features FeatureFlags
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// APIConfig points at the external taproom API that owns orders and stock.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	EventsTopic   string
	ConsumerGroup string
}

// DefaultSessionSecret is the placeholder used when SESSION_SECRET is unset.
const DefaultSessionSecret = "change-me-in-production"

type SessionConfig struct {
	Name   string
	Secret string
	Secure bool
}

// UsesDefaultSecret reports whether the flash cookie is signed with the
// placeholder secret.
func (s SessionConfig) UsesDefaultSecret() bool {
	return s.Secret == DefaultSessionSecret
}

type UIConfig struct {
	// MutationSettleDelay is slept after a successful mutation before redirecting.
	MutationSettleDelay time.Duration
	PayGuardTTL         time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

type FeatureFlags struct {
	EnableStockCaching bool
	EnableEvents       bool
	EnableRedisGuard   bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 3000),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnvString("TAPROOM_API_URL", "http://localhost:8000"), "/"),
			Timeout: time.Duration(getEnvInt("TAPROOM_API_TIMEOUT", 10)) * time.Second,
			APIKey:  getEnvString("TAPROOM_API_KEY", ""),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_TTL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			EventsTopic:   getEnvString("KAFKA_EVENTS_TOPIC", "taproom.events"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "taproom-admin"),
		},
		Session: SessionConfig{
			Name:   getEnvString("SESSION_NAME", "taproom_session"),
			Secret: getEnvString("SESSION_SECRET", DefaultSessionSecret),
			Secure: getEnvBool("SESSION_SECURE", false),
		},
		UI: UIConfig{
			MutationSettleDelay: getEnvDuration("UI_MUTATION_SETTLE_DELAY", 0),
			PayGuardTTL:         getEnvDuration("UI_PAY_GUARD_TTL", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
			File:   getEnvString("LOG_FILE", ""),
		},
		Features: FeatureFlags{
			EnableStockCaching: getEnvBool("FEATURE_STOCK_CACHING", false),
			EnableEvents:       getEnvBool("FEATURE_EVENTS", false),
			EnableRedisGuard:   getEnvBool("FEATURE_REDIS_PAY_GUARD", false),
		},
	}
}

// Validate rejects settings the service must not start with. A secure
// (HTTPS) deployment needs its own session secret.
func (c *Config) Validate() error {
	if c.Session.Secure && c.Session.UsesDefaultSecret() {
		return errors.New("SESSION_SECRET must be set when SESSION_SECURE is enabled")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("1s", "250ms").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
