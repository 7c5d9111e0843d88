package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"urutibiz/pkg/client"
	"urutibiz/pkg/logger"
	"urutibiz/pkg/money"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	StoreDriver string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresURL string
	RedisURL    string

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DefaultExpirationHours int
	MaxBookingAmountRaw    string
	MaxBookingAmount       decimal.Decimal

	SweepInterval  time.Duration
	SweepBatchSize int
	SweepTimeout   time.Duration

	EventsEnabled        bool
	KafkaBookingTopic    string
	KafkaPaymentTopic    string
	KafkaPaymentDLQTopic string

	LogLevel     string
	LogFile      string
	OtelEndpoint string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads an optional .env file and the process environment, then validates
// the result. Invalid configuration is fatal.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
		File:      cfg.LogFile,
	})
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv reads the environment without validating or connecting anything.
func FromEnv() *Config {
	return &Config{
		StoreDriver: strings.ToLower(getEnvStr(EnvStoreDriver, DefaultStoreDriver)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresURL: getEnvStr(EnvPostgresURL, ""),
		RedisURL:    getEnvStr(EnvRedisURL, ""),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		DefaultExpirationHours: getEnvNum(EnvDefaultExpirationHours, DefaultExpirationHours),
		MaxBookingAmountRaw:    getEnvStr(EnvMaxBookingAmount, DefaultMaxBookingAmount),

		SweepInterval:  getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		SweepBatchSize: getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),
		SweepTimeout:   getEnvDuration(EnvSweepTimeout, DefaultSweepTimeout),

		EventsEnabled:        getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		KafkaBookingTopic:    getEnvStr(EnvKafkaBookingTopic, DefaultKafkaBookingTopic),
		KafkaPaymentTopic:    getEnvStr(EnvKafkaPaymentTopic, DefaultKafkaPaymentTopic),
		KafkaPaymentDLQTopic: getEnvStr(EnvKafkaPaymentDLQTopic, DefaultKafkaPaymentDLQTopic),

		LogLevel:     getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFile:      getEnvStr(EnvLogFile, ""),
		OtelEndpoint: getEnvStr(EnvOtelEndpoint, ""),
	}
}

// SetStore opens the connection STORE_DRIVER asks for. The memory driver opens nothing.
func (cfg *Config) SetStore() {
	switch cfg.StoreDriver {
	case StoreDriverMongo:
		cfg.SetMongo()
	case StoreDriverPostgres:
		cfg.SetPostgres()
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresURL, cfg.MongoConnTimeout)
}

// SetRedis connects the shared idempotency cache when REDIS_URL is set.
func (cfg *Config) SetRedis() {
	if cfg.RedisURL == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.MongoConnTimeout)
}

func (cfg *Config) ExpirationWindow() time.Duration {
	return time.Duration(cfg.DefaultExpirationHours) * time.Hour
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreDriverMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StoreDriverPostgres:
		if cfg.PostgresURL == "" {
			errors = append(errors, "PostgresURL cannot be empty when STORE_DRIVER is postgres")
		} else if u, err := url.Parse(cfg.PostgresURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, fmt.Sprintf("PostgresURL must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresURL)))
		}
	case StoreDriverMemory:
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be one of mongo, postgres, memory, got: %s", cfg.StoreDriver))
	}

	if cfg.RedisURL != "" {
		if u, err := url.Parse(cfg.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			errors = append(errors, fmt.Sprintf("RedisURL must start with 'redis://' or 'rediss://', got: %s", redactURI(cfg.RedisURL)))
		}
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.DefaultExpirationHours < MinExpirationHours || cfg.DefaultExpirationHours > MaxExpirationHours {
		errors = append(errors, fmt.Sprintf("DefaultExpirationHours must be between %d and %d, got: %d", MinExpirationHours, MaxExpirationHours, cfg.DefaultExpirationHours))
	}
	if max, err := money.ParseMax(cfg.MaxBookingAmountRaw); err != nil {
		errors = append(errors, fmt.Sprintf("MaxBookingAmount is invalid: %v", err))
	} else if !max.IsPositive() {
		errors = append(errors, fmt.Sprintf("MaxBookingAmount must be positive, got: %s", cfg.MaxBookingAmountRaw))
	} else {
		cfg.MaxBookingAmount = max
	}

	if cfg.SweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("SweepInterval must be positive, got: %s", cfg.SweepInterval))
	}
	if cfg.SweepBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}
	if cfg.SweepTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("SweepTimeout must be positive, got: %s", cfg.SweepTimeout))
	}

	if cfg.EventsEnabled {
		if cfg.KafkaBookingTopic == "" {
			errors = append(errors, "KafkaBookingTopic cannot be empty when events are enabled")
		}
		if cfg.KafkaPaymentTopic == "" {
			errors = append(errors, "KafkaPaymentTopic cannot be empty when events are enabled")
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_driver", cfg.StoreDriver,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_url", redactURI(cfg.PostgresURL),
		"redis_url", redactURI(cfg.RedisURL),
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"default_expiration_hours", cfg.DefaultExpirationHours,
		"max_booking_amount", cfg.MaxBookingAmount.StringFixed(money.FractionDigits),
		"sweep_interval", cfg.SweepInterval,
		"sweep_batch_size", cfg.SweepBatchSize,
		"sweep_timeout", cfg.SweepTimeout,
		"events_enabled", cfg.EventsEnabled,
		"kafka_booking_topic", cfg.KafkaBookingTopic,
		"kafka_payment_topic", cfg.KafkaPaymentTopic,
		"kafka_payment_dlq_topic", cfg.KafkaPaymentDLQTopic,
		"log_file", cfg.LogFile,
		"otel_endpoint", cfg.OtelEndpoint,
	)
}

var credentialRegex = regexp.MustCompile(`^([a-z][a-z0-9+.-]*://)[^@/]+@`)

// redactURI masks the userinfo part of a connection string.
func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	cfg.Client.GracefulShutdown(ctx, cfg.Log)
	cfg.Log.Close()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultPaginationLimit
	} else if limit > MaxPaginationLimit {
		limit = MaxPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
