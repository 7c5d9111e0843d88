package config

const (
	EnvStoreDriver = "STORE_DRIVER"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresURL = "POSTGRES_URL"
	EnvRedisURL    = "REDIS_URL"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvLogFile  = "LOG_FILE"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultExpirationHours = "DEFAULT_EXPIRATION_HOURS"
	EnvMaxBookingAmount       = "MAX_BOOKING_AMOUNT"

	EnvSweepInterval  = "SWEEP_INTERVAL"
	EnvSweepBatchSize = "SWEEP_BATCH_SIZE"
	EnvSweepTimeout   = "SWEEP_TIMEOUT"

	EnvEventsEnabled        = "EVENTS_ENABLED"
	EnvKafkaBookingTopic    = "KAFKA_BOOKING_TOPIC"
	EnvKafkaPaymentTopic    = "KAFKA_PAYMENT_TOPIC"
	EnvKafkaPaymentDLQTopic = "KAFKA_PAYMENT_DLQ_TOPIC"

	EnvOtelEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)
