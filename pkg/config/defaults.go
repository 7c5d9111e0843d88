package config

import "time"

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

const (
	DefaultStoreDriver = StoreDriverMongo

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "urutibiz"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 10
	MaxPaginationLimit     = 100

	// Historical deployments used 4; the current rule is 2 hours.
	DefaultExpirationHours = 2
	MinExpirationHours     = 1
	MaxExpirationHours     = 720

	DefaultMaxBookingAmount = "999999999999.99"

	DefaultSweepInterval  = 1 * time.Minute
	DefaultSweepBatchSize = 200
	DefaultSweepTimeout   = 30 * time.Second

	DefaultEventsEnabled        = false
	DefaultKafkaBookingTopic    = "booking.lifecycle"
	DefaultKafkaPaymentTopic    = "payment.succeeded"
	DefaultKafkaPaymentDLQTopic = "payment.succeeded.dlq"
)
