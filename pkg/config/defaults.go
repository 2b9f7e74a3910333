package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roomly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisCacheTTL = 30 * time.Second

	DefaultPort = "8080"

	// Anonymous pairing sessions live for two minutes.
	DefaultSessionTTL = 2 * time.Minute

	// A room can be claimed for at most two hours in one go.
	DefaultMaxBookingMin = 120

	DefaultAuditLogPath    = "claim_tokens.log"
	DefaultProofTokenChars = 12

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
