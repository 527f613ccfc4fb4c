package config

import (
	"os"
	"strconv"
	"time"
)

func Load() App {
	return App{
		Port:      getenv("APP_PORT", "8080"),
		Env:       getenv("APP_ENV", "dev"),
		JWTSecret: getenv("JWT_SECRET", "local_dev_secret"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		WebhookCallbackToken: os.Getenv("WEBHOOK_CALLBACK_TOKEN"),

		IdempotencyStore: getenv("IDEMPOTENCY_STORE", "postgres"),
		IdempotencyTTL:   time.Duration(getint("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,
		BoltPath:         getenv("BOLT_PATH", "idempotency.db"),

		OutboxSinkURL:       os.Getenv("OUTBOX_SINK_URL"),
		AMQPURL:             os.Getenv("AMQP_URL"),
		AMQPQueue:           getenv("AMQP_QUEUE", "outbox-events"),
		OutboxPollInterval:  time.Duration(getint("OUTBOX_POLL_INTERVAL_SEC", 5)) * time.Second,
		OutboxBatchSize:     getint("OUTBOX_BATCH_SIZE", 50),
		OutboxMaxAttempts:   getint("OUTBOX_MAX_ATTEMPTS", 8),
		OutboxBackoffCapSec: getint("OUTBOX_BACKOFF_CAP_SEC", 300),

		NotifyPollInterval: time.Duration(getint("NOTIFY_POLL_INTERVAL_SEC", 5)) * time.Second,
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
