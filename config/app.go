package config

import "time"

type App struct {
	Port      string
	Env       string
	JWTSecret string

	// DatabaseURL is optional. When empty (or unreachable at startup) the
	// service runs in degraded transient mode: prepare/confirm/cancel only,
	// single process, nothing survives a restart.
	DatabaseURL string

	// WebhookCallbackToken authenticates provider callbacks. Empty disables
	// the check (local development only).
	WebhookCallbackToken string

	// Idempotency store selection: postgres | bolt | memory.
	IdempotencyStore string
	IdempotencyTTL   time.Duration
	BoltPath         string

	// Outbox relay.
	OutboxSinkURL       string
	AMQPURL             string
	AMQPQueue           string
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
	OutboxMaxAttempts   int
	OutboxBackoffCapSec int

	NotifyPollInterval time.Duration
}
