// Package idemstore provides the idempotency-record store behind one
// interface with three implementations:
//
//   - Postgres: durable, safe under multi-instance deployment.
//   - Bolt: a single file, durable per process host only.
//   - Memory: transient, single process lifetime. Degraded mode, selected
//     explicitly at startup and never as a silent per-call fallback.
package idemstore

import (
	"context"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Store interface {
	// Lookup returns nil when no live record exists for the key; expired
	// records read as absent.
	Lookup(ctx context.Context, routeKey, key string) (*model.IdempotencyRecord, error)

	// Save persists the first response under the key. A concurrent duplicate
	// save loses silently; the stored record wins.
	Save(ctx context.Context, rec *model.IdempotencyRecord) error
}
