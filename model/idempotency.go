// model/idempotency.go
package model

import "time"

// IdempotencyRecord caches the first response produced under an idempotency
// key. Fingerprint is sha256(method|route|body); a lookup hit with a
// different fingerprint means the client reused the key with a new payload.
type IdempotencyRecord struct {
	RouteKey    string    `json:"route_key"`
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	StatusCode  int       `json:"status_code"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
