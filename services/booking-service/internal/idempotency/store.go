// Package idempotency remembers which booking an Idempotency-Key produced so a
// retried request replays the original result instead of booking twice.
package idempotency

import (
	"context"
	"time"
)

const pendingMarker = "pending"

// Entry is what a key currently maps to. BookingID is empty while the first
// request holding the key is still in flight.
type Entry struct {
	BookingID string
}

func (e Entry) InFlight() bool { return e.BookingID == "" }

// Store reserves keys atomically. Reserve returns reserved=true when the
// caller now owns the key; otherwise it returns the existing entry.
type Store interface {
	Reserve(ctx context.Context, key string) (entry Entry, reserved bool, err error)
	Complete(ctx context.Context, key, bookingID string) error
	Release(ctx context.Context, key string) error
}

// DefaultTTL applies when a store is built with a zero TTL.
const DefaultTTL = 24 * time.Hour

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
