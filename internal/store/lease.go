package store

import (
	"context"
	"errors"
	"time"
)

// ErrLeaseHeld is returned by Leaser.Acquire when another holder owns the lease.
var ErrLeaseHeld = errors.New("lease held by another worker")

// Lease is an acquired, exclusive claim on a video.
type Lease interface {
	// Release gives the lease up. Releasing a lease that has already
	// expired is not an error.
	Release(ctx context.Context) error
}

// Leaser hands out short-lived per-video leases so that two coordinator
// replicas never process the same video at the same time.
// Version: 1.0
type Leaser interface {
	// Acquire claims the video for ttl.
	// Returns ErrLeaseHeld if the claim is already taken.
	Acquire(ctx context.Context, videoID string, ttl time.Duration) (Lease, error)
}
