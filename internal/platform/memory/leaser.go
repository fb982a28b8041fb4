package memory

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/scry-materials/internal/store"
)

// Leaser is an in-process store.Leaser.
type Leaser struct {
	mu     sync.Mutex
	leases map[string]time.Time
	now    func() time.Time
}

var _ store.Leaser = (*Leaser)(nil)

// NewLeaser creates an empty Leaser.
func NewLeaser() *Leaser {
	return &Leaser{leases: make(map[string]time.Time), now: time.Now}
}

// Hold marks the video as leased by someone else until ttl elapses.
func (l *Leaser) Hold(videoID string, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.leases[videoID] = l.now().Add(ttl)
}

// Acquire implements store.Leaser.
func (l *Leaser) Acquire(ctx context.Context, videoID string, ttl time.Duration) (store.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.leases[videoID]; ok && l.now().Before(until) {
		return nil, store.ErrLeaseHeld
	}
	expires := l.now().Add(ttl)
	l.leases[videoID] = expires
	return &memoryLease{owner: l, videoID: videoID, expires: expires}, nil
}

type memoryLease struct {
	owner   *Leaser
	videoID string
	expires time.Time
}

func (m *memoryLease) Release(ctx context.Context) error {
	m.owner.mu.Lock()
	defer m.owner.mu.Unlock()
	if until, ok := m.owner.leases[m.videoID]; ok && until.Equal(m.expires) {
		delete(m.owner.leases, m.videoID)
	}
	return nil
}
