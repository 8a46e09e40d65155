package itemlock

import (
	"context"
	"sync"
	"time"
)

// Keyed is an in-process per-key mutex suitable for single-instance
// deployments. Waiters queue on a per-key channel with a bounded wait.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]chan struct{}
	wait    time.Duration
}

// NewKeyed builds an in-process locker with the provided wait budget.
func NewKeyed(cfg Config) *Keyed {
	wait := cfg.WaitTimeout
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &Keyed{
		entries: make(map[string]chan struct{}),
		wait:    wait,
	}
}

// Acquire takes the per-item slot or fails with ErrTimeout.
func (k *Keyed) Acquire(ctx context.Context, itemID string) (func(), error) {
	timer := time.NewTimer(k.wait)
	defer timer.Stop()

	for {
		k.mu.Lock()
		holder, held := k.entries[itemID]
		if !held {
			released := make(chan struct{})
			k.entries[itemID] = released
			k.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					k.mu.Lock()
					delete(k.entries, itemID)
					k.mu.Unlock()
					close(released)
				})
			}, nil
		}
		k.mu.Unlock()

		select {
		case <-holder:
			// slot freed, race for it again
		case <-timer.C:
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
