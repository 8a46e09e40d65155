package itemlock

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout signals the lock could not be acquired within the wait budget.
var ErrTimeout = errors.New("itemlock: acquisition timed out")

// Locker serializes mutations on a single item. Acquire blocks up to the
// configured wait budget and returns a release func on success.
type Locker interface {
	Acquire(ctx context.Context, itemID string) (release func(), err error)
}

// Config holds the acquisition tuning shared by the implementations.
type Config struct {
	WaitTimeout time.Duration
	TTL         time.Duration
}
