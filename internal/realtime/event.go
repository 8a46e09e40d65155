package realtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/wishwell/wishwell-backend/pkg/enums"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

// Event is the funding update pushed to wishlist observers. It carries the
// aggregate only, never contributor identities or per-row amounts.
type Event struct {
	WishlistID       uuid.UUID           `json:"wishlist_id"`
	ItemID           uuid.UUID           `json:"item_id"`
	TotalFunded      money.Amount        `json:"total_funded"`
	ContributorCount int                 `json:"contributor_count"`
	Status           enums.FundingStatus `json:"status"`
}

// Publisher is the only realtime surface mutation services see. Delivery is
// fire-and-forget; a failed publish never rolls back a committed ledger write.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LocalBus fans events straight into the in-process hub.
type LocalBus struct {
	hub *Hub
}

// NewLocalBus wires the single-instance publisher.
func NewLocalBus(hub *Hub) *LocalBus {
	return &LocalBus{hub: hub}
}

// Publish forwards the event to local subscribers.
func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	b.hub.Broadcast(event)
	return nil
}
