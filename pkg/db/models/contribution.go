package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContributionUniqueConstraint names the (item, contributor) unique index so
// repositories can recognize duplicate-row violations.
const ContributionUniqueConstraint = "contributions_item_contributor_key"

// Contribution is one contributor's commitment toward one item. At most one
// row exists per (item, contributor); the unique index enforces it at the
// storage layer. A reservation is stored as a regular row whose amount was
// fixed to the remaining price at acceptance time.
type Contribution struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID `gorm:"column:item_id;type:uuid;not null;index:contributions_item_id_idx;uniqueIndex:contributions_item_contributor_key"`
	ContributorID uuid.UUID `gorm:"column:contributor_id;type:uuid;not null;uniqueIndex:contributions_item_contributor_key"`
	AmountCents   int64     `gorm:"column:amount_cents;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (c *Contribution) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
