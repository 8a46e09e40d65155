package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/pkg/enums"
)

// Item is a desired good on a wishlist. PriceCents is immutable once any
// contribution exists; the items service enforces that rule.
type Item struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	WishlistID uuid.UUID      `gorm:"column:wishlist_id;type:uuid;not null;index:items_wishlist_id_idx"`
	Name       string         `gorm:"column:name;not null"`
	Link       *string        `gorm:"column:link"`
	ImageURL   *string        `gorm:"column:image_url"`
	PriceCents int64          `gorm:"column:price_cents;not null"`
	Currency   enums.Currency `gorm:"column:currency;type:text;not null;default:USD"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	Contributions []Contribution `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
