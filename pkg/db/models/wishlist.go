package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wishlist groups items published by one owner and shared via a public slug.
type Wishlist struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index:wishlists_owner_id_idx"`
	Title       string    `gorm:"column:title;not null"`
	Description *string   `gorm:"column:description"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex:wishlists_slug_key"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Items []Item `gorm:"foreignKey:WishlistID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (w *Wishlist) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
