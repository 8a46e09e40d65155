package items

import (
	"time"

	"github.com/google/uuid"

	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/enums"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

// ItemDTO is the owner-facing item shape.
type ItemDTO struct {
	ID         uuid.UUID      `json:"id"`
	WishlistID uuid.UUID      `json:"wishlist_id"`
	Name       string         `json:"name"`
	Link       *string        `json:"link,omitempty"`
	ImageURL   *string        `json:"image_url,omitempty"`
	Price      string         `json:"price"`
	PriceCents int64          `json:"price_cents"`
	Currency   enums.Currency `json:"currency"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CreateItemInput captures the fields accepted on create. Price is a
// decimal string; it is parsed to cents before touching the ledger.
type CreateItemInput struct {
	Name     string  `json:"name" validate:"required,min=1,max=200"`
	Link     *string `json:"link,omitempty" validate:"omitempty,url,max=2000"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url,max=2000"`
	Price    string  `json:"price" validate:"required"`
	Currency *string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// UpdateItemInput captures the patchable fields.
type UpdateItemInput struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Link     *string `json:"link,omitempty" validate:"omitempty,url,max=2000"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url,max=2000"`
	Price    *string `json:"price,omitempty"`
}

func fromModel(item *models.Item) ItemDTO {
	return ItemDTO{
		ID:         item.ID,
		WishlistID: item.WishlistID,
		Name:       item.Name,
		Link:       item.Link,
		ImageURL:   item.ImageURL,
		Price:      money.Amount(item.PriceCents).FormatDecimal(),
		PriceCents: item.PriceCents,
		Currency:   item.Currency,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}
