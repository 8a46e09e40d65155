package wishlists

import (
	"time"

	"github.com/google/uuid"

	"github.com/wishwell/wishwell-backend/internal/funding"
	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/enums"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

// WishlistDTO is the owner-facing transport shape.
type WishlistDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Slug        string    `json:"slug"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateWishlistInput captures the fields accepted on create.
type CreateWishlistInput struct {
	Title       string  `json:"title" validate:"required,min=1,max=160"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// UpdateWishlistInput captures the patchable fields.
type UpdateWishlistInput struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=160"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// PageMeta mirrors the cursor pagination envelope used across list endpoints.
type PageMeta struct {
	Total   int    `json:"total"`
	Current string `json:"current"`
	First   string `json:"first"`
	Last    string `json:"last"`
	Prev    string `json:"prev"`
	Next    string `json:"next"`
}

// WishlistPageDTO is one page of the caller's own wishlists.
type WishlistPageDTO struct {
	Wishlists  []WishlistDTO `json:"wishlists"`
	Pagination PageMeta      `json:"pagination"`
}

// PublicItemDTO is the contributor-facing item view: price plus the funding
// aggregate, never individual contributions.
type PublicItemDTO struct {
	ID               uuid.UUID           `json:"id"`
	Name             string              `json:"name"`
	Link             *string             `json:"link,omitempty"`
	ImageURL         *string             `json:"image_url,omitempty"`
	PriceCents       int64               `json:"price_cents"`
	Currency         enums.Currency      `json:"currency"`
	TotalFunded      int64               `json:"total_funded"`
	ContributorCount int                 `json:"contributor_count"`
	Status           enums.FundingStatus `json:"status"`
}

// PublicWishlistDTO is the shared-link view of a wishlist.
type PublicWishlistDTO struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Slug        string          `json:"slug"`
	Items       []PublicItemDTO `json:"items"`
}

// OwnerItemDTO is the owner's view of an item: funding status only, no
// totals, counts, or contributor identities.
type OwnerItemDTO struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Link       *string             `json:"link,omitempty"`
	ImageURL   *string             `json:"image_url,omitempty"`
	PriceCents int64               `json:"price_cents"`
	Currency   enums.Currency      `json:"currency"`
	Status     enums.FundingStatus `json:"status"`
}

// OwnerWishlistDTO is the owner detail view with owner-blind item statuses.
type OwnerWishlistDTO struct {
	WishlistDTO
	Items []OwnerItemDTO `json:"items"`
}

func fromModel(w *models.Wishlist) WishlistDTO {
	return WishlistDTO{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Slug:        w.Slug,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func publicItemFromModel(item *models.Item) PublicItemDTO {
	agg := funding.ComputeAggregate(money.Amount(item.PriceCents), item.Contributions)
	return PublicItemDTO{
		ID:               item.ID,
		Name:             item.Name,
		Link:             item.Link,
		ImageURL:         item.ImageURL,
		PriceCents:       item.PriceCents,
		Currency:         item.Currency,
		TotalFunded:      agg.TotalFunded.Units(),
		ContributorCount: agg.ContributorCount,
		Status:           agg.Status,
	}
}

func ownerItemFromModel(item *models.Item) OwnerItemDTO {
	agg := funding.ComputeAggregate(money.Amount(item.PriceCents), item.Contributions)
	return OwnerItemDTO{
		ID:         item.ID,
		Name:       item.Name,
		Link:       item.Link,
		ImageURL:   item.ImageURL,
		PriceCents: item.PriceCents,
		Currency:   item.Currency,
		Status:     agg.Status,
	}
}
