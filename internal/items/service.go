package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/enums"
	pkgerrors "github.com/wishwell/wishwell-backend/pkg/errors"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

type itemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountContributions(ctx context.Context, itemID uuid.UUID) (int64, error)
	FindWishlist(ctx context.Context, wishlistID uuid.UUID) (*models.Wishlist, error)
}

// Service exposes owner item operations.
type Service interface {
	Create(ctx context.Context, ownerID, wishlistID uuid.UUID, input CreateItemInput) (*ItemDTO, error)
	Update(ctx context.Context, ownerID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Delete(ctx context.Context, ownerID, itemID uuid.UUID) error
}

type service struct {
	repo itemRepository
}

// NewService builds an item service with the provided repository.
func NewService(repo itemRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, ownerID, wishlistID uuid.UUID, input CreateItemInput) (*ItemDTO, error) {
	if _, err := s.loadOwnedWishlist(ctx, ownerID, wishlistID); err != nil {
		return nil, err
	}

	price, err := parsePrice(input.Price)
	if err != nil {
		return nil, err
	}

	currency := enums.CurrencyUSD
	if input.Currency != nil {
		parsed, err := enums.ParseCurrency(*input.Currency)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
		}
		currency = parsed
	}

	item := &models.Item{
		WishlistID: wishlistID,
		Name:       strings.TrimSpace(input.Name),
		Link:       input.Link,
		ImageURL:   input.ImageURL,
		PriceCents: price.Units(),
		Currency:   currency,
	}
	if item.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create item")
	}
	dto := fromModel(item)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, ownerID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	item, err := s.loadOwnedItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		item.Name = name
	}
	if input.Link != nil {
		item.Link = input.Link
	}
	if input.ImageURL != nil {
		item.ImageURL = input.ImageURL
	}
	if input.Price != nil {
		price, err := parsePrice(*input.Price)
		if err != nil {
			return nil, err
		}
		if price.Units() != item.PriceCents {
			count, err := s.repo.CountContributions(ctx, item.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count contributions")
			}
			if count > 0 {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "price cannot change once contributions exist")
			}
			item.PriceCents = price.Units()
		}
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update item")
	}
	dto := fromModel(item)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, ownerID, itemID uuid.UUID) error {
	item, err := s.loadOwnedItem(ctx, ownerID, itemID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete item")
	}
	return nil
}

func (s *service) loadOwnedWishlist(ctx context.Context, ownerID, wishlistID uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.repo.FindWishlist(ctx, wishlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist")
	}
	if wishlist.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your wishlist")
	}
	return wishlist, nil
}

func (s *service) loadOwnedItem(ctx context.Context, ownerID, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
	}
	if _, err := s.loadOwnedWishlist(ctx, ownerID, item.WishlistID); err != nil {
		return nil, err
	}
	return item, nil
}

func parsePrice(raw string) (money.Amount, error) {
	price, err := money.ParseDecimal(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid price")
	}
	if price.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	return price, nil
}
