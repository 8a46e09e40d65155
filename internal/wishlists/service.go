package wishlists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/wishwell/wishwell-backend/pkg/db"
	"github.com/wishwell/wishwell-backend/pkg/db/models"
	pkgerrors "github.com/wishwell/wishwell-backend/pkg/errors"
)

const slugRetryLimit = 3

type wishlistRepository interface {
	Create(ctx context.Context, wishlist *models.Wishlist) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*models.Wishlist, error)
	FindBySlug(ctx context.Context, slug string) (*models.Wishlist, error)
	Update(ctx context.Context, wishlist *models.Wishlist) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (WishlistPageDTO, error)
}

// Service exposes wishlist operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateWishlistInput) (*WishlistDTO, error)
	GetOwn(ctx context.Context, ownerID, wishlistID uuid.UUID) (*OwnerWishlistDTO, error)
	ListMine(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (WishlistPageDTO, error)
	Update(ctx context.Context, ownerID, wishlistID uuid.UUID, input UpdateWishlistInput) (*WishlistDTO, error)
	Delete(ctx context.Context, ownerID, wishlistID uuid.UUID) error
	GetBySlug(ctx context.Context, slug string) (*PublicWishlistDTO, error)
}

type service struct {
	repo wishlistRepository
}

// NewService builds a wishlist service with the provided repository.
func NewService(repo wishlistRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateWishlistInput) (*WishlistDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	// slugs carry a random suffix; retry only covers the freak collision
	var lastErr error
	for attempt := 0; attempt < slugRetryLimit; attempt++ {
		slug, err := newSlug(title)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate slug")
		}
		wishlist := &models.Wishlist{
			OwnerID:     ownerID,
			Title:       title,
			Description: input.Description,
			Slug:        slug,
		}
		if err := s.repo.Create(ctx, wishlist); err != nil {
			if pkgdb.IsUniqueViolation(err, "wishlists_slug_key") {
				lastErr = err
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create wishlist")
		}
		dto := fromModel(wishlist)
		return &dto, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "slug collision persisted")
}

func (s *service) GetOwn(ctx context.Context, ownerID, wishlistID uuid.UUID) (*OwnerWishlistDTO, error) {
	wishlist, err := s.loadOwnedWithItems(ctx, ownerID, wishlistID)
	if err != nil {
		return nil, err
	}

	items := make([]OwnerItemDTO, 0, len(wishlist.Items))
	for i := range wishlist.Items {
		items = append(items, ownerItemFromModel(&wishlist.Items[i]))
	}
	return &OwnerWishlistDTO{
		WishlistDTO: fromModel(wishlist),
		Items:       items,
	}, nil
}

func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (WishlistPageDTO, error) {
	page, err := s.repo.ListByOwner(ctx, ownerID, cursor, limit)
	if err != nil {
		return WishlistPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlists")
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, ownerID, wishlistID uuid.UUID, input UpdateWishlistInput) (*WishlistDTO, error) {
	wishlist, err := s.loadOwned(ctx, ownerID, wishlistID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		wishlist.Title = title
	}
	if input.Description != nil {
		wishlist.Description = input.Description
	}

	if err := s.repo.Update(ctx, wishlist); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update wishlist")
	}
	dto := fromModel(wishlist)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, ownerID, wishlistID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, ownerID, wishlistID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, wishlistID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete wishlist")
	}
	return nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*PublicWishlistDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
	}
	wishlist, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wishlist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist")
	}

	items := make([]PublicItemDTO, 0, len(wishlist.Items))
	for i := range wishlist.Items {
		items = append(items, publicItemFromModel(&wishlist.Items[i]))
	}
	return &PublicWishlistDTO{
		ID:          wishlist.ID,
		Title:       wishlist.Title,
		Description: wishlist.Description,
		Slug:        wishlist.Slug,
		Items:       items,
	}, nil
}

func (s *service) loadOwned(ctx context.Context, ownerID, wishlistID uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.repo.FindByID(ctx, wishlistID)
	return s.checkOwnership(wishlist, err, ownerID)
}

func (s *service) loadOwnedWithItems(ctx context.Context, ownerID, wishlistID uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.repo.FindByIDWithItems(ctx, wishlistID)
	return s.checkOwnership(wishlist, err, ownerID)
}

func (s *service) checkOwnership(wishlist *models.Wishlist, err error, ownerID uuid.UUID) (*models.Wishlist, error) {
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
