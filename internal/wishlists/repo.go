package wishlists

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new wishlist row.
func (r *Repository) Create(ctx context.Context, wishlist *models.Wishlist) error {
	return r.db.WithContext(ctx).Create(wishlist).Error
}

// FindByID loads a wishlist by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	if err := r.db.WithContext(ctx).First(&wishlist, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wishlist, nil
}

// FindByIDWithItems loads a wishlist plus items and their contribution rows.
func (r *Repository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("items.created_at ASC")
		}).
		Preload("Items.Contributions").
		First(&wishlist, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &wishlist, nil
}

// FindBySlug loads the shared-link view data by slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("items.created_at ASC")
		}).
		Preload("Items.Contributions").
		First(&wishlist, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &wishlist, nil
}

// Update saves the provided wishlist.
func (r *Repository) Update(ctx context.Context, wishlist *models.Wishlist) error {
	if wishlist == nil {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).Save(wishlist).Error
}

// Delete removes the wishlist; items and contributions cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Select("Items").
		Delete(&models.Wishlist{ID: id}).Error
}

// ListByOwner returns one cursor page of the owner's wishlists,
// newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (WishlistPageDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)
	cursorValue := strings.TrimSpace(cursor)
	decodedCursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return WishlistPageDTO{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Wishlist{}).
		Where("owner_id = ?", ownerID)
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var records []models.Wishlist
	if err := query.Find(&records).Error; err != nil {
		return WishlistPageDTO{}, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > normalizedLimit {
		resultRows = records[:normalizedLimit]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	wishlists := make([]WishlistDTO, 0, len(resultRows))
	for i := range resultRows {
		wishlists = append(wishlists, fromModel(&resultRows[i]))
	}

	totalCount, err := r.countByOwner(ctx, ownerID)
	if err != nil {
		return WishlistPageDTO{}, err
	}
	firstCursor, err := r.fetchBoundaryCursor(ctx, ownerID, true)
	if err != nil {
		return WishlistPageDTO{}, err
	}
	lastCursor, err := r.fetchBoundaryCursor(ctx, ownerID, false)
	if err != nil {
		return WishlistPageDTO{}, err
	}

	prevCursor := ""
	if cursorValue != "" {
		prevCursor = cursorValue
	}

	return WishlistPageDTO{
		Wishlists: wishlists,
		Pagination: PageMeta{
			Total:   int(totalCount),
			Current: cursorValue,
			First:   firstCursor,
			Last:    lastCursor,
			Prev:    prevCursor,
			Next:    nextCursor,
		},
	}, nil
}

func (r *Repository) countByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Wishlist{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) fetchBoundaryCursor(ctx context.Context, ownerID uuid.UUID, ascending bool) (string, error) {
	order := "created_at DESC, id DESC"
	if ascending {
		order = "created_at ASC, id ASC"
	}

	var row struct {
		CreatedAt time.Time
		ID        uuid.UUID
	}
	query := r.db.WithContext(ctx).
		Model(&models.Wishlist{}).
		Select("created_at", "id").
		Where("owner_id = ?", ownerID).
		Order(order).
		Limit(1)
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: row.CreatedAt,
		ID:        row.ID,
	}), nil
}
