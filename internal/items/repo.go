package items

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/pkg/db/models"
)

// Repository handles item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to item operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new item row.
func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID loads an item by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Update saves the provided item.
func (r *Repository) Update(ctx context.Context, item *models.Item) error {
	if item == nil {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete removes the item and cascades its contribution rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Select("Contributions").
		Delete(&models.Item{ID: id}).Error
}

// CountContributions reports how many contribution rows the item has.
func (r *Repository) CountContributions(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("item_id = ?", itemID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindWishlist loads the wishlist owning an item's wishlist id.
func (r *Repository) FindWishlist(ctx context.Context, wishlistID uuid.UUID) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	if err := r.db.WithContext(ctx).First(&wishlist, "id = ?", wishlistID).Error; err != nil {
		return nil, err
	}
	return &wishlist, nil
}
