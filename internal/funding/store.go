package funding

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/pkg/db/models"
)

// Store exposes the contribution persistence surface used by the ledger.
type Store struct {
	db *gorm.DB
}

// NewStore binds contribution persistence to the provided gorm DB. The DB
// may be a live transaction; the store never opens its own.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetItem loads the funded item.
func (s *Store) GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := s.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Get returns the contributor's row for the item, if any.
func (s *Store) Get(ctx context.Context, itemID, contributorID uuid.UUID) (*models.Contribution, error) {
	var row models.Contribution
	if err := s.db.WithContext(ctx).
		Where("item_id = ? AND contributor_id = ?", itemID, contributorID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByItem returns all contribution rows for the item in creation order.
func (s *Store) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Contribution, error) {
	var rows []models.Contribution
	if err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a new contribution row. The DB unique index rejects a
// second row for the same (item, contributor) pair.
func (s *Store) Create(ctx context.Context, row *models.Contribution) error {
	return s.db.WithContext(ctx).Create(row).Error
}

// UpdateAmount overwrites the amount on an existing row. Update (not
// UpdateColumn) so gorm keeps updated_at current.
func (s *Store) UpdateAmount(ctx context.Context, rowID uuid.UUID, amountCents int64) error {
	return s.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("id = ?", rowID).
		Update("amount_cents", amountCents).Error
}

// Delete removes the contributor's row for the item.
func (s *Store) Delete(ctx context.Context, itemID, contributorID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("item_id = ? AND contributor_id = ?", itemID, contributorID).
		Delete(&models.Contribution{}).Error
}
