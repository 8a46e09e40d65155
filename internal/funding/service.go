package funding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/internal/funding/itemlock"
	"github.com/wishwell/wishwell-backend/internal/realtime"
	"github.com/wishwell/wishwell-backend/pkg/db"
	"github.com/wishwell/wishwell-backend/pkg/db/models"
	pkgerrors "github.com/wishwell/wishwell-backend/pkg/errors"
	"github.com/wishwell/wishwell-backend/pkg/logger"
	"github.com/wishwell/wishwell-backend/pkg/metrics"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

// ContributionDTO is the self view a contributor gets of their own row.
type ContributionDTO struct {
	ItemID    uuid.UUID    `json:"item_id"`
	Amount    money.Amount `json:"amount"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Service is the transactional contribution ledger. Every mutation runs
// inside the per-item critical section and a database transaction; the
// returned Aggregate reflects the committed state.
type Service interface {
	Reserve(ctx context.Context, itemID, contributorID uuid.UUID) (Aggregate, error)
	Contribute(ctx context.Context, itemID, contributorID uuid.UUID, amount money.Amount) (Aggregate, error)
	UpdateOwn(ctx context.Context, itemID, contributorID uuid.UUID, newAmount money.Amount) (Aggregate, error)
	Withdraw(ctx context.Context, itemID, contributorID uuid.UUID) (Aggregate, error)
	GetOwnContribution(ctx context.Context, itemID, contributorID uuid.UUID) (*ContributionDTO, error)
	GetAggregate(ctx context.Context, itemID uuid.UUID) (Aggregate, error)
}

type service struct {
	db        *db.Client
	locker    itemlock.Locker
	publisher realtime.Publisher
	metrics   *metrics.FundingMetrics
	logg      *logger.Logger
}

// ServiceParams bundles the ledger dependencies.
type ServiceParams struct {
	DB        *db.Client
	Locker    itemlock.Locker
	Publisher realtime.Publisher
	Metrics   *metrics.FundingMetrics
	Logger    *logger.Logger
}

// NewService validates and wires the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("item locker is required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	return &service{
		db:        params.DB,
		locker:    params.Locker,
		publisher: params.Publisher,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// Reserve commits the full remaining price as the caller's contribution.
func (s *service) Reserve(ctx context.Context, itemID, contributorID uuid.UUID) (Aggregate, error) {
	return s.mutate(ctx, "reserve", itemID, func(ctx context.Context, store *Store, item *models.Item, rows []models.Contribution) error {
		if hasRow(rows, contributorID) {
			return pkgerrors.New(pkgerrors.CodeAlreadyContributed, "use update to change your contribution")
		}
		price := money.Amount(item.PriceCents)
		agg := ComputeAggregate(price, rows)
		remaining, err := price.Sub(agg.TotalFunded)
		if err != nil || remaining.IsZero() {
			return pkgerrors.New(pkgerrors.CodeFullyFunded, "item is already fully funded")
		}
		return wrapCreateErr(store.Create(ctx, &models.Contribution{
			ItemID:        itemID,
			ContributorID: contributorID,
			AmountCents:   remaining.Units(),
		}))
	})
}

// Contribute adds a partial contribution for a first-time contributor.
func (s *service) Contribute(ctx context.Context, itemID, contributorID uuid.UUID, amount money.Amount) (Aggregate, error) {
	if amount <= 0 {
		return Aggregate{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return s.mutate(ctx, "contribute", itemID, func(ctx context.Context, store *Store, item *models.Item, rows []models.Contribution) error {
		if hasRow(rows, contributorID) {
			return pkgerrors.New(pkgerrors.CodeAlreadyContributed, "use update to change your contribution")
		}
		price := money.Amount(item.PriceCents)
		agg := ComputeAggregate(price, rows)
		remaining, err := price.Sub(agg.TotalFunded)
		if err != nil || remaining.IsZero() {
			return pkgerrors.New(pkgerrors.CodeFullyFunded, "item is already fully funded")
		}
		if amount > remaining {
			return pkgerrors.New(pkgerrors.CodeExceedsRemaining, "amount exceeds what's left to fund").
				WithDetails(map[string]any{"remaining": remaining.Units()})
		}
		return wrapCreateErr(store.Create(ctx, &models.Contribution{
			ItemID:        itemID,
			ContributorID: contributorID,
			AmountCents:   amount.Units(),
		}))
	})
}

// UpdateOwn replaces the caller's contribution amount. Zero withdraws.
func (s *service) UpdateOwn(ctx context.Context, itemID, contributorID uuid.UUID, newAmount money.Amount) (Aggregate, error) {
	if newAmount < 0 {
		return Aggregate{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	return s.mutate(ctx, "update_own", itemID, func(ctx context.Context, store *Store, item *models.Item, rows []models.Contribution) error {
		own := findRow(rows, contributorID)
		if own == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no contribution to update")
		}
		if newAmount.IsZero() {
			return store.Delete(ctx, itemID, contributorID)
		}
		price := money.Amount(item.PriceCents)
		agg := ComputeAggregate(price, rows)
		others, err := agg.TotalFunded.Sub(money.Amount(own.AmountCents))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ledger total below own contribution")
		}
		maxAmount, err := price.Sub(others)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ledger total exceeds price")
		}
		if newAmount > maxAmount {
			return pkgerrors.New(pkgerrors.CodeExceedsRemaining, "amount exceeds what's left to fund").
				WithDetails(map[string]any{"max": maxAmount.Units()})
		}
		return store.UpdateAmount(ctx, own.ID, newAmount.Units())
	})
}

// Withdraw removes the caller's contribution entirely.
func (s *service) Withdraw(ctx context.Context, itemID, contributorID uuid.UUID) (Aggregate, error) {
	return s.mutate(ctx, "withdraw", itemID, func(ctx context.Context, store *Store, item *models.Item, rows []models.Contribution) error {
		if !hasRow(rows, contributorID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no contribution to withdraw")
		}
		return store.Delete(ctx, itemID, contributorID)
	})
}

// GetOwnContribution returns the caller's own row.
func (s *service) GetOwnContribution(ctx context.Context, itemID, contributorID uuid.UUID) (*ContributionDTO, error) {
	store := NewStore(s.db.DB())
	row, err := store.Get(ctx, itemID, contributorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no contribution for this item")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contribution")
	}
	return &ContributionDTO{
		ItemID:    row.ItemID,
		Amount:    money.Amount(row.AmountCents),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// GetAggregate is the lock-free owner/public read.
func (s *service) GetAggregate(ctx context.Context, itemID uuid.UUID) (Aggregate, error) {
	store := NewStore(s.db.DB())
	item, err := store.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Aggregate{}, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return Aggregate{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
	}
	rows, err := store.ListByItem(ctx, itemID)
	if err != nil {
		return Aggregate{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list contributions")
	}
	return ComputeAggregate(money.Amount(item.PriceCents), rows), nil
}

type mutationFn func(ctx context.Context, store *Store, item *models.Item, rows []models.Contribution) error

// mutate runs fn inside the per-item lock and a transaction, recomputes the
// aggregate from committed rows, and publishes the funding event afterwards.
func (s *service) mutate(ctx context.Context, intent string, itemID uuid.UUID, fn mutationFn) (Aggregate, error) {
	lockStart := time.Now()
	release, err := s.locker.Acquire(ctx, itemID.String())
	if err != nil {
		s.metrics.IncMutation(intent, "busy")
		if errors.Is(err, itemlock.ErrTimeout) {
			return Aggregate{}, pkgerrors.New(pkgerrors.CodeBusy, "item is being updated, retry shortly")
		}
		return Aggregate{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire item lock")
	}
	defer release()
	s.metrics.ObserveLockWait(intent, time.Since(lockStart))

	var agg Aggregate
	var wishlistID uuid.UUID
	txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		store := NewStore(tx)
		item, err := store.GetItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load item")
		}
		wishlistID = item.WishlistID

		rows, err := store.ListByItem(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list contributions")
		}
		if err := fn(ctx, store, item, rows); err != nil {
			return err
		}

		fresh, err := store.ListByItem(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload contributions")
		}
		agg = ComputeAggregate(money.Amount(item.PriceCents), fresh)
		return nil
	})
	if txErr != nil {
		s.metrics.IncMutation(intent, "rejected")
		return Aggregate{}, txErr
	}

	s.metrics.IncMutation(intent, "committed")
	s.publish(ctx, wishlistID, itemID, agg)
	return agg, nil
}

// publish emits the post-commit event. Failures are logged, never returned;
// observers reconcile through the aggregate endpoint.
func (s *service) publish(ctx context.Context, wishlistID, itemID uuid.UUID, agg Aggregate) {
	event := realtime.Event{
		WishlistID:       wishlistID,
		ItemID:           itemID,
		TotalFunded:      agg.TotalFunded,
		ContributorCount: agg.ContributorCount,
		Status:           agg.Status,
	}
	if err := s.publisher.Publish(ctx, event); err != nil && s.logg != nil {
		logCtx := s.logg.WithItemID(ctx, itemID.String())
		s.logg.Error(logCtx, "publish funding event", err)
	}
}

// wrapCreateErr types insert failures. A unique violation here means a
// concurrent insert for the same (item, contributor) pair slipped past the
// in-lock row check, which can happen when instances race under the redis
// lock after a TTL expiry.
func wrapCreateErr(err error) error {
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, models.ContributionUniqueConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeAlreadyContributed, err, "contribution already recorded")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist contribution")
}

func hasRow(rows []models.Contribution, contributorID uuid.UUID) bool {
	return findRow(rows, contributorID) != nil
}

func findRow(rows []models.Contribution, contributorID uuid.UUID) *models.Contribution {
	for i := range rows {
		if rows[i].ContributorID == contributorID {
			return &rows[i]
		}
	}
	return nil
}
