package funding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/internal/funding/itemlock"
	"github.com/wishwell/wishwell-backend/pkg/db"
	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/enums"
	pkgerrors "github.com/wishwell/wishwell-backend/pkg/errors"
	"github.com/wishwell/wishwell-backend/pkg/metrics"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func assertInvariant(t *testing.T, conn *gorm.DB, itemID uuid.UUID, priceCents int64) {
	t.Helper()
	var total int64
	if err := conn.Model(&models.Contribution{}).
		Where("item_id = ?", itemID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error; err != nil {
		t.Fatalf("sum contributions: %v", err)
	}
	if total < 0 || total > priceCents {
		t.Fatalf("funding invariant violated: total %d outside [0, %d]", total, priceCents)
	}
}

func TestContributePartialMovesToPartiallyFunded(t *testing.T) {
	svc, conn, publisher := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 10000)
	contributor := mustCreateTestUser(t, conn)

	agg, err := svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(2500))
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if agg.TotalFunded != 2500 || agg.ContributorCount != 1 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
	if agg.Status != enums.FundingStatusPartiallyFunded {
		t.Fatalf("expected PARTIALLY_FUNDED, got %s", agg.Status)
	}
	assertInvariant(t, conn, item.ID, item.PriceCents)

	events := publisher.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].ItemID != item.ID || events[0].WishlistID != item.WishlistID {
		t.Fatalf("unexpected event routing %+v", events[0])
	}
	if events[0].Status != enums.FundingStatusPartiallyFunded {
		t.Fatalf("unexpected event status %s", events[0].Status)
	}
}

func TestReserveCommitsRemainingPrice(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 10000)
	partial := mustCreateTestUser(t, conn)
	reserver := mustCreateTestUser(t, conn)

	if _, err := svc.Contribute(ctx, item.ID, partial.ID, money.Amount(3000)); err != nil {
		t.Fatalf("seed partial contribution: %v", err)
	}

	agg, err := svc.Reserve(ctx, item.ID, reserver.ID)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if agg.TotalFunded != 10000 || agg.Status != enums.FundingStatusFullyFunded {
		t.Fatalf("expected fully funded aggregate, got %+v", agg)
	}

	own, err := svc.GetOwnContribution(ctx, item.ID, reserver.ID)
	if err != nil {
		t.Fatalf("get own contribution: %v", err)
	}
	if own.Amount != 7000 {
		t.Fatalf("expected reservation of the 7000 remainder, got %d", own.Amount)
	}
	assertInvariant(t, conn, item.ID, item.PriceCents)
}

func TestReserveFailsWhenFullyFunded(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 5000)
	first := mustCreateTestUser(t, conn)
	second := mustCreateTestUser(t, conn)

	if _, err := svc.Reserve(ctx, item.ID, first.ID); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	_, err := svc.Reserve(ctx, item.ID, second.ID)
	expectCode(t, err, pkgerrors.CodeFullyFunded)
}

func TestReserveFailsForExistingContributor(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 5000)
	contributor := mustCreateTestUser(t, conn)

	if _, err := svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(1000)); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	_, err := svc.Reserve(ctx, item.ID, contributor.ID)
	expectCode(t, err, pkgerrors.CodeAlreadyContributed)
}

func TestContributeValidation(t *testing.T) {
	svc, conn, publisher := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 5000)
	contributor := mustCreateTestUser(t, conn)
	second := mustCreateTestUser(t, conn)

	_, err := svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(0))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(6000))
	expectCode(t, err, pkgerrors.CodeExceedsRemaining)

	if _, err := svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(5000)); err != nil {
		t.Fatalf("contribute full price: %v", err)
	}

	_, err = svc.Contribute(ctx, item.ID, second.ID, money.Amount(100))
	expectCode(t, err, pkgerrors.CodeFullyFunded)

	_, err = svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(100))
	expectCode(t, err, pkgerrors.CodeAlreadyContributed)

	// only the successful mutation produced an event
	if got := len(publisher.Events()); got != 1 {
		t.Fatalf("expected exactly one event, got %d", got)
	}
}

func TestContributeUnknownItem(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	contributor := mustCreateTestUser(t, conn)

	_, err := svc.Contribute(ctx, uuid.New(), contributor.ID, money.Amount(100))
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateOwnRespectsCap(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 10000)
	mine := mustCreateTestUser(t, conn)
	other := mustCreateTestUser(t, conn)

	if _, err := svc.Contribute(ctx, item.ID, mine.ID, money.Amount(2000)); err != nil {
		t.Fatalf("contribute mine: %v", err)
	}
	if _, err := svc.Contribute(ctx, item.ID, other.ID, money.Amount(3000)); err != nil {
		t.Fatalf("contribute other: %v", err)
	}

	// cap is price minus everyone else's total: 10000 - 3000 = 7000
	agg, err := svc.UpdateOwn(ctx, item.ID, mine.ID, money.Amount(7000))
	if err != nil {
		t.Fatalf("update to cap: %v", err)
	}
	if agg.TotalFunded != 10000 || agg.Status != enums.FundingStatusFullyFunded {
		t.Fatalf("unexpected aggregate %+v", agg)
	}

	_, err = svc.UpdateOwn(ctx, item.ID, mine.ID, money.Amount(7001))
	expectCode(t, err, pkgerrors.CodeExceedsRemaining)

	_, err = svc.UpdateOwn(ctx, item.ID, mine.ID, money.Amount(-1))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.UpdateOwn(ctx, item.ID, uuid.New(), money.Amount(100))
	expectCode(t, err, pkgerrors.CodeNotFound)

	assertInvariant(t, conn, item.ID, item.PriceCents)
}

func TestUpdateOwnToZeroWithdraws(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 5000)
	contributor := mustCreateTestUser(t, conn)

	if _, err := svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(5000)); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	agg, err := svc.UpdateOwn(ctx, item.ID, contributor.ID, money.Amount(0))
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if agg.TotalFunded != 0 || agg.Status != enums.FundingStatusAvailable {
		t.Fatalf("expected item back to AVAILABLE, got %+v", agg)
	}
	_, err = svc.GetOwnContribution(ctx, item.ID, contributor.ID)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestStatusIsReversible(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 10000)
	first := mustCreateTestUser(t, conn)
	second := mustCreateTestUser(t, conn)

	if _, err := svc.Contribute(ctx, item.ID, first.ID, money.Amount(4000)); err != nil {
		t.Fatalf("first contribution: %v", err)
	}
	agg, err := svc.Reserve(ctx, item.ID, second.ID)
	if err != nil {
		t.Fatalf("reserve remainder: %v", err)
	}
	if agg.Status != enums.FundingStatusFullyFunded {
		t.Fatalf("expected FULLY_FUNDED, got %s", agg.Status)
	}

	agg, err = svc.Withdraw(ctx, item.ID, second.ID)
	if err != nil {
		t.Fatalf("withdraw reservation: %v", err)
	}
	if agg.Status != enums.FundingStatusPartiallyFunded {
		t.Fatalf("expected PARTIALLY_FUNDED after withdrawal, got %s", agg.Status)
	}

	agg, err = svc.Withdraw(ctx, item.ID, first.ID)
	if err != nil {
		t.Fatalf("withdraw last contribution: %v", err)
	}
	if agg.Status != enums.FundingStatusAvailable {
		t.Fatalf("expected AVAILABLE after final withdrawal, got %s", agg.Status)
	}
	if agg.TotalFunded != 0 || agg.ContributorCount != 0 {
		t.Fatalf("expected empty aggregate, got %+v", agg)
	}

	_, err = svc.Withdraw(ctx, item.ID, first.ID)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestConcurrentReservesSerialize(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 10000)
	first := mustCreateTestUser(t, conn)
	second := mustCreateTestUser(t, conn)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, contributor := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(slot int, contributorID uuid.UUID) {
			defer wg.Done()
			_, errs[slot] = svc.Reserve(ctx, item.ID, contributorID)
		}(i, contributor)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		expectCode(t, err, pkgerrors.CodeFullyFunded)
	}
	if winners != 1 {
		t.Fatalf("expected exactly one reserve to win, got %d", winners)
	}

	agg, err := svc.GetAggregate(ctx, item.ID)
	if err != nil {
		t.Fatalf("get aggregate: %v", err)
	}
	if agg.TotalFunded != 10000 || agg.ContributorCount != 1 {
		t.Fatalf("expected single full reservation, got %+v", agg)
	}
	assertInvariant(t, conn, item.ID, item.PriceCents)
}

func TestLockTimeoutReturnsBusy(t *testing.T) {
	conn := openTestDB(t)
	locker := itemlock.NewKeyed(itemlock.Config{WaitTimeout: 50 * time.Millisecond})
	publisher := &recordingPublisher{}
	svc, err := NewService(ServiceParams{
		DB:        db.NewFromGorm(conn),
		Locker:    locker,
		Publisher: publisher,
		Metrics:   metrics.NewFundingMetrics(nil),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 5000)
	contributor := mustCreateTestUser(t, conn)

	release, err := locker.Acquire(ctx, item.ID.String())
	if err != nil {
		t.Fatalf("pre-acquire lock: %v", err)
	}
	defer release()

	_, err = svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(100))
	expectCode(t, err, pkgerrors.CodeBusy)
	if len(publisher.Events()) != 0 {
		t.Fatalf("busy mutation must not publish events")
	}
}

func TestGetAggregateIsLockFree(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 5000)
	contributor := mustCreateTestUser(t, conn)

	if _, err := svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(1200)); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	agg, err := svc.GetAggregate(ctx, item.ID)
	if err != nil {
		t.Fatalf("get aggregate: %v", err)
	}
	if agg.TotalFunded != 1200 || agg.ContributorCount != 1 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}

	_, err = svc.GetAggregate(ctx, uuid.New())
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateOwnRefreshesUpdatedAt(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateTestItem(t, conn, 10000)
	contributor := mustCreateTestUser(t, conn)

	if _, err := svc.Contribute(ctx, item.ID, contributor.ID, money.Amount(2000)); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	before, err := svc.GetOwnContribution(ctx, item.ID, contributor.ID)
	if err != nil {
		t.Fatalf("get own contribution: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := svc.UpdateOwn(ctx, item.ID, contributor.ID, money.Amount(3000)); err != nil {
		t.Fatalf("update own: %v", err)
	}
	after, err := svc.GetOwnContribution(ctx, item.ID, contributor.ID)
	if err != nil {
		t.Fatalf("get own contribution after update: %v", err)
	}

	if after.Amount != 3000 {
		t.Fatalf("expected updated amount 3000, got %d", after.Amount)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("updated_at not refreshed: before=%s after=%s", before.UpdatedAt, after.UpdatedAt)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("created_at must not change on update")
	}
}

func TestWrapCreateErrTypesInsertFailures(t *testing.T) {
	if wrapCreateErr(nil) != nil {
		t.Fatal("nil error must pass through")
	}

	dup := wrapCreateErr(errors.New("UNIQUE constraint failed: contributions.item_id, contributions.contributor_id"))
	expectCode(t, dup, pkgerrors.CodeAlreadyContributed)

	named := wrapCreateErr(errors.New(`duplicate key value violates unique constraint "contributions_item_contributor_key"`))
	expectCode(t, named, pkgerrors.CodeAlreadyContributed)

	other := wrapCreateErr(errors.New("disk I/O error"))
	expectCode(t, other, pkgerrors.CodeInternal)
}
