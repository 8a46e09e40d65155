package funding

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/internal/funding/itemlock"
	"github.com/wishwell/wishwell-backend/internal/realtime"
	"github.com/wishwell/wishwell-backend/pkg/db"
	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/metrics"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:funding_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Wishlist{}, &models.Item{}, &models.Contribution{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func mustCreateTestUser(t *testing.T, tx *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("ww_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		DisplayName:  "Ledger Tester",
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func mustCreateTestItem(t *testing.T, tx *gorm.DB, priceCents int64) *models.Item {
	t.Helper()
	owner := mustCreateTestUser(t, tx)
	wishlist := &models.Wishlist{
		ID:      uuid.New(),
		OwnerID: owner.ID,
		Title:   "Birthday",
		Slug:    fmt.Sprintf("birthday-%s", uuid.NewString()[:8]),
	}
	if err := tx.Create(wishlist).Error; err != nil {
		t.Fatalf("create wishlist: %v", err)
	}
	item := &models.Item{
		ID:         uuid.New(),
		WishlistID: wishlist.ID,
		Name:       "Espresso Machine",
		PriceCents: priceCents,
	}
	if err := tx.Create(item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.Event, len(p.events))
	copy(out, p.events)
	return out
}

func newTestService(t *testing.T) (Service, *gorm.DB, *recordingPublisher) {
	t.Helper()
	conn := openTestDB(t)
	publisher := &recordingPublisher{}
	svc, err := NewService(ServiceParams{
		DB:        db.NewFromGorm(conn),
		Locker:    itemlock.NewKeyed(itemlock.Config{WaitTimeout: 2 * time.Second}),
		Publisher: publisher,
		Metrics:   metrics.NewFundingMetrics(nil),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, conn, publisher
}
