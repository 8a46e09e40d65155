package items

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/pkg/db/models"
	pkgerrors "github.com/wishwell/wishwell-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:items_%s?mode=memory&cache=shared", uuid.NewString())
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

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, conn
}

func mustCreateWishlist(t *testing.T, conn *gorm.DB) (ownerID, wishlistID uuid.UUID) {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("owner_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		DisplayName:  "Owner",
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create owner: %v", err)
	}
	wishlist := &models.Wishlist{
		ID:      uuid.New(),
		OwnerID: user.ID,
		Title:   "Gifts",
		Slug:    fmt.Sprintf("gifts-%s", uuid.NewString()[:8]),
	}
	if err := conn.Create(wishlist).Error; err != nil {
		t.Fatalf("create wishlist: %v", err)
	}
	return user.ID, wishlist.ID
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestCreateParsesDecimalPrice(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID, wishlistID := mustCreateWishlist(t, conn)

	item, err := svc.Create(ctx, ownerID, wishlistID, CreateItemInput{
		Name:  "Espresso Machine",
		Price: "129.99",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.PriceCents != 12999 {
		t.Fatalf("expected 12999 cents, got %d", item.PriceCents)
	}
	if item.Price != "129.99" {
		t.Fatalf("expected formatted price 129.99, got %s", item.Price)
	}
}

func TestCreateRejectsBadPrices(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID, wishlistID := mustCreateWishlist(t, conn)

	for _, price := range []string{"0", "-5", "12.345", "abc", ""} {
		_, err := svc.Create(ctx, ownerID, wishlistID, CreateItemInput{Name: "X", Price: price})
		if err == nil {
			t.Fatalf("expected rejection for price %q", price)
		}
		expectCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestCreateEnforcesOwnership(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	_, wishlistID := mustCreateWishlist(t, conn)
	strangerID, _ := mustCreateWishlist(t, conn)

	_, err := svc.Create(ctx, strangerID, wishlistID, CreateItemInput{Name: "X", Price: "10.00"})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestUpdateRejectsPriceChangeOnceFunded(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID, wishlistID := mustCreateWishlist(t, conn)

	item, err := svc.Create(ctx, ownerID, wishlistID, CreateItemInput{Name: "Lamp", Price: "40.00"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	contributor := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("friend_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		DisplayName:  "Friend",
	}
	if err := conn.Create(contributor).Error; err != nil {
		t.Fatalf("create contributor: %v", err)
	}
	if err := conn.Create(&models.Contribution{
		ItemID:        item.ID,
		ContributorID: contributor.ID,
		AmountCents:   1000,
	}).Error; err != nil {
		t.Fatalf("create contribution: %v", err)
	}

	newPrice := "55.00"
	_, err = svc.Update(ctx, ownerID, item.ID, UpdateItemInput{Price: &newPrice})
	expectCode(t, err, pkgerrors.CodeConflict)

	// identical price and other fields still change fine
	samePrice := "40.00"
	newName := "Floor Lamp"
	updated, err := svc.Update(ctx, ownerID, item.ID, UpdateItemInput{Price: &samePrice, Name: &newName})
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if updated.Name != newName || updated.PriceCents != 4000 {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestDeleteCascadesContributions(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID, wishlistID := mustCreateWishlist(t, conn)

	item, err := svc.Create(ctx, ownerID, wishlistID, CreateItemInput{Name: "Chair", Price: "80.00"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	contributor := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("friend_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		DisplayName:  "Friend",
	}
	if err := conn.Create(contributor).Error; err != nil {
		t.Fatalf("create contributor: %v", err)
	}
	if err := conn.Create(&models.Contribution{
		ItemID:        item.ID,
		ContributorID: contributor.ID,
		AmountCents:   500,
	}).Error; err != nil {
		t.Fatalf("create contribution: %v", err)
	}

	if err := svc.Delete(ctx, ownerID, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	if err := conn.Model(&models.Contribution{}).Where("item_id = ?", item.ID).Count(&count).Error; err != nil {
		t.Fatalf("count contributions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected contributions removed with item, got %d", count)
	}
}
