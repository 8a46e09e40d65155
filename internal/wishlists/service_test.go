package wishlists

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/enums"
	pkgerrors "github.com/wishwell/wishwell-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:wishlists_%s?mode=memory&cache=shared", uuid.NewString())
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

func mustCreateOwner(t *testing.T, conn *gorm.DB) uuid.UUID {
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
	return user.ID
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestCreateGeneratesUniqueSlugs(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID := mustCreateOwner(t, conn)

	first, err := svc.Create(ctx, ownerID, CreateWishlistInput{Title: "Birthday Wishes!"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(ctx, ownerID, CreateWishlistInput{Title: "Birthday Wishes!"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if first.Slug == second.Slug {
		t.Fatalf("expected distinct slugs, both %q", first.Slug)
	}
	for _, dto := range []*WishlistDTO{first, second} {
		if dto.Slug == "" || dto.Slug[0] == '-' {
			t.Fatalf("malformed slug %q", dto.Slug)
		}
	}
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	svc, conn := newTestService(t)
	ownerID := mustCreateOwner(t, conn)

	_, err := svc.Create(context.Background(), ownerID, CreateWishlistInput{Title: "   "})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateAndDeleteEnforceOwnership(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID := mustCreateOwner(t, conn)
	strangerID := mustCreateOwner(t, conn)

	created, err := svc.Create(ctx, ownerID, CreateWishlistInput{Title: "Mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newTitle := "Renamed"
	_, err = svc.Update(ctx, strangerID, created.ID, UpdateWishlistInput{Title: &newTitle})
	expectCode(t, err, pkgerrors.CodeForbidden)

	err = svc.Delete(ctx, strangerID, created.ID)
	expectCode(t, err, pkgerrors.CodeForbidden)

	updated, err := svc.Update(ctx, ownerID, created.ID, UpdateWishlistInput{Title: &newTitle})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != newTitle {
		t.Fatalf("expected title %q, got %q", newTitle, updated.Title)
	}

	if err := svc.Delete(ctx, ownerID, created.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	_, err = svc.GetOwn(ctx, ownerID, created.ID)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestListMinePaginates(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID := mustCreateOwner(t, conn)

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, ownerID, CreateWishlistInput{Title: fmt.Sprintf("List %d", i)}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := svc.ListMine(ctx, ownerID, "", 2)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page.Wishlists) != 2 {
		t.Fatalf("expected 2 wishlists, got %d", len(page.Wishlists))
	}
	if page.Pagination.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Pagination.Total)
	}
	if page.Pagination.Next == "" {
		t.Fatalf("expected next cursor")
	}

	seen := map[uuid.UUID]bool{}
	for _, dto := range page.Wishlists {
		seen[dto.ID] = true
	}

	second, err := svc.ListMine(ctx, ownerID, page.Pagination.Next, 2)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	for _, dto := range second.Wishlists {
		if seen[dto.ID] {
			t.Fatalf("wishlist %s repeated across pages", dto.ID)
		}
	}
}

func TestGetBySlugReturnsAggregatesOnly(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID := mustCreateOwner(t, conn)

	created, err := svc.Create(ctx, ownerID, CreateWishlistInput{Title: "Housewarming"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	item := &models.Item{
		ID:         uuid.New(),
		WishlistID: created.ID,
		Name:       "Blender",
		PriceCents: 8000,
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	contributorID := mustCreateOwner(t, conn)
	if err := conn.Create(&models.Contribution{
		ItemID:        item.ID,
		ContributorID: contributorID,
		AmountCents:   3000,
	}).Error; err != nil {
		t.Fatalf("create contribution: %v", err)
	}

	public, err := svc.GetBySlug(ctx, created.Slug)
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if len(public.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(public.Items))
	}
	got := public.Items[0]
	if got.TotalFunded != 3000 || got.ContributorCount != 1 {
		t.Fatalf("unexpected aggregate %+v", got)
	}
	if got.Status != enums.FundingStatusPartiallyFunded {
		t.Fatalf("expected PARTIALLY_FUNDED, got %s", got.Status)
	}

	_, err = svc.GetBySlug(ctx, "no-such-slug")
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestGetOwnHidesFundingDetail(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ownerID := mustCreateOwner(t, conn)

	created, err := svc.Create(ctx, ownerID, CreateWishlistInput{Title: "Wedding"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	item := &models.Item{
		ID:         uuid.New(),
		WishlistID: created.ID,
		Name:       "Toaster",
		PriceCents: 4000,
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	contributorID := mustCreateOwner(t, conn)
	if err := conn.Create(&models.Contribution{
		ItemID:        item.ID,
		ContributorID: contributorID,
		AmountCents:   4000,
	}).Error; err != nil {
		t.Fatalf("create contribution: %v", err)
	}

	own, err := svc.GetOwn(ctx, ownerID, created.ID)
	if err != nil {
		t.Fatalf("get own: %v", err)
	}
	if len(own.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(own.Items))
	}
	if own.Items[0].Status != enums.FundingStatusFullyFunded {
		t.Fatalf("owner should see status, got %s", own.Items[0].Status)
	}
}
