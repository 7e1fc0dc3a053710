package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

func newWishlistServiceForTest(t *testing.T, users *stubUserRepository) WishlistService {
	t.Helper()
	svc, err := NewWishlistService(WishlistServiceDeps{Users: users})
	if err != nil {
		t.Fatalf("NewWishlistService: %v", err)
	}
	return svc
}

func TestWishlistServiceSyncOverwritesToOne(t *testing.T) {
	users := newStubUserRepository(domain.User{
		ID:       "cust-1",
		Wishlist: domain.ItemMap{"prod-1": {"M": 1}},
	})
	svc := newWishlistServiceForTest(t, users)

	wishlist, changed, err := svc.Sync(context.Background(), "cust-1", []domain.ItemRef{
		{ProductID: "prod-1", Size: "M", Quantity: 7},
		{ProductID: "prod-2", Size: "S"},
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 change, got %d", changed)
	}
	if wishlist.Get("prod-1", "M") != 1 || wishlist.Get("prod-2", "S") != 1 {
		t.Fatalf("wishlist quantities must pin to 1, got %v", wishlist)
	}
}

func TestWishlistServiceAddAndRemove(t *testing.T) {
	users := newStubUserRepository(domain.User{ID: "cust-1"})
	svc := newWishlistServiceForTest(t, users)

	wishlist, err := svc.Add(context.Background(), "cust-1", "prod-1", "M")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if wishlist.Get("prod-1", "M") != 1 {
		t.Fatalf("expected quantity 1, got %d", wishlist.Get("prod-1", "M"))
	}

	users.users["cust-1"] = domain.User{ID: "cust-1", Wishlist: wishlist}

	wishlist, err = svc.Remove(context.Background(), "cust-1", "prod-1", "M")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, exists := wishlist["prod-1"]; exists {
		t.Fatalf("expected prune after removal, got %v", wishlist)
	}

	if _, err := svc.Remove(context.Background(), "cust-1", "prod-9", "M"); !errors.Is(err, ErrWishlistItemNotFound) {
		t.Fatalf("expected ErrWishlistItemNotFound, got %v", err)
	}
}
