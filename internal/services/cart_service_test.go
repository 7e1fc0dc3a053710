package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

func newCartServiceForTest(t *testing.T, users *stubUserRepository) CartService {
	t.Helper()
	svc, err := NewCartService(CartServiceDeps{Users: users})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func TestCartServiceMergeKeepsLargerQuantity(t *testing.T) {
	users := newStubUserRepository(domain.User{
		ID:   "cust-1",
		Cart: domain.ItemMap{"prod-1": {"M": 3, "L": 1}},
	})
	svc := newCartServiceForTest(t, users)

	merged, changed, err := svc.Merge(context.Background(), "cust-1", []domain.ItemRef{
		{ProductID: "prod-1", Size: "M", Quantity: 1},
		{ProductID: "prod-1", Size: "L", Quantity: 4},
		{ProductID: "prod-2", Size: "S", Quantity: 2},
		{ProductID: "", Size: "M", Quantity: 5},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if changed != 2 {
		t.Fatalf("expected 2 changes, got %d", changed)
	}
	if merged.Get("prod-1", "M") != 3 {
		t.Fatalf("existing larger quantity must win, got %d", merged.Get("prod-1", "M"))
	}
	if merged.Get("prod-1", "L") != 4 {
		t.Fatalf("incoming larger quantity must win, got %d", merged.Get("prod-1", "L"))
	}
	if merged.Get("prod-2", "S") != 2 {
		t.Fatalf("new entries must be added, got %d", merged.Get("prod-2", "S"))
	}
	if saved, ok := users.savedCarts["cust-1"]; !ok || saved.Get("prod-1", "L") != 4 {
		t.Fatalf("expected merged cart persisted, got %v", saved)
	}
}

func TestCartServiceMergeNoChangeSkipsSave(t *testing.T) {
	users := newStubUserRepository(domain.User{
		ID:   "cust-1",
		Cart: domain.ItemMap{"prod-1": {"M": 3}},
	})
	svc := newCartServiceForTest(t, users)

	_, changed, err := svc.Merge(context.Background(), "cust-1", []domain.ItemRef{
		{ProductID: "prod-1", Size: "M", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if changed != 0 {
		t.Fatalf("expected no changes, got %d", changed)
	}
	if _, saved := users.savedCarts["cust-1"]; saved {
		t.Fatal("unchanged merge must not write")
	}
}

func TestCartServiceFreshUserStartsEmptyCart(t *testing.T) {
	// Accounts created by the storefront carry no cart field until the first
	// write, so the repository hands back a nil map.
	users := newStubUserRepository(domain.User{ID: "cust-new"})
	svc := newCartServiceForTest(t, users)

	cart, err := svc.AddItem(context.Background(), "cust-new", "prod-1", "M")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if cart.Get("prod-1", "M") != 1 {
		t.Fatalf("expected first add to create the slot, got %v", cart)
	}
	if saved := users.savedCarts["cust-new"]; saved.Get("prod-1", "M") != 1 {
		t.Fatalf("expected cart persisted, got %v", saved)
	}

	merged, changed, err := svc.Merge(context.Background(), "cust-new", []domain.ItemRef{
		{ProductID: "prod-2", Size: "S", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if changed != 1 || merged.Get("prod-2", "S") != 2 {
		t.Fatalf("expected merge into empty cart, changed=%d map=%v", changed, merged)
	}
}

func TestCartServiceAddItemIncrements(t *testing.T) {
	users := newStubUserRepository(domain.User{
		ID:   "cust-1",
		Cart: domain.ItemMap{"prod-1": {"M": 1}},
	})
	svc := newCartServiceForTest(t, users)

	cart, err := svc.AddItem(context.Background(), "cust-1", "prod-1", "M")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if cart.Get("prod-1", "M") != 2 {
		t.Fatalf("expected increment to 2, got %d", cart.Get("prod-1", "M"))
	}

	if _, err := svc.AddItem(context.Background(), "cust-1", "", "M"); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartServiceSetQuantityZeroPrunes(t *testing.T) {
	users := newStubUserRepository(domain.User{
		ID:   "cust-1",
		Cart: domain.ItemMap{"prod-1": {"M": 2}},
	})
	svc := newCartServiceForTest(t, users)

	cart, err := svc.SetQuantity(context.Background(), "cust-1", "prod-1", "M", 0)
	if err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if _, exists := cart["prod-1"]; exists {
		t.Fatalf("expected product pruned, got %v", cart)
	}
}

func TestCartServiceItemsFlattens(t *testing.T) {
	users := newStubUserRepository(domain.User{
		ID:   "cust-1",
		Cart: domain.ItemMap{"prod-2": {"S": 1}, "prod-1": {"M": 2, "L": 0}},
	})
	svc := newCartServiceForTest(t, users)

	items, err := svc.Items(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 positive items, got %v", items)
	}
	if items[0].ProductID != "prod-1" || items[0].Size != "M" {
		t.Fatalf("expected sorted flatten, got %v", items)
	}
}

func TestCartServiceUnknownUser(t *testing.T) {
	svc := newCartServiceForTest(t, newStubUserRepository())
	if _, err := svc.Items(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
