package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/repositories"
)

var (
	// ErrCartInvalidInput signals the caller provided invalid cart data.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrUserNotFound indicates the account document could not be located.
	ErrUserNotFound = errors.New("cart: user not found")
)

// CartServiceDeps bundles collaborators for the cart service.
type CartServiceDeps struct {
	Users  repositories.UserRepository
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	users  repositories.UserRepository
	logger func(context.Context, string, map[string]any)
}

// NewCartService wires dependencies into a CartService.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Users == nil {
		return nil, errors.New("cart service: user repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{users: deps.Users, logger: logger}, nil
}

func (s *cartService) Items(ctx context.Context, userID string) ([]domain.ItemRef, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Cart.Flatten(), nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID, size string) (domain.ItemMap, error) {
	productID = strings.TrimSpace(productID)
	size = strings.TrimSpace(size)
	if productID == "" || size == "" {
		return nil, fmt.Errorf("%w: product id and size are required", ErrCartInvalidInput)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := user.Cart.Clone()
	cart.AddOne(productID, size)
	if err := s.saveCart(ctx, user.ID, cart); err != nil {
		return nil, err
	}

	s.logger(ctx, "cart.item.added", map[string]any{
		"userId":    user.ID,
		"productId": productID,
		"size":      size,
	})
	return cart, nil
}

func (s *cartService) SetQuantity(ctx context.Context, userID, productID, size string, quantity int) (domain.ItemMap, error) {
	productID = strings.TrimSpace(productID)
	size = strings.TrimSpace(size)
	if productID == "" || size == "" {
		return nil, fmt.Errorf("%w: product id and size are required", ErrCartInvalidInput)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := user.Cart.Clone()
	cart.Set(productID, size, quantity)
	if err := s.saveCart(ctx, user.ID, cart); err != nil {
		return nil, err
	}

	s.logger(ctx, "cart.item.updated", map[string]any{
		"userId":    user.ID,
		"productId": productID,
		"size":      size,
		"quantity":  quantity,
	})
	return cart, nil
}

func (s *cartService) Merge(ctx context.Context, userID string, incoming []domain.ItemRef) (domain.ItemMap, int, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	cart := user.Cart.Clone()
	changed := cart.MergeMax(incoming)
	if changed > 0 {
		if err := s.saveCart(ctx, user.ID, cart); err != nil {
			return nil, 0, err
		}
	}

	s.logger(ctx, "cart.merged", map[string]any{
		"userId":   user.ID,
		"incoming": len(incoming),
		"changed":  changed,
	})
	return cart, changed, nil
}

func (s *cartService) loadUser(ctx context.Context, userID string) (domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, mapUserRepositoryError(err)
	}
	return user, nil
}

func (s *cartService) saveCart(ctx context.Context, userID string, cart domain.ItemMap) error {
	if err := s.users.SaveCart(ctx, userID, cart); err != nil {
		return mapUserRepositoryError(err)
	}
	return nil
}

func mapUserRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	}
	return err
}
