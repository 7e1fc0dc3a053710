package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/repositories"
)

// ErrWishlistItemNotFound indicates a removal targeted an absent entry.
var ErrWishlistItemNotFound = errors.New("wishlist: item not found")

// WishlistServiceDeps bundles collaborators for the wishlist service.
type WishlistServiceDeps struct {
	Users  repositories.UserRepository
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type wishlistService struct {
	users  repositories.UserRepository
	logger func(context.Context, string, map[string]any)
}

// NewWishlistService wires dependencies into a WishlistService.
func NewWishlistService(deps WishlistServiceDeps) (WishlistService, error) {
	if deps.Users == nil {
		return nil, errors.New("wishlist service: user repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &wishlistService{users: deps.Users, logger: logger}, nil
}

func (s *wishlistService) Items(ctx context.Context, userID string) ([]domain.ItemRef, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Wishlist.Flatten(), nil
}

func (s *wishlistService) Add(ctx context.Context, userID, productID, size string) (domain.ItemMap, error) {
	productID = strings.TrimSpace(productID)
	size = strings.TrimSpace(size)
	if productID == "" || size == "" {
		return nil, fmt.Errorf("%w: product id and size are required", ErrCartInvalidInput)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	wishlist := user.Wishlist.Clone()
	wishlist.Set(productID, size, 1)
	if err := s.saveWishlist(ctx, user.ID, wishlist); err != nil {
		return nil, err
	}

	s.logger(ctx, "wishlist.item.added", map[string]any{
		"userId":    user.ID,
		"productId": productID,
		"size":      size,
	})
	return wishlist, nil
}

func (s *wishlistService) Remove(ctx context.Context, userID, productID, size string) (domain.ItemMap, error) {
	productID = strings.TrimSpace(productID)
	size = strings.TrimSpace(size)
	if productID == "" || size == "" {
		return nil, fmt.Errorf("%w: product id and size are required", ErrCartInvalidInput)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	wishlist := user.Wishlist.Clone()
	if !wishlist.Remove(productID, size) {
		return nil, fmt.Errorf("%w: %s/%s", ErrWishlistItemNotFound, productID, size)
	}
	if err := s.saveWishlist(ctx, user.ID, wishlist); err != nil {
		return nil, err
	}

	s.logger(ctx, "wishlist.item.removed", map[string]any{
		"userId":    user.ID,
		"productId": productID,
		"size":      size,
	})
	return wishlist, nil
}

func (s *wishlistService) Sync(ctx context.Context, userID string, incoming []domain.ItemRef) (domain.ItemMap, int, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	wishlist := user.Wishlist.Clone()
	changed := wishlist.MergeOverwrite(incoming)
	if changed > 0 {
		if err := s.saveWishlist(ctx, user.ID, wishlist); err != nil {
			return nil, 0, err
		}
	}

	s.logger(ctx, "wishlist.synced", map[string]any{
		"userId":   user.ID,
		"incoming": len(incoming),
		"changed":  changed,
	})
	return wishlist, changed, nil
}

func (s *wishlistService) loadUser(ctx context.Context, userID string) (domain.User, error) {
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

func (s *wishlistService) saveWishlist(ctx context.Context, userID string, wishlist domain.ItemMap) error {
	if err := s.users.SaveWishlist(ctx, userID, wishlist); err != nil {
		return mapUserRepositoryError(err)
	}
	return nil
}
