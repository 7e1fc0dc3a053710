package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	pfirestore "github.com/Festuskumi/TCtrl-backend/internal/platform/firestore"
	"github.com/Festuskumi/TCtrl-backend/internal/repositories"
)

const usersCollection = "users"

// UserRepository reads and writes the slice of the account document owned by
// this service: display fields plus the cart and wishlist maps.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[userDocument](provider, usersCollection, nil, nil)
	return &UserRepository{base: base}, nil
}

type userDocument struct {
	Name         string                    `firestore:"name"`
	Email        string                    `firestore:"email"`
	CartData     map[string]map[string]int `firestore:"cartData"`
	WishlistData map[string]map[string]int `firestore:"wishlistData"`
}

// FindByID fetches the account document keyed by the Firebase UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:       doc.ID,
		Name:     doc.Data.Name,
		Email:    doc.Data.Email,
		Cart:     domain.ItemMap(doc.Data.CartData).Clone(),
		Wishlist: domain.ItemMap(doc.Data.WishlistData).Clone(),
	}, nil
}

// SaveCart replaces the stored cart map. Missing accounts surface as not
// found rather than being created implicitly.
func (r *UserRepository) SaveCart(ctx context.Context, userID string, cart domain.ItemMap) error {
	return r.saveItemMap(ctx, userID, "cartData", cart)
}

// SaveWishlist replaces the stored wishlist map.
func (r *UserRepository) SaveWishlist(ctx context.Context, userID string, wishlist domain.ItemMap) error {
	return r.saveItemMap(ctx, userID, "wishlistData", wishlist)
}

func (r *UserRepository) saveItemMap(ctx context.Context, userID, field string, items domain.ItemMap) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("user repository: user id is required")
	}
	if items == nil {
		items = domain.ItemMap{}
	}
	_, err := r.base.Update(ctx, userID, []firestore.Update{
		{Path: field, Value: map[string]map[string]int(items)},
	})
	return err
}
