package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/auth"
	"github.com/Festuskumi/TCtrl-backend/internal/platform/httpx"
)

const maxJSONBodySize = 64 * 1024

// decodeJSONBody reads and decodes a JSON request body into dst.
func decodeJSONBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodySize+1))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(body) > maxJSONBodySize {
		return errors.New("request body too large")
	}
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// requireIdentity extracts the authenticated user id or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity.UID, true
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, code string, err error) {
	httpx.WriteError(r.Context(), w, httpx.NewError(code, err.Error(), http.StatusBadRequest))
}

type itemRefPayload struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

func toItemRefs(payload []itemRefPayload) []domain.ItemRef {
	refs := make([]domain.ItemRef, 0, len(payload))
	for _, item := range payload {
		refs = append(refs, domain.ItemRef{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
		})
	}
	return refs
}

func fromItemRefs(refs []domain.ItemRef) []itemRefPayload {
	payload := make([]itemRefPayload, 0, len(refs))
	for _, ref := range refs {
		payload = append(payload, itemRefPayload{
			ProductID: ref.ProductID,
			Size:      ref.Size,
			Quantity:  ref.Quantity,
		})
	}
	return payload
}

type addressPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	County    string `json:"county,omitempty"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

func (a addressPayload) toDomain() domain.Address {
	return domain.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Street:    a.Street,
		City:      a.City,
		County:    a.County,
		Postcode:  a.Postcode,
		Country:   a.Country,
		Phone:     a.Phone,
	}
}

func fromAddress(addr domain.Address) addressPayload {
	return addressPayload{
		FirstName: addr.FirstName,
		LastName:  addr.LastName,
		Email:     addr.Email,
		Street:    addr.Street,
		City:      addr.City,
		County:    addr.County,
		Postcode:  addr.Postcode,
		Country:   addr.Country,
		Phone:     addr.Phone,
	}
}

type orderItemPayload struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type orderPayload struct {
	ID      string             `json:"id"`
	UserID  string             `json:"userId"`
	Items   []orderItemPayload `json:"items"`
	Amount  float64            `json:"amount"`
	Address addressPayload     `json:"address"`
	Status  string             `json:"status"`
	Payment bool               `json:"payment"`
	Method  string             `json:"method"`
	Date    time.Time          `json:"date"`
}

func fromOrder(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	return orderPayload{
		ID:      order.ID,
		UserID:  order.UserID,
		Items:   items,
		Amount:  order.Amount,
		Address: fromAddress(order.Address),
		Status:  string(order.Status),
		Payment: order.Payment,
		Method:  string(order.Method),
		Date:    order.Date,
	}
}

func fromOrders(orders []domain.Order) []orderPayload {
	payload := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, fromOrder(order))
	}
	return payload
}
