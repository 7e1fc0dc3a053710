package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const defaultAdminTokenTTL = 12 * time.Hour

var (
	// ErrAdminTokenInvalid signals a malformed, mis-signed, or wrong-role token.
	ErrAdminTokenInvalid = errors.New("auth: admin token invalid")
	// ErrAdminTokenExpired signals that the token's validity window has passed.
	ErrAdminTokenExpired = errors.New("auth: admin token expired")
)

// AdminTokenManager issues and verifies the HS256 tokens carried by the
// operational surface (status updates, payment repair). These are separate
// from customer Firebase tokens; operators do not have storefront accounts.
type AdminTokenManager struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// AdminTokenOption customises AdminTokenManager instances.
type AdminTokenOption func(*AdminTokenManager)

// WithAdminTokenTTL overrides the issued token lifetime.
func WithAdminTokenTTL(ttl time.Duration) AdminTokenOption {
	return func(m *AdminTokenManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithAdminTokenClock injects the time source, primarily for tests.
func WithAdminTokenClock(clock func() time.Time) AdminTokenOption {
	return func(m *AdminTokenManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewAdminTokenManager constructs a manager around the shared signing secret.
func NewAdminTokenManager(secret string, opts ...AdminTokenOption) (*AdminTokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: admin token secret is required")
	}
	m := &AdminTokenManager{
		secret: []byte(secret),
		ttl:    defaultAdminTokenTTL,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue mints a signed token for the given operator identifier.
func (m *AdminTokenManager) Issue(operatorID string) (string, error) {
	operatorID = strings.TrimSpace(operatorID)
	if operatorID == "" {
		return "", errors.New("auth: operator id is required")
	}

	now := m.clock().UTC()
	claims := adminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign admin token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the operator identifier it names.
func (m *AdminTokenManager) Verify(tokenStr string) (string, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return "", ErrAdminTokenInvalid
	}

	// Claims validation is done by hand against the injected clock; the
	// parser would otherwise check expiry against the wall clock.
	claims := &adminClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAdminTokenInvalid, err)
	}
	if claims.ExpiresAt == nil {
		return "", ErrAdminTokenInvalid
	}
	if !m.clock().UTC().Before(claims.ExpiresAt.Time) {
		return "", ErrAdminTokenExpired
	}
	if !strings.EqualFold(claims.Role, RoleAdmin) {
		return "", ErrAdminTokenInvalid
	}
	if claims.Subject == "" {
		return "", ErrAdminTokenInvalid
	}
	return claims.Subject, nil
}

// RequireAdminToken verifies the Authorization bearer token and stores an
// admin identity on the request context.
func (m *AdminTokenManager) RequireAdminToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}
			if m == nil {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization service unavailable")
				return
			}

			operatorID, err := m.Verify(tokenStr)
			if err != nil {
				switch {
				case errors.Is(err, ErrAdminTokenExpired):
					respondAuthError(w, http.StatusUnauthorized, "token_expired", "admin token expired")
				default:
					respondAuthError(w, http.StatusUnauthorized, "invalid_token", "admin token invalid")
				}
				return
			}

			identity := &Identity{
				UID:   operatorID,
				Roles: []string{RoleAdmin},
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
