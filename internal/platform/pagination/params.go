package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits pageSize.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps the supported pageSize to prevent unbounded queries.
	DefaultMaxPageSize = 100
)

var (
	// ErrInvalidPageSize is returned when pageSize is not a positive integer.
	ErrInvalidPageSize = errors.New("pagination: invalid page size")
	// ErrInvalidPageToken is returned when the supplied page token cannot be decoded.
	ErrInvalidPageToken = errors.New("pagination: invalid page token")
)

// Params bundles the page size and opaque continuation token extracted from a request.
type Params struct {
	PageSize  int
	PageToken string
}

// ParamsOption customises parsing limits.
type ParamsOption func(*paramsConfig)

type paramsConfig struct {
	defaultSize int
	maxSize     int
}

// WithDefaultPageSize overrides the page size applied when the client omits one.
func WithDefaultPageSize(size int) ParamsOption {
	return func(cfg *paramsConfig) {
		if size > 0 {
			cfg.defaultSize = size
		}
	}
}

// WithMaxPageSize overrides the upper bound enforced on client supplied sizes.
func WithMaxPageSize(size int) ParamsOption {
	return func(cfg *paramsConfig) {
		if size > 0 {
			cfg.maxSize = size
		}
	}
}

// ParseParams extracts pageSize and pageToken query values, applying defaults
// and clamping oversized requests.
func ParseParams(r *http.Request, opts ...ParamsOption) (Params, error) {
	cfg := paramsConfig{
		defaultSize: DefaultPageSize,
		maxSize:     DefaultMaxPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	params := Params{PageSize: cfg.defaultSize}
	if r == nil {
		return params, nil
	}

	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPageSize, raw)
		}
		if size > cfg.maxSize {
			size = cfg.maxSize
		}
		params.PageSize = size
	}
	params.PageToken = strings.TrimSpace(query.Get("pageToken"))
	return params, nil
}
