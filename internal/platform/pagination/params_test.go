package pagination

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestParseParamsDefaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/orders", nil)

	params, err := ParseParams(req)
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if params.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", DefaultPageSize, params.PageSize)
	}
	if params.PageToken != "" {
		t.Fatalf("expected empty token, got %q", params.PageToken)
	}
}

func TestParseParamsClampsOversizedPage(t *testing.T) {
	req := httptest.NewRequest("GET", "/orders?pageSize=5000", nil)

	params, err := ParseParams(req, WithMaxPageSize(25))
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if params.PageSize != 25 {
		t.Fatalf("expected clamp to 25, got %d", params.PageSize)
	}
}

func TestParseParamsRejectsBadPageSize(t *testing.T) {
	for _, raw := range []string{"0", "-3", "abc"} {
		req := httptest.NewRequest("GET", "/orders?pageSize="+raw, nil)
		if _, err := ParseParams(req); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("pageSize %q: expected ErrInvalidPageSize, got %v", raw, err)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := EncodeToken(Cursor{StartAfter: []any{"2026-08-01T10:00:00Z", "ord_01ABC"}})
	if err != nil {
		t.Fatalf("EncodeToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	cursor, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	if len(cursor.StartAfter) != 2 || cursor.StartAfter[1] != "ord_01ABC" {
		t.Fatalf("unexpected cursor %+v", cursor)
	}
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	if _, err := DecodeToken("!!not-base64!!"); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestEncodeTokenEmptyCursor(t *testing.T) {
	token, err := EncodeToken(Cursor{})
	if err != nil {
		t.Fatalf("EncodeToken: %v", err)
	}
	if token != "" {
		t.Fatalf("empty cursor must yield empty token, got %q", token)
	}
}
