package identity

import (
	"context"
	"net/http/httptest"
	"testing"

	apperrors "roomly/pkg/errors"
)

func TestCurrentUserResolvesKnownBearer(t *testing.T) {
	p := NewStaticProvider(map[string]string{
		"tok-1": "alice:alice@example.com",
		"tok-2": "bob",
	})

	u, err := p.CurrentUser(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "alice" || u.Email != "alice@example.com" {
		t.Errorf("user = %+v", u)
	}

	u, err = p.CurrentUser(context.Background(), "tok-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "bob" || u.Email != "" {
		t.Errorf("user = %+v", u)
	}
}

func TestCurrentUserRejectsUnknownOrEmpty(t *testing.T) {
	p := NewStaticProvider(map[string]string{"tok-1": "alice"})

	for _, bearer := range []string{"", "tok-9"} {
		_, err := p.CurrentUser(context.Background(), bearer)
		if !apperrors.HasCode(err, apperrors.CodeUnauthenticated) {
			t.Errorf("bearer %q: error = %v, want UNAUTHENTICATED", bearer, err)
		}
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/room/check-in", nil)
	if got := FromRequest(r); got != "" {
		t.Errorf("no header: got %q", got)
	}

	r.Header.Set("Authorization", "Bearer tok-1")
	if got := FromRequest(r); got != "tok-1" {
		t.Errorf("got %q, want tok-1", got)
	}

	r.Header.Set("Authorization", "bearer tok-1")
	if got := FromRequest(r); got != "tok-1" {
		t.Errorf("lowercase scheme: got %q, want tok-1", got)
	}

	r.Header.Set("Authorization", "Basic abc")
	if got := FromRequest(r); got != "" {
		t.Errorf("wrong scheme: got %q", got)
	}
}
