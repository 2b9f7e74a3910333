package identity

import (
	"context"
	"net/http"
	"strings"

	apperrors "roomly/pkg/errors"
)

// User is the authenticated requester resolved from a bearer credential.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Provider resolves a bearer credential to a user. The hosted deployment
// fronts a managed auth service; the demo deployment uses a static table.
type Provider interface {
	CurrentUser(ctx context.Context, bearer string) (*User, error)
}

type staticProvider struct {
	users map[string]User
}

// NewStaticProvider builds a provider from bearer -> "userID:email" pairs.
// Entries without an email part resolve to a user with only an ID.
func NewStaticProvider(tokens map[string]string) Provider {
	users := make(map[string]User, len(tokens))
	for bearer, value := range tokens {
		parts := strings.SplitN(value, ":", 2)
		u := User{ID: parts[0]}
		if len(parts) == 2 {
			u.Email = parts[1]
		}
		users[bearer] = u
	}
	return &staticProvider{users: users}
}

func (p *staticProvider) CurrentUser(ctx context.Context, bearer string) (*User, error) {
	if bearer == "" {
		return nil, apperrors.Unauthenticated("Missing bearer credential")
	}
	u, ok := p.users[bearer]
	if !ok {
		return nil, apperrors.Unauthenticated("Unknown bearer credential")
	}
	return &u, nil
}

// FromRequest extracts the bearer credential from the Authorization header.
// Returns "" when the header is absent or not a bearer scheme.
func FromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
