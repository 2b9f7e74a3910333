package model

import "time"

// Session status values. A session only ever moves pending -> approved or
// pending -> expired; the reverse transitions do not exist.
const (
	SessionPending  = "pending"
	SessionApproved = "approved"
	SessionExpired  = "expired"
)

// ClaimSession pairs an anonymous scanning party with a pending approval.
// Held server-side only; the token is the sole handle the client ever sees.
type ClaimSession struct {
	Token     string        `json:"token"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	TTL       time.Duration `json:"-"`
	UserID    string        `json:"userId,omitempty"`
}

// ExpiredBy reports whether a still-pending session has outlived its TTL at
// the given instant.
func (s *ClaimSession) ExpiredBy(now time.Time) bool {
	return s.Status == SessionPending && now.Sub(s.CreatedAt) > s.TTL
}
