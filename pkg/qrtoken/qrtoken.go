package qrtoken

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
)

const saltBytes = 16

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// IssuedToken is one issuance of a room's proof token. The salt never leaves
// the server; the token is what gets printed into the room's QR code.
type IssuedToken struct {
	RoomID    string    `json:"roomId"`
	Token     string    `json:"token"`
	Salt      string    `json:"-"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Generator derives proof tokens bound to a room identifier. Each issuance
// uses a fresh random salt, so reissuing a room's token invalidates the old
// printed code, while any single issued token re-derives exactly for
// verification within its validity window.
type Generator struct {
	chars    int
	validity time.Duration
	audit    *AuditLog

	now      func() time.Time
	randRead io.Reader
}

// NewGenerator creates a token generator producing tokens of the given display
// length. audit may be nil when no issuance log is wanted (tests).
func NewGenerator(chars int, validity time.Duration, audit *AuditLog) *Generator {
	return &Generator{
		chars:    chars,
		validity: validity,
		audit:    audit,
		now:      time.Now,
		randRead: rand.Reader,
	}
}

// Issue derives a fresh proof token for the room and records the issuance in
// the audit log.
func (g *Generator) Issue(roomID string) (*IssuedToken, error) {
	salt := make([]byte, saltBytes)
	if _, err := io.ReadFull(g.randRead, salt); err != nil {
		return nil, err
	}

	now := g.now()
	issued := &IssuedToken{
		RoomID:    roomID,
		Token:     derive(salt, roomID, g.chars),
		Salt:      hex.EncodeToString(salt),
		IssuedAt:  now,
		ExpiresAt: now.Add(g.validity),
	}

	if g.audit != nil {
		g.audit.Record(issued)
	}
	return issued, nil
}

// Verify re-derives the token for the given room and salt and compares it to
// the presented value in constant time.
func (g *Generator) Verify(roomID, saltHex, token string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	expected := derive(salt, roomID, g.chars)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

// derive stretches salt+roomID through HKDF-SHA256 and encodes the output as
// truncated base32 so the token fits a printed QR label.
func derive(salt []byte, roomID string, chars int) string {
	h := hkdf.New(sha256.New, []byte(roomID), salt, []byte("room-proof-token"))
	out := make([]byte, 20)
	if _, err := io.ReadFull(h, out); err != nil {
		// hkdf over sha256 cannot fail for these lengths
		panic(err)
	}
	encoded := b32.EncodeToString(out)
	if chars > 0 && chars < len(encoded) {
		encoded = encoded[:chars]
	}
	return encoded
}
