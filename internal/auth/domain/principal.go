package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// Roles a principal can hold. Tokens carry the role at issue time.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Account statuses. Only active principals can hold a valid session.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// IdentifierKind says which column an identifier lives in.
type IdentifierKind string

const (
	IdentifierPhone IdentifierKind = "phone"
	IdentifierEmail IdentifierKind = "email"
)

var ErrInvalidIdentifier = errors.New("identifier must be a phone number or email address")

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// NormalizeIdentifier canonicalises a phone number or email so lookups,
// OTP records and rate limit keys agree on one spelling.
func NormalizeIdentifier(raw string) (string, IdentifierKind, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, "@") {
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return "", "", ErrInvalidIdentifier
		}
		return strings.ToLower(s), IdentifierEmail, nil
	}

	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(s)
	if !phonePattern.MatchString(phone) {
		return "", "", ErrInvalidIdentifier
	}
	return phone, IdentifierPhone, nil
}

// Principal is an authenticated account. The session fields hold the single
// active session: ActiveSessionID is the only sid whose tokens are valid, and
// CurrentRefreshToken is the fingerprint of the only usable refresh token.
type Principal struct {
	ID           string
	Phone        string // normalised, empty if unset
	Email        string // lower-cased, empty if unset
	Name         string
	PasswordHash string // argon2id encoded, empty for OTP-only accounts
	Role         string
	Status       string
	PushToken    string

	ActiveSessionID     string
	ActiveDeviceInfo    string
	CurrentRefreshToken string // SHA-256 fingerprint, never the raw token
	SessionVersion      int64  // bumped on every session swap

	PhoneVerifiedAt *time.Time
	EmailVerifiedAt *time.Time
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive reports whether the account may authenticate.
func (p *Principal) IsActive() bool { return p.Status == StatusActive }

// HasSession reports whether sid is the principal's active session.
func (p *Principal) HasSession(sid string) bool {
	return sid != "" && p.ActiveSessionID == sid
}

// ValidRole reports whether role is one we issue tokens for.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}
