package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict reports a conditional update that matched no row because
	// another writer got there first.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it and expose one repository per aggregate.
type Store interface {
	Principals() Principals
	OTPs() OTPs

	ApplyMigrations() error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Principals persists accounts and their embedded session state. Every
// mutation of the session fields is a conditional update so concurrent
// logins and refreshes resolve to exactly one winner.
type Principals interface {
	// Create inserts p. A duplicate phone or email yields ErrAlreadyExists.
	Create(ctx context.Context, p domain.Principal) error

	GetByID(ctx context.Context, id string) (domain.Principal, error)

	// GetByIdentifier looks up by normalised phone or email.
	GetByIdentifier(ctx context.Context, identifier string) (domain.Principal, error)

	// SwapSession installs a new active session if the row is still at
	// expectedVersion, clearing the stored refresh token and bumping the
	// version. A stale version yields ErrConflict.
	SwapSession(ctx context.Context, id string, expectedVersion int64, sessionID, deviceInfo string, at time.Time) error

	// ClearSession clears the session fields only while expectedSessionID
	// is still active. Otherwise ErrConflict.
	ClearSession(ctx context.Context, id, expectedSessionID string) error

	// ClearAllSessions clears the session fields unconditionally.
	ClearAllSessions(ctx context.Context, id string) error

	// SetRefreshToken stores the fingerprint for sessionID, only while that
	// session is active. Otherwise ErrConflict.
	SetRefreshToken(ctx context.Context, id, sessionID, fingerprint string) error

	// RotateRefreshToken swaps oldFP for newFP. Losing the swap to a
	// concurrent rotation yields ErrConflict.
	RotateRefreshToken(ctx context.Context, id, oldFP, newFP string) error

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdatePushToken(ctx context.Context, id, pushToken string) error
	MarkVerified(ctx context.Context, id string, kind domain.IdentifierKind, at time.Time) error
	SetStatus(ctx context.Context, id, status string) error
}

// OTPs persists one-time code records. Records are append only apart from
// the attempt counter and the used marker, both set conditionally.
type OTPs interface {
	Create(ctx context.Context, rec domain.OTPRecord) error

	// LatestUnused returns the newest unused record for identifier. An empty
	// purpose matches any purpose.
	LatestUnused(ctx context.Context, identifier string, purpose domain.OTPPurpose) (domain.OTPRecord, error)

	// IncrementAttempts bumps the counter while it is below max and the
	// record is unused. Otherwise ErrConflict.
	IncrementAttempts(ctx context.Context, id string, max int) error

	// MarkUsed sets used_at once. A second call yields ErrConflict.
	MarkUsed(ctx context.Context, id string, at time.Time) error

	// DeleteExpired removes records that expired, or were used, before
	// cutoff and returns how many went.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
