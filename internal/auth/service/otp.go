package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/pkg/cryptox"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/idx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
	"github.com/pquerna/otp"
)

// DefaultOTPTTL is how long an issued code stays verifiable.
const DefaultOTPTTL = 10 * time.Minute

// OTPLedger issues, verifies and consumes one-time codes. Only a keyed
// fingerprint of each code is persisted.
type OTPLedger struct {
	Store  store.Store
	Sender OTPSender
	TTL    time.Duration

	// Key is the HMAC key for code fingerprints, normally the password
	// pepper. Rows leaked without it cannot be searched offline.
	Key []byte
}

func (l *OTPLedger) ttl() time.Duration {
	if l.TTL > 0 {
		return l.TTL
	}
	return DefaultOTPTTL
}

// codeHash binds the code to its record so equal codes never share a hash.
func (l *OTPLedger) codeHash(recordID, code string) string {
	return cryptox.KeyedFingerprint(l.Key, recordID+":"+code)
}

// Issue creates a fresh code for identifier and hands it to the sender. A
// delivery failure leaves the record in place; asking again issues a newer
// code which supersedes it.
func (l *OTPLedger) Issue(ctx context.Context, identifier string, purpose domain.OTPPurpose) (string, domain.OTPRecord, error) {
	code, err := cryptox.GenerateNumericCode(otp.DigitsSix)
	if err != nil {
		return "", domain.OTPRecord{}, errx.Internal(err)
	}

	now := time.Now()
	id := idx.NewAt(now).String()
	rec := domain.OTPRecord{
		ID:         id,
		Identifier: identifier,
		CodeHash:   l.codeHash(id, code),
		Purpose:    purpose,
		ExpiresAt:  now.Add(l.ttl()),
		CreatedAt:  now,
	}
	if err := l.Store.OTPs().Create(ctx, rec); err != nil {
		return "", domain.OTPRecord{}, errx.Internal(fmt.Errorf("create otp: %w", err))
	}

	if l.Sender != nil {
		if err := l.Sender.Send(ctx, identifier, purpose, code); err != nil {
			slogx.FromContext(ctx).Error("otp delivery failed",
				"otp_id", rec.ID,
				"purpose", string(purpose),
				"error", err,
			)
			return "", domain.OTPRecord{}, errx.ErrDeliveryFailed.Wrap(err)
		}
	}

	return code, rec, nil
}

// Verify checks code against the newest unused record for identifier and
// purpose. An empty purpose matches any. Every call that reaches the
// comparison costs one attempt, right or wrong.
func (l *OTPLedger) Verify(ctx context.Context, identifier, code string, purpose domain.OTPPurpose) (bool, error) {
	log := slogx.FromContext(ctx)

	rec, err := l.Store.OTPs().LatestUnused(ctx, identifier, purpose)
	if errors.Is(err, store.ErrNotFound) {
		return false, errx.ErrInvalidOTP
	}
	if err != nil {
		return false, errx.Internal(fmt.Errorf("load otp: %w", err))
	}

	state := rec.State(time.Now())
	switch {
	case state.Kind == domain.OTPExpired:
		return false, errx.ErrOTPExpired
	case !state.Verifiable():
		return false, errx.ErrTooManyAttempts
	}

	if err := l.Store.OTPs().IncrementAttempts(ctx, rec.ID, domain.MaxOTPAttempts); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return false, errx.Internal(err)
		}
		return false, l.lostAttempt(ctx, rec)
	}

	if !cryptox.FingerprintEqual(l.codeHash(rec.ID, code), rec.CodeHash) {
		log.Warn("otp mismatch", "otp_id", rec.ID, "attempt", rec.Attempts+1)
		return false, errx.ErrInvalidOTP
	}
	return true, nil
}

// lostAttempt explains a failed attempt increment: another request either
// used up the budget or consumed the record.
func (l *OTPLedger) lostAttempt(ctx context.Context, rec domain.OTPRecord) error {
	cur, err := l.Store.OTPs().LatestUnused(ctx, rec.Identifier, rec.Purpose)
	if err != nil || cur.ID != rec.ID {
		return errx.ErrInvalidOTP
	}
	return errx.ErrTooManyAttempts
}

// Consume marks the newest unused matching record used. It succeeds at most
// once per record.
func (l *OTPLedger) Consume(ctx context.Context, identifier, code string, purpose domain.OTPPurpose) error {
	rec, err := l.Store.OTPs().LatestUnused(ctx, identifier, purpose)
	if errors.Is(err, store.ErrNotFound) {
		return errx.ErrInvalidOTP
	}
	if err != nil {
		return errx.Internal(fmt.Errorf("load otp: %w", err))
	}
	if !cryptox.FingerprintEqual(l.codeHash(rec.ID, code), rec.CodeHash) {
		return errx.ErrInvalidOTP
	}

	err = l.Store.OTPs().MarkUsed(ctx, rec.ID, time.Now())
	if errors.Is(err, store.ErrConflict) {
		return errx.ErrInvalidOTP
	}
	if err != nil {
		return errx.Internal(fmt.Errorf("consume otp: %w", err))
	}
	return nil
}

// PurgeExpired deletes records that expired or were consumed before cutoff.
func (l *OTPLedger) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return l.Store.OTPs().DeleteExpired(ctx, cutoff)
}
