package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
)

type otpsRepo struct {
	s *Store
}

func (r *otpsRepo) Create(ctx context.Context, rec domain.OTPRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.s.exec(ctx, `
		INSERT INTO otp_codes (id, identifier, code_hash, purpose, attempts, expires_at, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		rec.ID, rec.Identifier, rec.CodeHash, string(rec.Purpose),
		toMillis(rec.ExpiresAt), toMillis(rec.CreatedAt),
	)
	if err != nil && r.s.dialect.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *otpsRepo) LatestUnused(ctx context.Context, identifier string, purpose domain.OTPPurpose) (domain.OTPRecord, error) {
	row := r.s.queryRow(ctx, `
		SELECT id, identifier, code_hash, purpose, attempts, expires_at, used_at, created_at
		FROM otp_codes
		WHERE identifier = ? AND used_at IS NULL AND (? = '' OR purpose = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		identifier, string(purpose), string(purpose),
	)

	var (
		rec              domain.OTPRecord
		purposeStr       string
		expires, created int64
		used             sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &rec.Identifier, &rec.CodeHash, &purposeStr,
		&rec.Attempts, &expires, &used, &created); err != nil {
		return domain.OTPRecord{}, mapNotFound(err)
	}
	rec.Purpose = domain.OTPPurpose(purposeStr)
	rec.ExpiresAt = fromMillis(expires)
	rec.UsedAt = mapNullMillis(used)
	rec.CreatedAt = fromMillis(created)
	return rec, nil
}

func (r *otpsRepo) IncrementAttempts(ctx context.Context, id string, max int) error {
	n, err := r.s.exec(ctx, `
		UPDATE otp_codes SET attempts = attempts + 1
		WHERE id = ? AND attempts < ? AND used_at IS NULL`,
		id, max,
	)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *otpsRepo) MarkUsed(ctx context.Context, id string, at time.Time) error {
	n, err := r.s.exec(ctx, `UPDATE otp_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		toMillis(at), id)
	if err != nil {
		return fmt.Errorf("mark used: %w", err)
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *otpsRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ms := toMillis(cutoff)
	return r.s.exec(ctx, `
		DELETE FROM otp_codes
		WHERE expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)`,
		ms, ms,
	)
}
