package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
)

type principalsRepo struct {
	s *Store
}

const principalColumns = `id, phone, email, name, password_hash, role, status, push_token,
	active_session_id, active_device_info, current_refresh_token, session_version,
	phone_verified_at, email_verified_at, last_login_at, created_at, updated_at`

func scanPrincipal(row *sql.Row) (domain.Principal, error) {
	var (
		p                                      domain.Principal
		phone, email, hash, push               sql.NullString
		sid, device, refresh                   sql.NullString
		phoneVerified, emailVerified, lastSeen sql.NullInt64
		created, updated                       int64
	)
	err := row.Scan(
		&p.ID, &phone, &email, &p.Name, &hash, &p.Role, &p.Status, &push,
		&sid, &device, &refresh, &p.SessionVersion,
		&phoneVerified, &emailVerified, &lastSeen, &created, &updated,
	)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}

	p.Phone = mapNullString(phone)
	p.Email = mapNullString(email)
	p.PasswordHash = mapNullString(hash)
	p.PushToken = mapNullString(push)
	p.ActiveSessionID = mapNullString(sid)
	p.ActiveDeviceInfo = mapNullString(device)
	p.CurrentRefreshToken = mapNullString(refresh)
	p.PhoneVerifiedAt = mapNullMillis(phoneVerified)
	p.EmailVerifiedAt = mapNullMillis(emailVerified)
	p.LastLoginAt = mapNullMillis(lastSeen)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func (r *principalsRepo) Create(ctx context.Context, p domain.Principal) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	_, err := r.s.exec(ctx, `
		INSERT INTO principals (id, phone, email, name, password_hash, role, status, push_token,
			session_version, phone_verified_at, email_verified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		p.ID, mapStringNull(p.Phone), mapStringNull(p.Email), p.Name, mapStringNull(p.PasswordHash),
		p.Role, p.Status, mapStringNull(p.PushToken),
		optionalMillis(p.PhoneVerifiedAt), optionalMillis(p.EmailVerifiedAt),
		toMillis(p.CreatedAt), toMillis(now),
	)
	if err != nil && r.s.dialect.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *principalsRepo) GetByID(ctx context.Context, id string) (domain.Principal, error) {
	return scanPrincipal(r.s.queryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = ?`, id))
}

func (r *principalsRepo) GetByIdentifier(ctx context.Context, identifier string) (domain.Principal, error) {
	return scanPrincipal(r.s.queryRow(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE phone = ? OR email = ? LIMIT 1`,
		identifier, identifier,
	))
}

func (r *principalsRepo) SwapSession(
	ctx context.Context,
	id string,
	expectedVersion int64,
	sessionID, deviceInfo string,
	at time.Time,
) error {
	n, err := r.s.exec(ctx, `
		UPDATE principals
		SET active_session_id = ?, active_device_info = ?, current_refresh_token = NULL,
			session_version = session_version + 1, last_login_at = ?, updated_at = ?
		WHERE id = ? AND session_version = ?`,
		sessionID, mapStringNull(deviceInfo), toMillis(at), toMillis(at), id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("swap session: %w", err)
	}
	return r.conflictOrMissing(ctx, id, n)
}

func (r *principalsRepo) ClearSession(ctx context.Context, id, expectedSessionID string) error {
	n, err := r.s.exec(ctx, `
		UPDATE principals
		SET active_session_id = NULL, active_device_info = NULL, current_refresh_token = NULL,
			session_version = session_version + 1, updated_at = ?
		WHERE id = ? AND active_session_id = ?`,
		toMillis(time.Now()), id, expectedSessionID,
	)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return r.conflictOrMissing(ctx, id, n)
}

func (r *principalsRepo) ClearAllSessions(ctx context.Context, id string) error {
	n, err := r.s.exec(ctx, `
		UPDATE principals
		SET active_session_id = NULL, active_device_info = NULL, current_refresh_token = NULL,
			session_version = session_version + 1, updated_at = ?
		WHERE id = ?`,
		toMillis(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("clear all sessions: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *principalsRepo) SetRefreshToken(ctx context.Context, id, sessionID, fingerprint string) error {
	n, err := r.s.exec(ctx, `
		UPDATE principals SET current_refresh_token = ?, updated_at = ?
		WHERE id = ? AND active_session_id = ?`,
		fingerprint, toMillis(time.Now()), id, sessionID,
	)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return r.conflictOrMissing(ctx, id, n)
}

func (r *principalsRepo) RotateRefreshToken(ctx context.Context, id, oldFP, newFP string) error {
	n, err := r.s.exec(ctx, `
		UPDATE principals SET current_refresh_token = ?, updated_at = ?
		WHERE id = ? AND current_refresh_token = ?`,
		newFP, toMillis(time.Now()), id, oldFP,
	)
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return r.conflictOrMissing(ctx, id, n)
}

func (r *principalsRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, `UPDATE principals SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, toMillis(time.Now()), id)
}

func (r *principalsRepo) UpdatePushToken(ctx context.Context, id, pushToken string) error {
	return r.updateOne(ctx, `UPDATE principals SET push_token = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(pushToken), toMillis(time.Now()), id)
}

func (r *principalsRepo) MarkVerified(ctx context.Context, id string, kind domain.IdentifierKind, at time.Time) error {
	var q string
	switch kind {
	case domain.IdentifierPhone:
		q = `UPDATE principals SET phone_verified_at = ?, updated_at = ? WHERE id = ?`
	case domain.IdentifierEmail:
		q = `UPDATE principals SET email_verified_at = ?, updated_at = ? WHERE id = ?`
	default:
		return fmt.Errorf("mark verified: unknown identifier kind %q", kind)
	}
	return r.updateOne(ctx, q, toMillis(at), toMillis(time.Now()), id)
}

func (r *principalsRepo) SetStatus(ctx context.Context, id, status string) error {
	return r.updateOne(ctx, `UPDATE principals SET status = ?, updated_at = ? WHERE id = ?`,
		status, toMillis(time.Now()), id)
}

func (r *principalsRepo) updateOne(ctx context.Context, q string, args ...any) error {
	n, err := r.s.exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// conflictOrMissing turns a zero row conditional update into ErrConflict,
// or ErrNotFound when the principal does not exist at all.
func (r *principalsRepo) conflictOrMissing(ctx context.Context, id string, affected int64) error {
	if affected > 0 {
		return nil
	}
	var one int
	err := r.s.queryRow(ctx, `SELECT 1 FROM principals WHERE id = ?`, id).Scan(&one)
	if err != nil {
		return mapNotFound(err)
	}
	return store.ErrConflict
}
