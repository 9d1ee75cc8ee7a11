package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/store"
	"github.com/aussiebroadwan/lectern/pkg/cryptox"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/idx"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// AuthService orchestrates the user facing flows on top of the ledger,
// sessions and tokens.
type AuthService struct {
	Store     store.Store
	OTPs      *OTPLedger
	Sessions  *SessionManager
	Tokens    *TokenService
	Passwords *cryptox.PasswordHasher
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Principal                 domain.Principal
	Tokens                    domain.TokenPair
	SessionID                 string
	PreviousSessionTerminated bool
}

type RegisterInput struct {
	Identifier string
	Code       string
	Name       string
	Password   string
	DeviceInfo string
	PushToken  string
}

// LoginInput carries either a Code or a Password, never both.
type LoginInput struct {
	Identifier string
	Code       string
	Password   string
	DeviceInfo string
	PushToken  string
}

func normalize(identifier string) (string, domain.IdentifierKind, error) {
	id, kind, err := domain.NormalizeIdentifier(identifier)
	if err != nil {
		return "", "", errx.Validation(err.Error())
	}
	return id, kind, nil
}

func (s *AuthService) lookup(ctx context.Context, identifier string) (domain.Principal, bool, error) {
	p, err := s.Store.Principals().GetByIdentifier(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, false, nil
	}
	if err != nil {
		return domain.Principal{}, false, errx.Internal(err)
	}
	return p, true, nil
}

// SendOTP issues a code after checking the purpose makes sense for the
// identifier: registration needs a new identifier, everything else an
// existing principal.
func (s *AuthService) SendOTP(ctx context.Context, identifier string, purpose domain.OTPPurpose) (string, time.Time, error) {
	id, kind, err := normalize(identifier)
	if err != nil {
		return "", time.Time{}, err
	}
	if !purpose.Valid() {
		return "", time.Time{}, errx.Validation("unknown otp purpose")
	}
	if err := checkChannel(kind, purpose); err != nil {
		return "", time.Time{}, err
	}

	_, exists, err := s.lookup(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	switch {
	case purpose == domain.PurposeRegistration && exists:
		return "", time.Time{}, errx.ErrPrincipalExists
	case purpose != domain.PurposeRegistration && !exists:
		return "", time.Time{}, errx.ErrPrincipalNotFound
	}

	code, rec, err := s.OTPs.Issue(ctx, id, purpose)
	if err != nil {
		return "", time.Time{}, err
	}
	slogx.FromContext(ctx).Info("otp issued", "otp_id", rec.ID, "purpose", string(purpose))
	return code, rec.ExpiresAt, nil
}

// checkChannel rejects verification purposes aimed at the other channel.
func checkChannel(kind domain.IdentifierKind, purpose domain.OTPPurpose) error {
	switch {
	case purpose == domain.PurposePhoneVerification && kind != domain.IdentifierPhone:
		return errx.Validation("phone verification requires a phone number")
	case purpose == domain.PurposeEmailVerification && kind != domain.IdentifierEmail:
		return errx.Validation("email verification requires an email address")
	}
	return nil
}

// VerifyOTP checks a code without consuming it, except for the channel
// verification purposes where a match also marks the channel verified.
func (s *AuthService) VerifyOTP(ctx context.Context, identifier, code string, purpose domain.OTPPurpose) (bool, error) {
	id, kind, err := normalize(identifier)
	if err != nil {
		return false, err
	}
	if purpose != "" && !purpose.Valid() {
		return false, errx.Validation("unknown otp purpose")
	}
	if err := checkChannel(kind, purpose); err != nil {
		return false, err
	}

	ok, err := s.OTPs.Verify(ctx, id, code, purpose)
	if err != nil || !ok {
		return ok, err
	}

	if purpose == domain.PurposePhoneVerification || purpose == domain.PurposeEmailVerification {
		p, exists, err := s.lookup(ctx, id)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, errx.ErrPrincipalNotFound
		}
		if err := s.OTPs.Consume(ctx, id, code, purpose); err != nil {
			return false, err
		}
		if err := s.Store.Principals().MarkVerified(ctx, p.ID, kind, time.Now()); err != nil {
			return false, errx.Internal(err)
		}
	}
	return true, nil
}

// Register creates a student principal owning the verified identifier and
// signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	id, kind, err := normalize(in.Identifier)
	if err != nil {
		return AuthResult{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return AuthResult{}, errx.Validation("name is required")
	}

	var hash string
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return AuthResult{}, err
		}
		if hash, err = s.Passwords.Hash(in.Password); err != nil {
			return AuthResult{}, errx.Internal(err)
		}
	}

	if _, err := s.OTPs.Verify(ctx, id, in.Code, domain.PurposeRegistration); err != nil {
		return AuthResult{}, err
	}

	now := time.Now()
	p := domain.Principal{
		ID:           idx.NewAt(now).String(),
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		Status:       domain.StatusActive,
		PushToken:    in.PushToken,
		CreatedAt:    now,
	}
	switch kind {
	case domain.IdentifierPhone:
		p.Phone, p.PhoneVerifiedAt = id, &now
	case domain.IdentifierEmail:
		p.Email, p.EmailVerifiedAt = id, &now
	}

	err = s.Store.Principals().Create(ctx, p)
	if errors.Is(err, store.ErrAlreadyExists) {
		return AuthResult{}, errx.ErrPrincipalExists
	}
	if err != nil {
		return AuthResult{}, errx.Internal(err)
	}
	slogx.FromContext(ctx).Info("principal registered", "principal_id", p.ID, "kind", string(kind))

	return s.signIn(ctx, p.ID, in.DeviceInfo, func() error {
		return s.OTPs.Consume(ctx, id, in.Code, domain.PurposeRegistration)
	})
}

// Login signs a principal in with a one-time code or a password.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	id, _, err := normalize(in.Identifier)
	if err != nil {
		return AuthResult{}, err
	}
	switch {
	case in.Code == "" && in.Password == "":
		return AuthResult{}, errx.Validation("code or password is required")
	case in.Code != "" && in.Password != "":
		return AuthResult{}, errx.Validation("provide either code or password, not both")
	}

	var p domain.Principal
	var consume func() error

	if in.Code != "" {
		if _, err := s.OTPs.Verify(ctx, id, in.Code, domain.PurposeLogin); err != nil {
			return AuthResult{}, err
		}
		found, exists, err := s.lookup(ctx, id)
		if err != nil {
			return AuthResult{}, err
		}
		if !exists {
			return AuthResult{}, errx.ErrPrincipalNotFound
		}
		p = found
		consume = func() error { return s.OTPs.Consume(ctx, id, in.Code, domain.PurposeLogin) }
	} else {
		found, exists, err := s.lookup(ctx, id)
		if err != nil {
			return AuthResult{}, err
		}
		if !exists || found.PasswordHash == "" {
			return AuthResult{}, errx.ErrInvalidCredentials
		}
		if err := s.Passwords.Verify(in.Password, found.PasswordHash); err != nil {
			slogx.FromContext(ctx).Warn("password login failed", "principal_id", found.ID)
			return AuthResult{}, errx.ErrInvalidCredentials
		}
		p = found
	}

	if !p.IsActive() {
		return AuthResult{}, errx.ErrAccountDisabled
	}

	if in.PushToken != "" && in.PushToken != p.PushToken {
		if err := s.Store.Principals().UpdatePushToken(ctx, p.ID, in.PushToken); err != nil {
			return AuthResult{}, errx.Internal(err)
		}
	}

	return s.signIn(ctx, p.ID, in.DeviceInfo, consume)
}

// signIn creates the session, binds a fresh token pair to it and only then
// runs consume, so a failed sign in leaves the code usable.
func (s *AuthService) signIn(ctx context.Context, principalID, deviceInfo string, consume func() error) (AuthResult, error) {
	sid, previous, err := s.Sessions.Create(ctx, principalID, deviceInfo)
	if err != nil {
		return AuthResult{}, err
	}

	p, err := s.Store.Principals().GetByID(ctx, principalID)
	if err != nil {
		return AuthResult{}, errx.Internal(err)
	}

	pair, err := s.Tokens.IssueBound(ctx, p.ID, p.Role, sid)
	if err != nil {
		return AuthResult{}, err
	}

	if consume != nil {
		if err := consume(); err != nil {
			return AuthResult{}, err
		}
	}

	return AuthResult{
		Principal:                 p,
		Tokens:                    pair,
		SessionID:                 sid,
		PreviousSessionTerminated: previous,
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if refreshToken == "" {
		return domain.TokenPair{}, errx.ErrInvalidRefreshToken.WithMessage("refresh token is required")
	}
	return s.Tokens.Refresh(ctx, refreshToken)
}

// Logout blacklists the presented tokens and ends the caller's session if it
// is still the active one.
func (s *AuthService) Logout(ctx context.Context, claims jwtx.Claims, accessRaw, refreshRaw string) error {
	if err := s.Tokens.RevokeAll(ctx, claims, accessRaw, refreshRaw); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("principal logged out", "principal_id", claims.Subject)
	return nil
}

// ValidateSession reports whether the caller's session is still active
// without failing the request when it is not.
func (s *AuthService) ValidateSession(ctx context.Context, claims jwtx.Claims) (domain.SessionValidity, error) {
	if claims.SID == "" {
		return domain.SessionValidity{Reason: domain.ReasonMissingSessionInfo}, nil
	}

	err := s.Sessions.CheckSession(ctx, claims.Subject, claims.SID)
	switch {
	case err == nil:
		return domain.SessionValidity{Valid: true}, nil
	case errors.Is(err, errx.ErrSessionTerminated):
		return domain.SessionValidity{Reason: domain.ReasonSessionTerminatedOnOtherDevice}, nil
	default:
		return domain.SessionValidity{}, err
	}
}

// ResetPassword replaces the password after a password-reset code and ends
// every session the principal holds.
func (s *AuthService) ResetPassword(ctx context.Context, identifier, code, newPassword string) error {
	id, _, err := normalize(identifier)
	if err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	if _, err := s.OTPs.Verify(ctx, id, code, domain.PurposePasswordReset); err != nil {
		return err
	}

	p, exists, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errx.ErrPrincipalNotFound
	}

	hash, err := s.Passwords.Hash(newPassword)
	if err != nil {
		return errx.Internal(err)
	}
	if err := s.Store.Principals().UpdatePassword(ctx, p.ID, hash); err != nil {
		return errx.Internal(err)
	}
	if err := s.Sessions.TerminateAll(ctx, p.ID, domain.RevokePasswordReset); err != nil {
		return err
	}
	if err := s.OTPs.Consume(ctx, id, code, domain.PurposePasswordReset); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset", "principal_id", p.ID)
	return nil
}

func (s *AuthService) Me(ctx context.Context, principalID string) (domain.Principal, error) {
	p, err := s.Store.Principals().GetByID(ctx, principalID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, errx.ErrPrincipalNotFound
	}
	if err != nil {
		return domain.Principal{}, errx.Internal(err)
	}
	return p, nil
}

// ForceLogout ends every session of principalID on an administrator's
// request.
func (s *AuthService) ForceLogout(ctx context.Context, principalID string) error {
	return s.Sessions.TerminateAll(ctx, principalID, domain.RevokeAdmin)
}

// SetStatus suspends or reactivates principalID. Suspending also ends its
// session so outstanding tokens stop working at once.
func (s *AuthService) SetStatus(ctx context.Context, principalID, status string) error {
	switch status {
	case domain.StatusActive, domain.StatusSuspended:
	default:
		return errx.Validation("status must be active or suspended")
	}

	err := s.Store.Principals().SetStatus(ctx, principalID, status)
	if errors.Is(err, store.ErrNotFound) {
		return errx.ErrPrincipalNotFound
	}
	if err != nil {
		return errx.Internal(err)
	}

	if status == domain.StatusSuspended {
		return s.Sessions.TerminateAll(ctx, principalID, domain.RevokeAdmin)
	}
	return nil
}
