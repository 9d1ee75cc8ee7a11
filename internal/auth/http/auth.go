package http

import (
	"net/http"

	"github.com/aussiebroadwan/lectern/internal/auth/service"
	"github.com/aussiebroadwan/lectern/pkg/authsdk"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
)

type AuthHandler struct {
	AuthService *service.AuthService

	// SecureCookies marks the refresh cookie Secure.
	SecureCookies bool
}

// HandleRegister creates an account from a registration code.
//
//	@Summary		Register
//	@Description	Verifies a registration code, creates a student account and signs it in. The refresh token is also set as an HttpOnly cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Registration details"
//	@Success		201		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	errx.Body	"VALIDATION_ERROR, INVALID_OTP or OTP_EXPIRED"
//	@Failure		409		{object}	errx.Body	"PRINCIPAL_EXISTS"
//	@Failure		429		{object}	errx.Body	"TOO_MANY_ATTEMPTS or RATE_LIMITED"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.Code == "" {
		return errx.Validation("code is required")
	}

	res, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Identifier: req.Identifier,
		Code:       req.Code,
		Name:       req.Name,
		Password:   req.Password,
		DeviceInfo: req.DeviceInfo,
		PushToken:  req.PushToken,
	})
	if err != nil {
		return err
	}

	setRefreshCookie(w, res.Tokens, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusCreated, toAuthResponse(res))
	return nil
}

// HandleLogin signs in with a code or a password.
//
//	@Summary		Login
//	@Description	Signs in with exactly one of code or password. Any other session of the account is terminated.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	errx.Body	"VALIDATION_ERROR, INVALID_OTP or OTP_EXPIRED"
//	@Failure		401		{object}	errx.Body	"INVALID_CREDENTIALS"
//	@Failure		403		{object}	errx.Body	"ACCOUNT_DISABLED"
//	@Failure		404		{object}	errx.Body	"PRINCIPAL_NOT_FOUND"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	res, err := h.AuthService.Login(r.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Code:       req.Code,
		Password:   req.Password,
		DeviceInfo: req.DeviceInfo,
		PushToken:  req.PushToken,
	})
	if err != nil {
		return err
	}

	setRefreshCookie(w, res.Tokens, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, toAuthResponse(res))
	return nil
}

// HandleRefresh rotates a refresh token.
//
//	@Summary		Refresh tokens
//	@Description	Exchanges a refresh token, from the body or the refresh_token cookie, for a new pair. Each refresh token works once.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"Refresh token, optional when the cookie is sent"
//	@Success		200		{object}	authsdk.RefreshResponse
//	@Failure		401		{object}	errx.Body	"INVALID_REFRESH_TOKEN, REFRESH_TOKEN_EXPIRED or SESSION_TERMINATED"
//	@Router			/auth/refresh-token [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeOptionalJSON(w, r, &req); err != nil {
		return err
	}

	pair, err := h.AuthService.Refresh(r.Context(), refreshToken(r, req.RefreshToken))
	if err != nil {
		return err
	}

	setRefreshCookie(w, pair, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{Tokens: toTokens(pair)})
	return nil
}

// HandleLogout ends the caller's session.
//
//	@Summary		Logout
//	@Description	Blacklists the bearer token and the refresh token, then ends the session if it is still the active one. Works from a superseded device without affecting the new session.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LogoutRequest	false	"Refresh token to blacklist"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		401		{object}	errx.Body	"NO_TOKEN, INVALID_TOKEN or TOKEN_REVOKED"
//	@Router			/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.LogoutRequest
	if err := httpx.DecodeOptionalJSON(w, r, &req); err != nil {
		return err
	}

	claims, ok := httpx.ClaimsFrom(r.Context())
	if !ok {
		return errx.ErrNoToken
	}

	err := h.AuthService.Logout(r.Context(), claims, httpx.AccessTokenFrom(r.Context()), refreshToken(r, req.RefreshToken))
	if err != nil {
		return err
	}

	clearRefreshCookie(w, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "logged out"})
	return nil
}

// HandleValidateSession reports whether the caller's session is active.
//
//	@Summary		Validate session
//	@Description	Reports whether the bearer token's session is still the active one. A terminated session is a 200 with valid false and a reason.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.SessionValidityResponse
//	@Failure		401	{object}	errx.Body	"NO_TOKEN, INVALID_TOKEN or TOKEN_REVOKED"
//	@Failure		503	{object}	errx.Body	"SERVICE_UNAVAILABLE"
//	@Router			/auth/validate-session [post].
func (h *AuthHandler) HandleValidateSession(w http.ResponseWriter, r *http.Request) error {
	claims, ok := httpx.ClaimsFrom(r.Context())
	if !ok {
		return errx.ErrNoToken
	}

	v, err := h.AuthService.ValidateSession(r.Context(), claims)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionValidityResponse{Valid: v.Valid, Reason: v.Reason})
	return nil
}

// HandleResetPassword sets a new password from a password-reset code.
//
//	@Summary		Reset password
//	@Description	Verifies a password-reset code, replaces the password and terminates every session of the account.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResetPasswordRequest	true	"Identifier, code and new password"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	errx.Body	"VALIDATION_ERROR, INVALID_OTP or OTP_EXPIRED"
//	@Failure		404		{object}	errx.Body	"PRINCIPAL_NOT_FOUND"
//	@Router			/auth/reset-password [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.Code == "" {
		return errx.Validation("code is required")
	}

	if err := h.AuthService.ResetPassword(r.Context(), req.Identifier, req.Code, req.NewPassword); err != nil {
		return err
	}

	clearRefreshCookie(w, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "password updated, please log in again"})
	return nil
}
