package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/service"
	"github.com/aussiebroadwan/lectern/pkg/authsdk"
)

func toUserView(p domain.Principal) authsdk.UserView {
	return authsdk.UserView{
		ID:            p.ID,
		Phone:         p.Phone,
		Email:         p.Email,
		Name:          p.Name,
		Role:          p.Role,
		Status:        p.Status,
		PhoneVerified: p.PhoneVerifiedAt != nil,
		EmailVerified: p.EmailVerifiedAt != nil,
		HasPassword:   p.PasswordHash != "",
		LastLoginAt:   p.LastLoginAt,
		CreatedAt:     p.CreatedAt,
	}
}

func toTokens(t domain.TokenPair) authsdk.Tokens {
	return authsdk.Tokens{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
	}
}

func toAuthResponse(res service.AuthResult) authsdk.AuthResponse {
	return authsdk.AuthResponse{
		User:                      toUserView(res.Principal),
		Tokens:                    toTokens(res.Tokens),
		SessionID:                 res.SessionID,
		PreviousSessionTerminated: res.PreviousSessionTerminated,
	}
}

// RefreshCookieName carries the refresh token for browser clients.
const RefreshCookieName = "refresh_token"

func setRefreshCookie(w http.ResponseWriter, t domain.TokenPair, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    t.RefreshToken,
		Path:     "/auth",
		MaxAge:   int(t.RefreshExpiresIn),
		Expires:  time.Now().Add(time.Duration(t.RefreshExpiresIn) * time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshToken prefers the body value and falls back to the cookie.
func refreshToken(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		return c.Value
	}
	return ""
}
