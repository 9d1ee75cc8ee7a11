package authsdk

import (
	"time"

	"github.com/aussiebroadwan/lectern/pkg/jwtx"
)

// ============================================================================
// Encryption Types
// ============================================================================

// HandshakeRequest registers the client's public key with the server.
type HandshakeRequest struct {
	ClientPublicKey string `json:"clientPublicKey" example:"3q2+7w..."`
}

// HandshakeResponse is returned from POST /auth/handshake.
type HandshakeResponse struct {
	ServerPublicKey   string    `json:"serverPublicKey"`
	EncryptionEnabled bool      `json:"encryptionEnabled"`
	Timestamp         time.Time `json:"timestamp"`
}

// PublicKeyResponse is returned from GET /auth/public-key.
type PublicKeyResponse struct {
	PublicKey         string `json:"publicKey"`
	EncryptionEnabled bool   `json:"encryptionEnabled"`
}

// ============================================================================
// OTP Types
// ============================================================================

// SendOTPRequest asks the service to issue and deliver a one-time code.
// Purpose is one of registration, login, password-reset, phone-verification
// or email-verification.
type SendOTPRequest struct {
	Identifier string `json:"identifier" example:"+61400000000"`
	Purpose    string `json:"purpose" example:"login"`
}

// SendOTPResponse is returned from POST /auth/send-otp. DevCode is only
// populated when the service runs with OTP_RETURN_TO_CLIENT enabled.
type SendOTPResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
	DevCode   string    `json:"devCode,omitempty"`
}

// VerifyOTPRequest checks a code without signing in. An empty purpose
// matches the newest code of any purpose.
type VerifyOTPRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code" example:"123456"`
	Purpose    string `json:"purpose,omitempty"`
}

// VerifyOTPResponse is returned from POST /auth/verify-otp.
type VerifyOTPResponse struct {
	Verified bool `json:"verified"`
}

// ============================================================================
// Authentication Types
// ============================================================================

// RegisterRequest creates a student account from a registration code.
type RegisterRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Password   string `json:"password,omitempty"`
	DeviceInfo string `json:"deviceInfo,omitempty" example:"iPhone 15, iOS 18"`
	PushToken  string `json:"pushToken,omitempty"`
}

// LoginRequest signs in with exactly one of Code or Password.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code,omitempty"`
	Password   string `json:"password,omitempty"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
	PushToken  string `json:"pushToken,omitempty"`
}

// Tokens is an access/refresh pair. ExpiresIn is the access token lifetime
// in seconds.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType" example:"Bearer"`
	ExpiresIn    int64  `json:"expiresIn" example:"900"`
}

// AuthResponse is returned from register and login.
type AuthResponse struct {
	User                      UserView `json:"user"`
	Tokens                    Tokens   `json:"tokens"`
	SessionID                 string   `json:"sessionId"`
	PreviousSessionTerminated bool     `json:"previousSessionTerminated"`
}

// RefreshRequest rotates a refresh token. RefreshToken may be left empty
// when the refresh_token cookie is sent instead.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshResponse is returned from POST /auth/refresh-token.
type RefreshResponse struct {
	Tokens Tokens `json:"tokens"`
}

// LogoutRequest optionally names the refresh token to blacklist alongside
// the bearer access token.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// ResetPasswordRequest replaces the password using a password-reset code.
type ResetPasswordRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// SessionValidityResponse is returned from POST /auth/validate-session.
// Reason is MISSING_SESSION_INFO or SESSION_TERMINATED_ON_OTHER_DEVICE when
// Valid is false.
type SessionValidityResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// SetStatusRequest is the body of the admin status endpoint. Status is
// "active" or "suspended".
type SetStatusRequest struct {
	Status string `json:"status" example:"suspended"`
}

// MessageResponse is the body of endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// User Types
// ============================================================================

// UserView is the public projection of a principal. Secrets and session
// bookkeeping never leave the service.
type UserView struct {
	ID            string     `json:"id" example:"01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	Name          string     `json:"name"`
	Role          string     `json:"role" example:"student"`
	Status        string     `json:"status" example:"active"`
	PhoneVerified bool       `json:"phoneVerified"`
	EmailVerified bool       `json:"emailVerified"`
	HasPassword   bool       `json:"hasPassword"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// MeResponse is returned from GET /auth/me.
type MeResponse struct {
	User UserView `json:"user"`
}

// ============================================================================
// Health Check Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	Database   string `json:"database"`
	Signer     string `json:"signer"`
	Cache      string `json:"cache"`
	Encryption string `json:"encryption"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the JSON Web Key Set.
// This is returned from the GET /.well-known/jwks.json endpoint and contains
// public keys used to verify JWT signatures.
type JWKSResponse jwtx.JWKS
