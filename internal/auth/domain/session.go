package domain

import "time"

// Reasons recorded against a revoked session id.
const (
	RevokeSuperseded    = "superseded"
	RevokeLogout        = "logout"
	RevokePasswordReset = "password-reset"
	RevokeAdmin         = "admin"
)

// Reasons returned by session validation.
const (
	ReasonMissingSessionInfo             = "MISSING_SESSION_INFO"
	ReasonSessionTerminatedOnOtherDevice = "SESSION_TERMINATED_ON_OTHER_DEVICE"
)

// SessionRevocation is what the revocation cache remembers about a retired
// session id.
type SessionRevocation struct {
	PrincipalID string    `json:"principalId"`
	Reason      string    `json:"reason"`
	RevokedAt   time.Time `json:"revokedAt"`
}

// SessionValidity is the result of validating a session.
type SessionValidity struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
