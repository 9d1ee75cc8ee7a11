package domain

import "time"

// OTPPurpose scopes a code to the flow it was issued for.
type OTPPurpose string

const (
	PurposeRegistration      OTPPurpose = "registration"
	PurposeLogin             OTPPurpose = "login"
	PurposePasswordReset     OTPPurpose = "password-reset"
	PurposePhoneVerification OTPPurpose = "phone-verification"
	PurposeEmailVerification OTPPurpose = "email-verification"
)

func (p OTPPurpose) Valid() bool {
	switch p {
	case PurposeRegistration, PurposeLogin, PurposePasswordReset,
		PurposePhoneVerification, PurposeEmailVerification:
		return true
	}
	return false
}

// MaxOTPAttempts is the verification budget of one code. A record that
// reaches it is dead even for the correct code.
const MaxOTPAttempts = 3

// OTPRecord is one issued code. Only the fingerprint of the code is stored.
type OTPRecord struct {
	ID         string
	Identifier string
	CodeHash   string
	Purpose    OTPPurpose
	Attempts   int
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}

// OTPStateKind enumerates the lifecycle of a record.
type OTPStateKind int

const (
	OTPIssued OTPStateKind = iota
	OTPAttempted
	OTPConsumed
	OTPExpired
)

func (k OTPStateKind) String() string {
	switch k {
	case OTPIssued:
		return "issued"
	case OTPAttempted:
		return "attempted"
	case OTPConsumed:
		return "consumed"
	case OTPExpired:
		return "expired"
	}
	return "unknown"
}

// OTPState is a record's state at an instant. Attempts is only meaningful
// for OTPAttempted.
type OTPState struct {
	Kind     OTPStateKind
	Attempts int
}

// State derives the record's state at now. Consumed wins over Expired, and
// Expired wins over Attempted.
func (r *OTPRecord) State(now time.Time) OTPState {
	switch {
	case r.UsedAt != nil:
		return OTPState{Kind: OTPConsumed}
	case now.After(r.ExpiresAt):
		return OTPState{Kind: OTPExpired}
	case r.Attempts > 0:
		return OTPState{Kind: OTPAttempted, Attempts: r.Attempts}
	default:
		return OTPState{Kind: OTPIssued}
	}
}

// Exhausted reports whether the attempt budget is used up.
func (s OTPState) Exhausted() bool {
	return s.Kind == OTPAttempted && s.Attempts >= MaxOTPAttempts
}

// Verifiable reports whether another verification attempt may be made.
func (s OTPState) Verifiable() bool {
	switch s.Kind {
	case OTPIssued:
		return true
	case OTPAttempted:
		return !s.Exhausted()
	}
	return false
}
