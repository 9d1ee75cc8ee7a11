package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		kind domain.IdentifierKind
	}{
		{" +91 000-000 0001 ", "+910000000001", domain.IdentifierPhone},
		{"(02) 9999 0000", "0299990000", domain.IdentifierPhone},
		{"Alice@Example.COM", "alice@example.com", domain.IdentifierEmail},
	}
	for _, tc := range tests {
		got, kind, err := domain.NormalizeIdentifier(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
		require.Equal(t, tc.kind, kind)
	}

	for _, bad := range []string{"", "abc", "12", "+1234567890123456", "Alice <alice@example.com>", "@"} {
		_, _, err := domain.NormalizeIdentifier(bad)
		require.ErrorIs(t, err, domain.ErrInvalidIdentifier, bad)
	}
}

func TestOTPState(t *testing.T) {
	t.Parallel()

	now := time.Now()
	used := now.Add(-time.Minute)
	live := now.Add(time.Minute)
	dead := now.Add(-time.Second)

	tests := []struct {
		name       string
		rec        domain.OTPRecord
		kind       domain.OTPStateKind
		verifiable bool
	}{
		{"issued", domain.OTPRecord{ExpiresAt: live}, domain.OTPIssued, true},
		{"attempted", domain.OTPRecord{ExpiresAt: live, Attempts: 2}, domain.OTPAttempted, true},
		{"exhausted", domain.OTPRecord{ExpiresAt: live, Attempts: 3}, domain.OTPAttempted, false},
		{"expired beats attempted", domain.OTPRecord{ExpiresAt: dead, Attempts: 3}, domain.OTPExpired, false},
		{"consumed beats expired", domain.OTPRecord{ExpiresAt: dead, UsedAt: &used}, domain.OTPConsumed, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := tc.rec.State(now)
			require.Equal(t, tc.kind, st.Kind)
			require.Equal(t, tc.verifiable, st.Verifiable())
		})
	}
}

func TestOTPPurposeValid(t *testing.T) {
	t.Parallel()
	require.True(t, domain.PurposeLogin.Valid())
	require.True(t, domain.PurposeEmailVerification.Valid())
	require.False(t, domain.OTPPurpose("signup").Valid())
	require.False(t, domain.OTPPurpose("").Valid())
}

func TestPrincipalSession(t *testing.T) {
	t.Parallel()
	p := domain.Principal{Status: domain.StatusActive, ActiveSessionID: "s-1"}
	require.True(t, p.IsActive())
	require.True(t, p.HasSession("s-1"))
	require.False(t, p.HasSession("s-2"))
	require.False(t, p.HasSession(""))

	p.Status = domain.StatusSuspended
	require.False(t, p.IsActive())
}
