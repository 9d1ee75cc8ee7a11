package service

import (
	"errors"

	"github.com/aussiebroadwan/lectern/internal/auth/revocation"
	"github.com/aussiebroadwan/lectern/pkg/errx"
)

// Password length bounds for registration and reset.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// infra classifies an unexpected dependency failure. Cache outages are 503s
// so clients retry; everything else is a 500.
func infra(err error) error {
	if errors.Is(err, revocation.ErrUnavailable) {
		return errx.ErrServiceUnavailable.Wrap(err)
	}
	return errx.Internal(err)
}

func validatePassword(pw string) error {
	switch {
	case len(pw) < MinPasswordLength:
		return errx.Validation("password must be at least 8 characters")
	case len(pw) > MaxPasswordLength:
		return errx.Validation("password must be at most 128 characters")
	}
	return nil
}
