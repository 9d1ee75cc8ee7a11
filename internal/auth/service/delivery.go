package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

// OTPSender delivers a code to whoever controls identifier.
type OTPSender interface {
	Send(ctx context.Context, identifier string, purpose domain.OTPPurpose, code string) error
}

// LogSender writes codes to the debug log. Development only.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, identifier string, purpose domain.OTPPurpose, code string) error {
	slogx.FromContext(ctx).Debug("otp issued",
		"identifier", identifier,
		"purpose", string(purpose),
		"code", code,
	)
	return nil
}

// SMSSender posts codes to an HTTP SMS gateway as a form:
// to, from, message, with the API key as a bearer token.
//
// Identifiers that are not phone numbers go to Fallback, or fail when it
// is nil.
type SMSSender struct {
	URL      string
	APIKey   string
	Sender   string
	Client   *http.Client
	Fallback OTPSender
}

const smsTimeout = 10 * time.Second

var ErrUnsupportedChannel = errors.New("no delivery channel for identifier")

func (s *SMSSender) Send(ctx context.Context, identifier string, purpose domain.OTPPurpose, code string) error {
	if strings.Contains(identifier, "@") {
		if s.Fallback == nil {
			return ErrUnsupportedChannel
		}
		return s.Fallback.Send(ctx, identifier, purpose, code)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: smsTimeout}
	}

	form := url.Values{
		"to":      {identifier},
		"from":    {s.Sender},
		"message": {"Your verification code is " + code},
	}

	ctx, cancel := context.WithTimeout(ctx, smsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms: gateway returned %d", resp.StatusCode)
	}
	return nil
}
