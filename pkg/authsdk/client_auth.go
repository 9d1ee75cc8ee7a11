package authsdk

import (
	"context"
	"net/http"
)

// GetPublicKey fetches the server's encryption public key.
func (c *SDKClient) GetPublicKey(ctx context.Context) (*PublicKeyResponse, error) {
	resp, err := c.doPlainRequest(ctx, http.MethodGet, "/auth/public-key", nil)
	if err != nil {
		return nil, err
	}

	var out PublicKeyResponse
	if err := c.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) handshake(ctx context.Context, clientPublicKey string) (*HandshakeResponse, error) {
	resp, err := c.doPlainRequest(ctx, http.MethodPost, "/auth/handshake", HandshakeRequest{
		ClientPublicKey: clientPublicKey,
	})
	if err != nil {
		return nil, err
	}

	var out HandshakeResponse
	if err := c.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendOTP asks the service to issue a code for identifier.
func (c *SDKClient) SendOTP(ctx context.Context, identifier, purpose string) (*SendOTPResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/send-otp", SendOTPRequest{
		Identifier: identifier,
		Purpose:    purpose,
	}, nil)
	if err != nil {
		return nil, err
	}

	var out SendOTPResponse
	if err := c.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP checks a code. Verification codes for a phone or email channel
// are consumed on success; other purposes stay usable for the flow they
// were issued for.
func (c *SDKClient) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/verify-otp", req, nil)
	if err != nil {
		return false, err
	}

	var out VerifyOTPResponse
	if err := c.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return false, err
	}
	return out.Verified, nil
}

// Register creates an account and returns a session signed in to it.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Session, *AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/register", req, nil)
	if err != nil {
		return nil, nil, err
	}

	var out AuthResponse
	if err := c.decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, nil, err
	}
	return newSession(c, out.SessionID, out.Tokens), &out, nil
}

// Login signs in with a code or a password. Any other session the account
// holds is terminated; AuthResponse.PreviousSessionTerminated reports it.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*Session, *AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/login", req, nil)
	if err != nil {
		return nil, nil, err
	}

	var out AuthResponse
	if err := c.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, nil, err
	}
	return newSession(c, out.SessionID, out.Tokens), &out, nil
}

// RefreshTokens rotates refreshToken into a new pair. With an empty
// refreshToken the request relies on the refresh_token cookie, which needs
// an HTTPClient with a cookie jar.
func (c *SDKClient) RefreshTokens(ctx context.Context, refreshToken string) (*Tokens, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/refresh-token", RefreshRequest{
		RefreshToken: refreshToken,
	}, nil)
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := c.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Tokens, nil
}

// AuthenticateWithRefreshToken creates a session from a stored refresh
// token, rotating it in the process.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokens, err := c.RefreshTokens(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, "", *tokens), nil
}

// ResetPassword sets a new password using a password-reset code. Every
// session of the account is terminated.
func (c *SDKClient) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/reset-password", req, nil)
	if err != nil {
		return err
	}

	var out MessageResponse
	return c.decodeJSON(resp, &out, http.StatusOK)
}
