package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry an access token is replaced.
const refreshBuffer = 30 * time.Second

// Session represents a signed in principal with automatic token refresh.
// All Session methods handle access token expiry before making a request.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	sessionID    string
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, sessionID string, tokens Tokens) *Session {
	s := &Session{client: client, sessionID: sessionID}
	s.setTokens(tokens)
	return s
}

// NewSessionFromTokens resumes a session from previously stored tokens.
func (c *SDKClient) NewSessionFromTokens(sessionID, accessToken, refreshToken string, expiresIn int64) *Session {
	return newSession(c, sessionID, Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// setTokens stores a pair. Caller holds s.mu or owns s exclusively.
func (s *Session) setTokens(t Tokens) {
	s.accessToken = t.AccessToken
	s.refreshToken = t.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(t.ExpiresIn)*time.Second - refreshBuffer)
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	tokens, err := s.client.RefreshTokens(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.setTokens(*tokens)
	return s.accessToken, nil
}

// Refresh rotates the refresh token now, regardless of access token expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.client.RefreshTokens(ctx, s.refreshToken)
	if err != nil {
		return err
	}
	s.setTokens(*tokens)
	return nil
}

// SessionID returns the server side session id, or "" for sessions resumed
// from a refresh token alone.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Me returns the signed in principal.
func (s *Session) Me(ctx context.Context) (*UserView, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := s.client.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ValidateSession asks whether this session is still the active one. A
// terminated session is reported in the response, not as an error.
func (s *Session) ValidateSession(ctx context.Context) (*SessionValidityResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/auth/validate-session", nil)
	if err != nil {
		return nil, err
	}

	var out SessionValidityResponse
	if err := s.client.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout blacklists both tokens and ends the session. The session must not
// be used afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.refreshToken
	s.mu.RUnlock()

	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/auth/logout", LogoutRequest{RefreshToken: refresh})
	if err != nil {
		return err
	}

	var out MessageResponse
	if err := s.client.decodeJSON(resp, &out, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	return nil
}

// SetStatus suspends or reactivates principalID. Requires the admin role.
func (s *Session) SetStatus(ctx context.Context, principalID, status string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/auth/admin/principals/"+principalID+"/status", SetStatusRequest{Status: status})
	if err != nil {
		return err
	}

	var out MessageResponse
	return s.client.decodeJSON(resp, &out, http.StatusOK)
}

// ForceLogout ends every session of principalID. Requires the admin role.
func (s *Session) ForceLogout(ctx context.Context, principalID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/auth/admin/principals/"+principalID+"/logout", nil)
	if err != nil {
		return err
	}

	var out MessageResponse
	return s.client.decodeJSON(resp, &out, http.StatusOK)
}
