package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/sealx"
)

// ErrUnsealedResponse is returned when a request was sent with the client
// key but the success response came back in plaintext.
var ErrUnsealedResponse = errors.New("authsdk: expected an encrypted response")

// url builds a complete URL by appending the path to the base URL.
func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an unauthenticated request. When encryption is on the
// JSON body is sealed and the client key is sent so the response is sealed
// too.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body any,
	headers map[string]string,
) (*http.Response, error) {
	return c.send(ctx, method, path, body, headers, c.sealer)
}

// doPlainRequest performs a request that never uses encryption, for the
// discovery and health endpoints.
func (c *SDKClient) doPlainRequest(
	ctx context.Context,
	method, path string,
	body any,
) (*http.Response, error) {
	return c.send(ctx, method, path, body, nil, nil)
}

func (c *SDKClient) send(
	ctx context.Context,
	method, path string,
	body any,
	headers map[string]string,
	sealer *sealx.Client,
) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		if sealer != nil {
			env, err := sealer.Seal(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to seal request: %w", err)
			}
			if raw, err = json.Marshal(env); err != nil {
				return nil, fmt.Errorf("failed to encode envelope: %w", err)
			}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sealer != nil {
		req.Header.Set(sealx.HeaderClientPublicKey, sealer.PublicKey())
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// doAuthRequest performs an authenticated request using the session's
// access token, refreshing it first when it is about to expire.
func (s *Session) doAuthRequest(
	ctx context.Context,
	method, path string,
	body any,
) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.doRequest(ctx, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads the response body, opening it when the server sealed it.
func (c *SDKClient) readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.Header.Get(httpx.HeaderEncrypted) == "true" {
		if c.sealer == nil {
			return nil, fmt.Errorf("received an encrypted response without a client key")
		}
		env, ok := sealx.ParseEnvelope(body)
		if !ok {
			return nil, fmt.Errorf("malformed encrypted response")
		}
		if body, err = c.sealer.Open(env); err != nil {
			return nil, fmt.Errorf("failed to open response: %w", err)
		}
		return body, nil
	}

	sentKey := resp.Request != nil && resp.Request.Header.Get(sealx.HeaderClientPublicKey) != ""
	if sentKey && resp.StatusCode < http.StatusBadRequest {
		return nil, ErrUnsealedResponse
	}
	return body, nil
}

// decodeJSON decodes the response into target, returning an *errx.Error
// when the status is not expectedStatus.
func (c *SDKClient) decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	body, err := c.readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
