package authsdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/lectern/pkg/jwtx"
)

// GetJWKS retrieves the JSON Web Key Set for token verification.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doPlainRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := c.decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}

	return &jwks, nil
}

// NewTokenVerifier builds an offline access token verifier from the
// service's JWKS, for resource servers that check signatures locally.
// Offline verification cannot see the revocation blacklist or session
// supersession; use a Session call when those matter.
func (c *SDKClient) NewTokenVerifier(ctx context.Context, issuer string) (jwtx.Verifier, error) {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, err
	}

	ks := jwtx.NewKeySet()
	for _, k := range jwks.Keys {
		if err := ks.AddJWK(k); err != nil {
			return nil, fmt.Errorf("jwks key %q: %w", k.Kid, err)
		}
	}
	if !ks.IsReady() {
		return nil, fmt.Errorf("jwks contains no usable keys")
	}
	return jwtx.NewVerifierEdDSA(ks, issuer), nil
}
