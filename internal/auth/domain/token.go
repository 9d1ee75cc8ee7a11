package domain

// TokenTypeBearer is the only token type we hand out.
const TokenTypeBearer = "Bearer"

// TokenPair is a freshly minted access/refresh pair. ExpiresIn is the access
// token lifetime in seconds.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`

	// RefreshExpiresIn is the refresh token lifetime in seconds, used for
	// the cookie Max-Age.
	RefreshExpiresIn int64 `json:"refreshExpiresIn"`
}
