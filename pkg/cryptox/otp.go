package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pquerna/otp"
)

// GenerateNumericCode returns a uniformly distributed decimal code with the
// given number of digits, zero padded.
func GenerateNumericCode(digits otp.Digits) (string, error) {
	if digits.Length() <= 0 || digits.Length() > 9 {
		return "", fmt.Errorf("cryptox: unsupported code length %d", digits.Length())
	}

	limit := big.NewInt(1)
	for range digits.Length() {
		limit.Mul(limit, big.NewInt(10))
	}

	// rand.Int samples [0, limit) without modulo bias.
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("cryptox: generate code: %w", err)
	}

	return digits.Format(int32(n.Int64())), nil // #nosec G115 - bounded by 10^9
}
