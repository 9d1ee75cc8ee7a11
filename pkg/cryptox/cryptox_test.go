package cryptox_test

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/aussiebroadwan/lectern/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	b, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, a, b, "tokens should be unique")
	require.Len(t, a, 43)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	fp := cryptox.FingerprintToken("refresh-token")
	require.Equal(t, fp, cryptox.FingerprintToken("refresh-token"))
	require.NotEqual(t, fp, cryptox.FingerprintToken("refresh-tokem"))

	require.True(t, cryptox.FingerprintEqual(fp, cryptox.FingerprintToken("refresh-token")))
	require.False(t, cryptox.FingerprintEqual(fp, cryptox.FingerprintToken("other")))
	require.False(t, cryptox.FingerprintEqual(fp, ""))
}

func TestGenerateNumericCode(t *testing.T) {
	t.Parallel()

	counts := make(map[byte]int)
	for range 2000 {
		code, err := cryptox.GenerateNumericCode(otp.DigitsSix)
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, 1_000_000)

		counts[code[0]]++
	}

	// Leading zeros must be possible or the code space shrinks to 900k.
	require.Len(t, counts, 10)
}

func TestPasswordHasher(t *testing.T) {
	t.Parallel()

	h := cryptox.NewPasswordHasher("pepper")

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
	require.Len(t, strings.Split(hash, "$"), 6)

	require.NoError(t, h.Verify("correct horse", hash))
	require.ErrorIs(t, h.Verify("wrong horse", hash), cryptox.ErrPasswordMismatch)

	// Same password under a different pepper must not verify.
	other := cryptox.NewPasswordHasher("different")
	require.ErrorIs(t, other.Verify("correct horse", hash), cryptox.ErrPasswordMismatch)

	again, err := h.Hash("correct horse")
	require.NoError(t, err)
	require.NotEqual(t, hash, again, "salts should differ")

	require.Error(t, h.Verify("x", "$bcrypt$nope"))
}

func TestLoadOrCreatePepper(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secrets", "pepper")

	first, err := cryptox.LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Len(t, first, 43)

	second, err := cryptox.LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	_, err = cryptox.LoadOrCreatePepper(empty)
	require.Error(t, err)
}

func TestEd25519Keys(t *testing.T) {
	t.Parallel()

	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	block, _ := pem.Decode(pemBytes)
	require.NotNil(t, block)
	require.Equal(t, "PRIVATE KEY", block.Type)

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	_, ok := key.(ed25519.PrivateKey)
	require.True(t, ok)

	path := filepath.Join(t.TempDir(), "signing.pem")
	created, wasCreated, err := cryptox.LoadOrCreateEd25519Key(path)
	require.NoError(t, err)
	require.True(t, wasCreated)

	loaded, wasCreated, err := cryptox.LoadOrCreateEd25519Key(path)
	require.NoError(t, err)
	require.False(t, wasCreated)
	require.Equal(t, created, loaded)
}
