package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/lectern/pkg/cryptox"
	"github.com/aussiebroadwan/lectern/pkg/jwtx"
)

// InitAuthKeys loads the token signing key.
//
// With AUTH_SIGNING_KEY_FILE set the key is read from that file, or
// generated and written there on first start, so tokens survive restarts.
// Without it the key lives in memory and every restart signs everybody out.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	if cfg.SigningKeyFile == "" {
		km, err := jwtx.NewEphemeralKeyManager(cfg.Issuer)
		if err != nil {
			return nil, err
		}
		logger.Warn("using an ephemeral signing key, tokens will not survive a restart",
			"kid", km.Signer.KID(),
		)
		return km, nil
	}

	pemKey, created, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
	if err != nil {
		return nil, err
	}

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Issuer: cfg.Issuer,
		PEM:    pemKey,
	})
	if err != nil {
		return nil, fmt.Errorf("load signing key %s: %w", cfg.SigningKeyFile, err)
	}

	if created {
		logger.Info("generated signing key", "path", cfg.SigningKeyFile, "kid", km.Signer.KID())
	} else {
		logger.Info("loaded signing key", "path", cfg.SigningKeyFile, "kid", km.Signer.KID())
	}
	return km, nil
}
