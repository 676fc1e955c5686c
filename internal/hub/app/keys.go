package app

import (
	"fmt"
	"log/slog"

	"github.com/severindevelopment/hub/pkg/cryptox"
	"github.com/severindevelopment/hub/pkg/idx"
	"github.com/severindevelopment/hub/pkg/jwtx"
)

// SigningKeys bundles the ephemeral Ed25519 signing material the hub runs
// with. Keys are generated fresh on every startup: all sessions and access
// tokens die with a restart, which is acceptable for an internal portal
// where re-login is an invisible SSO redirect.
type SigningKeys struct {
	KeySet   *jwtx.KeySet
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
}

func initSigningKeys(issuer string, logger *slog.Logger) (*SigningKeys, error) {
	pemKey, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}

	kid := idx.New().String()
	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	if err != nil {
		return nil, fmt.Errorf("building signer: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("registering signer: %w", err)
	}

	logger.Info("generated ephemeral signing key", "kid", kid, "alg", "EdDSA")
	logger.Warn("tokens and sessions issued before this restart are now invalid")

	return &SigningKeys{
		KeySet:   keys,
		Signer:   signer,
		Verifier: jwtx.NewCommonEdDSA(keys, issuer, nil),
	}, nil
}
