// Package protected seals provider access tokens before they reach the
// credential store.
package protected

import (
	"context"
	"fmt"

	"ghbridge/internal/config"
)

const (
	KindPlain     = "plain"
	KindSecretbox = "secretbox"
	KindVault     = "vault"
)

// Sealer encrypts secrets at rest. Open must accept anything Seal produced.
type Sealer interface {
	Seal(ctx context.Context, plaintext string) (string, error)
	Open(ctx context.Context, sealed string) (string, error)
}

// Plain stores secrets unchanged.
type Plain struct{}

func (Plain) Seal(_ context.Context, plaintext string) (string, error) { return plaintext, nil }

func (Plain) Open(_ context.Context, sealed string) (string, error) { return sealed, nil }

// New builds the Sealer selected by conf.Kind.
func New(conf config.SealerConfig) (Sealer, error) {
	const op = "protected.New"

	switch conf.Kind {
	case "", KindPlain:
		return Plain{}, nil
	case KindSecretbox:
		s, err := NewSecretbox(conf.Key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil
	case KindVault:
		v, err := NewVaultTransit(conf.VaultAddr, conf.VaultToken, conf.TransitKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%s: unknown sealer kind %q", op, conf.Kind)
	}
}
