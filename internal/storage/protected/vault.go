package protected

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/hashicorp/vault-client-go/schema"
)

const transitMount = "transit"

// VaultTransit seals with the Vault transit engine. The key never leaves Vault.
type VaultTransit struct {
	client *vault.Client
	key    string
}

// NewVaultTransit creates a Vault client for addr authenticated with token.
func NewVaultTransit(addr, token, key string) (*VaultTransit, error) {
	if addr == "" || token == "" || key == "" {
		return nil, fmt.Errorf("vault sealer needs address, token and transit key")
	}
	client, err := vault.New(
		vault.WithAddress(addr),
		vault.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating new vault client instance: %w", err)
	}
	if err := client.SetToken(token); err != nil {
		return nil, fmt.Errorf("error while setting token: %w", err)
	}
	return &VaultTransit{client: client, key: key}, nil
}

func (v *VaultTransit) Seal(ctx context.Context, plaintext string) (string, error) {
	resp, err := v.client.Secrets.TransitEncrypt(
		ctx,
		v.key,
		schema.TransitEncryptRequest{Plaintext: base64.StdEncoding.EncodeToString([]byte(plaintext))},
		vault.WithMountPath(transitMount),
	)
	if err != nil {
		return "", fmt.Errorf("vault encrypt: %w", err)
	}
	ciphertext, ok := resp.Data["ciphertext"].(string)
	if !ok || ciphertext == "" {
		return "", fmt.Errorf("vault encrypt: ciphertext missing in response")
	}
	return ciphertext, nil
}

func (v *VaultTransit) Open(ctx context.Context, sealed string) (string, error) {
	resp, err := v.client.Secrets.TransitDecrypt(
		ctx,
		v.key,
		schema.TransitDecryptRequest{Ciphertext: sealed},
		vault.WithMountPath(transitMount),
	)
	if err != nil {
		return "", fmt.Errorf("vault decrypt: %w", err)
	}
	encoded, ok := resp.Data["plaintext"].(string)
	if !ok {
		return "", fmt.Errorf("vault decrypt: plaintext missing in response")
	}
	plain, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("vault decrypt: %w", err)
	}
	return string(plain), nil
}
