// Package kms supplies the ECDSA key that signs trip ledger transactions,
// either from configuration or from a HashiCorp Vault KV v2 secret.
package kms

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	vault "github.com/hashicorp/vault/api"
	"github.com/turtacn/touristsafety/internal/config"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// ErrSigningKeyUnavailable is returned when no signing key is configured or it cannot be read.
var ErrSigningKeyUnavailable = apperrors.ErrSigningKeyUnavailable

// KeySource yields the transaction signing key.
type KeySource interface {
	SigningKey(ctx context.Context) (*ecdsa.PrivateKey, error)
}

// ParsePrivateKey parses a hex secp256k1 key with or without a 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, ErrSigningKeyUnavailable
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningKeyUnavailable, err)
	}
	return key, nil
}

// StaticKeySource serves a key taken from configuration.
type StaticKeySource struct {
	key *ecdsa.PrivateKey
}

// NewStaticKeySource parses hexKey once.
func NewStaticKeySource(hexKey string) (*StaticKeySource, error) {
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return &StaticKeySource{key: key}, nil
}

func (s *StaticKeySource) SigningKey(context.Context) (*ecdsa.PrivateKey, error) {
	return s.key, nil
}

// VaultKeySource reads the signing key from a KV v2 secret and keeps it in memory
// after the first successful read. Failed reads are retried on the next call.
type VaultKeySource struct {
	client *vault.Client
	mount  string
	path   string
	field  string
	log    logger.Logger

	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

// NewVaultClient creates a Vault API client for cfg.
func NewVaultClient(cfg config.VaultConfig) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	if cfg.Address != "" {
		vaultConfig.Address = cfg.Address
	}
	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return client, nil
}

// NewVaultKeySource creates a key source reading cfg.SigningKeyPath under cfg.MountPath.
func NewVaultKeySource(cfg config.VaultConfig, client *vault.Client, log logger.Logger) *VaultKeySource {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	mount, field := cfg.MountPath, cfg.SigningKeyField
	if mount == "" {
		mount = "secret"
	}
	if field == "" {
		field = "private_key"
	}
	return &VaultKeySource{
		client: client,
		mount:  mount,
		path:   cfg.SigningKeyPath,
		field:  field,
		log:    log.WithComponent("vault_key_source"),
	}
}

func (s *VaultKeySource) SigningKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return s.key, nil
	}

	secret, err := s.client.KVv2(s.mount).Get(ctx, s.path)
	if err != nil {
		s.log.Error(ctx, "failed to read signing key from vault", err, logger.Fields{"mount": s.mount, "path": s.path})
		return nil, fmt.Errorf("%w: %v", ErrSigningKeyUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: secret %s/%s is empty", ErrSigningKeyUnavailable, s.mount, s.path)
	}
	raw, ok := secret.Data[s.field].(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing or not a string", ErrSigningKeyUnavailable, s.field)
	}

	key, err := ParsePrivateKey(raw)
	if err != nil {
		return nil, err
	}
	s.key = key
	s.log.Info(ctx, "signing key loaded from vault", logger.Fields{
		"path":    s.path,
		"address": crypto.PubkeyToAddress(key.PublicKey).Hex(),
	})
	return key, nil
}

// NewKeySource picks the key source for the chain ledger: Vault when enabled,
// otherwise the configured private key. It returns ErrSigningKeyUnavailable when
// neither is set.
func NewKeySource(chain config.ChainConfig, vaultCfg config.VaultConfig, log logger.Logger) (KeySource, error) {
	if vaultCfg.Enabled {
		client, err := NewVaultClient(vaultCfg)
		if err != nil {
			return nil, err
		}
		return NewVaultKeySource(vaultCfg, client, log), nil
	}
	static, err := NewStaticKeySource(chain.PrivateKey)
	if err != nil {
		return nil, err
	}
	return static, nil
}
