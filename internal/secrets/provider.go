// Package secrets abstracts credential retrieval for the remote document
// API and attachment storage: environment variables in development, Azure
// Key Vault in staging and production.
package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Source defines where secrets are loaded from
type Source string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment Source = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault Source = "vault"
	// SourceAuto uses vault in staging/production, environment otherwise
	SourceAuto Source = "auto"
)

// Provider abstracts secret retrieval from different sources
type Provider struct {
	source      Source
	vaultClient *VaultClient
	logger      *zap.Logger
	environment string
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       Source
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewProvider creates a new secrets provider
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := cfg.Source

	if source == SourceAuto || source == "" {
		switch cfg.Environment {
		case "development", "local", "":
			source = SourceEnvironment
		default:
			source = SourceVault
		}
		logger.Info("auto-detected secret source",
			zap.String("source", string(source)),
			zap.String("environment", cfg.Environment),
		)
	}

	provider := &Provider{
		source:      source,
		logger:      logger,
		environment: cfg.Environment,
	}

	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		vaultClient, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		provider.vaultClient = vaultClient
	}

	return provider, nil
}

// GetSecret retrieves a secret by name. For the vault source the name is the
// Key Vault secret name; for the environment source it is the variable name.
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	switch p.source {
	case SourceVault:
		return p.vaultClient.GetSecret(ctx, secretName)
	default:
		value := os.Getenv(secretName)
		if value == "" {
			return "", fmt.Errorf("environment variable %s not set", secretName)
		}
		return value, nil
	}
}

// GetSecretOrEnv retrieves a secret from the vault, falling back to the
// given environment variable when the vault is not in use or the secret is
// missing.
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if p.source == SourceVault {
		value, err := p.vaultClient.GetSecret(ctx, secretName)
		if err == nil && value != "" {
			return value, nil
		}
		p.logger.Debug("vault secret not available, falling back to environment",
			zap.String("secret", secretName),
			zap.String("env", envName),
		)
	}
	return os.Getenv(envName), nil
}

// IsVaultEnabled reports whether the provider is backed by Azure Key Vault
func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault && p.vaultClient != nil
}
