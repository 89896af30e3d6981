package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/secrets"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	RemoteAPI RemoteAPIConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

// RemoteAPIConfig holds connectivity settings for the remote document store.
// The API key may come from the environment or from Azure Key Vault.
type RemoteAPIConfig struct {
	BaseURL string
	APIKey  string
	// Timeout is the per-request timeout in seconds; retries are not
	// performed, a failed call fails the whole operation.
	Timeout int
}

// TimeoutDuration returns the request timeout as a duration
func (r *RemoteAPIConfig) TimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// CacheConfig holds settings for the corporation-partitioned local cache.
// The cache is a shadow of the remote store, never a source of truth for
// writes; sqlite is the default, postgres is available for shared caches.
type CacheConfig struct {
	Driver          string // "sqlite" or "postgres"
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (c *CacheConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

// StorageConfig controls how pending attachments are transported.
// "remote" posts them to the remote upload endpoint, "local" writes them to
// disk (development), "azure" uploads them to Blob Storage directly.
type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	WhitelistIPs      []string
	WhitelistPaths    []string
}

// JobsConfig holds background job configuration
type JobsConfig struct {
	// CacheRefreshEnabled controls the periodic cache refresh job
	CacheRefreshEnabled bool
	// CacheRefreshCron is the cron expression for cache refresh runs
	CacheRefreshCron string
}

// Load loads configuration from file and environment variables.
// Secrets are not resolved; use LoadWithSecrets for full resolution.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.RemoteAPI.BaseURL == "" {
		cfg.RemoteAPI.BaseURL = v.GetString("REMOTE_API_BASE_URL")
	}
	if cfg.RemoteAPI.APIKey == "" {
		cfg.RemoteAPI.APIKey = v.GetString("REMOTE_API_KEY")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves the remote API key from
// the configured secret source. In development the key comes from the
// environment; in staging/production it is fetched from Azure Key Vault.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.Source(cfg.Secrets.Source),
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	if key, err := provider.GetSecretOrEnv(ctx, "remote-api-key", "REMOTE_API_KEY"); err == nil && key != "" {
		cfg.RemoteAPI.APIKey = key
	}
	if connStr, err := provider.GetSecretOrEnv(ctx, "storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING"); err == nil && connStr != "" {
		cfg.Storage.CloudConnectionString = connStr
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Bygghuset Procurement API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Remote API defaults
	v.SetDefault("remoteapi.baseURL", "http://localhost:9000/api/v1")
	v.SetDefault("remoteapi.timeout", 30)

	// Cache defaults (sqlite shadow of the remote store)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.dsn", "./procurement-cache.db")
	v.SetDefault("cache.maxOpenConns", 10)
	v.SetDefault("cache.maxIdleConns", 2)
	v.SetDefault("cache.connMaxLifetime", 300)

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Storage defaults
	v.SetDefault("storage.mode", "remote")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.maxUploadSizeMB", 50)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Content-Type", "X-Corporation-UUID", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/cache", "/health/remote"})

	// Jobs defaults: refresh the cache shadow hourly
	v.SetDefault("jobs.cacheRefreshEnabled", true)
	v.SetDefault("jobs.cacheRefreshCron", "@hourly")
}
