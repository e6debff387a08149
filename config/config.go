// Package config loads identity SDK configuration from a YAML file and
// the environment.
//
// Every key can be overridden by an environment variable with the
// CAMPUSKIT prefix and dots replaced by underscores, e.g.
// provider.publishable_key → CAMPUSKIT_PROVIDER_PUBLISHABLE_KEY. Load
// returns a fresh Config per call; there is no package-level state.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	identity "github.com/campuskit/identity-go"
	"github.com/spf13/viper"
)

// Config is the root configuration for an application embedding the SDK.
type Config struct {
	AppName  string
	RunMode  string
	Provider *Provider
	Server   *Server
	Redis    *Redis
	Logger   *Logger
	Metrics  *Metrics
	Audit    *Audit
}

// Provider holds identity-provider settings.
type Provider struct {
	// PublishableKey is required. Loading without it fails hard: a missing
	// key would mean running with auth silently disabled.
	PublishableKey string

	// SigningSecret verifies session tokens (verifier package).
	SigningSecret string

	// Issuer, when set, must match the iss claim of session tokens.
	Issuer string

	APIBaseURL           string
	DefaultTokenTemplate string
	CacheTTL             time.Duration
}

// Server holds HTTP surface settings.
type Server struct {
	Host       string
	Port       int
	SignInPath string
}

// Redis holds settings for the Redis-backed token store.
type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Metrics holds Prometheus settings.
type Metrics struct {
	Enabled bool
}

// Audit holds audit trail settings.
type Audit struct {
	Enabled bool
	Buffer  int
	Stdout  bool
}

// Load reads configuration from the given file path (optional when the
// environment supplies the required keys) and the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAMPUSKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("campuskit")
		v.AddConfigPath("/etc/campuskit")
		v.AddConfigPath("$HOME/.campuskit")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine when the path was not forced; the
		// environment can carry the whole configuration.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("identity/config: read config: %w", err)
		}
	}

	cfg := &Config{
		AppName:  v.GetString("app_name"),
		RunMode:  v.GetString("run_mode"),
		Provider: getProvider(v),
		Server:   getServer(v),
		Redis:    getRedis(v),
		Logger:   getLogger(v),
		Metrics:  getMetrics(v),
		Audit:    getAudit(v),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "campuskit")
	v.SetDefault("run_mode", "debug")
	v.SetDefault("provider.cache_ttl", identity.DefaultCacheTTL)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.sign_in_path", "/sign-in")
	v.SetDefault("redis.prefix", "identity:token:")
	v.SetDefault("redis.ttl", 12*time.Hour)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.buffer", 1000)
	v.SetDefault("audit.stdout", true)
}

func (c *Config) validate() error {
	if c.Provider.PublishableKey == "" {
		return fmt.Errorf("%w: provider.publishable_key is required", identity.ErrInvalidConfig)
	}
	if c.Provider.APIBaseURL == "" {
		return fmt.Errorf("%w: provider.api_base_url is required", identity.ErrInvalidConfig)
	}
	return nil
}

// ClientConfig maps the provider section onto the identity client's boot
// configuration.
func (c *Config) ClientConfig() identity.Config {
	return identity.Config{
		APIBaseURL:           c.Provider.APIBaseURL,
		PublishableKey:       c.Provider.PublishableKey,
		DefaultTokenTemplate: c.Provider.DefaultTokenTemplate,
		CacheTTL:             c.Provider.CacheTTL,
	}
}

func getProvider(v *viper.Viper) *Provider {
	return &Provider{
		PublishableKey:       v.GetString("provider.publishable_key"),
		SigningSecret:        v.GetString("provider.signing_secret"),
		Issuer:               v.GetString("provider.issuer"),
		APIBaseURL:           v.GetString("provider.api_base_url"),
		DefaultTokenTemplate: v.GetString("provider.default_token_template"),
		CacheTTL:             v.GetDuration("provider.cache_ttl"),
	}
}

func getServer(v *viper.Viper) *Server {
	return &Server{
		Host:       v.GetString("server.host"),
		Port:       v.GetInt("server.port"),
		SignInPath: v.GetString("server.sign_in_path"),
	}
}

func getRedis(v *viper.Viper) *Redis {
	return &Redis{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
		Prefix:   v.GetString("redis.prefix"),
		TTL:      v.GetDuration("redis.ttl"),
	}
}

func getMetrics(v *viper.Viper) *Metrics {
	return &Metrics{
		Enabled: v.GetBool("metrics.enabled"),
	}
}

func getAudit(v *viper.Viper) *Audit {
	return &Audit{
		Enabled: v.GetBool("audit.enabled"),
		Buffer:  v.GetInt("audit.buffer"),
		Stdout:  v.GetBool("audit.stdout"),
	}
}
