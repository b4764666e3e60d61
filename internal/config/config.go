// Package config holds the typed reservadesk configuration. Values come from
// viper: defaults registered here, an optional reservadesk.yaml and
// RESERVADESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// RESERVADESK_AUTH_JWT_SECRET for auth.jwt_secret.
const EnvPrefix = "RESERVADESK"

// FileName is the config file base name searched by the CLI.
const FileName = "reservadesk"

// Config represents the top-level reservadesk configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Admin     AdminConfig     `yaml:"admin" mapstructure:"admin"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Mail      MailConfig      `yaml:"mail" mapstructure:"mail"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string   `yaml:"host" mapstructure:"host"`
	Port            int      `yaml:"port" mapstructure:"port"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// TrustProxy honors X-Forwarded-For for client IPs (login rate limit).
	TrustProxy bool `yaml:"trust_proxy" mapstructure:"trust_proxy"`
}

// AuthConfig controls session tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// DatabaseConfig selects the storage backend. See store.ParseURL for the
// accepted URL forms.
type DatabaseConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// AdminConfig is the account bootstrapped by serve when no user exists.
type AdminConfig struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// RateLimitConfig throttles the login endpoint per client IP.
type RateLimitConfig struct {
	LoginPerMinute int `yaml:"login_per_minute" mapstructure:"login_per_minute"`
}

// MailConfig selects how guests are notified of status changes.
type MailConfig struct {
	Provider string         `yaml:"provider" mapstructure:"provider"`
	From     string         `yaml:"from" mapstructure:"from"`
	FromName string         `yaml:"from_name" mapstructure:"from_name"`
	SMTP     SMTPConfig     `yaml:"smtp" mapstructure:"smtp"`
	Sendgrid SendgridConfig `yaml:"sendgrid" mapstructure:"sendgrid"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host       string `yaml:"host" mapstructure:"host"`
	Port       int    `yaml:"port" mapstructure:"port"`
	Username   string `yaml:"username" mapstructure:"username"`
	Password   string `yaml:"password" mapstructure:"password"`
	Auth       string `yaml:"auth" mapstructure:"auth"`
	Encryption string `yaml:"encryption" mapstructure:"encryption"`
	NoTLSCheck bool   `yaml:"no_tls_check" mapstructure:"no_tls_check"`
}

// SendgridConfig holds SendGrid API settings.
type SendgridConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: "30s",
		},
		Auth: AuthConfig{
			TokenTTL: "1h",
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: 10,
		},
		Mail: MailConfig{
			Provider: "none",
			FromName: "Reservas",
			SMTP: SMTPConfig{
				Port:       587,
				Auth:       "login",
				Encryption: "starttls",
			},
		},
	}
}

// SetDefaults registers every key with v. Environment variables are only
// picked up by Unmarshal for keys viper already knows about.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.trust_proxy", d.Server.TrustProxy)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("admin.username", d.Admin.Username)
	v.SetDefault("admin.password", d.Admin.Password)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("rate_limit.login_per_minute", d.RateLimit.LoginPerMinute)
	v.SetDefault("mail.provider", d.Mail.Provider)
	v.SetDefault("mail.from", d.Mail.From)
	v.SetDefault("mail.from_name", d.Mail.FromName)
	v.SetDefault("mail.smtp.host", d.Mail.SMTP.Host)
	v.SetDefault("mail.smtp.port", d.Mail.SMTP.Port)
	v.SetDefault("mail.smtp.username", d.Mail.SMTP.Username)
	v.SetDefault("mail.smtp.password", d.Mail.SMTP.Password)
	v.SetDefault("mail.smtp.auth", d.Mail.SMTP.Auth)
	v.SetDefault("mail.smtp.encryption", d.Mail.SMTP.Encryption)
	v.SetDefault("mail.smtp.no_tls_check", d.Mail.SMTP.NoTLSCheck)
	v.SetDefault("mail.sendgrid.api_key", d.Mail.Sendgrid.APIKey)
}

// Configure applies the environment binding used by every command: the
// RESERVADESK_ prefix and "." to "_" key mapping.
func Configure(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the effective configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check on its own.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TokenTTL(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.RateLimit.LoginPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.login_per_minute must not be negative"))
	}
	return errors.Join(errs...)
}

// ShutdownTimeout parses server.shutdown_timeout.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("server.shutdown_timeout", c.Server.ShutdownTimeout)
}

// TokenTTL parses auth.token_ttl.
func (c *Config) TokenTTL() (time.Duration, error) {
	return parseDuration("auth.token_ttl", c.Auth.TokenTTL)
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, s)
	}
	return d, nil
}

// DefaultDataDir returns ~/.reservadesk, or .reservadesk in the working
// directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reservadesk"
	}
	return filepath.Join(home, ".reservadesk")
}

// WriteDefaultConfig writes the default configuration to a YAML file. It
// refuses to replace an existing file unless force is set.
func WriteDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
