package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Site describes the deployment the recovery tool operates against. It is
// resolved once per run and treated as read-only afterwards: reset links and
// message branding are built from these values.
type Site struct {
	// SiteName is the public hostname embedded in password reset links,
	// e.g. "accounts.example.com".
	SiteName string `yaml:"siteName"`

	// PlatformName is the branding name shown in notification messages.
	PlatformName string `yaml:"platformName"`

	// Scheme is the URL scheme for reset links (http or https).
	Scheme string `yaml:"scheme"`

	// DefaultLanguage is the platform default locale used when an account
	// has no stored language preference (BCP 47, e.g. "en" or "de-DE").
	DefaultLanguage string `yaml:"defaultLanguage"`
}

type SQLite struct {
	// Path is the accounts database file.
	Path string `yaml:"path"`
}

type MongoDB struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	// ConnectTimeout bounds the initial connect and ping (e.g. "10s").
	ConnectTimeout string `yaml:"connectTimeout"`
}

// Store selects and configures the account store backend.
type Store struct {
	// Driver is "sqlite" or "mongodb".
	Driver  string  `yaml:"driver"`
	SQLite  SQLite  `yaml:"sqlite"`
	MongoDB MongoDB `yaml:"mongodb"`
}

// Mail carries the SMTP delivery configuration.
type Mail struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`

	// SenderName falls back to Site.PlatformName when empty.
	SenderAddress string `yaml:"senderAddress"`
	SenderName    string `yaml:"senderName"`

	// Retry configuration for transient SMTP failures within a single send.
	RetryCount     int `yaml:"retryCount"`
	RetryBackoffMs int `yaml:"retryBackoffMs"`
}

// Token configures the password reset token issuer.
type Token struct {
	// Secret is the HMAC signing key. The RECOVERCTL_TOKEN_SECRET
	// environment variable takes precedence when set.
	Secret string `yaml:"secret"`

	// TTL is the reset link validity window as a Go duration string.
	TTL string `yaml:"ttl"`
}

type KafkaTLS struct {
	Enabled            bool `yaml:"enabled"`
	InsecureSkipVerify bool `yaml:"insecureSkipVerify"`
}

type KafkaSASL struct {
	// Mechanism is "PLAIN", "SCRAM-SHA-256" or "SCRAM-SHA-512".
	Mechanism string `yaml:"mechanism"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type Kafka struct {
	Brokers      []string  `yaml:"brokers"`
	Topic        string    `yaml:"topic"`
	WriteTimeout string    `yaml:"writeTimeout"`
	TLS          KafkaTLS  `yaml:"tls"`
	SASL         KafkaSASL `yaml:"sasl"`
}

// Audit configures the audit trail. Events always go to the structured log;
// Kafka publishing is added on top when enabled and brokers are configured.
type Audit struct {
	Enabled bool  `yaml:"enabled"`
	Kafka   Kafka `yaml:"kafka"`
}

type Config struct {
	Site  Site  `yaml:"site"`
	Store Store `yaml:"store"`
	Mail  Mail  `yaml:"mail"`
	Token Token `yaml:"token"`
	Audit Audit `yaml:"audit"`
}

const (
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"

	// TokenSecretEnv overrides Token.Secret when set and non-empty.
	TokenSecretEnv = "RECOVERCTL_TOKEN_SECRET"

	defaultTokenTTL = 72 * time.Hour
)

// Load loads the recovery tool configuration from a file path.
// If configPath is empty, defaults to "./config.yaml".
func Load(configPath ...string) (Config, error) {
	var path string

	// Use provided path or fall back to default
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	} else {
		path = "./config.yaml"
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open recovery config file %s: %v", path, err)
	}

	err = yaml.Unmarshal(content, &config)
	if err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
	}

	if secret, ok := os.LookupEnv(TokenSecretEnv); ok && secret != "" {
		config.Token.Secret = secret
	}

	return config, nil
}

// Defaults fills unset fields with sensible values. Call after Load.
func (c *Config) Defaults() {
	if c.Site.Scheme == "" {
		c.Site.Scheme = "https"
	}
	if c.Site.DefaultLanguage == "" {
		c.Site.DefaultLanguage = "en"
	}
	if c.Site.PlatformName == "" {
		c.Site.PlatformName = "Account Recovery"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.MongoDB.Collection == "" {
		c.Store.MongoDB.Collection = "accounts"
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.RetryCount <= 0 {
		c.Mail.RetryCount = 3
	}
	if c.Mail.RetryBackoffMs <= 0 {
		c.Mail.RetryBackoffMs = 100
	}
	if c.Token.TTL == "" {
		c.Token.TTL = defaultTokenTTL.String()
	}
}

// Validate reports configuration problems that must abort the run before any
// row is processed. Per-row concerns, an unreachable SMTP host for instance,
// are not checked here; they surface as row failures.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required for the %s driver", DriverSQLite)
		}
	case DriverMongoDB:
		if c.Store.MongoDB.URI == "" {
			return fmt.Errorf("store.mongodb.uri is required for the %s driver", DriverMongoDB)
		}
		if c.Store.MongoDB.Database == "" {
			return fmt.Errorf("store.mongodb.database is required for the %s driver", DriverMongoDB)
		}
	default:
		return fmt.Errorf("unknown store driver %q (want %s or %s)", c.Store.Driver, DriverSQLite, DriverMongoDB)
	}

	if c.Token.Secret == "" {
		return fmt.Errorf("token.secret is required (or set %s)", TokenSecretEnv)
	}
	if _, err := time.ParseDuration(c.Token.TTL); err != nil {
		return fmt.Errorf("invalid token.ttl %q: %v", c.Token.TTL, err)
	}

	if c.Site.SiteName == "" {
		return fmt.Errorf("site.siteName is required to build reset links")
	}
	if c.Site.Scheme != "http" && c.Site.Scheme != "https" {
		return fmt.Errorf("invalid site.scheme %q (want http or https)", c.Site.Scheme)
	}

	if c.Audit.Enabled && len(c.Audit.Kafka.Brokers) > 0 && c.Audit.Kafka.Topic == "" {
		return fmt.Errorf("audit.kafka.topic is required when brokers are configured")
	}

	return nil
}

// TokenTTL returns the parsed reset token validity window.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Token.TTL)
	if err != nil || d <= 0 {
		return defaultTokenTTL
	}
	return d
}
