// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
)

// Config holds the server configuration.
type Config struct {
	// Mode is the operating mode: prod or dev.
	Mode string `toml:"mode"`

	// ListenAddr is the address to listen on. Example: ":8080"
	ListenAddr string `toml:"listen_addr"`

	// Store holds persistence settings.
	Store StoreConfig `toml:"store"`

	// Cache holds cache settings.
	Cache CacheConfig `toml:"cache"`

	// Auth holds authentication settings.
	Auth AuthConfig `toml:"auth"`

	// TLS configuration.
	TLS TLSConfig `toml:"tls"`

	// OutboundHTTP configuration for catalog provider requests.
	OutboundHTTP OutboundHTTPConfig `toml:"outbound_http"`

	// Catalog holds catalog provider settings.
	Catalog CatalogConfig `toml:"catalog"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver is the store driver name: "sqlite" (default) or "memory".
	Driver string `toml:"driver"`

	// DataDir is where the sqlite driver keeps its database file.
	DataDir string `toml:"data_dir"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	// Driver is the cache driver name: "memory" (default) or "valkey".
	Driver string `toml:"driver"`

	// Drivers holds per-driver configuration.
	// Example: [cache.drivers.valkey] addr = "localhost:6379"
	Drivers map[string]any `toml:"drivers"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SessionTTLHours is the session lifetime in hours. Default: 24.
	SessionTTLHours int `toml:"session_ttl_hours"`

	// BcryptCost is the bcrypt cost factor. Default: 10 in prod, 4 in dev.
	BcryptCost int `toml:"bcrypt_cost"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: info in prod mode, debug in dev mode.
	Level string `toml:"level"`
}

// CatalogConfig holds catalog provider settings.
type CatalogConfig struct {
	// Enabled controls the suggestions endpoint. Default: true.
	// Pointer for presence detection; nil = use preset default.
	Enabled *bool `toml:"enabled"`
}

// TLSConfig holds TLS-related settings.
type TLSConfig struct {
	// Mode is one of: off, static, selfsigned, acme.
	Mode string `toml:"mode"`

	// CertFile and KeyFile for static mode.
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`

	// SelfSignedDir is where self-signed certs are stored.
	SelfSignedDir string `toml:"self_signed_dir"`

	// Hostname is the certificate hostname for selfsigned mode.
	Hostname string `toml:"hostname"`

	// HTTPPort for the plain HTTP listener (ACME challenges and redirects).
	HTTPPort int `toml:"http_port"`

	// HTTPSPort for the HTTPS listener.
	HTTPSPort int `toml:"https_port"`

	// ACME configuration.
	ACME ACMEConfig `toml:"acme"`
}

// ACMEConfig holds ACME/Let's Encrypt settings.
type ACMEConfig struct {
	// Email for ACME registration.
	Email string `toml:"email"`

	// Domain is the domain to obtain a certificate for.
	Domain string `toml:"domain"`

	// Directory is the ACME server URL (default: Let's Encrypt production).
	Directory string `toml:"directory"`

	// StorageDir is where ACME certificates and account info are stored.
	StorageDir string `toml:"storage_dir"`

	// UseStaging uses Let's Encrypt staging (for testing).
	UseStaging bool `toml:"use_staging"`
}

// OutboundHTTPConfig holds settings for outbound HTTP requests.
type OutboundHTTPConfig struct {
	// SSRFMode is one of: strict, off.
	SSRFMode string `toml:"ssrf_mode"`

	// TimeoutMS is the overall request timeout in milliseconds.
	TimeoutMS int `toml:"timeout_ms"`

	// ConnectTimeoutMS is the connection timeout in milliseconds.
	ConnectTimeoutMS int `toml:"connect_timeout_ms"`

	// MaxRedirects is the maximum number of redirects to follow.
	MaxRedirects int `toml:"max_redirects"`

	// MaxResponseBytes is the maximum response body size.
	MaxResponseBytes int64 `toml:"max_response_bytes"`

	// InsecureSkipVerify disables TLS verification (dev-only).
	InsecureSkipVerify bool `toml:"insecure_skip_verify"`
}

// CatalogEnabled returns whether the catalog suggestions endpoint is on.
// Safe for nil pointer on the *bool field.
func (c *Config) CatalogEnabled() bool {
	return c.Catalog.Enabled != nil && *c.Catalog.Enabled
}

// Redacted returns a string representation of the config with secrets redacted.
func (c *Config) Redacted() string {
	var sb strings.Builder
	sb.WriteString("Config{\n")
	sb.WriteString(fmt.Sprintf("  Mode: %q,\n", c.Mode))
	sb.WriteString(fmt.Sprintf("  ListenAddr: %q,\n", c.ListenAddr))
	sb.WriteString("  Store: {\n")
	sb.WriteString(fmt.Sprintf("    Driver: %q,\n", c.Store.Driver))
	sb.WriteString(fmt.Sprintf("    DataDir: %q,\n", c.Store.DataDir))
	sb.WriteString("  },\n")
	sb.WriteString("  Cache: {\n")
	sb.WriteString(fmt.Sprintf("    Driver: %q,\n", c.Cache.Driver))
	sb.WriteString(fmt.Sprintf("    DriversCount: %d,\n", len(c.Cache.Drivers)))
	sb.WriteString("  },\n")
	sb.WriteString("  Auth: {\n")
	sb.WriteString(fmt.Sprintf("    SessionTTLHours: %d,\n", c.Auth.SessionTTLHours))
	sb.WriteString(fmt.Sprintf("    BcryptCost: %d,\n", c.Auth.BcryptCost))
	sb.WriteString("  },\n")
	sb.WriteString("  TLS: {\n")
	sb.WriteString(fmt.Sprintf("    Mode: %q,\n", c.TLS.Mode))
	sb.WriteString(fmt.Sprintf("    CertFile: %q,\n", c.TLS.CertFile))
	sb.WriteString(fmt.Sprintf("    KeyFile: %q,\n", c.TLS.KeyFile))
	sb.WriteString(fmt.Sprintf("    HTTPPort: %d,\n", c.TLS.HTTPPort))
	sb.WriteString(fmt.Sprintf("    HTTPSPort: %d,\n", c.TLS.HTTPSPort))
	sb.WriteString("  },\n")
	sb.WriteString("  OutboundHTTP: {\n")
	sb.WriteString(fmt.Sprintf("    SSRFMode: %q,\n", c.OutboundHTTP.SSRFMode))
	sb.WriteString(fmt.Sprintf("    TimeoutMS: %d,\n", c.OutboundHTTP.TimeoutMS))
	sb.WriteString(fmt.Sprintf("    MaxRedirects: %d,\n", c.OutboundHTTP.MaxRedirects))
	sb.WriteString(fmt.Sprintf("    MaxResponseBytes: %d,\n", c.OutboundHTTP.MaxResponseBytes))
	sb.WriteString(fmt.Sprintf("    InsecureSkipVerify: %v,\n", c.OutboundHTTP.InsecureSkipVerify))
	sb.WriteString("  },\n")
	sb.WriteString("  Catalog: {\n")
	enabledStr := "<nil>"
	if c.Catalog.Enabled != nil {
		enabledStr = fmt.Sprintf("%v", *c.Catalog.Enabled)
	}
	sb.WriteString(fmt.Sprintf("    Enabled: %s,\n", enabledStr))
	sb.WriteString("  },\n")
	sb.WriteString("  Logging: {\n")
	sb.WriteString(fmt.Sprintf("    Level: %q,\n", c.Logging.Level))
	sb.WriteString("  },\n")
	sb.WriteString("}")
	return sb.String()
}
