package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Mode represents the server operating mode.
type Mode string

const (
	ModeProd Mode = "prod"
	ModeDev  Mode = "dev"
)

// ParseMode parses a mode string, returning an error for invalid values.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "":
		return ModeProd, nil
	case "dev":
		return ModeDev, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be one of prod, dev", s)
	}
}

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but file is missing or invalid, loading fails.
	ConfigPath string

	// ModeFlag is the --mode flag value (overrides config file mode).
	ModeFlag string

	// FlagOverrides are CLI flag values that override config file values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	ListenAddr   *string
	StoreDriver  *string
	StoreDataDir *string
	CacheDriver  *string
	TLSMode      *string
	LoggingLevel *string
}

// fileConfig mirrors Config but with pointer sections to detect presence.
type fileConfig struct {
	Mode       string `toml:"mode"`
	ListenAddr string `toml:"listen_addr"`

	Store        *StoreConfig        `toml:"store"`
	Cache        *cacheFileConfig    `toml:"cache"`
	Auth         *AuthConfig         `toml:"auth"`
	TLS          *TLSConfig          `toml:"tls"`
	OutboundHTTP *OutboundHTTPConfig `toml:"outbound_http"`
	Catalog      *CatalogConfig      `toml:"catalog"`
	Logging      *LoggingConfig      `toml:"logging"`
}

type cacheFileConfig struct {
	Driver  string         `toml:"driver"`
	Drivers map[string]any `toml:"drivers"`
}

// Load loads configuration with the following precedence:
//  1. Determine effective mode: --mode flag > mode in config file > default (prod)
//  2. Start from mode preset defaults
//  3. Overlay TOML config file values
//  4. Overlay CLI flags
//  5. Validate enum fields
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid
// TOML, Load returns an error (fail fast). Unknown TOML keys produce a
// warning but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var fc fileConfig

	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	modeStr := "prod"
	if fc.Mode != "" {
		modeStr = fc.Mode
	}
	if opts.ModeFlag != "" {
		modeStr = opts.ModeFlag
	}

	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	cfg := presetForMode(mode)

	if opts.ConfigPath != "" {
		overlayFileConfig(cfg, &fc)
	}
	overlayFlags(cfg, opts.FlagOverrides)

	if err := validateEnums(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ptrBool(b bool) *bool { return &b }

func presetForMode(mode Mode) *Config {
	if mode == ModeDev {
		return DevConfig()
	}
	return ProdConfig()
}

// ProdConfig returns production-safe defaults.
func ProdConfig() *Config {
	return &Config{
		Mode:       string(ModeProd),
		ListenAddr: ":8080",
		Store: StoreConfig{
			Driver:  "sqlite",
			DataDir: ".listkeeper",
		},
		Cache: CacheConfig{
			Driver: "memory",
		},
		Auth: AuthConfig{
			SessionTTLHours: 24,
			BcryptCost:      10,
		},
		TLS: TLSConfig{
			Mode:          "off",
			HTTPPort:      8080,
			HTTPSPort:     8443,
			SelfSignedDir: ".listkeeper/certs",
			Hostname:      "localhost",
			ACME: ACMEConfig{
				Directory:  "https://acme-v02.api.letsencrypt.org/directory",
				StorageDir: ".listkeeper/acme",
				UseStaging: false,
			},
		},
		OutboundHTTP: OutboundHTTPConfig{
			SSRFMode:           "strict",
			TimeoutMS:          10000,
			ConnectTimeoutMS:   2000,
			MaxRedirects:       1,
			MaxResponseBytes:   1048576,
			InsecureSkipVerify: false,
		},
		Catalog: CatalogConfig{
			Enabled: ptrBool(true),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DevConfig returns development mode defaults.
func DevConfig() *Config {
	cfg := ProdConfig()
	cfg.Mode = string(ModeDev)
	cfg.Store.Driver = "memory"
	cfg.Auth.BcryptCost = 4
	cfg.OutboundHTTP.SSRFMode = "off"
	cfg.OutboundHTTP.MaxRedirects = 3
	cfg.OutboundHTTP.InsecureSkipVerify = true
	cfg.TLS.ACME.Directory = "https://acme-staging-v02.api.letsencrypt.org/directory"
	cfg.TLS.ACME.UseStaging = true
	cfg.Logging.Level = "debug"
	return cfg
}

// overlayFileConfig applies TOML file values onto cfg.
func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}

	if fc.Store != nil {
		if fc.Store.Driver != "" {
			cfg.Store.Driver = fc.Store.Driver
		}
		if fc.Store.DataDir != "" {
			cfg.Store.DataDir = fc.Store.DataDir
		}
	}

	if fc.Cache != nil {
		if fc.Cache.Driver != "" {
			cfg.Cache.Driver = fc.Cache.Driver
		}
		if len(fc.Cache.Drivers) > 0 {
			cfg.Cache.Drivers = fc.Cache.Drivers
		}
	}

	if fc.Auth != nil {
		if fc.Auth.SessionTTLHours > 0 {
			cfg.Auth.SessionTTLHours = fc.Auth.SessionTTLHours
		}
		if fc.Auth.BcryptCost > 0 {
			cfg.Auth.BcryptCost = fc.Auth.BcryptCost
		}
	}

	if fc.TLS != nil {
		if fc.TLS.Mode != "" {
			cfg.TLS.Mode = fc.TLS.Mode
		}
		if fc.TLS.CertFile != "" {
			cfg.TLS.CertFile = fc.TLS.CertFile
		}
		if fc.TLS.KeyFile != "" {
			cfg.TLS.KeyFile = fc.TLS.KeyFile
		}
		if fc.TLS.HTTPPort != 0 {
			cfg.TLS.HTTPPort = fc.TLS.HTTPPort
		}
		if fc.TLS.HTTPSPort != 0 {
			cfg.TLS.HTTPSPort = fc.TLS.HTTPSPort
		}
		if fc.TLS.SelfSignedDir != "" {
			cfg.TLS.SelfSignedDir = fc.TLS.SelfSignedDir
		}
		if fc.TLS.Hostname != "" {
			cfg.TLS.Hostname = fc.TLS.Hostname
		}
		if fc.TLS.ACME.Email != "" {
			cfg.TLS.ACME.Email = fc.TLS.ACME.Email
		}
		if fc.TLS.ACME.Domain != "" {
			cfg.TLS.ACME.Domain = fc.TLS.ACME.Domain
		}
		if fc.TLS.ACME.Directory != "" {
			cfg.TLS.ACME.Directory = fc.TLS.ACME.Directory
		}
		if fc.TLS.ACME.StorageDir != "" {
			cfg.TLS.ACME.StorageDir = fc.TLS.ACME.StorageDir
		}
		cfg.TLS.ACME.UseStaging = fc.TLS.ACME.UseStaging
	}

	if fc.OutboundHTTP != nil {
		if fc.OutboundHTTP.SSRFMode != "" {
			cfg.OutboundHTTP.SSRFMode = fc.OutboundHTTP.SSRFMode
		}
		if fc.OutboundHTTP.TimeoutMS != 0 {
			cfg.OutboundHTTP.TimeoutMS = fc.OutboundHTTP.TimeoutMS
		}
		if fc.OutboundHTTP.ConnectTimeoutMS != 0 {
			cfg.OutboundHTTP.ConnectTimeoutMS = fc.OutboundHTTP.ConnectTimeoutMS
		}
		if fc.OutboundHTTP.MaxRedirects != 0 {
			cfg.OutboundHTTP.MaxRedirects = fc.OutboundHTTP.MaxRedirects
		}
		if fc.OutboundHTTP.MaxResponseBytes != 0 {
			cfg.OutboundHTTP.MaxResponseBytes = fc.OutboundHTTP.MaxResponseBytes
		}
		cfg.OutboundHTTP.InsecureSkipVerify = fc.OutboundHTTP.InsecureSkipVerify
	}

	if fc.Catalog != nil {
		if fc.Catalog.Enabled != nil {
			cfg.Catalog.Enabled = fc.Catalog.Enabled
		}
	}

	if fc.Logging != nil {
		if fc.Logging.Level != "" {
			cfg.Logging.Level = fc.Logging.Level
		}
	}
}

// overlayFlags applies CLI flag values onto cfg.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.ListenAddr = *f.ListenAddr
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.StoreDataDir != nil && *f.StoreDataDir != "" {
		cfg.Store.DataDir = *f.StoreDataDir
	}
	if f.CacheDriver != nil && *f.CacheDriver != "" {
		cfg.Cache.Driver = *f.CacheDriver
	}
	if f.TLSMode != nil && *f.TLSMode != "" {
		cfg.TLS.Mode = *f.TLSMode
	}
	if f.LoggingLevel != nil && *f.LoggingLevel != "" {
		cfg.Logging.Level = *f.LoggingLevel
	}
}

// validateEnums validates enum-like config fields and returns an error for
// invalid values.
func validateEnums(cfg *Config) error {
	switch cfg.Store.Driver {
	case "", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid store.driver %q: must be one of sqlite, memory", cfg.Store.Driver)
	}

	switch cfg.Cache.Driver {
	case "", "memory", "valkey":
	default:
		return fmt.Errorf("invalid cache.driver %q: must be one of memory, valkey", cfg.Cache.Driver)
	}

	switch cfg.TLS.Mode {
	case "off", "static", "selfsigned", "acme":
	default:
		return fmt.Errorf("invalid tls.mode %q: must be one of off, static, selfsigned, acme", cfg.TLS.Mode)
	}

	if cfg.TLS.Mode == "static" && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
		return fmt.Errorf("tls.cert_file and tls.key_file are required when tls.mode is static")
	}
	if cfg.TLS.Mode == "acme" && cfg.TLS.ACME.Domain == "" {
		return fmt.Errorf("tls.acme.domain is required when tls.mode is acme")
	}

	switch cfg.OutboundHTTP.SSRFMode {
	case "strict", "off":
	default:
		return fmt.Errorf("invalid outbound_http.ssrf_mode %q: must be one of strict, off", cfg.OutboundHTTP.SSRFMode)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}

	return nil
}
