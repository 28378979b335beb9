// Package config provides configuration management for ipdata.
//
// A Config is built once at process start (CLI PersistentPreRunE or server
// boot) and passed explicitly to the components that need it. Nothing below
// this package reads the process environment on its own.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ipdata/ipdata/internal/constants"
	"github.com/ipdata/ipdata/internal/models"
)

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvValue is one environment variable as observed at load time.
// Present distinguishes "unset" from "set to the empty string".
type EnvValue struct {
	Name    string
	Value   string
	Present bool
}

// Describe renders the variable state for diagnostics without its value.
func (v EnvValue) Describe() string {
	switch {
	case !v.Present:
		return v.Name + " (not set)"
	case v.Value == "":
		return v.Name + " (set but empty)"
	default:
		return v.Name + " (set)"
	}
}

// StorageEnv is the credential-related slice of the environment.
type StorageEnv struct {
	AccessKeyID     EnvValue
	SecretAccessKey EnvValue
	Region          EnvValue
	Bucket          EnvValue
}

// Credentials converts the environment snapshot into a credential set.
// Region is left empty when unset so callers can tell a default from a choice.
func (e StorageEnv) Credentials() models.StorageCredentials {
	return models.StorageCredentials{
		AccessKeyID:     e.AccessKeyID.Value,
		SecretAccessKey: e.SecretAccessKey.Value,
		Region:          e.Region.Value,
		Bucket:          e.Bucket.Value,
	}
}

// Required returns the required variables in display order.
func (e StorageEnv) Required() []EnvValue {
	return []EnvValue{e.AccessKeyID, e.SecretAccessKey, e.Bucket}
}

// ProxyConfig holds outbound proxy settings for storage and registry traffic.
type ProxyConfig struct {
	Mode     string // "no-proxy", "system", "basic", "ntlm"
	Host     string
	Port     int
	User     string
	Password string
	NoProxy  string // Comma-separated list of hosts to bypass proxy
}

// Config is the process-wide configuration object.
type Config struct {
	Storage StorageEnv

	// SettingsPath is the INI file holding the saved credential override.
	SettingsPath string
	Settings     *Settings

	AppEnv        string // "development" or "production"
	AllowedOrigin string // CORS origin for bucket policy and local API
	ListenAddr    string

	MinioEndpoint      string
	MinioUseSSL        bool
	GCSCredentialsFile string

	RegistryURL   string
	RegistryToken string

	Proxy ProxyConfig
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// EnvFile is an optional dotenv file. Process environment wins over it.
	EnvFile string
	// SettingsPath overrides the default settings file location.
	SettingsPath string
	// Lookup overrides os.LookupEnv (tests).
	Lookup LookupFunc
}

// Load builds the Config from the dotenv file, the process environment and
// the settings file.
func Load(opts LoadOptions) (*Config, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if opts.EnvFile != "" {
		fileEnv, err := godotenv.Read(opts.EnvFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read env file %s: %w", opts.EnvFile, err)
		}
		lookup = layered(lookup, fileEnv)
	}

	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		p, err := DefaultSettingsPath()
		if err != nil {
			return nil, err
		}
		settingsPath = p
	}

	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}

	env := func(name string) EnvValue {
		v, ok := lookup(name)
		return EnvValue{Name: name, Value: strings.TrimSpace(v), Present: ok}
	}
	str := func(name, fallback string) string {
		if v := env(name); v.Present && v.Value != "" {
			return v.Value
		}
		return fallback
	}

	cfg := &Config{
		Storage: StorageEnv{
			AccessKeyID:     env(constants.EnvAccessKeyID),
			SecretAccessKey: env(constants.EnvSecretAccessKey),
			Region:          env(constants.EnvRegion),
			Bucket:          env(constants.EnvBucket),
		},
		SettingsPath:       settingsPath,
		Settings:           settings,
		AppEnv:             str(constants.EnvAppEnv, "development"),
		AllowedOrigin:      str(constants.EnvAllowedOrigin, constants.CorsWildcardOrigin),
		ListenAddr:         str(constants.EnvListenAddr, "127.0.0.1:8787"),
		MinioEndpoint:      str(constants.EnvMinioEndpoint, ""),
		MinioUseSSL:        str(constants.EnvMinioUseSSL, "true") == "true",
		GCSCredentialsFile: str(constants.EnvGCSCredentialsFile, ""),
		RegistryURL:        str(constants.EnvRegistryURL, ""),
		RegistryToken:      str(constants.EnvRegistryToken, ""),
		Proxy: ProxyConfig{
			Mode:     str(constants.EnvProxyMode, "no-proxy"),
			Host:     str(constants.EnvProxyHost, ""),
			User:     str(constants.EnvProxyUser, ""),
			Password: str(constants.EnvProxyPassword, ""),
			NoProxy:  str(constants.EnvNoProxy, ""),
		},
	}

	if p := str(constants.EnvProxyPort, ""); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", constants.EnvProxyPort, err)
		}
		cfg.Proxy.Port = port
	}

	return cfg, nil
}

// IsProduction returns true when running with IPDATA_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AllowedOrigins splits AllowedOrigin into its comma-separated entries.
// Both the bucket CORS rule and the local API use this list.
func (c *Config) AllowedOrigins() []string {
	origins := SplitOrigins(c.AllowedOrigin)
	if len(origins) == 0 {
		return []string{constants.CorsWildcardOrigin}
	}
	return origins
}

// SplitOrigins parses a comma-separated origin list, dropping blanks.
func SplitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.IsProduction() && slices.Contains(c.AllowedOrigins(), constants.CorsWildcardOrigin) {
		return ErrWildcardInProd
	}
	switch strings.ToLower(c.Proxy.Mode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return ErrInvalidProxy
	}
	if c.Settings != nil {
		return c.Settings.Validate()
	}
	return nil
}

// layered returns a lookup that consults primary first, then the dotenv map.
func layered(primary LookupFunc, fallback map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}
