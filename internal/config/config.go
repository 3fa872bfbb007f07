// Package config loads job configuration from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds everything the actions need from the environment.
type Config struct {
	GCBADSecretsDir   string `yaml:"gcbad_secrets_dir"`
	GSheetsSecretsDir string `yaml:"gsheets_secrets_dir"`
	DataDir           string `yaml:"data_dir"`

	AccountID     string `yaml:"account_id"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetRange    string `yaml:"sheet_range"`

	BalanceTypePreference []string `yaml:"balance_type_preference"`

	BaseURL         string `yaml:"base_url"`
	RedisURL        string `yaml:"redis_url"`
	TokenCacheKey   string `yaml:"token_cache_key"`
	MetricsTextfile string `yaml:"metrics_textfile"`
	HistoryDisabled bool   `yaml:"history_disabled"`
	LogLevel        string `yaml:"log_level"`
}

// Defaults match the container's mount points.
const (
	DefaultGCBADSecretsDir   = "/secrets/gcbad"
	DefaultGSheetsSecretsDir = "/secrets/gsheets"
	DefaultDataDir           = "/data"

	TokenCacheFile = "gcbad_token_cache.json"
	HistoryFile    = "history.db"
)

// DefaultBalanceTypePreference is the order used to pick a balance when none is configured.
var DefaultBalanceTypePreference = []string{
	"closingBooked", "closingAvailable", "interimBooked", "interimAvailable", "expected",
}

// Environment variable names.
const (
	EnvGCBADSecretsDir   = "GCBAD_SECRETS_DIR"
	EnvGSheetsSecretsDir = "GSHEETS_SECRETS_DIR"
	EnvDataDir           = "DATA_DIR"
	EnvAccountID         = "GC_ACCOUNT_ID"
	EnvSpreadsheetID     = "GSHEET_ID"
	EnvSheetRange        = "GSHEET_RANGE"
	EnvBalancePreference = "BALANCE_TYPE_PREFERENCE"
	EnvBaseURL           = "GCBAD_BASE_URL"
	EnvRedisURL          = "REDIS_URL"
	EnvTokenCacheKey     = "TOKEN_CACHE_KEY"
	EnvMetricsTextfile   = "METRICS_TEXTFILE"
	EnvHistoryDisabled   = "HISTORY_DISABLED"
	EnvLogLevel          = "LOG_LEVEL"
)

// DefaultLogLevel keeps stderr quiet unless something fails.
const DefaultLogLevel = "error"

// ErrMissingSetting is returned by RequireRunTarget when a variable is unset.
var ErrMissingSetting = errors.New("missing env")

// Default returns a config populated with defaults only.
func Default() *Config {
	return &Config{
		GCBADSecretsDir:       DefaultGCBADSecretsDir,
		GSheetsSecretsDir:     DefaultGSheetsSecretsDir,
		DataDir:               DefaultDataDir,
		BalanceTypePreference: append([]string(nil), DefaultBalanceTypePreference...),
		LogLevel:              DefaultLogLevel,
	}
}

// Load builds the config from defaults, the YAML file at FilePath, and the environment.
func Load() (*Config, error) {
	return LoadFrom(FilePath(), os.LookupEnv)
}

// LoadFrom is Load with an explicit file path and environment lookup.
func LoadFrom(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvGCBADSecretsDir, &c.GCBADSecretsDir)
	str(EnvGSheetsSecretsDir, &c.GSheetsSecretsDir)
	str(EnvDataDir, &c.DataDir)
	str(EnvAccountID, &c.AccountID)
	str(EnvSpreadsheetID, &c.SpreadsheetID)
	str(EnvSheetRange, &c.SheetRange)
	str(EnvBaseURL, &c.BaseURL)
	str(EnvRedisURL, &c.RedisURL)
	str(EnvTokenCacheKey, &c.TokenCacheKey)
	str(EnvMetricsTextfile, &c.MetricsTextfile)
	str(EnvLogLevel, &c.LogLevel)

	if v, ok := lookup(EnvBalancePreference); ok && v != "" {
		// Only separators means no preference: the first balance wins.
		c.BalanceTypePreference = append([]string{}, ParsePreference(v)...)
	}
	if v, ok := lookup(EnvHistoryDisabled); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvHistoryDisabled, err)
		}
		c.HistoryDisabled = b
	}
	return nil
}

func (c *Config) normalize() {
	c.GCBADSecretsDir = ExpandTilde(c.GCBADSecretsDir)
	c.GSheetsSecretsDir = ExpandTilde(c.GSheetsSecretsDir)
	c.DataDir = ExpandTilde(c.DataDir)
	if c.MetricsTextfile != "" {
		c.MetricsTextfile = ExpandTilde(c.MetricsTextfile)
	}
	if c.BalanceTypePreference == nil {
		c.BalanceTypePreference = append([]string(nil), DefaultBalanceTypePreference...)
	}
}

// ParsePreference splits a comma-separated list, trimming blanks and dropping empties.
func ParsePreference(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TokenCachePath returns the path of the file-backed refresh token cache.
func (c *Config) TokenCachePath() string {
	return filepath.Join(c.DataDir, TokenCacheFile)
}

// HistoryPath returns the path of the SQLite history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, HistoryFile)
}

// RequireRunTarget checks the settings the run action cannot do without.
func (c *Config) RequireRunTarget() error {
	switch {
	case c.AccountID == "":
		return fmt.Errorf("%w %s", ErrMissingSetting, EnvAccountID)
	case c.SpreadsheetID == "":
		return fmt.Errorf("%w %s", ErrMissingSetting, EnvSpreadsheetID)
	case c.SheetRange == "":
		return fmt.Errorf("%w %s", ErrMissingSetting, EnvSheetRange)
	}
	return nil
}

// CacheKey decodes TokenCacheKey. It returns nil when no key is configured.
func (c *Config) CacheKey() ([]byte, error) {
	if c.TokenCacheKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.TokenCacheKey))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", EnvTokenCacheKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", EnvTokenCacheKey, len(key))
	}
	return key, nil
}
