// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/lumenarc/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete LumenArc configuration.
type Config struct {
	Provider    ProviderConfig    `toml:"provider" yaml:"provider" json:"provider" envPrefix:"PROVIDER_"`
	Storage     StorageConfig     `toml:"storage" yaml:"storage" json:"storage" envPrefix:"STORAGE_"`
	Attachments AttachmentsConfig `toml:"attachments" yaml:"attachments" json:"attachments" envPrefix:"ATTACHMENTS_"`
	UI          UIConfig          `toml:"ui" yaml:"ui" json:"ui" envPrefix:"UI_"`
	Log         LogConfig         `toml:"log" yaml:"log" json:"log" envPrefix:"LOG_"`
}

// ProviderConfig selects and configures the completion provider.
type ProviderConfig struct {
	// Name is "gemini", "openai" or "ollama".
	Name    string `toml:"name" yaml:"name" json:"name" env:"NAME"`
	APIKey  string `toml:"api_key" yaml:"api_key" json:"api_key" env:"API_KEY"`
	BaseURL string `toml:"base_url" yaml:"base_url" json:"base_url" env:"BASE_URL"`

	// FlashModel serves baseline turns, ProModel extended-reasoning turns.
	// Empty means the provider's default.
	FlashModel string `toml:"flash_model" yaml:"flash_model" json:"flash_model" env:"FLASH_MODEL"`
	ProModel   string `toml:"pro_model" yaml:"pro_model" json:"pro_model" env:"PRO_MODEL"`

	ThinkingBudget int `toml:"thinking_budget" yaml:"thinking_budget" json:"thinking_budget" env:"THINKING_BUDGET"`

	// RequestsPerMinute paces outgoing requests. 0 disables pacing.
	RequestsPerMinute int `toml:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
}

// StorageConfig controls where settings and conversations live.
type StorageConfig struct {
	// Backend is "bolt", "sqlite" or "memory".
	Backend string `toml:"backend" yaml:"backend" json:"backend" env:"BACKEND"`
	// Path is the database file. Empty means <config dir>/lumenarc.db.
	Path string `toml:"path" yaml:"path" json:"path" env:"PATH"`
	// PersistConversations keeps conversations across restarts.
	PersistConversations bool `toml:"persist_conversations" yaml:"persist_conversations" json:"persist_conversations" env:"PERSIST_CONVERSATIONS"`
}

// AttachmentsConfig limits image uploads.
type AttachmentsConfig struct {
	MaxBytes int64 `toml:"max_bytes" yaml:"max_bytes" json:"max_bytes" env:"MAX_BYTES"`
}

// UIConfig holds terminal presentation settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme          string `toml:"theme" yaml:"theme" json:"theme" env:"THEME"`
	RenderMarkdown bool   `toml:"render_markdown" yaml:"render_markdown" json:"render_markdown" env:"RENDER_MARKDOWN"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `toml:"level" yaml:"level" json:"level" env:"LEVEL"`
	// File receives logs in TUI mode. Empty means <config dir>/lumenarc.log.
	File string `toml:"file" yaml:"file" json:"file" env:"FILE"`
}

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Default limits.
const (
	DefaultThinkingBudget     = 32768
	DefaultAttachmentMaxBytes = 20 << 20
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:           ProviderGemini,
			ThinkingBudget: DefaultThinkingBudget,
		},
		Storage: StorageConfig{
			Backend: "bolt",
		},
		Attachments: AttachmentsConfig{
			MaxBytes: DefaultAttachmentMaxBytes,
		},
		UI: UIConfig{
			Theme:          "auto",
			RenderMarkdown: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the LumenArc directory, $LUMENARC_HOME or ~/.lumenarc.
func ConfigDir() (string, error) {
	if dir := os.Getenv("LUMENARC_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lumenarc"), nil
}

// ConfigPaths returns the candidate config files in load order.
func ConfigPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.json"),
	}, nil
}

// ConfigPathTOML returns the path written by Save.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// StoragePath returns the configured database path or the default one.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lumenarc.db"), nil
}

// LogPath returns the configured log file or the default one.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lumenarc.log"), nil
}

// ensureSecurePermissions tightens a config file to 0600; it may hold an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first config file that exists (TOML, then YAML, then JSON),
// applies environment overrides and validates the result. With no file the
// defaults are used. It also returns the path it loaded, if any.
func Load() (*Config, string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return nil, "", err
	}
	for _, path := range paths {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// LoadFromPath loads one file, choosing the decoder by extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := ensureSecurePermissions(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		// Not fatal; some filesystems ignore chmod.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := Decode(cfg, filepath.Ext(path), data); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses data in the format named by ext (".toml", ".yaml", ".yml"
// or ".json") over cfg. Keys absent from data keep their current values.
func Decode(cfg *Config, ext string, data []byte) error {
	switch strings.ToLower(ext) {
	case ".toml", "":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

// finish applies env overrides, fills defaults and validates.
func (c *Config) finish() error {
	if err := c.ApplyEnvOverrides(); err != nil {
		return err
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyEnvOverrides reads LUMENARC_* variables over the loaded values, e.g.
// LUMENARC_PROVIDER_NAME or LUMENARC_STORAGE_BACKEND. When no API key is set
// anywhere, GEMINI_API_KEY or OPENAI_API_KEY is used for the matching
// provider.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: "LUMENARC_"}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	if c.Provider.APIKey == "" {
		switch c.Provider.Name {
		case ProviderGemini:
			c.Provider.APIKey = os.Getenv("GEMINI_API_KEY")
		case ProviderOpenAI:
			c.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return nil
}

// SetDefaults fills zero values that have a non-zero default.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Provider.Name == "" {
		c.Provider.Name = d.Provider.Name
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	if c.Provider.ThinkingBudget == 0 {
		c.Provider.ThinkingBudget = d.Provider.ThinkingBudget
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Attachments.MaxBytes == 0 {
		c.Attachments.MaxBytes = d.Attachments.MaxBytes
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# LumenArc configuration file\n")
	b.WriteString("# Environment variables named LUMENARC_<SECTION>_<KEY> override these values.\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(field, format string, args ...any) {
		result = multierror.Append(result, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Provider.Name {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		add("provider.name", "must be one of gemini, openai, ollama (got %q)", c.Provider.Name)
	}
	if c.Provider.ThinkingBudget < 0 {
		add("provider.thinking_budget", "must not be negative")
	}
	if c.Provider.RequestsPerMinute < 0 {
		add("provider.requests_per_minute", "must not be negative")
	}
	if c.Provider.BaseURL != "" && !strings.HasPrefix(c.Provider.BaseURL, "http://") && !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		add("provider.base_url", "must be an http or https URL")
	}

	switch c.Storage.Backend {
	case "bolt", "sqlite", "memory":
	default:
		add("storage.backend", "must be one of bolt, sqlite, memory (got %q)", c.Storage.Backend)
	}

	if c.Attachments.MaxBytes < 0 {
		add("attachments.max_bytes", "must not be negative")
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "must be one of auto, dark, light (got %q)", c.UI.Theme)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log.level", "must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}

	return result.ErrorOrNil()
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get returns a value by dotted key, e.g. "provider.flash_model".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by dotted key. String values are converted to the
// field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a field", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds a struct field by its toml tag.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %w", err)
			}
			field.SetBool(b)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Clone returns a copy. Config holds no reference types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as TOML with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process configuration, loading it on first use. A load
// failure falls back to defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, _, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process configuration.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the process configuration.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
