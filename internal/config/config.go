// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for glyphbreaker.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ritvikindupuri/GlyphBreaker/internal/cache"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
	"github.com/ritvikindupuri/GlyphBreaker/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete glyphbreaker configuration.
type Config struct {
	LLM       LLMConfig       `toml:"llm" json:"llm"`
	Gemini    GeminiConfig    `toml:"gemini" json:"gemini"`
	OpenAI    OpenAIConfig    `toml:"openai" json:"openai"`
	Ollama    OllamaConfig    `toml:"ollama" json:"ollama"`
	Cache     CacheConfig     `toml:"cache" json:"cache"`
	Network   NetworkConfig   `toml:"network" json:"network"`
	Templates TemplatesConfig `toml:"templates" json:"templates"`
	Sessions  SessionsConfig  `toml:"sessions" json:"sessions"`
}

// LLMConfig holds the settings new sessions start with.
type LLMConfig struct {
	Provider    string  `toml:"provider" json:"provider"`
	Model       string  `toml:"model" json:"model"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	TopP        float64 `toml:"top_p" json:"top_p"`
	// TopK of 0 leaves top-k unset.
	TopK int `toml:"top_k" json:"top_k"`
}

// GeminiConfig configures the Gemini adapter and the analysis features.
type GeminiConfig struct {
	APIKey        string `toml:"api_key" json:"api_key"`
	BaseURL       string `toml:"base_url" json:"base_url"`
	AnalysisModel string `toml:"analysis_model" json:"analysis_model"`
}

// OpenAIConfig configures the OpenAI adapter.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key" json:"api_key"`
	BaseURL string `toml:"base_url" json:"base_url"`
}

// OllamaConfig configures the Ollama adapter.
type OllamaConfig struct {
	URL string `toml:"url" json:"url"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Backend is one of memory, file, sqlite.
	Backend string `toml:"backend" json:"backend"`
	// Path is the file or database location (empty = under ConfigDir).
	Path            string `toml:"path" json:"path"`
	TTLHours        int    `toml:"ttl_hours" json:"ttl_hours"`
	MaxEntries      int    `toml:"max_entries" json:"max_entries"`
	ReplayChunkSize int    `toml:"replay_chunk_size" json:"replay_chunk_size"`
	ReplayDelayMs   int    `toml:"replay_delay_ms" json:"replay_delay_ms"`
}

// NetworkConfig bounds provider requests.
type NetworkConfig struct {
	ConnectTimeoutSeconds int `toml:"connect_timeout_seconds" json:"connect_timeout_seconds"`
	HeaderTimeoutSeconds  int `toml:"header_timeout_seconds" json:"header_timeout_seconds"`
	// StreamTimeoutSeconds of 0 means a stream has no deadline.
	StreamTimeoutSeconds int `toml:"stream_timeout_seconds" json:"stream_timeout_seconds"`
}

// TemplatesConfig locates custom attack templates.
type TemplatesConfig struct {
	Dir string `toml:"dir" json:"dir"`
}

// SessionsConfig locates persisted sessions.
type SessionsConfig struct {
	Dir        string `toml:"dir" json:"dir"`
	MaxHistory int    `toml:"max_history" json:"max_history"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a new Config with sensible default values.
func Default() *Config {
	llm := model.DefaultLlmConfig()
	topK := 0
	if llm.TopK != nil {
		topK = *llm.TopK
	}

	return &Config{
		LLM: LLMConfig{
			Provider:    llm.Provider.String(),
			Model:       llm.Model,
			Temperature: llm.Temperature,
			TopP:        llm.TopP,
			TopK:        topK,
		},
		Gemini: GeminiConfig{
			AnalysisModel: "gemini-2.5-flash",
		},
		Ollama: OllamaConfig{
			URL: model.DefaultOllamaURL,
		},
		Cache: CacheConfig{
			Enabled:         true,
			Backend:         cache.BackendSQLite,
			TTLHours:        24,
			MaxEntries:      1000,
			ReplayChunkSize: 30,
			ReplayDelayMs:   2,
		},
		Network: NetworkConfig{
			ConnectTimeoutSeconds: 10,
			HeaderTimeoutSeconds:  60,
			StreamTimeoutSeconds:  0,
		},
		Sessions: SessionsConfig{
			MaxHistory: 100,
		},
	}
}

// =============================================================================
// CONFIG PATHS
// =============================================================================

// ConfigDir returns the glyphbreaker configuration directory (~/.glyphbreaker).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".glyphbreaker"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens a config file to 0600 since it may hold
// API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads .env, then ~/.glyphbreaker/config.toml if present, then
// applies environment overrides and validates the result.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path. A missing file yields
// the defaults.
func LoadFrom(path string) (*Config, error) {
	LoadDotEnv()

	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv loads a .env file from the working directory into the process
// environment. Variables already set win. A missing file is not an error.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Model == "" {
		if p := model.Provider(c.LLM.Provider); p.Valid() {
			c.LLM.Model = model.DefaultModel(p)
		}
	}
	if c.Gemini.AnalysisModel == "" {
		c.Gemini.AnalysisModel = defaults.Gemini.AnalysisModel
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = defaults.Ollama.URL
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaults.Cache.Backend
	}
	if c.Cache.ReplayChunkSize == 0 {
		c.Cache.ReplayChunkSize = defaults.Cache.ReplayChunkSize
	}
	if c.Network.ConnectTimeoutSeconds == 0 {
		c.Network.ConnectTimeoutSeconds = defaults.Network.ConnectTimeoutSeconds
	}
	if c.Network.HeaderTimeoutSeconds == 0 {
		c.Network.HeaderTimeoutSeconds = defaults.Network.HeaderTimeoutSeconds
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the config to ~/.glyphbreaker/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions. The write is atomic so
// a crash never leaves a truncated config.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# glyphbreaker configuration file\n")
	buf.WriteString("# Generated by glyphbreaker - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failure found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidationErrors listing
// every problem, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors

	p := model.Provider(c.LLM.Provider)
	if !p.Valid() {
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: gemini, openai, ollama", c.LLM.Provider),
		})
	} else {
		llm := c.LlmConfig()
		if llm.Provider == model.ProviderOllama && llm.Model != "" && !model.IsValidModel(llm.Provider, llm.Model) {
			// Pulled Ollama models are registered at startup, not known here.
			llm.Model = model.DefaultModel(model.ProviderOllama)
		}
		if err := llm.Validate(); err != nil {
			errs = append(errs, ValidationError{Field: "llm", Message: err.Error()})
		}
	}

	if c.Gemini.AnalysisModel != "" && !model.IsValidModel(model.ProviderGemini, c.Gemini.AnalysisModel) {
		errs = append(errs, ValidationError{
			Field:   "gemini.analysis_model",
			Message: fmt.Sprintf("%q is not a gemini model", c.Gemini.AnalysisModel),
		})
	}

	for field, raw := range map[string]string{
		"gemini.base_url": c.Gemini.BaseURL,
		"openai.base_url": c.OpenAI.BaseURL,
		"ollama.url":      c.Ollama.URL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid URL '%s', must be an absolute http(s) URL", raw),
			})
		}
	}

	switch c.Cache.Backend {
	case cache.BackendMemory, cache.BackendFile, cache.BackendSQLite:
	default:
		errs = append(errs, ValidationError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: memory, file, sqlite", c.Cache.Backend),
		})
	}

	for field, n := range map[string]int{
		"cache.ttl_hours":                 c.Cache.TTLHours,
		"cache.max_entries":               c.Cache.MaxEntries,
		"cache.replay_chunk_size":         c.Cache.ReplayChunkSize,
		"cache.replay_delay_ms":           c.Cache.ReplayDelayMs,
		"network.connect_timeout_seconds": c.Network.ConnectTimeoutSeconds,
		"network.header_timeout_seconds":  c.Network.HeaderTimeoutSeconds,
		"network.stream_timeout_seconds":  c.Network.StreamTimeoutSeconds,
		"sessions.max_history":            c.Sessions.MaxHistory,
	} {
		if n < 0 {
			errs = append(errs, ValidationError{Field: field, Message: "cannot be negative"})
		}
	}

	if len(errs) > 0 {
		// Map iteration order is random; keep output stable.
		sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GLYPH_PROVIDER: overrides llm.provider (and resets llm.model unless GLYPH_MODEL is set)
//   - GLYPH_MODEL: overrides llm.model
//   - API_KEY, GEMINI_API_KEY: override gemini.api_key (GEMINI_API_KEY wins)
//   - OPENAI_API_KEY: overrides openai.api_key
//   - OLLAMA_URL: overrides ollama.url
//   - GLYPH_CACHE_ENABLED: "1", "true" or "yes" enables the cache, anything else disables it
//   - GLYPH_CACHE_BACKEND: overrides cache.backend
func (c *Config) ApplyEnvOverrides() {
	if p := os.Getenv("GLYPH_PROVIDER"); p != "" {
		c.LLM.Provider = strings.ToLower(strings.TrimSpace(p))
		if prov := model.Provider(c.LLM.Provider); prov.Valid() {
			c.LLM.Model = model.DefaultModel(prov)
		}
	}
	if m := os.Getenv("GLYPH_MODEL"); m != "" {
		c.LLM.Model = m
	}

	if key := os.Getenv("API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if u := os.Getenv("OLLAMA_URL"); u != "" {
		c.Ollama.URL = u
	}

	if enabled := os.Getenv("GLYPH_CACHE_ENABLED"); enabled != "" {
		c.Cache.Enabled = parseBool(enabled)
	}
	if backend := os.Getenv("GLYPH_CACHE_BACKEND"); backend != "" {
		c.Cache.Backend = strings.ToLower(backend)
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes"
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// LlmConfig returns the session-level LLM settings.
func (c *Config) LlmConfig() model.LlmConfig {
	cfg := model.LlmConfig{
		Provider:    model.Provider(c.LLM.Provider),
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		TopP:        c.LLM.TopP,
	}
	return cfg.WithTopK(c.LLM.TopK)
}

// ApiKeys returns the per-call credentials.
func (c *Config) ApiKeys() model.ApiKeys {
	return model.ApiKeys{OpenAI: c.OpenAI.APIKey, Ollama: c.Ollama.URL}
}

// TransportConfig returns the HTTP limits shared by every adapter.
func (c *Config) TransportConfig() provider.TransportConfig {
	return provider.TransportConfig{
		ConnectTimeout: time.Duration(c.Network.ConnectTimeoutSeconds) * time.Second,
		HeaderTimeout:  time.Duration(c.Network.HeaderTimeoutSeconds) * time.Second,
	}
}

// StreamTimeout returns the end-to-end completion deadline, 0 for none.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.Network.StreamTimeoutSeconds) * time.Second
}

// ReplayDelay returns the pause between replayed cache chunks.
func (c *Config) ReplayDelay() time.Duration {
	return time.Duration(c.Cache.ReplayDelayMs) * time.Millisecond
}

// CacheOptions returns the cache eviction policy.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		TTL:        time.Duration(c.Cache.TTLHours) * time.Hour,
		MaxEntries: c.Cache.MaxEntries,
	}
}

// CachePath returns the cache location, defaulting per backend under
// ConfigDir. Memory needs no path.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" || c.Cache.Backend == cache.BackendMemory {
		return c.Cache.Path, nil
	}
	name := "cache.db"
	if c.Cache.Backend == cache.BackendFile {
		name = "cache.json"
	}
	return underConfigDir(name)
}

// TemplatesDir returns the custom template directory.
func (c *Config) TemplatesDir() (string, error) {
	if c.Templates.Dir != "" {
		return c.Templates.Dir, nil
	}
	return underConfigDir("templates")
}

// SessionsDir returns the session storage directory.
func (c *Config) SessionsDir() (string, error) {
	if c.Sessions.Dir != "" {
		return c.Sessions.Dir, nil
	}
	return underConfigDir("sessions")
}

func underConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "cache.backend").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks a dotted key to a leaf field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}

		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
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

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"llm.provider",
		"llm.model",
		"llm.temperature",
		"llm.top_p",
		"llm.top_k",
		"gemini.api_key",
		"gemini.base_url",
		"gemini.analysis_model",
		"openai.api_key",
		"openai.base_url",
		"ollama.url",
		"cache.enabled",
		"cache.backend",
		"cache.path",
		"cache.ttl_hours",
		"cache.max_entries",
		"cache.replay_chunk_size",
		"cache.replay_delay_ms",
		"network.connect_timeout_seconds",
		"network.header_timeout_seconds",
		"network.stream_timeout_seconds",
		"templates.dir",
		"sessions.dir",
		"sessions.max_history",
	}
}

// IsSecretKey reports whether a dotted key holds a credential.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), "api_key")
}

// Clone creates a copy of the configuration. Config holds no maps or slices
// so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a JSON rendering with API keys redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Gemini.APIKey != "" {
		safe.Gemini.APIKey = "[REDACTED]"
	}
	if safe.OpenAI.APIKey != "" {
		safe.OpenAI.APIKey = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
