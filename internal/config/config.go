// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the MedExa gateway.
// It handles loading and parsing the YAML configuration file and provides
// structured access to server settings, the ordered provider list, the
// retrieval endpoint, session history storage, and the emergency gate.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAttemptTimeout is applied to providers without an explicit timeout.
const DefaultAttemptTimeout = 60 * time.Second

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Empty binds all interfaces; use "127.0.0.1" for local-only access.
	Host string `yaml:"host"`

	// Port is the network port on which the API server will listen.
	Port int `yaml:"port"`

	// Debug enables debug-level logging and gin debug mode.
	Debug bool `yaml:"debug"`

	// LoggingToFile controls whether logs go to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// LogsDir is the directory for rotating log files when LoggingToFile is set.
	LogsDir string `yaml:"logs-dir"`

	// Providers is the ordered list of LLM endpoints. Order matters only as a
	// tiebreaker; Priority decides the fallback sequence.
	Providers []ProviderConfig `yaml:"providers"`

	// Retrieval configures the external vector-search collaborator.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// History configures session chat history storage.
	History HistoryConfig `yaml:"history"`

	// Emergency configures the keyword gate.
	Emergency EmergencyConfig `yaml:"emergency"`

	// Heartbeat configures background provider availability checks.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
}

// Provider adapter types.
const (
	ProviderTypeOpenAICompat = "openai-compat"
	ProviderTypeOllama       = "ollama"
)

// ProviderConfig describes one configured LLM endpoint.
type ProviderConfig struct {
	// Name uniquely identifies the provider in logs, stats, and results.
	Name string `yaml:"name"`

	// Type selects the adapter: "openai-compat" or "ollama".
	Type string `yaml:"type"`

	// BaseURL is the provider API root (e.g. https://openrouter.ai/api/v1).
	BaseURL string `yaml:"base-url"`

	// APIKey is the bearer token. ${VAR} references are expanded from the
	// environment at load time.
	APIKey string `yaml:"api-key"`

	// Model is the upstream model identifier to request.
	Model string `yaml:"model"`

	// Capabilities lists accepted input modalities: "text", "vision".
	Capabilities []string `yaml:"capabilities"`

	// Priority is the fallback rank; lower values are tried first.
	Priority int `yaml:"priority"`

	// Timeout bounds a single attempt against this provider, expressed as a
	// Go duration string (e.g. "45s").
	Timeout string `yaml:"timeout"`

	// Temperature is passed through to the upstream request when > 0.
	Temperature float64 `yaml:"temperature"`
}

// RetrievalConfig points at the external vector-search service.
type RetrievalConfig struct {
	// Enabled toggles retrieval-augmented context for text chat.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the full URL of the search endpoint.
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates against the search service, if required.
	APIKey string `yaml:"api-key"`

	// TopK is the number of passages to request per query.
	TopK int `yaml:"top-k"`

	// Timeout bounds one search call, expressed as a Go duration string.
	Timeout string `yaml:"timeout"`
}

// HistoryConfig configures the SQLite-backed session history store.
type HistoryConfig struct {
	// DBPath is the SQLite database file path.
	DBPath string `yaml:"db-path"`

	// MaxMessages is the per-session window of retained turns.
	MaxMessages int `yaml:"max-messages"`

	// TokenBudget caps the token count of the history window; 0 disables.
	TokenBudget int `yaml:"token-budget"`
}

// EmergencyConfig configures the keyword gate.
type EmergencyConfig struct {
	// Keywords is the phrase list that trips the gate. Empty uses defaults.
	Keywords []string `yaml:"keywords"`

	// KeywordsFile optionally points at a newline-separated phrase file which
	// is watched and reloaded on change.
	KeywordsFile string `yaml:"keywords-file"`
}

// HeartbeatConfig configures background provider availability checks.
type HeartbeatConfig struct {
	// Enabled toggles the monitor.
	Enabled bool `yaml:"enabled"`

	// Interval is the time between check cycles, as a Go duration string.
	Interval string `yaml:"interval"`

	// Timeout bounds a single provider check, as a Go duration string.
	Timeout string `yaml:"timeout"`
}

// Load reads, expands, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, expands ${VAR} environment
// references, applies defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.expandEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandEnv() {
	for i := range c.Providers {
		c.Providers[i].APIKey = os.ExpandEnv(c.Providers[i].APIKey)
		c.Providers[i].BaseURL = os.ExpandEnv(c.Providers[i].BaseURL)
	}
	c.Retrieval.APIKey = os.ExpandEnv(c.Retrieval.APIKey)
	c.Retrieval.Endpoint = os.ExpandEnv(c.Retrieval.Endpoint)
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogsDir == "" {
		c.LogsDir = "logs"
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Type == "" {
			p.Type = ProviderTypeOpenAICompat
		}
		if len(p.Capabilities) == 0 {
			p.Capabilities = []string{"text"}
		}
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.History.DBPath == "" {
		c.History.DBPath = "medexa-history.db"
	}
	if c.History.MaxMessages <= 0 {
		c.History.MaxMessages = 6
	}
}

// Validate checks the configuration for fatal inconsistencies.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	seen := make(map[string]struct{}, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("provider %q: duplicate name", p.Name)
		}
		seen[p.Name] = struct{}{}
		switch p.Type {
		case ProviderTypeOpenAICompat, ProviderTypeOllama:
		default:
			return fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
		}
		if strings.TrimSpace(p.BaseURL) == "" {
			return fmt.Errorf("provider %q: base-url is required", p.Name)
		}
		if strings.TrimSpace(p.Model) == "" {
			return fmt.Errorf("provider %q: model is required", p.Name)
		}
		for _, capName := range p.Capabilities {
			switch strings.ToLower(strings.TrimSpace(capName)) {
			case "text", "vision":
			default:
				return fmt.Errorf("provider %q: unknown capability %q", p.Name, capName)
			}
		}
	}
	if c.Retrieval.Enabled && strings.TrimSpace(c.Retrieval.Endpoint) == "" {
		return fmt.Errorf("retrieval enabled but endpoint is empty")
	}
	for i := range c.Providers {
		if err := validDuration(c.Providers[i].Timeout); err != nil {
			return fmt.Errorf("provider %q: timeout: %w", c.Providers[i].Name, err)
		}
	}
	if err := validDuration(c.Retrieval.Timeout); err != nil {
		return fmt.Errorf("retrieval: timeout: %w", err)
	}
	if err := validDuration(c.Heartbeat.Interval); err != nil {
		return fmt.Errorf("heartbeat: interval: %w", err)
	}
	if err := validDuration(c.Heartbeat.Timeout); err != nil {
		return fmt.Errorf("heartbeat: timeout: %w", err)
	}
	return nil
}

func validDuration(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return err
	}
	return nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// AttemptTimeout returns the per-attempt timeout for this provider.
func (p *ProviderConfig) AttemptTimeout() time.Duration {
	return parseDuration(p.Timeout, DefaultAttemptTimeout)
}

// SearchTimeout returns the timeout for one retrieval call.
func (r *RetrievalConfig) SearchTimeout() time.Duration {
	return parseDuration(r.Timeout, 10*time.Second)
}

// CheckInterval returns the time between heartbeat cycles.
func (h *HeartbeatConfig) CheckInterval() time.Duration {
	return parseDuration(h.Interval, 5*time.Minute)
}

// CheckTimeout returns the bound on a single provider check.
func (h *HeartbeatConfig) CheckTimeout() time.Duration {
	return parseDuration(h.Timeout, 10*time.Second)
}
