// Package config loads and validates the enricher's configuration.
//
// Configuration comes from environment variables, optionally seeded by a YAML
// file (CONFIG_FILE). Environment variables always win over file values so
// container deployments can override a baked-in config.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Default values applied when neither the environment nor the config file
// provides a setting.
const (
	DefaultMaxNodes = 8
	DefaultMaxFacts = 20

	DefaultRegistryMaxAgents = 10
	DefaultRegistryMinScore  = 0.3

	DefaultToolAttachLimit    = 3
	DefaultToolAttachMinScore = 70.0

	DefaultHTTPPort = "8080"
)

// Config is the umbrella configuration object for the enricher service.
// It is built once at startup by Load and treated as read-only afterwards.
type Config struct {
	// Graphiti knowledge-graph service.
	GraphitiURL string
	MaxNodes    int
	MaxFacts    int

	// Letta agent runtime.
	LettaBaseURL  string
	LettaPassword string

	// Matrix chat-bridge notifier. Empty disables notifications.
	MatrixClientURL string

	// Agent registry semantic search. Empty disables agent discovery.
	AgentRegistryURL  string
	RegistryMaxAgents int
	RegistryMinScore  float64

	// Tool attachment service. Empty disables tool attachment.
	ToolAttachURL      string
	ToolAttachLimit    int
	ToolAttachMinScore float64

	// HTTP server.
	HTTPPort string
}

// Load builds the configuration from the process environment, optionally
// seeded by the YAML file named in CONFIG_FILE. Returns a *ValidationError
// when a required setting is missing or malformed; the caller is expected to
// refuse to serve.
func Load() (*Config, error) {
	cfg := &Config{
		MaxNodes:           DefaultMaxNodes,
		MaxFacts:           DefaultMaxFacts,
		RegistryMaxAgents:  DefaultRegistryMaxAgents,
		RegistryMinScore:   DefaultRegistryMinScore,
		ToolAttachLimit:    DefaultToolAttachLimit,
		ToolAttachMinScore: DefaultToolAttachMinScore,
		HTTPPort:           DefaultHTTPPort,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	setString(&cfg.GraphitiURL, "GRAPHITI_URL")
	setString(&cfg.LettaBaseURL, "LETTA_BASE_URL")
	setString(&cfg.LettaPassword, "LETTA_PASSWORD")
	setString(&cfg.MatrixClientURL, "MATRIX_CLIENT_URL")
	setString(&cfg.AgentRegistryURL, "AGENT_REGISTRY_URL")
	setString(&cfg.ToolAttachURL, "TOOL_ATTACHMENT_URL")
	setString(&cfg.HTTPPort, "HTTP_PORT")

	var err error
	if err = setInt(&cfg.MaxNodes, "GRAPHITI_MAX_NODES"); err != nil {
		return nil, err
	}
	if err = setInt(&cfg.MaxFacts, "GRAPHITI_MAX_FACTS"); err != nil {
		return nil, err
	}
	if err = setInt(&cfg.RegistryMaxAgents, "AGENT_REGISTRY_MAX_AGENTS"); err != nil {
		return nil, err
	}
	if err = setFloat(&cfg.RegistryMinScore, "AGENT_REGISTRY_MIN_SCORE"); err != nil {
		return nil, err
	}
	if err = setInt(&cfg.ToolAttachLimit, "TOOL_ATTACHMENT_LIMIT"); err != nil {
		return nil, err
	}
	if err = setFloat(&cfg.ToolAttachMinScore, "TOOL_ATTACHMENT_MIN_SCORE"); err != nil {
		return nil, err
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and URL shapes. Called by Load; exposed
// separately so tests can validate hand-built configs.
func (c *Config) Validate() error {
	if c.GraphitiURL == "" {
		return NewValidationError("graphiti", "GRAPHITI_URL", ErrMissingRequiredField)
	}
	urls := map[string]string{
		"GRAPHITI_URL":        c.GraphitiURL,
		"LETTA_BASE_URL":      c.LettaBaseURL,
		"MATRIX_CLIENT_URL":   c.MatrixClientURL,
		"AGENT_REGISTRY_URL":  c.AgentRegistryURL,
		"TOOL_ATTACHMENT_URL": c.ToolAttachURL,
	}
	for field, raw := range urls {
		if raw == "" {
			continue
		}
		if err := validateAbsoluteURL(raw); err != nil {
			return NewValidationError("url", field, err)
		}
	}
	if c.MaxNodes < 1 {
		return NewValidationError("graphiti", "GRAPHITI_MAX_NODES", ErrInvalidValue)
	}
	if c.MaxFacts < 1 {
		return NewValidationError("graphiti", "GRAPHITI_MAX_FACTS", ErrInvalidValue)
	}
	if c.RegistryMaxAgents < 1 {
		return NewValidationError("registry", "AGENT_REGISTRY_MAX_AGENTS", ErrInvalidValue)
	}
	if c.RegistryMinScore < 0 || c.RegistryMinScore > 1 {
		return NewValidationError("registry", "AGENT_REGISTRY_MIN_SCORE", ErrInvalidValue)
	}
	if c.ToolAttachLimit < 1 {
		return NewValidationError("tools", "TOOL_ATTACHMENT_LIMIT", ErrInvalidValue)
	}
	return nil
}

// validateAbsoluteURL rejects relative or schemeless URLs so an empty or
// partial base never gets stringified into request paths downstream.
func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: URL must be absolute", ErrInvalidValue)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return NewValidationError("env", key, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, v))
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return NewValidationError("env", key, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v))
	}
	*dst = f
	return nil
}
