package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout of an optional config file. All fields
// are optional; anything left unset falls through to defaults, and any
// environment variable set at process start overrides the file value.
type fileConfig struct {
	Graphiti struct {
		URL      string `yaml:"url"`
		MaxNodes int    `yaml:"max_nodes"`
		MaxFacts int    `yaml:"max_facts"`
	} `yaml:"graphiti"`
	Letta struct {
		BaseURL  string `yaml:"base_url"`
		Password string `yaml:"password"`
	} `yaml:"letta"`
	Matrix struct {
		ClientURL string `yaml:"client_url"`
	} `yaml:"matrix"`
	Registry struct {
		URL       string  `yaml:"url"`
		MaxAgents int     `yaml:"max_agents"`
		MinScore  float64 `yaml:"min_score"`
	} `yaml:"agent_registry"`
	Tools struct {
		URL      string  `yaml:"url"`
		Limit    int     `yaml:"limit"`
		MinScore float64 `yaml:"min_score"`
	} `yaml:"tool_attachment"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// loadFile reads the YAML config file at path, expands {{.VAR}} environment
// references, and copies set fields into cfg.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigFileNotFound, path, err)
	}

	data = ExpandEnv(data)

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigFileInvalid, path, err)
	}

	applyString(&cfg.GraphitiURL, fc.Graphiti.URL)
	applyInt(&cfg.MaxNodes, fc.Graphiti.MaxNodes)
	applyInt(&cfg.MaxFacts, fc.Graphiti.MaxFacts)
	applyString(&cfg.LettaBaseURL, fc.Letta.BaseURL)
	applyString(&cfg.LettaPassword, fc.Letta.Password)
	applyString(&cfg.MatrixClientURL, fc.Matrix.ClientURL)
	applyString(&cfg.AgentRegistryURL, fc.Registry.URL)
	applyInt(&cfg.RegistryMaxAgents, fc.Registry.MaxAgents)
	applyFloat(&cfg.RegistryMinScore, fc.Registry.MinScore)
	applyString(&cfg.ToolAttachURL, fc.Tools.URL)
	applyInt(&cfg.ToolAttachLimit, fc.Tools.Limit)
	applyFloat(&cfg.ToolAttachMinScore, fc.Tools.MinScore)
	applyString(&cfg.HTTPPort, fc.Server.Port)

	return nil
}

func applyString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func applyInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func applyFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
