package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "simple substitution with {{.VAR}}",
			input: "password: {{.LETTA_PASSWORD}}",
			env:   map[string]string{"LETTA_PASSWORD": "secret123"},
			want:  "password: secret123",
		},
		{
			name:  "literal ${VAR} is NOT expanded (no collision)",
			input: "pattern: ${AGENT_ID}",
			env:   map[string]string{"AGENT_ID": "agent-1"},
			want:  "pattern: ${AGENT_ID}",
		},
		{
			name:  "literal $ in regex preserved",
			input: "pattern: ^agent-.*$",
			env:   map[string]string{},
			want:  "pattern: ^agent-.*$",
		},
		{
			name:  "multiple substitutions in one line",
			input: "url: {{.PROTOCOL}}://{{.HOST}}:{{.PORT}}",
			env: map[string]string{
				"PROTOCOL": "http",
				"HOST":     "graphiti",
				"PORT":     "8000",
			},
			want: "url: http://graphiti:8000",
		},
		{
			name:  "missing variable expands to empty",
			input: "url: {{.MISSING_VAR}}",
			env:   map[string]string{},
			want:  "url: ",
		},
		{
			name:  "special characters in expanded value",
			input: "password: {{.LETTA_PASSWORD}}",
			env:   map[string]string{"LETTA_PASSWORD": "p@ssw0rd!#$%"},
			want:  "password: p@ssw0rd!#$%",
		},
		{
			name:  "literal dollar in password preserved",
			input: "password: p@ss$word",
			env:   map[string]string{},
			want:  "password: p@ss$word",
		},
		{
			name: "nested YAML structure",
			input: `letta:
  base_url: {{.LETTA_BASE_URL}}
  password: {{.LETTA_PASSWORD}}`,
			env: map[string]string{
				"LETTA_BASE_URL": "http://letta:8283/v1",
				"LETTA_PASSWORD": "secret",
			},
			want: `letta:
  base_url: http://letta:8283/v1
  password: secret`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			result := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(result))
		})
	}
}

func TestExpandEnvMalformedTemplates(t *testing.T) {
	// Malformed template syntax passes through unchanged so the YAML parser
	// can report a clearer error.
	tests := []string{
		"password: {{.LETTA_PASSWORD",
		"password: {{",
		"password: {{.LETTA_PASSWORD}",
		"password: {{LETTA_PASSWORD}}",
		"password: {{.LETTA PASSWORD}}",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			t.Setenv("LETTA_PASSWORD", "should-not-appear")

			result := ExpandEnv([]byte(input))
			assert.Equal(t, input, string(result))
			assert.NotContains(t, string(result), "should-not-appear")
		})
	}
}

func TestExpandEnvPassThroughToYAMLParser(t *testing.T) {
	t.Run("malformed template in quoted string still parses", func(t *testing.T) {
		input := `
graphiti:
  url: "{{.GRAPHITI_URL"
server:
  port: "8080"
`
		var result map[string]any
		err := yaml.Unmarshal(ExpandEnv([]byte(input)), &result)
		assert.NoError(t, err)
	})

	t.Run("content without variables is unchanged", func(t *testing.T) {
		input := `
# static config
graphiti:
  url: http://graphiti:8000
`
		result := ExpandEnv([]byte(input))
		assert.Equal(t, input, string(result))
	})
}
