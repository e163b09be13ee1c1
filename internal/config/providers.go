package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider kinds understood by the gateway.
const (
	KindOpenAI = "openai"
	KindEcho   = "echo"
)

// ProviderSpec describes one upstream in the provider catalog.
type ProviderSpec struct {
	ID      string `yaml:"id"`
	Kind    string `yaml:"kind"`
	Label   string `yaml:"label"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// ProbeModel, when set, replaces Model for connection checks and
	// single-message tests.
	ProbeModel string `yaml:"probe_model"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

type catalogFile struct {
	Providers []ProviderSpec `yaml:"providers"`
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() []ProviderSpec {
	return []ProviderSpec{
		{
			ID:         "groq",
			Kind:       KindOpenAI,
			Label:      "Groq",
			BaseURL:    "https://api.groq.com/openai/v1",
			Model:      "llama-3.1-70b-versatile",
			ProbeModel: "llama-3.1-8b-instant",
			APIKeyEnv:  "GROQ_API_KEY",
		},
		{
			ID:        "grok",
			Kind:      KindOpenAI,
			Label:     "Grok",
			BaseURL:   "https://api.x.ai/v1",
			Model:     "grok-beta",
			APIKeyEnv: "XAI_API_KEY",
		},
	}
}

// LoadCatalog reads the provider catalog at path, or returns DefaultCatalog
// when path is empty.
func LoadCatalog(path string) ([]ProviderSpec, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse provider catalog %s: %w", path, err)
	}
	if err := validateCatalog(f.Providers); err != nil {
		return nil, fmt.Errorf("provider catalog %s: %w", path, err)
	}
	return f.Providers, nil
}

func validateCatalog(specs []ProviderSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("no providers defined")
	}
	seen := make(map[string]bool, len(specs))
	for i := range specs {
		s := &specs[i]
		if s.ID == "" || s.ID != strings.ToLower(s.ID) {
			return fmt.Errorf("providers[%d]: id must be a non-empty lowercase string", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("providers[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if s.Kind == "" {
			s.Kind = KindOpenAI
		}
		if s.Label == "" {
			s.Label = strings.ToUpper(s.ID[:1]) + s.ID[1:]
		}
		switch s.Kind {
		case KindEcho:
		case KindOpenAI:
			if s.BaseURL == "" || s.Model == "" {
				return fmt.Errorf("provider %q: base_url and model are required", s.ID)
			}
		default:
			return fmt.Errorf("provider %q: unknown kind %q", s.ID, s.Kind)
		}
	}
	return nil
}
