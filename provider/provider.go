// Package provider implements machine translation backends.
package provider

import (
	"fmt"

	"github.com/ZaguanLabs/gotlm"
)

// Config selects a backend by name.
type Config struct {
	Name    string // "openai" or "mock"
	APIKey  string
	Model   string
	BaseURL string
}

// New returns the backend named by cfg.Name.
func New(cfg Config) (gotlm.MachineTranslator, error) {
	switch cfg.Name {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider: API key is required")
		}
		return NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown machine translation provider %q", cfg.Name)
	}
}
