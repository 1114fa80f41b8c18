// Package provider constructs a model.Model from a provider name.
package provider

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/model/anthropic"
	"github.com/hupe1980/decalflow/model/gemini"
	"github.com/hupe1980/decalflow/model/openai"
)

// Config selects and authenticates a backend.
type Config struct {
	// Provider is one of gemini (alias google), openai, anthropic (alias
	// claude) or mock.
	Provider string
	// Model overrides the provider's default model id.
	Model  string
	APIKey string
}

// New returns the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config) (model.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "google", "":
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case "anthropic", "claude":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		}), nil
	case "mock":
		name := cfg.Model
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, "mock"), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
