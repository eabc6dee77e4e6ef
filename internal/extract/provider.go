package extract

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docextract/internal/config"
	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/pkg/anthropic"
	"github.com/sells-group/docextract/pkg/docapi"
	"github.com/sells-group/docextract/pkg/gemini"
)

// Request is one remote extraction call. Data is the base64-encoded file.
type Request struct {
	Provider model.ProviderID
	APIKey   string
	FileName string
	MIMEType string
	Data     string
}

// Provider performs a single remote extraction attempt. Errors should be
// *ProviderFailure; the gateway wraps anything else.
type Provider interface {
	Extract(ctx context.Context, req Request) (model.RawFieldMap, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (model.RawFieldMap, error)

// Extract calls f.
func (f ProviderFunc) Extract(ctx context.Context, req Request) (model.RawFieldMap, error) {
	return f(ctx, req)
}

// NewProviders builds the provider adapters for the configured mode.
func NewProviders(cfg *config.Config) (map[model.ProviderID]Provider, error) {
	switch cfg.Extraction.Mode {
	case config.ModeDirect, "":
		return map[model.ProviderID]Provider{
			model.ProviderClaude: NewClaudeProvider(func(apiKey string) anthropic.Client {
				return anthropic.NewClient(apiKey, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
			}, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens),
			model.ProviderGemini: NewGeminiProvider(func(apiKey string) gemini.Client {
				return gemini.NewClient(apiKey,
					gemini.WithBaseURL(cfg.Gemini.BaseURL),
					gemini.WithModel(cfg.Gemini.Model))
			}),
		}, nil
	case config.ModeBackend:
		if cfg.Backend.BaseURL == "" {
			return nil, eris.New("extract: backend mode requires backend.base_url")
		}
		backend := NewBackendProvider(docapi.NewClient(cfg.Backend.BaseURL))
		return map[model.ProviderID]Provider{
			model.ProviderClaude: backend,
			model.ProviderGemini: backend,
		}, nil
	default:
		return nil, eris.Errorf("extract: unknown mode %q", cfg.Extraction.Mode)
	}
}
