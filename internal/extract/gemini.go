package extract

import (
	"context"
	"errors"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/resilience"
	"github.com/sells-group/docextract/pkg/gemini"
)

// Sampling settings for Gemini extraction.
var (
	geminiTemperature = 0.1
	geminiTopK        = 1
	geminiTopP        = 0.8
)

const geminiMaxOutputTokens = 2048

// GeminiProvider calls the Gemini generateContent API directly.
type GeminiProvider struct {
	newClient func(apiKey string) gemini.Client
}

// NewGeminiProvider creates the adapter.
func NewGeminiProvider(newClient func(apiKey string) gemini.Client) *GeminiProvider {
	return &GeminiProvider{newClient: newClient}
}

// Extract sends the prompt and the file as inline data.
func (p *GeminiProvider) Extract(ctx context.Context, req Request) (model.RawFieldMap, error) {
	resp, err := p.newClient(req.APIKey).GenerateContent(ctx, gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Parts: []gemini.Part{
				{Text: extractionPrompt},
				{InlineData: &gemini.InlineData{MimeType: req.MIMEType, Data: req.Data}},
			},
		}},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     &geminiTemperature,
			TopK:            &geminiTopK,
			TopP:            &geminiTopP,
			MaxOutputTokens: geminiMaxOutputTokens,
		},
	})
	if err != nil {
		if errors.Is(err, gemini.ErrMalformedResponse) {
			return nil, failure(model.ProviderGemini, ReasonMalformed, err, "Resposta inválida da API Gemini")
		}
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			return nil, failure(model.ProviderGemini, ReasonStatus,
				resilience.WithStatus(err, apiErr.StatusCode), "Erro Gemini API: "+apiErr.Message)
		}
		return nil, failure(model.ProviderGemini, ReasonNetwork, err, "")
	}

	return parseFields(model.ProviderGemini, resp.Text())
}
