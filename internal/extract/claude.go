package extract

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/resilience"
	"github.com/sells-group/docextract/pkg/anthropic"
)

const defaultClaudeMaxTokens = 3000

// ClaudeProvider calls the Anthropic Messages API directly.
type ClaudeProvider struct {
	newClient func(apiKey string) anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeProvider creates the adapter. newClient builds a client for the
// operator's key on every call.
func NewClaudeProvider(newClient func(apiKey string) anthropic.Client, modelName string, maxTokens int64) *ClaudeProvider {
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	return &ClaudeProvider{newClient: newClient, model: modelName, maxTokens: maxTokens}
}

// Extract sends the file as an image or document block with the prompt.
func (p *ClaudeProvider) Extract(ctx context.Context, req Request) (model.RawFieldMap, error) {
	resp, err := p.newClient(req.APIKey).CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: extractionPrompt,
			Attachments: []anthropic.Attachment{{
				MediaType: req.MIMEType,
				Data:      req.Data,
			}},
		}},
	})
	if err != nil {
		return nil, claudeFailure(err)
	}

	resp.Usage.LogCost(p.model, req.FileName)
	return parseFields(model.ProviderClaude, resp.Text())
}

func claudeFailure(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return failure(model.ProviderClaude, ReasonStatus,
			resilience.WithStatus(err, apiErr.StatusCode), "Erro Claude API: "+apiErr.Error())
	}
	return failure(model.ProviderClaude, ReasonNetwork, err, "")
}
