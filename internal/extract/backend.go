package extract

import (
	"context"
	"errors"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/resilience"
	"github.com/sells-group/docextract/pkg/docapi"
)

// BackendProvider delegates extraction to a docextract server.
type BackendProvider struct {
	client docapi.Client
}

// NewBackendProvider creates the adapter.
func NewBackendProvider(client docapi.Client) *BackendProvider {
	return &BackendProvider{client: client}
}

// Extract checks server health, then posts the file.
func (p *BackendProvider) Extract(ctx context.Context, req Request) (model.RawFieldMap, error) {
	if _, err := p.client.Health(ctx); err != nil {
		return nil, failure(req.Provider, ReasonUnavailable, err,
			"API offline. Verifique se o backend está rodando.")
	}

	resp, err := p.client.Extract(ctx, docapi.ExtractRequest{
		Provider:    string(req.Provider),
		APIKey:      req.APIKey,
		FileContent: req.Data,
		FileType:    req.MIMEType,
		FileName:    req.FileName,
	})
	if err != nil {
		var apiErr *docapi.APIError
		if errors.As(err, &apiErr) {
			return nil, failure(req.Provider, ReasonStatus,
				resilience.WithStatus(err, apiErr.StatusCode), apiErr.Message)
		}
		return nil, failure(req.Provider, ReasonNetwork, err, "")
	}

	return toRawFieldMap(req.Provider, any(resp.Data))
}
