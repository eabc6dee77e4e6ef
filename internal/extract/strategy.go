// Package extract turns an uploaded document into a raw field map, either
// through a remote AI provider or through the manual fill-in template.
package extract

import (
	"github.com/sells-group/docextract/internal/model"
)

// Strategy selects the extraction path.
type Strategy struct {
	Kind     model.SourceKind
	Provider model.ProviderID
	APIKey   string
}

// Manual returns the manual template strategy.
func Manual() Strategy {
	return Strategy{Kind: model.SourceManual}
}

// Remote returns a strategy that calls provider with apiKey.
func Remote(provider model.ProviderID, apiKey string) Strategy {
	return Strategy{Kind: model.SourceAI, Provider: provider, APIKey: apiKey}
}

// IsRemote reports whether the strategy calls a provider.
func (s Strategy) IsRemote() bool {
	return s.Kind == model.SourceAI
}
