package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// SourceKind identifies where a field set came from.
type SourceKind string

const (
	SourceManual SourceKind = "manual"
	SourceAI     SourceKind = "ai"
)

// ProviderID names a remote AI provider.
type ProviderID string

const (
	ProviderClaude ProviderID = "claude"
	ProviderGemini ProviderID = "gemini"
)

// Providers lists the supported providers in display order.
func Providers() []ProviderID {
	return []ProviderID{ProviderClaude, ProviderGemini}
}

// ParseProvider validates a provider id.
func ParseProvider(s string) (ProviderID, error) {
	p := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderClaude, ProviderGemini:
		return p, nil
	}
	return "", eris.Errorf("model: unknown provider %q", s)
}

// Label returns the human-readable provider name.
func (p ProviderID) Label() string {
	switch p {
	case ProviderClaude:
		return "Claude"
	case ProviderGemini:
		return "Gemini"
	}
	return string(p)
}

// KeyPrefix returns the prefix every API key for the provider starts with.
func (p ProviderID) KeyPrefix() string {
	switch p {
	case ProviderClaude:
		return "sk-ant-api"
	case ProviderGemini:
		return "AIza"
	}
	return ""
}

// ExtractionResult is the outcome of one extraction attempt.
type ExtractionResult struct {
	Model          DocumentFieldModel `json:"model"`
	Source         SourceKind         `json:"source"`
	Provider       ProviderID         `json:"provider,omitempty"`
	ProviderLabel  string             `json:"provider_label,omitempty"`
	ElapsedSeconds float64            `json:"elapsed_seconds,omitempty"`
}

// ExtractionMethod describes the result source for exports: "Manual" or
// "API <provider>".
func (r ExtractionResult) ExtractionMethod() string {
	if r.Source == SourceAI && r.Provider != "" {
		return "API " + string(r.Provider)
	}
	return "Manual"
}

// WithModel returns a copy of the result carrying m.
func (r ExtractionResult) WithModel(m DocumentFieldModel) ExtractionResult {
	r.Model = m
	return r
}
