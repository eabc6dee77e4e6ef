package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	t.Parallel()

	p, err := ParseProvider("Claude")
	require.NoError(t, err)
	assert.Equal(t, ProviderClaude, p)

	p, err = ParseProvider(" gemini ")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)

	_, err = ParseProvider("openai")
	assert.Error(t, err)
}

func TestProviderLabelAndPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Claude", ProviderClaude.Label())
	assert.Equal(t, "Gemini", ProviderGemini.Label())
	assert.Equal(t, "sk-ant-api", ProviderClaude.KeyPrefix())
	assert.Equal(t, "AIza", ProviderGemini.KeyPrefix())
	assert.Equal(t, []ProviderID{ProviderClaude, ProviderGemini}, Providers())
}

func TestExtractionMethod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Manual", ExtractionResult{Source: SourceManual}.ExtractionMethod())
	assert.Equal(t, "API claude", ExtractionResult{Source: SourceAI, Provider: ProviderClaude}.ExtractionMethod())
	// An AI result without a provider id is reported as manual.
	assert.Equal(t, "Manual", ExtractionResult{Source: SourceAI}.ExtractionMethod())
}

func TestFile(t *testing.T) {
	t.Parallel()

	f := File{Name: "rg.pdf", MIMEType: "application/pdf", Size: 1572864}
	assert.Equal(t, "1.50", f.SizeMB())
	assert.True(t, f.IsPDF())
	assert.False(t, File{MIMEType: "image/png"}.IsPDF())
}

func TestNoticeDismiss(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5*time.Second, Notice{Category: NoticeInfo}.DismissAfter())
	assert.Equal(t, 5*time.Second, Notice{Category: NoticeSuccess}.DismissAfter())
	assert.True(t, Notice{Category: NoticeError}.Sticky())
	assert.Zero(t, Notice{Category: NoticeWarning}.DismissAfter())
}
