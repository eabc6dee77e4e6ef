package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSDKMessage(t *testing.T) {
	sdkMsg := &sdk.Message{
		ID:           "msg_test_123",
		Model:        "claude-3-5-sonnet-20241022",
		StopReason:   "end_turn",
		StopSequence: "STOP",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: `{"nome": "Maria"}`},
			{Type: "text", Text: "Second block"},
		},
		Usage: sdk.Usage{
			InputTokens:  100,
			OutputTokens: 50,
		},
	}

	resp := fromSDKMessage(sdkMsg)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_123", resp.ID)
	assert.Equal(t, "claude-3-5-sonnet-20241022", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "STOP", resp.StopSequence)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, `{"nome": "Maria"}`, resp.Text())
	assert.Equal(t, int64(100), resp.Usage.InputTokens)
	assert.Equal(t, int64(50), resp.Usage.OutputTokens)
}

func TestFromSDKMessage_EmptyContent(t *testing.T) {
	resp := fromSDKMessage(&sdk.Message{ID: "msg_empty", StopReason: "max_tokens"})
	require.NotNil(t, resp)
	assert.Empty(t, resp.Content)
	assert.Empty(t, resp.Text())
	assert.Equal(t, "max_tokens", resp.StopReason)
}

func TestMessageResponseText_SkipsNonText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "tool_use"},
		{Type: "text", Text: "answer"},
	}}
	assert.Equal(t, "answer", resp.Text())
}

func TestToSDKMessages(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "extract", Attachments: []Attachment{
			{MediaType: "image/png", Data: "aGVsbG8="},
			{MediaType: "application/pdf", Data: "JVBERi0="},
		}},
		{Role: "assistant", Content: "ok"},
	})
	require.Len(t, msgs, 2)

	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	require.Len(t, msgs[0].Content, 3)
	require.NotNil(t, msgs[0].Content[0].OfImage)
	require.NotNil(t, msgs[0].Content[1].OfDocument)
	require.NotNil(t, msgs[0].Content[2].OfText)
	assert.Equal(t, "extract", msgs[0].Content[2].OfText.Text)

	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 1)
}

func TestAttachmentIsPDF(t *testing.T) {
	assert.True(t, Attachment{MediaType: "application/pdf"}.IsPDF())
	assert.False(t, Attachment{MediaType: "image/jpeg"}.IsPDF())
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name  string
		usage TokenUsage
		model string
		want  float64
	}{
		{
			name:  "sonnet",
			usage: TokenUsage{InputTokens: 1_000_000, OutputTokens: 100_000},
			model: "claude-3-5-sonnet-20241022",
			want:  3.00 + 1.50,
		},
		{
			name:  "unknown model",
			usage: TokenUsage{InputTokens: 1000},
			model: "unknown",
			want:  0,
		},
		{
			name:  "zero usage",
			model: "claude-3-5-haiku-20241022",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.usage.EstimateCost(tt.model), 1e-9)
		})
	}
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 10, OutputTokens: 5}.LogCost("claude-3-5-sonnet-20241022", "rg.png")
	})
}
