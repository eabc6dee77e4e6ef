package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/resilience"
	"github.com/sells-group/docextract/pkg/gemini"
)

var testFile = model.File{Name: "cnh_maria.png", MIMEType: "image/png", Size: 5, Bytes: []byte("hello")}

func staticProvider(raw model.RawFieldMap, err error) Provider {
	return ProviderFunc(func(context.Context, Request) (model.RawFieldMap, error) {
		return raw, err
	})
}

func TestGateway_ManualNeverCallsProvider(t *testing.T) {
	called := false
	g := NewGateway(map[model.ProviderID]Provider{
		model.ProviderClaude: ProviderFunc(func(context.Context, Request) (model.RawFieldMap, error) {
			called = true
			return nil, nil
		}),
	})

	raw, err := g.Extract(context.Background(), testFile, Manual())
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "CNH - Carteira de Habilitação", raw["tipoDocumento"])
}

func TestGateway_RemoteSuccess(t *testing.T) {
	var got Request
	g := NewGateway(map[model.ProviderID]Provider{
		model.ProviderClaude: ProviderFunc(func(_ context.Context, req Request) (model.RawFieldMap, error) {
			got = req
			return model.RawFieldMap{"nome": "Maria"}, nil
		}),
	})

	raw, err := g.Extract(context.Background(), testFile, Remote(model.ProviderClaude, "sk-ant-api-1"))
	require.NoError(t, err)
	assert.Equal(t, "Maria", raw["nome"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), got.Data)
	assert.Equal(t, "image/png", got.MIMEType)
	assert.Equal(t, "cnh_maria.png", got.FileName)
	assert.Equal(t, "sk-ant-api-1", got.APIKey)
}

func TestGateway_UnknownProvider(t *testing.T) {
	g := NewGateway(nil)
	_, err := g.Extract(context.Background(), testFile, Remote(model.ProviderGemini, "AIza"))
	var pf *ProviderFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, ReasonUnavailable, pf.Reason)
}

func TestGateway_Timeout(t *testing.T) {
	g := NewGateway(map[model.ProviderID]Provider{
		model.ProviderClaude: ProviderFunc(func(ctx context.Context, _ Request) (model.RawFieldMap, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := g.Extract(context.Background(), testFile, Remote(model.ProviderClaude, "k"))
	var pf *ProviderFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, ReasonTimeout, pf.Reason)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGateway_WrapsForeignErrors(t *testing.T) {
	g := NewGateway(map[model.ProviderID]Provider{
		model.ProviderGemini: staticProvider(nil, errors.New("boom")),
	})
	_, err := g.Extract(context.Background(), testFile, Remote(model.ProviderGemini, "k"))
	var pf *ProviderFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, ReasonNetwork, pf.Reason)
	assert.Equal(t, model.ProviderGemini, pf.Provider)
}

func TestGateway_CircuitOpensOnOutages(t *testing.T) {
	calls := 0
	outage := failure(model.ProviderGemini, ReasonStatus, resilience.WithStatus(errors.New("503"), 503), "")
	g := NewGateway(map[model.ProviderID]Provider{
		model.ProviderGemini: ProviderFunc(func(context.Context, Request) (model.RawFieldMap, error) {
			calls++
			return nil, outage
		}),
	}, WithBreakers(resilience.NewBreakers(resilience.Config{FailureThreshold: 2, ResetTimeout: time.Minute})))

	for range 2 {
		_, err := g.Extract(context.Background(), testFile, Remote(model.ProviderGemini, "k"))
		require.Error(t, err)
	}
	_, err := g.Extract(context.Background(), testFile, Remote(model.ProviderGemini, "k"))
	var pf *ProviderFailure
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, ReasonCircuitOpen, pf.Reason)
	assert.Equal(t, 2, calls)
	assert.Equal(t, resilience.Open, g.Breakers().States()["gemini"])
}

// Every kind of provider failure surfaces as *ProviderFailure, never a panic
// or a bare error.
func TestGateway_FailureKindsOverHTTP(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"internal"}}`, ReasonStatus},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, ReasonStatus},
		{"malformed envelope", http.StatusOK, `{nope`, ReasonMalformed},
		{"malformed answer", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"não é json"}]}}]}`, ReasonMalformed},
		{"missing content", http.StatusOK, `{"candidates":[]}`, ReasonMissingContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGateway(map[model.ProviderID]Provider{
				model.ProviderGemini: NewGeminiProvider(func(key string) gemini.Client {
					return gemini.NewClient(key, gemini.WithBaseURL(srv.URL))
				}),
			})
			raw, err := g.Extract(context.Background(), testFile, Remote(model.ProviderGemini, "AIza-key"))
			assert.Nil(t, raw)
			var pf *ProviderFailure
			require.True(t, errors.As(err, &pf), "got %v", err)
			assert.Equal(t, tt.reason, pf.Reason)
		})
	}
}
