package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/resilience"
	"github.com/sells-group/docextract/internal/schema"
)

// DefaultTimeout bounds a provider call when none is configured.
const DefaultTimeout = 30 * time.Second

// Gateway runs one extraction attempt with the chosen strategy.
type Gateway struct {
	providers map[model.ProviderID]Provider
	breakers  *resilience.Breakers
	schema    *schema.Schema
	timeout   time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithBreakers guards providers with circuit breakers.
func WithBreakers(b *resilience.Breakers) GatewayOption {
	return func(g *Gateway) {
		g.breakers = b
	}
}

// WithSchema overrides the field catalog used for the manual template.
func WithSchema(s *schema.Schema) GatewayOption {
	return func(g *Gateway) {
		if s != nil {
			g.schema = s
		}
	}
}

// NewGateway creates a Gateway over the given provider adapters.
func NewGateway(providers map[model.ProviderID]Provider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		providers: providers,
		schema:    schema.Default(),
		timeout:   DefaultTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Breakers returns the gateway's circuit breakers, or nil.
func (g *Gateway) Breakers() *resilience.Breakers {
	return g.breakers
}

// Extract returns the raw field map for f. The manual strategy never fails;
// a remote strategy makes exactly one provider call and reports every
// failure as *ProviderFailure.
func (g *Gateway) Extract(ctx context.Context, f model.File, s Strategy) (model.RawFieldMap, error) {
	if !s.IsRemote() {
		return ManualTemplate(g.schema, f), nil
	}

	log := zap.L().With(zap.String("provider", string(s.Provider)), zap.String("file", f.Name))

	p, ok := g.providers[s.Provider]
	if !ok {
		return nil, failure(s.Provider, ReasonUnavailable, nil, "provedor não configurado")
	}

	req := Request{
		Provider: s.Provider,
		APIKey:   s.APIKey,
		FileName: f.Name,
		MIMEType: f.MIMEType,
		Data:     base64.StdEncoding.EncodeToString(f.Bytes),
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	call := func(ctx context.Context) (model.RawFieldMap, error) {
		return p.Extract(ctx, req)
	}

	var (
		raw model.RawFieldMap
		err error
	)
	if g.breakers != nil {
		raw, err = resilience.ExecuteVal(ctx, g.breakers.Get(string(s.Provider)), call)
	} else {
		raw, err = call(ctx)
	}
	elapsed := time.Since(start)

	if err != nil {
		pf := g.classify(ctx, s.Provider, err)
		log.Warn("extract: provider failed",
			zap.String("reason", pf.Reason),
			zap.Duration("elapsed", elapsed),
			zap.Error(pf),
		)
		return nil, pf
	}

	log.Info("extract: provider succeeded",
		zap.Duration("elapsed", elapsed),
		zap.Int("fields", len(raw)),
	)
	return raw, nil
}

func (g *Gateway) classify(ctx context.Context, p model.ProviderID, err error) *ProviderFailure {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return failure(p, ReasonCircuitOpen, err, "provedor temporariamente indisponível")
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return failure(p, ReasonTimeout, err, "tempo limite excedido")
	}
	var pf *ProviderFailure
	if errors.As(err, &pf) {
		return pf
	}
	return failure(p, ReasonNetwork, err, "")
}
