// Package pipeline runs one document through validation, extraction and
// field-model building, falling back to the manual template when a provider
// fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/extract"
	"github.com/sells-group/docextract/internal/fieldmodel"
	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/upload"
)

// Outcome labels for metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeManual   = "manual"
)

// Extractor is the extraction gateway.
type Extractor interface {
	Extract(ctx context.Context, f model.File, s extract.Strategy) (model.RawFieldMap, error)
}

// Recorder receives pipeline measurements.
type Recorder interface {
	RecordExtraction(provider, outcome string, elapsed time.Duration)
	RecordFallback(provider, reason string)
	RecordRejection(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordExtraction(string, string, time.Duration) {}
func (nopRecorder) RecordFallback(string, string)                  {}
func (nopRecorder) RecordRejection(string)                         {}

// Result is the outcome of one run.
type Result struct {
	Extraction model.ExtractionResult
	Notice     model.Notice
	// Failure is set when a provider failed and the manual template was used.
	Failure *extract.ProviderFailure
}

// Pipeline wires the validator, gateway and builder together.
type Pipeline struct {
	validator *upload.Validator
	gateway   Extractor
	builder   *fieldmodel.Builder
	recorder  Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// New creates a Pipeline.
func New(v *upload.Validator, gw Extractor, b *fieldmodel.Builder, opts ...Option) *Pipeline {
	if b == nil {
		b = fieldmodel.New(nil)
	}
	p := &Pipeline{validator: v, gateway: gw, builder: b, recorder: nopRecorder{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Builder returns the field-model builder.
func (p *Pipeline) Builder() *fieldmodel.Builder {
	return p.builder
}

// CheckSize rejects an upload by its size alone, before its bytes are read.
func (p *Pipeline) CheckSize(size int64) error {
	if err := p.validator.CheckSize(size); err != nil {
		p.recorder.RecordRejection(upload.ReasonTooLarge)
		return err
	}
	return nil
}

// Validate checks an upload before it may reach the gateway.
func (p *Pipeline) Validate(name, mimeType string, data []byte) (model.File, error) {
	f, err := p.validator.Validate(name, mimeType, data)
	if err != nil {
		var ve *upload.ValidationError
		if errors.As(err, &ve) {
			p.recorder.RecordRejection(ve.Reason)
		}
		return model.File{}, err
	}
	return f, nil
}

// Process validates the upload and runs it. A validation error is returned
// as is and nothing is extracted.
func (p *Pipeline) Process(ctx context.Context, name, mimeType string, data []byte, s extract.Strategy) (*Result, model.File, error) {
	f, err := p.Validate(name, mimeType, data)
	if err != nil {
		return nil, model.File{}, err
	}
	return p.Run(ctx, f, s), f, nil
}

// Run extracts f with s. It never fails: a provider failure yields the
// manual template with an error notice.
func (p *Pipeline) Run(ctx context.Context, f model.File, s extract.Strategy) *Result {
	log := zap.L().With(zap.String("file", f.Name), zap.String("strategy", string(s.Kind)))
	start := time.Now()

	if !s.IsRemote() {
		raw, _ := p.gateway.Extract(ctx, f, extract.Manual())
		elapsed := time.Since(start)
		p.recorder.RecordExtraction("manual", OutcomeManual, elapsed)
		return &Result{
			Extraction: p.result(raw, f, model.SourceManual, "", elapsed),
			Notice: model.Notice{
				Category: model.NoticeInfo,
				Message:  "✏️ Modo manual: clique nos campos para preencher.",
			},
		}
	}

	raw, err := p.gateway.Extract(ctx, f, s)
	elapsed := time.Since(start)
	if err == nil {
		p.recorder.RecordExtraction(string(s.Provider), OutcomeSuccess, elapsed)
		res := p.result(raw, f, model.SourceAI, s.Provider, elapsed)
		return &Result{
			Extraction: res,
			Notice: model.Notice{
				Category: model.NoticeSuccess,
				Message:  fmt.Sprintf("✅ Dados extraídos com sucesso! Tempo: %.2fs", res.ElapsedSeconds),
			},
		}
	}

	pf := asFailure(s.Provider, err)
	log.Warn("pipeline: provider failed, using manual template",
		zap.String("provider", string(s.Provider)),
		zap.String("reason", pf.Reason),
		zap.Error(pf),
	)
	p.recorder.RecordExtraction(string(s.Provider), OutcomeFallback, elapsed)
	p.recorder.RecordFallback(string(s.Provider), pf.Reason)

	manual, _ := p.gateway.Extract(ctx, f, extract.Manual())
	return &Result{
		Extraction: p.result(manual, f, model.SourceManual, "", elapsed),
		Notice:     model.Notice{Category: model.NoticeError, Message: "❌ " + failureMessage(pf)},
		Failure:    pf,
	}
}

func (p *Pipeline) result(raw model.RawFieldMap, f model.File, src model.SourceKind, provider model.ProviderID, elapsed time.Duration) model.ExtractionResult {
	r := model.ExtractionResult{
		Model:          p.builder.Build(raw, f.Name),
		Source:         src,
		ElapsedSeconds: elapsed.Seconds(),
	}
	if provider != "" {
		r.Provider = provider
		r.ProviderLabel = provider.Label()
	}
	return r
}

func asFailure(provider model.ProviderID, err error) *extract.ProviderFailure {
	var pf *extract.ProviderFailure
	if errors.As(err, &pf) {
		return pf
	}
	return &extract.ProviderFailure{Provider: provider, Reason: extract.ReasonNetwork, Err: err}
}

func failureMessage(pf *extract.ProviderFailure) string {
	if pf.Message != "" {
		return pf.Message
	}
	if pf.Err != nil {
		return pf.Err.Error()
	}
	return "Erro na extração"
}
