package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docextract/internal/extract"
	"github.com/sells-group/docextract/internal/fieldmodel"
	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/upload"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, f model.File, s extract.Strategy) (model.RawFieldMap, error) {
	args := m.Called(ctx, f, s)
	raw, _ := args.Get(0).(model.RawFieldMap)
	return raw, args.Error(1)
}

type recorded struct {
	extractions []string
	fallbacks   []string
	rejections  []string
}

func (r *recorded) RecordExtraction(provider, outcome string, _ time.Duration) {
	r.extractions = append(r.extractions, provider+":"+outcome)
}
func (r *recorded) RecordFallback(provider, reason string) {
	r.fallbacks = append(r.fallbacks, provider+":"+reason)
}
func (r *recorded) RecordRejection(reason string) {
	r.rejections = append(r.rejections, reason)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newPipeline(gw Extractor, rec Recorder) *Pipeline {
	v := upload.NewValidator(upload.DefaultMaxBytes, upload.DefaultAllowedTypes)
	return New(v, gw, fieldmodel.New(nil), WithRecorder(rec))
}

func manualTemplate(f model.File) model.RawFieldMap {
	gw := extract.NewGateway(nil)
	raw, _ := gw.Extract(context.Background(), f, extract.Manual())
	return raw
}

func TestRun_ProviderSuccess(t *testing.T) {
	gw := &mockExtractor{}
	f := model.File{Name: "doc.png", MIMEType: "image/png", Bytes: pngHeader}
	strat := extract.Remote(model.ProviderClaude, "sk-ant-api-1")
	gw.On("Extract", mock.Anything, f, strat).Return(model.RawFieldMap{
		"nome":          "Maria Silva",
		"cpf":           nil,
		"tipoDocumento": "CNH - Carteira de Habilitação",
	}, nil)

	rec := &recorded{}
	res := newPipeline(gw, rec).Run(context.Background(), f, strat)

	assert.Nil(t, res.Failure)
	assert.Equal(t, model.SourceAI, res.Extraction.Source)
	assert.Equal(t, "Claude", res.Extraction.ProviderLabel)
	assert.Equal(t, "Maria Silva", res.Extraction.Model.Value("nome"))
	assert.False(t, res.Extraction.Model.Present("cpf"))
	assert.Equal(t, model.NoticeSuccess, res.Notice.Category)
	assert.True(t, strings.HasPrefix(res.Notice.Message, "✅ Dados extraídos com sucesso! Tempo: "))
	assert.Equal(t, []string{"claude:success"}, rec.extractions)
	gw.AssertExpectations(t)
}

func TestRun_ProviderFailureFallsBack(t *testing.T) {
	reasons := []string{
		extract.ReasonTimeout,
		extract.ReasonStatus,
		extract.ReasonMalformed,
		extract.ReasonNetwork,
		extract.ReasonCircuitOpen,
	}
	for _, reason := range reasons {
		t.Run(reason, func(t *testing.T) {
			f := model.File{Name: "rg_joao.png", MIMEType: "image/png", Size: 1024, Bytes: pngHeader}
			strat := extract.Remote(model.ProviderGemini, "AIza-1")
			pf := &extract.ProviderFailure{Provider: model.ProviderGemini, Reason: reason, Message: "Erro Gemini API: falhou"}

			gw := &mockExtractor{}
			gw.On("Extract", mock.Anything, f, strat).Return(nil, pf).Once()
			gw.On("Extract", mock.Anything, f, extract.Manual()).Return(manualTemplate(f), nil).Once()

			rec := &recorded{}
			res := newPipeline(gw, rec).Run(context.Background(), f, strat)

			require.NotNil(t, res)
			assert.Same(t, pf, res.Failure)
			assert.Equal(t, model.SourceManual, res.Extraction.Source)
			assert.Equal(t, "RG - Registro Geral", res.Extraction.Model.Value("tipoDocumento"))
			assert.True(t, res.Extraction.Model.Fields["nome"].IsPlaceholder)
			assert.Equal(t, model.Notice{Category: model.NoticeError, Message: "❌ Erro Gemini API: falhou"}, res.Notice)
			assert.Equal(t, []string{"gemini:fallback"}, rec.extractions)
			assert.Equal(t, []string{"gemini:" + reason}, rec.fallbacks)
			gw.AssertExpectations(t)
		})
	}
}

func TestRun_ManualStrategy(t *testing.T) {
	f := model.File{Name: "cpf.pdf", MIMEType: "application/pdf", Bytes: []byte("%PDF-1.4")}
	gw := &mockExtractor{}
	gw.On("Extract", mock.Anything, f, extract.Manual()).Return(manualTemplate(f), nil).Once()

	rec := &recorded{}
	res := newPipeline(gw, rec).Run(context.Background(), f, extract.Manual())

	assert.Nil(t, res.Failure)
	assert.Equal(t, model.SourceManual, res.Extraction.Source)
	assert.Equal(t, "Manual", res.Extraction.ExtractionMethod())
	assert.Equal(t, "CPF - Cadastro de Pessoa Física", res.Extraction.Model.Value("tipoDocumento"))
	assert.Equal(t, model.NoticeInfo, res.Notice.Category)
	assert.Equal(t, []string{"manual:manual"}, rec.extractions)
	gw.AssertExpectations(t)
}

func TestProcess_OversizeNeverReachesGateway(t *testing.T) {
	gw := &mockExtractor{}
	rec := &recorded{}
	data := make([]byte, 12*1024*1024)
	copy(data, pngHeader)

	res, _, err := newPipeline(gw, rec).Process(context.Background(), "big.png", "image/png", data, extract.Remote(model.ProviderClaude, "sk-ant-api-1"))

	var ve *upload.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, upload.ReasonTooLarge, ve.Reason)
	assert.Nil(t, res)
	assert.Equal(t, []string{upload.ReasonTooLarge}, rec.rejections)
	gw.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckSize(t *testing.T) {
	rec := &recorded{}
	p := newPipeline(&mockExtractor{}, rec)

	require.NoError(t, p.CheckSize(upload.DefaultMaxBytes))

	var ve *upload.ValidationError
	require.ErrorAs(t, p.CheckSize(upload.DefaultMaxBytes+1), &ve)
	assert.Equal(t, upload.ReasonTooLarge, ve.Reason)
	assert.Equal(t, []string{upload.ReasonTooLarge}, rec.rejections)
}

func TestProcess_ValidUpload(t *testing.T) {
	gw := &mockExtractor{}
	gw.On("Extract", mock.Anything, mock.AnythingOfType("model.File"), extract.Manual()).
		Return(model.RawFieldMap{"nome": "[NOME]"}, nil)

	res, f, err := newPipeline(gw, nil).Process(context.Background(), "rg.png", "", pngHeader, extract.Manual())
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.MIMEType)
	assert.Equal(t, "RG - Registro Geral", res.Extraction.Model.Value("tipoDocumento"))
}
