package fieldmodel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/schema"
)

func sectionIDs(secs []RenderedSection) []string {
	ids := make([]string, len(secs))
	for i, s := range secs {
		ids[i] = s.ID
	}
	return ids
}

func fieldKeys(sec RenderedSection) []string {
	keys := make([]string, len(sec.Fields))
	for i, f := range sec.Fields {
		keys[i] = f.Definition.Key
	}
	return keys
}

// rawSamples covers the shapes providers and the manual template produce.
func rawSamples() map[string]model.RawFieldMap {
	return map[string]model.RawFieldMap{
		"empty": {},
		"ai rg": {
			"tipoDocumento": "RG - Registro Geral",
			"nome":          "João da Silva",
			"cpf":           "123.456.789-00",
			"nomeDaMae":     "Ana",
			"observacoes":   nil,
		},
		"ai cnh": {
			"tipoDocumento": "CNH - Carteira de Habilitação",
			"nome":          "Maria Silva",
			"categoria":     "AB",
			"validade":      "01/01/2030",
		},
		"mixed types": {
			"Nome":         "  Pedro ",
			"uf":           "SP",
			"idade":        float64(42),
			"ativo":        true,
			"extras":       map[string]any{"a": "b"},
			"lista":        []any{"x", float64(1)},
			"cep":          "null",
			"naturalidade": "",
		},
		"placeholders": {
			"nome":        "[CLIQUE PARA INSERIR NOME]",
			"cpf":         "[000.000.000-00]",
			"outrosDados": "Arquivo: rg.png (0.10MB)",
		},
	}
}

func TestBuildScenarioB(t *testing.T) {
	t.Parallel()

	b := New(nil)
	m := b.Build(model.RawFieldMap{
		"nome":          "Maria Silva",
		"cpf":           nil,
		"tipoDocumento": "CNH - Carteira de Habilitação",
	}, "documento.png")

	secs := b.Sections(m)
	require.NotEmpty(t, secs)
	assert.Equal(t, "personal", secs[0].ID)
	assert.Equal(t, []string{"nome"}, fieldKeys(secs[0]))
	assert.NotContains(t, sectionIDs(secs), "cnh")
	assert.False(t, b.Visible(m, "cnh"))
	assert.Equal(t, []string{"personal", "document"}, sectionIDs(secs))
}

func TestBuildInfersDocumentType(t *testing.T) {
	t.Parallel()

	b := New(nil)

	m := b.Build(model.RawFieldMap{"nome": "X"}, "cnh_frente.jpg")
	assert.Equal(t, "CNH - Carteira de Habilitação", m.Value(schema.KeyDocumentType))

	m = b.Build(model.RawFieldMap{"tipoDocumento": "null"}, "rg.png")
	assert.Equal(t, "RG - Registro Geral", m.Value(schema.KeyDocumentType))

	m = b.Build(model.RawFieldMap{"tipoDocumento": "Passaporte"}, "rg.png")
	assert.Equal(t, "Passaporte", m.Value(schema.KeyDocumentType))
}

func TestBuildNormalizesKeysAndValues(t *testing.T) {
	t.Parallel()

	b := New(nil)
	m := b.Build(rawSamples()["mixed types"], "scan.png")

	assert.Equal(t, "Pedro", m.Value("nome"))
	_, ok := m.Get("Nome")
	assert.False(t, ok, "case variant folds to canonical key")
	assert.Equal(t, "42", m.Value("idade"))
	assert.Equal(t, "true", m.Value("ativo"))
	assert.JSONEq(t, `{"a":"b"}`, m.Value("extras"))
	assert.JSONEq(t, `["x",1]`, m.Value("lista"))
	assert.False(t, m.Present("cep"))
	assert.False(t, m.Present("naturalidade"))

	assert.Equal(t, []string{"ativo", "extras", "idade", "lista"}, b.Unassigned(m))
}

func TestBuildCanonicalKeyWins(t *testing.T) {
	t.Parallel()

	b := New(nil)
	m := b.Build(model.RawFieldMap{"NOME": "variant", "nome": "canonical"}, "x.png")
	assert.Equal(t, "canonical", m.Value("nome"))

	m = b.Build(model.RawFieldMap{"NOME": "variant", "nome": nil}, "x.png")
	assert.Equal(t, "variant", m.Value("nome"))
}

func TestBuildIdempotent(t *testing.T) {
	t.Parallel()

	b := New(nil)
	for name, raw := range rawSamples() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			first := b.Build(raw, "arquivo.png")
			second := b.Build(first.Raw(), "arquivo.png")
			assert.Equal(t, first, second)
			assert.Equal(t, b.Sections(first), b.Sections(second))
		})
	}
}

func TestSectionVisibleIffFieldPresent(t *testing.T) {
	t.Parallel()

	b := New(nil)
	for name, raw := range rawSamples() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m := b.Build(raw, "arquivo.png")
			visible := map[string]bool{}
			for _, s := range b.Sections(m) {
				visible[s.ID] = true
				for _, f := range s.Fields {
					assert.True(t, f.Value.Present(), "rendered field %s must be present", f.Definition.Key)
				}
			}
			for _, sec := range b.Schema().Sections() {
				anyPresent := false
				for _, f := range sec.Fields {
					anyPresent = anyPresent || m.Present(f.Key)
				}
				want := anyPresent && sec.Activation.Active(m)
				assert.Equal(t, want, visible[sec.ID], "section %s", sec.ID)
			}
		})
	}
}

func TestCNHSectionTracksDocumentType(t *testing.T) {
	t.Parallel()

	b := New(nil)
	cnhFields := model.RawFieldMap{"categoria": "B", "numeroRegistro": "0123"}

	withCNH := model.RawFieldMap{"tipoDocumento": "CNH - Carteira de Habilitação"}
	withRG := model.RawFieldMap{"tipoDocumento": "RG - Registro Geral"}
	for k, v := range cnhFields {
		withCNH[k] = v
		withRG[k] = v
	}

	m := b.Build(withCNH, "x.png")
	assert.True(t, b.Visible(m, "cnh"))
	assert.True(t, strings.Contains(m.Value(schema.KeyDocumentType), "CNH"))

	m = b.Build(withRG, "x.png")
	assert.False(t, b.Visible(m, "cnh"))
}

func TestSectionsPreserveDeclaredOrder(t *testing.T) {
	t.Parallel()

	b := New(nil)
	m := b.Build(model.RawFieldMap{
		"estadoCivil":    "Solteiro",
		"dataNascimento": "01/02/1990",
		"nome":           "Ana",
	}, "rg.png")

	secs := b.Sections(m)
	require.NotEmpty(t, secs)
	assert.Equal(t, []string{"nome", "dataNascimento", "estadoCivil"}, fieldKeys(secs[0]))
}

func TestNotesSectionActivation(t *testing.T) {
	t.Parallel()

	b := New(nil)
	m := b.Build(model.RawFieldMap{"outrosDados": "Arquivo: a.png (0.01MB)"}, "a.png")
	assert.True(t, b.Visible(m, "notes"))

	m = b.Build(model.RawFieldMap{"observacoes": "null"}, "a.png")
	assert.False(t, b.Visible(m, "notes"))
}
