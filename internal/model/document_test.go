package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestNewFieldValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		in          string
		present     bool
		placeholder bool
		want        string
	}{
		{"plain", "JOÃO DA SILVA", true, false, "JOÃO DA SILVA"},
		{"trimmed", "  123  ", true, false, "123"},
		{"empty", "", false, false, ""},
		{"whitespace", "   ", false, false, ""},
		{"null literal", "null", false, false, ""},
		{"placeholder", "[000.000.000-00]", true, true, "[000.000.000-00]"},
		{"half bracket", "[abc", true, false, "[abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := NewFieldValue(tt.in)
			assert.Equal(t, tt.present, v.Present())
			assert.Equal(t, tt.placeholder, v.IsPlaceholder)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestFieldValuePresentRejectsNullRaw(t *testing.T) {
	t.Parallel()

	assert.False(t, FieldValue{Raw: strptr("null")}.Present())
	assert.False(t, FieldValue{}.Present())
	assert.True(t, FieldValue{Raw: strptr("x")}.Present())
}

func TestIsPlaceholder(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPlaceholder("[NOME]"))
	assert.True(t, IsPlaceholder("prefix [x] suffix"))
	assert.True(t, IsPlaceholder("]["))
	assert.False(t, IsPlaceholder("NOME"))
	assert.False(t, IsPlaceholder("[NOME"))
}

func TestDocumentFieldModel(t *testing.T) {
	t.Parallel()

	m := NewDocumentFieldModel(map[string]FieldValue{
		"nome": NewFieldValue("MARIA"),
		"cpf":  {},
	})

	t.Run("Get distinguishes missing keys", func(t *testing.T) {
		t.Parallel()
		_, ok := m.Get("cpf")
		assert.True(t, ok)
		_, ok = m.Get("rg")
		assert.False(t, ok)
	})

	t.Run("Present and Value", func(t *testing.T) {
		t.Parallel()
		assert.True(t, m.Present("nome"))
		assert.False(t, m.Present("cpf"))
		assert.Equal(t, "MARIA", m.Value("nome"))
		assert.Empty(t, m.Value("missing"))
	})

	t.Run("Keys sorted", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"cpf", "nome"}, m.Keys())
	})

	t.Run("With copies", func(t *testing.T) {
		t.Parallel()
		m2 := m.With("rg", NewFieldValue("12.345.678-9"))
		assert.True(t, m2.Present("rg"))
		assert.False(t, m.Present("rg"))
	})

	t.Run("Raw maps absent to nil", func(t *testing.T) {
		t.Parallel()
		raw := m.Raw()
		require.Len(t, raw, 2)
		assert.Equal(t, "MARIA", raw["nome"])
		assert.Nil(t, raw["cpf"])
	})
}

func TestNewDocumentFieldModelNil(t *testing.T) {
	t.Parallel()

	m := NewDocumentFieldModel(nil)
	require.NotNil(t, m.Fields)
	assert.Empty(t, m.Keys())
}
