package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docextract/internal/extract"
	"github.com/sells-group/docextract/internal/model"
)

func mustReduce(t *testing.T, s State, events ...Event) State {
	t.Helper()
	for _, e := range events {
		var err error
		s, err = Reduce(s, e)
		require.NoError(t, err, "%T", e)
	}
	return s
}

func TestEnableConfirmDisableCycle(t *testing.T) {
	s := mustReduce(t, New(),
		EnableRequested{},
		KeyTyped{Provider: model.ProviderClaude, Key: "  sk-ant-api03-abc "},
		Confirm{},
	)
	assert.Equal(t, PhaseAPIEnabled, s.Phase)
	assert.Equal(t, "sk-ant-api03-abc", s.APIKey)
	assert.Equal(t, extract.Remote(model.ProviderClaude, "sk-ant-api03-abc"), s.Strategy())
	require.NotNil(t, s.Notice)
	assert.Equal(t, model.NoticeSuccess, s.Notice.Category)
	assert.Contains(t, s.Notice.Message, "Claude API habilitada")

	s = mustReduce(t, s, Disable{})
	assert.Equal(t, PhaseAPIDisabled, s.Phase)
	assert.Empty(t, s.APIKey)
	assert.Empty(t, s.TypedKeys)
	assert.Equal(t, extract.Manual(), s.Strategy())
	assert.Equal(t, "⚪ API desabilitada. Voltando ao modo manual.", s.Notice.Message)
}

func TestConfirmRejectsBadPrefix(t *testing.T) {
	s := mustReduce(t, New(),
		EnableRequested{},
		KeyTyped{Provider: model.ProviderClaude, Key: "xyz123"},
	)

	next, err := Reduce(s, Confirm{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, `Chave da API Claude inválida. Deve começar com "sk-ant-api".`, ve.Message)
	assert.Equal(t, PhaseAPIInputPending, next.Phase)
	assert.Equal(t, s, next)
}

func TestConfirmRejectsEmptyKey(t *testing.T) {
	s := mustReduce(t, New(),
		EnableRequested{},
		ProviderSelected{Provider: model.ProviderGemini},
		KeyTyped{Provider: model.ProviderGemini, Key: "   "},
	)

	_, err := Reduce(s, Confirm{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Por favor, cole sua chave da API Gemini.", ve.Message)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		provider model.ProviderID
		key      string
		ok       bool
	}{
		{model.ProviderClaude, "sk-ant-api03-x", true},
		{model.ProviderClaude, "AIzaSy", false},
		{model.ProviderGemini, "AIzaSyABC", true},
		{model.ProviderGemini, "sk-ant-api03-x", false},
		{model.ProviderGemini, "", false},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.provider, tt.key)
		if tt.ok {
			assert.NoError(t, err, tt.key)
		} else {
			assert.Error(t, err, tt.key)
		}
	}
}

func TestProviderSwitchKeepsTypedKeys(t *testing.T) {
	s := mustReduce(t, New(),
		EnableRequested{},
		KeyTyped{Provider: model.ProviderClaude, Key: "sk-ant-api03-abc"},
		ProviderSelected{Provider: model.ProviderGemini},
		KeyTyped{Provider: model.ProviderGemini, Key: "AIzaXYZ"},
		ProviderSelected{Provider: model.ProviderClaude},
	)
	assert.Equal(t, PhaseAPIInputPending, s.Phase)
	assert.Equal(t, "sk-ant-api03-abc", s.TypedKey(model.ProviderClaude))
	assert.Equal(t, "AIzaXYZ", s.TypedKey(model.ProviderGemini))

	s = mustReduce(t, s, Cancel{})
	assert.Equal(t, PhaseAPIDisabled, s.Phase)
	assert.Empty(t, s.TypedKey(model.ProviderClaude))
	assert.Empty(t, s.TypedKey(model.ProviderGemini))
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := mustReduce(t, New(),
		EnableRequested{},
		KeyTyped{Provider: model.ProviderClaude, Key: "a"},
	)
	_ = mustReduce(t, s, KeyTyped{Provider: model.ProviderClaude, Key: "b"})
	assert.Equal(t, "a", s.TypedKey(model.ProviderClaude))
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{"confirm while disabled", New(), Confirm{}},
		{"cancel while disabled", New(), Cancel{}},
		{"disable while disabled", New(), Disable{}},
		{"key typed while disabled", New(), KeyTyped{Provider: model.ProviderClaude, Key: "x"}},
		{"enable while enabled", State{Phase: PhaseAPIEnabled}, EnableRequested{}},
		{"provider switch while enabled", State{Phase: PhaseAPIEnabled}, ProviderSelected{Provider: model.ProviderGemini}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Reduce(tt.state, tt.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestExtractionSingleFlight(t *testing.T) {
	_, err := Reduce(New(), ExtractionStarted{})
	assert.ErrorIs(t, err, ErrNoFile)

	f := model.File{Name: "rg.png", MIMEType: "image/png", Size: 3, Bytes: []byte("abc")}
	s := mustReduce(t, New(), FileSelected{File: f}, ExtractionStarted{})
	assert.True(t, s.Extracting)

	_, err = Reduce(s, ExtractionStarted{})
	assert.ErrorIs(t, err, ErrExtractionInFlight)
	_, err = Reduce(s, FileSelected{File: f})
	assert.ErrorIs(t, err, ErrExtractionInFlight)

	notice := &model.Notice{Category: model.NoticeError, Message: "❌ falhou"}
	s = mustReduce(t, s, ExtractionFinished{Result: model.ExtractionResult{Source: model.SourceManual}, Notice: notice})
	assert.False(t, s.Extracting)
	require.NotNil(t, s.LastResult)
	assert.Equal(t, notice, s.Notice)

	s = mustReduce(t, s, FileSelected{File: f})
	assert.Nil(t, s.LastResult)
}

func TestResultEdited(t *testing.T) {
	_, err := Reduce(New(), ResultEdited{})
	assert.ErrorIs(t, err, ErrNoResult)

	s := mustReduce(t, New(), ExtractionFinished{Result: model.ExtractionResult{Source: model.SourceAI}})
	edited := model.ExtractionResult{Source: model.SourceAI, ElapsedSeconds: 1}
	s = mustReduce(t, s, ResultEdited{Result: edited})
	assert.Equal(t, edited, *s.LastResult)
}

func TestStore(t *testing.T) {
	st := NewStore()
	id, s := st.Create()
	assert.Equal(t, PhaseAPIDisabled, s.Phase)
	assert.Equal(t, 1, st.Len())

	s, err := st.Dispatch(id, EnableRequested{})
	require.NoError(t, err)
	assert.Equal(t, PhaseAPIInputPending, s.Phase)

	_, err = st.Dispatch(id, Confirm{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	got, err := st.Get(id)
	require.NoError(t, err)
	assert.Equal(t, PhaseAPIInputPending, got.Phase)

	_, err = st.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Dispatch(uuid.New(), Confirm{})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.True(t, st.Delete(id))
	assert.False(t, st.Delete(id))
}

func TestStoreSingleFlightConcurrent(t *testing.T) {
	st := NewStore()
	id, _ := st.Create()
	_, err := st.Dispatch(id, FileSelected{File: model.File{Name: "a.png"}})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Dispatch(id, ExtractionStarted{}); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, started)
}

func TestStoreSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st := NewStore()
	st.now = func() time.Time { return now }

	idle, _ := st.Create()
	busy, _ := st.Create()
	_, err := st.Dispatch(busy, FileSelected{File: model.File{Name: "a.png"}})
	require.NoError(t, err)
	_, err = st.Dispatch(busy, ExtractionStarted{})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	fresh, _ := st.Create()

	assert.Equal(t, 1, st.Sweep(time.Hour))
	_, err = st.Get(idle)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(busy)
	assert.NoError(t, err)
	_, err = st.Get(fresh)
	assert.NoError(t, err)
}
