package session

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docextract/internal/model"
)

var (
	// ErrInvalidTransition rejects an event the current phase does not accept.
	ErrInvalidTransition = eris.New("session: invalid transition")
	// ErrExtractionInFlight rejects a second extraction or a file change
	// while one is running.
	ErrExtractionInFlight = eris.New("session: extraction already in progress")
	// ErrNoFile rejects an extraction without a selected file.
	ErrNoFile = eris.New("session: no file selected")
	// ErrNoResult rejects edits before any extraction.
	ErrNoResult = eris.New("session: no extraction result")
)

// ValidationError is a user-facing rejection of a key confirmation. The state
// is left unchanged.
type ValidationError struct {
	Provider model.ProviderID
	Message  string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Reduce applies e to s and returns the next state. On error the returned
// state is s unchanged.
func Reduce(s State, e Event) (State, error) {
	next := s.clone()

	switch ev := e.(type) {
	case EnableRequested:
		switch s.Phase {
		case PhaseAPIDisabled:
			next.Phase = PhaseAPIInputPending
		case PhaseAPIInputPending:
		default:
			return s, invalid(s, e)
		}

	case KeyTyped:
		if s.Phase != PhaseAPIInputPending {
			return s, invalid(s, e)
		}
		p, err := model.ParseProvider(string(ev.Provider))
		if err != nil {
			return s, err
		}
		if next.TypedKeys == nil {
			next.TypedKeys = map[model.ProviderID]string{}
		}
		next.TypedKeys[p] = ev.Key

	case ProviderSelected:
		if s.Phase == PhaseAPIEnabled {
			return s, invalid(s, e)
		}
		p, err := model.ParseProvider(string(ev.Provider))
		if err != nil {
			return s, err
		}
		next.Provider = p

	case Confirm:
		if s.Phase != PhaseAPIInputPending {
			return s, invalid(s, e)
		}
		key := strings.TrimSpace(s.TypedKey(s.Provider))
		if err := ValidateKey(s.Provider, key); err != nil {
			return s, err
		}
		next.Phase = PhaseAPIEnabled
		next.APIKey = key
		next.Notice = &model.Notice{
			Category: model.NoticeSuccess,
			Message:  fmt.Sprintf("✅ %s API habilitada com sucesso! Agora você pode extrair dados automaticamente.", s.Provider.Label()),
		}

	case Cancel:
		if s.Phase != PhaseAPIInputPending {
			return s, invalid(s, e)
		}
		next.Phase = PhaseAPIDisabled
		next.TypedKeys = nil

	case Disable:
		if s.Phase == PhaseAPIDisabled {
			return s, invalid(s, e)
		}
		next.Phase = PhaseAPIDisabled
		next.APIKey = ""
		next.TypedKeys = nil
		next.Notice = &model.Notice{
			Category: model.NoticeInfo,
			Message:  "⚪ API desabilitada. Voltando ao modo manual.",
		}

	case FileSelected:
		if s.Extracting {
			return s, ErrExtractionInFlight
		}
		f := ev.File
		next.CurrentFile = &f
		next.LastResult = nil

	case ExtractionStarted:
		if s.Extracting {
			return s, ErrExtractionInFlight
		}
		if s.CurrentFile == nil {
			return s, ErrNoFile
		}
		next.Extracting = true
		next.Notice = nil

	case ExtractionFinished:
		r := ev.Result
		next.Extracting = false
		next.LastResult = &r
		next.Notice = ev.Notice

	case ResultEdited:
		if s.LastResult == nil {
			return s, ErrNoResult
		}
		r := ev.Result
		next.LastResult = &r

	case NoticeDismissed:
		next.Notice = nil

	default:
		return s, eris.Errorf("session: unknown event %T", e)
	}

	return next, nil
}

// ValidateKey checks a typed API key against the provider's required prefix.
func ValidateKey(p model.ProviderID, key string) error {
	if key == "" {
		return &ValidationError{
			Provider: p,
			Message:  fmt.Sprintf("Por favor, cole sua chave da API %s.", p.Label()),
		}
	}
	if !strings.HasPrefix(key, p.KeyPrefix()) {
		return &ValidationError{
			Provider: p,
			Message:  fmt.Sprintf("Chave da API %s inválida. Deve começar com %q.", p.Label(), p.KeyPrefix()),
		}
	}
	return nil
}

func invalid(s State, e Event) error {
	return eris.Wrapf(ErrInvalidTransition, "%T in %s", e, s.Phase)
}
