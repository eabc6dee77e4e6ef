// Package session holds the per-operator interaction state and the pure
// reducer that moves it between API-enablement phases.
package session

import (
	"maps"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docextract/internal/extract"
	"github.com/sells-group/docextract/internal/model"
)

// Phase is the API-enablement phase.
type Phase int

const (
	PhaseAPIDisabled Phase = iota
	PhaseAPIInputPending
	PhaseAPIEnabled
)

func (p Phase) String() string {
	switch p {
	case PhaseAPIDisabled:
		return "api_disabled"
	case PhaseAPIInputPending:
		return "api_input_pending"
	case PhaseAPIEnabled:
		return "api_enabled"
	}
	return "unknown"
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for _, c := range []Phase{PhaseAPIDisabled, PhaseAPIInputPending, PhaseAPIEnabled} {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return eris.Errorf("session: unknown phase %q", b)
}

// State is one operator session. It is a value: every transition returns a
// new State and never mutates the input.
type State struct {
	Phase    Phase            `json:"phase"`
	Provider model.ProviderID `json:"provider"`
	// TypedKeys holds what the operator typed per provider before confirming.
	TypedKeys   map[model.ProviderID]string `json:"-"`
	APIKey      string                      `json:"-"`
	CurrentFile *model.File                 `json:"current_file,omitempty"`
	LastResult  *model.ExtractionResult     `json:"last_result,omitempty"`
	Extracting  bool                        `json:"extracting"`
	Notice      *model.Notice               `json:"notice,omitempty"`
}

// New returns the initial state: API disabled, Claude selected.
func New() State {
	return State{Phase: PhaseAPIDisabled, Provider: model.ProviderClaude}
}

// APIEnabled reports whether extraction goes to a provider.
func (s State) APIEnabled() bool {
	return s.Phase == PhaseAPIEnabled
}

// Strategy returns the extraction strategy the state selects.
func (s State) Strategy() extract.Strategy {
	if s.APIEnabled() && s.APIKey != "" {
		return extract.Remote(s.Provider, s.APIKey)
	}
	return extract.Manual()
}

// TypedKey returns the key typed for p.
func (s State) TypedKey(p model.ProviderID) string {
	return s.TypedKeys[p]
}

// clone copies the reference-typed fields so the result shares nothing
// mutable with s.
func (s State) clone() State {
	out := s
	if s.TypedKeys != nil {
		out.TypedKeys = maps.Clone(s.TypedKeys)
	}
	return out
}
