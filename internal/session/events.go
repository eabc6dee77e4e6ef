package session

import (
	"github.com/sells-group/docextract/internal/model"
)

// Event is an operator action or extraction milestone.
type Event interface {
	event()
}

// EnableRequested opens the API key input.
type EnableRequested struct{}

// KeyTyped records the key typed for a provider.
type KeyTyped struct {
	Provider model.ProviderID
	Key      string
}

// ProviderSelected switches the provider whose key input is shown.
type ProviderSelected struct {
	Provider model.ProviderID
}

// Confirm validates the typed key and enables the API.
type Confirm struct{}

// Cancel abandons key input.
type Cancel struct{}

// Disable turns the API off.
type Disable struct{}

// FileSelected replaces the current file.
type FileSelected struct {
	File model.File
}

// ExtractionStarted marks an extraction as in flight.
type ExtractionStarted struct{}

// ExtractionFinished releases the in-flight extraction with its result. It
// is accepted in every exit path, success or fallback.
type ExtractionFinished struct {
	Result model.ExtractionResult
	Notice *model.Notice
}

// ResultEdited replaces the current result with an edited copy.
type ResultEdited struct {
	Result model.ExtractionResult
}

// NoticeDismissed clears the current notice.
type NoticeDismissed struct{}

func (EnableRequested) event()    {}
func (KeyTyped) event()           {}
func (ProviderSelected) event()   {}
func (Confirm) event()            {}
func (Cancel) event()             {}
func (Disable) event()            {}
func (FileSelected) event()       {}
func (ExtractionStarted) event()  {}
func (ExtractionFinished) event() {}
func (ResultEdited) event()       {}
func (NoticeDismissed) event()    {}
