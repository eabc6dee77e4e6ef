package extract

import (
	"fmt"

	"github.com/sells-group/docextract/internal/model"
)

// Failure reasons.
const (
	ReasonNetwork        = "network"
	ReasonStatus         = "status"
	ReasonMalformed      = "malformed_response"
	ReasonMissingContent = "missing_content"
	ReasonTimeout        = "timeout"
	ReasonCircuitOpen    = "circuit_open"
	ReasonUnavailable    = "unavailable"
)

// ProviderFailure is any failure of a remote extraction. Callers recover from
// it by falling back to the manual template.
type ProviderFailure struct {
	Provider model.ProviderID
	Reason   string
	Message  string
	Err      error
}

func (e *ProviderFailure) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("extract: %s failed (%s): %s", e.Provider, e.Reason, msg)
}

func (e *ProviderFailure) Unwrap() error {
	return e.Err
}

func failure(p model.ProviderID, reason string, err error, msg string) *ProviderFailure {
	return &ProviderFailure{Provider: p, Reason: reason, Err: err, Message: msg}
}
