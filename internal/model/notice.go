package model

import "time"

// NoticeCategory controls how a user-facing message is displayed.
type NoticeCategory string

const (
	NoticeInfo    NoticeCategory = "info"
	NoticeSuccess NoticeCategory = "success"
	NoticeWarning NoticeCategory = "warning"
	NoticeError   NoticeCategory = "error"
)

// AutoDismissAfter is how long info and success notices stay visible.
const AutoDismissAfter = 5 * time.Second

// Notice is a transient message for the operator.
type Notice struct {
	Category NoticeCategory `json:"category"`
	Message  string         `json:"message"`
}

// Sticky reports whether the notice persists until replaced or dismissed.
func (n Notice) Sticky() bool {
	return n.Category == NoticeError || n.Category == NoticeWarning
}

// DismissAfter returns the auto-dismiss delay, or zero for sticky notices.
func (n Notice) DismissAfter() time.Duration {
	if n.Sticky() {
		return 0
	}
	return AutoDismissAfter
}
