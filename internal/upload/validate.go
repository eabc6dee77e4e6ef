// Package upload validates operator-supplied documents before they reach
// the extraction gateway.
package upload

import (
	"fmt"
	"slices"
	"strings"

	"github.com/h2non/filetype"

	"github.com/sells-group/docextract/internal/model"
)

// DefaultAllowedTypes are the MIME types accepted when none are configured.
var DefaultAllowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"}

// DefaultMaxBytes is the default upload size limit (10 MiB).
const DefaultMaxBytes int64 = 10 * 1024 * 1024

// ValidationError is a user-facing rejection of an upload.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Rejection reasons.
const (
	ReasonTooLarge    = "too_large"
	ReasonUnsupported = "unsupported_type"
	ReasonEmpty       = "empty"
)

// Validator checks uploads against a size limit and a MIME allow-list.
type Validator struct {
	MaxBytes     int64
	AllowedTypes []string
}

// NewValidator returns a Validator, filling zero values with defaults.
func NewValidator(maxBytes int64, allowed []string) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	return &Validator{MaxBytes: maxBytes, AllowedTypes: allowed}
}

// CheckSize rejects a file larger than MaxBytes. Callers holding only a
// file's metadata use it before reading the content.
func (v *Validator) CheckSize(size int64) error {
	if size > v.MaxBytes {
		return &ValidationError{
			Reason: ReasonTooLarge,
			Message: fmt.Sprintf("Arquivo muito grande (%.1fMB). Máximo: %dMB",
				float64(size)/1024/1024, v.MaxBytes/1024/1024),
		}
	}
	return nil
}

// Validate checks size then type and returns the accepted file. When the
// declared MIME type is empty it is sniffed from the file's magic bytes.
func (v *Validator) Validate(name, declaredMIME string, data []byte) (model.File, error) {
	size := int64(len(data))
	if err := v.CheckSize(size); err != nil {
		return model.File{}, err
	}
	if size == 0 {
		return model.File{}, &ValidationError{Reason: ReasonEmpty, Message: "Arquivo vazio."}
	}

	mime := NormalizeMIME(declaredMIME)
	if mime == "" {
		mime = Sniff(data)
	}
	if !v.Allowed(mime) {
		return model.File{}, &ValidationError{
			Reason:  ReasonUnsupported,
			Message: "Tipo de arquivo não suportado. Use JPG, PNG ou PDF.",
		}
	}

	return model.File{Name: name, MIMEType: mime, Size: size, Bytes: data}, nil
}

// Allowed reports whether mime is on the allow-list.
func (v *Validator) Allowed(mime string) bool {
	mime = NormalizeMIME(mime)
	return slices.ContainsFunc(v.AllowedTypes, func(t string) bool {
		return NormalizeMIME(t) == mime
	})
}

// Sniff detects the MIME type from magic bytes, or returns "".
func Sniff(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// NormalizeMIME lowercases a MIME type, drops parameters and maps aliases to
// their registered name.
func NormalizeMIME(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	// image/jpg is a common alias that vendor APIs reject.
	if s == "image/jpg" {
		return "image/jpeg"
	}
	return s
}
