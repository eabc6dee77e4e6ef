package upload

import (
	"bytes"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/model"
)

// FileInfo is display metadata about an accepted file.
type FileInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	SizeMB   string `json:"size_mb"`
	Pages    int    `json:"pages,omitempty"`
}

// Describe builds FileInfo. PDFs report their page count when parseable.
func Describe(f model.File) FileInfo {
	info := FileInfo{
		Name:     f.Name,
		MIMEType: f.MIMEType,
		Size:     f.Size,
		SizeMB:   f.SizeMB(),
	}
	if f.IsPDF() {
		n, err := PageCount(f.Bytes)
		if err != nil {
			zap.L().Debug("upload: pdf page count failed", zap.String("file", f.Name), zap.Error(err))
		} else {
			info.Pages = n
		}
	}
	return info
}

// PageCount returns the number of pages in a PDF.
func PageCount(data []byte) (n int, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, &ValidationError{Reason: ReasonUnsupported, Message: "PDF ilegível."}
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}
