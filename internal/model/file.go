package model

import "fmt"

// File is an uploaded document that passed validation.
type File struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Bytes    []byte `json:"-"`
}

// SizeMB formats the size in mebibytes with two decimals.
func (f File) SizeMB() string {
	return fmt.Sprintf("%.2f", float64(f.Size)/1024/1024)
}

// IsPDF reports whether the file is a PDF.
func (f File) IsPDF() bool {
	return f.MIMEType == "application/pdf"
}
