// Package docapi is the wire contract and HTTP client for a docextract
// extraction server.
package docapi

// ExtractRequest is the body of POST /api/extract/.
type ExtractRequest struct {
	Provider    string `json:"provider"`
	APIKey      string `json:"api_key"`
	FileContent string `json:"file_content"`
	FileType    string `json:"file_type"`
	FileName    string `json:"file_name"`
}

// ExtractResponse is the reply of POST /api/extract/. On failure Success is
// false and Error carries a message.
type ExtractResponse struct {
	Success        bool           `json:"success"`
	Data           map[string]any `json:"data,omitempty"`
	Error          string         `json:"error,omitempty"`
	Provider       string         `json:"provider"`
	ProcessingTime float64        `json:"processing_time"`
	Timestamp      string         `json:"timestamp"`
}

// ErrorResponse is the body of a rejected request (4xx).
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// InfoResponse is the body of GET /api/info.
type InfoResponse struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Providers    []string `json:"providers"`
	Features     []string `json:"features"`
	MaxFileMB    int      `json:"max_file_size_mb"`
	AllowedTypes []string `json:"allowed_types"`
}
