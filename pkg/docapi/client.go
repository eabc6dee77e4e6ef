package docapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client talks to a docextract extraction server.
type Client interface {
	Health(ctx context.Context) (*HealthResponse, error)
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
}

// APIError is a rejected request or an unsuccessful extraction.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docapi: status %d: %s", e.StatusCode, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, eris.Wrap(err, "docapi: create health request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "docapi: health request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "docapi: read health response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "API offline"}
	}

	var out HealthResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "docapi: unmarshal health response")
	}
	return &out, nil
}

func (c *httpClient) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "docapi: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/extract/", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "docapi: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "docapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "docapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	var out ExtractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "docapi: unmarshal response")
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "Erro na extração"
		}
		return &out, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out.Data == nil {
		return &out, &APIError{StatusCode: resp.StatusCode, Message: "resposta sem dados"}
	}
	return &out, nil
}

// errorMessage reads detail, then error, from a failure body.
func errorMessage(body []byte) string {
	var e struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if s, ok := e.Detail.(string); ok && s != "" {
			return s
		}
		if e.Detail != nil {
			b, _ := json.Marshal(e.Detail)
			return string(b)
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return "Erro na API"
}
