package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/extract"
	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/session"
	"github.com/sells-group/docextract/internal/upload"
	"github.com/sells-group/docextract/pkg/docapi"
)

const (
	apiName       = "Document Extractor API"
	minFieldChars = 10
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, docapi.HealthResponse{
		Status:      "healthy",
		Timestamp:   s.now().Format(time.RFC3339),
		Version:     Version,
		Environment: s.cfg.Server.Environment,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, docapi.InfoResponse{
		Name:         apiName,
		Version:      Version,
		Providers:    providerNames(),
		Features:     []string{"extract", "sessions", "export_json", "export_xlsx", "print", "metrics"},
		MaxFileMB:    s.cfg.Extraction.MaxFileSizeMB,
		AllowedTypes: s.cfg.Extraction.AllowedTypes,
	})
}

func (s *Server) handleExtractTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "API de extração funcionando!",
		"providers":        providerNames(),
		"max_file_size_mb": s.cfg.Extraction.MaxFileSizeMB,
	})
}

// handleExtract is the backend extraction endpoint. Request problems are
// rejected with a 4xx status; provider failures are reported in the body
// with success=false so the caller can fall back.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	start := s.now()

	var req docapi.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Corpo da requisição inválido.")
		return
	}

	provider, err := model.ParseProvider(req.Provider)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("Provedor inválido: %s", req.Provider))
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if len(key) < minFieldChars {
		writeDetail(w, http.StatusUnprocessableEntity, "Chave de API muito curta.")
		return
	}
	if err := session.ValidateKey(provider, key); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(req.FileContent) < minFieldChars {
		writeDetail(w, http.StatusUnprocessableEntity, "Conteúdo do arquivo muito curto.")
		return
	}

	// Base64 inflates by a third; estimate before decoding.
	estimated := int64(float64(len(req.FileContent)) * 0.75)
	if estimated > s.cfg.Extraction.MaxFileSizeBytes() {
		writeDetail(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Arquivo muito grande. Máximo: %dMB", s.cfg.Extraction.MaxFileSizeMB))
		return
	}
	mimeType := upload.NormalizeMIME(req.FileType)
	if !upload.NewValidator(0, s.cfg.Extraction.AllowedTypes).Allowed(mimeType) {
		writeDetail(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("Tipo de arquivo não suportado: %s", req.FileType))
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.FileContent)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Conteúdo do arquivo não é base64 válido")
		return
	}

	f := model.File{Name: req.FileName, MIMEType: mimeType, Size: int64(len(data)), Bytes: data}
	raw, err := s.gateway.Extract(r.Context(), f, extract.Remote(provider, key))
	elapsed := s.now().Sub(start)

	resp := docapi.ExtractResponse{
		Provider:       string(provider),
		ProcessingTime: math.Round(elapsed.Seconds()*100) / 100,
		Timestamp:      s.now().Format(time.RFC3339),
	}
	if err != nil {
		resp.Error = "Erro interno no servidor"
		var pf *extract.ProviderFailure
		if errors.As(err, &pf) {
			resp.Error = failureText(pf)
			s.recordBackend(provider, "failed", elapsed)
			s.recordFallback(provider, pf.Reason)
		}
		zap.L().Warn("server: extraction failed",
			zap.String("provider", string(provider)),
			zap.String("file", req.FileName),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	s.recordBackend(provider, "success", elapsed)
	resp.Success = true
	resp.Data = raw
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordBackend(p model.ProviderID, outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordExtraction(string(p), outcome, elapsed)
	}
}

func (s *Server) recordFallback(p model.ProviderID, reason string) {
	if s.metrics != nil {
		s.metrics.RecordFallback(string(p), reason)
	}
}

func failureText(pf *extract.ProviderFailure) string {
	if pf.Message != "" {
		return pf.Message
	}
	if pf.Err != nil {
		return pf.Err.Error()
	}
	return "Erro na extração"
}

func providerNames() []string {
	var out []string
	for _, p := range model.Providers() {
		out = append(out, string(p))
	}
	return out
}
