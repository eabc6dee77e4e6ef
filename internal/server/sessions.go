package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/present"
	"github.com/sells-group/docextract/internal/session"
	"github.com/sells-group/docextract/internal/upload"
)

// uploadField is the multipart form field carrying the document.
const uploadField = "file"

// Messages shown when there is nothing to output.
const (
	msgNothingToCopy   = "⚠️ Nenhum dado para copiar. Preencha os campos primeiro."
	msgNothingToExport = "⚠️ Nenhum dado para exportar. Preencha os campos primeiro."
	msgNothingToPrint  = "⚠️ Nenhum dado para imprimir. Preencha os campos primeiro."
)

type noticeResponse struct {
	Category       model.NoticeCategory `json:"category"`
	Message        string               `json:"message"`
	Sticky         bool                 `json:"sticky"`
	DismissAfterMS int64                `json:"dismiss_after_ms,omitempty"`
}

type sessionResponse struct {
	ID         string                  `json:"id"`
	Phase      session.Phase           `json:"phase"`
	Provider   model.ProviderID        `json:"provider"`
	APIEnabled bool                    `json:"api_enabled"`
	Extracting bool                    `json:"extracting"`
	File       *upload.FileInfo        `json:"file,omitempty"`
	Result     *model.ExtractionResult `json:"result,omitempty"`
	Notice     *noticeResponse         `json:"notice,omitempty"`
}

func newSessionResponse(id uuid.UUID, st session.State) sessionResponse {
	resp := sessionResponse{
		ID:         id.String(),
		Phase:      st.Phase,
		Provider:   st.Provider,
		APIEnabled: st.APIEnabled(),
		Extracting: st.Extracting,
		Result:     st.LastResult,
	}
	if st.CurrentFile != nil {
		info := upload.Describe(*st.CurrentFile)
		resp.File = &info
	}
	if n := st.Notice; n != nil {
		resp.Notice = &noticeResponse{
			Category:       n.Category,
			Message:        n.Message,
			Sticky:         n.Sticky(),
			DismissAfterMS: n.DismissAfter().Milliseconds(),
		}
	}
	return resp
}

// eventRequest is the body of POST /api/sessions/{id}/events.
type eventRequest struct {
	Type     string `json:"type"`
	Provider string `json:"provider,omitempty"`
	Key      string `json:"key,omitempty"`
}

func (e eventRequest) toEvent() (session.Event, error) {
	switch strings.ToLower(strings.TrimSpace(e.Type)) {
	case "enable":
		return session.EnableRequested{}, nil
	case "key":
		p, err := model.ParseProvider(e.Provider)
		if err != nil {
			return nil, err
		}
		return session.KeyTyped{Provider: p, Key: e.Key}, nil
	case "provider":
		p, err := model.ParseProvider(e.Provider)
		if err != nil {
			return nil, err
		}
		return session.ProviderSelected{Provider: p}, nil
	case "confirm":
		return session.Confirm{}, nil
	case "cancel":
		return session.Cancel{}, nil
	case "disable":
		return session.Disable{}, nil
	case "dismiss":
		return session.NoticeDismissed{}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", e.Type)
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Sessão não encontrada.")
		return uuid.Nil, false
	}
	return id, true
}

// loadSession resolves the session in the URL, writing 404 when absent.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, session.State, bool) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return uuid.Nil, session.State{}, false
	}
	st, err := s.sessions.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return uuid.Nil, session.State{}, false
	}
	return id, st, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	var ve *session.ValidationError
	switch {
	case errors.As(err, &ve):
		writeDetail(w, http.StatusUnprocessableEntity, ve.Message)
	case errors.Is(err, session.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Sessão não encontrada.")
	case errors.Is(err, session.ErrExtractionInFlight):
		writeDetail(w, http.StatusConflict, "Extração já em andamento.")
	case errors.Is(err, session.ErrInvalidTransition):
		writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoFile):
		writeDetail(w, http.StatusBadRequest, "Nenhum arquivo selecionado.")
	case errors.Is(err, session.ErrNoResult):
		writeDetail(w, http.StatusBadRequest, "Nenhum resultado para editar.")
	default:
		zap.L().Error("server: session error", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Erro interno no servidor")
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, st := s.sessions.Create()
	writeJSON(w, http.StatusCreated, newSessionResponse(id, st))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, st, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, st))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if !s.sessions.Delete(id) {
		writeSessionError(w, session.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Corpo da requisição inválido.")
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.sessions.Dispatch(id, ev)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, st))
}

// handleUploadDocument accepts a multipart upload. A rejected file leaves
// the session untouched.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	maxBytes := s.cfg.Extraction.MaxFileSizeBytes()
	// Leave headroom for multipart framing; the validator enforces the real limit.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeDetail(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Arquivo muito grande. Máximo: %dMB", s.cfg.Extraction.MaxFileSizeMB))
			return
		}
		writeDetail(w, http.StatusBadRequest, "Envie o documento no campo \"file\".")
		return
	}
	defer file.Close() //nolint:errcheck

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeDetail(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Arquivo muito grande. Máximo: %dMB", s.cfg.Extraction.MaxFileSizeMB))
		return
	}

	declared := header.Header.Get("Content-Type")
	if declared == "application/octet-stream" {
		declared = ""
	}
	f, err := s.pipeline.Validate(header.Filename, declared, buf.Bytes())
	if err != nil {
		var ve *upload.ValidationError
		if !errors.As(err, &ve) {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		status := http.StatusBadRequest
		switch ve.Reason {
		case upload.ReasonTooLarge:
			status = http.StatusRequestEntityTooLarge
		case upload.ReasonUnsupported:
			status = http.StatusUnsupportedMediaType
		}
		writeDetail(w, status, ve.Message)
		return
	}

	st, err := s.sessions.Dispatch(id, session.FileSelected{File: f})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, st))
}

// handleSessionExtract runs the current file through the pipeline with the
// session's strategy. Provider failures fall back to the manual template.
func (s *Server) handleSessionExtract(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	st, err := s.sessions.Dispatch(id, session.ExtractionStarted{})
	if err != nil {
		writeSessionError(w, err)
		return
	}

	finished := false
	defer func() {
		if !finished {
			// Release the in-flight flag if Run panicked.
			_, _ = s.sessions.Dispatch(id, session.ExtractionFinished{Result: model.ExtractionResult{Source: model.SourceManual}})
		}
	}()

	res := s.pipeline.Run(r.Context(), *st.CurrentFile, st.Strategy())
	notice := res.Notice
	st, err = s.sessions.Dispatch(id, session.ExtractionFinished{Result: res.Extraction, Notice: &notice})
	finished = true
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, st))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	_, st, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if st.LastResult == nil {
		writeSessionError(w, session.ErrNoResult)
		return
	}
	writeJSON(w, http.StatusOK, s.presenter.EditableView(*st.LastResult))
}

func (s *Server) handleEditFields(w http.ResponseWriter, r *http.Request) {
	id, st, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	if st.LastResult == nil {
		writeSessionError(w, session.ErrNoResult)
		return
	}
	var edits map[string]string
	if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
		writeDetail(w, http.StatusBadRequest, "Corpo da requisição inválido.")
		return
	}
	edited, err := s.presenter.ApplyEdits(*st.LastResult, edits)
	if err != nil {
		var ee *present.EditError
		if errors.As(err, &ee) {
			writeJSON(w, http.StatusUnprocessableEntity, editErrorResponse{
				Detail: editMessage(ee),
				Key:    ee.Key,
				Reason: ee.Reason,
			})
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	st, err = s.sessions.Dispatch(id, session.ResultEdited{Result: edited})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.presenter.EditableView(*st.LastResult))
}

type editErrorResponse struct {
	Detail string `json:"detail"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

func editMessage(ee *present.EditError) string {
	switch ee.Reason {
	case present.EditReadonly:
		return fmt.Sprintf("Campo %s não pode ser editado.", ee.Key)
	case present.EditTooLong:
		return fmt.Sprintf("Campo %s excede o tamanho máximo.", ee.Key)
	case present.EditUnknown:
		return fmt.Sprintf("Campo desconhecido: %s", ee.Key)
	case present.EditRequired:
		return fmt.Sprintf("Campo %s é obrigatório.", ee.Key)
	}
	return ee.Error()
}

// resultFor returns the session's result, or writes msg when there is
// nothing to output.
func (s *Server) resultFor(w http.ResponseWriter, r *http.Request, msg string) (session.State, bool) {
	_, st, ok := s.loadSession(w, r)
	if !ok {
		return st, false
	}
	if st.LastResult == nil {
		writeDetail(w, http.StatusUnprocessableEntity, msg)
		return st, false
	}
	return st, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	st, ok := s.resultFor(w, r, msgNothingToCopy)
	if !ok {
		return
	}
	text, err := s.presenter.PlainTextSummary(st.LastResult.Model)
	if errors.Is(err, present.ErrEmptyResult) {
		writeDetail(w, http.StatusUnprocessableEntity, msgNothingToCopy)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st, ok := s.resultFor(w, r, msgNothingToExport)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "xlsx" {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Formato não suportado: %s", format))
		return
	}

	doc, err := s.presenter.ExportDocument(*st.LastResult, documentName(st))
	if errors.Is(err, present.ErrEmptyResult) {
		writeDetail(w, http.StatusUnprocessableEntity, msgNothingToExport)
		return
	}

	name := present.ExportFileName(s.now())
	if format == "xlsx" {
		name = strings.TrimSuffix(name, ".json") + ".xlsx"
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	var buf bytes.Buffer
	if format == "xlsx" {
		err = present.WriteXLSX(&buf, doc)
	} else {
		err = present.WriteJSON(&buf, doc)
	}
	if err != nil {
		zap.L().Error("server: export failed", zap.String("format", format), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Erro ao exportar dados")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	st, ok := s.resultFor(w, r, msgNothingToPrint)
	if !ok {
		return
	}
	doc, err := s.presenter.PrintDocument(st.LastResult.Model, documentName(st))
	if errors.Is(err, present.ErrEmptyResult) {
		writeDetail(w, http.StatusUnprocessableEntity, msgNothingToPrint)
		return
	}
	var buf bytes.Buffer
	if err := present.RenderHTML(&buf, doc); err != nil {
		zap.L().Error("server: render print view", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Erro ao gerar impressão")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func documentName(st session.State) string {
	if st.CurrentFile == nil {
		return ""
	}
	return st.CurrentFile.Name
}

// SweepSessions drops sessions idle for longer than maxIdle, checking every
// interval until ctx is done.
func (s *Server) SweepSessions(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(maxIdle); n > 0 {
				zap.L().Info("server: swept idle sessions", zap.Int("removed", n), zap.Int("remaining", s.sessions.Len()))
			}
		}
	}
}
