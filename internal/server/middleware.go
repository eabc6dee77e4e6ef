package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// processTimeWriter stamps X-Process-Time just before the header is sent.
type processTimeWriter struct {
	http.ResponseWriter
	start       time.Time
	status      int
	wroteHeader bool
}

func (w *processTimeWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	elapsed := time.Since(w.start).Seconds()
	w.Header().Set("X-Process-Time", strconv.FormatFloat(elapsed, 'f', 3, 64))
	w.ResponseWriter.WriteHeader(status)
}

func (w *processTimeWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// accessLog logs every request and sets X-Process-Time on the response.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pw := &processTimeWriter{ResponseWriter: w, start: time.Now(), status: http.StatusOK}

		next.ServeHTTP(pw, r)

		fields := []zap.Field{
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", pw.status),
			zap.Duration("elapsed", time.Since(pw.start)),
		}
		switch {
		case pw.status >= 500:
			zap.L().Error("http request", fields...)
		case pw.status >= 400:
			zap.L().Warn("http request", fields...)
		default:
			zap.L().Info("http request", fields...)
		}
	})
}

// rateLimit rejects requests beyond the configured extraction rate.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeDetail(w, http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
