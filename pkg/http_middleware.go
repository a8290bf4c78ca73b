package pkg

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

// WrapHandler instruments handlers with metrics and request logging.
func WrapHandler(handlerName string, handler http.Handler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		handler.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		observeHTTPRequest(handlerName, r.Method, status, duration)

		fields := []zap.Field{
			zap.String("handler", handlerName),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		vars := mux.Vars(r)
		if id := vars["mentorId"]; id != "" {
			fields = append(fields, zap.String("mentor_id", id))
		}
		if id := vars["sessionId"]; id != "" {
			fields = append(fields, zap.String("session_id", id))
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			fields = append(fields, zap.String("origin", origin))
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	})
}
