package pkg

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const defaultLookupTimeout = 5 * time.Second

// VideoHandler serves /api/mentor/{mentorId}/sessions/{sessionId}/video.
// The stored media URL is returned in the JSON body; the handler never redirects.
func VideoHandler(store SessionStore, policy CORSPolicy, lookupTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(zap.String("handler", "video"))
		policy.writeVideoCORSHeaders(w, r)

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
			return
		case http.MethodGet:
		default:
			log.Warn("method not allowed", zap.String("method", r.Method))
			w.Header().Set("Allow", videoAllowMethods)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}

		vars := mux.Vars(r)
		mentorID := strings.TrimSpace(vars["mentorId"])
		sessionID := strings.TrimSpace(vars["sessionId"])
		if mentorID == "" || sessionID == "" {
			log.Warn("missing path parameters")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mentorId and sessionId are required"})
			return
		}
		log = log.With(zap.String("mentor_id", mentorID), zap.String("session_id", sessionID))

		ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
		defer cancel()

		resp, err := ResolveVideo(ctx, store, mentorID, sessionID)
		if err != nil {
			handleLookupError(ctx, w, err, log)
			return
		}

		log.Debug("video link resolved")
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleLookupError(ctx context.Context, w http.ResponseWriter, err error, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case errors.Is(err, ErrSessionNotFound):
		logger.Warn("session not found")
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	case errors.Is(err, ErrVideoNotAttached):
		logger.Warn("session has no video")
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no video attached to this session"})
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Warn("session lookup timed out")
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "request timed out"})
	default:
		logger.Error("session lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to resolve video"})
	}
}
