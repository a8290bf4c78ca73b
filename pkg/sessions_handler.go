package pkg

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxSessionsLimit = 200

// SessionsHandler serves GET /api/mentor/{mentorId}/sessions.
func SessionsHandler(store SessionStore, lookupTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(zap.String("handler", "sessions"))

		mentorID := strings.TrimSpace(mux.Vars(r)["mentorId"])
		if mentorID == "" {
			log.Warn("missing mentorId")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mentorId is required"})
			return
		}

		limit := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				log.Warn("invalid limit", zap.String("limit", raw))
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
				return
			}
			limit = parsed
		}
		if limit > maxSessionsLimit {
			limit = maxSessionsLimit
		}

		ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
		defer cancel()

		records, err := store.ListSessions(ctx, mentorID, limit)
		if err != nil {
			handleLookupError(ctx, w, err, log.With(zap.String("mentor_id", mentorID)))
			return
		}

		resp := SessionsResponse{Sessions: make([]SessionSummary, 0, len(records))}
		for _, rec := range records {
			resp.Sessions = append(resp.Sessions, SessionSummary{
				SessionID:   rec.SessionID,
				MentorID:    rec.MentorID,
				SessionName: rec.SessionName,
				Duration:    rec.Duration,
				VideoURL:    rec.VideoURL,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// BreakdownHandler serves GET /api/mentor/{mentorId}/sessions/{sessionId}/breakdown.
func BreakdownHandler(store SessionStore, lookupTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(zap.String("handler", "breakdown"))

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

		breakdown, err := store.GetBreakdown(ctx, mentorID, sessionID)
		if err != nil {
			handleLookupError(ctx, w, err, log)
			return
		}
		writeJSON(w, http.StatusOK, breakdown)
	}
}

// HealthHandler serves GET /api/health.
func HealthHandler(store SessionStore, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if store != nil {
			if err := store.Ping(ctx); err != nil {
				logger.Warn("session store ping failed", zap.String("handler", "health"), zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})
				return
			}
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
