package pkg

import (
	"encoding/json"
	"net/http"
	"time"
)

// SessionRecord is a recorded mentoring session as persisted by the session store.
type SessionRecord struct {
	MentorID    string    `json:"mentorId"`
	SessionID   string    `json:"sessionId"`
	VideoURL    string    `json:"videoUrl"`
	SessionName string    `json:"sessionName"`
	Duration    float64   `json:"duration"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// VideoLinkResponse is the body returned by GET /api/mentor/{mentorId}/sessions/{sessionId}/video.
type VideoLinkResponse struct {
	VideoURL    string  `json:"videoUrl"`
	SessionID   string  `json:"sessionId"`
	MentorID    string  `json:"mentorId"`
	SessionName string  `json:"sessionName"`
	Duration    float64 `json:"duration"`
}

// SessionSummary is a single entry of the mentor session listing.
type SessionSummary struct {
	SessionID   string  `json:"sessionId"`
	MentorID    string  `json:"mentorId"`
	SessionName string  `json:"sessionName"`
	Duration    float64 `json:"duration"`
	VideoURL    string  `json:"videoUrl"`
}

// SessionsResponse is the body returned by GET /api/mentor/{mentorId}/sessions.
type SessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// HealthResponse is the body returned by GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type seedFile struct {
	Sessions []seedSession `json:"sessions"`
}

// seedSession is a session record plus the raw breakdown documents stored with it.
type seedSession struct {
	SessionRecord
	Timeline json.RawMessage `json:"timeline,omitempty"`
	Metrics  json.RawMessage `json:"metrics,omitempty"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}
