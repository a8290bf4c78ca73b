package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func newSessionsRequest(mentorID, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/mentor/"+mentorID+"/sessions"+query, nil)
	return mux.SetURLVars(req, map[string]string{"mentorId": mentorID})
}

func TestSessionsHandlerListsNewestFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(
		SessionRecord{MentorID: "m1", SessionID: "old", VideoURL: "https://bucket.example/old.mp4", CreatedAt: base},
		SessionRecord{MentorID: "m1", SessionID: "new", VideoURL: "https://bucket.example/new.mp4", CreatedAt: base.Add(time.Hour), Duration: 60},
		SessionRecord{MentorID: "m2", SessionID: "other", CreatedAt: base.Add(2 * time.Hour)},
	)
	handler := SessionsHandler(store, time.Second, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newSessionsRequest("m1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp SessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(resp.Sessions))
	}
	if resp.Sessions[0].SessionID != "new" || resp.Sessions[1].SessionID != "old" {
		t.Fatalf("unexpected order: %+v", resp.Sessions)
	}
	if resp.Sessions[0].Duration != 60 {
		t.Fatalf("unexpected duration: %v", resp.Sessions[0].Duration)
	}
}

func TestSessionsHandlerLimit(t *testing.T) {
	store := NewMemorySessionStore(
		SessionRecord{MentorID: "m1", SessionID: "a"},
		SessionRecord{MentorID: "m1", SessionID: "b"},
		SessionRecord{MentorID: "m1", SessionID: "c"},
	)
	handler := SessionsHandler(store, time.Second, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newSessionsRequest("m1", "?limit=2"))

	var resp SessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(resp.Sessions))
	}
}

func TestSessionsHandlerInvalidLimit(t *testing.T) {
	handler := SessionsHandler(NewMemorySessionStore(), time.Second, zap.NewNop())

	for _, query := range []string{"?limit=abc", "?limit=0", "?limit=-3"} {
		t.Run(query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newSessionsRequest("m1", query))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			assertErrorJSON(t, rec.Body.Bytes())
		})
	}
}

func TestSessionsHandlerEmptyList(t *testing.T) {
	handler := SessionsHandler(NewMemorySessionStore(), time.Second, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newSessionsRequest("m1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := rec.Body.String(); got != "{\"sessions\":[]}\n" {
		t.Fatalf("expected empty sessions array, got %q", got)
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	store := &countingStore{SessionStore: NewMemorySessionStore(), err: errors.New("no reachable servers")}
	handler := HealthHandler(store, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Fatalf("expected degraded status, got %q", resp.Status)
	}
}

func newBreakdownRequest(mentorID, sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/mentor/"+mentorID+"/sessions/"+sessionID+"/breakdown", nil)
	return mux.SetURLVars(req, map[string]string{"mentorId": mentorID, "sessionId": sessionID})
}

func TestBreakdownHandler(t *testing.T) {
	store := NewMemorySessionStore(SessionRecord{MentorID: "m1", SessionID: "s1", VideoURL: "https://bucket.example/s1.mp4", Duration: 300})
	handler := BreakdownHandler(store, time.Second, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newBreakdownRequest("m1", "s1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var resp SessionBreakdown
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "s1" || resp.SessionName != "Session s1" || resp.Duration != 300 {
		t.Fatalf("unexpected breakdown: %+v", resp)
	}
	if resp.Timeline.Audio == nil || resp.Metrics == nil {
		t.Fatalf("expected empty arrays, got %+v", resp)
	}
}

func TestBreakdownHandlerErrors(t *testing.T) {
	store := NewMemorySessionStore(SessionRecord{MentorID: "m1", SessionID: "s1"})

	tests := []struct {
		name      string
		store     SessionStore
		mentorID  string
		sessionID string
		status    int
	}{
		{name: "unknown session", store: store, mentorID: "m1", sessionID: "nope", status: http.StatusNotFound},
		{name: "other mentor", store: store, mentorID: "m2", sessionID: "s1", status: http.StatusNotFound},
		{name: "blank ids", store: store, mentorID: "", sessionID: "s1", status: http.StatusBadRequest},
		{name: "store failure", store: &countingStore{SessionStore: store, err: errors.New("connection reset")}, mentorID: "m1", sessionID: "s1", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BreakdownHandler(tt.store, time.Second, zap.NewNop())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newBreakdownRequest(tt.mentorID, tt.sessionID))

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			assertErrorJSON(t, rec.Body.Bytes())
		})
	}
}
