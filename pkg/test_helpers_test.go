package pkg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

// countingStore records how often the wrapped store is consulted.
type countingStore struct {
	SessionStore
	gets  int
	lists int
	err   error
}

func (c *countingStore) GetSession(ctx context.Context, mentorID, sessionID string) (SessionRecord, error) {
	c.gets++
	if c.err != nil {
		return SessionRecord{}, c.err
	}
	return c.SessionStore.GetSession(ctx, mentorID, sessionID)
}

func (c *countingStore) GetBreakdown(ctx context.Context, mentorID, sessionID string) (SessionBreakdown, error) {
	c.gets++
	if c.err != nil {
		return SessionBreakdown{}, c.err
	}
	return c.SessionStore.GetBreakdown(ctx, mentorID, sessionID)
}

func (c *countingStore) ListSessions(ctx context.Context, mentorID string, limit int) ([]SessionRecord, error) {
	c.lists++
	if c.err != nil {
		return nil, c.err
	}
	return c.SessionStore.ListSessions(ctx, mentorID, limit)
}

func (c *countingStore) Ping(ctx context.Context) error {
	return c.err
}

func newVideoRequest(t *testing.T, method, mentorID, sessionID string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, "/api/mentor/"+mentorID+"/sessions/"+sessionID+"/video", nil)
	return mux.SetURLVars(req, map[string]string{"mentorId": mentorID, "sessionId": sessionID})
}

func mustPolicy(t *testing.T, origins ...string) CORSPolicy {
	t.Helper()

	policy, err := NewCORSPolicy(origins)
	if err != nil {
		t.Fatalf("build cors policy: %v", err)
	}
	return policy
}

func assertErrorJSON(t *testing.T, payload []byte) {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatalf("expected JSON error, got %v", err)
	}
	if resp.Error == "" {
		t.Fatalf("expected error message")
	}
}
