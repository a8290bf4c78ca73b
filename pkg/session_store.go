package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrVideoNotAttached = errors.New("no video attached to session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// SessionStore is the read-only view of the external session store.
type SessionStore interface {
	// GetSession returns the record matching both ids or ErrSessionNotFound.
	GetSession(ctx context.Context, mentorID, sessionID string) (SessionRecord, error)
	// GetBreakdown returns the session with its timeline and metrics, or ErrSessionNotFound.
	GetBreakdown(ctx context.Context, mentorID, sessionID string) (SessionBreakdown, error)
	// ListSessions returns a mentor's sessions, newest first. limit <= 0 means no limit.
	ListSessions(ctx context.Context, mentorID string, limit int) ([]SessionRecord, error)
	Ping(ctx context.Context) error
}

// ResolveVideo looks up a session and returns its stored video URL untouched.
func ResolveVideo(ctx context.Context, store SessionStore, mentorID, sessionID string) (VideoLinkResponse, error) {
	if store == nil {
		return VideoLinkResponse{}, ErrStoreUnavailable
	}
	rec, err := store.GetSession(ctx, mentorID, sessionID)
	if err != nil {
		return VideoLinkResponse{}, err
	}
	if rec.VideoURL == "" {
		return VideoLinkResponse{}, ErrVideoNotAttached
	}
	return VideoLinkResponse{
		VideoURL:    rec.VideoURL,
		SessionID:   sessionID,
		MentorID:    mentorID,
		SessionName: rec.SessionName,
		Duration:    rec.Duration,
	}, nil
}

// MemorySessionStore keeps session records in memory. It backs tests and the
// "memory" store mode.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]seedSession
}

func NewMemorySessionStore(records ...SessionRecord) *MemorySessionStore {
	s := &MemorySessionStore{sessions: make(map[string]seedSession, len(records))}
	for _, rec := range records {
		s.Put(rec)
	}
	return s
}

// LoadMemorySessionStore reads a {"sessions": [...]} JSON file into a new store.
func LoadMemorySessionStore(path string) (*MemorySessionStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	store := NewMemorySessionStore()
	for i, entry := range seed.Sessions {
		if strings.TrimSpace(entry.MentorID) == "" || strings.TrimSpace(entry.SessionID) == "" {
			return nil, fmt.Errorf("seed session %d: mentorId and sessionId are required", i)
		}
		store.put(entry)
	}
	return store, nil
}

// Put inserts or replaces a record. A replaced record loses its timeline and metrics.
func (s *MemorySessionStore) Put(rec SessionRecord) {
	s.put(seedSession{SessionRecord: rec})
}

func (s *MemorySessionStore) put(entry seedSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[memoryKey(entry.MentorID, entry.SessionID)] = entry
}

func (s *MemorySessionStore) get(mentorID, sessionID string) (seedSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[memoryKey(mentorID, sessionID)]
	return entry, ok
}

func (s *MemorySessionStore) GetSession(ctx context.Context, mentorID, sessionID string) (SessionRecord, error) {
	start := time.Now()
	entry, ok := s.get(mentorID, sessionID)

	var err error
	if !ok {
		err = ErrSessionNotFound
	}
	observeStoreRequest("memory", "get_session", err, time.Since(start))
	return entry.SessionRecord, err
}

func (s *MemorySessionStore) GetBreakdown(ctx context.Context, mentorID, sessionID string) (SessionBreakdown, error) {
	start := time.Now()
	entry, ok := s.get(mentorID, sessionID)
	if !ok {
		observeStoreRequest("memory", "get_breakdown", ErrSessionNotFound, time.Since(start))
		return SessionBreakdown{}, ErrSessionNotFound
	}
	observeStoreRequest("memory", "get_breakdown", nil, time.Since(start))
	return BuildBreakdown(entry.SessionRecord, entry.Timeline, entry.Metrics), nil
}

func (s *MemorySessionStore) ListSessions(ctx context.Context, mentorID string, limit int) ([]SessionRecord, error) {
	start := time.Now()
	s.mu.RLock()
	out := make([]SessionRecord, 0)
	for _, entry := range s.sessions {
		if entry.MentorID == mentorID {
			out = append(out, entry.SessionRecord)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	observeStoreRequest("memory", "list_sessions", nil, time.Since(start))
	return out, nil
}

func (s *MemorySessionStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func memoryKey(mentorID, sessionID string) string {
	return mentorID + "\x00" + sessionID
}
