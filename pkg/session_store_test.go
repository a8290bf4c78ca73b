package pkg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVideoDefaults(t *testing.T) {
	store := NewMemorySessionStore(SessionRecord{MentorID: "m1", SessionID: "s1", VideoURL: "https://bucket.example/s1.mp4"})

	resp, err := ResolveVideo(context.Background(), store, "m1", "s1")
	require.NoError(t, err)
	assert.Equal(t, VideoLinkResponse{
		VideoURL:    "https://bucket.example/s1.mp4",
		SessionID:   "s1",
		MentorID:    "m1",
		SessionName: "",
		Duration:    0,
	}, resp)
}

func TestResolveVideoErrors(t *testing.T) {
	store := NewMemorySessionStore(SessionRecord{MentorID: "m1", SessionID: "bare"})

	_, err := ResolveVideo(context.Background(), store, "m1", "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound), "got %v", err)

	_, err = ResolveVideo(context.Background(), store, "m1", "bare")
	assert.True(t, errors.Is(err, ErrVideoNotAttached), "got %v", err)

	_, err = ResolveVideo(context.Background(), nil, "m1", "bare")
	assert.True(t, errors.Is(err, ErrStoreUnavailable), "got %v", err)
}

func TestMemorySessionStorePutReplaces(t *testing.T) {
	store := NewMemorySessionStore(SessionRecord{MentorID: "m1", SessionID: "s1", VideoURL: "https://a.example/1.mp4"})
	store.Put(SessionRecord{MentorID: "m1", SessionID: "s1", VideoURL: "https://a.example/2.mp4"})

	rec, err := store.GetSession(context.Background(), "m1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/2.mp4", rec.VideoURL)
}

func TestLoadMemorySessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	seed := `{"sessions":[
		{"mentorId":"m1","sessionId":"s1","videoUrl":"https://bucket.example/s1.mp4","sessionName":"Recursion","duration":95.5},
		{"mentorId":"m1","sessionId":"s2"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	store, err := LoadMemorySessionStore(path)
	require.NoError(t, err)

	rec, err := store.GetSession(context.Background(), "m1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Recursion", rec.SessionName)
	assert.Equal(t, 95.5, rec.Duration)

	list, err := store.ListSessions(context.Background(), "m1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemorySessionStoreBreakdownFromSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	seed := `{"sessions":[
		{"mentorId":"m1","sessionId":"s1","sessionName":"Heaps",
			"timeline":{"transcript":[{"start":0,"end":50,"text":"heaps are trees"}]},
			"metrics":[{"name":"Clarity","score":77}]},
		{"mentorId":"m1","sessionId":"s2"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	store, err := LoadMemorySessionStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	bd, err := store.GetBreakdown(ctx, "m1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Heaps", bd.SessionName)
	assert.Equal(t, float64(50), bd.Duration)
	require.Len(t, bd.Timeline.Transcript, 1)
	require.Len(t, bd.Metrics, 1)
	assert.Equal(t, 77, bd.Metrics[0].Score)

	bd, err = store.GetBreakdown(ctx, "m1", "s2")
	require.NoError(t, err)
	assert.Empty(t, bd.Timeline.Transcript)
	assert.Empty(t, bd.Metrics)

	_, err = store.GetBreakdown(ctx, "m2", "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	store.Put(SessionRecord{MentorID: "m1", SessionID: "s1", SessionName: "Heaps"})
	bd, err = store.GetBreakdown(ctx, "m1", "s1")
	require.NoError(t, err)
	assert.Empty(t, bd.Metrics)
}

func TestLoadMemorySessionStoreRejectsBadSeed(t *testing.T) {
	dir := t.TempDir()

	missingIDs := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missingIDs, []byte(`{"sessions":[{"videoUrl":"https://x.example/a.mp4"}]}`), 0o600))
	_, err := LoadMemorySessionStore(missingIDs)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{`), 0o600))
	_, err = LoadMemorySessionStore(garbage)
	assert.Error(t, err)

	_, err = LoadMemorySessionStore(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)
}
