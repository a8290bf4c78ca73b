package pkg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectSessionSQL = `SELECT mentor_id, session_id, COALESCE(video_url, ''), COALESCE(session_name, ''),
	COALESCE(duration, 0)::float8, created_at
FROM sessions
WHERE mentor_id = $1 AND session_id = $2`

	listSessionsSQL = `SELECT mentor_id, session_id, COALESCE(video_url, ''), COALESCE(session_name, ''),
	COALESCE(duration, 0)::float8, created_at
FROM sessions
WHERE mentor_id = $1
ORDER BY created_at DESC NULLS LAST, session_id
LIMIT $2`

	breakdownSQL = `SELECT mentor_id, session_id, COALESCE(video_url, ''), COALESCE(session_name, ''),
	COALESCE(duration, 0)::float8, created_at,
	COALESCE(timeline, '{}'::jsonb), COALESCE(metrics, '[]'::jsonb)
FROM sessions
WHERE mentor_id = $1 AND session_id = $2`
)

// PostgresSessionStore reads session rows from the "sessions" table.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionStore opens a connection pool for dsn and pings it.
func NewPostgresSessionStore(ctx context.Context, dsn string) (*PostgresSessionStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if poolCfg.ConnConfig.RuntimeParams == nil {
		poolCfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = "mentorvideo"
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresSessionStore{pool: pool}, nil
}

func (s *PostgresSessionStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *PostgresSessionStore) GetSession(ctx context.Context, mentorID, sessionID string) (SessionRecord, error) {
	start := time.Now()
	rec, err := scanSession(s.pool.QueryRow(ctx, selectSessionSQL, mentorID, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrSessionNotFound
	} else if err != nil {
		err = fmt.Errorf("query session %s: %w", sessionID, err)
	}
	observeStoreRequest("postgres", "get_session", err, time.Since(start))
	return rec, err
}

func (s *PostgresSessionStore) GetBreakdown(ctx context.Context, mentorID, sessionID string) (SessionBreakdown, error) {
	start := time.Now()
	var (
		rec               SessionRecord
		createdAt         *time.Time
		timeline, metrics []byte
	)
	err := s.pool.QueryRow(ctx, breakdownSQL, mentorID, sessionID).Scan(
		&rec.MentorID, &rec.SessionID, &rec.VideoURL, &rec.SessionName, &rec.Duration, &createdAt,
		&timeline, &metrics,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrSessionNotFound
	} else if err != nil {
		err = fmt.Errorf("query breakdown of session %s: %w", sessionID, err)
	}
	observeStoreRequest("postgres", "get_breakdown", err, time.Since(start))
	if err != nil {
		return SessionBreakdown{}, err
	}
	return BuildBreakdown(rec, timeline, metrics), nil
}

func (s *PostgresSessionStore) ListSessions(ctx context.Context, mentorID string, limit int) ([]SessionRecord, error) {
	start := time.Now()
	out, err := s.listSessions(ctx, mentorID, limit)
	observeStoreRequest("postgres", "list_sessions", err, time.Since(start))
	return out, err
}

func (s *PostgresSessionStore) listSessions(ctx context.Context, mentorID string, limit int) ([]SessionRecord, error) {
	// LIMIT NULL returns every row.
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx, listSessionsSQL, mentorID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("query sessions for mentor %s: %w", mentorID, err)
	}
	defer rows.Close()

	out := make([]SessionRecord, 0)
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions for mentor %s: %w", mentorID, err)
	}
	return out, nil
}

func (s *PostgresSessionStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanSession(row pgx.Row) (SessionRecord, error) {
	var (
		rec       SessionRecord
		createdAt *time.Time
	)
	if err := row.Scan(&rec.MentorID, &rec.SessionID, &rec.VideoURL, &rec.SessionName, &rec.Duration, &createdAt); err != nil {
		return SessionRecord{}, err
	}
	if createdAt != nil {
		rec.CreatedAt = createdAt.UTC()
	}
	return rec, nil
}
