package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030202)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS query_events (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	matched_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	similarity_scores JSONB NOT NULL DEFAULT '[]'::jsonb,
	latency_ms BIGINT NOT NULL,
	session_id TEXT,
	query_type TEXT,
	from_cache BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_events_created_at ON query_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_query_events_session ON query_events(session_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// InsertEvent is idempotent on the event id so queue redeliveries do not
// produce duplicate rows.
func (r *AnalyticsRepository) InsertEvent(ctx context.Context, event domain.AnalyticsEvent) error {
	matchedJSON, err := json.Marshal(event.MatchedIDs)
	if err != nil {
		return fmt.Errorf("marshal matched ids: %w", err)
	}
	scoresJSON, err := json.Marshal(event.SimilarityScores)
	if err != nil {
		return fmt.Errorf("marshal similarity scores: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_events (id, query, matched_ids, similarity_scores, latency_ms, session_id, query_type, from_cache, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING
`,
		event.ID, event.Query, matchedJSON, scoresJSON, event.LatencyMs,
		event.SessionID, string(event.QueryType), event.FromCache, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert query event: %w", err)
	}
	return nil
}
