package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"habeat-engine/internal/shared"
)

// Store persists per-attempt generation metrics to SQLite so token spend and
// failure causes can be diagnosed after the fact.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordAttempt saves one model attempt. Implements llm.AttemptRecorder.
func (s *Store) RecordAttempt(meta shared.AttemptMeta) {
	// metrics must never fail a generation; errors are dropped by contract
	_, _ = s.db.ExecContext(context.Background(), `
		INSERT INTO generation_metrics (backend, model, attempt, prompt_tokens, completion_tokens, latency_ms, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.Backend, meta.Model, meta.Attempt,
		meta.Usage.PromptTokens, meta.Usage.CompletionTokens,
		meta.Latency.Milliseconds(), meta.Err, time.Now().UTC())
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalAttempts   int
}

// GetDailyUsage retrieves usage for the last N days.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp) AS day,
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COUNT(*)
		FROM generation_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalPrompt, &u.TotalCompletion, &u.TotalAttempts); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage row: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}
