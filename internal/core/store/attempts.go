package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/core"
)

// AttemptQuery selects journal rows. Purges require All, Outcome or Before;
// listing with an empty query returns the most recent attempts.
type AttemptQuery struct {
	All     bool
	Outcome core.Outcome
	Before  time.Time
	Limit   int
}

func (q AttemptQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(string(q.Outcome)) != "" {
		return nil
	}
	if !q.Before.IsZero() {
		return nil
	}
	return errors.New("must specify --all, --outcome, or --before")
}

func (q AttemptQuery) whereClause() (string, []any) {
	if q.All {
		return "", nil
	}

	var (
		conds []string
		args  []any
	)
	if outcome := strings.TrimSpace(string(q.Outcome)); outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, outcome)
	}
	if !q.Before.IsZero() {
		conds = append(conds, "started_at < ?")
		args = append(args, q.Before.UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// RecordAttempt appends one attempt to the journal.
func (s *Store) RecordAttempt(ctx context.Context, attempt *core.Attempt) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if attempt == nil {
		return errors.New("attempt is required")
	}
	if strings.TrimSpace(attempt.ID) == "" {
		return errors.New("attempt id is required")
	}

	var statusCode sql.NullInt64
	if attempt.StatusCode != 0 {
		statusCode = sql.NullInt64{Int64: int64(attempt.StatusCode), Valid: true}
	}
	var message sql.NullString
	if attempt.Message != "" {
		message = sql.NullString{String: attempt.Message, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO attempts (id, doc_id, doc_type, product_count, outcome, status_code, message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		attempt.ID,
		attempt.DocID,
		attempt.DocType,
		attempt.ProductCount,
		string(attempt.Outcome),
		statusCode,
		message,
		attempt.StartedAt.UnixMilli(),
		attempt.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns matching attempts, newest first.
func (s *Store) ListAttempts(ctx context.Context, q AttemptQuery) ([]core.Attempt, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := q.whereClause()
	limit := ""
	if q.Limit > 0 {
		limit = "LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, doc_id, doc_type, product_count, outcome, status_code, message, started_at, finished_at
		FROM attempts
		%s
		ORDER BY started_at DESC, id
		%s
	`, where, limit), args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	attempts := []core.Attempt{}
	for rows.Next() {
		var (
			attempt    core.Attempt
			outcome    string
			statusCode sql.NullInt64
			message    sql.NullString
			startedAt  int64
			finishedAt int64
		)
		if err := rows.Scan(
			&attempt.ID,
			&attempt.DocID,
			&attempt.DocType,
			&attempt.ProductCount,
			&outcome,
			&statusCode,
			&message,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempts: %w", err)
		}

		attempt.Outcome = core.Outcome(outcome)
		if statusCode.Valid {
			attempt.StatusCode = int(statusCode.Int64)
		}
		if message.Valid {
			attempt.Message = message.String
		}
		attempt.StartedAt = time.UnixMilli(startedAt).UTC()
		attempt.FinishedAt = time.UnixMilli(finishedAt).UTC()

		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	return attempts, nil
}

// CountAttempts counts matching attempts. Limit is ignored.
func (s *Store) CountAttempts(ctx context.Context, q AttemptQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := q.whereClause()
	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM attempts
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

// PurgeAttempts deletes matching attempts and reports how many were removed.
func (s *Store) PurgeAttempts(ctx context.Context, q AttemptQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := q.Validate(); err != nil {
		return 0, err
	}

	where, args := q.whereClause()
	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM attempts
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("purge attempts: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge attempts: %w", err)
	}
	return affected, nil
}
