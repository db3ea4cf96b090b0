package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
	"github.com/questforge/platform-guard/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const rateLimitsTable = "guard.rate_limits"

// RateLimitStore persists fixed-window counters in PostgreSQL. Each
// (limiter, identifier) pair owns one row that is reinitialised in place when
// its window elapses and never deleted. Consume serialises concurrent callers
// for the same pair through a row lock.
type RateLimitStore struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRateLimitStore constructs a store backed by any executor that satisfies pgExecutor.
func NewRateLimitStore(exec pgExecutor) *RateLimitStore {
	return &RateLimitStore{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// EnsureSchema creates the schema and counter table when they do not exist yet.
func (s *RateLimitStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS guard`,
		`CREATE TABLE IF NOT EXISTS guard.rate_limits (
			limiter text NOT NULL,
			identifier text NOT NULL,
			window_start timestamptz NOT NULL,
			count integer NOT NULL,
			PRIMARY KEY (limiter, identifier)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %v", repository.ErrUnavailable, err)
		}
	}

	return nil
}

// Consume applies the fixed-window check for one (identifier, limiter) key.
// The row is locked for the duration of the transaction so check and
// increment act as one unit; a denied request commits without writing.
// FOR UPDATE cannot serialise requests that race to create the row, so the
// first insert tolerates a conflict and falls back to the winner's row.
// Failures to reach the database are reported as repository.ErrUnavailable.
func (s *RateLimitStore) Consume(ctx context.Context, identifier string, cfg domain.LimiterConfig, now time.Time) (domain.RateRecord, bool, error) {
	tx, err := s.exec.Begin(ctx)
	if err != nil {
		return domain.RateRecord{}, false, fmt.Errorf("%w: begin: %v", repository.ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	windowStart, count, found, err := s.lockRow(ctx, tx, identifier, cfg)
	if err != nil {
		return domain.RateRecord{}, false, err
	}

	if !found {
		inserted, insertErr := s.insertFirstHit(ctx, tx, identifier, cfg, now)
		if insertErr != nil {
			return domain.RateRecord{}, false, insertErr
		}
		if inserted {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				return domain.RateRecord{}, false, fmt.Errorf("%w: commit: %v", repository.ErrUnavailable, commitErr)
			}
			return domain.RateRecord{Count: 1, WindowStart: now, ResetAt: now.Add(cfg.Window)}, true, nil
		}

		// A concurrent first request created the row. ON CONFLICT waited for
		// that transaction to commit, so the locked read now finds it.
		windowStart, count, found, err = s.lockRow(ctx, tx, identifier, cfg)
		if err != nil {
			return domain.RateRecord{}, false, err
		}
		if !found {
			return domain.RateRecord{}, false, fmt.Errorf("%w: rate limit row missing after insert conflict", repository.ErrUnavailable)
		}
	}

	rec := domain.RateRecord{
		Count:       count,
		WindowStart: windowStart,
		ResetAt:     windowStart.Add(cfg.Window),
	}

	if rec.Expired(now) {
		rec.Count = 0
		rec.WindowStart = now
		rec.ResetAt = now.Add(cfg.Window)
	}

	allowed := rec.Count < cfg.MaxRequests
	if allowed {
		rec.Count++

		updateSQL, updateArgs, buildErr := s.builder.
			Update(rateLimitsTable).
			Set("window_start", rec.WindowStart).
			Set("count", rec.Count).
			Where(squirrel.Eq{"limiter": cfg.Name}).
			Where(squirrel.Eq{"identifier": identifier}).
			ToSql()
		if buildErr != nil {
			return domain.RateRecord{}, false, fmt.Errorf("build update rate limit sql: %w", buildErr)
		}
		if _, execErr := tx.Exec(ctx, updateSQL, updateArgs...); execErr != nil {
			return domain.RateRecord{}, false, fmt.Errorf("%w: update rate limit: %v", repository.ErrUnavailable, execErr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.RateRecord{}, false, fmt.Errorf("%w: commit: %v", repository.ErrUnavailable, err)
	}

	return rec, allowed, nil
}

// lockRow reads the counter row for (limiter, identifier) under FOR UPDATE.
// A missing row is reported via found=false, not an error.
func (s *RateLimitStore) lockRow(ctx context.Context, tx pgx.Tx, identifier string, cfg domain.LimiterConfig) (windowStart time.Time, count int, found bool, err error) {
	selectSQL, selectArgs, err := s.builder.
		Select("window_start", "count").
		From(rateLimitsTable).
		Where(squirrel.Eq{"limiter": cfg.Name}).
		Where(squirrel.Eq{"identifier": identifier}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("build select rate limit sql: %w", err)
	}

	err = tx.QueryRow(ctx, selectSQL, selectArgs...).Scan(&windowStart, &count)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return time.Time{}, 0, false, nil
	case err != nil:
		return time.Time{}, 0, false, fmt.Errorf("%w: select rate limit: %v", repository.ErrUnavailable, err)
	}

	return windowStart, count, true, nil
}

// insertFirstHit records the first request of a brand-new pair. It reports
// inserted=false when a concurrent transaction created the row first.
func (s *RateLimitStore) insertFirstHit(ctx context.Context, tx pgx.Tx, identifier string, cfg domain.LimiterConfig, now time.Time) (bool, error) {
	insertSQL, insertArgs, err := s.builder.
		Insert(rateLimitsTable).
		Columns("limiter", "identifier", "window_start", "count").
		Values(cfg.Name, identifier, now, 1).
		Suffix("ON CONFLICT (limiter, identifier) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert rate limit sql: %w", err)
	}

	tag, err := tx.Exec(ctx, insertSQL, insertArgs...)
	if err != nil {
		return false, fmt.Errorf("%w: insert rate limit: %v", repository.ErrUnavailable, err)
	}

	return tag.RowsAffected() == 1, nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
