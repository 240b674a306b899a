package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ankurclub/clever-video-summarizer/internal/domain"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresStore persists state in Postgres. The schema lives in the
// embedded goose migrations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpdateUsage runs fn inside a transaction holding a row lock on identity.
func (s *PostgresStore) UpdateUsage(ctx context.Context, identity string, fn UpdateFunc) (counters domain.UsageCounters, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UsageCounters{}, fmt.Errorf("begin usage tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO usage_counters (identity) VALUES ($1)
		ON CONFLICT (identity) DO NOTHING`, identity); err != nil {
		return domain.UsageCounters{}, fmt.Errorf("ensure usage row: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT monthly_count, daily_count, last_monthly_reset, last_daily_reset
		FROM usage_counters
		WHERE identity = $1
		FOR UPDATE`, identity)
	if err = row.Scan(
		&counters.MonthlyCount,
		&counters.DailyCount,
		&counters.LastMonthlyReset,
		&counters.LastDailyReset,
	); err != nil {
		return domain.UsageCounters{}, fmt.Errorf("lock usage row: %w", err)
	}

	dirty, err := fn(&counters)
	if err != nil {
		return domain.UsageCounters{}, err
	}

	if dirty {
		if _, err = tx.ExecContext(ctx, `
			UPDATE usage_counters
			SET monthly_count = $2,
			    daily_count = $3,
			    last_monthly_reset = $4,
			    last_daily_reset = $5,
			    updated_at = NOW()
			WHERE identity = $1`,
			identity,
			counters.MonthlyCount,
			counters.DailyCount,
			counters.LastMonthlyReset,
			counters.LastDailyReset,
		); err != nil {
			return domain.UsageCounters{}, fmt.Errorf("save usage row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return domain.UsageCounters{}, fmt.Errorf("commit usage tx: %w", err)
	}
	return counters, nil
}

func (s *PostgresStore) PutArtifact(ctx context.Context, a domain.StoredArtifact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, owner_id, kind, content, file_name, byte_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.OwnerID, string(a.Kind), a.Content, a.FileName, a.ByteSize, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, owner string) ([]domain.StoredArtifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, content, file_name, byte_size, created_at
		FROM artifacts
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StoredArtifact, 0)
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetArtifact(ctx context.Context, id string) (domain.StoredArtifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, content, file_name, byte_size, created_at
		FROM artifacts
		WHERE id = $1`, id)

	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredArtifact{}, ErrNotFound
	}
	return a, err
}

func (s *PostgresStore) DeleteArtifact(ctx context.Context, owner, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return false, fmt.Errorf("delete artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete artifact: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(sc scanner) (domain.StoredArtifact, error) {
	var (
		a    domain.StoredArtifact
		kind string
	)
	if err := sc.Scan(&a.ID, &a.OwnerID, &kind, &a.Content, &a.FileName, &a.ByteSize, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StoredArtifact{}, err
		}
		return domain.StoredArtifact{}, fmt.Errorf("scan artifact: %w", err)
	}
	a.Kind = domain.ArtifactKind(kind)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
