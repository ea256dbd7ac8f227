package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gotemper/domain/mcmc"
	"gotemper/internal/errors"
	"gotemper/ports"
)

// ChainRepositoryImpl implements ChainRepository for PostgreSQL
type ChainRepositoryImpl struct {
	db *sqlx.DB
}

// NewChainRepository creates a new PostgreSQL chain repository
func NewChainRepository(db *sqlx.DB) ports.ChainRepository {
	return &ChainRepositoryImpl{db: db}
}

// EnsureSchema creates the run and sample tables when they do not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS mcmc_runs (
			id UUID PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			ndim INT NOT NULL,
			nwalkers INT NOT NULL,
			ntemps INT NOT NULL,
			iterations INT NOT NULL,
			burnin INT NOT NULL,
			acl INT NOT NULL,
			accept_mean DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS mcmc_samples (
			run_id UUID NOT NULL REFERENCES mcmc_runs(id) ON DELETE CASCADE,
			idx INT NOT NULL,
			position DOUBLE PRECISION[] NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
	`)
	if err != nil {
		return errors.StorageError("failed to ensure schema", err)
	}
	return nil
}

// SaveRun stores a finished run and its thinned chain in one transaction
func (r *ChainRepositoryImpl) SaveRun(ctx context.Context, run *mcmc.RunResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mcmc_runs (id, label, ndim, nwalkers, ntemps, iterations, burnin, acl, accept_mean, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.Label, run.Ndim, run.Nwalkers, run.Ntemps, run.Iterations, run.Burnin, run.ACL, run.AcceptMean, run.CreatedAt)
	if err != nil {
		return errors.StorageError("failed to insert run", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO mcmc_samples (run_id, idx, position) VALUES ($1, $2, $3)
	`)
	if err != nil {
		return errors.StorageError("failed to prepare sample insert", err)
	}
	defer stmt.Close()

	for i, row := range run.Samples {
		if _, err := stmt.ExecContext(ctx, run.ID, i, pq.Array(row)); err != nil {
			return errors.StorageError("failed to insert sample", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.StorageError("failed to commit run", err)
	}
	return nil
}

// GetRun loads a stored run and its chain by ID
func (r *ChainRepositoryImpl) GetRun(ctx context.Context, id string) (*mcmc.RunResult, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.InvalidInput("malformed run id")
	}

	var run mcmc.RunResult
	err = r.db.GetContext(ctx, &run, `
		SELECT id, label, ndim, nwalkers, ntemps, iterations, burnin, acl, accept_mean, created_at
		FROM mcmc_runs
		WHERE id = $1
	`, runID)
	if err != nil {
		return nil, errors.StorageError("failed to load run", err)
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT position FROM mcmc_samples WHERE run_id = $1 ORDER BY idx
	`, runID)
	if err != nil {
		return nil, errors.StorageError("failed to load samples", err)
	}
	defer rows.Close()

	for rows.Next() {
		var position pq.Float64Array
		if err := rows.Scan(&position); err != nil {
			return nil, errors.StorageError("failed to scan sample", err)
		}
		run.Samples = append(run.Samples, []float64(position))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("failed to iterate samples", err)
	}
	return &run, nil
}
