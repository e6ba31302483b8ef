package schedule

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubkit/clubkit/go/internal/jobs"
	"github.com/clubkit/clubkit/go/internal/sqlutil"
)

// TxRepos bundles the repositories bound to one transaction. Writing an
// occurrence and enqueuing its jobs must commit or fail together.
type TxRepos struct {
	Occurrences OccurrenceStore
	Jobs        jobs.Enqueuer
}

// TxManager runs a function against transaction-bound repositories.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

// PostgresTxManager implements TxManager over a pgx pool.
type PostgresTxManager struct {
	pool *pgxpool.Pool
}

// NewPostgresTxManager creates a TxManager backed by pool.
func NewPostgresTxManager(pool *pgxpool.Pool) *PostgresTxManager {
	return &PostgresTxManager{pool: pool}
}

func (m *PostgresTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	return sqlutil.WithTx(ctx, m.pool, func(tx pgx.Tx) error {
		repos := TxRepos{
			Occurrences: NewRepository(tx),
			Jobs:        jobs.NewRepository(tx),
		}
		return fn(ctx, repos)
	})
}
