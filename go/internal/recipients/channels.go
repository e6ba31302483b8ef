package recipients

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/internal/sqlutil"
)

// PostgresChannelDirectory reads the push channel registrations written by
// the device registration service. This side only ever reads it.
type PostgresChannelDirectory struct {
	db sqlutil.DBTX
}

// NewPostgresChannelDirectory creates a channel directory over db.
func NewPostgresChannelDirectory(db sqlutil.DBTX) *PostgresChannelDirectory {
	return &PostgresChannelDirectory{db: db}
}

// FilterWithChannel returns the subset of userIDs that have at least one
// registered notification channel.
func (d *PostgresChannelDirectory) FilterWithChannel(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	const query = `
SELECT DISTINCT user_id FROM push_channels WHERE user_id = ANY($1)`

	rows, err := d.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query push channels: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan push channel row: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read push channels: %w", err)
	}
	return out, nil
}
