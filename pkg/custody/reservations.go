package custody

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"garrison/pkg/db"
)

type postgresReservations struct {
	pool *pgxpool.Pool
}

// IsReserved reports whether any transfer that has not reached a terminal
// state still lists the asset on its manifest.
func (r *postgresReservations) IsReserved(ctx context.Context, assetID string) (bool, error) {
	var held bool
	err := db.From(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (
            SELECT 1 FROM transfer_assets ta
                JOIN transfers t ON t.id = ta.transfer_id
            WHERE ta.asset_id = $1 AND t.status IN ('PENDING', 'APPROVED', 'IN_TRANSIT')
        )`, assetID).Scan(&held)
	return held, err
}
