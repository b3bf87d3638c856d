package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"garrison/pkg/apperr"
	"garrison/pkg/db"
)

type TransferRepository interface {
	// CreateTransfer inserts the transfer and its manifest rows. Must run
	// inside the caller's transaction.
	CreateTransfer(ctx context.Context, t Transfer) (Transfer, error)
	GetTransferByID(ctx context.Context, id string) (Transfer, error)
	// GetTransferForUpdate locks the transfer row for the duration of the
	// enclosing transaction. The manifest is loaded as well.
	GetTransferForUpdate(ctx context.Context, id string) (Transfer, error)
	// UpdateTransferStatus writes status, approver and actual transfer date.
	UpdateTransferStatus(ctx context.Context, t Transfer) (Transfer, error)
	ListTransfers(ctx context.Context, filters TransferFilters, limit, offset int) ([]Transfer, int64, error)
}

const transferColumns = `id, transfer_id, from_base, to_base, status, requested_by, approved_by, reason,
	priority, scheduled_date, actual_transfer_date, transport_method, transport_vehicle_id,
	transport_driver, transport_escort, notes, created_at`

type postgresTransferRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTransferRepository(pool *pgxpool.Pool) TransferRepository {
	return &postgresTransferRepository{pool: pool}
}

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	err := row.Scan(&t.ID, &t.TransferID, &t.FromBase, &t.ToBase, &t.Status, &t.RequestedBy, &t.ApprovedBy,
		&t.Reason, &t.Priority, &t.ScheduledDate, &t.ActualTransferDate, &t.Transport.Method,
		&t.Transport.VehicleID, &t.Transport.Driver, &t.Transport.Escort, &t.Notes, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, apperr.NotFound("transfer not found")
		}
		return Transfer{}, err
	}
	return t, nil
}

func (r *postgresTransferRepository) loadManifest(ctx context.Context, t *Transfer) error {
	rows, err := db.From(ctx, r.pool).Query(ctx,
		`SELECT asset_id, quantity FROM transfer_assets WHERE transfer_id = $1 ORDER BY position`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	t.Assets = make([]TransferAsset, 0)
	for rows.Next() {
		var ta TransferAsset
		if err := rows.Scan(&ta.AssetID, &ta.Quantity); err != nil {
			return err
		}
		t.Assets = append(t.Assets, ta)
	}
	return rows.Err()
}

func (r *postgresTransferRepository) CreateTransfer(ctx context.Context, t Transfer) (Transfer, error) {
	query := `INSERT INTO transfers (id, transfer_id, from_base, to_base, status, requested_by, reason,
                  priority, scheduled_date, transport_method, transport_vehicle_id, transport_driver,
                  transport_escort, notes, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
              RETURNING ` + transferColumns

	q := db.From(ctx, r.pool)
	row := q.QueryRow(ctx, query,
		t.ID, t.TransferID, t.FromBase, t.ToBase, t.Status, t.RequestedBy, t.Reason,
		t.Priority, t.ScheduledDate, t.Transport.Method, t.Transport.VehicleID,
		t.Transport.Driver, t.Transport.Escort, t.Notes)

	created, err := scanTransfer(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Transfer{}, apperr.Conflict("transfer id already exists")
		}
		return Transfer{}, err
	}

	for i, ta := range t.Assets {
		quantity := ta.Quantity
		if quantity < 1 {
			quantity = 1
		}
		_, err := q.Exec(ctx,
			`INSERT INTO transfer_assets (transfer_id, asset_id, quantity, position) VALUES ($1, $2, $3, $4)`,
			created.ID, ta.AssetID, quantity, i)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return Transfer{}, apperr.Conflict("asset listed twice on transfer manifest")
			}
			return Transfer{}, err
		}
	}
	created.Assets = t.Assets

	return created, nil
}

func (r *postgresTransferRepository) GetTransferByID(ctx context.Context, id string) (Transfer, error) {
	t, err := scanTransfer(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id))
	if err != nil {
		return Transfer{}, err
	}
	if err := r.loadManifest(ctx, &t); err != nil {
		return Transfer{}, err
	}
	return t, nil
}

func (r *postgresTransferRepository) GetTransferForUpdate(ctx context.Context, id string) (Transfer, error) {
	t, err := scanTransfer(db.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Transfer{}, err
	}
	if err := r.loadManifest(ctx, &t); err != nil {
		return Transfer{}, err
	}
	return t, nil
}

func (r *postgresTransferRepository) UpdateTransferStatus(ctx context.Context, t Transfer) (Transfer, error) {
	query := `UPDATE transfers
              SET status = $1, approved_by = $2, actual_transfer_date = $3
              WHERE id = $4
              RETURNING ` + transferColumns

	updated, err := scanTransfer(db.From(ctx, r.pool).QueryRow(ctx, query,
		t.Status, t.ApprovedBy, t.ActualTransferDate, t.ID))
	if err != nil {
		return Transfer{}, err
	}
	updated.Assets = t.Assets
	return updated, nil
}

func (r *postgresTransferRepository) ListTransfers(ctx context.Context, filters TransferFilters, limit, offset int) ([]Transfer, int64, error) {
	whereClauses := []string{}
	args := []any{}
	argPos := 1

	if filters.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}
	if filters.Priority != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("priority = $%d", argPos))
		args = append(args, *filters.Priority)
		argPos++
	}
	if filters.Base != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("(from_base = $%d OR to_base = $%d)", argPos, argPos))
		args = append(args, *filters.Base)
		argPos++
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT `+transferColumns+` FROM transfers %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereSQL, argPos, argPos+1)
	args = append(args, limit, offset)

	q := db.From(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]Transfer, 0)
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.ID, &t.TransferID, &t.FromBase, &t.ToBase, &t.Status, &t.RequestedBy, &t.ApprovedBy,
			&t.Reason, &t.Priority, &t.ScheduledDate, &t.ActualTransferDate, &t.Transport.Method,
			&t.Transport.VehicleID, &t.Transport.Driver, &t.Transport.Escort, &t.Notes, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range list {
		if err := r.loadManifest(ctx, &list[i]); err != nil {
			return nil, 0, err
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transfers %s", whereSQL)
	countArgs := args[:len(args)-2]

	var total int64
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}
