package assets

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

type AssetRepository interface {
	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	GetAssetByID(ctx context.Context, id string) (Asset, error)
	// GetAssetForUpdate locks the asset row for the duration of the enclosing
	// transaction. Histories are not loaded.
	GetAssetForUpdate(ctx context.Context, id string) (Asset, error)
	UpdateAsset(ctx context.Context, a Asset) (Asset, error)
	// SetCustody flips the custody columns written by assignment open/close.
	SetCustody(ctx context.Context, id string, status AssetStatus, assignedTo *string) error
	UpdateAssetBase(ctx context.Context, id, base string) error
	AppendMaintenanceRecord(ctx context.Context, assetID string, rec MaintenanceRecord) error
	AppendTransferRecord(ctx context.Context, assetID string, rec TransferRecord) error
	DeleteAsset(ctx context.Context, id string) error
	ListAssets(ctx context.Context, filters AssetFilters, limit, offset int) ([]Asset, int64, error)
	GetMetrics(ctx context.Context, base string) (Metrics, error)
}

const assetColumns = `id, asset_id, name, type, category, serial_number, current_base, status,
	condition, purchase_date, purchase_price, supplier, specifications, assigned_to, created_at, updated_at`

type postgresAssetRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &postgresAssetRepository{pool: pool}
}

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.AssetID, &a.Name, &a.Type, &a.Category, &a.SerialNumber, &a.CurrentBase,
		&a.Status, &a.Condition, &a.PurchaseDate, &a.PurchasePrice, &a.Supplier, &a.Specifications,
		&a.AssignedTo, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, apperr.NotFound("asset not found")
		}
		return Asset{}, err
	}
	if a.Specifications == nil {
		a.Specifications = map[string]string{}
	}
	return a, nil
}

func (r *postgresAssetRepository) CreateAsset(ctx context.Context, a Asset) (Asset, error) {
	query := `INSERT INTO assets (id, asset_id, name, type, category, serial_number, current_base, status,
                  condition, purchase_date, purchase_price, supplier, specifications, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
              RETURNING ` + assetColumns

	row := db.From(ctx, r.pool).QueryRow(ctx, query,
		a.ID, a.AssetID, a.Name, a.Type, a.Category, a.SerialNumber, a.CurrentBase, a.Status,
		a.Condition, a.PurchaseDate, a.PurchasePrice, a.Supplier, a.Specifications)

	created, err := scanAsset(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Asset{}, apperr.Conflict("asset id or serial number already exists")
		}
		return Asset{}, err
	}
	return created, nil
}

func (r *postgresAssetRepository) GetAssetByID(ctx context.Context, id string) (Asset, error) {
	q := db.From(ctx, r.pool)

	a, err := scanAsset(q.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id))
	if err != nil {
		return Asset{}, err
	}

	maintRows, err := q.Query(ctx, `SELECT id, date, description, performed_by, cost
              FROM asset_maintenance_history WHERE asset_id = $1 ORDER BY date`, id)
	if err != nil {
		return Asset{}, err
	}
	defer maintRows.Close()
	for maintRows.Next() {
		var rec MaintenanceRecord
		if err := maintRows.Scan(&rec.ID, &rec.Date, &rec.Description, &rec.PerformedBy, &rec.Cost); err != nil {
			return Asset{}, err
		}
		a.MaintenanceHistory = append(a.MaintenanceHistory, rec)
	}
	if err := maintRows.Err(); err != nil {
		return Asset{}, err
	}

	transferRows, err := q.Query(ctx, `SELECT id, from_base, to_base, date, authorized_by, reason
              FROM asset_transfer_history WHERE asset_id = $1 ORDER BY date`, id)
	if err != nil {
		return Asset{}, err
	}
	defer transferRows.Close()
	for transferRows.Next() {
		var rec TransferRecord
		if err := transferRows.Scan(&rec.ID, &rec.FromBase, &rec.ToBase, &rec.Date, &rec.AuthorizedBy, &rec.Reason); err != nil {
			return Asset{}, err
		}
		a.TransferHistory = append(a.TransferHistory, rec)
	}
	if err := transferRows.Err(); err != nil {
		return Asset{}, err
	}

	return a, nil
}

func (r *postgresAssetRepository) GetAssetForUpdate(ctx context.Context, id string) (Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1 FOR UPDATE`
	return scanAsset(db.From(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *postgresAssetRepository) UpdateAsset(ctx context.Context, a Asset) (Asset, error) {
	query := `UPDATE assets
              SET name = $1, type = $2, category = $3, status = $4, condition = $5,
                  specifications = $6, current_base = $7, updated_at = NOW()
              WHERE id = $8
              RETURNING ` + assetColumns

	row := db.From(ctx, r.pool).QueryRow(ctx, query,
		a.Name, a.Type, a.Category, a.Status, a.Condition, a.Specifications, a.CurrentBase, a.ID)
	return scanAsset(row)
}

func (r *postgresAssetRepository) SetCustody(ctx context.Context, id string, status AssetStatus, assignedTo *string) error {
	cmd, err := db.From(ctx, r.pool).Exec(ctx,
		`UPDATE assets SET status = $1, assigned_to = $2, updated_at = NOW() WHERE id = $3`,
		status, assignedTo, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("asset not found")
	}
	return nil
}

func (r *postgresAssetRepository) UpdateAssetBase(ctx context.Context, id, base string) error {
	cmd, err := db.From(ctx, r.pool).Exec(ctx,
		`UPDATE assets SET current_base = $1, updated_at = NOW() WHERE id = $2`, base, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("asset not found")
	}
	return nil
}

func (r *postgresAssetRepository) AppendMaintenanceRecord(ctx context.Context, assetID string, rec MaintenanceRecord) error {
	_, err := db.From(ctx, r.pool).Exec(ctx,
		`INSERT INTO asset_maintenance_history (id, asset_id, date, description, performed_by, cost)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, assetID, rec.Date, rec.Description, rec.PerformedBy, rec.Cost)
	return err
}

func (r *postgresAssetRepository) AppendTransferRecord(ctx context.Context, assetID string, rec TransferRecord) error {
	_, err := db.From(ctx, r.pool).Exec(ctx,
		`INSERT INTO asset_transfer_history (id, asset_id, from_base, to_base, date, authorized_by, reason)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, assetID, rec.FromBase, rec.ToBase, rec.Date, rec.AuthorizedBy, rec.Reason)
	return err
}

// DeleteAsset removes the asset unless a custody record still claims it.
func (r *postgresAssetRepository) DeleteAsset(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.From(ctx, r.pool)

		var claimed bool
		err := q.QueryRow(ctx, `SELECT EXISTS (
                SELECT 1 FROM assignments WHERE asset_id = $1 AND status = 'ACTIVE'
                UNION ALL
                SELECT 1 FROM transfer_assets ta
                    JOIN transfers t ON t.id = ta.transfer_id
                    WHERE ta.asset_id = $1 AND t.status IN ('PENDING', 'APPROVED', 'IN_TRANSIT')
            )`, id).Scan(&claimed)
		if err != nil {
			return err
		}
		if claimed {
			return apperr.Conflict("asset is claimed by an active assignment or open transfer")
		}

		if _, err := q.Exec(ctx, `DELETE FROM asset_maintenance_history WHERE asset_id = $1`, id); err != nil {
			return err
		}
		if _, err := q.Exec(ctx, `DELETE FROM asset_transfer_history WHERE asset_id = $1`, id); err != nil {
			return err
		}

		cmd, err := q.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return apperr.Conflict("asset is referenced by historical custody records")
			}
			return err
		}
		if cmd.RowsAffected() == 0 {
			return apperr.NotFound("asset not found")
		}
		return nil
	})
}

func (r *postgresAssetRepository) ListAssets(ctx context.Context, filters AssetFilters, limit, offset int) ([]Asset, int64, error) {
	whereClauses := []string{}
	args := []any{}
	argPos := 1

	if filters.Type != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}
	if filters.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}
	if filters.Base != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("current_base = $%d", argPos))
		args = append(args, *filters.Base)
		argPos++
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT `+assetColumns+` FROM assets %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereSQL, argPos, argPos+1)
	args = append(args, limit, offset)

	q := db.From(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	assetsList := make([]Asset, 0)
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.AssetID, &a.Name, &a.Type, &a.Category, &a.SerialNumber, &a.CurrentBase,
			&a.Status, &a.Condition, &a.PurchaseDate, &a.PurchasePrice, &a.Supplier, &a.Specifications,
			&a.AssignedTo, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if a.Specifications == nil {
			a.Specifications = map[string]string{}
		}
		assetsList = append(assetsList, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM assets %s", whereSQL)
	countArgs := args[:len(args)-2]

	var total int64
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return assetsList, total, nil
}

func (r *postgresAssetRepository) GetMetrics(ctx context.Context, base string) (Metrics, error) {
	q := db.From(ctx, r.pool)
	m := Metrics{StatusDistribution: map[string]int64{}}

	assetWhere := ""
	assetArgs := []any{}
	if base != "" {
		assetWhere = " WHERE current_base = $1"
		assetArgs = append(assetArgs, base)
	}

	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM assets"+assetWhere, assetArgs...).Scan(&m.TotalAssets); err != nil {
		return Metrics{}, err
	}

	availableQuery := "SELECT COUNT(*) FROM assets WHERE status = 'AVAILABLE'"
	if base != "" {
		availableQuery += " AND current_base = $1"
	}
	if err := q.QueryRow(ctx, availableQuery, assetArgs...).Scan(&m.ActiveAssets); err != nil {
		return Metrics{}, err
	}

	transferQuery := "SELECT COUNT(*) FROM transfers WHERE status = 'PENDING'"
	if base != "" {
		transferQuery += " AND (from_base = $1 OR to_base = $1)"
	}
	if err := q.QueryRow(ctx, transferQuery, assetArgs...).Scan(&m.PendingTransfers); err != nil {
		return Metrics{}, err
	}

	assignmentQuery := "SELECT COUNT(*) FROM assignments WHERE status = 'ACTIVE'"
	if base != "" {
		assignmentQuery += " AND base = $1"
	}
	if err := q.QueryRow(ctx, assignmentQuery, assetArgs...).Scan(&m.ActiveAssignments); err != nil {
		return Metrics{}, err
	}

	rows, err := q.Query(ctx, "SELECT status, COUNT(*) FROM assets"+assetWhere+" GROUP BY status", assetArgs...)
	if err != nil {
		return Metrics{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return Metrics{}, err
		}
		m.StatusDistribution[status] = count
	}
	if err := rows.Err(); err != nil {
		return Metrics{}, err
	}

	return m, nil
}
