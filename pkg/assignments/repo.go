package assignments

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

type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
	// GetAssignmentForUpdate locks the assignment row for the duration of the
	// enclosing transaction.
	GetAssignmentForUpdate(ctx context.Context, id string) (Assignment, error)
	// CloseAssignment writes the closing fields of an assignment.
	CloseAssignment(ctx context.Context, a Assignment) (Assignment, error)
	ListAssignments(ctx context.Context, filters AssignmentFilters, limit, offset int) ([]Assignment, int64, error)
}

const assignmentColumns = `id, assignment_id, asset_id, assigned_to, assigned_by, base, status,
	start_date, end_date, purpose, condition_at_assignment, condition_at_return, notes, return_notes,
	maintenance_required, maintenance_description, maintenance_cost, created_at`

type postgresAssignmentRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &postgresAssignmentRepository{pool: pool}
}

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.AssignmentID, &a.AssetID, &a.AssignedTo, &a.AssignedBy, &a.Base, &a.Status,
		&a.StartDate, &a.EndDate, &a.Purpose, &a.ConditionAtAssignment, &a.ConditionAtReturn, &a.Notes,
		&a.ReturnNotes, &a.MaintenanceRequired, &a.MaintenanceDescription, &a.MaintenanceCost, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, apperr.NotFound("assignment not found")
		}
		return Assignment{}, err
	}
	return a, nil
}

func (r *postgresAssignmentRepository) CreateAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	query := `INSERT INTO assignments (id, assignment_id, asset_id, assigned_to, assigned_by, base, status,
                  start_date, purpose, condition_at_assignment, notes, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
              RETURNING ` + assignmentColumns

	row := db.From(ctx, r.pool).QueryRow(ctx, query,
		a.ID, a.AssignmentID, a.AssetID, a.AssignedTo, a.AssignedBy, a.Base, a.Status,
		a.StartDate, a.Purpose, a.ConditionAtAssignment, a.Notes)

	created, err := scanAssignment(row)
	if err != nil {
		// The partial unique index on (asset_id) WHERE status = 'ACTIVE'
		// backstops the coordinator's claim check.
		if db.IsUniqueViolation(err) {
			return Assignment{}, apperr.Conflict("asset already has an active assignment")
		}
		return Assignment{}, err
	}
	return created, nil
}

func (r *postgresAssignmentRepository) GetAssignmentByID(ctx context.Context, id string) (Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	return scanAssignment(db.From(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *postgresAssignmentRepository) GetAssignmentForUpdate(ctx context.Context, id string) (Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1 FOR UPDATE`
	return scanAssignment(db.From(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *postgresAssignmentRepository) CloseAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	query := `UPDATE assignments
              SET status = $1, end_date = $2, condition_at_return = $3, return_notes = $4,
                  maintenance_required = $5, maintenance_description = $6, maintenance_cost = $7
              WHERE id = $8
              RETURNING ` + assignmentColumns

	row := db.From(ctx, r.pool).QueryRow(ctx, query,
		a.Status, a.EndDate, a.ConditionAtReturn, a.ReturnNotes,
		a.MaintenanceRequired, a.MaintenanceDescription, a.MaintenanceCost, a.ID)
	return scanAssignment(row)
}

func (r *postgresAssignmentRepository) ListAssignments(ctx context.Context, filters AssignmentFilters, limit, offset int) ([]Assignment, int64, error) {
	whereClauses := []string{}
	args := []any{}
	argPos := 1

	if filters.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}
	if filters.Base != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("base = $%d", argPos))
		args = append(args, *filters.Base)
		argPos++
	}
	if filters.AssetID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("asset_id = $%d", argPos))
		args = append(args, *filters.AssetID)
		argPos++
	}
	if filters.AssignedTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("assigned_to = $%d", argPos))
		args = append(args, *filters.AssignedTo)
		argPos++
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT `+assignmentColumns+` FROM assignments %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		whereSQL, argPos, argPos+1)
	args = append(args, limit, offset)

	q := db.From(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]Assignment, 0)
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.AssignmentID, &a.AssetID, &a.AssignedTo, &a.AssignedBy, &a.Base, &a.Status,
			&a.StartDate, &a.EndDate, &a.Purpose, &a.ConditionAtAssignment, &a.ConditionAtReturn, &a.Notes,
			&a.ReturnNotes, &a.MaintenanceRequired, &a.MaintenanceDescription, &a.MaintenanceCost, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM assignments %s", whereSQL)
	countArgs := args[:len(args)-2]

	var total int64
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}
