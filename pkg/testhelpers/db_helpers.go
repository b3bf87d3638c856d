package testhelpers

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// uniqueTag keeps fixture rows from colliding with leftovers of earlier runs
// against the same database.
func uniqueTag() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// CreateTestUser inserts a minimal valid user row at the given base and
// returns its ID.
func CreateTestUser(t *testing.T, db *pgxpool.Pool, role, base string) string {
	t.Helper()

	ctx := context.Background()
	username := fmt.Sprintf("test-user-%s", uniqueTag())
	email := fmt.Sprintf("%s@example.com", username)

	id := uuid.NewString()
	_, err := db.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, full_name, role, base, is_active)
         VALUES ($1, $2, $3, 'hash', $4, $5, $6, TRUE)`,
		id, username, email, username, role, base)
	require.NoError(t, err)
	return id
}

// CreateTestAsset inserts an AVAILABLE asset at the given base and returns
// its ID.
func CreateTestAsset(t *testing.T, db *pgxpool.Pool, base string) string {
	t.Helper()

	ctx := context.Background()
	tag := uniqueTag()

	id := uuid.NewString()
	_, err := db.Exec(ctx,
		`INSERT INTO assets (id, asset_id, name, type, category, serial_number, current_base, status,
             condition, purchase_date, purchase_price, supplier)
         VALUES ($1, $2, $3, 'EQUIPMENT', 'Test Gear', $4, $5, 'AVAILABLE', 'GOOD', $6, 100, 'Test Supplier')`,
		id, "TST-"+tag, "test-asset-"+tag, "SN-"+tag, base, time.Now())
	require.NoError(t, err)
	return id
}

// CreateTestAssignment inserts an ACTIVE assignment claiming the given asset
// and returns its ID.
func CreateTestAssignment(t *testing.T, db *pgxpool.Pool, assetID, assignedTo, assignedBy, base string) string {
	t.Helper()

	ctx := context.Background()

	id := uuid.NewString()
	_, err := db.Exec(ctx,
		`INSERT INTO assignments (id, assignment_id, asset_id, assigned_to, assigned_by, base, status,
             start_date, purpose, condition_at_assignment)
         VALUES ($1, $2, $3, $4, $5, $6, 'ACTIVE', $7, 'test duty', 'GOOD')`,
		id, "ASG-"+uniqueTag(), assetID, assignedTo, assignedBy, base, time.Now())
	require.NoError(t, err)
	return id
}

// CreateTestTransfer inserts a transfer in the given status with the asset on
// its manifest and returns the transfer's ID.
func CreateTestTransfer(t *testing.T, db *pgxpool.Pool, assetID, requestedBy, fromBase, toBase, status string) string {
	t.Helper()

	ctx := context.Background()

	id := uuid.NewString()
	_, err := db.Exec(ctx,
		`INSERT INTO transfers (id, transfer_id, from_base, to_base, status, requested_by, reason, priority, scheduled_date)
         VALUES ($1, $2, $3, $4, $5, $6, 'test move', 'MEDIUM', $7)`,
		id, "TRF-"+uniqueTag(), fromBase, toBase, status, requestedBy, time.Now())
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		`INSERT INTO transfer_assets (transfer_id, asset_id, quantity, position) VALUES ($1, $2, 1, 0)`,
		id, assetID)
	require.NoError(t, err)
	return id
}
