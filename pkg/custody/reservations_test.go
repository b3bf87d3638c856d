package custody

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"garrison/pkg/testhelpers"
)

func setupCustodyTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL_FOR_TEST")
	if dsn == "" {
		t.Skip("DATABASE_URL_FOR_TEST not set; skipping custody reservation tests")
	}

	ctx := context.Background()
	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresReservations_OpenTransferHoldsAsset(t *testing.T) {
	pool := setupCustodyTestPool(t)
	reservations := &postgresReservations{pool: pool}
	ctx := context.Background()

	requester := testhelpers.CreateTestUser(t, pool, "LOGISTICS_OFFICER", "Alpha Base")

	free := testhelpers.CreateTestAsset(t, pool, "Alpha Base")
	held, err := reservations.IsReserved(ctx, free)
	require.NoError(t, err)
	require.False(t, held)

	for _, status := range []string{"PENDING", "APPROVED", "IN_TRANSIT"} {
		assetID := testhelpers.CreateTestAsset(t, pool, "Alpha Base")
		testhelpers.CreateTestTransfer(t, pool, assetID, requester, "Alpha Base", "Bravo Base", status)

		held, err := reservations.IsReserved(ctx, assetID)
		require.NoError(t, err)
		require.True(t, held, "status %s should hold the asset", status)
	}

	for _, status := range []string{"COMPLETED", "CANCELLED"} {
		assetID := testhelpers.CreateTestAsset(t, pool, "Alpha Base")
		testhelpers.CreateTestTransfer(t, pool, assetID, requester, "Alpha Base", "Bravo Base", status)

		held, err := reservations.IsReserved(ctx, assetID)
		require.NoError(t, err)
		require.False(t, held, "terminal status %s should release the asset", status)
	}
}
