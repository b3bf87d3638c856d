// Package custody is the single gate for asset custody mutations. Assignment
// and transfer flows claim, release and relocate assets through the
// coordinator, which serializes per-asset work with row locks so two flows can
// never capture the same asset at once.
package custody

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"garrison/pkg/apperr"
	"garrison/pkg/assets"
	"garrison/pkg/db"
)

// AssetStore is the slice of the asset repository the coordinator writes
// through.
type AssetStore interface {
	GetAssetForUpdate(ctx context.Context, id string) (assets.Asset, error)
	SetCustody(ctx context.Context, id string, status assets.AssetStatus, assignedTo *string) error
	UpdateAssetBase(ctx context.Context, id, base string) error
	AppendTransferRecord(ctx context.Context, assetID string, rec assets.TransferRecord) error
}

// ReservationChecker reports whether an open transfer already holds the asset.
type ReservationChecker interface {
	IsReserved(ctx context.Context, assetID string) (bool, error)
}

type Coordinator struct {
	store    AssetStore
	reserved ReservationChecker
	runTx    func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewCoordinator(pool *pgxpool.Pool, store AssetStore) *Coordinator {
	return &Coordinator{
		store:    store,
		reserved: &postgresReservations{pool: pool},
		runTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
	}
}

// InTx runs fn inside a storage transaction. Custody checks and the writes
// that depend on them must share one transaction, or the row locks taken by
// ClaimAsset protect nothing.
func (c *Coordinator) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.runTx(ctx, fn)
}

// ClaimAsset locks the asset row and verifies it is free to be captured:
// status AVAILABLE and no open transfer holding it. The returned asset stays
// locked until the enclosing transaction ends, so a concurrent claim on the
// same asset blocks and then fails its own check.
func (c *Coordinator) ClaimAsset(ctx context.Context, id string) (assets.Asset, error) {
	a, err := c.store.GetAssetForUpdate(ctx, id)
	if err != nil {
		return assets.Asset{}, err
	}

	if a.Status != assets.StatusAvailable {
		return assets.Asset{}, apperr.Conflict("asset %s is not available for custody (status %s)", a.AssetID, a.Status)
	}

	held, err := c.reserved.IsReserved(ctx, a.ID)
	if err != nil {
		return assets.Asset{}, err
	}
	if held {
		return assets.Asset{}, apperr.Conflict("asset %s is reserved by an open transfer", a.AssetID)
	}

	return a, nil
}

// Assign marks a previously claimed asset as held by the assignee.
func (c *Coordinator) Assign(ctx context.Context, assetID, assigneeID string) error {
	return c.store.SetCustody(ctx, assetID, assets.StatusAssigned, &assigneeID)
}

// Release returns an asset from an assignment. Closing as LOST or DAMAGED
// parks the asset in MAINTENANCE; a normal return makes it AVAILABLE again.
func (c *Coordinator) Release(ctx context.Context, assetID string, to assets.AssetStatus) error {
	if to != assets.StatusAvailable && to != assets.StatusMaintenance {
		return apperr.InvalidArgument("cannot release asset into status %s", to)
	}

	a, err := c.store.GetAssetForUpdate(ctx, assetID)
	if err != nil {
		return err
	}
	if a.Status != assets.StatusAssigned {
		log.Printf("CUSTODY ALARM: releasing asset %s with status %s, expected %s", a.AssetID, a.Status, assets.StatusAssigned)
	}

	return c.store.SetCustody(ctx, assetID, to, nil)
}

// Relocate moves an asset to its transfer destination and appends the
// movement to the asset's transfer history.
func (c *Coordinator) Relocate(ctx context.Context, assetID, fromBase string, rec assets.TransferRecord) error {
	a, err := c.store.GetAssetForUpdate(ctx, assetID)
	if err != nil {
		return err
	}
	if a.CurrentBase != fromBase {
		log.Printf("CUSTODY ALARM: asset %s is at %s, transfer expected origin %s", a.AssetID, a.CurrentBase, fromBase)
	}

	if err := c.store.UpdateAssetBase(ctx, assetID, rec.ToBase); err != nil {
		return err
	}
	return c.store.AppendTransferRecord(ctx, assetID, rec)
}
