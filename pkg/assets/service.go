package assets

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"garrison/pkg/apperr"
	"garrison/pkg/auth"
	"garrison/pkg/clock"
)

// TxRunner runs a function inside a storage transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CreateAssetInput struct {
	AssetID        string
	Name           string
	Type           string
	Category       string
	SerialNumber   string
	CurrentBase    string
	Status         string
	Condition      string
	PurchaseDate   time.Time
	PurchasePrice  float64
	Supplier       string
	Specifications map[string]string
}

// MaintenanceEntry is a maintenance-history record supplied through update.
type MaintenanceEntry struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	PerformedBy string    `json:"performedBy"`
	Cost        float64   `json:"cost"`
}

// UpdateAssetInput carries the allow-listed mutable fields. Nil means
// unchanged. MaintenanceEntries are appended, never replaced.
type UpdateAssetInput struct {
	Name               *string
	Type               *string
	Category           *string
	Status             *string
	Condition          *string
	Specifications     map[string]string
	CurrentBase        *string
	MaintenanceEntries []MaintenanceEntry
}

type AssetService interface {
	CreateAsset(ctx context.Context, actor auth.Actor, input CreateAssetInput) (Asset, error)
	UpdateAsset(ctx context.Context, actor auth.Actor, id string, input UpdateAssetInput) (Asset, error)
	DeleteAsset(ctx context.Context, actor auth.Actor, id string) error
	GetAssetByID(ctx context.Context, actor auth.Actor, id string) (Asset, error)
	ListAssets(ctx context.Context, actor auth.Actor, filters AssetFilters, page, limit int) ([]Asset, int64, error)
	GetMetrics(ctx context.Context, actor auth.Actor) (Metrics, error)
}

type assetService struct {
	repo  AssetRepository
	tx    TxRunner
	clock clock.Clock
}

func NewAssetService(repo AssetRepository, tx TxRunner, clk clock.Clock) AssetService {
	return &assetService{repo: repo, tx: tx, clock: clk}
}

func (s *assetService) CreateAsset(ctx context.Context, actor auth.Actor, input CreateAssetInput) (Asset, error) {
	assetType, err := ParseAssetType(input.Type)
	if err != nil {
		return Asset{}, err
	}
	condition, err := ParseCondition(input.Condition)
	if err != nil {
		return Asset{}, err
	}

	status := StatusAvailable
	if input.Status != "" {
		status, err = ParseAssetStatus(input.Status)
		if err != nil {
			return Asset{}, err
		}
	}

	// Admins may register assets at any base; everyone else creates at home.
	base := actor.Base
	if actor.IsAdmin() {
		base = input.CurrentBase
	}
	if base == "" {
		return Asset{}, apperr.InvalidArgument("base is required for asset creation")
	}

	specs := input.Specifications
	if specs == nil {
		specs = map[string]string{}
	}

	return s.repo.CreateAsset(ctx, Asset{
		ID:             uuid.NewString(),
		AssetID:        input.AssetID,
		Name:           input.Name,
		Type:           assetType,
		Category:       input.Category,
		SerialNumber:   input.SerialNumber,
		CurrentBase:    base,
		Status:         status,
		Condition:      condition,
		PurchaseDate:   input.PurchaseDate,
		PurchasePrice:  input.PurchasePrice,
		Supplier:       input.Supplier,
		Specifications: specs,
	})
}

func (s *assetService) UpdateAsset(ctx context.Context, actor auth.Actor, id string, input UpdateAssetInput) (Asset, error) {
	var updated Asset
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetAssetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if !actor.CanAccessBase(a.CurrentBase) {
			return apperr.Forbidden("access denied: asset belongs to different base")
		}
		if input.CurrentBase != nil && !actor.IsAdmin() {
			return apperr.Forbidden("access denied: cannot change asset base")
		}

		if input.Name != nil {
			a.Name = *input.Name
		}
		if input.Type != nil {
			assetType, err := ParseAssetType(*input.Type)
			if err != nil {
				return err
			}
			a.Type = assetType
		}
		if input.Category != nil {
			a.Category = *input.Category
		}
		if input.Condition != nil {
			condition, err := ParseCondition(*input.Condition)
			if err != nil {
				return err
			}
			a.Condition = condition
		}
		if input.Specifications != nil {
			a.Specifications = input.Specifications
		}
		if input.CurrentBase != nil {
			a.CurrentBase = *input.CurrentBase
		}
		if input.Status != nil {
			status, err := ParseAssetStatus(*input.Status)
			if err != nil {
				return err
			}
			if status != a.Status {
				// Escape hatch: direct status writes skip the custody
				// coordinator, so every one of them is flagged for audit.
				// Writes that the status machine would never produce get the
				// louder alarm prefix.
				if a.Status.CanTransitionTo(status) {
					log.Printf("CUSTODY AUDIT: direct status write on asset %s (%s -> %s) by %s", a.AssetID, a.Status, status, actor.ID)
				} else {
					log.Printf("CUSTODY ALARM: direct status write on asset %s bypasses the status machine (%s -> %s) by %s", a.AssetID, a.Status, status, actor.ID)
				}
				a.Status = status
			}
		}

		for _, entry := range input.MaintenanceEntries {
			date := entry.Date
			if date.IsZero() {
				date = s.clock.Now()
			}
			rec := MaintenanceRecord{
				ID:          uuid.NewString(),
				Date:        date,
				Description: entry.Description,
				PerformedBy: entry.PerformedBy,
				Cost:        entry.Cost,
			}
			if rec.PerformedBy == "" {
				rec.PerformedBy = actor.ID
			}
			if err := s.repo.AppendMaintenanceRecord(ctx, a.ID, rec); err != nil {
				return err
			}
		}

		updated, err = s.repo.UpdateAsset(ctx, a)
		return err
	})
	if err != nil {
		return Asset{}, err
	}
	return updated, nil
}

func (s *assetService) DeleteAsset(ctx context.Context, actor auth.Actor, id string) error {
	a, err := s.repo.GetAssetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanAccessBase(a.CurrentBase) {
		return apperr.Forbidden("access denied: asset belongs to different base")
	}
	return s.repo.DeleteAsset(ctx, id)
}

func (s *assetService) GetAssetByID(ctx context.Context, actor auth.Actor, id string) (Asset, error) {
	a, err := s.repo.GetAssetByID(ctx, id)
	if err != nil {
		return Asset{}, err
	}
	if !actor.CanAccessBase(a.CurrentBase) {
		return Asset{}, apperr.Forbidden("access denied: asset belongs to different base")
	}
	return a, nil
}

func (s *assetService) ListAssets(ctx context.Context, actor auth.Actor, filters AssetFilters, page, limit int) ([]Asset, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	// Non-admin reads are always confined to the actor's home base.
	if scope := actor.ReadScope(); scope != "" {
		filters.Base = &scope
	}

	offset := (page - 1) * limit
	return s.repo.ListAssets(ctx, filters, limit, offset)
}

func (s *assetService) GetMetrics(ctx context.Context, actor auth.Actor) (Metrics, error) {
	return s.repo.GetMetrics(ctx, actor.ReadScope())
}
