package transfers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"garrison/pkg/apperr"
	"garrison/pkg/assets"
	"garrison/pkg/auth"
	"garrison/pkg/clock"
)

// CustodyCoordinator is the custody gate transfers reserve and relocate
// assets through.
type CustodyCoordinator interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	ClaimAsset(ctx context.Context, id string) (assets.Asset, error)
	Relocate(ctx context.Context, assetID, fromBase string, rec assets.TransferRecord) error
}

// EventSink receives custody feed notifications.
type EventSink interface {
	Publish(event string, payload any)
}

// AlertSender delivers out-of-band notifications for urgent shipments.
type AlertSender interface {
	UrgentTransfer(t Transfer)
}

type CreateTransferInput struct {
	ToBase        string
	Reason        string
	Priority      string
	ScheduledDate time.Time
	Transport     TransportDetails
	Notes         string
	Assets        []TransferAsset
}

type TransferService interface {
	CreateTransfer(ctx context.Context, actor auth.Actor, input CreateTransferInput) (Transfer, error)
	UpdateTransferStatus(ctx context.Context, actor auth.Actor, id, status string) (Transfer, error)
	GetTransferByID(ctx context.Context, actor auth.Actor, id string) (Transfer, error)
	ListTransfers(ctx context.Context, actor auth.Actor, filters TransferFilters, page, limit int) ([]Transfer, int64, error)
}

type transferService struct {
	repo    TransferRepository
	custody CustodyCoordinator
	events  EventSink
	alerts  AlertSender
	clock   clock.Clock
}

func NewTransferService(repo TransferRepository, custody CustodyCoordinator, events EventSink,
	alerts AlertSender, clk clock.Clock) TransferService {
	return &transferService{
		repo:    repo,
		custody: custody,
		events:  events,
		alerts:  alerts,
		clock:   clk,
	}
}

func newTag(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *transferService) CreateTransfer(ctx context.Context, actor auth.Actor, input CreateTransferInput) (Transfer, error) {
	if len(input.Assets) == 0 {
		return Transfer{}, apperr.InvalidArgument("transfer must include at least one asset")
	}
	if input.ToBase == "" || input.ToBase == actor.Base {
		return Transfer{}, apperr.InvalidArgument("transfer destination must be a different base")
	}

	priority := PriorityMedium
	if input.Priority != "" {
		var err error
		priority, err = ParsePriority(input.Priority)
		if err != nil {
			return Transfer{}, err
		}
	}

	scheduled := input.ScheduledDate
	if scheduled.IsZero() {
		scheduled = s.clock.Now()
	}

	var created Transfer
	err := s.custody.InTx(ctx, func(ctx context.Context) error {
		// Every manifest asset is locked in manifest order, which keeps two
		// overlapping transfers from deadlocking against each other only if
		// they list assets consistently; the claim check then rejects the
		// loser outright.
		for _, ta := range input.Assets {
			a, err := s.custody.ClaimAsset(ctx, ta.AssetID)
			if err != nil {
				return err
			}
			if a.CurrentBase != actor.Base {
				return apperr.Conflict("asset %s is at %s, not at origin base %s", a.AssetID, a.CurrentBase, actor.Base)
			}
		}

		var err error
		created, err = s.repo.CreateTransfer(ctx, Transfer{
			ID:            uuid.NewString(),
			TransferID:    newTag("TRF"),
			FromBase:      actor.Base,
			ToBase:        input.ToBase,
			Status:        StatusPending,
			RequestedBy:   actor.ID,
			Reason:        input.Reason,
			Priority:      priority,
			ScheduledDate: scheduled,
			Transport:     input.Transport,
			Notes:         input.Notes,
			Assets:        input.Assets,
		})
		return err
	})
	if err != nil {
		return Transfer{}, err
	}

	s.events.Publish("transfer.requested", created)
	if created.Priority == PriorityUrgent {
		s.alerts.UrgentTransfer(created)
	}
	return created, nil
}

func (s *transferService) UpdateTransferStatus(ctx context.Context, actor auth.Actor, id, status string) (Transfer, error) {
	target, err := ParseTransferStatus(status)
	if err != nil {
		return Transfer{}, err
	}

	var updated Transfer
	err = s.custody.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTransferForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccessEitherBase(t.FromBase, t.ToBase) {
			return apperr.Forbidden("access denied: transfer does not touch your base")
		}
		if !t.Status.CanTransitionTo(target) {
			return apperr.InvalidTransition(string(t.Status), string(target))
		}

		now := s.clock.Now()
		switch target {
		case StatusApproved:
			approver := actor.ID
			t.ApprovedBy = &approver
		case StatusInTransit:
			t.ActualTransferDate = &now
		case StatusCompleted:
			// All manifest assets move in the same transaction; a failure on
			// any of them rolls the whole completion back.
			for _, ta := range t.Assets {
				rec := assets.TransferRecord{
					ID:           uuid.NewString(),
					FromBase:     t.FromBase,
					ToBase:       t.ToBase,
					Date:         now,
					AuthorizedBy: actor.ID,
					Reason:       t.Reason,
				}
				if err := s.custody.Relocate(ctx, ta.AssetID, t.FromBase, rec); err != nil {
					log.Printf("CUSTODY ALARM: transfer %s completion rolled back, asset %s: %v", t.TransferID, ta.AssetID, err)
					return err
				}
			}
		}

		t.Status = target
		updated, err = s.repo.UpdateTransferStatus(ctx, t)
		return err
	})
	if err != nil {
		return Transfer{}, err
	}

	s.events.Publish("transfer.advanced", updated)
	return updated, nil
}

func (s *transferService) GetTransferByID(ctx context.Context, actor auth.Actor, id string) (Transfer, error) {
	t, err := s.repo.GetTransferByID(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if !actor.CanAccessEitherBase(t.FromBase, t.ToBase) {
		return Transfer{}, apperr.Forbidden("access denied: transfer does not touch your base")
	}
	return t, nil
}

func (s *transferService) ListTransfers(ctx context.Context, actor auth.Actor, filters TransferFilters, page, limit int) ([]Transfer, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	if scope := actor.ReadScope(); scope != "" {
		filters.Base = &scope
	}

	offset := (page - 1) * limit
	return s.repo.ListTransfers(ctx, filters, limit, offset)
}
