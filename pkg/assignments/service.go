package assignments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"garrison/pkg/apperr"
	"garrison/pkg/assets"
	"garrison/pkg/auth"
	"garrison/pkg/clock"
	"garrison/pkg/users"
)

// CustodyCoordinator is the custody gate assignments capture and release
// assets through.
type CustodyCoordinator interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	ClaimAsset(ctx context.Context, id string) (assets.Asset, error)
	Assign(ctx context.Context, assetID, assigneeID string) error
	Release(ctx context.Context, assetID string, to assets.AssetStatus) error
}

// UserDirectory resolves assignees.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (users.User, error)
}

// MaintenanceLog records repair work discovered when an assignment closes.
type MaintenanceLog interface {
	AppendMaintenanceRecord(ctx context.Context, assetID string, rec assets.MaintenanceRecord) error
}

// EventSink receives custody feed notifications.
type EventSink interface {
	Publish(event string, payload any)
}

type CreateAssignmentInput struct {
	AssetID    string
	AssignedTo string
	Purpose    string
	Notes      string
	StartDate  time.Time
}

// CloseAssignmentInput carries the closing fields of a status update.
type CloseAssignmentInput struct {
	Status                 string
	ConditionAtReturn      string
	ReturnNotes            string
	MaintenanceRequired    bool
	MaintenanceDescription string
	MaintenanceCost        float64
}

type AssignmentService interface {
	CreateAssignment(ctx context.Context, actor auth.Actor, input CreateAssignmentInput) (Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, actor auth.Actor, id string, input CloseAssignmentInput) (Assignment, error)
	GetAssignmentByID(ctx context.Context, actor auth.Actor, id string) (Assignment, error)
	ListAssignments(ctx context.Context, actor auth.Actor, filters AssignmentFilters, page, limit int) ([]Assignment, int64, error)
}

type assignmentService struct {
	repo        AssignmentRepository
	custody     CustodyCoordinator
	users       UserDirectory
	maintenance MaintenanceLog
	events      EventSink
	clock       clock.Clock
}

func NewAssignmentService(repo AssignmentRepository, custody CustodyCoordinator, directory UserDirectory,
	maintenance MaintenanceLog, events EventSink, clk clock.Clock) AssignmentService {
	return &assignmentService{
		repo:        repo,
		custody:     custody,
		users:       directory,
		maintenance: maintenance,
		events:      events,
		clock:       clk,
	}
}

func newTag(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *assignmentService) CreateAssignment(ctx context.Context, actor auth.Actor, input CreateAssignmentInput) (Assignment, error) {
	var created Assignment
	err := s.custody.InTx(ctx, func(ctx context.Context) error {
		asset, err := s.custody.ClaimAsset(ctx, input.AssetID)
		if err != nil {
			return err
		}
		if !actor.CanAccessBase(asset.CurrentBase) {
			return apperr.Forbidden("access denied: asset belongs to different base")
		}

		assignee, err := s.users.GetUserByID(ctx, input.AssignedTo)
		if err != nil {
			return err
		}
		if !assignee.IsActive {
			return apperr.InvalidArgument("assignee account is deactivated")
		}
		if assignee.Base != asset.CurrentBase {
			return apperr.InvalidArgument("assignee is stationed at %s, asset is at %s", assignee.Base, asset.CurrentBase)
		}

		start := input.StartDate
		if start.IsZero() {
			start = s.clock.Now()
		}

		created, err = s.repo.CreateAssignment(ctx, Assignment{
			ID:                    uuid.NewString(),
			AssignmentID:          newTag("ASG"),
			AssetID:               asset.ID,
			AssignedTo:            assignee.ID,
			AssignedBy:            actor.ID,
			Base:                  asset.CurrentBase,
			Status:                StatusActive,
			StartDate:             start,
			Purpose:               input.Purpose,
			ConditionAtAssignment: asset.Condition,
			Notes:                 input.Notes,
		})
		if err != nil {
			return err
		}

		return s.custody.Assign(ctx, asset.ID, assignee.ID)
	})
	if err != nil {
		return Assignment{}, err
	}

	s.events.Publish("assignment.opened", created)
	return created, nil
}

func (s *assignmentService) UpdateAssignmentStatus(ctx context.Context, actor auth.Actor, id string, input CloseAssignmentInput) (Assignment, error) {
	target, err := ParseAssignmentStatus(input.Status)
	if err != nil {
		return Assignment{}, err
	}
	if !target.IsClosing() {
		return Assignment{}, apperr.InvalidArgument("assignment status can only move to RETURNED, LOST or DAMAGED")
	}

	var closed Assignment
	err = s.custody.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetAssignmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccessBase(a.Base) {
			return apperr.Forbidden("access denied: assignment belongs to different base")
		}
		if a.Status != StatusActive {
			return apperr.InvalidTransition(string(a.Status), string(target))
		}

		now := s.clock.Now()
		a.Status = target
		a.EndDate = &now
		a.ReturnNotes = input.ReturnNotes
		if input.ConditionAtReturn != "" {
			condition, err := assets.ParseCondition(input.ConditionAtReturn)
			if err != nil {
				return err
			}
			a.ConditionAtReturn = &condition
		}
		a.MaintenanceRequired = input.MaintenanceRequired
		a.MaintenanceDescription = input.MaintenanceDescription
		a.MaintenanceCost = input.MaintenanceCost

		// Routing depends only on the maintenance flag: flagged assets park
		// in MAINTENANCE for inspection, everything else goes back to the pool.
		release := assets.StatusAvailable
		if input.MaintenanceRequired {
			release = assets.StatusMaintenance
		}

		if input.MaintenanceDescription != "" || input.MaintenanceCost > 0 {
			err := s.maintenance.AppendMaintenanceRecord(ctx, a.AssetID, assets.MaintenanceRecord{
				ID:          uuid.NewString(),
				Date:        now,
				Description: input.MaintenanceDescription,
				PerformedBy: actor.ID,
				Cost:        input.MaintenanceCost,
			})
			if err != nil {
				return err
			}
		}

		closed, err = s.repo.CloseAssignment(ctx, a)
		if err != nil {
			return err
		}

		return s.custody.Release(ctx, a.AssetID, release)
	})
	if err != nil {
		return Assignment{}, err
	}

	s.events.Publish("assignment.closed", closed)
	return closed, nil
}

func (s *assignmentService) GetAssignmentByID(ctx context.Context, actor auth.Actor, id string) (Assignment, error) {
	a, err := s.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if !actor.CanAccessBase(a.Base) {
		return Assignment{}, apperr.Forbidden("access denied: assignment belongs to different base")
	}
	return a, nil
}

func (s *assignmentService) ListAssignments(ctx context.Context, actor auth.Actor, filters AssignmentFilters, page, limit int) ([]Assignment, int64, error) {
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
	return s.repo.ListAssignments(ctx, filters, limit, offset)
}
