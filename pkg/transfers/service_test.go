package transfers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"garrison/pkg/apperr"
	"garrison/pkg/assets"
	"garrison/pkg/auth"
	"garrison/pkg/clock"
)

type mockTransferRepository struct {
	mock.Mock
}

func (m *mockTransferRepository) CreateTransfer(ctx context.Context, t Transfer) (Transfer, error) {
	args := m.Called(ctx, t)
	out, _ := args.Get(0).(Transfer)
	return out, args.Error(1)
}

func (m *mockTransferRepository) GetTransferByID(ctx context.Context, id string) (Transfer, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(Transfer)
	return out, args.Error(1)
}

func (m *mockTransferRepository) GetTransferForUpdate(ctx context.Context, id string) (Transfer, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(Transfer)
	return out, args.Error(1)
}

func (m *mockTransferRepository) UpdateTransferStatus(ctx context.Context, t Transfer) (Transfer, error) {
	args := m.Called(ctx, t)
	out, _ := args.Get(0).(Transfer)
	return out, args.Error(1)
}

func (m *mockTransferRepository) ListTransfers(ctx context.Context, filters TransferFilters, limit, offset int) ([]Transfer, int64, error) {
	args := m.Called(ctx, filters, limit, offset)
	out, _ := args.Get(0).([]Transfer)
	return out, args.Get(1).(int64), args.Error(2)
}

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *mockCoordinator) ClaimAsset(ctx context.Context, id string) (assets.Asset, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(assets.Asset)
	return out, args.Error(1)
}

func (m *mockCoordinator) Relocate(ctx context.Context, assetID, fromBase string, rec assets.TransferRecord) error {
	args := m.Called(ctx, assetID, fromBase, rec)
	return args.Error(0)
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) Publish(event string, _ any) {
	r.events = append(r.events, event)
}

type recordingAlerts struct {
	urgent []Transfer
}

func (r *recordingAlerts) UrgentTransfer(t Transfer) {
	r.urgent = append(r.urgent, t)
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type transferFixture struct {
	repo    *mockTransferRepository
	custody *mockCoordinator
	sink    *recordingSink
	alerts  *recordingAlerts
	service TransferService
}

func newTransferFixture() *transferFixture {
	f := &transferFixture{
		repo:    new(mockTransferRepository),
		custody: new(mockCoordinator),
		sink:    &recordingSink{},
		alerts:  &recordingAlerts{},
	}
	f.service = NewTransferService(f.repo, f.custody, f.sink, f.alerts, clock.NewFixed(testNow))
	return f
}

var (
	officerAlpha   = auth.Actor{ID: "officer-1", Role: auth.RoleLogisticsOfficer, Base: "Alpha Base"}
	commanderBravo = auth.Actor{ID: "cmd-1", Role: auth.RoleBaseCommander, Base: "Bravo Base"}
	adminActor     = auth.Actor{ID: "admin-1", Role: auth.RoleAdmin, Base: "HQ"}
)

func availableAt(id, tag, base string) assets.Asset {
	return assets.Asset{ID: id, AssetID: tag, CurrentBase: base, Status: assets.StatusAvailable}
}

func TestTransferService_Create_ReservesEveryManifestAsset(t *testing.T) {
	f := newTransferFixture()

	f.custody.On("ClaimAsset", mock.Anything, "a1").Return(availableAt("a1", "AST001", "Alpha Base"), nil)
	f.custody.On("ClaimAsset", mock.Anything, "a2").Return(availableAt("a2", "AST002", "Alpha Base"), nil)
	f.repo.On("CreateTransfer", mock.Anything, mock.MatchedBy(func(tr Transfer) bool {
		return tr.Status == StatusPending &&
			tr.FromBase == "Alpha Base" &&
			tr.ToBase == "Bravo Base" &&
			tr.RequestedBy == "officer-1" &&
			tr.Priority == PriorityMedium &&
			len(tr.Assets) == 2 &&
			len(tr.TransferID) > 4
	})).Return(Transfer{ID: "t1", Status: StatusPending}, nil)

	_, err := f.service.CreateTransfer(context.Background(), officerAlpha, CreateTransferInput{
		ToBase: "Bravo Base",
		Reason: "resupply",
		Assets: []TransferAsset{{AssetID: "a1"}, {AssetID: "a2"}},
	})

	require.NoError(t, err)
	require.Equal(t, []string{"transfer.requested"}, f.sink.events)
	require.Empty(t, f.alerts.urgent)
	f.custody.AssertExpectations(t)
	f.repo.AssertExpectations(t)
}

func TestTransferService_Create_EmptyManifestRejected(t *testing.T) {
	f := newTransferFixture()

	_, err := f.service.CreateTransfer(context.Background(), officerAlpha, CreateTransferInput{
		ToBase: "Bravo Base",
		Reason: "resupply",
	})

	require.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	f.custody.AssertNotCalled(t, "ClaimAsset")
}

func TestTransferService_Create_SameBaseDestinationRejected(t *testing.T) {
	f := newTransferFixture()

	_, err := f.service.CreateTransfer(context.Background(), officerAlpha, CreateTransferInput{
		ToBase: "Alpha Base",
		Reason: "resupply",
		Assets: []TransferAsset{{AssetID: "a1"}},
	})

	require.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestTransferService_Create_AssetAtWrongBaseNamedInConflict(t *testing.T) {
	f := newTransferFixture()

	f.custody.On("ClaimAsset", mock.Anything, "a1").Return(availableAt("a1", "AST001", "Charlie Base"), nil)

	_, err := f.service.CreateTransfer(context.Background(), officerAlpha, CreateTransferInput{
		ToBase: "Bravo Base",
		Reason: "resupply",
		Assets: []TransferAsset{{AssetID: "a1"}},
	})

	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	require.ErrorContains(t, err, "AST001")
	f.repo.AssertNotCalled(t, "CreateTransfer")
}

func TestTransferService_Create_ClaimConflictStopsCreation(t *testing.T) {
	f := newTransferFixture()

	f.custody.On("ClaimAsset", mock.Anything, "a1").Return(availableAt("a1", "AST001", "Alpha Base"), nil)
	f.custody.On("ClaimAsset", mock.Anything, "a2").
		Return(assets.Asset{}, apperr.Conflict("asset AST002 is reserved by an open transfer"))

	_, err := f.service.CreateTransfer(context.Background(), officerAlpha, CreateTransferInput{
		ToBase: "Bravo Base",
		Reason: "resupply",
		Assets: []TransferAsset{{AssetID: "a1"}, {AssetID: "a2"}},
	})

	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	require.Empty(t, f.sink.events)
	f.repo.AssertNotCalled(t, "CreateTransfer")
}

func TestTransferService_Create_UrgentPriorityFiresAlert(t *testing.T) {
	f := newTransferFixture()

	f.custody.On("ClaimAsset", mock.Anything, "a1").Return(availableAt("a1", "AST001", "Alpha Base"), nil)
	f.repo.On("CreateTransfer", mock.Anything, mock.Anything).
		Return(Transfer{ID: "t1", TransferID: "TRF-AB12CD34", Status: StatusPending, Priority: PriorityUrgent}, nil)

	_, err := f.service.CreateTransfer(context.Background(), officerAlpha, CreateTransferInput{
		ToBase:   "Bravo Base",
		Reason:   "ammunition shortage",
		Priority: "URGENT",
		Assets:   []TransferAsset{{AssetID: "a1"}},
	})

	require.NoError(t, err)
	require.Len(t, f.alerts.urgent, 1)
	require.Equal(t, "TRF-AB12CD34", f.alerts.urgent[0].TransferID)
}

func TestTransferService_Advance_ApproveStampsApprover(t *testing.T) {
	f := newTransferFixture()

	pending := Transfer{ID: "t1", TransferID: "TRF-1", FromBase: "Alpha Base", ToBase: "Bravo Base", Status: StatusPending}
	f.repo.On("GetTransferForUpdate", mock.Anything, "t1").Return(pending, nil)
	f.repo.On("UpdateTransferStatus", mock.Anything, mock.MatchedBy(func(tr Transfer) bool {
		return tr.Status == StatusApproved && tr.ApprovedBy != nil && *tr.ApprovedBy == "cmd-1"
	})).Return(Transfer{ID: "t1", Status: StatusApproved}, nil)

	_, err := f.service.UpdateTransferStatus(context.Background(), commanderBravo, "t1", "APPROVED")

	require.NoError(t, err)
	require.Equal(t, []string{"transfer.advanced"}, f.sink.events)
	f.repo.AssertExpectations(t)
}

func TestTransferService_Advance_InTransitStampsActualDate(t *testing.T) {
	f := newTransferFixture()

	approved := Transfer{ID: "t1", FromBase: "Alpha Base", ToBase: "Bravo Base", Status: StatusApproved}
	f.repo.On("GetTransferForUpdate", mock.Anything, "t1").Return(approved, nil)
	f.repo.On("UpdateTransferStatus", mock.Anything, mock.MatchedBy(func(tr Transfer) bool {
		return tr.Status == StatusInTransit && tr.ActualTransferDate != nil && tr.ActualTransferDate.Equal(testNow)
	})).Return(Transfer{ID: "t1", Status: StatusInTransit}, nil)

	_, err := f.service.UpdateTransferStatus(context.Background(), adminActor, "t1", "IN_TRANSIT")

	require.NoError(t, err)
}

func TestTransferService_Advance_SkippingApprovalRejected(t *testing.T) {
	f := newTransferFixture()

	pending := Transfer{ID: "t1", FromBase: "Alpha Base", ToBase: "Bravo Base", Status: StatusPending}
	f.repo.On("GetTransferForUpdate", mock.Anything, "t1").Return(pending, nil)

	_, err := f.service.UpdateTransferStatus(context.Background(), adminActor, "t1", "IN_TRANSIT")

	require.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
	f.repo.AssertNotCalled(t, "UpdateTransferStatus")
}

func TestTransferService_Advance_CancelFromApproved(t *testing.T) {
	f := newTransferFixture()

	approved := Transfer{ID: "t1", FromBase: "Alpha Base", ToBase: "Bravo Base", Status: StatusApproved}
	f.repo.On("GetTransferForUpdate", mock.Anything, "t1").Return(approved, nil)
	f.repo.On("UpdateTransferStatus", mock.Anything, mock.MatchedBy(func(tr Transfer) bool {
		return tr.Status == StatusCancelled
	})).Return(Transfer{ID: "t1", Status: StatusCancelled}, nil)

	_, err := f.service.UpdateTransferStatus(context.Background(), adminActor, "t1", "CANCELLED")

	require.NoError(t, err)
	f.custody.AssertNotCalled(t, "Relocate")
}

func TestTransferService_Advance_TerminalCannotMove(t *testing.T) {
	f := newTransferFixture()

	done := Transfer{ID: "t1", FromBase: "Alpha Base", ToBase: "Bravo Base", Status: StatusCompleted}
	f.repo.On("GetTransferForUpdate", mock.Anything, "t1").Return(done, nil)

	_, err := f.service.UpdateTransferStatus(context.Background(), adminActor, "t1", "CANCELLED")

	require.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}

func TestTransferService_Advance_CompletionRelocatesEveryAsset(t *testing.T) {
	f := newTransferFixture()

	inTransit := Transfer{
		ID: "t1", TransferID: "TRF-1", FromBase: "Alpha Base", ToBase: "Bravo Base",
		Status: StatusInTransit, Reason: "resupply",
		Assets: []TransferAsset{{AssetID: "a1", Quantity: 1}, {AssetID: "a2", Quantity: 1}},
	}
	f.repo.On("GetTransferForUpdate", mock.Anything, "t1").Return(inTransit, nil)
	for _, id := range []string{"a1", "a2"} {
		f.custody.On("Relocate", mock.Anything, id, "Alpha Base", mock.MatchedBy(func(rec assets.TransferRecord) bool {
			return rec.ToBase == "Bravo Base" && rec.AuthorizedBy == "admin-1" && rec.Date.Equal(testNow)
		})).Return(nil)
	}
	f.repo.On("UpdateTransferStatus", mock.Anything, mock.MatchedBy(func(tr Transfer) bool {
		return tr.Status == StatusCompleted
	})).Return(Transfer{ID: "t1", Status: StatusCompleted}, nil)

	_, err := f.service.UpdateTransferStatus(context.Background(), adminActor, "t1", "COMPLETED")

	require.NoError(t, err)
	f.custody.AssertExpectations(t)
}

func TestTransferService_Advance_CompletionFailureRollsBack(t *testing.T) {
	f := newTransferFixture()

	inTransit := Transfer{
		ID: "t1", TransferID: "TRF-1", FromBase: "Alpha Base", ToBase: "Bravo Base",
		Status: StatusInTransit,
		Assets: []TransferAsset{{AssetID: "a1"}, {AssetID: "a2"}},
	}
	f.repo.On("GetTransferForUpdate", mock.Anything, "t1").Return(inTransit, nil)
	f.custody.On("Relocate", mock.Anything, "a1", "Alpha Base", mock.Anything).Return(nil)
	f.custody.On("Relocate", mock.Anything, "a2", "Alpha Base", mock.Anything).
		Return(apperr.NotFound("asset not found"))

	_, err := f.service.UpdateTransferStatus(context.Background(), adminActor, "t1", "COMPLETED")

	require.Error(t, err)
	require.Empty(t, f.sink.events)
	f.repo.AssertNotCalled(t, "UpdateTransferStatus")
}

func TestTransferService_Advance_UnrelatedBaseForbidden(t *testing.T) {
	f := newTransferFixture()

	pending := Transfer{ID: "t1", FromBase: "Alpha Base", ToBase: "Charlie Base", Status: StatusPending}
	f.repo.On("GetTransferForUpdate", mock.Anything, "t1").Return(pending, nil)

	_, err := f.service.UpdateTransferStatus(context.Background(), commanderBravo, "t1", "APPROVED")

	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestTransferService_List_NonAdminScopedToHomeBase(t *testing.T) {
	f := newTransferFixture()

	other := "Charlie Base"
	f.repo.On("ListTransfers", mock.Anything, mock.MatchedBy(func(filters TransferFilters) bool {
		return filters.Base != nil && *filters.Base == "Bravo Base"
	}), 10, 0).Return([]Transfer{}, int64(0), nil)

	_, _, err := f.service.ListTransfers(context.Background(), commanderBravo, TransferFilters{Base: &other}, 1, 10)

	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}
