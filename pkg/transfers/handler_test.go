package transfers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"garrison/pkg/apperr"
	"garrison/pkg/auth"
)

type mockTransferService struct {
	mock.Mock
}

func (m *mockTransferService) CreateTransfer(ctx context.Context, actor auth.Actor, input CreateTransferInput) (Transfer, error) {
	args := m.Called(ctx, actor, input)
	out, _ := args.Get(0).(Transfer)
	return out, args.Error(1)
}

func (m *mockTransferService) UpdateTransferStatus(ctx context.Context, actor auth.Actor, id, status string) (Transfer, error) {
	args := m.Called(ctx, actor, id, status)
	out, _ := args.Get(0).(Transfer)
	return out, args.Error(1)
}

func (m *mockTransferService) GetTransferByID(ctx context.Context, actor auth.Actor, id string) (Transfer, error) {
	args := m.Called(ctx, actor, id)
	out, _ := args.Get(0).(Transfer)
	return out, args.Error(1)
}

func (m *mockTransferService) ListTransfers(ctx context.Context, actor auth.Actor, filters TransferFilters, page, limit int) ([]Transfer, int64, error) {
	args := m.Called(ctx, actor, filters, page, limit)
	out, _ := args.Get(0).([]Transfer)
	return out, args.Get(1).(int64), args.Error(2)
}

func setupTransferRouter(service TransferService, actor auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTransferHandler(service)
	h.RegisterRoutes(r, func(c *gin.Context) {
		auth.SetActor(c, actor)
	})
	return r
}

func TestTransferHandler_Create_Success(t *testing.T) {
	svc := new(mockTransferService)
	r := setupTransferRouter(svc, officerAlpha)

	svc.On("CreateTransfer", mock.Anything, officerAlpha, mock.MatchedBy(func(in CreateTransferInput) bool {
		return in.ToBase == "Bravo Base" && len(in.Assets) == 1 && in.Transport.Method == "convoy"
	})).Return(Transfer{ID: "t1", Status: StatusPending}, nil)

	body := `{"toBase":"Bravo Base","reason":"resupply","assets":[{"assetId":"a1","quantity":1}],"transportDetails":{"method":"convoy"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/transfers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestTransferHandler_Create_RequiresLogisticsOfficer(t *testing.T) {
	svc := new(mockTransferService)
	r := setupTransferRouter(svc, commanderBravo)

	body := `{"toBase":"Bravo Base","reason":"resupply","assets":[{"assetId":"a1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/transfers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "CreateTransfer")
}

func TestTransferHandler_Advance_OfficerCannotAdvance(t *testing.T) {
	svc := new(mockTransferService)
	r := setupTransferRouter(svc, officerAlpha)

	req := httptest.NewRequest(http.MethodPatch, "/api/transfers/t1/status", strings.NewReader(`{"status":"APPROVED"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "UpdateTransferStatus")
}

func TestTransferHandler_Advance_CommanderAllowed(t *testing.T) {
	svc := new(mockTransferService)
	r := setupTransferRouter(svc, commanderBravo)

	svc.On("UpdateTransferStatus", mock.Anything, commanderBravo, "t1", "APPROVED").
		Return(Transfer{ID: "t1", Status: StatusApproved}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/transfers/t1/status", strings.NewReader(`{"status":"APPROVED"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestTransferHandler_Advance_InvalidTransitionMapsTo400(t *testing.T) {
	svc := new(mockTransferService)
	r := setupTransferRouter(svc, adminActor)

	svc.On("UpdateTransferStatus", mock.Anything, adminActor, "t1", "IN_TRANSIT").
		Return(Transfer{}, apperr.InvalidTransition("PENDING", "IN_TRANSIT"))

	req := httptest.NewRequest(http.MethodPatch, "/api/transfers/t1/status", strings.NewReader(`{"status":"IN_TRANSIT"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferHandler_Get_NotFoundMapsTo404(t *testing.T) {
	svc := new(mockTransferService)
	r := setupTransferRouter(svc, adminActor)

	svc.On("GetTransferByID", mock.Anything, adminActor, "missing").
		Return(Transfer{}, apperr.NotFound("transfer not found"))

	req := httptest.NewRequest(http.MethodGet, "/api/transfers/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
