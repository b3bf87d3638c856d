package assets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"garrison/pkg/apperr"
	"garrison/pkg/auth"
	"garrison/pkg/response"
)

type mockAssetService struct {
	mock.Mock
}

func (m *mockAssetService) CreateAsset(ctx context.Context, actor auth.Actor, input CreateAssetInput) (Asset, error) {
	args := m.Called(ctx, actor, input)
	out, _ := args.Get(0).(Asset)
	return out, args.Error(1)
}

func (m *mockAssetService) UpdateAsset(ctx context.Context, actor auth.Actor, id string, input UpdateAssetInput) (Asset, error) {
	args := m.Called(ctx, actor, id, input)
	out, _ := args.Get(0).(Asset)
	return out, args.Error(1)
}

func (m *mockAssetService) DeleteAsset(ctx context.Context, actor auth.Actor, id string) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *mockAssetService) GetAssetByID(ctx context.Context, actor auth.Actor, id string) (Asset, error) {
	args := m.Called(ctx, actor, id)
	out, _ := args.Get(0).(Asset)
	return out, args.Error(1)
}

func (m *mockAssetService) ListAssets(ctx context.Context, actor auth.Actor, filters AssetFilters, page, limit int) ([]Asset, int64, error) {
	args := m.Called(ctx, actor, filters, page, limit)
	out, _ := args.Get(0).([]Asset)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockAssetService) GetMetrics(ctx context.Context, actor auth.Actor) (Metrics, error) {
	args := m.Called(ctx, actor)
	out, _ := args.Get(0).(Metrics)
	return out, args.Error(1)
}

func setupAssetRouter(service AssetService, actor auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAssetHandler(service)
	h.RegisterRoutes(r, func(c *gin.Context) {
		auth.SetActor(c, actor)
	})
	return r
}

func TestAssetHandler_CreateAsset_Success(t *testing.T) {
	svc := new(mockAssetService)
	r := setupAssetRouter(svc, officerAlpha)

	created := Asset{ID: "a1", AssetID: "AST001", Name: "M4 Carbine", Status: StatusAvailable, CurrentBase: "Alpha Base"}
	svc.On("CreateAsset", mock.Anything, officerAlpha, mock.MatchedBy(func(in CreateAssetInput) bool {
		return in.AssetID == "AST001" && in.Type == "WEAPON" && in.Condition == "NEW"
	})).Return(created, nil)

	body := `{"assetId":"AST001","name":"M4 Carbine","type":"WEAPON","category":"Rifle","serialNumber":"SN001","condition":"NEW","purchaseDate":"2024-01-15T00:00:00Z","purchasePrice":1200,"supplier":"Colt Defense"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "AST001", data["assetId"])
	svc.AssertExpectations(t)
}

func TestAssetHandler_CreateAsset_MissingRequiredFields(t *testing.T) {
	svc := new(mockAssetService)
	r := setupAssetRouter(svc, officerAlpha)

	req := httptest.NewRequest(http.MethodPost, "/api/assets", strings.NewReader(`{"assetId":"AST001"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateAsset")
}

func TestAssetHandler_UpdateAsset_DisallowedField(t *testing.T) {
	svc := new(mockAssetService)
	r := setupAssetRouter(svc, officerAlpha)

	req := httptest.NewRequest(http.MethodPatch, "/api/assets/a1", strings.NewReader(`{"serialNumber":"SN999"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "UpdateAsset")
}

func TestAssetHandler_UpdateAsset_ForbiddenMapsTo403(t *testing.T) {
	svc := new(mockAssetService)
	r := setupAssetRouter(svc, officerAlpha)

	svc.On("UpdateAsset", mock.Anything, officerAlpha, "a1", mock.Anything).
		Return(Asset{}, apperr.Forbidden("access denied: asset belongs to different base"))

	req := httptest.NewRequest(http.MethodPatch, "/api/assets/a1", strings.NewReader(`{"name":"Renamed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssetHandler_DeleteAsset_ConflictMapsTo409(t *testing.T) {
	svc := new(mockAssetService)
	r := setupAssetRouter(svc, adminActor)

	svc.On("DeleteAsset", mock.Anything, adminActor, "a1").
		Return(apperr.Conflict("asset is claimed by an active assignment or open transfer"))

	req := httptest.NewRequest(http.MethodDelete, "/api/assets/a1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAssetHandler_DeleteAsset_RequiresAdmin(t *testing.T) {
	svc := new(mockAssetService)
	r := setupAssetRouter(svc, officerAlpha)

	req := httptest.NewRequest(http.MethodDelete, "/api/assets/a1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "DeleteAsset")
}

func TestAssetHandler_GetMetrics(t *testing.T) {
	svc := new(mockAssetService)
	r := setupAssetRouter(svc, officerAlpha)

	svc.On("GetMetrics", mock.Anything, officerAlpha).Return(Metrics{
		TotalAssets:        5,
		ActiveAssets:       3,
		PendingTransfers:   1,
		ActiveAssignments:  2,
		StatusDistribution: map[string]int64{"AVAILABLE": 3, "ASSIGNED": 2},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assets/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 5, data["totalAssets"])
	require.EqualValues(t, 2, data["activeAssignments"])
}

func TestAssetHandler_ListAssets_PassesFilters(t *testing.T) {
	svc := new(mockAssetService)
	r := setupAssetRouter(svc, adminActor)

	svc.On("ListAssets", mock.Anything, adminActor, mock.MatchedBy(func(f AssetFilters) bool {
		return f.Type != nil && *f.Type == TypeWeapon && f.Status != nil && *f.Status == StatusAvailable
	}), 1, 10).Return([]Asset{}, int64(0), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assets?type=WEAPON&status=AVAILABLE", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
