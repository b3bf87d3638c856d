package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"garrison/pkg/apperr"
	"garrison/pkg/auth"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) CreateUser(ctx context.Context, u User) (User, error) {
	args := m.Called(ctx, u)
	out, _ := args.Get(0).(User)
	return out, args.Error(1)
}

func (m *mockUserRepository) GetUserByID(ctx context.Context, id string) (User, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(User)
	return out, args.Error(1)
}

func (m *mockUserRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	args := m.Called(ctx, username)
	out, _ := args.Get(0).(User)
	return out, args.Error(1)
}

func (m *mockUserRepository) UpdateUser(ctx context.Context, u User) (User, error) {
	args := m.Called(ctx, u)
	out, _ := args.Get(0).(User)
	return out, args.Error(1)
}

func TestUserService_Register_InvalidRole(t *testing.T) {
	repo := new(mockUserRepository)
	service := NewUserService(repo)

	_, err := service.Register(context.Background(), RegisterInput{
		Username: "smith", Password: "pw", Email: "s@mil.gov", FullName: "Smith",
		Role: "GENERAL", Base: "Alpha Base",
	})

	require.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	repo.AssertNotCalled(t, "CreateUser")
}

func TestUserService_Register_BaseRequiredForNonAdmin(t *testing.T) {
	repo := new(mockUserRepository)
	service := NewUserService(repo)

	_, err := service.Register(context.Background(), RegisterInput{
		Username: "smith", Password: "pw", Email: "s@mil.gov", FullName: "Smith",
		Role: "LOGISTICS_OFFICER",
	})

	require.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestUserService_Register_HashesPassword(t *testing.T) {
	repo := new(mockUserRepository)
	service := NewUserService(repo)

	repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u User) bool {
		if u.PasswordHash == "secret123" || u.PasswordHash == "" {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")) == nil
	})).Return(User{ID: "u1", Username: "smith"}, nil)

	u, err := service.Register(context.Background(), RegisterInput{
		Username: "smith", Password: "secret123", Email: "s@mil.gov", FullName: "Smith",
		Role: "LOGISTICS_OFFICER", Base: "Alpha Base",
	})

	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	repo.AssertExpectations(t)
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	repo := new(mockUserRepository)
	service := NewUserService(repo)

	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.On("GetUserByUsername", mock.Anything, "smith").
		Return(User{ID: "u1", Username: "smith", PasswordHash: string(hash), IsActive: true}, nil)

	_, err = service.Login(context.Background(), "smith", "wrong")

	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestUserService_Login_InactiveAccount(t *testing.T) {
	repo := new(mockUserRepository)
	service := NewUserService(repo)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.On("GetUserByUsername", mock.Anything, "smith").
		Return(User{ID: "u1", PasswordHash: string(hash), IsActive: false}, nil)

	_, err = service.Login(context.Background(), "smith", "pw")

	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestUserService_UpdateProfile_BaseChangeAdminOnly(t *testing.T) {
	repo := new(mockUserRepository)
	service := NewUserService(repo)

	base := "Bravo Base"
	actor := auth.Actor{ID: "u1", Role: auth.RoleLogisticsOfficer, Base: "Alpha Base"}
	_, err := service.UpdateProfile(context.Background(), actor, ProfileUpdate{Base: &base})

	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	repo.AssertNotCalled(t, "UpdateUser")
}

func TestUserService_FindActor_Inactive(t *testing.T) {
	repo := new(mockUserRepository)
	service := NewUserService(repo)

	repo.On("GetUserByID", mock.Anything, "u1").
		Return(User{ID: "u1", Role: auth.RoleAdmin, IsActive: false}, nil)

	_, err := service.FindActor(context.Background(), "u1")

	require.Error(t, err)
}
