package users

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"garrison/pkg/apperr"
	"garrison/pkg/auth"
)

type RegisterInput struct {
	Username string
	Password string
	Email    string
	FullName string
	Phone    string
	Role     string
	Base     string
}

// ProfileUpdate carries the changed fields of a profile PATCH. Nil means
// "leave untouched"; the allow-list is enforced at the handler.
type ProfileUpdate struct {
	Email    *string
	FullName *string
	Password *string
	Phone    *string
	Base     *string
}

type UserService interface {
	Register(ctx context.Context, input RegisterInput) (User, error)
	Login(ctx context.Context, username, password string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateProfile(ctx context.Context, actor auth.Actor, update ProfileUpdate) (User, error)
	FindActor(ctx context.Context, userID string) (auth.Actor, error)
}

type userService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (User, error) {
	role, err := auth.ParseRole(input.Role)
	if err != nil {
		return User{}, err
	}
	if role != auth.RoleAdmin && input.Base == "" {
		return User{}, apperr.InvalidArgument("base is required for role %s", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, apperr.Internal(err, "hashing password")
	}

	return s.repo.CreateUser(ctx, User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Phone:        input.Phone,
		Role:         role,
		Base:         input.Base,
		IsActive:     true,
	})
}

func (s *userService) Login(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return User{}, apperr.Forbidden("invalid credentials")
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, apperr.Forbidden("invalid credentials")
	}
	if !u.IsActive {
		return User{}, apperr.Forbidden("account is inactive")
	}
	return u, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *userService) UpdateProfile(ctx context.Context, actor auth.Actor, update ProfileUpdate) (User, error) {
	if update.Base != nil && !actor.IsAdmin() {
		return User{}, apperr.Forbidden("only administrators can change base assignments")
	}

	u, err := s.repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return User{}, err
	}

	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Base != nil {
		u.Base = *update.Base
	}
	if update.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, apperr.Internal(err, "hashing password")
		}
		u.PasswordHash = string(hash)
	}

	return s.repo.UpdateUser(ctx, u)
}

// FindActor implements auth.UserSource. Inactive users stop authenticating
// even while their tokens are unexpired.
func (s *userService) FindActor(ctx context.Context, userID string) (auth.Actor, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return auth.Actor{}, err
	}
	if !u.IsActive {
		return auth.Actor{}, apperr.Forbidden("account is inactive")
	}
	return u.Actor(), nil
}
