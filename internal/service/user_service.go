package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mkotelnikov/courtside/internal/auth"
	"github.com/mkotelnikov/courtside/internal/model"
	"github.com/mkotelnikov/courtside/internal/repository"
	"github.com/mkotelnikov/courtside/pkg/logger"
)

type RegisterPayload struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type UserService struct {
	users repository.UserRepository

	tokenSecret string
	tokenTTL    time.Duration
}

func NewUserService(tokenSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
	}
}

func (u *UserService) Register(ctx context.Context, payload *RegisterPayload) (*model.User, *Error) {
	l := logger.FromContext(ctx)
	l.Info("registering user", zap.String("username", payload.Username))

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		l.Error("failed to hash password", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to register user")
	}

	user := &repository.User{
		ID:           uuid.NewString(),
		Username:     payload.Username,
		Email:        payload.Email,
		PasswordHash: hash,
		SystemRole:   model.SystemRoleUser,
	}
	if err = u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, NewError(ErrorCodeConflict, "username or email already taken")
		}
		l.Error("failed to create user", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to register user")
	}

	return userToModel(user), nil
}

// RegisterManagedProfile provisions a guardian-created player profile with
// no credentials; it can roster on teams but can never log in.
func (u *UserService) RegisterManagedProfile(ctx context.Context, username string) (*model.User, *Error) {
	l := logger.FromContext(ctx)
	l.Info("registering managed profile", zap.String("username", username))

	user := &repository.User{
		ID:         uuid.NewString(),
		Username:   username,
		SystemRole: model.SystemRoleUser,
		Managed:    true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, NewError(ErrorCodeConflict, "username already taken")
		}
		l.Error("failed to create managed profile", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to register profile")
	}

	return userToModel(user), nil
}

func (u *UserService) Login(ctx context.Context, username, password string) (string, *Error) {
	l := logger.FromContext(ctx)

	user, err := u.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", NewError(ErrorCodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		l.Error("failed to get user", zap.Error(err))
		return "", NewError(ErrorCodeUnspecified, "failed to log in")
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", NewError(ErrorCodeUnauthorized, "invalid credentials")
	}

	token, err := auth.GenerateToken(u.tokenSecret, user.ID, user.SystemRole, u.tokenTTL)
	if err != nil {
		l.Error("failed to generate token", zap.Error(err))
		return "", NewError(ErrorCodeUnspecified, "failed to log in")
	}

	return token, nil
}

func (u *UserService) GetUser(ctx context.Context, userID string) (*model.User, *Error) {
	user, err := u.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "user not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get user", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get user")
	}
	return userToModel(user), nil
}

func userToModel(user *repository.User) *model.User {
	return &model.User{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		SystemRole: user.SystemRole,
		Managed:    user.Managed,
		CreatedAt:  user.CreatedAt,
	}
}

func (u *UserService) WithUserRepo(r repository.UserRepository) *UserService {
	u.users = r
	return u
}
