package usecase

import (
	"context"
	"errors"

	"kami-system/internal/domain"
	"kami-system/internal/domain/model"
	"kami-system/internal/domain/ports/repository"
	"kami-system/internal/infra/logging"
	"kami-system/internal/infra/security"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

// Default admin credentials created by the one-time bootstrap endpoint.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// AuthUseCase exposes account registration, credential checks and the
// one-time admin bootstrap.
type AuthUseCase interface {
	Register(ctx context.Context, username, password, email string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.User, error)
	// InitAdmin creates the default admin account if none exists. The bool
	// reports whether an account was created by this call.
	InitAdmin(ctx context.Context) (bool, error)
}

type authUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewAuthUseCase(users repository.UserRepository, logger *zerolog.Logger) *authUC {
	return &authUC{users: users, log: logger}
}

func (a *authUC) Register(ctx context.Context, username, password, email string) (*model.User, error) {
	defer logging.TraceDuration(a.log, "AuthUC.Register")()

	if username == "" || password == "" {
		return nil, domain.ErrInvalidArgument
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := model.NewUser(username, hash, email, model.RoleUser)
	if err != nil {
		return nil, err
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}
	a.log.Info().Str("username", username).Msg("user registered")
	return user, nil
}

func (a *authUC) Login(ctx context.Context, username, password string) (*model.User, error) {
	defer logging.TraceDuration(a.log, "AuthUC.Login")()

	if username == "" || password == "" {
		return nil, domain.ErrInvalidArgument
	}
	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrBadCredentials
	}
	return user, nil
}

func (a *authUC) InitAdmin(ctx context.Context) (bool, error) {
	defer logging.TraceDuration(a.log, "AuthUC.InitAdmin")()

	_, err := a.users.FindByUsername(ctx, DefaultAdminUsername)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(DefaultAdminPassword)
	if err != nil {
		return false, err
	}
	admin, err := model.NewUser(DefaultAdminUsername, hash, "", model.RoleAdmin)
	if err != nil {
		return false, err
	}
	if err := a.users.Create(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	a.log.Info().Msg("default admin account created")
	return true, nil
}
