package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "docattach/internal/auth"
	"docattach/internal/store"
)

var errInvalidCredentials = errors.New("invalid credentials")

// AuthService resolves callers against provisioned users.
type AuthService struct {
	store store.AuthStore
}

func NewAuthService(authStore store.AuthStore) *AuthService {
	if authStore == nil {
		return nil
	}
	return &AuthService{store: authStore}
}

// AuthRequired is true once an API token is configured or any enabled user exists.
func (a *AuthService) AuthRequired(ctx context.Context, apiTokenConfigured bool) (bool, error) {
	if apiTokenConfigured {
		return true, nil
	}
	if a == nil || a.store == nil {
		return false, nil
	}
	count, err := a.store.CountEnabledUsers(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Authenticate checks Basic credentials and returns the matching principal.
func (a *AuthService) Authenticate(ctx context.Context, username, password string) (internalauth.Principal, error) {
	if a == nil || a.store == nil {
		return internalauth.Principal{}, fmt.Errorf("auth store is required")
	}

	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return internalauth.Principal{}, errInvalidCredentials
	}
	if strings.TrimSpace(password) == "" {
		return internalauth.Principal{}, errInvalidCredentials
	}

	user, err := a.store.GetUserByUsername(ctx, normalized)
	if err != nil {
		return internalauth.Principal{}, err
	}
	if user == nil || user.Disabled || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return internalauth.Principal{}, errInvalidCredentials
	}
	return internalauth.Principal{Username: user.Username, Role: user.Role}, nil
}

// CreateUser validates input, hashes the password and stores the user.
func (a *AuthService) CreateUser(ctx context.Context, username, password, role string, now time.Time) (*store.AuthUser, error) {
	prepared, err := internalauth.PrepareUser(username, password, role)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}
	created, err := a.store.CreateUser(ctx, prepared.Username, prepared.PasswordHash, prepared.Role, now)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, conflictCode(fmt.Errorf("username already exists"), ErrCodeConflict)
		}
		return nil, storeFailure(err)
	}
	return created, nil
}

func (a *AuthService) ListUsers(ctx context.Context) ([]store.AuthUser, error) {
	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return users, nil
}

func (a *AuthService) SetUserDisabled(ctx context.Context, username string, disabled bool, now time.Time) (*store.AuthUser, error) {
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, badRequestCode(err, ErrCodeInvalidArgument)
	}
	updated, err := a.store.SetUserDisabled(ctx, normalized, disabled, now)
	if err != nil {
		return nil, storeFailure(err)
	}
	if updated == nil {
		return nil, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound)
	}
	return updated, nil
}
