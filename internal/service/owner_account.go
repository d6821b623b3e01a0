package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/parking-rental/internal/model"
	"github.com/iliyamo/parking-rental/internal/repository"
)

// OwnerAccounts is the part of the user store needed to seed the owner.
type OwnerAccounts interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// EnsureOwner returns the identity of the account registered under email,
// creating it with the OWNER role when it does not exist yet.  It runs
// before the HTTP server starts, so the owner account can never be taken
// by a public sign-up.
func EnsureOwner(ctx context.Context, users OwnerAccounts, email, password string, cost int) (model.Identity, error) {
	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != model.RoleOwner {
			return "", fmt.Errorf("owner account %s has role %s, want %s", u.Email, u.Role, model.RoleOwner)
		}
		if !u.IsActive {
			return "", fmt.Errorf("owner account %s is disabled", u.Email)
		}
		return u.Identity(), nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return "", fmt.Errorf("look up owner account: %w", err)
	}

	if password == "" {
		return "", fmt.Errorf("owner account %s does not exist and REGISTRY_OWNER_PASSWORD is empty", email)
	}
	id, err := users.Create(ctx, email, password, model.RoleOwner, cost)
	if err != nil {
		return "", fmt.Errorf("create owner account: %w", err)
	}
	log.Printf("created owner account %s (id %d)", email, id)
	return model.UserIdentity(id), nil
}
