// Package users manages desk accounts and their roles.
package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/errors"
	"github.com/qoricash/tradingdesk/internal/logging"
	"github.com/qoricash/tradingdesk/internal/validation"
)

// Service manages user accounts. All mutations require the Master role.
type Service struct {
	store storage.Store
	log   *logging.Logger
}

// New constructs a users service.
func New(store storage.Store, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// CreateParams are the caller-supplied fields for a new account.
type CreateParams struct {
	Username string
	Email    string
	Password string
	DNI      string
	Role     user.Role
}

// Create registers a new active account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, actor user.User, params CreateParams) (user.User, error) {
	if !actor.Role.CanManageUsers() {
		return user.User{}, errors.PermissionDenied("role " + string(actor.Role) + " cannot manage users")
	}
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return user.User{}, errors.Validation("username is required")
	}
	if err := validation.Email(params.Email); err != nil {
		return user.User{}, err
	}
	if err := validation.Password(params.Password); err != nil {
		return user.User{}, err
	}
	if params.DNI != "" {
		if err := validation.DNI(params.DNI); err != nil {
			return user.User{}, err
		}
	}
	if !params.Role.Valid() {
		return user.User{}, errors.Validation("invalid role %q", params.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, errors.Internal(err)
	}

	var created user.User
	err = s.store.InTx(ctx, func(tx storage.TxStore) error {
		var err error
		created, err = tx.CreateUser(ctx, user.User{
			Username:     username,
			Email:        strings.ToLower(strings.TrimSpace(params.Email)),
			PasswordHash: string(hash),
			DNI:          strings.TrimSpace(params.DNI),
			Role:         params.Role,
			Status:       user.StatusActive,
		})
		if err != nil {
			return err
		}
		return s.record(ctx, tx, actor, audit.ActionCreateUser, created.ID,
			fmt.Sprintf("user %s created with role %s", created.Username, created.Role))
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithContext(ctx).
		WithField("user_id", created.ID).
		WithField("username", created.Username).
		WithField("role", created.Role).
		Info("user created")
	return created, nil
}

// UpdateParams carry optional field updates. Nil pointers leave the stored
// value untouched.
type UpdateParams struct {
	Email    *string
	Password *string
	DNI      *string
	Role     *user.Role
}

// Update applies partial changes to an account. The username is immutable.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, params UpdateParams) (user.User, error) {
	if !actor.Role.CanManageUsers() {
		return user.User{}, errors.PermissionDenied("role " + string(actor.Role) + " cannot manage users")
	}

	var updated user.User
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if params.Email != nil {
			if err := validation.Email(*params.Email); err != nil {
				return err
			}
			u.Email = strings.ToLower(strings.TrimSpace(*params.Email))
		}
		if params.Password != nil {
			if err := validation.Password(*params.Password); err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*params.Password), bcrypt.DefaultCost)
			if err != nil {
				return errors.Internal(err)
			}
			u.PasswordHash = string(hash)
		}
		if params.DNI != nil {
			if *params.DNI != "" {
				if err := validation.DNI(*params.DNI); err != nil {
					return err
				}
			}
			u.DNI = strings.TrimSpace(*params.DNI)
		}
		if params.Role != nil {
			if !params.Role.Valid() {
				return errors.Validation("invalid role %q", *params.Role)
			}
			u.Role = *params.Role
		}

		updated, err = tx.UpdateUser(ctx, u)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, actor, audit.ActionUpdateUser, updated.ID,
			fmt.Sprintf("user %s updated", updated.Username))
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithContext(ctx).WithField("user_id", updated.ID).Info("user updated")
	return updated, nil
}

// SetStatus activates or deactivates an account. A Master cannot deactivate
// their own account.
func (s *Service) SetStatus(ctx context.Context, actor user.User, id int64, status user.Status) (user.User, error) {
	if !actor.Role.CanManageUsers() {
		return user.User{}, errors.PermissionDenied("role " + string(actor.Role) + " cannot manage users")
	}
	if status != user.StatusActive && status != user.StatusInactive {
		return user.User{}, errors.Validation("invalid user status %q", status)
	}
	if id == actor.ID && status == user.StatusInactive {
		return user.User{}, errors.Validation("cannot deactivate own account")
	}

	var updated user.User
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		old := u.Status
		u.Status = status
		updated, err = tx.UpdateUser(ctx, u)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, actor, audit.ActionUpdateUserStatus, updated.ID,
			fmt.Sprintf("user %s: %s -> %s", updated.Username, old, status))
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithContext(ctx).
		WithField("user_id", updated.ID).
		WithField("status", updated.Status).
		Info("user status updated")
	return updated, nil
}

// Get retrieves an account by id.
func (s *Service) Get(ctx context.Context, id int64) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// List returns all accounts ordered by username.
func (s *Service) List(ctx context.Context, actor user.User) ([]user.User, error) {
	if !actor.Role.CanManageUsers() {
		return nil, errors.PermissionDenied("role " + string(actor.Role) + " cannot manage users")
	}
	return s.store.ListUsers(ctx)
}

func (s *Service) record(ctx context.Context, tx storage.TxStore, actor user.User, action string, entityID int64, details string) error {
	meta := audit.MetaFromContext(ctx)
	_, err := tx.AppendAudit(ctx, audit.Entry{
		UserID:    actor.ID,
		Action:    action,
		Entity:    audit.EntityUser,
		EntityID:  entityID,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return err
}
