// Package clients manages the desk's client directory.
package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/client"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/errors"
	"github.com/qoricash/tradingdesk/internal/logging"
	"github.com/qoricash/tradingdesk/internal/validation"
)

// Service manages client records.
type Service struct {
	store storage.Store
	log   *logging.Logger
}

// New constructs a clients service.
func New(store storage.Store, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("clients")
	}
	return &Service{store: store, log: log}
}

// CreateParams are the caller-supplied fields for a new client.
type CreateParams struct {
	Name           string
	DNI            string
	Email          string
	Phone          string
	DNIFrontURL    string
	DNIBackURL     string
	BankAccountPEN string
	BankAccountUSD string
	BankName       string
	Notes          string
}

// Create registers a new active client. DNI and email must be unique.
func (s *Service) Create(ctx context.Context, actor user.User, params CreateParams) (client.Client, error) {
	if !actor.Role.CanManageClients() {
		return client.Client{}, errors.PermissionDenied("role " + string(actor.Role) + " cannot manage clients")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return client.Client{}, errors.Validation("client name is required")
	}
	if err := validation.DNI(params.DNI); err != nil {
		return client.Client{}, err
	}
	if err := validation.Email(params.Email); err != nil {
		return client.Client{}, err
	}
	if err := validation.Phone(params.Phone); err != nil {
		return client.Client{}, err
	}

	var created client.Client
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		var err error
		created, err = tx.CreateClient(ctx, client.Client{
			Name:           name,
			DNI:            strings.TrimSpace(params.DNI),
			Email:          strings.ToLower(strings.TrimSpace(params.Email)),
			Phone:          strings.TrimSpace(params.Phone),
			DNIFrontURL:    strings.TrimSpace(params.DNIFrontURL),
			DNIBackURL:     strings.TrimSpace(params.DNIBackURL),
			BankAccountPEN: strings.TrimSpace(params.BankAccountPEN),
			BankAccountUSD: strings.TrimSpace(params.BankAccountUSD),
			BankName:       strings.TrimSpace(params.BankName),
			Status:         client.StatusActive,
			Notes:          strings.TrimSpace(params.Notes),
		})
		if err != nil {
			return err
		}
		return s.record(ctx, tx, actor, audit.ActionCreateClient, created.ID,
			fmt.Sprintf("client %s (DNI %s) registered", created.Name, created.DNI))
	})
	if err != nil {
		return client.Client{}, err
	}

	s.log.WithContext(ctx).
		WithField("client_id", created.ID).
		WithField("dni", created.DNI).
		Info("client created")
	return created, nil
}

// UpdateParams carry optional field updates. Nil pointers leave the stored
// value untouched.
type UpdateParams struct {
	Name           *string
	Email          *string
	Phone          *string
	DNIFrontURL    *string
	DNIBackURL     *string
	BankAccountPEN *string
	BankAccountUSD *string
	BankName       *string
	Notes          *string
}

// Update applies partial changes to a client. The DNI is immutable.
func (s *Service) Update(ctx context.Context, actor user.User, id int64, params UpdateParams) (client.Client, error) {
	if !actor.Role.CanManageClients() {
		return client.Client{}, errors.PermissionDenied("role " + string(actor.Role) + " cannot manage clients")
	}

	var updated client.Client
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		cl, err := tx.GetClient(ctx, id)
		if err != nil {
			return err
		}
		if params.Name != nil {
			name := strings.TrimSpace(*params.Name)
			if name == "" {
				return errors.Validation("client name is required")
			}
			cl.Name = name
		}
		if params.Email != nil {
			if err := validation.Email(*params.Email); err != nil {
				return err
			}
			cl.Email = strings.ToLower(strings.TrimSpace(*params.Email))
		}
		if params.Phone != nil {
			if err := validation.Phone(*params.Phone); err != nil {
				return err
			}
			cl.Phone = strings.TrimSpace(*params.Phone)
		}
		if params.DNIFrontURL != nil {
			cl.DNIFrontURL = strings.TrimSpace(*params.DNIFrontURL)
		}
		if params.DNIBackURL != nil {
			cl.DNIBackURL = strings.TrimSpace(*params.DNIBackURL)
		}
		if params.BankAccountPEN != nil {
			cl.BankAccountPEN = strings.TrimSpace(*params.BankAccountPEN)
		}
		if params.BankAccountUSD != nil {
			cl.BankAccountUSD = strings.TrimSpace(*params.BankAccountUSD)
		}
		if params.BankName != nil {
			cl.BankName = strings.TrimSpace(*params.BankName)
		}
		if params.Notes != nil {
			cl.Notes = strings.TrimSpace(*params.Notes)
		}

		updated, err = tx.UpdateClient(ctx, cl)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, actor, audit.ActionUpdateClient, updated.ID,
			fmt.Sprintf("client %s updated", updated.Name))
	})
	if err != nil {
		return client.Client{}, err
	}

	s.log.WithContext(ctx).WithField("client_id", updated.ID).Info("client updated")
	return updated, nil
}

// SetStatus activates or deactivates a client. Inactive clients cannot open
// new operations; existing operations are unaffected.
func (s *Service) SetStatus(ctx context.Context, actor user.User, id int64, status client.Status) (client.Client, error) {
	if !actor.Role.CanManageClients() {
		return client.Client{}, errors.PermissionDenied("role " + string(actor.Role) + " cannot manage clients")
	}
	if status != client.StatusActive && status != client.StatusInactive {
		return client.Client{}, errors.Validation("invalid client status %q", status)
	}

	var updated client.Client
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		cl, err := tx.GetClient(ctx, id)
		if err != nil {
			return err
		}
		old := cl.Status
		cl.Status = status
		updated, err = tx.UpdateClient(ctx, cl)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, actor, audit.ActionUpdateClientStatus, updated.ID,
			fmt.Sprintf("client %s: %s -> %s", updated.Name, old, status))
	})
	if err != nil {
		return client.Client{}, err
	}

	s.log.WithContext(ctx).
		WithField("client_id", updated.ID).
		WithField("status", updated.Status).
		Info("client status updated")
	return updated, nil
}

// Get retrieves a client by id.
func (s *Service) Get(ctx context.Context, id int64) (client.Client, error) {
	return s.store.GetClient(ctx, id)
}

// List returns all clients ordered by name.
func (s *Service) List(ctx context.Context) ([]client.Client, error) {
	return s.store.ListClients(ctx)
}

// ListActive returns clients eligible for new operations.
func (s *Service) ListActive(ctx context.Context) ([]client.Client, error) {
	return s.store.ListActiveClients(ctx)
}

// Search matches clients by name, DNI or email substring.
func (s *Service) Search(ctx context.Context, query string) ([]client.Client, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.store.ListClients(ctx)
	}
	return s.store.SearchClients(ctx, query)
}

func (s *Service) record(ctx context.Context, tx storage.TxStore, actor user.User, action string, entityID int64, details string) error {
	meta := audit.MetaFromContext(ctx)
	_, err := tx.AppendAudit(ctx, audit.Entry{
		UserID:    actor.ID,
		Action:    action,
		Entity:    audit.EntityClient,
		EntityID:  entityID,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return err
}
