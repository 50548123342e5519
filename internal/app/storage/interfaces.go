package storage

import (
	"context"
	"time"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/client"
	"github.com/qoricash/tradingdesk/internal/app/domain/operation"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
)

// OperationStore persists trading operations. Mutating callers are expected
// to run inside Store.InTx so the read-validate-write-audit sequence commits
// atomically.
type OperationStore interface {
	CreateOperation(ctx context.Context, op operation.Operation) (operation.Operation, error)
	UpdateOperation(ctx context.Context, op operation.Operation) (operation.Operation, error)
	GetOperation(ctx context.Context, id int64) (operation.Operation, error)
	// GetOperationForUpdate locks the row for the remainder of the enclosing
	// transaction. Outside a transaction it behaves like GetOperation.
	GetOperationForUpdate(ctx context.Context, id int64) (operation.Operation, error)
	GetOperationByTrackingID(ctx context.Context, trackingID string) (operation.Operation, error)
	ListOperations(ctx context.Context) ([]operation.Operation, error)
	ListOperationsByStatus(ctx context.Context, status operation.Status) ([]operation.Operation, error)
	ListOperationsByClient(ctx context.Context, clientID int64) ([]operation.Operation, error)
	ListOperationsBetween(ctx context.Context, from, to time.Time) ([]operation.Operation, error)
	// NextTrackingNumber atomically advances the tracking-id counter and
	// returns the new value. The first call yields 1001.
	NextTrackingNumber(ctx context.Context) (int64, error)
}

// ClientStore persists desk counterparties.
type ClientStore interface {
	CreateClient(ctx context.Context, c client.Client) (client.Client, error)
	UpdateClient(ctx context.Context, c client.Client) (client.Client, error)
	GetClient(ctx context.Context, id int64) (client.Client, error)
	ListClients(ctx context.Context) ([]client.Client, error)
	ListActiveClients(ctx context.Context) ([]client.Client, error)
	SearchClients(ctx context.Context, query string) ([]client.Client, error)
}

// UserStore persists back-office users.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// AuditStore appends to the audit trail. Entries are never updated or
// deleted.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry audit.Entry) (audit.Entry, error)
	ListAudit(ctx context.Context, limit int) ([]audit.Entry, error)
	ListAuditByEntity(ctx context.Context, entity string, entityID int64) ([]audit.Entry, error)
}

// TxStore is the full persistence surface visible inside a transaction.
type TxStore interface {
	OperationStore
	ClientStore
	UserStore
	AuditStore
}

// Store is the root persistence handle. InTx runs fn against a transactional
// view; an error from fn rolls the whole unit back, including audit writes.
type Store interface {
	TxStore
	InTx(ctx context.Context, fn func(TxStore) error) error
}
