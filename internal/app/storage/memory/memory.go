// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/client"
	"github.com/qoricash/tradingdesk/internal/app/domain/operation"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/errors"
)

// Store is the in-memory store.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	nextOperationID int64
	nextClientID    int64
	nextUserID      int64
	nextAuditID     int64
	trackingCounter int64

	operations map[int64]operation.Operation
	clients    map[int64]client.Client
	users      map[int64]user.User
	auditTrail []audit.Entry
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store. The tracking counter starts so that the first
// generated number is 1001.
func New() *Store {
	return &Store{
		nextOperationID: 1,
		nextClientID:    1,
		nextUserID:      1,
		nextAuditID:     1,
		trackingCounter: 1000,
		operations:      make(map[int64]operation.Operation),
		clients:         make(map[int64]client.Client),
		users:           make(map[int64]user.User),
	}
}

// InTx serializes fn against all other transactions and restores the previous
// state if fn fails, mirroring a relational rollback.
func (s *Store) InTx(_ context.Context, fn func(storage.TxStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	nextOperationID int64
	nextClientID    int64
	nextUserID      int64
	nextAuditID     int64
	trackingCounter int64
	operations      map[int64]operation.Operation
	clients         map[int64]client.Client
	users           map[int64]user.User
	auditTrail      []audit.Entry
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := make(map[int64]operation.Operation, len(s.operations))
	for k, v := range s.operations {
		ops[k] = v
	}
	cls := make(map[int64]client.Client, len(s.clients))
	for k, v := range s.clients {
		cls[k] = v
	}
	usrs := make(map[int64]user.User, len(s.users))
	for k, v := range s.users {
		usrs[k] = v
	}
	return snapshot{
		nextOperationID: s.nextOperationID,
		nextClientID:    s.nextClientID,
		nextUserID:      s.nextUserID,
		nextAuditID:     s.nextAuditID,
		trackingCounter: s.trackingCounter,
		operations:      ops,
		clients:         cls,
		users:           usrs,
		auditTrail:      append([]audit.Entry(nil), s.auditTrail...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOperationID = snap.nextOperationID
	s.nextClientID = snap.nextClientID
	s.nextUserID = snap.nextUserID
	s.nextAuditID = snap.nextAuditID
	s.trackingCounter = snap.trackingCounter
	s.operations = snap.operations
	s.clients = snap.clients
	s.users = snap.users
	s.auditTrail = snap.auditTrail
}

// OperationStore implementation ----------------------------------------------

func (s *Store) CreateOperation(_ context.Context, op operation.Operation) (operation.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.operations {
		if existing.TrackingID == op.TrackingID {
			return operation.Operation{}, errors.Conflict("tracking id " + op.TrackingID + " already exists")
		}
	}

	op.ID = s.nextOperationID
	s.nextOperationID++

	now := time.Now().UTC()
	op.CreatedAt = now
	op.UpdatedAt = now

	s.operations[op.ID] = op
	return op, nil
}

func (s *Store) UpdateOperation(_ context.Context, op operation.Operation) (operation.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.operations[op.ID]
	if !ok {
		return operation.Operation{}, errors.NotFound(audit.EntityOperation, op.ID)
	}

	op.TrackingID = original.TrackingID
	op.CreatedAt = original.CreatedAt
	op.UpdatedAt = time.Now().UTC()

	s.operations[op.ID] = op
	return op, nil
}

func (s *Store) GetOperation(_ context.Context, id int64) (operation.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.operations[id]
	if !ok {
		return operation.Operation{}, errors.NotFound(audit.EntityOperation, id)
	}
	return op, nil
}

func (s *Store) GetOperationForUpdate(ctx context.Context, id int64) (operation.Operation, error) {
	// Transactions are fully serialized here, so a plain read suffices.
	return s.GetOperation(ctx, id)
}

func (s *Store) GetOperationByTrackingID(_ context.Context, trackingID string) (operation.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, op := range s.operations {
		if op.TrackingID == trackingID {
			return op, nil
		}
	}
	return operation.Operation{}, errors.NotFound(audit.EntityOperation, trackingID)
}

func (s *Store) ListOperations(_ context.Context) ([]operation.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]operation.Operation, 0, len(s.operations))
	for _, op := range s.operations {
		result = append(result, op)
	}
	sortOperations(result)
	return result, nil
}

func (s *Store) ListOperationsByStatus(_ context.Context, status operation.Status) ([]operation.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]operation.Operation, 0)
	for _, op := range s.operations {
		if op.Status == status {
			result = append(result, op)
		}
	}
	sortOperations(result)
	return result, nil
}

func (s *Store) ListOperationsByClient(_ context.Context, clientID int64) ([]operation.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]operation.Operation, 0)
	for _, op := range s.operations {
		if op.ClientID == clientID {
			result = append(result, op)
		}
	}
	sortOperations(result)
	return result, nil
}

func (s *Store) ListOperationsBetween(_ context.Context, from, to time.Time) ([]operation.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]operation.Operation, 0)
	for _, op := range s.operations {
		if !op.CreatedAt.Before(from) && op.CreatedAt.Before(to) {
			result = append(result, op)
		}
	}
	sortOperations(result)
	return result, nil
}

func (s *Store) NextTrackingNumber(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trackingCounter++
	return s.trackingCounter, nil
}

// ClientStore implementation -------------------------------------------------

func (s *Store) CreateClient(_ context.Context, c client.Client) (client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.clients {
		if existing.DNI == c.DNI {
			return client.Client{}, errors.Conflict("dni already registered")
		}
		if strings.EqualFold(existing.Email, c.Email) {
			return client.Client{}, errors.Conflict("email already registered")
		}
	}

	c.ID = s.nextClientID
	s.nextClientID++

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) UpdateClient(_ context.Context, c client.Client) (client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.clients[c.ID]
	if !ok {
		return client.Client{}, errors.NotFound(audit.EntityClient, c.ID)
	}

	for _, existing := range s.clients {
		if existing.ID == c.ID {
			continue
		}
		if existing.DNI == c.DNI {
			return client.Client{}, errors.Conflict("dni already registered")
		}
		if strings.EqualFold(existing.Email, c.Email) {
			return client.Client{}, errors.Conflict("email already registered")
		}
	}

	c.CreatedAt = original.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) GetClient(_ context.Context, id int64) (client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return client.Client{}, errors.NotFound(audit.EntityClient, id)
	}
	return c, nil
}

func (s *Store) ListClients(_ context.Context) ([]client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]client.Client, 0, len(s.clients))
	for _, c := range s.clients {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) ListActiveClients(_ context.Context) ([]client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]client.Client, 0)
	for _, c := range s.clients {
		if c.Active() {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) SearchClients(_ context.Context, query string) ([]client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	result := make([]client.Client, 0)
	for _, c := range s.clients {
		if strings.Contains(strings.ToLower(c.Name), query) ||
			strings.Contains(c.DNI, query) ||
			strings.Contains(strings.ToLower(c.Email), query) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UserStore implementation ---------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return user.User{}, errors.Conflict("username already taken")
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, errors.Conflict("email already registered")
		}
		if u.DNI != "" && existing.DNI == u.DNI {
			return user.User{}, errors.Conflict("dni already registered")
		}
	}

	u.ID = s.nextUserID
	s.nextUserID++

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, errors.NotFound(audit.EntityUser, u.ID)
	}

	for _, existing := range s.users {
		if existing.ID == u.ID {
			continue
		}
		if existing.Username == u.Username {
			return user.User{}, errors.Conflict("username already taken")
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, errors.Conflict("email already registered")
		}
	}

	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, errors.NotFound(audit.EntityUser, id)
	}
	return u, nil
}

func (s *Store) GetUserByLogin(_ context.Context, usernameOrEmail string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == usernameOrEmail || strings.EqualFold(u.Email, usernameOrEmail) {
			return u, nil
		}
	}
	return user.User{}, errors.NotFound(audit.EntityUser, usernameOrEmail)
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// AuditStore implementation --------------------------------------------------

func (s *Store) AppendAudit(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextAuditID
	s.nextAuditID++
	entry.CreatedAt = time.Now().UTC()

	s.auditTrail = append(s.auditTrail, entry)
	return entry, nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := append([]audit.Entry(nil), s.auditTrail...)
	// Newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) ListAuditByEntity(_ context.Context, entity string, entityID int64) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]audit.Entry, 0)
	for _, entry := range s.auditTrail {
		if entry.Entity == entity && entry.EntityID == entityID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func sortOperations(ops []operation.Operation) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].CreatedAt.Equal(ops[j].CreatedAt) {
			return ops[i].ID > ops[j].ID
		}
		return ops[i].CreatedAt.After(ops[j].CreatedAt)
	})
}
