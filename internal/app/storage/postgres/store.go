// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/lib/pq"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/client"
	"github.com/qoricash/tradingdesk/internal/app/domain/operation"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/errors"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
	q  querier
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// InTx runs fn against a transactional view of the store. Row locks taken via
// GetOperationForUpdate are held until commit or rollback.
func (s *Store) InTx(ctx context.Context, fn func(storage.TxStore) error) error {
	if s.db == nil {
		// Already inside a transaction; nested units join it.
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Internal(err)
	}

	txStore := &Store{q: tx}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Internal(err)
	}
	return nil
}

const uniqueViolation = "23505"

func mapError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(entity, id)
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return errors.Conflict(pqErr.Detail)
	}
	return errors.Internal(err)
}

// --- OperationStore ---------------------------------------------------------

const operationColumns = `id, tracking_id, client_id, user_id, kind, amount_usd, exchange_rate, amount_pen,
	source_account, destination_account, payment_proof_url, operator_proof_url,
	status, notes, created_at, updated_at, completed_at`

func (s *Store) CreateOperation(ctx context.Context, op operation.Operation) (operation.Operation, error) {
	now := time.Now().UTC()
	op.CreatedAt = now
	op.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO operations (tracking_id, client_id, user_id, kind, amount_usd, exchange_rate, amount_pen,
			source_account, destination_account, payment_proof_url, operator_proof_url,
			status, notes, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`, op.TrackingID, op.ClientID, op.UserID, op.Kind, op.AmountUSD, op.ExchangeRate, op.AmountPEN,
		op.SourceAccount, op.DestinationAccount, op.PaymentProofURL, op.OperatorProofURL,
		op.Status, op.Notes, op.CreatedAt, op.UpdatedAt, toNullTime(op.CompletedAt)).Scan(&op.ID)
	if err != nil {
		return operation.Operation{}, mapError(err, audit.EntityOperation, op.TrackingID)
	}
	return op, nil
}

func (s *Store) UpdateOperation(ctx context.Context, op operation.Operation) (operation.Operation, error) {
	op.UpdatedAt = time.Now().UTC()

	result, err := s.q.ExecContext(ctx, `
		UPDATE operations
		SET status = $2, notes = $3, source_account = $4, destination_account = $5,
			payment_proof_url = $6, operator_proof_url = $7, updated_at = $8, completed_at = $9
		WHERE id = $1
	`, op.ID, op.Status, op.Notes, op.SourceAccount, op.DestinationAccount,
		op.PaymentProofURL, op.OperatorProofURL, op.UpdatedAt, toNullTime(op.CompletedAt))
	if err != nil {
		return operation.Operation{}, mapError(err, audit.EntityOperation, op.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return operation.Operation{}, errors.NotFound(audit.EntityOperation, op.ID)
	}
	return op, nil
}

func (s *Store) GetOperation(ctx context.Context, id int64) (operation.Operation, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE id = $1
	`, id)
	return scanOperation(row, id)
}

func (s *Store) GetOperationForUpdate(ctx context.Context, id int64) (operation.Operation, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanOperation(row, id)
}

func (s *Store) GetOperationByTrackingID(ctx context.Context, trackingID string) (operation.Operation, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE tracking_id = $1
	`, trackingID)
	return scanOperation(row, trackingID)
}

func (s *Store) ListOperations(ctx context.Context) ([]operation.Operation, error) {
	return s.queryOperations(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		ORDER BY created_at DESC
	`)
}

func (s *Store) ListOperationsByStatus(ctx context.Context, status operation.Status) ([]operation.Operation, error) {
	return s.queryOperations(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE status = $1
		ORDER BY created_at DESC
	`, status)
}

func (s *Store) ListOperationsByClient(ctx context.Context, clientID int64) ([]operation.Operation, error) {
	return s.queryOperations(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE client_id = $1
		ORDER BY created_at DESC
	`, clientID)
}

func (s *Store) ListOperationsBetween(ctx context.Context, from, to time.Time) ([]operation.Operation, error) {
	return s.queryOperations(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
	`, from.UTC(), to.UTC())
}

// NextTrackingNumber advances the counter row under the enclosing
// transaction's lock, serializing concurrent creators.
func (s *Store) NextTrackingNumber(ctx context.Context) (int64, error) {
	var value int64
	err := s.q.QueryRowContext(ctx, `
		UPDATE operation_counter
		SET value = value + 1
		WHERE name = 'operation'
		RETURNING value
	`).Scan(&value)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return value, nil
}

func (s *Store) queryOperations(ctx context.Context, query string, args ...any) ([]operation.Operation, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal(err)
	}
	defer rows.Close()

	var result []operation.Operation
	for rows.Next() {
		op, err := scanOperationRow(rows)
		if err != nil {
			return nil, errors.Internal(err)
		}
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperationRow(row rowScanner) (operation.Operation, error) {
	var (
		op          operation.Operation
		completedAt sql.NullTime
	)
	err := row.Scan(&op.ID, &op.TrackingID, &op.ClientID, &op.UserID, &op.Kind,
		&op.AmountUSD, &op.ExchangeRate, &op.AmountPEN,
		&op.SourceAccount, &op.DestinationAccount, &op.PaymentProofURL, &op.OperatorProofURL,
		&op.Status, &op.Notes, &op.CreatedAt, &op.UpdatedAt, &completedAt)
	if err != nil {
		return operation.Operation{}, err
	}
	if completedAt.Valid {
		op.CompletedAt = completedAt.Time.UTC()
	}
	return op, nil
}

func scanOperation(row *sql.Row, id any) (operation.Operation, error) {
	op, err := scanOperationRow(row)
	if err != nil {
		return operation.Operation{}, mapError(err, audit.EntityOperation, id)
	}
	return op, nil
}

// --- ClientStore ------------------------------------------------------------

const clientColumns = `id, name, dni, email, phone, dni_front_url, dni_back_url,
	bank_account_pen, bank_account_usd, bank_name, status, notes, created_at, updated_at`

func (s *Store) CreateClient(ctx context.Context, c client.Client) (client.Client, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO clients (name, dni, email, phone, dni_front_url, dni_back_url,
			bank_account_pen, bank_account_usd, bank_name, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, c.Name, c.DNI, c.Email, c.Phone, c.DNIFrontURL, c.DNIBackURL,
		c.BankAccountPEN, c.BankAccountUSD, c.BankName, c.Status, c.Notes, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		return client.Client{}, mapError(err, audit.EntityClient, c.DNI)
	}
	return c, nil
}

func (s *Store) UpdateClient(ctx context.Context, c client.Client) (client.Client, error) {
	c.UpdatedAt = time.Now().UTC()

	result, err := s.q.ExecContext(ctx, `
		UPDATE clients
		SET name = $2, dni = $3, email = $4, phone = $5, dni_front_url = $6, dni_back_url = $7,
			bank_account_pen = $8, bank_account_usd = $9, bank_name = $10, status = $11, notes = $12, updated_at = $13
		WHERE id = $1
	`, c.ID, c.Name, c.DNI, c.Email, c.Phone, c.DNIFrontURL, c.DNIBackURL,
		c.BankAccountPEN, c.BankAccountUSD, c.BankName, c.Status, c.Notes, c.UpdatedAt)
	if err != nil {
		return client.Client{}, mapError(err, audit.EntityClient, c.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return client.Client{}, errors.NotFound(audit.EntityClient, c.ID)
	}
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id int64) (client.Client, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1
	`, id)

	c, err := scanClient(row)
	if err != nil {
		return client.Client{}, mapError(err, audit.EntityClient, id)
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]client.Client, error) {
	return s.queryClients(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		ORDER BY created_at DESC
	`)
}

func (s *Store) ListActiveClients(ctx context.Context) ([]client.Client, error) {
	return s.queryClients(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE status = $1
		ORDER BY name
	`, client.StatusActive)
}

func (s *Store) SearchClients(ctx context.Context, query string) ([]client.Client, error) {
	pattern := "%" + query + "%"
	return s.queryClients(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE name ILIKE $1 OR dni LIKE $1 OR email ILIKE $1
		ORDER BY name
	`, pattern)
}

func (s *Store) queryClients(ctx context.Context, query string, args ...any) ([]client.Client, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal(err)
	}
	defer rows.Close()

	var result []client.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, errors.Internal(err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(err)
	}
	return result, nil
}

func scanClient(row rowScanner) (client.Client, error) {
	var c client.Client
	err := row.Scan(&c.ID, &c.Name, &c.DNI, &c.Email, &c.Phone, &c.DNIFrontURL, &c.DNIBackURL,
		&c.BankAccountPEN, &c.BankAccountUSD, &c.BankName, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, username, email, password_hash, dni, role, status,
	created_at, updated_at, last_login, last_logout`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, dni, role, status, created_at, updated_at, last_login, last_logout)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, u.Username, u.Email, u.PasswordHash, u.DNI, u.Role, u.Status,
		u.CreatedAt, u.UpdatedAt, toNullTime(u.LastLogin), toNullTime(u.LastLogout)).Scan(&u.ID)
	if err != nil {
		return user.User{}, mapError(err, audit.EntityUser, u.Username)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()

	result, err := s.q.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, dni = $5, role = $6, status = $7,
			updated_at = $8, last_login = $9, last_logout = $10
		WHERE id = $1
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.DNI, u.Role, u.Status,
		u.UpdatedAt, toNullTime(u.LastLogin), toNullTime(u.LastLogout))
	if err != nil {
		return user.User{}, mapError(err, audit.EntityUser, u.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, errors.NotFound(audit.EntityUser, u.ID)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)

	u, err := scanUser(row)
	if err != nil {
		return user.User{}, mapError(err, audit.EntityUser, id)
	}
	return u, nil
}

func (s *Store) GetUserByLogin(ctx context.Context, usernameOrEmail string) (user.User, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 OR lower(email) = lower($1)
	`, usernameOrEmail)

	u, err := scanUser(row)
	if err != nil {
		return user.User{}, mapError(err, audit.EntityUser, usernameOrEmail)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.Internal(err)
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Internal(err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(err)
	}
	return result, nil
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u          user.User
		lastLogin  sql.NullTime
		lastLogout sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DNI, &u.Role, &u.Status,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin, &lastLogout)
	if err != nil {
		return user.User{}, err
	}
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time.UTC()
	}
	if lastLogout.Valid {
		u.LastLogout = lastLogout.Time.UTC()
	}
	return u, nil
}

// --- AuditStore -------------------------------------------------------------

func (s *Store) AppendAudit(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	entry.CreatedAt = time.Now().UTC()

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO audit_logs (user_id, action, entity, entity_id, details, notes, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, entry.UserID, entry.Action, entry.Entity, entry.EntityID, entry.Details, entry.Notes,
		entry.IPAddress, entry.UserAgent, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return audit.Entry{}, errors.Internal(err)
	}
	return entry, nil
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 200
	}
	return s.queryAudit(ctx, `
		SELECT id, user_id, action, entity, entity_id, details, notes, ip_address, user_agent, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

func (s *Store) ListAuditByEntity(ctx context.Context, entity string, entityID int64) ([]audit.Entry, error) {
	return s.queryAudit(ctx, `
		SELECT id, user_id, action, entity, entity_id, details, notes, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at
	`, entity, entityID)
}

func (s *Store) queryAudit(ctx context.Context, query string, args ...any) ([]audit.Entry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal(err)
	}
	defer rows.Close()

	var result []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Entity, &entry.EntityID,
			&entry.Details, &entry.Notes, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, errors.Internal(err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(err)
	}
	return result, nil
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
