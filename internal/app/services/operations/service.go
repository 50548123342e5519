// Package operations implements the trading-operation lifecycle: creation,
// status transitions, cancellation and proof attachment. Every mutation runs
// as one store transaction covering the read, the validation, the write and
// the audit entry; notifications go out only after commit.
package operations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/operation"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/errors"
	"github.com/qoricash/tradingdesk/internal/logging"
	"github.com/qoricash/tradingdesk/internal/notify"
	"github.com/qoricash/tradingdesk/internal/validation"
)

// Notifier receives fire-and-forget events after successful commits.
type Notifier interface {
	Publish(event notify.Event)
}

// Recorder counts lifecycle activity for monitoring.
type Recorder interface {
	RecordOperationCreated(kind string)
	RecordStatusTransition(from, to string)
}

// Config carries the desk policy knobs for operations.
type Config struct {
	// TrackingPrefix prefixes generated tracking ids, e.g. "EXP".
	TrackingPrefix string
	// RateMin and RateMax bound plausible exchange rates (inclusive).
	RateMin decimal.Decimal
	RateMax decimal.Decimal
}

// DefaultConfig returns the desk defaults: EXP prefix, 2.5 - 5.0 PEN per USD.
func DefaultConfig() Config {
	return Config{
		TrackingPrefix: "EXP",
		RateMin:        decimal.NewFromFloat(2.5),
		RateMax:        decimal.NewFromFloat(5.0),
	}
}

// Service manages the operation lifecycle.
type Service struct {
	store    storage.Store
	notifier Notifier
	recorder Recorder
	cfg      Config
	log      *logging.Logger
}

// New constructs an operations service.
func New(store storage.Store, cfg Config, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("operations")
	}
	if cfg.TrackingPrefix == "" {
		cfg.TrackingPrefix = "EXP"
	}
	if cfg.RateMin.IsZero() && cfg.RateMax.IsZero() {
		def := DefaultConfig()
		cfg.RateMin, cfg.RateMax = def.RateMin, def.RateMax
	}
	return &Service{store: store, cfg: cfg, log: log}
}

// WithNotifier attaches the notification sink. A nil notifier disables
// broadcasts.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithRecorder attaches a metrics sink.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// CreateParams are the caller-supplied fields for a new operation.
type CreateParams struct {
	ClientID           int64
	Kind               operation.Kind
	AmountUSD          decimal.Decimal
	ExchangeRate       decimal.Decimal
	SourceAccount      string
	DestinationAccount string
	Notes              string
}

// Create opens a new operation in Pending status on behalf of an active
// client. The local amount is derived once here and never recomputed.
func (s *Service) Create(ctx context.Context, actor user.User, params CreateParams) (operation.Operation, error) {
	if !actor.Role.CanCreateOperations() {
		return operation.Operation{}, errors.PermissionDenied("role " + string(actor.Role) + " cannot create operations")
	}
	if !params.Kind.Valid() {
		return operation.Operation{}, errors.Validation("invalid operation kind %q", params.Kind)
	}
	if err := validation.Amount(params.AmountUSD); err != nil {
		return operation.Operation{}, err
	}
	if err := validation.ExchangeRate(params.ExchangeRate, s.cfg.RateMin, s.cfg.RateMax); err != nil {
		return operation.Operation{}, err
	}

	var created operation.Operation
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		cl, err := tx.GetClient(ctx, params.ClientID)
		if err != nil {
			return err
		}
		if !cl.Active() {
			return errors.Validation("client %d is not active", cl.ID)
		}

		seq, err := tx.NextTrackingNumber(ctx)
		if err != nil {
			return err
		}
		trackingID := fmt.Sprintf("%s-%04d", s.cfg.TrackingPrefix, seq)

		op := operation.Operation{
			TrackingID:         trackingID,
			ClientID:           cl.ID,
			UserID:             actor.ID,
			Kind:               params.Kind,
			AmountUSD:          params.AmountUSD,
			ExchangeRate:       params.ExchangeRate,
			AmountPEN:          params.AmountUSD.Mul(params.ExchangeRate),
			SourceAccount:      strings.TrimSpace(params.SourceAccount),
			DestinationAccount: strings.TrimSpace(params.DestinationAccount),
			Notes:              strings.TrimSpace(params.Notes),
			Status:             operation.StatusPending,
		}

		created, err = tx.CreateOperation(ctx, op)
		if err != nil {
			return err
		}

		return s.record(ctx, tx, actor, audit.ActionCreateOperation, created.ID,
			fmt.Sprintf("operation %s created: %s $%s for client %d",
				created.TrackingID, created.Kind, created.AmountUSD, cl.ID), "")
	})
	if err != nil {
		return operation.Operation{}, err
	}

	if s.recorder != nil {
		s.recorder.RecordOperationCreated(string(created.Kind))
	}
	s.publish(notify.Event{
		Kind:       notify.EventOperationCreated,
		TrackingID: created.TrackingID,
		Payload: map[string]any{
			"kind":       created.Kind,
			"amount_usd": created.AmountUSD.String(),
			"status":     created.Status,
		},
	})
	s.publish(notify.Event{Kind: notify.EventDashboardRefresh})

	s.log.WithContext(ctx).
		WithField("tracking_id", created.TrackingID).
		WithField("kind", created.Kind).
		WithField("amount_usd", created.AmountUSD.String()).
		Info("operation created")
	return created, nil
}

// UpdateStatus moves an operation through the lifecycle. Transitions outside
// the legal table are rejected and leave the operation untouched.
func (s *Service) UpdateStatus(ctx context.Context, actor user.User, id int64, newStatus operation.Status, notes string) (operation.Operation, error) {
	if !newStatus.Valid() {
		return operation.Operation{}, errors.Validation("invalid status %q", newStatus)
	}
	notes = strings.TrimSpace(notes)

	var (
		updated   operation.Operation
		oldStatus operation.Status
	)
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		op, err := tx.GetOperationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !operation.CanTransition(op.Status, newStatus) {
			return errors.InvalidTransition(string(op.Status), string(newStatus))
		}

		oldStatus = op.Status
		now := time.Now().UTC()
		op.Status = newStatus
		if newStatus == operation.StatusCompleted {
			op.CompletedAt = now
		}
		if notes != "" {
			op.AppendNote(now, notes)
		}

		updated, err = tx.UpdateOperation(ctx, op)
		if err != nil {
			return err
		}

		return s.record(ctx, tx, actor, audit.ActionUpdateOperationStatus, op.ID,
			fmt.Sprintf("operation %s: %s -> %s", op.TrackingID, oldStatus, newStatus), notes)
	})
	if err != nil {
		return operation.Operation{}, err
	}

	if s.recorder != nil {
		s.recorder.RecordStatusTransition(string(oldStatus), string(updated.Status))
	}
	s.publish(notify.Event{
		Kind:       notify.EventOperationUpdated,
		TrackingID: updated.TrackingID,
		Payload:    map[string]any{"status": updated.Status, "old_status": oldStatus},
	})
	if updated.Status == operation.StatusCompleted {
		s.publish(notify.Event{
			Kind:       notify.EventOperationCompleted,
			TrackingID: updated.TrackingID,
			Payload: map[string]any{
				"amount_usd": updated.AmountUSD.String(),
				"amount_pen": updated.AmountPEN.String(),
			},
		})
	}
	if updated.Status == operation.StatusCanceled {
		s.publish(notify.Event{Kind: notify.EventOperationCanceled, TrackingID: updated.TrackingID})
	}
	s.publish(notify.Event{Kind: notify.EventDashboardRefresh})

	s.log.WithContext(ctx).
		WithField("tracking_id", updated.TrackingID).
		WithField("old_status", oldStatus).
		WithField("new_status", updated.Status).
		Info("operation status updated")
	return updated, nil
}

// Cancel terminates an operation with a mandatory reason. Terminal operations
// cannot be canceled.
func (s *Service) Cancel(ctx context.Context, actor user.User, id int64, reason string) (operation.Operation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return operation.Operation{}, errors.Validation("cancellation reason is required")
	}

	var (
		canceled  operation.Operation
		oldStatus operation.Status
	)
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		op, err := tx.GetOperationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !op.Cancelable() {
			return errors.InvalidTransition(string(op.Status), string(operation.StatusCanceled))
		}

		oldStatus = op.Status
		op.Status = operation.StatusCanceled
		op.AppendCancelReason(reason)

		canceled, err = tx.UpdateOperation(ctx, op)
		if err != nil {
			return err
		}

		return s.record(ctx, tx, actor, audit.ActionCancelOperation, op.ID,
			fmt.Sprintf("operation %s canceled", op.TrackingID), reason)
	})
	if err != nil {
		return operation.Operation{}, err
	}

	if s.recorder != nil {
		s.recorder.RecordStatusTransition(string(oldStatus), string(canceled.Status))
	}
	s.publish(notify.Event{
		Kind:       notify.EventOperationCanceled,
		TrackingID: canceled.TrackingID,
		Payload:    map[string]any{"reason": reason, "old_status": oldStatus},
	})
	s.publish(notify.Event{Kind: notify.EventDashboardRefresh})

	s.log.WithContext(ctx).
		WithField("tracking_id", canceled.TrackingID).
		WithField("reason", reason).
		Info("operation canceled")
	return canceled, nil
}

// ProofKind selects which proof slot AttachProof fills.
type ProofKind string

const (
	ProofPayment  ProofKind = "payment"
	ProofOperator ProofKind = "operator"
)

// AttachProof records an externally stored proof reference. This is a pure
// metadata update with no state-machine involvement, but it is still audited.
func (s *Service) AttachProof(ctx context.Context, actor user.User, id int64, kind ProofKind, url string) (operation.Operation, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return operation.Operation{}, errors.Validation("proof url is required")
	}
	if kind != ProofPayment && kind != ProofOperator {
		return operation.Operation{}, errors.Validation("invalid proof kind %q", kind)
	}

	var updated operation.Operation
	err := s.store.InTx(ctx, func(tx storage.TxStore) error {
		op, err := tx.GetOperationForUpdate(ctx, id)
		if err != nil {
			return err
		}

		switch kind {
		case ProofPayment:
			op.PaymentProofURL = url
		case ProofOperator:
			op.OperatorProofURL = url
		}

		updated, err = tx.UpdateOperation(ctx, op)
		if err != nil {
			return err
		}

		return s.record(ctx, tx, actor, audit.ActionUpdateOperationProofs, op.ID,
			fmt.Sprintf("%s proof attached to operation %s", kind, op.TrackingID), "")
	})
	if err != nil {
		return operation.Operation{}, err
	}

	s.log.WithContext(ctx).
		WithField("tracking_id", updated.TrackingID).
		WithField("proof_kind", kind).
		Info("proof attached")
	return updated, nil
}

// Get retrieves an operation by internal id.
func (s *Service) Get(ctx context.Context, id int64) (operation.Operation, error) {
	return s.store.GetOperation(ctx, id)
}

// GetByTrackingID retrieves an operation by its human-facing identifier.
func (s *Service) GetByTrackingID(ctx context.Context, trackingID string) (operation.Operation, error) {
	return s.store.GetOperationByTrackingID(ctx, trackingID)
}

// List returns all operations, newest first.
func (s *Service) List(ctx context.Context) ([]operation.Operation, error) {
	return s.store.ListOperations(ctx)
}

// ListByStatus returns operations in the given status, newest first.
func (s *Service) ListByStatus(ctx context.Context, status operation.Status) ([]operation.Operation, error) {
	if !status.Valid() {
		return nil, errors.Validation("invalid status %q", status)
	}
	return s.store.ListOperationsByStatus(ctx, status)
}

// ListByClient returns a client's operations, newest first.
func (s *Service) ListByClient(ctx context.Context, clientID int64) ([]operation.Operation, error) {
	return s.store.ListOperationsByClient(ctx, clientID)
}

// ListActionable returns the operator work queue: Pending and InProcess
// operations, newest first.
func (s *Service) ListActionable(ctx context.Context) ([]operation.Operation, error) {
	pending, err := s.store.ListOperationsByStatus(ctx, operation.StatusPending)
	if err != nil {
		return nil, err
	}
	inProcess, err := s.store.ListOperationsByStatus(ctx, operation.StatusInProcess)
	if err != nil {
		return nil, err
	}
	return append(pending, inProcess...), nil
}

// record appends the single audit entry coupled to a mutation. It must be
// called inside the mutation's transaction.
func (s *Service) record(ctx context.Context, tx storage.TxStore, actor user.User, action string, entityID int64, details, notes string) error {
	meta := audit.MetaFromContext(ctx)
	_, err := tx.AppendAudit(ctx, audit.Entry{
		UserID:    actor.ID,
		Action:    action,
		Entity:    audit.EntityOperation,
		EntityID:  entityID,
		Details:   details,
		Notes:     notes,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return err
}

func (s *Service) publish(event notify.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(event)
}
