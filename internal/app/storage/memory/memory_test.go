package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/client"
	"github.com/qoricash/tradingdesk/internal/app/domain/operation"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/errors"
)

func TestNextTrackingNumberSequence(t *testing.T) {
	store := New()
	ctx := context.Background()

	for want := int64(1001); want <= 1003; want++ {
		got, err := store.NextTrackingNumber(ctx)
		if err != nil {
			t.Fatalf("NextTrackingNumber: %v", err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
}

func TestInTxRollsBackEverything(t *testing.T) {
	store := New()
	ctx := context.Background()

	boom := fmt.Errorf("boom")
	err := store.InTx(ctx, func(tx storage.TxStore) error {
		if _, err := tx.NextTrackingNumber(ctx); err != nil {
			return err
		}
		if _, err := tx.CreateOperation(ctx, operation.Operation{TrackingID: "EXP-1001"}); err != nil {
			return err
		}
		if _, err := tx.AppendAudit(ctx, audit.Entry{Action: audit.ActionCreateOperation}); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("InTx returned %v, want the callback error", err)
	}

	if ops, _ := store.ListOperations(ctx); len(ops) != 0 {
		t.Error("operation write must be rolled back")
	}
	if entries, _ := store.ListAudit(ctx, 10); len(entries) != 0 {
		t.Error("audit write must be rolled back")
	}
	// the counter rolls back too, so nothing is burned
	if n, _ := store.NextTrackingNumber(ctx); n != 1001 {
		t.Errorf("counter = %d, want 1001 after rollback", n)
	}
}

func TestInTxCommits(t *testing.T) {
	store := New()
	ctx := context.Background()

	err := store.InTx(ctx, func(tx storage.TxStore) error {
		if _, err := tx.CreateOperation(ctx, operation.Operation{TrackingID: "EXP-1001"}); err != nil {
			return err
		}
		_, err := tx.AppendAudit(ctx, audit.Entry{Action: audit.ActionCreateOperation, Entity: audit.EntityOperation, EntityID: 1})
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	ops, _ := store.ListOperations(ctx)
	entries, _ := store.ListAudit(ctx, 10)
	if len(ops) != 1 || len(entries) != 1 {
		t.Fatalf("commit lost writes: %d operations, %d audit entries", len(ops), len(entries))
	}
}

func TestDuplicateClientDNI(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateClient(ctx, client.Client{Name: "a", DNI: "12345678", Email: "a@example.com"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := store.CreateClient(ctx, client.Client{Name: "b", DNI: "12345678", Email: "b@example.com"})
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestListOperationsNewestFirst(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.CreateOperation(ctx, operation.Operation{TrackingID: fmt.Sprintf("EXP-%d", 1001+i)}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	ops, err := store.ListOperations(ctx)
	if err != nil {
		t.Fatalf("ListOperations: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("got %d operations, want 3", len(ops))
	}
	// same created_at resolution, so the id tiebreak decides
	if ops[0].ID < ops[1].ID || ops[1].ID < ops[2].ID {
		t.Errorf("operations not newest first: %v, %v, %v", ops[0].ID, ops[1].ID, ops[2].ID)
	}
}

func TestGetOperationByTrackingID(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateOperation(ctx, operation.Operation{TrackingID: "EXP-1001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetOperationByTrackingID(ctx, "EXP-1001")
	if err != nil {
		t.Fatalf("GetOperationByTrackingID: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got id %d, want %d", got.ID, created.ID)
	}

	if _, err := store.GetOperationByTrackingID(ctx, "EXP-9999"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}
