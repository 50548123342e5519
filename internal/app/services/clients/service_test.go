package clients

import (
	"context"
	"testing"

	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/client"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/storage/memory"
	"github.com/qoricash/tradingdesk/internal/errors"
)

var trader = user.User{ID: 1, Username: "trader1", Role: user.RoleTrader}

func validParams() CreateParams {
	return CreateParams{
		Name:  "Maria Quispe",
		DNI:   "12345678",
		Email: "maria@example.com",
		Phone: "987654321",
	}
}

func TestCreateClient(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	cl, err := svc.Create(context.Background(), trader, validParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cl.Status != client.StatusActive {
		t.Errorf("status = %s, want Active", cl.Status)
	}
	if cl.ID == 0 {
		t.Error("id must be assigned")
	}

	entries, _ := store.ListAudit(context.Background(), 10)
	if len(entries) != 1 || entries[0].Action != audit.ActionCreateClient {
		t.Errorf("unexpected audit trail %+v", entries)
	}
}

func TestCreateClientValidation(t *testing.T) {
	svc := New(memory.New(), nil)

	cases := map[string]CreateParams{
		"empty name": func() CreateParams { p := validParams(); p.Name = " "; return p }(),
		"bad dni":    func() CreateParams { p := validParams(); p.DNI = "123"; return p }(),
		"bad email":  func() CreateParams { p := validParams(); p.Email = "nope"; return p }(),
		"bad phone":  func() CreateParams { p := validParams(); p.Phone = "12"; return p }(),
	}
	for name, params := range cases {
		if _, err := svc.Create(context.Background(), trader, params); !errors.IsCode(err, errors.CodeValidation) {
			t.Errorf("%s: got %v, want validation error", name, err)
		}
	}
}

func TestCreateClientDuplicateDNI(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Create(context.Background(), trader, validParams()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	params := validParams()
	params.Email = "other@example.com"
	if _, err := svc.Create(context.Background(), trader, params); !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestCreateClientRequiresRole(t *testing.T) {
	svc := New(memory.New(), nil)
	operator := user.User{ID: 2, Role: user.RoleOperator}

	if _, err := svc.Create(context.Background(), operator, validParams()); !errors.IsCode(err, errors.CodePermissionDenied) {
		t.Fatalf("got %v, want permission denied", err)
	}
}

func TestUpdateClientPartial(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	cl, err := svc.Create(context.Background(), trader, validParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newPhone := "4567890"
	updated, err := svc.Update(context.Background(), trader, cl.ID, UpdateParams{Phone: &newPhone})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Phone != "4567890" {
		t.Errorf("phone = %q, want 4567890", updated.Phone)
	}
	if updated.Name != cl.Name || updated.Email != cl.Email {
		t.Error("untouched fields must survive a partial update")
	}
	if updated.DNI != cl.DNI {
		t.Error("dni is immutable")
	}
}

func TestSetClientStatus(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	cl, err := svc.Create(context.Background(), trader, validParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.SetStatus(context.Background(), trader, cl.ID, client.StatusInactive)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Active() {
		t.Error("client must be inactive")
	}

	if _, err := svc.SetStatus(context.Background(), trader, cl.ID, client.Status("Frozen")); !errors.IsCode(err, errors.CodeValidation) {
		t.Errorf("got %v, want validation error for unknown status", err)
	}

	entries, _ := store.ListAudit(context.Background(), 10)
	if entries[0].Action != audit.ActionUpdateClientStatus {
		t.Errorf("newest audit action = %s, want UPDATE_CLIENT_STATUS", entries[0].Action)
	}
}

func TestSearchClients(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Create(context.Background(), trader, validParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := CreateParams{Name: "Jorge Flores", DNI: "87654321", Email: "jorge@example.com"}
	if _, err := svc.Create(context.Background(), trader, second); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := svc.Search(context.Background(), "maria")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Maria Quispe" {
		t.Fatalf("unexpected search result %+v", found)
	}

	byDNI, err := svc.Search(context.Background(), "8765")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(byDNI) != 1 || byDNI[0].Name != "Jorge Flores" {
		t.Fatalf("unexpected dni search result %+v", byDNI)
	}

	all, err := svc.Search(context.Background(), "  ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("blank query must list all clients, got %d", len(all))
	}
}
