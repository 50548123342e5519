package users

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/storage/memory"
	"github.com/qoricash/tradingdesk/internal/errors"
)

var master = user.User{ID: 1, Username: "master", Role: user.RoleMaster}

func validParams() CreateParams {
	return CreateParams{
		Username: "trader1",
		Email:    "trader1@qoricash.pe",
		Password: "secreta1",
		Role:     user.RoleTrader,
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc := New(memory.New(), nil)

	created, err := svc.Create(context.Background(), master, validParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.PasswordHash == "secreta1" {
		t.Fatal("password must not be stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secreta1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if created.Status != user.StatusActive {
		t.Errorf("status = %s, want Active", created.Status)
	}
}

func TestCreateUserMasterOnly(t *testing.T) {
	svc := New(memory.New(), nil)

	for _, role := range []user.Role{user.RoleTrader, user.RoleOperator} {
		actor := user.User{ID: 7, Role: role}
		if _, err := svc.Create(context.Background(), actor, validParams()); !errors.IsCode(err, errors.CodePermissionDenied) {
			t.Errorf("role %s: got %v, want permission denied", role, err)
		}
	}
}

func TestCreateUserPasswordPolicy(t *testing.T) {
	svc := New(memory.New(), nil)

	for _, password := range []string{"", "short1", "nodigits"} {
		params := validParams()
		params.Password = password
		if _, err := svc.Create(context.Background(), master, params); !errors.IsCode(err, errors.CodeValidation) {
			t.Errorf("password %q: got %v, want validation error", password, err)
		}
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Create(context.Background(), master, validParams()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	params := validParams()
	params.Email = "other@qoricash.pe"
	if _, err := svc.Create(context.Background(), master, params); !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestUpdateUserRole(t *testing.T) {
	svc := New(memory.New(), nil)

	created, err := svc.Create(context.Background(), master, validParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newRole := user.RoleOperator
	updated, err := svc.Update(context.Background(), master, created.ID, UpdateParams{Role: &newRole})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Role != user.RoleOperator {
		t.Errorf("role = %s, want Operator", updated.Role)
	}
	if updated.Username != created.Username {
		t.Error("username is immutable")
	}

	bad := user.Role("Admin")
	if _, err := svc.Update(context.Background(), master, created.ID, UpdateParams{Role: &bad}); !errors.IsCode(err, errors.CodeValidation) {
		t.Errorf("got %v, want validation error for unknown role", err)
	}
}

func TestSetStatusSelfDeactivation(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	seeded, err := store.CreateUser(context.Background(), user.User{
		Username: "master", Email: "master@qoricash.pe", PasswordHash: "x",
		Role: user.RoleMaster, Status: user.StatusActive,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.SetStatus(context.Background(), seeded, seeded.ID, user.StatusInactive); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("got %v, want validation error for self-deactivation", err)
	}
}

func TestListUsersMasterOnly(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.List(context.Background(), user.User{ID: 3, Role: user.RoleTrader}); !errors.IsCode(err, errors.CodePermissionDenied) {
		t.Fatalf("got %v, want permission denied", err)
	}
}
