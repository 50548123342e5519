package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	app "github.com/qoricash/tradingdesk/internal/app"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/logging"
	"github.com/qoricash/tradingdesk/internal/middleware"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	application := app.New(app.Options{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("secreta1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := application.Store.CreateUser(context.Background(), user.User{
		Username:     "master",
		Email:        "master@qoricash.pe",
		PasswordHash: string(hash),
		Role:         user.RoleMaster,
		Status:       user.StatusActive,
	}); err != nil {
		t.Fatalf("seed master: %v", err)
	}

	log := logging.NewDefault("test")
	authMW := middleware.NewAuthMiddleware(application.Auth, log, []string{"/api/auth/login"})
	server := httptest.NewServer(NewRouter(application, authMW))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func login(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"login":    "master",
		"password": "secreta1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	return data["token"].(string)
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("health: status %d, body %v", resp.StatusCode, body)
	}
}

func TestLoginAndRejectBadCredentials(t *testing.T) {
	server := newTestServer(t)
	if token := login(t, server); token == "" {
		t.Fatal("empty token")
	}

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"login":    "master",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad credentials: status %d, body %v", resp.StatusCode, body)
	}
	if body["success"] != false {
		t.Error("error envelope must carry success=false")
	}
}

func TestRequestsRequireToken(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/operations", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestOperationLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/clients", token, map[string]any{
		"name":  "Maria Quispe",
		"dni":   "12345678",
		"email": "maria@example.com",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create client: status %d, body %v", resp.StatusCode, body)
	}
	clientID := int64(body["data"].(map[string]any)["id"].(float64))

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/operations", token, map[string]any{
		"client_id":     clientID,
		"kind":          "Purchase",
		"amount_usd":    "1000",
		"exchange_rate": "3.75",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create operation: status %d, body %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	if data["tracking_id"] != "EXP-1001" {
		t.Errorf("tracking id = %v, want EXP-1001", data["tracking_id"])
	}
	if data["amount_pen"] != "3750" {
		t.Errorf("amount_pen = %v, want 3750", data["amount_pen"])
	}
	opID := int64(data["id"].(float64))

	// Pending -> Completed is illegal and must come back as a conflict.
	resp, body = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/operations/%d/status", server.URL, opID), token, map[string]any{
		"status": "Completed",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("illegal jump: status %d, body %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/operations/%d/status", server.URL, opID), token, map[string]any{
		"status": "InProcess",
		"notes":  "wire sent",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("to InProcess: status %d", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/operations/%d/status", server.URL, opID), token, map[string]any{
		"status": "Completed",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("to Completed: status %d, body %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/audit?limit=10", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audit: status %d", resp.StatusCode)
	}
	entries := body["data"].([]any)
	// create client, create operation, two transitions, login
	if len(entries) != 5 {
		t.Errorf("got %d audit entries, want 5", len(entries))
	}
}

func TestCancelWithoutReason(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server)

	_, body := doJSON(t, http.MethodPost, server.URL+"/api/clients", token, map[string]any{
		"name": "Maria Quispe", "dni": "12345678", "email": "maria@example.com",
	})
	clientID := int64(body["data"].(map[string]any)["id"].(float64))

	_, body = doJSON(t, http.MethodPost, server.URL+"/api/operations", token, map[string]any{
		"client_id": clientID, "kind": "Sale", "amount_usd": "500", "exchange_rate": "3.60",
	})
	opID := int64(body["data"].(map[string]any)["id"].(float64))

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/operations/%d/cancel", server.URL, opID), token, map[string]any{
		"reason": "",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422, body %v", resp.StatusCode, body)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/clients", token, map[string]any{
		"name": "X", "dni": "12345678", "email": "x@example.com", "bogus": true,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422 for unknown field", resp.StatusCode)
	}
}

func TestUserEndpointsHidePasswordHash(t *testing.T) {
	server := newTestServer(t)
	token := login(t, server)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/users", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users: status %d", resp.StatusCode)
	}
	raw, _ := json.Marshal(body)
	if bytes.Contains(raw, []byte("password")) {
		t.Error("user responses must not leak password material")
	}
}
