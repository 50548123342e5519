// Package httpapi exposes the desk's REST API.
package httpapi

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	app "github.com/qoricash/tradingdesk/internal/app"
	"github.com/qoricash/tradingdesk/internal/app/domain/audit"
	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/errors"
	"github.com/qoricash/tradingdesk/internal/middleware"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewRouter returns the full API router: authenticated REST endpoints plus
// the health, metrics and websocket surfaces.
func NewRouter(application *app.Application, authMW *middleware.AuthMiddleware) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.Use(requestMeta)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if application.Metrics != nil {
		r.Handle("/metrics", application.Metrics.Handler()).Methods(http.MethodGet)
	}
	if application.Hub != nil {
		r.Handle("/ws", application.Hub)
	}

	api := r.PathPrefix("/api").Subrouter()
	// Metrics stay off the websocket route; the wrapped writer would hide
	// the Hijacker the upgrader needs.
	if application.Metrics != nil {
		api.Use(middleware.MetricsMiddleware("tradingdesk", application.Metrics))
	}
	api.Use(authMW.Handler)

	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)

	api.HandleFunc("/operations", h.createOperation).Methods(http.MethodPost)
	api.HandleFunc("/operations", h.listOperations).Methods(http.MethodGet)
	api.HandleFunc("/operations/actionable", h.listActionable).Methods(http.MethodGet)
	api.HandleFunc("/operations/tracking/{trackingID}", h.getOperationByTrackingID).Methods(http.MethodGet)
	api.HandleFunc("/operations/{id:[0-9]+}", h.getOperation).Methods(http.MethodGet)
	api.HandleFunc("/operations/{id:[0-9]+}/status", h.updateOperationStatus).Methods(http.MethodPut)
	api.HandleFunc("/operations/{id:[0-9]+}/cancel", h.cancelOperation).Methods(http.MethodPost)
	api.HandleFunc("/operations/{id:[0-9]+}/proofs", h.attachProof).Methods(http.MethodPut)

	api.HandleFunc("/clients", h.createClient).Methods(http.MethodPost)
	api.HandleFunc("/clients", h.listClients).Methods(http.MethodGet)
	api.HandleFunc("/clients/search", h.searchClients).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id:[0-9]+}", h.getClient).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id:[0-9]+}", h.updateClient).Methods(http.MethodPut)
	api.HandleFunc("/clients/{id:[0-9]+}/status", h.updateClientStatus).Methods(http.MethodPut)
	api.HandleFunc("/clients/{id:[0-9]+}/operations", h.listClientOperations).Methods(http.MethodGet)

	api.HandleFunc("/users", h.createUser).Methods(http.MethodPost)
	api.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", h.getUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", h.updateUser).Methods(http.MethodPut)
	api.HandleFunc("/users/{id:[0-9]+}/status", h.updateUserStatus).Methods(http.MethodPut)

	api.HandleFunc("/dashboard/stats", h.dashboardStats).Methods(http.MethodGet)

	api.HandleFunc("/audit", h.listAudit).Methods(http.MethodGet)
	api.HandleFunc("/audit/{entity}/{id:[0-9]+}", h.listAuditByEntity).Methods(http.MethodGet)

	return r
}

// requestMeta stashes the caller's address and agent for audit records.
func requestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			ip = host
		}
		ctx := audit.WithMeta(r.Context(), audit.Meta{
			IPAddress: ip,
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "ok"})
}

// envelope is the uniform response shape.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Validation("invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal(err)
	}
	body := map[string]any{
		"code":    serviceErr.Code,
		"message": serviceErr.Message,
	}
	if len(serviceErr.Details) > 0 {
		body["details"] = serviceErr.Details
	}
	writeJSON(w, serviceErr.HTTPStatus, envelope{Success: false, Error: body})
}

// actor resolves the authenticated account, failing the request when absent.
func actor(w http.ResponseWriter, r *http.Request) (user.User, bool) {
	u, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, errors.Unauthorized("authentication required"))
		return user.User{}, false
	}
	return u, true
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation("invalid id %q", raw)
	}
	return id, nil
}
