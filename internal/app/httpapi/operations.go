package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/qoricash/tradingdesk/internal/app/domain/operation"
	"github.com/qoricash/tradingdesk/internal/app/services/operations"
	"github.com/qoricash/tradingdesk/internal/errors"
)

func (h *handler) createOperation(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}

	var payload struct {
		ClientID           int64           `json:"client_id"`
		Kind               string          `json:"kind"`
		AmountUSD          decimal.Decimal `json:"amount_usd"`
		ExchangeRate       decimal.Decimal `json:"exchange_rate"`
		SourceAccount      string          `json:"source_account"`
		DestinationAccount string          `json:"destination_account"`
		Notes              string          `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	op, err := h.app.Operations.Create(r.Context(), u, operations.CreateParams{
		ClientID:           payload.ClientID,
		Kind:               operation.Kind(payload.Kind),
		AmountUSD:          payload.AmountUSD,
		ExchangeRate:       payload.ExchangeRate,
		SourceAccount:      payload.SourceAccount,
		DestinationAccount: payload.DestinationAccount,
		Notes:              payload.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, op)
}

func (h *handler) listOperations(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		ops, err := h.app.Operations.ListByStatus(r.Context(), operation.Status(status))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, ops)
		return
	}

	ops, err := h.app.Operations.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, ops)
}

func (h *handler) listActionable(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	ops, err := h.app.Operations.ListActionable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, ops)
}

func (h *handler) getOperation(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	op, err := h.app.Operations.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, op)
}

func (h *handler) getOperationByTrackingID(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	op, err := h.app.Operations.GetByTrackingID(r.Context(), mux.Vars(r)["trackingID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, op)
}

func (h *handler) updateOperationStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	op, err := h.app.Operations.UpdateStatus(r.Context(), u, id, operation.Status(payload.Status), payload.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, op)
}

func (h *handler) cancelOperation(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	op, err := h.app.Operations.Cancel(r.Context(), u, id, payload.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, op)
}

func (h *handler) attachProof(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload struct {
		Kind string `json:"kind"`
		URL  string `json:"url"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	op, err := h.app.Operations.AttachProof(r.Context(), u, id, operations.ProofKind(payload.Kind), payload.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, op)
}

func (h *handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}

	q := r.URL.Query()
	month, err := queryInt(q.Get("month"), "month")
	if err != nil {
		writeError(w, err)
		return
	}
	year, err := queryInt(q.Get("year"), "year")
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.app.Operations.DashboardStats(r.Context(), month, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, errors.Validation("query parameter %q is required", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Validation("invalid %s %q", name, raw)
	}
	return v, nil
}
