package httpapi

import (
	"net/http"

	"github.com/qoricash/tradingdesk/internal/app/domain/client"
	"github.com/qoricash/tradingdesk/internal/app/services/clients"
)

func (h *handler) createClient(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name           string `json:"name"`
		DNI            string `json:"dni"`
		Email          string `json:"email"`
		Phone          string `json:"phone"`
		DNIFrontURL    string `json:"dni_front_url"`
		DNIBackURL     string `json:"dni_back_url"`
		BankAccountPEN string `json:"bank_account_pen"`
		BankAccountUSD string `json:"bank_account_usd"`
		BankName       string `json:"bank_name"`
		Notes          string `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	cl, err := h.app.Clients.Create(r.Context(), u, clients.CreateParams{
		Name:           payload.Name,
		DNI:            payload.DNI,
		Email:          payload.Email,
		Phone:          payload.Phone,
		DNIFrontURL:    payload.DNIFrontURL,
		DNIBackURL:     payload.DNIBackURL,
		BankAccountPEN: payload.BankAccountPEN,
		BankAccountUSD: payload.BankAccountUSD,
		BankName:       payload.BankName,
		Notes:          payload.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, cl)
}

func (h *handler) listClients(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}

	if r.URL.Query().Get("active") == "true" {
		cls, err := h.app.Clients.ListActive(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, cls)
		return
	}

	cls, err := h.app.Clients.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cls)
}

func (h *handler) searchClients(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	cls, err := h.app.Clients.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cls)
}

func (h *handler) getClient(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	cl, err := h.app.Clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cl)
}

func (h *handler) updateClient(w http.ResponseWriter, r *http.Request) {
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
		Name           *string `json:"name"`
		Email          *string `json:"email"`
		Phone          *string `json:"phone"`
		DNIFrontURL    *string `json:"dni_front_url"`
		DNIBackURL     *string `json:"dni_back_url"`
		BankAccountPEN *string `json:"bank_account_pen"`
		BankAccountUSD *string `json:"bank_account_usd"`
		BankName       *string `json:"bank_name"`
		Notes          *string `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	cl, err := h.app.Clients.Update(r.Context(), u, id, clients.UpdateParams{
		Name:           payload.Name,
		Email:          payload.Email,
		Phone:          payload.Phone,
		DNIFrontURL:    payload.DNIFrontURL,
		DNIBackURL:     payload.DNIBackURL,
		BankAccountPEN: payload.BankAccountPEN,
		BankAccountUSD: payload.BankAccountUSD,
		BankName:       payload.BankName,
		Notes:          payload.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cl)
}

func (h *handler) updateClientStatus(w http.ResponseWriter, r *http.Request) {
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
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	cl, err := h.app.Clients.SetStatus(r.Context(), u, id, client.Status(payload.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cl)
}

func (h *handler) listClientOperations(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ops, err := h.app.Operations.ListByClient(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, ops)
}
