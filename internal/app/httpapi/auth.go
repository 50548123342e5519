package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.app.Auth.Login(r.Context(), payload.Login, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       toUserView(session.User),
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.app.Auth.Logout(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "logged out"})
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := queryInt(raw, "limit")
		if err != nil {
			writeError(w, err)
			return
		}
		limit = v
	}

	entries, err := h.app.Store.ListAudit(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func (h *handler) listAuditByEntity(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.app.Store.ListAuditByEntity(r.Context(), mux.Vars(r)["entity"], id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, entries)
}
