package httpapi

import (
	"net/http"

	"github.com/qoricash/tradingdesk/internal/app/domain/user"
	"github.com/qoricash/tradingdesk/internal/app/services/users"
)

// userView strips the password hash from API responses.
type userView struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	DNI        string `json:"dni,omitempty"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	LastLogin  string `json:"last_login,omitempty"`
	LastLogout string `json:"last_logout,omitempty"`
}

func toUserView(u user.User) userView {
	v := userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		DNI:       u.DNI,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if !u.LastLogin.IsZero() {
		v.LastLogin = u.LastLogin.Format("2006-01-02 15:04:05")
	}
	if !u.LastLogout.IsZero() {
		v.LastLogout = u.LastLogout.Format("2006-01-02 15:04:05")
	}
	return v
}

func toUserViews(us []user.User) []userView {
	views := make([]userView, 0, len(us))
	for _, u := range us {
		views = append(views, toUserView(u))
	}
	return views
}

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}

	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		DNI      string `json:"dni"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.app.Users.Create(r.Context(), u, users.CreateParams{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		DNI:      payload.DNI,
		Role:     user.Role(payload.Role),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toUserView(created))
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	us, err := h.app.Users.List(r.Context(), u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserViews(us))
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := h.app.Users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserView(u))
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
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
		Email    *string `json:"email"`
		Password *string `json:"password"`
		DNI      *string `json:"dni"`
		Role     *string `json:"role"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	params := users.UpdateParams{
		Email:    payload.Email,
		Password: payload.Password,
		DNI:      payload.DNI,
	}
	if payload.Role != nil {
		role := user.Role(*payload.Role)
		params.Role = &role
	}

	updated, err := h.app.Users.Update(r.Context(), u, id, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserView(updated))
}

func (h *handler) updateUserStatus(w http.ResponseWriter, r *http.Request) {
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

	updated, err := h.app.Users.SetStatus(r.Context(), u, id, user.Status(payload.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toUserView(updated))
}
