package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/server/models"
	"github.com/dmitrijs2005/bizdesk/internal/server/session"
	"github.com/gorilla/mux"
)

type loginRequest struct {
	Login    string `json:"login" validate:"required,notblank,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,jwt"`
}

type meResponse struct {
	Via string `json:"via"`
	session.Identity
}

type userResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	LoginID   string      `json:"login_id,omitempty"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) mobileLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *handler) mobileRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *handler) mobileLogout(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if err := h.Auth.Logout(r.Context(), s.Identity.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) sessionLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.Auth.WebLogin(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Cookies.Save(w, *id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *handler) sessionLogout(w http.ResponseWriter, _ *http.Request) {
	h.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, meResponse{Via: s.Via.String(), Identity: s.Identity})
}

func (h *handler) adminUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.User(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:        u.ID,
		Email:     u.Email,
		LoginID:   u.LoginID,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	})
}
