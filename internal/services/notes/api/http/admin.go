package http

import (
	"net/http"
	"time"

	"github.com/accounting-notes/backend/internal/services/notes/storage"
)

const (
	roleCookieName = "role"
	roleCookieTTL  = 24 * time.Hour
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) getAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.admins.Find(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if admin == nil {
		h.writeOK(w, r, http.StatusOK, "admin.get", nil)
		return
	}
	h.writeOK(w, r, http.StatusOK, "admin.get", newUserView(*admin))
}

func (h *Handler) registerAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.admins.Register(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "admin.register", newUserView(admin))
}

func (h *Handler) loginAdmin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	admin, err := h.admins.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.SetCookie(w, h.roleCookie(string(storage.RoleAdmin), time.Now().Add(roleCookieTTL)))
	h.writeOK(w, r, http.StatusOK, "admin.login", newUserView(admin))
}

func (h *Handler) logoutAdmin(w http.ResponseWriter, r *http.Request) {
	cookie := h.roleCookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
	h.writeOK(w, r, http.StatusOK, "admin.logout", nil)
}

func (h *Handler) roleCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     roleCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if value != "" {
		cookie.MaxAge = int(roleCookieTTL / time.Second)
	}
	if h.cookie.Production {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
		cookie.Domain = h.cookie.Domain
	}
	return cookie
}
