package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FoodMart/internal/store"
	"FoodMart/pkg/kit"
)

const (
	DefaultCookieName = "admin_token"

	loginLimitWindow = 60 * time.Second
)

type Server struct {
	Log     *zap.Logger
	Store   store.AdminStore
	JWT     *TokenMaker
	Metrics *kit.Metrics

	CookieName       string
	LoginLimitPerMin int
	MaxBodyBytes     int64
}

func (s *Server) Register(r chi.Router) {
	limit := s.LoginLimitPerMin
	if limit <= 0 {
		limit = 5
	}
	loginLimiter := kit.NewIPRateLimiter(limit, loginLimitWindow)

	// Flat paths: the order package also registers routes under /admin.
	r.With(loginLimiter.Middleware).Post("/admin/login", s.handleLogin)
	r.Post("/admin/logout", s.handleLogout)
	r.Get("/admin/me", s.handleMe)
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type adminView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type loginResp struct {
	Admin       adminView `json:"admin"`
	AccessToken string    `json:"accessToken"`
}

type meResp struct {
	Authenticated bool   `json:"authenticated"`
	AdminID       int64  `json:"adminId,omitempty"`
	Email         string `json:"email,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := kit.DecodeJSON(w, r, s.maxBody(), &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := kit.Validate(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", kit.ValidationDetails(err))
		return
	}

	a, found, err := s.Store.AdminByEmail(r.Context(), req.Email)
	if err != nil {
		s.Log.Error("admin lookup failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !verifyLogin(a, found, req.Password) {
		s.Metrics.Event("admin_login_failed")
		s.Log.Warn("admin login rejected", zap.String("remote", kit.ClientIP(r)))
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	tok, err := s.JWT.New(a.ID, a.Email)
	if err != nil {
		s.Log.Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.JWT.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	s.Metrics.Event("admin_login")
	kit.WriteJSON(w, http.StatusOK, loginResp{
		Admin:       adminView{ID: a.ID, Email: a.Email},
		AccessToken: tok,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identify(r)
	if !ok {
		kit.WriteJSON(w, http.StatusOK, meResp{Authenticated: false})
		return
	}
	kit.WriteJSON(w, http.StatusOK, meResp{Authenticated: true, AdminID: id.ID, Email: id.Email})
}

func (s *Server) cookieName() string {
	if s.CookieName == "" {
		return DefaultCookieName
	}
	return s.CookieName
}

func (s *Server) maxBody() int64 {
	if s.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return s.MaxBodyBytes
}
