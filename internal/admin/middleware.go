package admin

import (
	"context"
	"net/http"

	"FoodMart/pkg/kit"
)

type ctxKey string

const adminKey ctxKey = "admin"

type Identity struct {
	ID    int64
	Email string
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(adminKey).(Identity)
	return id, ok
}

// identify reads the admin token from the Authorization header, falling back
// to the session cookie set at login.
func (s *Server) identify(r *http.Request) (Identity, bool) {
	tok, ok := kit.BearerToken(r)
	if !ok {
		c, err := r.Cookie(s.cookieName())
		if err != nil || c.Value == "" {
			return Identity{}, false
		}
		tok = c.Value
	}

	claims, err := s.JWT.Parse(tok)
	if err != nil {
		return Identity{}, false
	}
	return Identity{ID: claims.AdminID, Email: claims.Email}, true
}

// RequireAdmin rejects requests without a valid admin token.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.identify(r)
		if !ok {
			kit.WriteError(w, r, http.StatusUnauthorized, "admin login required", nil)
			return
		}
		ctx := context.WithValue(r.Context(), adminKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
