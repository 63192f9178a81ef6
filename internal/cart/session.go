package cart

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultSessionCookie = "sid"
	SessionHeader        = "X-Session-Id"

	maxSessionIDLen = 128
)

type sessionKey struct{}

// SessionFromContext returns the id stored by Sessions.Middleware.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}

func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// Sessions identifies anonymous shoppers. The id comes from the session
// cookie, then the X-Session-Id header; otherwise a new one is minted and
// handed back as a cookie.
type Sessions struct {
	CookieName string
	MaxAge     time.Duration
	Log        *zap.Logger
}

func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.read(r)
		if !ok {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cookieName(),
				Value:    id,
				Path:     "/",
				MaxAge:   int(s.MaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			if s.Log != nil {
				s.Log.Debug("session minted", zap.String("session_id", id))
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), id)))
	})
}

func (s *Sessions) read(r *http.Request) (string, bool) {
	if c, err := r.Cookie(s.cookieName()); err == nil && validSessionID(c.Value) {
		return c.Value, true
	}
	if h := strings.TrimSpace(r.Header.Get(SessionHeader)); validSessionID(h) {
		return h, true
	}
	return "", false
}

func (s *Sessions) cookieName() string {
	if s.CookieName == "" {
		return DefaultSessionCookie
	}
	return s.CookieName
}

func validSessionID(id string) bool {
	return id != "" && len(id) <= maxSessionIDLen
}

// LogField adds the session id to request log lines. It reads the request
// itself, so it also works in middleware mounted outside Middleware. A
// session minted by the request being logged is not reported.
func (s *Sessions) LogField(r *http.Request) zap.Field {
	id, ok := SessionFromContext(r.Context())
	if !ok {
		id, _ = s.read(r)
	}
	return zap.String("session_id", id)
}
