package apiapp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/security"
)

type contextKey string

const sessionContextKey contextKey = "session"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type session struct {
	ID        string
	Username  string
	CSRFToken string
	ExpiresAt time.Time
}

// sessionStore keeps sessions in memory; they expire after ttl and do not
// survive a restart.
type sessionStore struct {
	ttl   time.Duration
	cache *gocache.Cache
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, cache: gocache.New(ttl, 10*time.Minute)}
}

func (s *sessionStore) create(username string) (*session, error) {
	id, err := security.RandomToken(32)
	if err != nil {
		return nil, err
	}
	csrf, err := security.RandomToken(32)
	if err != nil {
		return nil, err
	}
	sess := &session{ID: id, Username: username, CSRFToken: csrf, ExpiresAt: time.Now().UTC().Add(s.ttl)}
	s.cache.Set(id, sess, s.ttl)
	return sess, nil
}

func (s *sessionStore) lookup(id string) (*session, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session)
	return sess, ok
}

func (s *sessionStore) delete(id string) { s.cache.Delete(id) }

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if !s.admin.Authenticate(req.Username, req.Password) {
		logging.FromContext(r.Context()).Warn().Str("username", req.Username).Msg("failed login")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess, err := s.sessions.create(s.admin.Username())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.sessions.ttl.Seconds()),
		Expires:  sess.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "authenticated"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username":  sess.Username,
		"expiresAt": sess.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": sess.CSRFToken})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFromContext(r.Context()); sess != nil {
		s.sessions.delete(sess.ID)
	}
	expireSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		sess, ok := s.sessions.lookup(cookie.Value)
		if !ok {
			expireSessionCookie(w)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}
		sess := sessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		token := strings.TrimSpace(r.Header.Get(csrfHeaderName))
		if token == "" || token != sess.CSRFToken {
			writeError(w, http.StatusForbidden, "csrf validation failed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) *session {
	sess, ok := ctx.Value(sessionContextKey).(*session)
	if !ok {
		return nil
	}
	return sess
}

func expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
