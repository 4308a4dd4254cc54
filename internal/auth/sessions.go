package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"budget/internal/cache"
)

const (
	SessionCookie = "budget_session"
	stateTTL      = 10 * time.Minute
)

// Sessions maps session ids to users. Entries expire after the configured
// TTL; expired ids are swept by a cache.Janitor.
type Sessions struct {
	ttl      time.Duration
	sessions *cache.LRUCache[User]
	states   *cache.LRUCache[struct{}]
	secure   bool
}

func NewSessions(ttl time.Duration, maxSessions int, secureCookie bool) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		ttl:      ttl,
		sessions: cache.NewLRUCache[User](maxSessions, ttl),
		states:   cache.NewLRUCache[struct{}](maxSessions, stateTTL),
		secure:   secureCookie,
	}
}

// Caches exposes the underlying caches for janitor registration.
func (s *Sessions) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.sessions, s.states}
}

func (s *Sessions) Create(u User) string {
	id := uuid.NewString()
	s.sessions.Set(id, u)
	return id
}

func (s *Sessions) Get(id string) (User, bool) {
	if id == "" {
		return User{}, false
	}
	return s.sessions.Get(id)
}

func (s *Sessions) Destroy(id string) {
	s.sessions.Delete(id)
}

func (s *Sessions) Count() int {
	return s.sessions.Size()
}

// NewState issues a one-time OAuth state value.
func (s *Sessions) NewState() string {
	state := uuid.NewString()
	s.states.Set(state, struct{}{})
	return state
}

// ConsumeState reports whether state was issued and not yet used.
func (s *Sessions) ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	if _, ok := s.states.Get(state); !ok {
		return false
	}
	s.states.Delete(state)
	return true
}

// SetCookie starts a session for u and writes the cookie.
func (s *Sessions) SetCookie(w http.ResponseWriter, u User) string {
	id := s.Create(u)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// ClearCookie ends the request's session, if any.
func (s *Sessions) ClearCookie(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.Destroy(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware attaches the session user, when present, to the request context.
// It never rejects a request; handlers decide what requires a user.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(SessionCookie); err == nil {
			if u, ok := s.Get(c.Value); ok {
				r = r.WithContext(WithUser(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}
