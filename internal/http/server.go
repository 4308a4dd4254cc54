// Package http serves the ledger dashboard, the JSON API and the sign-in
// flow.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budget/internal/auth"
	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	appweb "budget/web"
)

const (
	storeTimeout = 5 * time.Second
	readyTimeout = 2 * time.Second

	maxViews = 1000
	viewTTL  = 30 * time.Minute
)

// Deps are the collaborators of a Server. Snapshots, Limiter and Pinger
// may be nil.
type Deps struct {
	Service   *ledger.Service
	Snapshots ledger.SnapshotStore
	SignIn    auth.SignIn
	Sessions  *auth.Sessions
	Limiter   *ratelimit.Limiter
	IPs       *security.IPResolver
	Pinger    backend.Pinger
	Logger    *log.Logger
	Currency  string
}

// Server is the ledger web application.
type Server struct {
	http.Server

	service   *ledger.Service
	snapshots ledger.SnapshotStore
	signIn    auth.SignIn
	sessions  *auth.Sessions
	pinger    backend.Pinger
	logger    *log.Logger
	currency  string
	templates *template.Template

	// one View per signed-in user, dropped after viewTTL of inactivity
	viewsMu sync.Mutex
	views   *cache.LRUCache[*ledger.View]
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Service == nil || deps.SignIn == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("http server: service, sign-in and sessions are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	ips := deps.IPs
	if ips == nil {
		ips = security.NewIPResolver()
	}
	currency := deps.Currency
	if currency == "" {
		currency = "USD"
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		service:   deps.Service,
		snapshots: deps.Snapshots,
		signIn:    deps.SignIn,
		sessions:  deps.Sessions,
		pinger:    deps.Pinger,
		logger:    logger.WithComponent(log.ComponentHTTP),
		currency:  currency,
		templates: t,
		views:     cache.NewLRUCache[*ledger.View](maxViews, viewTTL),
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleDeleteTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/transactions", s.handleAPIList)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("POST /api/transactions", s.handleAPICreate)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleAPIDelete)

	mux.HandleFunc("GET /signin", s.handleSignInPage)
	mux.HandleFunc("GET /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	var handler http.Handler = mux
	if deps.Limiter != nil {
		handler = deps.Limiter.Middleware(ips.ClientIP, s.handleRateLimited)(handler)
	}
	handler = deps.Sessions.Middleware(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = trace.Middleware(logger, ips.ClientIP)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Caches exposes the server's expiring caches for janitor registration.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.views}
}

// viewFor returns the user's View, creating it on first use.
func (s *Server) viewFor(userID string) *ledger.View {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()

	if v, ok := s.views.Get(userID); ok {
		return v
	}
	v := ledger.NewView(s.service, s.snapshots, userID, s.logger)
	s.views.Set(userID, v)
	return v
}

func (s *Server) dropView(userID string) {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	s.views.Delete(userID)
}

// forgetUser drops everything held locally for userID: the in-process view
// and the snapshot on disk.
func (s *Server) forgetUser(ctx context.Context, userID string) {
	s.dropView(userID)
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Delete(ledger.SnapshotKey(userID)); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to delete snapshot",
			log.FieldComponent, log.ComponentSnapshot, log.FieldUserID, userID, log.FieldError, err)
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
