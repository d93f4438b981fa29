package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"garage/internal/auth"
	"garage/internal/log"
	"garage/internal/middleware/ratelimit"
	"garage/internal/middleware/security"
	"garage/internal/middleware/trace"
	"garage/internal/services"
	appweb "garage/web"
)

// CacheStats is the read side of the dashboard cache, reported by /metrics.
type CacheStats interface {
	Size() int
	Stats() (hits, misses uint64)
}

// Dependencies are the collaborators of the server. Projects, Expenses and
// Dashboard are required; the rest are optional.
type Dependencies struct {
	Logger    *log.Logger
	Projects  *services.ProjectService
	Expenses  *services.ExpenseService
	Dashboard *services.DashboardService

	// Verifier checks access tokens. Nil runs every request as DefaultUserID.
	Verifier      *auth.Verifier
	DefaultUserID string

	RateLimitRPM int

	// TrustedProxies extends security.DefaultTrustedProxies.
	TrustedProxies []string

	// Ready reports whether the data store is reachable.
	Ready func(ctx context.Context) error
	Cache CacheStats
	Now   func() time.Time
}

type Server struct {
	http.Server
	templates  *template.Template
	logger     *log.Logger
	structured *log.StructuredLogger

	projects  *services.ProjectService
	expenses  *services.ExpenseService
	dashboard *services.DashboardService
	ready     func(ctx context.Context) error
	cache     CacheStats
	now       func() time.Time

	verifier      *auth.Verifier
	defaultUserID string

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime time.Time
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. Templates that fail to parse are logged; pages then answer
// 500 and /readyz reports not ready. A malformed trusted proxy is an error.
func NewServer(addr string, deps Dependencies) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	detector, err := security.NewDetector(deps.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("configure security detector: %w", err)
	}
	s := &Server{
		logger:           logger,
		structured:       log.NewStructuredLogger(logger),
		projects:         deps.Projects,
		expenses:         deps.Expenses,
		dashboard:        deps.Dashboard,
		ready:            deps.Ready,
		cache:            deps.Cache,
		now:              now,
		verifier:         deps.Verifier,
		defaultUserID:    deps.DefaultUserID,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.ErrorContext(context.Background(), "Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:           addr,
		Handler:        s.traceMiddleware.Middleware(detector.Middleware(headers.Middleware(mux))),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.WarnContext(context.Background(), "Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /{$}", s.page(s.handleIndex))
	mux.Handle("GET /ui/dashboard", s.page(s.handleDashboardPartial))
	mux.Handle("GET /projects/{id}", s.page(s.handleProjectDetail))
	mux.Handle("GET /api/projects/{id}/summary", s.page(s.handleProjectSummary))

	mux.Handle("POST /projects", s.mutation(s.handleCreateProject))
	mux.Handle("POST /projects/{id}", s.mutation(s.handleUpdateProject))
	mux.Handle("POST /projects/{id}/reminders", s.mutation(s.handleUpdateReminders))
	mux.Handle("POST /projects/{id}/notes", s.mutation(s.handleUpdateNotes))
	mux.Handle("POST /projects/{id}/delete", s.mutation(s.handleDeleteProject))
	mux.Handle("POST /projects/{id}/expenses", s.mutation(s.handleCreateExpense))
	mux.Handle("POST /expenses/{id}", s.mutation(s.handleUpdateExpense))
	mux.Handle("POST /expenses/{id}/delete", s.mutation(s.handleDeleteExpense))
}

// page requires a user.
func (s *Server) page(h http.HandlerFunc) http.Handler {
	return auth.Middleware(s.verifier, s.defaultUserID)(h)
}

// mutation requires a user and counts against the per-IP write limit.
func (s *Server) mutation(h http.HandlerFunc) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").Write(w)
	})
	return s.page(limited(h).ServeHTTP)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
