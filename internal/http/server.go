package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgy/internal/log"
	"budgy/internal/middleware/ratelimit"
	"budgy/internal/middleware/security"
	"budgy/internal/middleware/trace"
	"budgy/internal/services"
	"budgy/internal/store"
)

// Deps are the collaborators the API serves from.
type Deps struct {
	Registry *services.SessionRegistry
	Tokens   OwnerResolver
	// Ready is pinged by /readyz; nil means always ready.
	Ready              store.Pinger
	Logger             *log.Logger
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server

	registry *services.SessionRegistry
	tokens   OwnerResolver
	ready    store.Pinger
	logger   *log.Logger
	started  time.Time

	trace    *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector(logger)
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}

	limitCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		registry: deps.Registry,
		tokens:   deps.Tokens,
		ready:    deps.Ready,
		logger:   logger,
		started:  time.Now(),
		trace:    trace.NewMiddleware(logger, detector.ExtractClientIP),
		detector: detector,
		limiter:  ratelimit.NewLimiter(limitCfg),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /ledger", s.withSession(s.handleLedger))
	mux.HandleFunc("POST /ledger/fields", s.withSession(s.handleAddField))
	mux.HandleFunc("GET /ledger/fields/{id}", s.withSession(s.handleFieldDetail))
	mux.HandleFunc("DELETE /ledger/fields/{id}", s.withSession(s.handleDeleteField))
	mux.HandleFunc("POST /ledger/fields/{id}/increment", s.withSession(s.handleIncrement))
	mux.HandleFunc("POST /ledger/fields/{id}/decrement", s.withSession(s.handleDecrement))
	mux.HandleFunc("POST /ledger/fields/{id}/entries", s.withSession(s.handleAddEntry))
	mux.HandleFunc("DELETE /ledger/entries/{id}", s.withSession(s.handleRemoveEntry))
	mux.HandleFunc("DELETE /session", s.withSession(s.handleSignOut))

	limited := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// Outermost first.
	s.Handler = chain(mux,
		s.trace.Middleware,
		log.Middleware(logger),
		log.RequestIDMiddleware(trace.RequestIDFromRequest),
		headers.Middleware,
		security.NoStoreMiddleware,
		detector.Middleware,
		limited,
	)
	s.Addr = addr
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 30 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 120 * time.Second
	return s
}

func chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
