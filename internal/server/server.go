// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anved/listkeeper/internal/cache"
	"github.com/anved/listkeeper/internal/catalog"
	"github.com/anved/listkeeper/internal/config"
	"github.com/anved/listkeeper/internal/httpclient"
	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/invites"
	"github.com/anved/listkeeper/internal/items"
	"github.com/anved/listkeeper/internal/lists"
	"github.com/anved/listkeeper/internal/logutil"
	"github.com/anved/listkeeper/internal/store"
)

// Deps carries the externally constructed dependencies for a Server.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Driver   store.Driver
	Cache    cache.CacheWithCounter
	Sessions identity.SessionRepo
}

// sessionSweepInterval is how often expired sessions are purged.
const sessionSweepInterval = time.Hour

// Server wraps the HTTP server and its handlers.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	driver     store.Driver
	cache      cache.CacheWithCounter
	sessions   identity.SessionRepo
	httpServer *http.Server
	sweepStop  chan struct{}

	authHandler    *identity.Handler
	listsHandler   *lists.Handler
	invitesHandler *invites.Handler
	itemsHandler   *items.Handler
	catalogHandler *catalog.Handler
}

// New creates a Server, wiring services and handlers onto the given deps.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if deps.Driver == nil {
		return nil, fmt.Errorf("server: store driver is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("server: session repo is required")
	}
	logger := logutil.NoopIfNil(deps.Logger)
	cfg := deps.Config

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		driver:   deps.Driver,
		cache:    deps.Cache,
		sessions: deps.Sessions,
	}

	auth := identity.NewUserAuth(cfg.Auth.BcryptCost)
	sessionTTL := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
	if sessionTTL <= 0 {
		sessionTTL = identity.DefaultSessionTTL
	}

	var limiter cache.Counter
	if deps.Cache != nil {
		limiter = deps.Cache
	}
	s.authHandler = identity.NewHandler(deps.Driver, auth, deps.Sessions, limiter, logger).
		WithSessionTTL(sessionTTL).
		WithSecureCookies(cfg.TLS.Mode != "off")

	checker := lists.NewChecker(deps.Driver)
	listsSvc := lists.NewService(deps.Driver, logger)
	s.listsHandler = lists.NewHandler(listsSvc, checker)

	invitesSvc := invites.NewService(deps.Driver, logger)
	s.invitesHandler = invites.NewHandler(invitesSvc, listsSvc)

	itemsSvc := items.NewService(deps.Driver, logger)
	s.itemsHandler = items.NewHandler(itemsSvc)

	if cfg.CatalogEnabled() {
		outbound := httpclient.New(&httpclient.Config{
			SSRFMode:           cfg.OutboundHTTP.SSRFMode,
			TimeoutMS:          cfg.OutboundHTTP.TimeoutMS,
			ConnectTimeoutMS:   cfg.OutboundHTTP.ConnectTimeoutMS,
			MaxRedirects:       cfg.OutboundHTTP.MaxRedirects,
			MaxResponseBytes:   cfg.OutboundHTTP.MaxResponseBytes,
			InsecureSkipVerify: cfg.OutboundHTTP.InsecureSkipVerify,
		})
		provider := catalog.NewOpenLibraryProvider(outbound, logger)
		var catalogCache cache.Cache
		if deps.Cache != nil {
			catalogCache = deps.Cache
		}
		catalogSvc := catalog.NewService(provider, catalogCache, logger)
		s.catalogHandler = catalog.NewHandler(catalogSvc)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the configured root handler. Test hook.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.cfg.ListenAddr,
		"store_driver", s.driver.Name(),
		"tls_mode", s.cfg.TLS.Mode,
	)

	s.sweepStop = make(chan struct{})
	go s.sweepSessions(s.sweepStop)

	switch s.cfg.TLS.Mode {
	case "off":
		return s.httpServer.ListenAndServe()

	case "static", "selfsigned":
		tlsConfig, err := buildTLSConfig(&s.cfg.TLS, s.logger)
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
		// Certs live in TLSConfig.Certificates; empty paths make
		// ListenAndServeTLS use them.
		return s.httpServer.ListenAndServeTLS("", "")

	case "acme":
		manager := NewACMEManager(&s.cfg.TLS.ACME, s.cfg.TLS.HTTPPort, s.logger)
		if err := manager.Init(context.Background()); err != nil {
			return fmt.Errorf("ACME initialization failed: %w", err)
		}
		s.httpServer.TLSConfig = manager.GetTLSConfig()
		return s.httpServer.ListenAndServeTLS("", "")

	default:
		return fmt.Errorf("invalid tls.mode %q", s.cfg.TLS.Mode)
	}
}

// sweepSessions periodically drops expired sessions until stop closes.
func (s *Server) sweepSessions(stop <-chan struct{}) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			count, err := s.sessions.DeleteExpired(context.Background())
			if err != nil {
				s.logger.Warn("session sweep failed", "error", err)
			} else if count > 0 {
				s.logger.Info("expired sessions removed", "count", count)
			}
		}
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	if s.sweepStop != nil {
		close(s.sweepStop)
		s.sweepStop = nil
	}
	return s.httpServer.Shutdown(ctx)
}
