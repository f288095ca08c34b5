package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/argus-admin/argus-core/internal/audit"
	"github.com/argus-admin/argus-core/internal/auth"
	"github.com/argus-admin/argus-core/internal/infrastructure/config"
	"github.com/argus-admin/argus-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	WS            config.WebSocketConfig
	Logger        *logging.Logger
	Users         auth.UserRepository
	Sessions      *auth.SessionIssuer
	SessionStore  auth.SessionRepository
	Roles         auth.RoleRepository
	Authenticator *auth.CredentialAuthenticator
	Resets        *auth.PasswordResetService
	Activity      audit.Repository
	SweepInterval time.Duration // 0 disables the session sweeper
	Version       string
}

// Server is the HTTP API server for Argus Core.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket
// activity hub. The server is created with New() and started with Start().
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	logger        *logging.Logger
	users         auth.UserRepository
	sessions      *auth.SessionIssuer
	sessionStore  auth.SessionRepository
	roles         auth.RoleRepository
	auth          *auth.CredentialAuthenticator
	resets        *auth.PasswordResetService
	activity      audit.Repository
	sweepInterval time.Duration
	version       string
	server        *http.Server
	hub           *Hub
	cancel        context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Sessions == nil || deps.SessionStore == nil {
		return nil, fmt.Errorf("session issuer and store are required")
	}
	if deps.Roles == nil {
		return nil, fmt.Errorf("role repository is required")
	}
	if deps.Authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if deps.Resets == nil {
		return nil, fmt.Errorf("password reset service is required")
	}
	if deps.Activity == nil {
		return nil, fmt.Errorf("activity repository is required")
	}

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        deps.Logger,
		users:         deps.Users,
		sessions:      deps.Sessions,
		sessionStore:  deps.SessionStore,
		roles:         deps.Roles,
		auth:          deps.Authenticator,
		resets:        deps.Resets,
		activity:      deps.Activity,
		sweepInterval: deps.SweepInterval,
		version:       deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and the session
// sweeper, and launches the HTTP listener in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	if s.sweepInterval > 0 {
		go s.sweepSessionsLoop(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, session sweeper)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// sweepSessionsLoop periodically removes expired session rows. Expired
// sessions are already rejected at validation; the sweep keeps the table
// from accumulating dead rows.
func (s *Server) sweepSessionsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.sessionStore.DeleteExpired(ctx)
			if err != nil {
				s.logger.Error("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Debug("session sweep", "removed", removed)
			}
		}
	}
}

// recordActivity persists an activity entry and pushes it to connected
// dashboard clients. Failures are logged, never surfaced to the request
// that triggered them.
func (s *Server) recordActivity(ctx context.Context, entry *audit.Entry) {
	if entry.Source == "" {
		entry.Source = "api"
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record activity", "error", err, "action", entry.Action)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastActivity(entry)
	}
}
