package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"goveeremote/internal/device"
	"goveeremote/internal/dispatch"
	"goveeremote/internal/infrastructure/config"
	"goveeremote/internal/infrastructure/logging"
	"goveeremote/internal/pages"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CommandDispatcher executes command IDs and physical button presses.
// Satisfied by dispatch.Dispatcher.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, commandID string) dispatch.Outcome
	DispatchButton(ctx context.Context, button pages.PhysicalButton) dispatch.Outcome
	SetLayout(layout pages.Layout)
}

// DeviceDiscoverer verifies the cloud credentials and refreshes the
// device registry. Satisfied by discovery.Service.
type DeviceDiscoverer interface {
	Verify(ctx context.Context) (int, error)
	Discover(ctx context.Context) (int, error)
	SyncStates(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Registry    *device.Registry
	Dispatcher  CommandDispatcher
	Discovery   DeviceDiscoverer // optional: refresh endpoint returns 502 without it
	PageOpts    pages.Options
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for the driver.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	registry    *device.Registry
	dispatcher  CommandDispatcher
	discovery   DeviceDiscoverer
	pageOpts    pages.Options
	version     string
	started     time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()

	layoutMu sync.RWMutex
	layout   pages.Layout
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		discovery:  deps.Discovery,
		pageOpts:   deps.PageOpts,
		version:    deps.Version,
	}

	// Use externally-provided hub if available (needed when main also
	// requires the hub for outcome broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub. Nil until Start() unless one was
// injected via Deps.ExternalHub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// UpdateLayout installs a freshly synthesized layout: the dispatcher
// resolves against it, clients read it, and subscribers are notified.
func (s *Server) UpdateLayout(layout pages.Layout) {
	s.layoutMu.Lock()
	s.layout = layout
	s.layoutMu.Unlock()

	s.dispatcher.SetLayout(layout)
	if s.hub != nil {
		s.hub.Broadcast(ChannelLayoutUpdated, map[string]any{
			"pages":    len(layout.Pages),
			"commands": len(layout.Bindings),
		})
	}
	s.logger.Info("layout installed",
		"pages", len(layout.Pages),
		"commands", len(layout.Bindings),
	)
}

// currentLayout returns the installed layout.
func (s *Server) currentLayout() pages.Layout {
	s.layoutMu.RLock()
	defer s.layoutMu.RUnlock()
	return s.layout
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.started = time.Now()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		err := s.server.ListenAndServe()
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

	// Cancel background goroutines (hub)
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
