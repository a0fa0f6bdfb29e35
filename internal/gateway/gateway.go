package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/streamfabric/gateway/internal/agentmodel"
	"github.com/streamfabric/gateway/internal/auth"
	"github.com/streamfabric/gateway/internal/config"
	"github.com/streamfabric/gateway/internal/logger"
	"github.com/streamfabric/gateway/internal/metrics"
	"github.com/streamfabric/gateway/internal/profile"
	"github.com/streamfabric/gateway/internal/registry"
	"github.com/streamfabric/gateway/internal/sessionstore"
	"github.com/streamfabric/gateway/internal/toolbridge"
)

// Deps are the gateway's out-of-scope collaborators, each reached only
// through the interface its owning package defines (§6).
type Deps struct {
	Starter   agentmodel.Starter
	Validator auth.Validator
	Sessions  sessionstore.Store
	Tools     toolbridge.Bridge
	Logger    *logger.Logger
}

// HookEvent names the lifecycle events a caller can subscribe to via On.
type HookEvent string

const (
	EventStart        HookEvent = "start"
	EventStop         HookEvent = "stop"
	EventConnection   HookEvent = "connection"
	EventDisconnect   HookEvent = "disconnection"
	EventRequest      HookEvent = "request"
	EventError        HookEvent = "error"
	EventShutdown     HookEvent = "shutdown"
)

// Gateway is the façade wiring the Run Registry and Block Streamer to the
// wire: it installs the default middleware stack, the default routes
// (§6.1), the Run Registry, and the WebSocket handler, and exposes
// lifecycle control.
//
// Grounded on the teacher's cmd/server/main.go wiring sequence (logger,
// auth, routing, graceful shutdown), restructured from a package-main
// script into a reusable façade type so cmd/gatewayd stays a thin wiring
// shim and the façade itself is unit-testable.
type Gateway struct {
	cfg   config.Config
	deps  Deps
	log   *logger.Logger
	start time.Time

	router    *Router
	registry  *registry.Registry
	profiles  *profile.Registry
	metrics   *metrics.Registry
	connTable *ConnTable
	logBuf    *LogBuffer
	async     *AsyncLogger

	httpServer *http.Server
	listener   net.Listener
	cron       *cron.Cron

	mu    sync.Mutex
	hooks map[HookEvent][]func(any)
}

// New constructs a Gateway. Routes and middleware are installed immediately;
// nothing starts listening until Start.
func New(cfg config.Config, deps Deps) *Gateway {
	if deps.Logger == nil {
		deps.Logger = logger.New(logger.Config{Level: 0, Format: "text"})
	}

	g := &Gateway{
		cfg:       cfg,
		deps:      deps,
		log:       deps.Logger,
		router:    NewRouter(),
		registry:  registry.New(registry.Options{}),
		profiles:  profile.NewRegistry(),
		metrics:   metrics.New(),
		connTable: NewConnTable(cfg.Limits.MaxConnections, cfg.Limits.MaxConnectionsPerIP, cfg.Timeouts.Websocket()*4),
		logBuf:    NewLogBuffer(500),
		hooks:     make(map[HookEvent][]func(any)),
	}
	g.async = NewAsyncLogger(2, 256, g.logBuf, g.log)

	g.installMiddleware()
	g.registerRoutes()
	return g
}

func (g *Gateway) installMiddleware() {
	g.router.Use(CORSMiddleware(g.cfg.CORS))
	g.router.Use(AuthMiddleware(g.optionalValidator(), false))
	g.router.Use(AdmissionMiddleware(g.connTable))
	if g.cfg.Logging.Requests {
		g.router.Use(LoggingMiddleware(g.async))
	}
	g.router.UseScoped("/api", AuthMiddleware(g.validatorOrNone(), g.cfg.Auth.Mode != config.AuthNone))
}

func (g *Gateway) optionalValidator() auth.Validator {
	return g.validatorOrNone()
}

func (g *Gateway) validatorOrNone() auth.Validator {
	if g.deps.Validator != nil {
		return g.deps.Validator
	}
	return auth.NoneValidator{}
}

// On registers a lifecycle hook. Multiple hooks for the same event all
// fire, in registration order.
func (g *Gateway) On(event HookEvent, fn func(any)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks[event] = append(g.hooks[event], fn)
}

func (g *Gateway) emit(event HookEvent, payload any) {
	g.mu.Lock()
	fns := append([]func(any){}, g.hooks[event]...)
	g.mu.Unlock()
	for _, fn := range fns {
		fn(payload)
	}
}

// Registry exposes the Run Registry for callers that start runs directly
// rather than through the HTTP surface.
func (g *Gateway) Registry() *registry.Registry { return g.registry }

// Profiles exposes the Channel Profile registry for runtime registration.
func (g *Gateway) Profiles() *profile.Registry { return g.profiles }

// Metrics exposes the Prometheus registry.
func (g *Gateway) Metrics() *metrics.Registry { return g.metrics }

// Addr returns the listener's address once Start has run.
func (g *Gateway) Addr() string {
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

// Start binds the listener and begins serving. It does not block; the HTTP
// server runs on its own goroutine.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.cfg.Host, g.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}
	g.listener = ln
	g.start = time.Now()

	g.httpServer = &http.Server{
		Handler:      g.router,
		ReadTimeout:  g.cfg.Timeouts.Request(),
		WriteTimeout: 0, // SSE/WS connections are long-lived; enforced elsewhere
	}

	g.cron = cron.New()
	sweepSpec := "@every 30s"
	if _, err := g.cron.AddFunc(sweepSpec, g.sweepIdleConnections); err != nil {
		return fmt.Errorf("gateway: schedule idle sweep: %w", err)
	}
	g.cron.Start()

	go func() {
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			g.emit(EventError, err)
		}
	}()

	g.emit(EventStart, g.Addr())
	return nil
}

// sweepIdleConnections removes table entries past the idle budget. The
// table holds no connection handles, so the sweep only drops the
// bookkeeping; it does not close the underlying connections. It
// is driven by robfig/cron on a fixed cadence rather than the per-connection
// ad hoc timers the teacher's background poller used elsewhere in the
// pack, giving the sweep a single predictable schedule.
func (g *Gateway) sweepIdleConnections() {
	stale := g.connTable.SweepIdle(time.Now())
	for _, id := range stale {
		g.connTable.Remove(id)
	}
}

// Stop implements the shutdown policy of §4.16: emit `shutdown`, close
// WebSockets with code 1001 (handled by callers holding Conn references —
// the façade itself only owns the HTTP listener), graceful HTTP shutdown
// with the configured timeout, then force-terminate.
func (g *Gateway) Stop(graceful bool, timeout time.Duration) error {
	g.emit(EventShutdown, nil)
	if g.cron != nil {
		g.cron.Stop()
	}
	g.async.Close()

	if g.httpServer == nil {
		return nil
	}
	if !graceful {
		return g.httpServer.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := g.httpServer.Shutdown(ctx); err != nil {
		return g.httpServer.Close()
	}
	g.emit(EventStop, nil)
	return nil
}

// Stats reports the gateway's public statistics (§6.1 GET /api/v1/stats).
func (g *Gateway) Stats() map[string]any {
	return map[string]any{
		"uptimeSeconds": time.Since(g.start).Seconds(),
		"connections":   g.connTable.Total(),
		"droppedLogs":   g.async.Dropped(),
	}
}
