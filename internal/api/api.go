// Package api exposes the detection pipeline over HTTP: hotspot analysis,
// health, and Prometheus metrics.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/detector"
	"github.com/roomlens/roomlens-go/internal/hotspot"
	"github.com/roomlens/roomlens-go/internal/logging"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
)

// Controller wires the HTTP routes to the pipeline components.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	settings *conf.Settings
	analyzer *detector.Analyzer
	resolver *hotspot.Resolver
	taxonomy *taxonomy.Client
	registry *prometheus.Registry
	log      *slog.Logger

	catalogMu sync.RWMutex
	catalog   *taxonomy.Catalog
}

// New builds the API controller and registers all routes.
func New(settings *conf.Settings, analyzer *detector.Analyzer, resolver *hotspot.Resolver, taxonomyClient *taxonomy.Client, registry *prometheus.Registry) *Controller {
	c := &Controller{
		settings: settings,
		analyzer: analyzer,
		resolver: resolver,
		taxonomy: taxonomyClient,
		registry: registry,
		log:      logging.ForService("api"),
	}
	if c.log == nil {
		c.log = slog.Default().With("service", "api")
	}

	c.Echo = echo.New()
	c.Echo.HideBanner = true
	c.Echo.Use(middleware.Recover())
	c.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	c.Echo.Use(middleware.CORS())

	c.Group = c.Echo.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.handleHealth)
	c.Group.POST("/hotspots", c.handleHotspots)

	if c.registry != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})))
	}
}

// Start serves HTTP on the configured host and port, blocking until the
// server stops.
func (c *Controller) Start() error {
	addr := c.settings.Web.Host + ":" + c.settings.Web.Port
	c.log.Info("starting http server", "addr", addr)
	return c.Echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

type healthResponse struct {
	Status     string `json:"status"`
	ModelState string `json:"modelState"`
}

func (c *Controller) handleHealth(ctx echo.Context) error {
	state := c.analyzer.Pipeline().State()
	status := "ok"
	code := http.StatusOK
	if state != detector.StateReady {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, healthResponse{Status: status, ModelState: state.String()})
}

// getCatalog returns the cached taxonomy catalog, fetching it on first use.
// A fetch failure is non-fatal: hotspots come back unmapped until the
// taxonomy becomes reachable.
func (c *Controller) getCatalog(ctx context.Context) *taxonomy.Catalog {
	c.catalogMu.RLock()
	cached := c.catalog
	c.catalogMu.RUnlock()
	if cached != nil {
		return cached
	}
	if c.taxonomy == nil {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	catalog, err := c.taxonomy.FetchCatalog(fetchCtx)
	if err != nil {
		c.log.Warn("taxonomy fetch failed, hotspots will be unmapped", "error", err)
		return nil
	}

	c.catalogMu.Lock()
	c.catalog = catalog
	c.catalogMu.Unlock()
	return catalog
}

// InvalidateCatalog drops the cached taxonomy so the next request refetches.
func (c *Controller) InvalidateCatalog() {
	c.catalogMu.Lock()
	c.catalog = nil
	c.catalogMu.Unlock()
}
