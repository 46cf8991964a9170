package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"omega/pkg/admin"
	"omega/pkg/ally"
	"omega/pkg/api"
	"omega/pkg/log"
	"omega/pkg/poller"
	"omega/pkg/selftest"
	"omega/pkg/state"
)

const (
	shutdownTimeout = 10
)

// Deps are the services the dashboard API exposes.
type Deps struct {
	System   *api.Service
	Ally     *ally.Service
	Poller   *poller.Poller
	SelfTest *selftest.Runner
	Admin    *admin.Manager
	State    *state.Store
	Gatherer prometheus.Gatherer
	// DataDir is reported in host storage usage.
	DataDir string
}

// DashServer serves the dashboard JSON API, Prometheus metrics and the
// static single-page app.
type DashServer struct {
	webDir  string
	version string
	echo    *echo.Echo
	deps    Deps
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// NewDashServer creates the server and registers its routes.
func NewDashServer(webDir, version string, deps Deps) *DashServer {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	ds := &DashServer{
		webDir:  webDir,
		version: version,
		echo:    echo.New(),
		deps:    deps,
	}
	ds.setupRoutes()
	return ds
}

// Handler returns the HTTP handler of the server.
func (ds *DashServer) Handler() http.Handler {
	return ds.echo
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down.
func (ds *DashServer) Start(addr string) error {
	go func() {
		log.Info().
			Str("addr", addr).
			Str("version", ds.version).
			Str("web_dir", ds.webDir).
			Msg("Starting dashboard server")

		if err := ds.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return ds.Shutdown()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (ds *DashServer) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := ds.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (ds *DashServer) setupRoutes() {
	ds.echo.HideBanner = true
	ds.echo.HidePort = true
	ds.echo.Validator = &requestValidator{validate: validator.New()}

	ds.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	ds.echo.Use(middleware.Recover())

	ds.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(ds.deps.Gatherer, promhttp.HandlerOpts{})))
	ds.echo.GET("/version", ds.getVersion)
	ds.echo.GET("/dash/host", ds.getHostInfo)

	dash := ds.echo.Group("/dash")
	adminOnly := ds.requireAdmin

	sys := dash.Group("/system")
	sys.GET("/health", ds.getHealth)
	sys.GET("/metrics", ds.getMetrics)
	sys.GET("/sensors", ds.getSensors)
	sys.GET("/gps", ds.getGPS)
	sys.GET("/backups", ds.getBackups)
	sys.POST("/backups", ds.triggerBackup, adminOnly)
	sys.GET("/keys", ds.getKeys)
	sys.GET("/keysync", ds.getKeySync)
	sys.GET("/dms", ds.getDMs)
	sys.POST("/dms", ds.sendSystemDM)
	sys.GET("/community", ds.getCommunityPosts)
	sys.GET("/hotspot", ds.getHotspot)
	sys.POST("/hotspot/toggle", ds.toggleHotspot, adminOnly)

	al := dash.Group("/ally")
	al.GET("/nodes", ds.getNodes)
	al.GET("/nodes/:id/status", ds.getNodeStatus)
	al.POST("/nodes/:id/ping", ds.pingNode)
	al.POST("/nodes/:id/refresh", ds.refreshNode)
	al.GET("/chat/global", ds.getGlobalChat)
	al.POST("/chat/global", ds.sendGlobalMessage)
	al.GET("/chat/dm/:id", ds.getDM)
	al.POST("/chat/dm/:id", ds.sendDM)
	al.POST("/broadcast", ds.broadcastAlert)
	al.GET("/status/me", ds.getUserStatus)
	al.PUT("/status/me", ds.setUserStatus)
	al.GET("/templates", ds.getTemplates)
	al.GET("/connection", ds.getAllyConnection)

	dash.GET("/queue", ds.getQueue)
	dash.POST("/queue/retry", ds.retryQueue)
	dash.DELETE("/queue/:id", ds.discardQueued)

	dash.GET("/snapshot", ds.getSnapshot)
	dash.POST("/snapshot/refresh", ds.refreshSnapshot)
	dash.GET("/connection", ds.getConnection)

	dash.POST("/selftest", ds.runSelfTest, adminOnly)
	dash.GET("/selftest", ds.getLastSelfTest)

	dash.GET("/admin/status", ds.getAdminStatus)
	dash.POST("/admin/verify", ds.verifyPIN)
	dash.POST("/admin/lock", ds.lockAdmin)
	dash.PUT("/admin/pin", ds.setPIN, adminOnly)

	dash.GET("/profile", ds.getProfile)
	dash.PUT("/profile", ds.saveProfile)
	dash.GET("/preferences", ds.getPreferences)
	dash.PUT("/preferences", ds.savePreferences)

	if ds.webDir != "" {
		if _, err := os.Stat(ds.webDir); err == nil {
			ds.echo.Static("/", ds.webDir)
		} else {
			log.Warn().Str("web_dir", ds.webDir).Msg("Web directory not found, static files disabled")
		}
	}
}

func (ds *DashServer) getVersion(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"version": ds.version})
}

func badRequest(ctx echo.Context, err error) error {
	return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// bind decodes and validates the request body into req.
func bind(ctx echo.Context, req any) error {
	if err := ctx.Bind(req); err != nil {
		return err
	}
	return ctx.Validate(req)
}
