package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sysscope/internal/broadcast"
	"sysscope/internal/config"
	"sysscope/internal/distributor"
	"sysscope/internal/handlers"
	"sysscope/internal/history"
	"sysscope/internal/middleware"
	"sysscope/internal/observability"
	"sysscope/internal/sampler"
	"sysscope/internal/store"
	"sysscope/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived component of a running server.
type App struct {
	cfg         *config.Config
	logger      *utils.Logger
	store       *store.Store
	registry    *broadcast.Registry
	distributor *distributor.Distributor
	history     *history.Query
	wsHub       *middleware.StreamHub
	rateLimiter *middleware.RateLimiter
	promReg     *prometheus.Registry
}

// newApp wires components around an initialised store and sampler.
func newApp(cfg *config.Config, logger *utils.Logger, st *store.Store, smp sampler.Sampler) *App {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.New(promReg)

	registry := broadcast.NewRegistry(cfg.SubscriberBuffer, logger, metrics)
	return &App{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		registry:    registry,
		distributor: distributor.New(smp, st, registry, cfg.Interval, logger, metrics),
		history:     history.NewQuery(st, cfg.HistoryLimit, cfg.MaxHistoryLimit),
		wsHub:       middleware.NewStreamHub(registry, logger),
		rateLimiter: middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMinute), cfg.RateLimitBurst),
		promReg:     promReg,
	}
}

func runServe(parent context.Context, configPath string) error {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := utils.NewLogger(cfg.LogPath())
	defer logger.Close()
	if err := utils.NewPaths(cfg.DataDir).DeployRoot(logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The schema must exist before any request is accepted.
	st, err := store.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Init(ctx); err != nil {
		return err
	}
	logger.Printf("Metrics store ready at %s", cfg.DatabasePath())

	smp := sampler.NewHost(cfg.ProbeAddress, cfg.ProbeTimeout)
	if err := smp.Check(ctx); err != nil {
		return err
	}

	app := newApp(cfg, logger, st, smp)
	return app.run(ctx)
}

// run starts the distributor and HTTP server and blocks until ctx is
// cancelled or either of them fails.
func (a *App) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := a.distributor.Start(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		if err := a.distributor.Wait(); err != nil {
			return fmt.Errorf("distributor: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		if a.cfg.TLS.Enabled {
			log.Printf("Starting HTTPS server on %s", a.cfg.Addr)
			err = srv.ListenAndServeTLS(a.cfg.TLS.Cert, a.cfg.TLS.Key)
		} else {
			log.Printf("Starting server on %s", a.cfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		a.shutdown(srv)
		return nil
	})

	err := g.Wait()
	log.Println("Server exited")
	return err
}

func (a *App) shutdown(srv *http.Server) {
	// Stop collection first so no tick is broadcast into closing sessions.
	if err := a.distributor.Stop(); err != nil {
		a.logger.Printf("Distributor stopped with error: %v", err)
	}
	a.registry.Close()
	a.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Printf("Server forced to shutdown: %v", err)
	}
}

func (a *App) setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output: a.logger.Writer(),
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC1123),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(a.rateLimiter.Middleware())

	h := handlers.NewMetricsHandlers(a.history, a.store, a.distributor, a.wsHub)

	r.GET("/", h.Root)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/version", h.Version)
	r.GET("/history", middleware.ValidateQuery[handlers.HistoryRequest](), h.History)
	r.GET("/metrics", gin.WrapH(observability.Handler(a.promReg)))

	r.GET("/ws/metrics", a.wsHub.HandleWebSocket())

	return r
}
