package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/KarpovAlexandrGo/taskmaster/docs" // swagger docs
	"github.com/KarpovAlexandrGo/taskmaster/internal/config"
	httpctrl "github.com/KarpovAlexandrGo/taskmaster/internal/controller/http"
	"github.com/KarpovAlexandrGo/taskmaster/internal/controller/memo"
	"github.com/KarpovAlexandrGo/taskmaster/internal/controller/web"
	"github.com/KarpovAlexandrGo/taskmaster/internal/metrics"
	"github.com/KarpovAlexandrGo/taskmaster/internal/notify"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/postgres"
	redisrepo "github.com/KarpovAlexandrGo/taskmaster/internal/repo/redis"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/sqlite"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Store is a task repository with an explicit lifecycle.
type Store interface {
	usecase.TaskRepository
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	Server      *http.Server
	cfg         *config.Config
	wg          sync.WaitGroup
	store       Store
	redisClient *redis.Client
	taskUseCase usecase.TaskUseCase
}

func NewApp(cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, store: store}

	var cacheRepo usecase.CacheRepository = usecase.NopCache{}
	sinks := notify.Multi{notify.NewLogSink(logger.Log)}
	if cfg.RedisAddr != "" {
		a.redisClient = redisrepo.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cache := redisrepo.NewCacheRepository(a.redisClient)
		if err := cache.Ping(context.Background()); err != nil {
			logger.Log.WithError(err).Warn("Redis is unreachable, cache lookups will fall through to the store")
		}
		cacheRepo = cache
		sinks = append(sinks, redisrepo.NewReminderPublisher(a.redisClient))
	}

	m := metrics.New()
	a.taskUseCase = usecase.NewTaskUseCase(store, cacheRepo,
		usecase.WithLocation(loc),
		usecase.WithCacheTTL(cfg.CacheTTL),
		usecase.WithObserver(m),
	)
	notifier := usecase.NewReminderNotifier(sinks,
		usecase.WithWindow(cfg.ReminderWindow),
		usecase.WithDedupe(cfg.NotifyDedupe),
		usecase.WithNotifierObserver(m),
	)

	router, err := NewRouter(a.taskUseCase, notifier, m)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Server = &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// OpenStore opens the configured task store and applies its migrations.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.Connect(ctx, cfg.PostgresDSN)
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// NewRouter wires the JSON API, the web pages and the operational endpoints.
func NewRouter(taskUC usecase.TaskUseCase, notifier *usecase.ReminderNotifier, m *metrics.Metrics) (*chi.Mux, error) {
	pages, err := web.NewHandler(taskUC, notifier)
	if err != nil {
		return nil, err
	}
	api := httpctrl.NewTaskHandler(taskUC)

	router := chi.NewRouter()

	router.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Heartbeat("/health"),
		middleware.Timeout(60*time.Second),
		m.Middleware,
	)

	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	router.Handle("/metrics", m.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Get("/api/seed", api.SeedHandler)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(memo.Middleware)
		r.Get("/seed", api.SeedHandler)
		api.RegisterRoutes(r)
	})

	pages.RegisterRoutes(router)

	return router, nil
}

func (a *App) TaskUseCase() usecase.TaskUseCase {
	return a.taskUseCase
}

// Close releases the store and the Redis client.
func (a *App) Close() error {
	var errs []error
	if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func (a *App) Run() error {
	defer func() {
		if err := a.Close(); err != nil {
			logger.Log.WithError(err).Error("Failed to release resources")
		}
	}()

	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		select {
		case <-sig:
			logger.Log.Info("Shutdown signal received")
		case <-serverCtx.Done():
			return
		}

		shutdownCtx, cancel := context.WithTimeout(serverCtx, a.cfg.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				logger.Log.Error("Graceful shutdown timed out")
			}
			logger.Log.WithError(err).Error("HTTP server shutdown failed")
		}
	}()

	logger.Log.Info("Starting server on " + a.Server.Addr)
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serverStopCtx()
		a.wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	}

	a.wg.Wait()
	logger.Log.Info("Server stopped gracefully")
	return nil
}
