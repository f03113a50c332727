package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sharelink/docs"
	"sharelink/internal/access"
	"sharelink/internal/auth"
	"sharelink/internal/config"
	"sharelink/internal/database"
	"sharelink/internal/database/migration"
	handlers "sharelink/internal/http/handler"
	"sharelink/internal/http/middleware"
	"sharelink/internal/logger"
	"sharelink/internal/metrics"
	"sharelink/internal/otel"
	"sharelink/internal/repository"
	"sharelink/internal/repository/memory"
	"sharelink/internal/repository/postgres"
	"sharelink/internal/service"
	"sharelink/internal/shortlink"
	"sharelink/internal/storage"
	"sharelink/internal/sweeper"
)

const (
	shutdownTimeout = 10 * time.Second
	// multipart framing on top of the largest accepted file.
	bodyLimitSlack = 1 << 20
)

// @title						Sharelink API
// @version					1.0
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg := config.Load()
	loc := logger.LoadLocation(cfg.Timezone)
	log := logger.Init(cfg.LogLevel, loc)

	if err := run(cfg, loc, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.AppConfig, loc *time.Location, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	db, shares, users, err := openRecords(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	clock := clockwork.NewRealClock()
	resolver := shortlink.NewResolver(shortlink.NewNanoID(cfg.Share.ShortLinkLength), shares, cfg.Share.MaxAttempts)
	gate := access.NewGate(shares, store, clock, m)
	shareSvc := service.NewShareService(shares, store, resolver, gate, clock, m, service.ShareOptions{
		MaxFileSize:      cfg.Share.MaxFileSize,
		AllowedFileTypes: cfg.Share.AllowedFileTypes,
	})

	tokens, err := auth.NewTokenAuth(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTTTLHours)*time.Hour, clock)
	if err != nil {
		return fmt.Errorf("init token auth: %w", err)
	}
	authSvc := service.NewAuthService(users, tokens, clock, 0)

	sw := sweeper.New(shares, store, sweeper.Options{
		Schedule:          cfg.Sweeper.Schedule,
		ReconcileSchedule: cfg.Sweeper.ReconcileSchedule,
		BatchSize:         cfg.Sweeper.BatchSize,
		StorageRPS:        cfg.Sweeper.StorageRPS,
		Location:          loc,
		Clock:             clock,
		Logger:            log,
		Metrics:           m,
	})
	if err := sw.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer sw.Stop()

	bodyLimit := fiber.DefaultBodyLimit
	if cfg.Share.MaxFileSize > 0 {
		bodyLimit = int(cfg.Share.MaxFileSize) + bodyLimitSlack
	}
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	var pinger handlers.Pinger
	if db != nil {
		pinger = db
	}
	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:      pinger,
		Shares:  shareSvc,
		Auth:    authSvc,
		Tokens:  tokens,
		Limiter: middleware.RateLimit(cfg.RateLimit.Max, cfg.RateLimit.Window),
		BaseURL: cfg.Share.BaseURL,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("db_driver", cfg.Database.Driver).Str("storage_driver", cfg.Storage.Driver).Msg("server_listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	return nil
}

// openRecords returns the record stores for the configured driver. db is nil
// for the memory driver.
func openRecords(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*sql.DB, repository.ShareRepository, repository.UserRepository, error) {
	switch cfg.Database.Driver {
	case "memory":
		log.Warn().Msg("using in-memory record store, data is lost on restart")
		return nil, memory.NewShareMemory(), memory.NewUserMemory(), nil
	case "postgres", "":
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return db, postgres.NewSharePostgres(db), postgres.NewUserPostgres(db), nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Database.Driver)
	}
}

func openStorage(ctx context.Context, cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "filesystem":
		return storage.NewFileSystemStore(cfg.Storage.Path)
	case "minio", "":
		return storage.NewMinIO(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}
