package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mediq/mediq/internal/config"
	"github.com/mediq/mediq/internal/domain/dashboard"
	"github.com/mediq/mediq/internal/domain/diagnosis"
	"github.com/mediq/mediq/internal/domain/identity"
	"github.com/mediq/mediq/internal/domain/inventory"
	"github.com/mediq/mediq/internal/domain/organization"
	"github.com/mediq/mediq/internal/domain/patient"
	"github.com/mediq/mediq/internal/domain/scope"
	"github.com/mediq/mediq/internal/platform/auth"
	"github.com/mediq/mediq/internal/platform/db"
	"github.com/mediq/mediq/internal/platform/metrics"
	"github.com/mediq/mediq/internal/platform/middleware"
	"github.com/mediq/mediq/internal/platform/session"
	"github.com/mediq/mediq/internal/platform/webhook"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediq-server",
		Short: "Medical diagnosis and inventory API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Session store for sticky operating contexts. Redis when configured,
	// in-memory otherwise.
	var store session.Store
	scopeTTL := time.Duration(cfg.ScopeTTLHours) * time.Hour
	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(cfg.RedisURL, scopeTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		store = rs
		logger.Info().Msg("connected to redis")
	} else {
		store = session.NewMemoryStore()
		logger.Warn().Msg("REDIS_URL not set; operating contexts are stored in memory")
	}

	// Metrics
	metrics.Init()

	// Repositories
	userRepo := identity.NewRepoPG(pool)
	orgRepo := organization.NewRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	invRepo := inventory.NewRepoPG(pool)
	diagRepo := diagnosis.NewRepoPG(pool)
	dashRepo := dashboard.NewRepoPG(pool)

	// Services
	issuer := auth.NewTokenIssuer(cfg.JWTIssuer, []byte(cfg.JWTSecret), time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	identitySvc := identity.NewService(userRepo, issuer, 24*time.Hour)

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	orgSvc := organization.NewService(orgRepo, txRunner, time.Duration(cfg.InviteTTLHours)*time.Hour)

	resolver := scope.NewResolver(organization.NewMembershipAdapter(orgRepo), store)
	orgSvc.SetContextResetter(resolver)

	patientSvc := patient.NewService(patientRepo)

	inventorySvc := inventory.NewService(invRepo, txRunner, cfg.LowStockThreshold)

	workflow := webhook.NewClient(cfg.WebhookURL, cfg.WebhookSecret)
	diagSvc := diagnosis.NewService(diagRepo, patientSvc, workflow)

	dashSvc := dashboard.NewService(dashRepo, cfg.LowStockThreshold)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Public routes: signup, signin, email verification.
	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterPublicRoutes(apiV1)

	// Authenticated routes.
	authed := apiV1.Group("")
	if cfg.IsDev() {
		authed.Use(auth.DevAuthMiddleware())
	} else {
		authed.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	identityHandler.RegisterRoutes(authed)
	scope.NewHandler(resolver).RegisterRoutes(authed)
	organization.NewHandler(orgSvc).RegisterRoutes(authed)

	// Scoped routes: everything below operates within the resolved
	// individual or organization context.
	scoped := authed.Group("")
	scoped.Use(scope.Middleware(resolver))

	patient.NewHandler(patientSvc).RegisterRoutes(scoped)
	inventory.NewHandler(inventorySvc).RegisterRoutes(scoped)
	diagnosis.NewHandler(diagSvc).RegisterRoutes(scoped)
	dashboard.NewHandler(dashSvc).RegisterRoutes(scoped)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
