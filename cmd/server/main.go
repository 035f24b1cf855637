package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcity/mobility/internal/config"
	"github.com/smartcity/mobility/internal/deeplink"
	"github.com/smartcity/mobility/internal/delivery/http"
	"github.com/smartcity/mobility/internal/domain"
	"github.com/smartcity/mobility/internal/imagecache"
	"github.com/smartcity/mobility/internal/platform/otel"
	"github.com/smartcity/mobility/internal/repository/memory"
	"github.com/smartcity/mobility/internal/repository/postgres"
	"github.com/smartcity/mobility/internal/repository/sqlite"
	"github.com/smartcity/mobility/internal/screen"
	"github.com/smartcity/mobility/internal/service"
)

func main() {
	// Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Tracing
	shutdownTracing, err := otel.Setup(rootCtx, "mobility-monitor", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Printf("Warning: tracing disabled: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	// Dependency Injection: Repositories
	repo, closeRepo := openRepository(rootCtx, cfg)
	defer closeRepo()

	// Dependency Injection: Services
	mobilitySvc := service.NewMobilityService(cfg.MobilityServiceURL, cfg.MobilityAPIKey, cfg.HTTPTimeout)
	weatherSvc := service.NewWeatherService(cfg.WeatherServiceURL, cfg.WeatherAPIKey, cfg.HTTPTimeout)
	imageSvc := service.NewImageService(cfg.HTTPTimeout)
	orchestrator := service.NewOrchestrator(mobilitySvc, weatherSvc, repo, cfg.MaxDetailItems)

	icons := imagecache.New(imageSvc, imagecache.DefaultCapacity)
	fallback := domain.GeoPoint{Latitude: cfg.DefaultLat, Longitude: cfg.DefaultLon}
	screens := screen.NewRegistry(orchestrator, icons, screen.Options{
		Interval: cfg.RefreshInterval,
		Fallback: &fallback,
	})

	// Background maintenance
	go screens.RunReaper(rootCtx, time.Minute, cfg.ScreenIdleTimeout)
	go runCleanup(rootCtx, repo, cfg.Retention)

	handler := http.NewHandler(
		orchestrator, weatherSvc, icons, screens, repo,
		deeplink.NewMatcher(cfg.DeeplinkScheme), fallback,
	)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Mobility Monitor API v1.0",
		ReadTimeout:  10 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stop()
	screens.CloseAll()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	orchestrator.WaitBackground()
	log.Println("Server exited gracefully")
}

// openRepository picks postgres, then sqlite, then in-memory storage
func openRepository(ctx context.Context, cfg *config.Config) (domain.SnapshotRepository, func()) {
	noop := func() {}

	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
		if err == nil {
			if err = pool.Ping(connectCtx); err != nil {
				pool.Close()
			}
		}
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
		} else {
			repo := postgres.NewPostgresRepository(pool)
			if err := repo.EnsureSchema(connectCtx); err != nil {
				log.Printf("Warning: %v", err)
			}
			log.Println("Connected to PostgreSQL")
			return repo, pool.Close
		}
	}

	if cfg.SQLiteDatabase != "" {
		db, err := sqlite.Connect(ctx, cfg.SQLiteDatabase)
		if err != nil {
			log.Printf("Warning: Could not open SQLite database: %v", err)
		} else {
			return db, func() {
				if err := db.Close(); err != nil {
					log.Printf("SQLite close error: %v", err)
				}
			}
		}
	}

	log.Println("Running with in-memory snapshot storage")
	return memory.NewMemoryRepository(), noop
}

// runCleanup applies the retention window every hour until ctx is done
func runCleanup(ctx context.Context, repo domain.SnapshotRepository, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
			if err := repo.Cleanup(cleanupCtx, retention); err != nil {
				log.Printf("Cleanup error: %v", err)
			}
			cancel()
		}
	}
}
