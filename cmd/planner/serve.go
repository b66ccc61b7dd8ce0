package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"floorplan/internal/common/config"
	"floorplan/internal/common/middleware"
	"floorplan/internal/planner/handlers"
	"floorplan/internal/planner/live"
	"floorplan/internal/planner/patterns"
	"floorplan/internal/planner/repository"
	"floorplan/internal/planner/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the planner HTTP API and live websocket stream",
	Long:  "Start the REST API on PORT and the websocket stream on LIVE_PORT. Configuration comes from the environment.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// ============================================================
// Planner Service
// ============================================================

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background()); err != nil {
		return fmt.Errorf("init db: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Environment == "development" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	assets := patterns.NewLoader(cfg.AssetsDir, nil)
	sessions := service.NewManager(cfg.Engine(), repo, assets, logger)
	hub := live.NewHub()
	sessions.Subscribe(hub.Publish)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Planner Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// ============================================================
	// Routes
	// ============================================================

	handlers.NewHealth(db).Register(app)
	handlers.NewPlannerHandler(sessions, repo).Register(app.Group("/api/v1"))

	liveSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.LivePort),
		Handler:           live.NewServer(hub, sessions).Routes(),
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
	}
	go func() {
		log.Printf("[LIVE] websocket stream on %s", liveSrv.Addr)
		if err := liveSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[LIVE] server error: %v", err)
		}
	}()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		log.Printf("[PLANNER] shutting down, saving open designs")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sessions.SaveAll(ctx); err != nil {
			log.Printf("[PLANNER] save on shutdown: %v", err)
		}
		_ = liveSrv.Shutdown(ctx)
		_ = app.ShutdownWithContext(ctx)
	}()

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Planner Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}
