package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storesync/core/loader"
	"storesync/core/logger"
	"storesync/core/middleware/auth"
	"storesync/core/middleware/rayid"
	"storesync/core/replication"
	"storesync/feature/syncapi"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "storesync/docs/swagger"
)

// @title storesync API
// @version 1.0
// @description API for browsing and synchronizing record stores.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the storesync server",
	Long: `Starts the HTTP API, optionally propagates live writes between stores
(sync.watch) and synchronizes every sync.interval_seconds.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 1. Configuration, logger, stores
		rt, err := loadRuntime(ctx, configPath)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer rt.close(context.Background())
		logg := rt.logger
		zap.ReplaceGlobals(logg)

		if err := rt.registry.Connect(ctx); err != nil {
			logg.Warn("Some stores failed to connect, retrying on first use", zap.Error(err))
		}

		// 2. Live propagation and periodic synchronization
		if rt.cfg.Sync.Watch {
			rt.registry.Watch()
			defer rt.registry.Unwatch()
			logg.Info("Live propagation enabled")
		}
		if interval := rt.interval(); interval > 0 {
			go func() {
				_ = rt.registry.Run(ctx, interval, replication.SyncOptions{})
			}()
			logg.Info("Periodic synchronization enabled", zap.Duration("interval", interval))
		}

		if !rt.cfg.Server.Enabled {
			logg.Info("HTTP API disabled, waiting for shutdown")
			<-ctx.Done()
			return
		}

		// 3. HTTP API
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager(logg)
		api := syncapi.NewFeature(rt.registry, rt.gatherer, logg)
		mgr.Register(api)

		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger documentation (public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		if rt.cfg.Server.PublicMetrics {
			api.Handler().RegisterMetrics(app)
		}

		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))

		if !rt.cfg.Server.PublicMetrics {
			api.Handler().RegisterMetrics(app)
		}

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		go func() {
			logg.Info("Starting server", zap.String("address", rt.cfg.Server.Address()))
			if err := app.Listen(rt.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// Graceful shutdown
		<-ctx.Done()
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
