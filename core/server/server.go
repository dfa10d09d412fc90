package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonCoulter/whenly/core/cache"
	"github.com/JonCoulter/whenly/core/config"
	"github.com/JonCoulter/whenly/core/constants"
	"github.com/JonCoulter/whenly/core/database"
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/core/storage"
	"github.com/JonCoulter/whenly/core/worker"
	"github.com/JonCoulter/whenly/modules/auth"
	"github.com/JonCoulter/whenly/modules/availability"
	"github.com/JonCoulter/whenly/modules/calendar"
	"github.com/JonCoulter/whenly/modules/share"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// Run wires every component together and serves until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.InitDB(database.DatabaseConfig(cfg.Database))
	if err != nil {
		return err
	}

	c, err := cache.InitCache(cache.RedisConfig(cfg.Redis))
	if err != nil {
		return err
	}

	store := storage.InitStorage(cfg.S3)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.CORS())

	e.GET("/health", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	mw := middleware.NewMiddleware(c)

	enqueuer := worker.NewClient(cfg.Redis)
	defer enqueuer.Close()

	availabilitySvc := availability.Init(e, &db, c, mw, enqueuer)
	calendarSvc := calendar.Init(e, &db, c, mw)
	auth.Init(e, &db, c, mw, calendarSvc)
	share.Init(e, availabilitySvc, store)

	workerSrv := worker.NewServer(cfg.Redis, availabilitySvc)
	if err := workerSrv.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownWindow)
	defer cancel()

	workerSrv.Shutdown()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
