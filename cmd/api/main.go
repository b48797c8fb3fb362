package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/api"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/api/handler"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/api/middleware"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/app"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/config"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

func main() {
	logger.SetDefaultLogger(logger.NewFromEnv(logger.LoadFromEnv()))
	defer logger.Sync()

	// CONFIG_PATH overrides the ./configs lookup in deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Publish: true})
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}
	defer a.Close()

	runCtx, cancelRun := context.WithCancel(context.Background())
	saved := a.Run(runCtx)

	router := api.SetupRouter(api.RouterDeps{
		Projects:    a.ProjectService,
		Niches:      a.NicheService,
		Collections: a.Collections,
		Health:      handler.NewHealthHandler(a.Persistence, cfg.Queue.Enabled, a.Storage != nil),
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
	}, cfg.Server.Mode)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.With(logger.Fields{
			"port":  cfg.Server.Port,
			"mode":  cfg.Server.Mode,
			"queue": cfg.Queue.Enabled,
		}).Info(ctx, "Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}

	// in-process generation finishes before the last flush
	a.Wait()
	cancelRun()
	<-saved

	logger.Info("Server exited")
}
