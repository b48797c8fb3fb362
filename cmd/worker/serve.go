package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/app"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/queue"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume generation commands from the queue",
	Long: `Consume generation commands published by the API server.

Projects are pulled from the shared collections before every command and the
results are written back as soon as the command finishes. Projects with a
command still running keep their local state.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("concurrency", 0, "Commands handled in parallel (overrides queue.concurrency)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Queue.Enabled {
		return errors.New("queue is disabled; set queue.enabled to consume commands")
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.Queue.Concurrency = n
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	runCtx, cancelRun := context.WithCancel(context.Background())
	saved := a.Run(runCtx)
	defer func() {
		cancelRun()
		<-saved
	}()

	consumer, err := queue.NewConsumer(app.QueueConfig(&cfg.Queue), commandHandler(a))
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer consumer.Stop()

	logger.With(logger.Fields{
		"stream":      cfg.Queue.Stream,
		"subject":     cfg.Queue.Subject,
		"concurrency": cfg.Queue.Concurrency,
	}).Info(ctx, "Worker consuming generation commands")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Worker stopped")
	return nil
}

// commandHandler syncs the project collection around every command.
func commandHandler(a *app.App) queue.Handler {
	return func(ctx context.Context, cmd queue.Command) error {
		if err := service.Pull(ctx, a.Persistence, a.Projects, domain.Project.Busy); err != nil {
			return err
		}
		execErr := a.Executor.Execute(ctx, cmd)
		if err := a.Saver.Flush(ctx); err != nil {
			logger.CtxWarn(ctx, "Failed to persist after %s command: %v", cmd.Kind, err)
		}
		return execErr
	}
}
