package components

import (
	"context"
	"log/slog"

	"culture-booking/internal/pkg/config"
	"culture-booking/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		fx.Annotate(
			worker.NewLogMailer,
			fx.As(new(worker.Mailer)),
		),
		worker.NewHandler,
	),
	fx.Invoke(StartWorker),
)

// StartWorker runs the asynq consumer and the periodic scheduler
// alongside the HTTP server.
func StartWorker(lc fx.Lifecycle, cfg config.Config, handler *worker.Handler) error {
	srv, mux := worker.NewServer(cfg.Redis, handler)
	scheduler, err := worker.NewScheduler(cfg.Redis)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Run(mux); err != nil {
					slog.Error("worker server stopped", "error", err.Error())
				}
			}()
			go func() {
				if err := scheduler.Run(); err != nil {
					slog.Error("worker scheduler stopped", "error", err.Error())
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			scheduler.Shutdown()
			srv.Shutdown()
			return nil
		},
	})
	return nil
}
