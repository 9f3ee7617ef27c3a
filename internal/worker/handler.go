package worker

import (
	"context"
	"log/slog"

	"culture-booking/internal/pkg/clock"
	"culture-booking/internal/usecase/commands"
	"culture-booking/internal/usecase/shared"

	"github.com/hibiken/asynq"
)

const dispatchBatchSize = 50

const (
	jobStatusSent   = "sent"
	jobStatusFailed = "failed"
)

// Handler holds the asynq task handlers. Tasks are thin shells over the
// command layer; all correctness guarantees live below.
type Handler struct {
	bookings commands.BookingCommands
	uow      shared.UnitOfWork
	mailer   Mailer
	clock    clock.Clock
}

func NewHandler(bookings commands.BookingCommands, uow shared.UnitOfWork, mailer Mailer, clk clock.Clock) *Handler {
	return &Handler{bookings: bookings, uow: uow, mailer: mailer, clock: clk}
}

func (h *Handler) HandleExpirePending(ctx context.Context, _ *asynq.Task) error {
	_, err := h.bookings.ExpirePendingBookings(ctx)
	if err != nil {
		slog.Error("expire sweep failed", "error", err.Error())
		return err
	}
	return nil
}

// HandleDispatchNotifications drains due notification jobs. Claiming
// uses SKIP LOCKED and commits before any send, so a crashed dispatcher
// leaves jobs in sending rather than double-delivering; sends happen
// outside the claim transaction.
func (h *Handler) HandleDispatchNotifications(ctx context.Context, _ *asynq.Task) error {
	var jobs []shared.NotificationJob
	err := h.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		claimed, err := tx.Notifications().ClaimDueJobs(ctx, h.clock.Now(), dispatchBatchSize)
		if err != nil {
			return err
		}
		jobs = claimed
		return nil
	})
	if err != nil {
		slog.Error("failed to claim notification jobs", "error", err.Error())
		return err
	}

	for _, job := range jobs {
		status := jobStatusSent
		var lastError *string
		if err := h.mailer.Send(ctx, job.Topic, job.Payload); err != nil {
			status = jobStatusFailed
			msg := err.Error()
			lastError = &msg
			slog.Error("notification send failed",
				"job_id", job.ID.String(), "topic", job.Topic,
				"attempts", job.Attempts, "error", msg)
		}

		err := h.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Notifications().MarkJobStatus(ctx, job.ID, status, lastError)
		})
		if err != nil {
			slog.Error("failed to record notification job status",
				"job_id", job.ID.String(), "error", err.Error())
		}
	}
	return nil
}
