package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"culture-booking/internal/domain/booking"
	"culture-booking/internal/domain/inventory"
	"culture-booking/internal/domain/payment"
	"culture-booking/internal/gateway"
	"culture-booking/internal/infra"
	"culture-booking/internal/pkg/clock"
	"culture-booking/internal/pkg/config"
	"culture-booking/internal/pkg/errs"
	"culture-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	createBookingEndpoint = "POST /api/bookings"
	idempotencyKeyTTL     = 24 * time.Hour

	notificationKindEmail = "email"

	topicBookingCreated   = "booking.created"
	topicBookingCancelled = "booking.cancelled"
	topicBookingExpired   = "booking.expired"
)

// expireSweepBatch bounds how many pending bookings one sweep run
// terminates.
const expireSweepBatch = 100

type CreateBookingInput struct {
	IdempotencyKey uuid.UUID
	UnitID         uuid.UUID
	CustomerName   string
	CustomerEmail  string
	Quantity       int32
	Provider       string
}

type CreateBookingResult struct {
	BookingID        uuid.UUID
	Reference        string
	Provider         string
	AmountCents      int64
	Currency         string
	AuthorizationURL string
	ClientSecret     string
	// Replayed is true when the idempotency key matched a completed
	// request and the stored result was returned without reserving again.
	Replayed bool
}

type BookingCommands interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error)
	CancelBooking(ctx context.Context, id uuid.UUID) error
	// ExpirePendingBookings terminates pending bookings older than the
	// payment window and returns how many were expired.
	ExpirePendingBookings(ctx context.Context) (int, error)
}

type bookingCommandsImpl struct {
	uow      shared.UnitOfWork
	gateways *gateway.Registry
	clock    clock.Clock
	cfg      config.BookingConfig
	callback string
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	gateways *gateway.Registry,
	clk clock.Clock,
	cfg config.BookingConfig,
	gatewayCfg config.GatewaysConfig,
) BookingCommands {
	return &bookingCommandsImpl{
		uow:      uow,
		gateways: gateways,
		clock:    clk,
		cfg:      cfg,
		callback: gatewayCfg.CallbackURL,
	}
}

// CreateBooking is the reservation entrypoint. Capacity reserve, booking
// row, payment record and idempotency claim commit in one transaction;
// the provider checkout is initialized afterwards so no external call
// runs inside the transaction. A gateway failure leaves the booking
// pending: a retry with the same idempotency key re-attempts the
// checkout, and the expiry sweep reclaims capacity if the client never
// comes back.
func (c *bookingCommandsImpl) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	if input.IdempotencyKey == uuid.Nil {
		return nil, errs.ErrIdempotencyKeyRequired
	}

	contact, err := booking.NewContact(input.CustomerName, input.CustomerEmail)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	gw, err := c.gateways.Get(input.Provider)
	if err != nil {
		return nil, err
	}

	requestHash := hashCreateRequest(input)
	now := c.clock.Now()

	var result CreateBookingResult
	var replayStatus booking.Status
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		inserted, err := tx.Idempotency().TryInsert(
			ctx, input.IdempotencyKey, contact.Email(),
			createBookingEndpoint, requestHash, now.Add(idempotencyKeyTTL),
		)
		if err != nil {
			return errs.Mark(err, errs.ErrIdempotencyCheckFailed)
		}

		if !inserted {
			replay, status, err := c.resolveReplay(ctx, tx, input.IdempotencyKey, contact.Email(), requestHash)
			if err != nil {
				return err
			}
			result = *replay
			replayStatus = status
			return nil
		}

		created, err := c.reserveAndCreate(ctx, tx, contact, input, now)
		if err != nil {
			return err
		}
		result = *created

		return tx.Idempotency().UpdateStatusCompleted(
			ctx, input.IdempotencyKey, contact.Email(), requestHash, result.BookingID,
		)
	})
	if err != nil {
		return nil, err
	}
	// Settled replays return the stored result as-is; pending replays
	// re-attempt the checkout below so a retry after a gateway outage
	// still gets an authorization URL.
	if result.Replayed && (replayStatus != booking.StatusPendingPayment || result.Reference == "") {
		return &result, nil
	}

	init, err := gw.Initialize(ctx, gateway.InitializeRequest{
		Reference:   result.Reference,
		Email:       contact.Email(),
		AmountCents: result.AmountCents,
		Currency:    result.Currency,
		CallbackURL: c.callback,
	})
	if err != nil {
		slog.Warn("gateway checkout initialization failed, booking stays pending",
			"booking_id", result.BookingID.String(),
			"reference", result.Reference,
			"error", err.Error())
		return nil, err
	}

	result.AuthorizationURL = init.AuthorizationURL
	result.ClientSecret = init.ClientSecret
	return &result, nil
}

func (c *bookingCommandsImpl) reserveAndCreate(
	ctx context.Context,
	tx shared.Tx,
	contact booking.Contact,
	input CreateBookingInput,
	now time.Time,
) (*CreateBookingResult, error) {
	snap, err := tx.Reads().UnitByID(ctx, input.UnitID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrUnitNotFound
		}
		return nil, errs.Wrap(err, "failed to load inventory unit")
	}

	unit := inventory.ReconstructUnit(
		snap.ID, snap.Kind, snap.Name, snap.StartsAt,
		snap.PriceCents, snap.Currency, snap.TotalCapacity,
		snap.Consumed, snap.Active, time.Time{}, time.Time{},
	)
	if err := unit.CanReserve(input.Quantity); err != nil {
		return nil, mapReserveErr(err)
	}

	if err := tx.Inventory().Reserve(ctx, input.UnitID, input.Quantity); err != nil {
		return nil, mapReserveRepoErr(err)
	}

	b, err := booking.NewBooking(unit, contact, input.Quantity)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}
	bookingID, err := tx.Bookings().Create(ctx, b)
	if err != nil {
		return nil, errs.Wrap(err, "failed to persist booking")
	}

	reference, err := payment.NewReference(now)
	if err != nil {
		return nil, errs.Wrap(err, "failed to mint payment reference")
	}
	record, err := payment.NewRecord(reference, bookingID, input.Provider, b.Total())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}
	if err := tx.Payments().Create(ctx, record); err != nil {
		return nil, errs.Wrap(err, "failed to persist payment record")
	}

	payload, _ := json.Marshal(map[string]any{
		"booking_id": bookingID,
		"email":      contact.Email(),
		"reference":  reference,
	})
	if err := tx.Notifications().CreateJob(ctx, notificationKindEmail, topicBookingCreated, payload, now); err != nil {
		return nil, errs.Wrap(err, "failed to enqueue booking notification")
	}

	return &CreateBookingResult{
		BookingID:   bookingID,
		Reference:   reference,
		Provider:    input.Provider,
		AmountCents: b.Total().Cents(),
		Currency:    b.Total().Currency(),
	}, nil
}

// resolveReplay serves a request whose idempotency key is already
// claimed. A completed record with a matching request hash replays the
// stored booking and its payment reference; a different hash under the
// same key is a client bug. The booking status tells the caller whether
// the checkout still needs initializing.
func (c *bookingCommandsImpl) resolveReplay(
	ctx context.Context,
	tx shared.Tx,
	key uuid.UUID,
	email, requestHash string,
) (*CreateBookingResult, booking.Status, error) {
	record, err := tx.Reads().IdempotencyByKey(ctx, key, email)
	if err != nil {
		return nil, "", errs.Mark(err, errs.ErrIdempotencyCheckFailed)
	}
	if record.RequestHash != requestHash {
		return nil, "", errs.ErrDuplicateBooking
	}
	if record.Status != "completed" || record.ResultBookingID == nil {
		return nil, "", errs.ErrIdempotencyInProgress
	}

	snap, err := tx.Reads().BookingByID(ctx, *record.ResultBookingID)
	if err != nil {
		return nil, "", errs.Wrap(err, "failed to load replayed booking")
	}

	res := &CreateBookingResult{
		BookingID:   snap.ID,
		AmountCents: snap.AmountCents,
		Currency:    snap.Currency,
		Replayed:    true,
	}

	pay, err := tx.Reads().PaymentByBookingID(ctx, snap.ID)
	if err != nil {
		if !infra.IsKind(err, infra.KindNotFound) {
			return nil, "", errs.Wrap(err, "failed to load replayed payment record")
		}
	} else {
		res.Reference = pay.Reference
		res.Provider = pay.Provider
	}

	return res, snap.Status, nil
}

// CancelBooking moves a pending booking to cancelled and releases its
// reservation. Terminal bookings reject the transition.
func (c *bookingCommandsImpl) CancelBooking(ctx context.Context, id uuid.UUID) error {
	now := c.clock.Now()
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		moved, err := tx.Bookings().MarkTerminal(ctx, id, booking.StatusCancelled)
		if err != nil {
			return errs.Wrap(err, "failed to cancel booking")
		}
		if !moved {
			snap, err := tx.Reads().BookingByID(ctx, id)
			if err != nil {
				if infra.IsKind(err, infra.KindNotFound) {
					return errs.ErrBookingNotFound
				}
				return errs.Wrap(err, "failed to load booking")
			}
			return errs.Wrap(errs.ErrInvalidStateTransition, string(snap.Status))
		}

		if err := releaseClaimedCapacity(ctx, tx, id); err != nil {
			return err
		}

		snap, err := tx.Reads().BookingByID(ctx, id)
		if err != nil {
			return errs.Wrap(err, "failed to load cancelled booking")
		}
		payload, _ := json.Marshal(map[string]any{
			"booking_id": id,
			"email":      snap.CustomerEmail,
		})
		return tx.Notifications().CreateJob(ctx, notificationKindEmail, topicBookingCancelled, payload, now)
	})
}

// ExpirePendingBookings is the payment-window sweep. Each booking is
// expired in its own transaction so one failure never aborts the batch.
func (c *bookingCommandsImpl) ExpirePendingBookings(ctx context.Context) (int, error) {
	cutoff := c.clock.Now().Add(-c.cfg.PaymentWindow)
	ids, err := c.uow.CommandReads().ExpiredPendingBookings(ctx, cutoff, expireSweepBatch)
	if err != nil {
		return 0, errs.Wrap(err, "failed to list expired pending bookings")
	}

	expired := 0
	for _, id := range ids {
		err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return terminateAndRelease(ctx, tx, id, booking.StatusExpired)
		})
		if err != nil {
			slog.Error("failed to expire booking", "booking_id", id.String(), "error", err.Error())
			continue
		}
		expired++
	}

	if expired > 0 {
		slog.Info("expired pending bookings", "count", expired, "cutoff", cutoff)
	}
	return expired, nil
}

// terminateAndRelease moves a pending booking to the given terminal
// status and gives its reservation back. Losing the status race is a
// no-op: someone else already settled the booking.
func terminateAndRelease(ctx context.Context, tx shared.Tx, id uuid.UUID, status booking.Status) error {
	moved, err := tx.Bookings().MarkTerminal(ctx, id, status)
	if err != nil {
		return errs.Wrap(err, "failed to terminate booking")
	}
	if !moved {
		return nil
	}
	return releaseClaimedCapacity(ctx, tx, id)
}

// releaseClaimedCapacity wins the booking's one-shot release claim and
// decrements the ledger. claimed=false means a previous path already
// released, so the ledger stays untouched.
func releaseClaimedCapacity(ctx context.Context, tx shared.Tx, bookingID uuid.UUID) error {
	unitID, quantity, claimed, err := tx.Bookings().ClaimCapacityRelease(ctx, bookingID)
	if err != nil {
		return errs.Wrap(err, "failed to claim capacity release")
	}
	if !claimed {
		return nil
	}
	if err := tx.Inventory().Release(ctx, unitID, quantity); err != nil {
		return errs.Wrap(err, "failed to release capacity")
	}
	return nil
}

func mapReserveErr(err error) error {
	switch err {
	case inventory.ErrUnitClosed:
		return errs.ErrUnitInactive
	case inventory.ErrCapacityExceeded:
		return errs.ErrCapacityExceeded
	default:
		return errs.Mark(err, errs.ErrDomainValidation)
	}
}

func mapReserveRepoErr(err error) error {
	switch {
	case infra.IsKind(err, infra.KindNotFound):
		return errs.ErrUnitNotFound
	case infra.IsKind(err, infra.KindConflict):
		return errs.ErrUnitInactive
	case infra.IsKind(err, infra.KindCapacityExceeded):
		return errs.ErrCapacityExceeded
	default:
		return errs.Wrap(err, "failed to reserve capacity")
	}
}

func hashCreateRequest(input CreateBookingInput) string {
	canonical := fmt.Sprintf("%s|%s|%d|%s",
		input.UnitID, input.CustomerEmail, input.Quantity, input.Provider)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
