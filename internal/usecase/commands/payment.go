package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"culture-booking/internal/domain/booking"
	"culture-booking/internal/domain/payment"
	"culture-booking/internal/domain/ticket"
	"culture-booking/internal/gateway"
	"culture-booking/internal/infra"
	"culture-booking/internal/pkg/clock"
	"culture-booking/internal/pkg/errs"
	"culture-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	topicTicketIssued   = "ticket.issued"
	topicPaymentFailed  = "payment.failed"
	topicPaymentFlagged = "payment.flagged"
)

type ReconcileResult struct {
	Reference     string
	PaymentStatus payment.Status
	BookingID     uuid.UUID
	BookingStatus booking.Status
	TicketID      *string
	QRPayload     *string
	// Pending means the provider has not settled the attempt; nothing
	// was recorded.
	Pending bool
	// Replayed means this outcome was already recorded by an earlier
	// reconciliation and this call changed nothing.
	Replayed bool
	// Flagged means the record was put up for manual review.
	Flagged bool
	// AmountMismatch means a success report carried a different amount
	// than the recorded total and was flagged instead of confirmed.
	AmountMismatch bool
}

type PaymentCommands interface {
	// VerifyByReference pulls the provider's view of a transaction and
	// reconciles it. Safe to call any number of times.
	VerifyByReference(ctx context.Context, reference string) (*ReconcileResult, error)
	// HandleWebhook authenticates, parses and reconciles a provider
	// notification. The webhook and verify paths converge on the same
	// reconciliation, so their order of arrival never matters.
	HandleWebhook(ctx context.Context, provider string, header http.Header, body []byte) (*ReconcileResult, error)
}

type paymentCommandsImpl struct {
	uow      shared.UnitOfWork
	gateways *gateway.Registry
	clock    clock.Clock
}

func NewPaymentCommands(uow shared.UnitOfWork, gateways *gateway.Registry, clk clock.Clock) PaymentCommands {
	return &paymentCommandsImpl{uow: uow, gateways: gateways, clock: clk}
}

func (p *paymentCommandsImpl) VerifyByReference(ctx context.Context, reference string) (*ReconcileResult, error) {
	snap, err := p.uow.CommandReads().PaymentByReference(ctx, reference)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrPaymentNotFound
		}
		return nil, errs.Wrap(err, "failed to load payment record")
	}

	gw, err := p.gateways.Get(snap.Provider)
	if err != nil {
		return nil, err
	}

	res, err := gw.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	return p.reconcile(ctx, reference, res)
}

func (p *paymentCommandsImpl) HandleWebhook(ctx context.Context, provider string, header http.Header, body []byte) (*ReconcileResult, error) {
	gw, err := p.gateways.Get(provider)
	if err != nil {
		return nil, err
	}
	if err := gw.VerifyWebhook(header, body); err != nil {
		return nil, err
	}

	evt, err := gw.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	snap, err := p.uow.CommandReads().PaymentByReference(ctx, evt.Reference)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrPaymentNotFound
		}
		return nil, errs.Wrap(err, "failed to load payment record")
	}
	if snap.Provider != provider {
		return nil, errs.Mark(errs.New("reference belongs to a different provider"), errs.ErrInvalidWebhook)
	}

	return p.reconcile(ctx, evt.Reference, evt.Result)
}

// reconcile converges any provider report onto the stored record. The
// status='pending' guard in ResolvePending picks exactly one winner
// when the verify and webhook paths race; every other call observes
// the terminal record and no-ops or flags.
func (p *paymentCommandsImpl) reconcile(ctx context.Context, reference string, res gateway.VerifyResult) (*ReconcileResult, error) {
	if res.Pending {
		return p.currentState(ctx, reference, func(r *ReconcileResult) {
			r.Pending = true
		})
	}

	var result ReconcileResult
	err := p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := tx.Reads().PaymentByReference(ctx, reference)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.ErrPaymentNotFound
			}
			return errs.Wrap(err, "failed to load payment record")
		}

		if snap.Status.IsTerminal() {
			return p.reconcileTerminal(ctx, tx, snap, res, &result)
		}
		return p.reconcilePending(ctx, tx, snap, res, &result)
	})
	if err != nil {
		return nil, err
	}
	if result.AmountMismatch {
		// The flag is committed; the caller still needs to know the
		// money did not reconcile.
		return nil, errs.Mark(
			errs.New("reported amount differs from the recorded total: "+reference),
			errs.ErrPaymentAmountMismatch)
	}
	return &result, nil
}

// reconcileTerminal handles a report against an already-settled record.
// A matching outcome is a replay; a conflicting one flags the record
// for review and keeps the recorded status, with a recorded success
// always authoritative over a late failure report.
func (p *paymentCommandsImpl) reconcileTerminal(
	ctx context.Context,
	tx shared.Tx,
	snap *shared.PaymentSnapshot,
	res gateway.VerifyResult,
	result *ReconcileResult,
) error {
	incoming := res.Outcome.Status()
	if snap.Status == incoming {
		result.Replayed = true
		return p.fill(ctx, tx, snap, result)
	}

	slog.Warn("conflicting reconciliation outcome",
		"reference", snap.Reference,
		"recorded", snap.Status.String(),
		"reported", incoming.String())

	if err := tx.Payments().Flag(ctx, snap.Reference,
		"conflicting outcome: provider reported "+incoming.String()+
			" after recorded "+snap.Status.String(),
		res.Raw,
	); err != nil {
		return errs.Wrap(err, "failed to flag payment record")
	}
	result.Flagged = true

	if err := p.notifyFlagged(ctx, tx, snap); err != nil {
		return err
	}
	return p.fill(ctx, tx, snap, result)
}

func (p *paymentCommandsImpl) reconcilePending(
	ctx context.Context,
	tx shared.Tx,
	snap *shared.PaymentSnapshot,
	res gateway.VerifyResult,
	result *ReconcileResult,
) error {
	if res.Outcome == payment.OutcomeSuccess && !amountMatches(snap, res) {
		slog.Warn("paid amount does not match booking total",
			"reference", snap.Reference,
			"expected_cents", snap.AmountCents,
			"expected_currency", snap.Currency,
			"paid_cents", res.AmountCents,
			"paid_currency", res.Currency)

		if err := tx.Payments().Flag(ctx, snap.Reference, "amount mismatch", res.Raw); err != nil {
			return errs.Wrap(err, "failed to flag payment record")
		}
		result.Flagged = true
		result.AmountMismatch = true

		if err := p.notifyFlagged(ctx, tx, snap); err != nil {
			return err
		}
		return p.fill(ctx, tx, snap, result)
	}

	moved, err := tx.Payments().ResolvePending(
		ctx, snap.Reference, res.Outcome.Status(), res.ProviderRef, res.Raw,
	)
	if err != nil {
		return errs.Wrap(err, "failed to resolve payment record")
	}
	if !moved {
		// Lost the race: another reconciliation settled the record
		// between our read and the update. Re-read and treat as a
		// report against a terminal record.
		settled, err := tx.Reads().PaymentByReference(ctx, snap.Reference)
		if err != nil {
			return errs.Wrap(err, "failed to reload payment record")
		}
		return p.reconcileTerminal(ctx, tx, settled, res, result)
	}

	if res.Outcome == payment.OutcomeSuccess {
		if err := p.confirmWithTicket(ctx, tx, snap, res, result); err != nil {
			return err
		}
	} else {
		if err := terminateAndRelease(ctx, tx, snap.BookingID, booking.StatusCancelled); err != nil {
			return err
		}
		if err := p.notify(ctx, tx, topicPaymentFailed, snap); err != nil {
			return err
		}
	}

	return p.fill(ctx, tx, snap, result)
}

// confirmWithTicket confirms the booking and mints its ticket in one
// guarded update. An identifier collision retries with a fresh one a
// bounded number of times; a booking that already left pending_payment
// either holds its ticket (replay) or was terminated before the money
// arrived, which flags the payment for manual review.
func (p *paymentCommandsImpl) confirmWithTicket(
	ctx context.Context,
	tx shared.Tx,
	snap *shared.PaymentSnapshot,
	res gateway.VerifyResult,
	result *ReconcileResult,
) error {
	bsnap, err := tx.Reads().BookingByID(ctx, snap.BookingID)
	if err != nil {
		return errs.Wrap(err, "failed to load booking")
	}

	if bsnap.Status != booking.StatusPendingPayment {
		return p.handleUnconfirmableBooking(ctx, tx, snap, bsnap, res, result)
	}

	now := p.clock.Now()
	for attempt := 1; attempt <= ticket.MaxMintAttempts; attempt++ {
		ticketID, err := ticket.NewID(bsnap.UnitKind.TicketPrefix(), now)
		if err != nil {
			return errs.Mark(err, errs.ErrTicketIssuance)
		}
		qrPayload, err := ticket.EncodeQR(ticketID)
		if err != nil {
			return errs.Mark(err, errs.ErrTicketIssuance)
		}

		confirmed, err := tx.Bookings().ConfirmWithTicket(ctx, snap.BookingID, ticketID, qrPayload)
		if err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				slog.Warn("ticket identifier collision, retrying",
					"booking_id", snap.BookingID.String(), "attempt", attempt)
				continue
			}
			return errs.Wrap(err, "failed to confirm booking")
		}
		if !confirmed {
			// Another reconciliation confirmed the booking between our
			// read and the update.
			reloaded, err := tx.Reads().BookingByID(ctx, snap.BookingID)
			if err != nil {
				return errs.Wrap(err, "failed to reload booking")
			}
			if reloaded.Status != booking.StatusConfirmed {
				return p.handleUnconfirmableBooking(ctx, tx, snap, reloaded, res, result)
			}
			return nil
		}

		return p.notifyTicketIssued(ctx, tx, snap, bsnap.CustomerEmail, ticketID)
	}

	return errs.Mark(
		errs.New("ticket identifier collisions exhausted retries"),
		errs.ErrTicketIssuance,
	)
}

// handleUnconfirmableBooking deals with money arriving for a booking
// that already left pending_payment. A confirmed booking is a replay;
// a cancelled or expired one means the customer paid for capacity that
// was already given back, so the payment is flagged for refund review.
func (p *paymentCommandsImpl) handleUnconfirmableBooking(
	ctx context.Context,
	tx shared.Tx,
	snap *shared.PaymentSnapshot,
	bsnap *shared.BookingSnapshot,
	res gateway.VerifyResult,
	result *ReconcileResult,
) error {
	if bsnap.Status == booking.StatusConfirmed {
		result.Replayed = true
		return nil
	}

	slog.Warn("successful payment for terminated booking",
		"reference", snap.Reference,
		"booking_id", bsnap.ID.String(),
		"booking_status", bsnap.Status.String())

	if err := tx.Payments().Flag(ctx, snap.Reference,
		"successful payment for "+bsnap.Status.String()+" booking", res.Raw,
	); err != nil {
		return errs.Wrap(err, "failed to flag payment record")
	}
	result.Flagged = true
	return p.notifyFlagged(ctx, tx, snap)
}

// fill populates the result from the record and booking as the
// transaction leaves them.
func (p *paymentCommandsImpl) fill(ctx context.Context, tx shared.Tx, snap *shared.PaymentSnapshot, result *ReconcileResult) error {
	settled, err := tx.Reads().PaymentByReference(ctx, snap.Reference)
	if err != nil {
		return errs.Wrap(err, "failed to reload payment record")
	}
	bsnap, err := tx.Reads().BookingByID(ctx, snap.BookingID)
	if err != nil {
		return errs.Wrap(err, "failed to load booking")
	}

	result.Reference = settled.Reference
	result.PaymentStatus = settled.Status
	result.BookingID = bsnap.ID
	result.BookingStatus = bsnap.Status
	result.TicketID = bsnap.TicketID
	result.QRPayload = bsnap.QRPayload
	if settled.Flagged {
		result.Flagged = true
	}
	return nil
}

func (p *paymentCommandsImpl) currentState(ctx context.Context, reference string, mutate func(*ReconcileResult)) (*ReconcileResult, error) {
	var result ReconcileResult
	err := p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		snap, err := tx.Reads().PaymentByReference(ctx, reference)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.ErrPaymentNotFound
			}
			return errs.Wrap(err, "failed to load payment record")
		}
		return p.fill(ctx, tx, snap, &result)
	})
	if err != nil {
		return nil, err
	}
	mutate(&result)
	return &result, nil
}

func (p *paymentCommandsImpl) notifyTicketIssued(ctx context.Context, tx shared.Tx, snap *shared.PaymentSnapshot, email, ticketID string) error {
	payload, _ := json.Marshal(map[string]any{
		"booking_id": snap.BookingID,
		"email":      email,
		"ticket_id":  ticketID,
		"reference":  snap.Reference,
	})
	if err := tx.Notifications().CreateJob(ctx, notificationKindEmail, topicTicketIssued, payload, p.clock.Now()); err != nil {
		return errs.Wrap(err, "failed to enqueue ticket notification")
	}
	return nil
}

func (p *paymentCommandsImpl) notifyFlagged(ctx context.Context, tx shared.Tx, snap *shared.PaymentSnapshot) error {
	return p.notify(ctx, tx, topicPaymentFlagged, snap)
}

func (p *paymentCommandsImpl) notify(ctx context.Context, tx shared.Tx, topic string, snap *shared.PaymentSnapshot) error {
	payload, _ := json.Marshal(map[string]any{
		"booking_id": snap.BookingID,
		"reference":  snap.Reference,
	})
	if err := tx.Notifications().CreateJob(ctx, notificationKindEmail, topic, payload, p.clock.Now()); err != nil {
		return errs.Wrap(err, "failed to enqueue payment notification")
	}
	return nil
}

func amountMatches(snap *shared.PaymentSnapshot, res gateway.VerifyResult) bool {
	return res.AmountCents == snap.AmountCents && res.Currency == snap.Currency
}
