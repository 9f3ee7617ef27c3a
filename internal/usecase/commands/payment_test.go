//go:build unit

package commands_test

import (
	"context"
	"net/http"
	"testing"

	"culture-booking/internal/domain/booking"
	"culture-booking/internal/domain/payment"
	"culture-booking/internal/gateway"
	"culture-booking/internal/infra"
	"culture-booking/internal/pkg/clock"
	"culture-booking/internal/pkg/errs"
	"culture-booking/internal/usecase/commands"
	"culture-booking/tests/common/builder"
	"culture-booking/tests/common/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newPaymentCommands(m *commandMocks, gw gateway.Gateway) commands.PaymentCommands {
	return commands.NewPaymentCommands(m.uow, gateway.NewRegistry(gw), clock.NewMockClock(testNow))
}

func successReport(amountCents int64, currency string) gateway.VerifyResult {
	ref := "provider-tx-991"
	return gateway.VerifyResult{
		Outcome:     payment.OutcomeSuccess,
		AmountCents: amountCents,
		Currency:    currency,
		ProviderRef: &ref,
		Raw:         []byte(`{"status":"success"}`),
	}
}

func failedReport() gateway.VerifyResult {
	return gateway.VerifyResult{
		Outcome: payment.OutcomeFailed,
		Raw:     []byte(`{"status":"failed"}`),
	}
}

func TestVerifyByReference(t *testing.T) {
	ctx := context.Background()

	t.Run("pending report records nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID)
		snap := pb.BuildSnapshot()

		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(snap, nil).AnyTimes()
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)
		gw.EXPECT().Verify(ctx, pb.Reference).Return(gateway.VerifyResult{Pending: true}, nil)
		// no ResolvePending, no Flag, no ConfirmWithTicket

		result, err := cmd.VerifyByReference(ctx, pb.Reference)
		require.NoError(t, err)
		assert.True(t, result.Pending)
		assert.Equal(t, payment.StatusPending, result.PaymentStatus)
		assert.Equal(t, booking.StatusPendingPayment, result.BookingStatus)
	})

	t.Run("success confirms the booking and issues a ticket", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID)
		pending := pb.BuildSnapshot()
		res := successReport(pending.AmountCents, pending.Currency)

		gw.EXPECT().Verify(ctx, pb.Reference).Return(res, nil)

		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pending, nil).Times(2)
		m.payments.EXPECT().
			ResolvePending(ctx, pb.Reference, payment.StatusSuccess, res.ProviderRef, res.Raw).
			Return(true, nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)
		m.bookings.EXPECT().
			ConfirmWithTicket(ctx, bb.ID, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, ticketID, qrPayload string) (bool, error) {
				assert.Regexp(t, `^EVT-20260315-[A-Z2-7]{8}$`, ticketID)
				assert.NotEmpty(t, qrPayload)
				return true, nil
			})
		m.notifications.EXPECT().
			CreateJob(ctx, "email", "ticket.issued", gomock.Any(), testNow).
			Return(nil)

		// state as the transaction leaves it
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.AsSuccess().BuildSnapshot(), nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.AsConfirmed().BuildSnapshot(), nil)

		result, err := cmd.VerifyByReference(ctx, pb.Reference)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusSuccess, result.PaymentStatus)
		assert.Equal(t, booking.StatusConfirmed, result.BookingStatus)
		require.NotNil(t, result.TicketID)
		require.NotNil(t, result.QRPayload)
		assert.False(t, result.Replayed)
		assert.False(t, result.Flagged)
	})

	t.Run("same outcome again is a replay", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder().AsConfirmed()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID).AsSuccess()
		settled := pb.BuildSnapshot()

		gw.EXPECT().Verify(ctx, pb.Reference).Return(successReport(settled.AmountCents, settled.Currency), nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(settled, nil).AnyTimes()
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)
		// no writes of any kind

		result, err := cmd.VerifyByReference(ctx, pb.Reference)
		require.NoError(t, err)
		assert.True(t, result.Replayed)
		assert.Equal(t, payment.StatusSuccess, result.PaymentStatus)
		assert.NotNil(t, result.TicketID)
	})

	t.Run("conflicting outcome flags and keeps the recorded status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder().AsConfirmed()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID).AsSuccess()
		settled := pb.BuildSnapshot()
		res := failedReport()

		gw.EXPECT().Verify(ctx, pb.Reference).Return(res, nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(settled, nil).Times(2)
		m.payments.EXPECT().
			Flag(ctx, pb.Reference, gomock.Any(), res.Raw).
			DoAndReturn(func(_ context.Context, _ string, reason string, _ []byte) error {
				assert.Contains(t, reason, "conflicting outcome")
				return nil
			})
		m.notifications.EXPECT().CreateJob(ctx, "email", "payment.flagged", gomock.Any(), testNow).Return(nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.AsFlagged("conflicting outcome").BuildSnapshot(), nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)

		result, err := cmd.VerifyByReference(ctx, pb.Reference)
		require.NoError(t, err)
		assert.True(t, result.Flagged)
		// success stays authoritative over the late failure report
		assert.Equal(t, payment.StatusSuccess, result.PaymentStatus)
		assert.Equal(t, booking.StatusConfirmed, result.BookingStatus)
	})

	t.Run("amount mismatch flags without confirming", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID)
		pending := pb.BuildSnapshot()
		res := successReport(pending.AmountCents/2, pending.Currency)

		gw.EXPECT().Verify(ctx, pb.Reference).Return(res, nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pending, nil).Times(2)
		m.payments.EXPECT().Flag(ctx, pb.Reference, "amount mismatch", res.Raw).Return(nil)
		m.notifications.EXPECT().CreateJob(ctx, "email", "payment.flagged", gomock.Any(), testNow).Return(nil)
		// no ResolvePending, no ConfirmWithTicket: the booking stays pending
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.AsFlagged("amount mismatch").BuildSnapshot(), nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)

		result, err := cmd.VerifyByReference(ctx, pb.Reference)
		testutil.RequireErrorIs(t, err, errs.ErrPaymentAmountMismatch)
		assert.Nil(t, result)
	})

	t.Run("failure cancels the booking and releases capacity", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID)
		pending := pb.BuildSnapshot()
		res := failedReport()

		gw.EXPECT().Verify(ctx, pb.Reference).Return(res, nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pending, nil).Times(2)
		m.payments.EXPECT().
			ResolvePending(ctx, pb.Reference, payment.StatusFailed, res.ProviderRef, res.Raw).
			Return(true, nil)
		m.bookings.EXPECT().MarkTerminal(ctx, bb.ID, booking.StatusCancelled).Return(true, nil)
		m.bookings.EXPECT().ClaimCapacityRelease(ctx, bb.ID).Return(bb.Unit.ID, bb.Quantity, true, nil)
		m.inventory.EXPECT().Release(ctx, bb.Unit.ID, bb.Quantity).Return(nil)
		m.notifications.EXPECT().CreateJob(ctx, "email", "payment.failed", gomock.Any(), testNow).Return(nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.AsFailed().BuildSnapshot(), nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.AsCancelled().BuildSnapshot(), nil)

		result, err := cmd.VerifyByReference(ctx, pb.Reference)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusFailed, result.PaymentStatus)
		assert.Equal(t, booking.StatusCancelled, result.BookingStatus)
	})

	t.Run("success for an expired booking is flagged for refund review", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder().AsExpired()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID)
		pending := pb.BuildSnapshot()
		res := successReport(pending.AmountCents, pending.Currency)

		gw.EXPECT().Verify(ctx, pb.Reference).Return(res, nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pending, nil).Times(2)
		m.payments.EXPECT().
			ResolvePending(ctx, pb.Reference, payment.StatusSuccess, res.ProviderRef, res.Raw).
			Return(true, nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)
		// the booking already left pending_payment: never confirm it
		m.payments.EXPECT().
			Flag(ctx, pb.Reference, "successful payment for expired booking", res.Raw).
			Return(nil)
		m.notifications.EXPECT().CreateJob(ctx, "email", "payment.flagged", gomock.Any(), testNow).Return(nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.AsSuccess().AsFlagged("successful payment for expired booking").BuildSnapshot(), nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)

		result, err := cmd.VerifyByReference(ctx, pb.Reference)
		require.NoError(t, err)
		assert.True(t, result.Flagged)
		assert.Equal(t, booking.StatusExpired, result.BookingStatus)
		assert.Nil(t, result.TicketID)
	})

	t.Run("ticket identifier collision retries with a fresh one", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID)
		pending := pb.BuildSnapshot()
		res := successReport(pending.AmountCents, pending.Currency)

		gw.EXPECT().Verify(ctx, pb.Reference).Return(res, nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pending, nil).Times(2)
		m.payments.EXPECT().ResolvePending(ctx, pb.Reference, payment.StatusSuccess, res.ProviderRef, res.Raw).Return(true, nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)

		var minted []string
		gomock.InOrder(
			m.bookings.EXPECT().
				ConfirmWithTicket(ctx, bb.ID, gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ uuid.UUID, ticketID, _ string) (bool, error) {
					minted = append(minted, ticketID)
					return false, infra.WrapRepoErr("ticket_id already exists", nil, infra.KindDuplicateKey)
				}),
			m.bookings.EXPECT().
				ConfirmWithTicket(ctx, bb.ID, gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ uuid.UUID, ticketID, _ string) (bool, error) {
					minted = append(minted, ticketID)
					return true, nil
				}),
		)
		m.notifications.EXPECT().CreateJob(ctx, "email", "ticket.issued", gomock.Any(), testNow).Return(nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.AsSuccess().BuildSnapshot(), nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.AsConfirmed().BuildSnapshot(), nil)

		_, err := cmd.VerifyByReference(ctx, pb.Reference)
		require.NoError(t, err)
		require.Len(t, minted, 2)
		assert.NotEqual(t, minted[0], minted[1])
	})

	t.Run("losing the resolve race falls through to terminal handling", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder().AsConfirmed()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID)
		pending := pb.BuildSnapshot()
		res := successReport(pending.AmountCents, pending.Currency)

		gw.EXPECT().Verify(ctx, pb.Reference).Return(res, nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pending, nil).Times(2)
		m.payments.EXPECT().ResolvePending(ctx, pb.Reference, payment.StatusSuccess, res.ProviderRef, res.Raw).Return(false, nil)
		// another reconciliation won: the re-read sees success and replays
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.AsSuccess().BuildSnapshot(), nil).AnyTimes()
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)

		result, err := cmd.VerifyByReference(ctx, pb.Reference)
		require.NoError(t, err)
		assert.True(t, result.Replayed)
	})

	t.Run("unknown reference", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		cmd := newPaymentCommands(m, newMockGateway(ctrl, gateway.ProviderPaystack))

		m.reads.EXPECT().PaymentByReference(ctx, "CBK-NOPE").
			Return(nil, infra.WrapRepoErr("not found", nil, infra.KindNotFound))

		_, err := cmd.VerifyByReference(ctx, "CBK-NOPE")
		testutil.RequireErrorIs(t, err, errs.ErrPaymentNotFound)
	})
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("authenticated webhook reconciles like a verify", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		bb := builder.NewBookingBuilder()
		pb := builder.NewPaymentBuilder().WithBookingID(bb.ID)
		pending := pb.BuildSnapshot()
		res := successReport(pending.AmountCents, pending.Currency)
		body := []byte(`{"event":"charge.success"}`)
		header := http.Header{"X-Paystack-Signature": []string{"sig"}}

		gw.EXPECT().VerifyWebhook(header, body).Return(nil)
		gw.EXPECT().ParseWebhook(body).Return(gateway.WebhookEvent{Reference: pb.Reference, Result: res}, nil)

		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pending, nil).Times(2)
		m.payments.EXPECT().ResolvePending(ctx, pb.Reference, payment.StatusSuccess, res.ProviderRef, res.Raw).Return(true, nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.BuildSnapshot(), nil)
		m.bookings.EXPECT().ConfirmWithTicket(ctx, bb.ID, gomock.Any(), gomock.Any()).Return(true, nil)
		m.notifications.EXPECT().CreateJob(ctx, "email", "ticket.issued", gomock.Any(), testNow).Return(nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.AsSuccess().BuildSnapshot(), nil)
		m.reads.EXPECT().BookingByID(ctx, bb.ID).Return(bb.AsConfirmed().BuildSnapshot(), nil)

		result, err := cmd.HandleWebhook(ctx, gateway.ProviderPaystack, header, body)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusConfirmed, result.BookingStatus)
	})

	t.Run("bad signature is rejected before anything is parsed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		body := []byte(`{}`)
		gw.EXPECT().VerifyWebhook(gomock.Any(), body).
			Return(errs.Mark(errs.New("signature mismatch"), errs.ErrInvalidWebhook))

		_, err := cmd.HandleWebhook(ctx, gateway.ProviderPaystack, http.Header{}, body)
		testutil.RequireErrorIs(t, err, errs.ErrInvalidWebhook)
	})

	t.Run("unknown provider", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		cmd := newPaymentCommands(m, newMockGateway(ctrl, gateway.ProviderPaystack))

		_, err := cmd.HandleWebhook(ctx, "squad", http.Header{}, []byte(`{}`))
		testutil.RequireErrorIs(t, err, errs.ErrUnknownProvider)
	})

	t.Run("reference recorded under a different provider", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		m := newCommandMocks(ctrl)
		gw := newMockGateway(ctrl, gateway.ProviderPaystack)
		cmd := newPaymentCommands(m, gw)

		pb := builder.NewPaymentBuilder().WithProvider(gateway.ProviderStripe)
		body := []byte(`{}`)

		gw.EXPECT().VerifyWebhook(gomock.Any(), body).Return(nil)
		gw.EXPECT().ParseWebhook(body).Return(gateway.WebhookEvent{Reference: pb.Reference, Result: failedReport()}, nil)
		m.reads.EXPECT().PaymentByReference(ctx, pb.Reference).Return(pb.BuildSnapshot(), nil)

		_, err := cmd.HandleWebhook(ctx, gateway.ProviderPaystack, http.Header{}, body)
		testutil.RequireErrorIs(t, err, errs.ErrInvalidWebhook)
	})
}
