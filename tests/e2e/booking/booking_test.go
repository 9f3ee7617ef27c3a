//go:build e2e

package booking_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	nethttptest "net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"culture-booking/internal/handler/dto/response"
	"culture-booking/internal/pkg/jwt"
	"culture-booking/tests/common/dbtest"
	"culture-booking/tests/common/httptest"
	"culture-booking/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	bookingsURL      = "/api/bookings"
	bookingDetailURL = "/api/bookings/%s"
	cancelURL        = "/api/bookings/%s/cancel"
	ticketURL        = "/api/tickets/%s"
	verifyURL        = "/api/payments/verify/%s"
	webhookURL       = "/api/payments/webhook/paystack"
	flaggedURL       = "/api/admin/payments/flagged"

	unitPriceCents = int64(500000)
)

var ticketIDPattern = regexp.MustCompile(`^EVT-\d{8}-[A-Z2-7]{8}$`)

type BookingSuite struct {
	e2e.SharedSuite
}

func (s *BookingSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestBookingSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(BookingSuite))
}

func capacity(n int32) *int32 { return &n }

func bookingRequest(unitID uuid.UUID, email string, quantity int32) map[string]any {
	return map[string]any{
		"unit_id":        unitID,
		"customer_name":  "Ada Obi",
		"customer_email": email,
		"quantity":       quantity,
		"provider":       "paystack",
	}
}

// createBooking drives the happy-path creation endpoint and returns the
// decoded response.
func (s *BookingSuite) createBooking(t *testing.T, unitID uuid.UUID, email string, quantity int32) response.CreateBookingResponse {
	t.Helper()

	w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
		bookingRequest(unitID, email, quantity), "",
		map[string]string{"Idempotency-Key": uuid.New().String()})
	require.Equal(t, http.StatusCreated, w.Code, "booking creation failed: %s", w.Body.String())

	var created response.CreateBookingResponse
	require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
	require.NotEmpty(t, created.Reference)
	return created
}

// deliverWebhook settles the transaction on the fake provider and posts
// the signed event to the webhook endpoint.
func (s *BookingSuite) deliverWebhook(t *testing.T, reference, status string) map[string]string {
	t.Helper()

	s.Paystack.Settle(reference, status)
	body, signature := s.Paystack.WebhookDelivery(reference, status, nil)

	w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, webhookURL,
		body, "", map[string]string{"x-paystack-signature": signature})
	require.Equal(t, http.StatusOK, w.Code, "webhook delivery failed: %s", w.Body.String())

	var ack map[string]string
	require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &ack))
	return ack
}

func (s *BookingSuite) getBooking(t *testing.T, id uuid.UUID) response.BookingResponse {
	t.Helper()

	w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(bookingDetailURL, id), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var view response.BookingResponse
	require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &view))
	return view
}

func (s *BookingSuite) adminToken(t *testing.T) string {
	t.Helper()

	token, err := jwt.NewService(s.Config.JWT.Secret, s.Config.JWT.Duration).
		GenerateToken(uuid.New(), jwt.RoleAdmin)
	require.NoError(t, err)
	return token
}

// =============================================================================
// TestPaymentFlow - create, reconcile via webhook, ticket issuance
// =============================================================================

func (s *BookingSuite) TestPaymentFlow() {
	s.Run("Normal case: webhook confirms booking and issues ticket", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Lagos Jazz Night", capacity(10))
		created := s.createBooking(t, unitID, "ada@example.com", 2)

		require.Equal(t, 2*unitPriceCents, created.AmountCents)
		require.Equal(t, "NGN", created.Currency)
		require.NotEmpty(t, created.AuthorizationURL)
		require.Equal(t, int32(2), dbtest.UnitConsumed(t, s.DB, unitID))

		ack := s.deliverWebhook(t, created.Reference, "success")
		require.Equal(t, "processed", ack["status"])
		require.Equal(t, "success", ack["payment_status"])

		view := s.getBooking(t, created.BookingID)
		require.Equal(t, "confirmed", view.Status)
		require.Equal(t, "success", view.PaymentStatus)
		require.NotNil(t, view.TicketID)
		require.Regexp(t, ticketIDPattern, *view.TicketID)
		require.NotNil(t, view.QRPayload)

		tw := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(ticketURL, *view.TicketID), nil, "")
		require.Equal(t, http.StatusOK, tw.Code)

		var ticket response.TicketResponse
		require.NoError(t, httptest.DecodeResponseBody(t, tw.Body, &ticket))
		require.Equal(t, created.BookingID, ticket.BookingID)
		require.Equal(t, "Lagos Jazz Night", ticket.UnitName)
		require.Equal(t, int32(2), ticket.Quantity)
	})

	s.Run("Normal case: duplicate webhook replays without side effects", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Duplicate Delivery", capacity(10))
		created := s.createBooking(t, unitID, "dup@example.com", 2)

		s.deliverWebhook(t, created.Reference, "success")
		first := s.getBooking(t, created.BookingID)
		require.NotNil(t, first.TicketID)

		// Providers retry deliveries; the second one must converge on
		// the already-recorded outcome.
		s.deliverWebhook(t, created.Reference, "success")
		second := s.getBooking(t, created.BookingID)

		require.Equal(t, *first.TicketID, *second.TicketID)
		require.Equal(t, int32(2), dbtest.UnitConsumed(t, s.DB, unitID))
	})

	s.Run("Normal case: client verify path confirms without a webhook", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Verify Path", capacity(5))
		created := s.createBooking(t, unitID, "verify@example.com", 1)

		s.Paystack.Settle(created.Reference, "success")

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, fmt.Sprintf(verifyURL, created.Reference), nil, "")
		require.Equal(t, http.StatusOK, w.Code, "verify failed: %s", w.Body.String())

		var reconciled response.ReconcileResponse
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &reconciled))
		require.Equal(t, "success", reconciled.PaymentStatus)
		require.Equal(t, "confirmed", reconciled.BookingStatus)
		require.NotNil(t, reconciled.TicketID)
	})

	s.Run("Normal case: failed payment cancels booking and releases capacity", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Failed Charge", capacity(10))
		created := s.createBooking(t, unitID, "fail@example.com", 3)
		require.Equal(t, int32(3), dbtest.UnitConsumed(t, s.DB, unitID))

		ack := s.deliverWebhook(t, created.Reference, "failed")
		require.Equal(t, "processed", ack["status"])
		require.Equal(t, "failed", ack["payment_status"])

		view := s.getBooking(t, created.BookingID)
		require.Equal(t, "cancelled", view.Status)
		require.Equal(t, int32(0), dbtest.UnitConsumed(t, s.DB, unitID))
	})

	s.Run("Error case: tampered signature is rejected", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Bad Signature", capacity(5))
		created := s.createBooking(t, unitID, "sig@example.com", 1)

		s.Paystack.Settle(created.Reference, "success")
		body, _ := s.Paystack.WebhookDelivery(created.Reference, "success", nil)

		w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, webhookURL,
			body, "", map[string]string{"x-paystack-signature": "deadbeef"})
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "Webhook verification failed")

		view := s.getBooking(t, created.BookingID)
		require.Equal(t, "pending_payment", view.Status)
	})

	s.Run("Normal case: webhook for unknown reference is acknowledged and ignored", func() {
		t := s.T()

		body, signature := s.Paystack.WebhookDelivery("culture-never-created", "success", nil)

		w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, webhookURL,
			body, "", map[string]string{"x-paystack-signature": signature})
		require.Equal(t, http.StatusOK, w.Code)

		var ack map[string]string
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &ack))
		require.Equal(t, "ignored", ack["status"])
	})
}

// =============================================================================
// TestCreateIdempotency - Idempotency-Key semantics over the real database
// =============================================================================

func (s *BookingSuite) TestCreateIdempotency() {
	s.Run("Normal case: same key replays the original booking", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Replay Unit", capacity(10))
		key := uuid.New().String()
		reqBody := bookingRequest(unitID, "replay@example.com", 2)

		w1 := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			reqBody, "", map[string]string{"Idempotency-Key": key})
		require.Equal(t, http.StatusCreated, w1.Code)

		var first response.CreateBookingResponse
		require.NoError(t, httptest.DecodeResponseBody(t, w1.Body, &first))

		w2 := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			reqBody, "", map[string]string{"Idempotency-Key": key})
		require.Equal(t, http.StatusOK, w2.Code, "replay should not create a second booking")

		var second response.CreateBookingResponse
		require.NoError(t, httptest.DecodeResponseBody(t, w2.Body, &second))
		require.True(t, second.Replayed)
		require.Equal(t, first.BookingID, second.BookingID)
		require.Equal(t, first.Reference, second.Reference)
		require.NotEmpty(t, second.AuthorizationURL, "pending replay should re-open the checkout")

		// Only the first request consumed capacity
		require.Equal(t, int32(2), dbtest.UnitConsumed(t, s.DB, unitID))
	})

	s.Run("Error case: same key with different payload conflicts", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Conflict Unit", capacity(10))
		key := uuid.New().String()

		w1 := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			bookingRequest(unitID, "conflict@example.com", 2), "",
			map[string]string{"Idempotency-Key": key})
		require.Equal(t, http.StatusCreated, w1.Code)

		w2 := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			bookingRequest(unitID, "conflict@example.com", 4), "",
			map[string]string{"Idempotency-Key": key})
		httptest.AssertErrorResponse(t, w2, http.StatusConflict, "Duplicate booking request with different parameters")
	})

	s.Run("Error case: missing Idempotency-Key is rejected", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "No Key Unit", capacity(10))

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL,
			bookingRequest(unitID, "nokey@example.com", 1), "")
		httptest.AssertErrorResponse(t, w, http.StatusBadRequest, "idempotency key required")
		require.Equal(t, int32(0), dbtest.UnitConsumed(t, s.DB, unitID))
	})
}

// =============================================================================
// TestCapacity - ledger invariants under booking and cancellation
// =============================================================================

func (s *BookingSuite) TestCapacity() {
	s.Run("Error case: sold-out unit rejects bookings", func() {
		t := s.T()

		unitID := dbtest.CreateSoldOutUnit(t, s.DB, "Sold Out Show", 5)

		w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			bookingRequest(unitID, "late@example.com", 1), "",
			map[string]string{"Idempotency-Key": uuid.New().String()})
		httptest.AssertErrorResponse(t, w, http.StatusConflict, "Not enough remaining capacity")
		require.Equal(t, int32(5), dbtest.UnitConsumed(t, s.DB, unitID))
	})

	s.Run("Error case: booking beyond remaining capacity is rejected", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Small Venue", capacity(3))
		s.createBooking(t, unitID, "first@example.com", 2)

		w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, bookingsURL,
			bookingRequest(unitID, "second@example.com", 2), "",
			map[string]string{"Idempotency-Key": uuid.New().String()})
		httptest.AssertErrorResponse(t, w, http.StatusConflict, "Not enough remaining capacity")
		require.Equal(t, int32(2), dbtest.UnitConsumed(t, s.DB, unitID))
	})

	s.Run("Normal case: cancellation releases held capacity", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Cancelled Plans", capacity(10))
		created := s.createBooking(t, unitID, "cancel@example.com", 4)
		require.Equal(t, int32(4), dbtest.UnitConsumed(t, s.DB, unitID))

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(cancelURL, created.BookingID), nil, "")
		require.Equal(t, http.StatusOK, w.Code, "cancel failed: %s", w.Body.String())

		view := s.getBooking(t, created.BookingID)
		require.Equal(t, "cancelled", view.Status)
		require.Equal(t, int32(0), dbtest.UnitConsumed(t, s.DB, unitID))
	})

	s.Run("Error case: confirmed booking cannot be cancelled", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Locked In", capacity(10))
		created := s.createBooking(t, unitID, "locked@example.com", 1)
		s.deliverWebhook(t, created.Reference, "success")

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, fmt.Sprintf(cancelURL, created.BookingID), nil, "")
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, int32(1), dbtest.UnitConsumed(t, s.DB, unitID))
	})
}

// =============================================================================
// TestConcurrency - parallel requests against the real ledger and issuer
// =============================================================================

func (s *BookingSuite) TestConcurrency() {
	const workers = 8

	// serve fires requests from worker goroutines, so it stays off the
	// testing.T API and reports through the returned recorder only.
	serve := func(method, path string, body []byte, headers map[string]string) *nethttptest.ResponseRecorder {
		req := nethttptest.NewRequest(method, path, bytes.NewReader(body))
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := nethttptest.NewRecorder()
		s.Router.ServeHTTP(w, req)
		return w
	}

	s.Run("Normal case: parallel bookings for the last seat pick one winner", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Last Seat", capacity(1))
		payload, err := json.Marshal(bookingRequest(unitID, "race@example.com", 1))
		require.NoError(t, err)

		codes := make(chan int, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := serve(http.MethodPost, bookingsURL, payload,
					map[string]string{"Idempotency-Key": uuid.New().String()})
				codes <- w.Code
			}()
		}
		wg.Wait()
		close(codes)

		created, conflicted := 0, 0
		for code := range codes {
			switch code {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
				conflicted++
			default:
				t.Fatalf("unexpected status %d racing for the last seat", code)
			}
		}
		require.Equal(t, 1, created, "exactly one request may take the last seat")
		require.Equal(t, workers-1, conflicted)
		require.Equal(t, int32(1), dbtest.UnitConsumed(t, s.DB, unitID))
	})

	s.Run("Normal case: parallel settlement reports issue one ticket", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Settle Race", capacity(5))
		created := s.createBooking(t, unitID, "settle-race@example.com", 1)
		s.Paystack.Settle(created.Reference, "success")

		type outcome struct {
			code   int
			body   string
			ticket string
		}
		outcomes := make(chan outcome, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := serve(http.MethodGet, fmt.Sprintf(verifyURL, created.Reference), nil, nil)
				out := outcome{code: w.Code, body: w.Body.String()}
				var rec response.ReconcileResponse
				if json.Unmarshal(w.Body.Bytes(), &rec) == nil && rec.TicketID != nil {
					out.ticket = *rec.TicketID
				}
				outcomes <- out
			}()
		}
		wg.Wait()
		close(outcomes)

		tickets := make(map[string]struct{})
		for out := range outcomes {
			require.Equal(t, http.StatusOK, out.code, "verify failed: %s", out.body)
			require.NotEmpty(t, out.ticket, "every reconciliation must see the issued ticket")
			tickets[out.ticket] = struct{}{}
		}
		require.Len(t, tickets, 1, "racing reconciliations must converge on one ticket")
		require.Equal(t, int32(1), dbtest.UnitConsumed(t, s.DB, unitID))
	})
}

// =============================================================================
// TestFlaggedPayments - reconciliation mismatches surfaced for review
// =============================================================================

func (s *BookingSuite) TestFlaggedPayments() {
	s.Run("Normal case: amount mismatch flags the payment for review", func() {
		t := s.T()

		unitID := dbtest.CreateTestUnit(t, s.DB, "Short Paid", capacity(10))
		created := s.createBooking(t, unitID, "short@example.com", 2)

		s.Paystack.Settle(created.Reference, "success")
		short := created.AmountCents / 2
		body, signature := s.Paystack.WebhookDelivery(created.Reference, "success", &short)

		w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, webhookURL,
			body, "", map[string]string{"x-paystack-signature": signature})
		require.Equal(t, http.StatusOK, w.Code)

		var ack map[string]string
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &ack))
		require.Equal(t, "flagged", ack["status"])

		// The mismatch must not confirm the booking.
		view := s.getBooking(t, created.BookingID)
		require.Equal(t, "pending_payment", view.Status)

		fw := httptest.PerformRequest(t, s.Router, http.MethodGet, flaggedURL, nil, s.adminToken(t))
		require.Equal(t, http.StatusOK, fw.Code, "flagged listing failed: %s", fw.Body.String())

		var flagged []response.PaymentResponse
		require.NoError(t, httptest.DecodeResponseBody(t, fw.Body, &flagged))
		require.Len(t, flagged, 1)
		require.Equal(t, created.Reference, flagged[0].Reference)
		require.True(t, flagged[0].Flagged)
		require.NotNil(t, flagged[0].FlagReason)
		require.Contains(t, *flagged[0].FlagReason, "amount mismatch")
	})

	s.Run("Auth test: flagged listing requires an admin token", func() {
		t := s.T()

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, flaggedURL, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
