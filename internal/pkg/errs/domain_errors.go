package errs

import "errors"

// Domain-specific sentinel errors for CQRS usecase layers
var (
	// Inventory errors
	ErrUnitNotFound     = errors.New("inventory unit not found")
	ErrUnitInactive     = errors.New("inventory unit is not open for booking")
	ErrCapacityExceeded = errors.New("requested units exceed remaining capacity")

	// Booking errors
	ErrBookingNotFound        = errors.New("booking not found")
	ErrInvalidStateTransition = errors.New("invalid booking state transition")
	ErrDuplicateBooking       = errors.New("duplicate booking request")

	// Payment errors
	ErrPaymentNotFound       = errors.New("payment record not found")
	ErrPaymentAmountMismatch = errors.New("paid amount does not match booking total")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrUnknownProvider       = errors.New("unknown payment provider")
	ErrInvalidWebhook        = errors.New("webhook signature verification failed")

	// Ticket errors
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrTicketIssuance  = errors.New("ticket issuance failed")

	// Idempotency errors
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyInProgress  = errors.New("idempotency in progress")
	ErrIdempotencyCheckFailed = errors.New("idempotency check failed")

	// Validation errors
	ErrDomainValidation = errors.New("domain validation error")
)
