package shared

import (
	"context"
	"time"

	"culture-booking/internal/domain/booking"
	"culture-booking/internal/domain/inventory"
	"culture-booking/internal/domain/payment"
	"culture-booking/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Inventory() InventoryRepository
	Bookings() BookingRepository
	Payments() PaymentRepository
	Idempotency() IdempotencyRepository
	Notifications() NotificationRepository
	Reads() CommandReads
	DB() db.DBTX
}

type CommandReads interface {
	UnitByID(ctx context.Context, id uuid.UUID) (*UnitSnapshot, error)
	BookingByID(ctx context.Context, id uuid.UUID) (*BookingSnapshot, error)
	PaymentByReference(ctx context.Context, reference string) (*PaymentSnapshot, error)
	PaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*PaymentSnapshot, error)
	IdempotencyByKey(ctx context.Context, key uuid.UUID, email string) (*IdempotencyRecord, error)
	// ExpiredPendingBookings lists bookings still pending past the cutoff,
	// for the expiry sweep.
	ExpiredPendingBookings(ctx context.Context, cutoff time.Time, limit int32) ([]uuid.UUID, error)
}

// Minimal snapshots for command read operations (write side never
// depends on read-side view types).

type UnitSnapshot struct {
	ID            uuid.UUID
	Kind          inventory.Kind
	Name          string
	StartsAt      time.Time
	PriceCents    int64
	Currency      string
	TotalCapacity *int32
	Consumed      int32
	Active        bool
}

type BookingSnapshot struct {
	ID               uuid.UUID
	UnitID           uuid.UUID
	UnitKind         inventory.Kind
	CustomerName     string
	CustomerEmail    string
	Quantity         int32
	AmountCents      int64
	Currency         string
	Status           booking.Status
	PaymentStatus    booking.PaymentStatus
	TicketID         *string
	QRPayload        *string
	CapacityReleased bool
	CreatedAt        time.Time
}

type PaymentSnapshot struct {
	Reference   string
	BookingID   uuid.UUID
	Provider    string
	AmountCents int64
	Currency    string
	Status      payment.Status
	Flagged     bool
}

type IdempotencyRecord struct {
	Key             uuid.UUID
	CustomerEmail   string
	Status          string
	RequestHash     string
	ResultBookingID *uuid.UUID
	ExpiresAt       time.Time
}

type InventoryRepository interface {
	// Reserve atomically claims quantity against the unit's remaining
	// capacity in one conditional UPDATE. Zero rows affected surfaces as
	// KindCapacityExceeded (or KindNotFound / KindConflict for missing or
	// closed units).
	Reserve(ctx context.Context, unitID uuid.UUID, quantity int32) error
	// Release gives reserved units back. Callers must hold the booking's
	// one-shot release claim; Release itself only decrements.
	Release(ctx context.Context, unitID uuid.UUID, quantity int32) error
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) (uuid.UUID, error)
	// ConfirmWithTicket performs the atomic confirm + ticket check-and-set:
	// UPDATE ... WHERE status='pending_payment' AND ticket_id IS NULL.
	// Returns false when another writer already confirmed the booking.
	ConfirmWithTicket(ctx context.Context, id uuid.UUID, ticketID, qrPayload string) (bool, error)
	// MarkTerminal moves a pending booking to cancelled or expired.
	// Returns false when the booking already left pending_payment.
	MarkTerminal(ctx context.Context, id uuid.UUID, status booking.Status) (bool, error)
	// ClaimCapacityRelease flips the one-shot release flag and reports the
	// unit and quantity to give back; claimed=false means the capacity was
	// already released for this booking.
	ClaimCapacityRelease(ctx context.Context, id uuid.UUID) (unitID uuid.UUID, quantity int32, claimed bool, err error)
}

type PaymentRepository interface {
	Create(ctx context.Context, rec *payment.Record) error
	// ResolvePending is the reconciliation winner-picker:
	// UPDATE ... WHERE reference=$1 AND status='pending'. Returns false
	// when the record was already terminal.
	ResolvePending(ctx context.Context, reference string, status payment.Status, providerRef *string, rawPayload []byte) (bool, error)
	// Flag marks a record for manual admin review (amount mismatch,
	// conflicting terminal report) without touching its status.
	Flag(ctx context.Context, reference, reason string, rawPayload []byte) error
}

type IdempotencyRepository interface {
	// TryInsert claims the key for this request; inserted=false means a
	// prior request with the same key and email already holds it.
	TryInsert(ctx context.Context, key uuid.UUID, email, endpoint, requestHash string, expiresAt time.Time) (inserted bool, err error)
	UpdateStatusCompleted(ctx context.Context, key uuid.UUID, email, responseBodyHash string, resultBookingID uuid.UUID) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
	// ClaimDueJobs picks due queued jobs with SKIP LOCKED and moves them
	// to sending, so concurrent dispatchers never double-send.
	ClaimDueJobs(ctx context.Context, now time.Time, limit int32) ([]NotificationJob, error)
	MarkJobStatus(ctx context.Context, jobID uuid.UUID, status string, lastError *string) error
}

type NotificationJob struct {
	ID       uuid.UUID
	Kind     string
	Topic    string
	Payload  []byte
	Attempts int32
}
