package gateway

import (
	"context"
	"net/http"

	"culture-booking/internal/domain/payment"
)

// Provider names as they appear in payment_records.provider and in the
// webhook route parameter.
const (
	ProviderPaystack    = "paystack"
	ProviderFlutterwave = "flutterwave"
	ProviderStripe      = "stripe"
)

// InitializeRequest carries everything a provider needs to open a
// checkout for one payment attempt. AmountCents is always minor units;
// each adapter converts to the provider's expected denomination.
type InitializeRequest struct {
	Reference   string
	Email       string
	AmountCents int64
	Currency    string
	CallbackURL string
}

type InitializeResult struct {
	// AuthorizationURL is the hosted checkout page to redirect the
	// customer to. Empty for providers that confirm client-side.
	AuthorizationURL string
	// ClientSecret is set for providers with client-side confirmation.
	ClientSecret string
	ProviderRef  string
}

// VerifyResult is a provider's normalized report on one transaction.
// Pending means the provider has not settled the attempt yet and no
// reconciliation outcome exists.
type VerifyResult struct {
	Pending     bool
	Outcome     payment.Outcome
	AmountCents int64
	Currency    string
	ProviderRef *string
	Raw         []byte
}

// WebhookEvent is a parsed provider notification tied back to our
// transaction reference.
type WebhookEvent struct {
	Reference string
	Result    VerifyResult
}

// Gateway abstracts one payment provider. Verify and ParseWebhook feed
// the same reconciliation path; adapters only translate wire formats
// and never touch booking state.
type Gateway interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error)
	Verify(ctx context.Context, reference string) (VerifyResult, error)
	// VerifyWebhook authenticates a raw webhook delivery before any of
	// its contents are trusted.
	VerifyWebhook(header http.Header, body []byte) error
	ParseWebhook(body []byte) (WebhookEvent, error)
}
