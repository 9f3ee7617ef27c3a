package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"culture-booking/internal/domain/payment"
	"culture-booking/internal/pkg/config"
	"culture-booking/internal/pkg/errs"

	circuit "github.com/rubyist/circuitbreaker"
)

// webhookTolerance bounds how old a signed Stripe delivery may be
// before it is rejected as a replay.
const webhookTolerance = 5 * time.Minute

// Stripe confirms client-side with a PaymentIntent client secret
// instead of a hosted redirect. Our transaction reference travels in
// the intent's metadata and comes back on webhooks and searches.
type Stripe struct {
	client        apiClient
	webhookSecret string
	now           func() time.Time
}

func NewStripe(cfg config.StripeConfig, httpClient *circuit.HTTPClient) *Stripe {
	return &Stripe{
		client: apiClient{
			http:      httpClient,
			baseURL:   cfg.BaseURL,
			secretKey: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		now:           time.Now,
	}
}

func (s *Stripe) Name() string {
	return ProviderStripe
}

type stripeIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret"`
	Metadata     struct {
		Reference string `json:"reference"`
	} `json:"metadata"`
}

func (s *Stripe) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("receipt_email", req.Email)
	form.Set("metadata[reference]", req.Reference)

	var intent stripeIntent
	if _, err := s.client.doForm(ctx, "/payment_intents", form, &intent); err != nil {
		return InitializeResult{}, err
	}

	return InitializeResult{
		ClientSecret: intent.ClientSecret,
		ProviderRef:  intent.ID,
	}, nil
}

type stripeSearchResponse struct {
	Data []stripeIntent `json:"data"`
}

func (s *Stripe) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	query := url.QueryEscape("metadata['reference']:'" + reference + "'")
	var resp stripeSearchResponse
	raw, err := s.client.doJSON(ctx, http.MethodGet, "/payment_intents/search?query="+query, nil, &resp)
	if err != nil {
		return VerifyResult{}, err
	}
	if len(resp.Data) == 0 {
		return VerifyResult{}, errs.Mark(errs.New("stripe has no intent for reference"), errs.ErrPaymentNotFound)
	}

	return stripeResult(resp.Data[0], raw), nil
}

func stripeResult(intent stripeIntent, raw []byte) VerifyResult {
	result := VerifyResult{
		AmountCents: intent.Amount,
		Currency:    strings.ToUpper(intent.Currency),
		Raw:         raw,
	}
	if intent.ID != "" {
		id := intent.ID
		result.ProviderRef = &id
	}

	switch intent.Status {
	case "succeeded":
		result.Outcome = payment.OutcomeSuccess
	case "canceled":
		result.Outcome = payment.OutcomeFailed
	default:
		// requires_payment_method, requires_confirmation, processing
		result.Pending = true
	}
	return result
}

// VerifyWebhook validates the Stripe-Signature header: HMAC-SHA256 over
// "{timestamp}.{body}" with the endpoint secret, plus a freshness check
// on the signed timestamp.
func (s *Stripe) VerifyWebhook(header http.Header, body []byte) error {
	sigHeader := header.Get("Stripe-Signature")
	if sigHeader == "" {
		return errs.Mark(errs.New("missing stripe signature"), errs.ErrInvalidWebhook)
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return errs.Mark(errs.New("malformed stripe signature header"), errs.ErrInvalidWebhook)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errs.Mark(err, errs.ErrInvalidWebhook)
	}
	age := s.now().Sub(time.Unix(ts, 0))
	if age > webhookTolerance || age < -webhookTolerance {
		return errs.Mark(errs.New("stripe signature timestamp outside tolerance"), errs.ErrInvalidWebhook)
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return errs.Mark(errs.New("stripe signature mismatch"), errs.ErrInvalidWebhook)
}

type stripeWebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object stripeIntent `json:"object"`
	} `json:"data"`
}

func (s *Stripe) ParseWebhook(body []byte) (WebhookEvent, error) {
	var evt stripeWebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return WebhookEvent{}, errs.Mark(err, errs.ErrInvalidWebhook)
	}
	if evt.Data.Object.Metadata.Reference == "" {
		return WebhookEvent{}, errs.Mark(errs.New("stripe webhook has no reference metadata"), errs.ErrInvalidWebhook)
	}

	result := stripeResult(evt.Data.Object, body)
	// The event type is authoritative over intent status for terminal
	// outcomes delivered by webhook.
	switch evt.Type {
	case "payment_intent.succeeded":
		result.Pending = false
		result.Outcome = payment.OutcomeSuccess
	case "payment_intent.payment_failed", "payment_intent.canceled":
		result.Pending = false
		result.Outcome = payment.OutcomeFailed
	}

	return WebhookEvent{
		Reference: evt.Data.Object.Metadata.Reference,
		Result:    result,
	}, nil
}
