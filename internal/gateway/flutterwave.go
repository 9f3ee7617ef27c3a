package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"culture-booking/internal/domain/payment"
	"culture-booking/internal/pkg/config"
	"culture-booking/internal/pkg/errs"

	circuit "github.com/rubyist/circuitbreaker"
)

// Flutterwave amounts are major units, so the adapter converts to and
// from cents at the boundary.
type Flutterwave struct {
	client      apiClient
	webhookHash string
}

func NewFlutterwave(cfg config.FlutterwaveConfig, httpClient *circuit.HTTPClient) *Flutterwave {
	return &Flutterwave{
		client: apiClient{
			http:      httpClient,
			baseURL:   cfg.BaseURL,
			secretKey: cfg.SecretKey,
		},
		webhookHash: cfg.WebhookHash,
	}
}

func (f *Flutterwave) Name() string {
	return ProviderFlutterwave
}

type flutterwaveInitRequest struct {
	TxRef       string              `json:"tx_ref"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	Customer    flutterwaveCustomer `json:"customer"`
}

type flutterwaveCustomer struct {
	Email string `json:"email"`
}

type flutterwaveInitResponse struct {
	Status string `json:"status"`
	Data   struct {
		Link string `json:"link"`
	} `json:"data"`
}

func (f *Flutterwave) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	var resp flutterwaveInitResponse
	_, err := f.client.doJSON(ctx, http.MethodPost, "/payments", flutterwaveInitRequest{
		TxRef:       req.Reference,
		Amount:      majorUnits(req.AmountCents),
		Currency:    req.Currency,
		RedirectURL: req.CallbackURL,
		Customer:    flutterwaveCustomer{Email: req.Email},
	}, &resp)
	if err != nil {
		return InitializeResult{}, err
	}
	if resp.Status != "success" {
		return InitializeResult{}, errs.New("flutterwave rejected payment initialization")
	}

	return InitializeResult{AuthorizationURL: resp.Data.Link}, nil
}

type flutterwaveTransaction struct {
	ID       int64   `json:"id"`
	TxRef    string  `json:"tx_ref"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type flutterwaveVerifyResponse struct {
	Status string                 `json:"status"`
	Data   flutterwaveTransaction `json:"data"`
}

func (f *Flutterwave) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	var resp flutterwaveVerifyResponse
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	raw, err := f.client.doJSON(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return VerifyResult{}, err
	}
	if resp.Status != "success" {
		return VerifyResult{}, errs.Mark(errs.New("flutterwave verify failed"), errs.ErrPaymentNotFound)
	}

	return flutterwaveResult(resp.Data, raw), nil
}

func flutterwaveResult(tx flutterwaveTransaction, raw []byte) VerifyResult {
	result := VerifyResult{
		AmountCents: int64(math.Round(tx.Amount * 100)),
		Currency:    strings.ToUpper(tx.Currency),
		Raw:         raw,
	}
	if tx.ID != 0 {
		ref := strconv.FormatInt(tx.ID, 10)
		result.ProviderRef = &ref
	}

	switch tx.Status {
	case "successful":
		result.Outcome = payment.OutcomeSuccess
	case "failed", "cancelled":
		result.Outcome = payment.OutcomeFailed
	default:
		result.Pending = true
	}
	return result
}

// VerifyWebhook compares the verif-hash header against the configured
// secret hash. Flutterwave signs deliveries with a static per-account
// value rather than a body HMAC.
func (f *Flutterwave) VerifyWebhook(header http.Header, _ []byte) error {
	received := header.Get("verif-hash")
	if received == "" || f.webhookHash == "" {
		return errs.Mark(errs.New("missing flutterwave verification hash"), errs.ErrInvalidWebhook)
	}
	if subtle.ConstantTimeCompare([]byte(received), []byte(f.webhookHash)) != 1 {
		return errs.Mark(errs.New("flutterwave verification hash mismatch"), errs.ErrInvalidWebhook)
	}
	return nil
}

type flutterwaveWebhookEvent struct {
	Event string                 `json:"event"`
	Data  flutterwaveTransaction `json:"data"`
}

func (f *Flutterwave) ParseWebhook(body []byte) (WebhookEvent, error) {
	var evt flutterwaveWebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return WebhookEvent{}, errs.Mark(err, errs.ErrInvalidWebhook)
	}
	if evt.Data.TxRef == "" {
		return WebhookEvent{}, errs.Mark(errs.New("flutterwave webhook has no tx_ref"), errs.ErrInvalidWebhook)
	}

	return WebhookEvent{
		Reference: evt.Data.TxRef,
		Result:    flutterwaveResult(evt.Data, body),
	}, nil
}

// majorUnits renders cents as a decimal string so the provider never
// sees binary floating point drift.
func majorUnits(cents int64) string {
	whole := cents / 100
	frac := cents % 100
	return strconv.FormatInt(whole, 10) + "." + pad2(frac)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
