package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"culture-booking/internal/domain/payment"
	"culture-booking/internal/pkg/config"
	"culture-booking/internal/pkg/errs"

	circuit "github.com/rubyist/circuitbreaker"
)

// Paystack amounts are already minor units (kobo), so AmountCents maps
// through unchanged.
type Paystack struct {
	client apiClient
}

func NewPaystack(cfg config.PaystackConfig, httpClient *circuit.HTTPClient) *Paystack {
	return &Paystack{client: apiClient{
		http:      httpClient,
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
	}}
}

func (p *Paystack) Name() string {
	return ProviderPaystack
}

type paystackInitRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type paystackInitResponse struct {
	Status bool `json:"status"`
	Data   struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (p *Paystack) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	var resp paystackInitResponse
	_, err := p.client.doJSON(ctx, http.MethodPost, "/transaction/initialize", paystackInitRequest{
		Email:       req.Email,
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
	}, &resp)
	if err != nil {
		return InitializeResult{}, err
	}
	if !resp.Status {
		return InitializeResult{}, errs.New("paystack rejected transaction initialization")
	}

	return InitializeResult{
		AuthorizationURL: resp.Data.AuthorizationURL,
		ProviderRef:      resp.Data.AccessCode,
	}, nil
}

type paystackTransaction struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type paystackVerifyResponse struct {
	Status bool                `json:"status"`
	Data   paystackTransaction `json:"data"`
}

func (p *Paystack) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	var resp paystackVerifyResponse
	raw, err := p.client.doJSON(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &resp)
	if err != nil {
		return VerifyResult{}, err
	}
	if !resp.Status {
		return VerifyResult{}, errs.Mark(errs.New("paystack verify failed"), errs.ErrPaymentNotFound)
	}

	return paystackResult(resp.Data, raw), nil
}

func paystackResult(tx paystackTransaction, raw []byte) VerifyResult {
	result := VerifyResult{
		AmountCents: tx.Amount,
		Currency:    strings.ToUpper(tx.Currency),
		Raw:         raw,
	}
	if tx.ID != 0 {
		ref := strconv.FormatInt(tx.ID, 10)
		result.ProviderRef = &ref
	}

	switch tx.Status {
	case "success":
		result.Outcome = payment.OutcomeSuccess
	case "failed", "abandoned", "reversed":
		result.Outcome = payment.OutcomeFailed
	default:
		result.Pending = true
	}
	return result
}

// VerifyWebhook checks the HMAC-SHA512 body signature Paystack sends in
// x-paystack-signature, keyed with the account secret key.
func (p *Paystack) VerifyWebhook(header http.Header, body []byte) error {
	signature := header.Get("x-paystack-signature")
	if signature == "" {
		return errs.Mark(errs.New("missing paystack signature"), errs.ErrInvalidWebhook)
	}

	mac := hmac.New(sha512.New, []byte(p.client.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errs.Mark(errs.New("paystack signature mismatch"), errs.ErrInvalidWebhook)
	}
	return nil
}

type paystackWebhookEvent struct {
	Event string              `json:"event"`
	Data  paystackTransaction `json:"data"`
}

func (p *Paystack) ParseWebhook(body []byte) (WebhookEvent, error) {
	var evt paystackWebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return WebhookEvent{}, errs.Mark(err, errs.ErrInvalidWebhook)
	}
	if evt.Data.Reference == "" {
		return WebhookEvent{}, errs.Mark(errs.New("paystack webhook has no reference"), errs.ErrInvalidWebhook)
	}

	return WebhookEvent{
		Reference: evt.Data.Reference,
		Result:    paystackResult(evt.Data, body),
	}, nil
}
