//go:build e2e

package e2e

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// FakePaystack is an in-process stand-in for the Paystack API. It
// records initialized transactions and serves them back on verify, so
// e2e tests can drive the full create -> settle -> reconcile flow
// without leaving the process.
type FakePaystack struct {
	Secret string

	mu           sync.Mutex
	srv          *httptest.Server
	transactions map[string]*fakeTransaction
	nextID       int64
}

type fakeTransaction struct {
	ID       int64
	Status   string
	Amount   int64
	Currency string
}

func NewFakePaystack(secret string) *FakePaystack {
	f := &FakePaystack{
		Secret:       secret,
		transactions: make(map[string]*fakeTransaction),
		nextID:       7000000,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transaction/initialize", f.handleInitialize)
	mux.HandleFunc("GET /transaction/verify/", f.handleVerify)
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *FakePaystack) URL() string { return f.srv.URL }

func (f *FakePaystack) Close() { f.srv.Close() }

func (f *FakePaystack) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		w.Write([]byte(`{"status":false,"message":"invalid request"}`))
		return
	}

	f.mu.Lock()
	f.nextID++
	f.transactions[req.Reference] = &fakeTransaction{
		ID:       f.nextID,
		Status:   "ongoing",
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	f.mu.Unlock()

	fmt.Fprintf(w, `{"status":true,"data":{
		"authorization_url":"%s/checkout/%s",
		"access_code":"ac_%s",
		"reference":"%s"
	}}`, f.srv.URL, req.Reference, req.Reference, req.Reference)
}

func (f *FakePaystack) handleVerify(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")

	f.mu.Lock()
	tx, ok := f.transactions[reference]
	f.mu.Unlock()
	if !ok {
		w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"status": true,
		"data": map[string]any{
			"id":        tx.ID,
			"status":    tx.Status,
			"reference": reference,
			"amount":    tx.Amount,
			"currency":  tx.Currency,
		},
	})
}

// Settle marks a transaction's provider-side status, as if the
// customer finished (or abandoned) the checkout.
func (f *FakePaystack) Settle(reference, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx, ok := f.transactions[reference]; ok {
		tx.Status = status
	}
}

// WebhookDelivery builds a signed charge event for the reference, with
// the amount optionally overridden to simulate a tampered or partial
// payment.
func (f *FakePaystack) WebhookDelivery(reference, status string, amountOverride *int64) (body []byte, signature string) {
	f.mu.Lock()
	tx, ok := f.transactions[reference]
	var amount int64
	var currency string
	var id int64
	if ok {
		amount, currency, id = tx.Amount, tx.Currency, tx.ID
	}
	f.mu.Unlock()
	if amountOverride != nil {
		amount = *amountOverride
	}
	if currency == "" {
		currency = "NGN"
	}

	event := "charge.success"
	if status != "success" {
		event = "charge.failed"
	}
	body, _ = json.Marshal(map[string]any{
		"event": event,
		"data": map[string]any{
			"id":        id,
			"status":    status,
			"reference": reference,
			"amount":    amount,
			"currency":  currency,
		},
	})
	return body, f.Sign(body)
}

// Sign produces the x-paystack-signature value for a raw body.
func (f *FakePaystack) Sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(f.Secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
