//go:build unit

package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"culture-booking/internal/domain/payment"
	"culture-booking/internal/gateway"
	"culture-booking/internal/pkg/config"
	"culture-booking/internal/pkg/errs"
	"culture-booking/tests/common/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flutterwaveTestHash = "flw-webhook-hash"

func newTestFlutterwave(baseURL string) *gateway.Flutterwave {
	return gateway.NewFlutterwave(config.FlutterwaveConfig{
		SecretKey:   "FLWSECK_TEST-abc",
		BaseURL:     baseURL,
		WebhookHash: flutterwaveTestHash,
	}, gateway.NewHTTPClient())
}

func TestFlutterwaveInitialize(t *testing.T) {
	tests := []struct {
		name       string
		cents      int64
		wantAmount string
	}{
		{name: "whole naira", cents: 1000000, wantAmount: "10000.00"},
		{name: "kobo fraction", cents: 150050, wantAmount: "1500.50"},
		{name: "single-digit kobo pads", cents: 505, wantAmount: "5.05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/payments", r.URL.Path)
				require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

				w.Write([]byte(`{"status":"success","data":{"link":"https://checkout.flutterwave.com/pay/xyz"}}`))
			}))
			defer srv.Close()

			result, err := newTestFlutterwave(srv.URL).Initialize(context.Background(), gateway.InitializeRequest{
				Reference:   "CBK-REF-2",
				Email:       "ada.obi@example.com",
				AmountCents: tt.cents,
				Currency:    "NGN",
				CallbackURL: "http://localhost:8080/payment/callback",
			})
			require.NoError(t, err)

			assert.Equal(t, "https://checkout.flutterwave.com/pay/xyz", result.AuthorizationURL)

			// amounts cross the wire as decimal strings in major units
			assert.Equal(t, tt.wantAmount, captured["amount"])
			assert.Equal(t, "CBK-REF-2", captured["tx_ref"])
			assert.Equal(t, "http://localhost:8080/payment/callback", captured["redirect_url"])
			customer, ok := captured["customer"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "ada.obi@example.com", customer["email"])
		})
	}

	t.Run("rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"status":"error","message":"Invalid currency"}`))
		}))
		defer srv.Close()

		_, err := newTestFlutterwave(srv.URL).Initialize(context.Background(), gateway.InitializeRequest{Reference: "CBK-REF-2"})
		require.Error(t, err)
	})
}

func TestFlutterwaveVerify(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		amount    float64
		wantCents int64
		outcome   payment.Outcome
		pending   bool
	}{
		{name: "successful converts major units to cents", status: "successful", amount: 1500.50, wantCents: 150050, outcome: payment.OutcomeSuccess},
		{name: "rounding never drifts", status: "successful", amount: 1500.10, wantCents: 150010, outcome: payment.OutcomeSuccess},
		{name: "failed", status: "failed", amount: 1500, wantCents: 150000, outcome: payment.OutcomeFailed},
		{name: "cancelled", status: "cancelled", amount: 1500, wantCents: 150000, outcome: payment.OutcomeFailed},
		{name: "pending", status: "pending", amount: 1500, wantCents: 150000, pending: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transactions/verify_by_reference", r.URL.Path)
				assert.Equal(t, "CBK-REF-2", r.URL.Query().Get("tx_ref"))

				json.NewEncoder(w).Encode(map[string]any{
					"status": "success",
					"data": map[string]any{
						"id":       99001,
						"tx_ref":   "CBK-REF-2",
						"status":   tt.status,
						"amount":   tt.amount,
						"currency": "ngn",
					},
				})
			}))
			defer srv.Close()

			result, err := newTestFlutterwave(srv.URL).Verify(context.Background(), "CBK-REF-2")
			require.NoError(t, err)

			assert.Equal(t, tt.wantCents, result.AmountCents)
			assert.Equal(t, "NGN", result.Currency)
			assert.Equal(t, tt.pending, result.Pending)
			assert.Equal(t, tt.outcome, result.Outcome)
			require.NotNil(t, result.ProviderRef)
			assert.Equal(t, "99001", *result.ProviderRef)
		})
	}

	t.Run("unknown reference", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"status":"error","message":"No transaction was found"}`))
		}))
		defer srv.Close()

		_, err := newTestFlutterwave(srv.URL).Verify(context.Background(), "CBK-REF-2")
		testutil.RequireErrorIs(t, err, errs.ErrPaymentNotFound)
	})
}

func TestFlutterwaveVerifyWebhook(t *testing.T) {
	gw := newTestFlutterwave("http://unused")
	body := []byte(`{"event":"charge.completed"}`)

	t.Run("matching hash", func(t *testing.T) {
		header := http.Header{}
		header.Set("verif-hash", flutterwaveTestHash)
		require.NoError(t, gw.VerifyWebhook(header, body))
	})

	t.Run("missing hash", func(t *testing.T) {
		err := gw.VerifyWebhook(http.Header{}, body)
		testutil.RequireErrorIs(t, err, errs.ErrInvalidWebhook)
	})

	t.Run("wrong hash", func(t *testing.T) {
		header := http.Header{}
		header.Set("verif-hash", "someone-elses-hash")
		err := gw.VerifyWebhook(header, body)
		testutil.RequireErrorIs(t, err, errs.ErrInvalidWebhook)
	})
}

func TestFlutterwaveParseWebhook(t *testing.T) {
	gw := newTestFlutterwave("http://unused")

	t.Run("charge completed", func(t *testing.T) {
		body := []byte(`{"event":"charge.completed","data":{
			"id":99001,"tx_ref":"CBK-REF-2","status":"successful",
			"amount":1500.5,"currency":"NGN"
		}}`)

		evt, err := gw.ParseWebhook(body)
		require.NoError(t, err)

		assert.Equal(t, "CBK-REF-2", evt.Reference)
		assert.Equal(t, payment.OutcomeSuccess, evt.Result.Outcome)
		assert.Equal(t, int64(150050), evt.Result.AmountCents)
		assert.Equal(t, body, evt.Result.Raw)
	})

	t.Run("missing tx_ref", func(t *testing.T) {
		_, err := gw.ParseWebhook([]byte(`{"event":"charge.completed","data":{"status":"successful"}}`))
		testutil.RequireErrorIs(t, err, errs.ErrInvalidWebhook)
	})
}
