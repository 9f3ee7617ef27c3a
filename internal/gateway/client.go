package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"culture-booking/internal/pkg/errs"

	circuit "github.com/rubyist/circuitbreaker"
)

const (
	requestTimeout   = 10 * time.Second
	failureThreshold = 5
)

// NewHTTPClient builds the circuit-breaking HTTP client shared by all
// adapters. The breaker trips after consecutive transport failures so a
// degraded provider fails fast instead of exhausting the caller.
func NewHTTPClient() *circuit.HTTPClient {
	return circuit.NewHTTPClient(requestTimeout, failureThreshold, nil)
}

type apiClient struct {
	http      *circuit.HTTPClient
	baseURL   string
	secretKey string
}

// doJSON issues an authenticated request and decodes the JSON response
// into out, returning the raw body for reconciliation storage. Breaker
// and transport failures surface as ErrGatewayUnavailable.
func (c *apiClient) doJSON(ctx context.Context, method, path string, reqBody any, out any) ([]byte, error) {
	var body io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return nil, errs.Wrap(err, "failed to encode gateway request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errs.Wrap(err, "failed to build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrGatewayUnavailable)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return raw, errs.Mark(
			errs.New("gateway returned "+resp.Status),
			errs.ErrGatewayUnavailable,
		)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return raw, errs.New("gateway rejected request: " + resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, errs.Wrap(err, "failed to decode gateway response")
		}
	}
	return raw, nil
}

// doForm posts a form-encoded body for providers that do not speak
// JSON on requests, decoding the JSON response like doJSON.
func (c *apiClient) doForm(ctx context.Context, path string, form url.Values, out any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Wrap(err, "failed to build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrGatewayUnavailable)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return raw, errs.Mark(
			errs.New("gateway returned "+resp.Status),
			errs.ErrGatewayUnavailable,
		)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return raw, errs.New("gateway rejected request: " + resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, errs.Wrap(err, "failed to decode gateway response")
		}
	}
	return raw, nil
}
