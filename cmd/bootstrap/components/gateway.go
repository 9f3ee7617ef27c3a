package components

import (
	"log/slog"

	"culture-booking/internal/gateway"
	"culture-booking/internal/pkg/config"

	circuit "github.com/rubyist/circuitbreaker"
	"go.uber.org/fx"
)

var GatewayModule = fx.Module("gateway",
	fx.Provide(
		gateway.NewHTTPClient,
		NewGatewayRegistry,
	),
)

// NewGatewayRegistry registers every provider with configured
// credentials. Booting with no providers is allowed; creation requests
// then fail with an unknown-provider error.
func NewGatewayRegistry(cfg config.Config, httpClient *circuit.HTTPClient) *gateway.Registry {
	var gateways []gateway.Gateway

	if cfg.Gateways.Paystack.SecretKey != "" {
		gateways = append(gateways, gateway.NewPaystack(cfg.Gateways.Paystack, httpClient))
	}
	if cfg.Gateways.Flutterwave.SecretKey != "" {
		gateways = append(gateways, gateway.NewFlutterwave(cfg.Gateways.Flutterwave, httpClient))
	}
	if cfg.Gateways.Stripe.SecretKey != "" {
		gateways = append(gateways, gateway.NewStripe(cfg.Gateways.Stripe, httpClient))
	}

	registry := gateway.NewRegistry(gateways...)
	slog.Info("payment gateways registered", "providers", registry.Names())
	return registry
}
