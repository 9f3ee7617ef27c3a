package components

import (
	"culture-booking/internal/gateway"
	"culture-booking/internal/pkg/clock"
	"culture-booking/internal/pkg/config"
	"culture-booking/internal/usecase/commands"
	"culture-booking/internal/usecase/queries"
	"culture-booking/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		NewBookingCommands,
		NewPaymentCommands,
		queries.NewBookingQueries,
		queries.NewUnitQueries,
		queries.NewPaymentQueries,
	),
)

func NewBookingCommands(
	uow shared.UnitOfWork,
	gateways *gateway.Registry,
	clk clock.Clock,
	cfg config.Config,
) commands.BookingCommands {
	return commands.NewBookingCommands(uow, gateways, clk, cfg.Booking, cfg.Gateways)
}

func NewPaymentCommands(
	uow shared.UnitOfWork,
	gateways *gateway.Registry,
	clk clock.Clock,
) commands.PaymentCommands {
	return commands.NewPaymentCommands(uow, gateways, clk)
}
