// Command checkout-probe wires the checkout engine against a live backend,
// loads the cart and coupon catalog, and logs the computed totals. It is a
// deployment smoke check: prepaid submissions are not possible headlessly, so
// the gateway handoff reports dismissal.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/mandir-kart/internal/app"
	"github.com/xenking/mandir-kart/internal/payment"
)

// headlessGateway dismisses every checkout immediately; there is no vendor UI
// to hand off to.
type headlessGateway struct{}

func (headlessGateway) Open(context.Context, payment.CheckoutParams) (<-chan payment.GatewayResult, error) {
	ch := make(chan payment.GatewayResult, 1)
	ch <- payment.GatewayResult{Kind: payment.ResultDismissed}
	return ch, nil
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Metrics) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}

		meter := m.MeterProvider().Meter("checkout-probe")
		engine, err := appkg.NewEngine(ctx, lg, meter, cfg, headlessGateway{})
		if err != nil {
			return err
		}
		defer engine.Cart.Close()

		if err := engine.Session.Start(ctx); err != nil {
			return err
		}

		snap := engine.Cart.Snapshot()
		totals := engine.Session.Totals()
		lg.Info("Checkout engine probe",
			zap.Int("items", snap.Len()),
			zap.Int("quantity", snap.TotalQuantity()),
			zap.String("subtotal", totals.Subtotal.String()),
			zap.String("total", totals.Total.String()))
		return nil
	})
}
