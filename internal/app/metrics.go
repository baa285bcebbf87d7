package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts checkout engine events. It satisfies the MetricsRecorder
// interfaces of the cart and payment packages.
type Metrics struct {
	cartMutations   metric.Int64Counter
	cartRollbacks   metric.Int64Counter
	paymentOutcomes metric.Int64Counter
}

// NewMetrics registers the engine's counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	mutations, err := meter.Int64Counter("checkout.cart.mutations",
		metric.WithDescription("Committed cart mutations"))
	if err != nil {
		return nil, errors.Wrap(err, "cart mutations counter")
	}
	rollbacks, err := meter.Int64Counter("checkout.cart.rollbacks",
		metric.WithDescription("Cart mutations rolled back after remote failure"))
	if err != nil {
		return nil, errors.Wrap(err, "cart rollbacks counter")
	}
	outcomes, err := meter.Int64Counter("checkout.payment.outcomes",
		metric.WithDescription("Payment sessions by terminal state"))
	if err != nil {
		return nil, errors.Wrap(err, "payment outcomes counter")
	}
	return &Metrics{
		cartMutations:   mutations,
		cartRollbacks:   rollbacks,
		paymentOutcomes: outcomes,
	}, nil
}

// RecordCartMutation counts one settled cart mutation.
func (m *Metrics) RecordCartMutation(ctx context.Context, rolledBack bool) {
	if rolledBack {
		m.cartRollbacks.Add(ctx, 1)
		return
	}
	m.cartMutations.Add(ctx, 1)
}

// RecordPaymentOutcome counts one terminal payment session state.
func (m *Metrics) RecordPaymentOutcome(ctx context.Context, state string) {
	m.paymentOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
