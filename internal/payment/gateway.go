package payment

import (
	"context"
	"time"
)

// ResultKind classifies the single signal the gateway delivers after handoff.
type ResultKind string

const (
	// ResultSuccess carries the payment reference and signature to verify.
	ResultSuccess ResultKind = "success"
	// ResultFailure carries the gateway-supplied failure reason.
	ResultFailure ResultKind = "failure"
	// ResultDismissed means the customer closed the gateway UI, or the
	// bounded wait expired. No error is attributed to the backend.
	ResultDismissed ResultKind = "dismissed"
)

// GatewayResult is the outcome of one gateway handoff.
type GatewayResult struct {
	Kind             ResultKind
	PaymentReference string
	GatewayOrderID   string
	Signature        string
	Reason           string
}

// CheckoutParams describes one gateway checkout handoff: the remote order to
// collect payment for, the exact amount in minor currency units, and the
// customer details to prefill.
type CheckoutParams struct {
	GatewayOrderID string
	AmountMinor    int64
	Currency       string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	// Timeout bounds the wait for a result. On expiry the gateway emits a
	// deterministic dismissal, indistinguishable from user dismissal.
	Timeout time.Duration
}

// Gateway abstracts the third-party payment UI. Open hands the checkout off
// and returns a channel that delivers exactly one result: success, failure,
// or dismissal. The handoff cannot be aborted by the caller once initiated;
// the gateway's own timeout produces the dismissal signal.
type Gateway interface {
	Open(ctx context.Context, params CheckoutParams) (<-chan GatewayResult, error)
}
