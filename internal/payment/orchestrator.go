// Package payment drives the multi-step payment handshake as an explicit
// state machine: create remote order, hand off to the gateway, verify the
// callback, finalize. Cash-on-delivery orders skip the gateway states.
package payment

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/mandir-kart/internal/domain/cart"
	"github.com/xenking/mandir-kart/internal/pricing"
)

// Local validation errors, raised before any remote call.
var (
	ErrMissingAddress = errors.New("no delivery address selected")
	ErrEmptyCart      = errors.New("cart is empty")
)

// CreatedOrder is the backend's response to creating a prepaid order.
type CreatedOrder struct {
	RemoteOrderID   string
	InternalOrderID string
}

// VerifyRequest submits a gateway success callback for signature verification
// and order finalization in a single round trip. It is safe to retry with the
// same (PaymentReference, InternalOrderID) pair; the backend deduplicates.
type VerifyRequest struct {
	PaymentReference string
	GatewayOrderID   string
	GatewaySignature string
	InternalOrderID  string
}

// VerifiedOrder carries the backend-issued order number after verification.
type VerifiedOrder struct {
	OrderNumber string
}

// PlaceOrderRequest places a cash-on-delivery order in one backend call.
type PlaceOrderRequest struct {
	AddressID  string
	Method     pricing.Method
	CouponCode string
}

// PlacedOrder is the backend's response to a cash-on-delivery order.
type PlacedOrder struct {
	OrderNumber string
}

// Backend is the slice of the remote API the orchestrator needs.
type Backend interface {
	CreatePaymentOrder(ctx context.Context, addressID, couponCode string) (CreatedOrder, error)
	VerifyPayment(ctx context.Context, req VerifyRequest) (VerifiedOrder, error)
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlacedOrder, error)
}

// Revalidator re-checks the active coupon's eligibility against the latest
// snapshot just before submission.
type Revalidator interface {
	Revalidate(ctx context.Context, snap cart.Snapshot) error
}

// MetricsRecorder counts payment outcomes. Implementations must be safe for
// concurrent use; a nil recorder disables metrics.
type MetricsRecorder interface {
	RecordPaymentOutcome(ctx context.Context, state string)
}

// Contact prefills the gateway UI from the selected address.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// SubmitRequest is one order submission: the inputs the pricing engine
// produced the totals from, plus the delivery target.
type SubmitRequest struct {
	AddressID  string
	Method     pricing.Method
	Snapshot   cart.Snapshot
	CouponCode string
	Totals     pricing.Totals
	Contact    Contact
}

// Session tracks one payment handshake from submission to a terminal state.
type Session struct {
	id string

	mu              sync.Mutex
	state           State
	remoteOrderID   string
	internalOrderID string
	gatewayRef      string
	orderNumber     string
	failureReason   string
}

func newSession() *Session {
	return &Session{id: uuid.New().String(), state: StateIdle}
}

// ID returns the client-generated session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OrderNumber returns the backend-issued order number once Completed.
func (s *Session) OrderNumber() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderNumber
}

// FailureReason returns the recorded reason once Failed. The gateway or
// backend message is preserved verbatim for user display.
func (s *Session) FailureReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureReason
}

// transition moves the session to the next state, enforcing the edge set.
func (s *Session) transition(ctx context.Context, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !canTransition(s.state, to) {
		return errors.Errorf("illegal payment transition %s -> %s", s.state, to)
	}
	zctx.From(ctx).Debug("Payment state transition",
		zap.String("session", s.id),
		zap.Stringer("from", s.state),
		zap.Stringer("to", to))
	s.state = to
	return nil
}

func (s *Session) fail(ctx context.Context, reason string) {
	// Failed is reachable from every non-terminal state except Idle.
	_ = s.transition(ctx, StateFailed)
	s.mu.Lock()
	s.failureReason = reason
	s.mu.Unlock()
}

// Config holds orchestrator policy.
type Config struct {
	// Currency is the ISO code sent to the gateway.
	Currency string
	// GatewayTimeout bounds the wait in AwaitingGatewayResult.
	GatewayTimeout time.Duration
	// RedirectCountdown is the post-success window before automatic redirect.
	RedirectCountdown time.Duration
}

// Orchestrator runs payment sessions. It holds no per-session state itself;
// each Submit produces an independent Session.
type Orchestrator struct {
	backend    Backend
	gateway    Gateway
	revalidate Revalidator
	metrics    MetricsRecorder
	cfg        Config
}

// NewOrchestrator constructs an Orchestrator. revalidate and metrics may be
// nil to disable coupon re-validation and outcome counting.
func NewOrchestrator(backend Backend, gateway Gateway, revalidate Revalidator, metrics MetricsRecorder, cfg Config) *Orchestrator {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Minute
	}
	if cfg.RedirectCountdown <= 0 {
		cfg.RedirectCountdown = 5 * time.Second
	}
	return &Orchestrator{
		backend:    backend,
		gateway:    gateway,
		revalidate: revalidate,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Submit runs one payment session to a terminal state.
//
// A non-nil error is returned only for local pre-flight failures
// (ErrMissingAddress, ErrEmptyCart, coupon.ErrNoLongerValid); every remote
// failure resolves into the returned session's terminal state instead, with
// the reason preserved for display. Resubmission after Failed or Cancelled is
// a fresh Submit call.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*Session, error) {
	if req.AddressID == "" {
		return nil, ErrMissingAddress
	}
	if req.Snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if o.revalidate != nil {
		if err := o.revalidate.Revalidate(ctx, req.Snapshot); err != nil {
			return nil, err
		}
	}

	sess := newSession()
	if err := sess.transition(ctx, StateCreatingRemoteOrder); err != nil {
		return nil, err
	}

	if req.Method == pricing.MethodCashOnDelivery {
		o.placeCashOnDelivery(ctx, sess, req)
	} else {
		o.runGatewayHandshake(ctx, sess, req)
	}

	o.recordOutcome(ctx, sess)
	return sess, nil
}

// placeCashOnDelivery completes the order in a single backend call; there is
// no external handshake.
func (o *Orchestrator) placeCashOnDelivery(ctx context.Context, sess *Session, req SubmitRequest) {
	placed, err := o.backend.PlaceOrder(ctx, PlaceOrderRequest{
		AddressID:  req.AddressID,
		Method:     req.Method,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		sess.fail(ctx, err.Error())
		return
	}

	if err := sess.transition(ctx, StateCompleted); err != nil {
		sess.fail(ctx, err.Error())
		return
	}
	sess.mu.Lock()
	sess.orderNumber = placed.OrderNumber
	sess.mu.Unlock()
}

// runGatewayHandshake drives the prepaid flow: create order, open gateway,
// await the single result signal, verify and finalize.
func (o *Orchestrator) runGatewayHandshake(ctx context.Context, sess *Session, req SubmitRequest) {
	lg := zctx.From(ctx)

	created, err := o.backend.CreatePaymentOrder(ctx, req.AddressID, req.CouponCode)
	if err != nil {
		sess.fail(ctx, err.Error())
		return
	}
	sess.mu.Lock()
	sess.remoteOrderID = created.RemoteOrderID
	sess.internalOrderID = created.InternalOrderID
	sess.mu.Unlock()

	if err := sess.transition(ctx, StateAwaitingGatewayResult); err != nil {
		sess.fail(ctx, err.Error())
		return
	}

	results, err := o.gateway.Open(ctx, CheckoutParams{
		GatewayOrderID: created.RemoteOrderID,
		AmountMinor:    req.Totals.MinorUnits(),
		Currency:       o.cfg.Currency,
		CustomerName:   req.Contact.Name,
		CustomerEmail:  req.Contact.Email,
		CustomerPhone:  req.Contact.Phone,
		Timeout:        o.cfg.GatewayTimeout,
	})
	if err != nil {
		sess.fail(ctx, err.Error())
		return
	}

	// The handoff is fire-and-forget: the orchestrator resumes only on the
	// gateway's result signal. Caller context cancellation is treated like a
	// dismissal since the gateway cannot be aborted from here.
	var result GatewayResult
	select {
	case result = <-results:
	case <-ctx.Done():
		result = GatewayResult{Kind: ResultDismissed}
	}

	switch result.Kind {
	case ResultDismissed:
		if err := sess.transition(ctx, StateCancelled); err != nil {
			sess.fail(ctx, err.Error())
		}
		return
	case ResultFailure:
		sess.fail(ctx, result.Reason)
		return
	case ResultSuccess:
	default:
		sess.fail(ctx, "unknown gateway result")
		return
	}

	if err := sess.transition(ctx, StateVerifyingAndFinalizing); err != nil {
		sess.fail(ctx, err.Error())
		return
	}
	sess.mu.Lock()
	sess.gatewayRef = result.PaymentReference
	internalID := sess.internalOrderID
	sess.mu.Unlock()

	verified, err := o.backend.VerifyPayment(ctx, VerifyRequest{
		PaymentReference: result.PaymentReference,
		GatewayOrderID:   result.GatewayOrderID,
		GatewaySignature: result.Signature,
		InternalOrderID:  internalID,
	})
	if err != nil {
		// Verification rejection is fatal to this session; the user must
		// resubmit from Idle.
		lg.Warn("Payment verification failed",
			zap.String("session", sess.id), zap.Error(err))
		sess.fail(ctx, err.Error())
		return
	}

	if err := sess.transition(ctx, StateCompleted); err != nil {
		sess.fail(ctx, err.Error())
		return
	}
	sess.mu.Lock()
	sess.orderNumber = verified.OrderNumber
	sess.mu.Unlock()
}

func (o *Orchestrator) recordOutcome(ctx context.Context, sess *Session) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordPaymentOutcome(ctx, sess.State().String())
}

// RedirectCountdown returns a channel that closes once the post-success
// redirect window elapses. Cancelling ctx (explicit user navigation)
// short-circuits the countdown and the channel never closes.
func (o *Orchestrator) RedirectCountdown(ctx context.Context, sess *Session) <-chan struct{} {
	done := make(chan struct{})
	if sess.State() != StateCompleted {
		close(done)
		return done
	}

	go func() {
		timer := time.NewTimer(o.cfg.RedirectCountdown)
		defer timer.Stop()
		select {
		case <-timer.C:
			close(done)
		case <-ctx.Done():
		}
	}()
	return done
}
