// Package checkout owns one checkout session: the latest (snapshot, coupon,
// payment method) triple, the totals derived from it, and order submission.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	cartsync "github.com/xenking/mandir-kart/internal/cart"
	couponmgr "github.com/xenking/mandir-kart/internal/coupon"
	domain "github.com/xenking/mandir-kart/internal/domain/cart"
	domaincoupon "github.com/xenking/mandir-kart/internal/domain/coupon"
	"github.com/xenking/mandir-kart/internal/localstore"
	"github.com/xenking/mandir-kart/internal/payment"
	"github.com/xenking/mandir-kart/internal/pricing"
)

// Submitter runs one payment session to a terminal state.
type Submitter interface {
	Submit(ctx context.Context, req payment.SubmitRequest) (*payment.Session, error)
}

// OrderStore persists the order-in-progress snapshot written just before
// handing off to payment.
type OrderStore interface {
	SaveOrderInProgress(o localstore.OrderInProgress) error
}

// Session wires the cart syncer, coupon manager, and payment orchestrator
// into one checkout flow. Totals are recomputed on every input change;
// recomputation is last-writer-wins by input recency, so a stale computation
// never overwrites one derived from newer inputs.
type Session struct {
	cart     *cartsync.Syncer
	coupons  *couponmgr.Manager
	payments Submitter
	store    OrderStore
	policy   pricing.Policy
	lg       *zap.Logger

	mu        sync.Mutex
	method    pricing.Method
	addressID string
	contact   payment.Contact
	rev       uint64
	totals    pricing.Totals
	totalsRev uint64
}

// New constructs a Session. store may be nil to skip persistence.
func New(
	cart *cartsync.Syncer,
	coupons *couponmgr.Manager,
	payments Submitter,
	store OrderStore,
	policy pricing.Policy,
	lg *zap.Logger,
) *Session {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Session{
		cart:     cart,
		coupons:  coupons,
		payments: payments,
		store:    store,
		policy:   policy,
		lg:       lg,
		method:   pricing.MethodPrepaid,
	}
}

// Start loads the cart and coupon catalog concurrently, restores the applied
// coupon from the remote cart, and begins reacting to cart changes. It
// returns once the initial load completes; background observers run until
// ctx is cancelled.
func (s *Session) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.cart.Fetch(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.coupons.ListAvailable(gctx, domain.Snapshot{})
		return err
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "load checkout session")
	}

	s.coupons.Restore(s.cart.RemoteCoupon())

	go s.coupons.InvalidateOn(ctx, s.cart.Subscribe(ctx))
	go s.watchCart(ctx, s.cart.Subscribe(ctx))

	s.bump()
	return nil
}

// watchCart recomputes totals on every committed cart snapshot.
func (s *Session) watchCart(ctx context.Context, snapshots <-chan domain.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-snapshots:
			if !ok {
				return
			}
			s.bump()
		}
	}
}

// bump marks the inputs as changed and recomputes.
func (s *Session) bump() {
	s.mu.Lock()
	s.rev++
	s.mu.Unlock()
	s.recompute()
}

// recompute derives totals from the latest inputs. The revision captured
// before computing guards the write: a result from superseded inputs is
// discarded instead of overwriting a newer one.
func (s *Session) recompute() {
	s.mu.Lock()
	rev := s.rev
	method := s.method
	s.mu.Unlock()

	snap := s.cart.Snapshot()
	active := s.coupons.Active()
	totals := pricing.Compute(snap, active, method, s.policy)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rev < s.totalsRev {
		return
	}
	s.totals = totals
	s.totalsRev = rev
}

// Totals returns the latest computed breakdown.
func (s *Session) Totals() pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// SelectMethod switches the active payment method and recomputes.
func (s *Session) SelectMethod(m pricing.Method) error {
	if !m.Valid() {
		return errors.Errorf("unknown payment method %q", m)
	}
	s.mu.Lock()
	s.method = m
	s.mu.Unlock()
	s.bump()
	return nil
}

// SelectAddress records the delivery address and the contact details used to
// prefill the gateway UI. The address itself is owned by the address book.
func (s *Session) SelectAddress(addressID string, contact payment.Contact) {
	s.mu.Lock()
	s.addressID = addressID
	s.contact = contact
	s.mu.Unlock()
}

// ApplyCoupon applies the code against the current snapshot and recomputes.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (*domaincoupon.Coupon, error) {
	applied, err := s.coupons.Apply(ctx, code, s.cart.Snapshot())
	if err != nil {
		return nil, err
	}
	s.bump()
	return applied, nil
}

// RemoveCoupon drops the active coupon and recomputes.
func (s *Session) RemoveCoupon(ctx context.Context) error {
	err := s.coupons.Remove(ctx)
	s.bump()
	return err
}

// Submit recomputes from the latest inputs, persists the order-in-progress
// snapshot, and hands the exact totals to the payment orchestrator.
func (s *Session) Submit(ctx context.Context) (*payment.Session, error) {
	s.bump()

	snap := s.cart.Snapshot()
	active := s.coupons.Active()
	couponCode := ""
	if active != nil {
		couponCode = active.Code
	}

	s.mu.Lock()
	method := s.method
	addressID := s.addressID
	contact := s.contact
	totals := s.totals
	s.mu.Unlock()

	if s.store != nil {
		err := s.store.SaveOrderInProgress(localstore.OrderInProgress{
			Items:      snap.Items(),
			CouponCode: couponCode,
			Method:     method,
			AddressID:  addressID,
			Totals:     totals,
			SavedAt:    time.Now(),
		})
		if err != nil {
			s.lg.Warn("Order-in-progress snapshot not saved", zap.Error(err))
		}
	}

	return s.payments.Submit(ctx, payment.SubmitRequest{
		AddressID:  addressID,
		Method:     method,
		Snapshot:   snap,
		CouponCode: couponCode,
		Totals:     totals,
		Contact:    contact,
	})
}
