// Package coupon manages the checkout session's coupon lifecycle: exactly
// zero or one coupon is active at a time, applying a new code replaces the
// old one, and eligibility is re-checked against the latest cart before
// final submission.
package coupon

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/mandir-kart/internal/domain/cart"
	domain "github.com/xenking/mandir-kart/internal/domain/coupon"
)

// Catalog is the slice of the backend API the manager needs. The catalog is
// read-only to this core.
type Catalog interface {
	AvailableCoupons(ctx context.Context) ([]domain.Coupon, error)
	ApplyCoupon(ctx context.Context, code string) error
	RemoveCoupon(ctx context.Context) error
	ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*domain.Coupon, error)
}

// Available is a catalog entry annotated with local applicability against
// the current snapshot.
type Available struct {
	domain.Coupon
	IsApplicable bool
}

// Manager holds the NoCoupon | Applied(coupon) state for one session.
type Manager struct {
	catalog Catalog
	now     func() time.Time
	lg      *zap.Logger

	mu     sync.Mutex
	active *domain.Coupon

	// screen is a bloom filter of catalog codes, seeded by ListAvailable.
	// A definite miss fails Apply locally with ErrNotFound, skipping the
	// network; bloom filters have no false negatives, so a valid code is
	// never rejected by the screen.
	screen      *bloom.BloomFilter
	screenReady bool
}

// NewManager creates a Manager in the NoCoupon state.
func NewManager(catalog Catalog, lg *zap.Logger) *Manager {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Manager{
		catalog: catalog,
		now:     time.Now,
		lg:      lg,
	}
}

// Active returns a copy of the applied coupon, or nil in the NoCoupon state.
func (m *Manager) Active() *domain.Coupon {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	cp := *m.active
	return &cp
}

// Restore seeds the applied coupon from the remote cart's descriptor, e.g.
// after a cold-start fetch. A nil coupon resets to NoCoupon.
func (m *Manager) Restore(c *domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c == nil {
		m.active = nil
		return
	}
	cp := *c
	cp.Code = domain.NormalizeCode(cp.Code)
	m.active = &cp
}

// Apply validates and applies the code against the snapshot, transitioning
// NoCoupon -> Applied. Applying a different code while one is active
// replaces it; coupons never stack. The error is one of the distinct
// lifecycle kinds (ErrInvalidFormat, ErrNotFound, ErrExpired,
// ErrNotApplicable, ErrAlreadyApplied) or a wrapped remote error, in which
// case local state is unchanged.
func (m *Manager) Apply(ctx context.Context, code string, snap cart.Snapshot) (*domain.Coupon, error) {
	norm, err := domain.ValidateCode(code)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.active != nil && m.active.Code == norm {
		m.mu.Unlock()
		return nil, domain.ErrAlreadyApplied
	}
	if m.screenReady && !m.screen.TestString(norm) {
		m.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	m.mu.Unlock()

	found, err := m.findByCode(ctx, norm)
	if err != nil {
		return nil, err
	}
	if found.Expired(m.now()) {
		return nil, domain.ErrExpired
	}
	if !found.ApplicableTo(snap.Subtotal()) {
		return nil, domain.ErrNotApplicable
	}

	if err := m.catalog.ApplyCoupon(ctx, norm); err != nil {
		return nil, errors.Wrap(err, "apply coupon")
	}

	m.mu.Lock()
	m.active = found
	m.mu.Unlock()

	m.lg.Info("Coupon applied", zap.String("code", norm))
	cp := *found
	return &cp, nil
}

// findByCode resolves a code through the remote catalog, refreshing the
// bloom screen as a side effect.
func (m *Manager) findByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	coupons, err := m.catalog.AvailableCoupons(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch coupon catalog")
	}
	m.seedScreen(coupons)

	for i := range coupons {
		if domain.NormalizeCode(coupons[i].Code) == code {
			cp := coupons[i]
			cp.Code = code
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Manager) seedScreen(coupons []domain.Coupon) {
	n := uint(len(coupons)) + 16
	screen := bloom.NewWithEstimates(n, 0.01)
	for i := range coupons {
		screen.AddString(domain.NormalizeCode(coupons[i].Code))
	}

	m.mu.Lock()
	m.screen = screen
	m.screenReady = true
	m.mu.Unlock()
}

// Remove transitions Applied -> NoCoupon unconditionally and is idempotent:
// removing in the NoCoupon state is a no-op with no network call. Local
// state clears even when the remote removal fails; the error is returned so
// the caller can surface it.
func (m *Manager) Remove(ctx context.Context) error {
	m.mu.Lock()
	wasActive := m.active != nil
	m.active = nil
	m.mu.Unlock()

	if !wasActive {
		return nil
	}
	if err := m.catalog.RemoveCoupon(ctx); err != nil {
		return errors.Wrap(err, "remove coupon")
	}
	return nil
}

// ListAvailable fetches the catalog and annotates each coupon with local
// applicability against the snapshot. It does not mutate the applied state,
// but it does refresh the bloom screen.
func (m *Manager) ListAvailable(ctx context.Context, snap cart.Snapshot) ([]Available, error) {
	coupons, err := m.catalog.AvailableCoupons(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch coupon catalog")
	}
	m.seedScreen(coupons)

	subtotal := snap.Subtotal()
	out := make([]Available, len(coupons))
	for i, c := range coupons {
		out[i] = Available{
			Coupon:       c,
			IsApplicable: c.ApplicableTo(subtotal),
		}
	}
	return out, nil
}

// Revalidate re-checks apply-equivalent eligibility of the active coupon
// against the latest snapshot, both locally and via the backend validate
// endpoint. It returns ErrNoLongerValid when the coupon stopped qualifying;
// submission must be rejected rather than silently dropping the discount.
// NoCoupon always passes.
func (m *Manager) Revalidate(ctx context.Context, snap cart.Snapshot) error {
	active := m.Active()
	if active == nil {
		return nil
	}

	if active.Expired(m.now()) || !active.ApplicableTo(snap.Subtotal()) {
		return domain.ErrNoLongerValid
	}
	if _, err := m.catalog.ValidateCoupon(ctx, active.Code, snap.Subtotal()); err != nil {
		return errors.Wrap(domain.ErrNoLongerValid, err.Error())
	}
	return nil
}

// InvalidateOn watches committed cart snapshots and implicitly removes the
// active coupon once a cart change makes it inapplicable. Runs until ctx is
// cancelled or the channel closes.
func (m *Manager) InvalidateOn(ctx context.Context, snapshots <-chan cart.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			active := m.Active()
			if active == nil || active.ApplicableTo(snap.Subtotal()) {
				continue
			}
			m.lg.Info("Coupon invalidated by cart change",
				zap.String("code", active.Code),
				zap.String("subtotal", snap.Subtotal().String()))
			if err := m.Remove(ctx); err != nil {
				m.lg.Warn("Implicit coupon removal failed", zap.Error(err))
			}
		}
	}
}
