// Package guest merges the anonymous pre-login cart into the authenticated
// user's cart once identity is established.
package guest

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/xenking/mandir-kart/internal/domain/cart"
)

// Store is the persisted guest cart.
type Store interface {
	LoadGuestCart() ([]domain.LineItem, error)
	ClearGuestCart() error
}

// Remote upserts line quantities into the authenticated remote cart.
type Remote interface {
	SetItemQuantity(ctx context.Context, itemID string, quantity int) (decimal.Decimal, error)
}

// Refresher reloads the local cart view after the merge.
type Refresher interface {
	Fetch(ctx context.Context) (domain.Snapshot, error)
}

// Report summarizes one merge.
type Report struct {
	Merged  int
	Skipped int
}

// Bridge replays the guest cart into the authenticated cart.
type Bridge struct {
	store   Store
	remote  Remote
	refresh Refresher
	lg      *zap.Logger
}

// NewBridge constructs a Bridge.
func NewBridge(store Store, remote Remote, refresh Refresher, lg *zap.Logger) *Bridge {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Bridge{store: store, remote: remote, refresh: refresh, lg: lg}
}

// Merge replays each guest line into the remote cart, clamping quantities to
// the available stock. Per-line failures are logged and skipped so one bad
// line never blocks the rest. After the replay the local cart view is
// refreshed and the guest store cleared. Merging an empty guest cart is a
// no-op.
func (b *Bridge) Merge(ctx context.Context) (Report, error) {
	items, err := b.store.LoadGuestCart()
	if err != nil {
		return Report{}, errors.Wrap(err, "load guest cart")
	}
	if len(items) == 0 {
		return Report{}, nil
	}

	var report Report
	for _, li := range items {
		qty := li.Quantity
		if qty > li.AvailableStock {
			qty = li.AvailableStock
		}
		if qty < 1 {
			b.lg.Info("Skipping out-of-stock guest line", zap.String("item", li.ID))
			report.Skipped++
			continue
		}

		if _, err := b.remote.SetItemQuantity(ctx, li.ID, qty); err != nil {
			b.lg.Warn("Guest line merge failed",
				zap.String("item", li.ID), zap.Error(err))
			report.Skipped++
			continue
		}
		report.Merged++
	}

	if _, err := b.refresh.Fetch(ctx); err != nil {
		return report, errors.Wrap(err, "refresh cart after merge")
	}
	if err := b.store.ClearGuestCart(); err != nil {
		return report, errors.Wrap(err, "clear guest cart")
	}

	b.lg.Info("Guest cart merged",
		zap.Int("merged", report.Merged), zap.Int("skipped", report.Skipped))
	return report, nil
}
