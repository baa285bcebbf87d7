// Package cart holds the authoritative local view of the remote cart. Every
// mutation is applied optimistically for immediate feedback, then confirmed
// or rolled back once the remote store responds.
package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	domain "github.com/xenking/mandir-kart/internal/domain/cart"
	"github.com/xenking/mandir-kart/internal/domain/coupon"
	"github.com/xenking/mandir-kart/pkg/pubsub"
)

// Remote is the slice of the backend API the syncer needs. Each mutation
// returns the authoritative subtotal the remote computed, used to detect
// drift between local and remote state.
type Remote interface {
	FetchCart(ctx context.Context) (domain.Snapshot, *coupon.Coupon, error)
	SetItemQuantity(ctx context.Context, itemID string, quantity int) (decimal.Decimal, error)
	RemoveItem(ctx context.Context, itemID string) (decimal.Decimal, error)
	ClearCart(ctx context.Context) error
}

// MetricsRecorder counts cart mutations and rollbacks. A nil recorder
// disables metrics.
type MetricsRecorder interface {
	RecordCartMutation(ctx context.Context, rolledBack bool)
}

// Mutation is the tagged result of one mutating operation: either the new
// committed snapshot, or a rollback to the pre-mutation snapshot with the
// reason the remote gave.
type Mutation struct {
	Ok       bool
	Snapshot domain.Snapshot
	// RolledBack holds the user-facing reason when Ok is false.
	RolledBack string
}

// Syncer owns the local cart snapshot. All other components read the
// snapshot without mutating it.
//
// Concurrent mutations on the same line item are not coalesced or ordered:
// each call validates against the snapshot current at call time and is issued
// independently. Callers that need strict ordering on one item must await
// each mutation's result before issuing the next.
type Syncer struct {
	remote  Remote
	metrics MetricsRecorder
	lg      *zap.Logger

	// mu guards snap and remoteCoupon. Held only for local reads and swaps,
	// never across a remote call.
	mu           sync.Mutex
	snap         domain.Snapshot
	remoteCoupon *coupon.Coupon

	topic *pubsub.Topic[domain.Snapshot]
	group singleflight.Group
}

// NewSyncer creates a Syncer with an empty local snapshot. metrics may be nil.
func NewSyncer(remote Remote, metrics MetricsRecorder, lg *zap.Logger) *Syncer {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Syncer{
		remote:  remote,
		metrics: metrics,
		lg:      lg,
		topic:   pubsub.NewTopic[domain.Snapshot](),
	}
}

// Snapshot returns the current local snapshot.
func (s *Syncer) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// RemoteCoupon returns the applied-coupon descriptor the last full fetch
// reported, or nil.
func (s *Syncer) RemoteCoupon() *coupon.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteCoupon == nil {
		return nil
	}
	cp := *s.remoteCoupon
	return &cp
}

// Subscribe returns a channel of committed snapshots. The cart drawer,
// header badge, and checkout page all observe this one source.
func (s *Syncer) Subscribe(ctx context.Context) <-chan domain.Snapshot {
	return s.topic.Subscribe(ctx)
}

// Fetch replaces local state wholesale from the remote cart. Concurrent
// calls are deduplicated into a single round trip.
func (s *Syncer) Fetch(ctx context.Context) (domain.Snapshot, error) {
	v, err, _ := s.group.Do("fetch", func() (any, error) {
		snap, applied, err := s.remote.FetchCart(ctx)
		if err != nil {
			return domain.Snapshot{}, errors.Wrap(err, "fetch cart")
		}

		s.mu.Lock()
		s.snap = snap
		s.remoteCoupon = applied
		s.mu.Unlock()

		s.topic.Publish(snap)
		return snap, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return v.(domain.Snapshot), nil
}

// IncrementQuantity raises the item's quantity by one, rejecting locally
// with a StockExceededError when at the stock limit.
func (s *Syncer) IncrementQuantity(ctx context.Context, itemID string) (Mutation, error) {
	s.mu.Lock()
	item, ok := s.snap.Item(itemID)
	s.mu.Unlock()
	if !ok {
		return Mutation{}, domain.ErrItemNotFound
	}
	return s.UpdateQuantity(ctx, itemID, item.Quantity+1)
}

// DecrementQuantity lowers the item's quantity by one. Going below 1 is
// rejected locally with ErrQuantityTooLow and no network call is issued.
func (s *Syncer) DecrementQuantity(ctx context.Context, itemID string) (Mutation, error) {
	s.mu.Lock()
	item, ok := s.snap.Item(itemID)
	s.mu.Unlock()
	if !ok {
		return Mutation{}, domain.ErrItemNotFound
	}
	return s.UpdateQuantity(ctx, itemID, item.Quantity-1)
}

// UpdateQuantity sets the item's quantity, validating 1 <= q <= stock
// locally before touching the network.
func (s *Syncer) UpdateQuantity(ctx context.Context, itemID string, quantity int) (Mutation, error) {
	s.mu.Lock()
	prev := s.snap
	item, ok := prev.Item(itemID)
	if !ok {
		s.mu.Unlock()
		return Mutation{}, domain.ErrItemNotFound
	}
	if quantity < 1 {
		s.mu.Unlock()
		return Mutation{}, domain.ErrQuantityTooLow
	}
	if quantity > item.AvailableStock {
		s.mu.Unlock()
		return Mutation{}, &domain.StockExceededError{
			ItemID:    itemID,
			Requested: quantity,
			Available: item.AvailableStock,
		}
	}

	next, _ := prev.WithQuantity(itemID, quantity)
	s.snap = next
	s.mu.Unlock()

	remoteSubtotal, err := s.remote.SetItemQuantity(ctx, itemID, quantity)
	return s.settle(ctx, prev, next, remoteSubtotal, err)
}

// RemoveItem deletes the line item, optimistically first.
func (s *Syncer) RemoveItem(ctx context.Context, itemID string) (Mutation, error) {
	s.mu.Lock()
	prev := s.snap
	if _, ok := prev.Item(itemID); !ok {
		s.mu.Unlock()
		return Mutation{}, domain.ErrItemNotFound
	}
	next := prev.WithoutItem(itemID)
	s.snap = next
	s.mu.Unlock()

	remoteSubtotal, err := s.remote.RemoveItem(ctx, itemID)
	return s.settle(ctx, prev, next, remoteSubtotal, err)
}

// Clear empties the cart, optimistically first.
func (s *Syncer) Clear(ctx context.Context) (Mutation, error) {
	s.mu.Lock()
	prev := s.snap
	next := domain.NewSnapshot(nil)
	s.snap = next
	s.mu.Unlock()

	err := s.remote.ClearCart(ctx)
	return s.settle(ctx, prev, next, decimal.Zero, err)
}

// settle commits or rolls back an optimistic mutation once the remote call
// resolves. On success the new snapshot is published and remote drift
// triggers a full refetch; on failure the pre-mutation snapshot is restored
// exactly and nothing is published.
func (s *Syncer) settle(ctx context.Context, prev, next domain.Snapshot, remoteSubtotal decimal.Decimal, err error) (Mutation, error) {
	if err != nil {
		s.mu.Lock()
		s.snap = prev
		s.mu.Unlock()

		s.lg.Warn("Cart mutation rolled back", zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordCartMutation(ctx, true)
		}
		return Mutation{Ok: false, Snapshot: prev, RolledBack: err.Error()}, err
	}

	s.topic.Publish(next)
	if s.metrics != nil {
		s.metrics.RecordCartMutation(ctx, false)
	}

	// Reconcile: the subtotal is derived locally, so if the remote reports a
	// different figure the local view has drifted and the remote cart is
	// refetched wholesale.
	if !remoteSubtotal.IsZero() && !remoteSubtotal.Equal(next.Subtotal()) {
		s.lg.Info("Remote subtotal drift, refetching cart",
			zap.String("local", next.Subtotal().String()),
			zap.String("remote", remoteSubtotal.String()))
		if _, ferr := s.Fetch(ctx); ferr != nil {
			s.lg.Warn("Post-mutation cart refetch failed", zap.Error(ferr))
		}
	}

	return Mutation{Ok: true, Snapshot: next}, nil
}

// WatchExternal re-fetches the cart whenever the signal channel fires, e.g.
// when another tab changed the persisted cart. Best effort: fetch errors are
// logged and dropped. Returns when ctx is cancelled or signal closes.
func (s *Syncer) WatchExternal(ctx context.Context, signal <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signal:
			if !ok {
				return
			}
			if _, err := s.Fetch(ctx); err != nil {
				s.lg.Warn("External cart refresh failed", zap.Error(err))
			}
		}
	}
}

// Close shuts down the change topic.
func (s *Syncer) Close() {
	s.topic.Close()
}
