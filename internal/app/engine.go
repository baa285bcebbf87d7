// Package app wires the checkout engine together from configuration.
package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/mandir-kart/internal/backend"
	cartsync "github.com/xenking/mandir-kart/internal/cart"
	"github.com/xenking/mandir-kart/internal/checkout"
	couponmgr "github.com/xenking/mandir-kart/internal/coupon"
	domain "github.com/xenking/mandir-kart/internal/domain/cart"
	"github.com/xenking/mandir-kart/internal/guest"
	"github.com/xenking/mandir-kart/internal/localstore"
	"github.com/xenking/mandir-kart/internal/payment"
	"github.com/xenking/mandir-kart/internal/pricing"
)

// Engine bundles the wired checkout components. It is the single assembly
// point; embedding applications hold one Engine per signed-in session.
type Engine struct {
	Backend  *backend.Client
	Cart     *cartsync.Syncer
	Coupons  *couponmgr.Manager
	Payments *payment.Orchestrator
	Guest    *guest.Bridge
	Store    *localstore.Store
	Session  *checkout.Session
	Policy   pricing.Policy

	// GatewayKeyID is the publishable key the embedding application needs to
	// construct its vendor gateway client.
	GatewayKeyID string
}

// NewEngine creates all dependencies and starts the cross-tab watcher. The
// gateway client is injected by the embedding application since it owns the
// vendor UI integration.
func NewEngine(ctx context.Context, lg *zap.Logger, meter metric.Meter, cfg *Config, gw payment.Gateway) (*Engine, error) {
	lg.Info("Initializing checkout engine", zap.String("backend", cfg.Backend.URL))

	policy, err := cfg.Pricing.Policy()
	if err != nil {
		return nil, errors.Wrap(err, "pricing policy")
	}

	var metrics *Metrics
	if meter != nil {
		metrics, err = NewMetrics(meter)
		if err != nil {
			return nil, errors.Wrap(err, "create metrics")
		}
	}

	store, err := localstore.New(cfg.Store.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "open local store")
	}

	client := backend.NewClient(backend.ClientConfig{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
	})

	var cartMetrics cartsync.MetricsRecorder
	var paymentMetrics payment.MetricsRecorder
	if metrics != nil {
		cartMetrics = metrics
		paymentMetrics = metrics
	}

	syncer := cartsync.NewSyncer(client, cartMetrics, lg.Named("cart"))
	coupons := couponmgr.NewManager(client, lg.Named("coupon"))
	orchestrator := payment.NewOrchestrator(client, gw, coupons, paymentMetrics, payment.Config{
		Currency:          cfg.Gateway.Currency,
		GatewayTimeout:    cfg.Gateway.Timeout,
		RedirectCountdown: cfg.Gateway.RedirectCountdown,
	})
	bridge := guest.NewBridge(store, client, syncer, lg.Named("guest"))
	session := checkout.New(syncer, coupons, orchestrator, store, policy, lg.Named("checkout"))

	// Cross-tab consistency, both directions: every committed snapshot is
	// persisted to the cart mirror so other sessions sharing the store
	// directory see the change, and a mirror changed from outside triggers a
	// re-fetch of the authoritative cart.
	go mirrorCart(ctx, syncer.Subscribe(ctx), store, lg.Named("mirror"))
	poller := localstore.NewPoller(store, cfg.Store.PollInterval, lg.Named("poller"))
	go syncer.WatchExternal(ctx, poller.Watch(ctx))

	zctx.From(ctx).Debug("Checkout engine ready")
	return &Engine{
		Backend:      client,
		Cart:         syncer,
		Coupons:      coupons,
		Payments:     orchestrator,
		Guest:        bridge,
		Store:        store,
		Session:      session,
		Policy:       policy,
		GatewayKeyID: cfg.Gateway.KeyID,
	}, nil
}

// mirrorCart persists every committed snapshot so other sessions sharing the
// store directory observe the change through their pollers. Best effort.
func mirrorCart(ctx context.Context, snapshots <-chan domain.Snapshot, store *localstore.Store, lg *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := store.SaveCartMirror(snap); err != nil {
				lg.Warn("Cart mirror not saved", zap.Error(err))
			}
		}
	}
}
