package localstore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Poller watches the store files for external modification (e.g. another
// browser tab writing the cart mirror) and emits a signal on change.
// Propagation is best effort and bounded by the poll interval.
type Poller struct {
	store    *Store
	interval time.Duration
	lg       *zap.Logger
}

// NewPoller creates a Poller. interval <= 0 defaults to one second.
func NewPoller(store *Store, interval time.Duration, lg *zap.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Poller{store: store, interval: interval, lg: lg}
}

// Watch polls file modification times until ctx is cancelled. The returned
// channel fires once per observed change and is closed on shutdown.
func (p *Poller) Watch(ctx context.Context) <-chan struct{} {
	signal := make(chan struct{}, 1)

	go func() {
		defer close(signal)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		last := p.stamp()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current := p.stamp()
				if current == last {
					continue
				}
				last = current
				select {
				case signal <- struct{}{}:
				default:
					// A signal is already pending; coalesce.
				}
			}
		}
	}()

	return signal
}

// stamp summarizes the mtimes of all store files.
func (p *Poller) stamp() string {
	var out string
	for _, name := range []string{guestCartFile, cartMirrorFile, orderInProgressFile} {
		info, err := os.Stat(filepath.Join(p.store.dir, name))
		if err != nil {
			out += name + ":absent;"
			continue
		}
		out += name + ":" + info.ModTime().UTC().Format(time.RFC3339Nano) + ";"
	}
	return out
}
