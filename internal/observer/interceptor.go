package observer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// Interceptor pre-hides newly-created windows before they render at the
// app's default position. It runs on its own high-priority ticker outside
// the Core's action queue (spec §5's one bounded concurrency exception) and
// never mutates Core state: it only records which ids it has personally
// hidden in its own private set, and learns which ids the Core already
// knows about through a lock it shares with the Core — a "window cloak"
// service with no workspace knowledge of its own (spec §9).
type Interceptor struct {
	bridge   compositor.Bridge
	interval time.Duration
	logger   *slog.Logger

	mu            sync.Mutex
	coreKnown     map[wmstate.WindowID]struct{}
	interceptorHidden map[wmstate.WindowID]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewInterceptor builds an Interceptor. interval should match the Animator's
// tick (~8ms, spec §4.4) so a pre-hide lands before the first composited
// frame.
func NewInterceptor(bridge compositor.Bridge, interval time.Duration, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		bridge:            bridge,
		interval:          interval,
		logger:            logger,
		coreKnown:         make(map[wmstate.WindowID]struct{}),
		interceptorHidden: make(map[wmstate.WindowID]struct{}),
	}
}

// Run starts the background hide loop; blocks until ctx is cancelled.
func (in *Interceptor) Run(ctx context.Context, allWindows func() ([]wmstate.WindowID, error)) {
	ctx, cancel := context.WithCancel(ctx)
	in.cancel = cancel
	in.done = make(chan struct{})
	defer close(in.done)

	ticker := time.NewTicker(in.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			in.tick(allWindows)
		}
	}
}

func (in *Interceptor) tick(allWindows func() ([]wmstate.WindowID, error)) {
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("interceptor tick panicked", "recovered", r)
		}
	}()

	ids, err := allWindows()
	if err != nil {
		in.logger.Warn("interceptor: enumerate windows failed", "error", err)
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	for _, id := range ids {
		if _, acknowledged := in.coreKnown[id]; acknowledged {
			continue
		}
		if _, alreadyHidden := in.interceptorHidden[id]; alreadyHidden {
			continue
		}
		if err := in.bridge.SetAlpha(id, 0); err != nil {
			in.logger.Warn("interceptor: hide failed", "window", id, "error", err)
			continue
		}
		in.interceptorHidden[id] = struct{}{}
	}
}

// Acknowledge records that the Core has taken ownership of id — it has
// classified the window and will manage its alpha from here on. The
// interceptor stops touching it.
func (in *Interceptor) Acknowledge(id wmstate.WindowID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.coreKnown[id] = struct{}{}
	delete(in.interceptorHidden, id)
}

// Forget drops bookkeeping for a destroyed window from both sets.
func (in *Interceptor) Forget(id wmstate.WindowID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.coreKnown, id)
	delete(in.interceptorHidden, id)
}

// Close stops the background loop.
func (in *Interceptor) Close() {
	if in.cancel != nil {
		in.cancel()
	}
	if in.done != nil {
		<-in.done
	}
}
