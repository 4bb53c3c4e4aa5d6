// Package observer implements the WindowObserver collaborator: it watches
// the compositor for window lifecycle and focus changes and emits a typed
// event sum type the Core dispatches on (spec §9 "callback-based observer
// delegation" — modeled as a channel of events, not a callback interface).
//
// Grounded on the teacher's internal/daemon/reconciler.go ticker-driven
// poll loop (interval, deferred-recover reconcile pass, orphan detection via
// a set diff) generalized from "detect orphaned tmux sessions" to "detect
// window create/destroy/focus-change by diffing compositor snapshots".
package observer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// EventKind discriminates the Event sum type.
type EventKind int

const (
	WindowCreated EventKind = iota
	WindowDestroyed
	FocusChanged
	AppActivated
	AppTerminated
)

// Event is one observer notification. Only the fields relevant to Kind are
// populated.
type Event struct {
	Kind     EventKind
	WindowID wmstate.WindowID
	PID      int
	AppName  string
	BundleID string
}

// Observer emits window lifecycle events and supports pause/resume, which
// must be re-entrant-safe through the Core's single action queue (spec
// §4.3 failure model).
type Observer interface {
	Events() <-chan Event
	Pause()
	Resume()
	Close()
}

// WindowInfo is what the poller needs to know about a live window beyond its
// id, supplied by a lookup function the caller wires to process/X11 queries.
type WindowInfo struct {
	PID      int
	AppName  string
	BundleID string
}

// InfoLookup resolves a window id to its owning process/app. Returns
// ok=false if the window no longer exists or the lookup failed — the
// caller treats that as bridge-transient and skips the window this tick.
type InfoLookup func(id wmstate.WindowID) (WindowInfo, bool)

// Poller is a polling Observer: each tick it lists windows on every display
// via the Bridge and diffs against the previously known set. It also tracks
// the compositor's active window to emit FocusChanged.
type Poller struct {
	bridge   compositor.Bridge
	lookup   InfoLookup
	interval time.Duration
	logger   *slog.Logger

	events chan Event

	mu        sync.Mutex
	paused    bool
	known     map[wmstate.WindowID]WindowInfo
	focused   wmstate.WindowID
	hasFocus  bool
	activePID int
	appPIDs   map[int]string
	pidAlive  func(pid int) bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a Poller. interval is typically short (the teacher uses
// 10s for orphan reconciliation at daemon scope; window create/destroy
// detection here runs faster, 150ms in the daemon, to keep perceived
// latency low).
func NewPoller(bridge compositor.Bridge, lookup InfoLookup, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		bridge:   bridge,
		lookup:   lookup,
		interval: interval,
		logger:   logger,
		events:   make(chan Event, 64),
		known:    make(map[wmstate.WindowID]WindowInfo),
		appPIDs:  make(map[int]string),
		pidAlive: pidAlive,
		done:     make(chan struct{}),
	}
}

// Done returns a channel that closes once Run has returned.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Run starts the poll loop; it blocks until ctx is cancelled or Close is
// called.
func (p *Poller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Poller) tick() {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("observer poll panicked", "recovered", r)
		}
	}()

	p.mu.Lock()
	if p.paused {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	displays, err := p.bridge.Displays()
	if err != nil {
		p.logger.Warn("observer: list displays failed", "error", err)
		return
	}

	current := make(map[wmstate.WindowID]WindowInfo)
	for _, d := range displays {
		ids, err := p.bridge.ListWindows(d)
		if err != nil {
			p.logger.Warn("observer: list windows failed", "display", d.ID, "error", err)
			continue
		}
		for _, id := range ids {
			info, ok := p.lookup(id)
			if !ok {
				continue
			}
			current[id] = info
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for id, info := range current {
		if _, known := p.known[id]; !known {
			p.emit(Event{Kind: WindowCreated, WindowID: id, PID: info.PID, AppName: info.AppName, BundleID: info.BundleID})
		}
		if info.PID > 0 {
			p.appPIDs[info.PID] = info.AppName
		}
	}
	for id, info := range p.known {
		if _, stillThere := current[id]; !stillThere {
			p.emit(Event{Kind: WindowDestroyed, WindowID: id, PID: info.PID, AppName: info.AppName})
		}
	}
	p.known = current

	if active, ok, err := p.bridge.ActiveWindow(); err == nil && ok {
		if !p.hasFocus || active != p.focused {
			p.focused, p.hasFocus = active, true
			p.emit(Event{Kind: FocusChanged, WindowID: active})
			if info, ok := current[active]; ok && info.PID > 0 && info.PID != p.activePID {
				p.activePID = info.PID
				p.emit(Event{Kind: AppActivated, PID: info.PID, AppName: info.AppName})
			}
		}
	}

	liveAppPIDs := make(map[int]struct{}, len(current))
	for _, info := range current {
		if info.PID > 0 {
			liveAppPIDs[info.PID] = struct{}{}
		}
	}
	for pid := range p.appPIDs {
		if _, hasWindow := liveAppPIDs[pid]; hasWindow {
			continue
		}
		if !p.pidAlive(pid) {
			p.terminatePIDLocked(pid)
		}
	}
}

// pidAlive reports whether a process is still running, the same /proc
// existence check the Core's ProcfsProcessTree uses for parent-chain walks.
func pidAlive(pid int) bool {
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

func (p *Poller) emit(e Event) {
	select {
	case p.events <- e:
	default:
		p.logger.Warn("observer: event channel full, dropping event", "kind", e.Kind)
	}
}

func (p *Poller) Events() <-chan Event { return p.events }

// Pause stops emitting events. Already-queued events remain until read; new
// ticks are no-ops until Resume.
func (p *Poller) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume re-enables polling and immediately replays a single poll so state
// catches up without waiting for the next tick (spec §5: "resume replays by
// a single poll").
func (p *Poller) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.tick()
}

// Close stops the poll loop and waits for it to exit.
func (p *Poller) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		<-p.done
	}
	close(p.events)
}

// TerminateByPID synthesizes AppTerminated + a WindowDestroyed for every
// window belonging to pid still in the known set (spec §3 lifecycle:
// "Terminate: app termination cascades destroy to every window of that
// pid"). tick() calls this itself once a pid's /proc entry disappears;
// exported for callers with an earlier process-exit signal (e.g. a parent
// process reaping a direct child).
func (p *Poller) TerminateByPID(pid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pid <= 0 {
		return fmt.Errorf("observer: invalid pid %d", pid)
	}
	p.terminatePIDLocked(pid)
	return nil
}

// terminatePIDLocked is TerminateByPID's body, callable while p.mu is
// already held (tick holds it for the whole poll pass).
func (p *Poller) terminatePIDLocked(pid int) {
	p.emit(Event{Kind: AppTerminated, PID: pid})
	for id, info := range p.known {
		if info.PID == pid {
			p.emit(Event{Kind: WindowDestroyed, WindowID: id, PID: pid, AppName: info.AppName})
			delete(p.known, id)
		}
	}
	delete(p.appPIDs, pid)
}
