// Package animator drives the two GPU-composited transitions tilewm uses on
// window birth and death: popin and popout. It is a three-state machine
// (idle, popin-active, close-active) ticking on a single ~8ms timer, with
// an idempotent cancel_all (spec §4.4, §9).
//
// Grounded on the teacher's internal/tiling/workspace.go PreviewLayout
// timer pattern (time.AfterFunc snapshot/restore) generalized from a
// one-shot delayed restore into a per-tick interpolation driver, and on the
// reconciler's ticker+deferred-recover shape for the run loop itself.
package animator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// Tick is the animator's timer resolution (spec §4.4, §5: "~8 ms").
const Tick = 8 * time.Millisecond

// Curve is a cubic bezier (x1, y1, x2, y2) with implicit endpoints (0,0) and
// (1,1), evaluated by binary-searching x to get the eased y for a given
// linear progress t.
type Curve struct {
	X1, Y1, X2, Y2 float64
}

var (
	// PopinCurve is the open curve (spec §4.3 retile semantics).
	PopinCurve = Curve{X1: 0.25, Y1: 1.0, X2: 0.5, Y2: 1.0}
	// PopoutCurve is the close curve (spec §4.3 close semantics).
	PopoutCurve = Curve{X1: 0.5, Y1: 0.5, X2: 0.75, Y2: 1.0}
)

func cubicBezier(t, p1, p2 float64) float64 {
	mt := 1 - t
	return 3*mt*mt*t*p1 + 3*mt*t*t*p2 + t*t*t
}

// Ease returns the eased y value for linear progress t in [0,1], found by
// bisecting x(t) = c.X1/X2 curve for the t whose x matches the input.
func (c Curve) Ease(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	lo, hi := 0.0, 1.0
	for i := 0; i < 24; i++ {
		mid := (lo + hi) / 2
		x := cubicBezier(mid, c.X1, c.X2)
		if x < t {
			lo = mid
		} else {
			hi = mid
		}
	}
	mid := (lo + hi) / 2
	return cubicBezier(mid, c.Y1, c.Y2)
}

const (
	popinDuration     = 500 * time.Millisecond
	popinSettleDelay  = 80 * time.Millisecond
	popinScaleFrom    = 0.80
	popoutDuration    = 200 * time.Millisecond
	popoutScaleTo     = 0.80
)

// State names the animator's three states.
type State int

const (
	Idle State = iota
	PopinActive
	CloseActive
)

type popinJob struct {
	id       wmstate.WindowID
	target   geom.Rect
	start    time.Time
	settling bool
}

type closeJob struct {
	id       wmstate.WindowID
	frame    geom.Rect
	start    time.Time
	onDone   func()
	finished bool
}

// Animator is the single process-wide animation driver.
type Animator struct {
	bridge compositor.Bridge
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	popins   map[wmstate.WindowID]*popinJob
	closes   map[wmstate.WindowID]*closeJob
	ticker   *time.Ticker
	stopOnce sync.Once
	stop     chan struct{}
}

// New builds an Animator bound to a compositor Bridge.
func New(bridge compositor.Bridge, logger *slog.Logger) *Animator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Animator{
		bridge: bridge,
		logger: logger,
		popins: make(map[wmstate.WindowID]*popinJob),
		closes: make(map[wmstate.WindowID]*closeJob),
		stop:   make(chan struct{}),
	}
	a.ticker = time.NewTicker(Tick)
	go a.run()
	return a
}

func (a *Animator) run() {
	for {
		select {
		case <-a.stop:
			a.ticker.Stop()
			return
		case now := <-a.ticker.C:
			a.tick(now)
		}
	}
}

func (a *Animator) tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("animator tick panicked", "recovered", r)
		}
	}()

	a.mu.Lock()
	popins := make([]*popinJob, 0, len(a.popins))
	for _, j := range a.popins {
		popins = append(popins, j)
	}
	closes := make([]*closeJob, 0, len(a.closes))
	for _, j := range a.closes {
		closes = append(closes, j)
	}
	a.mu.Unlock()

	for _, j := range popins {
		a.stepPopin(j, now)
	}
	for _, j := range closes {
		a.stepClose(j, now)
	}

	a.mu.Lock()
	if len(a.popins) == 0 && len(a.closes) == 0 {
		a.state = Idle
	}
	a.mu.Unlock()
}

func (a *Animator) stepPopin(j *popinJob, now time.Time) {
	elapsed := now.Sub(j.start)
	if elapsed < popinSettleDelay {
		return
	}
	t := float64(elapsed-popinSettleDelay) / float64(popinDuration)
	done := t >= 1
	if done {
		t = 1
	}
	eased := PopinCurve.Ease(t)
	scale := popinScaleFrom + (1.0-popinScaleFrom)*eased
	alpha := eased

	if err := a.bridge.SetTransform(j.id, scale, alpha, j.target); err != nil {
		a.logger.Warn("animator: popin transform failed", "window", j.id, "error", err)
	}

	if done {
		a.finishPopin(j.id)
	}
}

func (a *Animator) finishPopin(id wmstate.WindowID) {
	a.mu.Lock()
	j, ok := a.popins[id]
	if ok {
		delete(a.popins, id)
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	if err := a.bridge.SetFrame(id, j.target); err != nil {
		a.logger.Warn("animator: popin final frame failed", "window", id, "error", err)
	}
	if err := a.bridge.SetAlpha(id, 1); err != nil {
		a.logger.Warn("animator: popin final alpha failed", "window", id, "error", err)
	}
}

func (a *Animator) stepClose(j *closeJob, now time.Time) {
	if j.finished {
		return
	}
	t := float64(now.Sub(j.start)) / float64(popoutDuration)
	done := t >= 1
	if done {
		t = 1
	}
	eased := PopoutCurve.Ease(t)
	scale := 1.0 - (1.0-popoutScaleTo)*eased
	alpha := 1.0 - eased

	if err := a.bridge.SetTransform(j.id, scale, alpha, j.frame); err != nil {
		a.logger.Warn("animator: popout transform failed", "window", j.id, "error", err)
	}

	if done {
		a.finishClose(j)
	}
}

func (a *Animator) finishClose(j *closeJob) {
	a.mu.Lock()
	if j.finished {
		a.mu.Unlock()
		return
	}
	j.finished = true
	delete(a.closes, j.id)
	onDone := j.onDone
	a.mu.Unlock()

	if onDone != nil {
		onDone()
	}
}

// StartPopin begins a popin transition for id, targeting target, after the
// ~80ms settle delay (spec §4.3 retile semantics).
func (a *Animator) StartPopin(id wmstate.WindowID, target geom.Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = PopinActive
	a.popins[id] = &popinJob{id: id, target: target, start: time.Now()}
}

// StartClose begins a popout transition for id at its current frame,
// invoking onDone exactly once when the animation completes (spec §4.3
// close semantics: "invoke the compositor's press close button action").
func (a *Animator) StartClose(id wmstate.WindowID, frame geom.Rect, onDone func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = CloseActive
	a.closes[id] = &closeJob{id: id, frame: frame, start: time.Now(), onDone: onDone}
}

// CancelAll idempotently resets every in-flight animation's transform and
// alpha to identity/1 and invokes any pending close-completion callback
// exactly once (spec §4.4, §5 cancellation).
func (a *Animator) CancelAll() {
	a.mu.Lock()
	popins := a.popins
	closes := a.closes
	a.popins = make(map[wmstate.WindowID]*popinJob)
	a.closes = make(map[wmstate.WindowID]*closeJob)
	a.state = Idle
	a.mu.Unlock()

	for id, j := range popins {
		if err := a.bridge.SetFrame(id, j.target); err != nil {
			a.logger.Warn("animator: cancel popin frame failed", "window", id, "error", err)
		}
		if err := a.bridge.SetAlpha(id, 1); err != nil {
			a.logger.Warn("animator: cancel popin alpha failed", "window", id, "error", err)
		}
	}
	for _, j := range closes {
		if j.finished {
			continue
		}
		j.finished = true
		if err := a.bridge.SetAlpha(j.id, 1); err != nil {
			a.logger.Warn("animator: cancel close alpha failed", "window", j.id, "error", err)
		}
		if j.onDone != nil {
			j.onDone()
		}
	}
}

// State reports the animator's current state.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Close stops the timer goroutine permanently.
func (a *Animator) Close() {
	a.stopOnce.Do(func() {
		close(a.stop)
	})
}
