// Package router is the EventRouter collaborator (spec §4.3): it owns every
// X11 key and pointer grab and translates them into action.Action values
// fed to the Core's single Handle entry point. Drag-to-resize and
// drag-to-reorder are recognized here, not in the Core, since only the
// router sees raw pointer motion.
//
// Grounded on the teacher's internal/hotkeys package: keybind.KeyPressFun
// per binding, an IgnoreMods set computed once from the live Num_Lock/
// Scroll_Lock/CapsLock masks so a binding still fires regardless of lock
// key state, and the BurntSushi/xgbutil/mousebind package (the same xgbutil
// family the teacher already depends on) for the divider-drag and
// reorder-drag gestures the teacher has no analog for.
package router

import (
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/hatchwm/tilewm/internal/action"
	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/config"
	"github.com/hatchwm/tilewm/internal/core"
	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// dividerProximityPx is how close a drag's start point must be to a tile
// boundary for the router to treat it as a resize rather than a reorder
// (spec §4.3 drag-to-resize, deferred from the Core to the router since
// only the router owns raw pointer coordinates).
const dividerProximityPx = 20

// Router owns the X11 key/pointer grabs for one connection and dispatches
// resolved Actions into the Core.
type Router struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	bridge compositor.Bridge
	core   *core.Core
	logger *slog.Logger

	bindings []config.Binding

	dragFrom     wmstate.WindowID
	dragIsResize bool
}

// New builds a Router bound to conn and wires it into core. bindings is the
// resolved set from config.Config.Bindings (or config.DefaultBindings()).
func New(conn *compositor.Connection, bridge compositor.Bridge, c *core.Core, bindings []config.Binding, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		xu:       conn.XUtil,
		root:     conn.Root,
		bridge:   bridge,
		core:     c,
		logger:   logger,
		bindings: bindings,
	}
}

// Register grabs every configured key binding and the pointer drag buttons
// used for divider-resize and tile-reorder gestures.
func (r *Router) Register() error {
	r.configureIgnoreMods()

	for _, b := range r.bindings {
		act := b.Action
		seq := sequenceString(b.Mods, b.Key)
		if err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
			if err := r.core.Handle(act); err != nil {
				r.logger.Warn("router: handle action failed", "action", act.Kind, "error", err)
			}
		}).Connect(r.xu, r.root, seq, true); err != nil {
			return err
		}
	}

	mousebind.Drag(r.xu, r.root, r.root, "Control-1", true,
		r.dragBegin, r.dragStep, r.dragEnd)
	return nil
}

func sequenceString(mods []string, key string) string {
	seq := ""
	for _, m := range mods {
		seq += m + "-"
	}
	return seq + key
}

func (r *Router) dragBegin(xu *xgbutil.XUtil, rx, ry, ex, ey int) (bool, xproto.Cursor) {
	id, ok, err := r.bridge.ActiveWindow()
	if err != nil || !ok {
		return false, 0
	}
	frame, err := r.bridge.FrameOf(id)
	if err != nil {
		return false, 0
	}
	r.dragFrom = id
	r.dragIsResize = nearDivider(frame, ex)
	return true, 0
}

func (r *Router) dragStep(xu *xgbutil.XUtil, rx, ry, ex, ey int) {
	if !r.dragIsResize {
		return
	}
	display, err := r.bridge.ActiveDisplay()
	if err != nil {
		return
	}
	width := display.Region.Width
	if width == 0 {
		width = geom.MinWidth
	}
	ratio := float64(ex-display.Region.X) / float64(width)
	a := action.Action{Kind: action.DragResize, DragDeltaRatio: ratio, DragFromWindow: r.dragFrom}
	if err := r.core.Handle(a); err != nil {
		r.logger.Warn("router: handle drag_resize failed", "error", err)
	}
}

func (r *Router) dragEnd(xu *xgbutil.XUtil, rx, ry, ex, ey int) {
	if r.dragIsResize {
		r.dragFrom = 0
		return
	}
	to, err := r.targetWindowAt(ex, ey)
	if err != nil || to == 0 || to == r.dragFrom {
		r.dragFrom = 0
		return
	}
	a := action.Action{Kind: action.DragReorder, DragFromWindow: r.dragFrom, DragToWindow: to}
	if err := r.core.Handle(a); err != nil {
		r.logger.Warn("router: handle drag_reorder failed", "error", err)
	}
	r.dragFrom = 0
}

// targetWindowAt finds the tiled window whose frame contains (x, y), used
// to resolve a reorder drag's drop target.
func (r *Router) targetWindowAt(x, y int) (wmstate.WindowID, error) {
	display, err := r.bridge.ActiveDisplay()
	if err != nil {
		return 0, err
	}
	ids, err := r.bridge.ListWindows(display)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		frame, err := r.bridge.FrameOf(id)
		if err != nil {
			continue
		}
		if x >= frame.X && x < frame.X+frame.Width && y >= frame.Y && y < frame.Y+frame.Height {
			return id, nil
		}
	}
	return 0, nil
}

// nearDivider reports whether x falls within dividerProximityPx of frame's
// left or right edge, the signal that a drag starting there is a resize of
// the shared divider rather than a reorder grab on the tile body.
func nearDivider(frame geom.Rect, x int) bool {
	left := abs(x - frame.X)
	right := abs(x - (frame.X + frame.Width))
	return left <= dividerProximityPx || right <= dividerProximityPx
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (r *Router) configureIgnoreMods() {
	caps := uint16(xproto.ModMaskLock)
	numLock := modMaskForKeysym(r.xu, "Num_Lock")
	scrollLock := modMaskForKeysym(r.xu, "Scroll_Lock")

	unique := map[uint16]struct{}{0: {}}
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
