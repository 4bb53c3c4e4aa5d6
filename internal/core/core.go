// Package core implements the WindowManager state machine (spec §2 Core,
// ~55% component): the authoritative model of tracked windows and
// workspaces, the classification/retile/close/switch/scrolling/marks/
// minimize/focus rules, and the single entry point — Handle — that every
// action source (EventRouter, CLI-over-IPC, the automation MCP server)
// funnels through.
//
// Grounded on the teacher's internal/tiling/workspace.go (the Tiler type:
// one mutex-protected struct owning layout state, a PreviewLayout timer,
// and a single set of mutating methods) generalized from "one tmux session's
// pane layout" to "one monitor's per-workspace tiled/floating/fullscreen
// state", and on internal/daemon/reconciler.go for the startup/periodic
// orphan-reconciliation shape.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hatchwm/tilewm/internal/action"
	"github.com/hatchwm/tilewm/internal/animator"
	"github.com/hatchwm/tilewm/internal/border"
	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/config"
	"github.com/hatchwm/tilewm/internal/dimmer"
	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/layout"
	"github.com/hatchwm/tilewm/internal/observer"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// OrphanVisibleThreshold is the "≤3px visible" rule for detecting a window
// left at the hidden-position frame by a crashed prior run (spec §4.3,
// §8 boundaries).
const OrphanVisibleThreshold = 3

// Core is the single owned root object the daemon constructs at process
// start (spec §9: "model as a single owned root object ... do not use
// ambient global mutable state").
type Core struct {
	store  *wmstate.Store
	bridge compositor.Bridge
	anim   *animator.Animator
	border *border.Renderer // nil if disabled
	dim    *dimmer.Dimmer   // nil if dim_unfocused == 0
	tree   ProcessTree
	logger *slog.Logger

	mu           sync.Mutex
	cfg          *config.Config
	rules        *rules
	inAutoSwitch bool
	observerHandle observerHandle

	// hiddenFrames remembers each hidden workspace's floating/fullscreen
	// windows' true on-screen geometry at the moment switch_workspace hid
	// them, keyed by (monitor, workspace). TrackedWindow.LastFrame gets
	// overwritten with the off-screen hidden frame for the duration of the
	// hide (other call sites rely on LastFrame's width/height for exactly
	// that), so switching back reads the real frame from here instead of
	// the clobbered LastFrame (spec §4.3 switch_workspace step 8, and the
	// switch-then-switch-back round-trip invariant).
	hiddenFrames map[hiddenFramesKey]map[wmstate.WindowID]geom.Rect

	// interceptAck/interceptForget wire the Core to the Interceptor's
	// "window cloak" handoff (spec §9): acknowledging an id tells the
	// interceptor to stop touching it; forgetting clears both sets on
	// destroy.
	interceptAck    func(wmstate.WindowID)
	interceptForget func(wmstate.WindowID)
}

// New builds a Core. borderR and dim may be nil (disabled collaborators).
func New(bridge compositor.Bridge, anim *animator.Animator, borderR *border.Renderer, dim *dimmer.Dimmer, cfg *config.Config, tree ProcessTree, logger *slog.Logger) (*Core, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r, errs := newRules(cfg)
	for _, e := range errs {
		logger.Warn("core: app_rules entry skipped", "error", e)
	}
	return &Core{
		store:        wmstate.NewStore(),
		bridge:       bridge,
		anim:         anim,
		border:       borderR,
		dim:          dim,
		tree:         tree,
		logger:       logger,
		cfg:          cfg,
		rules:        r,
		hiddenFrames: make(map[hiddenFramesKey]map[wmstate.WindowID]geom.Rect),
	}, nil
}

// hiddenFramesKey identifies one monitor's one workspace for hiddenFrames.
type hiddenFramesKey struct {
	monitor wmstate.MonitorID
	n       wmstate.WorkspaceNumber
}

// Store exposes the read side of the workspace model for the inspector TUI
// and the automation MCP server. They must not mutate it directly.
func (c *Core) Store() *wmstate.Store { return c.store }

// SetInterceptorHooks wires the Core to the Interceptor's handoff protocol.
// Called once during daemon wiring.
func (c *Core) SetInterceptorHooks(ack, forget func(wmstate.WindowID)) {
	c.interceptAck, c.interceptForget = ack, forget
}

// SetConfig hot-swaps the compiled rule set after a config reload (the
// action.ReloadConfig handler calls this with a freshly Load()ed config).
func (c *Core) SetConfig(cfg *config.Config) []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, errs := newRules(cfg)
	c.cfg = cfg
	c.rules = r
	if c.dim != nil {
		if cfg.Layout.DimUnfocused <= 0 {
			_ = c.dim.Reset()
		}
		c.dim.SetOffset(cfg.Layout.DimUnfocused)
	}
	if c.border != nil {
		_ = c.border.SetEnabled(cfg.Border.Enabled)
	}
	return errs
}

func (c *Core) acknowledge(id wmstate.WindowID) {
	if c.interceptAck != nil {
		c.interceptAck(id)
	}
}

func (c *Core) forget(id wmstate.WindowID) {
	if c.interceptForget != nil {
		c.interceptForget(id)
	}
}

// activeMonitor is a placeholder for full multi-monitor dispatch: callers
// that don't already know which monitor an action targets resolve it via
// the bridge's ActiveDisplay.
func (c *Core) activeMonitor() (compositor.Display, error) {
	return c.bridge.ActiveDisplay()
}

// tileRegion returns the region the LayoutEngine should tile into: the
// display region inset by outer_gap on all sides.
func (c *Core) tileRegion(d compositor.Display) geom.Rect {
	g := c.cfg.Layout.OuterGap
	return geom.Rect{
		X:      d.Region.X + g,
		Y:      d.Region.Y + g,
		Width:  d.Region.Width - 2*g,
		Height: d.Region.Height - 2*g,
	}
}

// hiddenFrame is the well-defined off-screen position (spec §3 invariant 6,
// §8: "≤3px visible"): bottom-right corner of the display, 1px visible.
func hiddenFrame(d compositor.Display, w, h int) geom.Rect {
	return geom.Rect{
		X:      d.Region.X + d.Region.Width - 1,
		Y:      d.Region.Y + d.Region.Height - 1,
		Width:  w,
		Height: h,
	}
}

// Handle is the Core's single entry point: every key binding, CLI command
// and automation call funnels an Action through here (spec §9 "Action as a
// sum type").
func (c *Core) Handle(a action.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.activeMonitor()
	if err != nil {
		return fmt.Errorf("core: resolve active display: %w", err)
	}
	monitor := d.ID
	ws := c.store.ActiveWorkspace(monitor)

	switch a.Kind {
	case action.FocusLeft, action.FocusRight, action.FocusUp, action.FocusDown:
		return c.focusDirection(d, ws, dirForKind(a.Kind))
	case action.FocusNext:
		return c.focusCycle(ws, +1)
	case action.FocusPrev:
		return c.focusCycle(ws, -1)
	case action.SwapMaster:
		return c.swapMaster(d, ws)
	case action.RotateNext:
		return c.rotate(d, ws, +1)
	case action.RotatePrev:
		return c.rotate(d, ws, -1)
	case action.CycleLayout:
		return c.cycleLayout(d, ws)
	case action.ToggleFloat:
		return c.toggleFloat(d, ws)
	case action.ToggleFullscreen:
		return c.toggleFullscreen(d, ws)
	case action.Close:
		return c.closeFocused(d, ws)
	case action.Retile:
		return c.retile(d, ws, nil)
	case action.ReloadConfig:
		return nil // daemon wiring calls SetConfig directly after Load
	case action.PositionLeft, action.PositionRight, action.PositionUp, action.PositionDown, action.PositionFill, action.PositionCenter:
		return c.positionFocused(d, ws, a.Kind)
	case action.IncreaseGap:
		c.cfg.Layout.InnerGap += 2
		return c.retile(d, ws, nil)
	case action.DecreaseGap:
		if c.cfg.Layout.InnerGap >= 2 {
			c.cfg.Layout.InnerGap -= 2
		}
		return c.retile(d, ws, nil)
	case action.GrowFocused:
		ws.SplitRatio = layout.ClampSplitRatio(ws.SplitRatio + 0.05)
		return c.retile(d, ws, nil)
	case action.ShrinkFocused:
		ws.SplitRatio = layout.ClampSplitRatio(ws.SplitRatio - 0.05)
		return c.retile(d, ws, nil)
	case action.SwitchWorkspace:
		return c.switchWorkspace(monitor, a.Workspace)
	case action.MoveToWorkspace:
		return c.moveToWorkspace(d, ws, a.Workspace)
	case action.Minimize:
		return c.toggleMinimize(d, ws)
	case action.SetMark:
		return c.setMark(ws, a.MarkKey)
	case action.JumpMark:
		return c.jumpMark(a.MarkKey)
	case action.NiriConsume:
		return c.niriConsume(d, ws)
	case action.NiriExpel:
		return c.niriExpel(d, ws)
	case action.PreviewLayout:
		return c.previewLayout(d, ws)
	case action.DragResize:
		ws.SplitRatio = layout.ClampSplitRatio(a.DragDeltaRatio)
		return c.retile(d, ws, nil)
	case action.DragReorder:
		return c.dragReorder(d, ws, a.DragFromWindow, a.DragToWindow)
	case action.FocusMonitorLeft, action.FocusMonitorRight, action.MoveToMonitorLeft, action.MoveToMonitorRight:
		return c.monitorAction(d, ws, a)
	default:
		return fmt.Errorf("core: unhandled action kind %q", a.Kind)
	}
}

func dirForKind(k action.Kind) layout.Direction {
	switch k {
	case action.FocusLeft:
		return layout.DirLeft
	case action.FocusRight:
		return layout.DirRight
	case action.FocusUp:
		return layout.DirUp
	default:
		return layout.DirDown
	}
}

// retile recomputes frames for ws's tiled windows (and, in scrolling mode,
// its columns) and issues a batched frame update. If popinFor is non-nil,
// that single window's transition is animated via the Animator's popin
// instead of a direct SetFrame (spec §4.3 retile semantics, §4.4: "position
// moves are NOT animated" except the new-window popin).
func (c *Core) retile(d compositor.Display, ws *wmstate.VirtualWorkspace, popinFor *wmstate.WindowID) error {
	region := c.tileRegion(d)

	if c.cfg.Layout.TilingMode == config.TilingModeNiri {
		if err := c.retileScrolling(d, ws, region, popinFor); err != nil {
			return err
		}
	} else {
		frames := layout.MasterStackFrames(region, len(ws.Tiled), ws.LayoutVariant, c.cfg.Layout.InnerGap, c.cfg.Layout.SingleWindowPadding, ws.SplitRatio)
		if err := c.bridge.BeginBatch(); err != nil {
			c.logger.Warn("core: begin batch failed", "error", err)
		}
		for i, id := range ws.Tiled {
			frame := frames[i]
			if popinFor != nil && id == *popinFor && c.anim != nil {
				c.anim.StartPopin(id, frame)
			} else if err := c.bridge.SetFrame(id, frame); err != nil {
				c.logger.Warn("core: retile set frame failed (bridge-transient)", "window", id, "error", err)
			}
			if tw, ok := ws.Tracked[id]; ok {
				tw.LastFrame = frame
			}
		}
		if err := c.bridge.EndBatch(); err != nil {
			c.logger.Warn("core: end batch failed", "error", err)
		}
	}

	c.updateCollaborators(ws)
	return nil
}

func (c *Core) retileScrolling(d compositor.Display, ws *wmstate.VirtualWorkspace, region geom.Rect, popinFor *wmstate.WindowID) error {
	specs := make([]layout.ColumnSpec, len(ws.ScrollingColumns))
	for i, col := range ws.ScrollingColumns {
		specs[i] = layout.ColumnSpec{WindowCount: len(col.Windows), WidthOverride: col.WidthOverride}
	}
	layouts := layout.ScrollingColumnFrames(region, specs, ws.ActiveColumnIndex, c.cfg.Layout.NiriColumnWidth, c.cfg.Layout.InnerGap)

	if err := c.bridge.BeginBatch(); err != nil {
		c.logger.Warn("core: begin batch failed", "error", err)
	}
	for i, cl := range layouts {
		col := ws.ScrollingColumns[i]
		for row, slot := range cl.Windows {
			if row >= len(col.Windows) {
				continue
			}
			id := col.Windows[row]
			if !cl.Visible {
				if err := c.bridge.SetAlpha(id, 0); err != nil {
					c.logger.Warn("core: hide offscreen column failed", "window", id, "error", err)
				}
				continue
			}
			if popinFor != nil && id == *popinFor && c.anim != nil {
				c.anim.StartPopin(id, slot.Frame)
			} else {
				if err := c.bridge.SetFrame(id, slot.Frame); err != nil {
					c.logger.Warn("core: retile set frame failed (bridge-transient)", "window", id, "error", err)
				}
				if err := c.bridge.SetAlpha(id, 1); err != nil {
					c.logger.Warn("core: restore alpha failed", "window", id, "error", err)
				}
			}
			if tw, ok := ws.Tracked[id]; ok {
				tw.LastFrame = slot.Frame
			}
		}
	}
	if err := c.bridge.EndBatch(); err != nil {
		c.logger.Warn("core: end batch failed", "error", err)
	}
	return nil
}

// updateCollaborators refreshes the border and dimmer at the tail of any
// focus or layout change (spec §2: "Dimming/border is recomputed at the
// tail of any focus or layout change").
func (c *Core) updateCollaborators(ws *wmstate.VirtualWorkspace) {
	if c.border != nil {
		if ws.Focused != nil {
			if tw, ok := ws.Tracked[*ws.Focused]; ok {
				if err := c.border.Update(tw.LastFrame); err != nil {
					c.logger.Warn("core: border update failed", "error", err)
				}
			}
		} else if err := c.border.Hide(); err != nil {
			c.logger.Warn("core: border hide failed", "error", err)
		}
	}
	if c.dim != nil {
		var focused wmstate.WindowID
		if ws.Focused != nil {
			focused = *ws.Focused
		}
		if err := c.dim.Apply(ws.Tiled, focused); err != nil {
			c.logger.Warn("core: dimmer apply failed", "error", err)
		}
	}
}

// focusWindow sets ws.Focused, asks the bridge to move input focus, and
// refreshes border/dimmer.
func (c *Core) focusWindow(ws *wmstate.VirtualWorkspace, id wmstate.WindowID) error {
	ws.Focused = &id
	if err := c.bridge.FocusWithoutActivating(id); err != nil {
		c.logger.Warn("core: focus failed (bridge-transient)", "window", id, "error", err)
	}
	c.updateCollaborators(ws)
	return nil
}

// ReconcileOrphans runs the startup orphan-restore scan (spec §4.3: "every
// window currently in the compositor that is at or near a hidden-position
// frame is assumed orphaned ... restored to a centered quarter-screen
// frame"), grounded on the teacher's daemon.Reconciler ticker pass,
// repurposed from "tmux session" orphan detection to "hidden-position
// window" orphan detection. Each orphan only gets its frame and alpha
// restored; it is not re-adopted into the Store.
func (c *Core) ReconcileOrphans() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.activeMonitor()
	if err != nil {
		return fmt.Errorf("core: reconcile: active display: %w", err)
	}
	ids, err := c.bridge.ListWindows(d)
	if err != nil {
		return fmt.Errorf("core: reconcile: list windows: %w", err)
	}
	for _, id := range ids {
		frame, err := c.bridge.FrameOf(id)
		if err != nil {
			continue
		}
		visibleX := d.Region.X + d.Region.Width - frame.X
		visibleY := d.Region.Y + d.Region.Height - frame.Y
		if visibleX > OrphanVisibleThreshold || visibleY > OrphanVisibleThreshold {
			continue
		}
		restored := geom.Rect{
			X:      d.Region.X + d.Region.Width/4,
			Y:      d.Region.Y + d.Region.Height/4,
			Width:  d.Region.Width / 2,
			Height: d.Region.Height / 2,
		}
		if err := c.bridge.SetFrame(id, restored); err != nil {
			c.logger.Warn("core: reconcile restore frame failed", "window", id, "error", err)
			continue
		}
		if err := c.bridge.SetAlpha(id, 1); err != nil {
			c.logger.Warn("core: reconcile restore alpha failed", "window", id, "error", err)
		}
		c.logger.Info("core: restored orphaned window", "window", id)
	}
	return nil
}

// RunReconciler starts the low-frequency (10s) reconciliation pass: every
// interval it re-runs ReconcileOrphans, recovering from a panic in a pass.
// It does not detect or re-adopt windows the observer lost track of.
func (c *Core) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("core: reconciler panicked", "recovered", r)
					}
				}()
				if err := c.ReconcileOrphans(); err != nil {
					c.logger.Warn("core: reconcile pass failed", "error", err)
				}
			}()
		}
	}
}

// OnObserverEvent dispatches one observer.Event into the appropriate Core
// handler (spec §9: "observer emits; the Core dispatches").
func (c *Core) OnObserverEvent(e observer.Event) error {
	switch e.Kind {
	case observer.WindowCreated:
		return c.OnWindowCreated(e.WindowID, e.PID, e.AppName, e.BundleID)
	case observer.WindowDestroyed:
		return c.OnWindowDestroyed(e.WindowID)
	case observer.FocusChanged:
		return nil // compositor-level focus echo; Core's own focus calls are authoritative
	case observer.AppActivated:
		return c.OnAppActivated(e.PID, e.AppName)
	case observer.AppTerminated:
		return c.OnAppTerminated(e.PID)
	default:
		return nil
	}
}
