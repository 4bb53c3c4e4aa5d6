package core

import (
	"fmt"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/config"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// smallFloatWidth/Height are the "windows strictly smaller than 500x400"
// auto-float-dialog thresholds (spec §4.3 step 2b).
const (
	smallFloatWidth  = 500
	smallFloatHeight = 400
	// undersizedFraction is the "<70% of the tiling region" threshold for
	// step 2c (a second tiled window of an already-tiled app, with an
	// undersized frame, is floated rather than tiled).
	undersizedFraction = 0.7
)

// OnWindowCreated runs the full classification pipeline (spec §4.3): every
// newly observed window passes through exclude, float, sticky, home
// workspace, swallow-attempt and finally insertion, in that exact order.
//
// appHasTiledOnWorkspace is approximated here by owner pid: X11 exposes no
// reliable "same owning app, different window" signal without also
// resolving each window's WM_CLASS, so this pipeline floats a second window
// only when the same process already has a tiled window, a narrower but
// safe reading of "owning app already has a tiled window" (documented in
// DESIGN.md).
func (c *Core) OnWindowCreated(wid wmstate.WindowID, pid int, appName, bundleID string) error {
	if c.rules.isExcluded(appName, bundleID) {
		if err := c.bridge.SetAlpha(wid, 1); err != nil {
			c.logger.Warn("core: restore excluded window alpha failed", "window", wid, "error", err)
		}
		c.acknowledge(wid)
		return nil
	}

	d, err := c.activeMonitor()
	if err != nil {
		return fmt.Errorf("core: classify: active display: %w", err)
	}
	monitor := d.ID
	ws := c.store.ActiveWorkspace(monitor)

	floating := c.rules.isFloatRule(appName, bundleID)
	if !floating && c.cfg.Layout.AutoFloatDialogs {
		if c.bridge.IsDialogWindow(wid) {
			floating = true
		} else if frame, err := c.bridge.FrameOf(wid); err == nil {
			if frame.Width < smallFloatWidth && frame.Height < smallFloatHeight {
				floating = true
			}
		}
	}
	if !floating && appHasTiledWindow(ws, pid) {
		if c.bridge.WindowTitle(wid) == "" {
			floating = true
		} else if frame, err := c.bridge.FrameOf(wid); err == nil {
			region := c.tileRegion(d)
			if float64(frame.Width) < float64(region.Width)*undersizedFraction ||
				float64(frame.Height) < float64(region.Height)*undersizedFraction {
				floating = true
			}
		}
	}

	sticky := c.rules.isSticky(appName, bundleID)

	// Home workspace: an app->workspace rule targeting a different
	// workspace than active inserts directly into that workspace, hidden,
	// and we're done (spec §4.3 step 4).
	if rule, ok := c.rules.appRule(appName); ok && rule.Workspace != 0 {
		home := c.store.ActiveWorkspaceNumber(monitor)
		if rule.Workspace != home {
			target := c.store.Workspace(monitor, rule.Workspace)
			tw := &wmstate.TrackedWindow{WindowID: wid, OwnerPID: pid, AppName: appName, BundleID: bundleID, IsFloating: floating, IsSticky: sticky}
			target.Tracked[wid] = tw
			if floating {
				target.Floating[wid] = struct{}{}
			} else {
				target.Tiled = append(target.Tiled, wid)
			}
			if err := c.bridge.SetAlpha(wid, 0); err != nil {
				c.logger.Warn("core: hide window routed to other workspace failed", "window", wid, "error", err)
			}
			hidden := hiddenFrame(d, 400, 300)
			if err := c.bridge.SetFrame(wid, hidden); err != nil {
				c.logger.Warn("core: hide window routed to other workspace failed", "window", wid, "error", err)
			}
			tw.LastFrame = hidden
			c.acknowledge(wid)
			return nil
		}
	}

	tw := &wmstate.TrackedWindow{WindowID: wid, OwnerPID: pid, AppName: appName, BundleID: bundleID, IsFloating: floating, IsSticky: sticky}
	ws.Tracked[wid] = tw

	if floating {
		ws.Floating[wid] = struct{}{}
		ws.Focused = &wid
		c.acknowledge(wid)
		if err := c.bridge.SetAlpha(wid, 1); err != nil {
			c.logger.Warn("core: reveal floating window failed", "window", wid, "error", err)
		}
		c.updateCollaborators(ws)
		return nil
	}

	// Swallow attempt: walk up to 5 ancestor pids looking for a tiled
	// terminal matching the swallow rule (spec §4.3 step 5).
	if c.tryConsumeViaSwallow(d, ws, wid, pid, tw) {
		c.acknowledge(wid)
		return nil
	}

	// Plain tiled insertion after the focused window, or at the end.
	insertAt := len(ws.Tiled)
	if ws.Focused != nil {
		for i, id := range ws.Tiled {
			if id == *ws.Focused {
				insertAt = i + 1
				break
			}
		}
	}
	if rule, ok := c.rules.appRule(appName); ok {
		switch rule.Position {
		case config.AppRulePositionLeft:
			insertAt = 0
		case config.AppRulePositionRight:
			insertAt = len(ws.Tiled)
		}
	}
	ws.Tiled = append(ws.Tiled, wid)
	copy(ws.Tiled[insertAt+1:], ws.Tiled[insertAt:len(ws.Tiled)-1])
	ws.Tiled[insertAt] = wid

	if c.cfg.Layout.TilingMode == config.TilingModeNiri {
		col := wmstate.Column{Windows: []wmstate.WindowID{wid}}
		at := ws.ActiveColumnIndex + 1
		if at > len(ws.ScrollingColumns) {
			at = len(ws.ScrollingColumns)
		}
		ws.ScrollingColumns = append(ws.ScrollingColumns, wmstate.Column{})
		copy(ws.ScrollingColumns[at+1:], ws.ScrollingColumns[at:len(ws.ScrollingColumns)-1])
		ws.ScrollingColumns[at] = col
		ws.ActiveColumnIndex = at
	}

	ws.Focused = &wid
	c.acknowledge(wid)
	if err := c.bridge.SetAlpha(wid, 0); err != nil {
		c.logger.Warn("core: pre-popin hide failed", "window", wid, "error", err)
	}
	return c.retile(d, ws, &wid)
}

// appHasTiledWindow reports whether pid already owns a tiled window on ws.
func appHasTiledWindow(ws *wmstate.VirtualWorkspace, pid int) bool {
	for _, id := range ws.Tiled {
		if tw, ok := ws.Tracked[id]; ok && tw.OwnerPID == pid {
			return true
		}
	}
	return false
}

// tryConsumeViaSwallow implements spec §4.3 step 5: if an ancestor process
// owns a tiled, swallow-eligible window, the new window takes its tile slot
// and the terminal is hidden and linked via SwallowedFrom/SwallowedBy.
func (c *Core) tryConsumeViaSwallow(d compositor.Display, ws *wmstate.VirtualWorkspace, wid wmstate.WindowID, pid int, tw *wmstate.TrackedWindow) bool {
	if c.tree == nil {
		return false
	}
	for _, ancestorPID := range ancestors(c.tree, pid) {
		for idx, candidate := range ws.Tiled {
			ctw, ok := ws.Tracked[candidate]
			if !ok || ctw.OwnerPID != ancestorPID || ctw.SwallowedBy != nil {
				continue
			}
			if !c.rules.isSwallower(ctw.AppName, ctw.BundleID) {
				continue
			}

			hidden := hiddenFrame(d, ctw.LastFrame.Width, ctw.LastFrame.Height)
			if err := c.bridge.SetAlpha(candidate, 0); err != nil {
				c.logger.Warn("core: swallow hide failed", "window", candidate, "error", err)
			}
			if err := c.bridge.SetFrame(candidate, hidden); err != nil {
				c.logger.Warn("core: swallow hide failed", "window", candidate, "error", err)
			}
			ctw.LastFrame = hidden

			from, to := candidate, wid
			ctw.SwallowedBy = &to
			tw.SwallowedFrom = &from

			ws.Tiled[idx] = wid
			ws.Tracked[wid] = tw
			ws.Focused = &wid
			if err := c.bridge.SetAlpha(wid, 0); err != nil {
				c.logger.Warn("core: pre-popin hide failed", "window", wid, "error", err)
			}
			_ = c.retile(d, ws, &wid)
			return true
		}
	}
	return false
}

// OnWindowDestroyed removes id from whichever workspace currently tracks
// it, resolves swallow-unswallow, updates focus, and retiles (spec §3
// lifecycle "Destroy").
func (c *Core) OnWindowDestroyed(id wmstate.WindowID) error {
	monitor, wsNum, ok := c.store.FindWorkspaceOf(id)
	if !ok {
		c.forget(id)
		return nil
	}
	ws := c.store.Workspace(monitor, wsNum)
	tw, hasTracked := ws.Tracked[id]

	formerIndex := -1
	for i, w := range ws.Tiled {
		if w == id {
			formerIndex = i
			break
		}
	}

	wasFocused := ws.Focused != nil && *ws.Focused == id
	wmstate.RemoveWindow(ws, id)
	c.forget(id)

	if hasTracked && tw.SwallowedFrom != nil {
		terminalID := *tw.SwallowedFrom
		if terminal, ok := ws.Tracked[terminalID]; ok {
			terminal.SwallowedBy = nil
			at := formerIndex
			if at < 0 || at > len(ws.Tiled) {
				at = len(ws.Tiled)
			}
			ws.Tiled = append(ws.Tiled, terminalID)
			copy(ws.Tiled[at+1:], ws.Tiled[at:len(ws.Tiled)-1])
			ws.Tiled[at] = terminalID
			if err := c.bridge.SetAlpha(terminalID, 1); err != nil {
				c.logger.Warn("core: unswallow restore alpha failed", "window", terminalID, "error", err)
			}
			ws.Focused = &terminalID
		}
	} else if wasFocused && len(ws.Tiled) > 0 {
		next := ws.Tiled[0]
		ws.Focused = &next
	} else if wasFocused {
		ws.Focused = nil
	}

	if c.store.ActiveWorkspaceNumber(monitor) == wsNum {
		d, err := c.activeMonitor()
		if err == nil {
			return c.retile(d, ws, nil)
		}
	}
	return nil
}

// OnAppActivated implements focus-follows-app (spec §4.3): if the activated
// app has no window on the active, non-empty workspace and the Core isn't
// already inside an auto-switch, it searches other workspaces on the same
// monitor for a window owned by pid and switches to it.
func (c *Core) OnAppActivated(pid int, appName string) error {
	if !c.cfg.Layout.FocusFollowsApp || c.inAutoSwitch {
		return nil
	}
	d, err := c.activeMonitor()
	if err != nil {
		return nil
	}
	monitor := d.ID
	active := c.store.ActiveWorkspace(monitor)
	if len(active.Tiled) == 0 && len(active.Floating) == 0 && len(active.Fullscreen) == 0 {
		return nil // non-empty guard: don't bounce away from an empty workspace
	}
	for _, tw := range active.Tracked {
		if tw.OwnerPID == pid {
			return nil
		}
	}

	for _, n := range c.store.WorkspacesWithWindows(monitor) {
		ws := c.store.Workspace(monitor, n)
		for _, tw := range ws.Tracked {
			if tw.OwnerPID == pid {
				c.inAutoSwitch = true
				err := c.switchWorkspaceLocked(monitor, n)
				c.inAutoSwitch = false
				return err
			}
		}
	}
	return nil
}

// OnAppTerminated cascades destroy to every window the Store still tracks
// for pid (spec §3 lifecycle "Terminate"); the Poller has already emitted
// the per-window WindowDestroyed events by the time this runs, so this is
// a defensive sweep for any it missed (e.g. windows on inactive workspaces
// the poller wasn't diffing against an active display).
func (c *Core) OnAppTerminated(pid int) error {
	for _, monitor := range c.store.Monitors() {
		for _, n := range c.store.WorkspacesWithWindows(monitor) {
			ws := c.store.Workspace(monitor, n)
			var dead []wmstate.WindowID
			for id, tw := range ws.Tracked {
				if tw.OwnerPID == pid {
					dead = append(dead, id)
				}
			}
			for _, id := range dead {
				if err := c.OnWindowDestroyed(id); err != nil {
					c.logger.Warn("core: terminate cascade destroy failed", "window", id, "error", err)
				}
			}
		}
	}
	return nil
}
