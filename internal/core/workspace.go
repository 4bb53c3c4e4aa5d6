package core

import (
	"fmt"
	"time"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// observerHandle is the subset of observer.Observer the Core needs for
// switch_workspace's pause/resume step. Set once during daemon wiring.
type observerHandle interface {
	Pause()
	Resume()
}

// SetObserver wires the Observer whose Pause/Resume switch_workspace calls
// (spec §4.3 switch_workspace steps 2 and 10).
func (c *Core) SetObserver(o observerHandle) {
	c.observerHandle = o
}

func (c *Core) pauseObserver() {
	if c.observerHandle != nil {
		c.observerHandle.Pause()
	}
}

func (c *Core) resumeObserver() {
	if c.observerHandle != nil {
		c.observerHandle.Resume()
	}
}

// switchWorkspace implements the exact 10-step procedure of spec §4.3.
func (c *Core) switchWorkspace(monitor wmstate.MonitorID, n wmstate.WorkspaceNumber) error {
	return c.switchWorkspaceLocked(monitor, n)
}

func (c *Core) switchWorkspaceLocked(monitor wmstate.MonitorID, n wmstate.WorkspaceNumber) error {
	if !wmstate.ValidWorkspaceNumber(n) {
		return nil // spec §8 boundary: workspace numbers outside [1,9] are ignored
	}
	current := c.store.ActiveWorkspaceNumber(monitor)
	if n == current {
		return nil // step 1: abort if already active
	}

	c.pauseObserver() // step 2
	if c.dim != nil {
		_ = c.dim.Reset() // step 3
	}

	currentWS := c.store.Workspace(monitor, current)

	d, err := c.displayFor(monitor)
	if err != nil {
		c.resumeObserver()
		return fmt.Errorf("core: switch_workspace: resolve display: %w", err)
	}

	// step 5: hide every non-sticky window of the currently active workspace.
	// Floating/fullscreen windows' true geometry is stashed in hiddenFrames
	// before LastFrame gets overwritten with the hidden frame, so switching
	// back to this workspace can restore it rather than reopening windows at
	// their off-screen hidden position.
	currentKey := hiddenFramesKey{monitor, current}
	frames := make(map[wmstate.WindowID]geom.Rect)
	if err := c.bridge.BeginBatch(); err != nil {
		c.logger.Warn("core: switch_workspace begin batch failed", "error", err)
	}
	for id, tw := range currentWS.Tracked {
		if tw.IsSticky {
			continue
		}
		_, floating := currentWS.Floating[id]
		_, fullscreen := currentWS.Fullscreen[id]
		if floating || fullscreen {
			frames[id] = tw.LastFrame
		}
		hidden := hiddenFrame(d, tw.LastFrame.Width, tw.LastFrame.Height)
		if err := c.bridge.SetFrame(id, hidden); err != nil {
			c.logger.Warn("core: switch_workspace hide failed", "window", id, "error", err)
		}
		tw.LastFrame = hidden
	}
	c.hiddenFrames[currentKey] = frames
	if err := c.bridge.EndBatch(); err != nil {
		c.logger.Warn("core: switch_workspace end batch failed", "error", err)
	}

	if err := c.store.SetActiveWorkspaceNumber(monitor, n); err != nil { // step 6
		c.resumeObserver()
		return err
	}

	// step 7: the target workspace already holds its own last state (the
	// Store returns the same *VirtualWorkspace instance across switches, so
	// there is nothing to "load" beyond what's already there); move sticky
	// windows out of the previous workspace and into the target.
	targetWS := c.store.Workspace(monitor, n)
	var stickyIDs []wmstate.WindowID
	for id, tw := range currentWS.Tracked {
		if tw.IsSticky {
			stickyIDs = append(stickyIDs, id)
		}
	}
	for _, id := range stickyIDs {
		tw := currentWS.Tracked[id]
		wmstate.RemoveWindow(currentWS, id)
		targetWS.Tracked[id] = tw
		if tw.IsFloating {
			targetWS.Floating[id] = struct{}{}
		} else {
			targetWS.Tiled = append(targetWS.Tiled, id)
		}
	}

	if err := c.retile(d, targetWS, nil); err != nil { // step 8 (tiled)
		c.logger.Warn("core: switch_workspace retile failed", "error", err)
	}
	targetKey := hiddenFramesKey{monitor, n}
	targetFrames := c.hiddenFrames[targetKey]
	delete(c.hiddenFrames, targetKey)
	restoreFrame := func(id wmstate.WindowID, tw *wmstate.TrackedWindow) geom.Rect {
		if frame, ok := targetFrames[id]; ok {
			return frame
		}
		return tw.LastFrame
	}
	for id := range targetWS.Floating { // step 8 (restore floating/fullscreen frames)
		if tw, ok := targetWS.Tracked[id]; ok {
			frame := restoreFrame(id, tw)
			if err := c.bridge.SetFrame(id, frame); err != nil {
				c.logger.Warn("core: restore floating frame failed", "window", id, "error", err)
			}
			tw.LastFrame = frame
			_ = c.bridge.SetAlpha(id, 1)
		}
	}
	for id := range targetWS.Fullscreen {
		if tw, ok := targetWS.Tracked[id]; ok {
			frame := restoreFrame(id, tw)
			if err := c.bridge.SetFrame(id, frame); err != nil {
				c.logger.Warn("core: restore fullscreen frame failed", "window", id, "error", err)
			}
			tw.LastFrame = frame
			_ = c.bridge.SetAlpha(id, 1)
		}
	}

	// step 9: focus policy
	empty := len(targetWS.Tiled) == 0 && len(targetWS.Floating) == 0 && len(targetWS.Fullscreen) == 0
	if empty {
		targetWS.Focused = nil
	} else if targetWS.Focused != nil {
		if _, ok := targetWS.Tracked[*targetWS.Focused]; ok {
			_ = c.focusWindow(targetWS, *targetWS.Focused)
		}
	} else if len(targetWS.Tiled) > 0 {
		_ = c.focusWindow(targetWS, targetWS.Tiled[0])
	}

	c.resumeObserver() // step 10
	return nil
}

// displayFor resolves the compositor.Display for a known monitor id.
func (c *Core) displayFor(monitor wmstate.MonitorID) (compositor.Display, error) {
	displays, err := c.bridge.Displays()
	if err != nil {
		return compositor.Display{}, err
	}
	for _, d := range displays {
		if d.ID == monitor {
			return d, nil
		}
	}
	if len(displays) > 0 {
		return displays[0], nil
	}
	return compositor.Display{}, fmt.Errorf("core: unknown monitor %q", monitor)
}

// moveToWorkspace implements spec §4.3 move_to_workspace: symmetric to
// switch for a single window, forbidden for sticky windows.
func (c *Core) moveToWorkspace(d compositor.Display, ws *wmstate.VirtualWorkspace, n wmstate.WorkspaceNumber) error {
	if !wmstate.ValidWorkspaceNumber(n) || ws.Focused == nil {
		return nil
	}
	id := *ws.Focused
	tw, ok := ws.Tracked[id]
	if !ok || tw.IsSticky {
		return nil
	}

	_, floating := ws.Floating[id]
	_, fullscreen := ws.Fullscreen[id]

	wmstate.RemoveWindow(ws, id)
	hidden := hiddenFrame(d, tw.LastFrame.Width, tw.LastFrame.Height)
	if err := c.bridge.SetFrame(id, hidden); err != nil {
		c.logger.Warn("core: move_to_workspace hide failed", "window", id, "error", err)
	}
	tw.LastFrame = hidden

	target := c.store.Workspace(d.ID, n)
	target.Tracked[id] = tw
	switch {
	case floating:
		target.Floating[id] = struct{}{}
	case fullscreen:
		target.Fullscreen[id] = struct{}{}
	default:
		target.Tiled = append(target.Tiled, id)
	}

	if err := c.retile(d, ws, nil); err != nil {
		c.logger.Warn("core: move_to_workspace source retile failed", "error", err)
	}
	if c.store.ActiveWorkspaceNumber(d.ID) == n {
		return c.retile(d, target, nil)
	}
	return nil
}

// closeFocused begins the close animation for the focused window
// concurrently with a batched redistribution of the remaining tiled
// windows (spec §4.3 close semantics).
func (c *Core) closeFocused(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	if ws.Focused == nil {
		return nil
	}
	id := *ws.Focused
	tw, ok := ws.Tracked[id]
	if !ok {
		return nil
	}
	frame := tw.LastFrame

	wasTiled := false
	for _, w := range ws.Tiled {
		if w == id {
			wasTiled = true
			break
		}
	}
	wmstate.RemoveWindow(ws, id)
	ws.Tracked[id] = tw // keep tracked until the observer confirms destruction

	if wasTiled {
		if len(ws.Tiled) > 0 {
			next := ws.Tiled[0]
			ws.Focused = &next
		}
		if err := c.retile(d, ws, nil); err != nil {
			c.logger.Warn("core: close redistribute retile failed", "error", err)
		}
	}

	if c.anim != nil {
		c.anim.StartClose(id, frame, func() {
			if err := c.bridge.RequestClose(id); err != nil {
				c.logger.Warn("core: request close failed", "window", id, "error", err)
			}
		})
	} else if err := c.bridge.RequestClose(id); err != nil {
		c.logger.Warn("core: request close failed", "window", id, "error", err)
	}
	return nil
}

// toggleMinimize implements spec §4.3 Minimize.
func (c *Core) toggleMinimize(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	if ws.Focused == nil {
		return nil
	}
	id := *ws.Focused
	tw, ok := ws.Tracked[id]
	if !ok {
		return nil
	}

	if tw.IsMinimized {
		tw.IsMinimized = false
		restored := c.defaultRestoreFrame(d)
		if err := c.bridge.SetFrame(id, restored); err != nil {
			c.logger.Warn("core: restore minimized frame failed", "window", id, "error", err)
		}
		if err := c.bridge.SetAlpha(id, 1); err != nil {
			c.logger.Warn("core: restore minimized alpha failed", "window", id, "error", err)
		}
		tw.LastFrame = restored
		if !tw.IsFloating {
			ws.Tiled = append(ws.Tiled, id)
		}
		ws.Focused = &id
		return c.retile(d, ws, nil)
	}

	tw.IsMinimized = true
	hidden := hiddenFrame(d, tw.LastFrame.Width, tw.LastFrame.Height)
	if err := c.bridge.SetFrame(id, hidden); err != nil {
		c.logger.Warn("core: minimize hide failed", "window", id, "error", err)
	}
	if err := c.bridge.SetAlpha(id, 0); err != nil {
		c.logger.Warn("core: minimize hide failed", "window", id, "error", err)
	}
	tw.LastFrame = hidden
	wmstate.RemoveWindow(ws, id)
	ws.Tracked[id] = tw
	if c.dim != nil {
		_ = c.dim.Apply(ws.Tiled, 0)
	}
	if len(ws.Tiled) > 0 {
		next := ws.Tiled[0]
		ws.Focused = &next
	} else {
		ws.Focused = nil
	}
	return c.retile(d, ws, nil)
}

func (c *Core) defaultRestoreFrame(d compositor.Display) geom.Rect {
	return geom.Rect{
		X: d.Region.X + d.Region.Width/4, Y: d.Region.Y + d.Region.Height/4,
		Width: d.Region.Width / 2, Height: d.Region.Height / 2,
	}
}

// setMark records marks[k] = focused window id.
func (c *Core) setMark(ws *wmstate.VirtualWorkspace, key string) error {
	if ws.Focused == nil || key == "" {
		return nil
	}
	c.store.SetMark(key, *ws.Focused)
	return nil
}

// jumpMark focuses the marked window, switching workspace first if needed;
// a stale mark (window no longer known) is removed (spec §4.3 Marks).
func (c *Core) jumpMark(key string) error {
	id, ok := c.store.Mark(key)
	if !ok {
		return nil
	}
	monitor, n, ok := c.store.FindWorkspaceOf(id)
	if !ok {
		c.store.ClearMark(key)
		return nil
	}
	if c.store.ActiveWorkspaceNumber(monitor) != n {
		if err := c.switchWorkspaceLocked(monitor, n); err != nil {
			return err
		}
	}
	ws := c.store.Workspace(monitor, n)
	return c.focusWindow(ws, id)
}

// niriConsume takes the first window of the column to the right of active
// and appends it to the active column (spec §4.3 scrolling-mode consume).
func (c *Core) niriConsume(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	i := ws.ActiveColumnIndex
	if i+1 >= len(ws.ScrollingColumns) {
		return nil
	}
	donor := &ws.ScrollingColumns[i+1]
	if len(donor.Windows) == 0 {
		return nil
	}
	taken := donor.Windows[0]
	donor.Windows = donor.Windows[1:]
	ws.ScrollingColumns[i].Windows = append(ws.ScrollingColumns[i].Windows, taken)
	if len(donor.Windows) == 0 {
		ws.ScrollingColumns = append(ws.ScrollingColumns[:i+1], ws.ScrollingColumns[i+2:]...)
	}
	ws.Focused = &taken
	ws.Tiled = wmstate.FlattenColumns(ws.ScrollingColumns)
	return c.retile(d, ws, nil)
}

// niriExpel removes the focused window from its multi-window active column
// and inserts it as a new single-window column immediately to the right,
// making it the new active column (spec §4.3 scrolling-mode expel).
func (c *Core) niriExpel(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	i := ws.ActiveColumnIndex
	if i < 0 || i >= len(ws.ScrollingColumns) || ws.Focused == nil {
		return nil
	}
	col := &ws.ScrollingColumns[i]
	if len(col.Windows) < 2 {
		return nil
	}
	id := *ws.Focused
	idx := -1
	for j, w := range col.Windows {
		if w == id {
			idx = j
			break
		}
	}
	if idx < 0 {
		return nil
	}
	col.Windows = append(col.Windows[:idx], col.Windows[idx+1:]...)

	newCol := wmstate.Column{Windows: []wmstate.WindowID{id}}
	at := i + 1
	ws.ScrollingColumns = append(ws.ScrollingColumns, wmstate.Column{})
	copy(ws.ScrollingColumns[at+1:], ws.ScrollingColumns[at:len(ws.ScrollingColumns)-1])
	ws.ScrollingColumns[at] = newCol
	ws.ActiveColumnIndex = at
	ws.Tiled = wmstate.FlattenColumns(ws.ScrollingColumns)
	return c.retile(d, ws, nil)
}

// previewLayout is a supplemented action (not in spec §6's bindings list):
// apply the next layout variant for a few seconds and restore the prior one
// (grounded on the teacher's Tiler.PreviewLayout timer pattern).
func (c *Core) previewLayout(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	prior := ws.LayoutVariant
	ws.LayoutVariant = (ws.LayoutVariant + 1) % 3
	if err := c.retile(d, ws, nil); err != nil {
		return err
	}
	time.AfterFunc(3*time.Second, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		ws.LayoutVariant = prior
		_ = c.retile(d, ws, nil)
	})
	return nil
}
