package core

import (
	"github.com/hatchwm/tilewm/internal/action"
	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/layout"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

func (c *Core) focusDirection(d compositor.Display, ws *wmstate.VirtualWorkspace, dir layout.Direction) error {
	if ws.Focused == nil || len(ws.Tiled) < 2 {
		return nil
	}
	cur, ok := ws.Tracked[*ws.Focused]
	if !ok {
		return nil
	}
	candidates := make([]layout.Candidate[wmstate.WindowID], 0, len(ws.Tiled)-1)
	for _, id := range ws.Tiled {
		if id == *ws.Focused {
			continue
		}
		if tw, ok := ws.Tracked[id]; ok {
			candidates = append(candidates, layout.Candidate[wmstate.WindowID]{ID: id, Frame: tw.LastFrame})
		}
	}
	target, found := layout.NeighborSearch(cur.LastFrame.Center(), dir, candidates)
	if !found {
		return nil
	}
	return c.focusWindow(ws, target)
}

func (c *Core) focusCycle(ws *wmstate.VirtualWorkspace, delta int) error {
	if len(ws.Tiled) < 2 || ws.Focused == nil {
		if len(ws.Tiled) > 0 {
			return c.focusWindow(ws, ws.Tiled[0])
		}
		return nil
	}
	idx := -1
	for i, id := range ws.Tiled {
		if id == *ws.Focused {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	next := (idx + delta + len(ws.Tiled)) % len(ws.Tiled)
	return c.focusWindow(ws, ws.Tiled[next])
}

func (c *Core) swapMaster(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	if ws.Focused == nil {
		return nil
	}
	layout.SwapWithFirst(ws.Tiled, *ws.Focused)
	return c.retile(d, ws, nil)
}

func (c *Core) rotate(d compositor.Display, ws *wmstate.VirtualWorkspace, delta int) error {
	if delta > 0 {
		layout.RotateNext(ws.Tiled)
	} else {
		layout.RotatePrev(ws.Tiled)
	}
	return c.retile(d, ws, nil)
}

// cycleLayout advances SideBySide -> Stacked -> Monocle -> SideBySide.
func (c *Core) cycleLayout(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	ws.LayoutVariant = (ws.LayoutVariant + 1) % 3
	return c.retile(d, ws, nil)
}

func (c *Core) toggleFloat(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	if ws.Focused == nil {
		return nil
	}
	id := *ws.Focused
	tw, ok := ws.Tracked[id]
	if !ok {
		return nil
	}
	if tw.IsFloating {
		delete(ws.Floating, id)
		ws.Tiled = append(ws.Tiled, id)
		tw.IsFloating = false
	} else {
		wmstate.RemoveWindow(ws, id)
		ws.Tracked[id] = tw
		ws.Floating[id] = struct{}{}
		ws.Focused = &id
		tw.IsFloating = true
	}
	return c.retile(d, ws, nil)
}

func (c *Core) toggleFullscreen(d compositor.Display, ws *wmstate.VirtualWorkspace) error {
	if ws.Focused == nil {
		return nil
	}
	id := *ws.Focused
	if _, isFullscreen := ws.Fullscreen[id]; isFullscreen {
		delete(ws.Fullscreen, id)
		ws.Tiled = append(ws.Tiled, id)
		return c.retile(d, ws, nil)
	}
	tw, tracked := c.storeReattachTracked(ws, id)
	wmstate.RemoveWindow(ws, id)
	if tracked {
		ws.Tracked[id] = tw
	}
	ws.Fullscreen[id] = struct{}{}
	ws.Focused = &id
	return c.bridge.SetFrame(id, d.Region)
}

// storeReattachTracked returns ws's TrackedWindow for id. RemoveWindow
// deletes from Tracked, so toggleFullscreen reads the entry before removing
// the window and re-inserts that same pointer afterwards.
func (c *Core) storeReattachTracked(ws *wmstate.VirtualWorkspace, id wmstate.WindowID) (*wmstate.TrackedWindow, bool) {
	tw, ok := ws.Tracked[id]
	return tw, ok
}

func (c *Core) positionFocused(d compositor.Display, ws *wmstate.VirtualWorkspace, kind action.Kind) error {
	if ws.Focused == nil {
		return nil
	}
	var pos layout.Position
	switch kind {
	case action.PositionLeft, action.PositionUp:
		pos = layout.PositionFirst
	case action.PositionRight, action.PositionDown:
		pos = layout.PositionLast
	case action.PositionFill, action.PositionCenter:
		return c.retile(d, ws, nil)
	default:
		return nil
	}
	layout.MovePosition(ws.Tiled, *ws.Focused, pos)
	return c.retile(d, ws, nil)
}

func (c *Core) dragReorder(d compositor.Display, ws *wmstate.VirtualWorkspace, from, to wmstate.WindowID) error {
	fromIdx, toIdx := -1, -1
	for i, id := range ws.Tiled {
		if id == from {
			fromIdx = i
		}
		if id == to {
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		return nil
	}
	ws.Tiled[fromIdx], ws.Tiled[toIdx] = ws.Tiled[toIdx], ws.Tiled[fromIdx]
	return c.retile(d, ws, nil)
}

func (c *Core) monitorAction(d compositor.Display, ws *wmstate.VirtualWorkspace, a action.Action) error {
	displays, err := c.bridge.Displays()
	if err != nil || len(displays) < 2 {
		return nil
	}
	idx := 0
	for i, disp := range displays {
		if disp.ID == d.ID {
			idx = i
			break
		}
	}
	delta := 1
	if a.Kind == action.FocusMonitorLeft || a.Kind == action.MoveToMonitorLeft {
		delta = -1
	}
	target := displays[(idx+delta+len(displays))%len(displays)]

	switch a.Kind {
	case action.FocusMonitorLeft, action.FocusMonitorRight:
		targetWS := c.store.ActiveWorkspace(target.ID)
		if targetWS.Focused != nil {
			return c.focusWindow(targetWS, *targetWS.Focused)
		}
		return nil
	case action.MoveToMonitorLeft, action.MoveToMonitorRight:
		if ws.Focused == nil {
			return nil
		}
		id := *ws.Focused
		tw, ok := ws.Tracked[id]
		if !ok {
			return nil
		}
		wmstate.RemoveWindow(ws, id)
		targetWS := c.store.ActiveWorkspace(target.ID)
		targetWS.Tracked[id] = tw
		targetWS.Tiled = append(targetWS.Tiled, id)
		if err := c.retile(d, ws, nil); err != nil {
			return err
		}
		return c.retile(target, targetWS, nil)
	}
	return nil
}
