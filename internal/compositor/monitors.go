package compositor

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// Displays enumerates every active CRTC via XRandR as a compositor.Display
// (spec §2 monitor enumeration), the set LinuxBridge.Displays exposes to
// the Core.
func (c *Connection) Displays() ([]Display, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("compositor: randr init: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("compositor: get screen resources: %w", err)
	}

	var displays []Display
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("monitor-%d", i)
		if outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(outputInfo.Name)
		}

		displays = append(displays, Display{
			ID: wmstate.MonitorID(name),
			Region: geom.Rect{
				X:      int(crtcInfo.X),
				Y:      int(crtcInfo.Y),
				Width:  int(crtcInfo.Width),
				Height: int(crtcInfo.Height),
			},
		})
	}
	return displays, nil
}

// ActiveDisplay resolves the Display holding the currently active window,
// falling back to the display under the pointer and finally the first
// enumerated display, then trims its Region by whatever dock/panel struts
// (or, failing that, the EWMH work area) overlap it, so tiled frames never
// land under a dock (spec §2).
func (c *Connection) ActiveDisplay() (Display, error) {
	displays, err := c.Displays()
	if err != nil {
		return Display{}, err
	}
	if len(displays) == 0 {
		return Display{}, fmt.Errorf("compositor: no displays found")
	}

	active := c.firstMatch(displays)
	if !c.applyDockStruts(active) {
		c.applyWorkarea(active)
	}
	return *active, nil
}

// firstMatch never returns nil: it falls back to &displays[0] when neither
// the active window nor the pointer resolves to a display.
func (c *Connection) firstMatch(displays []Display) *Display {
	if activeWin, err := ewmh.ActiveWindowGet(c.XUtil); err == nil && activeWin != 0 {
		if d := c.displayForWindow(displays, activeWin); d != nil {
			return d
		}
	}
	if d := c.displayForPointer(displays); d != nil {
		return d
	}
	return &displays[0]
}

// applyDockStruts shrinks active.Region by every _NET_WM_STRUT_PARTIAL (or
// plain _NET_WM_STRUT) dock/panel window that overlaps it, reporting
// whether any strut was found.
func (c *Connection) applyDockStruts(active *Display) bool {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return false
	}
	rootWidth := int(rootGeom.Width)
	rootHeight := int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return false
	}

	var left, right, top, bottom int
	for _, win := range clients {
		if !isDockWindow(c.XUtil, win) {
			continue
		}

		sp, err := ewmh.WmStrutPartialGet(c.XUtil, win)
		if err != nil {
			s, err := ewmh.WmStrutGet(c.XUtil, win)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftStartY: 0, LeftEndY: uint(rootHeight - 1),
				RightStartY: 0, RightEndY: uint(rootHeight - 1),
				TopStartX: 0, TopEndX: uint(rootWidth - 1),
				BottomStartX: 0, BottomEndX: uint(rootWidth - 1),
			}
		}
		l, r, t, b := strutOverlap(active.Region, rootWidth, rootHeight, sp)
		left, right, top, bottom = max(left, l), max(right, r), max(top, t), max(bottom, b)
	}

	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return false
	}

	active.Region.X += left
	active.Region.Y += top
	active.Region.Width = max(1, active.Region.Width-left-right)
	active.Region.Height = max(1, active.Region.Height-top-bottom)
	return true
}

// applyWorkarea is the fallback when no dock strut was found directly: it
// trims active.Region to its overlap with the current desktop's EWMH work
// area, if one is published.
func (c *Connection) applyWorkarea(active *Display) {
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return
	}
	desktop := 0
	if current, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(current) >= 0 && int(current) < len(workArea) {
		desktop = int(current)
	}
	wa := workArea[desktop]
	overlap := active.Region.Intersect(geom.Rect{X: int(wa.X), Y: int(wa.Y), Width: int(wa.Width), Height: int(wa.Height)})
	if overlap.Width > 0 && overlap.Height > 0 {
		active.Region = overlap
	}
}

// isDockWindow reports whether win declares itself a panel/dock via
// _NET_WM_WINDOW_TYPE_DOCK, the signal applyDockStruts uses to find windows
// whose struts should shrink a display's usable region.
func isDockWindow(xu *xgbutil.XUtil, win xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(xu, win)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

func strutOverlap(region geom.Rect, rootWidth, rootHeight int, sp *ewmh.WmStrutPartial) (left, right, top, bottom int) {
	if sp.Top > 0 {
		band := geom.Rect{X: int(sp.TopStartX), Y: 0, Width: int(sp.TopEndX) + 1 - int(sp.TopStartX), Height: int(sp.Top)}
		if ov := region.Intersect(band); ov.Height > 0 {
			top = ov.Height
		}
	}
	if sp.Bottom > 0 {
		y1 := rootHeight - int(sp.Bottom)
		band := geom.Rect{X: int(sp.BottomStartX), Y: y1, Width: int(sp.BottomEndX) + 1 - int(sp.BottomStartX), Height: rootHeight - y1}
		if ov := region.Intersect(band); ov.Height > 0 {
			bottom = ov.Height
		}
	}
	if sp.Left > 0 {
		band := geom.Rect{X: 0, Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY) + 1 - int(sp.LeftStartY)}
		if ov := region.Intersect(band); ov.Width > 0 {
			left = ov.Width
		}
	}
	if sp.Right > 0 {
		x1 := rootWidth - int(sp.Right)
		band := geom.Rect{X: x1, Y: int(sp.RightStartY), Width: rootWidth - x1, Height: int(sp.RightEndY) + 1 - int(sp.RightStartY)}
		if ov := region.Intersect(band); ov.Width > 0 {
			right = ov.Width
		}
	}
	return
}

func (c *Connection) displayForWindow(displays []Display, win xproto.Window) *Display {
	g, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return nil
	}
	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return nil
	}
	centerX := int(translate.DstX) + int(g.Width)/2
	centerY := int(translate.DstY) + int(g.Height)/2
	for i := range displays {
		r := displays[i].Region
		if centerX >= r.X && centerX < r.X+r.Width && centerY >= r.Y && centerY < r.Y+r.Height {
			return &displays[i]
		}
	}
	return nil
}

func (c *Connection) displayForPointer(displays []Display) *Display {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil
	}
	x, y := int(pointer.RootX), int(pointer.RootY)
	for i := range displays {
		r := displays[i].Region
		if x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height {
			return &displays[i]
		}
	}
	return nil
}
