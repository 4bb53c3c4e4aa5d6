package compositor

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// SetFrame moves and resizes id to frame, the CompositorBridge.SetFrame
// primitive (spec §2) every retile ultimately calls. A maximized window
// ignores plain move/resize requests, so the maximized state is cleared
// first.
func (c *Connection) SetFrame(id wmstate.WindowID, frame geom.Rect) error {
	win := xproto.Window(id)
	c.unmaximize(win)

	if err := ewmh.MoveresizeWindow(c.XUtil, win, frame.X, frame.Y, frame.Width, frame.Height); err != nil {
		xwindow.New(c.XUtil, win).MoveResize(frame.X, frame.Y, frame.Width, frame.Height)
	}
	return nil
}

// unmaximize clears _NET_WM_STATE_MAXIMIZED_{HORZ,VERT} so a subsequent
// SetFrame isn't ignored by an app that still believes it's maximized.
// Best-effort: an app that doesn't support the request just keeps its
// existing geometry hints, which SetFrame's move/resize still overrides.
func (c *Connection) unmaximize(win xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		return
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_MAXIMIZED_HORZ" {
			ewmh.WmStateReq(c.XUtil, win, 0, "_NET_WM_STATE_MAXIMIZED_HORZ")
		}
		if state == "_NET_WM_STATE_MAXIMIZED_VERT" {
			ewmh.WmStateReq(c.XUtil, win, 0, "_NET_WM_STATE_MAXIMIZED_VERT")
		}
	}
}

// IsTiledCandidate reports whether id is the kind of window LinuxBridge's
// ListWindows should hand to the Core for classification (spec §4.3): a
// plain top-level app window, not a desktop/dock/splash/notification
// surface. A window with no declared type is treated as a candidate, since
// most X11 apps never set _NET_WM_WINDOW_TYPE at all.
func (c *Connection) IsTiledCandidate(id wmstate.WindowID) bool {
	win := xproto.Window(id)
	types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
	if err != nil {
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP", "_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH", "_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return len(types) == 0
}

// IsDialogWindow reports whether id declares itself a dialog/utility/splash
// surface via _NET_WM_WINDOW_TYPE, the EWMH half of the auto-float-dialog
// rule (spec §4.3 step 2b): a window in this family floats regardless of
// its frame size; the undersized-frame check covers every other window,
// typed or not.
func (c *Connection) IsDialogWindow(id wmstate.WindowID) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, xproto.Window(id))
	if err != nil {
		return false
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_DIALOG", "_NET_WM_WINDOW_TYPE_UTILITY", "_NET_WM_WINDOW_TYPE_SPLASH":
			return true
		}
	}
	return false
}

// ActiveWindow reports the window currently holding input focus via
// _NET_ACTIVE_WINDOW, the signal LinuxBridge.ActiveWindow exposes to the
// Core and the Router's drag gestures.
func (c *Connection) ActiveWindow() (wmstate.WindowID, bool, error) {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil {
		return 0, false, fmt.Errorf("compositor: active window: %w", err)
	}
	if win == 0 {
		return 0, false, nil
	}
	return wmstate.WindowID(win), true, nil
}
