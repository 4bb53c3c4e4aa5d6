package compositor

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// WindowInfo is the owning-process/app identity the classification pipeline
// needs for a window it has not seen before (spec §4.2 classify new
// window). PID comes from _NET_WM_PID, AppName/BundleID from WM_CLASS's
// instance/class pair — X11 has no macOS-style bundle identifier, so
// BundleID carries the WM_CLASS class string as the closest stable analog.
func WindowInfo(conn *Connection, win xproto.Window) (pid int, appName, bundleID string, err error) {
	p, pidErr := ewmh.WmPidGet(conn.XUtil, win)
	if pidErr == nil {
		pid = int(p)
	}

	class, classErr := icccm.WmClassGet(conn.XUtil, win)
	if classErr != nil {
		if pidErr != nil {
			return 0, "", "", fmt.Errorf("compositor: resolve window info for %d: %w", win, classErr)
		}
		return pid, "", "", nil
	}
	return pid, class.Instance, class.Class, nil
}

// WindowTitle reads a window's current title, preferring the UTF-8
// _NET_WM_NAME over the legacy ICCCM WM_NAME, the same fallback order the
// restore-matching title tier (spec.md:259) relies on.
func WindowTitle(conn *Connection, win xproto.Window) string {
	if title, err := ewmh.WmNameGet(conn.XUtil, win); err == nil && title != "" {
		return title
	}
	if title, err := icccm.WmNameGet(conn.XUtil, win); err == nil {
		return title
	}
	return ""
}
