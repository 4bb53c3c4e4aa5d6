package compositor

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/hatchwm/tilewm/internal/wmstate"
)

// CreateOverlayWindow creates an unmapped override-redirect window used as
// the focus border's overlay (spec §4.5). Override-redirect keeps it out of
// EWMH's _NET_CLIENT_LIST and out of the Core's classification pipeline
// entirely. The border package only moves it and sets its opacity through
// the Bridge; nothing in tilewm maps the window.
func CreateOverlayWindow(conn *Connection) (wmstate.WindowID, error) {
	xu := conn.XUtil
	win, err := xproto.NewWindowId(xu.Conn())
	if err != nil {
		return 0, fmt.Errorf("compositor: allocate overlay window id: %w", err)
	}
	screen := xu.Screen()
	mask := uint32(xproto.CwOverrideRedirect | xproto.CwBackPixel)
	values := []uint32{1, screen.BlackPixel}
	err = xproto.CreateWindowChecked(
		xu.Conn(), screen.RootDepth, win, conn.Root,
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		mask, values,
	).Check()
	if err != nil {
		return 0, fmt.Errorf("compositor: create overlay window: %w", err)
	}
	return wmstate.WindowID(win), nil
}
