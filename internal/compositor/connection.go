package compositor

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection is the one X11 connection the daemon holds open: the root
// window every CompositorBridge call and every EventRouter grab (spec §4.3)
// is scoped to.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection opens the X11 connection and initializes the keybind and
// mousebind extensions the EventRouter needs for its key and drag grabs
// (spec §4.3); LinuxBridge and the rest of the compositor package only need
// the raw connection and root window below.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	keybind.Initialize(xu)
	mousebind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop runs the X11 event dispatch loop until the connection closes.
// It blocks for the lifetime of the daemon.
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Close disconnects from the X11 server.
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
