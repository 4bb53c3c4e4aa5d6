package core

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/hatchwm/tilewm/internal/action"
	"github.com/hatchwm/tilewm/internal/animator"
	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/config"
	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/observer"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// fakeBridge is an in-memory compositor.Bridge: one display, frames/alpha
// recorded per window id, no X11 round-trips.
type fakeBridge struct {
	mu       sync.Mutex
	displays []compositor.Display
	frames   map[wmstate.WindowID]geom.Rect
	alphas   map[wmstate.WindowID]float64
	closed   []wmstate.WindowID
	windows  []wmstate.WindowID
	dialogs  map[wmstate.WindowID]bool
	titles   map[wmstate.WindowID]string
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		displays: []compositor.Display{{ID: "eDP-1", Region: geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}}},
		frames:   map[wmstate.WindowID]geom.Rect{},
		alphas:   map[wmstate.WindowID]float64{},
	}
}

func (b *fakeBridge) Displays() ([]compositor.Display, error) { return b.displays, nil }
func (b *fakeBridge) ActiveDisplay() (compositor.Display, error) {
	return b.displays[0], nil
}
func (b *fakeBridge) ActiveWindow() (wmstate.WindowID, bool, error) { return 0, false, nil }
func (b *fakeBridge) ListWindows(d compositor.Display) ([]wmstate.WindowID, error) {
	return b.windows, nil
}
func (b *fakeBridge) FrameOf(id wmstate.WindowID) (geom.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames[id], nil
}
func (b *fakeBridge) IsDialogWindow(id wmstate.WindowID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dialogs[id]
}
func (b *fakeBridge) WindowTitle(id wmstate.WindowID) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.titles[id]
}
func (b *fakeBridge) SetFrame(id wmstate.WindowID, frame geom.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames[id] = frame
	return nil
}
func (b *fakeBridge) SetAlpha(id wmstate.WindowID, alpha float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alphas[id] = alpha
	return nil
}
func (b *fakeBridge) SetTransform(id wmstate.WindowID, scale, alpha float64, around geom.Rect) error {
	return b.SetAlpha(id, alpha)
}
func (b *fakeBridge) BeginBatch() error                                  { return nil }
func (b *fakeBridge) EndBatch() error                                    { return nil }
func (b *fakeBridge) SetBrightness(id wmstate.WindowID, offset float64) error { return nil }
func (b *fakeBridge) FocusWithoutActivating(id wmstate.WindowID) error   { return nil }
func (b *fakeBridge) RequestClose(id wmstate.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, id)
	return nil
}

type fakeTree struct {
	parent map[int]int
}

func (t *fakeTree) ParentPID(pid int) (int, bool) {
	p, ok := t.parent[pid]
	return p, ok
}

func newTestCore(t *testing.T, cfg *config.Config) (*Core, *fakeBridge) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	bridge := newFakeBridge()
	anim := animator.New(bridge, slog.Default())
	c, err := New(bridge, anim, nil, nil, cfg, &fakeTree{parent: map[int]int{}}, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, bridge
}

func insertTiled(ws *wmstate.VirtualWorkspace, id wmstate.WindowID) {
	ws.Tracked[id] = &wmstate.TrackedWindow{WindowID: id}
	ws.Tiled = append(ws.Tiled, id)
}

func TestHandleSwapMasterThenSwapMasterIsInvolution(t *testing.T) {
	c, _ := newTestCore(t, nil)
	ws := c.store.ActiveWorkspace("eDP-1")
	insertTiled(ws, 1)
	insertTiled(ws, 2)
	insertTiled(ws, 3)
	focused := wmstate.WindowID(3)
	ws.Focused = &focused

	before := append([]wmstate.WindowID{}, ws.Tiled...)
	if err := c.Handle(action.Simple(action.SwapMaster)); err != nil {
		t.Fatalf("Handle(SwapMaster) error = %v", err)
	}
	if err := c.Handle(action.Simple(action.SwapMaster)); err != nil {
		t.Fatalf("Handle(SwapMaster) error = %v", err)
	}
	for i, id := range ws.Tiled {
		if id != before[i] {
			t.Fatalf("swap_master twice = %v, want identity %v", ws.Tiled, before)
		}
	}
}

func TestHandleRotateNextThenRotatePrevIsIdentity(t *testing.T) {
	c, _ := newTestCore(t, nil)
	ws := c.store.ActiveWorkspace("eDP-1")
	insertTiled(ws, 1)
	insertTiled(ws, 2)
	insertTiled(ws, 3)
	before := append([]wmstate.WindowID{}, ws.Tiled...)

	if err := c.Handle(action.Simple(action.RotateNext)); err != nil {
		t.Fatalf("Handle(RotateNext) error = %v", err)
	}
	if err := c.Handle(action.Simple(action.RotatePrev)); err != nil {
		t.Fatalf("Handle(RotatePrev) error = %v", err)
	}
	for i, id := range ws.Tiled {
		if id != before[i] {
			t.Fatalf("rotate_next . rotate_prev = %v, want %v", ws.Tiled, before)
		}
	}
}

func TestHandleCycleLayoutAdvancesByTwoModThreeAfterTwoCalls(t *testing.T) {
	c, _ := newTestCore(t, nil)
	ws := c.store.ActiveWorkspace("eDP-1")
	start := ws.LayoutVariant

	if err := c.Handle(action.Simple(action.CycleLayout)); err != nil {
		t.Fatalf("Handle(CycleLayout) error = %v", err)
	}
	if err := c.Handle(action.Simple(action.CycleLayout)); err != nil {
		t.Fatalf("Handle(CycleLayout) error = %v", err)
	}
	want := (start + 2) % 3
	if ws.LayoutVariant != want {
		t.Fatalf("LayoutVariant after two cycles = %v, want %v", ws.LayoutVariant, want)
	}
}

func TestHandleToggleFloatTwiceReturnsOriginalSubset(t *testing.T) {
	c, _ := newTestCore(t, nil)
	ws := c.store.ActiveWorkspace("eDP-1")
	insertTiled(ws, 1)
	id := wmstate.WindowID(1)
	ws.Focused = &id

	if err := c.Handle(action.Simple(action.ToggleFloat)); err != nil {
		t.Fatalf("Handle(ToggleFloat) error = %v", err)
	}
	if _, ok := ws.Floating[id]; !ok {
		t.Fatalf("window not floating after first toggle")
	}
	if err := c.Handle(action.Simple(action.ToggleFloat)); err != nil {
		t.Fatalf("Handle(ToggleFloat) error = %v", err)
	}
	if _, ok := ws.Floating[id]; ok {
		t.Fatalf("window still floating after second toggle")
	}
	found := false
	for _, w := range ws.Tiled {
		if w == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("window not restored to tiled set")
	}
}

func TestTwoWindowMasterStackFrameArithmetic(t *testing.T) {
	c, b := newTestCore(t, nil)
	ws := c.store.ActiveWorkspace("eDP-1")
	insertTiled(ws, 1)
	first := wmstate.WindowID(1)
	ws.Focused = &first

	if err := c.Handle(action.Simple(action.Retile)); err != nil {
		t.Fatalf("Handle(Retile) error = %v", err)
	}
	insertTiled(ws, 2)
	if err := c.Handle(action.Simple(action.Retile)); err != nil {
		t.Fatalf("Handle(Retile) error = %v", err)
	}

	region := c.tileRegion(b.displays[0])
	frames := b.frames
	f1, f2 := frames[1], frames[2]
	if f1.Width+f2.Width+c.cfg.Layout.InnerGap != region.Width {
		t.Fatalf("side-by-side widths %d+%d+gap %d != region width %d", f1.Width, f2.Width, c.cfg.Layout.InnerGap, region.Width)
	}
	if f1.Height != region.Height || f2.Height != region.Height {
		t.Fatalf("two-window frames should span full region height: %d, %d vs %d", f1.Height, f2.Height, region.Height)
	}
}

func TestSetMarkThenJumpMarkReturnsFocus(t *testing.T) {
	c, _ := newTestCore(t, nil)
	ws := c.store.ActiveWorkspace("eDP-1")
	insertTiled(ws, 1)
	insertTiled(ws, 2)
	target := wmstate.WindowID(2)
	ws.Focused = &target

	if err := c.Handle(action.NewSetMark("a")); err != nil {
		t.Fatalf("Handle(SetMark) error = %v", err)
	}
	other := wmstate.WindowID(1)
	ws.Focused = &other

	if err := c.Handle(action.NewJumpMark("a")); err != nil {
		t.Fatalf("Handle(JumpMark) error = %v", err)
	}
	if ws.Focused == nil || *ws.Focused != target {
		t.Fatalf("Focused after jump_mark = %v, want %v", ws.Focused, target)
	}
}

func TestCloseRedistributesRemainingTiledWindows(t *testing.T) {
	c, b := newTestCore(t, nil)
	ws := c.store.ActiveWorkspace("eDP-1")
	insertTiled(ws, 1)
	insertTiled(ws, 2)
	focused := wmstate.WindowID(1)
	ws.Focused = &focused
	_ = c.Handle(action.Simple(action.Retile))

	if err := c.Handle(action.Simple(action.Close)); err != nil {
		t.Fatalf("Handle(Close) error = %v", err)
	}
	if len(ws.Tiled) != 1 || ws.Tiled[0] != 2 {
		t.Fatalf("Tiled after close = %v, want [2]", ws.Tiled)
	}
	region := c.tileRegion(b.displays[0])
	if f := b.frames[2]; f.Width != region.Width || f.Height != region.Height {
		t.Fatalf("remaining window not redistributed to full region: %+v", f)
	}
}

func TestSwitchWorkspaceMoveAndReturnPreservesState(t *testing.T) {
	c, _ := newTestCore(t, nil)
	monitor := wmstate.MonitorID("eDP-1")
	ws1 := c.store.Workspace(monitor, 1)
	insertTiled(ws1, 1)
	first := wmstate.WindowID(1)
	ws1.Focused = &first

	if err := c.switchWorkspace(monitor, 2); err != nil {
		t.Fatalf("switchWorkspace(2) error = %v", err)
	}
	if c.store.ActiveWorkspaceNumber(monitor) != 2 {
		t.Fatalf("active workspace = %d, want 2", c.store.ActiveWorkspaceNumber(monitor))
	}
	if err := c.switchWorkspace(monitor, 1); err != nil {
		t.Fatalf("switchWorkspace(1) error = %v", err)
	}
	if len(ws1.Tiled) != 1 || ws1.Tiled[0] != 1 {
		t.Fatalf("workspace 1 tiled set not preserved across round trip: %v", ws1.Tiled)
	}
}

func TestSwallowThenDestroyRestoresTerminalAtFormerIndex(t *testing.T) {
	c, b := newTestCore(t, config.DefaultConfig())
	c.rules.swallow = []string{"wezterm"}
	ws := c.store.ActiveWorkspace("eDP-1")

	insertTiled(ws, 10)
	ws.Tracked[10].OwnerPID = 100
	ws.Tracked[10].AppName = "wezterm"
	insertTiled(ws, 20)
	focused := wmstate.WindowID(10)
	ws.Focused = &focused

	c.tree.(*fakeTree).parent[200] = 100

	gid := wmstate.WindowID(30)
	// A normal-sized frame, so the auto-float-dialogs size rule (< 500x400)
	// does not float G before the swallow check.
	b.frames[gid] = geom.Rect{Width: 1200, Height: 800}
	if err := c.OnWindowCreated(gid, 200, "vim", ""); err != nil {
		t.Fatalf("OnWindowCreated error = %v", err)
	}
	if len(ws.Tiled) != 2 || ws.Tiled[0] != gid {
		t.Fatalf("after swallow, Tiled = %v, want [%d 20]", ws.Tiled, gid)
	}

	if err := c.OnWindowDestroyed(gid); err != nil {
		t.Fatalf("OnWindowDestroyed error = %v", err)
	}
	if len(ws.Tiled) != 2 || ws.Tiled[0] != 10 {
		t.Fatalf("after unswallow, Tiled = %v, want terminal restored to former index 0", ws.Tiled)
	}
}

func TestOnAppActivatedSwitchesToWorkspaceOwningPID(t *testing.T) {
	c, _ := newTestCore(t, config.DefaultConfig())
	monitor := wmstate.MonitorID("eDP-1")

	active := c.store.ActiveWorkspace(monitor)
	insertTiled(active, 1)
	active.Tracked[1].OwnerPID = 100

	other := c.store.Workspace(monitor, 2)
	insertTiled(other, 2)
	other.Tracked[2].OwnerPID = 200

	if err := c.OnAppActivated(200, "firefox"); err != nil {
		t.Fatalf("OnAppActivated error = %v", err)
	}
	if c.store.ActiveWorkspaceNumber(monitor) != 2 {
		t.Fatalf("active workspace = %d, want 2", c.store.ActiveWorkspaceNumber(monitor))
	}
}

func TestOnAppActivatedIsNoOpWhenFocusFollowsAppDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Layout.FocusFollowsApp = false
	c, _ := newTestCore(t, cfg)
	monitor := wmstate.MonitorID("eDP-1")

	active := c.store.ActiveWorkspace(monitor)
	insertTiled(active, 1)
	active.Tracked[1].OwnerPID = 100

	other := c.store.Workspace(monitor, 2)
	insertTiled(other, 2)
	other.Tracked[2].OwnerPID = 200

	if err := c.OnAppActivated(200, "firefox"); err != nil {
		t.Fatalf("OnAppActivated error = %v", err)
	}
	if c.store.ActiveWorkspaceNumber(monitor) != 1 {
		t.Fatalf("active workspace = %d, want unchanged 1", c.store.ActiveWorkspaceNumber(monitor))
	}
}

func TestOnAppTerminatedDestroysEveryWindowOwnedByPID(t *testing.T) {
	c, _ := newTestCore(t, nil)
	monitor := wmstate.MonitorID("eDP-1")
	ws := c.store.Workspace(monitor, 1)
	insertTiled(ws, 1)
	ws.Tracked[1].OwnerPID = 100
	insertTiled(ws, 2)
	ws.Tracked[2].OwnerPID = 100
	insertTiled(ws, 3)
	ws.Tracked[3].OwnerPID = 200

	if err := c.OnAppTerminated(100); err != nil {
		t.Fatalf("OnAppTerminated error = %v", err)
	}
	if len(ws.Tiled) != 1 || ws.Tiled[0] != 3 {
		t.Fatalf("Tiled after terminate = %v, want only window 3 (owned by a different pid)", ws.Tiled)
	}
	if _, ok := ws.Tracked[1]; ok {
		t.Fatal("window 1 should have been destroyed")
	}
	if _, ok := ws.Tracked[2]; ok {
		t.Fatal("window 2 should have been destroyed")
	}
}

func TestOnObserverEventDispatchesAppActivatedAndAppTerminated(t *testing.T) {
	c, _ := newTestCore(t, config.DefaultConfig())
	monitor := wmstate.MonitorID("eDP-1")

	active := c.store.ActiveWorkspace(monitor)
	insertTiled(active, 1)
	active.Tracked[1].OwnerPID = 100

	other := c.store.Workspace(monitor, 2)
	insertTiled(other, 2)
	other.Tracked[2].OwnerPID = 200

	if err := c.OnObserverEvent(observer.Event{Kind: observer.AppActivated, PID: 200, AppName: "firefox"}); err != nil {
		t.Fatalf("OnObserverEvent(AppActivated) error = %v", err)
	}
	if c.store.ActiveWorkspaceNumber(monitor) != 2 {
		t.Fatalf("active workspace = %d, want 2", c.store.ActiveWorkspaceNumber(monitor))
	}

	if err := c.OnObserverEvent(observer.Event{Kind: observer.AppTerminated, PID: 200}); err != nil {
		t.Fatalf("OnObserverEvent(AppTerminated) error = %v", err)
	}
	if _, ok := other.Tracked[2]; ok {
		t.Fatal("window 2 should have been destroyed by the terminate cascade")
	}
}

func TestReconcileOrphansRestoresNearHiddenWindows(t *testing.T) {
	c, b := newTestCore(t, nil)
	d := b.displays[0]
	orphan := wmstate.WindowID(99)
	b.windows = []wmstate.WindowID{orphan}
	b.frames[orphan] = hiddenFrame(d, 400, 300)

	if err := c.ReconcileOrphans(); err != nil {
		t.Fatalf("ReconcileOrphans error = %v", err)
	}
	f := b.frames[orphan]
	if f.Width != d.Region.Width/2 || f.Height != d.Region.Height/2 {
		t.Fatalf("orphan not restored to quarter-screen frame: %+v", f)
	}
	if b.alphas[orphan] != 1 {
		t.Fatalf("orphan alpha = %v, want 1", b.alphas[orphan])
	}
}

func TestNiriConsumeThenExpelRestoresColumnCount(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Layout.TilingMode = config.TilingModeNiri
	c, _ := newTestCore(t, cfg)
	ws := c.store.ActiveWorkspace("eDP-1")

	ws.ScrollingColumns = []wmstate.Column{
		{Windows: []wmstate.WindowID{1}},
		{Windows: []wmstate.WindowID{2}},
	}
	ws.ActiveColumnIndex = 0
	ws.Tracked[1] = &wmstate.TrackedWindow{WindowID: 1}
	ws.Tracked[2] = &wmstate.TrackedWindow{WindowID: 2}
	ws.Tiled = wmstate.FlattenColumns(ws.ScrollingColumns)

	if err := c.Handle(action.Simple(action.NiriConsume)); err != nil {
		t.Fatalf("Handle(NiriConsume) error = %v", err)
	}
	if len(ws.ScrollingColumns) != 1 || len(ws.ScrollingColumns[0].Windows) != 2 {
		t.Fatalf("after consume, columns = %+v, want one column with both windows", ws.ScrollingColumns)
	}

	if err := c.Handle(action.Simple(action.NiriExpel)); err != nil {
		t.Fatalf("Handle(NiriExpel) error = %v", err)
	}
	if len(ws.ScrollingColumns) != 2 {
		t.Fatalf("after expel, columns = %+v, want two single-window columns", ws.ScrollingColumns)
	}
}
