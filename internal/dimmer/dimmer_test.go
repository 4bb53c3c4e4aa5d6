package dimmer

import (
	"testing"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

type fakeBridge struct {
	brightness map[wmstate.WindowID]float64
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{brightness: map[wmstate.WindowID]float64{}}
}

func (b *fakeBridge) Displays() ([]compositor.Display, error)       { return nil, nil }
func (b *fakeBridge) ActiveDisplay() (compositor.Display, error)    { return compositor.Display{}, nil }
func (b *fakeBridge) ActiveWindow() (wmstate.WindowID, bool, error) { return 0, false, nil }
func (b *fakeBridge) ListWindows(compositor.Display) ([]wmstate.WindowID, error) {
	return nil, nil
}
func (b *fakeBridge) FrameOf(wmstate.WindowID) (geom.Rect, error) { return geom.Rect{}, nil }
func (b *fakeBridge) IsDialogWindow(wmstate.WindowID) bool        { return false }
func (b *fakeBridge) WindowTitle(wmstate.WindowID) string         { return "" }
func (b *fakeBridge) SetFrame(wmstate.WindowID, geom.Rect) error  { return nil }
func (b *fakeBridge) SetAlpha(wmstate.WindowID, float64) error   { return nil }
func (b *fakeBridge) SetTransform(wmstate.WindowID, float64, float64, geom.Rect) error {
	return nil
}
func (b *fakeBridge) BeginBatch() error { return nil }
func (b *fakeBridge) EndBatch() error   { return nil }
func (b *fakeBridge) SetBrightness(id wmstate.WindowID, offset float64) error {
	b.brightness[id] = offset
	return nil
}
func (b *fakeBridge) FocusWithoutActivating(wmstate.WindowID) error { return nil }
func (b *fakeBridge) RequestClose(wmstate.WindowID) error           { return nil }

func TestApplyDimsAllButFocused(t *testing.T) {
	bridge := newFakeBridge()
	d := New(bridge, 0.3)

	if err := d.Apply([]wmstate.WindowID{1, 2, 3}, 2); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if bridge.brightness[1] != -0.3 || bridge.brightness[3] != -0.3 {
		t.Fatalf("unfocused windows should be dimmed: %+v", bridge.brightness)
	}
	if _, touched := bridge.brightness[2]; touched {
		t.Fatal("focused window should not be touched")
	}
}

func TestApplyZeroOffsetDimsNothing(t *testing.T) {
	bridge := newFakeBridge()
	d := New(bridge, 0)

	if err := d.Apply([]wmstate.WindowID{1, 2}, 1); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if len(bridge.brightness) != 0 {
		t.Fatalf("zero offset should dim nothing, got %+v", bridge.brightness)
	}
}

func TestApplyRestoresWindowsNoLongerDimmed(t *testing.T) {
	bridge := newFakeBridge()
	d := New(bridge, 0.3)

	if err := d.Apply([]wmstate.WindowID{1, 2}, 2); err != nil {
		t.Fatal(err)
	}
	if err := d.Apply([]wmstate.WindowID{2}, 2); err != nil {
		t.Fatal(err)
	}
	if bridge.brightness[1] != 0 {
		t.Fatalf("window 1 dropped from tiled set should be reset, got %v", bridge.brightness[1])
	}
}

func TestResetClearsAllAppliedWindows(t *testing.T) {
	bridge := newFakeBridge()
	d := New(bridge, 0.3)

	if err := d.Apply([]wmstate.WindowID{1, 2, 3}, 2); err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	for id, v := range bridge.brightness {
		if v != 0 {
			t.Fatalf("window %d brightness = %v after Reset, want 0", id, v)
		}
	}
}

func TestSetOffsetThenApplyUsesNewOffset(t *testing.T) {
	bridge := newFakeBridge()
	d := New(bridge, 0.3)
	d.SetOffset(0.5)

	if err := d.Apply([]wmstate.WindowID{1}, 2); err != nil {
		t.Fatal(err)
	}
	if bridge.brightness[1] != -0.5 {
		t.Fatalf("brightness = %v, want -0.5", bridge.brightness[1])
	}
}
