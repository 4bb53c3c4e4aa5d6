package animator

import (
	"sync"
	"testing"
	"time"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

type recordingBridge struct {
	mu     sync.Mutex
	frames map[wmstate.WindowID]geom.Rect
	alphas map[wmstate.WindowID]float64
}

func newRecordingBridge() *recordingBridge {
	return &recordingBridge{frames: map[wmstate.WindowID]geom.Rect{}, alphas: map[wmstate.WindowID]float64{}}
}

func (b *recordingBridge) Displays() ([]compositor.Display, error)       { return nil, nil }
func (b *recordingBridge) ActiveDisplay() (compositor.Display, error)    { return compositor.Display{}, nil }
func (b *recordingBridge) ActiveWindow() (wmstate.WindowID, bool, error) { return 0, false, nil }
func (b *recordingBridge) ListWindows(compositor.Display) ([]wmstate.WindowID, error) {
	return nil, nil
}
func (b *recordingBridge) FrameOf(id wmstate.WindowID) (geom.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames[id], nil
}
func (b *recordingBridge) IsDialogWindow(wmstate.WindowID) bool { return false }
func (b *recordingBridge) WindowTitle(wmstate.WindowID) string  { return "" }
func (b *recordingBridge) SetFrame(id wmstate.WindowID, frame geom.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames[id] = frame
	return nil
}
func (b *recordingBridge) SetAlpha(id wmstate.WindowID, alpha float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alphas[id] = alpha
	return nil
}
func (b *recordingBridge) SetTransform(id wmstate.WindowID, scale, alpha float64, around geom.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alphas[id] = alpha
	b.frames[id] = around
	return nil
}
func (b *recordingBridge) BeginBatch() error                           { return nil }
func (b *recordingBridge) EndBatch() error                             { return nil }
func (b *recordingBridge) SetBrightness(wmstate.WindowID, float64) error { return nil }
func (b *recordingBridge) FocusWithoutActivating(wmstate.WindowID) error { return nil }
func (b *recordingBridge) RequestClose(wmstate.WindowID) error          { return nil }

func (b *recordingBridge) alphaOf(id wmstate.WindowID) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.alphas[id]
	return a, ok
}

func TestCurveEaseEndpoints(t *testing.T) {
	c := PopinCurve
	if got := c.Ease(0); got != 0 {
		t.Fatalf("Ease(0) = %v, want 0", got)
	}
	if got := c.Ease(1); got != 1 {
		t.Fatalf("Ease(1) = %v, want 1", got)
	}
}

func TestCurveEaseMonotonic(t *testing.T) {
	c := PopoutCurve
	prev := -1.0
	for i := 0; i <= 10; i++ {
		t := float64(i) / 10
		y := c.Ease(t)
		if y < prev {
			panic("curve should be monotonically non-decreasing")
		}
		prev = y
	}
}

func TestPopinReachesFullAlphaAndTargetFrame(t *testing.T) {
	bridge := newRecordingBridge()
	a := New(bridge, nil)
	defer a.Close()

	target := geom.Rect{X: 10, Y: 10, Width: 200, Height: 200}
	a.StartPopin(1, target)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.State() == Idle {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	bridge.mu.Lock()
	frame, ok := bridge.frames[1]
	bridge.mu.Unlock()
	if !ok || frame != target {
		t.Fatalf("final popin frame = %+v, %v, want %+v, true", frame, ok, target)
	}
	alpha, ok := bridge.alphaOf(1)
	if !ok || alpha != 1 {
		t.Fatalf("final popin alpha = %v, %v, want 1, true", alpha, ok)
	}
}

func TestCloseInvokesCallbackExactlyOnce(t *testing.T) {
	bridge := newRecordingBridge()
	a := New(bridge, nil)
	defer a.Close()

	var calls int
	var mu sync.Mutex
	done := make(chan struct{})
	a.StartClose(2, geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, func() {
		mu.Lock()
		calls++
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close callback never fired")
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("close callback invoked %d times, want 1", calls)
	}
}

func TestCancelAllIsIdempotentAndInvokesPendingCallbackOnce(t *testing.T) {
	bridge := newRecordingBridge()
	a := New(bridge, nil)
	defer a.Close()

	var calls int
	var mu sync.Mutex
	a.StartClose(3, geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	a.CancelAll()
	a.CancelAll()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("CancelAll should invoke the pending close callback exactly once, got %d", calls)
	}
	if a.State() != Idle {
		t.Fatalf("State() after CancelAll = %v, want Idle", a.State())
	}
}
