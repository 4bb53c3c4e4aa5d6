// Package border implements the BorderRenderer collaborator (spec §4.5): a
// single overlay window that tracks the focused tile's frame, inset/outset
// by the configured width, with the configured corner radius. Disabled by
// default; a no-op when disabled.
package border

import (
	"fmt"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/geom"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// Renderer owns one overlay window and moves it to track focus.
type Renderer struct {
	bridge    compositor.Bridge
	overlayID wmstate.WindowID
	enabled   bool
	width     int
	radius    int
}

// New builds a Renderer. overlayID is the id of a pre-created overlay
// window (its creation is the CompositorBridge's concern, out of scope
// here per spec §1).
func New(bridge compositor.Bridge, overlayID wmstate.WindowID, enabled bool, width, radius int) *Renderer {
	return &Renderer{bridge: bridge, overlayID: overlayID, enabled: enabled, width: width, radius: radius}
}

// SetEnabled toggles rendering; disabling hides the overlay immediately.
func (r *Renderer) SetEnabled(enabled bool) error {
	r.enabled = enabled
	if !enabled {
		return r.bridge.SetAlpha(r.overlayID, 0)
	}
	return nil
}

// Radius reports the configured corner radius, exposed for a real
// compositor-side renderer to consume; this package only tracks geometry.
func (r *Renderer) Radius() int { return r.radius }

// Update positions the overlay around focusedFrame, outset by the
// configured border width. Called on every focus or layout change (spec
// §4.5).
func (r *Renderer) Update(focusedFrame geom.Rect) error {
	if !r.enabled {
		return nil
	}
	outset := geom.Rect{
		X:      focusedFrame.X - r.width,
		Y:      focusedFrame.Y - r.width,
		Width:  focusedFrame.Width + 2*r.width,
		Height: focusedFrame.Height + 2*r.width,
	}
	if err := r.bridge.SetFrame(r.overlayID, outset); err != nil {
		return fmt.Errorf("border: update frame: %w", err)
	}
	return r.bridge.SetAlpha(r.overlayID, 1)
}

// Hide removes the overlay from view without disabling the renderer, used
// when no window is focused (e.g. an empty workspace).
func (r *Renderer) Hide() error {
	return r.bridge.SetAlpha(r.overlayID, 0)
}
