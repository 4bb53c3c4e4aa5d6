// Package dimmer implements the unfocused-window dimming collaborator
// (spec §4.6): applies a brightness offset to every tiled window on the
// active workspace other than the focused one, and resets the offset back
// to neutral on teardown or when dim_unfocused is reconfigured to zero.
package dimmer

import (
	"fmt"

	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// Dimmer tracks which windows currently carry a brightness offset so it can
// reset exactly those windows later, without needing a full workspace scan.
type Dimmer struct {
	bridge  compositor.Bridge
	offset  float64
	applied map[wmstate.WindowID]struct{}
}

// New builds a Dimmer with the given brightness offset (spec §6
// layout.dim_unfocused, in [0,1]; 0 disables dimming).
func New(bridge compositor.Bridge, offset float64) *Dimmer {
	return &Dimmer{bridge: bridge, offset: offset, applied: make(map[wmstate.WindowID]struct{})}
}

// SetOffset changes the configured dim amount for subsequent Apply calls.
// It does not itself touch any window; call Apply to re-converge.
func (d *Dimmer) SetOffset(offset float64) {
	d.offset = offset
}

// Apply dims every id in tiled except focused, and restores brightness on
// any previously dimmed window no longer in that set (e.g. it was closed,
// moved workspace, or became focused).
func (d *Dimmer) Apply(tiled []wmstate.WindowID, focused wmstate.WindowID) error {
	want := make(map[wmstate.WindowID]struct{}, len(tiled))
	if d.offset > 0 {
		for _, id := range tiled {
			if id == focused {
				continue
			}
			want[id] = struct{}{}
		}
	}

	for id := range d.applied {
		if _, stillWanted := want[id]; !stillWanted {
			if err := d.bridge.SetBrightness(id, 0); err != nil {
				return fmt.Errorf("dimmer: reset window %d: %w", id, err)
			}
		}
	}
	for id := range want {
		if err := d.bridge.SetBrightness(id, -d.offset); err != nil {
			return fmt.Errorf("dimmer: dim window %d: %w", id, err)
		}
	}
	d.applied = want
	return nil
}

// Reset clears the brightness offset from every window this Dimmer has
// applied to, used on daemon teardown or when dim_unfocused is reloaded to
// zero.
func (d *Dimmer) Reset() error {
	for id := range d.applied {
		if err := d.bridge.SetBrightness(id, 0); err != nil {
			return fmt.Errorf("dimmer: reset window %d: %w", id, err)
		}
	}
	d.applied = make(map[wmstate.WindowID]struct{})
	return nil
}
