package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hatchwm/tilewm/internal/action"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// Binding is one resolved keybinding: a modifier set, a key name, and the
// action it triggers.
type Binding struct {
	Mods   []string
	Key    string
	Action action.Action
}

var bindableActions = map[string]action.Kind{
	"focus_left":            action.FocusLeft,
	"focus_right":           action.FocusRight,
	"focus_up":              action.FocusUp,
	"focus_down":             action.FocusDown,
	"focus_next":            action.FocusNext,
	"focus_prev":            action.FocusPrev,
	"swap_master":           action.SwapMaster,
	"rotate_next":           action.RotateNext,
	"rotate_prev":           action.RotatePrev,
	"cycle_layout":          action.CycleLayout,
	"toggle_float":          action.ToggleFloat,
	"toggle_fullscreen":     action.ToggleFullscreen,
	"close":                 action.Close,
	"retile":                action.Retile,
	"reload_config":         action.ReloadConfig,
	"focus_monitor_left":    action.FocusMonitorLeft,
	"focus_monitor_right":   action.FocusMonitorRight,
	"move_to_monitor_left":  action.MoveToMonitorLeft,
	"move_to_monitor_right": action.MoveToMonitorRight,
	"position_left":         action.PositionLeft,
	"position_right":        action.PositionRight,
	"position_up":           action.PositionUp,
	"position_down":         action.PositionDown,
	"position_fill":         action.PositionFill,
	"position_center":       action.PositionCenter,
	"increase_gap":          action.IncreaseGap,
	"decrease_gap":          action.DecreaseGap,
	"grow_focused":          action.GrowFocused,
	"shrink_focused":        action.ShrinkFocused,
	"minimize":              action.Minimize,
	"niri_consume":          action.NiriConsume,
	"niri_expel":            action.NiriExpel,
	"preview_layout":        action.PreviewLayout,
}

// ParseBindingKey splits a config binding key like "mod4+shift+h" into its
// modifier list and base key name.
func ParseBindingKey(raw string) (mods []string, key string, err error) {
	parts := strings.Split(raw, "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return nil, "", fmt.Errorf("empty binding key %q", raw)
	}
	key = strings.TrimSpace(parts[len(parts)-1])
	for _, m := range parts[:len(parts)-1] {
		m = strings.TrimSpace(m)
		if m == "" {
			return nil, "", fmt.Errorf("empty modifier in binding key %q", raw)
		}
		mods = append(mods, m)
	}
	return mods, key, nil
}

// ParseBindingAction parses a config action value like "switch_workspace 3"
// or "set_mark a" into an Action. SwitchWorkspace/MoveToWorkspace require a
// workspace number in [1,9]; SetMark/JumpMark require a non-empty key.
func ParseBindingAction(raw string) (action.Action, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return action.Action{}, fmt.Errorf("empty action")
	}
	name, arg := fields[0], ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch name {
	case "switch_workspace", "move_to_workspace":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return action.Action{}, fmt.Errorf("%s requires an integer workspace number, got %q", name, arg)
		}
		ws := wmstate.WorkspaceNumber(n)
		if !wmstate.ValidWorkspaceNumber(ws) {
			return action.Action{}, fmt.Errorf("%s: workspace %d out of range [1,9]", name, n)
		}
		if name == "switch_workspace" {
			return action.NewSwitchWorkspace(ws), nil
		}
		return action.NewMoveToWorkspace(ws), nil
	case "set_mark", "jump_mark":
		if arg == "" {
			return action.Action{}, fmt.Errorf("%s requires a mark key", name)
		}
		if name == "set_mark" {
			return action.NewSetMark(arg), nil
		}
		return action.NewJumpMark(arg), nil
	}

	kind, ok := bindableActions[name]
	if !ok {
		return action.Action{}, fmt.Errorf("unknown action %q", name)
	}
	return action.Simple(kind), nil
}

// DefaultBindings returns the built-in keybindings, always using the super
// (mod4) modifier, matching a conventional Hyprland/i3-style default.
func DefaultBindings() []Binding {
	defs := []struct {
		mods []string
		key  string
		act  string
	}{
		{[]string{"mod4"}, "h", "focus_left"},
		{[]string{"mod4"}, "l", "focus_right"},
		{[]string{"mod4"}, "k", "focus_up"},
		{[]string{"mod4"}, "j", "focus_down"},
		{[]string{"mod4"}, "tab", "focus_next"},
		{[]string{"mod4", "shift"}, "tab", "focus_prev"},
		{[]string{"mod4"}, "return", "swap_master"},
		{[]string{"mod4"}, "r", "rotate_next"},
		{[]string{"mod4", "shift"}, "r", "rotate_prev"},
		{[]string{"mod4"}, "space", "cycle_layout"},
		{[]string{"mod4"}, "f", "toggle_float"},
		{[]string{"mod4", "shift"}, "f", "toggle_fullscreen"},
		{[]string{"mod4"}, "q", "close"},
		{[]string{"mod4", "shift"}, "c", "reload_config"},
		{[]string{"mod4"}, "comma", "focus_monitor_left"},
		{[]string{"mod4"}, "period", "focus_monitor_right"},
		{[]string{"mod4", "shift"}, "comma", "move_to_monitor_left"},
		{[]string{"mod4", "shift"}, "period", "move_to_monitor_right"},
		{[]string{"mod4", "shift"}, "h", "position_left"},
		{[]string{"mod4", "shift"}, "l", "position_right"},
		{[]string{"mod4", "shift"}, "k", "position_up"},
		{[]string{"mod4", "shift"}, "j", "position_down"},
		{[]string{"mod4", "shift"}, "space", "position_fill"},
		{[]string{"mod4", "shift"}, "return", "position_center"},
		{[]string{"mod4"}, "equal", "increase_gap"},
		{[]string{"mod4"}, "minus", "decrease_gap"},
		{[]string{"mod4", "control"}, "l", "grow_focused"},
		{[]string{"mod4", "control"}, "h", "shrink_focused"},
		{[]string{"mod4"}, "m", "minimize"},
		{[]string{"mod4"}, "c", "niri_consume"},
		{[]string{"mod4", "shift"}, "v", "niri_expel"},
	}

	out := make([]Binding, 0, len(defs))
	for _, d := range defs {
		act, err := ParseBindingAction(d.act)
		if err != nil {
			// Every entry above is a literal constant; a parse failure here
			// is a programming error in this table, not user input.
			panic(fmt.Sprintf("config: invalid default binding %q: %v", d.act, err))
		}
		out = append(out, Binding{Mods: d.mods, Key: d.key, Action: act})
	}
	return out
}

// workspaceBindings returns the modifier+1..9 (switch) and
// modifier+shift+1..9 (move) bindings that are always active regardless of
// the user's [bindings] section (spec §6: "always active, even when a
// custom bindings section is present").
func workspaceBindings() []Binding {
	var out []Binding
	for n := wmstate.MinWorkspaceNumber; n <= wmstate.MaxWorkspaceNumber; n++ {
		out = append(out,
			Binding{Mods: []string{"mod4"}, Key: strconv.Itoa(n), Action: action.NewSwitchWorkspace(wmstate.WorkspaceNumber(n))},
			Binding{Mods: []string{"mod4", "shift"}, Key: strconv.Itoa(n), Action: action.NewMoveToWorkspace(wmstate.WorkspaceNumber(n))},
		)
	}
	return out
}

func bindingIdentity(mods []string, key string) string {
	sorted := append([]string(nil), mods...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return strings.Join(sorted, "+") + "#" + key
}

// ResolvedBindings merges the built-in defaults with the config's
// user-supplied [bindings] section (user entries win on a mods+key
// conflict), then appends the always-on workspace bindings, which can never
// be shadowed by user config.
func (c *Config) ResolvedBindings() ([]Binding, error) {
	merged := make(map[string]Binding)
	for _, b := range DefaultBindings() {
		merged[bindingIdentity(b.Mods, b.Key)] = b
	}

	for raw, actRaw := range c.Bindings {
		mods, key, err := ParseBindingKey(raw)
		if err != nil {
			return nil, &ValidationError{Path: fmt.Sprintf("bindings.%s", raw), Err: err}
		}
		act, err := ParseBindingAction(actRaw)
		if err != nil {
			return nil, &ValidationError{Path: fmt.Sprintf("bindings.%s", raw), Err: err}
		}
		merged[bindingIdentity(mods, key)] = Binding{Mods: mods, Key: key, Action: act}
	}

	out := make([]Binding, 0, len(merged)+18)
	for _, b := range merged {
		out = append(out, b)
	}
	out = append(out, workspaceBindings()...)
	return out, nil
}
