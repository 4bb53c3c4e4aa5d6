// Package action defines the tagged-union of user-triggerable operations
// that the EventRouter, the CLI and the automation MCP server all funnel
// into the Core's single Handle(Action) entry point.
//
// Grounded on the shape of the teacher's internal/ipc/protocol.go
// CommandType enum + payload-per-command Request struct: one Kind constant
// per case, with only the fields a given Kind actually uses populated.
package action

import "github.com/hatchwm/tilewm/internal/wmstate"

// Kind names one of the ~35 operations in the tagged union.
type Kind string

const (
	FocusLeft  Kind = "focus_left"
	FocusRight Kind = "focus_right"
	FocusUp    Kind = "focus_up"
	FocusDown  Kind = "focus_down"
	FocusNext  Kind = "focus_next"
	FocusPrev  Kind = "focus_prev"

	SwapMaster Kind = "swap_master"
	RotateNext Kind = "rotate_next"
	RotatePrev Kind = "rotate_prev"
	CycleLayout Kind = "cycle_layout"

	ToggleFloat      Kind = "toggle_float"
	ToggleFullscreen Kind = "toggle_fullscreen"
	Close            Kind = "close"
	Retile           Kind = "retile"
	ReloadConfig     Kind = "reload_config"

	FocusMonitorLeft   Kind = "focus_monitor_left"
	FocusMonitorRight  Kind = "focus_monitor_right"
	MoveToMonitorLeft  Kind = "move_to_monitor_left"
	MoveToMonitorRight Kind = "move_to_monitor_right"

	PositionLeft   Kind = "position_left"
	PositionRight  Kind = "position_right"
	PositionUp     Kind = "position_up"
	PositionDown   Kind = "position_down"
	PositionFill   Kind = "position_fill"
	PositionCenter Kind = "position_center"

	IncreaseGap   Kind = "increase_gap"
	DecreaseGap   Kind = "decrease_gap"
	GrowFocused   Kind = "grow_focused"
	ShrinkFocused Kind = "shrink_focused"

	SwitchWorkspace  Kind = "switch_workspace"
	MoveToWorkspace  Kind = "move_to_workspace"

	Minimize Kind = "minimize"
	SetMark  Kind = "set_mark"
	JumpMark Kind = "jump_mark"

	NiriConsume Kind = "niri_consume"
	NiriExpel   Kind = "niri_expel"

	// PreviewLayout is a supplemented action (not in the original bindings
	// list): apply a layout for a few seconds and restore prior geometry.
	PreviewLayout Kind = "preview_layout"

	// DragResize and DragReorder are emitted by the EventRouter mid-drag,
	// not bound to a key; included in the tagged union so the Core's single
	// Handle entry point still covers them (spec §4.3 drag-to-resize/reorder).
	DragResize  Kind = "drag_resize"
	DragReorder Kind = "drag_reorder"
)

// MonitorDirection distinguishes which neighbor monitor focus_monitor /
// move_to_monitor targets.
type MonitorDirection int

const (
	MonitorLeft MonitorDirection = iota
	MonitorRight
)

// Action is one concrete instance of the tagged union: Kind selects which
// of the optional fields below are populated.
type Action struct {
	Kind Kind

	// Workspace is used by SwitchWorkspace / MoveToWorkspace.
	Workspace wmstate.WorkspaceNumber

	// MarkKey is used by SetMark / JumpMark.
	MarkKey string

	// MonitorDir names a monitor direction independently of the Kind. The
	// FocusMonitorLeft/Right and MoveToMonitorLeft/Right Kinds already encode
	// direction, and no code in tilewm sets or reads this field.
	MonitorDir MonitorDirection

	// DragDeltaRatio is the drag-to-resize cursor position expressed as a
	// fraction of the display width. The router does not clamp it; the Core
	// clamps it to [MinSplitRatio, MaxSplitRatio] when setting split_ratio.
	DragDeltaRatio float64

	// DragFromWindow/DragToWindow identify the swap endpoints of a
	// drag-to-reorder gesture.
	DragFromWindow wmstate.WindowID
	DragToWindow   wmstate.WindowID
}

// NewSwitchWorkspace builds a SwitchWorkspace action, the form the CLI,
// EventRouter and automation server all use.
func NewSwitchWorkspace(n wmstate.WorkspaceNumber) Action {
	return Action{Kind: SwitchWorkspace, Workspace: n}
}

// NewMoveToWorkspace builds a MoveToWorkspace action.
func NewMoveToWorkspace(n wmstate.WorkspaceNumber) Action {
	return Action{Kind: MoveToWorkspace, Workspace: n}
}

// NewSetMark builds a SetMark action.
func NewSetMark(key string) Action {
	return Action{Kind: SetMark, MarkKey: key}
}

// NewJumpMark builds a JumpMark action.
func NewJumpMark(key string) Action {
	return Action{Kind: JumpMark, MarkKey: key}
}

// Simple returns an Action with no payload, for the many Kinds that need
// none (focus_left, close, retile, ...).
func Simple(k Kind) Action {
	return Action{Kind: k}
}
