package wmstate

import "testing"

func TestWorkspaceCreatesOnFirstAccessWithDefaults(t *testing.T) {
	s := NewStore()
	ws := s.Workspace("mon-0", 1)
	if ws.SplitRatio != 0.5 {
		t.Fatalf("new workspace split ratio = %v, want 0.5", ws.SplitRatio)
	}
	if len(ws.Tiled) != 0 {
		t.Fatalf("new workspace should have no tiled windows, got %v", ws.Tiled)
	}
}

func TestActiveWorkspaceNumberDefaultsToOne(t *testing.T) {
	s := NewStore()
	if got := s.ActiveWorkspaceNumber("mon-0"); got != 1 {
		t.Fatalf("ActiveWorkspaceNumber on unseen monitor = %d, want 1", got)
	}
}

func TestSetActiveWorkspaceNumberRejectsOutOfRange(t *testing.T) {
	s := NewStore()
	if err := s.SetActiveWorkspaceNumber("mon-0", 10); err == nil {
		t.Fatal("expected error for workspace number 10")
	}
	if err := s.SetActiveWorkspaceNumber("mon-0", 0); err == nil {
		t.Fatal("expected error for workspace number 0")
	}
}

func TestWorkspacesWithWindowsOnlyListsNonEmpty(t *testing.T) {
	s := NewStore()
	empty := s.Workspace("mon-0", 1)
	_ = empty
	full := s.Workspace("mon-0", 2)
	full.Tiled = append(full.Tiled, 100)

	got := s.WorkspacesWithWindows("mon-0")
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("WorkspacesWithWindows = %v, want [2]", got)
	}
}

func TestFindWorkspaceOfLocatesTrackedWindow(t *testing.T) {
	s := NewStore()
	ws := s.Workspace("mon-0", 3)
	ws.Tracked[42] = &TrackedWindow{WindowID: 42}
	ws.Tiled = append(ws.Tiled, 42)

	monitor, n, ok := s.FindWorkspaceOf(42)
	if !ok || monitor != "mon-0" || n != 3 {
		t.Fatalf("FindWorkspaceOf(42) = %v, %v, %v, want mon-0, 3, true", monitor, n, ok)
	}

	_, _, ok = s.FindWorkspaceOf(999)
	if ok {
		t.Fatal("FindWorkspaceOf should not find an unknown window")
	}
}

func TestAllHiddenWindowIDsExcludesActiveWorkspaceAndSticky(t *testing.T) {
	s := NewStore()
	s.SetActiveWorkspaceNumber("mon-0", 1)

	active := s.Workspace("mon-0", 1)
	active.Tracked[1] = &TrackedWindow{WindowID: 1}
	active.Tiled = append(active.Tiled, 1)

	inactive := s.Workspace("mon-0", 2)
	inactive.Tracked[2] = &TrackedWindow{WindowID: 2}
	inactive.Tiled = append(inactive.Tiled, 2)

	stickyOnInactive := s.Workspace("mon-0", 2)
	stickyOnInactive.Tracked[3] = &TrackedWindow{WindowID: 3, IsSticky: true}

	hidden := s.AllHiddenWindowIDs()
	hiddenSet := map[WindowID]bool{}
	for _, id := range hidden {
		hiddenSet[id] = true
	}
	if hiddenSet[1] {
		t.Fatal("window on the active workspace should not be hidden")
	}
	if !hiddenSet[2] {
		t.Fatal("window on an inactive workspace should be hidden")
	}
	if hiddenSet[3] {
		t.Fatal("sticky window should not be reported hidden")
	}
}

func TestAllHiddenWindowIDsIncludesMinimized(t *testing.T) {
	s := NewStore()
	s.SetActiveWorkspaceNumber("mon-0", 1)
	active := s.Workspace("mon-0", 1)
	active.Tracked[1] = &TrackedWindow{WindowID: 1, IsMinimized: true}

	hidden := s.AllHiddenWindowIDs()
	if len(hidden) != 1 || hidden[0] != 1 {
		t.Fatalf("AllHiddenWindowIDs = %v, want [1]", hidden)
	}
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	s := NewStore()
	ws := s.Workspace("mon-0", 1)
	ws.Tiled = []WindowID{1, 2}
	ws.Tracked[1] = &TrackedWindow{WindowID: 1}
	ws.Tracked[2] = &TrackedWindow{WindowID: 2}
	focused := WindowID(2)
	ws.Focused = &focused

	snap := ws.Snapshot()

	ws.Tiled = []WindowID{1}
	delete(ws.Tracked, 2)
	ws.Focused = nil

	ws.Restore(snap)
	if len(ws.Tiled) != 2 || ws.Tiled[0] != 1 || ws.Tiled[1] != 2 {
		t.Fatalf("Restore did not recover tiled order: %v", ws.Tiled)
	}
	if ws.Focused == nil || *ws.Focused != 2 {
		t.Fatalf("Restore did not recover focus: %v", ws.Focused)
	}
}

func TestSnapshotIsIndependentOfSourceMutation(t *testing.T) {
	s := NewStore()
	ws := s.Workspace("mon-0", 1)
	ws.Tiled = []WindowID{1}

	snap := ws.Snapshot()
	ws.Tiled = append(ws.Tiled, 2)

	if len(snap.Tiled) != 1 {
		t.Fatalf("snapshot mutated alongside source: %v", snap.Tiled)
	}
}

func TestMarkSetJumpRoundTrip(t *testing.T) {
	s := NewStore()
	s.SetMark("a", 7)

	id, ok := s.Mark("a")
	if !ok || id != 7 {
		t.Fatalf("Mark(\"a\") = %v, %v, want 7, true", id, ok)
	}

	s.ClearMark("a")
	if _, ok := s.Mark("a"); ok {
		t.Fatal("expected mark to be cleared")
	}
}

func TestRemoveWindowDeletesFromAllSubsets(t *testing.T) {
	ws := newWorkspace()
	ws.Tiled = []WindowID{1, 2, 3}
	ws.Tracked[1] = &TrackedWindow{WindowID: 1}
	ws.Tracked[2] = &TrackedWindow{WindowID: 2}
	ws.Tracked[3] = &TrackedWindow{WindowID: 3}
	focused := WindowID(2)
	ws.Focused = &focused

	found := RemoveWindow(ws, 2)
	if !found {
		t.Fatal("expected RemoveWindow to report found=true")
	}
	if len(ws.Tiled) != 2 || ws.Tiled[0] != 1 || ws.Tiled[1] != 3 {
		t.Fatalf("tiled after remove = %v, want [1 3]", ws.Tiled)
	}
	if ws.Focused != nil {
		t.Fatal("removing the focused window should clear focus")
	}
	if _, ok := ws.Tracked[2]; ok {
		t.Fatal("removed window should no longer be tracked")
	}
}

func TestFlattenColumnsPreservesOrder(t *testing.T) {
	columns := []Column{
		{Windows: []WindowID{1, 2}},
		{Windows: []WindowID{3}},
	}
	got := FlattenColumns(columns)
	want := []WindowID{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("FlattenColumns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FlattenColumns = %v, want %v", got, want)
		}
	}
}
