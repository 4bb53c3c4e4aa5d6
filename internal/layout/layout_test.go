package layout

import (
	"testing"

	"github.com/hatchwm/tilewm/internal/geom"
)

func TestMasterStackFrames_ZeroWindows(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	frames := MasterStackFrames(region, 0, SideBySide, 8, 0, 0.6)
	if frames != nil {
		t.Fatalf("expected nil frames for n=0, got %v", frames)
	}
}

func TestMasterStackFrames_SingleWindowFillsRegion(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	frames := MasterStackFrames(region, 1, SideBySide, 8, 0, 0.6)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0] != region {
		t.Fatalf("single window with zero padding should be edge-to-edge: got %+v, want %+v", frames[0], region)
	}
}

func TestMasterStackFrames_SingleWindowWithPadding(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	frames := MasterStackFrames(region, 1, SideBySide, 8, 20, 0.6)
	want := geom.Rect{X: 20, Y: 20, Width: 1880, Height: 1040}
	if frames[0] != want {
		t.Fatalf("got %+v, want %+v", frames[0], want)
	}
}

func TestMasterStackFrames_Monocle_AllWindowsShareFrame(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	frames := MasterStackFrames(region, 4, Monocle, 8, 0, 0.6)
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f != frames[0] {
			t.Fatalf("frame %d = %+v, want same as frame 0 %+v", i, f, frames[0])
		}
	}
	want := geom.Rect{X: 4, Y: 4, Width: 1912, Height: 1072}
	if frames[0] != want {
		t.Fatalf("monocle frame = %+v, want %+v", frames[0], want)
	}
}

func TestMasterStackFrames_TwoWindowsSideBySide(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}
	frames := MasterStackFrames(region, 2, SideBySide, 10, 0, 0.6)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	left, right := frames[0], frames[1]
	if left.X != 0 || left.Width != 600-5 {
		t.Fatalf("left frame = %+v, want X=0 Width=595", left)
	}
	if right.X != 605 || right.Width != 1000-600-5 {
		t.Fatalf("right frame = %+v, want X=605 Width=395", right)
	}
	if right.X-(left.X+left.Width) != 10 {
		t.Fatalf("gap between left and right = %d, want 10", right.X-(left.X+left.Width))
	}
}

func TestMasterStackFrames_TwoWindowsStacked(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}
	frames := MasterStackFrames(region, 2, Stacked, 10, 0, 0.5)
	top, bottom := frames[0], frames[1]
	if top.Height != 495 || bottom.Height != 495 {
		t.Fatalf("top/bottom heights = %d/%d, want 495/495", top.Height, bottom.Height)
	}
	if bottom.Y-(top.Y+top.Height) != 10 {
		t.Fatalf("vertical gap = %d, want 10", bottom.Y-(top.Y+top.Height))
	}
}

func TestMasterStackFrames_ThreeWindowsSideBySide(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1200, Height: 1000}
	frames := MasterStackFrames(region, 3, SideBySide, 10, 0, 0.6)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	master, top, bottom := frames[0], frames[1], frames[2]
	if master.Width != 720-5 {
		t.Fatalf("master width = %d, want 715", master.Width)
	}
	if top.X != bottom.X || top.Width != bottom.Width {
		t.Fatalf("stack halves should share x/width: top=%+v bottom=%+v", top, bottom)
	}
	if top.Height+bottom.Height+10 != region.Height {
		t.Fatalf("stack halves + gap should fill region height: %d+%d+10 != %d", top.Height, bottom.Height, region.Height)
	}
}

func TestMasterStackFrames_ThreeWindowsStackedIgnoresSplitRatio(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 900, Height: 900}
	lowRatio := MasterStackFrames(region, 3, Stacked, 0, 0, 0.2)
	highRatio := MasterStackFrames(region, 3, Stacked, 0, 0, 0.8)
	for i := range lowRatio {
		if lowRatio[i] != highRatio[i] {
			t.Fatalf("n=3 stacked frame %d should be split_ratio independent: %+v vs %+v", i, lowRatio[i], highRatio[i])
		}
	}
	for _, f := range lowRatio {
		if f.Height != 300 {
			t.Fatalf("expected three equal 300px rows with zero gap, got %+v", f)
		}
	}
}

func TestMasterStackFrames_FourWindowsSideBySideQuarters(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}
	frames := MasterStackFrames(region, 4, SideBySide, 0, 0, 0.6)
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	for _, f := range frames {
		if f.Width != 500 || f.Height != 500 {
			t.Fatalf("expected 500x500 quarters with zero gap, got %+v", f)
		}
	}
}

func TestMasterStackFrames_FiveWindowsSideBySideOverflowsBottomRight(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}
	frames := MasterStackFrames(region, 5, SideBySide, 0, 0, 0.6)
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}
	if frames[4] != frames[3] {
		t.Fatalf("window 5 should overlap the bottom-right quarter: got %+v, want %+v", frames[4], frames[3])
	}
}

func TestMasterStackFrames_FourWindowsStackedEqualRows(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 800, Height: 800}
	frames := MasterStackFrames(region, 4, Stacked, 0, 0, 0.6)
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	for _, f := range frames {
		if f.Height != 200 {
			t.Fatalf("expected four equal 200px rows, got %+v", f)
		}
	}
}

func TestMasterStackFrames_ClampsToMinimumSize(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 50, Height: 50}
	frames := MasterStackFrames(region, 4, SideBySide, 8, 0, 0.6)
	for _, f := range frames {
		if f.Width < geom.MinWidth || f.Height < geom.MinHeight {
			t.Fatalf("frame below minimum size: %+v", f)
		}
	}
}

func TestScrollingColumnFrames_ActiveColumnIsCentered(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	columns := []ColumnSpec{
		{WindowCount: 1},
		{WindowCount: 1},
		{WindowCount: 1},
	}
	layouts := ScrollingColumnFrames(region, columns, 1, 0.5, 8)
	if len(layouts) != 3 {
		t.Fatalf("expected 3 column layouts, got %d", len(layouts))
	}
	active := layouts[1]
	if len(active.Windows) != 1 {
		t.Fatalf("expected 1 window in active column, got %d", len(active.Windows))
	}
	gotMid := active.Windows[0].Frame.X + active.Windows[0].Frame.Width/2
	wantMid := region.MidX()
	if abs(gotMid-wantMid) > 5 {
		t.Fatalf("active column midpoint = %d, want ~%d", gotMid, wantMid)
	}
}

func TestScrollingColumnFrames_OffscreenColumnNotVisible(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	columns := []ColumnSpec{
		{WindowCount: 1},
		{WindowCount: 1},
		{WindowCount: 1},
		{WindowCount: 1},
		{WindowCount: 1},
	}
	layouts := ScrollingColumnFrames(region, columns, 2, 0.5, 8)
	if !layouts[2].Visible {
		t.Fatal("active column should always be visible")
	}
	if layouts[0].Visible {
		t.Fatal("column two slots to the left of a half-width active column should be offscreen")
	}
}

func TestScrollingColumnFrames_WidthOverrideWidensColumn(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 2000, Height: 1000}
	wide := 0.9
	columns := []ColumnSpec{
		{WindowCount: 1, WidthOverride: &wide},
		{WindowCount: 1},
	}
	layouts := ScrollingColumnFrames(region, columns, 0, 0.5, 0)
	if layouts[0].Windows[0].Frame.Width <= layouts[1].Windows[0].Frame.Width {
		t.Fatalf("overridden column should be wider: %+v vs %+v", layouts[0], layouts[1])
	}
}

func TestScrollingColumnFrames_MultipleWindowsStackVertically(t *testing.T) {
	region := geom.Rect{X: 0, Y: 0, Width: 1000, Height: 900}
	columns := []ColumnSpec{{WindowCount: 3}}
	layouts := ScrollingColumnFrames(region, columns, 0, 1.0, 0)
	slots := layouts[0].Windows
	if len(slots) != 3 {
		t.Fatalf("expected 3 stacked windows, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Frame.Height != 300 {
			t.Fatalf("expected 300px row height, got %+v", s.Frame)
		}
	}
	if slots[1].Frame.Y <= slots[0].Frame.Y || slots[2].Frame.Y <= slots[1].Frame.Y {
		t.Fatal("rows should be ordered top to bottom")
	}
}

func TestNeighborSearch_PicksNearestInDirection(t *testing.T) {
	candidates := []Candidate[int]{
		{ID: 1, Frame: geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}},
		{ID: 2, Frame: geom.Rect{X: 200, Y: 0, Width: 100, Height: 100}},
		{ID: 3, Frame: geom.Rect{X: 400, Y: 0, Width: 100, Height: 100}},
	}
	from := candidates[0].Frame.Center()
	got, ok := NeighborSearch(from, DirRight, candidates)
	if !ok || got != 2 {
		t.Fatalf("NeighborSearch right from id 1 = %v, %v, want 2, true", got, ok)
	}
}

func TestNeighborSearch_NoneInDirectionReturnsFalse(t *testing.T) {
	candidates := []Candidate[int]{
		{ID: 1, Frame: geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}},
	}
	from := candidates[0].Frame.Center()
	_, ok := NeighborSearch(from, DirRight, candidates)
	if ok {
		t.Fatal("expected no candidate to the right of the only window")
	}
}

func TestNeighborSearch_TiesBreakOnLowerID(t *testing.T) {
	candidates := []Candidate[int]{
		{ID: 5, Frame: geom.Rect{X: 0, Y: -200, Width: 100, Height: 100}},
		{ID: 2, Frame: geom.Rect{X: 0, Y: -200, Width: 100, Height: 100}},
	}
	from := geom.Point{X: 50, Y: 0}
	got, ok := NeighborSearch(from, DirUp, candidates)
	if !ok || got != 2 {
		t.Fatalf("tie should break to lower id: got %v, %v, want 2, true", got, ok)
	}
}

func TestSwapWithFirst(t *testing.T) {
	tiled := []int{1, 2, 3, 4}
	SwapWithFirst(tiled, 3)
	want := []int{3, 2, 1, 4}
	if !equalSlices(tiled, want) {
		t.Fatalf("got %v, want %v", tiled, want)
	}
}

func TestSwapWithFirst_AlreadyFirstIsNoop(t *testing.T) {
	tiled := []int{1, 2, 3}
	SwapWithFirst(tiled, 1)
	if !equalSlices(tiled, []int{1, 2, 3}) {
		t.Fatalf("got %v, want unchanged", tiled)
	}
}

func TestRotateNextThenRotatePrevIsIdentity(t *testing.T) {
	tiled := []int{1, 2, 3, 4}
	original := append([]int(nil), tiled...)
	RotateNext(tiled)
	RotatePrev(tiled)
	if !equalSlices(tiled, original) {
		t.Fatalf("rotate_next then rotate_prev should be identity: got %v, want %v", tiled, original)
	}
}

func TestRotateNext(t *testing.T) {
	tiled := []int{1, 2, 3, 4}
	RotateNext(tiled)
	want := []int{4, 1, 2, 3}
	if !equalSlices(tiled, want) {
		t.Fatalf("got %v, want %v", tiled, want)
	}
}

func TestMovePosition_OneEarlierAndOneLater(t *testing.T) {
	tiled := []int{1, 2, 3, 4}
	MovePosition(tiled, 3, PositionOneEarlier)
	want := []int{1, 3, 2, 4}
	if !equalSlices(tiled, want) {
		t.Fatalf("got %v, want %v", tiled, want)
	}
	MovePosition(tiled, 3, PositionOneLater)
	want2 := []int{1, 2, 3, 4}
	if !equalSlices(tiled, want2) {
		t.Fatalf("got %v, want %v", tiled, want2)
	}
}

func TestMovePosition_FirstAndLast(t *testing.T) {
	tiled := []int{1, 2, 3, 4}
	MovePosition(tiled, 4, PositionFirst)
	want := []int{4, 1, 2, 3}
	if !equalSlices(tiled, want) {
		t.Fatalf("got %v, want %v", tiled, want)
	}
	MovePosition(tiled, 4, PositionLast)
	want2 := []int{1, 2, 3, 4}
	if !equalSlices(tiled, want2) {
		t.Fatalf("got %v, want %v", tiled, want2)
	}
}

func TestClampSplitRatio(t *testing.T) {
	if got := ClampSplitRatio(0.05); got != MinSplitRatio {
		t.Fatalf("got %v, want %v", got, MinSplitRatio)
	}
	if got := ClampSplitRatio(0.95); got != MaxSplitRatio {
		t.Fatalf("got %v, want %v", got, MaxSplitRatio)
	}
	if got := ClampSplitRatio(0.5); got != 0.5 {
		t.Fatalf("got %v, want 0.5", got)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func equalSlices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
