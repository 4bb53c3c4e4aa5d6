// Package layout is the pure geometry engine for tilewm: given a region and a
// window count (master-stack mode) or a column structure (scrolling mode) it
// returns frames. It has no side effects and knows nothing about window
// identity beyond the generic ids callers thread through the neighbor-search
// and reordering primitives.
//
// Grounded on the teacher's internal/tiling/layout.go grid math (CalculateGrid,
// CalculatePositionsWithLayout) and internal/movemode/navigation.go's
// directional neighbor search, generalized from a fixed rows×cols terminal
// grid to the master-stack and scrolling-columns variants spec'd for tilewm.
package layout

import (
	"cmp"

	"github.com/hatchwm/tilewm/internal/geom"
)

// Variant selects a master-stack layout flavor.
type Variant int

const (
	SideBySide Variant = iota
	Stacked
	Monocle
)

// MinSplitRatio and MaxSplitRatio bound split_ratio (spec §3, §8).
const (
	MinSplitRatio = 0.2
	MaxSplitRatio = 0.8
)

// ClampSplitRatio keeps split_ratio inside [MinSplitRatio, MaxSplitRatio]
// regardless of how many grow/shrink actions were applied.
func ClampSplitRatio(r float64) float64 {
	if r < MinSplitRatio {
		return MinSplitRatio
	}
	if r > MaxSplitRatio {
		return MaxSplitRatio
	}
	return r
}

// MinColumnWidth and MaxColumnWidth bound a scrolling column's width_override
// fraction (spec §3, §8).
const (
	MinColumnWidth = 0.1
	MaxColumnWidth = 3.0
)

// ClampColumnWidth keeps a niri_column_width-style fraction inside
// [MinColumnWidth, MaxColumnWidth].
func ClampColumnWidth(w float64) float64 {
	if w < MinColumnWidth {
		return MinColumnWidth
	}
	if w > MaxColumnWidth {
		return MaxColumnWidth
	}
	return w
}

// span is a half-open interval [Start, Start+Length) along one axis.
type span struct {
	Start  int
	Length int
}

// splitAxis divides [0, total) into count equal slabs with half-gap spacing
// on every interior edge, so the visible gap between two adjacent slabs is
// exactly gap pixels. The final slab absorbs integer-division rounding so
// the slabs always tile the full length with no drift.
func splitAxis(total, count, gap int) []span {
	if count <= 0 {
		return nil
	}
	half := geom.HalfGap(gap)
	slab := total / count
	spans := make([]span, count)
	for i := 0; i < count; i++ {
		start := i * slab
		length := slab
		if i > 0 {
			start += half
			length -= half
		}
		if i < count-1 {
			length -= half
		} else {
			length = total - start
		}
		spans[i] = span{Start: start, Length: length}
	}
	return spans
}

func insetAll(r geom.Rect, amount int) geom.Rect {
	return geom.Rect{
		X:      r.X + amount,
		Y:      r.Y + amount,
		Width:  r.Width - 2*amount,
		Height: r.Height - 2*amount,
	}
}

func clampAll(frames []geom.Rect) []geom.Rect {
	for i, f := range frames {
		frames[i] = f.ClampMin()
	}
	return frames
}

// MasterStackFrames returns exactly n frames for a master-stack layout,
// honoring the per-count formulas in spec §4.1. n == 0 returns nil.
func MasterStackFrames(region geom.Rect, n int, variant Variant, innerGap, singleWindowPadding int, splitRatio float64) []geom.Rect {
	if n <= 0 {
		return nil
	}
	splitRatio = ClampSplitRatio(splitRatio)
	half := geom.HalfGap(innerGap)

	if variant == Monocle {
		frame := insetAll(region, half)
		frames := make([]geom.Rect, n)
		for i := range frames {
			frames[i] = frame.ClampMin()
		}
		return frames
	}

	if n == 1 {
		frame := region
		if singleWindowPadding > 0 {
			frame = insetAll(region, singleWindowPadding)
		}
		return []geom.Rect{frame.ClampMin()}
	}

	if n == 2 {
		if variant == SideBySide {
			leftW := int(float64(region.Width) * splitRatio)
			left := geom.Rect{X: region.X, Y: region.Y, Width: leftW - half, Height: region.Height}
			right := geom.Rect{X: region.X + leftW + half, Y: region.Y, Width: region.Width - leftW - half, Height: region.Height}
			return clampAll([]geom.Rect{left, right})
		}
		topH := int(float64(region.Height) * splitRatio)
		top := geom.Rect{X: region.X, Y: region.Y, Width: region.Width, Height: topH - half}
		bottom := geom.Rect{X: region.X, Y: region.Y + topH + half, Width: region.Width, Height: region.Height - topH - half}
		return clampAll([]geom.Rect{top, bottom})
	}

	if n == 3 {
		if variant == SideBySide {
			masterW := int(float64(region.Width) * splitRatio)
			master := geom.Rect{X: region.X, Y: region.Y, Width: masterW - half, Height: region.Height}
			rightX := region.X + masterW + half
			rightW := region.Width - masterW - half
			rows := splitAxis(region.Height, 2, innerGap)
			top := geom.Rect{X: rightX, Y: region.Y + rows[0].Start, Width: rightW, Height: rows[0].Length}
			bottom := geom.Rect{X: rightX, Y: region.Y + rows[1].Start, Width: rightW, Height: rows[1].Length}
			return clampAll([]geom.Rect{master, top, bottom})
		}
		// Stacked: three equal rows, split_ratio intentionally unused (spec §4.1,
		// §9 open question — kept as an explicit design decision, not a bug).
		rows := splitAxis(region.Height, 3, innerGap)
		frames := make([]geom.Rect, 3)
		for i, rspan := range rows {
			frames[i] = geom.Rect{X: region.X, Y: region.Y + rspan.Start, Width: region.Width, Height: rspan.Length}
		}
		return clampAll(frames)
	}

	// n >= 4
	if variant == SideBySide {
		cols := splitAxis(region.Width, 2, innerGap)
		rows := splitAxis(region.Height, 2, innerGap)
		quarters := []geom.Rect{
			{X: region.X + cols[0].Start, Y: region.Y + rows[0].Start, Width: cols[0].Length, Height: rows[0].Length},
			{X: region.X + cols[1].Start, Y: region.Y + rows[0].Start, Width: cols[1].Length, Height: rows[0].Length},
			{X: region.X + cols[0].Start, Y: region.Y + rows[1].Start, Width: cols[0].Length, Height: rows[1].Length},
			{X: region.X + cols[1].Start, Y: region.Y + rows[1].Start, Width: cols[1].Length, Height: rows[1].Length},
		}
		frames := make([]geom.Rect, n)
		copy(frames, quarters)
		for i := 4; i < n; i++ {
			frames[i] = quarters[3] // bottom-right, every window beyond index 3 overlaps here
		}
		return clampAll(frames)
	}

	rows := splitAxis(region.Height, n, innerGap)
	frames := make([]geom.Rect, n)
	for i, rspan := range rows {
		frames[i] = geom.Rect{X: region.X, Y: region.Y + rspan.Start, Width: region.Width, Height: rspan.Length}
	}
	return clampAll(frames)
}

// ColumnSpec describes one scrolling-mode column's shape to the layout
// engine: how many windows it holds and its optional width override.
type ColumnSpec struct {
	WindowCount   int
	WidthOverride *float64 // fraction of region width; nil means use defaultColumnWidth
}

// WindowSlot is one window's computed frame within a column, in top-to-bottom
// order.
type WindowSlot struct {
	RowIndex int
	Frame    geom.Rect
}

// ColumnLayout is the per-column result the engine reports for scrolling
// mode.
type ColumnLayout struct {
	ColumnIndex int
	Windows     []WindowSlot
	Visible     bool
}

// ScrollingColumnFrames lays out columns in an infinite horizontal strip,
// centering the active column and reporting which neighbors are visible
// (spec §4.1 "Scrolling-columns frames").
func ScrollingColumnFrames(region geom.Rect, columns []ColumnSpec, activeIndex int, defaultColumnWidth float64, innerGap int) []ColumnLayout {
	if len(columns) == 0 {
		return nil
	}
	if activeIndex < 0 || activeIndex >= len(columns) {
		activeIndex = 0
	}
	defaultColumnWidth = ClampColumnWidth(defaultColumnWidth)

	widths := make([]int, len(columns))
	starts := make([]int, len(columns))
	x := 0
	for i, col := range columns {
		frac := defaultColumnWidth
		if col.WidthOverride != nil {
			frac = ClampColumnWidth(*col.WidthOverride)
		}
		w := int(float64(region.Width) * frac)
		widths[i] = w
		starts[i] = x
		x += w
	}

	activeMid := starts[activeIndex] + widths[activeIndex]/2
	offset := region.MidX() - activeMid

	half := geom.HalfGap(innerGap)
	out := make([]ColumnLayout, len(columns))
	for i, col := range columns {
		colX := region.X + starts[i] + offset
		colW := widths[i]
		visible := geom.IntersectsSpan(colX, colX+colW, region.X, region.X+region.Width)

		var slots []WindowSlot
		if col.WindowCount > 0 {
			rows := splitAxis(region.Height, col.WindowCount, innerGap)
			slots = make([]WindowSlot, col.WindowCount)
			for r, rspan := range rows {
				slots[r] = WindowSlot{
					RowIndex: r,
					Frame: geom.Rect{
						X:      colX + half,
						Y:      region.Y + rspan.Start,
						Width:  colW - innerGap,
						Height: rspan.Length,
					}.ClampMin(),
				}
			}
		}

		out[i] = ColumnLayout{ColumnIndex: i, Windows: slots, Visible: visible}
	}
	return out
}

// Direction is a cardinal direction used by directional focus search and
// scrolling-mode vertical navigation.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// Candidate pairs an id with its current on-screen frame, the input shape
// for NeighborSearch.
type Candidate[T cmp.Ordered] struct {
	ID    T
	Frame geom.Rect
}

// NeighborSearch picks the candidate in the strict half-plane implied by dir
// relative to fromCenter, minimizing Euclidean distance; ties broken by the
// lower id for determinism (spec §4.1 "Neighbor search").
func NeighborSearch[T cmp.Ordered](fromCenter geom.Point, dir Direction, candidates []Candidate[T]) (T, bool) {
	var best T
	haveBest := false
	bestDist := 0.0

	for _, c := range candidates {
		center := c.Frame.Center()
		inDirection := false
		switch dir {
		case DirUp:
			inDirection = center.Y < fromCenter.Y
		case DirDown:
			inDirection = center.Y > fromCenter.Y
		case DirLeft:
			inDirection = center.X < fromCenter.X
		case DirRight:
			inDirection = center.X > fromCenter.X
		}
		if !inDirection {
			continue
		}

		dist := geom.Distance(fromCenter, center)
		switch {
		case !haveBest:
			best, bestDist, haveBest = c.ID, dist, true
		case dist < bestDist:
			best, bestDist = c.ID, dist
		case dist == bestDist && c.ID < best:
			best = c.ID
		}
	}
	return best, haveBest
}

// SwapWithFirst swaps index 0 and the index of w in tiled. No-op if w is
// already first, not present, or |tiled| < 2.
func SwapWithFirst[T comparable](tiled []T, w T) {
	if len(tiled) < 2 {
		return
	}
	idx := indexOf(tiled, w)
	if idx <= 0 {
		return
	}
	tiled[0], tiled[idx] = tiled[idx], tiled[0]
}

// RotateNext moves the last element to the front (wrap right).
func RotateNext[T any](tiled []T) {
	if len(tiled) < 2 {
		return
	}
	last := tiled[len(tiled)-1]
	copy(tiled[1:], tiled[:len(tiled)-1])
	tiled[0] = last
}

// RotatePrev moves the first element to the back (wrap left).
func RotatePrev[T any](tiled []T) {
	if len(tiled) < 2 {
		return
	}
	first := tiled[0]
	copy(tiled[:len(tiled)-1], tiled[1:])
	tiled[len(tiled)-1] = first
}

// Position names the target slot for MovePosition.
type Position int

const (
	PositionFirst Position = iota
	PositionLast
	PositionOneEarlier
	PositionOneLater
)

// MovePosition repositions w within tiled per pos. No-op if |tiled| < 2 or w
// is absent.
func MovePosition[T comparable](tiled []T, w T, pos Position) {
	if len(tiled) < 2 {
		return
	}
	idx := indexOf(tiled, w)
	if idx < 0 {
		return
	}

	var target int
	switch pos {
	case PositionFirst:
		target = 0
	case PositionLast:
		target = len(tiled) - 1
	case PositionOneEarlier:
		target = idx - 1
		if target < 0 {
			return
		}
	case PositionOneLater:
		target = idx + 1
		if target >= len(tiled) {
			return
		}
	default:
		return
	}
	if target == idx {
		return
	}

	v := tiled[idx]
	if target < idx {
		copy(tiled[target+1:idx+1], tiled[target:idx])
	} else {
		copy(tiled[idx:target], tiled[idx+1:target+1])
	}
	tiled[target] = v
}

func indexOf[T comparable](s []T, v T) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
