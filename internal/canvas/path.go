package canvas

import "math"

// Point is a position in canvas pixels.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

type segmentKind int

const (
	segMove segmentKind = iota
	segLine
	segQuad
	segCube
	segClose
)

type segment struct {
	kind segmentKind
	pts  [3]Point
}

// Path is an immutable-by-convention list of vector segments. Build it
// with the chaining methods; each returns the extended path.
type Path struct {
	segs []segment
}

// MoveTo starts a new sub-path at p.
func (p Path) MoveTo(pt Point) Path {
	return p.add(segment{kind: segMove, pts: [3]Point{pt}})
}

// LineTo adds a straight segment.
func (p Path) LineTo(pt Point) Path {
	return p.add(segment{kind: segLine, pts: [3]Point{pt}})
}

// QuadTo adds a quadratic Bézier segment.
func (p Path) QuadTo(ctrl, pt Point) Path {
	return p.add(segment{kind: segQuad, pts: [3]Point{ctrl, pt}})
}

// CubeTo adds a cubic Bézier segment.
func (p Path) CubeTo(c1, c2, pt Point) Path {
	return p.add(segment{kind: segCube, pts: [3]Point{c1, c2, pt}})
}

// Close closes the current sub-path.
func (p Path) Close() Path {
	return p.add(segment{kind: segClose})
}

// Empty reports whether the path has no segments.
func (p Path) Empty() bool {
	return len(p.segs) == 0
}

// Closed reports whether the path ends with Close.
func (p Path) Closed() bool {
	return len(p.segs) > 0 && p.segs[len(p.segs)-1].kind == segClose
}

// Bounds returns the bounding box of every point on the path, control
// points included.
func (p Path) Bounds() (minPt, maxPt Point) {
	minPt = Point{math.Inf(1), math.Inf(1)}
	maxPt = Point{math.Inf(-1), math.Inf(-1)}
	for _, s := range p.segs {
		n := 0
		switch s.kind {
		case segMove, segLine:
			n = 1
		case segQuad:
			n = 2
		case segCube:
			n = 3
		}
		for _, pt := range s.pts[:n] {
			minPt.X = math.Min(minPt.X, pt.X)
			minPt.Y = math.Min(minPt.Y, pt.Y)
			maxPt.X = math.Max(maxPt.X, pt.X)
			maxPt.Y = math.Max(maxPt.Y, pt.Y)
		}
	}
	return minPt, maxPt
}

func (p Path) add(s segment) Path {
	segs := make([]segment, len(p.segs), len(p.segs)+1)
	copy(segs, p.segs)
	return Path{segs: append(segs, s)}
}
