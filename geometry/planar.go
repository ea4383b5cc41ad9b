package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// The predicate implementations below work on the planar coordinates exactly
// as they arrive from the encoded geometry. No projection is applied.

const paramEpsilon = 1e-9 // tolerance when merging segment parameters

type segRelation int

const (
	segNone    segRelation = iota // disjoint segments
	segCross                      // proper crossing, intersection point interior to both
	segTouch                      // intersection at one point involving at least one endpoint
	segOverlap                    // collinear with an overlap of positive length
)

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func inBounds(p, a, b orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// onSegment reports whether p lies on the closed segment a-b.
func onSegment(p, a, b orb.Point) bool {
	return cross(a, b, p) == 0 && inBounds(p, a, b)
}

// relateSegments classifies the intersection of the closed segments a1-a2 and
// b1-b2.
func relateSegments(a1, a2, b1, b2 orb.Point) segRelation {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return segCross
	}

	if d1 == 0 && d2 == 0 && d3 == 0 && d4 == 0 {
		// Collinear. Project onto the dominant axis and compare intervals.
		axis := 0
		if math.Abs(a2[1]-a1[1]) > math.Abs(a2[0]-a1[0]) ||
			(a1 == a2 && math.Abs(b2[1]-b1[1]) > math.Abs(b2[0]-b1[0])) {
			axis = 1
		}
		aLo, aHi := math.Min(a1[axis], a2[axis]), math.Max(a1[axis], a2[axis])
		bLo, bHi := math.Min(b1[axis], b2[axis]), math.Max(b1[axis], b2[axis])
		lo, hi := math.Max(aLo, bLo), math.Min(aHi, bHi)
		if lo > hi {
			return segNone
		}
		if lo == hi {
			return segTouch
		}
		return segOverlap
	}

	if (d1 == 0 && inBounds(a1, b1, b2)) || (d2 == 0 && inBounds(a2, b1, b2)) ||
		(d3 == 0 && inBounds(b1, a1, a2)) || (d4 == 0 && inBounds(b2, a1, a2)) {
		return segTouch
	}

	return segNone
}

// touchPoints returns the isolated intersection points of two segments whose
// relation is segTouch. These are always endpoints of one segment lying on
// the other.
func touchPoints(a1, a2, b1, b2 orb.Point) []orb.Point {
	var points []orb.Point
	appendUnique := func(p orb.Point) {
		for _, q := range points {
			if q == p {
				return
			}
		}
		points = append(points, p)
	}
	if onSegment(a1, b1, b2) {
		appendUnique(a1)
	}
	if onSegment(a2, b1, b2) {
		appendUnique(a2)
	}
	if onSegment(b1, a1, a2) {
		appendUnique(b1)
	}
	if onSegment(b2, a1, a2) {
		appendUnique(b2)
	}
	return points
}

// paramOnSegment returns the parameter t in [0,1] of p along a1-a2. The point
// must lie on the segment.
func paramOnSegment(p, a1, a2 orb.Point) float64 {
	dx, dy := a2[0]-a1[0], a2[1]-a1[1]
	if math.Abs(dx) >= math.Abs(dy) {
		if dx == 0 {
			return 0
		}
		return (p[0] - a1[0]) / dx
	}
	return (p[1] - a1[1]) / dy
}

// pointRingPosition locates p relative to the closed ring: -1 outside,
// 0 on the boundary, 1 inside. Uses an even-odd ray cast to the east.
func pointRingPosition(ring orb.Ring, p orb.Point) int {
	if len(ring) < 3 {
		return -1
	}
	inside := false
	n := len(ring)
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]
		if onSegment(p, a, b) {
			return 0
		}
		if (a[1] > p[1]) != (b[1] > p[1]) {
			xAtY := a[0] + (p[1]-a[1])/(b[1]-a[1])*(b[0]-a[0])
			if p[0] < xAtY {
				inside = !inside
			}
		}
	}
	if inside {
		return 1
	}
	return -1
}

// pointPolygonPosition locates p relative to the polygon including its holes:
// -1 outside, 0 on any ring boundary, 1 strictly inside.
func pointPolygonPosition(poly orb.Polygon, p orb.Point) int {
	pos := pointRingPosition(poly[0], p)
	if pos <= 0 {
		return pos
	}
	for _, hole := range poly[1:] {
		switch pointRingPosition(hole, p) {
		case 0:
			return 0
		case 1:
			return -1
		}
	}
	return 1
}

// ringSegments calls visit for every edge of every ring of the polygon.
// Returning false stops the iteration.
func ringSegments(poly orb.Polygon, visit func(a, b orb.Point) bool) {
	for _, ring := range poly {
		n := len(ring)
		for i := 0; i < n-1; i++ {
			if !visit(ring[i], ring[i+1]) {
				return
			}
		}
		// Defensively close rings that do not repeat their first point.
		if n > 2 && ring[0] != ring[n-1] {
			if !visit(ring[n-1], ring[0]) {
				return
			}
		}
	}
}

// lineSegments calls visit for every segment of the linestring.
func lineSegments(ls orb.LineString, visit func(a, b orb.Point) bool) {
	for i := 0; i < len(ls)-1; i++ {
		if !visit(ls[i], ls[i+1]) {
			return
		}
	}
}

// lineBoundary returns the boundary points of a linestring: its two terminal
// endpoints, or nothing when the line is closed.
func lineBoundary(ls orb.LineString) []orb.Point {
	if len(ls) < 2 || ls[0] == ls[len(ls)-1] {
		return nil
	}
	return []orb.Point{ls[0], ls[len(ls)-1]}
}

func pointOnLine(ls orb.LineString, p orb.Point) bool {
	found := false
	lineSegments(ls, func(a, b orb.Point) bool {
		if onSegment(p, a, b) {
			found = true
			return false
		}
		return true
	})
	return found
}

// pointIsLineBoundary reports whether p is one of the boundary endpoints.
func pointIsLineBoundary(ls orb.LineString, p orb.Point) bool {
	for _, q := range lineBoundary(ls) {
		if q == p {
			return true
		}
	}
	return false
}

// pointInLineInterior reports whether p lies on the line but not on its
// boundary.
func pointInLineInterior(ls orb.LineString, p orb.Point) bool {
	return pointOnLine(ls, p) && !pointIsLineBoundary(ls, p)
}

// splitParams collects the parameters along the segment a1-a2 at which the
// polygon's ring edges intersect it, always including 0 and 1. Consecutive
// parameter pairs bound pieces of the segment that lie entirely inside,
// outside or on the boundary of the polygon.
func splitParams(a1, a2 orb.Point, poly orb.Polygon) []float64 {
	params := []float64{0, 1}
	ringSegments(poly, func(b1, b2 orb.Point) bool {
		switch relateSegments(a1, a2, b1, b2) {
		case segCross:
			d1 := cross(b1, b2, a1)
			d2 := cross(b1, b2, a2)
			params = append(params, d1/(d1-d2))
		case segTouch:
			for _, p := range touchPoints(a1, a2, b1, b2) {
				if onSegment(p, a1, a2) {
					params = append(params, paramOnSegment(p, a1, a2))
				}
			}
		case segOverlap:
			for _, p := range []orb.Point{b1, b2} {
				if onSegment(p, a1, a2) {
					params = append(params, paramOnSegment(p, a1, a2))
				}
			}
		}
		return true
	})

	sort.Float64s(params)
	deduped := params[:1]
	for _, t := range params[1:] {
		if t-deduped[len(deduped)-1] > paramEpsilon {
			deduped = append(deduped, t)
		}
	}
	return deduped
}

func segmentPoint(a1, a2 orb.Point, t float64) orb.Point {
	return orb.Point{a1[0] + t*(a2[0]-a1[0]), a1[1] + t*(a2[1]-a1[1])}
}

// forEachLinePiece visits the midpoint of every piece the polygon's boundary
// splits the linestring into. Returning false stops the iteration.
func forEachLinePiece(ls orb.LineString, poly orb.Polygon, visit func(mid orb.Point) bool) {
	lineSegments(ls, func(a1, a2 orb.Point) bool {
		if a1 == a2 {
			return true
		}
		params := splitParams(a1, a2, poly)
		for i := 0; i < len(params)-1; i++ {
			mid := segmentPoint(a1, a2, (params[i]+params[i+1])/2)
			if !visit(mid) {
				return false
			}
		}
		return true
	})
}

// interiorPoint returns a point strictly inside the polygon. The centroid is
// tried first; when it falls outside (concave shapes, holes) midpoints of
// diagonals from the first vertex serve as fallback probes.
func interiorPoint(poly orb.Polygon) (orb.Point, bool) {
	centroid, _ := planar.CentroidArea(poly)
	if pointPolygonPosition(poly, centroid) == 1 {
		return centroid, true
	}
	ring := poly[0]
	for i := 1; i < len(ring)-1; i++ {
		probe := orb.Point{(ring[0][0] + ring[i][0]) / 2, (ring[0][1] + ring[i][1]) / 2}
		if pointPolygonPosition(poly, probe) == 1 {
			return probe, true
		}
	}
	for i := 0; i < len(ring)-1; i++ {
		for j := i + 1; j < len(ring)-1; j++ {
			probe := orb.Point{(ring[i][0] + ring[j][0]) / 2, (ring[i][1] + ring[j][1]) / 2}
			if pointPolygonPosition(poly, probe) == 1 {
				return probe, true
			}
		}
	}
	return orb.Point{}, false
}
