package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

func lineIntersectsLine(a, b orb.LineString) bool {
	found := false
	lineSegments(a, func(a1, a2 orb.Point) bool {
		lineSegments(b, func(b1, b2 orb.Point) bool {
			if relateSegments(a1, a2, b1, b2) != segNone {
				found = true
				return false
			}
			return true
		})
		return !found
	})
	return found
}

// lineInteriorsIntersect reports whether the two linestrings share a point
// that is interior to both, i.e. not a terminal endpoint of either.
func lineInteriorsIntersect(a, b orb.LineString) bool {
	found := false
	lineSegments(a, func(a1, a2 orb.Point) bool {
		lineSegments(b, func(b1, b2 orb.Point) bool {
			switch relateSegments(a1, a2, b1, b2) {
			case segCross, segOverlap:
				// A proper crossing point and every inner point of a positive
				// overlap are interior to both lines.
				found = true
				return false
			case segTouch:
				for _, p := range touchPoints(a1, a2, b1, b2) {
					if !pointIsLineBoundary(a, p) && !pointIsLineBoundary(b, p) {
						found = true
						return false
					}
				}
			}
			return true
		})
		return !found
	})
	return found
}

func hasCollinearOverlap(a, b orb.LineString) bool {
	found := false
	lineSegments(a, func(a1, a2 orb.Point) bool {
		lineSegments(b, func(b1, b2 orb.Point) bool {
			if relateSegments(a1, a2, b1, b2) == segOverlap {
				found = true
				return false
			}
			return true
		})
		return !found
	})
	return found
}

// lineCoveredByLine reports whether every point of a lies on b. Coverage is
// computed per segment of a by merging the parameter intervals where b's
// segments are collinear with it.
func lineCoveredByLine(a, b orb.LineString) bool {
	covered := true
	lineSegments(a, func(a1, a2 orb.Point) bool {
		if a1 == a2 {
			if !pointOnLine(b, a1) {
				covered = false
			}
			return covered
		}

		type interval struct{ lo, hi float64 }
		var intervals []interval
		lineSegments(b, func(b1, b2 orb.Point) bool {
			switch relateSegments(a1, a2, b1, b2) {
			case segOverlap, segTouch:
				lo, hi := math.Inf(1), math.Inf(-1)
				for _, p := range []orb.Point{b1, b2, a1, a2} {
					if onSegment(p, a1, a2) && onSegment(p, b1, b2) {
						t := paramOnSegment(p, a1, a2)
						lo = math.Min(lo, t)
						hi = math.Max(hi, t)
					}
				}
				if lo <= hi {
					intervals = append(intervals, interval{lo, hi})
				}
			}
			return true
		})

		sort.Slice(intervals, func(i, j int) bool { return intervals[i].lo < intervals[j].lo })
		reach := 0.0
		for _, iv := range intervals {
			if iv.lo > reach+paramEpsilon {
				break
			}
			if iv.hi > reach {
				reach = iv.hi
			}
		}
		if reach < 1-paramEpsilon {
			covered = false
		}
		return covered
	})
	return covered
}

func lineIntersectsPolygon(ls orb.LineString, poly orb.Polygon) bool {
	for _, v := range ls {
		if pointPolygonPosition(poly, v) >= 0 {
			return true
		}
	}
	found := false
	lineSegments(ls, func(a1, a2 orb.Point) bool {
		ringSegments(poly, func(b1, b2 orb.Point) bool {
			if relateSegments(a1, a2, b1, b2) != segNone {
				found = true
				return false
			}
			return true
		})
		return !found
	})
	return found
}

// linePolyInteriorIntersect reports whether some interior point of the line
// lies strictly inside the polygon.
func linePolyInteriorIntersect(ls orb.LineString, poly orb.Polygon) bool {
	found := false
	forEachLinePiece(ls, poly, func(mid orb.Point) bool {
		if pointPolygonPosition(poly, mid) == 1 {
			found = true
			return false
		}
		return true
	})
	return found
}

// lineCoveredByPolygon reports whether every point of the line lies inside or
// on the boundary of the polygon.
func lineCoveredByPolygon(ls orb.LineString, poly orb.Polygon) bool {
	for _, v := range ls {
		if pointPolygonPosition(poly, v) == -1 {
			return false
		}
	}
	covered := true
	forEachLinePiece(ls, poly, func(mid orb.Point) bool {
		if pointPolygonPosition(poly, mid) == -1 {
			covered = false
			return false
		}
		return true
	})
	return covered
}

func polyIntersectsPoly(a, b orb.Polygon) bool {
	for _, ring := range a {
		for _, v := range ring {
			if pointPolygonPosition(b, v) >= 0 {
				return true
			}
		}
	}
	for _, ring := range b {
		for _, v := range ring {
			if pointPolygonPosition(a, v) >= 0 {
				return true
			}
		}
	}
	found := false
	ringSegments(a, func(a1, a2 orb.Point) bool {
		ringSegments(b, func(b1, b2 orb.Point) bool {
			if relateSegments(a1, a2, b1, b2) != segNone {
				found = true
				return false
			}
			return true
		})
		return !found
	})
	return found
}

// polyInteriorsIntersect reports whether the interiors of two polygons share
// a point. Boundary-only contact (shared edges, corner touches) is excluded.
func polyInteriorsIntersect(a, b orb.Polygon) bool {
	crossFound := false
	ringSegments(a, func(a1, a2 orb.Point) bool {
		ringSegments(b, func(b1, b2 orb.Point) bool {
			if relateSegments(a1, a2, b1, b2) == segCross {
				crossFound = true
				return false
			}
			return true
		})
		return !crossFound
	})
	if crossFound {
		return true
	}

	for _, ring := range a {
		for _, v := range ring {
			if pointPolygonPosition(b, v) == 1 {
				return true
			}
		}
	}
	for _, ring := range b {
		for _, v := range ring {
			if pointPolygonPosition(a, v) == 1 {
				return true
			}
		}
	}

	if p, ok := interiorPoint(a); ok && pointPolygonPosition(b, p) == 1 {
		return true
	}
	if p, ok := interiorPoint(b); ok && pointPolygonPosition(a, p) == 1 {
		return true
	}

	// All vertices sit on the other polygon's boundary and no edges cross.
	// The interiors can still overlap when the boundaries partially coincide,
	// e.g. two rectangles sharing a collinear top and bottom edge. The
	// intersection region's corners are exactly the boundary-to-boundary
	// contact points; probe its vertex average.
	contact := contactPoints(a, b)
	if len(contact) >= 3 {
		var avg orb.Point
		for _, p := range contact {
			avg[0] += p[0]
			avg[1] += p[1]
		}
		avg[0] /= float64(len(contact))
		avg[1] /= float64(len(contact))
		if pointPolygonPosition(a, avg) == 1 && pointPolygonPosition(b, avg) == 1 {
			return true
		}
	}
	return false
}

// contactPoints collects the distinct points where the boundaries of a and b
// meet: vertices of one lying on the other and isolated edge intersections.
func contactPoints(a, b orb.Polygon) []orb.Point {
	var points []orb.Point
	appendUnique := func(p orb.Point) {
		for _, q := range points {
			if q == p {
				return
			}
		}
		points = append(points, p)
	}

	for _, ring := range a {
		for _, v := range ring {
			if pointPolygonPosition(b, v) >= 0 {
				appendUnique(v)
			}
		}
	}
	for _, ring := range b {
		for _, v := range ring {
			if pointPolygonPosition(a, v) >= 0 {
				appendUnique(v)
			}
		}
	}
	ringSegments(a, func(a1, a2 orb.Point) bool {
		ringSegments(b, func(b1, b2 orb.Point) bool {
			if relateSegments(a1, a2, b1, b2) == segTouch {
				for _, p := range touchPoints(a1, a2, b1, b2) {
					appendUnique(p)
				}
			}
			return true
		})
		return true
	})
	return points
}

// polyCoveredByPoly reports whether polygon a lies entirely inside or on the
// boundary of polygon b.
func polyCoveredByPoly(a, b orb.Polygon) bool {
	for _, ring := range a {
		for _, v := range ring {
			if pointPolygonPosition(b, v) == -1 {
				return false
			}
		}
	}

	crossFound := false
	ringSegments(a, func(a1, a2 orb.Point) bool {
		ringSegments(b, func(b1, b2 orb.Point) bool {
			if relateSegments(a1, a2, b1, b2) == segCross {
				crossFound = true
				return false
			}
			return true
		})
		return !crossFound
	})
	if crossFound {
		return false
	}

	// Edge pieces of a must not leave b, even where they pass through
	// vertices of b without a proper crossing.
	covered := true
	for _, ring := range a {
		ls := orb.LineString(ring)
		forEachLinePiece(ls, b, func(mid orb.Point) bool {
			if pointPolygonPosition(b, mid) == -1 {
				covered = false
				return false
			}
			return true
		})
		if !covered {
			return false
		}
	}

	// A hole of b strictly inside a carves area out of a's coverage.
	for _, hole := range b[1:] {
		for _, v := range hole {
			if pointPolygonPosition(a, v) == 1 {
				return false
			}
		}
	}
	return true
}
