package geometry

import (
	"github.com/paulmach/orb"
)

// The seven binary spatial predicates with conventional OGC semantics,
// specialized to the three supported kinds. Dimension pairs a predicate is
// undefined or trivially false for simply return false. All predicates are
// pure and never mutate either operand.

// Equals reports whether both geometries describe the identical point set.
func (g *Geometry) Equals(other *Geometry) (bool, error) {
	if err := bothValid(g, other); err != nil {
		return false, err
	}
	switch a := g.geom.(type) {
	case orb.Point:
		if b, ok := other.geom.(orb.Point); ok {
			return a == b, nil
		}
	case orb.LineString:
		if b, ok := other.geom.(orb.LineString); ok {
			return lineCoveredByLine(a, b) && lineCoveredByLine(b, a), nil
		}
	case orb.Polygon:
		if b, ok := other.geom.(orb.Polygon); ok {
			return polyCoveredByPoly(a, b) && polyCoveredByPoly(b, a), nil
		}
	}
	return false, nil
}

// Intersects reports whether the point sets share at least one point.
func (g *Geometry) Intersects(other *Geometry) (bool, error) {
	if err := bothValid(g, other); err != nil {
		return false, err
	}
	return intersectsGeom(g.geom, other.geom), nil
}

// Touches reports whether the geometries intersect but only at their
// boundaries, i.e. their interiors are disjoint.
func (g *Geometry) Touches(other *Geometry) (bool, error) {
	if err := bothValid(g, other); err != nil {
		return false, err
	}
	return intersectsGeom(g.geom, other.geom) && !interiorsIntersect(g.geom, other.geom), nil
}

// Overlaps reports whether the geometries have the same dimension, their
// interiors intersect, and neither is covered by the other.
func (g *Geometry) Overlaps(other *Geometry) (bool, error) {
	if err := bothValid(g, other); err != nil {
		return false, err
	}
	switch a := g.geom.(type) {
	case orb.LineString:
		if b, ok := other.geom.(orb.LineString); ok {
			return hasCollinearOverlap(a, b) && !lineCoveredByLine(a, b) && !lineCoveredByLine(b, a), nil
		}
	case orb.Polygon:
		if b, ok := other.geom.(orb.Polygon); ok {
			return polyInteriorsIntersect(a, b) && !polyCoveredByPoly(a, b) && !polyCoveredByPoly(b, a), nil
		}
	}
	return false, nil
}

// Crosses reports whether the interiors intersect with a dimension strictly
// below the higher-dimensional operand: two lines crossing at points, or a
// line passing through a polygon's interior and beyond it.
func (g *Geometry) Crosses(other *Geometry) (bool, error) {
	if err := bothValid(g, other); err != nil {
		return false, err
	}
	switch a := g.geom.(type) {
	case orb.LineString:
		switch b := other.geom.(type) {
		case orb.LineString:
			return lineInteriorsIntersect(a, b) && !hasCollinearOverlap(a, b), nil
		case orb.Polygon:
			return linePolyInteriorIntersect(a, b) && !lineCoveredByPolygon(a, b), nil
		}
	case orb.Polygon:
		if b, ok := other.geom.(orb.LineString); ok {
			return linePolyInteriorIntersect(b, a) && !lineCoveredByPolygon(b, a), nil
		}
	}
	return false, nil
}

// Contains reports whether the receiver's point set is a superset of the
// other's and their interiors intersect.
func (g *Geometry) Contains(other *Geometry) (bool, error) {
	if err := bothValid(g, other); err != nil {
		return false, err
	}
	return containsGeom(g.geom, other.geom), nil
}

// Within reports whether the receiver is contained in the other geometry.
func (g *Geometry) Within(other *Geometry) (bool, error) {
	if err := bothValid(g, other); err != nil {
		return false, err
	}
	return containsGeom(other.geom, g.geom), nil
}

func intersectsGeom(a, b orb.Geometry) bool {
	switch ga := a.(type) {
	case orb.Point:
		switch gb := b.(type) {
		case orb.Point:
			return ga == gb
		case orb.LineString:
			return pointOnLine(gb, ga)
		case orb.Polygon:
			return pointPolygonPosition(gb, ga) >= 0
		}
	case orb.LineString:
		switch gb := b.(type) {
		case orb.Point:
			return pointOnLine(ga, gb)
		case orb.LineString:
			return lineIntersectsLine(ga, gb)
		case orb.Polygon:
			return lineIntersectsPolygon(ga, gb)
		}
	case orb.Polygon:
		switch gb := b.(type) {
		case orb.Point:
			return pointPolygonPosition(ga, gb) >= 0
		case orb.LineString:
			return lineIntersectsPolygon(gb, ga)
		case orb.Polygon:
			return polyIntersectsPoly(ga, gb)
		}
	}
	return false
}

func containsGeom(a, b orb.Geometry) bool {
	switch ga := a.(type) {
	case orb.Point:
		if gb, ok := b.(orb.Point); ok {
			return ga == gb
		}
	case orb.LineString:
		switch gb := b.(type) {
		case orb.Point:
			return pointInLineInterior(ga, gb)
		case orb.LineString:
			return lineCoveredByLine(gb, ga)
		}
	case orb.Polygon:
		switch gb := b.(type) {
		case orb.Point:
			return pointPolygonPosition(ga, gb) == 1
		case orb.LineString:
			return lineCoveredByPolygon(gb, ga) && linePolyInteriorIntersect(gb, ga)
		case orb.Polygon:
			return polyCoveredByPoly(gb, ga)
		}
	}
	return false
}

func interiorsIntersect(a, b orb.Geometry) bool {
	switch ga := a.(type) {
	case orb.Point:
		switch gb := b.(type) {
		case orb.Point:
			return ga == gb
		case orb.LineString:
			return pointInLineInterior(gb, ga)
		case orb.Polygon:
			return pointPolygonPosition(gb, ga) == 1
		}
	case orb.LineString:
		switch gb := b.(type) {
		case orb.Point:
			return pointInLineInterior(ga, gb)
		case orb.LineString:
			return lineInteriorsIntersect(ga, gb)
		case orb.Polygon:
			return linePolyInteriorIntersect(ga, gb)
		}
	case orb.Polygon:
		switch gb := b.(type) {
		case orb.Point:
			return pointPolygonPosition(ga, gb) == 1
		case orb.LineString:
			return linePolyInteriorIntersect(gb, ga)
		case orb.Polygon:
			return polyInteriorsIntersect(ga, gb)
		}
	}
	return false
}
