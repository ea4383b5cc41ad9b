package index

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	h3 "github.com/uber/h3-go/v3"

	"gsi/geometry"
)

// representativeCell derives the single H3 cell standing in for a shape
// during candidate pruning: the minimum-resolution cell at or below the
// configured maximum resolution that covers the whole shape.
//
// Points map to their cell at the maximum resolution. Lines and polygons
// start from a covering cell set at the maximum resolution and repeatedly
// replace every cell by its parent until exactly one remains.
func representativeCell(g *geometry.Geometry, resolution int) (h3.H3Index, error) {
	switch geom := g.Geom().(type) {
	case orb.Point:
		cell := h3.FromGeo(h3.GeoCoord{Latitude: geom[0], Longitude: geom[1]}, resolution)
		if !h3.IsValid(cell) {
			return 0, errors.Wrapf(geometry.ErrInvalidGeometry, "point (%v, %v) maps to no valid cell", geom[0], geom[1])
		}
		return cell, nil

	case orb.LineString:
		cells, err := vertexCells(geom, resolution)
		if err != nil {
			return 0, err
		}
		return reduceToSingleCell(cells, resolution)

	case orb.Polygon:
		cells, err := polygonCells(geom, resolution)
		if err != nil {
			return 0, err
		}
		return reduceToSingleCell(cells, resolution)
	}

	return 0, errors.Wrapf(geometry.ErrUnsupportedGeometry, "indexing supports point, linestring and polygon only, got %s", g.Geom().GeoJSONType())
}

func vertexCells(points []orb.Point, resolution int) (map[h3.H3Index]struct{}, error) {
	cells := make(map[h3.H3Index]struct{}, len(points))
	for _, p := range points {
		cell := h3.FromGeo(h3.GeoCoord{Latitude: p[0], Longitude: p[1]}, resolution)
		if !h3.IsValid(cell) {
			return nil, errors.Wrapf(geometry.ErrInvalidGeometry, "vertex (%v, %v) maps to no valid cell", p[0], p[1])
		}
		cells[cell] = struct{}{}
	}
	return cells, nil
}

// polygonCells returns the covering cell set of the polygon at the given
// resolution. A polygon too small to cover any cell center falls back to the
// cells of its ring vertices so that every non-degenerate shape remains
// indexable.
func polygonCells(poly orb.Polygon, resolution int) (map[h3.H3Index]struct{}, error) {
	geoPolygon := h3.GeoPolygon{
		Geofence: ringCoords(poly[0]),
	}
	for _, hole := range poly[1:] {
		geoPolygon.Holes = append(geoPolygon.Holes, ringCoords(hole))
	}

	covering := h3.Polyfill(geoPolygon, resolution)
	if len(covering) == 0 {
		var allVerts []orb.Point
		for _, ring := range poly {
			allVerts = append(allVerts, ring...)
		}
		return vertexCells(allVerts, resolution)
	}

	cells := make(map[h3.H3Index]struct{}, len(covering))
	for _, cell := range covering {
		if !h3.IsValid(cell) {
			return nil, errors.Wrap(geometry.ErrInvalidGeometry, "polygon covering produced an invalid cell")
		}
		cells[cell] = struct{}{}
	}
	return cells, nil
}

func ringCoords(ring orb.Ring) []h3.GeoCoord {
	coords := make([]h3.GeoCoord, 0, len(ring))
	for _, p := range ring {
		coords = append(coords, h3.GeoCoord{Latitude: p[0], Longitude: p[1]})
	}
	return coords
}

// reduceToSingleCell coarsens the covering set one resolution step at a time
// until a single cell remains. The reduction is bounded by resolution 0; a
// set that still holds several distinct base cells there covers too much of
// the sphere to be represented by one cell.
func reduceToSingleCell(cells map[h3.H3Index]struct{}, resolution int) (h3.H3Index, error) {
	if len(cells) == 0 {
		return 0, errors.Wrap(geometry.ErrInvalidGeometry, "empty covering cell set")
	}

	for len(cells) != 1 {
		if resolution == 0 {
			return 0, errors.Wrap(geometry.ErrInvalidGeometry, "covering does not reduce to a single base cell")
		}
		resolution--

		parents := make(map[h3.H3Index]struct{}, len(cells))
		for cell := range cells {
			parent := h3.ToParent(cell, resolution)
			if !h3.IsValid(parent) {
				return 0, errors.Wrapf(geometry.ErrInvalidGeometry, "no valid parent at resolution %d", resolution)
			}
			parents[parent] = struct{}{}
		}
		cells = parents
	}

	for cell := range cells {
		return cell, nil
	}
	return 0, errors.Wrap(geometry.ErrInvalidGeometry, "empty covering cell set")
}
