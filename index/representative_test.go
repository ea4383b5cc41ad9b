package index

import (
	"testing"

	h3 "github.com/uber/h3-go/v3"

	"gsi/geometry"
	"gsi/util"
)

func mustGeometry(t *testing.T, wkt string) *geometry.Geometry {
	g, err := geometry.FromWKT(wkt)
	util.AssertNil(t, err)
	return g
}

func TestRepresentativeCell_point(t *testing.T) {
	g := mustGeometry(t, "POINT(3 4)")

	cell, err := representativeCell(g, 9)

	util.AssertNil(t, err)
	util.AssertTrue(t, h3.IsValid(cell))
	util.AssertEqual(t, 9, h3.Resolution(cell))
}

func TestRepresentativeCell_deterministic(t *testing.T) {
	g := mustGeometry(t, "LINESTRING(3 4,4 4,4 5,3 5)")

	first, err := representativeCell(g, 9)
	util.AssertNil(t, err)
	second, err := representativeCell(g.Clone(), 9)
	util.AssertNil(t, err)

	util.AssertEqual(t, first, second)
}

func TestRepresentativeCell_lineCoversVertices(t *testing.T) {
	g := mustGeometry(t, "LINESTRING(3 4,4 4,4 5,3 5)")

	cell, err := representativeCell(g, 9)
	util.AssertNil(t, err)
	util.AssertTrue(t, h3.IsValid(cell))

	repRes := h3.Resolution(cell)
	util.AssertTrue(t, repRes <= 9)

	// The representative is the common ancestor of every vertex cell.
	for _, p := range [][2]float64{{3, 4}, {4, 4}, {4, 5}, {3, 5}} {
		vertexCell := h3.FromGeo(h3.GeoCoord{Latitude: p[0], Longitude: p[1]}, 9)
		util.AssertEqual(t, cell, h3.ToParent(vertexCell, repRes))
	}
}

func TestRepresentativeCell_polygon(t *testing.T) {
	g := mustGeometry(t, "POLYGON((3 4,4 4,4 5,3 5,3 4))")

	cell, err := representativeCell(g, 9)

	util.AssertNil(t, err)
	util.AssertTrue(t, h3.IsValid(cell))
	util.AssertTrue(t, h3.Resolution(cell) <= 9)
}

func TestRepresentativeCell_tinyPolygonFallsBackToVertices(t *testing.T) {
	// Far smaller than any resolution 3 cell, so the covering set from the
	// cell centers is empty and the ring vertices take over.
	g := mustGeometry(t, "POLYGON((3 4,3.00001 4,3.00001 4.00001,3 4.00001,3 4))")

	cell, err := representativeCell(g, 3)

	util.AssertNil(t, err)
	util.AssertTrue(t, h3.IsValid(cell))
	util.AssertEqual(t, 3, h3.Resolution(cell))
}

func TestRepresentativeCell_pointAtBaseResolution(t *testing.T) {
	g := mustGeometry(t, "POINT(-40 -30.2)")

	cell, err := representativeCell(g, 0)

	util.AssertNil(t, err)
	util.AssertEqual(t, 0, h3.Resolution(cell))
}
