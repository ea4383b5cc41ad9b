// Package geometry holds the decoded form of a single geospatial column value
// together with its canonical WKB serialization and implements the binary
// spatial predicates between two such values.
package geometry

import (
	"encoding/binary"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

var (
	ErrInvalidGeometry     = errors.New("invalid geometry")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// Geometry owns a decoded shape (Point, LineString or Polygon) and its
// canonical little-endian WKB bytes. The byte buffer is the byte-exact
// re-export of the decoded form, so two geometries decoded from different but
// equivalent encodings (e.g. big-endian input) end up with identical buffers.
type Geometry struct {
	geom    orb.Geometry
	wkbData []byte
}

// FromWKB decodes the given WKB bytes. Only Point, LineString and Polygon are
// accepted, everything else fails with ErrUnsupportedGeometry. Parse failures
// and degenerate shapes fail with ErrInvalidGeometry.
func FromWKB(data []byte) (*Geometry, error) {
	geom, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidGeometry, "unable to decode %d bytes of WKB: %v", len(data), err)
	}
	return fromOrb(geom)
}

// FromWKT decodes a WKT string. Used on the outer surfaces (CLI, HTTP API)
// where queries arrive as text; the canonical representation stays WKB.
func FromWKT(s string) (*Geometry, error) {
	geom, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidGeometry, "unable to decode WKT %q: %v", s, err)
	}
	return fromOrb(geom)
}

func fromOrb(geom orb.Geometry) (*Geometry, error) {
	switch g := geom.(type) {
	case orb.Point:
	case orb.LineString:
		if len(g) < 2 {
			return nil, errors.Wrapf(ErrInvalidGeometry, "linestring with %d points", len(g))
		}
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) < 4 {
			return nil, errors.Wrap(ErrInvalidGeometry, "polygon without a valid exterior ring")
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedGeometry, "geometry type %s", geom.GeoJSONType())
	}

	canonical, err := wkb.Marshal(geom, binary.LittleEndian)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidGeometry, "unable to re-export geometry as WKB: %v", err)
	}

	return &Geometry{
		geom:    geom,
		wkbData: canonical,
	}, nil
}

// Clone returns a deep copy of the geometry including its byte buffer.
func (g *Geometry) Clone() *Geometry {
	wkbCopy := make([]byte, len(g.wkbData))
	copy(wkbCopy, g.wkbData)
	return &Geometry{
		geom:    orb.Clone(g.geom),
		wkbData: wkbCopy,
	}
}

// Geom returns the decoded shape. Callers must not mutate it.
func (g *Geometry) Geom() orb.Geometry {
	return g.geom
}

// WKB returns the canonical little-endian WKB buffer. The returned slice is a
// view into the geometry and must not be modified.
func (g *Geometry) WKB() []byte {
	return g.wkbData
}

// Size returns the length of the canonical WKB buffer.
func (g *Geometry) Size() int {
	return len(g.wkbData)
}

// WKT returns the shape as WKT text.
func (g *Geometry) WKT() string {
	return wkt.MarshalString(g.geom)
}

func (g *Geometry) valid() bool {
	return g != nil && g.geom != nil
}

func bothValid(a *Geometry, b *Geometry) error {
	if !a.valid() || !b.valid() {
		return errors.Wrap(ErrInvalidGeometry, "predicate on an undecoded geometry")
	}
	return nil
}
