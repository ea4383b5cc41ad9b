// Package index implements the H3 cell based scalar index over a geospatial
// column: building from raw WKB rows, persisting as a keyed binary set, and
// answering candidate and exact spatial-predicate queries with row-aligned
// bitmaps.
package index

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"gsi/geometry"
	"gsi/storage"
)

var (
	ErrCorruptIndex  = errors.New("corrupt index data")
	ErrNotBuilt      = errors.New("index has not been built")
	ErrNotSupported  = errors.New("operation not supported")
	ErrOutOfRange    = errors.New("offset out of range")
	ErrInvalidConfig = errors.New("invalid index config")
)

// IndexTypeH3 is the registry name of this index kind.
const IndexTypeH3 = "H3"

// OpType identifies a range comparison. The H3 index rejects all of them,
// geospatial values have no order.
type OpType int

const (
	OpGreaterThan OpType = iota + 1
	OpGreaterEqual
	OpLessThan
	OpLessEqual
)

// GeoOp identifies one of the spatial predicates evaluated between an
// indexed row (left operand) and a query geometry (right operand).
type GeoOp int

const (
	GeoOpEquals GeoOp = iota + 1
	GeoOpTouches
	GeoOpOverlaps
	GeoOpCrosses
	GeoOpContains
	GeoOpIntersects
	GeoOpWithin
)

var geoOpNames = map[GeoOp]string{
	GeoOpEquals:     "equals",
	GeoOpTouches:    "touches",
	GeoOpOverlaps:   "overlaps",
	GeoOpCrosses:    "crosses",
	GeoOpContains:   "contains",
	GeoOpIntersects: "intersects",
	GeoOpWithin:     "within",
}

func (op GeoOp) String() string {
	if name, ok := geoOpNames[op]; ok {
		return name
	}
	return "unknown"
}

// GeoOpFromString parses a predicate name as it arrives on the CLI or the
// HTTP API.
func GeoOpFromString(s string) (GeoOp, error) {
	for op, name := range geoOpNames {
		if name == strings.ToLower(s) {
			return op, nil
		}
	}
	return 0, errors.Wrapf(ErrNotSupported, "unknown spatial predicate %q", s)
}

// GeoPredicate returns the predicate function for op, evaluating
// left.op(right).
func GeoPredicate(op GeoOp) (func(left, right *geometry.Geometry) (bool, error), error) {
	switch op {
	case GeoOpEquals:
		return (*geometry.Geometry).Equals, nil
	case GeoOpTouches:
		return (*geometry.Geometry).Touches, nil
	case GeoOpOverlaps:
		return (*geometry.Geometry).Overlaps, nil
	case GeoOpCrosses:
		return (*geometry.Geometry).Crosses, nil
	case GeoOpContains:
		return (*geometry.Geometry).Contains, nil
	case GeoOpIntersects:
		return (*geometry.Geometry).Intersects, nil
	case GeoOpWithin:
		return (*geometry.Geometry).Within, nil
	}
	return nil, errors.Wrapf(ErrNotSupported, "invalid spatial predicate %d", op)
}

// ScalarIndex is the capability set a scalar index kind offers to the query
// engine. GeoH3Index is the geospatial variant; future kinds plug in next to
// it without an inheritance chain.
type ScalarIndex interface {
	Build(values [][]byte) error
	BuildWithFieldData(batches []*storage.FieldData) error
	BuildFromConfig(ctx context.Context, cfg Config) error

	Serialize() (storage.BinarySet, error)
	Load(set storage.BinarySet) error
	LoadFromConfig(ctx context.Context, cfg Config) error
	Upload(ctx context.Context) (map[string]int64, error)

	In(values [][]byte) (*TargetBitmap, error)
	NotIn(values [][]byte) (*TargetBitmap, error)
	IsNull() (*TargetBitmap, error)
	IsNotNull() (*TargetBitmap, error)
	Range(value []byte, op OpType) (*TargetBitmap, error)
	ReverseLookup(offset uint32) ([]byte, error)
	Count() int64
}
