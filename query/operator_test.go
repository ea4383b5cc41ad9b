package query

import (
	"context"
	"testing"

	"gsi/geometry"
	"gsi/index"
	"gsi/storage"
	"gsi/util"
)

var operatorTestWkts = []string{
	"POINT(3 4)",
	"LINESTRING(3 4,4 4,4 5,3 5)",
	"POLYGON((3 4,4 4,4 5,3 5,3 4))",
	"POINT(60.10 40.10)",
	"POINT(-40.00 -30.20)",
}

func wkbOf(t *testing.T, wkt string) []byte {
	g, err := geometry.FromWKT(wkt)
	util.AssertNil(t, err)
	return g.WKB()
}

func testColumn(t *testing.T) []*storage.FieldData {
	batch := &storage.FieldData{DataType: storage.DataTypeGeospatial}
	for _, wkt := range operatorTestWkts {
		batch.Rows = append(batch.Rows, wkbOf(t, wkt))
		batch.Valid = append(batch.Valid, true)
	}
	return []*storage.FieldData{batch}
}

func testIndex(t *testing.T) *index.GeoH3Index {
	idx, err := index.NewGeoH3Index(nil, index.DefaultResolution)
	util.AssertNil(t, err)

	var values [][]byte
	for _, wkt := range operatorTestWkts {
		values = append(values, wkbOf(t, wkt))
	}
	util.AssertNil(t, idx.Build(values))
	return idx
}

// Data mode and index mode agree bit for bit on every predicate.
func TestEval_modesAgree(t *testing.T) {
	ctx := context.Background()
	column := testColumn(t)
	idx := testIndex(t)

	queryWKB := wkbOf(t, "POLYGON((3.25 3.75,3.75 3.75,3.75 4.25,3.25 4.25,3.25 3.75))")
	ops := []index.GeoOp{
		index.GeoOpEquals,
		index.GeoOpTouches,
		index.GeoOpOverlaps,
		index.GeoOpCrosses,
		index.GeoOpContains,
		index.GeoOpIntersects,
		index.GeoOpWithin,
	}

	for _, op := range ops {
		dataOperator, err := NewDataOperator(column, op, queryWKB)
		util.AssertNil(t, err)
		indexOperator, err := NewIndexOperator(idx, op, queryWKB)
		util.AssertNil(t, err)

		dataBits, err := dataOperator.Eval(ctx)
		util.AssertNil(t, err)
		indexBits, err := indexOperator.Eval(ctx)
		util.AssertNil(t, err)

		if !dataBits.Equal(indexBits) {
			t.Errorf("modes disagree for op %s: data=%v index=%v", op, dataBits.ToSlice(), indexBits.ToSlice())
		}
	}
}

// Exact cell equality makes the point row a guaranteed candidate of a query
// equal to it, so both modes find it.
func TestEval_modesAgreeOnPointEquality(t *testing.T) {
	ctx := context.Background()
	queryWKB := wkbOf(t, "POINT(3 4)")

	dataOperator, err := NewDataOperator(testColumn(t), index.GeoOpEquals, queryWKB)
	util.AssertNil(t, err)
	indexOperator, err := NewIndexOperator(testIndex(t), index.GeoOpEquals, queryWKB)
	util.AssertNil(t, err)

	dataBits, err := dataOperator.Eval(ctx)
	util.AssertNil(t, err)
	indexBits, err := indexOperator.Eval(ctx)
	util.AssertNil(t, err)

	util.AssertTrue(t, dataBits.Equal(indexBits))
	util.AssertEqual(t, []uint32{0}, dataBits.ToSlice())
}

func TestEval_dataModeMatches(t *testing.T) {
	operator, err := NewDataOperator(testColumn(t), index.GeoOpIntersects,
		wkbOf(t, "POLYGON((3.25 3.75,3.75 3.75,3.75 4.25,3.25 4.25,3.25 3.75))"))
	util.AssertNil(t, err)

	bitmap, err := operator.Eval(context.Background())
	util.AssertNil(t, err)

	util.AssertEqual(t, []uint32{1, 2}, bitmap.ToSlice())
	util.AssertEqual(t, uint32(5), bitmap.Len())
}

func TestEval_nullRowsNeverMatch(t *testing.T) {
	point := wkbOf(t, "POINT(0 0)")
	column := []*storage.FieldData{{
		DataType: storage.DataTypeGeospatial,
		Rows:     [][]byte{point, point, point},
		Valid:    []bool{true, false, true},
	}}

	operator, err := NewDataOperator(column, index.GeoOpEquals, point)
	util.AssertNil(t, err)

	bitmap, err := operator.Eval(context.Background())
	util.AssertNil(t, err)
	util.AssertEqual(t, []uint32{0, 2}, bitmap.ToSlice())
}

func TestNewDataOperator_rejectsForeignColumnType(t *testing.T) {
	column := []*storage.FieldData{{DataType: storage.DataTypeUnknown}}

	_, err := NewDataOperator(column, index.GeoOpEquals, wkbOf(t, "POINT(0 0)"))

	util.AssertErrorIs(t, index.ErrInvalidConfig, err)
}

func TestNewDataOperator_rejectsUnknownOp(t *testing.T) {
	_, err := NewDataOperator(testColumn(t), index.GeoOp(42), wkbOf(t, "POINT(0 0)"))

	util.AssertErrorIs(t, index.ErrNotSupported, err)
}

func TestNewIndexOperator_rejectsInvalidQuery(t *testing.T) {
	_, err := NewIndexOperator(testIndex(t), index.GeoOpEquals, []byte{0x01, 0x02})

	util.AssertErrorIs(t, geometry.ErrInvalidGeometry, err)
}

func TestEval_cancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	operator, err := NewDataOperator(testColumn(t), index.GeoOpEquals, wkbOf(t, "POINT(3 4)"))
	util.AssertNil(t, err)

	_, err = operator.Eval(ctx)
	util.AssertNotNil(t, err)
}
