// Package query contains the scalar filter operator the query engine plugs
// a geospatial column into. It evaluates one spatial predicate between every
// row of the column and a query geometry, either by decoding each row on the
// fly (data mode) or by delegating to a built H3 index (index mode).
package query

import (
	"context"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"

	"gsi/geometry"
	"gsi/index"
	"gsi/storage"
)

// batchSize is the number of rows one evaluation step of the data mode
// processes before checking for cancellation.
const batchSize = 8192

// GeoFilterOperator evaluates `row.op(query)` over a geospatial column and
// produces a row-aligned bitmap of matches. Null rows never match.
type GeoFilterOperator struct {
	op       index.GeoOp
	queryWKB []byte
	query    *geometry.Geometry

	column []*storage.FieldData // data mode
	idx    *index.GeoH3Index    // index mode
}

// NewDataOperator creates an operator that scans the raw column batches.
// Non-geospatial columns and unknown predicates are rejected.
func NewDataOperator(column []*storage.FieldData, op index.GeoOp, queryWKB []byte) (*GeoFilterOperator, error) {
	for _, batch := range column {
		if batch.DataType != storage.DataTypeGeospatial {
			return nil, errors.Wrapf(index.ErrInvalidConfig, "geo filter on column of type %s", batch.DataType)
		}
	}
	op, query, err := validateOperator(op, queryWKB)
	if err != nil {
		return nil, err
	}
	return &GeoFilterOperator{
		op:       op,
		queryWKB: queryWKB,
		query:    query,
		column:   column,
	}, nil
}

// NewIndexOperator creates an operator that delegates to a built H3 index.
func NewIndexOperator(idx *index.GeoH3Index, op index.GeoOp, queryWKB []byte) (*GeoFilterOperator, error) {
	op, query, err := validateOperator(op, queryWKB)
	if err != nil {
		return nil, err
	}
	return &GeoFilterOperator{
		op:       op,
		queryWKB: queryWKB,
		query:    query,
		idx:      idx,
	}, nil
}

func validateOperator(op index.GeoOp, queryWKB []byte) (index.GeoOp, *geometry.Geometry, error) {
	if _, err := index.GeoPredicate(op); err != nil {
		return 0, nil, err
	}
	query, err := geometry.FromWKB(queryWKB)
	if err != nil {
		return 0, nil, err
	}
	return op, query, nil
}

// Eval produces the match bitmap over the whole column. Both modes agree
// bit for bit.
func (o *GeoFilterOperator) Eval(ctx context.Context) (*index.TargetBitmap, error) {
	if o.idx != nil {
		return o.idx.ExecGeoRelations([][]byte{o.queryWKB}, o.op)
	}
	return o.evalDataMode(ctx)
}

func (o *GeoFilterOperator) evalDataMode(ctx context.Context) (*index.TargetBitmap, error) {
	predicate, err := index.GeoPredicate(o.op)
	if err != nil {
		return nil, err
	}

	totalRows := 0
	for _, batch := range o.column {
		totalRows += batch.NumRows()
	}
	result := index.NewTargetBitmap(uint32(totalRows))

	offset := uint32(0)
	for _, batch := range o.column {
		for start := 0; start < batch.NumRows(); start += batchSize {
			if err = ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "geo filter evaluation cancelled")
			}
			end := start + batchSize
			if end > batch.NumRows() {
				end = batch.NumRows()
			}
			for i := start; i < end; i++ {
				row := batch.Row(i)
				if len(row) == 0 {
					offset++
					continue
				}
				g, err := geometry.FromWKB(row)
				if err != nil {
					return nil, errors.Wrapf(err, "unable to decode row %d", offset)
				}
				matches, err := predicate(g, o.query)
				if err != nil {
					return nil, errors.Wrapf(err, "unable to evaluate %s on row %d", o.op, offset)
				}
				if matches {
					result.Set(offset)
				}
				offset++
			}
		}
		sigolo.Tracef("Evaluated geo filter %s over batch of %d rows", o.op, batch.NumRows())
	}
	return result, nil
}
