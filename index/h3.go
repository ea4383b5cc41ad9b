package index

import (
	"context"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	h3 "github.com/uber/h3-go/v3"

	"gsi/geometry"
	"gsi/storage"
)

// maxChildFanout bounds the direct child enumeration during descendant
// expansion. Above it a single scan over the cell map is cheaper than
// materializing the 7^Δ children of the representative cell.
const maxChildFanout = 7 * 7 * 7 * 7 * 7

// GeoH3Index indexes a geospatial column by the representative H3 cell of
// each row. It is built exactly once, then serves reads; query methods on a
// built index touch only immutable state and are safe to call concurrently.
type GeoH3Index struct {
	fileManager storage.FileManager
	resolution  int

	isBuilt       bool
	totalRows     uint32
	cellToOffsets map[h3.H3Index][]uint32
	raw           [][]byte
	nullOffsets   []uint32
}

var _ ScalarIndex = (*GeoH3Index)(nil)

// NewGeoH3Index creates an empty index with the given maximum resolution.
// The file manager may be nil for purely in-memory use; building from or
// loading to blob storage then fails.
func NewGeoH3Index(fileManager storage.FileManager, resolution int) (*GeoH3Index, error) {
	if resolution < 0 || resolution > 15 {
		return nil, errors.Wrapf(ErrInvalidConfig, "resolution %d outside the valid range [0, 15]", resolution)
	}
	return &GeoH3Index{
		fileManager:   fileManager,
		resolution:    resolution,
		cellToOffsets: map[h3.H3Index][]uint32{},
	}, nil
}

// NewGeoH3IndexFromConfig creates an empty index with the resolution from
// the config, defaulting to DefaultResolution.
func NewGeoH3IndexFromConfig(fileManager storage.FileManager, cfg Config) (*GeoH3Index, error) {
	resolution, err := GetResolution(cfg)
	if err != nil {
		return nil, err
	}
	return NewGeoH3Index(fileManager, resolution)
}

// Resolution returns the configured maximum resolution.
func (idx *GeoH3Index) Resolution() int {
	return idx.resolution
}

// IsBuilt reports whether the index holds a built column.
func (idx *GeoH3Index) IsBuilt() bool {
	return idx.isBuilt
}

// HasRawData reports whether the index can reproduce the original column
// values. Always true for this index kind.
func (idx *GeoH3Index) HasRawData() bool {
	return true
}

// Count returns the number of rows the index was built from.
func (idx *GeoH3Index) Count() int64 {
	return int64(idx.totalRows)
}

// Cardinality returns the number of distinct representative cells.
func (idx *GeoH3Index) Cardinality() int64 {
	return int64(len(idx.cellToOffsets))
}

// Build indexes the given rows, one WKB value per row offset. Empty values
// become null rows. Any per-row failure aborts the build and leaves the
// index in its pre-build state.
func (idx *GeoH3Index) Build(values [][]byte) error {
	if idx.isBuilt {
		return errors.Errorf("H3 index is already built")
	}

	buildStartTime := time.Now()

	cellToOffsets := map[h3.H3Index][]uint32{}
	raw := make([][]byte, len(values))
	var nullOffsets []uint32

	for offset, value := range values {
		if len(value) == 0 {
			nullOffsets = append(nullOffsets, uint32(offset))
			raw[offset] = []byte{}
			continue
		}

		g, err := geometry.FromWKB(value)
		if err != nil {
			return errors.Wrapf(err, "unable to build H3 index entry for row %d", offset)
		}
		cell, err := representativeCell(g, idx.resolution)
		if err != nil {
			return errors.Wrapf(err, "unable to derive representative cell for row %d", offset)
		}

		cellToOffsets[cell] = append(cellToOffsets[cell], uint32(offset))
		raw[offset] = append([]byte(nil), value...)
	}

	idx.cellToOffsets = cellToOffsets
	idx.raw = raw
	idx.nullOffsets = nullOffsets
	idx.totalRows = uint32(len(values))
	idx.isBuilt = true

	sigolo.Debugf("Built H3 index with %d rows, %d cells and %d null rows in %s",
		idx.totalRows, len(idx.cellToOffsets), len(idx.nullOffsets), time.Since(buildStartTime))
	return nil
}

// BuildWithFieldData flattens the given batches into one row list, mapping
// invalid rows to nulls, and builds from it.
func (idx *GeoH3Index) BuildWithFieldData(batches []*storage.FieldData) error {
	var values [][]byte
	for _, batch := range batches {
		if batch.DataType != storage.DataTypeGeospatial {
			sigolo.Warnf("Received batch with data type %s instead of geospatial, skipping it", batch.DataType)
			continue
		}
		for i := 0; i < batch.NumRows(); i++ {
			if !batch.IsValid(i) {
				values = append(values, []byte{})
			} else {
				values = append(values, batch.Row(i))
			}
		}
	}
	return idx.Build(values)
}

// BuildFromConfig reads the raw column batches listed under "insert_files"
// through the file manager and builds from them.
func (idx *GeoH3Index) BuildFromConfig(ctx context.Context, cfg Config) error {
	if idx.isBuilt {
		return nil
	}
	if idx.fileManager == nil {
		return errors.Wrap(ErrInvalidConfig, "building from config requires a file manager")
	}

	insertFiles, err := GetStringList(cfg, KeyInsertFiles)
	if err != nil {
		return err
	}
	batches, err := idx.fileManager.CacheRawDataToMemory(ctx, insertFiles)
	if err != nil {
		return err
	}
	return idx.BuildWithFieldData(batches)
}

func (idx *GeoH3Index) requireBuilt() error {
	if !idx.isBuilt {
		return errors.WithStack(ErrNotBuilt)
	}
	return nil
}

// forEachCandidate visits the offsets of every indexed row whose
// representative cell equals, is an ancestor of, or is a descendant of the
// query value's representative cell.
func (idx *GeoH3Index) forEachCandidate(value []byte, visit func(offset uint32)) error {
	g, err := geometry.FromWKB(value)
	if err != nil {
		return err
	}
	rep, err := representativeCell(g, idx.resolution)
	if err != nil {
		return err
	}
	repRes := h3.Resolution(rep)

	// Ancestors, including the representative cell itself.
	for curRes := repRes; curRes >= 0; curRes-- {
		parent := h3.ToParent(rep, curRes)
		if !h3.IsValid(parent) {
			return errors.Wrapf(geometry.ErrInvalidGeometry, "no valid ancestor at resolution %d", curRes)
		}
		for _, offset := range idx.cellToOffsets[parent] {
			visit(offset)
		}
	}

	if repRes >= idx.resolution {
		return nil
	}

	// Descendants up to the maximum resolution. For a shallow subtree the
	// children are enumerated directly; for a deep one every indexed cell is
	// tested against the representative instead, which bounds the work by
	// the index cardinality rather than the subtree size.
	fanout := 1
	for r := repRes; r < idx.resolution && fanout <= maxChildFanout; r++ {
		fanout *= 7
	}
	if fanout <= maxChildFanout {
		for curRes := repRes + 1; curRes <= idx.resolution; curRes++ {
			for _, child := range h3.ToChildren(rep, curRes) {
				for _, offset := range idx.cellToOffsets[child] {
					visit(offset)
				}
			}
		}
		return nil
	}

	for cell, offsets := range idx.cellToOffsets {
		if h3.Resolution(cell) > repRes && h3.ToParent(cell, repRes) == rep {
			for _, offset := range offsets {
				visit(offset)
			}
		}
	}
	return nil
}

// In returns the candidate bitmap: rows whose representative cell is an
// ancestor or descendant of (or equal to) the representative cell of any
// query value. It is a superset of every overlap-implying predicate answer.
func (idx *GeoH3Index) In(values [][]byte) (*TargetBitmap, error) {
	if err := idx.requireBuilt(); err != nil {
		return nil, err
	}
	result := NewTargetBitmap(idx.totalRows)
	for i, value := range values {
		err := idx.forEachCandidate(value, result.Set)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to expand candidates for query value %d", i)
		}
	}
	return result, nil
}

// NotIn returns the complement of In over all rows, null rows included.
func (idx *GeoH3Index) NotIn(values [][]byte) (*TargetBitmap, error) {
	if err := idx.requireBuilt(); err != nil {
		return nil, err
	}
	result := NewTargetBitmap(idx.totalRows)
	result.SetAll()
	for i, value := range values {
		err := idx.forEachCandidate(value, result.Clear)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to expand candidates for query value %d", i)
		}
	}
	return result, nil
}

// IsNull returns the bitmap of rows whose input was empty.
func (idx *GeoH3Index) IsNull() (*TargetBitmap, error) {
	if err := idx.requireBuilt(); err != nil {
		return nil, err
	}
	result := NewTargetBitmap(idx.totalRows)
	for _, offset := range idx.nullOffsets {
		result.Set(offset)
	}
	return result, nil
}

// IsNotNull returns the complement of IsNull.
func (idx *GeoH3Index) IsNotNull() (*TargetBitmap, error) {
	if err := idx.requireBuilt(); err != nil {
		return nil, err
	}
	result := NewTargetBitmap(idx.totalRows)
	result.SetAll()
	for _, offset := range idx.nullOffsets {
		result.Clear(offset)
	}
	return result, nil
}

// Range always fails: geospatial values are unordered.
func (idx *GeoH3Index) Range(value []byte, op OpType) (*TargetBitmap, error) {
	return nil, errors.Wrap(ErrNotSupported, "geospatial data does not support range queries")
}

// ReverseLookup returns the raw WKB bytes of the given row offset.
func (idx *GeoH3Index) ReverseLookup(offset uint32) ([]byte, error) {
	if err := idx.requireBuilt(); err != nil {
		return nil, err
	}
	if offset >= idx.totalRows {
		return nil, errors.Wrapf(ErrOutOfRange, "offset %d >= total row count %d", offset, idx.totalRows)
	}
	return idx.raw[offset], nil
}

// ExecGeoRelations evaluates the given predicate between every indexed row
// and the query values in two phases: the candidate bitmap from In prunes
// the rows, then the exact predicate runs on the decoded geometries. A row
// is set as soon as one query value matches.
func (idx *GeoH3Index) ExecGeoRelations(values [][]byte, op GeoOp) (*TargetBitmap, error) {
	predicate, err := GeoPredicate(op)
	if err != nil {
		return nil, err
	}
	candidates, err := idx.In(values)
	if err != nil {
		return nil, err
	}

	queries := make([]*geometry.Geometry, len(values))
	for i, value := range values {
		queries[i], err = geometry.FromWKB(value)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to decode query value %d", i)
		}
	}

	result := NewTargetBitmap(idx.totalRows)
	var evalErr error
	candidates.ForEachSet(func(offset uint32) bool {
		origin, err := geometry.FromWKB(idx.raw[offset])
		if err != nil {
			evalErr = errors.Wrapf(err, "unable to decode indexed row %d", offset)
			return false
		}
		for _, query := range queries {
			matches, err := predicate(origin, query)
			if err != nil {
				evalErr = errors.Wrapf(err, "unable to evaluate %s on row %d", op, offset)
				return false
			}
			if matches {
				result.Set(offset)
				break
			}
		}
		return true
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return result, nil
}
