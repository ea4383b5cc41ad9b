package index

import (
	"testing"

	"gsi/storage"
	"gsi/util"
)

// Scenario S4: serialize, load into a fresh index and observe identical
// query results.
func TestSerializeLoad_roundTrip(t *testing.T) {
	original := buildTestIndex(t)

	set, err := original.Serialize()
	util.AssertNil(t, err)

	loaded, err := NewGeoH3Index(nil, DefaultResolution)
	util.AssertNil(t, err)
	util.AssertNil(t, loaded.Load(set))

	util.AssertTrue(t, loaded.IsBuilt())
	util.AssertEqual(t, original.Count(), loaded.Count())
	util.AssertEqual(t, original.Cardinality(), loaded.Cardinality())

	for offset := uint32(0); offset < uint32(original.Count()); offset++ {
		originalRaw, err := original.ReverseLookup(offset)
		util.AssertNil(t, err)
		loadedRaw, err := loaded.ReverseLookup(offset)
		util.AssertNil(t, err)
		util.AssertEqual(t, originalRaw, loadedRaw)
	}

	query := [][]byte{wkbOf(t, "POINT(3 4)")}
	originalBits, err := original.ExecGeoRelations(query, GeoOpEquals)
	util.AssertNil(t, err)
	loadedBits, err := loaded.ExecGeoRelations(query, GeoOpEquals)
	util.AssertNil(t, err)
	util.AssertTrue(t, originalBits.Equal(loadedBits))
}

func TestSerializeLoad_withNulls(t *testing.T) {
	point := wkbOf(t, "POINT(0 0)")
	idx, err := NewGeoH3Index(nil, DefaultResolution)
	util.AssertNil(t, err)
	util.AssertNil(t, idx.Build([][]byte{point, {}, point, {}, point}))

	set, err := idx.Serialize()
	util.AssertNil(t, err)

	loaded, err := NewGeoH3Index(nil, DefaultResolution)
	util.AssertNil(t, err)
	util.AssertNil(t, loaded.Load(set))

	isNull, err := loaded.IsNull()
	util.AssertNil(t, err)
	assertBits(t, isNull, []bool{false, true, false, true, false})

	raw, err := loaded.ReverseLookup(1)
	util.AssertNil(t, err)
	util.AssertEqual(t, []byte{}, raw)
}

func TestSerializeLoad_shardedBuffers(t *testing.T) {
	original := buildTestIndex(t)

	set, err := original.Serialize()
	util.AssertNil(t, err)
	// Force every buffer into several small shards.
	util.AssertNil(t, storage.Disassemble(set, 16))

	loaded, err := NewGeoH3Index(nil, DefaultResolution)
	util.AssertNil(t, err)
	util.AssertNil(t, loaded.Load(set))

	util.AssertEqual(t, original.Count(), loaded.Count())
	util.AssertEqual(t, original.Cardinality(), loaded.Cardinality())
}

func TestLoad_missingBuffer(t *testing.T) {
	original := buildTestIndex(t)
	set, err := original.Serialize()
	util.AssertNil(t, err)
	delete(set, KeyIndexNumRows)

	loaded, err := NewGeoH3Index(nil, DefaultResolution)
	util.AssertNil(t, err)

	util.AssertErrorIs(t, ErrCorruptIndex, loaded.Load(set))
	util.AssertFalse(t, loaded.IsBuilt())
}

func TestLoad_truncatedIndexData(t *testing.T) {
	original := buildTestIndex(t)
	set, err := original.Serialize()
	util.AssertNil(t, err)
	data, _ := set.GetByName(KeyIndexData)
	set.Append(KeyIndexData, data[:len(data)-3])

	loaded, err := NewGeoH3Index(nil, DefaultResolution)
	util.AssertNil(t, err)

	util.AssertErrorIs(t, ErrCorruptIndex, loaded.Load(set))
	util.AssertFalse(t, loaded.IsBuilt())
}

func TestLoad_invalidNullOffsetBuffer(t *testing.T) {
	original := buildTestIndex(t)
	set, err := original.Serialize()
	util.AssertNil(t, err)
	nullData, _ := set.GetByName(KeyIndexNullOffsets)
	set.Append(KeyIndexNullOffsets, append(nullData, 0x01, 0x02, 0x03))

	loaded, err := NewGeoH3Index(nil, DefaultResolution)
	util.AssertNil(t, err)

	util.AssertErrorIs(t, ErrCorruptIndex, loaded.Load(set))
}

func TestLoad_inconsistentRowCount(t *testing.T) {
	original := buildTestIndex(t)
	set, err := original.Serialize()
	util.AssertNil(t, err)
	// Claim one row more than the index data holds.
	numRows, _ := set.GetByName(KeyIndexNumRows)
	numRows[0] = numRows[0] + 1

	loaded, err := NewGeoH3Index(nil, DefaultResolution)
	util.AssertNil(t, err)

	util.AssertErrorIs(t, ErrCorruptIndex, loaded.Load(set))
}

func TestSerialize_sizesBufferExactly(t *testing.T) {
	idx := buildTestIndex(t)

	set, err := idx.Serialize()
	util.AssertNil(t, err)

	data, ok := set.GetByName(KeyIndexData)
	util.AssertTrue(t, ok)
	util.AssertEqual(t, idx.indexDataSize(), len(data))

	numRows, ok := set.GetByName(KeyIndexNumRows)
	util.AssertTrue(t, ok)
	util.AssertEqual(t, 8, len(numRows))
}
