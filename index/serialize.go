package index

import (
	"context"
	"encoding/binary"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	h3 "github.com/uber/h3-go/v3"

	"gsi/storage"
)

// Keys of the buffers a serialized H3 index consists of.
const (
	KeyIndexData        = "INDEX_DATA"
	KeyIndexNullOffsets = "INDEX_NULL_OFFSETS"
	KeyIndexNumRows     = "INDEX_NUM_ROWS"
)

// indexDataSize mirrors the byte accounting of serializeIndexData exactly:
// per cell its 8-byte id and a 4-byte list length, per listed offset 4 bytes
// offset, 4 bytes WKB size and the WKB payload itself.
func (idx *GeoH3Index) indexDataSize() int {
	size := 0
	for _, offsets := range idx.cellToOffsets {
		size += 8 + 4
		for _, offset := range offsets {
			size += 4 + 4 + len(idx.raw[offset])
		}
	}
	return size
}

func (idx *GeoH3Index) serializeIndexData(data []byte) int {
	pos := 0
	for cell, offsets := range idx.cellToOffsets {
		binary.LittleEndian.PutUint64(data[pos:], uint64(cell))
		pos += 8
		binary.LittleEndian.PutUint32(data[pos:], uint32(len(offsets)))
		pos += 4

		for _, offset := range offsets {
			binary.LittleEndian.PutUint32(data[pos:], offset)
			pos += 4
			binary.LittleEndian.PutUint32(data[pos:], uint32(len(idx.raw[offset])))
			pos += 4
			pos += copy(data[pos:], idx.raw[offset])
		}
	}
	return pos
}

func (idx *GeoH3Index) deserializeIndexData(data []byte) error {
	pos := 0
	rowsSeen := 0
	for pos < len(data) {
		if len(data)-pos < 12 {
			return errors.Wrapf(ErrCorruptIndex, "truncated cell header at byte %d", pos)
		}
		cell := h3.H3Index(binary.LittleEndian.Uint64(data[pos:]))
		pos += 8
		listLen := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4

		if listLen == 0 {
			return errors.Wrapf(ErrCorruptIndex, "cell %x with empty offset list", uint64(cell))
		}
		offsets := make([]uint32, 0, listLen)
		for i := 0; i < listLen; i++ {
			if len(data)-pos < 8 {
				return errors.Wrapf(ErrCorruptIndex, "truncated offset entry at byte %d", pos)
			}
			offset := binary.LittleEndian.Uint32(data[pos:])
			pos += 4
			wkbSize := int(binary.LittleEndian.Uint32(data[pos:]))
			pos += 4

			if offset >= idx.totalRows {
				return errors.Wrapf(ErrCorruptIndex, "offset %d >= total row count %d", offset, idx.totalRows)
			}
			if len(data)-pos < wkbSize {
				return errors.Wrapf(ErrCorruptIndex, "truncated WKB payload of row %d at byte %d", offset, pos)
			}
			wkbData := make([]byte, wkbSize)
			copy(wkbData, data[pos:pos+wkbSize])
			pos += wkbSize

			idx.raw[offset] = wkbData
			offsets = append(offsets, offset)
			rowsSeen++
		}
		idx.cellToOffsets[cell] = offsets
	}

	if rowsSeen+len(idx.nullOffsets) != int(idx.totalRows) {
		return errors.Wrapf(ErrCorruptIndex, "index data holds %d rows and %d nulls, expected %d rows total",
			rowsSeen, len(idx.nullOffsets), idx.totalRows)
	}
	return nil
}

// Serialize emits the index as its three keyed buffers, sharding oversized
// ones for the persistence layer.
func (idx *GeoH3Index) Serialize() (storage.BinarySet, error) {
	if err := idx.requireBuilt(); err != nil {
		return nil, err
	}

	indexData := make([]byte, idx.indexDataSize())
	written := idx.serializeIndexData(indexData)
	if written != len(indexData) {
		return nil, errors.Errorf("index data serialized to %d bytes, accounted %d", written, len(indexData))
	}

	nullOffsets := make([]byte, 8*len(idx.nullOffsets))
	for i, offset := range idx.nullOffsets {
		binary.LittleEndian.PutUint64(nullOffsets[8*i:], uint64(offset))
	}

	numRows := make([]byte, 8)
	binary.LittleEndian.PutUint64(numRows, uint64(idx.totalRows))

	set := storage.NewBinarySet()
	set.Append(KeyIndexData, indexData)
	set.Append(KeyIndexNullOffsets, nullOffsets)
	set.Append(KeyIndexNumRows, numRows)
	if err := storage.Disassemble(set, storage.DefaultShardSize); err != nil {
		return nil, err
	}
	return set, nil
}

// Load restores the index from a serialized binary set, assembling shards
// first. After a successful load the index is built and serves queries.
func (idx *GeoH3Index) Load(set storage.BinarySet) error {
	if idx.isBuilt {
		return errors.Errorf("H3 index is already built")
	}
	if err := storage.Assemble(set); err != nil {
		return errors.Wrapf(ErrCorruptIndex, "unable to assemble index shards: %v", err)
	}
	return idx.loadWithoutAssemble(set)
}

func (idx *GeoH3Index) loadWithoutAssemble(set storage.BinarySet) error {
	numRowsData, ok := set.GetByName(KeyIndexNumRows)
	if !ok {
		return errors.Wrapf(ErrCorruptIndex, "buffer %s is missing", KeyIndexNumRows)
	}
	if len(numRowsData) != 8 {
		return errors.Wrapf(ErrCorruptIndex, "buffer %s has %d bytes, expected 8", KeyIndexNumRows, len(numRowsData))
	}

	nullOffsetData, ok := set.GetByName(KeyIndexNullOffsets)
	if !ok {
		return errors.Wrapf(ErrCorruptIndex, "buffer %s is missing", KeyIndexNullOffsets)
	}
	if len(nullOffsetData)%8 != 0 {
		return errors.Wrapf(ErrCorruptIndex, "buffer %s has %d bytes, expected a multiple of 8", KeyIndexNullOffsets, len(nullOffsetData))
	}

	indexData, ok := set.GetByName(KeyIndexData)
	if !ok {
		return errors.Wrapf(ErrCorruptIndex, "buffer %s is missing", KeyIndexData)
	}

	idx.totalRows = uint32(binary.LittleEndian.Uint64(numRowsData))
	idx.cellToOffsets = map[h3.H3Index][]uint32{}
	idx.raw = make([][]byte, idx.totalRows)
	for i := range idx.raw {
		idx.raw[i] = []byte{}
	}
	idx.nullOffsets = nil

	for pos := 0; pos < len(nullOffsetData); pos += 8 {
		offset := binary.LittleEndian.Uint64(nullOffsetData[pos:])
		if offset >= uint64(idx.totalRows) {
			return errors.Wrapf(ErrCorruptIndex, "null offset %d >= total row count %d", offset, idx.totalRows)
		}
		idx.nullOffsets = append(idx.nullOffsets, uint32(offset))
	}

	if err := idx.deserializeIndexData(indexData); err != nil {
		return err
	}

	idx.isBuilt = true
	sigolo.Debugf("Loaded H3 index with cardinality %d and %d rows", idx.Cardinality(), idx.totalRows)
	return nil
}

// LoadFromConfig loads the buffers listed under "index_files" through the
// file manager and restores the index from them.
func (idx *GeoH3Index) LoadFromConfig(ctx context.Context, cfg Config) error {
	if idx.fileManager == nil {
		return errors.Wrap(ErrInvalidConfig, "loading from config requires a file manager")
	}
	indexFiles, err := GetStringList(cfg, KeyIndexFiles)
	if err != nil {
		return err
	}
	set, err := idx.fileManager.LoadIndexToMemory(ctx, indexFiles)
	if err != nil {
		return err
	}
	return idx.Load(set)
}

// Upload serializes the index, hands the buffers to the file manager and
// reports the written blob paths with their sizes.
func (idx *GeoH3Index) Upload(ctx context.Context) (map[string]int64, error) {
	set, err := idx.Serialize()
	if err != nil {
		return nil, err
	}
	if idx.fileManager == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "uploading requires a file manager")
	}
	if err = idx.fileManager.AddFile(ctx, set); err != nil {
		return nil, err
	}
	return idx.fileManager.RemotePathsToFileSize(), nil
}
