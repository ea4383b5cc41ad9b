// Package storage provides the persistence collaborators of the index: keyed
// binary sets with shard assembly, raw field-data batches and the file
// manager moving both between memory and blob storage.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// SliceMetaKey is the reserved key describing how oversized buffers were
// split into shards.
const SliceMetaKey = "SLICE_META"

// DefaultShardSize is the maximum size of a single persisted blob. Buffers
// above it are disassembled into numbered shards.
const DefaultShardSize = 16 << 20

// BinarySet is a collection of named binary buffers, the unit of exchange
// between an index and the file manager.
type BinarySet map[string][]byte

func NewBinarySet() BinarySet {
	return BinarySet{}
}

func (s BinarySet) Append(name string, data []byte) {
	s[name] = data
}

func (s BinarySet) GetByName(name string) ([]byte, bool) {
	data, ok := s[name]
	return data, ok
}

type sliceEntry struct {
	Name     string `json:"name"`
	SliceNum int    `json:"slice_num"`
	TotalLen int    `json:"total_len"`
}

type sliceMeta struct {
	Meta []sliceEntry `json:"meta"`
}

func shardKey(name string, i int) string {
	return fmt.Sprintf("%s_%d", name, i)
}

// Disassemble splits every buffer larger than shardSize into numbered shard
// entries and records the split in a SLICE_META entry. Sets without oversized
// buffers are left untouched. Assemble is the exact inverse.
func Disassemble(set BinarySet, shardSize int) error {
	if shardSize <= 0 {
		return errors.Errorf("invalid shard size %d", shardSize)
	}

	var meta sliceMeta
	for name, data := range set {
		if name == SliceMetaKey || len(data) <= shardSize {
			continue
		}

		sliceNum := 0
		for pos := 0; pos < len(data); pos += shardSize {
			end := pos + shardSize
			if end > len(data) {
				end = len(data)
			}
			set.Append(shardKey(name, sliceNum), data[pos:end])
			sliceNum++
		}
		meta.Meta = append(meta.Meta, sliceEntry{Name: name, SliceNum: sliceNum, TotalLen: len(data)})
		delete(set, name)
	}

	if len(meta.Meta) == 0 {
		return nil
	}
	metaData, err := json.Marshal(&meta)
	if err != nil {
		return errors.Wrap(err, "unable to marshal slice meta")
	}
	set.Append(SliceMetaKey, metaData)
	return nil
}

// Assemble reverses Disassemble: it joins all shard entries back into their
// original buffers and removes the SLICE_META entry. A set that was never
// disassembled passes through unchanged.
func Assemble(set BinarySet) error {
	metaData, ok := set.GetByName(SliceMetaKey)
	if !ok {
		return nil
	}

	var meta sliceMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return errors.Wrap(err, "unable to parse slice meta")
	}

	for _, entry := range meta.Meta {
		joined := make([]byte, 0, entry.TotalLen)
		for i := 0; i < entry.SliceNum; i++ {
			shard, ok := set.GetByName(shardKey(entry.Name, i))
			if !ok {
				return errors.Errorf("missing shard %d of %d for buffer %s", i, entry.SliceNum, entry.Name)
			}
			joined = append(joined, shard...)
			delete(set, shardKey(entry.Name, i))
		}
		if len(joined) != entry.TotalLen {
			return errors.Errorf("buffer %s assembled to %d bytes, expected %d", entry.Name, len(joined), entry.TotalLen)
		}
		set.Append(entry.Name, joined)
	}

	delete(set, SliceMetaKey)
	return nil
}
