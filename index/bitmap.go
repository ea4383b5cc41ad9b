package index

import (
	"github.com/RoaringBitmap/roaring"
)

// TargetBitmap is a row-aligned bitmap of fixed length, one bit per row
// offset of the segment the index was built from.
type TargetBitmap struct {
	length uint32
	bits   *roaring.Bitmap
}

func NewTargetBitmap(length uint32) *TargetBitmap {
	return &TargetBitmap{
		length: length,
		bits:   roaring.New(),
	}
}

// Len returns the number of rows the bitmap spans, set or not.
func (b *TargetBitmap) Len() uint32 {
	return b.length
}

func (b *TargetBitmap) Set(offset uint32) {
	if offset < b.length {
		b.bits.Add(offset)
	}
}

func (b *TargetBitmap) Clear(offset uint32) {
	b.bits.Remove(offset)
}

func (b *TargetBitmap) Get(offset uint32) bool {
	return b.bits.Contains(offset)
}

// SetAll sets every bit in [0, Len).
func (b *TargetBitmap) SetAll() {
	b.bits.AddRange(0, uint64(b.length))
}

// TrueCount returns the number of set bits.
func (b *TargetBitmap) TrueCount() uint64 {
	return b.bits.GetCardinality()
}

// ForEachSet visits every set offset in ascending order. Returning false
// stops the iteration.
func (b *TargetBitmap) ForEachSet(visit func(offset uint32) bool) {
	it := b.bits.Iterator()
	for it.HasNext() {
		if !visit(it.Next()) {
			return
		}
	}
}

func (b *TargetBitmap) Equal(other *TargetBitmap) bool {
	return b.length == other.length && b.bits.Equals(other.bits)
}

// ToSlice returns the set offsets in ascending order.
func (b *TargetBitmap) ToSlice() []uint32 {
	return b.bits.ToArray()
}
