package storage

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DataType identifies the element type of a column batch.
type DataType uint8

const (
	DataTypeUnknown DataType = iota
	DataTypeGeospatial
)

func (t DataType) String() string {
	if t == DataTypeGeospatial {
		return "geospatial"
	}
	return "unknown"
}

// FieldData is one batch of raw column values as delivered by the segment
// ingestion path. Rows holds the encoded value per row (WKB for geospatial
// columns); a nil Valid slice means every row is valid.
type FieldData struct {
	DataType DataType
	Rows     [][]byte
	Valid    []bool
}

func (f *FieldData) NumRows() int {
	return len(f.Rows)
}

func (f *FieldData) IsValid(i int) bool {
	return f.Valid == nil || f.Valid[i]
}

// Row returns the raw bytes of row i, or nil for invalid rows.
func (f *FieldData) Row(i int) []byte {
	if !f.IsValid(i) {
		return nil
	}
	return f.Rows[i]
}

// The raw batch blob layout, all integers little-endian:
//
//	dataType  u8
//	numRows   u32
//	per row:  valid u8, size u32, size bytes of payload
//
// Invalid rows are written with size 0.

// WriteRawBatch writes a batch to the given path in the raw blob layout.
func WriteRawBatch(path string, batch *FieldData) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create raw batch file %s", path)
	}
	defer f.Close()

	var scratch [5]byte
	scratch[0] = byte(batch.DataType)
	binary.LittleEndian.PutUint32(scratch[1:], uint32(batch.NumRows()))
	if _, err = f.Write(scratch[:]); err != nil {
		return errors.Wrapf(err, "unable to write raw batch header to %s", path)
	}

	var rowHead [5]byte
	for i := 0; i < batch.NumRows(); i++ {
		row := batch.Row(i)
		if batch.IsValid(i) {
			rowHead[0] = 1
		} else {
			rowHead[0] = 0
			row = nil
		}
		binary.LittleEndian.PutUint32(rowHead[1:], uint32(len(row)))
		if _, err = f.Write(rowHead[:]); err != nil {
			return errors.Wrapf(err, "unable to write row %d header to %s", i, path)
		}
		if len(row) > 0 {
			if _, err = f.Write(row); err != nil {
				return errors.Wrapf(err, "unable to write row %d payload to %s", i, path)
			}
		}
	}
	return nil
}

// ReadRawBatch reads a batch written by WriteRawBatch.
func ReadRawBatch(path string) (*FieldData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read raw batch file %s", path)
	}
	return decodeRawBatch(path, data)
}

func decodeRawBatch(path string, data []byte) (*FieldData, error) {
	if len(data) < 5 {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "raw batch file %s truncated at header", path)
	}
	batch := &FieldData{DataType: DataType(data[0])}
	numRows := int(binary.LittleEndian.Uint32(data[1:]))
	pos := 5

	batch.Rows = make([][]byte, 0, numRows)
	batch.Valid = make([]bool, 0, numRows)
	for i := 0; i < numRows; i++ {
		if len(data)-pos < 5 {
			return nil, errors.Wrapf(io.ErrUnexpectedEOF, "raw batch file %s truncated at row %d", path, i)
		}
		valid := data[pos] == 1
		size := int(binary.LittleEndian.Uint32(data[pos+1:]))
		pos += 5
		if len(data)-pos < size {
			return nil, errors.Wrapf(io.ErrUnexpectedEOF, "raw batch file %s truncated in row %d payload", path, i)
		}
		row := make([]byte, size)
		copy(row, data[pos:pos+size])
		pos += size
		batch.Rows = append(batch.Rows, row)
		batch.Valid = append(batch.Valid, valid)
	}
	return batch, nil
}
