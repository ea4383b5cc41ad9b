package storage

import (
	"context"
	"os"
	"path"
	"testing"

	"gsi/util"
)

func TestRawBatch_roundTrip(t *testing.T) {
	batchPath := path.Join(t.TempDir(), "batch-0")
	batch := &FieldData{
		DataType: DataTypeGeospatial,
		Rows:     [][]byte{{0x01, 0x02}, {}, {0x03}},
		Valid:    []bool{true, false, true},
	}

	util.AssertNil(t, WriteRawBatch(batchPath, batch))

	loaded, err := ReadRawBatch(batchPath)
	util.AssertNil(t, err)
	util.AssertEqual(t, DataTypeGeospatial, loaded.DataType)
	util.AssertEqual(t, 3, loaded.NumRows())
	util.AssertEqual(t, []byte{0x01, 0x02}, loaded.Row(0))
	util.AssertFalse(t, loaded.IsValid(1))
	util.AssertNil(t, loaded.Row(1))
	util.AssertEqual(t, []byte{0x03}, loaded.Row(2))
}

func TestReadRawBatch_truncatedFile(t *testing.T) {
	batchPath := path.Join(t.TempDir(), "batch-0")
	batch := &FieldData{
		DataType: DataTypeGeospatial,
		Rows:     [][]byte{{0x01, 0x02, 0x03}},
	}
	util.AssertNil(t, WriteRawBatch(batchPath, batch))

	data, err := os.ReadFile(batchPath)
	util.AssertNil(t, err)
	_, err = decodeRawBatch(batchPath, data[:len(data)-1])
	util.AssertNotNil(t, err)
}

func TestFieldData_nilValidMeansAllValid(t *testing.T) {
	batch := &FieldData{
		DataType: DataTypeGeospatial,
		Rows:     [][]byte{{0x01}},
	}

	util.AssertTrue(t, batch.IsValid(0))
	util.AssertEqual(t, []byte{0x01}, batch.Row(0))
}

func TestLocalFileManager_uploadAndLoad(t *testing.T) {
	ctx := context.Background()
	manager := NewLocalFileManager(path.Join(t.TempDir(), "index"))

	set := NewBinarySet()
	set.Append("INDEX_DATA", []byte{0x01, 0x02, 0x03})
	set.Append("INDEX_NUM_ROWS", []byte{0x05})
	util.AssertNil(t, manager.AddFile(ctx, set))

	remotePaths := manager.RemotePathsToFileSize()
	util.AssertEqual(t, 2, len(remotePaths))

	files, err := manager.ListFiles()
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(files))

	loaded, err := manager.LoadIndexToMemory(ctx, files)
	util.AssertNil(t, err)
	data, ok := loaded.GetByName("INDEX_DATA")
	util.AssertTrue(t, ok)
	util.AssertEqual(t, []byte{0x01, 0x02, 0x03}, data)
	numRows, ok := loaded.GetByName("INDEX_NUM_ROWS")
	util.AssertTrue(t, ok)
	util.AssertEqual(t, []byte{0x05}, numRows)
}

func TestLocalFileManager_cacheRawData(t *testing.T) {
	ctx := context.Background()
	folder := t.TempDir()
	manager := NewLocalFileManager(folder)

	batchPath := path.Join(folder, "insert-0")
	batch := &FieldData{
		DataType: DataTypeGeospatial,
		Rows:     [][]byte{{0x0A}, {0x0B}},
	}
	util.AssertNil(t, WriteRawBatch(batchPath, batch))

	batches, err := manager.CacheRawDataToMemory(ctx, []string{batchPath})
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(batches))
	util.AssertEqual(t, 2, batches[0].NumRows())
	util.AssertEqual(t, []byte{0x0A}, batches[0].Row(0))
}

func TestLocalFileManager_cancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	manager := NewLocalFileManager(t.TempDir())

	_, err := manager.LoadIndexToMemory(ctx, []string{"some-file"})
	util.AssertNotNil(t, err)
}
