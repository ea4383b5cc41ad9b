package storage

import (
	"context"
	"os"
	"path"
	"sort"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
)

// FileManager moves raw column batches and serialized index buffers between
// memory and the backing blob store. It is shared read-only with the
// surrounding persistence layer; an index only writes through AddFile.
type FileManager interface {
	// CacheRawDataToMemory loads the raw column batches stored at the given
	// blob paths.
	CacheRawDataToMemory(ctx context.Context, paths []string) ([]*FieldData, error)

	// LoadIndexToMemory loads previously uploaded index buffers. The returned
	// set still contains the shard layout produced by Disassemble.
	LoadIndexToMemory(ctx context.Context, paths []string) (BinarySet, error)

	// AddFile persists every buffer of the set as one blob per key.
	AddFile(ctx context.Context, set BinarySet) error

	// RemotePathsToFileSize reports the blobs written by AddFile so far.
	RemotePathsToFileSize() map[string]int64
}

// LocalFileManager is a FileManager over a directory on local disk, one file
// per buffer key. It backs the CLI and the tests.
type LocalFileManager struct {
	baseFolder   string
	writtenFiles map[string]int64
}

func NewLocalFileManager(baseFolder string) *LocalFileManager {
	return &LocalFileManager{
		baseFolder:   baseFolder,
		writtenFiles: map[string]int64{},
	}
}

func (m *LocalFileManager) CacheRawDataToMemory(ctx context.Context, paths []string) ([]*FieldData, error) {
	batches := make([]*FieldData, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "raw data loading cancelled")
		}
		batch, err := ReadRawBatch(p)
		if err != nil {
			return nil, err
		}
		sigolo.Tracef("Loaded raw batch %s with %d rows", p, batch.NumRows())
		batches = append(batches, batch)
	}
	return batches, nil
}

func (m *LocalFileManager) LoadIndexToMemory(ctx context.Context, paths []string) (BinarySet, error) {
	set := NewBinarySet()
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "index loading cancelled")
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read index file %s", p)
		}
		set.Append(path.Base(p), data)
	}
	return set, nil
}

func (m *LocalFileManager) AddFile(ctx context.Context, set BinarySet) error {
	err := os.MkdirAll(m.baseFolder, os.ModePerm)
	if err != nil {
		return errors.Wrapf(err, "unable to create index folder %s", m.baseFolder)
	}

	for name, data := range set {
		if err = ctx.Err(); err != nil {
			return errors.Wrap(err, "index upload cancelled")
		}
		filePath := path.Join(m.baseFolder, name)
		err = os.WriteFile(filePath, data, 0666)
		if err != nil {
			return errors.Wrapf(err, "unable to write index file %s", filePath)
		}
		sigolo.Debugf("Wrote index file %s (%d bytes)", filePath, len(data))
		m.writtenFiles[filePath] = int64(len(data))
	}
	return nil
}

func (m *LocalFileManager) RemotePathsToFileSize() map[string]int64 {
	result := make(map[string]int64, len(m.writtenFiles))
	for p, size := range m.writtenFiles {
		result[p] = size
	}
	return result
}

// ListFiles returns all blob paths below the base folder in lexicographic
// order, e.g. to feed a Load with every file of a previous Upload.
func (m *LocalFileManager) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(m.baseFolder)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list index folder %s", m.baseFolder)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, path.Join(m.baseFolder, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
