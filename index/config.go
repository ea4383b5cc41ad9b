package index

import (
	"github.com/pkg/errors"

	"gsi/storage"
)

// Config keys understood by the H3 index.
const (
	KeyIndexType   = "index_type"
	KeyResolution  = "resolution"
	KeyInsertFiles = "insert_files"
	KeyIndexFiles  = "index_files"
)

// DefaultResolution is the maximum H3 resolution used when the config does
// not specify one.
const DefaultResolution = 9

// Config is the typed key/value map handed to builds and loads.
type Config map[string]any

// GetStringList reads a list-of-paths entry, accepting both []string and the
// []any a JSON decoder produces.
func GetStringList(cfg Config, key string) ([]string, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "config key %s is missing", key)
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidConfig, "config key %s contains a non-string entry %v", key, item)
			}
			result = append(result, s)
		}
		return result, nil
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "config key %s has unsupported type %T", key, raw)
}

// GetResolution reads the resolution entry, falling back to
// DefaultResolution when absent.
func GetResolution(cfg Config) (int, error) {
	raw, ok := cfg[KeyResolution]
	if !ok {
		return DefaultResolution, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, errors.Wrapf(ErrInvalidConfig, "config key %s has unsupported type %T", KeyResolution, raw)
}

// CheckTrainParams validates an index build request before it is scheduled:
// the index type must be H3, the column geospatial and the resolution within
// the H3 range.
func CheckTrainParams(cfg Config, fieldType storage.DataType) error {
	if fieldType != storage.DataTypeGeospatial {
		return errors.Wrapf(ErrInvalidConfig, "H3 index is only supported on geospatial fields, got %s", fieldType)
	}
	if indexType, ok := cfg[KeyIndexType]; ok && indexType != IndexTypeH3 {
		return errors.Wrapf(ErrInvalidConfig, "unexpected index type %v", indexType)
	}
	resolution, err := GetResolution(cfg)
	if err != nil {
		return err
	}
	if resolution < 0 || resolution > 15 {
		return errors.Wrapf(ErrInvalidConfig, "resolution %d outside the valid range [0, 15]", resolution)
	}
	return nil
}
