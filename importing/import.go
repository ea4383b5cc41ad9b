// Package importing bulk-loads geospatial rows from OSM files and builds an
// H3 index from them: nodes become points, open ways linestrings and closed
// ways polygons.
package importing

import (
	"context"
	"encoding/binary"
	"os"
	"strings"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"

	"gsi/index"
	"gsi/storage"
)

// rowsPerBatch is the number of rows collected into one FieldData batch.
const rowsPerBatch = 4096

// ImportRows scans the given .osm or .osm.pbf file and encodes every object
// with a resolvable location as one WKB row. Way geometries are resolved
// through the node locations seen earlier in the same file.
func ImportRows(ctx context.Context, inputFile string) ([]*storage.FieldData, error) {
	if !strings.HasSuffix(inputFile, ".osm") && !strings.HasSuffix(inputFile, ".pbf") {
		return nil, errors.Errorf("input file %s must be an .osm or .pbf file", inputFile)
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file %s", inputFile)
	}
	defer f.Close()

	var scanner osm.Scanner
	if strings.HasSuffix(inputFile, ".osm") {
		scanner = osmxml.New(ctx, f)
	} else {
		scanner = osmpbf.New(ctx, f, 1)
	}
	defer scanner.Close()

	sigolo.Debugf("Start scanning objects from input file %s", inputFile)
	importStartTime := time.Now()

	nodeLocations := map[osm.NodeID]orb.Point{}
	var batches []*storage.FieldData
	current := newBatch()

	appendRow := func(geom orb.Geometry) error {
		data, err := wkb.Marshal(geom, binary.LittleEndian)
		if err != nil {
			return errors.Wrap(err, "unable to encode geometry as WKB")
		}
		current.Rows = append(current.Rows, data)
		current.Valid = append(current.Valid, true)
		if current.NumRows() == rowsPerBatch {
			batches = append(batches, current)
			current = newBatch()
		}
		return nil
	}

	for scanner.Scan() {
		switch osmObj := scanner.Object().(type) {
		case *osm.Node:
			point := orb.Point{osmObj.Lon, osmObj.Lat}
			nodeLocations[osmObj.ID] = point
			if err = appendRow(point); err != nil {
				return nil, err
			}
		case *osm.Way:
			geom, ok := wayGeometry(osmObj, nodeLocations)
			if !ok {
				sigolo.Tracef("Skipping way %d, not all node locations are known", osmObj.ID)
				continue
			}
			if err = appendRow(geom); err != nil {
				return nil, err
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "unable to scan input file %s", inputFile)
	}

	if current.NumRows() > 0 {
		batches = append(batches, current)
	}

	rowCount := 0
	for _, batch := range batches {
		rowCount += batch.NumRows()
	}
	sigolo.Debugf("Scanned %d rows from OSM data in %s", rowCount, time.Since(importStartTime))
	return batches, nil
}

// ImportAndBuild scans the input file and builds a fresh H3 index at the
// given resolution from its rows.
func ImportAndBuild(ctx context.Context, inputFile string, resolution int, fileManager storage.FileManager) (*index.GeoH3Index, error) {
	sigolo.Infof("Start import of file %s", inputFile)
	importStartTime := time.Now()

	batches, err := ImportRows(ctx, inputFile)
	if err != nil {
		return nil, err
	}

	idx, err := index.NewGeoH3Index(fileManager, resolution)
	if err != nil {
		return nil, err
	}
	if err = idx.BuildWithFieldData(batches); err != nil {
		return nil, err
	}

	sigolo.Infof("Finished import of %d rows in %s", idx.Count(), time.Since(importStartTime))
	return idx, nil
}

func newBatch() *storage.FieldData {
	return &storage.FieldData{DataType: storage.DataTypeGeospatial}
}

// wayGeometry resolves a way into a linestring, or a polygon when the way is
// closed. It fails when a node location is neither in the input nor carried
// on the way node itself.
func wayGeometry(way *osm.Way, nodeLocations map[osm.NodeID]orb.Point) (orb.Geometry, bool) {
	if len(way.Nodes) < 2 {
		return nil, false
	}

	line := make(orb.LineString, 0, len(way.Nodes))
	for _, wayNode := range way.Nodes {
		point, ok := nodeLocations[wayNode.ID]
		if !ok {
			if wayNode.Lon == 0 && wayNode.Lat == 0 {
				return nil, false
			}
			point = orb.Point{wayNode.Lon, wayNode.Lat}
		}
		line = append(line, point)
	}

	if len(line) >= 4 && line[0] == line[len(line)-1] {
		return orb.Polygon{orb.Ring(line)}, true
	}
	return line, true
}
