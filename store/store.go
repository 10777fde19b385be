// Package store defines the columnar I/O interfaces the driver reads
// parcel and tile tables through, and emits intermediate tile snapshots
// through. The real columnar format is an external collaborator's
// concern (see DESIGN.md); TableFile is a stdlib-encoded stand-in behind
// the same interfaces a production columnar reader/writer would satisfy.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kwv/parceltile/parcel"
	"github.com/kwv/parceltile/tilegraph"
	"github.com/kwv/parceltile/tilingerr"
)

// ParcelReader loads the parcel table input.
type ParcelReader interface {
	ReadParcels(path string) ([]parcel.Row, error)
}

// TileReader loads the initial tile set.
type TileReader interface {
	ReadTiles(path string) ([]tilegraph.TileSeed, error)
}

// IntermediateWriter emits one snapshot of the live tile set per merge
// iteration.
type IntermediateWriter interface {
	WriteIntermediate(dir string, iteration int, tiles []tilegraph.Tile) error
}

// parcelRecord is the on-disk shape of one parcels-file row.
type parcelRecord struct {
	Key           string   `json:"key"`
	BuiltAreaSqft *float64 `json:"built_area_sqft"`
	LandAreaSqft  float64  `json:"land_area_sqft"`
	AdjSalePrice  *float64 `json:"adj_sale_price"`
	AssessedValue float64  `json:"assessed_value"`
	Geometry      geoJSON  `json:"geometry"`
}

// tileRecord is the on-disk shape of one tiles-file row, shared between
// the initial tiles input and every intermediate_tiles_<n> output.
type tileRecord struct {
	Key      string   `json:"key"`
	Geometry geoJSON  `json:"geometry"`
	RSquared *float64 `json:"r_squared"`
}

// TableFile is the concrete line-delimited-JSON implementation of every
// store interface: one JSON object per line, matching the column sets
// in the external interface section exactly.
type TableFile struct{}

var (
	_ ParcelReader       = TableFile{}
	_ TileReader         = TableFile{}
	_ IntermediateWriter = TableFile{}
)

// ReadParcels decodes path's parcel rows.
func (TableFile) ReadParcels(path string) ([]parcel.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tilingerr.New(tilingerr.KindIO, path, err)
	}
	defer f.Close()

	var rows []parcel.Row
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec parcelRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, tilingerr.New(tilingerr.KindSchema, fmt.Sprintf("%s:%d", path, lineNum), err)
		}
		geom, err := decodeGeometry(rec.Geometry)
		if err != nil {
			return nil, tilingerr.New(tilingerr.KindSchema, fmt.Sprintf("%s:%d", path, lineNum), err)
		}
		rows = append(rows, parcel.Row{
			Key:           rec.Key,
			BuiltAreaSqft: rec.BuiltAreaSqft,
			LandAreaSqft:  rec.LandAreaSqft,
			AdjSalePrice:  rec.AdjSalePrice,
			AssessedValue: rec.AssessedValue,
			Geometry:      geom,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, tilingerr.New(tilingerr.KindIO, path, err)
	}
	return rows, nil
}

// ReadTiles decodes path's initial tile rows.
func (TableFile) ReadTiles(path string) ([]tilegraph.TileSeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tilingerr.New(tilingerr.KindIO, path, err)
	}
	defer f.Close()

	var seeds []tilegraph.TileSeed
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec tileRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, tilingerr.New(tilingerr.KindSchema, fmt.Sprintf("%s:%d", path, lineNum), err)
		}
		geom, err := decodeGeometry(rec.Geometry)
		if err != nil {
			return nil, tilingerr.New(tilingerr.KindSchema, fmt.Sprintf("%s:%d", path, lineNum), err)
		}
		seeds = append(seeds, tilegraph.TileSeed{Key: rec.Key, Geometry: geom})
	}
	if err := scanner.Err(); err != nil {
		return nil, tilingerr.New(tilingerr.KindIO, path, err)
	}
	return seeds, nil
}

// WriteIntermediate writes intermediate_tiles_<iteration>.parquet to dir.
// The extension preserves the external contract named in the interface
// this type stands in for; the encoding itself is this package's own
// concern.
func (TableFile) WriteIntermediate(dir string, iteration int, tiles []tilegraph.Tile) error {
	path := filepath.Join(dir, fmt.Sprintf("intermediate_tiles_%d.parquet", iteration))
	f, err := os.Create(path)
	if err != nil {
		return tilingerr.New(tilingerr.KindIO, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, t := range tiles {
		geom, err := encodeGeometry(t.Geometry)
		if err != nil {
			return fmt.Errorf("store: encoding tile %s geometry: %w", t.Key, err)
		}
		line, err := json.Marshal(tileRecord{Key: t.Key, Geometry: geom, RSquared: t.RSquared})
		if err != nil {
			return fmt.Errorf("store: encoding tile %s: %w", t.Key, err)
		}
		if _, err := w.Write(line); err != nil {
			return tilingerr.New(tilingerr.KindIO, path, fmt.Errorf("store: writing intermediate file: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return tilingerr.New(tilingerr.KindIO, path, fmt.Errorf("store: writing intermediate file: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return tilingerr.New(tilingerr.KindIO, path, fmt.Errorf("store: flushing intermediate file: %w", err))
	}
	return nil
}
