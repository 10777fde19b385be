// Package parcel holds the parcel table: the immutable-after-infill
// per-parcel attributes, stored behind a mutex-guarded struct in the same
// shape as the teacher's vacuum state tracker.
package parcel

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/kwv/parceltile/geo"
	"github.com/kwv/parceltile/tilingerr"
)

// Parcel is one land parcel. LandAreaSqft and AssessedValue are always
// known from input; BuiltAreaSqft is nil when absent from input and
// MarketValueProxy starts nil, and the infiller fills both. CurrentTile is set by
// tilegraph.Init and updated on every merge that absorbs this parcel.
type Parcel struct {
	Key              string
	LandAreaSqft     float64
	BuiltAreaSqft    *float64
	AdjSalePrice     *float64
	AssessedValue    float64
	Geometry         orb.Geometry
	MarketValueProxy *float64
	CurrentTile      string
}

// Row is the flat, pre-validation shape a Reader decodes each input
// record into.
type Row struct {
	Key           string
	LandAreaSqft  float64
	BuiltAreaSqft *float64
	AdjSalePrice  *float64
	AssessedValue float64
	Geometry      orb.Geometry
}

// Table is the single owner of every Parcel. Reads take the read lock;
// the narrow setters used by the infiller and the tile graph each take
// the write lock for the duration of a single field update.
type Table struct {
	mu      sync.RWMutex
	parcels []Parcel
	index   map[string]int
}

// Load validates every row and returns a populated Table, or the first
// validity error encountered.
func Load(rows []Row) (*Table, error) {
	t := &Table{
		parcels: make([]Parcel, 0, len(rows)),
		index:   make(map[string]int, len(rows)),
	}
	for _, r := range rows {
		if r.Key == "" {
			return nil, tilingerr.New(tilingerr.KindSchema, "", fmt.Errorf("parcel: empty key"))
		}
		if _, dup := t.index[r.Key]; dup {
			return nil, tilingerr.New(tilingerr.KindValidity, r.Key, fmt.Errorf("duplicate key"))
		}
		if r.LandAreaSqft <= 0 {
			return nil, tilingerr.New(tilingerr.KindValidity, r.Key, fmt.Errorf("land_area_sqft must be positive, got %v", r.LandAreaSqft))
		}
		if r.AssessedValue < 0 {
			return nil, tilingerr.New(tilingerr.KindValidity, r.Key, fmt.Errorf("assessed_value must not be negative"))
		}
		if r.Geometry == nil {
			return nil, tilingerr.New(tilingerr.KindValidity, r.Key, fmt.Errorf("missing geometry"))
		}
		switch g := r.Geometry.(type) {
		case orb.Polygon:
			if err := geo.ValidatePolygon(g); err != nil {
				return nil, tilingerr.New(tilingerr.KindValidity, r.Key, err)
			}
		case orb.MultiPolygon:
			for _, poly := range g {
				if err := geo.ValidatePolygon(poly); err != nil {
					return nil, tilingerr.New(tilingerr.KindValidity, r.Key, err)
				}
			}
		}
		t.index[r.Key] = len(t.parcels)
		t.parcels = append(t.parcels, Parcel{
			Key:           r.Key,
			LandAreaSqft:  r.LandAreaSqft,
			BuiltAreaSqft: r.BuiltAreaSqft,
			AdjSalePrice:  r.AdjSalePrice,
			AssessedValue: r.AssessedValue,
			Geometry:      r.Geometry,
		})
	}
	return t, nil
}

// Len returns the number of parcels in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.parcels)
}

// All returns every parcel key in load order.
func (t *Table) All() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, len(t.parcels))
	for i, p := range t.parcels {
		keys[i] = p.Key
	}
	return keys
}

// Get returns a copy of the parcel for key.
func (t *Table) Get(key string) (Parcel, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[key]
	if !ok {
		return Parcel{}, false
	}
	return t.parcels[i], true
}

// SetBuiltArea records the infiller's pass-1 result for key.
func (t *Table) SetBuiltArea(key string, v float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[key]
	if !ok {
		return fmt.Errorf("parcel: unknown key %s", key)
	}
	t.parcels[i].BuiltAreaSqft = &v
	return nil
}

// SetMarketValueProxy records the infiller's step-3/pass-2 result for key.
func (t *Table) SetMarketValueProxy(key string, v float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[key]
	if !ok {
		return fmt.Errorf("parcel: unknown key %s", key)
	}
	t.parcels[i].MarketValueProxy = &v
	return nil
}

// SetCurrentTile updates the back-reference tiles use to look up their
// own members without owning parcel pointers.
func (t *Table) SetCurrentTile(key, tileKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[key]
	if !ok {
		return fmt.Errorf("parcel: unknown key %s", key)
	}
	t.parcels[i].CurrentTile = tileKey
	return nil
}
