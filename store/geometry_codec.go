package store

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// geoJSON is the on-disk geometry shape: a GeoJSON-style {type,
// coordinates} envelope, the same coordinate-array convention
// geojson_merge.go converts to/from orb types.
type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func encodeGeometry(g orb.Geometry) (geoJSON, error) {
	switch v := g.(type) {
	case orb.Point:
		coords, err := json.Marshal([2]float64{v.X(), v.Y()})
		return geoJSON{Type: "Point", Coordinates: coords}, err
	case orb.Polygon:
		coords, err := json.Marshal(polygonCoords(v))
		return geoJSON{Type: "Polygon", Coordinates: coords}, err
	case orb.MultiPolygon:
		all := make([][][][2]float64, len(v))
		for i, poly := range v {
			all[i] = polygonCoords(poly)
		}
		coords, err := json.Marshal(all)
		return geoJSON{Type: "MultiPolygon", Coordinates: coords}, err
	default:
		return geoJSON{}, fmt.Errorf("store: unsupported geometry type %T", g)
	}
}

func polygonCoords(p orb.Polygon) [][][2]float64 {
	rings := make([][][2]float64, len(p))
	for i, r := range p {
		pts := make([][2]float64, len(r))
		for j, pt := range r {
			pts[j] = [2]float64{pt.X(), pt.Y()}
		}
		rings[i] = pts
	}
	return rings
}

func decodeGeometry(g geoJSON) (orb.Geometry, error) {
	switch g.Type {
	case "Point":
		var c [2]float64
		if err := json.Unmarshal(g.Coordinates, &c); err != nil {
			return nil, fmt.Errorf("store: decoding Point coordinates: %w", err)
		}
		return orb.Point{c[0], c[1]}, nil
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("store: decoding Polygon coordinates: %w", err)
		}
		return ringsToPolygon(rings), nil
	case "MultiPolygon":
		var polys [][][][2]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("store: decoding MultiPolygon coordinates: %w", err)
		}
		mp := make(orb.MultiPolygon, len(polys))
		for i, rings := range polys {
			mp[i] = ringsToPolygon(rings)
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("store: unsupported geometry type %q", g.Type)
	}
}

func ringsToPolygon(rings [][][2]float64) orb.Polygon {
	poly := make(orb.Polygon, len(rings))
	for i, ring := range rings {
		r := make(orb.Ring, len(ring))
		for j, c := range ring {
			r[j] = orb.Point{c[0], c[1]}
		}
		poly[i] = r
	}
	return poly
}
