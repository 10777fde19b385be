package spatial

import "github.com/paulmach/orb"

// TileBoxEntry names one tile's buffered bound for the candidate-neighbor
// scan.
type TileBoxEntry struct {
	Key   string
	Bound orb.Bound
}

// TileBoxIndex is the incrementally maintained bounding-box index over
// tile geometries the tile graph consults before running the exact
// rook predicate. It is a flat slice rebuilt by local splice rather than
// a tree, mirroring the teacher's incremental bbox merge in
// geojson_merge.go's ClusterByProximity — tile counts shrink every
// iteration, so a full index rebuild is never the bottleneck.
type TileBoxIndex struct {
	entries []TileBoxEntry
}

// NewTileBoxIndex builds the index from the initial tile set.
func NewTileBoxIndex(entries []TileBoxEntry) *TileBoxIndex {
	idx := &TileBoxIndex{entries: make([]TileBoxEntry, len(entries))}
	copy(idx.entries, entries)
	return idx
}

// CandidateNeighbors returns every tile key whose buffered bound
// intersects the named tile's, excluding the tile itself. This is a
// coarse pre-filter; geo.IntersectsRook still decides the exact
// predicate.
func (idx *TileBoxIndex) CandidateNeighbors(tileKey string) []string {
	var target orb.Bound
	found := false
	for _, e := range idx.entries {
		if e.Key == tileKey {
			target = e.Bound
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	var out []string
	for _, e := range idx.entries {
		if e.Key == tileKey {
			continue
		}
		if e.Bound.Intersects(target) {
			out = append(out, e.Key)
		}
	}
	return out
}

// Replace removes every entry whose key is in removed and appends added,
// the exact update a tile merge requires: two consumed tiles leave the
// index, the merged tile enters it.
func (idx *TileBoxIndex) Replace(removed []string, added TileBoxEntry) {
	removeSet := make(map[string]struct{}, len(removed))
	for _, k := range removed {
		removeSet[k] = struct{}{}
	}
	kept := idx.entries[:0:0]
	for _, e := range idx.entries {
		if _, gone := removeSet[e.Key]; gone {
			continue
		}
		kept = append(kept, e)
	}
	idx.entries = append(kept, added)
}
