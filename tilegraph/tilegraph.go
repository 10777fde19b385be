// Package tilegraph owns the tiles and the rook-adjacency relation
// between them. It never scores an edge — that belongs to the registry
// package — it only ever answers "who is adjacent to whom" and performs
// the single mutating operation, Merge.
package tilegraph

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/kwv/parceltile/geo"
	"github.com/kwv/parceltile/parcel"
	"github.com/kwv/parceltile/spatial"
)

// Tile is one node of the graph. RSquared is nil until the tile is
// created by a merge.
type Tile struct {
	Key        string
	Geometry   orb.Geometry
	RSquared   *float64
	Members    map[string]struct{}
	SalesCount int
}

// TileSeed is the pre-init shape a Reader decodes each initial tile into.
type TileSeed struct {
	Key      string
	Geometry orb.Geometry
}

// Graph is the single owner of tiles and the adjacency relation. Tile
// lookups from edges and parcels are by key, never by pointer, per the
// cyclic-reference design note this package follows.
type Graph struct {
	kernel     geo.Kernel
	bufferFeet float64
	parcels    *parcel.Table

	tiles     map[string]*Tile
	adjacency map[string]map[string]struct{}
	boxIndex  *spatial.TileBoxIndex
	counter   int
}

// New constructs an empty graph; call Init before using it.
func New(kernel geo.Kernel, bufferFeet float64) *Graph {
	return &Graph{
		kernel:     kernel,
		bufferFeet: bufferFeet,
		tiles:      make(map[string]*Tile),
		adjacency:  make(map[string]map[string]struct{}),
	}
}

// Init assigns every parcel to exactly one tile by point-in-polygon
// against its centroid (ties broken to the lexicographically smaller
// tile key), then discovers the initial adjacency by running the
// bounding-box candidate scan and confirming each candidate with the
// rook predicate.
func (g *Graph) Init(seeds []TileSeed, parcels *parcel.Table) error {
	g.parcels = parcels
	g.tiles = make(map[string]*Tile, len(seeds))
	g.adjacency = make(map[string]map[string]struct{}, len(seeds))

	sortedSeeds := make([]TileSeed, len(seeds))
	copy(sortedSeeds, seeds)
	sort.Slice(sortedSeeds, func(i, j int) bool { return sortedSeeds[i].Key < sortedSeeds[j].Key })

	for _, s := range sortedSeeds {
		if _, dup := g.tiles[s.Key]; dup {
			return fmt.Errorf("tilegraph: duplicate tile key %s", s.Key)
		}
		g.tiles[s.Key] = &Tile{Key: s.Key, Geometry: s.Geometry, Members: make(map[string]struct{})}
		g.adjacency[s.Key] = make(map[string]struct{})
	}

	for _, key := range parcels.All() {
		p, ok := parcels.Get(key)
		if !ok {
			continue
		}
		centroid := g.kernel.Centroid(p.Geometry)
		var owner string
		for _, s := range sortedSeeds {
			if g.kernel.PointInGeometry(centroid, s.Geometry) {
				owner = s.Key
				break // sortedSeeds is key-ascending: first hit is lexicographically smallest
			}
		}
		if owner == "" {
			return fmt.Errorf("tilegraph: parcel %s centroid does not fall within any tile", key)
		}
		g.tiles[owner].Members[key] = struct{}{}
		if err := parcels.SetCurrentTile(key, owner); err != nil {
			return err
		}
	}

	for _, t := range g.tiles {
		t.SalesCount = g.countSales(t.Members)
	}

	entries := make([]spatial.TileBoxEntry, 0, len(g.tiles))
	for _, s := range sortedSeeds {
		entries = append(entries, spatial.TileBoxEntry{Key: s.Key, Bound: g.kernel.BufferedBound(s.Geometry, g.bufferFeet)})
	}
	g.boxIndex = spatial.NewTileBoxIndex(entries)

	for _, s := range sortedSeeds {
		for _, candidate := range g.boxIndex.CandidateNeighbors(s.Key) {
			if candidate <= s.Key {
				continue // each unordered pair is confirmed once
			}
			if g.kernel.IntersectsRook(g.tiles[s.Key].Geometry, g.tiles[candidate].Geometry, g.bufferFeet) {
				g.link(s.Key, candidate)
			}
		}
	}
	return nil
}

func (g *Graph) countSales(members map[string]struct{}) int {
	count := 0
	for key := range members {
		p, ok := g.parcels.Get(key)
		if ok && p.AdjSalePrice != nil {
			count++
		}
	}
	return count
}

func (g *Graph) link(a, b string) {
	g.adjacency[a][b] = struct{}{}
	g.adjacency[b][a] = struct{}{}
}

func (g *Graph) unlink(a, b string) {
	delete(g.adjacency[a], b)
	delete(g.adjacency[b], a)
}

// Neighbors returns the sorted adjacent tile keys of tileKey.
func (g *Graph) Neighbors(tileKey string) []string {
	out := make([]string, 0, len(g.adjacency[tileKey]))
	for n := range g.adjacency[tileKey] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Edges returns every edge in the graph as a sorted-pair slice, sorted
// deterministically by (a, b).
func (g *Graph) Edges() [][2]string {
	var edges [][2]string
	for a, neighbors := range g.adjacency {
		for b := range neighbors {
			if a < b {
				edges = append(edges, [2]string{a, b})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// TileCount returns the number of live tiles.
func (g *Graph) TileCount() int { return len(g.tiles) }

// Get returns a copy of the tile's public shape for the given key.
func (g *Graph) Get(key string) (Tile, bool) {
	t, ok := g.tiles[key]
	if !ok {
		return Tile{}, false
	}
	return *t, true
}

// Tiles returns a read-only snapshot of every live tile, for emission.
func (g *Graph) Tiles() []Tile {
	out := make([]Tile, 0, len(g.tiles))
	for _, t := range g.tiles {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// MemberParcels returns the parcels belonging to the union of tiles a and
// b's member sets — the region the registry scores a prospective join
// over.
func (g *Graph) MemberParcels(a, b string) []parcel.Parcel {
	ta, okA := g.tiles[a]
	tb, okB := g.tiles[b]
	if !okA || !okB {
		return nil
	}
	out := make([]parcel.Parcel, 0, len(ta.Members)+len(tb.Members))
	for key := range ta.Members {
		if p, ok := g.parcels.Get(key); ok {
			out = append(out, p)
		}
	}
	for key := range tb.Members {
		if p, ok := g.parcels.Get(key); ok {
			out = append(out, p)
		}
	}
	return out
}

// Merge consumes tiles a and b, creating a new tile with r2 recorded as
// its r_squared. It returns the new tile's key and the sorted list of
// counterpart tile keys whose edge to the new tile must be marked stale
// (the union of a's and b's former neighbors, excluding a and b
// themselves, deduplicated).
func (g *Graph) Merge(a, b string, r2 float64) (string, []string, error) {
	ta, okA := g.tiles[a]
	tb, okB := g.tiles[b]
	if !okA || !okB {
		return "", nil, fmt.Errorf("tilegraph: merge of unknown tile pair (%s, %s)", a, b)
	}

	unionGeom, err := g.kernel.Union(ta.Geometry, tb.Geometry)
	if err != nil {
		return "", nil, fmt.Errorf("tilegraph: union geometry for merge (%s, %s): %w", a, b, err)
	}

	g.counter++
	newKey := fmt.Sprintf("tile_%06d", g.counter)

	members := make(map[string]struct{}, len(ta.Members)+len(tb.Members))
	for key := range ta.Members {
		members[key] = struct{}{}
	}
	for key := range tb.Members {
		members[key] = struct{}{}
	}

	counterpartSet := make(map[string]struct{})
	for n := range g.adjacency[a] {
		if n != a && n != b {
			counterpartSet[n] = struct{}{}
		}
	}
	for n := range g.adjacency[b] {
		if n != a && n != b {
			counterpartSet[n] = struct{}{}
		}
	}

	newTile := &Tile{
		Key:        newKey,
		Geometry:   unionGeom,
		RSquared:   float64Ptr(r2),
		Members:    members,
		SalesCount: g.countSales(members),
	}

	for key := range members {
		if err := g.parcels.SetCurrentTile(key, newKey); err != nil {
			return "", nil, err
		}
	}

	delete(g.tiles, a)
	delete(g.tiles, b)
	delete(g.adjacency, a)
	delete(g.adjacency, b)
	for n := range counterpartSet {
		g.unlink(a, n)
		g.unlink(b, n)
	}

	g.tiles[newKey] = newTile
	g.adjacency[newKey] = make(map[string]struct{})
	counterparts := make([]string, 0, len(counterpartSet))
	for n := range counterpartSet {
		counterparts = append(counterparts, n)
		g.link(newKey, n)
	}
	sort.Strings(counterparts)

	g.boxIndex.Replace([]string{a, b}, spatial.TileBoxEntry{
		Key:   newKey,
		Bound: g.kernel.BufferedBound(unionGeom, g.bufferFeet),
	})

	return newKey, counterparts, nil
}

func float64Ptr(v float64) *float64 { return &v }
