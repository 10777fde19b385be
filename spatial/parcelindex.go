// Package spatial provides the two spatial structures the infiller and
// tile graph need: a k-nearest-neighbor index over parcel centroids, and
// an incrementally maintained bounding-box index over tile geometries.
package spatial

import (
	"sort"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// point is the kdtree.Comparable implementation over a 2D parcel
// centroid, following the Point3D pattern but dropping the Z axis.
type point struct {
	Key string
	X   float64
	Y   float64
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("spatial: illegal dimension")
	}
}

func (p point) Dims() int { return 2 }

func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Less(i, j int) bool                     { return p[i].Key < p[j].Key }
func (p points) Swap(i, j int)                          { p[i], p[j] = p[j], p[i] }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{points: p, Dim: d}, kdtree.MedianOfRandoms(plane{points: p, Dim: d}, 100))
}

// plane implements sort.Interface and kdtree.SortSlicer over a single
// dimension, mirroring the kriging.go pointPlane helper.
type plane struct {
	points
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.points[i].X < p.points[j].X
	case 1:
		return p.points[i].Y < p.points[j].Y
	default:
		panic("spatial: illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], Dim: p.Dim}
}

// ParcelIndex answers k-nearest-neighbor queries over parcel centroids.
type ParcelIndex struct {
	tree *kdtree.Tree
	byID map[string]point
	size int
}

// Centroid names a parcel's key alongside its centroid, the input shape
// NewParcelIndex expects.
type Centroid struct {
	Key string
	P   orb.Point
}

// NewParcelIndex builds a balanced tree over the given centroids.
func NewParcelIndex(centroids []Centroid) *ParcelIndex {
	pts := make(points, len(centroids))
	byID := make(map[string]point, len(centroids))
	for i, c := range centroids {
		pt := point{Key: c.Key, X: c.P.X(), Y: c.P.Y()}
		pts[i] = pt
		byID[c.Key] = pt
	}
	return &ParcelIndex{
		tree: kdtree.New(pts, true),
		byID: byID,
		size: len(pts),
	}
}

type kNearestCandidate struct {
	key  string
	dist float64
}

// KNearest returns up to k parcel keys nearest to the centroid of the
// parcel named key for which predicate returns true, excluding key
// itself, sorted by increasing
// distance and ties broken by ascending key. The search window starts
// small but grows (doubling) and re-queries the tree whenever fewer than
// k candidates pass the predicate, up to the full size of the tree — a
// fixed overfetch window would silently under-report donors whenever
// more than a handful of the globally nearest points fail the predicate
// (e.g. a cluster of adjacent parcels all missing the same attribute).
func (idx *ParcelIndex) KNearest(key string, k int, predicate func(key string) bool) []string {
	origin, ok := idx.byID[key]
	if !ok {
		return nil
	}

	window := k + 8
	var candidates []kNearestCandidate
	for {
		if window > idx.size {
			window = idx.size
		}
		keeper := kdtree.NewNKeeper(window)
		idx.tree.NearestSet(keeper, origin)

		candidates = candidates[:0]
		for _, item := range keeper.Heap {
			if item.Comparable == nil {
				continue
			}
			p := item.Comparable.(point)
			if p.Key == key {
				continue
			}
			if predicate != nil && !predicate(p.Key) {
				continue
			}
			candidates = append(candidates, kNearestCandidate{key: p.Key, dist: item.Dist})
		}

		if len(candidates) >= k || window >= idx.size {
			break
		}
		window *= 2
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].key < candidates[j].key
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.key
	}
	return out
}
