// Package geo is the geometry kernel: rook-adjacency, union, centroid and
// bound helpers built on top of orb. It is the one place dynamic dispatch
// over concrete geometry shapes happens; every other package only ever
// calls through Kernel.
package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// AreaTolerance bounds the fractional area drift a union's convex-hull
// approximation is allowed before Union reports it in the returned error.
const AreaTolerance = 0.15

// Kernel is the geometry interface every other package depends on. The
// default implementation is orbKernel; tests may substitute a fake.
type Kernel interface {
	IntersectsRook(a, b orb.Geometry, bufferFeet float64) bool
	Union(a, b orb.Geometry) (orb.Geometry, error)
	Centroid(g orb.Geometry) orb.Point
	BufferedBound(g orb.Geometry, bufferFeet float64) orb.Bound
	PointInGeometry(p orb.Point, g orb.Geometry) bool
}

// Orb is the production Kernel, grounded in the conversion and
// convex-hull helpers of geojson_merge.go.
type Orb struct{}

var _ Kernel = Orb{}

// IntersectsRook reports whether a and b share a boundary or a buffered
// overlap with positive measure. Point tangency alone never counts: a
// shared corner with zero-length, zero-area overlap is excluded.
func (Orb) IntersectsRook(a, b orb.Geometry, bufferFeet float64) bool {
	ba := Orb{}.BufferedBound(a, bufferFeet)
	bb := Orb{}.BufferedBound(b, bufferFeet)
	if !ba.Intersects(bb) {
		return false
	}
	ringsA := ringsOf(a)
	ringsB := ringsOf(b)
	if len(ringsA) == 0 || len(ringsB) == 0 {
		return false
	}

	// 1D case: shared boundary segment of positive length.
	if segmentOverlapLength(ringsA, ringsB) > 0 {
		return true
	}

	// 2D case: buffered polygons overlap with positive area.
	bufA := bufferRings(ringsA, bufferFeet)
	bufB := bufferRings(ringsB, bufferFeet)
	for _, ra := range bufA {
		for _, rb := range bufB {
			if polygonsOverlapArea(ra, rb) > 0 {
				return true
			}
		}
	}
	return false
}

// Union returns the convex hull of the combined vertex set of a and b, in
// the same spirit as geojson_merge.go's UnionPolygons: a conservative
// approximation, not an exact polygon union. The returned error carries a
// diagnostic when the hull area diverges from the sum of input areas by
// more than AreaTolerance — callers may still use the geometry, but the
// caller is told the approximation is coarse for this particular pair.
func (Orb) Union(a, b orb.Geometry) (orb.Geometry, error) {
	var pts []orb.Point
	for _, r := range ringsOf(a) {
		pts = append(pts, r...)
	}
	for _, r := range ringsOf(b) {
		pts = append(pts, r...)
	}
	if len(pts) == 0 {
		return nil, errors.New("geo: union of empty geometries")
	}
	hull := convexHull(pts)
	if len(hull) < 3 {
		return nil, errors.New("geo: degenerate union hull")
	}
	poly := orb.Polygon{orb.Ring(hull)}

	hullArea := math.Abs(planar.Area(poly))
	inputArea := math.Abs(areaOf(a)) + math.Abs(areaOf(b))
	if inputArea > 0 {
		drift := math.Abs(hullArea-inputArea) / inputArea
		if drift > AreaTolerance {
			return poly, fmt.Errorf("geo: union hull area drift %.2f exceeds tolerance %.2f", drift, AreaTolerance)
		}
	}
	return poly, nil
}

// Centroid dispatches on the concrete geometry type, mirroring
// geojson_merge.go's geometryCentroid type switch.
func (Orb) Centroid(g orb.Geometry) orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return v
	case orb.Polygon:
		c, _ := planar.CentroidArea(v)
		return c
	case orb.MultiPolygon:
		var sumX, sumY, sumW float64
		for _, poly := range v {
			c, a := planar.CentroidArea(poly)
			w := math.Abs(a)
			if w == 0 {
				w = 1
			}
			sumX += c.X() * w
			sumY += c.Y() * w
			sumW += w
		}
		if sumW == 0 {
			return orb.Point{}
		}
		return orb.Point{sumX / sumW, sumY / sumW}
	default:
		return g.Bound().Center()
	}
}

// BufferedBound returns the geometry's bound padded by bufferFeet on every
// side, feeding the spatial index's candidate-neighbor query.
func (Orb) BufferedBound(g orb.Geometry, bufferFeet float64) orb.Bound {
	b := g.Bound()
	return orb.Bound{
		Min: orb.Point{b.Min.X() - bufferFeet, b.Min.Y() - bufferFeet},
		Max: orb.Point{b.Max.X() + bufferFeet, b.Max.Y() + bufferFeet},
	}
}

// PointInGeometry reports whether p lies within g, using an even-odd ray
// cast against every ring of g (outer rings and holes alike — holes are
// tolerated but not subtracted, since parcel footprints never overlap a
// tile's own holes in this model).
func (Orb) PointInGeometry(p orb.Point, g orb.Geometry) bool {
	for _, r := range ringsOf(g) {
		if pointInRing(p, r) {
			return true
		}
	}
	return false
}

// ValidateRing rejects rings with fewer than 3 distinct vertices or any
// pair of non-adjacent edges that cross.
func ValidateRing(r orb.Ring) error {
	distinct := make(map[orb.Point]struct{}, len(r))
	for _, p := range r {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return errors.New("geo: ring has fewer than 3 distinct vertices")
	}
	n := len(r)
	for i := 0; i < n; i++ {
		a1, a2 := r[i], r[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := r[j], r[(j+1)%n]
			if segmentsShareEdge(a1, a2, b1, b2) {
				continue
			}
			if segmentsIntersect(a1, a2, b1, b2) {
				return fmt.Errorf("geo: ring self-intersects between edges %d and %d", i, j)
			}
		}
	}
	return nil
}

// ValidatePolygon validates every ring of p.
func ValidatePolygon(p orb.Polygon) error {
	for i, r := range p {
		if err := ValidateRing(r); err != nil {
			return fmt.Errorf("geo: polygon ring %d: %w", i, err)
		}
	}
	return nil
}

func ringsOf(g orb.Geometry) []orb.Ring {
	switch v := g.(type) {
	case orb.Polygon:
		return v
	case orb.MultiPolygon:
		var out []orb.Ring
		for _, p := range v {
			out = append(out, p...)
		}
		return out
	default:
		return nil
	}
}

func areaOf(g orb.Geometry) float64 {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.Area(v)
	case orb.MultiPolygon:
		var total float64
		for _, p := range v {
			total += planar.Area(p)
		}
		return total
	default:
		return 0
	}
}

func pointInRing(p orb.Point, r orb.Ring) bool {
	inside := false
	n := len(r)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := r[i], r[j]
		if (pi.Y() > p.Y()) != (pj.Y() > p.Y()) &&
			p.X() < (pj.X()-pi.X())*(p.Y()-pi.Y())/(pj.Y()-pi.Y())+pi.X() {
			inside = !inside
		}
	}
	return inside
}

func segmentsShareEdge(a1, a2, b1, b2 orb.Point) bool {
	return a1 == b1 || a1 == b2 || a2 == b1 || a2 == b2
}

func cross2(o, a, b orb.Point) float64 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}

func onSegment(p, q, r orb.Point) bool {
	return q.X() <= math.Max(p.X(), r.X()) && q.X() >= math.Min(p.X(), r.X()) &&
		q.Y() <= math.Max(p.Y(), r.Y()) && q.Y() >= math.Min(p.Y(), r.Y())
}

func segOrientation(p, q, r orb.Point) int {
	val := cross2(p, q, r)
	switch {
	case val > 0:
		return 1
	case val < 0:
		return 2
	default:
		return 0
	}
}

func segmentsIntersect(p1, q1, p2, q2 orb.Point) bool {
	o1 := segOrientation(p1, q1, p2)
	o2 := segOrientation(p1, q1, q2)
	o3 := segOrientation(p2, q2, p1)
	o4 := segOrientation(p2, q2, q1)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, q1) {
		return true
	}
	if o3 == 0 && onSegment(p2, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(p2, q1, q2) {
		return true
	}
	return false
}

// segmentOverlapLength returns a positive value if any edge of ringsA
// overlaps collinearly with any edge of ringsB (a shared boundary run,
// not merely a shared endpoint).
func segmentOverlapLength(ringsA, ringsB []orb.Ring) float64 {
	for _, ra := range ringsA {
		for _, rb := range ringsB {
			na, nb := len(ra), len(rb)
			for i := 0; i < na; i++ {
				a1, a2 := ra[i], ra[(i+1)%na]
				for j := 0; j < nb; j++ {
					b1, b2 := rb[j], rb[(j+1)%nb]
					if d := collinearOverlapLength(a1, a2, b1, b2); d > 0 {
						return d
					}
				}
			}
		}
	}
	return 0
}

// collinearOverlapLength returns the length of the overlapping run of two
// segments if they are collinear and overlap in more than a single point.
func collinearOverlapLength(a1, a2, b1, b2 orb.Point) float64 {
	const eps = 1e-9
	if math.Abs(cross2(a1, a2, b1)) > eps || math.Abs(cross2(a1, a2, b2)) > eps {
		return 0
	}
	// Project onto the dominant axis of the shared line.
	dx, dy := a2.X()-a1.X(), a2.Y()-a1.Y()
	proj := func(p orb.Point) float64 {
		if math.Abs(dx) >= math.Abs(dy) {
			return p.X()
		}
		return p.Y()
	}
	aLo, aHi := minmax(proj(a1), proj(a2))
	bLo, bHi := minmax(proj(b1), proj(b2))
	lo := math.Max(aLo, bLo)
	hi := math.Min(aHi, bHi)
	if hi-lo <= eps {
		return 0
	}
	return hi - lo
}

func minmax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}

// bufferRings inflates each ring outward by d using the same per-segment
// perpendicular-offset + convex-hull technique as geojson_merge.go's
// BufferLineString, generalized to closed rings.
func bufferRings(rings []orb.Ring, d float64) []orb.Ring {
	if d <= 0 {
		out := make([]orb.Ring, len(rings))
		copy(out, rings)
		return out
	}
	out := make([]orb.Ring, 0, len(rings))
	for _, r := range rings {
		var pts []orb.Point
		n := len(r)
		for i := 0; i < n; i++ {
			p0, p1 := r[i], r[(i+1)%n]
			dx, dy := p1.X()-p0.X(), p1.Y()-p0.Y()
			length := math.Hypot(dx, dy)
			if length == 0 {
				continue
			}
			nx, ny := -dy/length*d, dx/length*d
			pts = append(pts,
				orb.Point{p0.X() + nx, p0.Y() + ny},
				orb.Point{p0.X() - nx, p0.Y() - ny},
				orb.Point{p1.X() + nx, p1.Y() + ny},
				orb.Point{p1.X() - nx, p1.Y() - ny},
			)
		}
		hull := convexHull(pts)
		if len(hull) >= 3 {
			out = append(out, orb.Ring(hull))
		}
	}
	return out
}

// polygonsOverlapArea returns a positive value when the convex hulls of
// two buffered rings overlap with positive area, approximated by testing
// whether either ring has a vertex strictly inside the other. A vertex
// lying exactly on the other ring's boundary (a shared corner or
// T-junction) is excluded from the test — it marks a touching point, not
// an area overlap, and ray casting alone cannot be trusted to classify
// it as outside.
func polygonsOverlapArea(a, b orb.Ring) float64 {
	if !a.Bound().Intersects(b.Bound()) {
		return 0
	}
	for _, p := range a {
		if pointOnRingBoundary(p, b) {
			continue
		}
		if pointInRing(p, b) {
			return 1
		}
	}
	for _, p := range b {
		if pointOnRingBoundary(p, a) {
			continue
		}
		if pointInRing(p, a) {
			return 1
		}
	}
	return 0
}

// pointOnSegment reports whether p lies on the closed segment a-b.
func pointOnSegment(a, p, b orb.Point) bool {
	const eps = 1e-9
	if math.Abs(cross2(a, b, p)) > eps {
		return false
	}
	return onSegment(a, p, b)
}

// pointOnRingBoundary reports whether p lies exactly on any edge of r.
func pointOnRingBoundary(p orb.Point, r orb.Ring) bool {
	n := len(r)
	for i := 0; i < n; i++ {
		if pointOnSegment(r[i], p, r[(i+1)%n]) {
			return true
		}
	}
	return false
}

// convexHull implements Andrew's monotone chain, identical in structure to
// geojson_merge.go's convexHull.
func convexHull(points []orb.Point) []orb.Point {
	if len(points) < 3 {
		result := make([]orb.Point, len(points))
		copy(result, points)
		return result
	}

	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X() != sorted[j].X() {
			return sorted[i].X() < sorted[j].X()
		}
		return sorted[i].Y() < sorted[j].Y()
	})

	cross := func(o, a, b orb.Point) float64 {
		return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
	}

	n := len(sorted)
	hull := make([]orb.Point, 0, 2*n)
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
