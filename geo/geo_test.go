package geo

import (
	"testing"

	"github.com/paulmach/orb"
)

func square(x0, y0, size float64) orb.Polygon {
	r := orb.Ring{
		{x0, y0},
		{x0 + size, y0},
		{x0 + size, y0 + size},
		{x0, y0 + size},
		{x0, y0},
	}
	return orb.Polygon{r}
}

func TestIntersectsRookSharedEdge(t *testing.T) {
	a := square(0, 0, 10)
	b := square(10, 0, 10)
	k := Orb{}
	if !k.IntersectsRook(a, b, 1) {
		t.Fatalf("expected adjacent squares sharing an edge to be rook-adjacent")
	}
}

func TestIntersectsRookCornerOnlyExcluded(t *testing.T) {
	a := square(0, 0, 10)
	b := square(10, 10, 10)
	k := Orb{}
	if k.IntersectsRook(a, b, 0) {
		t.Fatalf("expected corner-touching squares with zero buffer to be excluded")
	}
}

func TestIntersectsRookBufferedGapCloses(t *testing.T) {
	a := square(0, 0, 10)
	b := square(10.5, 0, 10) // a 0.5 unit gap
	k := Orb{}
	if k.IntersectsRook(a, b, 0) {
		t.Fatalf("expected a gap with zero buffer to not be adjacent")
	}
	if !k.IntersectsRook(a, b, 1) {
		t.Fatalf("expected the same gap to close under a buffer larger than the gap")
	}
}

func TestIntersectsRookFarApart(t *testing.T) {
	a := square(0, 0, 10)
	b := square(1000, 1000, 10)
	k := Orb{}
	if k.IntersectsRook(a, b, 30) {
		t.Fatalf("expected distant squares to never be adjacent")
	}
}

func TestUnionAreaWithinTolerance(t *testing.T) {
	a := square(0, 0, 10)
	b := square(10, 0, 10)
	k := Orb{}
	g, err := k.Union(a, b)
	if err != nil {
		t.Fatalf("unexpected union error: %v", err)
	}
	if g.Bound().Min.X() != 0 || g.Bound().Max.X() != 20 {
		t.Fatalf("unexpected union bound: %+v", g.Bound())
	}
}

func TestCentroidOfSquareIsCenter(t *testing.T) {
	a := square(0, 0, 10)
	k := Orb{}
	c := k.Centroid(a)
	if c.X() != 5 || c.Y() != 5 {
		t.Fatalf("expected centroid (5,5), got (%v,%v)", c.X(), c.Y())
	}
}

func TestPointInGeometry(t *testing.T) {
	a := square(0, 0, 10)
	k := Orb{}
	if !k.PointInGeometry(orb.Point{5, 5}, a) {
		t.Fatalf("expected (5,5) to be inside the square")
	}
	if k.PointInGeometry(orb.Point{50, 50}, a) {
		t.Fatalf("expected (50,50) to be outside the square")
	}
}

func TestValidateRingRejectsSelfIntersection(t *testing.T) {
	bowtie := orb.Ring{{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0}}
	if err := ValidateRing(bowtie); err == nil {
		t.Fatalf("expected bowtie ring to fail validation")
	}
}

func TestValidateRingAcceptsSquare(t *testing.T) {
	if err := ValidateRing(square(0, 0, 10)[0]); err != nil {
		t.Fatalf("unexpected error validating a plain square: %v", err)
	}
}
