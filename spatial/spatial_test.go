package spatial

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
)

func TestKNearestOrdersByDistance(t *testing.T) {
	idx := NewParcelIndex([]Centroid{
		{Key: "origin", P: orb.Point{0, 0}},
		{Key: "near", P: orb.Point{1, 0}},
		{Key: "mid", P: orb.Point{5, 0}},
		{Key: "far", P: orb.Point{50, 0}},
	})
	got := idx.KNearest("origin", 2, nil)
	if len(got) != 2 || got[0] != "near" || got[1] != "mid" {
		t.Fatalf("expected [near mid], got %v", got)
	}
}

func TestKNearestAppliesPredicate(t *testing.T) {
	idx := NewParcelIndex([]Centroid{
		{Key: "origin", P: orb.Point{0, 0}},
		{Key: "near", P: orb.Point{1, 0}},
		{Key: "mid", P: orb.Point{5, 0}},
	})
	got := idx.KNearest("origin", 2, func(key string) bool { return key != "near" })
	if len(got) != 1 || got[0] != "mid" {
		t.Fatalf("expected [mid], got %v", got)
	}
}

func TestKNearestGrowsWindowPastInitialOverfetch(t *testing.T) {
	// 12 centroids closer than "donor" all fail the predicate; a fixed
	// k+8 overfetch window would exhaust its budget on them and never
	// reach the one eligible donor sitting just beyond it.
	centroids := []Centroid{{Key: "origin", P: orb.Point{0, 0}}}
	for i := 0; i < 12; i++ {
		centroids = append(centroids, Centroid{Key: fmt.Sprintf("ineligible%d", i), P: orb.Point{float64(i + 1), 0}})
	}
	centroids = append(centroids, Centroid{Key: "donor", P: orb.Point{100, 0}})

	idx := NewParcelIndex(centroids)
	got := idx.KNearest("origin", 1, func(key string) bool { return key == "donor" })
	if len(got) != 1 || got[0] != "donor" {
		t.Fatalf("expected [donor], got %v", got)
	}
}

func TestKNearestReturnsFewerThanKWhenPredicateExhaustsTree(t *testing.T) {
	idx := NewParcelIndex([]Centroid{
		{Key: "origin", P: orb.Point{0, 0}},
		{Key: "n1", P: orb.Point{1, 0}},
		{Key: "n2", P: orb.Point{2, 0}},
	})
	got := idx.KNearest("origin", 3, func(key string) bool { return key == "n1" })
	if len(got) != 1 || got[0] != "n1" {
		t.Fatalf("expected [n1], got %v", got)
	}
}

func TestTileBoxIndexCandidateNeighbors(t *testing.T) {
	idx := NewTileBoxIndex([]TileBoxEntry{
		{Key: "a", Bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}},
		{Key: "b", Bound: orb.Bound{Min: orb.Point{9, 0}, Max: orb.Point{20, 10}}},
		{Key: "c", Bound: orb.Bound{Min: orb.Point{1000, 1000}, Max: orb.Point{1010, 1010}}},
	})
	got := idx.CandidateNeighbors("a")
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected [b], got %v", got)
	}
}

func TestTileBoxIndexReplace(t *testing.T) {
	idx := NewTileBoxIndex([]TileBoxEntry{
		{Key: "a", Bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}},
		{Key: "b", Bound: orb.Bound{Min: orb.Point{9, 0}, Max: orb.Point{20, 10}}},
	})
	idx.Replace([]string{"a", "b"}, TileBoxEntry{Key: "ab", Bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 10}}})
	if len(idx.entries) != 1 || idx.entries[0].Key != "ab" {
		t.Fatalf("expected only merged tile to remain, got %+v", idx.entries)
	}
}
