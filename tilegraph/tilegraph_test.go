package tilegraph

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/kwv/parceltile/geo"
	"github.com/kwv/parceltile/parcel"
)

func squareRing(x0, y0, size float64) orb.Ring {
	return orb.Ring{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
	}
}

func TestInitAssignsParcelsAndBuildsEdges(t *testing.T) {
	tileA := orb.Polygon{squareRing(0, 0, 10)}
	tileB := orb.Polygon{squareRing(10, 0, 10)}
	parcels, err := parcel.Load([]parcel.Row{
		{Key: "p1", LandAreaSqft: 1000, AssessedValue: 1000, Geometry: orb.Point{5, 5}},
		{Key: "p2", LandAreaSqft: 1000, AssessedValue: 1000, Geometry: orb.Point{15, 5}},
	})
	require.NoError(t, err)

	g := New(geo.Orb{}, 1)
	require.NoError(t, g.Init([]TileSeed{{Key: "A", Geometry: tileA}, {Key: "B", Geometry: tileB}}, parcels))

	require.Equal(t, []string{"B"}, g.Neighbors("A"))
	pA, _ := parcels.Get("p1")
	require.Equal(t, "A", pA.CurrentTile)
}

func TestInitTangencyProducesNoEdge(t *testing.T) {
	tileA := orb.Polygon{squareRing(0, 0, 10)}
	tileB := orb.Polygon{squareRing(10, 10, 10)} // touches only at corner (10,10)
	parcels, err := parcel.Load([]parcel.Row{
		{Key: "p1", LandAreaSqft: 1000, AssessedValue: 1000, Geometry: orb.Point{5, 5}},
		{Key: "p2", LandAreaSqft: 1000, AssessedValue: 1000, Geometry: orb.Point{15, 15}},
	})
	require.NoError(t, err)

	g := New(geo.Orb{}, 0)
	require.NoError(t, g.Init([]TileSeed{{Key: "A", Geometry: tileA}, {Key: "B", Geometry: tileB}}, parcels))

	require.Empty(t, g.Neighbors("A"))
	require.Empty(t, g.Edges())
}

func TestMergeProducesUnionAndRewiresCounterparts(t *testing.T) {
	tileA := orb.Polygon{squareRing(0, 0, 10)}
	tileB := orb.Polygon{squareRing(10, 0, 10)}
	tileC := orb.Polygon{squareRing(20, 0, 10)}
	parcels, err := parcel.Load([]parcel.Row{
		{Key: "p1", LandAreaSqft: 1000, AssessedValue: 1000, Geometry: orb.Point{5, 5}},
		{Key: "p2", LandAreaSqft: 1000, AssessedValue: 1000, Geometry: orb.Point{15, 5}},
		{Key: "p3", LandAreaSqft: 1000, AssessedValue: 1000, Geometry: orb.Point{25, 5}},
	})
	require.NoError(t, err)

	g := New(geo.Orb{}, 1)
	require.NoError(t, g.Init([]TileSeed{
		{Key: "A", Geometry: tileA}, {Key: "B", Geometry: tileB}, {Key: "C", Geometry: tileC},
	}, parcels))

	newKey, counterparts, err := g.Merge("A", "B", 0.75)
	require.NoError(t, err)
	require.Equal(t, []string{"C"}, counterparts)
	require.Equal(t, 2, g.TileCount())

	newTile, ok := g.Get(newKey)
	require.True(t, ok)
	require.Len(t, newTile.Members, 2)
	require.NotNil(t, newTile.RSquared)
	require.Equal(t, 0.75, *newTile.RSquared)

	pA, _ := parcels.Get("p1")
	require.Equal(t, newKey, pA.CurrentTile)

	require.Equal(t, []string{newKey}, g.Neighbors("C"))
}
