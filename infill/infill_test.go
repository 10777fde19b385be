package infill

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/kwv/parceltile/geo"
	"github.com/kwv/parceltile/parcel"
)

func pointParcel(key string, x, y float64) parcel.Row {
	return parcel.Row{
		Key:           key,
		LandAreaSqft:  1000,
		AssessedValue: 1000,
		Geometry:      orb.Point{x, y},
	}
}

func TestBuiltAreaInfillMatchesWorkedExample(t *testing.T) {
	built1, built2, built3 := 100.0, 200.0, 400.0
	rows := []parcel.Row{
		pointParcel("target", 0, 0),
		{Key: "n1", LandAreaSqft: 1000, AssessedValue: 1000, BuiltAreaSqft: &built1, Geometry: orb.Point{1, 0}},
		{Key: "n2", LandAreaSqft: 1000, AssessedValue: 1000, BuiltAreaSqft: &built2, Geometry: orb.Point{2, 0}},
		{Key: "n3", LandAreaSqft: 1000, AssessedValue: 1000, BuiltAreaSqft: &built3, Geometry: orb.Point{4, 0}},
	}
	tbl, err := parcel.Load(rows)
	require.NoError(t, err)

	_, err = Run(tbl, geo.Orb{}, 3)
	require.NoError(t, err)

	p, ok := tbl.Get("target")
	require.True(t, ok)
	require.NotNil(t, p.BuiltAreaSqft)
	expected := 300.0 / 1.75
	if math.Abs(*p.BuiltAreaSqft-expected) > 1e-6 {
		t.Fatalf("expected built_area %.5f, got %.5f", expected, *p.BuiltAreaSqft)
	}
}

func TestMarketValueProxyMeanWhenBothPresent(t *testing.T) {
	sale := 200000.0
	built := 1000.0
	rows := []parcel.Row{
		{Key: "p1", LandAreaSqft: 1000, AssessedValue: 100000, AdjSalePrice: &sale, BuiltAreaSqft: &built, Geometry: orb.Point{0, 0}},
	}
	tbl, err := parcel.Load(rows)
	require.NoError(t, err)
	_, err = Run(tbl, geo.Orb{}, 3)
	require.NoError(t, err)

	p, ok := tbl.Get("p1")
	require.True(t, ok)
	require.NotNil(t, p.MarketValueProxy)
	require.Equal(t, 150000.0, *p.MarketValueProxy)
}

func TestMarketValueProxyAssessedOnly(t *testing.T) {
	built := 1000.0
	rows := []parcel.Row{
		{Key: "p1", LandAreaSqft: 1000, AssessedValue: 80000, BuiltAreaSqft: &built, Geometry: orb.Point{0, 0}},
	}
	tbl, err := parcel.Load(rows)
	require.NoError(t, err)
	_, err = Run(tbl, geo.Orb{}, 3)
	require.NoError(t, err)

	p, ok := tbl.Get("p1")
	require.True(t, ok)
	require.Equal(t, 80000.0, *p.MarketValueProxy)
}

func TestDroppedParcelWhenNoDonors(t *testing.T) {
	rows := []parcel.Row{
		pointParcel("lonely", 0, 0),
	}
	tbl, err := parcel.Load(rows)
	require.NoError(t, err)
	_, err = Run(tbl, geo.Orb{}, 3)
	require.Error(t, err)
	var dropped *DroppedParcelError
	require.ErrorAs(t, err, &dropped)
	require.Equal(t, "lonely", dropped.Key)
}

func TestInfillIdempotentWhenComplete(t *testing.T) {
	built := 500.0
	rows := []parcel.Row{
		{Key: "p1", LandAreaSqft: 1000, AssessedValue: 1000, BuiltAreaSqft: &built, Geometry: orb.Point{0, 0}},
	}
	tbl, err := parcel.Load(rows)
	require.NoError(t, err)
	_, err = Run(tbl, geo.Orb{}, 3)
	require.NoError(t, err)

	before, _ := tbl.Get("p1")
	_, err = Run(tbl, geo.Orb{}, 3)
	require.NoError(t, err)
	after, _ := tbl.Get("p1")
	require.Equal(t, *before.BuiltAreaSqft, *after.BuiltAreaSqft)
}
