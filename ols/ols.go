// Package ols evaluates the two-regressor OLS model (built area, land
// area predicting the market-value proxy) that scores every prospective
// join, applying the sales-count gate before ever touching the solver.
package ols

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kwv/parceltile/parcel"
)

// Result is what Evaluate returns for one candidate region.
type Result struct {
	R2          float64
	ParcelCount int
	SalesCount  int
}

// Evaluate builds the design matrix [1, built_area, land_area] over
// region, regresses market_value_proxy, and returns R². A region with
// fewer than minSales member parcels carrying an actual sale price
// bypasses the regression and reports R2: 0 by convention (the gate),
// as does a region whose response is constant (SStot == 0).
func Evaluate(region []parcel.Parcel, minSales int) Result {
	salesCount := 0
	for _, p := range region {
		if p.AdjSalePrice != nil {
			salesCount++
		}
	}
	result := Result{ParcelCount: len(region), SalesCount: salesCount}
	if salesCount < minSales {
		return result
	}

	n := len(region)

	x := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i, p := range region {
		built := 0.0
		if p.BuiltAreaSqft != nil {
			built = *p.BuiltAreaSqft
		}
		x.Set(i, 0, 1)
		x.Set(i, 1, built)
		x.Set(i, 2, p.LandAreaSqft)

		proxy := 0.0
		if p.MarketValueProxy != nil {
			proxy = *p.MarketValueProxy
		}
		y.Set(i, 0, proxy)
	}

	var mean float64
	for i := 0; i < n; i++ {
		mean += y.At(i, 0)
	}
	mean /= float64(n)

	var ssTot float64
	for i := 0; i < n; i++ {
		d := y.At(i, 0) - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		return result
	}

	fitted, ok := solve(x, y)
	if !ok {
		return result
	}

	var ssRes float64
	for i := 0; i < n; i++ {
		resid := y.At(i, 0) - fitted.At(i, 0)
		ssRes += resid * resid
	}

	r2 := 1 - ssRes/ssTot
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return result
	}
	if r2 > 1 {
		r2 = 1
	}
	if r2 < 0 {
		r2 = 0
	}
	result.R2 = r2
	return result
}

// solve returns X*beta for the minimum-norm least-squares beta solving
// X*beta ≈ y, via the Moore-Penrose pseudoinverse computed from an SVD.
// This is the normal-equations-with-pseudoinverse-fallback policy named
// in the component design collapsed into a single numerically stable
// path: the SVD pseudoinverse reduces to the normal-equations solution
// when X is well-conditioned and full rank, and degrades gracefully
// (including the exact-fit, more-columns-than-rows case) otherwise.
func solve(x, y *mat.Dense) (*mat.Dense, bool) {
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, false
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	uRows, _ := u.Dims()
	vRows, _ := v.Dims()

	const singularTolerance = 1e-10
	// sigmaPlusUtY = Σ⁺ Uᵀ y
	sigmaPlusUtY := mat.NewDense(len(values), 1, nil)
	for i, s := range values {
		if s <= singularTolerance {
			continue
		}
		var dot float64
		for r := 0; r < uRows; r++ {
			dot += u.At(r, i) * y.At(r, 0)
		}
		sigmaPlusUtY.Set(i, 0, dot/s)
	}

	beta := mat.NewDense(vRows, 1, nil)
	beta.Mul(&v, sigmaPlusUtY)

	var fitted mat.Dense
	fitted.Mul(x, beta)
	return &fitted, true
}
