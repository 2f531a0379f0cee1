package portfolio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/internal/returns"
)

// normaliserEpsilon: below this the Kelly weight sum cannot be normalised
const normaliserEpsilon = 1e-12

// MinimalVariance computes the minimum-variance weight vector in closed form.
//
// The augmented system
//
//	[ 0.5Σ  -1 ] [ w ]   [ 1 ]
//	[ 1ᵗ     0 ] [ λ ] = [ 1 ]
//
// is solved by inversion; λ is discarded. The last row forces Σw = 1.
// Shorting is allowed (no inequality constraints).
func MinimalVariance(table *contracts.PriceTable) (contracts.WeightVector, error) {
	sigma, err := covariance(table)
	if err != nil {
		return nil, err
	}

	n := sigma.SymmetricDim()
	a := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, 0.5*sigma.At(i, j))
		}
		a.Set(i, n, -1)
		a.Set(n, i, 1)
	}
	a.Set(n, n, 0)

	b := mat.NewVecDense(n+1, nil)
	for i := 0; i <= n; i++ {
		b.SetVec(i, 1)
	}

	x, err := solve(a, b)
	if err != nil {
		return nil, fmt.Errorf("minimal variance: %w", err)
	}

	return toWeights(table.Tickers, x.SliceVec(0, n))
}

// ApproximatedMaxKelly solves (0.5Σ)w = μ and normalises w to sum to one
func ApproximatedMaxKelly(table *contracts.PriceTable) (contracts.WeightVector, error) {
	r, err := returns.Matrix(table)
	if err != nil {
		return nil, err
	}
	sigma, err := covarianceOf(r)
	if err != nil {
		return nil, err
	}

	_, n := r.Dims()
	mu := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		mu.SetVec(j, stat.Mean(mat.Col(nil, j, r), nil))
	}

	a := mat.NewDense(n, n, nil)
	a.Scale(0.5, sigma)

	w, err := solve(a, mu)
	if err != nil {
		return nil, fmt.Errorf("approximated max kelly: %w", err)
	}

	sum := mat.Sum(w)
	if math.Abs(sum) < normaliserEpsilon || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("approximated max kelly: weight sum %v cannot be normalised: %w",
			sum, contracts.ErrNumericalInstability)
	}
	w.ScaleVec(1/sum, w)

	return toWeights(table.Tickers, w)
}

// covariance returns the sample covariance (n-1 denominator) of table returns
func covariance(table *contracts.PriceTable) (*mat.SymDense, error) {
	r, err := returns.Matrix(table)
	if err != nil {
		return nil, err
	}
	return covarianceOf(r)
}

func covarianceOf(r *mat.Dense) (*mat.SymDense, error) {
	rows, _ := r.Dims()
	if rows < 2 {
		return nil, fmt.Errorf("covariance needs at least 2 return rows, got %d: %w",
			rows, contracts.ErrInsufficientData)
	}

	var sigma mat.SymDense
	stat.CovarianceMatrix(&sigma, r, nil)
	return &sigma, nil
}

// solve computes inv(a)·b. Singular or ill-conditioned matrices are
// reported as numerical instability.
func solve(a *mat.Dense, b mat.Vector) (*mat.VecDense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("matrix inversion failed (%v): %w", err, contracts.ErrNumericalInstability)
	}

	var x mat.VecDense
	x.MulVec(&inv, b)

	for i := 0; i < x.Len(); i++ {
		if v := x.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite solution: %w", contracts.ErrNumericalInstability)
		}
	}
	return &x, nil
}

func toWeights(tickers []string, v mat.Vector) (contracts.WeightVector, error) {
	if v.Len() != len(tickers) {
		return nil, fmt.Errorf("weight vector has %d entries for %d tickers", v.Len(), len(tickers))
	}

	weights := make(contracts.WeightVector, len(tickers))
	for i, ticker := range tickers {
		weights[ticker] = v.AtVec(i)
	}
	return weights, nil
}
