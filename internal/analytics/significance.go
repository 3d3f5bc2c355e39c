package analytics

import "math"

// Abramowitz and Stegun 7.1.26 coefficients.
const (
	erfP  = 0.3275911
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
)

// erf approximates the error function (max absolute error 1.5e-7).
func erf(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}
	t := 1.0 / (1.0 + erfP*x)
	y := 1.0 - (((((erfA5*t+erfA4)*t)+erfA3)*t+erfA2)*t+erfA1)*t*math.Exp(-x*x)
	return sign * y
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(z float64) float64 {
	return 0.5 * (1.0 + erf(z/math.Sqrt2))
}

// TwoProportionPValue runs a two-sided two-proportion z-test of x1/n1 against x2/n2.
// Degenerate inputs (an empty sample or zero pooled variance) return 1.0.
func TwoProportionPValue(x1, n1, x2, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 {
		return 1.0
	}
	p1 := float64(x1) / float64(n1)
	p2 := float64(x2) / float64(n2)
	pooled := float64(x1+x2) / float64(n1+n2)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(n1) + 1/float64(n2)))
	if se == 0 || math.IsNaN(se) {
		return 1.0
	}

	z := (p1 - p2) / se
	p := 2 * (1 - NormalCDF(math.Abs(z)))
	return math.Max(0, math.Min(1, p))
}
