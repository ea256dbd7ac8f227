// Package acf estimates integrated autocorrelation times of MCMC chains.
//
// The autocovariance is computed in the frequency domain, so one
// estimate costs O(n log n) in the chain length. Callers are expected to
// refresh estimates at geometrically spaced intervals to keep the
// amortized cost per sample constant.
package acf

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/dsp/fourier"
)

// sokalC is the window constant of Sokal's automated windowing
// procedure: integration stops at the first lag m >= sokalC * tau(m).
const sokalC = 5.0

// minChainFactor rejects estimates from chains shorter than this many
// correlation times. Mean subtraction biases the sample autocorrelation
// of a short chain toward zero, so the window can close on a tau far
// below the truth; such an estimate is reported as unknown instead.
const minChainFactor = 50.0

// IntegratedTime estimates the integrated autocorrelation time of a
// single scalar series. It returns NaN when the series is too short for
// a trustworthy estimate, and 1 for a zero-variance (degenerate) series.
func IntegratedTime(series []float64) float64 {
	rho, ok := autocorr(series)
	if !ok {
		return 1
	}
	return integrate(rho)
}

// EnsembleIntegratedTime estimates the autocorrelation time of one
// coordinate observed by several walkers. The per-walker autocorrelation
// functions are averaged before windowing, which is considerably less
// noisy than integrating any single walker.
func EnsembleIntegratedTime(walkers [][]float64) float64 {
	if len(walkers) == 0 {
		return math.NaN()
	}
	var mean []float64
	valid := 0
	for _, w := range walkers {
		rho, ok := autocorr(w)
		if !ok {
			continue
		}
		if mean == nil {
			mean = make([]float64, len(rho))
		}
		for i := range rho {
			mean[i] += rho[i]
		}
		valid++
	}
	if valid == 0 {
		// Every walker is constant: a degenerate coordinate decorrelates
		// immediately by definition.
		return 1
	}
	for i := range mean {
		mean[i] /= float64(valid)
	}
	return integrate(mean)
}

// autocorr returns the normalized autocorrelation function of x at lags
// 0..len(x)-1. The second return is false for zero-variance input.
func autocorr(x []float64) ([]float64, bool) {
	n := len(x)
	if n < 2 {
		return nil, false
	}
	mean, err := stats.Mean(stats.Float64Data(x))
	if err != nil {
		return nil, false
	}

	// Zero-pad to at least twice the length so the circular convolution
	// of the FFT does not wrap lagged products around.
	m := nextPow2(2 * n)
	buf := make([]float64, m)
	for i, v := range x {
		buf[i] = v - mean
	}

	fft := fourier.NewFFT(m)
	coeff := fft.Coefficients(nil, buf)
	for i, c := range coeff {
		re, im := real(c), imag(c)
		coeff[i] = complex(re*re+im*im, 0)
	}
	acov := fft.Sequence(nil, coeff)

	if acov[0] <= 0 {
		return nil, false
	}
	rho := make([]float64, n)
	for i := 0; i < n; i++ {
		rho[i] = acov[i] / acov[0]
	}
	return rho, true
}

// integrate applies Sokal windowing to a normalized autocorrelation
// function: tau(m) = 1 + 2 * sum_{k=1..m} rho_k, stopping at the first
// m >= sokalC * tau(m). NaN means the estimate is not trustworthy yet:
// either the window never closed, or the chain is shorter than
// minChainFactor correlation times and the closed window cannot be
// believed.
func integrate(rho []float64) float64 {
	tau := 1.0
	for m := 1; m < len(rho); m++ {
		tau += 2 * rho[m]
		if float64(m) >= sokalC*tau {
			if float64(len(rho)) < minChainFactor*tau {
				return math.NaN()
			}
			return tau
		}
	}
	return math.NaN()
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
