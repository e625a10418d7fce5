// Package xcorr implements the normalized time-domain cross-correlation
// kernel, its cycle-skip quality gate and the manual/automatic pairing
// rule used to derive cross-correlation differential times (dt.cc).
package xcorr

import (
	"errors"
	"math"
)

// Config holds the per-phase-type window and acceptance parameters.
type Config struct {
	StartOffset float64 // seconds relative to pick, short window start
	EndOffset   float64 // seconds relative to pick, short window end
	MaxDelay    float64 // seconds, long window extends short by this on both sides
	MinCoef     float64
}

// ShortWindowLen returns the short window length in samples at fs.
func (c Config) ShortWindowLen(fs float64) int {
	return int((c.EndOffset - c.StartOffset) * fs)
}

// Result is the outcome of correlating one phase pair.
type Result struct {
	Coeff float64
	Delay float64 // seconds
	Ok    bool
}

// correlateAt computes the normalized correlation coefficient with
// short aligned at offset within long, summing only over indices
// where both traces are in bounds.
func correlateAt(short, long []float64, offset int) (float64, bool) {
	var sumProd, sumShortSq, sumLongSq float64
	count := 0

	for i, s := range short {
		j := offset + i
		if j < 0 || j >= len(long) {
			continue
		}
		l := long[j]
		sumProd += s * l
		sumShortSq += s * s
		sumLongSq += l * l
		count++
	}

	if count == 0 {
		return 0, false
	}
	denom := math.Sqrt(sumShortSq * sumLongSq)
	if denom == 0 {
		return 0, false
	}
	return sumProd / denom, true
}

// localMaxima scans coeff values at each tested delay and returns
// those immediately preceding a strict decrease after a non-decreasing
// run — the side-lobe candidates the cycle-skip gate inspects.
func localMaxima(coeffs []float64) []float64 {
	var maxima []float64
	n := len(coeffs)
	for i := 0; i < n; i++ {
		if i > 0 && coeffs[i] < coeffs[i-1] {
			continue // part of a strict decrease, not the peak itself
		}
		isPeak := i == n-1 || coeffs[i+1] < coeffs[i]
		if isPeak {
			maxima = append(maxima, coeffs[i])
		}
	}
	return maxima
}

// passesCycleSkipGate rejects results where more than one local
// maximum is within (1-CCmax)/2 of the best coefficient, a sign the
// window aligned to the wrong cycle of a periodic waveform (spec
// §4.3).
func passesCycleSkipGate(coeffs []float64, ccMax float64) bool {
	threshold := ccMax - (1-ccMax)/2
	count := 0
	for _, m := range localMaxima(coeffs) {
		if m >= threshold {
			count++
		}
	}
	return count <= 1
}

// CorrelateWithGate slides short inside long across all integer
// delays k in [-d, d), d = floor(maxDelay*fs), keeping the best
// normalized coefficient and its delay, then applies the cycle-skip
// gate (spec §4.3). Both traces must already be zero-mean.
func CorrelateWithGate(short, long []float64, fs, maxDelay float64) (Result, error) {
	if len(short) == 0 || len(long) == 0 {
		return Result{}, errors.New("xcorr: empty trace")
	}

	d := int(math.Floor(maxDelay * fs))
	base := (len(long) - len(short)) / 2

	coeffs := make([]float64, 0, 2*d)
	var bestCoeff float64
	bestDelay := 0
	found := false

	for k := -d; k < d; k++ {
		coeff, ok := correlateAt(short, long, base+k)
		if !ok {
			continue
		}
		coeffs = append(coeffs, coeff)
		if !found || coeff > bestCoeff {
			bestCoeff = coeff
			bestDelay = k
			found = true
		}
	}

	if !found {
		return Result{}, errors.New("xcorr: no valid overlap for any delay")
	}

	if !passesCycleSkipGate(coeffs, bestCoeff) {
		return Result{Coeff: math.NaN(), Delay: float64(bestDelay) / fs, Ok: false}, nil
	}

	return Result{Coeff: bestCoeff, Delay: float64(bestDelay) / fs, Ok: true}, nil
}
