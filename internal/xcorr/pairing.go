package xcorr

import (
	"math"
	"time"
)

// Phase is the minimal view of a catalog phase the pairing rule
// needs: its pick time, event origin time, and whether it was picked
// by a human.
type Phase struct {
	PickTime  time.Time
	EventTime time.Time
	IsManual  bool
}

// Trace carries exactly what the pairing rule needs from a loaded
// waveform: its start time, sampling frequency, and samples. Both
// traces passed to Correlate must already be demeaned.
type Trace struct {
	Start   time.Time
	Freq    float64
	Samples []float64
}

// PairResult is the outcome of correlating two phases, following the
// result contract of spec §4.3: dtcc combines the travel-time
// difference implied by the catalog with the measured delay.
type PairResult struct {
	Dtcc   float64
	Weight float64
	Ok     bool
}

// windows extracts the short (signal of interest) and long (short
// extended by maxDelay on both sides) sample slices around pick, in
// t's own sample index space.
func windows(cfg Config, t Trace, pick time.Time) (short, long []float64, ok bool) {
	shortStart := pick.Add(time.Duration(cfg.StartOffset * float64(time.Second)))
	shortEnd := pick.Add(time.Duration(cfg.EndOffset * float64(time.Second)))
	margin := time.Duration(cfg.MaxDelay * float64(time.Second))
	longStart := shortStart.Add(-margin)
	longEnd := shortEnd.Add(margin)

	toIdx := func(at time.Time) int { return int(at.Sub(t.Start).Seconds()*t.Freq + 0.5) }

	s0, s1 := toIdx(shortStart), toIdx(shortEnd)
	l0, l1 := toIdx(longStart), toIdx(longEnd)

	if s0 < 0 || s1 > len(t.Samples) || l0 < 0 || l1 > len(t.Samples) || s0 >= s1 || l0 >= l1 {
		return nil, nil, false
	}
	return t.Samples[s0:s1], t.Samples[l0:l1], true
}

// Correlate applies the manual/automatic pairing rule (spec §4.3) to
// phases p1 (on trace t1, configured by cfg1) and p2 (on trace t2,
// configured by cfg2), then applies the result contract to compute
// (dtcc, weight).
//
// Pairing: when neither phase is manual, both directions are tried —
// short(p2) against long(p1), and short(p1) against long(p2) — and
// the higher-coefficient direction wins, removing asymmetry bias.
// When exactly one phase is manual, only the direction that trusts
// the manual pick's short window is tried. When both phases are
// manual the rule as stated is ambiguous (neither "trust the manual
// one" branch has a unique target); this implementation runs the
// single p1-trusting direction rather than a double pass, an explicit
// choice documented in DESIGN.md.
func Correlate(cfg1, cfg2 Config, p1, p2 Phase, t1, t2 Trace) PairResult {
	if t1.Freq != t2.Freq {
		return PairResult{}
	}
	fs := t1.Freq

	var best Result
	haveBest := false
	consider := func(short, long []float64, maxDelay float64) {
		res, err := CorrelateWithGate(short, long, fs, maxDelay)
		if err != nil || !res.Ok {
			return
		}
		if !haveBest || res.Coeff > best.Coeff {
			best = res
			haveBest = true
		}
	}

	shortP2, longP1, okA := windows(cfg2, t1, p1.PickTime)
	shortP1, longP2, okB := windows(cfg1, t2, p2.PickTime)

	switch {
	case !p1.IsManual && !p2.IsManual:
		// neither pick is manual: run both directions, keep the winner.
		if okA {
			consider(shortP2, longP1, cfg2.MaxDelay)
		}
		if okB {
			consider(shortP1, longP2, cfg1.MaxDelay)
		}
	case p1.IsManual && p2.IsManual:
		// both manual: single direction, trusting p1 (chosen resolution
		// for the pairing rule's undefined both-manual case).
		if okB {
			consider(shortP1, longP2, cfg1.MaxDelay)
		}
	case p2.IsManual:
		if okA {
			consider(shortP2, longP1, cfg2.MaxDelay)
		}
	default: // p1.IsManual only
		if okB {
			consider(shortP1, longP2, cfg1.MaxDelay)
		}
	}

	if !haveBest {
		return PairResult{}
	}

	minCoef := math.Max(cfg1.MinCoef, cfg2.MinCoef)
	if math.IsNaN(best.Coeff) || best.Coeff < minCoef {
		return PairResult{}
	}

	catalogDiff := p1.PickTime.Sub(p1.EventTime).Seconds() - p2.PickTime.Sub(p2.EventTime).Seconds()
	dtcc := catalogDiff - best.Delay
	weight := best.Coeff * best.Coeff

	return PairResult{Dtcc: dtcc, Weight: weight, Ok: true}
}
