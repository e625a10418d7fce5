// Package synthesize implements the artificial-phase synthesizer: when
// a reference event lacks a pick of some type at a station where
// nearby events have one, it cross-correlates against those
// candidates to manufacture a pick (spec §4.2).
package synthesize

import (
	"fmt"
	"sort"
	"time"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/geodesy"
	"github.com/sed-ethz/hdd-relocate-go/internal/stats"
	"github.com/sed-ethz/hdd-relocate-go/internal/xcorr"
)

// Config controls candidate selection and acceptance thresholds.
type Config struct {
	MaxIEdistKm  float64 // inter-event distance cap for candidates
	NumCC        int     // number of top coefficients to average; candidate floor is max(NumCC, 2)
	MinCoef      float64
	MaxCCTWSec   float64 // cap on the search window width
	FixAutoPhase bool    // when set, automatic picks on R also count as "missing"
	XCorr        xcorr.Config
}

// Candidate is a manually-picked phase of the missing type at a
// nearby event, with its loaded long waveform available for
// correlation.
type Candidate struct {
	Event catalog.Event
	Phase catalog.Phase
	Trace xcorr.Trace
}

var errInsufficientCandidates = fmt.Errorf("synthesize: fewer than required candidates available")

// minCandidates returns max(numCC, 2) per spec §4.2 step 2.
func minCandidates(numCC int) int {
	if numCC < 2 {
		return 2
	}
	return numCC
}

// SelectCandidates filters catalog events within maxIEdist of ref that
// have a manual phase of phaseType at station, treating automatic
// picks on ref itself as irrelevant to this filter (the "missing on R"
// condition is checked by the caller before invoking Synthesize).
func SelectCandidates(cfg Config, cat *catalog.Catalog, ref catalog.Event, stationID string, phaseType catalog.PhaseType) []Candidate {
	var out []Candidate
	for _, ev := range cat.Events {
		if ev.ID == ref.ID {
			continue
		}
		dist, _, _ := geodesy.Distance3D(ref.Lat, ref.Lon, ref.DepthKm, ev.Lat, ev.Lon, ev.DepthKm)
		if cfg.MaxIEdistKm > 0 && dist > cfg.MaxIEdistKm {
			continue
		}
		for _, ph := range cat.Phases[ev.ID] {
			if ph.StationID != stationID || ph.Type != phaseType || !ph.IsManual {
				continue
			}
			out = append(out, Candidate{Event: ev, Phase: ph})
		}
	}
	return out
}

// SearchWindow computes the window on the reference event's time base
// that the long trace must cover (spec §4.2 step 3).
func SearchWindow(cfg Config, refTime time.Time, candidates []Candidate) (start, end time.Time) {
	if len(candidates) == 0 {
		return refTime, refTime
	}
	tmin := candidates[0].Phase.TravelTime(candidates[0].Event)
	tmax := tmin
	for _, c := range candidates[1:] {
		tt := c.Phase.TravelTime(c.Event)
		if tt < tmin {
			tmin = tt
		}
		if tt > tmax {
			tmax = tt
		}
	}

	start = refTime.Add(time.Duration((tmin + cfg.XCorr.StartOffset) * float64(time.Second)))
	end = refTime.Add(time.Duration((tmax + cfg.XCorr.EndOffset) * float64(time.Second)))

	if cfg.MaxCCTWSec > 0 && end.Sub(start).Seconds() > cfg.MaxCCTWSec {
		half := time.Duration(cfg.MaxCCTWSec / 2 * float64(time.Second))
		start = refTime.Add(-half)
		end = refTime.Add(half)
	}
	return start, end
}

// Result is a synthesized pick, ready to be appended to the catalog
// as an automatic phase.
type Result struct {
	Time   time.Time
	Weight float64
}

// Synthesize runs steps 4-6 of spec §4.2: correlate each candidate's
// short window against the reference's long trace, keep the top NumCC
// coefficients, and combine them into a single synthesized pick.
func Synthesize(cfg Config, refTrace xcorr.Trace, refTime time.Time, candidates []Candidate) (Result, error) {
	min := minCandidates(cfg.NumCC)
	if len(candidates) < min {
		return Result{}, errInsufficientCandidates
	}

	type scored struct {
		coeff float64
		delay float64
	}
	var hits []scored

	for _, c := range candidates {
		shortStart := c.Phase.Time.Add(time.Duration(cfg.XCorr.StartOffset * float64(time.Second)))
		shortEnd := c.Phase.Time.Add(time.Duration(cfg.XCorr.EndOffset * float64(time.Second)))
		s0 := int(shortStart.Sub(c.Trace.Start).Seconds()*c.Trace.Freq + 0.5)
		s1 := int(shortEnd.Sub(c.Trace.Start).Seconds()*c.Trace.Freq + 0.5)
		if s0 < 0 || s1 > len(c.Trace.Samples) || s0 >= s1 {
			continue
		}
		short := c.Trace.Samples[s0:s1]

		longLen := len(refTrace.Samples)
		shortLen := len(short)
		maxDelaySec := float64(longLen-shortLen) / 2 / refTrace.Freq
		if maxDelaySec <= 0 {
			continue
		}

		res, err := xcorr.CorrelateWithGate(short, refTrace.Samples, refTrace.Freq, maxDelaySec)
		if err != nil || !res.Ok {
			continue
		}
		hits = append(hits, scored{coeff: res.Coeff, delay: res.Delay})
	}

	if len(hits) == 0 {
		return Result{}, errInsufficientCandidates
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].coeff > hits[j].coeff })
	n := cfg.NumCC
	if n > len(hits) {
		n = len(hits)
	}
	top := hits[:n]

	var sumCoef float64
	dts := make([]float64, len(top))
	for i, h := range top {
		sumCoef += h.coeff
		dts[i] = h.delay
	}
	meanCoef := sumCoef / float64(len(top))
	if meanCoef < cfg.MinCoef {
		return Result{}, fmt.Errorf("synthesize: mean coefficient %.3f below minCoef %.3f", meanCoef, cfg.MinCoef)
	}

	meanDt := stats.Mean(dts)
	mad := stats.MeanAbsoluteDeviation(dts, meanDt)

	refDuration := time.Duration(float64(len(refTrace.Samples)) / refTrace.Freq * float64(time.Second))
	windowMidpoint := refTrace.Start.Add(refDuration / 2)
	pickTime := windowMidpoint.Add(time.Duration(meanDt * float64(time.Second)))

	return Result{
		Time:   pickTime,
		Weight: stats.ComputePickWeight(mad),
	}, nil
}
