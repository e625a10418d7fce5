package dtbuilder

import (
	"math"
	"testing"
	"time"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/neighbor"
	"github.com/sed-ethz/hdd-relocate-go/internal/xcorr"
)

func TestBuildCTComputesTravelTimesAndWeight(t *testing.T) {
	cat := catalog.New()
	ref := catalog.Event{ID: 1, Time: time.Unix(0, 0).UTC()}
	cand := catalog.Event{ID: 2, Time: time.Unix(0, 0).UTC()}
	cat.Events[ref.ID] = ref
	cat.Events[cand.ID] = cand
	cat.Phases[ref.ID] = []catalog.Phase{{EventID: ref.ID, StationID: "S1", Type: catalog.PhaseP, Time: ref.Time.Add(2 * time.Second), Weight: 0.8}}
	cat.Phases[cand.ID] = []catalog.Phase{{EventID: cand.ID, StationID: "S1", Type: catalog.PhaseP, Time: cand.Time.Add(3 * time.Second), Weight: 0.6}}

	neighbors := []neighbor.Neighbor{{
		Event:   cand,
		Matches: []neighbor.MatchedStation{{StationID: "S1", Type: catalog.PhaseP}},
	}}

	obs := BuildCT(cat, ref, neighbors)
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	o := obs[0]
	if o.TravelTime1 != 2 || o.TravelTime2 != 3 {
		t.Fatalf("expected travel times 2/3, got %v/%v", o.TravelTime1, o.TravelTime2)
	}
	if o.Weight != 0.7 {
		t.Fatalf("expected averaged weight 0.7, got %v", o.Weight)
	}
}

func TestBuildCTDropsNegativeTravelTimes(t *testing.T) {
	cat := catalog.New()
	ref := catalog.Event{ID: 1, Time: time.Unix(10, 0).UTC()}
	cand := catalog.Event{ID: 2, Time: time.Unix(0, 0).UTC()}
	cat.Events[ref.ID] = ref
	cat.Events[cand.ID] = cand
	// The ref phase fires before the ref event's own origin time: negative travel time.
	cat.Phases[ref.ID] = []catalog.Phase{{EventID: ref.ID, StationID: "S1", Type: catalog.PhaseP, Time: ref.Time.Add(-1 * time.Second)}}
	cat.Phases[cand.ID] = []catalog.Phase{{EventID: cand.ID, StationID: "S1", Type: catalog.PhaseP, Time: cand.Time.Add(3 * time.Second)}}

	neighbors := []neighbor.Neighbor{{
		Event:   cand,
		Matches: []neighbor.MatchedStation{{StationID: "S1", Type: catalog.PhaseP}},
	}}

	obs := BuildCT(cat, ref, neighbors)
	if len(obs) != 0 {
		t.Fatalf("expected negative travel times to be dropped, got %d observations", len(obs))
	}
}

func TestDeduplicatePairsCanonicalizesAndSorts(t *testing.T) {
	pairs := [][2]int64{{3, 1}, {1, 3}, {2, 5}, {1, 2}}
	out := DeduplicatePairs(pairs)
	want := [][2]int64{{1, 2}, {1, 3}, {2, 5}}
	if len(out) != len(want) {
		t.Fatalf("expected %d deduplicated pairs, got %d: %v", len(want), len(out), out)
	}
	for i, w := range want {
		if out[i] != w {
			t.Fatalf("pair %d: expected %v, got %v", i, w, out[i])
		}
	}
}

func TestFormatLines(t *testing.T) {
	ct := FormatCTLine(CTObservation{StationID: "S1", TravelTime1: 1.234567, TravelTime2: 2.345678, Weight: 0.75, Type: catalog.PhaseP})
	if ct != "S1 1.234567 2.345678 0.7500 P" {
		t.Fatalf("unexpected dt.ct line: %q", ct)
	}
	cc := FormatCCLine(CCObservation{StationID: "S1", Dtcc: -0.012345, Weight: 0.81, Type: catalog.PhaseS})
	if cc != "S1 -0.012345 0.8100 S" {
		t.Fatalf("unexpected dt.cc line: %q", cc)
	}
}

type fakeFetcher struct {
	cfg1, cfg2 xcorr.Config
	p1, p2     xcorr.Phase
	t1, t2     xcorr.Trace
}

func (f fakeFetcher) FetchPair(ev1, ev2 catalog.Event, stationID string, phaseType catalog.PhaseType) (xcorr.Config, xcorr.Config, xcorr.Phase, xcorr.Phase, xcorr.Trace, xcorr.Trace, bool) {
	if stationID != "S1" || phaseType != catalog.PhaseP {
		return xcorr.Config{}, xcorr.Config{}, xcorr.Phase{}, xcorr.Phase{}, xcorr.Trace{}, xcorr.Trace{}, false
	}
	return f.cfg1, f.cfg2, f.p1, f.p2, f.t1, f.t2, true
}

func buildTestTrace() []float64 {
	samples := make([]float64, 40)
	for i := range samples {
		x := float64(i)
		samples[i] = math.Sin(x*0.7) + 0.5*math.Sin(x*0.31)
	}
	return samples
}

func TestBuildCCCorrelatesMatchedStations(t *testing.T) {
	samples := buildTestTrace()
	start := time.Unix(0, 0).UTC()
	pick := start.Add(2 * time.Second)

	cfg := xcorr.Config{StartOffset: -0.5, EndOffset: 0.5, MaxDelay: 0.5, MinCoef: 0.1}
	trace := xcorr.Trace{Start: start, Freq: 10, Samples: samples}

	p1 := xcorr.Phase{PickTime: pick, EventTime: start}
	p2 := xcorr.Phase{PickTime: pick, EventTime: start.Add(500 * time.Millisecond)}

	fetcher := fakeFetcher{cfg1: cfg, cfg2: cfg, p1: p1, p2: p2, t1: trace, t2: trace}

	ref := catalog.Event{ID: 1}
	neighbors := []neighbor.Neighbor{{
		Event:   catalog.Event{ID: 2},
		Matches: []neighbor.MatchedStation{{StationID: "S1", Type: catalog.PhaseP}},
	}}

	obs := BuildCC(fetcher, ref, neighbors)
	if len(obs) != 1 {
		t.Fatalf("expected 1 cc observation, got %d", len(obs))
	}
	if math.Abs(obs[0].Dtcc-0.5) > 1e-6 {
		t.Fatalf("expected dtcc ~0.5s (catalog diff, zero measured delay), got %v", obs[0].Dtcc)
	}
	if obs[0].Weight <= 0.9 {
		t.Fatalf("expected a near-perfect weight for an autocorrelated identical trace, got %v", obs[0].Weight)
	}
}

func TestBuildCCSkipsUnmatchedStations(t *testing.T) {
	fetcher := fakeFetcher{}
	ref := catalog.Event{ID: 1}
	neighbors := []neighbor.Neighbor{{
		Event:   catalog.Event{ID: 2},
		Matches: []neighbor.MatchedStation{{StationID: "SX", Type: catalog.PhaseS}},
	}}
	obs := BuildCC(fetcher, ref, neighbors)
	if len(obs) != 0 {
		t.Fatalf("expected no observations when the fetcher can't supply the pair, got %d", len(obs))
	}
}
