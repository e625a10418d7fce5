// Package dtbuilder builds the solver's differential-time inputs:
// dt.ct from catalog travel times and dt.cc from cross-correlation
// measurements, over the station/type pairs a neighbor selection
// shares between two events (spec §4.7).
package dtbuilder

import (
	"fmt"
	"sort"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/neighbor"
	"github.com/sed-ethz/hdd-relocate-go/internal/stats"
	"github.com/sed-ethz/hdd-relocate-go/internal/xcorr"
)

// CTObservation is one dt.ct line: a shared station/type between
// event pairs R and E, with each event's catalog travel time and the
// averaged pick weight.
type CTObservation struct {
	EventID1, EventID2 int64
	StationID          string
	Type               catalog.PhaseType
	TravelTime1        float64
	TravelTime2        float64
	Weight             float64
}

// CCObservation is one dt.cc line: the cross-correlation differential
// time and its coefficient-squared weight.
type CCObservation struct {
	EventID1, EventID2 int64
	StationID          string
	Type               catalog.PhaseType
	Dtcc               float64
	Weight             float64
}

// pairKey canonicalizes an (event1, event2) pair so it can be
// deduplicated regardless of which side it was discovered from (spec
// §4.7 "a pair appears exactly once across all neighbor sets").
func pairKey(id1, id2 int64) (int64, int64) {
	if id1 <= id2 {
		return id1, id2
	}
	return id2, id1
}

// BuildCT emits dt.ct observations for one reference event against
// its selected neighbors. Travel times below zero are dropped; a pair
// producing zero observations is skipped entirely (spec §4.7).
func BuildCT(cat *catalog.Catalog, ref catalog.Event, neighbors []neighbor.Neighbor) []CTObservation {
	var out []CTObservation

	refPhases := indexPhases(cat, ref.ID)

	for _, n := range neighbors {
		candPhases := indexPhases(cat, n.Event.ID)
		var pairObs []CTObservation

		for _, m := range n.Matches {
			rp, ok1 := refPhases[m.StationID+"."+string(m.Type)]
			cp, ok2 := candPhases[m.StationID+"."+string(m.Type)]
			if !ok1 || !ok2 {
				continue
			}

			tt1 := rp.TravelTime(ref)
			tt2 := cp.TravelTime(n.Event)
			if tt1 < 0 || tt2 < 0 {
				continue
			}

			pairObs = append(pairObs, CTObservation{
				EventID1:    ref.ID,
				EventID2:    n.Event.ID,
				StationID:   m.StationID,
				Type:        m.Type,
				TravelTime1: tt1,
				TravelTime2: tt2,
				Weight:      stats.Mean([]float64{rp.Weight, cp.Weight}),
			})
		}

		if len(pairObs) == 0 {
			continue
		}
		out = append(out, pairObs...)
	}

	return out
}

func indexPhases(cat *catalog.Catalog, eventID int64) map[string]catalog.Phase {
	out := make(map[string]catalog.Phase)
	for _, p := range cat.Phases[eventID] {
		out[p.StationID+"."+string(p.Type)] = p
	}
	return out
}

// WaveformFetcher is the boundary dt.cc building needs to obtain the
// demeaned short/long traces a station-phase pair requires, keyed by
// event and station-type.
type WaveformFetcher interface {
	FetchPair(ev1, ev2 catalog.Event, stationID string, phaseType catalog.PhaseType) (cfg1, cfg2 xcorr.Config, p1, p2 xcorr.Phase, t1, t2 xcorr.Trace, ok bool)
}

// BuildCC emits dt.cc observations by cross-correlating every shared
// station/type the reference event and each neighbor have in common,
// using the supplied fetcher to obtain already-processed waveforms
// (spec §4.7: "using getWaveform with the catalog memory+disk
// caches").
func BuildCC(fetcher WaveformFetcher, ref catalog.Event, neighbors []neighbor.Neighbor) []CCObservation {
	var out []CCObservation

	for _, n := range neighbors {
		for _, m := range n.Matches {
			cfg1, cfg2, p1, p2, t1, t2, ok := fetcher.FetchPair(ref, n.Event, m.StationID, m.Type)
			if !ok {
				continue
			}
			res := xcorr.Correlate(cfg1, cfg2, p1, p2, t1, t2)
			if !res.Ok {
				continue
			}
			out = append(out, CCObservation{
				EventID1:  ref.ID,
				EventID2:  n.Event.ID,
				StationID: m.StationID,
				Type:      m.Type,
				Dtcc:      res.Dtcc,
				Weight:    res.Weight,
			})
		}
	}

	return out
}

// DeduplicatePairs keeps only the first occurrence of each canonical
// event pair across a whole-catalog run's per-event neighbor sets
// (spec §4.7 "Catalog mode vs single-event mode").
func DeduplicatePairs(pairs [][2]int64) [][2]int64 {
	seen := make(map[[2]int64]bool)
	var out [][2]int64
	for _, p := range pairs {
		a, b := pairKey(p[0], p[1])
		key := [2]int64{a, b}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// FormatCTLine renders one dt.ct observation line in the solver's
// fixed free-format: "stationId travelTime1 travelTime2 weight type".
func FormatCTLine(o CTObservation) string {
	return fmt.Sprintf("%s %.6f %.6f %.4f %s", o.StationID, o.TravelTime1, o.TravelTime2, o.Weight, o.Type)
}

// FormatCCLine renders one dt.cc observation line: "stationId dtcc
// weight type".
func FormatCCLine(o CCObservation) string {
	return fmt.Sprintf("%s %.6f %.4f %s", o.StationID, o.Dtcc, o.Weight, o.Type)
}
