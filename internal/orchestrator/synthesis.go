package orchestrator

import (
	"context"
	"time"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/synthesize"
	"github.com/sed-ethz/hdd-relocate-go/internal/waveform"
	"github.com/sed-ethz/hdd-relocate-go/internal/xcorr"
)

// synthesizeMissingPhases runs the artificial-phase synthesizer (spec
// §4.2) for every (event, station, missing type) combination in the
// given events, appending any successfully synthesized phase to a
// cloned catalog. Failures to find enough candidates or to clear
// minCoef are silently skipped — synthesis is a best-effort
// enrichment step, not a required one.
func (o *Orchestrator) synthesizeMissingPhases(events []catalog.Event) *catalog.Catalog {
	out := o.Catalog.Clone()

	for _, ref := range events {
		for stationID := range out.Stations {
			for _, phaseType := range []catalog.PhaseType{catalog.PhaseP, catalog.PhaseS} {
				if o.hasUsablePhase(out, ref.ID, stationID, phaseType) {
					continue
				}

				candidates := synthesize.SelectCandidates(o.Config.Synthesize, out, ref, stationID, phaseType)
				if len(candidates) == 0 {
					continue
				}

				result, nearest, err := o.runSynthesis(out, ref, stationID, phaseType, candidates)
				if err != nil {
					continue
				}

				out.Phases[ref.ID] = append(out.Phases[ref.ID], catalog.Phase{
					EventID:   ref.ID,
					StationID: stationID,
					Type:      phaseType,
					RawType:   string(phaseType),
					Time:      result.Time,
					Weight:    result.Weight,
					IsManual:  false,
					Network:   nearest.Phase.Network,
					Station:   nearest.Phase.Station,
					Location:  nearest.Phase.Location,
					Channel:   nearest.Phase.Channel,
				})
			}
		}
	}

	return out
}

func (o *Orchestrator) hasUsablePhase(cat *catalog.Catalog, eventID int64, stationID string, t catalog.PhaseType) bool {
	for _, p := range cat.Phases[eventID] {
		if p.StationID != stationID || p.Type != t {
			continue
		}
		if o.Config.Synthesize.FixAutoPhase && !p.IsManual {
			continue // automatic picks on R also count as missing
		}
		return true
	}
	return false
}

func (o *Orchestrator) runSynthesis(cat *catalog.Catalog, ref catalog.Event, stationID string, phaseType catalog.PhaseType, candidates []synthesize.Candidate) (synthesize.Result, synthesize.Candidate, error) {
	start, end := synthesize.SearchWindow(o.Config.Synthesize, ref.Time, candidates)

	nearest := nearestCandidateTo(candidates, ref.Time)
	refTrace, err := o.Pipeline.GetWaveform(context.Background(), waveform.Request{
		Window: waveform.Window{Start: start, End: end},
		Stream: waveform.StreamID{
			Network: nearest.Phase.Network, Station: nearest.Phase.Station,
			Location: nearest.Phase.Location, Channel: nearest.Phase.Channel,
		},
	})
	if err != nil || refTrace == nil {
		return synthesize.Result{}, nearest, err
	}

	for i := range candidates {
		ph := candidates[i].Phase
		margin := o.Config.Synthesize.XCorr.MaxDelay
		win := waveform.Window{
			Start: ph.Time.Add(time.Duration(o.Config.Synthesize.XCorr.StartOffset*float64(time.Second)) - time.Duration(margin*float64(time.Second))),
			End:   ph.Time.Add(time.Duration(o.Config.Synthesize.XCorr.EndOffset*float64(time.Second)) + time.Duration(margin*float64(time.Second))),
		}
		candTrace, err := o.Pipeline.GetWaveform(context.Background(), waveform.Request{
			Window: win,
			Stream: waveform.StreamID{Network: ph.Network, Station: ph.Station, Location: ph.Location, Channel: ph.Channel},
		})
		if err != nil || candTrace == nil {
			continue
		}
		candidates[i].Trace = xcorr.Trace{Start: candTrace.Start, Freq: candTrace.Freq, Samples: candTrace.Samples}
	}

	result, err := synthesize.Synthesize(o.Config.Synthesize, xcorr.Trace{Start: refTrace.Start, Freq: refTrace.Freq, Samples: refTrace.Samples}, ref.Time, candidates)
	return result, nearest, err
}

func nearestCandidateTo(candidates []synthesize.Candidate, t time.Time) synthesize.Candidate {
	best := candidates[0]
	bestDiff := absDuration(best.Phase.Time.Sub(t))
	for _, c := range candidates[1:] {
		d := absDuration(c.Phase.Time.Sub(t))
		if d < bestDiff {
			best = c
			bestDiff = d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
