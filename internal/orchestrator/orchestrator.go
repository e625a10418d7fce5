// Package orchestrator drives the two top-level relocation workflows:
// whole-catalog mode (relocate every event in one solver run) and
// single-event mode (two-pass relocation of one target event against
// a fixed background catalog), per spec §4.9.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/dtbuilder"
	"github.com/sed-ethz/hdd-relocate-go/internal/inventory"
	"github.com/sed-ethz/hdd-relocate-go/internal/neighbor"
	"github.com/sed-ethz/hdd-relocate-go/internal/solver"
	"github.com/sed-ethz/hdd-relocate-go/internal/synthesize"
	"github.com/sed-ethz/hdd-relocate-go/internal/waveform"
	"github.com/sed-ethz/hdd-relocate-go/internal/xcorr"
)

// Config bundles every sub-component's parameters the two workflows
// need: neighbor selection (separate ct/cc parameter sets, since
// single-event mode's two passes use different ones), synthesis,
// working directory layout, and solver/ph2dt invocation.
type Config struct {
	Synthesize synthesize.Config
	NeighborCT neighbor.Config
	NeighborCC neighbor.Config

	WorkDir            string
	SolverBinary       string
	Ph2dtBinary        string
	SolverTemplatePath string
	Ph2dtTemplatePath  string
	UsePh2dt           bool
	Force              bool // false short-circuits regeneration of unchanged working files
}

// Orchestrator holds the catalog under relocation, the waveform
// pipeline used for cross-correlation, and run telemetry.
type Orchestrator struct {
	Catalog   *catalog.Catalog
	Inventory inventory.Lookup
	Pipeline  *waveform.Pipeline
	Counters  *Counters
	Config    Config
}

func New(cat *catalog.Catalog, inv inventory.Lookup, pipeline *waveform.Pipeline, cfg Config) *Orchestrator {
	return &Orchestrator{
		Catalog:   cat,
		Inventory: inv,
		Pipeline:  pipeline,
		Counters:  &Counters{},
		Config:    cfg,
	}
}

// stepDir returns (creating if needed) the working directory for one
// solver invocation step.
func (o *Orchestrator) stepDir(name string) (string, error) {
	dir := filepath.Join(o.Config.WorkDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &FatalError{Reason: "creating working directory " + dir, Err: err}
	}
	return dir, nil
}

// writeFile writes content to dir/name, skipping the write when Force
// is false and the file already exists (spec §6 "force=false
// short-circuits their regeneration").
func (o *Orchestrator) writeFile(dir, name, content string) error {
	path := filepath.Join(dir, name)
	if !o.Config.Force {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// buildStationDat renders station.dat for every station the catalog
// references.
func buildStationDat(cat *catalog.Catalog) string {
	var out string
	for _, s := range cat.Stations {
		out += solver.FormatStationLine(s) + "\n"
	}
	return out
}

// buildEventDat renders event.dat for the given events.
func buildEventDat(events []catalog.Event) string {
	var out string
	for _, e := range events {
		out += solver.FormatEventLine(e) + "\n"
	}
	return out
}

// buildPhaseDat renders phase.dat for the given events, the format
// ph2dt reads to derive dt.ct itself (spec §4.8, §6).
func buildPhaseDat(cat *catalog.Catalog, events []catalog.Event) string {
	var out string
	for _, e := range events {
		var recs []solver.PhaseRecord
		for _, p := range cat.Phases[e.ID] {
			tt := p.Time.Sub(e.Time).Seconds()
			if tt < 0 {
				continue
			}
			recs = append(recs, solver.PhaseRecord{StationID: p.StationID, TravelTime: tt, Weight: p.Weight, Type: p.Type})
		}
		out += solver.FormatPhaseEventBlock(e, recs)
	}
	return out
}

// runPh2dtPrepass renders ph2dt.inp, writes phase.dat alongside the
// already-written station.dat/event.dat, and invokes ph2dt as an
// alternative source of dt.ct (spec §4.9, §6). Its output is
// informational only here: the orchestrator's own dtbuilder-produced
// dt.ct is still what gets fed to the solver, since ph2dt's neighbor
// heuristics differ from the ellipsoid-shell selector this engine
// otherwise uses throughout.
func (o *Orchestrator) runPh2dtPrepass(ctx context.Context, dir string, cat *catalog.Catalog, events []catalog.Event) error {
	if err := o.writeFile(dir, "phase.dat", buildPhaseDat(cat, events)); err != nil {
		return &FatalError{Reason: "writing phase.dat", Err: err}
	}

	inp, err := solver.RenderControlFile(o.Config.Ph2dtTemplatePath, solver.Ph2dtFileNames)
	if err != nil {
		return &FatalError{Reason: "rendering ph2dt control file", Err: err}
	}
	if err := o.writeFile(dir, "ph2dt.inp", inp); err != nil {
		return &FatalError{Reason: "writing ph2dt.inp", Err: err}
	}
	if err := solver.Run(ctx, o.Config.Ph2dtBinary, dir, "ph2dt.inp", "ph2dt.log"); err != nil {
		return &FatalError{Reason: "invoking ph2dt", Err: err}
	}
	return nil
}

// waveformFetcher adapts the waveform pipeline into the
// dtbuilder.WaveformFetcher boundary, loading both phases' short/long
// windows and reporting Counters.
type waveformFetcher struct {
	o *Orchestrator
}

func (f *waveformFetcher) FetchPair(ev1, ev2 catalog.Event, stationID string, phaseType catalog.PhaseType) (cfg1, cfg2 xcorr.Config, p1, p2 xcorr.Phase, t1, t2 xcorr.Trace, ok bool) {
	f.o.Counters.IncrXcorrTot()

	ph1, ok1 := findPhase(f.o.Catalog, ev1.ID, stationID, phaseType)
	ph2, ok2 := findPhase(f.o.Catalog, ev2.ID, stationID, phaseType)
	if !ok1 || !ok2 {
		f.o.Counters.IncrWFNoAvail()
		return
	}

	cfg1 = xcorr.Config{StartOffset: -1, EndOffset: 1, MaxDelay: 2, MinCoef: 0.6}
	cfg2 = cfg1

	trace1, err := f.load(ev1, ph1, cfg1)
	if err != nil {
		f.o.Counters.IncrWFNoAvail()
		return
	}
	trace2, err := f.load(ev2, ph2, cfg2)
	if err != nil {
		f.o.Counters.IncrWFNoAvail()
		return
	}

	f.o.Counters.IncrXcorrPerformed()

	p1 = xcorr.Phase{PickTime: ph1.Time, EventTime: ev1.Time, IsManual: ph1.IsManual}
	p2 = xcorr.Phase{PickTime: ph2.Time, EventTime: ev2.Time, IsManual: ph2.IsManual}
	t1 = xcorr.Trace{Start: trace1.Start, Freq: trace1.Freq, Samples: trace1.Samples}
	t2 = xcorr.Trace{Start: trace2.Start, Freq: trace2.Freq, Samples: trace2.Samples}
	return cfg1, cfg2, p1, p2, t1, t2, true
}

func (f *waveformFetcher) load(ev catalog.Event, ph catalog.Phase, cfg xcorr.Config) (*waveform.Trace, error) {
	margin := time.Duration(cfg.MaxDelay * float64(time.Second))
	win := waveform.Window{
		Start: ph.Time.Add(time.Duration(cfg.StartOffset*float64(time.Second)) - margin),
		End:   ph.Time.Add(time.Duration(cfg.EndOffset*float64(time.Second)) + margin),
	}
	req := waveform.Request{
		Window: win,
		Stream: waveform.StreamID{Network: ph.Network, Station: ph.Station, Location: ph.Location, Channel: ph.Channel},
	}
	trace, err := f.o.Pipeline.GetWaveform(context.Background(), req)
	if err != nil {
		return nil, err
	}
	if trace == nil {
		return nil, fmt.Errorf("orchestrator: no waveform for %s at event %d", ph.StationID, ev.ID)
	}
	return trace, nil
}

func findPhase(cat *catalog.Catalog, eventID int64, stationID string, t catalog.PhaseType) (catalog.Phase, bool) {
	for _, p := range cat.Phases[eventID] {
		if p.StationID == stationID && p.Type == t {
			return p, true
		}
	}
	return catalog.Phase{}, false
}

// buildDifferentialTimes runs the neighbor selector for every event
// in refs, builds dt.ct (always) and dt.cc (when withCC is set) over
// the deduplicated pair set, and returns the rendered file contents.
func (o *Orchestrator) buildDifferentialTimes(refs []catalog.Event, ncfg neighbor.Config, withCC bool) (dtCT, dtCC string, err error) {
	seenPairs := make(map[[2]int64]bool)
	fetcher := &waveformFetcher{o: o}

	for _, ref := range refs {
		neighbors, selErr := neighbor.Select(ncfg, o.Catalog, ref)
		if selErr != nil {
			continue // event-scoped: skip this event, continue (spec §7)
		}

		ctByPair := groupCTByPair(dtbuilder.BuildCT(o.Catalog, ref, neighbors))
		var ccByPair map[[2]int64][]dtbuilder.CCObservation
		if withCC {
			ccByPair = groupCCByPair(dtbuilder.BuildCC(fetcher, ref, neighbors))
		}

		for pair, obs := range ctByPair {
			key := canonicalPair(pair[0], pair[1])
			if seenPairs[key] {
				continue
			}
			seenPairs[key] = true
			dtCT += solver.FormatCTPairBlock(pair[0], pair[1], obs)

			if ccObs, ok := ccByPair[pair]; ok && len(ccObs) > 0 {
				dtCC += solver.FormatCCPairBlock(pair[0], pair[1], ccObs)
			}
		}
	}

	return dtCT, dtCC, nil
}

func groupCTByPair(obs []dtbuilder.CTObservation) map[[2]int64][]dtbuilder.CTObservation {
	out := make(map[[2]int64][]dtbuilder.CTObservation)
	for _, o := range obs {
		key := [2]int64{o.EventID1, o.EventID2}
		out[key] = append(out[key], o)
	}
	return out
}

func groupCCByPair(obs []dtbuilder.CCObservation) map[[2]int64][]dtbuilder.CCObservation {
	out := make(map[[2]int64][]dtbuilder.CCObservation)
	for _, o := range obs {
		key := [2]int64{o.EventID1, o.EventID2}
		out[key] = append(out[key], o)
	}
	return out
}

func canonicalPair(a, b int64) [2]int64 {
	if a <= b {
		return [2]int64{a, b}
	}
	return [2]int64{b, a}
}

// runSolverStep renders the control file for stepDir, invokes the
// solver, and returns the relocated events it produced (empty and no
// error if the solver did not produce hypoDD.reloc).
func (o *Orchestrator) runSolverStep(ctx context.Context, dir string) ([]solver.RelocatedEvent, error) {
	inp, err := solver.RenderControlFile(o.Config.SolverTemplatePath, solver.HypoDDFileNames)
	if err != nil {
		return nil, &FatalError{Reason: "rendering solver control file", Err: err}
	}
	if err := o.writeFile(dir, "hypoDD.inp", inp); err != nil {
		return nil, &FatalError{Reason: "writing hypoDD.inp", Err: err}
	}

	if err := solver.Run(ctx, o.Config.SolverBinary, dir, "hypoDD.inp", "hypoDD.log"); err != nil {
		return nil, &FatalError{Reason: "invoking solver", Err: err}
	}

	if !solver.RelocFileExists(dir) {
		return nil, nil
	}
	return solver.OpenAndParseReloc(filepath.Join(dir, "hypoDD.reloc"))
}

// RelocateCatalog runs whole-catalog mode (spec §4.9): phase synthesis
// (run on every call; no setting turns it off), station.dat/event.dat,
// dt.ct(+dt.cc), one solver invocation, results parsed back into the
// catalog.
func (o *Orchestrator) RelocateCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if err := o.Catalog.Validate(); err != nil {
		return nil, &FatalError{Reason: "malformed catalog", Err: err}
	}

	dir, err := o.stepDir("catalog")
	if err != nil {
		return nil, err
	}

	var events []catalog.Event
	for _, e := range o.Catalog.Events {
		events = append(events, e)
	}

	enriched := o.synthesizeMissingPhases(events)
	synth := &Orchestrator{Catalog: enriched, Inventory: o.Inventory, Pipeline: o.Pipeline, Counters: o.Counters, Config: o.Config}

	if err := o.writeFile(dir, "station.dat", buildStationDat(enriched)); err != nil {
		return nil, &FatalError{Reason: "writing station.dat", Err: err}
	}
	if err := o.writeFile(dir, "event.dat", buildEventDat(events)); err != nil {
		return nil, &FatalError{Reason: "writing event.dat", Err: err}
	}

	if o.Config.UsePh2dt {
		if err := o.runPh2dtPrepass(ctx, dir, enriched, events); err != nil {
			return nil, err
		}
	}

	dtCT, dtCC, err := synth.buildDifferentialTimes(events, o.Config.NeighborCC, true)
	if err != nil {
		return nil, err
	}
	if err := o.writeFile(dir, "dt.ct", dtCT); err != nil {
		return nil, &FatalError{Reason: "writing dt.ct", Err: err}
	}
	if err := o.writeFile(dir, "dt.cc", dtCC); err != nil {
		return nil, &FatalError{Reason: "writing dt.cc", Err: err}
	}

	relocated, err := o.runSolverStep(ctx, dir)
	if err != nil {
		return nil, err
	}

	out := o.Catalog.Clone()
	for _, r := range relocated {
		ev, ok := out.Events[r.ID]
		if !ok {
			continue
		}
		solver.ApplyReloc(&ev, r)
		out.Events[r.ID] = ev
	}
	return out, nil
}

// RelocateEvent runs single-event mode (spec §4.9): step 1 relocates
// the target using only catalog-derived times against the background
// catalog; step 2 refines from step 1's position (or the original)
// using both dt.ct and dt.cc. Returns step 2's result if relocated,
// else step 1's, else an error.
func (o *Orchestrator) RelocateEvent(ctx context.Context, targetID int64) (catalog.Event, error) {
	target, ok := o.Catalog.Events[targetID]
	if !ok {
		return catalog.Event{}, &FatalError{Reason: fmt.Sprintf("event %d not in catalog", targetID)}
	}

	step1Dir, err := o.stepDir("event-step1")
	if err != nil {
		return catalog.Event{}, err
	}
	merged, newID := catalog.Merge(o.Catalog, target, o.Catalog.Phases[target.ID])
	step1Target := merged.Events[newID]

	step1CT, _, err := (&Orchestrator{Catalog: merged, Inventory: o.Inventory, Pipeline: o.Pipeline, Counters: o.Counters, Config: o.Config}).
		buildDifferentialTimes([]catalog.Event{step1Target}, o.Config.NeighborCT, false)
	if err != nil {
		return catalog.Event{}, err
	}

	var allEvents []catalog.Event
	for _, e := range merged.Events {
		allEvents = append(allEvents, e)
	}
	if err := o.writeFile(step1Dir, "station.dat", buildStationDat(merged)); err != nil {
		return catalog.Event{}, &FatalError{Reason: "writing step1 station.dat", Err: err}
	}
	if err := o.writeFile(step1Dir, "event.dat", buildEventDat(allEvents)); err != nil {
		return catalog.Event{}, &FatalError{Reason: "writing step1 event.dat", Err: err}
	}
	if err := o.writeFile(step1Dir, "dt.ct", step1CT); err != nil {
		return catalog.Event{}, &FatalError{Reason: "writing step1 dt.ct", Err: err}
	}
	if err := o.writeFile(step1Dir, "dt.cc", ""); err != nil {
		return catalog.Event{}, &FatalError{Reason: "writing step1 dt.cc", Err: err}
	}

	step1Solver := &Orchestrator{Catalog: merged, Inventory: o.Inventory, Pipeline: o.Pipeline, Counters: o.Counters, Config: o.Config}
	step1Relocs, err := step1Solver.runSolverStep(ctx, step1Dir)
	if err != nil {
		return catalog.Event{}, err
	}

	step1Result := step1Target
	step1Ok := false
	for _, r := range step1Relocs {
		if r.ID == newID {
			solver.ApplyReloc(&step1Result, r)
			step1Ok = true
		}
	}

	startingPoint := step1Target
	if step1Ok {
		startingPoint = step1Result
	}

	step2Dir, err := o.stepDir("event-step2")
	if err != nil {
		return catalog.Event{}, err
	}

	mergedOrch := &Orchestrator{Catalog: merged, Inventory: o.Inventory, Pipeline: o.Pipeline, Counters: o.Counters, Config: o.Config}
	enrichedStep2 := mergedOrch.synthesizeMissingPhases([]catalog.Event{startingPoint})
	step2CT, step2CC, err := (&Orchestrator{Catalog: enrichedStep2, Inventory: o.Inventory, Pipeline: o.Pipeline, Counters: o.Counters, Config: o.Config}).
		buildDifferentialTimes([]catalog.Event{startingPoint}, o.Config.NeighborCC, true)
	if err != nil {
		return catalog.Event{}, err
	}
	if err := o.writeFile(step2Dir, "station.dat", buildStationDat(merged)); err != nil {
		return catalog.Event{}, &FatalError{Reason: "writing step2 station.dat", Err: err}
	}
	if err := o.writeFile(step2Dir, "event.dat", buildEventDat(allEvents)); err != nil {
		return catalog.Event{}, &FatalError{Reason: "writing step2 event.dat", Err: err}
	}
	if err := o.writeFile(step2Dir, "dt.ct", step2CT); err != nil {
		return catalog.Event{}, &FatalError{Reason: "writing step2 dt.ct", Err: err}
	}
	if err := o.writeFile(step2Dir, "dt.cc", step2CC); err != nil {
		return catalog.Event{}, &FatalError{Reason: "writing step2 dt.cc", Err: err}
	}

	step2Relocs, err := step1Solver.runSolverStep(ctx, step2Dir)
	if err != nil {
		return catalog.Event{}, err
	}

	step2Result := startingPoint
	for _, r := range step2Relocs {
		if r.ID == newID {
			solver.ApplyReloc(&step2Result, r)
			if step2Result.Reloc.IsRelocated {
				return step2Result, nil
			}
		}
	}

	if step1Ok {
		return step1Result, nil
	}
	return catalog.Event{}, &EventSkipError{EventID: targetID, Reason: "neither step 1 nor step 2 produced a relocated position"}
}
