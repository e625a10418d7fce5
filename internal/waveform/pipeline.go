package waveform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sed-ethz/hdd-relocate-go/internal/inventory"
)

// Request describes one getWaveform call: the requested window, the
// stream to read (already resolved to net/sta/loc/chan), the pick
// time driving SNR sub-windows, and the processing spec to apply.
type Request struct {
	Window         Window
	Stream         StreamID
	PickTime       time.Time
	Spec           FilterSpec
	CheckSNR       bool
	BackAzimuthDeg float64 // event-to-station back-azimuth, needed only for ZRT projection
}

// Cache bundles the memoization and permanent-exclusion tables
// getWaveform consults before doing any work (spec §4.4 steps 1-2).
// Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	mem      map[string]*Trace
	excluded map[string]struct{}
}

func NewCache() *Cache {
	return &Cache{
		mem:      make(map[string]*Trace),
		excluded: make(map[string]struct{}),
	}
}

func (c *Cache) get(fingerprint string) (*Trace, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.mem[fingerprint]
	return t, ok
}

func (c *Cache) isExcluded(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.excluded[fingerprint]
	return ok
}

func (c *Cache) exclude(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.excluded[fingerprint] = struct{}{}
}

func (c *Cache) put(fingerprint string, t *Trace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[fingerprint] = t
}

// Pipeline implements getWaveform (spec §4.4): memoized fetch,
// optional 3-component projection, demean/resample/filter, SNR
// gating, and final trim to the requested window.
type Pipeline struct {
	Inventory    inventory.Lookup
	Source       StreamSource
	DiskCache    *DiskCache
	UseDiskCache bool
	Cache        *Cache
}

// GetWaveform runs the full pipeline for req, returning nil with no
// error when the trace is permanently excluded (low SNR, no data,
// unmergeable records) rather than treating that as fatal.
func (p *Pipeline) GetWaveform(ctx context.Context, req Request) (*Trace, error) {
	fingerprint := Fingerprint(req.Stream, req.Window)

	if cached, ok := p.Cache.get(fingerprint); ok {
		return cached, nil
	}
	if p.Cache.isExcluded(fingerprint) {
		return nil, nil
	}

	loc, err := p.Inventory.FindSensorLocation(req.Stream.Network, req.Stream.Station, req.Stream.Location, req.Window.Start)
	if err != nil {
		return nil, fmt.Errorf("waveform: inventory lookup for %s: %w", req.Stream, err)
	}

	projection, err := DetermineProjection(req.Stream.Channel, loc)
	if err != nil {
		return nil, err
	}

	loadWindow := expandForSNR(req)

	trace, err := p.loadTrace(ctx, req, loc, projection, loadWindow)
	if err != nil {
		p.Cache.exclude(fingerprint)
		return nil, nil
	}

	trace.Demean()
	if req.Spec.ResampleFreq > 0 {
		trace = trace.Resample(req.Spec.ResampleFreq, true)
	}
	filter, err := NewFilter(req.Spec.Descriptor)
	if err != nil {
		return nil, err
	}
	filter.Apply(trace)

	if req.CheckSNR {
		s2n := S2Nratio(trace, req.PickTime, req.Spec.NoiseWindow, req.Spec.SignalWindow)
		if s2n < req.Spec.MinSNR {
			p.Cache.exclude(fingerprint)
			return nil, nil
		}
	}

	trimmed, err := trace.Trim(req.Window)
	if err != nil {
		p.Cache.exclude(fingerprint)
		return nil, nil
	}

	p.Cache.put(fingerprint, trimmed)
	return trimmed, nil
}

// expandForSNR widens the load window to cover both the requested
// window and the configured SNR sub-windows (spec §4.4 step 4).
func expandForSNR(req Request) Window {
	w := req.Window
	if !req.CheckSNR {
		return w
	}
	noiseAbs := Window{
		Start: req.PickTime.Add(req.Spec.NoiseWindow.StartOffset),
		End:   req.PickTime.Add(req.Spec.NoiseWindow.EndOffset),
	}
	signalAbs := Window{
		Start: req.PickTime.Add(req.Spec.SignalWindow.StartOffset),
		End:   req.PickTime.Add(req.Spec.SignalWindow.EndOffset),
	}
	return w.Union(noiseAbs).Union(signalAbs)
}

func (p *Pipeline) loadTrace(ctx context.Context, req Request, loc *inventory.SensorLocation, projection ProjectionKind, loadWindow Window) (*Trace, error) {
	if projection == NoProjection {
		return Load(ctx, p.Source, p.DiskCache, p.UseDiskCache, req.Stream, loadWindow)
	}

	z, c1, c2, ok := loc.NativeComponents()
	if !ok {
		return nil, fmt.Errorf("waveform: no native 3-component set for %s", req.Stream)
	}

	zID := req.Stream
	zID.Channel = z.Code
	c1ID := req.Stream
	c1ID.Channel = c1.Code
	c2ID := req.Stream
	c2ID.Channel = c2.Code

	zTrace, err := Load(ctx, p.Source, p.DiskCache, p.UseDiskCache, zID, loadWindow)
	if err != nil {
		return nil, err
	}
	c1Trace, err := Load(ctx, p.Source, p.DiskCache, p.UseDiskCache, c1ID, loadWindow)
	if err != nil {
		return nil, err
	}
	c2Trace, err := Load(ctx, p.Source, p.DiskCache, p.UseDiskCache, c2ID, loadWindow)
	if err != nil {
		return nil, err
	}

	zOut, nOut, eOut, err := ProjectZNEComponents(*zTrace, *c1Trace, *c2Trace, z, c1, c2)
	if err != nil {
		return nil, err
	}

	if projection == ProjectZNE {
		switch req.Stream.Channel[len(req.Stream.Channel)-1] {
		case 'Z':
			return &zOut, nil
		case 'N':
			return &nOut, nil
		default:
			return &eOut, nil
		}
	}

	radial, transverse, err := ProjectZRTComponents(nOut, eOut, req.BackAzimuthDeg)
	if err != nil {
		return nil, err
	}
	if req.Stream.Channel[len(req.Stream.Channel)-1] == 'R' {
		return &radial, nil
	}
	return &transverse, nil
}
