package waveform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RelativeWindow is a time span expressed as offsets from a pick
// time, e.g. NoiseWindow{-5s, -1s} means "4 seconds ending 1 second
// before the pick".
type RelativeWindow struct {
	StartOffset, EndOffset time.Duration
}

// FilterSpec is the processing configuration for one phase type:
// resampling target, a string-described digital filter, and the SNR
// gate windows (spec §4.4).
type FilterSpec struct {
	ResampleFreq float64 // Hz, 0 = no resampling
	Descriptor   string  // e.g. "BP 2 0.5 8" (bandpass, poles, f_lo, f_hi)
	MinSNR       float64
	NoiseWindow  RelativeWindow
	SignalWindow RelativeWindow
}

// Filter is a single-pole-section digital filter built once per
// pipeline call from a FilterSpec.Descriptor and applied with Apply.
type Filter struct {
	kind      string
	poles     int
	lowHz     float64
	highHz    float64
}

// NewFilter parses a descriptor string of the form
// "BP <poles> <lowHz> <highHz>", "LP <poles> <hz>" or
// "HP <poles> <hz>" into a Filter. An empty descriptor yields a nil,
// no-op filter.
func NewFilter(descriptor string) (*Filter, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, nil
	}
	fields := strings.Fields(descriptor)
	if len(fields) < 2 {
		return nil, fmt.Errorf("waveform: invalid filter descriptor %q", descriptor)
	}

	kind := strings.ToUpper(fields[0])
	poles, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("waveform: invalid filter pole count in %q: %w", descriptor, err)
	}

	f := &Filter{kind: kind, poles: poles}
	switch kind {
	case "BP":
		if len(fields) < 4 {
			return nil, fmt.Errorf("waveform: bandpass filter needs low/high corners: %q", descriptor)
		}
		f.lowHz, err = strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, err
		}
		f.highHz, err = strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, err
		}
	case "LP", "HP":
		if len(fields) < 3 {
			return nil, fmt.Errorf("waveform: %s filter needs a corner frequency: %q", kind, descriptor)
		}
		f.highHz, err = strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("waveform: unknown filter kind %q", kind)
	}
	return f, nil
}

// Apply runs the filter on t in place via cascaded one-pole
// Butterworth-style sections, one section per pole (one high-pass and
// one low-pass section per pole for BP), applied as a single forward
// pass, and returns t for chaining.
func (f *Filter) Apply(t *Trace) *Trace {
	if f == nil || len(t.Samples) == 0 {
		return t
	}
	switch f.kind {
	case "LP":
		for i := 0; i < f.poles; i++ {
			onePoleLowPass(t.Samples, f.highHz, t.Freq)
		}
	case "HP":
		for i := 0; i < f.poles; i++ {
			onePoleHighPass(t.Samples, f.highHz, t.Freq)
		}
	case "BP":
		for i := 0; i < f.poles; i++ {
			onePoleHighPass(t.Samples, f.lowHz, t.Freq)
			onePoleLowPass(t.Samples, f.highHz, t.Freq)
		}
	}
	return t
}

func onePoleLowPass(samples []float64, cutoffHz, fs float64) {
	if cutoffHz <= 0 || cutoffHz >= fs/2 {
		return
	}
	dt := 1.0 / fs
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	alpha := dt / (rc + dt)
	prev := samples[0]
	for i := range samples {
		prev = prev + alpha*(samples[i]-prev)
		samples[i] = prev
	}
}

func onePoleHighPass(samples []float64, cutoffHz, fs float64) {
	if cutoffHz <= 0 || cutoffHz >= fs/2 {
		return
	}
	dt := 1.0 / fs
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	alpha := rc / (rc + dt)
	prevIn := samples[0]
	prevOut := 0.0
	for i := range samples {
		out := alpha * (prevOut + samples[i] - prevIn)
		prevIn = samples[i]
		prevOut = out
		samples[i] = out
	}
}

// S2Nratio computes max|signal| / max|noise| over the two sub-windows
// of t, measured relative to pickTime. Returns -1 if either window
// falls outside t's bounds, per spec §8.
func S2Nratio(t *Trace, pickTime time.Time, noise, signal RelativeWindow) float64 {
	noiseW := Window{Start: pickTime.Add(noise.StartOffset), End: pickTime.Add(noise.EndOffset)}
	signalW := Window{Start: pickTime.Add(signal.StartOffset), End: pickTime.Add(signal.EndOffset)}

	noisePeak, ok1 := peakAbs(t, noiseW)
	signalPeak, ok2 := peakAbs(t, signalW)
	if !ok1 || !ok2 || noisePeak == 0 {
		return -1
	}
	return signalPeak / noisePeak
}

func peakAbs(t *Trace, w Window) (float64, bool) {
	sub, err := t.Trim(w)
	if err != nil {
		return 0, false
	}
	var peak float64
	for _, s := range sub.Samples {
		a := math.Abs(s)
		if a > peak {
			peak = a
		}
	}
	return peak, true
}
