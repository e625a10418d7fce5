package waveform

import "math"

// Resample changes a trace's sampling frequency to targetFreq.
// Upsampling duplicates input sample floor(i*step) at each output
// index i (step = fsIn/fsOut < 1). Downsampling optionally averages
// the input samples [c-w, c+w) around each output sample's source
// index c = floor(i*step), with w = floor(step*0.5 + 0.5) (spec §4.4).
func (t *Trace) Resample(targetFreq float64, averageWhenDownsampling bool) *Trace {
	if targetFreq <= 0 || targetFreq == t.Freq || len(t.Samples) == 0 {
		return t
	}

	step := t.Freq / targetFreq
	outN := int(float64(len(t.Samples)) / step)
	out := make([]float64, outN)

	if step < 1 {
		// Upsampling: duplicate the input sample at or before i*step.
		for i := 0; i < outN; i++ {
			srcIdx := int(float64(i) * step)
			if srcIdx >= len(t.Samples) {
				srcIdx = len(t.Samples) - 1
			}
			out[i] = t.Samples[srcIdx]
		}
	} else {
		half := int(math.Floor(step*0.5 + 0.5))
		for i := 0; i < outN; i++ {
			center := int(float64(i) * step)
			if !averageWhenDownsampling || half <= 0 {
				if center >= len(t.Samples) {
					center = len(t.Samples) - 1
				}
				out[i] = t.Samples[center]
				continue
			}
			lo := center - half
			hi := center + half
			if lo < 0 {
				lo = 0
			}
			if hi > len(t.Samples) {
				hi = len(t.Samples)
			}
			var sum float64
			for j := lo; j < hi; j++ {
				sum += t.Samples[j]
			}
			out[i] = sum / float64(hi-lo)
		}
	}

	return &Trace{ID: t.ID, Start: t.Start, Freq: targetFreq, Samples: out}
}
