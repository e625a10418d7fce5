package waveform

import (
	"errors"
	"fmt"
	"math"

	"github.com/sed-ethz/hdd-relocate-go/internal/inventory"
)

// ProjectionKind identifies which rotation, if any, getWaveform must
// apply before a trace can be matched against a phase's requested
// channel (spec §4.4 step 3).
type ProjectionKind int

const (
	NoProjection ProjectionKind = iota
	ProjectZNE
	ProjectZRT
)

// DetermineProjection decides the projection required for channel,
// given the sensor's native 3-component set. A channel matching one
// of the native codes needs no projection; otherwise the orientation
// suffix (Z/N/E vs R/T) picks ZNE or ZRT. Any other suffix is a fatal
// error for that request (spec §4.4 step 3).
func DetermineProjection(channel string, loc *inventory.SensorLocation) (ProjectionKind, error) {
	z, c1, c2, ok := loc.NativeComponents()
	if !ok {
		return NoProjection, fmt.Errorf("waveform: sensor location has no usable 3-component set")
	}
	if channel == z.Code || channel == c1.Code || channel == c2.Code {
		return NoProjection, nil
	}

	if len(channel) == 0 {
		return NoProjection, errors.New("waveform: empty channel code")
	}
	switch channel[len(channel)-1] {
	case 'Z', 'N', 'E':
		return ProjectZNE, nil
	case 'R', 'T':
		return ProjectZRT, nil
	default:
		return NoProjection, fmt.Errorf("waveform: unsupported channel orientation suffix in %q", channel)
	}
}

// ProjectZNEComponents rotates three native components (vertical,
// horizontal1, horizontal2, with known azimuth/dip) into standard
// Z/N/E traces, sample-aligned. Requires all three to already share a
// common sampling frequency and start time.
func ProjectZNEComponents(z, h1, h2 Trace, zComp, h1Comp, h2Comp inventory.Component) (zOut, nOut, eOut Trace, err error) {
	n := z.Len()
	if h1.Len() != n || h2.Len() != n {
		return Trace{}, Trace{}, Trace{}, errors.New("waveform: unaligned components for ZNE projection")
	}
	if z.Freq != h1.Freq || z.Freq != h2.Freq {
		return Trace{}, Trace{}, Trace{}, errSamplingMismatch
	}

	zSign := 1.0
	if zComp.Dip > 0 {
		zSign = -1.0 // positive dip points down; Z is up-positive
	}

	a1 := h1Comp.Azimuth * math.Pi / 180
	a2 := h2Comp.Azimuth * math.Pi / 180

	nSamples := make([]float64, n)
	eSamples := make([]float64, n)
	zSamples := make([]float64, n)
	// Solve the 2x2 system [cos a1 sin a1; cos a2 sin a2] * [N;E] = [h1;h2]
	// per sample.
	det := math.Cos(a1)*math.Sin(a2) - math.Cos(a2)*math.Sin(a1)
	for i := 0; i < n; i++ {
		zSamples[i] = z.Samples[i] * zSign
		if math.Abs(det) < 1e-9 {
			nSamples[i] = h1.Samples[i]
			eSamples[i] = h2.Samples[i]
			continue
		}
		nSamples[i] = (h1.Samples[i]*math.Sin(a2) - h2.Samples[i]*math.Sin(a1)) / det
		eSamples[i] = (math.Cos(a1)*h2.Samples[i] - math.Cos(a2)*h1.Samples[i]) / det
	}

	base := StreamID{Network: z.ID.Network, Station: z.ID.Station, Location: z.ID.Location}
	zID, nID, eID := base, base, base
	zID.Channel, nID.Channel, eID.Channel = channelWithSuffix(z.ID.Channel, 'Z'), channelWithSuffix(z.ID.Channel, 'N'), channelWithSuffix(z.ID.Channel, 'E')

	zOut = Trace{ID: zID, Start: z.Start, Freq: z.Freq, Samples: zSamples}
	nOut = Trace{ID: nID, Start: z.Start, Freq: z.Freq, Samples: nSamples}
	eOut = Trace{ID: eID, Start: z.Start, Freq: z.Freq, Samples: eSamples}
	return zOut, nOut, eOut, nil
}

// ProjectZRTComponents rotates a North/East pair into radial/transverse using
// back-azimuth + 180 degrees (spec §4.4 step 3: "compose a
// back-azimuth rotation baz+180 with the ZNE orthogonalization").
func ProjectZRTComponents(n, e Trace, backAzimuthDeg float64) (radial, transverse Trace, err error) {
	if n.Len() != e.Len() || n.Freq != e.Freq {
		return Trace{}, Trace{}, errSamplingMismatch
	}
	theta := (backAzimuthDeg + 180) * math.Pi / 180
	cosT, sinT := math.Cos(theta), math.Sin(theta)

	rSamples := make([]float64, n.Len())
	tSamples := make([]float64, n.Len())
	for i := range rSamples {
		rSamples[i] = n.Samples[i]*cosT + e.Samples[i]*sinT
		tSamples[i] = -n.Samples[i]*sinT + e.Samples[i]*cosT
	}

	rID, tID := n.ID, n.ID
	rID.Channel, tID.Channel = channelWithSuffix(n.ID.Channel, 'R'), channelWithSuffix(n.ID.Channel, 'T')
	radial = Trace{ID: rID, Start: n.Start, Freq: n.Freq, Samples: rSamples}
	transverse = Trace{ID: tID, Start: n.Start, Freq: n.Freq, Samples: tSamples}
	return radial, transverse, nil
}

func channelWithSuffix(channel string, suffix byte) string {
	if channel == "" {
		return string(suffix)
	}
	return channel[:len(channel)-1] + string(suffix)
}
