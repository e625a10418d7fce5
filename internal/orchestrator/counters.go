package orchestrator

import "sync"

// Counters is the telemetry surface spec §7 requires: request/pair-
// scoped outcome tallies accumulated across one relocation run. Safe
// for concurrent use since waveform loads can be dispatched from
// multiple goroutines.
type Counters struct {
	mu sync.Mutex

	XcorrTot       int
	XcorrPerformed int
	XcorrCCGood    int
	XcorrCCLow     int
	SNRLow         int
	WFNoAvail      int
}

func (c *Counters) incr(field *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*field++
}

func (c *Counters) IncrXcorrTot()       { c.incr(&c.XcorrTot) }
func (c *Counters) IncrXcorrPerformed() { c.incr(&c.XcorrPerformed) }
func (c *Counters) IncrXcorrCCGood()    { c.incr(&c.XcorrCCGood) }
func (c *Counters) IncrXcorrCCLow()     { c.incr(&c.XcorrCCLow) }
func (c *Counters) IncrSNRLow()         { c.incr(&c.SNRLow) }
func (c *Counters) IncrWFNoAvail()      { c.incr(&c.WFNoAvail) }

// Snapshot returns a copy of the current counter values.
func (c *Counters) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{
		XcorrTot:       c.XcorrTot,
		XcorrPerformed: c.XcorrPerformed,
		XcorrCCGood:    c.XcorrCCGood,
		XcorrCCLow:     c.XcorrCCLow,
		SNRLow:         c.SNRLow,
		WFNoAvail:      c.WFNoAvail,
	}
}
