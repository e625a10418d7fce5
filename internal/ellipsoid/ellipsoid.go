// Package ellipsoid implements the prolate-spheroid shells and 8-way
// quadrant partition the neighbor selector uses to homogenize event
// sampling around a reference event (spec §3, §4.6).
package ellipsoid

import (
	"github.com/sed-ethz/hdd-relocate-go/internal/geodesy"
)

// Quadrant identifies one of the 8 subdomains around a reference
// event: {above, below} depth x {NE, NW, SW, SE} azimuth.
type Quadrant int

const (
	AboveNE Quadrant = iota
	AboveNW
	AboveSW
	AboveSE
	BelowNE
	BelowNW
	BelowSW
	BelowSE
	numQuadrants = 8
)

// NumQuadrants is the fixed partition count (spec §3: "8 quadrants").
const NumQuadrants = numQuadrants

// Ellipsoid is a prolate spheroid centered at a reference event.
// len is the full axis length (spec calls it "len"); the horizontal
// semi-axes a (E-W) and b (N-S) are each len/2, and the vertical
// semi-axis c is len.
type Ellipsoid struct {
	CenterLat, CenterLon, CenterDepth float64
	Len                               float64 // full axis length, km
}

// New constructs an Ellipsoid of the given full length centered on
// (lat, lon, depth).
func New(length, lat, lon, depth float64) Ellipsoid {
	return Ellipsoid{CenterLat: lat, CenterLon: lon, CenterDepth: depth, Len: length}
}

func (e Ellipsoid) semiAxis() float64 { return e.Len / 2 }

// offsetKm returns the signed east-west, north-south and depth offsets,
// in km, of (lat, lon, depth) from the ellipsoid's center (positive
// toward east, north and greater depth).
func (e Ellipsoid) offsetKm(lat, lon, depth float64) (dEW, dNS, dDepth float64) {
	// East-west and north-south offsets approximated via great-circle
	// legs along each axis, matching the original's flat local frame.
	dNS = geodesy.SurfaceDistanceKm(e.CenterLat, e.CenterLon, lat, e.CenterLon)
	if lat < e.CenterLat {
		dNS = -dNS
	}
	dEW = geodesy.SurfaceDistanceKm(e.CenterLat, e.CenterLon, e.CenterLat, lon)
	if lon < e.CenterLon {
		dEW = -dEW
	}
	dDepth = depth - e.CenterDepth
	return
}

// IsInside reports whether (lat, lon, depth) lies within the
// ellipsoid. A radius-0 ellipsoid (Len == 0) contains nothing, per
// spec §8 boundary cases.
func (e Ellipsoid) IsInside(lat, lon, depth float64) bool {
	if e.Len <= 0 {
		return false
	}
	a := e.semiAxis()
	c := e.Len
	dEW, dNS, dDepth := e.offsetKm(lat, lon, depth)
	val := (dEW/a)*(dEW/a) + (dNS/a)*(dNS/a) + (dDepth/c)*(dDepth/c)
	return val <= 1.0
}

// IsOutside is the complement of IsInside, except that a radius-0
// ellipsoid contains nothing and therefore IsOutside is true for
// every point (spec §8).
func (e Ellipsoid) IsOutside(lat, lon, depth float64) bool {
	return !e.IsInside(lat, lon, depth)
}

// QuadrantOf returns which of the 8 quadrants (lat, lon, depth) falls
// in, relative to the ellipsoid's center. The original rejects a
// point whose coordinate exactly equals the center along an axis for
// some quadrants (spec §9 open question); this is preserved here: the
// azimuth/depth comparisons use strict inequalities, so an
// exactly-equal coordinate does not match ANY of the four azimuth
// quadrants (ok=false), and a depth tie falls on the "below" side,
// since only a strictly shallower point counts as above.
func (e Ellipsoid) QuadrantOf(lat, lon, depth float64) (q Quadrant, ok bool) {
	dEW, dNS, dDepth := e.offsetKm(lat, lon, depth)

	above := dDepth < 0 // shallower than center

	var az int // 0=NE,1=NW,2=SW,3=SE
	switch {
	case dNS > 0 && dEW > 0:
		az = 0
	case dNS > 0 && dEW < 0:
		az = 1
	case dNS < 0 && dEW < 0:
		az = 2
	case dNS < 0 && dEW > 0:
		az = 3
	default:
		// dNS == 0 or dEW == 0: falls exactly on an axis, matches no
		// quadrant (preserves the original's edge-case rejection).
		return 0, false
	}

	if above {
		return Quadrant(az), true
	}
	return Quadrant(az + 4), true
}

// NextShellLength doubles length up to maxSize (spec §4.6: "each
// outer shell is the previous shell doubled in characteristic size,
// up to maxEllipsoidSize").
func NextShellLength(length, maxSize float64) float64 {
	next := length * 2
	if next > maxSize {
		return maxSize
	}
	return next
}

// Shells builds numEllipsoids concentric shell lengths centered
// implicitly at the reference event, shell 0 being a degenerate point
// (Len==0, selects nothing via IsInside, everything via IsOutside).
// Each subsequent shell doubles the previous one's length up to
// maxSize.
func Shells(numEllipsoids int, initialLen, maxSize float64) []float64 {
	if numEllipsoids <= 0 {
		return nil
	}
	lens := make([]float64, numEllipsoids)
	lens[0] = 0
	if numEllipsoids == 1 {
		return lens
	}
	lens[1] = initialLen
	for i := 2; i < numEllipsoids; i++ {
		lens[i] = NextShellLength(lens[i-1], maxSize)
	}
	return lens
}
