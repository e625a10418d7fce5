// Package geodesy provides great-circle distance, azimuth and
// depth-corrected 3D distance calculations used throughout the
// relocation pipeline.
package geodesy

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean radius of the Earth in kilometers.
const EarthRadiusKm = 6371.0

// SurfaceDistanceKm returns the great-circle distance in kilometers
// between two lat/lon points in degrees.
func SurfaceDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// Azimuth returns the initial bearing in degrees (0-360, 0 = north)
// from point 1 to point 2.
func Azimuth(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x) * 180 / math.Pi

	return math.Mod(bearing+360, 360)
}

// BackAzimuth returns the azimuth from point 2 back to point 1, i.e.
// the azimuth a station would measure looking toward the event.
func BackAzimuth(lat1, lon1, lat2, lon2 float64) float64 {
	return Azimuth(lat2, lon2, lat1, lon1)
}

// Distance3D returns the depth-corrected 3D distance in kilometers
// between two points, combining great-circle surface distance and the
// (flat-earth) vertical separation. Depths are positive-downward in
// kilometers, matching the catalog model's convention.
//
// azimuth and backAzimuth are also returned since most callers that
// need the 3D distance need the bearing too (mirrors the original's
// combined computeDistance call).
func Distance3D(lat1, lon1, depth1, lat2, lon2, depth2 float64) (dist, azimuth, backAzimuth float64) {
	hdist := SurfaceDistanceKm(lat1, lon1, lat2, lon2)
	azimuth = Azimuth(lat1, lon1, lat2, lon2)
	backAzimuth = Azimuth(lat2, lon2, lat1, lon1)

	if depth1 == depth2 {
		return hdist, azimuth, backAzimuth
	}

	vdist := math.Abs(depth1 - depth2)
	return math.Sqrt(hdist*hdist + vdist*vdist), azimuth, backAzimuth
}

// ElevationToDepthKm converts a station elevation in meters (positive up)
// to the depth-km convention used by the catalog (positive down).
func ElevationToDepthKm(elevationMeters float64) float64 {
	return -elevationMeters / 1000.0
}
