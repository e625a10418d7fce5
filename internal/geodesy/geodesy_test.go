package geodesy

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSurfaceDistanceKmZeroForSamePoint(t *testing.T) {
	if d := SurfaceDistanceKm(10, 20, 10, 20); d != 0 {
		t.Fatalf("expected 0 distance for identical points, got %v", d)
	}
}

func TestSurfaceDistanceKmOneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111.2km regardless of longitude.
	d := SurfaceDistanceKm(0, 0, 1, 0)
	if !almostEqual(d, 111.2, 0.5) {
		t.Fatalf("expected ~111.2km for one degree of latitude, got %v", d)
	}
}

func TestAzimuthNorth(t *testing.T) {
	az := Azimuth(0, 0, 1, 0)
	if !almostEqual(az, 0, 0.01) {
		t.Fatalf("expected azimuth 0 (north) for a purely northward point, got %v", az)
	}
}

func TestAzimuthEast(t *testing.T) {
	az := Azimuth(0, 0, 0, 1)
	if !almostEqual(az, 90, 0.01) {
		t.Fatalf("expected azimuth 90 (east) for a purely eastward point, got %v", az)
	}
}

func TestBackAzimuthIsOppositeDirection(t *testing.T) {
	az := Azimuth(0, 0, 1, 0)
	baz := BackAzimuth(0, 0, 1, 0)
	// BackAzimuth(1,0 -> 0,0) should point due south (180).
	if !almostEqual(baz, math.Mod(az+180, 360), 0.01) {
		t.Fatalf("expected back-azimuth to be the opposite direction, got az=%v baz=%v", az, baz)
	}
}

func TestDistance3DSameDepthEqualsSurfaceDistance(t *testing.T) {
	dist, _, _ := Distance3D(0, 0, 5, 1, 0, 5)
	surf := SurfaceDistanceKm(0, 0, 1, 0)
	if !almostEqual(dist, surf, 1e-9) {
		t.Fatalf("expected 3D distance to equal surface distance at equal depths, got %v vs %v", dist, surf)
	}
}

func TestDistance3DCombinesVerticalSeparation(t *testing.T) {
	// Purely vertical separation: same lat/lon, depths 0 and 10km.
	dist, _, _ := Distance3D(0, 0, 0, 0, 0, 10)
	if !almostEqual(dist, 10, 1e-9) {
		t.Fatalf("expected 3D distance 10km for a purely vertical offset, got %v", dist)
	}

	// Pythagorean combination of a horizontal and vertical leg.
	hdist := SurfaceDistanceKm(0, 0, 1, 0)
	dist3D, _, _ := Distance3D(0, 0, 0, 1, 0, hdist)
	want := math.Sqrt(hdist*hdist + hdist*hdist)
	if !almostEqual(dist3D, want, 1e-6) {
		t.Fatalf("expected sqrt(h^2+v^2) combination, got %v want %v", dist3D, want)
	}
}

func TestElevationToDepthKmInvertsSign(t *testing.T) {
	if got := ElevationToDepthKm(1000); got != -1.0 {
		t.Fatalf("expected 1000m elevation to convert to -1km depth, got %v", got)
	}
	if got := ElevationToDepthKm(-500); got != 0.5 {
		t.Fatalf("expected -500m elevation to convert to 0.5km depth, got %v", got)
	}
}
