package stats

import "testing"

func TestMedianOddLength(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("expected median 2, got %v", got)
	}
}

func TestMedianEvenLength(t *testing.T) {
	if got := Median([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Fatalf("expected median 2.5, got %v", got)
	}
}

func TestMedianEmpty(t *testing.T) {
	if got := Median(nil); got != 0 {
		t.Fatalf("expected 0 for an empty slice, got %v", got)
	}
}

func TestMedianAbsoluteDeviation(t *testing.T) {
	mad := MedianAbsoluteDeviation([]float64{1, 2, 3, 4, 5}, 3)
	if mad != 1 {
		t.Fatalf("expected MAD 1 around center 3, got %v", mad)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3}); got != 2 {
		t.Fatalf("expected mean 2, got %v", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("expected mean 0 for empty input, got %v", got)
	}
}

func TestWeightedMean(t *testing.T) {
	got := WeightedMean([]float64{1, 3}, []float64{1, 3})
	want := (1*1.0 + 3*3.0) / (1.0 + 3.0)
	if got != want {
		t.Fatalf("expected weighted mean %v, got %v", want, got)
	}
}

func TestWeightedMeanFallsBackToMeanWhenWeightsZero(t *testing.T) {
	got := WeightedMean([]float64{2, 4}, []float64{0, 0})
	if got != 3 {
		t.Fatalf("expected fallback to plain mean 3, got %v", got)
	}
}

func TestMinMax(t *testing.T) {
	values := []float64{5, 1, 9, 3}
	if got := Min(values); got != 1 {
		t.Fatalf("expected min 1, got %v", got)
	}
	if got := Max(values); got != 9 {
		t.Fatalf("expected max 9, got %v", got)
	}
}

func TestMeanAbsoluteDeviation(t *testing.T) {
	mad := MeanAbsoluteDeviation([]float64{1, 2, 3, 4, 5}, 3)
	if mad != 1.2 {
		t.Fatalf("expected MAD 1.2, got %v", mad)
	}
}

func TestComputePickWeightPerfectAgreement(t *testing.T) {
	if got := ComputePickWeight(0); got != 1.00 {
		t.Fatalf("expected weight 1.00 for zero deviation, got %v", got)
	}
}

func TestComputePickWeightUsesFixedClasses(t *testing.T) {
	cases := []struct {
		dev  float64
		want float64
	}{
		{0.025, 1.00},
		{0.050, 0.80},
		{0.100, 0.60},
		{0.200, 0.40},
		{0.400, 0.20},
		{0.5, 0.10},
	}
	for _, c := range cases {
		if got := ComputePickWeight(c.dev); got != c.want {
			t.Fatalf("ComputePickWeight(%v) = %v, want %v", c.dev, got, c.want)
		}
	}
}

func TestComputePickWeightMidpoint(t *testing.T) {
	if got := ComputePickWeight(0.15); got != 0.40 {
		t.Fatalf("expected weight 0.40 for a deviation of 0.15, got %v", got)
	}
}
