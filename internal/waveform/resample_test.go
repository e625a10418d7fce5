package waveform

import "testing"

func TestResampleNoOpWhenSameFrequency(t *testing.T) {
	tr := &Trace{Freq: 10, Samples: []float64{1, 2, 3}}
	out := tr.Resample(10, false)
	if out != tr {
		t.Fatalf("expected the same trace pointer for a no-op resample")
	}
}

func TestResampleNoOpForInvalidTarget(t *testing.T) {
	tr := &Trace{Freq: 10, Samples: []float64{1, 2, 3}}
	if out := tr.Resample(0, false); out != tr {
		t.Fatalf("expected no-op for targetFreq <= 0")
	}
	if out := tr.Resample(-5, false); out != tr {
		t.Fatalf("expected no-op for negative targetFreq")
	}
}

func TestResampleNoOpForEmptyTrace(t *testing.T) {
	tr := &Trace{Freq: 10}
	if out := tr.Resample(20, false); out != tr {
		t.Fatalf("expected no-op for an empty trace")
	}
}

func TestResampleUpsampleDuplicatesNearest(t *testing.T) {
	tr := &Trace{Freq: 10, Samples: []float64{1, 2, 3, 4}}
	out := tr.Resample(20, false)
	want := []float64{1, 1, 2, 2, 3, 3, 4, 4}
	if len(out.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(out.Samples), out.Samples)
	}
	for i, w := range want {
		if out.Samples[i] != w {
			t.Fatalf("sample %d: expected %v, got %v", i, w, out.Samples[i])
		}
	}
	if out.Freq != 20 {
		t.Fatalf("expected output frequency 20, got %v", out.Freq)
	}
}

func TestResampleDownsampleWithoutAveragingPicksNearest(t *testing.T) {
	tr := &Trace{Freq: 10, Samples: []float64{1, 2, 3, 4, 5, 6}}
	out := tr.Resample(5, false)
	want := []float64{1, 3, 5}
	if len(out.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(out.Samples), out.Samples)
	}
	for i, w := range want {
		if out.Samples[i] != w {
			t.Fatalf("sample %d: expected %v, got %v", i, w, out.Samples[i])
		}
	}
}

func TestResampleDownsampleWithAveraging(t *testing.T) {
	tr := &Trace{Freq: 10, Samples: []float64{1, 2, 3, 4, 5, 6}}
	out := tr.Resample(5, true)
	want := []float64{1.0, 2.5, 4.5}
	if len(out.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(out.Samples), out.Samples)
	}
	for i, w := range want {
		if out.Samples[i] != w {
			t.Fatalf("sample %d: expected %v, got %v", i, w, out.Samples[i])
		}
	}
}
