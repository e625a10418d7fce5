package waveform

import (
	"testing"
	"time"
)

func TestWindowLengthAndExpand(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(10 * time.Second)}
	if w.Length() != 10*time.Second {
		t.Fatalf("expected length 10s, got %v", w.Length())
	}
	expanded := w.Expand(2 * time.Second)
	if !expanded.Start.Equal(start.Add(-2*time.Second)) || !expanded.End.Equal(start.Add(12*time.Second)) {
		t.Fatalf("unexpected expanded window: %+v", expanded)
	}
}

func TestWindowUnion(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Window{Start: start, End: start.Add(5 * time.Second)}
	b := Window{Start: start.Add(3 * time.Second), End: start.Add(10 * time.Second)}
	u := a.Union(b)
	if !u.Start.Equal(start) || !u.End.Equal(start.Add(10*time.Second)) {
		t.Fatalf("expected union [start, start+10s], got %+v", u)
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	id := StreamID{Network: "XX", Station: "AB1", Location: "00", Channel: "HHZ"}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tw := Window{Start: start, End: start.Add(time.Minute)}
	a := Fingerprint(id, tw)
	b := Fingerprint(id, tw)
	if a != b {
		t.Fatalf("expected a deterministic fingerprint, got %q vs %q", a, b)
	}
	if a != "XX.AB1.00.HHZ."+start.UTC().Format(time.RFC3339Nano)+"."+tw.End.UTC().Format(time.RFC3339Nano) {
		t.Fatalf("unexpected fingerprint format: %q", a)
	}
}

func TestTraceEndEmptyReturnsStart(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := Trace{Start: start, Freq: 10}
	if !tr.End().Equal(start) {
		t.Fatalf("expected End() == Start for an empty trace, got %v", tr.End())
	}
}

func TestMergeRecordsContiguous(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r1 := Trace{Start: start, Freq: 10, Samples: []float64{1, 2, 3, 4, 5}}
	r2 := Trace{Start: start.Add(500 * time.Millisecond), Freq: 10, Samples: []float64{6, 7, 8}}

	merged, err := MergeRecords([]Trace{r1, r2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged.Samples) != 8 {
		t.Fatalf("expected 8 merged samples, got %d: %v", len(merged.Samples), merged.Samples)
	}
}

func TestMergeRecordsRejectsFrequencyMismatch(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r1 := Trace{Start: start, Freq: 10, Samples: []float64{1, 2}}
	r2 := Trace{Start: start.Add(200 * time.Millisecond), Freq: 20, Samples: []float64{3, 4}}

	if _, err := MergeRecords([]Trace{r1, r2}); err == nil {
		t.Fatalf("expected a sampling frequency mismatch error")
	}
}

func TestMergeRecordsRejectsLargeGap(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r1 := Trace{Start: start, Freq: 10, Samples: []float64{1, 2, 3, 4, 5}} // ends at start+0.5s
	r2 := Trace{Start: start.Add(2 * time.Second), Freq: 10, Samples: []float64{6, 7}}

	if _, err := MergeRecords([]Trace{r1, r2}); err == nil {
		t.Fatalf("expected a gap-too-large error")
	}
}

func TestMergeRecordsRejectsOverTolerenceOverlap(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r1 := Trace{Start: start, Freq: 10, Samples: []float64{1, 2, 3, 4, 5}} // ends at start+0.5s
	// Overlaps by exactly one sample (0.1s), well beyond the 0.5-sample (0.05s) tolerance.
	r2 := Trace{Start: start.Add(400 * time.Millisecond), Freq: 10, Samples: []float64{99, 6, 7}}

	if _, err := MergeRecords([]Trace{r1, r2}); err == nil {
		t.Fatalf("expected an overlap-too-large error")
	}
}

func TestMergeRecordsAllowsOverlapWithinTolerance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r1 := Trace{Start: start, Freq: 10, Samples: []float64{1, 2, 3, 4, 5}} // ends at start+0.5s
	// Starts 0.04s before the expected next sample, within the 0.05s tolerance.
	r2 := Trace{Start: start.Add(460 * time.Millisecond), Freq: 10, Samples: []float64{6, 7}}

	merged, err := MergeRecords([]Trace{r1, r2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1, 2, 3, 4, 5, 6, 7}
	if len(merged.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(merged.Samples), merged.Samples)
	}
	for i, w := range want {
		if merged.Samples[i] != w {
			t.Fatalf("sample %d: expected %v, got %v", i, w, merged.Samples[i])
		}
	}
}

func TestTrimExtractsSubWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := &Trace{Start: start, Freq: 10, Samples: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}

	tw := Window{Start: start.Add(200 * time.Millisecond), End: start.Add(500 * time.Millisecond)}
	out, err := tr.Trim(tw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{2, 3, 4}
	if len(out.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(out.Samples), out.Samples)
	}
	for i, w := range want {
		if out.Samples[i] != w {
			t.Fatalf("sample %d: expected %v, got %v", i, w, out.Samples[i])
		}
	}
}

func TestTrimRejectsStartBeforeTrace(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := &Trace{Start: start, Freq: 10, Samples: []float64{1, 2, 3}}
	tw := Window{Start: start.Add(-time.Second), End: start}
	if _, err := tr.Trim(tw); err == nil {
		t.Fatalf("expected an error when the window starts before the trace")
	}
}

func TestTrimRejectsEndPastTrace(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := &Trace{Start: start, Freq: 10, Samples: []float64{1, 2, 3}}
	tw := Window{Start: start, End: start.Add(10 * time.Second)}
	if _, err := tr.Trim(tw); err == nil {
		t.Fatalf("expected an error when the window needs samples past the trace end")
	}
}

func TestDemeanSubtractsMean(t *testing.T) {
	tr := &Trace{Samples: []float64{1, 2, 3, 4, 5}}
	tr.Demean()
	want := []float64{-2, -1, 0, 1, 2}
	for i, w := range want {
		if tr.Samples[i] != w {
			t.Fatalf("sample %d: expected %v, got %v", i, w, tr.Samples[i])
		}
	}
}

func TestDemeanEmptyTraceNoPanic(t *testing.T) {
	tr := &Trace{}
	tr.Demean()
	if len(tr.Samples) != 0 {
		t.Fatalf("expected an empty trace to remain empty")
	}
}
