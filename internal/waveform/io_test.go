package waveform

import (
	"bufio"
	"bytes"
	"testing"
	"time"
)

func TestEncodeDecodeTraceRoundTrip(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := &Trace{
		ID:      StreamID{Network: "XX", Station: "AB1", Location: "00", Channel: "HHZ"},
		Start:   start,
		Freq:    100,
		Samples: []float64{1.5, -2.25, 3.75, 0},
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := encodeTrace(w, tr); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	out, err := decodeTrace(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.ID != tr.ID {
		t.Fatalf("expected id %+v, got %+v", tr.ID, out.ID)
	}
	if !out.Start.Equal(tr.Start) || out.Freq != tr.Freq {
		t.Fatalf("expected start %v freq %v, got start %v freq %v", tr.Start, tr.Freq, out.Start, out.Freq)
	}
	if len(out.Samples) != len(tr.Samples) {
		t.Fatalf("expected %d samples, got %d", len(tr.Samples), len(out.Samples))
	}
	for i, s := range tr.Samples {
		if out.Samples[i] != s {
			t.Fatalf("sample %d: expected %v, got %v", i, s, out.Samples[i])
		}
	}
}

func TestRecordLengthClampsAndRoundsUp(t *testing.T) {
	if got := recordLength(0); got != minRecordLen {
		t.Fatalf("expected the minimum record length for 0 samples, got %d", got)
	}
	// 10 samples * 8 bytes + 64 header = 144, next power of two is 256.
	if got := recordLength(10); got != 256 {
		t.Fatalf("expected 256 for 10 samples, got %d", got)
	}
	if got := recordLength(1_000_000); got != maxRecordLen {
		t.Fatalf("expected the max record length to clamp huge sample counts, got %d", got)
	}
}

func TestDiskCacheStoreLoadHasRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewDiskCache(dir)

	fingerprint := "XX.AB1.00.HHZ.test"
	if cache.Has(fingerprint) {
		t.Fatalf("expected Has to be false before Store")
	}

	tr := &Trace{
		ID:      StreamID{Network: "XX", Station: "AB1", Location: "00", Channel: "HHZ"},
		Start:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Freq:    50,
		Samples: []float64{1, 2, 3},
	}
	if err := cache.Store(fingerprint, tr); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if !cache.Has(fingerprint) {
		t.Fatalf("expected Has to be true after Store")
	}

	loaded, err := cache.Load(fingerprint)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Freq != tr.Freq || len(loaded.Samples) != len(tr.Samples) {
		t.Fatalf("unexpected loaded trace: %+v", loaded)
	}
}

func TestDiskCacheLoadMissingFileErrors(t *testing.T) {
	cache := NewDiskCache(t.TempDir())
	if _, err := cache.Load("nonexistent"); err == nil {
		t.Fatalf("expected an error loading a missing fingerprint")
	}
}
