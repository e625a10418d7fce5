package waveform

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// StreamSource is the boundary to the external waveform archive (spec
// §6): a time-bounded query over one stream, returning raw unmerged
// records in time order.
type StreamSource interface {
	QueryRecords(ctx context.Context, id StreamID, tw Window) ([]Trace, error)
}

// DiskCache stores one miniSEED-style record file per fingerprint
// under a root directory (spec §4.5).
type DiskCache struct {
	Root string
}

func NewDiskCache(root string) *DiskCache {
	return &DiskCache{Root: root}
}

func (c *DiskCache) path(fingerprint string) string {
	return filepath.Join(c.Root, fingerprint+".mseed")
}

// Has reports whether a cache file exists for fingerprint.
func (c *DiskCache) Has(fingerprint string) bool {
	_, err := os.Stat(c.path(fingerprint))
	return err == nil
}

// Load deserializes the cached trace for fingerprint.
func (c *DiskCache) Load(fingerprint string) (*Trace, error) {
	f, err := os.Open(c.path(fingerprint))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeTrace(bufio.NewReader(f))
}

// Store serializes t to the cache file for fingerprint.
func (c *DiskCache) Store(fingerprint string, t *Trace) error {
	if err := os.MkdirAll(c.Root, 0o755); err != nil {
		return err
	}
	tmp := c.path(fingerprint) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := encodeTrace(w, t); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, c.path(fingerprint))
}

const (
	bytesPerSample  = 8 // float64
	recordHeaderLen = 64
	minRecordLen    = 128
	maxRecordLen    = 1_048_576
)

// recordLength returns the fixed miniSEED-style record length for n
// samples: next power of two of n*bytesPerSample+64, clamped to
// [128, 1_048_576] (spec §4.5). It is informational framing only —
// the payload itself is written compactly below it.
func recordLength(numSamples int) int {
	raw := numSamples*bytesPerSample + recordHeaderLen
	length := 1
	for length < raw {
		length <<= 1
	}
	if length < minRecordLen {
		length = minRecordLen
	}
	if length > maxRecordLen {
		length = maxRecordLen
	}
	return length
}

// encodeTrace writes a fixed-header record: record length, stream id
// fields, start time, sampling frequency, sample count, then the raw
// float64 samples.
func encodeTrace(w *bufio.Writer, t *Trace) error {
	reclen := recordLength(len(t.Samples))
	if err := binary.Write(w, binary.BigEndian, uint32(reclen)); err != nil {
		return err
	}
	if err := writeFixedString(w, t.ID.Network, 8); err != nil {
		return err
	}
	if err := writeFixedString(w, t.ID.Station, 8); err != nil {
		return err
	}
	if err := writeFixedString(w, t.ID.Location, 8); err != nil {
		return err
	}
	if err := writeFixedString(w, t.ID.Channel, 8); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, t.Start.UnixNano()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, t.Freq); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(t.Samples))); err != nil {
		return err
	}
	for _, s := range t.Samples {
		if err := binary.Write(w, binary.BigEndian, s); err != nil {
			return err
		}
	}
	return nil
}

func decodeTrace(r *bufio.Reader) (*Trace, error) {
	var reclen uint32
	if err := binary.Read(r, binary.BigEndian, &reclen); err != nil {
		return nil, fmt.Errorf("waveform: reading record header: %w", err)
	}

	net, err := readFixedString(r, 8)
	if err != nil {
		return nil, err
	}
	sta, err := readFixedString(r, 8)
	if err != nil {
		return nil, err
	}
	loc, err := readFixedString(r, 8)
	if err != nil {
		return nil, err
	}
	chan_, err := readFixedString(r, 8)
	if err != nil {
		return nil, err
	}

	var startNano int64
	if err := binary.Read(r, binary.BigEndian, &startNano); err != nil {
		return nil, err
	}
	var freq float64
	if err := binary.Read(r, binary.BigEndian, &freq); err != nil {
		return nil, err
	}
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}

	samples := make([]float64, n)
	for i := range samples {
		if err := binary.Read(r, binary.BigEndian, &samples[i]); err != nil {
			return nil, fmt.Errorf("waveform: reading sample %d: %w", i, err)
		}
	}

	return &Trace{
		ID:      StreamID{Network: net, Station: sta, Location: loc, Channel: chan_},
		Start:   time.Unix(0, startNano).UTC(),
		Freq:    freq,
		Samples: samples,
	}, nil
}

func writeFixedString(w *bufio.Writer, s string, n int) error {
	buf := make([]byte, n)
	copy(buf, s)
	_, err := w.Write(buf)
	return err
}

func readFixedString(r *bufio.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return string(buf[:end]), nil
}

// Load fetches and merges a trace for (id, tw), checking the disk
// cache first if useDiskCache is set, else querying src and
// optionally persisting the result (spec §4.5).
func Load(ctx context.Context, src StreamSource, cache *DiskCache, useDiskCache bool, id StreamID, tw Window) (*Trace, error) {
	fingerprint := Fingerprint(id, tw)

	if useDiskCache && cache != nil && cache.Has(fingerprint) {
		return cache.Load(fingerprint)
	}

	records, err := src.QueryRecords(ctx, id, tw)
	if err != nil {
		return nil, fmt.Errorf("waveform: querying %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("waveform: no records for %s in %s..%s", id, tw.Start, tw.End)
	}

	merged, err := MergeRecords(records)
	if err != nil {
		return nil, err
	}
	trimmed, err := merged.Trim(tw)
	if err != nil {
		return nil, err
	}

	if useDiskCache && cache != nil {
		if err := cache.Store(fingerprint, trimmed); err != nil {
			return nil, fmt.Errorf("waveform: caching %s: %w", fingerprint, err)
		}
	}
	return trimmed, nil
}
