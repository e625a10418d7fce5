package waveform

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalArchive is a StreamSource backed by a flat directory of
// continuous day-file records in the same encoding DiskCache uses,
// one file per stream id per day: "<net>.<sta>.<loc>.<chan>.<yyyy-mm-dd>.mseed".
// It stands in for a real FDSN dataselect / SeisComP archive client
// behind the StreamSource boundary (spec §6).
type LocalArchive struct {
	Root string
}

func NewLocalArchive(root string) *LocalArchive {
	return &LocalArchive{Root: root}
}

// QueryRecords returns every day file overlapping tw for id, in time
// order. Callers merge/trim the result via MergeRecords/Trim as usual.
func (a *LocalArchive) QueryRecords(_ context.Context, id StreamID, tw Window) ([]Trace, error) {
	var out []Trace
	start := tw.Start.Truncate(24 * time.Hour)
	for day := start; !day.After(tw.End); day = day.Add(24 * time.Hour) {
		path := filepath.Join(a.Root, dayFileName(id, day))
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("waveform: opening archive file %s: %w", path, err)
		}
		trace, err := decodeTrace(bufio.NewReader(f))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("waveform: decoding archive file %s: %w", path, err)
		}
		out = append(out, *trace)
	}
	return out, nil
}

func dayFileName(id StreamID, day time.Time) string {
	return fmt.Sprintf("%s.%s.%s.%s.%s.mseed", id.Network, id.Station, id.Location, id.Channel, day.Format("2006-01-02"))
}
