package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LoadCSV reads a catalog from three CSV files (stations.csv,
// events.csv, phases.csv) under dir, mirroring the three-file form the
// original scrtdd CSV reader used. This is primarily a staging format
// for test fixtures and operators without a database in front of them.
func LoadCSV(dir string) (*Catalog, error) {
	c := New()

	stations, err := readCSV(filepath.Join(dir, "stations.csv"))
	if err != nil {
		return nil, err
	}
	for _, rec := range stations {
		s, err := parseStationRow(rec)
		if err != nil {
			return nil, err
		}
		c.Stations[s.ID] = s
	}

	events, err := readCSV(filepath.Join(dir, "events.csv"))
	if err != nil {
		return nil, err
	}
	for _, rec := range events {
		e, err := parseEventRow(rec)
		if err != nil {
			return nil, err
		}
		c.Events[e.ID] = e
	}

	phases, err := readCSV(filepath.Join(dir, "phases.csv"))
	if err != nil {
		return nil, err
	}
	for _, rec := range phases {
		p, err := parsePhaseRow(rec)
		if err != nil {
			return nil, err
		}
		c.Phases[p.EventID] = append(c.Phases[p.EventID], p)
	}

	return c, nil
}

var stationHeader = []string{"id", "network", "station", "location", "lat", "lon", "elevation"}
var eventHeader = []string{"id", "time", "lat", "lon", "depthKm", "magnitude", "horizUncert", "vertUncert", "rms"}
var phaseHeader = []string{"eventId", "stationId", "type", "rawType", "time", "weight", "isManual", "network", "station", "location", "channel"}

// WriteCSV writes the catalog's stations, events and phases to three
// CSV files under dir, creating dir if needed.
func WriteCSV(dir string, c *Catalog) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating catalog csv dir %s: %w", dir, err)
	}

	if err := writeCSV(filepath.Join(dir, "stations.csv"), stationHeader, stationRows(c)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, "events.csv"), eventHeader, eventRows(c)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, "phases.csv"), phaseHeader, phaseRows(c)); err != nil {
		return err
	}
	return nil
}

func stationRows(c *Catalog) [][]string {
	var rows [][]string
	for _, s := range c.Stations {
		rows = append(rows, []string{
			s.ID, s.Network, s.Station, s.Location,
			formatFloat(s.Lat), formatFloat(s.Lon), formatFloat(s.Elevation),
		})
	}
	return rows
}

func eventRows(c *Catalog) [][]string {
	var rows [][]string
	for _, e := range c.Events {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10), e.Time.UTC().Format(time.RFC3339Nano),
			formatFloat(e.Lat), formatFloat(e.Lon), formatFloat(e.DepthKm),
			formatFloat(e.Magnitude), formatFloat(e.HorizUncert), formatFloat(e.VertUncert), formatFloat(e.RMS),
		})
	}
	return rows
}

func phaseRows(c *Catalog) [][]string {
	var rows [][]string
	for _, phases := range c.Phases {
		for _, p := range phases {
			rows = append(rows, []string{
				strconv.FormatInt(p.EventID, 10), p.StationID, string(p.Type), p.RawType,
				p.Time.UTC().Format(time.RFC3339Nano), formatFloat(p.Weight), strconv.FormatBool(p.IsManual),
				p.Network, p.Station, p.Location, p.Channel,
			})
		}
	}
	return rows
}

func parseStationRow(rec []string) (Station, error) {
	if len(rec) < 7 {
		return Station{}, fmt.Errorf("catalog csv: malformed station row %v", rec)
	}
	lat, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return Station{}, fmt.Errorf("catalog csv: station lat: %w", err)
	}
	lon, err := strconv.ParseFloat(rec[5], 64)
	if err != nil {
		return Station{}, fmt.Errorf("catalog csv: station lon: %w", err)
	}
	elev, err := strconv.ParseFloat(rec[6], 64)
	if err != nil {
		return Station{}, fmt.Errorf("catalog csv: station elevation: %w", err)
	}
	return Station{ID: rec[0], Network: rec[1], Station: rec[2], Location: rec[3], Lat: lat, Lon: lon, Elevation: elev}, nil
}

func parseEventRow(rec []string) (Event, error) {
	if len(rec) < 9 {
		return Event{}, fmt.Errorf("catalog csv: malformed event row %v", rec)
	}
	id, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("catalog csv: event id: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, rec[1])
	if err != nil {
		return Event{}, fmt.Errorf("catalog csv: event time: %w", err)
	}
	lat, lon, depth, mag, horiz, vert, rms, err := parseSevenFloats(rec[2:9])
	if err != nil {
		return Event{}, fmt.Errorf("catalog csv: %w", err)
	}
	return Event{ID: id, Time: t, Lat: lat, Lon: lon, DepthKm: depth, Magnitude: mag, HorizUncert: horiz, VertUncert: vert, RMS: rms}, nil
}

func parsePhaseRow(rec []string) (Phase, error) {
	if len(rec) < 11 {
		return Phase{}, fmt.Errorf("catalog csv: malformed phase row %v", rec)
	}
	eventID, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return Phase{}, fmt.Errorf("catalog csv: phase eventId: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, rec[4])
	if err != nil {
		return Phase{}, fmt.Errorf("catalog csv: phase time: %w", err)
	}
	weight, err := strconv.ParseFloat(rec[5], 64)
	if err != nil {
		return Phase{}, fmt.Errorf("catalog csv: phase weight: %w", err)
	}
	isManual, err := strconv.ParseBool(rec[6])
	if err != nil {
		return Phase{}, fmt.Errorf("catalog csv: phase isManual: %w", err)
	}
	return Phase{
		EventID: eventID, StationID: rec[1], Type: PhaseType(rec[2]), RawType: rec[3],
		Time: t, Weight: weight, IsManual: isManual,
		Network: rec[7], Station: rec[8], Location: rec[9], Channel: rec[10],
	}, nil
}

func parseSevenFloats(rec []string) (a, b, cc, d, e, f, g float64, err error) {
	vals := make([]float64, 7)
	for i, s := range rec {
		vals[i], err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, 0, 0, 0, 0, 0, 0, err
		}
	}
	return vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6], nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil // skip header
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}
