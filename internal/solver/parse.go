package solver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
)

// RelocatedEvent is one parsed hypoDD.reloc record (spec §4.8: 24
// whitespace-separated fields).
type RelocatedEvent struct {
	ID                int64
	Lat, Lon, DepthKm float64
	ExKm, EyKm, EzKm  float64
	Time              time.Time
	Magnitude         float64
	NumCCP, NumCCS    int
	NumCTP, NumCTS    int
	RMSResidualCC     float64
	RMSResidualCT     float64
	ClusterID         int
}

// ParseReloc reads a hypoDD.reloc file and returns one RelocatedEvent
// per line. ex/ey/ez arrive in meters and are converted to km.
func ParseReloc(r io.Reader) ([]RelocatedEvent, error) {
	var out []RelocatedEvent
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 24 {
			return nil, fmt.Errorf("solver: hypoDD.reloc line %d: expected 24 fields, got %d", lineNo, len(fields))
		}

		id, _ := strconv.ParseInt(fields[0], 10, 64)
		lat, _ := strconv.ParseFloat(fields[1], 64)
		lon, _ := strconv.ParseFloat(fields[2], 64)
		depth, _ := strconv.ParseFloat(fields[3], 64)
		x, _ := strconv.ParseFloat(fields[4], 64)
		y, _ := strconv.ParseFloat(fields[5], 64)
		z, _ := strconv.ParseFloat(fields[6], 64)
		ex, _ := strconv.ParseFloat(fields[7], 64)
		ey, _ := strconv.ParseFloat(fields[8], 64)
		ez, _ := strconv.ParseFloat(fields[9], 64)
		yr, _ := strconv.Atoi(fields[10])
		mo, _ := strconv.Atoi(fields[11])
		dy, _ := strconv.Atoi(fields[12])
		hr, _ := strconv.Atoi(fields[13])
		mi, _ := strconv.Atoi(fields[14])
		sc, _ := strconv.ParseFloat(fields[15], 64)
		mag, _ := strconv.ParseFloat(fields[16], 64)
		nccp, _ := strconv.Atoi(fields[17])
		nccs, _ := strconv.Atoi(fields[18])
		nctp, _ := strconv.Atoi(fields[19])
		ncts, _ := strconv.Atoi(fields[20])
		rcc, _ := strconv.ParseFloat(fields[21], 64)
		rct, _ := strconv.ParseFloat(fields[22], 64)
		cid, _ := strconv.Atoi(fields[23])

		sec := int(sc)
		nsec := int((sc - float64(sec)) * 1e9)
		origin := time.Date(yr, time.Month(mo), dy, hr, mi, sec, nsec, time.UTC)

		_, _, _ = x, y, z // local x/y/z offsets, unused: lat/lon/depth are already the authoritative position

		out = append(out, RelocatedEvent{
			ID: id, Lat: lat, Lon: lon, DepthKm: depth,
			ExKm: ex / 1000, EyKm: ey / 1000, EzKm: ez / 1000,
			Time: origin, Magnitude: mag,
			NumCCP: nccp, NumCCS: nccs, NumCTP: nctp, NumCTS: ncts,
			RMSResidualCC: rcc, RMSResidualCT: rct, ClusterID: cid,
		})
	}
	return out, scanner.Err()
}

// ApplyReloc updates ev in place from a parsed RelocatedEvent,
// populating RelocInfo. rms is the average of available rcc/rct.
func ApplyReloc(ev *catalog.Event, r RelocatedEvent) {
	ev.Lat = r.Lat
	ev.Lon = r.Lon
	ev.DepthKm = r.DepthKm
	ev.Time = r.Time
	ev.Magnitude = r.Magnitude

	var sum float64
	var n int
	if r.RMSResidualCC != 0 {
		sum += r.RMSResidualCC
		n++
	}
	if r.RMSResidualCT != 0 {
		sum += r.RMSResidualCT
		n++
	}
	if n > 0 {
		ev.RMS = sum / float64(n)
	}

	ev.Reloc = catalog.RelocInfo{
		IsRelocated:   true,
		LatUncertKm:   r.ExKm,
		LonUncertKm:   r.EyKm,
		DepthUncertKm: r.EzKm,
		NumCCP:        r.NumCCP,
		NumCCS:        r.NumCCS,
		NumCTP:        r.NumCTP,
		NumCTS:        r.NumCTS,
		RMSResidualCC: r.RMSResidualCC,
		RMSResidualCT: r.RMSResidualCT,
	}
}

// dataTypeCode maps hypoDD.res's field-4 code to a (type, isCC) pair
// (spec §4.8: 1:ccP, 2:ccS, 3:ctP, 4:ctS).
func dataTypeCode(code int) (catalog.PhaseType, bool, bool) {
	switch code {
	case 1:
		return catalog.PhaseP, true, true
	case 2:
		return catalog.PhaseS, true, true
	case 3:
		return catalog.PhaseP, false, true
	case 4:
		return catalog.PhaseS, false, true
	default:
		return "", false, false
	}
}

// ResidualKey identifies one aggregated residual bucket.
type ResidualKey struct {
	EventID   int64
	StationID string
	Type      catalog.PhaseType
}

// ResidualAgg accumulates residual (seconds) and final weight across
// all hypoDD.res rows sharing a ResidualKey.
type ResidualAgg struct {
	SumResidualSec float64
	SumWeight      float64
	Count          int
}

func (a ResidualAgg) MeanResidualSec() float64 { return a.SumResidualSec / float64(a.Count) }
func (a ResidualAgg) MeanWeight() float64      { return a.SumWeight / float64(a.Count) }

// ParseResiduals reads a hypoDD.res file (9 whitespace fields per
// line) and aggregates residual/1000 (ms→s) and finalWeight per
// (eventId, stationId, type) (spec §4.8).
func ParseResiduals(r io.Reader) (map[ResidualKey]*ResidualAgg, error) {
	out := make(map[ResidualKey]*ResidualAgg)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 9 {
			return nil, fmt.Errorf("solver: hypoDD.res line %d: expected 9 fields, got %d", lineNo, len(fields))
		}

		stationID := fields[0]
		eventID, _ := strconv.ParseInt(fields[1], 10, 64)
		typeCode, _ := strconv.Atoi(fields[3])
		residualMs, _ := strconv.ParseFloat(fields[4], 64)
		finalWeight, _ := strconv.ParseFloat(fields[5], 64)

		phaseType, _, ok := dataTypeCode(typeCode)
		if !ok {
			continue
		}

		key := ResidualKey{EventID: eventID, StationID: stationID, Type: phaseType}
		agg, exists := out[key]
		if !exists {
			agg = &ResidualAgg{}
			out[key] = agg
		}
		agg.SumResidualSec += residualMs / 1000
		agg.SumWeight += finalWeight
		agg.Count++
	}
	return out, scanner.Err()
}

// ApplyResiduals updates each phase in cat's per-event phase lists
// whose (eventId, stationId, type) has an aggregated residual.
func ApplyResiduals(cat *catalog.Catalog, aggs map[ResidualKey]*ResidualAgg) {
	for eventID, phases := range cat.Phases {
		for i := range phases {
			p := &phases[i]
			key := ResidualKey{EventID: eventID, StationID: p.StationID, Type: p.Type}
			agg, ok := aggs[key]
			if !ok {
				continue
			}
			p.Reloc = catalog.PhaseRelocInfo{
				IsRelocated: true,
				ResidualSec: agg.MeanResidualSec(),
				FinalWeight: agg.MeanWeight(),
			}
		}
	}
}

// OpenAndParseReloc is a convenience wrapper for reading a
// hypoDD.reloc file from disk.
func OpenAndParseReloc(path string) ([]RelocatedEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseReloc(f)
}

// OpenAndParseResiduals is a convenience wrapper for reading a
// hypoDD.res file from disk.
func OpenAndParseResiduals(path string) (map[ResidualKey]*ResidualAgg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseResiduals(f)
}
