// Package solver renders the external relocation solver's fixed-format
// ASCII input files, invokes the solver (and optionally ph2dt) as a
// subprocess, and parses its output files back into the catalog model
// (spec §4.8, §6).
package solver

import (
	"fmt"
	"strings"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/dtbuilder"
)

// FormatStationLine renders one station.dat line:
// "%-12s %12.6f %12.6f %12.f" → id, lat, lon, elevation (meters).
func FormatStationLine(s catalog.Station) string {
	return fmt.Sprintf("%-12s %12.6f %12.6f %12.f", s.ID, s.Lat, s.Lon, s.Elevation)
}

// FormatEventLine renders one event.dat line:
// "%d%02d%02d  %02d%02d%04d %.6f %.6f %.3f %.2f %.4f %.4f %.4f %u"
// where the 4-digit time field encodes ss.cc as sec*100 + usec/10000.
func FormatEventLine(e catalog.Event) string {
	t := e.Time.UTC()
	ssHundredths := t.Second()*100 + t.Nanosecond()/1e7 // usec/10000 == nsec/1e7
	return fmt.Sprintf("%d%02d%02d  %02d%02d%04d %.6f %.6f %.3f %.2f %.4f %.4f %.4f %d",
		t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), ssHundredths,
		e.Lat, e.Lon, e.DepthKm, e.Magnitude,
		e.HorizUncert, e.VertUncert, e.RMS,
		e.ID)
}

// PhaseRecord is one phase.dat observation: station, travel time,
// weight and type, under an event header.
type PhaseRecord struct {
	StationID  string
	TravelTime float64
	Weight     float64
	Type       catalog.PhaseType
}

// FormatPhaseEventBlock renders one phase.dat event block: the
// "# YYYY M D H M S.ss lat lon dep mag eh ez rms id" header followed
// by "sta tt weight type" lines.
func FormatPhaseEventBlock(e catalog.Event, phases []PhaseRecord) string {
	t := e.Time.UTC()
	var b strings.Builder
	fmt.Fprintf(&b, "# %d %d %d %d %d %.2f %.6f %.6f %.3f %.2f %.4f %.4f %.4f %d\n",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(),
		float64(t.Second())+float64(t.Nanosecond())/1e9,
		e.Lat, e.Lon, e.DepthKm, e.Magnitude, e.HorizUncert, e.VertUncert, e.RMS, e.ID)
	for _, p := range phases {
		fmt.Fprintf(&b, "%s %.6f %.4f %s\n", p.StationID, p.TravelTime, p.Weight, p.Type)
	}
	return b.String()
}

// FormatCTPairBlock renders one dt.ct pair block: "# id1 id2" header
// followed by "sta tt1 tt2 w type" lines.
func FormatCTPairBlock(id1, id2 int64, obs []dtbuilder.CTObservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %d %d\n", id1, id2)
	for _, o := range obs {
		b.WriteString(dtbuilder.FormatCTLine(o))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatCCPairBlock renders one dt.cc pair block: "# id1 id2 0.0"
// header followed by "sta dtcc coeff² type" lines.
func FormatCCPairBlock(id1, id2 int64, obs []dtbuilder.CCObservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %d %d 0.0\n", id1, id2)
	for _, o := range obs {
		b.WriteString(dtbuilder.FormatCCLine(o))
		b.WriteString("\n")
	}
	return b.String()
}
