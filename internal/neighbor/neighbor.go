// Package neighbor selects, for a reference event, the set of other
// events that are near enough, share enough usable phases, and are
// homogeneously sampled in direction and distance to serve as
// differential-time partners (spec §4.6).
package neighbor

import (
	"errors"
	"sort"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/ellipsoid"
	"github.com/sed-ethz/hdd-relocate-go/internal/geodesy"
)

// Config holds the phase-based filter and homogenization thresholds.
type Config struct {
	MaxIEdistKm      float64 // 0 = unset, no cap
	MinPhaseWeight   float64
	MinESdistKm      float64
	MaxESdistKm      float64
	MinEStoIEratio   float64
	MinDTperEvt      int
	MaxDTperEvt      int
	NumEllipsoids    int
	InitialLenKm     float64
	MaxEllipsoidSize float64
	MaxNumNeigh      int
	MinNumNeigh      int
}

// StationPhase pairs a phase with its station's coordinates for
// distance computations.
type StationPhase struct {
	Phase   catalog.Phase
	Station catalog.Station
}

// MatchedStation is a station/type both the reference and a candidate
// share, filtered and with its geometric ratios computed.
type MatchedStation struct {
	StationID      string
	Type           catalog.PhaseType
	RefDistanceKm  float64
	CandDistanceKm float64
}

var errInsufficientNeighbors = errors.New("neighbor: insufficient neighbors selected")

// ErrInsufficientNeighbors is returned by Select when fewer than
// MinNumNeigh events are selected. Non-fatal per spec §4.6.
var ErrInsufficientNeighbors = errInsufficientNeighbors

// Neighbor is a selected candidate event with the shared station-type
// pairs it qualified on.
type Neighbor struct {
	Event   catalog.Event
	Matches []MatchedStation
}

func phaseLookup(cat *catalog.Catalog, eventID int64) map[string]catalog.Phase {
	out := make(map[string]catalog.Phase)
	for _, p := range cat.Phases[eventID] {
		if p.Weight < 0 {
			continue
		}
		out[p.StationID+"."+string(p.Type)] = p
	}
	return out
}

// matchCandidate applies the phase-based filter (spec §4.6) to one
// candidate event E against the reference R, returning the qualifying
// shared station-phases (capped at MaxDTperEvt, nearest first).
func matchCandidate(cfg Config, cat *catalog.Catalog, ref, cand catalog.Event) ([]MatchedStation, bool) {
	eventDist, _, _ := geodesy.Distance3D(ref.Lat, ref.Lon, ref.DepthKm, cand.Lat, cand.Lon, cand.DepthKm)
	if cfg.MaxIEdistKm > 0 && eventDist > cfg.MaxIEdistKm {
		return nil, false
	}

	refPhases := phaseLookup(cat, ref.ID)
	var matches []MatchedStation

	for _, cp := range cat.Phases[cand.ID] {
		if cp.Weight < cfg.MinPhaseWeight {
			continue
		}
		rp, ok := refPhases[cp.StationID+"."+string(cp.Type)]
		if !ok || rp.Weight < cfg.MinPhaseWeight {
			continue
		}

		sta, ok := cat.Stations[cp.StationID]
		if !ok {
			continue
		}

		refESdist, _, _ := geodesy.Distance3D(ref.Lat, ref.Lon, ref.DepthKm, sta.Lat, sta.Lon, -sta.Elevation/1000)
		candESdist, _, _ := geodesy.Distance3D(cand.Lat, cand.Lon, cand.DepthKm, sta.Lat, sta.Lon, -sta.Elevation/1000)

		if !inRange(refESdist, cfg.MinESdistKm, cfg.MaxESdistKm) || !inRange(candESdist, cfg.MinESdistKm, cfg.MaxESdistKm) {
			continue
		}

		if cfg.MinEStoIEratio > 0 && eventDist > 0 {
			if refESdist/eventDist < cfg.MinEStoIEratio || candESdist/eventDist < cfg.MinEStoIEratio {
				continue
			}
		}

		matches = append(matches, MatchedStation{
			StationID:      cp.StationID,
			Type:           cp.Type,
			RefDistanceKm:  refESdist,
			CandDistanceKm: candESdist,
		})
	}

	if len(matches) < cfg.MinDTperEvt {
		return nil, false
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].CandDistanceKm < matches[j].CandDistanceKm })
	if cfg.MaxDTperEvt > 0 && len(matches) > cfg.MaxDTperEvt {
		matches = matches[:cfg.MaxDTperEvt]
	}
	return matches, true
}

func inRange(v, lo, hi float64) bool {
	if lo > 0 && v < lo {
		return false
	}
	if hi > 0 && v > hi {
		return false
	}
	return true
}

type candidateInfo struct {
	event    catalog.Event
	matches  []MatchedStation
	distance float64
}

// Select runs the full neighbor selection for reference event ref:
// phase-based filtering of every other catalog event, then geometric
// homogenization over concentric ellipsoid shells and 8 quadrants
// (spec §4.6).
func Select(cfg Config, cat *catalog.Catalog, ref catalog.Event) ([]Neighbor, error) {
	candidates := make(map[int64]candidateInfo)
	for _, ev := range cat.Events {
		if ev.ID == ref.ID {
			continue
		}
		matches, ok := matchCandidate(cfg, cat, ref, ev)
		if !ok {
			continue
		}
		dist, _, _ := geodesy.Distance3D(ref.Lat, ref.Lon, ref.DepthKm, ev.Lat, ev.Lon, ev.DepthKm)
		candidates[ev.ID] = candidateInfo{event: ev, matches: matches, distance: dist}
	}

	shells := ellipsoid.Shells(cfg.NumEllipsoids, cfg.InitialLenKm, cfg.MaxEllipsoidSize)
	selected := make(map[int64]candidateInfo)

	for shellIdx := len(shells) - 1; shellIdx >= 1; shellIdx-- {
		outer := ellipsoid.New(shells[shellIdx], ref.Lat, ref.Lon, ref.DepthKm)
		inner := ellipsoid.New(shells[shellIdx-1], ref.Lat, ref.Lon, ref.DepthKm)

		for {
			gained := false
			for q := 0; q < ellipsoid.NumQuadrants; q++ {
				if len(selected) >= cfg.MaxNumNeigh {
					break
				}
				best, bestID, found := nearestUnselectedInAnnulus(candidates, selected, outer, inner, ellipsoid.Quadrant(q))
				if !found {
					continue
				}
				selected[bestID] = best
				gained = true
			}
			if !gained || len(selected) >= cfg.MaxNumNeigh {
				break
			}
		}
		if len(selected) >= cfg.MaxNumNeigh {
			break
		}
	}

	if len(selected) < cfg.MinNumNeigh {
		return nil, errInsufficientNeighbors
	}

	out := make([]Neighbor, 0, len(selected))
	for _, c := range selected {
		out = append(out, Neighbor{Event: c.event, Matches: c.matches})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event.ID < out[j].Event.ID })
	return out, nil
}

func nearestUnselectedInAnnulus(candidates, selected map[int64]candidateInfo, outer, inner ellipsoid.Ellipsoid, q ellipsoid.Quadrant) (candidateInfo, int64, bool) {
	var best candidateInfo
	var bestID int64
	found := false

	for id, c := range candidates {
		if _, already := selected[id]; already {
			continue
		}
		if !outer.IsInside(c.event.Lat, c.event.Lon, c.event.DepthKm) {
			continue
		}
		if inner.IsInside(c.event.Lat, c.event.Lon, c.event.DepthKm) {
			continue // belongs to a more interior shell
		}
		candQ, ok := outer.QuadrantOf(c.event.Lat, c.event.Lon, c.event.DepthKm)
		if !ok || candQ != q {
			continue
		}
		if !found || c.distance < best.distance {
			best = c
			bestID = id
			found = true
		}
	}
	return best, bestID, found
}
