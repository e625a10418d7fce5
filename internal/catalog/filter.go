package catalog

// FilterPhases produces a new catalog where each (event, station) slot
// holds at most one P and one S phase, canonicalized to PhaseP/PhaseS.
//
// pPref and sPref are ordered preference lists of acceptable source
// type strings (e.g. ["Pn", "Pg"]); among candidates whose RawType
// appears in the list, the one with the lowest preference index wins.
// Ties are broken by first-seen order. Phases whose RawType matches
// neither list are discarded.
func FilterPhases(c *Catalog, pPref, sPref []string) *Catalog {
	pRank := rankOf(pPref)
	sRank := rankOf(sPref)

	out := New()
	for id, st := range c.Stations {
		out.Stations[id] = st
	}
	for id, ev := range c.Events {
		out.Events[id] = ev
	}

	for evID, phases := range c.Phases {
		best := make(map[string]Phase) // stationID -> best P, and separately best S via key suffix
		bestRank := make(map[string]int)

		for _, ph := range phases {
			var ptype PhaseType
			var rank int
			var ok bool
			if r, found := pRank[ph.RawType]; found {
				ptype, rank, ok = PhaseP, r, true
			} else if r, found := sRank[ph.RawType]; found {
				ptype, rank, ok = PhaseS, r, true
			}
			if !ok {
				continue
			}

			key := ph.StationID + "|" + string(ptype)
			if cur, exists := best[key]; !exists || rank < bestRank[key] {
				canon := ph
				canon.Type = ptype
				best[key] = canon
				bestRank[key] = rank
				_ = cur
			}
		}

		var kept []Phase
		for _, ph := range best {
			kept = append(kept, ph)
		}
		if len(kept) > 0 {
			out.Phases[evID] = kept
		}
	}

	return out
}

func rankOf(pref []string) map[string]int {
	m := make(map[string]int, len(pref))
	for i, s := range pref {
		if _, exists := m[s]; !exists {
			m[s] = i
		}
	}
	return m
}
