package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// fileFormat is the on-disk shape LoadJSON reads: a flat list of
// stations, events and phases, matching how the engine's input
// catalog is staged before a relocation run (spec §3).
type fileFormat struct {
	Stations []Station `json:"stations"`
	Events   []Event   `json:"events"`
	Phases   []Phase   `json:"phases"`
}

// LoadJSON reads a catalog from a JSON file.
func LoadJSON(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %s: %w", path, err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}

	c := New()
	for _, s := range ff.Stations {
		c.Stations[s.ID] = s
	}
	for _, e := range ff.Events {
		c.Events[e.ID] = e
	}
	for _, p := range ff.Phases {
		c.Phases[p.EventID] = append(c.Phases[p.EventID], p)
	}
	return c, nil
}
