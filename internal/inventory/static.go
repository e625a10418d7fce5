package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StaticLookup answers FindSensorLocation from a fixed, in-memory set
// of sensor locations loaded once at startup. It has no notion of
// epochs — the inventory is assumed stable over the relocation
// window, which holds for the short deployments this engine targets.
type StaticLookup struct {
	locations map[string]SensorLocation // keyed by "net.sta.loc"
}

// LoadStaticInventory reads a JSON array of SensorLocation from path.
func LoadStaticInventory(path string) (*StaticLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory file %s: %w", path, err)
	}

	var locations []SensorLocation
	if err := json.Unmarshal(data, &locations); err != nil {
		return nil, fmt.Errorf("parsing inventory file %s: %w", path, err)
	}

	l := &StaticLookup{locations: make(map[string]SensorLocation, len(locations))}
	for _, loc := range locations {
		l.locations[key(loc.Network, loc.Station, loc.Location)] = loc
	}
	return l, nil
}

func (l *StaticLookup) FindSensorLocation(network, station, location string, _ time.Time) (*SensorLocation, error) {
	loc, ok := l.locations[key(network, station, location)]
	if !ok {
		return nil, fmt.Errorf("inventory: no sensor location for %s.%s.%s", network, station, location)
	}
	return &loc, nil
}

func key(network, station, location string) string {
	return network + "." + station + "." + location
}
