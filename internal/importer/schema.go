// Package importer reads an itinerary file (trip, activities, slots) and
// turns it into domain objects ready to persist.
package importer

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TripFile is the top-level structure of an itinerary file. JSON files
// load too since JSON is valid YAML.
type TripFile struct {
	Trip       TripImport       `yaml:"trip"`
	Activities []ActivityImport `yaml:"activities"`
	Slots      []SlotImport     `yaml:"slots"`
}

type TripImport struct {
	OwnerUserID string `yaml:"owner_user_id"`
	Timezone    string `yaml:"timezone"`
	Status      string `yaml:"status"`
	StartDate   string `yaml:"start_date"`
	EndDate     string `yaml:"end_date"`
}

// ActivityImport defines a place. Slots refer to it by Ref.
type ActivityImport struct {
	Ref                string   `yaml:"ref"`
	Name               string   `yaml:"name"`
	Lat                float64  `yaml:"lat"`
	Lng                float64  `yaml:"lng"`
	Category           string   `yaml:"category"`
	Tags               []string `yaml:"tags"`
	Quality            *float64 `yaml:"quality"`
	TypicalDurationMin *int     `yaml:"typical_duration_min"`
	Closed             bool     `yaml:"closed"`
}

// SlotImport places an activity on a day. Start and End are local wall
// clock times ("13:45") in the trip's timezone.
type SlotImport struct {
	Day      int    `yaml:"day"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Activity string `yaml:"activity"`
	Status   string `yaml:"status"`
	Locked   bool   `yaml:"locked"`
}

// Parse decodes an itinerary file, rejecting unknown keys.
func Parse(data []byte) (*TripFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f TripFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing itinerary file: %w", err)
	}
	return &f, nil
}

func Load(path string) (*TripFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
