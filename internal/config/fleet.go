package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// VehicleEntry is one vehicle of the fleet roster.
type VehicleEntry struct {
	ID          string `yaml:"id"`
	OwnerID     string `yaml:"owner_id"`
	Name        string `yaml:"name"`
	Model       string `yaml:"model"`
	AccessToken string `yaml:"access_token"`
	Latitude    int    `yaml:"latitude"`
	Longitude   int    `yaml:"longitude"`
	Active      *bool  `yaml:"active"`
}

type Roster struct {
	Vehicles []VehicleEntry `yaml:"vehicles"`
}

// IsActive defaults to true when the roster does not say.
func (v VehicleEntry) IsActive() bool {
	return v.Active == nil || *v.Active
}

func LoadFleet(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet file: %w", err)
	}

	roster := &Roster{}
	if err := yaml.UnmarshalStrict(data, roster); err != nil {
		return nil, fmt.Errorf("parse fleet file: %w", err)
	}

	seen := make(map[string]bool, len(roster.Vehicles))
	for i, v := range roster.Vehicles {
		if v.ID == "" {
			return nil, fmt.Errorf("fleet file: vehicle #%d has no id", i+1)
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("fleet file: duplicate vehicle %q", v.ID)
		}
		seen[v.ID] = true
	}
	return roster, nil
}
