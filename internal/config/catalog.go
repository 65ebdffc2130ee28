package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrUnknownTrack  = errors.New("unknown track preset")
	ErrUnknownRoster = errors.New("unknown roster")
	ErrBadZone       = errors.New("bad zone")
)

// Catalog is the set of track presets and rosters a simulator can race.
type Catalog struct {
	Tracks  map[string]TrackPreset    `json:"tracks" yaml:"tracks"`
	Rosters map[string][]RacerPreset `json:"rosters" yaml:"rosters"`
}

// TrackPreset describes a course. Zones with explicit ranges win over
// ZoneKinds, which are laid out from Balance.ZoneLengths.
type TrackPreset struct {
	Width     float64      `json:"width" yaml:"width"`
	Closed    bool         `json:"closed" yaml:"closed"`
	Points    [][2]float64 `json:"points" yaml:"points"`
	Zones     []ZonePreset `json:"zones,omitempty" yaml:"zones,omitempty"`
	ZoneKinds []string     `json:"zone_kinds,omitempty" yaml:"zone_kinds,omitempty"`
}

type ZonePreset struct {
	Kind  string  `json:"kind" yaml:"kind"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

type RacerPreset struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Tint  string     `json:"tint" yaml:"tint"`
	Stats StatPreset `json:"stats" yaml:"stats"`
}

type StatPreset struct {
	Motility          float64 `json:"motility" yaml:"motility"`
	Linearity         float64 `json:"linearity" yaml:"linearity"`
	FlowAffinity      float64 `json:"flow_affinity" yaml:"flow_affinity"`
	SignalSensitivity float64 `json:"signal_sensitivity" yaml:"signal_sensitivity"`
}

// DefaultCatalog returns the embedded presets.
func DefaultCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		return nil, fmt.Errorf("decode embedded catalog: %w", err)
	}
	return &c, nil
}

// LoadCatalogYAML decodes a catalog from r.
func LoadCatalogYAML(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks zone kinds. Control-point counts are left to the geometry
// builder, which owns that rule.
func (c *Catalog) Validate() error {
	for name, t := range c.Tracks {
		for i, z := range t.Zones {
			if !validZoneKind(z.Kind) {
				return fmt.Errorf("track %s zone %d: %w: kind %q", name, i, ErrBadZone, z.Kind)
			}
		}
		for i, k := range t.ZoneKinds {
			if !validZoneKind(k) {
				return fmt.Errorf("track %s zone kind %d: %w: kind %q", name, i, ErrBadZone, k)
			}
		}
	}
	for name, roster := range c.Rosters {
		for i, r := range roster {
			if r.ID == "" {
				return fmt.Errorf("roster %s racer %d: id is required", name, i)
			}
		}
	}
	return nil
}

// Track looks up a preset by name.
func (c *Catalog) Track(name string) (TrackPreset, error) {
	t, ok := c.Tracks[name]
	if !ok {
		return TrackPreset{}, fmt.Errorf("%w: %s", ErrUnknownTrack, name)
	}
	return t, nil
}

// Roster looks up a roster by name.
func (c *Catalog) Roster(name string) ([]RacerPreset, error) {
	r, ok := c.Rosters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoster, name)
	}
	return append([]RacerPreset(nil), r...), nil
}

// TrackNames lists presets in sorted order.
func (c *Catalog) TrackNames() []string {
	names := make([]string, 0, len(c.Tracks))
	for name := range c.Tracks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validZoneKind(k string) bool {
	switch k {
	case "flow", "gradient", "viscous":
		return true
	}
	return false
}
