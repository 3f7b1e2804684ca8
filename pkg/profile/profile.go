// Package profile decides which OSM ways a transport mode may use, how fast
// it travels on them, and which turns it must respect.
package profile

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownProfile is returned by ByName for an unregistered preset.
var ErrUnknownProfile = errors.New("unknown profile")

// TransportMode selects the mode-dependent tag semantics (oneway handling,
// turn restriction scope, default speed).
type TransportMode int

const (
	VehicleMode TransportMode = iota
	BikeMode
	PedestrianMode
)

func (m TransportMode) String() string {
	switch m {
	case VehicleMode:
		return "vehicle"
	case BikeMode:
		return "bike"
	case PedestrianMode:
		return "pedestrian"
	}
	return fmt.Sprintf("TransportMode(%d)", int(m))
}

// ParseTransportMode is the inverse of TransportMode.String. "car" and
// "truck" are accepted as vehicle aliases.
func ParseTransportMode(s string) (TransportMode, error) {
	switch s {
	case "vehicle", "car", "truck", "":
		return VehicleMode, nil
	case "bike", "bicycle":
		return BikeMode, nil
	case "pedestrian", "foot":
		return PedestrianMode, nil
	}
	return VehicleMode, fmt.Errorf("unknown transport mode %q", s)
}

// TagMapFilter reports whether a way with the given tags is usable.
type TagMapFilter func(wayID int64, tags map[string]string) bool

// SpeedMapper returns the travel speed on a way in km/h.
type SpeedMapper func(wayID int64, tags map[string]string) int

// Profile is immutable once handed to the graph builder.
type Profile struct {
	Name          string
	TransportMode TransportMode

	PreventLeftTurns bool
	PreventUTurns    bool

	// UseTravelTime selects travel time instead of geo distance as the
	// index weight.
	UseTravelTime bool

	// AllowedWayIDs is the legacy allowlist. When non-nil it is the only
	// eligibility source and WayFilters are ignored.
	AllowedWayIDs map[int64]bool

	// WaySpeeds overrides the computed speed (km/h) of individual ways.
	WaySpeeds map[int64]int

	// WayFilters are evaluated in order; the first match decides.
	WayFilters []WayFilter

	// Filter is the tag-derived default eligibility used when no WayFilter
	// matches. A nil Filter allows every way.
	Filter TagMapFilter

	SpeedMapper SpeedMapper
}

// Routable reports whether the way takes part in the routing graph.
func (p *Profile) Routable(wayID int64, tags map[string]string) bool {
	if p.AllowedWayIDs != nil {
		return p.AllowedWayIDs[wayID]
	}
	for _, f := range p.WayFilters {
		if f.Matches(tags) {
			return f.Allowed
		}
	}
	if p.Filter != nil {
		return p.Filter(wayID, tags)
	}
	return true
}

// Speed returns the way speed in km/h, never less than 1.
func (p *Profile) Speed(wayID int64, tags map[string]string) int {
	speed, ok := p.WaySpeeds[wayID]
	if !ok {
		if p.SpeedMapper != nil {
			speed = p.SpeedMapper(wayID, tags)
		} else {
			speed = p.TransportMode.defaultSpeed()
		}
	}
	if speed < 1 {
		speed = 1
	}
	return speed
}

func (m TransportMode) defaultSpeed() int {
	switch m {
	case PedestrianMode:
		return 5
	case BikeMode:
		return 15
	}
	return 50
}

// Legacy reports whether eligibility is driven by an explicit allowlist.
func (p *Profile) Legacy() bool { return p.AllowedWayIDs != nil }

// WithAllowedWayIDs returns a copy of p that uses ids as its allowlist.
func (p Profile) WithAllowedWayIDs(ids map[int64]bool) Profile {
	p.AllowedWayIDs = ids
	return p
}

// SortedAllowedWayIDs returns the allowlist in ascending order.
func (p *Profile) SortedAllowedWayIDs() []int64 {
	ids := make([]int64, 0, len(p.AllowedWayIDs))
	for id, ok := range p.AllowedWayIDs {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Car is the default motor vehicle preset.
func Car() Profile {
	return Profile{
		Name:          "car",
		TransportMode: VehicleMode,
		Filter:        CarTagMapFilter,
		SpeedMapper:   CarSpeedMapper,
	}
}

// Bike is the bicycle preset.
func Bike() Profile {
	return Profile{
		Name:          "bike",
		TransportMode: BikeMode,
		Filter:        BikeTagMapFilter,
		SpeedMapper:   BikeSpeedMapper,
	}
}

// Pedestrian is the walking preset.
func Pedestrian() Profile {
	return Profile{
		Name:          "pedestrian",
		TransportMode: PedestrianMode,
		Filter:        PedestrianTagMapFilter,
		SpeedMapper:   PedestrianSpeedMapper,
	}
}

// Truck is a vehicle preset restricted by the given dimensions (meters),
// weight (tonnes) and top speed (km/h). Zero values disable a limit.
func Truck(height, width, length, weight float64, speed int) Profile {
	mapper := CarSpeedMapper
	if speed > 0 {
		mapper = MaxSpeedMapper(speed)
	}
	return Profile{
		Name:          "truck",
		TransportMode: VehicleMode,
		Filter:        TruckTagMapFilter(height, width, length, weight),
		SpeedMapper:   mapper,
	}
}

// ByName returns the preset with the given name. Truck dimensions are left
// unrestricted; use Truck directly to set them.
func ByName(name string) (Profile, error) {
	switch name {
	case "car":
		return Car(), nil
	case "bike":
		return Bike(), nil
	case "pedestrian":
		return Pedestrian(), nil
	case "truck":
		return Truck(0, 0, 0, 0, 0), nil
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}
