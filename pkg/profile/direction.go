package profile

import "strings"

// Direction is the set of directions a way can be traversed in, relative
// to the order of its nodes.
type Direction uint8

const (
	Closed   Direction = 0
	Forward  Direction = 1 << 0
	Backward Direction = 1 << 1
	Both               = Forward | Backward
)

func (d Direction) AllowsForward() bool  { return d&Forward != 0 }
func (d Direction) AllowsBackward() bool { return d&Backward != 0 }

func (d Direction) String() string {
	switch d {
	case Closed:
		return "closed"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Both:
		return "both"
	}
	return "invalid"
}

// Direction returns how the profile's mode may traverse a way.
func (p *Profile) Direction(tags map[string]string) Direction {
	if p.TransportMode == PedestrianMode {
		return Both
	}

	d := Both
	hw := tags["highway"]
	if hw == "motorway" || hw == "motorway_link" {
		d = Forward
	}
	switch tags["junction"] {
	case "roundabout", "circular":
		d = Forward
	}

	d = applyOneway(d, tags["oneway"])

	if p.TransportMode == BikeMode {
		if v, ok := tags["oneway:bicycle"]; ok {
			d = applyOneway(d, v)
		} else if d != Both && strings.HasPrefix(tags["cycleway"], "opposite") {
			d = Both
		}
	}
	return d
}

func applyOneway(d Direction, v string) Direction {
	switch v {
	case "yes", "true", "1":
		return Forward
	case "-1", "reverse":
		return Backward
	case "no", "false", "0":
		return Both
	case "reversible", "alternating":
		return Closed
	}
	return d
}
