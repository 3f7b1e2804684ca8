package profile

import "strings"

// WayFilter matches a way by one tag. With MatchTag unset the filter does
// not require the tag, so a filter without Value matches every way. Value
// nil matches any value.
type WayFilter struct {
	Tag      string
	MatchTag bool
	Value    *string
	Allowed  bool
}

// Matches reports whether tags satisfy the tag and value conditions of f.
func (f WayFilter) Matches(tags map[string]string) bool {
	v, ok := tags[f.Tag]
	if f.MatchTag && !ok {
		return false
	}
	if f.Value == nil {
		return true
	}
	return ok && *f.Value == v
}

func (f WayFilter) String() string {
	verb := "deny"
	if f.Allowed {
		verb = "allow"
	}
	switch {
	case f.Value != nil:
		return verb + " " + f.Tag + "=" + *f.Value
	case f.MatchTag:
		return verb + " " + f.Tag + "=*"
	}
	return verb + " *"
}

// Allow and Deny are WayFilter shorthands for ways carrying tag. An empty
// value matches any value.
func Allow(tag, value string) WayFilter { return newWayFilter(tag, value, true) }

func Deny(tag, value string) WayFilter { return newWayFilter(tag, value, false) }

// Otherwise matches every way; placed last it replaces default-allow.
func Otherwise(allowed bool) WayFilter { return WayFilter{Allowed: allowed} }

func newWayFilter(tag, value string, allowed bool) WayFilter {
	f := WayFilter{Tag: tag, MatchTag: true, Allowed: allowed}
	if value != "" {
		f.Value = &value
	}
	return f
}

type stringSet map[string]bool

func setOf(values ...string) stringSet {
	s := make(stringSet, len(values))
	for _, v := range values {
		s[v] = true
	}
	return s
}

var (
	carClosedHighways = setOf("area", "reversible", "impassable", "hov_lanes",
		"steps", "construction", "proposed")
	carHighways = setOf("motorway", "motorway_link", "trunk", "trunk_link",
		"primary", "primary_link", "secondary", "secondary_link", "tertiary",
		"tertiary_link", "unclassified", "residential", "living_street", "service")
	carDeniedAccess = setOf("no", "agricultural", "forestry", "emergency", "psv", "private")
	carGrantedAccess = setOf("yes", "motorcar", "motor_vehicle", "vehicle",
		"permissive", "designated", "hov")

	bikeHighways = setOf("cycleway", "primary", "primary_link", "secondary",
		"secondary_link", "tertiary", "tertiary_link", "residential",
		"unclassified", "living_street", "road", "service", "track", "path")
	bikeDeniedAccess  = setOf("no", "private", "agricultural", "forestry", "delivery", "use_sidepath")
	bikeGrantedAccess = setOf("yes", "permissive", "designated")
	cyclewayKeys      = []string{"cycleway", "cycleway:left", "cycleway:right", "cycleway:both"}

	footHighways = setOf("primary", "primary_link", "secondary", "secondary_link",
		"tertiary", "tertiary_link", "residential", "unclassified", "living_street",
		"road", "service", "track", "path", "steps", "pedestrian", "footway", "pier")
	footDeniedAccess  = setOf("no", "agricultural", "forestry", "private")
	footGrantedAccess = setOf("yes", "foot", "permissive", "destination", "delivery", "designated")
	footRoutableKeys  = []string{"highway", "bridge", "route", "leisure", "man_made",
		"railway", "platform", "amenity", "public_transport"}

	railways = setOf("train", "railway", "subway", "light_rail", "monorail", "tram")

	// construction values that keep a way open
	openConstruction = setOf("no", "widening", "minor")
)

// firstTag returns the value of the first present key, in order.
func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := tags[k]; ok {
			return v
		}
	}
	return ""
}

// anyTag reports whether any of the keys has a non-empty value.
func anyTag(tags map[string]string, keys ...string) bool {
	for _, k := range keys {
		if tags[k] != "" {
			return true
		}
	}
	return false
}

func underConstruction(tags map[string]string) bool {
	c, ok := tags["construction"]
	return ok && !openConstruction[c]
}

func hovOnly(tags map[string]string) bool {
	for _, lane := range strings.Split(tags["hov:lanes"], "|") {
		if lane != "designated" {
			return false
		}
	}
	return true
}

// CarTagMapFilter accepts ways a private car may drive on.
func CarTagMapFilter(_ int64, tags map[string]string) bool {
	highway, route := tags["highway"], tags["route"]
	switch {
	case highway == "" && route == "":
		return false
	case tags["area"] == "yes":
		return false
	case route == "shuttle_train":
		return true
	case tags["toll"] == "yes":
		return false
	case carClosedHighways[highway], tags["railway"] == "construction":
		return false
	case underConstruction(tags), tags["proposed"] != "":
		return false
	case tags["oneway"] == "reversible":
		return false
	case tags["impassable"] == "yes", tags["status"] == "impassable":
		return false
	}

	access := firstTag(tags, "motorcar", "motor_vehicle", "vehicle", "access")
	if carDeniedAccess[access] {
		return false
	}
	if carHighways[highway] || route == "ferry" {
		return true
	}
	if tags["bridge"] == "movable" && tags["capacity:car"] != "0" {
		return true
	}
	if tags["service"] == "emergency_access" || hovOnly(tags) {
		return false
	}
	return carGrantedAccess[access]
}

// BikeTagMapFilter accepts ways usable by bicycle, transit legs included.
func BikeTagMapFilter(_ int64, tags map[string]string) bool {
	if tags["impassable"] == "yes" || underConstruction(tags) {
		return false
	}
	highway, railway := tags["highway"], tags["railway"]
	if !anyTag(tags, "highway", "route", "railway", "amenity", "man_made",
		"public_transport", "bridge") {
		return false
	}

	access := firstTag(tags, "bicycle", "vehicle", "access")
	switch {
	case bikeDeniedAccess[access]:
		return false
	case bikeGrantedAccess[access]:
		return true
	case tags["route"] == "ferry", tags["bridge"] == "movable":
		return true
	case railway == "platform", tags["public_transport"] == "platform":
		return true
	case railways[railway]:
		return true
	}
	for _, k := range cyclewayKeys {
		if _, ok := tags[k]; ok {
			return true
		}
	}
	return bikeHighways[highway]
}

// PedestrianTagMapFilter accepts ways usable on foot.
func PedestrianTagMapFilter(_ int64, tags map[string]string) bool {
	if !anyTag(tags, footRoutableKeys...) {
		return false
	}
	if tags["impassable"] == "yes" || tags["status"] == "impassable" {
		return false
	}

	access := firstTag(tags, "foot", "access")
	railway := tags["railway"]
	switch {
	case footDeniedAccess[access]:
		return false
	case footGrantedAccess[access]:
		return true
	case tags["bridge"] == "movable":
		return true
	case railway == "platform", tags["public_transport"] == "platform":
		return true
	case railways[railway], tags["route"] == "ferry":
		return true
	}
	return footHighways[tags["highway"]] || tags["man_made"] == "pier"
}

// meter tag values that mean "no posted limit"
var unsignedLimit = setOf("default", "below_default", "no_indications",
	"no_sign", "none", "unsigned")

// TruckTagMapFilter rejects ways whose posted height, width, length or
// weight limits the truck exceeds, then applies the car rules.
func TruckTagMapFilter(height, width, length, weight float64) TagMapFilter {
	return func(wayID int64, tags map[string]string) bool {
		limit := func(keys ...string) float64 {
			var max float64
			for _, k := range keys {
				v, ok := tags[k]
				if !ok || unsignedLimit[v] {
					continue
				}
				m, err := ParseMeters(v)
				if err != nil {
					continue
				}
				if m > max {
					max = m
				}
			}
			return max
		}
		exceeds := func(size, lim float64) bool { return lim > 0 && size > lim }

		if exceeds(height, limit("maxheight", "maxheight:physical")) ||
			exceeds(width, limit("maxwidth", "maxwidth:physical")) ||
			exceeds(length, limit("maxlength")) {
			return false
		}
		if v, ok := tags["maxweight"]; ok {
			if t, err := ParseTonnes(v); err == nil && exceeds(weight, t) {
				return false
			}
		}
		return CarTagMapFilter(wayID, tags)
	}
}
