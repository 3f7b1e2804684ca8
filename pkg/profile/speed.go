package profile

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	countryPrefixed = regexp.MustCompile(`^\w{2}:(.*)$`)
	speedWithUnit   = regexp.MustCompile(`^([0-9][.0-9]*?)(?: ?(km/h|kmh|kph|mph|knots))?$`)
)

const (
	mphToKmh   = 1609.0 / 1000
	knotsToKmh = 1852.0 / 1000
)

// implicit limits keyed by the full maxspeed value
var countrySpeeds = map[string]float64{
	"at:rural":         100,
	"at:trunk":         100,
	"be:motorway":      120,
	"be-bru:rural":     70,
	"be-bru:urban":     30,
	"be-vlg:rural":     70,
	"by:urban":         60,
	"by:motorway":      110,
	"ch:rural":         80,
	"ch:trunk":         100,
	"ch:motorway":      120,
	"cz:trunk":         0,
	"cz:motorway":      0,
	"de:living_street": 7,
	"de:rural":         100,
	"de:motorway":      0,
	"dk:rural":         80,
	"fr:rural":         80,
	"gb:nsl_single":    60 * mphToKmh,
	"gb:nsl_dual":      70 * mphToKmh,
	"gb:motorway":      70 * mphToKmh,
	"nl:rural":         80,
	"nl:trunk":         100,
	"no:rural":         80,
	"no:motorway":      110,
	"pl:rural":         100,
	"pl:trunk":         120,
	"pl:motorway":      140,
	"ro:trunk":         100,
	"ru:living_street": 20,
	"ru:urban":         60,
	"ru:motorway":      110,
	"uk:nsl_single":    60 * mphToKmh,
	"uk:nsl_dual":      70 * mphToKmh,
	"uk:motorway":      70 * mphToKmh,
	"za:urban":         60,
	"za:rural":         100,
	"none":             140,
}

// implicit limits by road class once the country prefix is stripped
var classSpeeds = map[string]float64{
	"urban":    50,
	"rural":    90,
	"trunk":    110,
	"motorway": 130,
}

// ParseMaxspeed converts a maxspeed tag value to km/h. It returns 0 when the
// value is not understood.
func ParseMaxspeed(v string) float64 {
	if s, ok := countrySpeeds[v]; ok {
		return s
	}
	class := v
	if m := countryPrefixed.FindStringSubmatch(v); m != nil {
		class = m[1]
	}
	if s, ok := classSpeeds[class]; ok {
		return s
	}
	if s, ok := ParseSpeedKmh(v); ok {
		return s
	}
	return 0
}

// ParseSpeedKmh parses "50", "50 km/h", "30 mph" or "10 knots".
func ParseSpeedKmh(v string) (float64, bool) {
	m := speedWithUnit.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	speed, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "mph":
		return speed * mphToKmh, true
	case "knots":
		return speed * knotsToKmh, true
	}
	return speed, true
}

var (
	carHighwaySpeeds = map[string]int{
		"motorway":       90,
		"motorway_link":  45,
		"trunk":          85,
		"trunk_link":     40,
		"primary":        65,
		"primary_link":   30,
		"secondary":      55,
		"secondary_link": 25,
		"tertiary":       40,
		"tertiary_link":  20,
		"unclassified":   25,
		"residential":    25,
		"living_street":  10,
		"service":        15,
	}
	surfaceSpeeds = map[string]int{
		"cement": 80, "compacted": 80, "fine_gravel": 80,
		"paving_stones": 60, "metal": 60, "bricks": 60,
		"grass": 40, "wood": 40, "sett": 40, "grass_paver": 40, "gravel": 40,
		"unpaved": 40, "ground": 40, "dirt": 40, "pebblestone": 40, "tartan": 40,
		"cobblestone": 30, "clay": 30,
		"earth": 20, "stone": 20, "rocky": 20, "sand": 20,
		"mud": 10,
	}
	trackTypeSpeeds = map[string]int{
		"grade1": 60, "grade2": 40, "grade3": 30, "grade4": 25, "grade5": 20,
	}
	smoothnessSpeeds = map[string]int{
		"intermediate": 80, "bad": 40, "very_bad": 20,
		"horrible": 10, "very_horrible": 5, "impassable": 0,
	}
	footSurfaceFactor = map[string]float64{
		"fine_gravel": 0.75, "gravel": 0.75, "pebblestone": 0.75,
		"mud": 0.5, "sand": 0.5,
	}
)

// CarSpeedMapper derives a car speed from the road class, the posted limit
// and surface quality caps.
func CarSpeedMapper(_ int64, tags map[string]string) int {
	switch tags["route"] {
	case "ferry":
		return 5
	case "shuttle_train":
		return 10
	}
	if tags["bridge"] == "movable" {
		if tags["capacity:car"] == "0" {
			return 0
		}
		return 5
	}

	speed, ok := carHighwaySpeeds[tags["highway"]]
	if !ok {
		speed = 10
	}
	if posted := firstTag(tags, "maxspeed:advisory", "maxspeed", "source:maxspeed", "maxspeed:type"); posted != "" {
		if limit := ParseMaxspeed(strings.TrimLeft(posted, " ")); limit > 0 {
			speed = int(math.Ceil(limit))
		}
	}

	if s, ok := surfaceSpeeds[tags["surface"]]; ok && s < speed {
		speed = s
	}
	if s, ok := trackTypeSpeeds[tags["tracktype"]]; ok && s < speed {
		speed = s
	}
	if s, ok := smoothnessSpeeds[tags["smoothness"]]; ok && s < speed {
		speed = s
	}
	return speed
}

// BikeSpeedMapper returns cycling speeds, with walking pace on platforms.
func BikeSpeedMapper(_ int64, tags map[string]string) int {
	const walking = 4
	switch {
	case tags["bridge"] == "movable", tags["route"] == "ferry":
		return 5
	case tags["public_transport"] == "platform", tags["railway"] == "platform":
		return walking
	case railways[tags["railway"]]:
		return 10
	case tags["amenity"] == "parking", tags["amenity"] == "parking_entrance":
		return 10
	case tags["highway"] == "track", tags["highway"] == "path":
		return 12
	}
	return 15
}

// PedestrianSpeedMapper walks at 5 km/h, slowed on loose surfaces.
func PedestrianSpeedMapper(_ int64, tags map[string]string) int {
	const walking = 5.0
	if f, ok := footSurfaceFactor[tags["surface"]]; ok {
		return int(walking * f)
	}
	return int(walking)
}

// MaxSpeedMapper caps CarSpeedMapper at max km/h.
func MaxSpeedMapper(max int) SpeedMapper {
	return func(id int64, tags map[string]string) int {
		if s := CarSpeedMapper(id, tags); s < max {
			return s
		}
		return max
	}
}
