package profile

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	imperialMeasure = regexp.MustCompile(`^(\d+)'(?:(\d+)")?$`)
	decimalMeasure  = regexp.MustCompile(`^(\d+(?:\.\d*)?)(?: ?m)?$`)
	weightMeasure   = regexp.MustCompile(`^(\d+(?:\.\d*)?)(?: ?(t|kg|st|lt|lbs|cwt))?$`)
)

const (
	metersPerFoot = 0.3048
	metersPerInch = 0.0254
)

// tonnes per unit
var weightUnits = map[string]float64{
	"":    1,
	"t":   1,
	"kg":  0.001,
	"st":  0.9071847,
	"lt":  1.016047,
	"lbs": 0.00045359237,
	"cwt": 0.05080,
}

// ParseMeters parses a length tag such as "3.5", "3.5 m" or 13'11".
func ParseMeters(val string) (float64, error) {
	if m := imperialMeasure.FindStringSubmatch(val); m != nil {
		feet, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("parse feet in %q: %w", val, err)
		}
		total := float64(feet) * metersPerFoot
		if m[2] != "" {
			inches, err := strconv.Atoi(m[2])
			if err != nil {
				return 0, fmt.Errorf("parse inches in %q: %w", val, err)
			}
			total += float64(inches) * metersPerInch
		}
		return total, nil
	}
	if m := decimalMeasure.FindStringSubmatch(val); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("parse meters in %q: %w", val, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("not a length: %q", val)
}

// ParseTonnes parses a weight tag such as "7.5", "3500 kg" or "12 st".
func ParseTonnes(val string) (float64, error) {
	m := weightMeasure.FindStringSubmatch(val)
	if m == nil {
		return 0, fmt.Errorf("not a weight: %q", val)
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse weight in %q: %w", val, err)
	}
	return f * weightUnits[m[2]], nil
}
