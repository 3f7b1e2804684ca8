package profile

import (
	"math"
	"testing"
)

func TestWayFilterMatches(t *testing.T) {
	private := "private"
	tagged := map[string]string{"highway": "service", "access": "private"}
	untagged := map[string]string{"highway": "service"}
	tests := []struct {
		name string
		f    WayFilter
		tags map[string]string
		want bool
	}{
		{"tag present", Deny("access", ""), tagged, true},
		{"tag missing", Deny("access", ""), untagged, false},
		{"value matches", Deny("access", "private"), tagged, true},
		{"value differs", Deny("access", "yes"), tagged, false},
		{"catch-all on tagged way", Otherwise(false), tagged, true},
		{"catch-all on untagged way", Otherwise(false), untagged, true},
		{"tag not required, no value", WayFilter{Tag: "access"}, untagged, true},
		{"tag not required, value still checked", WayFilter{Tag: "access", Value: &private}, untagged, false},
		{"tag not required, value matches", WayFilter{Tag: "access", Value: &private}, tagged, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Matches(tt.tags); got != tt.want {
				t.Errorf("%v.Matches(%v) = %v, want %v", tt.f, tt.tags, got, tt.want)
			}
		})
	}
}

func TestDefaultDenyProfile(t *testing.T) {
	p := Profile{WayFilters: []WayFilter{Allow("highway", "residential"), Otherwise(false)}}
	if !p.Routable(1, map[string]string{"highway": "residential"}) {
		t.Error("allowed highway rejected")
	}
	if p.Routable(1, map[string]string{"highway": "primary"}) {
		t.Error("other highway should fall to the deny-all filter")
	}
	if p.Routable(1, map[string]string{"building": "yes"}) {
		t.Error("way without highway should fall to the deny-all filter")
	}
}

func TestWayFilterString(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range []WayFilter{Deny("access", ""), Deny("access", "private"), Allow("access", ""), Otherwise(false), Otherwise(true)} {
		s := f.String()
		if seen[s] {
			t.Errorf("duplicate filter string %q", s)
		}
		seen[s] = true
	}
}

func TestCarTagMapFilter(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{"residential", map[string]string{"highway": "residential"}, true},
		{"no highway", map[string]string{"building": "yes"}, false},
		{"footway", map[string]string{"highway": "footway"}, false},
		{"private", map[string]string{"highway": "service", "access": "private"}, false},
		{"motorcar overrides access", map[string]string{"highway": "track", "access": "no", "motorcar": "yes"}, true},
		{"toll", map[string]string{"highway": "motorway", "toll": "yes"}, false},
		{"under construction", map[string]string{"highway": "primary", "construction": "major"}, false},
		{"minor construction", map[string]string{"highway": "primary", "construction": "minor"}, true},
		{"ferry", map[string]string{"route": "ferry"}, true},
		{"track with access", map[string]string{"highway": "track", "access": "permissive"}, true},
		{"track", map[string]string{"highway": "track"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CarTagMapFilter(1, tt.tags); got != tt.want {
				t.Errorf("CarTagMapFilter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBikeAndPedestrianFilters(t *testing.T) {
	if !BikeTagMapFilter(1, map[string]string{"highway": "cycleway"}) {
		t.Error("bike should use cycleways")
	}
	if BikeTagMapFilter(1, map[string]string{"highway": "motorway"}) {
		t.Error("bike should not use motorways")
	}
	if !BikeTagMapFilter(1, map[string]string{"highway": "trunk", "cycleway:right": "lane"}) {
		t.Error("bike should use roads with a cycle lane")
	}
	if !PedestrianTagMapFilter(1, map[string]string{"highway": "steps"}) {
		t.Error("pedestrian should use steps")
	}
	if PedestrianTagMapFilter(1, map[string]string{"highway": "footway", "foot": "no"}) {
		t.Error("foot=no should be rejected")
	}
	if PedestrianTagMapFilter(1, map[string]string{"natural": "water"}) {
		t.Error("untagged way should be rejected")
	}
}

func TestTruckTagMapFilter(t *testing.T) {
	filter := TruckTagMapFilter(4, 2.5, 12, 20)
	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{"no limits", map[string]string{"highway": "primary"}, true},
		{"too tall", map[string]string{"highway": "primary", "maxheight": "3.8"}, false},
		{"imperial clearance", map[string]string{"highway": "primary", "maxheight": "13'11\""}, true},
		{"physical beats posted", map[string]string{"highway": "primary", "maxheight": "3.5", "maxheight:physical": "4.2"}, true},
		{"unsigned", map[string]string{"highway": "primary", "maxheight": "default"}, true},
		{"too wide", map[string]string{"highway": "primary", "maxwidth": "2 m"}, false},
		{"too long", map[string]string{"highway": "primary", "maxlength": "10"}, false},
		{"too heavy", map[string]string{"highway": "primary", "maxweight": "7.5"}, false},
		{"heavy in lbs", map[string]string{"highway": "primary", "maxweight": "60000 lbs"}, true},
		{"falls back to car rules", map[string]string{"highway": "footway"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter(1, tt.tags); got != tt.want {
				t.Errorf("truck filter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMeters(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "3", want: 3},
		{in: "3.5", want: 3.5},
		{in: "3.5 m", want: 3.5},
		{in: "12'", want: 12 * 0.3048},
		{in: "13'11\"", want: 13*0.3048 + 11*0.0254},
		{in: "tall", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMeters(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMeters(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMeters(%q): %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseMeters(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTonnes(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "7.5", want: 7.5},
		{in: "7.5 t", want: 7.5},
		{in: "3500 kg", want: 3.5},
		{in: "10 st", want: 9.071847},
		{in: "2 lt", want: 2.032094},
		{in: "1000 lbs", want: 0.45359237},
		{in: "20 cwt", want: 1.016},
		{in: "heavy", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTonnes(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTonnes(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTonnes(%q): %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("ParseTonnes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
