// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"distance_router/pkg/osm"
	"distance_router/pkg/profile"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration file.
type Config struct {
	Map         string  `yaml:"map"`
	Index       string  `yaml:"index"`
	Concurrency int     `yaml:"concurrency"`
	SnapRadius  float64 `yaml:"snap-radius"`

	BBox *BBox `yaml:"bbox"`

	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Profile ProfileConfig `yaml:"profile"`
}

type BBox struct {
	MinLat float64 `yaml:"min-lat"`
	MaxLat float64 `yaml:"max-lat"`
	MinLng float64 `yaml:"min-lng"`
	MaxLng float64 `yaml:"max-lng"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	CORSOrigin     string        `yaml:"cors-origin"`
	ReadTimeout    time.Duration `yaml:"read-timeout"`
	WriteTimeout   time.Duration `yaml:"write-timeout"`
	RequestTimeout time.Duration `yaml:"request-timeout"`
	MaxConcurrent  int           `yaml:"max-concurrent"`
	CacheSize      int           `yaml:"cache-size"`
}

// ProfileConfig selects a preset or describes a custom profile.
type ProfileConfig struct {
	Name             string            `yaml:"name"`
	Type             string            `yaml:"type"`    // car, bike, pedestrian, truck or custom
	Measure          string            `yaml:"measure"` // distance or traveltime
	PreventLeftTurns bool              `yaml:"prevent-left-turns"`
	PreventUTurns    bool              `yaml:"prevent-u-turns"`
	TransportMode    string            `yaml:"transport-mode"`
	WayFilters       []WayFilterConfig `yaml:"way-filters"`
	WaySpeeds        map[int64]int     `yaml:"way-speeds"`
	Truck            TruckConfig       `yaml:"truck"`
}

// WayFilterConfig is one entry of the ordered way filter list. A filter
// with match-value unset matches any value of the tag. match-tag defaults
// to true; set it to false for a filter that applies whether or not the tag
// is present.
type WayFilterConfig struct {
	Tag        string `yaml:"tag"`
	MatchTag   *bool  `yaml:"match-tag"`
	Value      string `yaml:"value"`
	MatchValue bool   `yaml:"match-value"`
	Allowed    bool   `yaml:"allowed"`
}

func (f WayFilterConfig) matchTag() bool { return f.MatchTag == nil || *f.MatchTag }

// TruckConfig holds the truck limits in meters, tonnes and km/h.
type TruckConfig struct {
	Height float64 `yaml:"height"`
	Width  float64 `yaml:"width"`
	Length float64 `yaml:"length"`
	Weight float64 `yaml:"weight"`
	Speed  int     `yaml:"speed"`
}

// Default returns the configuration used for fields absent from the file.
func Default() Config {
	return Config{
		SnapRadius: 1000,
		Log:        LogConfig{Level: "info"},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   10 * time.Second,
			RequestTimeout: 5 * time.Second,
			CacheSize:      10000,
		},
		Profile: ProfileConfig{Type: "car", Measure: "distance"},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and the profile section.
func (c *Config) Validate() error {
	if c.Map == "" {
		return fmt.Errorf("%w: map is required", ErrInvalidConfig)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency %d is negative", ErrInvalidConfig, c.Concurrency)
	}
	if c.SnapRadius < 0 {
		return fmt.Errorf("%w: snap-radius %v is negative", ErrInvalidConfig, c.SnapRadius)
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("%w: server.cache-size %d is negative", ErrInvalidConfig, c.Server.CacheSize)
	}
	if c.BBox != nil && (c.BBox.MinLat > c.BBox.MaxLat || c.BBox.MinLng > c.BBox.MaxLng) {
		return fmt.Errorf("%w: bbox min exceeds max", ErrInvalidConfig)
	}
	switch c.Profile.Measure {
	case "distance", "traveltime":
	default:
		return fmt.Errorf("%w: profile.measure %q is not distance or traveltime", ErrInvalidConfig, c.Profile.Measure)
	}
	for i, f := range c.Profile.WayFilters {
		if f.Tag == "" && (f.matchTag() || f.MatchValue) {
			return fmt.Errorf("%w: profile.way-filters[%d] has no tag", ErrInvalidConfig, i)
		}
	}
	for id, speed := range c.Profile.WaySpeeds {
		if speed < 1 {
			return fmt.Errorf("%w: profile.way-speeds[%d] = %d", ErrInvalidConfig, id, speed)
		}
	}
	if _, err := c.Profile.Build(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// OSMBBox returns the extract bounding box, zero when unset.
func (c *Config) OSMBBox() osm.BBox {
	if c.BBox == nil {
		return osm.BBox{}
	}
	return osm.BBox{MinLat: c.BBox.MinLat, MaxLat: c.BBox.MaxLat, MinLng: c.BBox.MinLng, MaxLng: c.BBox.MaxLng}
}

// RoutingProfile returns the routing profile described by the profile section.
func (c *Config) RoutingProfile() (profile.Profile, error) {
	return c.Profile.Build()
}

// Build turns the section into a profile.Profile.
func (pc ProfileConfig) Build() (profile.Profile, error) {
	var p profile.Profile
	switch pc.Type {
	case "truck":
		t := pc.Truck
		p = profile.Truck(t.Height, t.Width, t.Length, t.Weight, t.Speed)
	case "custom":
		mode, err := profile.ParseTransportMode(pc.TransportMode)
		if err != nil {
			return profile.Profile{}, err
		}
		p = profile.Profile{Name: "custom", TransportMode: mode}
	default:
		var err error
		if p, err = profile.ByName(pc.Type); err != nil {
			return profile.Profile{}, err
		}
	}

	if pc.Name != "" {
		p.Name = pc.Name
	}
	p.PreventLeftTurns = pc.PreventLeftTurns
	p.PreventUTurns = pc.PreventUTurns
	p.UseTravelTime = pc.Measure == "traveltime"
	if len(pc.WaySpeeds) > 0 {
		p.WaySpeeds = pc.WaySpeeds
	}
	for _, f := range pc.WayFilters {
		wf := profile.WayFilter{Tag: f.Tag, MatchTag: f.matchTag(), Allowed: f.Allowed}
		if f.MatchValue {
			v := f.Value
			wf.Value = &v
		}
		p.WayFilters = append(p.WayFilters, wf)
	}
	return p, nil
}
