// Command routekit answers batches of route and matrix queries read as JSON.
//
// In tuples mode the input is a list of {"from": [lon, lat], "to": [lon, lat]}
// pairs and each output entry carries the cost and the route waypoints. In
// matrix mode the input is {"points": [[lon, lat], ...]} and the output is
// the all-pairs cost matrix.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"distance_router/pkg/logger"
	"distance_router/pkg/profile"
	"distance_router/pkg/routing"
)

type tuple struct {
	From [2]float64 `json:"from"`
	To   [2]float64 `json:"to"`
}

type tupleResult struct {
	From      [2]float64   `json:"from"`
	To        [2]float64   `json:"to"`
	Cost      uint32       `json:"cost"`
	Waypoints [][2]float64 `json:"waypoints"`
}

type matrixInput struct {
	Points [][2]float64 `json:"points"`
}

type matrixOutput struct {
	Matrix [][]uint32 `json:"matrix"`
}

type flags struct {
	input, output string
	mapFile       string
	profile       string
	measure       string
	mode          string
	snapRadius    float64
	concurrency   int

	height, width, length, weight float64
	speed                         int

	logLevel string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("routekit", flag.ContinueOnError)
	fs.StringVar(&f.input, "input", "", "Input JSON file (default stdin)")
	fs.StringVar(&f.output, "output", "", "Output JSON file (default stdout)")
	fs.StringVar(&f.mapFile, "map", "", "Path to .osm.pbf or .osm file")
	fs.StringVar(&f.profile, "profile", "car", "Profile: car, bike, pedestrian or truck")
	fs.StringVar(&f.measure, "measure", "distance", "Cost: distance (m) or traveltime (ms)")
	fs.StringVar(&f.mode, "mode", "tuples", "Input mode: tuples or matrix")
	fs.Float64Var(&f.snapRadius, "snap-radius", routing.DefaultSnapRadius, "Snap radius in meters")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Query slots (0 = GOMAXPROCS)")
	fs.Float64Var(&f.height, "truck-height", 0, "Truck height in meters")
	fs.Float64Var(&f.width, "truck-width", 0, "Truck width in meters")
	fs.Float64Var(&f.length, "truck-length", 0, "Truck length in meters")
	fs.Float64Var(&f.weight, "truck-weight", 0, "Truck weight in tonnes")
	fs.IntVar(&f.speed, "truck-speed", 0, "Truck top speed in km/h")
	fs.StringVar(&f.logLevel, "log-level", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.mapFile == "" {
		return f, errors.New("--map is required")
	}
	if f.mode != "tuples" && f.mode != "matrix" {
		return f, fmt.Errorf("unknown mode %q", f.mode)
	}
	if f.measure != "distance" && f.measure != "traveltime" {
		return f, fmt.Errorf("unknown measure %q", f.measure)
	}
	return f, nil
}

func (f flags) routingProfile() (profile.Profile, error) {
	var p profile.Profile
	if f.profile == "truck" {
		p = profile.Truck(f.height, f.width, f.length, f.weight, f.speed)
	} else {
		var err error
		if p, err = profile.ByName(f.profile); err != nil {
			return p, err
		}
	}
	p.UseTravelTime = f.measure == "traveltime"
	return p, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logger.New(f.logLevel, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	in := io.Reader(os.Stdin)
	if f.input != "" {
		file, err := os.Open(f.input)
		if err != nil {
			log.Fatal("open input", zap.Error(err))
		}
		defer file.Close()
		in = file
	}
	out := io.Writer(os.Stdout)
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			log.Fatal("create output", zap.Error(err))
		}
		defer file.Close()
		out = file
	}

	if err := run(context.Background(), f, in, out, log); err != nil {
		log.Fatal("routekit failed", zap.Error(err))
	}
}

func run(ctx context.Context, f flags, in io.Reader, out io.Writer, log *zap.Logger) error {
	p, err := f.routingProfile()
	if err != nil {
		return err
	}
	svc, err := routing.Open(ctx, routing.Options{
		MapFile:     f.mapFile,
		Profile:     p,
		Concurrency: f.concurrency,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	client := routing.NewClient(svc)
	client.SetSnapRadius(f.snapRadius)

	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)
	if f.mode == "matrix" {
		var mi matrixInput
		if err := dec.Decode(&mi); err != nil {
			return fmt.Errorf("decode matrix input: %w", err)
		}
		points := toPoints(mi.Points)
		m, err := client.Matrix(ctx, points, points)
		if err != nil {
			return err
		}
		return enc.Encode(matrixOutput{Matrix: m})
	}

	var tuples []tuple
	if err := dec.Decode(&tuples); err != nil {
		return fmt.Errorf("decode tuples: %w", err)
	}
	results := make([]tupleResult, len(tuples))
	for i, t := range tuples {
		cost, wp, err := client.Route(ctx, point(t.From), point(t.To))
		if err != nil {
			return err
		}
		results[i] = tupleResult{From: t.From, To: t.To, Cost: cost, Waypoints: make([][2]float64, len(wp))}
		for k, p := range wp {
			results[i].Waypoints[k] = [2]float64{p.Lon, p.Lat}
		}
	}
	return enc.Encode(results)
}

func point(lonLat [2]float64) routing.Point {
	return routing.Point{Lon: lonLat[0], Lat: lonLat[1]}
}

func toPoints(lonLats [][2]float64) []routing.Point {
	out := make([]routing.Point, len(lonLats))
	for i, ll := range lonLats {
		out[i] = point(ll)
	}
	return out
}
