package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"distance_router/pkg/graph"
	"distance_router/pkg/index"
	"distance_router/pkg/logger"
	"distance_router/pkg/osm"
	"distance_router/pkg/profile"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf or .osm file")
	output := flag.String("output", "", "Index file path (default derived from input and profile)")
	profileName := flag.String("profile", "car", "Profile: car, bike, pedestrian or truck")
	measure := flag.String("measure", "distance", "Index weight: distance or traveltime")
	preventLeft := flag.Bool("prevent-left-turns", false, "Treat every left turn restriction as prohibitive")
	preventU := flag.Bool("prevent-u-turns", false, "Forbid U-turns at every node")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur bounding box)")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output file.ch] [--profile car] [--measure distance|traveltime] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	log, err := logger.New(*logLevel, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	p, err := profile.ByName(*profileName)
	if err != nil {
		log.Fatal("invalid profile", zap.Error(err))
	}
	switch *measure {
	case "distance":
	case "traveltime":
		p.UseTravelTime = true
	default:
		log.Fatal("invalid measure", zap.String("measure", *measure))
	}
	p.PreventLeftTurns = *preventLeft
	p.PreventUTurns = *preventU

	opts := osm.Options{Logger: log}
	switch {
	case *kl:
		opts.BBox = osm.BBox{MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0}
	case *singapore:
		opts.BBox = osm.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
	case *bbox != "":
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatal("invalid bbox format (expected minLat,minLng,maxLat,maxLng)", zap.Error(err))
		}
		opts.BBox = osm.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
	}
	if !opts.BBox.IsZero() {
		log.Info("using bounding box filter",
			zap.Float64("min_lat", opts.BBox.MinLat), zap.Float64("max_lat", opts.BBox.MaxLat),
			zap.Float64("min_lng", opts.BBox.MinLng), zap.Float64("max_lng", opts.BBox.MaxLng))
	}

	start := time.Now()

	g, err := graph.BuildFromFile(context.Background(), *input, p, opts)
	if err != nil {
		log.Fatal("failed to build graph", zap.Error(err))
	}

	comp := graph.Components(g)
	if g.NumNodes > 0 {
		log.Info("connected components",
			zap.Int("count", comp.Count),
			zap.Uint32("largest", comp.Largest),
			zap.Float64("largest_pct", float64(comp.Largest)/float64(g.NumNodes)*100))
	}

	path := *output
	if path == "" {
		if path, err = index.FileName(*input, g.Profile); err != nil {
			log.Fatal("failed to derive index path", zap.Error(err))
		}
	}

	idx, err := index.Build(g, log)
	if err != nil {
		log.Fatal("failed to build index", zap.Error(err))
	}
	if err := idx.SaveFile(path); err != nil {
		log.Fatal("failed to write index", zap.Error(err))
	}

	info, _ := os.Stat(path)
	log.Info("done",
		zap.String("output", path),
		zap.Float64("size_mb", float64(info.Size())/(1024*1024)),
		zap.Int("shortcuts", idx.NumShortcuts()),
		zap.Duration("took", time.Since(start).Round(time.Second)))
}
