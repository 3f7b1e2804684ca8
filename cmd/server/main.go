package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"distance_router/pkg/api"
	"distance_router/pkg/config"
	"distance_router/pkg/logger"
	"distance_router/pkg/routing"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (overrides server.cors-origin)")
	rebuild := flag.Bool("rebuild", false, "Build the index even if the file exists")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *corsOrigin != "" {
		cfg.Server.CORSOrigin = *corsOrigin
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	p, err := cfg.RoutingProfile()
	if err != nil {
		log.Fatal("invalid profile", zap.Error(err))
	}

	start := time.Now()
	opts := routing.Options{
		MapFile:     cfg.Map,
		IndexFile:   cfg.Index,
		Profile:     p,
		Concurrency: cfg.Concurrency,
		BBox:        cfg.OSMBBox(),
		Logger:      log,
	}
	open := routing.Open
	if *rebuild {
		open = routing.BuildIndex
	}
	svc, err := open(context.Background(), opts)
	if err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}
	log.Info("ready", zap.Duration("took", time.Since(start).Round(time.Millisecond)))

	client := routing.NewClient(svc)
	client.SetSnapRadius(cfg.SnapRadius)

	measure := "distance"
	if svc.Graph().Profile.UseTravelTime {
		measure = "duration"
	}
	stats := api.StatsResponse{
		Profile:      svc.Graph().Profile.Name,
		Measure:      measure,
		NumNodes:     svc.Graph().NumNodes,
		NumArcs:      svc.Graph().NumArcs,
		NumShortcuts: svc.Index().NumShortcuts(),
		Concurrency:  svc.Concurrency(),
		SnapRadius:   cfg.SnapRadius,
	}

	srvCfg := api.DefaultConfig(cfg.Server.Addr)
	srvCfg.CORSOrigin = cfg.Server.CORSOrigin
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	srvCfg.RequestTimeout = cfg.Server.RequestTimeout
	if cfg.Server.MaxConcurrent > 0 {
		srvCfg.MaxConcurrent = cfg.Server.MaxConcurrent
	}

	handlers := api.NewHandlers(client, stats, cfg.Server.CacheSize, log)
	srv := api.NewServer(srvCfg, handlers, log)

	if err := api.ListenAndServe(srv, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
