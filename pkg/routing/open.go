package routing

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"distance_router/pkg/ch"
	"distance_router/pkg/graph"
	"distance_router/pkg/index"
	"distance_router/pkg/logger"
	"distance_router/pkg/osm"
	"distance_router/pkg/profile"
)

// Options configures Open, BuildIndex and LoadIndex.
type Options struct {
	MapFile string

	// IndexFile is the contraction hierarchy path. Empty derives it from
	// MapFile and the resolved profile with index.FileName.
	IndexFile string

	Profile profile.Profile

	// Concurrency is the number of query slots; 0 means GOMAXPROCS.
	Concurrency int

	BBox   osm.BBox
	Logger *zap.Logger
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) logger() *zap.Logger {
	return logger.OrNop(o.Logger)
}

type indexMode int

const (
	obtainIndex indexMode = iota
	buildIndex
	loadIndex
)

// Open parses the map, then loads the index if its file exists or builds
// and saves it otherwise.
func Open(ctx context.Context, opts Options) (*Service, error) {
	return open(ctx, opts, obtainIndex)
}

// BuildIndex parses the map and always builds a fresh index, overwriting
// any file at the index path.
func BuildIndex(ctx context.Context, opts Options) (*Service, error) {
	return open(ctx, opts, buildIndex)
}

// LoadIndex parses the map and loads an existing index. It fails with
// index.ErrNoIndex when the file is missing.
func LoadIndex(ctx context.Context, opts Options) (*Service, error) {
	return open(ctx, opts, loadIndex)
}

func open(ctx context.Context, opts Options, mode indexMode) (*Service, error) {
	log := opts.logger()
	if _, err := os.Stat(opts.MapFile); err != nil {
		return nil, fmt.Errorf("could not find map file at %s: %w", opts.MapFile, err)
	}

	start := time.Now()
	g, err := graph.BuildFromFile(ctx, opts.MapFile, opts.Profile, osm.Options{
		BBox:   opts.BBox,
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	log.Info("graph ready",
		zap.String("profile", g.Profile.Name),
		zap.Uint32("nodes", g.NumNodes),
		zap.Uint32("arcs", g.NumArcs),
		zap.Int("forbidden_turns", len(g.ForbiddenTurnFromArc)),
		zap.Duration("took", time.Since(start)))

	path := opts.IndexFile
	if path == "" {
		if path, err = index.FileName(opts.MapFile, g.Profile); err != nil {
			return nil, err
		}
	}

	var idx *ch.Index
	switch mode {
	case buildIndex:
		if idx, err = index.Build(g, log); err == nil {
			err = idx.SaveFile(path)
		}
	case loadIndex:
		idx, err = index.Load(g, path)
	default:
		idx, _, err = index.Obtain(g, path, log)
	}
	if err != nil {
		return nil, err
	}

	return NewService(g, idx, opts.concurrency(), log)
}
