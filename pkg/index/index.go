// Package index decides where a contraction hierarchy lives on disk and
// whether it is built from a graph or loaded from a previous run.
package index

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"distance_router/pkg/ch"
	"distance_router/pkg/graph"
	"distance_router/pkg/profile"
)

// ErrNoIndex is returned by Load when no index file exists at the path.
var ErrNoIndex = errors.New("index file not found")

// FileName derives the index path for mapFile and p. Profiles that differ in
// anything affecting the graph or its weights get different names:
//
//	<map>_<profile>_<distance|duration>_<sha1>.ch
func FileName(mapFile string, p profile.Profile) (string, error) {
	if p.Name == "" {
		return "", errors.New("profile name was empty")
	}

	measure := "distance"
	if p.UseTravelTime {
		measure = "duration"
	}

	h := sha1.New()
	for _, id := range p.SortedAllowedWayIDs() {
		io.WriteString(h, "-")
		io.WriteString(h, strconv.FormatInt(id, 10))
	}

	speedIDs := make([]int64, 0, len(p.WaySpeeds))
	for id := range p.WaySpeeds {
		speedIDs = append(speedIDs, id)
	}
	sort.Slice(speedIDs, func(i, j int) bool { return speedIDs[i] < speedIDs[j] })
	for _, id := range speedIDs {
		io.WriteString(h, "-")
		io.WriteString(h, strconv.Itoa(p.WaySpeeds[id]))
		io.WriteString(h, "-")
		io.WriteString(h, strconv.FormatInt(id, 10))
	}

	if !p.Legacy() {
		for _, f := range p.WayFilters {
			io.WriteString(h, "|")
			io.WriteString(h, f.String())
		}
	}

	io.WriteString(h, "-")
	io.WriteString(h, strconv.FormatBool(p.PreventLeftTurns))
	io.WriteString(h, "-")
	io.WriteString(h, strconv.Itoa(int(p.TransportMode)))
	if p.PreventUTurns {
		io.WriteString(h, "-u")
	}

	return mapFile + "_" + p.Name + "_" + measure + "_" + hex.EncodeToString(h.Sum(nil)) + ".ch", nil
}

// Build contracts g using the weight selected by its profile.
func Build(g *graph.Graph, log *zap.Logger) (*ch.Index, error) {
	if log == nil {
		log = zap.NewNop()
	}
	weights := g.Weights(g.Profile.UseTravelTime)
	idx, err := ch.Build(g.NumNodes, g.Tail(), g.Head, weights, log)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}

// Load reads the index at path. It returns ErrNoIndex when the file does
// not exist and rejects an index whose node count differs from g.
func Load(g *graph.Graph, path string) (*ch.Index, error) {
	idx, err := ch.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoIndex, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}
	if idx.NumNodes != g.NumNodes {
		return nil, fmt.Errorf("%w: index %s has %d nodes, graph has %d",
			ch.ErrInvalidIndex, path, idx.NumNodes, g.NumNodes)
	}
	return idx, nil
}

// Obtain loads the index at path if the file exists. Otherwise it builds
// one from g and saves it to path. built reports which branch was taken.
func Obtain(g *graph.Graph, path string, log *zap.Logger) (idx *ch.Index, built bool, err error) {
	if log == nil {
		log = zap.NewNop()
	}

	if _, statErr := os.Stat(path); statErr == nil {
		start := time.Now()
		idx, err = Load(g, path)
		if err != nil {
			return nil, false, err
		}
		log.Info("loaded index",
			zap.String("path", path),
			zap.Uint32("nodes", idx.NumNodes),
			zap.Int("arcs", idx.NumArcs()),
			zap.Duration("took", time.Since(start)))
		return idx, false, nil
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("stat index %s: %w", path, statErr)
	}

	start := time.Now()
	idx, err = Build(g, log)
	if err != nil {
		return nil, false, err
	}
	if err := idx.SaveFile(path); err != nil {
		return nil, false, fmt.Errorf("save index %s: %w", path, err)
	}
	log.Info("built index",
		zap.String("path", path),
		zap.Uint32("nodes", idx.NumNodes),
		zap.Int("shortcuts", idx.NumShortcuts()),
		zap.Duration("took", time.Since(start)))
	return idx, true, nil
}
