// Package osm extracts routable ways, their node coordinates and relations
// from OSM PBF or XML files in two passes.
package osm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"
)

// ErrUnknownFormat is returned when the input format cannot be determined.
var ErrUnknownFormat = errors.New("unknown OSM file format")

type (
	WayID      = osm.WayID
	NodeID     = osm.NodeID
	RelationID = osm.RelationID
	Relation   = osm.Relation
)

// Format is the OSM container encoding.
type Format int

const (
	FormatAuto Format = iota
	FormatPBF
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatPBF:
		return "pbf"
	case FormatXML:
		return "xml"
	}
	return "auto"
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".pbf"):
		return FormatPBF, nil
	case strings.HasSuffix(p, ".osm"), strings.HasSuffix(p, ".xml"):
		return FormatXML, nil
	}
	return FormatAuto, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, nodes outside the box are treated as missing.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Options configures Read.
type Options struct {
	Format Format
	BBox   BBox
	// Procs is the number of PBF decoders. Defaults to GOMAXPROCS.
	Procs  int
	Logger *zap.Logger
}

// Callbacks receive the objects of the way/relation pass.
type Callbacks struct {
	// Accept decides whether a way is kept. Nil keeps every way.
	Accept func(id WayID, tags map[string]string) bool
	// Way is called for every kept way with its dense index in Extract.Ways.
	Way func(index int, id WayID, tags map[string]string)
	// Relation is called for every relation.
	Relation func(r *Relation)
}

// Way is a kept way. Its index in Extract.Ways is its routing way id.
type Way struct {
	ID    WayID
	Nodes []NodeID
}

// Extract is the result of Read.
type Extract struct {
	Ways []Way
	Lat  map[NodeID]float64
	Lon  map[NodeID]float64
}

// Coord returns the coordinates of a referenced node.
func (e *Extract) Coord(id NodeID) (lat, lon float64, ok bool) {
	lat, ok = e.Lat[id]
	if !ok {
		return 0, 0, false
	}
	return lat, e.Lon[id], true
}

// ReadFile opens path and calls Read. FormatAuto is resolved from the
// file extension.
func ReadFile(ctx context.Context, path string, opts Options, cb Callbacks) (*Extract, error) {
	if opts.Format == FormatAuto {
		f, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map file: %w", err)
	}
	defer f.Close()
	return Read(ctx, f, opts, cb)
}

type pass int

const (
	wayPass pass = iota
	nodePass
)

func (o Options) scanner(ctx context.Context, r io.Reader, p pass) (osm.Scanner, error) {
	switch o.Format {
	case FormatPBF:
		procs := o.Procs
		if procs <= 0 {
			procs = runtime.GOMAXPROCS(0)
		}
		s := osmpbf.New(ctx, r, procs)
		s.SkipNodes = p == wayPass
		s.SkipWays = p == nodePass
		s.SkipRelations = p == nodePass
		return s, nil
	case FormatXML:
		return osmxml.New(ctx, r), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, o.Format)
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Read scans rs twice: first ways and relations, then the coordinates of
// nodes referenced by kept ways. rs must support seeking back to the start.
func Read(ctx context.Context, rs io.ReadSeeker, opts Options, cb Callbacks) (*Extract, error) {
	log := opts.logger()

	// Pass 1: ways and relations.
	referenced := make(map[NodeID]struct{})
	var ways []Way
	var relations int

	scanner, err := opts.scanner(ctx, rs, wayPass)
	if err != nil {
		return nil, err
	}
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Way:
			if len(o.Nodes) < 2 {
				continue
			}
			tags := o.Tags.Map()
			if cb.Accept != nil && !cb.Accept(o.ID, tags) {
				continue
			}
			nodes := make([]NodeID, len(o.Nodes))
			for i, wn := range o.Nodes {
				nodes[i] = wn.ID
				referenced[wn.ID] = struct{}{}
			}
			if cb.Way != nil {
				cb.Way(len(ways), o.ID, tags)
			}
			ways = append(ways, Way{ID: o.ID, Nodes: nodes})
		case *osm.Relation:
			relations++
			if cb.Relation != nil {
				cb.Relation(o)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Info("way pass complete",
		zap.Int("ways", len(ways)),
		zap.Int("relations", relations),
		zap.Int("referenced_nodes", len(referenced)))

	// Pass 2: coordinates of referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	ex := &Extract{
		Ways: ways,
		Lat:  make(map[NodeID]float64, len(referenced)),
		Lon:  make(map[NodeID]float64, len(referenced)),
	}
	useBBox := !opts.BBox.IsZero()
	var outside int

	scanner, err = opts.scanner(ctx, rs, nodePass)
	if err != nil {
		return nil, err
	}
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		if useBBox && !opts.BBox.Contains(n.Lat, n.Lon) {
			outside++
			continue
		}
		ex.Lat[n.ID] = n.Lat
		ex.Lon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	if outside > 0 {
		log.Info("dropped nodes outside bounding box", zap.Int("nodes", outside))
	}
	if missing := len(referenced) - len(ex.Lat) - outside; missing > 0 {
		log.Warn("referenced nodes without coordinates", zap.Int("nodes", missing))
	}
	log.Info("node pass complete", zap.Int("coordinates", len(ex.Lat)))

	return ex, nil
}
