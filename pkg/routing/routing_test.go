package routing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"distance_router/pkg/graph"
	"distance_router/pkg/index"
	"distance_router/pkg/osm"
	"distance_router/pkg/profile"
)

// Nodes are about 111 m apart. 3 -> 4 and 7 -> 4 are one-way, so node 4
// and the footway to 5 form a dead end that cannot reach the rest.
const network = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="1.3000" lon="103.8000"/>
  <node id="2" lat="1.3010" lon="103.8000"/>
  <node id="3" lat="1.3020" lon="103.8000"/>
  <node id="4" lat="1.3020" lon="103.8010"/>
  <node id="5" lat="1.3030" lon="103.8010"/>
  <node id="6" lat="1.3010" lon="103.7990"/>
  <node id="7" lat="1.3000" lon="103.8010"/>
  <way id="100">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="101">
    <nd ref="3"/><nd ref="4"/>
    <tag k="highway" v="residential"/>
    <tag k="oneway" v="yes"/>
  </way>
  <way id="102">
    <nd ref="4"/><nd ref="5"/>
    <tag k="highway" v="footway"/>
  </way>
  <way id="103">
    <nd ref="2"/><nd ref="6"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="104">
    <nd ref="1"/><nd ref="7"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="105">
    <nd ref="7"/><nd ref="4"/>
    <tag k="highway" v="residential"/>
    <tag k="oneway" v="yes"/>
  </way>
</osm>`

var (
	p1 = Point{Lon: 103.80001, Lat: 1.30001}
	p2 = Point{Lon: 103.80001, Lat: 1.30101}
	p3 = Point{Lon: 103.80001, Lat: 1.30201}
	p4 = Point{Lon: 103.80101, Lat: 1.30201}
	p5 = Point{Lon: 103.80101, Lat: 1.30301}
	p6 = Point{Lon: 103.79901, Lat: 1.30101}
	p7 = Point{Lon: 103.80101, Lat: 1.30001}

	nowhere = Point{Lon: 103.9, Lat: 1.4}
	all     = []Point{p1, p2, p3, p4, p5, p6, p7}
)

const radius = 50

func newTestService(t *testing.T, concurrency int) *Service {
	t.Helper()
	log := zaptest.NewLogger(t)
	g, err := graph.Build(context.Background(), strings.NewReader(network),
		profile.Profile{Name: "test"}, osm.Options{Format: osm.FormatXML, Logger: log})
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}
	idx, err := index.Build(g, log)
	if err != nil {
		t.Fatalf("index.Build: %v", err)
	}
	svc, err := NewService(g, idx, concurrency, log)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

// nodeAt returns the node with exactly the coordinates of p.
func nodeAt(t *testing.T, g *graph.Graph, p Point) uint32 {
	t.Helper()
	for n := uint32(0); n < g.NumNodes; n++ {
		if g.Latitude[n] == p.Lat && g.Longitude[n] == p.Lon {
			return n
		}
	}
	t.Fatalf("no node at %v", p)
	return 0
}

// arcWeight returns the lightest arc u -> v.
func arcWeight(g *graph.Graph, u, v uint32) (uint32, bool) {
	best, found := Unreachable, false
	start, end := g.ArcsFrom(u)
	for a := start; a < end; a++ {
		if g.Head[a] == v && g.GeoDistance[a] < best {
			best, found = g.GeoDistance[a], true
		}
	}
	return best, found
}

func TestNewPool(t *testing.T) {
	svc := newTestService(t, 1)
	if _, err := NewPool(svc.Index(), 0); !errors.Is(err, ErrNoSlots) {
		t.Errorf("NewPool(0): got %v, want ErrNoSlots", err)
	}
	p, err := NewPool(svc.Index(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 3 {
		t.Errorf("Len = %d, want 3", p.Len())
	}
	for _, i := range []int{-1, 3} {
		if _, err := p.Slot(i); !errors.Is(err, ErrSlotOutOfRange) {
			t.Errorf("Slot(%d): got %v, want ErrSlotOutOfRange", i, err)
		}
	}
}

func TestNearest(t *testing.T) {
	svc := newTestService(t, 1)

	sn, ok, err := svc.Nearest(0, radius, p6.Lon, p6.Lat)
	if err != nil || !ok {
		t.Fatalf("Nearest(p6) = %v, %v", ok, err)
	}
	if want := (Point{Lon: 103.7990, Lat: 1.3010}); sn.Point != want {
		t.Errorf("Nearest(p6) = %v, want %v", sn.Point, want)
	}
	if sn.Distance <= 0 || sn.Distance > radius {
		t.Errorf("snap distance %v out of (0, %d]", sn.Distance, radius)
	}

	if _, ok, _ := svc.Nearest(0, radius, nowhere.Lon, nowhere.Lat); ok {
		t.Error("Nearest(nowhere) should not find a node")
	}
	if _, ok, _ := svc.Nearest(0, 1, p6.Lon, p6.Lat); ok {
		t.Error("Nearest with 1 m radius should not reach a node 1.5 m away")
	}
	if _, _, err := svc.Nearest(1, radius, p6.Lon, p6.Lat); !errors.Is(err, ErrSlotOutOfRange) {
		t.Errorf("slot 1 of 1: got %v", err)
	}
}

func TestQueryPath(t *testing.T) {
	svc := newTestService(t, 1)
	g := svc.Graph()

	for _, from := range all {
		for _, to := range all {
			resp, err := svc.Query(0, radius, from, to, true)
			if err != nil {
				t.Fatal(err)
			}
			if resp.Distance == Unreachable {
				if len(resp.Waypoints) != 0 {
					t.Errorf("%v->%v: unreachable with %d waypoints", from, to, len(resp.Waypoints))
				}
				continue
			}

			src, _, _ := svc.Nearest(0, radius, from.Lon, from.Lat)
			dst, _, _ := svc.Nearest(0, radius, to.Lon, to.Lat)
			wp := resp.Waypoints
			if len(wp) == 0 || wp[0] != src.Point || wp[len(wp)-1] != dst.Point {
				t.Errorf("%v->%v: waypoints %v do not run from %v to %v", from, to, wp, src.Point, dst.Point)
				continue
			}

			var sum uint32
			for k := 0; k+1 < len(wp); k++ {
				w, ok := arcWeight(g, nodeAt(t, g, wp[k]), nodeAt(t, g, wp[k+1]))
				if !ok {
					t.Fatalf("%v->%v: no arc %v -> %v", from, to, wp[k], wp[k+1])
				}
				sum += w
			}
			if sum != resp.Distance {
				t.Errorf("%v->%v: waypoint weight %d, distance %d", from, to, sum, resp.Distance)
			}
		}
	}
}

func TestQueryUnreachable(t *testing.T) {
	svc := newTestService(t, 1)

	tests := []struct {
		name     string
		from, to Point
	}{
		{"source does not snap", nowhere, p1},
		{"target does not snap", p1, nowhere},
		{"dead end", p5, p1},
		{"against one-way", p4, p3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Query(0, radius, tt.from, tt.to, true)
			if err != nil {
				t.Fatal(err)
			}
			if resp.Distance != Unreachable || resp.Waypoints != nil {
				t.Errorf("got %+v, want unreachable without waypoints", resp)
			}
		})
	}

	if resp, _ := svc.Query(0, radius, p1, p4, false); resp.Distance == Unreachable || resp.Waypoints != nil {
		t.Errorf("p1->p4 without waypoints: %+v", resp)
	}
	if resp, _ := svc.Query(0, radius, p2, p2, true); resp.Distance != 0 || len(resp.Waypoints) != 1 {
		t.Errorf("p2->p2: %+v", resp)
	}
}

func TestDistancesMatchQuery(t *testing.T) {
	svc := newTestService(t, 1)
	targets := []Point{p4, nowhere, p1, p5, p3, nowhere, p6, p7, p1}

	for _, source := range append(all, nowhere) {
		got, err := svc.Distances(0, radius, source, targets)
		if err != nil {
			t.Fatal(err)
		}
		want := make([]uint32, len(targets))
		for k, target := range targets {
			resp, err := svc.Query(0, radius, source, target, false)
			if err != nil {
				t.Fatal(err)
			}
			want[k] = resp.Distance
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Distances from %v (-query +distances):\n%s", source, diff)
		}
	}
}

func TestDistancesEdgeCases(t *testing.T) {
	svc := newTestService(t, 1)

	got, err := svc.Distances(0, radius, nowhere, []Point{p1, p2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint32{Unreachable, Unreachable}, got); diff != "" {
		t.Errorf("unsnapped source (-want +got):\n%s", diff)
	}

	got, err = svc.Distances(0, radius, p1, []Point{nowhere})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint32{Unreachable}, got); diff != "" {
		t.Errorf("only unsnapped targets (-want +got):\n%s", diff)
	}

	got, err = svc.Distances(0, radius, p1, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("no targets: %v, %v", got, err)
	}
}

func TestTable(t *testing.T) {
	svc := newTestService(t, 1)
	sources := []Point{p1, nowhere, p5}
	targets := []Point{p2, p4, p5}

	got, err := svc.Table(0, radius, sources, targets)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(sources)*len(targets) {
		t.Fatalf("len = %d, want %d", len(got), len(sources)*len(targets))
	}
	for i, s := range sources {
		for j, d := range targets {
			resp, _ := svc.Query(0, radius, s, d, false)
			if got[i*len(targets)+j] != resp.Distance {
				t.Errorf("table[%d][%d] = %d, query = %d", i, j, got[i*len(targets)+j], resp.Distance)
			}
		}
	}
	if got[3] != Unreachable {
		t.Errorf("unsnapped source row: %v", got[3:6])
	}
}

func TestConcurrentSlots(t *testing.T) {
	const slots = 4
	svc := newTestService(t, slots)

	want := make([][]uint32, len(all))
	for i, s := range all {
		var err error
		if want[i], err = svc.Distances(0, radius, s, all); err != nil {
			t.Fatal(err)
		}
	}

	got := make([][][]uint32, slots)
	var wg sync.WaitGroup
	for slot := 0; slot < slots; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			rows := make([][]uint32, len(all))
			for round := 0; round < 20; round++ {
				for i, s := range all {
					rows[i], _ = svc.Distances(slot, radius, s, all)
					svc.Query(slot, radius, s, all[(i+round)%len(all)], true)
				}
			}
			got[slot] = rows
		}(slot)
	}
	wg.Wait()

	for slot := range got {
		if diff := cmp.Diff(want, got[slot]); diff != "" {
			t.Errorf("slot %d (-sequential +concurrent):\n%s", slot, diff)
		}
	}
}

func TestClient(t *testing.T) {
	svc := newTestService(t, 2)
	c := NewClient(svc)
	ctx := context.Background()

	if c.SnapRadius() != DefaultSnapRadius {
		t.Errorf("SnapRadius = %v, want %v", c.SnapRadius(), DefaultSnapRadius)
	}

	d, wp, err := c.Route(ctx, p6, p5)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := svc.Query(0, DefaultSnapRadius, p6, p5, true)
	if d != want.Distance || !cmp.Equal(wp, want.Waypoints) {
		t.Errorf("Route = %d %v, want %d %v", d, wp, want.Distance, want.Waypoints)
	}

	if got, err := c.Distance(ctx, p6, p5); err != nil || got != want.Distance {
		t.Errorf("Distance = %d, %v, want %d", got, err, want.Distance)
	}

	if _, _, err := c.TravelTime(ctx, p6, p5); !errors.Is(err, ErrNotTravelTime) {
		t.Errorf("TravelTime on distance index: got %v", err)
	}

	matrix, err := c.Matrix(ctx, all, all)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range all {
		row, _ := c.Distances(ctx, s, all)
		if diff := cmp.Diff(row, matrix[i]); diff != "" {
			t.Errorf("matrix row %d (-distances +matrix):\n%s", i, diff)
		}
	}

	if p, ok, err := c.Nearest(ctx, nowhere); err != nil || ok {
		t.Errorf("Nearest(nowhere) = %v, %v, %v", p, ok, err)
	}
	c.SetSnapRadius(50000)
	if _, ok, _ := c.Nearest(ctx, nowhere); !ok {
		t.Error("Nearest(nowhere) within 50 km should find a node")
	}
}

func TestClientWaitsForSlot(t *testing.T) {
	c := NewClient(newTestService(t, 1))

	held := <-c.slots
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Distance(ctx, p1, p2); !errors.Is(err, context.Canceled) {
		t.Errorf("Distance with no free slot: got %v, want context.Canceled", err)
	}
	c.slots <- held

	if _, err := c.Distance(context.Background(), p1, p2); err != nil {
		t.Errorf("Distance after slot returned: %v", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	mapFile := filepath.Join(dir, "net.osm")
	if err := os.WriteFile(mapFile, []byte(network), 0o644); err != nil {
		t.Fatal(err)
	}
	log := zaptest.NewLogger(t)
	p := profile.Profile{Name: "test", UseTravelTime: true}
	opts := Options{MapFile: mapFile, Profile: p, Concurrency: 2, Logger: log}
	ctx := context.Background()

	if _, err := LoadIndex(ctx, opts); !errors.Is(err, index.ErrNoIndex) {
		t.Fatalf("LoadIndex before build: got %v, want ErrNoIndex", err)
	}

	built, err := Open(ctx, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	indexFile, _ := index.FileName(mapFile, built.Graph().Profile)
	if _, err := os.Stat(indexFile); err != nil {
		t.Fatalf("index not written: %v", err)
	}

	loaded, err := LoadIndex(ctx, opts)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	rebuilt, err := BuildIndex(ctx, opts)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if loaded.Concurrency() != 2 {
		t.Errorf("Concurrency = %d, want 2", loaded.Concurrency())
	}

	for _, s := range all {
		want, _ := built.Distances(0, radius, s, all)
		for name, svc := range map[string]*Service{"loaded": loaded, "rebuilt": rebuilt} {
			got, _ := svc.Distances(1, radius, s, all)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s from %v (-built +%s):\n%s", name, s, name, diff)
			}
		}
	}

	c := NewClient(loaded)
	tt, ok, err := c.TravelTime(ctx, p1, p2)
	if err != nil || !ok || tt <= 0 {
		t.Errorf("TravelTime = %v, %v, %v", tt, ok, err)
	}

	if _, err := Open(ctx, Options{MapFile: filepath.Join(dir, "missing.osm"), Profile: p}); err == nil {
		t.Error("Open with a missing map file: expected error")
	}
}
