package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"distance_router/pkg/osm"
	"distance_router/pkg/profile"
)

// Node 1..3 run north along way 100, 3 -> 4 is a one-way east, 4 -> 5 is a
// footway and 2 -> 6 branches west. Turning from 100 onto 103 at node 2 is
// prohibited.
const testNetwork = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="1.3000" lon="103.8000"/>
  <node id="2" lat="1.3010" lon="103.8000"/>
  <node id="3" lat="1.3020" lon="103.8000"/>
  <node id="4" lat="1.3020" lon="103.8010"/>
  <node id="5" lat="1.3030" lon="103.8010"/>
  <node id="6" lat="1.3010" lon="103.7990"/>
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
  <relation id="900">
    <member type="way" ref="100" role="from"/>
    <member type="node" ref="2" role="via"/>
    <member type="way" ref="103" role="to"/>
    <tag k="type" v="restriction"/>
    <tag k="restriction" v="no_left_turn"/>
  </relation>
</osm>`

func buildTestGraph(t *testing.T, p profile.Profile) *Graph {
	t.Helper()
	opts := osm.Options{Format: osm.FormatXML, Logger: zaptest.NewLogger(t)}
	g, err := Build(context.Background(), strings.NewReader(testNetwork), p, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return g
}

// findArc returns the arc u -> v, or -1.
func findArc(g *Graph, u, v uint32) int {
	start, end := g.ArcsFrom(u)
	for a := start; a < end; a++ {
		if g.Head[a] == v {
			return int(a)
		}
	}
	return -1
}

func TestBuildCar(t *testing.T) {
	g := buildTestGraph(t, profile.Car())

	// nodes are numbered in first-seen order: 1,2,3 then 4 then 6
	if g.NumNodes != 5 {
		t.Fatalf("NumNodes = %d, want 5", g.NumNodes)
	}
	if g.NumArcs != 7 {
		t.Fatalf("NumArcs = %d, want 7", g.NumArcs)
	}
	if g.NumWays != 3 {
		t.Errorf("NumWays = %d, want 3", g.NumWays)
	}

	if findArc(g, 2, 3) < 0 {
		t.Error("missing one-way arc 3 -> 4")
	}
	if findArc(g, 3, 2) >= 0 {
		t.Error("one-way arc 4 -> 3 should not exist")
	}

	a := findArc(g, 0, 1)
	if a < 0 {
		t.Fatal("missing arc 1 -> 2")
	}
	// 0.001 degrees of latitude is about 111 m
	if d := g.GeoDistance[a]; d < 105 || d > 118 {
		t.Errorf("GeoDistance = %d, want ~111", d)
	}
	if want := TravelTime(g.GeoDistance[a], 25); g.TravelTime[a] != want {
		t.Errorf("TravelTime = %d, want %d", g.TravelTime[a], want)
	}

	if !g.Profile.Legacy() {
		t.Fatal("preset profile should record the accepted ways")
	}
	if diff := cmp.Diff([]int64{100, 101, 103}, g.Profile.SortedAllowedWayIDs()); diff != "" {
		t.Errorf("allowed ways (-want +got):\n%s", diff)
	}
}

func TestBuildTurnRestriction(t *testing.T) {
	g := buildTestGraph(t, profile.Car())

	into2From1 := findArc(g, 0, 1)
	into2From3 := findArc(g, 2, 1)
	out2To6 := findArc(g, 1, 4)
	out2To3 := findArc(g, 1, 2)
	if into2From1 < 0 || into2From3 < 0 || out2To6 < 0 || out2To3 < 0 {
		t.Fatal("test arcs missing")
	}

	if got := len(g.ForbiddenTurnFromArc); got != 2 {
		t.Fatalf("got %d forbidden turns, want 2", got)
	}
	if !g.IsTurnForbidden(uint32(into2From1), uint32(out2To6)) {
		t.Error("turn 1 -> 2 -> 6 should be forbidden")
	}
	if !g.IsTurnForbidden(uint32(into2From3), uint32(out2To6)) {
		t.Error("turn 3 -> 2 -> 6 should be forbidden")
	}
	if g.IsTurnForbidden(uint32(into2From1), uint32(out2To3)) {
		t.Error("turn 1 -> 2 -> 3 should be allowed")
	}
}

func TestBuildMandatoryTurn(t *testing.T) {
	network := strings.Replace(testNetwork, "no_left_turn", "only_left_turn", 1)
	opts := osm.Options{Format: osm.FormatXML}
	g, err := Build(context.Background(), strings.NewReader(network), profile.Car(), opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	into2From1 := uint32(findArc(g, 0, 1))
	if !g.IsTurnForbidden(into2From1, uint32(findArc(g, 1, 2))) {
		t.Error("going straight should be forbidden by only_left_turn")
	}
	if !g.IsTurnForbidden(into2From1, uint32(findArc(g, 1, 0))) {
		t.Error("turning back should be forbidden by only_left_turn")
	}
	if g.IsTurnForbidden(into2From1, uint32(findArc(g, 1, 4))) {
		t.Error("the mandatory turn itself must stay allowed")
	}
}

func TestBuildPreventUTurns(t *testing.T) {
	p := profile.Car()
	p.PreventUTurns = true
	g := buildTestGraph(t, p)

	if !g.IsTurnForbidden(uint32(findArc(g, 0, 1)), uint32(findArc(g, 1, 0))) {
		t.Error("u-turn at node 2 should be forbidden")
	}
	if g.IsTurnForbidden(uint32(findArc(g, 0, 1)), uint32(findArc(g, 1, 2))) {
		t.Error("straight on should stay allowed")
	}
}

func TestBuildPedestrian(t *testing.T) {
	g := buildTestGraph(t, profile.Pedestrian())

	// the footway adds node 5, one-ways do not apply on foot
	if g.NumNodes != 6 {
		t.Fatalf("NumNodes = %d, want 6", g.NumNodes)
	}
	if findArc(g, 3, 2) < 0 {
		t.Error("pedestrians should walk against the one-way")
	}
	if len(g.ForbiddenTurnFromArc) != 0 {
		t.Errorf("pedestrians ignore turn restrictions, got %d", len(g.ForbiddenTurnFromArc))
	}
	a := findArc(g, 0, 1)
	if want := TravelTime(g.GeoDistance[a], 5); g.TravelTime[a] != want {
		t.Errorf("TravelTime = %d, want %d", g.TravelTime[a], want)
	}
}

func TestBuildAllowlist(t *testing.T) {
	p := profile.Profile{
		Name:          "only-100",
		AllowedWayIDs: map[int64]bool{100: true},
		WayFilters:    []profile.WayFilter{profile.Deny("highway", "")},
	}
	g := buildTestGraph(t, p)
	if g.NumNodes != 3 || g.NumArcs != 4 {
		t.Errorf("got %s, want 3 nodes and 4 arcs", g)
	}
}

func TestBuildEmpty(t *testing.T) {
	p := profile.Profile{WayFilters: []profile.WayFilter{profile.Deny("highway", "")}}
	g := buildTestGraph(t, p)
	if g.NumNodes != 0 || g.NumArcs != 0 {
		t.Errorf("got %s, want empty graph", g)
	}
}

func TestTravelTime(t *testing.T) {
	tests := []struct {
		meters uint32
		speed  int
		want   uint32
	}{
		{1000, 36, 100000},
		{1000, 3600, 1000},
		{111, 25, 15984},
		{100, 0, 360000},
	}
	for _, tt := range tests {
		if got := TravelTime(tt.meters, tt.speed); got != tt.want {
			t.Errorf("TravelTime(%d, %d) = %d, want %d", tt.meters, tt.speed, got, tt.want)
		}
	}
}

func TestIsTurnForbidden(t *testing.T) {
	g := &Graph{
		ForbiddenTurnFromArc: []uint32{1, 1, 4, 7},
		ForbiddenTurnToArc:   []uint32{2, 5, 0, 7},
	}
	for _, tc := range []struct {
		from, to uint32
		want     bool
	}{
		{1, 2, true}, {1, 5, true}, {4, 0, true}, {7, 7, true},
		{1, 3, false}, {0, 2, false}, {4, 1, false}, {8, 0, false},
	} {
		if got := g.IsTurnForbidden(tc.from, tc.to); got != tc.want {
			t.Errorf("IsTurnForbidden(%d, %d) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestInvertFirstOut(t *testing.T) {
	got := InvertFirstOut([]uint32{0, 2, 2, 3})
	if diff := cmp.Diff([]uint32{0, 0, 2}, got); diff != "" {
		t.Errorf("InvertFirstOut (-want +got):\n%s", diff)
	}
}
