package profile

import (
	"strings"

	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

// TurnCategory says whether a restriction forbids the named turn or makes it
// the only permitted one.
type TurnCategory uint8

const (
	Prohibitive TurnCategory = iota
	Mandatory
)

func (c TurnCategory) String() string {
	if c == Mandatory {
		return "mandatory"
	}
	return "prohibitive"
}

// TurnDirection is the manoeuvre named by a restriction tag.
type TurnDirection uint8

const (
	LeftTurn TurnDirection = iota
	RightTurn
	StraightOn
	UTurn
)

var turnDirections = map[string]TurnDirection{
	"left_turn":   LeftTurn,
	"right_turn":  RightTurn,
	"straight_on": StraightOn,
	"u_turn":      UTurn,
}

// TurnRestriction constrains the move from one way onto another. ViaNode is
// zero when the relation names no via node; the builder then infers it from
// the ways' shared endpoint.
type TurnRestriction struct {
	RelationID osm.RelationID
	Category   TurnCategory
	Direction  TurnDirection
	FromWay    osm.WayID
	ViaNode    osm.NodeID
	ToWay      osm.WayID
}

// restriction keys consulted per mode, most specific first
var restrictionKeys = map[TransportMode][]string{
	VehicleMode: {"restriction:motorcar", "restriction:motor_vehicle", "restriction"},
	BikeMode:    {"restriction:bicycle", "restriction"},
}

var exceptTokens = map[TransportMode][]string{
	VehicleMode: {"motorcar", "motor_vehicle"},
	BikeMode:    {"bicycle"},
}

// DecodeTurnRestrictions turns a restriction relation into one restriction
// per (from, to) way pair. Malformed relations are dropped and reported at
// debug level; they never fail the build.
func (p *Profile) DecodeTurnRestrictions(r *osm.Relation, log *zap.Logger) []TurnRestriction {
	keys, ok := restrictionKeys[p.TransportMode]
	if !ok || r.Tags.Find("type") != "restriction" && !strings.HasPrefix(r.Tags.Find("type"), "restriction:") {
		return nil
	}
	drop := func(reason string) []TurnRestriction {
		if log != nil {
			log.Debug("dropping turn restriction",
				zap.Int64("relation", int64(r.ID)), zap.String("reason", reason))
		}
		return nil
	}

	var value string
	for _, k := range keys {
		if v := r.Tags.Find(k); v != "" {
			value = v
			break
		}
	}
	if value == "" {
		return drop("no restriction tag")
	}
	if except := r.Tags.Find("except"); except != "" {
		for _, e := range strings.Split(except, ";") {
			for _, tok := range exceptTokens[p.TransportMode] {
				if strings.TrimSpace(e) == tok {
					return nil
				}
			}
		}
	}

	var category TurnCategory
	var suffix string
	switch {
	case strings.HasPrefix(value, "only_"):
		category, suffix = Mandatory, strings.TrimPrefix(value, "only_")
	case strings.HasPrefix(value, "no_"):
		category, suffix = Prohibitive, strings.TrimPrefix(value, "no_")
	default:
		return drop("unknown restriction keyword " + value)
	}
	dir, ok := turnDirections[suffix]
	if !ok {
		return drop("unknown restriction direction " + value)
	}

	var from, to []osm.WayID
	var via []osm.NodeID
	for _, m := range r.Members {
		switch m.Role {
		case "from", "to":
			if m.Type != osm.TypeWay {
				return drop(m.Role + " member is not a way")
			}
			if m.Role == "from" {
				from = append(from, osm.WayID(m.Ref))
			} else {
				to = append(to, osm.WayID(m.Ref))
			}
		case "via":
			if m.Type != osm.TypeNode {
				return drop("via member is not a node")
			}
			via = append(via, osm.NodeID(m.Ref))
		}
	}

	switch {
	case len(from) == 0:
		return drop("missing from way")
	case len(to) == 0:
		return drop("missing to way")
	case len(via) > 1:
		return drop("more than one via node")
	case category == Mandatory && (len(from) != 1 || len(to) != 1):
		return drop("mandatory restriction needs exactly one from and one to way")
	}

	// Policy override; the checks above use the tagged category.
	if dir == LeftTurn && p.PreventLeftTurns {
		category = Prohibitive
	}

	var viaNode osm.NodeID
	if len(via) == 1 {
		viaNode = via[0]
	}
	out := make([]TurnRestriction, 0, len(from)*len(to))
	for _, f := range from {
		for _, t := range to {
			out = append(out, TurnRestriction{
				RelationID: r.ID,
				Category:   category,
				Direction:  dir,
				FromWay:    f,
				ViaNode:    viaNode,
				ToWay:      t,
			})
		}
	}
	return out
}
