package game

import (
	"fmt"
	"strings"
)

// Game identifies the upstream source a tracked entity belongs to.
type Game string

const (
	LeagueOfLegends Game = "lol"
	WowHardcore     Game = "wow_hc"
)

// All lists every supported game.
var All = []Game{LeagueOfLegends, WowHardcore}

// Parse validates raw input and returns the matching Game.
func Parse(raw string) (Game, error) {
	g := Game(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range All {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown game %q (valid: lol, wow_hc)", raw)
}

func (g Game) String() string {
	return string(g)
}
