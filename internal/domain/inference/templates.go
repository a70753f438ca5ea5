package inference

import (
	"sort"
	"strings"
)

// Coarse axes used to describe race templates. Each axis spreads its value over
// one or more catalog dimensions.
var axisDimensions = map[string][]string{
	"flat":       {"terrain_flat"},
	"cobbles":    {"terrain_cobbles", "classics_cobbled"},
	"mountain":   {"terrain_long_climbs", "terrain_medium_climbs", "power_vo2max_5m"},
	"time_trial": {"race_itt_flat", "power_ftp_60m"},
	"sprint":     {"race_sprint_finish", "power_sprint_5s"},
	"gc":         {"race_gc"},
	"one_day":    {"race_oneday"},
	"endurance":  {"power_endurance_2h"},
}

type template struct {
	axes  map[string]float64
	extra map[string]float64
}

var templates = map[string]template{
	"flat_sprint_stage": {axes: map[string]float64{"flat": 0.8, "sprint": 1.0, "endurance": 0.5}},
	"mountain_stage":    {axes: map[string]float64{"flat": 0.1, "mountain": 1.0, "gc": 0.9, "endurance": 0.8}},
	"high_mountain_stage": {
		axes:  map[string]float64{"mountain": 1.0, "gc": 1.0, "endurance": 0.9},
		extra: map[string]float64{"terrain_altitude": 0.8},
	},
	"medium_mountain_stage": {axes: map[string]float64{
		"flat": 0.3, "mountain": 0.6, "sprint": 0.2, "gc": 0.5, "one_day": 0.3, "endurance": 0.7,
	}},
	"individual_time_trial": {
		axes:  map[string]float64{"flat": 0.6, "time_trial": 1.0, "gc": 0.7, "endurance": 0.4},
		extra: map[string]float64{"physical_aero": 0.8},
	},
	"mountain_time_trial": {
		axes:  map[string]float64{"flat": 0.2, "mountain": 0.7, "time_trial": 1.0, "gc": 1.0, "endurance": 0.5},
		extra: map[string]float64{"race_itt_mountain": 1.0},
	},
	"paris_roubaix": {
		axes:  map[string]float64{"flat": 0.6, "cobbles": 1.0, "time_trial": 0.2, "sprint": 0.1, "one_day": 1.0, "endurance": 0.9},
		extra: map[string]float64{"physical_handling": 0.8},
	},
	"tour_of_flanders": {
		axes:  map[string]float64{"flat": 0.4, "cobbles": 0.8, "mountain": 0.4, "time_trial": 0.1, "sprint": 0.2, "one_day": 1.0, "endurance": 0.8},
		extra: map[string]float64{"terrain_punch_climbs": 0.9},
	},
	"liege_bastogne_liege": {
		axes:  map[string]float64{"flat": 0.3, "mountain": 0.7, "sprint": 0.3, "one_day": 1.0, "endurance": 0.8},
		extra: map[string]float64{"classics_ardennes": 1.0, "terrain_punch_climbs": 0.9},
	},
	"milano_sanremo": {
		axes:  map[string]float64{"flat": 0.7, "mountain": 0.3, "sprint": 0.8, "one_day": 1.0, "endurance": 0.9},
		extra: map[string]float64{"classics_italian": 1.0},
	},
	"il_lombardia": {
		axes:  map[string]float64{"flat": 0.2, "mountain": 0.9, "sprint": 0.1, "one_day": 1.0, "endurance": 0.8},
		extra: map[string]float64{"classics_italian": 1.0, "classics_autumn": 1.0, "terrain_descending": 0.7},
	},
	"world_championship_rr": {axes: map[string]float64{"flat": 0.5, "mountain": 0.5, "sprint": 0.4, "one_day": 1.0, "endurance": 0.8}},
	"world_championship_itt": {
		axes: map[string]float64{"flat": 0.7, "mountain": 0.2, "time_trial": 1.0, "one_day": 0.8, "endurance": 0.4},
	},
	"hilly_classic": {
		axes:  map[string]float64{"flat": 0.3, "mountain": 0.6, "sprint": 0.4, "one_day": 0.9, "endurance": 0.6},
		extra: map[string]float64{"terrain_punch_climbs": 0.8},
	},
	"sprint_classic": {axes: map[string]float64{"flat": 0.9, "sprint": 1.0, "one_day": 0.7, "endurance": 0.5}},
	"prologue": {
		axes:  map[string]float64{"flat": 0.5, "time_trial": 1.0, "gc": 0.3, "endurance": 0.1},
		extra: map[string]float64{"race_prologue": 1.0},
	},
	"team_time_trial": {
		axes:  map[string]float64{"flat": 0.6, "time_trial": 1.0, "gc": 0.6, "endurance": 0.5},
		extra: map[string]float64{"race_ttt": 1.0},
	},
}

// Template returns the characteristic weights of a named race template.
// Names are case-insensitive and accept spaces or dashes in place of underscores.
func Template(name string) (map[string]float64, bool) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	t, ok := templates[key]
	if !ok {
		return nil, false
	}
	out := make(map[string]float64)
	for axis, v := range t.axes {
		if v == 0 {
			continue
		}
		for _, k := range axisDimensions[axis] {
			out[k] = v
		}
	}
	for k, v := range t.extra {
		out[k] = v
	}
	return out, true
}

// TemplateNames lists the available template names, sorted.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for n := range templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
