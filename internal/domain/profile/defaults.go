package profile

// Profile keys.
const (
	Sprinter     = "profile_sprinter"
	Climber      = "profile_climber"
	Puncheur     = "profile_puncheur"
	Rouleur      = "profile_rouleur"
	TimeTrialist = "profile_timetrialist"
	GC           = "profile_gc"
	Classics     = "profile_classics"
	AllRounder   = "profile_allrounder"
)

// DefaultProfiles returns the seven weighted archetypes.
func DefaultProfiles() []Profile {
	return []Profile{
		{Sprinter, []Component{
			{"power_sprint_5s", 0.35}, {"terrain_flat", 0.20}, {"race_sprint_finish", 0.25},
			{"physical_topspeed", 0.10}, {"physical_acceleration", 0.10},
		}},
		{Climber, []Component{
			{"terrain_long_climbs", 0.30}, {"terrain_altitude", 0.15}, {"power_vo2max_5m", 0.20},
			{"power_threshold_20m", 0.15}, {"terrain_medium_climbs", 0.20},
		}},
		{Puncheur, []Component{
			{"terrain_punch_climbs", 0.30}, {"power_anaerobic_1m", 0.25}, {"tactical_attacking", 0.20},
			{"physical_acceleration", 0.15}, {"terrain_rolling", 0.10},
		}},
		{Rouleur, []Component{
			{"terrain_flat", 0.25}, {"terrain_rolling", 0.25}, {"power_threshold_20m", 0.20},
			{"power_endurance_2h", 0.15}, {"terrain_crosswinds", 0.15},
		}},
		{TimeTrialist, []Component{
			{"race_itt_flat", 0.30}, {"race_itt_mountain", 0.15}, {"power_ftp_60m", 0.25},
			{"power_threshold_20m", 0.15}, {"physical_aero", 0.15},
		}},
		{GC, []Component{
			{"terrain_long_climbs", 0.25}, {"race_itt_flat", 0.15}, {"race_gc", 0.20},
			{"race_grandtour", 0.15}, {"tactical_race_iq", 0.10}, {"consistency_daily", 0.15},
		}},
		{Classics, []Component{
			{"terrain_cobbles", 0.20}, {"terrain_punch_climbs", 0.15}, {"classics_cobbled", 0.15},
			{"classics_ardennes", 0.15}, {"tactical_positioning", 0.15}, {"physical_handling", 0.10},
			{"race_oneday", 0.10},
		}},
	}
}

// DefaultBasket returns the overall basket.
func DefaultBasket() []Component {
	return []Component{
		{"power_sprint_5s", 0.03}, {"power_anaerobic_1m", 0.03}, {"power_vo2max_5m", 0.05},
		{"power_threshold_20m", 0.07}, {"power_ftp_60m", 0.04}, {"power_endurance_2h", 0.03},

		{"terrain_flat", 0.04}, {"terrain_rolling", 0.03}, {"terrain_punch_climbs", 0.04},
		{"terrain_medium_climbs", 0.04}, {"terrain_long_climbs", 0.06}, {"terrain_altitude", 0.03},
		{"terrain_cobbles", 0.03}, {"terrain_descending", 0.02}, {"terrain_crosswinds", 0.01},

		{"race_sprint_finish", 0.04}, {"race_breakaway", 0.02}, {"race_itt_flat", 0.05},
		{"race_gc", 0.06}, {"race_oneday", 0.04}, {"race_stagerace", 0.04},

		{"tactical_positioning", 0.04}, {"tactical_race_iq", 0.04}, {"tactical_attacking", 0.02},

		{"consistency_daily", 0.03}, {"consistency_seasonal", 0.03}, {"consistency_clutch", 0.04},
	}
}

var defaultAggregator = mustDefault()

func mustDefault() *Aggregator {
	a, err := NewAggregator(DefaultProfiles(), AllRounder, DefaultBasket())
	if err != nil {
		panic(err)
	}
	return a
}

// Default returns the standard aggregator.
func Default() *Aggregator { return defaultAggregator }
