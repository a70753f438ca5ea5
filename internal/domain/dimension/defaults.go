package dimension

// group is a compact table row: a category and its dimension names with display labels.
type group struct {
	category Category
	names    [][2]string
}

var defaultGroups = []group{
	{Power, [][2]string{
		{"sprint_5s", "Sprint power (5s)"},
		{"anaerobic_1m", "Anaerobic capacity (1m)"},
		{"vo2max_5m", "VO2max power (5m)"},
		{"threshold_20m", "Threshold power (20m)"},
		{"ftp_60m", "Functional threshold (60m)"},
		{"endurance_2h", "Endurance (2h+)"},
	}},
	{Terrain, [][2]string{
		{"flat", "Flat roads"},
		{"rolling", "Rolling terrain"},
		{"punch_climbs", "Short punchy climbs"},
		{"medium_climbs", "Medium climbs"},
		{"long_climbs", "Long climbs"},
		{"altitude", "Altitude"},
		{"cobbles", "Cobbles"},
		{"gravel", "Gravel"},
		{"descending", "Descending"},
		{"crosswinds", "Crosswinds"},
	}},
	{Race, [][2]string{
		{"sprint_finish", "Sprint finishes"},
		{"breakaway", "Breakaways"},
		{"itt_flat", "Flat time trial"},
		{"itt_mountain", "Mountain time trial"},
		{"gc", "General classification"},
		{"oneday", "One-day races"},
		{"stagerace", "Stage races"},
		{"leadout", "Lead-out"},
		{"ttt", "Team time trial"},
		{"prologue", "Prologue"},
		{"grandtour", "Grand tours"},
	}},
	{Classics, [][2]string{
		{"cobbled", "Cobbled classics"},
		{"ardennes", "Ardennes classics"},
		{"italian", "Italian classics"},
		{"spring", "Spring classics"},
		{"autumn", "Autumn classics"},
	}},
	{Tactical, [][2]string{
		{"positioning", "Positioning"},
		{"race_iq", "Race intelligence"},
		{"attacking", "Attacking"},
		{"defensive", "Defensive riding"},
		{"leadership", "Leadership"},
		{"domestique", "Domestique work"},
	}},
	{Physical, [][2]string{
		{"acceleration", "Acceleration"},
		{"topspeed", "Top speed"},
		{"aero", "Aerodynamics"},
		{"recovery", "Recovery"},
		{"handling", "Bike handling"},
		{"fatigue_resist", "Fatigue resistance"},
		{"peloton_skills", "Peloton skills"},
	}},
	{Weather, [][2]string{
		{"heat", "Heat"},
		{"cold", "Cold"},
		{"rain", "Rain"},
		{"wind", "Wind"},
	}},
	{Consistency, [][2]string{
		{"daily", "Day-to-day consistency"},
		{"seasonal", "Seasonal consistency"},
		{"clutch", "Big-race performance"},
		{"reliability", "Reliability"},
	}},
}

var defaultCatalog = MustNew(expand(defaultGroups))

func expand(groups []group) []Dimension {
	var dims []Dimension
	for _, g := range groups {
		for _, n := range g.names {
			dims = append(dims, Dimension{Key: Key(g.category, n[0]), Category: g.category, Name: n[1]})
		}
	}
	return dims
}

// Default returns the standard cycling dimension catalog.
func Default() *Catalog { return defaultCatalog }
