package inference

// DefaultRules returns the standard inference table. Terrain and finish tags are
// matched as lowercase substrings, race names after diacritic folding.
func DefaultRules() []Rule {
	return []Rule{
		// terrain
		{Field: FieldTerrain, Op: OpContains, Terms: []string{"flat"}, Set: []Weight{
			{"terrain_flat", 0.8}, {"power_endurance_2h", 0.6},
		}},
		{Field: FieldTerrain, Op: OpContains, Terms: []string{"mountain", "summit"}, Set: []Weight{
			{"terrain_long_climbs", 0.9}, {"terrain_altitude", 0.7}, {"power_vo2max_5m", 0.8}, {"power_threshold_20m", 0.7},
		}},
		{Field: FieldTerrain, Op: OpContains, Terms: []string{"hilly", "rolling"}, Set: []Weight{
			{"terrain_rolling", 0.7}, {"terrain_punch_climbs", 0.6}, {"power_anaerobic_1m", 0.5},
		}},
		{Field: FieldTerrain, Op: OpContains, Terms: []string{"cobbles"}, Set: []Weight{
			{"terrain_cobbles", 0.9}, {"physical_handling", 0.7}, {"physical_acceleration", 0.6},
		}},
		{Field: FieldTerrain, Op: OpContains, Terms: []string{"time_trial", "tt"}, Set: []Weight{
			{"race_itt_flat", 0.9}, {"power_ftp_60m", 0.9}, {"power_threshold_20m", 0.8}, {"physical_aero", 0.8},
		}},

		// finish type
		{Field: FieldFinish, Op: OpContains, Terms: []string{"sprint", "bunch"}, Set: []Weight{
			{"race_sprint_finish", 0.9}, {"power_sprint_5s", 0.9}, {"physical_topspeed", 0.7}, {"tactical_positioning", 0.6},
		}},
		{Field: FieldFinish, Op: OpContains, Terms: []string{"solo"}, Set: []Weight{
			{"race_breakaway", 0.8}, {"tactical_attacking", 0.7}, {"power_threshold_20m", 0.6},
		}},
		{Field: FieldFinish, Op: OpContains, Terms: []string{"summit"}, Set: []Weight{
			{"terrain_long_climbs", 0.9}, {"power_vo2max_5m", 0.8}, {"race_gc", 0.5},
		}},
		{Field: FieldFinish, Op: OpContains, Terms: []string{"small_group", "reduced"}, Set: []Weight{
			{"race_sprint_finish", 0.5}, {"tactical_race_iq", 0.7}, {"physical_acceleration", 0.6},
		}},

		// category
		{Field: FieldCategory, Op: OpEquals, Terms: []string{"GT"}, Set: []Weight{
			{"race_gc", 0.7}, {"race_stagerace", 0.8}, {"physical_recovery", 0.8}, {"tactical_race_iq", 0.6},
		}},
		{Field: FieldCategory, Op: OpEquals, Terms: []string{"Monument"}, Set: []Weight{
			{"race_oneday", 0.9}, {"power_endurance_2h", 0.8}, {"tactical_positioning", 0.7},
		}},

		// elevation, first match wins
		{Field: FieldElevation, Op: OpAbove, Threshold: 4000, Group: "elevation", Set: []Weight{
			{"terrain_long_climbs", 0.9}, {"terrain_medium_climbs", 0.7},
		}},
		{Field: FieldElevation, Op: OpAbove, Threshold: 2000, Group: "elevation", Set: []Weight{
			{"terrain_medium_climbs", 0.7}, {"terrain_punch_climbs", 0.5},
		}},
		{Field: FieldElevation, Op: OpBelow, Threshold: 500, Group: "elevation", Set: []Weight{
			{"terrain_flat", 0.8},
		}},

		// well-known race names
		{Field: FieldName, Op: OpContains, Terms: []string{"roubaix"}, Set: []Weight{
			{"terrain_cobbles", 1.0}, {"physical_handling", 0.8}, {"power_endurance_2h", 0.9},
		}},
		{Field: FieldName, Op: OpContains, Terms: []string{"flanders", "vlaanderen"}, Set: []Weight{
			{"terrain_cobbles", 0.8}, {"terrain_punch_climbs", 0.9}, {"tactical_positioning", 0.8},
		}},
		{Field: FieldName, Op: OpContains, Terms: []string{"liege", "fleche", "amstel"}, Set: []Weight{
			{"terrain_punch_climbs", 0.9}, {"power_vo2max_5m", 0.8}, {"tactical_attacking", 0.7},
		}},
		{Field: FieldName, Op: OpContains, Terms: []string{"sanremo", "milano"}, Set: []Weight{
			{"power_endurance_2h", 0.9}, {"race_sprint_finish", 0.6}, {"terrain_punch_climbs", 0.5},
		}},
		{Field: FieldName, Op: OpContains, Terms: []string{"lombardia"}, Set: []Weight{
			{"terrain_medium_climbs", 0.9}, {"terrain_descending", 0.7}, {"tactical_attacking", 0.7},
		}},
		{Field: FieldName, Op: OpContains, Terms: []string{"strade bianche"}, Set: []Weight{
			{"terrain_gravel", 0.9}, {"terrain_punch_climbs", 0.7}, {"physical_handling", 0.7},
		}},
		{Field: FieldName, Op: OpContains, Terms: []string{"time trial", "chrono", "contre"}, Set: []Weight{
			{"race_itt_flat", 0.9}, {"power_ftp_60m", 0.9},
		}},
	}
}
