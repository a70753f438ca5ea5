package traits

// OverallDimension is the pseudo-dimension for general praise or criticism.
// It nudges the overall score instead of a catalog dimension.
const OverallDimension = "overall"

func pos(dim string, weight float64, keywords ...string) Pattern {
	return Pattern{Dimension: dim, Keywords: keywords, Weight: weight, Sentiment: Positive}
}

func neg(dim string, weight float64, keywords ...string) Pattern {
	return Pattern{Dimension: dim, Keywords: keywords, Weight: weight, Sentiment: Negative}
}

// DefaultPatterns returns the standard keyword catalog in matching order.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// power
		pos("power_sprint_5s", 0.8, "explosive sprint", "massive kick", "pure sprinter", "sprint power",
			"fastest in the bunch", "won the sprint", "sprint win", "bunch sprint victory"),
		neg("power_sprint_5s", 0.5, "outsprinted", "beaten in sprint", "no sprint left", "sprint fade"),
		pos("power_anaerobic_1m", 0.7, "punchy", "short steep efforts", "explosive acceleration", "repeated attacks", "punch"),
		pos("power_vo2max_5m", 0.7, "vo2max", "sustained power", "climbing power", "5 minute power", "aerobic capacity"),
		pos("power_threshold_20m", 0.7, "threshold power", "sustained effort", "tempo riding", "ftp", "time trial power"),
		pos("power_ftp_60m", 0.8, "hour record", "sustained power", "incredible ftp", "time trial machine"),
		pos("power_endurance_2h", 0.6, "endurance", "long distance", "marathon effort", "lasted the distance", "never tired"),

		// terrain
		pos("terrain_flat", 0.6, "flat roads", "pancake flat", "rouleur territory", "flat specialist"),
		pos("terrain_rolling", 0.6, "rolling terrain", "undulating", "hilly course", "rolling hills"),
		pos("terrain_punch_climbs", 0.8, "punch climbs", "short steep", "mur", "hellingen", "bergs", "wall",
			"koppenberg", "paterberg", "oude kwaremont"),
		pos("terrain_medium_climbs", 0.7, "medium climbs", "hc climb", "category 1", "hors catégorie"),
		pos("terrain_long_climbs", 0.9, "long climb", "mountain climb", "col", "alpe", "tourmalet", "galibier",
			"ventoux", "angliru", "mortirolo", "stelvio", "zoncolan"),
		pos("terrain_altitude", 0.7, "high altitude", "altitude performance", "2000m", "thin air", "mountain top"),
		pos("terrain_cobbles", 0.9, "cobbles", "pavé", "cobblestones", "roubaix", "arenberg", "carrefour de l'arbre", "haveluy"),
		neg("terrain_cobbles", 0.6, "struggled on cobbles", "crashed on pavé", "punctured on cobbles"),
		pos("terrain_gravel", 0.8, "gravel", "strade bianche", "white roads", "sterrato", "gravel sector"),
		pos("terrain_descending", 0.7, "descending", "downhill", "technical descent", "fearless descender", "gained time descending"),
		neg("terrain_descending", 0.5, "crashed descending", "lost time downhill", "cautious descender"),
		pos("terrain_crosswinds", 0.7, "crosswinds", "echelons", "guttered", "wind", "bordures", "waaiers"),

		// race type
		pos("race_sprint_finish", 0.8, "sprint finish", "bunch sprint", "won the sprint", "fastest wheels", "sprint victory"),
		pos("race_leadout", 0.7, "leadout", "lead out", "piloted", "delivered the sprinter", "perfect leadout"),
		pos("race_breakaway", 0.8, "breakaway", "solo attack", "escaped", "went clear", "long range attack", "rode away"),
		pos("race_itt_flat", 0.8, "time trial", "against the clock", "tt specialist", "chrono", "individual time trial", "itt"),
		pos("race_itt_mountain", 0.7, "mountain time trial", "uphill tt", "climbing time trial"),
		pos("race_gc", 0.9, "gc contender", "general classification", "overall leader", "yellow jersey", "maglia rosa",
			"leader jersey", "gc ambitions"),
		pos("race_oneday", 0.7, "one day specialist", "classics rider", "monument hunter", "one-day race"),
		pos("race_stagerace", 0.7, "stage race", "week-long race", "multi-day event", "consistent through stages"),
		pos("race_grandtour", 0.9, "grand tour", "tour de france", "giro", "vuelta", "three week race", "21 stages"),

		// classics
		pos("classics_cobbled", 0.9, "flanders", "roubaix", "cobbled classics", "flandrien", "e3", "gent-wevelgem",
			"dwars door vlaanderen"),
		pos("classics_ardennes", 0.9, "ardennes", "liège", "amstel", "flèche wallonne", "la doyenne", "cauberg", "mur de huy"),
		pos("classics_italian", 0.8, "sanremo", "lombardia", "strade bianche", "italian classics", "la primavera",
			"cipressa", "poggio", "san remo"),
		pos("classics_spring", 0.7, "spring classics", "opening weekend", "omloop", "kuurne", "spring campaign"),

		// tactical
		pos("tactical_positioning", 0.7, "positioning", "always at the front", "well positioned", "perfect position",
			"never out of position"),
		neg("tactical_positioning", 0.5, "caught out", "wrong position", "too far back", "missed the split"),
		pos("tactical_race_iq", 0.8, "race intelligence", "race iq", "smart racing", "tactical nous", "read the race", "clever move"),
		pos("tactical_attacking", 0.7, "attacked", "launched attack", "went on the attack", "aggressive", "animated the race"),
		pos("tactical_defensive", 0.6, "defensive", "marked", "covered attacks", "controlled", "neutralized"),
		pos("tactical_leadership", 0.7, "team leader", "captain", "protected leader", "gc leader", "leader role"),
		pos("tactical_domestique", 0.6, "domestique", "team work", "sacrificed", "worked for leader", "super domestique", "road captain"),

		// physical
		pos("physical_acceleration", 0.7, "acceleration", "explosive", "snap", "kicked hard", "sudden burst"),
		pos("physical_topspeed", 0.7, "top speed", "fastest", "pure speed", "hit 70km/h", "incredible speed"),
		pos("physical_aero", 0.6, "aerodynamic", "aero position", "slippery", "wind tunnel", "aero gains"),
		pos("physical_recovery", 0.7, "recovery", "fresh legs", "recovered well", "bounced back", "resilient"),
		neg("physical_recovery", 0.5, "tired", "fatigued", "empty legs", "struggled to recover"),
		pos("physical_fatigue_resist", 0.8, "fatigue resistance", "never cracked", "stayed strong", "dug deep", "mental strength"),
		neg("physical_fatigue_resist", 0.6, "cracked", "blew up", "bonked", "hit the wall", "collapsed"),
		pos("physical_handling", 0.6, "bike handling", "technical skills", "cornering", "skilled in the bunch", "safe hands"),
		neg("physical_handling", 0.4, "crashed", "fell", "lost control", "slipped"),

		// weather
		pos("weather_heat", 0.6, "hot conditions", "heat specialist", "performed in heat", "warm weather"),
		neg("weather_heat", 0.4, "struggled in heat", "overheated", "suffered in sun"),
		pos("weather_cold", 0.6, "cold weather", "freezing conditions", "handles cold well", "cold specialist"),
		pos("weather_rain", 0.6, "rain", "wet conditions", "wet roads", "rainy day specialist"),
		neg("weather_rain", 0.4, "struggled in rain", "slipped in wet"),
		pos("weather_wind", 0.6, "windy", "strong wind", "headwind", "crosswind specialist"),

		// consistency
		pos("consistency_daily", 0.7, "consistent", "reliable", "always there", "day after day", "dependable"),
		neg("consistency_daily", 0.5, "inconsistent", "unpredictable", "off day", "bad day"),
		pos("consistency_seasonal", 0.7, "season-long form", "peaked perfectly", "good form all year"),
		pos("consistency_clutch", 0.8, "clutch performance", "delivered when it mattered", "big race performance",
			"rose to the occasion"),
		neg("consistency_clutch", 0.6, "choked", "cracked under pressure", "failed to deliver"),
		pos("consistency_reliability", 0.5, "reliable", "finisher", "always finishes", "completed"),
		neg("consistency_reliability", 0.4, "dnf", "abandoned", "withdrew", "did not finish"),

		// general verdicts
		pos(OverallDimension, 1.0, "best in the world", "world champion", "dominated", "untouchable", "unbeatable", "masterclass"),
		neg(OverallDimension, 0.3, "defeated", "beaten", "struggled", "disappointing"),
	}
}
