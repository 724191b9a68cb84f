package inventory

// patternRule describes an automation opportunity: two entity domains
// that commonly get linked by an automation when they share an area.
type patternRule struct {
	Title         string
	TriggerDomain string
	TargetDomain  string
}

// patternRules is the recognized domain-pair table. Order determines
// the order patterns are reported for an area. New heuristics are
// added here, not in the analyzer loop.
var patternRules = []patternRule{
	{
		Title:         "Turn lights on/off with motion",
		TriggerDomain: "binary_sensor",
		TargetDomain:  "light",
	},
	{
		Title:         "Adjust climate from temperature readings",
		TriggerDomain: "sensor",
		TargetDomain:  "climate",
	},
	{
		Title:         "Switch devices with occupancy",
		TriggerDomain: "binary_sensor",
		TargetDomain:  "switch",
	},
	{
		Title:         "Close covers after dark",
		TriggerDomain: "sun",
		TargetDomain:  "cover",
	},
	{
		Title:         "Pause media when nobody is home",
		TriggerDomain: "person",
		TargetDomain:  "media_player",
	},
}
