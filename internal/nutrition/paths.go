package nutrition

// Path is the user's dietary/fitness goal category. Unknown paths fall back to
// the default split and a zero calorie adjustment.
type Path string

const (
	PathHealthy    Path = "healthy"
	PathLoseWeight Path = "lose-weight"
	PathGainMuscle Path = "gain-muscle"
	PathKeto       Path = "keto"
	PathFasting    Path = "fasting"
	PathRunning    Path = "running"
	PathCustom     Path = "custom"
)

// Gender selects the BMR/ideal-weight coefficient row.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Profile is the read-only nutrition slice of a user record.
type Profile struct {
	Age              int
	Gender           Gender
	HeightCM         float64
	WeightKG         float64
	WorkoutFrequency int
	Path             Path
	Allergies        []string
	Restrictions     []string
	Preferences      []string
	Dislikes         []string
}

// macroSplit is a percentage split of daily calories.
type macroSplit struct {
	Protein int
	Carbs   int
	Fat     int
}

// macroSplits maps each path to its calorie percentage split.
var macroSplits = map[Path]macroSplit{
	PathKeto:       {Protein: 25, Carbs: 5, Fat: 70},
	PathGainMuscle: {Protein: 30, Carbs: 40, Fat: 30},
	PathLoseWeight: {Protein: 35, Carbs: 30, Fat: 35},
	PathHealthy:    {Protein: 25, Carbs: 45, Fat: 30},
	PathRunning:    {Protein: 20, Carbs: 55, Fat: 25},
	PathFasting:    {Protein: 30, Carbs: 35, Fat: 35},
}

var defaultSplit = macroSplit{Protein: 25, Carbs: 45, Fat: 30}

// calorieAdjustments maps each path to a daily calorie delta on top of TDEE.
var calorieAdjustments = map[Path]int{
	PathLoseWeight: -500,
	PathGainMuscle: 300,
	PathKeto:       -200,
	PathFasting:    -300,
	PathHealthy:    0,
	PathRunning:    200,
	PathCustom:     0,
}

// Guidance is the static per-path dietary guidance embedded into prompts.
var Guidance = map[Path]string{
	PathHealthy:    "Balanced whole foods, plenty of vegetables, moderate portions.",
	PathLoseWeight: "Calorie deficit with high protein to preserve lean mass; prefer high-volume low-calorie foods.",
	PathGainMuscle: "Calorie surplus with protein at every meal; complex carbs around workouts.",
	PathKeto:       "Very low carbohydrate (under 30g net per day), high fat, moderate protein. No grains, sugar or starchy vegetables.",
	PathFasting:    "Meals compressed into an 8-hour eating window; no snacks outside the window.",
	PathRunning:    "Carbohydrate-forward meals to fuel endurance training; easy-to-digest pre-run options.",
	PathCustom:     "Follow the stated preferences and restrictions as closely as possible.",
}

// GuidanceFor returns the guidance text for a path, falling back to healthy.
func GuidanceFor(p Path) string {
	if g, ok := Guidance[p]; ok {
		return g
	}
	return Guidance[PathHealthy]
}
