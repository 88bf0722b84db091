package nutrition

import (
	"math"

	"habeat-engine/internal/plan"
)

// Targets holds the derived nutrition numbers for one plan generation.
// Computed once per generation and never mutated afterward.
type Targets struct {
	BMR            float64
	TDEE           float64
	TargetCalories int
	DailyMacros    plan.Macros
	IdealWeight    WeightRange
}

// WeightRange is the BMI-derived healthy weight window in kilograms.
type WeightRange struct {
	Min   float64
	Max   float64
	Ideal float64
}

// bmrCoefficients holds the Harris-Benedict coefficients per gender.
// Extend by adding a row, not by branching.
type bmrCoefficients struct {
	Base   float64
	Weight float64
	Height float64
	Age    float64
}

var bmrTable = map[Gender]bmrCoefficients{
	GenderMale:   {Base: 88.362, Weight: 13.397, Height: 4.799, Age: 5.677},
	GenderFemale: {Base: 447.593, Weight: 9.247, Height: 3.098, Age: 4.330},
}

// activityMultipliers maps weekly workout frequency to a TDEE multiplier.
var activityMultipliers = map[int]float64{
	0: 1.2,
	1: 1.375,
	2: 1.375,
	3: 1.55,
	4: 1.55,
	5: 1.725,
	6: 1.725,
	7: 1.9,
}

const defaultActivityMultiplier = 1.55

// idealBMI is the target BMI per gender for the ideal-weight midpoint.
var idealBMI = map[Gender]float64{
	GenderMale:   22.5,
	GenderFemale: 21.5,
}

const (
	bmiMin = 18.5
	bmiMax = 24.9
)

// CalculateBMR computes the Harris-Benedict basal metabolic rate.
func CalculateBMR(weightKG, heightCM float64, age int, gender Gender) float64 {
	c, ok := bmrTable[gender]
	if !ok {
		c = bmrTable[GenderMale]
	}
	return c.Base + c.Weight*weightKG + c.Height*heightCM - c.Age*float64(age)
}

// CalculateTDEE scales BMR by the activity multiplier for the given weekly
// workout frequency.
func CalculateTDEE(bmr float64, workoutFrequency int) float64 {
	mult, ok := activityMultipliers[workoutFrequency]
	if !ok {
		mult = defaultActivityMultiplier
	}
	return bmr * mult
}

// CalculateTargetCalories applies the per-path calorie adjustment to TDEE.
func CalculateTargetCalories(tdee float64, path Path) int {
	adj, ok := calorieAdjustments[path]
	if !ok {
		adj = 0
	}
	return int(math.Round(tdee)) + adj
}

// CalculateMacros splits target calories into macro grams using 4 kcal/g for
// protein and carbs and 9 kcal/g for fat.
func CalculateMacros(calories int, path Path) plan.Macros {
	split, ok := macroSplits[path]
	if !ok {
		split = defaultSplit
	}
	c := float64(calories)
	return plan.Macros{
		Protein: int(math.Round(c * float64(split.Protein) / 100 / 4)),
		Carbs:   int(math.Round(c * float64(split.Carbs) / 100 / 4)),
		Fat:     int(math.Round(c * float64(split.Fat) / 100 / 9)),
	}
}

// CalculateIdealWeight returns the healthy weight window for a height using
// the general BMI range and a gender-specific ideal BMI.
func CalculateIdealWeight(heightCM float64, gender Gender) WeightRange {
	target, ok := idealBMI[gender]
	if !ok {
		target = idealBMI[GenderMale]
	}
	hm := heightCM / 100
	sq := hm * hm
	return WeightRange{
		Min:   round1(bmiMin * sq),
		Max:   round1(bmiMax * sq),
		Ideal: round1(target * sq),
	}
}

// CalculateTargets derives the full target set from a profile.
func CalculateTargets(p Profile) Targets {
	bmr := CalculateBMR(p.WeightKG, p.HeightCM, p.Age, p.Gender)
	tdee := CalculateTDEE(bmr, p.WorkoutFrequency)
	calories := CalculateTargetCalories(tdee, p.Path)
	return Targets{
		BMR:            bmr,
		TDEE:           tdee,
		TargetCalories: calories,
		DailyMacros:    CalculateMacros(calories, p.Path),
		IdealWeight:    CalculateIdealWeight(p.HeightCM, p.Gender),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
