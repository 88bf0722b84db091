package plan

import (
	"sort"
	"time"
)

// DateKey is the canonical date format for day-plan keys (local time, not UTC).
const DateKey = "2006-01-02"

// DayPlan holds the meals, workouts and hydration target for one calendar day.
type DayPlan struct {
	Day         string    `json:"day"`
	Date        string    `json:"date"`
	Breakfast   *Meal     `json:"breakfast,omitempty"`
	Lunch       *Meal     `json:"lunch,omitempty"`
	Dinner      *Meal     `json:"dinner,omitempty"`
	Snacks      []Meal    `json:"snacks,omitempty"`
	Workouts    []Workout `json:"workouts,omitempty"`
	WaterIntake int       `json:"waterIntake"`
}

// Meals returns the day's meals in slot order, skipping absent slots.
func (d *DayPlan) Meals() []Meal {
	var out []Meal
	for _, m := range []*Meal{d.Breakfast, d.Lunch, d.Dinner} {
		if m != nil {
			out = append(out, *m)
		}
	}
	out = append(out, d.Snacks...)
	return out
}

// HasMainMeal reports whether at least one of breakfast/lunch/dinner is present.
func (d *DayPlan) HasMainMeal() bool {
	return d.Breakfast != nil || d.Lunch != nil || d.Dinner != nil
}

// MacroProgress is an aggregate counter with a consumed/total pair. Consumed is
// filled in later by external progress tracking; the engine only sets totals.
type MacroProgress struct {
	Consumed int `json:"consumed"`
	Total    int `json:"total"`
}

// WeeklyMacros aggregates the nutrition totals of a whole week.
type WeeklyMacros struct {
	Calories MacroProgress `json:"calories"`
	Protein  MacroProgress `json:"protein"`
	Carbs    MacroProgress `json:"carbs"`
	Fat      MacroProgress `json:"fat"`
}

// WeeklyPlan maps date keys to day plans with week-level macro totals.
type WeeklyPlan struct {
	Days         map[string]DayPlan `json:"days"`
	WeeklyMacros WeeklyMacros       `json:"weeklyMacros"`
}

// SortedDates returns the plan's date keys in ascending order.
func (w *WeeklyPlan) SortedDates() []string {
	dates := make([]string, 0, len(w.Days))
	for d := range w.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Aggregate recomputes the weekly macro totals from the contained meals.
func (w *WeeklyPlan) Aggregate() {
	var totals WeeklyMacros
	for _, day := range w.Days {
		for _, m := range day.Meals() {
			totals.Calories.Total += m.Calories
			totals.Protein.Total += m.Macros.Protein
			totals.Carbs.Total += m.Macros.Carbs
			totals.Fat.Total += m.Macros.Fat
		}
	}
	w.WeeklyMacros = totals
}

// WeeklyPlanResult is the payload returned to the persistence collaborator.
type WeeklyPlanResult struct {
	WeeklyPlan  WeeklyPlan `json:"weeklyPlan"`
	Language    string     `json:"language"`
	GeneratedAt time.Time  `json:"generatedAt"`
}
