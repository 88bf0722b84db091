// Package promptgen renders the natural-language prompts sent to the model
// backends and computes the calendar window a weekly plan must cover.
package promptgen

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"habeat-engine/internal/nutrition"
	"habeat-engine/internal/plan"
)

//go:embed weekly_plan_prompt.md
var weeklyPlanPrompt string

//go:embed meal_suggestions_prompt.md
var mealSuggestionsPrompt string

var funcs = template.FuncMap{
	"join": strings.Join,
}

var (
	weeklyTmpl      = template.Must(template.New("weekly").Funcs(funcs).Parse(weeklyPlanPrompt))
	suggestionsTmpl = template.Must(template.New("suggestions").Funcs(funcs).Parse(mealSuggestionsPrompt))
)

type promptDay struct {
	Date    string
	Name    string
	Workout bool
}

type weeklyPromptData struct {
	Profile  nutrition.Profile
	Targets  nutrition.Targets
	Guidance string
	Language string
	Days     []promptDay
}

// BuildWeeklyPrompt renders the full-week generation prompt for a profile,
// its nutrition targets and a date window.
func BuildWeeklyPrompt(profile nutrition.Profile, targets nutrition.Targets, w Window, language string) (string, error) {
	workoutDays := make(map[int]bool, len(w.WorkoutDayIndices))
	for _, i := range w.WorkoutDayIndices {
		workoutDays[i] = true
	}

	days := make([]promptDay, len(w.Dates))
	for i := range w.Dates {
		days[i] = promptDay{
			Date:    w.DateKeys[i],
			Name:    w.DayNameByIndex[i],
			Workout: workoutDays[i],
		}
	}

	var buf bytes.Buffer
	err := weeklyTmpl.Execute(&buf, weeklyPromptData{
		Profile:  profile,
		Targets:  targets,
		Guidance: nutrition.GuidanceFor(profile.Path),
		Language: language,
		Days:     days,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SuggestionCriteria describes a single-category suggestion request.
type SuggestionCriteria struct {
	Category       plan.MealCategory
	TargetCalories int
	Count          int
	Path           nutrition.Path
	Allergies      []string
	Restrictions   []string
	Exclude        []string
}

// BuildSuggestionsPrompt renders the prompt for standalone meal suggestions.
func BuildSuggestionsPrompt(c SuggestionCriteria, language string) (string, error) {
	var buf bytes.Buffer
	err := suggestionsTmpl.Execute(&buf, struct {
		SuggestionCriteria
		Language string
	}{c, language})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Today returns the local midnight of the supplied instant.
func Today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
