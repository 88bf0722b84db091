package promptgen

import (
	"strings"
	"testing"
	"time"

	"habeat-engine/internal/nutrition"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.Local)
}

func TestBuildWindow(t *testing.T) {
	t.Run("MondayFillsFullWeek", func(t *testing.T) {
		// 2025-01-06 is a Monday
		w, err := BuildWindow(time.Time{}, date(2025, time.January, 6), 3)
		if err != nil {
			t.Fatalf("BuildWindow failed: %v", err)
		}
		if len(w.Dates) != 7 {
			t.Fatalf("Expected 7 dates, got %d", len(w.Dates))
		}
		if w.DateKeys[0] != "2025-01-06" {
			t.Errorf("Expected first date 2025-01-06, got %s", w.DateKeys[0])
		}
		if w.DateKeys[6] != "2025-01-12" {
			t.Errorf("Expected last date 2025-01-12, got %s", w.DateKeys[6])
		}
		if w.Dates[len(w.Dates)-1].Weekday() != time.Sunday {
			t.Error("Expected window to end on Sunday")
		}
	})

	t.Run("WednesdayYieldsFiveDays", func(t *testing.T) {
		// 2025-01-08 is a Wednesday
		w, err := BuildWindow(time.Time{}, date(2025, time.January, 8), 3)
		if err != nil {
			t.Fatalf("BuildWindow failed: %v", err)
		}
		if len(w.Dates) != 5 {
			t.Fatalf("Expected 5 dates Wed..Sun, got %d", len(w.Dates))
		}
		if w.Dates[len(w.Dates)-1].Weekday() != time.Sunday {
			t.Error("Expected window to end on Sunday")
		}
	})

	t.Run("SundayYieldsSingleDay", func(t *testing.T) {
		// 2025-01-12 is a Sunday
		w, err := BuildWindow(time.Time{}, date(2025, time.January, 12), 3)
		if err != nil {
			t.Fatalf("BuildWindow failed: %v", err)
		}
		if len(w.Dates) != 1 {
			t.Fatalf("Expected 1 date, got %d", len(w.Dates))
		}
		if w.DateKeys[0] != "2025-01-12" {
			t.Errorf("Expected 2025-01-12, got %s", w.DateKeys[0])
		}
	})

	t.Run("ContiguousDates", func(t *testing.T) {
		w, _ := BuildWindow(time.Time{}, date(2025, time.January, 7), 0)
		for i := 1; i < len(w.Dates); i++ {
			if !w.Dates[i].Equal(w.Dates[i-1].AddDate(0, 0, 1)) {
				t.Fatalf("Dates not contiguous at index %d", i)
			}
		}
	})

	t.Run("NeverExceedsSevenDays", func(t *testing.T) {
		for day := 0; day < 7; day++ {
			w, err := BuildWindow(time.Time{}, date(2025, time.January, 5+day), 5)
			if err != nil {
				t.Fatalf("BuildWindow failed for offset %d: %v", day, err)
			}
			if len(w.Dates) > 7 {
				t.Errorf("Window for offset %d has %d days", day, len(w.Dates))
			}
		}
	})
}

// The caller-supplied start date is deliberately ignored: every window anchors
// on the current day. If product intent ever changes, this test is the place
// that documents the policy.
func TestBuildWindowIgnoresCallerStart(t *testing.T) {
	requested := date(2030, time.June, 3)
	now := date(2025, time.January, 6)
	w, err := BuildWindow(requested, now, 3)
	if err != nil {
		t.Fatalf("BuildWindow failed: %v", err)
	}
	if w.DateKeys[0] != "2025-01-06" {
		t.Errorf("Expected window anchored on now, got first date %s", w.DateKeys[0])
	}
}

func TestDistributeWorkouts(t *testing.T) {
	t.Run("EvenSpread", func(t *testing.T) {
		got := distributeWorkouts(7, 3)
		want := []int{0, 2, 4}
		if len(got) != len(want) {
			t.Fatalf("Expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Expected %v, got %v", want, got)
			}
		}
	})

	t.Run("FrequencyCappedByActiveDays", func(t *testing.T) {
		got := distributeWorkouts(2, 5)
		if len(got) != 2 {
			t.Errorf("Expected 2 workout days, got %d", len(got))
		}
	})

	t.Run("ZeroFrequency", func(t *testing.T) {
		if got := distributeWorkouts(7, 0); got != nil {
			t.Errorf("Expected no workout days, got %v", got)
		}
	})
}

func TestBuildWeeklyPrompt(t *testing.T) {
	profile := nutrition.Profile{
		Age: 30, Gender: nutrition.GenderMale, HeightCM: 180, WeightKG: 80,
		WorkoutFrequency: 3, Path: nutrition.PathLoseWeight,
		Allergies:   []string{"peanuts"},
		Preferences: []string{"salmon"},
	}
	targets := nutrition.CalculateTargets(profile)
	w, err := BuildWindow(time.Time{}, date(2025, time.January, 6), 3)
	if err != nil {
		t.Fatalf("BuildWindow failed: %v", err)
	}

	prompt, err := BuildWeeklyPrompt(profile, targets, w, "en")
	if err != nil {
		t.Fatalf("BuildWeeklyPrompt failed: %v", err)
	}

	for _, want := range []string{
		"2025-01-06", "2025-01-12", "peanuts", "salmon",
		"name|amount|unit|category", "keyed by date strings",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "2025-01-13") {
		t.Error("Prompt must not contain dates beyond the window")
	}
}

func TestBuildSuggestionsPrompt(t *testing.T) {
	prompt, err := BuildSuggestionsPrompt(SuggestionCriteria{
		Category:       "lunch",
		TargetCalories: 600,
		Count:          4,
		Path:           nutrition.PathKeto,
		Exclude:        []string{"Grilled Chicken Salad"},
	}, "en")
	if err != nil {
		t.Fatalf("BuildSuggestionsPrompt failed: %v", err)
	}
	for _, want := range []string{"lunch", "600", "Grilled Chicken Salad"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}
