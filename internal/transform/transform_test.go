package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"habeat-engine/internal/llm"
	"habeat-engine/internal/promptgen"

	"go.uber.org/zap"
)

func mondayWindow(t *testing.T) promptgen.Window {
	t.Helper()
	// 2025-01-06 is a Monday
	w, err := promptgen.BuildWindow(time.Time{}, time.Date(2025, time.January, 6, 9, 0, 0, 0, time.Local), 3)
	if err != nil {
		t.Fatalf("BuildWindow failed: %v", err)
	}
	return w
}

func newTestTransformer() *Transformer {
	return New(DefaultWaterPolicy(), zap.NewNop())
}

const mealJSON = `{"name": "Oatmeal", "calories": 420, "protein": 18, "carbs": 62, "fat": 11, "prepTime": 10, "ingredients": ["rolled oats|80|g|grain"]}`

func TestTransformShapes(t *testing.T) {
	tr := newTestTransformer()
	w := mondayWindow(t)

	t.Run("DateKeyedObject", func(t *testing.T) {
		in := fmt.Sprintf(`{"2025-01-06": {"day": "Monday", "breakfast": %s}}`, mealJSON)
		got, err := tr.Transform(in, w)
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		day, ok := got.Days["2025-01-06"]
		if !ok {
			t.Fatal("Expected day keyed by 2025-01-06")
		}
		if day.Breakfast == nil || day.Breakfast.Name != "Oatmeal" {
			t.Errorf("Unexpected breakfast: %+v", day.Breakfast)
		}
		if day.Day != "Monday" {
			t.Errorf("Expected day name Monday, got %q", day.Day)
		}
	})

	t.Run("DayNameKeyedObject", func(t *testing.T) {
		in := fmt.Sprintf(`{"wednesday": {"lunch": %s}}`, mealJSON)
		got, err := tr.Transform(in, w)
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if _, ok := got.Days["2025-01-08"]; !ok {
			t.Errorf("Expected Wednesday resolved to 2025-01-08, got keys %v", got.SortedDates())
		}
	})

	t.Run("ArrayOfDays", func(t *testing.T) {
		in := fmt.Sprintf(`[{"day": "Monday", "dinner": %s}, {"day": "Tuesday", "dinner": %s}]`, mealJSON, mealJSON)
		got, err := tr.Transform(in, w)
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if len(got.Days) != 2 {
			t.Fatalf("Expected 2 days, got %d", len(got.Days))
		}
		if _, ok := got.Days["2025-01-07"]; !ok {
			t.Error("Expected Tuesday at 2025-01-07")
		}
	})

	t.Run("ArrayWithoutDayNamesUsesPosition", func(t *testing.T) {
		in := fmt.Sprintf(`[{"breakfast": %s}, {"breakfast": %s}]`, mealJSON, mealJSON)
		got, err := tr.Transform(in, w)
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if _, ok := got.Days["2025-01-06"]; !ok {
			t.Error("Expected first entry at window start")
		}
		if _, ok := got.Days["2025-01-07"]; !ok {
			t.Error("Expected second entry at window start+1")
		}
	})

	t.Run("MealPlanEnvelope", func(t *testing.T) {
		in := fmt.Sprintf(`{"mealPlan": {"weeklyPlan": {"2025-01-06": {"breakfast": %s}}}}`, mealJSON)
		got, err := tr.Transform(in, w)
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if _, ok := got.Days["2025-01-06"]; !ok {
			t.Error("Expected nested envelope unwrapped")
		}
	})
}

func TestTransformInvariants(t *testing.T) {
	tr := newTestTransformer()
	w := mondayWindow(t)

	t.Run("TruncatesToSevenEarliestDates", func(t *testing.T) {
		days := make(map[string]any)
		for i := 0; i < 10; i++ {
			date := time.Date(2025, time.January, 6+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
			var meal map[string]any
			_ = json.Unmarshal([]byte(mealJSON), &meal)
			days[date] = map[string]any{"breakfast": meal}
		}
		raw, _ := json.Marshal(days)

		got, err := tr.Transform(string(raw), w)
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if len(got.Days) != 7 {
			t.Fatalf("Expected exactly 7 days after truncation, got %d", len(got.Days))
		}
		dates := got.SortedDates()
		if dates[0] != "2025-01-06" || dates[6] != "2025-01-12" {
			t.Errorf("Expected 7 earliest dates kept, got %v", dates)
		}
	})

	t.Run("EmptyPlanRejected", func(t *testing.T) {
		_, err := tr.Transform(`{"2025-01-06": {"day": "Monday", "snacks": []}}`, w)
		if !errors.Is(err, llm.ErrMalformedResponse) {
			t.Errorf("Expected malformed-response error for meal-less plan, got %v", err)
		}
	})

	t.Run("UnparseableJSONRejected", func(t *testing.T) {
		_, err := tr.Transform(`{{{`, w)
		if !errors.Is(err, llm.ErrMalformedResponse) {
			t.Errorf("Expected malformed-response error, got %v", err)
		}
	})

	t.Run("AggregatesWeeklyMacros", func(t *testing.T) {
		in := fmt.Sprintf(`{"2025-01-06": {"breakfast": %s, "lunch": %s}}`, mealJSON, mealJSON)
		got, err := tr.Transform(in, w)
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		if got.WeeklyMacros.Calories.Total != 840 {
			t.Errorf("Expected 840 total calories, got %d", got.WeeklyMacros.Calories.Total)
		}
		if got.WeeklyMacros.Protein.Total != 36 {
			t.Errorf("Expected 36g protein total, got %d", got.WeeklyMacros.Protein.Total)
		}
		if got.WeeklyMacros.Calories.Consumed != 0 {
			t.Error("Consumed must stay zero at assembly time")
		}
	})
}

func TestTransformNumericDefenses(t *testing.T) {
	tr := newTestTransformer()
	w := mondayWindow(t)

	in := `{"2025-01-06": {"breakfast": {
		"name": "Weird", "calories": "523 kcal", "protein": null,
		"macros": {"protein": 31.6, "carbs": "abc", "fat": 12},
		"prepTime": null, "ingredients": []}}}`
	got, err := tr.Transform(in, w)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	b := got.Days["2025-01-06"].Breakfast
	if b.Calories != 523 {
		t.Errorf("Expected calories parsed from string, got %d", b.Calories)
	}
	if b.Macros.Protein != 32 {
		t.Errorf("Expected rounded protein 32, got %d", b.Macros.Protein)
	}
	if b.Macros.Carbs != 0 {
		t.Errorf("Expected default 0 for unparseable carbs, got %d", b.Macros.Carbs)
	}
	if b.PrepTime != 15 {
		t.Errorf("Expected default prep time 15, got %d", b.PrepTime)
	}
}

func TestWaterIntake(t *testing.T) {
	tr := newTestTransformer()
	w := mondayWindow(t)

	t.Run("BaseWithoutWorkouts", func(t *testing.T) {
		in := fmt.Sprintf(`{"2025-01-06": {"breakfast": %s}}`, mealJSON)
		got, _ := tr.Transform(in, w)
		if got.Days["2025-01-06"].WaterIntake != 8 {
			t.Errorf("Expected base 8 glasses, got %d", got.Days["2025-01-06"].WaterIntake)
		}
	})

	t.Run("WorkoutIncrement", func(t *testing.T) {
		in := fmt.Sprintf(`{"2025-01-06": {"breakfast": %s,
			"workouts": [{"name": "Run", "category": "cardio", "duration": 60, "caloriesBurned": 500}]}}`, mealJSON)
		got, _ := tr.Transform(in, w)
		if got.Days["2025-01-06"].WaterIntake != 10 {
			t.Errorf("Expected 8+2 glasses for 60min workout, got %d", got.Days["2025-01-06"].WaterIntake)
		}
	})

	t.Run("CappedAtTwelve", func(t *testing.T) {
		if got := DefaultWaterPolicy().Glasses(600); got != 12 {
			t.Errorf("Expected cap at 12 glasses, got %d", got)
		}
	})
}

func TestParseIngredient(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string // "name/amount/unit/category"
		ok   bool
	}{
		{"Delimited", "Chicken Breast|200|g|protein", "chicken_breast/200/g/protein", true},
		{"DelimitedPartial", "rice|150", "rice/150//", true},
		{"Parenthetical", "Greek Yogurt (150 g)", "greek_yogurt/150/g/", true},
		{"ParentheticalMultiUnit", "Olive Oil (1 tbsp extra)", "olive_oil/1/tbsp extra/", true},
		{"Bare", "Spinach", "spinach///", true},
		{"Object", map[string]any{"name": "Brown Rice", "amount": 150.0, "unit": "g"}, "brown_rice/150/g/", true},
		{"Empty", "", "", false},
		{"Number", 42.0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ing, ok := ParseIngredient(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			got := fmt.Sprintf("%s/%s/%s/%s", ing.Name, ing.Amount, ing.Unit, ing.Category)
			if got != tc.want {
				t.Errorf("Got %q, want %q", got, tc.want)
			}
		})
	}
}
