package planner

import (
	"time"

	"habeat-engine/internal/nutrition"
	"habeat-engine/internal/plan"
	"habeat-engine/internal/promptgen"
	"habeat-engine/internal/transform"

	"github.com/google/uuid"
)

// mockWeeklyPlan builds a canned plan over the window without touching any
// backend. It sleeps MockDelay to keep client-side latency handling honest.
func (p *Planner) mockWeeklyPlan(window promptgen.Window, targets nutrition.Targets) plan.WeeklyPlan {
	if p.MockDelay > 0 {
		time.Sleep(p.MockDelay)
	}

	workoutDays := make(map[int]bool, len(window.WorkoutDayIndices))
	for _, i := range window.WorkoutDayIndices {
		workoutDays[i] = true
	}
	water := transform.DefaultWaterPolicy()

	weekly := plan.WeeklyPlan{Days: make(map[string]plan.DayPlan, len(window.Dates))}
	for i, date := range window.Dates {
		key := window.DateKeys[i]
		day := plan.DayPlan{
			Day:       window.DayNameByIndex[i],
			Date:      key,
			Breakfast: mockMeal(plan.CategoryBreakfast, targets, i),
			Lunch:     mockMeal(plan.CategoryLunch, targets, i),
			Dinner:    mockMeal(plan.CategoryDinner, targets, i),
			Snacks:    []plan.Meal{*mockMeal(plan.CategorySnack, targets, i)},
		}

		workoutMinutes := 0
		if workoutDays[i] {
			w := plan.Workout{
				Name:           "Full body strength",
				Category:       "strength",
				Duration:       45,
				CaloriesBurned: 300,
				Time:           "18:00",
			}
			if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
				w = plan.Workout{
					Name:           "Outdoor run",
					Category:       "cardio",
					Duration:       40,
					CaloriesBurned: 350,
					Time:           "10:00",
				}
			}
			day.Workouts = []plan.Workout{w}
			workoutMinutes = w.Duration
		}
		day.WaterIntake = water.Glasses(workoutMinutes)

		weekly.Days[key] = day
	}
	return weekly
}

var mockMealNames = map[plan.MealCategory][]string{
	plan.CategoryBreakfast: {"Oatmeal with berries", "Scrambled eggs on toast", "Greek yogurt parfait"},
	plan.CategoryLunch:     {"Grilled chicken salad", "Lentil soup with bread", "Turkey wrap"},
	plan.CategoryDinner:    {"Baked salmon with rice", "Veggie stir-fry with tofu", "Beef and sweet potato bowl"},
	plan.CategorySnack:     {"Apple with peanut butter", "Mixed nuts", "Cottage cheese with fruit"},
}

var mockIngredients = map[plan.MealCategory][]plan.Ingredient{
	plan.CategoryBreakfast: {
		{Name: "rolled_oats", Amount: "60", Unit: "g", Category: "grains"},
		{Name: "blueberries", Amount: "80", Unit: "g", Category: "fruits"},
	},
	plan.CategoryLunch: {
		{Name: "chicken_breast", Amount: "150", Unit: "g", Category: "protein"},
		{Name: "mixed_greens", Amount: "100", Unit: "g", Category: "vegetables"},
	},
	plan.CategoryDinner: {
		{Name: "salmon_fillet", Amount: "160", Unit: "g", Category: "protein"},
		{Name: "brown_rice", Amount: "120", Unit: "g", Category: "grains"},
	},
	plan.CategorySnack: {
		{Name: "apple", Amount: "1", Unit: "piece", Category: "fruits"},
		{Name: "peanut_butter", Amount: "20", Unit: "g", Category: "fats"},
	},
}

func mockMeal(category plan.MealCategory, targets nutrition.Targets, day int) *plan.Meal {
	names := mockMealNames[category]
	share := slotShares[category]
	calories := targets.TargetCalories * share.Calories / 100
	c := float64(calories)
	return &plan.Meal{
		ID:       uuid.NewString(),
		Name:     names[day%len(names)],
		Category: category,
		Calories: calories,
		Macros: plan.Macros{
			Protein: int(c * float64(share.Protein) / 100 / 4),
			Carbs:   int(c * float64(share.Carbs) / 100 / 4),
			Fat:     int(c * float64(share.Fat) / 100 / 9),
		},
		Ingredients: mockIngredients[category],
		PrepTime:    15,
	}
}
