package plan

// MealCategory identifies one meal slot within a day.
type MealCategory string

const (
	CategoryBreakfast MealCategory = "breakfast"
	CategoryLunch     MealCategory = "lunch"
	CategoryDinner    MealCategory = "dinner"
	CategorySnack     MealCategory = "snack"
)

// Categories lists the meal categories in slot order.
func Categories() []MealCategory {
	return []MealCategory{CategoryBreakfast, CategoryLunch, CategoryDinner, CategorySnack}
}

// Macros holds macro-nutrient grams for a meal or a daily target.
type Macros struct {
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// Ingredient is one parsed ingredient tuple.
type Ingredient struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Unit     string `json:"unit,omitempty"`
	Category string `json:"category,omitempty"`
}

// Meal is a single meal, either freshly generated or reused from the inventory.
type Meal struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    MealCategory `json:"category"`
	Calories    int          `json:"calories"`
	Macros      Macros       `json:"macros"`
	Ingredients []Ingredient `json:"ingredients"`
	PrepTime    int          `json:"prepTime"`
	Reused      bool         `json:"reused,omitempty"`
}

// Workout is a scheduled training entry inside a day plan.
type Workout struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	Duration       int    `json:"duration"`
	CaloriesBurned int    `json:"caloriesBurned"`
	Time           string `json:"time,omitempty"`
}

// WorkoutCategories is the fixed set of workout categories the engine emits.
var WorkoutCategories = []string{"cardio", "strength", "flexibility", "hiit", "sports"}
