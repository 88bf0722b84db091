// Package transform normalizes the arbitrarily-shaped weekly plan an LLM
// returns into the canonical date-keyed structure. Shape detection happens
// exactly once, here; downstream components only ever see plan.WeeklyPlan.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"habeat-engine/internal/llm"
	"habeat-engine/internal/plan"
	"habeat-engine/internal/promptgen"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WaterPolicy is the hydration heuristic: a base number of glasses plus one
// extra glass per block of workout minutes, capped. Policy constants, not a
// medical rule.
type WaterPolicy struct {
	BaseGlasses     int
	MinutesPerGlass int
	Cap             int
}

// DefaultWaterPolicy matches the production defaults.
func DefaultWaterPolicy() WaterPolicy {
	return WaterPolicy{BaseGlasses: 8, MinutesPerGlass: 30, Cap: 12}
}

// Glasses computes the water target for a day's total workout minutes.
func (p WaterPolicy) Glasses(workoutMinutes int) int {
	extra := 0
	if p.MinutesPerGlass > 0 {
		extra = workoutMinutes / p.MinutesPerGlass
	}
	glasses := p.BaseGlasses + extra
	if glasses > p.Cap {
		glasses = p.Cap
	}
	return glasses
}

// Transformer converts sanitized model output into weekly plans.
type Transformer struct {
	water  WaterPolicy
	logger *zap.Logger
}

// New creates a Transformer with the given water policy.
func New(water WaterPolicy, logger *zap.Logger) *Transformer {
	return &Transformer{water: water, logger: logger}
}

var dateKeyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// rawShape discriminates the three top-level layouts the model may return.
type rawShape int

const (
	shapeDateKeyed rawShape = iota
	shapeDayNameKeyed
	shapeArray
)

// taggedRaw is the raw plan plus its detected shape, the single normalization
// point for the model's duck-typed output.
type taggedRaw struct {
	shape   rawShape
	byKey   map[string]any // date- or day-name-keyed
	asArray []any
}

// Transform parses sanitized JSON text into a canonical weekly plan, keyed by
// the dates of the supplied window.
func (t *Transformer) Transform(sanitized string, w promptgen.Window) (plan.WeeklyPlan, error) {
	tagged, err := detectShape(sanitized)
	if err != nil {
		return plan.WeeklyPlan{}, err
	}

	days := make(map[string]plan.DayPlan)
	switch tagged.shape {
	case shapeArray:
		for i, entry := range tagged.asArray {
			dayMap, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			date := t.resolveDate(dayMap, "", i, w)
			if date == "" {
				continue
			}
			days[date] = t.buildDay(dayMap, date, w)
		}
	default:
		for key, entry := range tagged.byKey {
			dayMap, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			// keyed entries carry their identity in the key; no positional fallback
			date := t.resolveDate(dayMap, key, -1, w)
			if date == "" {
				continue
			}
			days[date] = t.buildDay(dayMap, date, w)
		}
	}

	if len(days) > 7 {
		t.logger.Warn("model returned more than 7 days, truncating",
			zap.Int("returned", len(days)))
		dates := make([]string, 0, len(days))
		for d := range days {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		for _, d := range dates[7:] {
			delete(days, d)
		}
	}

	result := plan.WeeklyPlan{Days: days}
	if !hasAnyMainMeal(result) {
		return plan.WeeklyPlan{}, fmt.Errorf("%w: plan contains no breakfast, lunch or dinner on any day", llm.ErrMalformedResponse)
	}
	result.Aggregate()
	return result, nil
}

// detectShape parses the text and tags its top-level layout, unwrapping the
// optional mealPlan/weeklyPlan envelope.
func detectShape(sanitized string) (taggedRaw, error) {
	var root any
	if err := json.Unmarshal([]byte(sanitized), &root); err != nil {
		return taggedRaw{}, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	// unwrap nested envelopes the model sometimes adds
	for depth := 0; depth < 3; depth++ {
		obj, ok := root.(map[string]any)
		if !ok {
			break
		}
		if inner, ok := obj["mealPlan"]; ok {
			root = inner
			continue
		}
		if inner, ok := obj["weeklyPlan"]; ok {
			root = inner
			continue
		}
		if inner, ok := obj["days"]; ok {
			root = inner
			continue
		}
		break
	}

	switch v := root.(type) {
	case []any:
		return taggedRaw{shape: shapeArray, asArray: v}, nil
	case map[string]any:
		for key := range v {
			if dateKeyRe.MatchString(key) {
				return taggedRaw{shape: shapeDateKeyed, byKey: v}, nil
			}
		}
		return taggedRaw{shape: shapeDayNameKeyed, byKey: v}, nil
	}
	return taggedRaw{}, fmt.Errorf("%w: top-level JSON is neither object nor array", llm.ErrMalformedResponse)
}

// resolveDate finds the date key for a raw day entry: an explicit date field
// or map key wins, then a day name resolved through the window tables, then
// positional order.
func (t *Transformer) resolveDate(dayMap map[string]any, key string, index int, w promptgen.Window) string {
	if dateKeyRe.MatchString(key) {
		return key
	}
	if d := getString(dayMap, "date"); dateKeyRe.MatchString(d) {
		return d
	}
	for _, name := range []string{getString(dayMap, "day"), key} {
		if name == "" {
			continue
		}
		if date, ok := w.DateFor(canonicalDayName(name)); ok {
			return date
		}
	}
	if index >= 0 && index < len(w.DateKeys) {
		return w.DateKeys[index]
	}
	t.logger.Warn("could not resolve date for day entry, dropping",
		zap.String("key", key), zap.Int("index", index))
	return ""
}

func canonicalDayName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (t *Transformer) buildDay(dayMap map[string]any, date string, w promptgen.Window) plan.DayPlan {
	day := plan.DayPlan{Date: date}
	if name := getString(dayMap, "day"); name != "" {
		day.Day = canonicalDayName(name)
	} else if idx, ok := indexOf(w.DateKeys, date); ok {
		day.Day = w.DayNameByIndex[idx]
	}

	day.Breakfast = t.buildMeal(dayMap["breakfast"], plan.CategoryBreakfast)
	day.Lunch = t.buildMeal(dayMap["lunch"], plan.CategoryLunch)
	day.Dinner = t.buildMeal(dayMap["dinner"], plan.CategoryDinner)

	for _, rawSnack := range getSlice(dayMap, "snacks") {
		if m := t.buildMeal(rawSnack, plan.CategorySnack); m != nil {
			day.Snacks = append(day.Snacks, *m)
		}
	}

	workoutMinutes := 0
	for _, rawWorkout := range getSlice(dayMap, "workouts") {
		wm, ok := rawWorkout.(map[string]any)
		if !ok {
			continue
		}
		workout := plan.Workout{
			Name:           getString(wm, "name"),
			Category:       strings.ToLower(getString(wm, "category")),
			Duration:       clampInt(numberOf(wm["duration"]), 0, 360, 30),
			CaloriesBurned: clampInt(numberOf(wm["caloriesBurned"]), 0, 3000, 0),
			Time:           getString(wm, "time"),
		}
		if workout.Name == "" {
			continue
		}
		workoutMinutes += workout.Duration
		day.Workouts = append(day.Workouts, workout)
	}

	day.WaterIntake = t.water.Glasses(workoutMinutes)
	return day
}

// buildMeal converts one raw meal value, tolerating both flat macro fields and
// a nested macros object. Returns nil for absent or empty slots.
func (t *Transformer) buildMeal(raw any, category plan.MealCategory) *plan.Meal {
	mealMap, ok := raw.(map[string]any)
	if !ok || len(mealMap) == 0 {
		return nil
	}
	name := strings.TrimSpace(getString(mealMap, "name"))
	if name == "" {
		return nil
	}

	macros := mealMap
	if nested, ok := mealMap["macros"].(map[string]any); ok {
		macros = nested
	}

	meal := plan.Meal{
		ID:       uuid.NewString(),
		Name:     name,
		Category: category,
		Calories: clampInt(numberOf(mealMap["calories"]), 0, 5000, 0),
		Macros: plan.Macros{
			Protein: clampInt(numberOf(macros["protein"]), 0, 500, 0),
			Carbs:   clampInt(numberOf(macros["carbs"]), 0, 1000, 0),
			Fat:     clampInt(numberOf(macros["fat"]), 0, 500, 0),
		},
		PrepTime: clampInt(numberOf(mealMap["prepTime"]), 0, 600, 15),
	}

	for _, rawIng := range getSlice(mealMap, "ingredients") {
		if ing, ok := ParseIngredient(rawIng); ok {
			meal.Ingredients = append(meal.Ingredients, ing)
		}
	}
	return &meal
}

// Meals parses a sanitized JSON array of meal objects, tolerating a single
// object or a {"meals": [...]} envelope. Entries that cannot be parsed are
// dropped; an empty result is a malformed response.
func (t *Transformer) Meals(sanitized string, category plan.MealCategory) ([]plan.Meal, error) {
	var root any
	if err := json.Unmarshal([]byte(sanitized), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}

	if obj, ok := root.(map[string]any); ok {
		if inner, ok := obj["meals"]; ok {
			root = inner
		} else {
			root = []any{obj}
		}
	}

	entries, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON array of meals", llm.ErrMalformedResponse)
	}

	var meals []plan.Meal
	for _, entry := range entries {
		if m := t.buildMeal(entry, category); m != nil {
			meals = append(meals, *m)
		}
	}
	if len(meals) == 0 {
		return nil, fmt.Errorf("%w: no parsable meals in response", llm.ErrMalformedResponse)
	}
	return meals, nil
}

func hasAnyMainMeal(w plan.WeeklyPlan) bool {
	for _, day := range w.Days {
		if day.HasMainMeal() {
			return true
		}
	}
	return false
}

// --- loose-typed accessors ---

func getString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.Itoa(int(t))
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func getSlice(m map[string]any, key string) []any {
	s, _ := m[key].([]any)
	return s
}

// numberOf extracts an integer from a JSON number or a numeric-prefixed
// string like "420 kcal". Returns -1 when no number is present so callers can
// distinguish "absent" from a real zero.
func numberOf(v any) int {
	switch t := v.(type) {
	case float64:
		return int(math.Round(t))
	case string:
		digits := strings.TrimSpace(t)
		end := 0
		for end < len(digits) && (digits[end] >= '0' && digits[end] <= '9') {
			end++
		}
		if end == 0 {
			return -1
		}
		n, err := strconv.Atoi(digits[:end])
		if err != nil {
			return -1
		}
		return n
	}
	return -1
}

// clampInt bounds v to [min, max], substituting def when v is absent (<0).
func clampInt(v, min, max, def int) int {
	if v < 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func indexOf(keys []string, key string) (int, bool) {
	for i, k := range keys {
		if k == key {
			return i, true
		}
	}
	return 0, false
}
