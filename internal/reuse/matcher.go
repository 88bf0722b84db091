// Package reuse substitutes previously stored meals for freshly generated
// ones when they already satisfy the nutrition target. The weekly assignment
// is a greedy round-robin over a pre-fetched candidate pool, not an optimal
// matching: slot order is arbitrary and a good-enough substitution is the
// goal.
package reuse

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"habeat-engine/internal/inventory"
	"habeat-engine/internal/plan"

	"go.uber.org/zap"
)

// CalorieTolerance is the default absolute calorie window for weekly
// assembly queries.
const CalorieTolerance = 150

// Inventory is the slice of the meal store the matcher needs.
type Inventory interface {
	FindByWindow(ctx context.Context, category plan.MealCategory, minCalories, maxCalories, limit int) ([]inventory.StoredMeal, error)
	IncrementUsage(ctx context.Context, id string) error
}

// Prefs carries the user's food constraints into scoring.
type Prefs struct {
	Allergies   []string
	Preferences []string
	Dislikes    []string
}

// Matcher scores stored meals against a nutrition target.
type Matcher struct {
	store  Inventory
	logger *zap.Logger
}

// NewMatcher creates a Matcher over an inventory store.
func NewMatcher(store Inventory, logger *zap.Logger) *Matcher {
	return &Matcher{store: store, logger: logger}
}

// Score rates a candidate against the target. Preference hits reward +10
// each, dislikes penalize -20 each, prior popularity adds up to 5, and
// calorie proximity adds up to 10.
func Score(m inventory.StoredMeal, prefs Prefs, targetCalories int) int {
	score := 0
	haystack := candidateText(m.Meal)

	for _, pref := range prefs.Preferences {
		if containsFold(haystack, pref) {
			score += 10
		}
	}
	for _, dislike := range prefs.Dislikes {
		if containsFold(haystack, dislike) {
			score -= 20
		}
	}

	popularity := m.UsageCount
	if popularity > 5 {
		popularity = 5
	}
	score += popularity

	distance := m.Meal.Calories - targetCalories
	if distance < 0 {
		distance = -distance
	}
	proximity := 10 - distance/15
	if proximity < 0 {
		proximity = 0
	}
	score += proximity

	return score
}

// matchesAllergy reports whether a meal's name or any ingredient matches one
// of the user's allergies.
func matchesAllergy(m plan.Meal, allergies []string) bool {
	for _, a := range allergies {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(a))
		if err != nil {
			continue
		}
		if re.MatchString(m.Name) {
			return true
		}
		for _, ing := range m.Ingredients {
			if re.MatchString(ing.Name) {
				return true
			}
		}
	}
	return false
}

func candidateText(m plan.Meal) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(m.Name))
	for _, ing := range m.Ingredients {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(ing.Name))
	}
	return b.String()
}

func containsFold(haystack, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	// ingredient names are underscore-normalized, user input is not
	return strings.Contains(haystack, needle) ||
		strings.Contains(haystack, strings.ReplaceAll(needle, " ", "_"))
}

type scored struct {
	meal  inventory.StoredMeal
	score int
}

// TopCandidates queries the inventory window, drops allergy matches and
// net-negative scores, and returns the best n candidates by score.
func (mt *Matcher) TopCandidates(ctx context.Context, category plan.MealCategory, targetCalories, tolerance int, prefs Prefs, n int) ([]inventory.StoredMeal, error) {
	candidates, err := mt.store.FindByWindow(ctx, category, targetCalories-tolerance, targetCalories+tolerance, n*4)
	if err != nil {
		return nil, err
	}

	var ranked []scored
	for _, c := range candidates {
		if matchesAllergy(c.Meal, prefs.Allergies) {
			continue
		}
		s := Score(c, prefs, targetCalories)
		if s < 0 {
			continue
		}
		ranked = append(ranked, scored{meal: c, score: s})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]inventory.StoredMeal, len(ranked))
	for i, r := range ranked {
		out[i] = r.meal
	}
	return out, nil
}

// WeekPool holds the pre-fetched candidates for one weekly assembly and
// tracks which meals were already placed so a week never repeats a meal.
type WeekPool struct {
	byCategory map[plan.MealCategory][]inventory.StoredMeal
	next       map[plan.MealCategory]int
	used       map[string]bool
}

// PrefetchWeek issues one query per meal category, concurrently since the
// reads are independent, and returns the combined pool.
func (mt *Matcher) PrefetchWeek(ctx context.Context, caloriesByCategory map[plan.MealCategory]int, prefs Prefs, perCategory int) (*WeekPool, error) {
	pool := &WeekPool{
		byCategory: make(map[plan.MealCategory][]inventory.StoredMeal),
		next:       make(map[plan.MealCategory]int),
		used:       make(map[string]bool),
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for category, target := range caloriesByCategory {
		wg.Add(1)
		go func(category plan.MealCategory, target int) {
			defer wg.Done()
			meals, err := mt.TopCandidates(ctx, category, target, CalorieTolerance, prefs, perCategory)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			pool.byCategory[category] = meals
		}(category, target)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	total := 0
	for _, meals := range pool.byCategory {
		total += len(meals)
	}
	mt.logger.Debug("prefetched reuse pool", zap.Int("candidates", total))
	return pool, nil
}

// Next returns the next unused candidate for a category, marking it used.
// ok is false when the category pool is exhausted for this week.
func (p *WeekPool) Next(category plan.MealCategory) (plan.Meal, bool) {
	meals := p.byCategory[category]
	for range meals {
		i := p.next[category] % len(meals)
		p.next[category]++
		m := meals[i].Meal
		if p.used[m.ID] {
			continue
		}
		p.used[m.ID] = true
		m.Reused = true
		return m, true
	}
	return plan.Meal{}, false
}

// MarkUsed records an externally placed meal so the pool never duplicates it
// within the same week.
func (p *WeekPool) MarkUsed(id string) {
	if id != "" {
		p.used[id] = true
	}
}
