// Package planner is the plan-assembly orchestrator: it derives nutrition
// targets, builds the prompt, drives the model backends, normalizes the
// response and applies inventory reuse before handing the finished weekly
// plan to the persistence collaborator.
package planner

import (
	"context"
	"fmt"
	"time"

	"habeat-engine/internal/llm"
	"habeat-engine/internal/nutrition"
	"habeat-engine/internal/plan"
	"habeat-engine/internal/promptgen"
	"habeat-engine/internal/reuse"
	"habeat-engine/internal/sanitize"
	"habeat-engine/internal/transform"

	"go.uber.org/zap"
)

// slotShare is a meal slot's share of the daily calorie target and its
// typical macro weighting (protein/carbs/fat percent).
type slotShare struct {
	Calories int // percent of daily target
	Protein  int
	Carbs    int
	Fat      int
}

var slotShares = map[plan.MealCategory]slotShare{
	plan.CategoryBreakfast: {Calories: 25, Protein: 20, Carbs: 50, Fat: 30},
	plan.CategoryLunch:     {Calories: 35, Protein: 30, Carbs: 40, Fat: 30},
	plan.CategoryDinner:    {Calories: 30, Protein: 35, Carbs: 35, Fat: 30},
	plan.CategorySnack:     {Calories: 10, Protein: 25, Carbs: 50, Fat: 25},
}

// Inventory is the writable slice of the meal store the orchestrator needs.
type Inventory interface {
	Insert(ctx context.Context, m plan.Meal) (string, error)
	IncrementUsage(ctx context.Context, id string) error
}

// Planner assembles weekly plans and standalone meal suggestions.
type Planner struct {
	backends    []llm.Backend
	matcher     *reuse.Matcher
	store       Inventory
	transformer *transform.Transformer
	logger      *zap.Logger

	// Now supplies the generation anchor date; overridable in tests.
	Now func() time.Time
	// MockDelay simulates backend latency when a mock plan is requested.
	MockDelay time.Duration
	// PoolSize is the per-category candidate count pre-fetched for reuse.
	PoolSize int
}

// NewPlanner creates a Planner instance.
func NewPlanner(backends []llm.Backend, matcher *reuse.Matcher, store Inventory, transformer *transform.Transformer, logger *zap.Logger) *Planner {
	return &Planner{
		backends:    backends,
		matcher:     matcher,
		store:       store,
		transformer: transformer,
		logger:      logger,
		Now:         time.Now,
		MockDelay:   800 * time.Millisecond,
		PoolSize:    7,
	}
}

// GenerateWeeklyPlan runs the full pipeline for one user. The plan covers
// today through the coming Sunday; any failure aborts the whole generation
// and no partial plan is ever returned.
func (p *Planner) GenerateWeeklyPlan(ctx context.Context, profile nutrition.Profile, language string, useMock bool) (*plan.WeeklyPlanResult, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	if language == "" {
		language = "en"
	}

	targets := nutrition.CalculateTargets(profile)
	window, err := promptgen.BuildWindow(time.Time{}, p.Now(), profile.WorkoutFrequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrValidation, err)
	}

	var weekly plan.WeeklyPlan
	if useMock {
		weekly = p.mockWeeklyPlan(window, targets)
	} else {
		weekly, err = p.generateWeek(ctx, profile, targets, window, language)
		if err != nil {
			return nil, err
		}
		if err := p.applyReuse(ctx, &weekly, profile, targets); err != nil {
			return nil, err
		}
	}

	weekly.Aggregate()
	p.logger.Info("weekly plan assembled",
		zap.Int("days", len(weekly.Days)),
		zap.Int("totalCalories", weekly.WeeklyMacros.Calories.Total),
		zap.Bool("mock", useMock))

	return &plan.WeeklyPlanResult{
		WeeklyPlan:  weekly,
		Language:    language,
		GeneratedAt: p.Now(),
	}, nil
}

// generateWeek drives the backend chain. The chain validator runs the
// sanitizer and transformer so an unparseable response counts as a failed
// attempt and advances the fallback, never surfacing as a success.
func (p *Planner) generateWeek(ctx context.Context, profile nutrition.Profile, targets nutrition.Targets, window promptgen.Window, language string) (plan.WeeklyPlan, error) {
	prompt, err := promptgen.BuildWeeklyPrompt(profile, targets, window, language)
	if err != nil {
		return plan.WeeklyPlan{}, fmt.Errorf("%w: failed to render prompt: %v", llm.ErrValidation, err)
	}

	var weekly plan.WeeklyPlan
	validate := func(r llm.ContentResponse) error {
		cleaned := sanitize.Sanitize(r.Content)
		wp, err := p.transformer.Transform(cleaned, window)
		if err != nil {
			return err
		}
		weekly = wp
		return nil
	}

	chain := llm.NewFallbackChain(p.logger, validate, p.backends...)
	if _, err := chain.GenerateContent(ctx, prompt); err != nil {
		return plan.WeeklyPlan{}, err
	}
	return weekly, nil
}

// applyReuse walks every meal slot and substitutes a stored meal where the
// pre-fetched pool has an unused match; otherwise the generated meal is
// macro-corrected and persisted to the inventory for future reuse.
func (p *Planner) applyReuse(ctx context.Context, weekly *plan.WeeklyPlan, profile nutrition.Profile, targets nutrition.Targets) error {
	prefs := reuse.Prefs{
		Allergies:   profile.Allergies,
		Preferences: profile.Preferences,
		Dislikes:    profile.Dislikes,
	}

	caloriesByCategory := make(map[plan.MealCategory]int, len(slotShares))
	for category, share := range slotShares {
		caloriesByCategory[category] = targets.TargetCalories * share.Calories / 100
	}

	pool, err := p.matcher.PrefetchWeek(ctx, caloriesByCategory, prefs, p.PoolSize)
	if err != nil {
		return fmt.Errorf("failed to pre-fetch reuse pool: %w", err)
	}

	for _, date := range weekly.SortedDates() {
		day := weekly.Days[date]
		day.Breakfast = p.fillSlot(ctx, pool, day.Breakfast, plan.CategoryBreakfast, targets)
		day.Lunch = p.fillSlot(ctx, pool, day.Lunch, plan.CategoryLunch, targets)
		day.Dinner = p.fillSlot(ctx, pool, day.Dinner, plan.CategoryDinner, targets)
		for i := range day.Snacks {
			if replacement := p.fillSlot(ctx, pool, &day.Snacks[i], plan.CategorySnack, targets); replacement != nil {
				day.Snacks[i] = *replacement
			}
		}
		weekly.Days[date] = day
	}
	return nil
}

// fillSlot substitutes one slot from the pool when possible. Generated meals
// that stay are corrected against the slot's macro distribution and stored.
func (p *Planner) fillSlot(ctx context.Context, pool *reuse.WeekPool, current *plan.Meal, category plan.MealCategory, targets nutrition.Targets) *plan.Meal {
	if current == nil {
		return nil
	}

	if reused, ok := pool.Next(category); ok {
		if err := p.store.IncrementUsage(ctx, reused.ID); err != nil {
			p.logger.Warn("failed to bump usage counter", zap.String("mealID", reused.ID), zap.Error(err))
		}
		p.logger.Debug("substituted stored meal",
			zap.String("slot", string(category)),
			zap.String("replaced", current.Name),
			zap.String("with", reused.Name))
		return &reused
	}

	corrected := correctMacros(*current, category, targets)
	if id, err := p.store.Insert(ctx, corrected); err != nil {
		p.logger.Warn("failed to persist generated meal", zap.String("meal", corrected.Name), zap.Error(err))
	} else {
		corrected.ID = id
		pool.MarkUsed(id)
	}
	return &corrected
}

// correctMacros validates a generated meal's numbers against its slot's
// typical distribution. Missing calories fall back to the slot's share of the
// daily target; macros that disagree with the calories by more than 25% are
// recomputed from the slot split.
func correctMacros(m plan.Meal, category plan.MealCategory, targets nutrition.Targets) plan.Meal {
	share, ok := slotShares[category]
	if !ok {
		return m
	}

	if m.Calories <= 0 {
		m.Calories = targets.TargetCalories * share.Calories / 100
	}

	macroKcal := m.Macros.Protein*4 + m.Macros.Carbs*4 + m.Macros.Fat*9
	deviation := macroKcal - m.Calories
	if deviation < 0 {
		deviation = -deviation
	}
	if macroKcal == 0 || deviation*4 > m.Calories {
		c := float64(m.Calories)
		m.Macros = plan.Macros{
			Protein: int(c * float64(share.Protein) / 100 / 4),
			Carbs:   int(c * float64(share.Carbs) / 100 / 4),
			Fat:     int(c * float64(share.Fat) / 100 / 9),
		}
	}
	return m
}

func validateProfile(p nutrition.Profile) error {
	switch {
	case p.Age <= 0:
		return fmt.Errorf("%w: profile age must be positive", llm.ErrValidation)
	case p.HeightCM <= 0:
		return fmt.Errorf("%w: profile height must be positive", llm.ErrValidation)
	case p.WeightKG <= 0:
		return fmt.Errorf("%w: profile weight must be positive", llm.ErrValidation)
	}
	return nil
}
