package planner

import (
	"context"
	"fmt"

	"habeat-engine/internal/llm"
	"habeat-engine/internal/plan"
	"habeat-engine/internal/promptgen"
	"habeat-engine/internal/reuse"
	"habeat-engine/internal/sanitize"

	"go.uber.org/zap"
)

// suggestionTolerancePct is the proportional calorie window for suggestion
// queries, wider than the weekly assembly's absolute window.
const suggestionTolerancePct = 15

// GenerateMealSuggestions returns meals for a category and calorie target,
// preferring inventory reuse and falling back to generation for the
// remainder. Newly generated meals are persisted for future reuse.
func (p *Planner) GenerateMealSuggestions(ctx context.Context, criteria promptgen.SuggestionCriteria, language string) ([]plan.Meal, error) {
	if criteria.TargetCalories <= 0 {
		return nil, fmt.Errorf("%w: target calories must be positive", llm.ErrValidation)
	}
	if !validCategory(criteria.Category) {
		return nil, fmt.Errorf("%w: unknown meal category %q", llm.ErrValidation, criteria.Category)
	}
	if criteria.Count <= 0 {
		criteria.Count = 3
	}
	if language == "" {
		language = "en"
	}

	prefs := reuse.Prefs{Allergies: criteria.Allergies, Dislikes: criteria.Exclude}
	tolerance := criteria.TargetCalories * suggestionTolerancePct / 100

	stored, err := p.matcher.TopCandidates(ctx, criteria.Category, criteria.TargetCalories, tolerance, prefs, criteria.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal inventory: %w", err)
	}

	var meals []plan.Meal
	for _, s := range stored {
		m := s.Meal
		m.Reused = true
		if err := p.store.IncrementUsage(ctx, m.ID); err != nil {
			p.logger.Warn("failed to bump usage counter", zap.String("mealID", m.ID), zap.Error(err))
		}
		meals = append(meals, m)
	}

	remaining := criteria.Count - len(meals)
	if remaining <= 0 {
		return meals, nil
	}

	generated, err := p.generateSuggestions(ctx, criteria, meals, remaining, language)
	if err != nil {
		// stored matches alone still satisfy the caller when generation is down
		if len(meals) > 0 {
			p.logger.Warn("generation failed, serving stored matches only", zap.Error(err))
			return meals, nil
		}
		return nil, err
	}

	for _, m := range generated {
		if id, err := p.store.Insert(ctx, m); err != nil {
			p.logger.Warn("failed to persist generated meal", zap.String("meal", m.Name), zap.Error(err))
		} else {
			m.ID = id
		}
		meals = append(meals, m)
	}
	return meals, nil
}

func (p *Planner) generateSuggestions(ctx context.Context, criteria promptgen.SuggestionCriteria, have []plan.Meal, count int, language string) ([]plan.Meal, error) {
	exclude := append([]string{}, criteria.Exclude...)
	for _, m := range have {
		exclude = append(exclude, m.Name)
	}
	criteria.Exclude = exclude
	criteria.Count = count

	prompt, err := promptgen.BuildSuggestionsPrompt(criteria, language)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to render prompt: %v", llm.ErrValidation, err)
	}

	var meals []plan.Meal
	validate := func(r llm.ContentResponse) error {
		parsed, err := p.transformer.Meals(sanitize.Sanitize(r.Content), criteria.Category)
		if err != nil {
			return err
		}
		meals = parsed
		return nil
	}

	chain := llm.NewFallbackChain(p.logger, validate, p.backends...)
	if _, err := chain.GenerateContent(ctx, prompt); err != nil {
		return nil, err
	}
	if len(meals) > count {
		meals = meals[:count]
	}
	return meals, nil
}

func validCategory(c plan.MealCategory) bool {
	for _, known := range plan.Categories() {
		if c == known {
			return true
		}
	}
	return false
}
