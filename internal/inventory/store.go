// Package inventory is the persistent meal catalog the reuse matcher queries.
// It is read-heavy and append-mostly: near-duplicate entries from concurrent
// generations are tolerated noise, not integrity violations, so inserts take
// no uniqueness lock.
package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"habeat-engine/internal/plan"

	"github.com/google/uuid"
)

// StoredMeal is an inventory row: a meal plus its reuse bookkeeping.
type StoredMeal struct {
	Meal       plan.Meal
	UsageCount int
	CreatedAt  time.Time
}

// Store is a database-backed repository for the meal inventory.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindByWindow returns meals of a category whose calories fall inside
// [minCalories, maxCalories], most-used first, capped at limit.
func (s *Store) FindByWindow(ctx context.Context, category plan.MealCategory, minCalories, maxCalories, limit int) ([]StoredMeal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, calories, protein, carbs, fat, ingredients, prep_time, usage_count, created_at
		FROM meals
		WHERE category = ? AND calories BETWEEN ? AND ?
		ORDER BY usage_count DESC, created_at DESC
		LIMIT ?`,
		string(category), minCalories, maxCalories, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	var meals []StoredMeal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// Insert stores a new meal. A missing ID is assigned here so callers can pass
// freshly generated meals straight through.
func (s *Store) Insert(ctx context.Context, m plan.Meal) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	ingredients, err := json.Marshal(m.Ingredients)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meals (id, name, category, calories, protein, carbs, fat, ingredients, prep_time, usage_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		m.ID, m.Name, string(m.Category), m.Calories,
		m.Macros.Protein, m.Macros.Carbs, m.Macros.Fat,
		string(ingredients), m.PrepTime, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert meal: %w", err)
	}
	return m.ID, nil
}

// IncrementUsage bumps a meal's reuse counter.
func (s *Store) IncrementUsage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE meals SET usage_count = usage_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment usage for meal %s: %w", id, err)
	}
	return nil
}

func scanMeal(rows *sql.Rows) (StoredMeal, error) {
	var (
		m           StoredMeal
		category    string
		ingredients string
	)
	err := rows.Scan(&m.Meal.ID, &m.Meal.Name, &category,
		&m.Meal.Calories, &m.Meal.Macros.Protein, &m.Meal.Macros.Carbs, &m.Meal.Macros.Fat,
		&ingredients, &m.Meal.PrepTime, &m.UsageCount, &m.CreatedAt)
	if err != nil {
		return StoredMeal{}, fmt.Errorf("failed to scan meal row: %w", err)
	}
	m.Meal.Category = plan.MealCategory(category)
	if err := json.Unmarshal([]byte(ingredients), &m.Meal.Ingredients); err != nil {
		return StoredMeal{}, fmt.Errorf("failed to unmarshal ingredients for meal %s: %w", m.Meal.ID, err)
	}
	return m, nil
}
